package events

import (
	"encoding/json"
	"fmt"

	"osakana/internal/questions"
	"osakana/internal/ranking"
)

type Kind string

const (
	KindRoundReset              = Kind("ReloadQuestions")
	KindRemainingTimePercentage = Kind("RemainingTimePercentage")
	KindAnswerResult            = Kind("Answer")
	KindRankingUpdated          = Kind("RankingUpdated")
)

// Event is one state change notification. Implementations are value types and
// must not be mutated after they are published.
type Event interface {
	Kind() Kind
}

type RoundReset struct {
	Questions questions.Snapshot `json:"questions"`
}

type RemainingTimePercentage struct {
	Percentage float64 `json:"percentage"`
}

type AnswerResult struct {
	Index     int  `json:"index"`
	IsCorrect bool `json:"is_correct"`
}

type RankingUpdated struct {
	Ranking []ranking.Entry `json:"ranking"`
}

func (RoundReset) Kind() Kind              { return KindRoundReset }
func (RemainingTimePercentage) Kind() Kind { return KindRemainingTimePercentage }
func (AnswerResult) Kind() Kind            { return KindAnswerResult }
func (RankingUpdated) Kind() Kind          { return KindRankingUpdated }

// Encode produces the externally tagged wire form, e.g.
// {"Answer":{"index":2,"is_correct":true}}.
func Encode(ev Event) ([]byte, error) {
	if ev == nil {
		return nil, fmt.Errorf("encoding event: nil event")
	}
	data, err := json.Marshal(map[Kind]Event{ev.Kind(): ev})
	if err != nil {
		return nil, fmt.Errorf("encoding %s event: %w", ev.Kind(), err)
	}
	return data, nil
}

// Decode parses the wire form produced by Encode.
func Decode(data []byte) (Event, error) {
	var tagged map[Kind]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}
	if len(tagged) != 1 {
		return nil, fmt.Errorf("decoding event: expected one tag, got %d", len(tagged))
	}

	for kind, raw := range tagged {
		var (
			ev  Event
			err error
		)
		switch kind {
		case KindRoundReset:
			var v RoundReset
			err = json.Unmarshal(raw, &v)
			ev = v
		case KindRemainingTimePercentage:
			var v RemainingTimePercentage
			err = json.Unmarshal(raw, &v)
			ev = v
		case KindAnswerResult:
			var v AnswerResult
			err = json.Unmarshal(raw, &v)
			ev = v
		case KindRankingUpdated:
			var v RankingUpdated
			err = json.Unmarshal(raw, &v)
			ev = v
		default:
			return nil, fmt.Errorf("decoding event: unknown kind %q", kind)
		}
		if err != nil {
			return nil, fmt.Errorf("decoding %s event: %w", kind, err)
		}
		return ev, nil
	}
	return nil, fmt.Errorf("decoding event: empty payload")
}
