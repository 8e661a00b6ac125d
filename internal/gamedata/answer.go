package gamedata

import (
	"fmt"

	"osakana/internal/events"
	"osakana/internal/players"

	"github.com/rs/zerolog/log"
)

type AnswerResult struct {
	IsCorrect bool   `json:"is_correct"`
	Combo     uint32 `json:"combo"`
}

// SubmitAnswer judges a guess for the question at index. Both the question and
// the participant are resolved before anything changes, so an unknown id
// leaves the round untouched.
func (g *Game) SubmitAnswer(participantID string, index int, unicode string) (AnswerResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	correct, err := g.round.Judge(index, unicode)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("question %d: %w", index, notFound(err))
	}
	if !g.participants.Exists(participantID) {
		return AnswerResult{}, fmt.Errorf("participant %q: %w", participantID, notFound(players.ErrParticipantNotFound))
	}

	var combo uint32
	if correct {
		if err := g.round.MarkSolved(index); err != nil {
			return AnswerResult{}, fmt.Errorf("question %d: %w", index, notFound(err))
		}
		combo, err = g.participants.IncrementCombo(participantID)
	} else {
		err = g.participants.ResetCombo(participantID)
	}
	if err != nil {
		return AnswerResult{}, fmt.Errorf("participant %q: %w", participantID, notFound(err))
	}

	g.recorder.AnswerJudged(correct)
	log.Debug().
		Str("user_id", participantID).
		Int("index", index).
		Bool("correct", correct).
		Uint32("combo", combo).
		Msg("answer judged")
	g.publish(events.AnswerResult{Index: index, IsCorrect: correct})

	return AnswerResult{IsCorrect: correct, Combo: combo}, nil
}
