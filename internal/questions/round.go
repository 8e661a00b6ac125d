package questions

import (
	"errors"
	"time"

	"osakana/internal/kanji"
)

const DefaultRoundSize = 10

var ErrQuestionNotFound = errors.New("question not found")

// Sampler supplies question material for a new round.
type Sampler interface {
	Sample(n int) []kanji.Kanji
}

type Question struct {
	Index  int         `json:"index"`
	Kanji  kanji.Kanji `json:"kanji"`
	Solved bool        `json:"is_solved"`
}

// Round is the current question set and its countdown. It has no lock of its
// own: callers serialize access through the game lock.
type Round struct {
	current   []Question
	total     time.Duration
	remaining time.Duration
	size      int
}

func New(total time.Duration, size int) *Round {
	if total < 0 {
		total = 0
	}
	if size <= 0 {
		size = DefaultRoundSize
	}
	return &Round{
		current:   []Question{},
		total:     total,
		remaining: total,
		size:      size,
	}
}

// Reset replaces the question set with a fresh sample and restores the full
// duration. It returns how many questions the round got, which is less than
// Size when the sampler runs short.
func (r *Round) Reset(s Sampler) int {
	picked := s.Sample(r.size)
	current := make([]Question, len(picked))
	for i, k := range picked {
		current[i] = Question{Index: i, Kanji: k}
	}
	r.current = current
	r.remaining = r.total
	return len(current)
}

func (r *Round) Size() int {
	return r.size
}

func (r *Round) Len() int {
	return len(r.current)
}

func (r *Round) Get(index int) (Question, error) {
	if index < 0 || index >= len(r.current) {
		return Question{}, ErrQuestionNotFound
	}
	return r.current[index], nil
}

// Judge reports whether unicode is the identifier of the kanji at index.
func (r *Round) Judge(index int, unicode string) (bool, error) {
	q, err := r.Get(index)
	if err != nil {
		return false, err
	}
	return q.Kanji.Unicode == unicode, nil
}

func (r *Round) MarkSolved(index int) error {
	if index < 0 || index >= len(r.current) {
		return ErrQuestionNotFound
	}
	r.current[index].Solved = true
	return nil
}

func (r *Round) DecreaseRemaining(d time.Duration) {
	if d <= 0 {
		return
	}
	if d >= r.remaining {
		r.remaining = 0
		return
	}
	r.remaining -= d
}

func (r *Round) IsExpired() bool {
	return r.remaining <= 0
}

func (r *Round) ResetTime() {
	r.remaining = r.total
}

// SetTotalDuration changes the length used by later resets. Remaining time is
// only touched when it would exceed the new total.
func (r *Round) SetTotalDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	r.total = d
	if r.remaining > d {
		r.remaining = d
	}
}

func (r *Round) Total() time.Duration {
	return r.total
}

func (r *Round) Remaining() time.Duration {
	return r.remaining
}

// PercentageRemaining is in [0, 100]; a zero length round reports 0.
func (r *Round) PercentageRemaining() float64 {
	if r.total <= 0 {
		return 0
	}
	p := r.remaining.Seconds() / r.total.Seconds() * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

func (r *Round) Questions() []Question {
	out := make([]Question, len(r.current))
	copy(out, r.current)
	return out
}

func (r *Round) Snapshot() Snapshot {
	return Snapshot{
		Current:       r.Questions(),
		TotalTime:     Duration(r.total),
		RemainingTime: Duration(r.remaining),
	}
}
