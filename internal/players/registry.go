package players

import (
	"errors"

	"github.com/google/uuid"
)

var ErrParticipantNotFound = errors.New("participant not found")

// Registry maps participant ids to their scoring state. It is not safe for
// concurrent use on its own; the game lock guards it.
type Registry struct {
	participants map[string]*Participant
}

func NewRegistry() *Registry {
	return &Registry{
		participants: make(map[string]*Participant),
	}
}

// Create allocates a fresh id and registers a participant with no name and a
// zero combo.
func (r *Registry) Create() Participant {
	id := uuid.NewString()
	for r.participants[id] != nil {
		id = uuid.NewString()
	}
	p := &Participant{ID: id}
	r.participants[id] = p
	return *p
}

func (r *Registry) Get(id string) (Participant, error) {
	p, ok := r.participants[id]
	if !ok {
		return Participant{}, ErrParticipantNotFound
	}
	return *p, nil
}

func (r *Registry) Exists(id string) bool {
	_, ok := r.participants[id]
	return ok
}

func (r *Registry) Count() int {
	return len(r.participants)
}

// IncrementCombo extends the streak by one and returns the new value.
func (r *Registry) IncrementCombo(id string) (uint32, error) {
	p, ok := r.participants[id]
	if !ok {
		return 0, ErrParticipantNotFound
	}
	p.Combo++
	return p.Combo, nil
}

func (r *Registry) ResetCombo(id string) error {
	p, ok := r.participants[id]
	if !ok {
		return ErrParticipantNotFound
	}
	p.Combo = 0
	return nil
}

func (r *Registry) SetName(id string, name string) (Participant, error) {
	p, ok := r.participants[id]
	if !ok {
		return Participant{}, ErrParticipantNotFound
	}
	p.Name = name
	return *p, nil
}
