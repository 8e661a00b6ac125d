package ranking

import "context"

// Entry is the snapshot of a participant taken when they registered.
type Entry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Combo    uint32 `json:"combo"`
}

// Store persists the whole ranking list. Save rewrites it in full.
type Store interface {
	Save(ctx context.Context, entries []Entry) error
	Load(ctx context.Context) ([]Entry, error)
}

func clone(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
