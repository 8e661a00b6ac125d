package ranking

import (
	"context"
	"sync"
	"time"

	"osakana/internal/metrics"

	"github.com/rs/zerolog/log"
)

const saveTimeout = 5 * time.Second

// Persister mirrors the ranking to a Store from a single background writer.
// Only the most recent pending list is kept, so an older snapshot can never
// overwrite a newer one.
type Persister struct {
	store    Store
	recorder *metrics.Recorder

	mu      sync.Mutex
	pending chan []Entry
}

func NewPersister(store Store, recorder *metrics.Recorder) *Persister {
	return &Persister{
		store:    store,
		recorder: recorder,
		pending:  make(chan []Entry, 1),
	}
}

// Submit queues a copy of entries for saving and never blocks.
func (p *Persister) Submit(entries []Entry) {
	snapshot := clone(entries)

	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.pending:
		log.Debug().Msg("replacing pending ranking snapshot")
	default:
	}
	p.pending <- snapshot
}

// Load reads the persisted list, falling back to an empty ranking.
func (p *Persister) Load(ctx context.Context) []Entry {
	entries, err := p.store.Load(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load ranking, starting empty")
		return []Entry{}
	}
	return entries
}

// Run saves submitted snapshots until ctx is cancelled, then flushes whatever
// is still pending.
func (p *Persister) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			select {
			case entries := <-p.pending:
				p.save(context.Background(), entries)
			default:
			}
			return nil
		case entries := <-p.pending:
			p.save(ctx, entries)
		}
	}
}

func (p *Persister) save(ctx context.Context, entries []Entry) {
	ctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()

	if err := p.store.Save(ctx, entries); err != nil {
		p.recorder.RankingPersistFailed()
		log.Error().Err(err).Int("entries", len(entries)).Msg("failed to persist ranking")
		return
	}
	log.Debug().Int("entries", len(entries)).Msg("ranking persisted")
}
