package gamedata

import (
	"fmt"

	"osakana/internal/events"
	"osakana/internal/ranking"

	"github.com/rs/zerolog/log"
)

// RegisterForRanking names the participant and appends their current combo to
// the ranking. Registering again adds another entry.
func (g *Game) RegisterForRanking(participantID, name string) (ranking.Entry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, err := g.participants.SetName(participantID, name)
	if err != nil {
		return ranking.Entry{}, fmt.Errorf("participant %q: %w", participantID, notFound(err))
	}

	entry := ranking.Entry{ID: p.ID, Username: p.Name, Combo: p.Combo}
	g.ranking = append(g.ranking, entry)
	log.Info().
		Str("user_id", p.ID).
		Str("username", p.Name).
		Uint32("combo", p.Combo).
		Int("entries", len(g.ranking)).
		Msg("ranking entry registered")

	g.publish(events.RankingUpdated{Ranking: g.rankingLocked()})
	if g.sink != nil {
		g.sink.Submit(g.rankingLocked())
	}
	return entry, nil
}

func (g *Game) CurrentRanking() []ranking.Entry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rankingLocked()
}

// RestoreRanking replaces the in-memory ranking, typically with entries loaded
// at startup. It publishes nothing.
func (g *Game) RestoreRanking(entries []ranking.Entry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ranking = append([]ranking.Entry{}, entries...)
	log.Info().Int("entries", len(g.ranking)).Msg("ranking restored")
}

func (g *Game) rankingLocked() []ranking.Entry {
	out := make([]ranking.Entry, len(g.ranking))
	copy(out, g.ranking)
	return out
}
