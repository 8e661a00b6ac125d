package gamedata

import (
	"context"
	"fmt"
	"time"

	"osakana/internal/events"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Tick advances the countdown by interval. An expired round is replaced and
// announced before the new percentage goes out.
func (g *Game) Tick(interval time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.round.DecreaseRemaining(interval)
	if g.round.IsExpired() {
		g.resetRoundLocked()
		g.recorder.RoundReset()
		log.Info().Int("questions", g.round.Len()).Dur("total", g.round.Total()).Msg("round expired, new questions dealt")
		g.publish(events.RoundReset{Questions: g.round.Snapshot()})
	}
	g.publish(events.RemainingTimePercentage{Percentage: g.round.PercentageRemaining()})
}

// RunClock ticks the game every interval on clock until ctx is cancelled.
func (g *Game) RunClock(ctx context.Context, clock clockwork.Clock, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", interval)
	}

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	log.Info().Dur("interval", interval).Msg("round clock started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("round clock stopped")
			return nil
		case <-ticker.Chan():
			if ctx.Err() != nil {
				log.Info().Msg("round clock stopped")
				return nil
			}
			g.Tick(interval)
		}
	}
}
