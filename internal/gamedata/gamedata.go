package gamedata

import (
	"errors"
	"sync"
	"time"

	"osakana/internal/events"
	"osakana/internal/metrics"
	"osakana/internal/players"
	"osakana/internal/questions"
	"osakana/internal/ranking"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is wrapped by every error caused by an unknown question index or
// participant id.
var ErrNotFound = errors.New("not found")

type Config struct {
	RoundDuration     time.Duration
	QuestionsPerRound int
	TickInterval      time.Duration
}

func DefaultConfig() Config {
	return Config{
		RoundDuration:     time.Minute,
		QuestionsPerRound: questions.DefaultRoundSize,
		TickInterval:      500 * time.Millisecond,
	}
}

// Publisher receives every state change after it has been applied.
type Publisher interface {
	Publish(ev events.Event)
}

// RankingSink accepts the full ranking list for best-effort persistence.
// Submit must not block.
type RankingSink interface {
	Submit(entries []ranking.Entry)
}

// Game is the single aggregate all handlers and the round clock share. Every
// read and write of the round, the participants and the ranking happens under
// mu; events are published before mu is released so subscribers observe them
// in mutation order.
type Game struct {
	mu           sync.Mutex
	round        *questions.Round
	participants *players.Registry
	ranking      []ranking.Entry

	catalog   questions.Sampler
	publisher Publisher
	sink      RankingSink
	recorder  *metrics.Recorder
	Config    Config
}

// NewGame deals the first round immediately. publisher, sink and recorder may
// be nil.
func NewGame(catalog questions.Sampler, publisher Publisher, sink RankingSink, recorder *metrics.Recorder, cfg Config) *Game {
	g := &Game{
		round:        questions.New(cfg.RoundDuration, cfg.QuestionsPerRound),
		participants: players.NewRegistry(),
		ranking:      []ranking.Entry{},
		catalog:      catalog,
		publisher:    publisher,
		sink:         sink,
		recorder:     recorder,
		Config:       cfg,
	}
	g.mu.Lock()
	g.resetRoundLocked()
	g.mu.Unlock()
	return g
}

func (g *Game) CreateParticipant() players.Participant {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.participants.Create()
	log.Info().Str("user_id", p.ID).Int("participants", g.participants.Count()).Msg("participant created")
	return p
}

func (g *Game) Participant(id string) (players.Participant, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.participants.Get(id)
	if err != nil {
		return players.Participant{}, notFound(err)
	}
	return p, nil
}

func (g *Game) CurrentQuestions() []questions.Question {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.round.Questions()
}

func (g *Game) RoundSnapshot() questions.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.round.Snapshot()
}

func (g *Game) PercentageRemaining() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.round.PercentageRemaining()
}

// SetRoundDuration changes the round length and restarts the countdown of the
// current round from the new total.
func (g *Game) SetRoundDuration(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.round.SetTotalDuration(d)
	g.round.ResetTime()
	log.Info().Dur("total", g.round.Total()).Msg("round duration updated")
	g.publish(events.RemainingTimePercentage{Percentage: g.round.PercentageRemaining()})
}

func (g *Game) resetRoundLocked() {
	n := g.round.Reset(g.catalog)
	if n < g.round.Size() {
		log.Warn().Int("questions", n).Int("round_size", g.round.Size()).Msg("catalog too small, dealing a short round")
	}
}

func (g *Game) publish(ev events.Event) {
	if g.publisher == nil {
		return
	}
	g.publisher.Publish(ev)
}

func notFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return errors.Join(ErrNotFound, err)
}
