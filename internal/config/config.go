package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8000"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	RoundDuration     time.Duration `env:"ROUND_DURATION" envDefault:"60s"`
	TickInterval      time.Duration `env:"TICK_INTERVAL" envDefault:"500ms"`
	QuestionsPerRound int           `env:"QUESTIONS_PER_ROUND" envDefault:"10"`
	SubscriberBuffer  int           `env:"SUBSCRIBER_BUFFER" envDefault:"64"`

	// KanjiCSV overrides the embedded dataset when set.
	KanjiCSV string `env:"KANJI_CSV"`

	RankingBackend string `env:"RANKING_BACKEND" envDefault:"file"`
	RankingFile    string `env:"RANKING_FILE" envDefault:"ranking.json"`
	RedisURL       string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	DatabaseURL    string `env:"DATABASE_URL"`

	AnswerRateLimit float64 `env:"ANSWER_RATE_LIMIT" envDefault:"10"`
	AnswerRateBurst int     `env:"ANSWER_RATE_BURST" envDefault:"20"`

	LogLevel  zerolog.Level `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool          `env:"LOG_PRETTY" envDefault:"false"`
}

func (c Config) Addr() string {
	return ":" + c.Port
}

func (c Config) Validate() error {
	if c.RoundDuration < 0 {
		return fmt.Errorf("ROUND_DURATION must not be negative, got %s", c.RoundDuration)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive, got %s", c.TickInterval)
	}
	if c.QuestionsPerRound <= 0 {
		return fmt.Errorf("QUESTIONS_PER_ROUND must be positive, got %d", c.QuestionsPerRound)
	}
	if c.SubscriberBuffer <= 0 {
		return fmt.Errorf("SUBSCRIBER_BUFFER must be positive, got %d", c.SubscriberBuffer)
	}
	if c.AnswerRateLimit <= 0 || c.AnswerRateBurst <= 0 {
		return fmt.Errorf("ANSWER_RATE_LIMIT and ANSWER_RATE_BURST must be positive")
	}
	switch c.RankingBackend {
	case BackendFile, BackendRedis:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres ranking backend")
		}
	default:
		return fmt.Errorf("unknown RANKING_BACKEND %q", c.RankingBackend)
	}
	return nil
}

// Load reads the process environment. A .env file, if any, should be loaded
// before calling it.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
