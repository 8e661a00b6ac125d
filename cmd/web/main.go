package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"osakana/internal/broadcast"
	"osakana/internal/config"
	"osakana/internal/db"
	"osakana/internal/gamedata"
	"osakana/internal/kanji"
	"osakana/internal/metrics"
	"osakana/internal/ranking"
	"osakana/internal/server"
	"osakana/internal/wshub"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	setupLogging(cfg)

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	store, checks, closeStore, err := openRankingStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	recorder := metrics.New()
	persister := ranking.NewPersister(store, recorder)
	bus := broadcast.NewBroadcaster(cfg.SubscriberBuffer, recorder)
	game := gamedata.NewGame(catalog, bus, persister, recorder, gamedata.Config{
		RoundDuration:     cfg.RoundDuration,
		QuestionsPerRound: cfg.QuestionsPerRound,
		TickInterval:      cfg.TickInterval,
	})
	game.RestoreRanking(persister.Load(ctx))

	srv := server.New(cfg, server.Deps{
		Game:        game,
		Broadcaster: bus,
		Hub:         wshub.NewHub(),
		Recorder:    recorder,
		Checks:      checks,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	g.Go(func() error {
		return game.RunClock(gctx, clockwork.NewRealClock(), cfg.TickInterval)
	})

	g.Go(func() error {
		return persister.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		// ends SSE streams, which Shutdown would otherwise wait on
		bus.Close()
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func setupLogging(cfg *config.Config) {
	zerolog.SetGlobalLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func loadCatalog(cfg *config.Config) (*kanji.Catalog, error) {
	var (
		catalog *kanji.Catalog
		errs    []error
	)
	if cfg.KanjiCSV != "" {
		catalog, errs = kanji.LoadFile(cfg.KanjiCSV)
	} else {
		catalog, errs = kanji.LoadDefault()
	}
	for _, err := range errs {
		log.Warn().Err(err).Msg("skipping kanji record")
	}
	if catalog.Len() == 0 {
		return nil, fmt.Errorf("kanji catalog is empty")
	}
	if catalog.Len() < cfg.QuestionsPerRound {
		log.Warn().Int("kanji", catalog.Len()).Int("round_size", cfg.QuestionsPerRound).Msg("catalog smaller than round size")
	}
	log.Info().Int("kanji", catalog.Len()).Msg("kanji catalog loaded")
	return catalog, nil
}

func openRankingStore(ctx context.Context, cfg *config.Config) (ranking.Store, map[string]server.HealthCheck, func(), error) {
	switch cfg.RankingBackend {
	case config.BackendRedis:
		client, err := ranking.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening redis: %w", err)
		}
		store := ranking.NewRedisStore(client, ranking.DefaultRedisKey)
		log.Info().Msg("ranking stored in redis")
		return store, map[string]server.HealthCheck{"redis": store.Ping}, func() { client.Close() }, nil

	case config.BackendPostgres:
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, nil, nil, fmt.Errorf("migrating database: %w", err)
		}
		log.Info().Msg("ranking stored in postgres")
		return db.NewRankingStore(database), map[string]server.HealthCheck{"postgres": database.Ping}, func() { database.Close() }, nil

	default:
		log.Info().Str("path", cfg.RankingFile).Msg("ranking stored in file")
		return ranking.NewFileStore(cfg.RankingFile), nil, func() {}, nil
	}
}
