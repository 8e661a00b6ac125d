package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"osakana/internal/broadcast"
	"osakana/internal/config"
	"osakana/internal/gamedata"
	"osakana/internal/metrics"
	"osakana/internal/wshub"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Game        *gamedata.Game
	Broadcaster *broadcast.Broadcaster
	Hub         *wshub.Hub
	Recorder    *metrics.Recorder
	Checks      map[string]HealthCheck
}

type Server struct {
	srv *http.Server
	hub *wshub.Hub
}

func New(cfg *config.Config, deps Deps) *Server {
	if deps.Hub == nil {
		deps.Hub = wshub.NewHub()
	}
	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           NewHandler(cfg, deps),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		hub: deps.Hub,
	}
}

// NewHandler builds the full middleware and route stack.
func NewHandler(cfg *config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	addRoutes(r, cfg, deps)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{cfg.FrontendURL},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("server listening")

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown closes WebSocket screens first since Shutdown does not wait for
// hijacked connections.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	s.hub.CloseAll("server shutting down")
	return s.srv.Shutdown(ctx)
}
