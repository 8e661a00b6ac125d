package server

import (
	"osakana/internal/config"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

func addRoutes(r chi.Router, cfg *config.Config, deps Deps) {
	limiter := NewIPRateLimiter(rate.Limit(cfg.AnswerRateLimit), cfg.AnswerRateBurst)

	r.Get("/healthz", handleHealth(deps.Broadcaster, deps.Hub, deps.Checks))
	if deps.Recorder != nil {
		r.Handle("/metrics", deps.Recorder.Handler())
	}

	r.Post("/user", handleCreateUser(deps.Game))
	r.With(limiter.Middleware).Post("/answer", handleAnswer(deps.Game))

	r.Get("/questions/current", handleCurrentQuestions(deps.Game))
	r.Get("/current_questions", handleCurrentQuestions(deps.Game))
	r.Post("/questions/remaining_time", handleRemainingTime(deps.Game))

	r.Get("/ranking", handleGetRanking(deps.Game))
	r.Post("/ranking", handleRegisterRanking(deps.Game))

	r.Get("/sse", handleSSE(deps.Broadcaster))
	r.Get("/ws", handleWebSocket(deps.Game, deps.Broadcaster, deps.Hub, cfg.FrontendURL))
}
