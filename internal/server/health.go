package server

import (
	"context"
	"net/http"
	"time"

	"osakana/internal/broadcast"
	"osakana/internal/wshub"

	"github.com/rs/zerolog/log"
)

func handleHealth(b *broadcast.Broadcaster, hub *wshub.Hub, checks map[string]HealthCheck) http.HandlerFunc {
	type response struct {
		Status      string            `json:"status"`
		Subscribers int               `json:"subscribers"`
		Screens     int               `json:"screens"`
		Checks      map[string]string `json:"checks,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		resp := response{
			Status:      "ok",
			Subscribers: b.SubscriberCount(),
			Screens:     hub.Count(),
		}
		status := http.StatusOK

		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				log.Error().Err(err).Str("name", name).Msg("health check failed")
				resp.Checks[name] = "error"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}

		writeJSON(w, status, resp)
	}
}
