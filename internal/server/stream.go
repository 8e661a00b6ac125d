package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"osakana/internal/broadcast"
	"osakana/internal/events"
	"osakana/internal/gamedata"
	"osakana/internal/wshub"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

const sseKeepAlive = 15 * time.Second

func handleSSE(b *broadcast.Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		sub, err := b.Subscribe()
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "event stream unavailable")
			return
		}
		defer b.Unsubscribe(sub)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ping := time.NewTicker(sseKeepAlive)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				data, err := events.Encode(ev)
				if err != nil {
					log.Error().Err(err).Msg("encoding event for SSE")
					continue
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
					return
				}
				flusher.Flush()
			case <-ping.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func handleWebSocket(game *gamedata.Game, b *broadcast.Broadcaster, hub *wshub.Hub, frontendURL string) http.HandlerFunc {
	var origins []string
	if u, err := url.Parse(frontendURL); err == nil && u.Host != "" {
		origins = append(origins, u.Host)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: origins,
		})
		if err != nil {
			log.Warn().Err(err).Msg("websocket accept failed")
			return
		}
		defer conn.CloseNow()

		sub, err := b.Subscribe()
		if err != nil {
			conn.Close(websocket.StatusTryAgainLater, "event stream unavailable")
			return
		}
		defer b.Unsubscribe(sub)

		// subscribed before the snapshot is taken so nothing falls in between
		client := wshub.NewClient(conn, sub, events.RoundReset{Questions: game.RoundSnapshot()})
		hub.Register(client)
		defer hub.Unregister(client.ID)

		ctx := conn.CloseRead(r.Context())
		err = client.WritePump(ctx)
		switch {
		case err == nil, errors.Is(err, context.Canceled), errors.Is(err, broadcast.ErrClosed):
			conn.Close(websocket.StatusNormalClosure, "")
		default:
			log.Debug().Err(err).Str("client_id", client.ID).Msg("websocket write failed")
		}
	}
}
