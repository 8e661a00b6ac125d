package wshub

import (
	"context"
	"sync"
	"time"

	"osakana/internal/broadcast"
	"osakana/internal/events"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const writeTimeout = 5 * time.Second

// Conn is the subset of *websocket.Conn the hub writes through.
type Conn interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Client is one connected screen. It only receives; whatever it sends is
// ignored.
type Client struct {
	ID       string
	Conn     Conn
	sub      *broadcast.Subscription
	greeting []events.Event
}

// NewClient wraps conn around an existing subscription. greeting is written
// before anything read from the subscription.
func NewClient(conn Conn, sub *broadcast.Subscription, greeting ...events.Event) *Client {
	return &Client{
		ID:       uuid.NewString(),
		Conn:     conn,
		sub:      sub,
		greeting: greeting,
	}
}

// WritePump forwards events to the connection until ctx ends, the
// subscription closes or a write fails.
func (c *Client) WritePump(ctx context.Context) error {
	for _, ev := range c.greeting {
		if err := c.write(ctx, ev); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-c.sub.C:
			if !ok {
				return broadcast.ErrClosed
			}
			if err := c.write(ctx, ev); err != nil {
				return err
			}
		}
	}
}

func (c *Client) write(ctx context.Context, ev events.Event) error {
	msg, err := events.Encode(ev)
	if err != nil {
		// an unencodable event is skipped, the stream goes on
		log.Error().Err(err).Str("client_id", c.ID).Msg("encoding event for websocket")
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.Conn.Write(ctx, websocket.MessageText, msg)
}

// Hub tracks connected screens so they can be counted and closed together.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	log.Info().Str("client_id", c.ID).Int("clients", len(h.clients)).Msg("websocket client connected")
}

func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; !ok {
		return
	}
	delete(h.clients, id)
	log.Info().Str("client_id", id).Int("clients", len(h.clients)).Msg("websocket client disconnected")
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll sends a going-away close frame to every client.
func (h *Hub) CloseAll(reason string) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for id, c := range h.clients {
		clients = append(clients, c)
		delete(h.clients, id)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.Conn.Close(websocket.StatusGoingAway, reason); err != nil {
			log.Debug().Err(err).Str("client_id", c.ID).Msg("closing websocket client")
		}
	}
}
