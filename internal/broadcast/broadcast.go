package broadcast

import (
	"errors"
	"sync"

	"osakana/internal/events"
	"osakana/internal/metrics"

	"github.com/rs/zerolog/log"
)

const DefaultBufferSize = 64

var ErrClosed = errors.New("broadcaster closed")

// Subscription is one consumer's cursor into the event stream. C is closed
// when the subscription is removed or the broadcaster shuts down.
type Subscription struct {
	C  <-chan events.Event
	ch chan events.Event
}

// Broadcaster fans events out to every attached subscriber. Publish never
// blocks: a subscriber whose buffer is full loses its oldest buffered event.
type Broadcaster struct {
	mu       sync.Mutex
	clients  map[*Subscription]struct{}
	buffer   int
	closed   bool
	recorder *metrics.Recorder
}

func NewBroadcaster(buffer int, recorder *metrics.Recorder) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	return &Broadcaster{
		clients:  make(map[*Subscription]struct{}),
		buffer:   buffer,
		recorder: recorder,
	}
}

// Subscribe attaches a new consumer. Only events published after Subscribe
// returns are delivered to it.
func (b *Broadcaster) Subscribe() (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	ch := make(chan events.Event, b.buffer)
	sub := &Subscription{C: ch, ch: ch}
	b.clients[sub] = struct{}{}
	b.recorder.SetSubscribers(len(b.clients))
	return sub, nil
}

func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[sub]; !ok {
		return
	}
	delete(b.clients, sub)
	close(sub.ch)
	b.recorder.SetSubscribers(len(b.clients))
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Publish delivers ev to every subscriber in publish order. Failures are
// logged, never returned.
func (b *Broadcaster) Publish(ev events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		log.Warn().Err(ErrClosed).Str("kind", string(ev.Kind())).Msg("dropping event")
		return
	}
	b.recorder.EventPublished(string(ev.Kind()))
	if len(b.clients) == 0 {
		log.Debug().Str("kind", string(ev.Kind())).Msg("no subscribers attached")
		return
	}

	for sub := range b.clients {
		select {
		case sub.ch <- ev:
			continue
		default:
		}

		// Full buffer: discard the oldest event to make room.
		select {
		case <-sub.ch:
			b.recorder.EventDropped()
			log.Debug().Str("kind", string(ev.Kind())).Msg("subscriber lagging, dropped oldest event")
		default:
		}
		select {
		case sub.ch <- ev:
		default:
			b.recorder.EventDropped()
		}
	}
}

// Close detaches every subscriber and rejects further publishes.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.clients {
		close(sub.ch)
		delete(b.clients, sub)
	}
	b.recorder.SetSubscribers(0)
}
