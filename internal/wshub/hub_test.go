package wshub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"osakana/internal/broadcast"
	"osakana/internal/events"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	written  []string
	writeErr error
	closed   websocket.StatusCode
	notify   chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{notify: make(chan struct{}, 64)}
}

func (c *fakeConn) Write(_ context.Context, _ websocket.MessageType, p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written = append(c.written, string(p))
	c.notify <- struct{}{}
	return nil
}

func (c *fakeConn) Close(code websocket.StatusCode, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = code
	return nil
}

func (c *fakeConn) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.written...)
}

func (c *fakeConn) waitFor(t *testing.T, n int) {
	t.Helper()
	for range n {
		select {
		case <-c.notify:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %d writes, got %d", n, len(c.messages()))
		}
	}
}

func TestWritePump_GreetingThenEvents(t *testing.T) {
	b := broadcast.NewBroadcaster(8, nil)
	sub, err := b.Subscribe()
	require.NoError(t, err)

	conn := newFakeConn()
	c := NewClient(conn, sub, events.RemainingTimePercentage{Percentage: 100})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.WritePump(ctx) }()

	b.Publish(events.AnswerResult{Index: 3, IsCorrect: true})
	conn.waitFor(t, 2)

	assert.Equal(t, []string{
		`{"RemainingTimePercentage":{"percentage":100}}`,
		`{"Answer":{"index":3,"is_correct":true}}`,
	}, conn.messages())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWritePump_StopsWhenSubscriptionCloses(t *testing.T) {
	b := broadcast.NewBroadcaster(8, nil)
	sub, _ := b.Subscribe()
	c := NewClient(newFakeConn(), sub)

	done := make(chan error, 1)
	go func() { done <- c.WritePump(context.Background()) }()

	b.Unsubscribe(sub)
	select {
	case err := <-done:
		assert.ErrorIs(t, err, broadcast.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("WritePump did not return")
	}
}

func TestWritePump_WriteError(t *testing.T) {
	b := broadcast.NewBroadcaster(8, nil)
	sub, _ := b.Subscribe()
	conn := newFakeConn()
	conn.writeErr = errors.New("broken pipe")
	c := NewClient(conn, sub)

	done := make(chan error, 1)
	go func() { done <- c.WritePump(context.Background()) }()

	b.Publish(events.AnswerResult{Index: 0})
	select {
	case err := <-done:
		assert.EqualError(t, err, "broken pipe")
	case <-time.After(time.Second):
		t.Fatal("WritePump did not return")
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := NewHub()
	b := broadcast.NewBroadcaster(1, nil)
	sub1, _ := b.Subscribe()
	sub2, _ := b.Subscribe()
	c1 := NewClient(newFakeConn(), sub1)
	c2 := NewClient(newFakeConn(), sub2)
	require.NotEqual(t, c1.ID, c2.ID)

	h.Register(c1)
	h.Register(c2)
	assert.Equal(t, 2, h.Count())

	h.Unregister(c1.ID)
	h.Unregister(c1.ID)
	assert.Equal(t, 1, h.Count())
}

func TestHub_CloseAll(t *testing.T) {
	h := NewHub()
	b := broadcast.NewBroadcaster(1, nil)
	sub, _ := b.Subscribe()
	conn := newFakeConn()
	h.Register(NewClient(conn, sub))

	h.CloseAll("server shutting down")

	assert.Equal(t, 0, h.Count())
	assert.Equal(t, websocket.StatusGoingAway, conn.closed)
}
