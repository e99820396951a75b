// Package events provides the typed publish/subscribe channel through which
// the server core announces request, response and error events.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tjfontaine/bare-gateway/internal/core/domain"
)

// Listener observes lifecycle events. Implementations must not block for long:
// listeners run synchronously on the request path.
type Listener interface {
	OnRequest(ctx context.Context, ev *domain.RequestEvent)
	OnResponse(ctx context.Context, ev *domain.ResponseEvent)
	OnError(ctx context.Context, ev *domain.ErrorEvent)
}

// Funcs adapts optional callbacks to Listener. Nil fields are skipped.
type Funcs struct {
	Request  func(ctx context.Context, ev *domain.RequestEvent)
	Response func(ctx context.Context, ev *domain.ResponseEvent)
	Error    func(ctx context.Context, ev *domain.ErrorEvent)
}

func (f Funcs) OnRequest(ctx context.Context, ev *domain.RequestEvent) {
	if f.Request != nil {
		f.Request(ctx, ev)
	}
}

func (f Funcs) OnResponse(ctx context.Context, ev *domain.ResponseEvent) {
	if f.Response != nil {
		f.Response(ctx, ev)
	}
}

func (f Funcs) OnError(ctx context.Context, ev *domain.ErrorEvent) {
	if f.Error != nil {
		f.Error(ctx, ev)
	}
}

// Channel fans events out to listeners in registration order.
// A panicking listener is logged and skipped; it never affects the emitter
// or the remaining listeners.
type Channel struct {
	mu        sync.RWMutex
	listeners []subscription
	nextID    int
	logger    *slog.Logger
}

type subscription struct {
	id int
	l  Listener
}

// NewChannel creates an empty channel. A nil logger means slog.Default().
func NewChannel(logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{logger: logger}
}

// Subscribe adds l and returns a function that removes it.
func (c *Channel) Subscribe(l Listener) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, subscription{id: id, l: l})

	var once sync.Once
	return func() {
		once.Do(func() { c.remove(id) })
	}
}

// Len returns the number of subscribed listeners.
func (c *Channel) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.listeners)
}

func (c *Channel) EmitRequest(ctx context.Context, ev *domain.RequestEvent) {
	for _, l := range c.snapshot() {
		c.safely(domain.EventRequest, func() { l.OnRequest(ctx, ev) })
	}
}

func (c *Channel) EmitResponse(ctx context.Context, ev *domain.ResponseEvent) {
	for _, l := range c.snapshot() {
		c.safely(domain.EventResponse, func() { l.OnResponse(ctx, ev) })
	}
}

func (c *Channel) EmitError(ctx context.Context, ev *domain.ErrorEvent) {
	for _, l := range c.snapshot() {
		c.safely(domain.EventError, func() { l.OnError(ctx, ev) })
	}
}

func (c *Channel) snapshot() []Listener {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Listener, len(c.listeners))
	for i, s := range c.listeners {
		out[i] = s.l
	}
	return out
}

func (c *Channel) remove(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, s := range c.listeners {
		if s.id == id {
			c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
			return
		}
	}
}

func (c *Channel) safely(kind domain.EventType, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("event listener panicked",
				slog.String("event", string(kind)),
				slog.String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}
