// Package backend provides the backend registry, a base type for backend
// implementations and the factory table used to build backends from config.
package backend

import (
	"context"

	"github.com/tjfontaine/bare-gateway/internal/core/ports"
)

// Base supplies a name and no-op lifecycle hooks. Embed it in concrete
// backends that have nothing to start or stop.
type Base struct {
	name string
}

// NewBase creates a Base with the given name, which may be empty.
func NewBase(name string) Base {
	return Base{name: name}
}

func (b Base) Name() string { return b.name }

func (b Base) Start(ctx context.Context) error { return nil }

func (b Base) Stop(ctx context.Context) error { return nil }

// Func adapts a handler function to ports.Backend.
type Func struct {
	Base
	handle func(ctx context.Context, req ports.BackendRequest) (any, error)
}

// NewFunc creates a backend that delegates every request to fn.
func NewFunc(name string, fn func(ctx context.Context, req ports.BackendRequest) (any, error)) *Func {
	return &Func{Base: NewBase(name), handle: fn}
}

func (f *Func) HandleRequest(ctx context.Context, req ports.BackendRequest) (any, error) {
	return f.handle(ctx, req)
}
