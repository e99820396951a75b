package ports

import (
	"context"

	"github.com/tjfontaine/bare-gateway/internal/core/domain"
)

// BackendRequest is what a backend receives for one dispatched request.
// The same backend instance may be reached through several aliases, so
// Alias tells it which one the request was resolved to.
type BackendRequest struct {
	Alias   string
	Request *domain.Request
}

// Backend is a pluggable unit that handles one request and returns one response.
// Start and Stop must be idempotent.
type Backend interface {
	// Name returns the backend's own alias, or "" when it has none.
	Name() string
	HandleRequest(ctx context.Context, req BackendRequest) (domain.Response, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// BackendLookup resolves a registered alias to its backend.
type BackendLookup interface {
	GetBackend(alias string) (Backend, bool)
}
