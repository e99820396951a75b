package ports

import (
	"context"

	"github.com/tjfontaine/bare-gateway/internal/core/domain"
	"github.com/tjfontaine/bare-gateway/internal/pkg/config"
)

// ConfigProvider loads and manages configuration.
// Watch must return once the subscription is established; onChange is then
// called from the provider's own goroutine.
// Implementations: file-based (default).
type ConfigProvider interface {
	Load(ctx context.Context) (*config.Config, error)
	Watch(ctx context.Context, onChange func(*config.Config)) error
	Close() error
}

// EventPublisher persists or forwards lifecycle events.
// Implementations: direct storage (default).
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.EventRecord) error
	Close() error
}
