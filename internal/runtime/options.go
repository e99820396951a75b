package runtime

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/tjfontaine/bare-gateway/internal/adapters/config/file"
	"github.com/tjfontaine/bare-gateway/internal/adapters/events/metrics"
	"github.com/tjfontaine/bare-gateway/internal/core/ports"
	"github.com/tjfontaine/bare-gateway/internal/pkg/config"
	"github.com/tjfontaine/bare-gateway/internal/storage/memory"
)

// Option is a functional option for configuring a Gateway.
type Option func(*Gateway) error

// WithFileConfig uses file-based configuration with hot-reload (default).
// Backends added to the watched file are registered without a restart.
func WithFileConfig(path string) Option {
	return func(g *Gateway) error {
		provider, err := file.NewProvider(path, file.WithLogger(g.logger))
		if err != nil {
			return fmt.Errorf("create file config provider: %w", err)
		}
		g.config = provider
		return nil
	}
}

// WithConfig uses a fixed configuration. Nothing is watched.
func WithConfig(cfg *config.Config) Option {
	return func(g *Gateway) error {
		if cfg == nil {
			return fmt.Errorf("config cannot be nil")
		}
		g.config = staticConfig{cfg: cfg}
		return nil
	}
}

// WithConfigProvider sets a custom config provider.
// For advanced use cases where you need full control over config loading.
func WithConfigProvider(provider ports.ConfigProvider) Option {
	return func(g *Gateway) error {
		g.config = provider
		return nil
	}
}

// WithSQLite records events in the SQLite database at path, overriding the
// storage section of the configuration.
func WithSQLite(path string) Option {
	return func(g *Gateway) error {
		store, err := openStore(config.StorageConfig{Type: StorageSQLite, SQLite: config.SQLiteConfig{Path: path}})
		if err != nil {
			return fmt.Errorf("create sqlite storage: %w", err)
		}
		g.store = store
		g.ownsStore = true
		return nil
	}
}

// WithMemoryStorage records events in memory.
func WithMemoryStorage() Option {
	return func(g *Gateway) error {
		g.store = memory.New()
		g.ownsStore = true
		return nil
	}
}

// WithEventStore sets a custom event store. The caller keeps ownership.
func WithEventStore(store ports.EventStore) Option {
	return func(g *Gateway) error {
		g.store = store
		g.ownsStore = false
		return nil
	}
}

// WithEventPublisher sets a custom event publisher.
func WithEventPublisher(publisher ports.EventPublisher) Option {
	return func(g *Gateway) error {
		g.events = publisher
		return nil
	}
}

// WithMetrics sets the Prometheus collector fed by lifecycle events.
func WithMetrics(c *metrics.Collector) Option {
	return func(g *Gateway) error {
		g.metrics = c
		return nil
	}
}

// WithBackend registers b under aliases in addition to configured backends.
func WithBackend(b ports.Backend, aliases ...string) Option {
	return func(g *Gateway) error {
		if b == nil {
			return fmt.Errorf("backend cannot be nil")
		}
		g.embedded = append(g.embedded, embeddedBackend{backend: b, aliases: aliases})
		return nil
	}
}

// WithListener serves on ln instead of listening on the configured address.
func WithListener(ln net.Listener) Option {
	return func(g *Gateway) error {
		g.listener = ln
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		if logger != nil {
			g.logger = logger
		}
		return nil
	}
}
