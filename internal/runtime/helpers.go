package runtime

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tjfontaine/bare-gateway/internal/adapters/storage/sqlite"
	"github.com/tjfontaine/bare-gateway/internal/core/domain"
	"github.com/tjfontaine/bare-gateway/internal/core/ports"
	"github.com/tjfontaine/bare-gateway/internal/pkg/config"
	"github.com/tjfontaine/bare-gateway/internal/storage/memory"
)

// Storage types accepted in storage.type.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
	StorageNone   = "none"
)

// DefaultSQLitePath is used when storage.sqlite.path is empty.
const DefaultSQLitePath = "./data/events.db"

// openStore opens the configured event store. It returns nil for "none".
func openStore(cfg config.StorageConfig) (ports.EventStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case StorageSQLite:
		path := cfg.SQLite.Path
		if path == "" {
			path = DefaultSQLitePath
		}
		if path != ":memory:" && !strings.HasPrefix(path, "file:") {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("create storage directory: %w", err)
			}
		}
		store, err := sqlite.NewProvider(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StorageMemory, "":
		return memory.New(), nil
	case StorageNone:
		return nil, nil
	default:
		return nil, domain.NewConfigurationError("unknown storage type %q", cfg.Type)
	}
}

// staticConfig serves a fixed configuration.
type staticConfig struct {
	cfg *config.Config
}

func (s staticConfig) Load(context.Context) (*config.Config, error) {
	return s.cfg, nil
}

func (s staticConfig) Watch(context.Context, func(*config.Config)) error {
	return nil
}

func (s staticConfig) Close() error {
	return nil
}
