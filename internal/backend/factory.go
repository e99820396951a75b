package backend

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tjfontaine/bare-gateway/internal/core/ports"
	"github.com/tjfontaine/bare-gateway/internal/pkg/config"
)

// Factory defines how to create a backend of a specific type.
// Each backend type (echo, http-proxy, ...) registers a factory that
// knows how to create instances from configuration.
type Factory struct {
	// Type is the backend type identifier used in configuration.
	Type string

	// Description provides a human-readable description of the backend.
	Description string

	// Create instantiates a new backend. env is the server environment,
	// passed through untouched.
	Create func(cfg config.BackendConfig, env map[string]string) (ports.Backend, error)

	// ValidateConfig performs type-specific configuration validation.
	// Optional: if nil, no additional validation is performed.
	ValidateConfig func(cfg config.BackendConfig) error
}

var (
	factoryMu  sync.RWMutex
	factoryMap = make(map[string]Factory)
)

// RegisterFactory registers a backend factory for a specific type.
// Panics if a factory with the same type is already registered.
func RegisterFactory(f Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()

	if f.Type == "" {
		panic("backend factory type cannot be empty")
	}
	if f.Create == nil {
		panic(fmt.Sprintf("backend factory %q must have a Create function", f.Type))
	}
	if _, exists := factoryMap[f.Type]; exists {
		panic(fmt.Sprintf("backend factory %q already registered", f.Type))
	}

	factoryMap[f.Type] = f
}

// GetFactory returns the factory for a backend type, if registered.
func GetFactory(backendType string) (Factory, bool) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()

	f, ok := factoryMap[backendType]
	return f, ok
}

// ListTypes returns all registered backend types, sorted.
func ListTypes() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()

	types := make([]string, 0, len(factoryMap))
	for t := range factoryMap {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Create builds a backend using the factory registered for cfg.Type.
func Create(cfg config.BackendConfig, env map[string]string) (ports.Backend, error) {
	f, ok := GetFactory(cfg.Type)
	if !ok {
		return nil, fmt.Errorf("unknown backend type: %s (registered types: %v)", cfg.Type, ListTypes())
	}

	if f.ValidateConfig != nil {
		if err := f.ValidateConfig(cfg); err != nil {
			return nil, fmt.Errorf("invalid configuration for backend type %s: %w", cfg.Type, err)
		}
	}

	return f.Create(cfg, env)
}

// ClearFactories removes all registered factories (for testing only).
func ClearFactories() {
	factoryMu.Lock()
	defer factoryMu.Unlock()

	factoryMap = make(map[string]Factory)
}
