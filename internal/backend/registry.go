package backend

import (
	"reflect"
	"strings"
	"sync"

	"github.com/tjfontaine/bare-gateway/internal/core/domain"
	"github.com/tjfontaine/bare-gateway/internal/core/ports"
)

// Registry maps aliases to backends. Several aliases may share one backend
// instance; the instance itself is stored once.
//
// Registry is safe for concurrent use, so backends can be added after the
// server has started.
type Registry struct {
	mu       sync.RWMutex
	byAlias  map[string]ports.Backend
	aliases  []string
	backends []ports.Backend
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byAlias: make(map[string]ports.Backend),
	}
}

// Add registers b under every given alias plus its own non-empty name.
// Aliases are trimmed. Either every alias is registered or, on error, none is.
// Backends are tracked by identity, so b's dynamic type must be comparable;
// a pointer type is the usual choice.
func (r *Registry) Add(b ports.Backend, aliases ...string) error {
	if b == nil {
		return domain.NewConfigurationError("backend must not be nil")
	}
	if !isComparable(b) {
		return domain.NewConfigurationError("backend type %T is not comparable; register a pointer", b)
	}

	all := aliases
	if name := b.Name(); name != "" {
		all = append(append([]string(nil), aliases...), name)
	}
	if len(all) == 0 {
		return domain.NewConfigurationError("at least one alias required")
	}

	keys := make([]string, 0, len(all))
	seen := make(map[string]struct{}, len(all))

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, alias := range all {
		key := strings.TrimSpace(alias)
		if key == "" {
			return domain.NewConfigurationError("backend alias must not be blank")
		}
		_, repeated := seen[key]
		_, exists := r.byAlias[key]
		if repeated || exists {
			return &domain.DuplicateAliasError{Alias: key}
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	for _, key := range keys {
		r.byAlias[key] = b
		r.aliases = append(r.aliases, key)
	}
	if !r.containsLocked(b) {
		r.backends = append(r.backends, b)
	}
	return nil
}

// Get looks up a backend by alias. The alias is trimmed the same way as at
// registration.
func (r *Registry) Get(alias string) (ports.Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.byAlias[strings.TrimSpace(alias)]
	return b, ok
}

// GetBackend implements ports.BackendLookup.
func (r *Registry) GetBackend(alias string) (ports.Backend, bool) {
	return r.Get(alias)
}

// Has reports whether alias is registered.
func (r *Registry) Has(alias string) bool {
	_, ok := r.Get(alias)
	return ok
}

// Aliases returns every registered alias in registration order.
func (r *Registry) Aliases() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.aliases))
	copy(out, r.aliases)
	return out
}

// Contains reports whether b is registered under any alias.
func (r *Registry) Contains(b ports.Backend) bool {
	if b == nil || !isComparable(b) {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.containsLocked(b)
}

// AliasesOf returns the aliases that resolve to b, in registration order.
func (r *Registry) AliasesOf(b ports.Backend) []string {
	if b == nil || !isComparable(b) {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, a := range r.aliases {
		if r.byAlias[a] == b {
			out = append(out, a)
		}
	}
	return out
}

// Backends returns each distinct backend once, in first-registration order.
func (r *Registry) Backends() []ports.Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ports.Backend, len(r.backends))
	copy(out, r.backends)
	return out
}

// Len returns the number of registered aliases.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAlias)
}

func (r *Registry) containsLocked(b ports.Backend) bool {
	for _, existing := range r.backends {
		if existing == b {
			return true
		}
	}
	return false
}

func isComparable(b ports.Backend) bool {
	return reflect.TypeOf(b).Comparable()
}
