// Package registration wires the built-in backend types into the factory
// registry.
package registration

import (
	"sync"

	"github.com/tjfontaine/bare-gateway/internal/backend/echo"
	"github.com/tjfontaine/bare-gateway/internal/backend/httpproxy"
)

var once sync.Once

// RegisterBuiltins registers built-in backend factories explicitly.
// This replaces init-based side effects and is intended to be called from
// cmd/gateway and tests before wiring registries. Repeated calls are no-ops.
func RegisterBuiltins() {
	once.Do(func() {
		echo.RegisterFactory()
		httpproxy.RegisterFactory()
	})
}
