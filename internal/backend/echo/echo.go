// Package echo provides a backend that answers every request with its own
// parameters. It is useful for smoke-testing routing and authentication.
package echo

import (
	"context"
	"maps"

	"github.com/tjfontaine/bare-gateway/internal/backend"
	"github.com/tjfontaine/bare-gateway/internal/core/domain"
	"github.com/tjfontaine/bare-gateway/internal/core/ports"
	"github.com/tjfontaine/bare-gateway/internal/pkg/config"
)

// BackendType is the configuration type name.
const BackendType = "echo"

// Response is what the echo backend returns.
type Response struct {
	Backend string            `json:"backend"`
	Alias   string            `json:"alias"`
	Params  domain.Params     `json:"params"`
	Env     map[string]string `json:"env,omitempty"`
}

// Backend echoes request parameters back to the caller.
type Backend struct {
	backend.Base
	env map[string]string
}

// New creates an echo backend.
func New(name string, env map[string]string) *Backend {
	return &Backend{Base: backend.NewBase(name), env: maps.Clone(env)}
}

func (b *Backend) HandleRequest(ctx context.Context, req ports.BackendRequest) (domain.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Response{
		Backend: b.Name(),
		Alias:   req.Alias,
		Params:  maps.Clone(req.Request.Params),
		Env:     b.env,
	}, nil
}

// RegisterFactory registers the echo backend factory.
func RegisterFactory() {
	backend.RegisterFactory(backend.Factory{
		Type:        BackendType,
		Description: "Returns request parameters unchanged",
		Create: func(cfg config.BackendConfig, env map[string]string) (ports.Backend, error) {
			return New(cfg.Name, env), nil
		},
	})
}
