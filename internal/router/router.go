// Package router provides strategies for choosing the backend alias that
// serves a request. Each strategy implements ports.BackendFinder.
package router

import (
	"context"
	"strings"

	"github.com/tjfontaine/bare-gateway/internal/core/domain"
	"github.com/tjfontaine/bare-gateway/internal/core/ports"
	"github.com/tjfontaine/bare-gateway/internal/pkg/config"
)

// Strategy names accepted in configuration.
const (
	StrategyHeader = "header"
	StrategyPath   = "path"
	StrategyParam  = "param"
)

// Func adapts an alias-picking function into a BackendFinder. The alias it
// returns is looked up in the registry; "" means no opinion.
type Func func(ctx context.Context, req *domain.Request) string

func (f Func) FindBackend(ctx context.Context, req *domain.Request, lookup ports.BackendLookup) (string, ports.Backend, bool) {
	return resolve(f(ctx, req), lookup)
}

// Header routes on the value of an HTTP header captured by the transport.
func Header(name string) ports.BackendFinder {
	key := HeaderKey(name)
	return Func(func(ctx context.Context, req *domain.Request) string {
		v, _ := req.Meta(key)
		return v
	})
}

// HeaderKey returns the metadata key transports use for a header.
func HeaderKey(name string) string {
	return domain.MetaHeaderPrefix + strings.ToLower(strings.TrimSpace(name))
}

// Path routes on the alias segment captured from the request path.
func Path() ports.BackendFinder {
	return Func(func(ctx context.Context, req *domain.Request) string {
		v, _ := req.Meta(domain.MetaPathAlias)
		return v
	})
}

// Param routes on a string request parameter.
func Param(name string) ports.BackendFinder {
	return Func(func(ctx context.Context, req *domain.Request) string {
		v, _ := req.StringParam(name)
		return v
	})
}

// Static always routes to alias.
func Static(alias string) ports.BackendFinder {
	return Func(func(ctx context.Context, req *domain.Request) string {
		return alias
	})
}

// Chain tries each finder in order and returns the first match.
type Chain []ports.BackendFinder

func (c Chain) FindBackend(ctx context.Context, req *domain.Request, lookup ports.BackendLookup) (string, ports.Backend, bool) {
	for _, f := range c {
		if alias, b, ok := f.FindBackend(ctx, req, lookup); ok {
			return alias, b, true
		}
	}
	return "", nil, false
}

// FromConfig builds the finder described by cfg. A default alias, when set,
// is tried after the primary strategy.
func FromConfig(cfg config.RoutingConfig) (ports.BackendFinder, error) {
	var primary ports.BackendFinder
	switch cfg.Strategy {
	case StrategyHeader:
		if cfg.Header == "" {
			return nil, domain.NewConfigurationError("routing header name required")
		}
		primary = Header(cfg.Header)
	case StrategyPath:
		primary = Path()
	case StrategyParam:
		if cfg.Param == "" {
			return nil, domain.NewConfigurationError("routing param name required")
		}
		primary = Param(cfg.Param)
	default:
		return nil, domain.NewConfigurationError("unknown routing strategy %q", cfg.Strategy)
	}

	// The path segment always wins when present, so /v1/backends/{alias}
	// works regardless of the configured strategy.
	chain := Chain{Path()}
	if cfg.Strategy != StrategyPath {
		chain = append(chain, primary)
	}
	if cfg.DefaultAlias != "" {
		chain = append(chain, Static(cfg.DefaultAlias))
	}
	return chain, nil
}

func resolve(alias string, lookup ports.BackendLookup) (string, ports.Backend, bool) {
	alias = strings.TrimSpace(alias)
	if alias == "" || lookup == nil {
		return "", nil, false
	}
	b, ok := lookup.GetBackend(alias)
	if !ok {
		return "", nil, false
	}
	return alias, b, true
}
