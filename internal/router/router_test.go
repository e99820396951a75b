package router

import (
	"context"
	"errors"
	"testing"

	"github.com/tjfontaine/bare-gateway/internal/backend"
	"github.com/tjfontaine/bare-gateway/internal/core/domain"
	"github.com/tjfontaine/bare-gateway/internal/core/ports"
	"github.com/tjfontaine/bare-gateway/internal/pkg/config"
)

func newRegistry(t *testing.T) (*backend.Registry, ports.Backend, ports.Backend) {
	t.Helper()
	r := backend.NewRegistry()
	fn := func(ctx context.Context, req ports.BackendRequest) (any, error) { return nil, nil }
	a := backend.NewFunc("", fn)
	b := backend.NewFunc("", fn)
	if err := r.Add(a, "alpha", "alpha2"); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(b, "beta"); err != nil {
		t.Fatal(err)
	}
	return r, a, b
}

func request(params domain.Params, meta map[string]string) *domain.Request {
	req := domain.NewRequest(nil, params)
	req.Metadata = meta
	return req
}

func TestStrategies(t *testing.T) {
	reg, a, b := newRegistry(t)

	tests := []struct {
		name      string
		finder    ports.BackendFinder
		req       *domain.Request
		wantAlias string
		want      ports.Backend
	}{
		{
			name:      "header",
			finder:    Header("X-Backend-Alias"),
			req:       request(nil, map[string]string{HeaderKey("x-backend-alias"): "beta"}),
			wantAlias: "beta",
			want:      b,
		},
		{
			name:      "path",
			finder:    Path(),
			req:       request(nil, map[string]string{domain.MetaPathAlias: "alpha2"}),
			wantAlias: "alpha2",
			want:      a,
		},
		{
			name:      "param",
			finder:    Param("backend"),
			req:       request(domain.Params{"backend": " alpha "}, nil),
			wantAlias: "alpha",
			want:      a,
		},
		{
			name:      "static",
			finder:    Static("beta"),
			req:       request(nil, nil),
			wantAlias: "beta",
			want:      b,
		},
		{
			name:   "unregistered alias",
			finder: Param("backend"),
			req:    request(domain.Params{"backend": "gamma"}, nil),
		},
		{
			name:   "non-string param",
			finder: Param("backend"),
			req:    request(domain.Params{"backend": 7}, nil),
		},
		{
			name:   "missing header",
			finder: Header("X-Backend-Alias"),
			req:    request(nil, nil),
		},
		{
			name:      "chain falls through",
			finder:    Chain{Header("X-Backend-Alias"), Static("alpha")},
			req:       request(nil, nil),
			wantAlias: "alpha",
			want:      a,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alias, got, ok := tt.finder.FindBackend(context.Background(), tt.req, reg)
			if ok != (tt.want != nil) {
				t.Fatalf("FindBackend() ok = %v", ok)
			}
			if alias != tt.wantAlias || got != tt.want {
				t.Errorf("FindBackend() = %q, %v; want %q, %v", alias, got, tt.wantAlias, tt.want)
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	reg, a, b := newRegistry(t)

	t.Run("header with default", func(t *testing.T) {
		f, err := FromConfig(config.RoutingConfig{Strategy: "header", Header: "X-Backend-Alias", DefaultAlias: "alpha"})
		if err != nil {
			t.Fatalf("FromConfig() error = %v", err)
		}

		alias, got, ok := f.FindBackend(context.Background(), request(nil, map[string]string{HeaderKey("X-Backend-Alias"): "beta"}), reg)
		if !ok || alias != "beta" || got != b {
			t.Errorf("header routing = %q, %v, %v", alias, got, ok)
		}
		alias, got, ok = f.FindBackend(context.Background(), request(nil, nil), reg)
		if !ok || alias != "alpha" || got != a {
			t.Errorf("default routing = %q, %v, %v", alias, got, ok)
		}
		alias, _, ok = f.FindBackend(context.Background(), request(nil, map[string]string{domain.MetaPathAlias: "alpha2"}), reg)
		if !ok || alias != "alpha2" {
			t.Errorf("path segment should take precedence, got %q", alias)
		}
	})

	t.Run("no default", func(t *testing.T) {
		f, err := FromConfig(config.RoutingConfig{Strategy: "param", Param: "backend"})
		if err != nil {
			t.Fatal(err)
		}
		if _, _, ok := f.FindBackend(context.Background(), request(nil, nil), reg); ok {
			t.Error("expected no match")
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, cfg := range []config.RoutingConfig{
			{Strategy: "dns"},
			{Strategy: "header"},
			{Strategy: "param"},
		} {
			if _, err := FromConfig(cfg); !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("FromConfig(%+v) error = %v", cfg, err)
			}
		}
	})
}
