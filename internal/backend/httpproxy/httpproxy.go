// Package httpproxy provides a backend that forwards request parameters as a
// JSON POST to an upstream HTTP service, one path segment per alias.
package httpproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/bare-gateway/internal/backend"
	"github.com/tjfontaine/bare-gateway/internal/core/domain"
	"github.com/tjfontaine/bare-gateway/internal/core/ports"
	"github.com/tjfontaine/bare-gateway/internal/pkg/config"
	"github.com/tjfontaine/bare-gateway/internal/pkg/safehttp"
)

// BackendType is the configuration type name.
const BackendType = "http-proxy"

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 10 << 20
)

// Option configures the backend.
type Option func(*Backend)

// WithAPIKey sends key as a bearer token upstream.
func WithAPIKey(key string) Option {
	return func(b *Backend) {
		b.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Backend) {
		b.client = c
	}
}

// WithTimeout bounds each upstream call.
func WithTimeout(d time.Duration) Option {
	return func(b *Backend) {
		b.timeout = d
	}
}

// WithDenyPrivateNetworks refuses upstream connections to private, loopback
// and link-local addresses. Ignored when WithHTTPClient is also given.
func WithDenyPrivateNetworks() Option {
	return func(b *Backend) {
		b.denyPrivate = true
	}
}

// UpstreamError reports a non-2xx answer from the upstream service.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// Backend forwards requests to baseURL/<alias>.
type Backend struct {
	backend.Base
	baseURL *url.URL
	apiKey  string
	timeout time.Duration
	client  *http.Client

	denyPrivate bool
}

// New creates a proxy backend. baseURL must be an absolute http(s) URL.
func New(name, baseURL string, opts ...Option) (*Backend, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, domain.NewConfigurationError("backend %q: invalid base_url: %v", name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, domain.NewConfigurationError("backend %q: base_url must be an absolute http(s) URL, got %q", name, baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	b := &Backend{
		Base:    backend.NewBase(name),
		baseURL: u,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.client == nil {
		var base http.RoundTripper = http.DefaultTransport
		if b.denyPrivate {
			base = safehttp.NewTransport()
		}
		b.client = &http.Client{Transport: otelhttp.NewTransport(base)}
	}
	return b, nil
}

// Endpoint returns the upstream URL for alias.
func (b *Backend) Endpoint(alias string) string {
	u := *b.baseURL
	u.Path = b.baseURL.Path + "/" + alias
	u.RawPath = b.baseURL.EscapedPath() + "/" + url.PathEscape(alias)
	return u.String()
}

func (b *Backend) HandleRequest(ctx context.Context, req ports.BackendRequest) (domain.Response, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	params := domain.Params{}
	if req.Request != nil && req.Request.Params != nil {
		params = req.Request.Params
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Endpoint(req.Alias), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if req.Request != nil && req.Request.ID != "" {
		httpReq.Header.Set("X-Request-ID", req.Request.ID)
	}
	if b.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if !isJSON(resp.Header.Get("Content-Type")) {
		return string(data), nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

// Stop releases idle upstream connections.
func (b *Backend) Stop(ctx context.Context) error {
	b.client.CloseIdleConnections()
	return nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// RegisterFactory registers the http-proxy backend type.
func RegisterFactory() {
	backend.RegisterFactory(backend.Factory{
		Type:        BackendType,
		Description: "Forwards params as JSON to base_url/<alias>",
		Create:      createFromConfig,
		ValidateConfig: func(cfg config.BackendConfig) error {
			if strings.TrimSpace(cfg.BaseURL) == "" {
				return errors.New("base_url is required")
			}
			return nil
		},
	})
}

func createFromConfig(cfg config.BackendConfig, _ map[string]string) (ports.Backend, error) {
	opts := []Option{WithAPIKey(cfg.APIKey)}
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	if cfg.DenyPrivateNetworks {
		opts = append(opts, WithDenyPrivateNetworks())
	}
	return New(cfg.Name, cfg.BaseURL, opts...)
}
