// Package runtime provides the Gateway: it loads configuration, builds the
// server core and its backends, and serves the HTTP frontdoor.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/bare-gateway/internal/adapters/events/direct"
	"github.com/tjfontaine/bare-gateway/internal/adapters/events/metrics"
	"github.com/tjfontaine/bare-gateway/internal/adapters/policy/ratelimit"
	apimw "github.com/tjfontaine/bare-gateway/internal/api/middleware"
	"github.com/tjfontaine/bare-gateway/internal/backend"
	"github.com/tjfontaine/bare-gateway/internal/core/ports"
	"github.com/tjfontaine/bare-gateway/internal/events"
	"github.com/tjfontaine/bare-gateway/internal/frontdoor/httpapi"
	"github.com/tjfontaine/bare-gateway/internal/pkg/config"
	"github.com/tjfontaine/bare-gateway/internal/router"
	"github.com/tjfontaine/bare-gateway/internal/server"
)

// startCleanupTimeout bounds stopping backends after a failed Start.
const startCleanupTimeout = 10 * time.Second

// Gateway is the main entry point for running the gateway.
// It can be embedded in larger applications or run standalone.
type Gateway struct {
	// Dependencies (injected via options)
	config    ports.ConfigProvider
	store     ports.EventStore
	events    ports.EventPublisher
	metrics   *metrics.Collector
	logger    *slog.Logger
	listener  net.Listener
	embedded  []embeddedBackend
	ownsStore bool

	// ownsEvents is set when Start created the publisher itself.
	ownsEvents bool

	// Internal state
	cfg      *config.Config
	core     *server.Server
	channel  *events.Channel
	httpSrv  *http.Server
	handler  http.Handler
	addr     net.Addr
	loaded   map[string]bool
	unsubs   []func()

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
}

type embeddedBackend struct {
	backend ports.Backend
	aliases []string
}

// New creates a new Gateway with the given options. A config provider is
// required; storage defaults to what the configuration selects.
func New(opts ...Option) (*Gateway, error) {
	gw := &Gateway{
		logger: slog.Default(),
		loaded: make(map[string]bool),
	}

	for _, opt := range opts {
		if err := opt(gw); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if gw.config == nil {
		return nil, fmt.Errorf("config provider required (use WithFileConfig or WithConfig)")
	}
	if gw.metrics == nil {
		gw.metrics = metrics.New()
	}
	return gw, nil
}

// Start loads configuration, registers backends and starts serving. The
// server core starts every backend before the HTTP listener opens.
func (g *Gateway) Start(ctx context.Context) (err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.core != nil {
		return fmt.Errorf("gateway already started")
	}
	g.ctx, g.cancel = context.WithCancel(ctx)
	started := false
	defer func() {
		if err == nil {
			return
		}
		g.cancel()
		if started {
			// Backends that did start must not outlive the failed gateway.
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), startCleanupTimeout)
			if stopErr := g.core.Stop(stopCtx); stopErr != nil {
				g.logger.Error("failed to stop backends after start failure", slog.String("error", stopErr.Error()))
			}
			cancel()
		}
		for _, relErr := range g.release() {
			g.logger.Error("failed to release resources after start failure", slog.String("error", relErr.Error()))
		}
		g.core = nil
	}()

	cfg, err := g.config.Load(g.ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	g.cfg = cfg

	if err := g.initStorage(cfg); err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	if err := g.initCore(cfg); err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	if err := g.initBackends(cfg); err != nil {
		return fmt.Errorf("init backends: %w", err)
	}

	started = true
	if err := g.core.Start(g.ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	g.watchConfig()

	g.logger.Info("gateway started",
		slog.String("address", g.addr.String()),
		slog.Int("backends", len(g.core.Registry().Backends())),
		slog.String("routing", cfg.Routing.Strategy),
		slog.String("storage", cfg.Storage.Type))

	return nil
}

// Shutdown stops the HTTP listener, then the backends, then releases
// storage and configuration resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.logger.Info("shutting down gateway")

	if g.cancel != nil {
		g.cancel()
	}

	var errs []error
	if g.core != nil {
		if err := g.core.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	errs = append(errs, g.release()...)

	if g.config != nil {
		if err := g.config.Close(); err != nil {
			g.logger.Error("failed to close config", slog.String("error", err.Error()))
		}
	}

	g.core = nil
	if err := errors.Join(errs...); err != nil {
		return err
	}
	g.logger.Info("gateway shutdown complete")
	return nil
}

// release drops event subscriptions and closes the publisher and store the
// gateway opened itself. Injected ones are left to the caller.
func (g *Gateway) release() []error {
	for _, unsub := range g.unsubs {
		unsub()
	}
	g.unsubs = nil

	var errs []error
	if g.events != nil && g.ownsEvents {
		if err := g.events.Close(); err != nil {
			g.logger.Error("failed to close events", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("close events: %w", err))
		}
		g.events = nil
		g.ownsEvents = false
	}

	if g.store != nil && g.ownsStore {
		if err := g.store.Close(); err != nil {
			g.logger.Error("failed to close storage", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
		g.store = nil
		g.ownsStore = false
	}
	return errs
}

// Addr returns the address the HTTP listener is bound to, or nil before Start.
func (g *Gateway) Addr() net.Addr {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.addr
}

// Server returns the server core, or nil before Start.
func (g *Gateway) Server() *server.Server {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.core
}

// Handler returns the HTTP handler, or nil before Start.
func (g *Gateway) Handler() http.Handler {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.handler
}

// Metrics returns the Prometheus collector fed by the event channel.
func (g *Gateway) Metrics() *metrics.Collector {
	return g.metrics
}

// initStorage opens the event store selected by configuration unless one was
// injected, and defaults the publisher to direct storage writes.
func (g *Gateway) initStorage(cfg *config.Config) error {
	if g.store == nil {
		store, err := openStore(cfg.Storage)
		if err != nil {
			return err
		}
		g.store = store
		g.ownsStore = store != nil
	}

	if g.events == nil && g.store != nil {
		g.logger.Info("no event publisher specified, using direct storage")
		publisher, err := direct.NewPublisher(g.store)
		if err != nil {
			return fmt.Errorf("create default event publisher: %w", err)
		}
		g.events = publisher
		g.ownsEvents = true
	}
	return nil
}

func (g *Gateway) initCore(cfg *config.Config) error {
	finder, err := router.FromConfig(cfg.Routing)
	if err != nil {
		return err
	}

	g.channel = events.NewChannel(g.logger)
	codec := &httpapi.Codec{}
	core, err := server.New(server.Options{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		APIKeys: cfg.Server.APIKeys,
		Env:     cfg.Server.Env,
		Hooks: server.Hooks{
			Translator: codec,
			Finder:     finder,
			Sender:     codec,
			Lifecycle:  &httpLifecycle{g: g},
		},
		Logger: g.logger,
		Events: g.channel,
	})
	if err != nil {
		return err
	}
	g.core = core

	g.unsubs = append(g.unsubs, g.channel.Subscribe(g.metrics))
	if g.events != nil {
		g.unsubs = append(g.unsubs, g.channel.Subscribe(direct.NewRecorder(g.events, g.logger)))
	}
	return nil
}

func (g *Gateway) initBackends(cfg *config.Config) error {
	g.logger.Debug("initializing backends", slog.Int("count", len(cfg.Backends)))

	for _, bc := range cfg.Backends {
		b, err := backend.Create(bc, cfg.Server.Env)
		if err != nil {
			return fmt.Errorf("create backend %q: %w", bc.Name, err)
		}
		if _, err := g.core.AddBackend(b, bc.Aliases...); err != nil {
			return fmt.Errorf("register backend %q: %w", bc.Name, err)
		}
		g.loaded[backendKey(bc)] = true
	}

	for _, eb := range g.embedded {
		if _, err := g.core.AddBackend(eb.backend, eb.aliases...); err != nil {
			return fmt.Errorf("register backend %q: %w", eb.backend.Name(), err)
		}
	}
	return nil
}

// routes builds the HTTP handler around the frontdoor.
func (g *Gateway) routes(cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(apimw.RequestIDMiddleware)
	r.Use(apimw.LoggingMiddleware(g.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
	})
	r.Handle("/metrics", g.metrics.Handler())

	limiter := ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, 0)
	if limiter != nil {
		g.logger.Info("rate limiting enabled",
			slog.Float64("requests_per_second", cfg.RateLimit.RequestsPerSecond),
			slog.Int("burst", limiter.Burst()))
	}

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(limiter, ratelimit.ByCaller, nil))
		r.Use(apimw.TimeoutMiddleware(cfg.Server.Timeout))
		r.Use(func(next http.Handler) http.Handler {
			return otelhttp.NewHandler(next, "bare-gateway")
		})

		httpapi.NewHandler(httpapi.HandlerConfig{
			Dispatcher: g.core,
			Catalog:    g.core.Registry(),
			Events:     g.store,
			Logger:     g.logger,
		}).Routes(r)
	})

	return r
}

// watchConfig subscribes to configuration changes so backends added later
// are late-registered.
func (g *Gateway) watchConfig() {
	onChange := func(newCfg *config.Config) {
		g.logger.Info("config changed, reloading")
		if err := g.reload(newCfg); err != nil {
			g.logger.Error("failed to reload", slog.String("error", err.Error()))
		}
	}

	if err := g.config.Watch(g.ctx, onChange); err != nil {
		if !errors.Is(err, context.Canceled) {
			g.logger.Error("config watch failed", slog.String("error", err.Error()))
		}
	}
}

// reload registers and starts backends that are new in cfg. Changes to
// existing backends and to server settings need a restart.
func (g *Gateway) reload(cfg *config.Config) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.core == nil {
		return nil
	}

	var errs []error
	added := 0
	for _, bc := range cfg.Backends {
		key := backendKey(bc)
		if g.loaded[key] {
			continue
		}
		b, err := backend.Create(bc, g.cfg.Server.Env)
		if err != nil {
			errs = append(errs, fmt.Errorf("create backend %q: %w", bc.Name, err))
			continue
		}
		if err := g.core.RegisterBackend(g.ctx, b, bc.Aliases...); err != nil {
			errs = append(errs, fmt.Errorf("register backend %q: %w", bc.Name, err))
			continue
		}
		g.loaded[key] = true
		added++
	}

	g.logger.Info("reload complete", slog.Int("added_backends", added))
	return errors.Join(errs...)
}

// httpLifecycle opens the HTTP listener once backends are up and closes it
// before they stop.
type httpLifecycle struct {
	g *Gateway
}

func (l *httpLifecycle) PerformStart(ctx context.Context) error {
	g := l.g
	cfg := g.cfg

	ln := g.listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", g.core.Address())
		if err != nil {
			return fmt.Errorf("listen on %s: %w", g.core.Address(), err)
		}
	}
	g.addr = ln.Addr()
	g.handler = g.routes(cfg)

	g.httpSrv = &http.Server{
		Handler:           g.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.Server.Timeout > 0 {
		g.httpSrv.ReadTimeout = cfg.Server.Timeout
		g.httpSrv.WriteTimeout = cfg.Server.Timeout + 5*time.Second
	}

	srv := g.httpSrv
	go func() {
		g.logger.Info("HTTP server listening", slog.String("address", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("server error", slog.String("error", err.Error()))
		}
	}()
	return nil
}

func (l *httpLifecycle) PerformStop(ctx context.Context) error {
	g := l.g
	if g.httpSrv == nil {
		return nil
	}
	if err := g.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	g.httpSrv = nil
	g.listener = nil
	return nil
}

// backendKey identifies a configured backend across reloads.
func backendKey(bc config.BackendConfig) string {
	if name := strings.TrimSpace(bc.Name); name != "" {
		return name
	}
	return "aliases:" + strings.Join(bc.Aliases, ",")
}
