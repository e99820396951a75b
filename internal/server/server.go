// Package server implements the request-dispatch core: it owns the backend
// registry and runs each inbound message through translate, authenticate,
// resolve, dispatch and send, announcing every step on an event channel.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tjfontaine/bare-gateway/internal/auth"
	"github.com/tjfontaine/bare-gateway/internal/backend"
	"github.com/tjfontaine/bare-gateway/internal/core/domain"
	"github.com/tjfontaine/bare-gateway/internal/core/ports"
	"github.com/tjfontaine/bare-gateway/internal/events"
)

// DefaultHost is used when Options.Host is empty.
const DefaultHost = "localhost"

const tracerName = "github.com/tjfontaine/bare-gateway/internal/server"

// Hooks are the extension points a concrete server plugs into the core.
// Translator and Finder are required for requests to succeed; Sender and
// Lifecycle default to no-ops.
type Hooks struct {
	Translator ports.Translator
	Finder     ports.BackendFinder
	Sender     ports.ResponseSender
	Lifecycle  ports.LifecycleHooks
}

// Options configures a Server. Port is required.
type Options struct {
	Host string
	Port int

	// APIKeys enables authentication when non-empty.
	APIKeys []string

	// Env is passed through to backends untouched.
	Env map[string]string

	Hooks  Hooks
	Logger *slog.Logger

	// Events defaults to a fresh channel.
	Events *events.Channel

	// Tracer defaults to the global OpenTelemetry tracer provider.
	Tracer trace.Tracer
}

// Server is the dispatch core.
type Server struct {
	host    string
	port    int
	env     map[string]string
	apiKeys *auth.KeySet

	registry *backend.Registry
	events   *events.Channel
	hooks    Hooks

	logger *slog.Logger
	tracer trace.Tracer

	// running tracks whether Start has completed, so late registrations can
	// be started immediately.
	mu      sync.Mutex
	running bool
}

// New creates a server. Host defaults to DefaultHost.
func New(opts Options) (*Server, error) {
	if opts.Port <= 0 {
		return nil, domain.NewConfigurationError("port must be positive, got %d", opts.Port)
	}

	host := opts.Host
	if host == "" {
		host = DefaultHost
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ch := opts.Events
	if ch == nil {
		ch = events.NewChannel(logger)
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	env := maps.Clone(opts.Env)
	if env == nil {
		env = map[string]string{}
	}

	return &Server{
		host:     host,
		port:     opts.Port,
		env:      env,
		apiKeys:  auth.NewKeySet(opts.APIKeys),
		registry: backend.NewRegistry(),
		events:   ch,
		hooks:    opts.Hooks,
		logger:   logger,
		tracer:   tracer,
	}, nil
}

func (s *Server) Host() string { return s.host }

func (s *Server) Port() int { return s.port }

// Address returns host:port.
func (s *Server) Address() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

// Env returns a copy of the server environment.
func (s *Server) Env() map[string]string {
	return maps.Clone(s.env)
}

// APIKeys returns the configured key set, nil when authentication is disabled.
func (s *Server) APIKeys() *auth.KeySet {
	return s.apiKeys
}

// Events returns the channel lifecycle events are emitted on.
func (s *Server) Events() *events.Channel {
	return s.events
}

// Registry exposes the backend registry for inspection.
func (s *Server) Registry() *backend.Registry {
	return s.registry
}

// AddBackend registers b under aliases (plus its name) and returns the server
// so calls can be chained. Registration is all-or-nothing.
func (s *Server) AddBackend(b ports.Backend, aliases ...string) (*Server, error) {
	if err := s.registry.Add(b, aliases...); err != nil {
		return s, err
	}
	s.logger.Debug("backend registered",
		slog.String("backend", describe(b, s.registry)),
		slog.Any("aliases", s.registry.AliasesOf(b)))
	return s, nil
}

// MustAddBackend is AddBackend for static setup; it panics on error.
func (s *Server) MustAddBackend(b ports.Backend, aliases ...string) *Server {
	if _, err := s.AddBackend(b, aliases...); err != nil {
		panic(err)
	}
	return s
}

// RegisterBackend adds b and, if the server is already running, starts it.
// It is the safe way to add backends after Start.
func (s *Server) RegisterBackend(ctx context.Context, b ports.Backend, aliases ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := s.registry.Contains(b)
	if _, err := s.AddBackend(b, aliases...); err != nil {
		return err
	}
	if s.running && !known {
		if err := b.Start(ctx); err != nil {
			return fmt.Errorf("start backend %s: %w", describe(b, s.registry), err)
		}
	}
	return nil
}

// GetBackend looks up a backend by alias.
func (s *Server) GetBackend(alias string) (ports.Backend, bool) {
	return s.registry.Get(alias)
}

// AuthenticateRequest reports whether req carries an accepted API key.
// With no keys configured every request is accepted.
func (s *Server) AuthenticateRequest(req *domain.Request) bool {
	return s.apiKeys.Authenticate(req)
}

// Dispatch runs one raw transport message through the pipeline and returns
// the backend's response. On failure an error event is emitted and the
// original error is returned unchanged; no response is sent.
func (s *Server) Dispatch(ctx context.Context, raw any) (domain.Response, error) {
	ctx, span := s.tracer.Start(ctx, "server.dispatch")
	defer span.End()
	start := time.Now()

	req, err := s.translate(ctx, raw)
	if err != nil {
		return nil, s.fail(ctx, span, nil, "", "translate incoming message", err)
	}
	span.SetAttributes(attribute.String("request.id", req.ID))

	s.events.EmitRequest(ctx, &domain.RequestEvent{Request: req, Timestamp: time.Now()})

	if !s.AuthenticateRequest(req) {
		return nil, s.fail(ctx, span, req, "", "authenticate request", domain.ErrUnauthenticated)
	}

	alias, b, err := s.findBackend(ctx, req)
	if err != nil {
		return nil, s.fail(ctx, span, req, "", "resolve backend", err)
	}
	span.SetAttributes(attribute.String("backend.alias", alias))

	resp, err := b.HandleRequest(ctx, ports.BackendRequest{Alias: alias, Request: req})
	if err != nil {
		return nil, s.fail(ctx, span, req, alias, fmt.Sprintf("backend %q failed", alias), err)
	}

	if s.hooks.Sender != nil {
		if err := s.hooks.Sender.SendResponse(ctx, ports.SendArgs{Request: req, Response: resp, Raw: raw}); err != nil {
			return nil, s.fail(ctx, span, req, alias, "send response", err)
		}
	}

	s.events.EmitResponse(ctx, &domain.ResponseEvent{
		Request:   req,
		Alias:     alias,
		Response:  resp,
		Duration:  time.Since(start),
		Timestamp: time.Now(),
	})
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

// Start starts every distinct backend concurrently, waits for all of them,
// then runs the PerformStart hook.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	backends := s.registry.Backends()
	g, gctx := errgroup.WithContext(ctx)
	for _, b := range backends {
		g.Go(func() error {
			if err := b.Start(gctx); err != nil {
				return fmt.Errorf("start backend %s: %w", describe(b, s.registry), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if s.hooks.Lifecycle != nil {
		if err := s.hooks.Lifecycle.PerformStart(ctx); err != nil {
			return fmt.Errorf("perform start: %w", err)
		}
	}

	s.running = true
	s.logger.Info("server started",
		slog.String("address", s.Address()),
		slog.Int("backends", len(backends)),
		slog.Int("aliases", s.registry.Len()),
		slog.Bool("auth", s.apiKeys.Enabled()))
	return nil
}

// Stop runs the PerformStop hook, then stops every distinct backend
// concurrently. Every backend is asked to stop even if some fail; the
// failures are joined.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.hooks.Lifecycle != nil {
		if err := s.hooks.Lifecycle.PerformStop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("perform stop: %w", err))
		}
	}

	backends := s.registry.Backends()
	stopErrs := make([]error, len(backends))
	var wg sync.WaitGroup
	for i, b := range backends {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.Stop(ctx); err != nil {
				stopErrs[i] = fmt.Errorf("stop backend %s: %w", describe(b, s.registry), err)
			}
		}()
	}
	wg.Wait()

	s.running = false
	errs = append(errs, stopErrs...)
	if err := errors.Join(errs...); err != nil {
		s.logger.Error("server stopped with errors", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("server stopped", slog.String("address", s.Address()))
	return nil
}

func (s *Server) translate(ctx context.Context, raw any) (*domain.Request, error) {
	if s.hooks.Translator == nil {
		return nil, domain.NotImplemented("TranslateIncomingMessage")
	}
	req, err := s.hooks.Translator.TranslateIncomingMessage(ctx, raw)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, errors.New("translator returned no request")
	}
	if req.ID == "" {
		req = req.WithID(uuid.NewString())
	}
	return req, nil
}

func (s *Server) findBackend(ctx context.Context, req *domain.Request) (string, ports.Backend, error) {
	if s.hooks.Finder == nil {
		return "", nil, domain.ErrBackendNotFound
	}
	alias, b, ok := s.hooks.Finder.FindBackend(ctx, req, s.registry)
	if !ok || b == nil {
		return "", nil, domain.ErrBackendNotFound
	}
	return alias, b, nil
}

// fail emits the error event and records err on the span. It returns err
// unchanged so callers can return it directly.
func (s *Server) fail(ctx context.Context, span trace.Span, req *domain.Request, alias, desc string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, desc)

	attrs := []slog.Attr{
		slog.String("step", desc),
		slog.String("error", err.Error()),
	}
	if req != nil {
		attrs = append(attrs, slog.String("request_id", req.ID))
	}
	if alias != "" {
		attrs = append(attrs, slog.String("alias", alias))
	}
	s.logger.LogAttrs(ctx, slog.LevelWarn, "request failed", attrs...)

	s.events.EmitError(ctx, &domain.ErrorEvent{
		Request:     req,
		Alias:       alias,
		Description: desc,
		Err:         err,
		Timestamp:   time.Now(),
	})
	return err
}

// describe names a backend for logs: its name, else its first alias.
func describe(b ports.Backend, r *backend.Registry) string {
	if name := b.Name(); name != "" {
		return name
	}
	if aliases := r.AliasesOf(b); len(aliases) > 0 {
		return aliases[0]
	}
	return fmt.Sprintf("%T", b)
}
