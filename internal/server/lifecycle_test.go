package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tjfontaine/bare-gateway/internal/backend"
)

type orderHooks struct {
	mu    sync.Mutex
	order *[]string
	start error
	stop  error
}

func (h *orderHooks) PerformStart(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.order = append(*h.order, "performStart")
	return h.start
}

func (h *orderHooks) PerformStop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.order = append(*h.order, "performStop")
	return h.stop
}

func TestStart_WaitsForEveryBackend(t *testing.T) {
	var mu sync.Mutex
	var order []string
	hooks := &orderHooks{order: &order}
	srv, _ := newTestServer(t, Options{Hooks: Hooks{Lifecycle: hooks}})

	delays := []time.Duration{30 * time.Millisecond, 0, 10 * time.Millisecond}
	var backends []*recordingBackend
	for i, d := range delays {
		b := &recordingBackend{delay: d}
		b.onStart = func() {
			mu.Lock()
			order = append(order, "backend")
			mu.Unlock()
		}
		backends = append(backends, b)
		srv.MustAddBackend(b, []string{"a", "b", "c"}[i])
	}

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for i, b := range backends {
		if got := b.starts.Load(); got != 1 {
			t.Errorf("backend %d started %d times, want 1", i, got)
		}
	}
	if len(order) != 4 || order[3] != "performStart" {
		t.Errorf("order = %v, want three backends then performStart", order)
	}
}

func TestStart_OncePerInstance(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	shared := &recordingBackend{Base: backend.NewBase("shared")}
	srv.MustAddBackend(shared, "x", "y")
	srv.MustAddBackend(shared, "z")

	if err := srv.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := srv.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}

	if shared.starts.Load() != 1 || shared.stops.Load() != 1 {
		t.Errorf("starts=%d stops=%d, want 1 each", shared.starts.Load(), shared.stops.Load())
	}
}

func TestStart_BackendFailure(t *testing.T) {
	var order []string
	hooks := &orderHooks{order: &order}
	srv, _ := newTestServer(t, Options{Hooks: Hooks{Lifecycle: hooks}})
	startErr := errors.New("port in use")
	srv.MustAddBackend(&recordingBackend{startErr: startErr}, "bad")
	srv.MustAddBackend(&recordingBackend{delay: 10 * time.Millisecond}, "good")

	err := srv.Start(context.Background())
	if !errors.Is(err, startErr) {
		t.Fatalf("Start() error = %v, want %v", err, startErr)
	}
	if len(order) != 0 {
		t.Errorf("performStart must not run after a backend failed: %v", order)
	}
}

func TestStop_HookRunsFirstAndAllBackendsStop(t *testing.T) {
	var order []string
	stopErr := errors.New("hook failed")
	hooks := &orderHooks{order: &order, stop: stopErr}
	srv, _ := newTestServer(t, Options{Hooks: Hooks{Lifecycle: hooks}})

	var backends []*recordingBackend
	for _, alias := range []string{"a", "b", "c"} {
		b := &recordingBackend{}
		backends = append(backends, b)
		srv.MustAddBackend(b, alias)
	}

	err := srv.Stop(context.Background())
	if !errors.Is(err, stopErr) {
		t.Fatalf("Stop() error = %v, want %v", err, stopErr)
	}
	if len(order) != 1 || order[0] != "performStop" {
		t.Errorf("order = %v", order)
	}
	for i, b := range backends {
		if b.stops.Load() != 1 {
			t.Errorf("backend %d stops = %d, want 1", i, b.stops.Load())
		}
	}
}

func TestRegisterBackend_StartsWhenRunning(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	if err := srv.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	late := &recordingBackend{}
	if err := srv.RegisterBackend(context.Background(), late, "late"); err != nil {
		t.Fatalf("RegisterBackend() error = %v", err)
	}
	if late.starts.Load() != 1 {
		t.Errorf("late backend starts = %d, want 1", late.starts.Load())
	}
	if err := srv.RegisterBackend(context.Background(), late, "late2"); err != nil {
		t.Fatal(err)
	}
	if late.starts.Load() != 1 {
		t.Errorf("adding an alias must not restart the backend, starts = %d", late.starts.Load())
	}

	if err := srv.RegisterBackend(context.Background(), &recordingBackend{}, "late"); err == nil {
		t.Error("expected duplicate alias error")
	}
}
