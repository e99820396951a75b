package backend

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/tjfontaine/bare-gateway/internal/core/domain"
	"github.com/tjfontaine/bare-gateway/internal/core/ports"
)

func newTestBackend(name string) *Func {
	return NewFunc(name, func(ctx context.Context, req ports.BackendRequest) (any, error) {
		return req.Alias, nil
	})
}

func TestRegistry_Add(t *testing.T) {
	t.Run("registers every alias to the same instance", func(t *testing.T) {
		r := NewRegistry()
		b := newTestBackend("")

		if err := r.Add(b, "svc", "svc2", "  padded  "); err != nil {
			t.Fatalf("Add() error = %v", err)
		}

		for _, alias := range []string{"svc", "svc2", "padded"} {
			got, ok := r.Get(alias)
			if !ok {
				t.Fatalf("Get(%q) not found", alias)
			}
			if got != b {
				t.Errorf("Get(%q) returned a different backend", alias)
			}
		}
		if len(r.Backends()) != 1 {
			t.Errorf("Backends() = %d, want 1", len(r.Backends()))
		}
	})

	t.Run("name is an implicit alias", func(t *testing.T) {
		r := NewRegistry()
		b := newTestBackend("named")

		if err := r.Add(b); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if !r.Has("named") {
			t.Error("expected name to be registered")
		}
		if err := r.Add(newTestBackend(""), "x"); err != nil {
			t.Fatal(err)
		}
		if got := r.Aliases(); !reflect.DeepEqual(got, []string{"named", "x"}) {
			t.Errorf("Aliases() = %v", got)
		}
	})

	t.Run("empty alias list on unnamed backend", func(t *testing.T) {
		r := NewRegistry()
		err := r.Add(newTestBackend(""))
		if !errors.Is(err, domain.ErrConfiguration) {
			t.Fatalf("Add() error = %v, want ErrConfiguration", err)
		}
		var dup *domain.DuplicateAliasError
		if errors.As(err, &dup) {
			t.Error("empty alias list is not a duplicate alias error")
		}
	})

	t.Run("blank alias", func(t *testing.T) {
		r := NewRegistry()
		err := r.Add(newTestBackend(""), "ok", "   ")
		if !errors.Is(err, domain.ErrConfiguration) {
			t.Fatalf("Add() error = %v, want ErrConfiguration", err)
		}
		if r.Len() != 0 {
			t.Errorf("registry mutated on failure: %v", r.Aliases())
		}
	})

	t.Run("nil backend", func(t *testing.T) {
		if err := NewRegistry().Add(nil, "a"); !errors.Is(err, domain.ErrConfiguration) {
			t.Errorf("Add(nil) error = %v", err)
		}
	})
}

func TestRegistry_DuplicateLeavesRegistryUnchanged(t *testing.T) {
	r := NewRegistry()
	first := newTestBackend("")
	if err := r.Add(first, "svc", "other"); err != nil {
		t.Fatal(err)
	}
	before := r.Aliases()

	second := newTestBackend("")
	err := r.Add(second, "fresh1", " svc ", "fresh2")

	var dup *domain.DuplicateAliasError
	if !errors.As(err, &dup) {
		t.Fatalf("Add() error = %v, want DuplicateAliasError", err)
	}
	if dup.Alias != "svc" {
		t.Errorf("colliding alias = %q, want svc", dup.Alias)
	}
	if got := r.Aliases(); !reflect.DeepEqual(got, before) {
		t.Errorf("Aliases() = %v, want %v", got, before)
	}
	if r.Has("fresh1") || r.Has("fresh2") {
		t.Error("partial registration left behind")
	}
	if got, _ := r.Get("svc"); got != first {
		t.Error("existing alias was overwritten")
	}
	if len(r.Backends()) != 1 {
		t.Errorf("Backends() = %d, want 1", len(r.Backends()))
	}
}

func TestRegistry_DuplicateWithinOneCall(t *testing.T) {
	tests := []struct {
		name    string
		backend *Func
		aliases []string
	}{
		{name: "repeated explicit alias", backend: newTestBackend(""), aliases: []string{"a", " a"}},
		{name: "name repeats explicit alias", backend: newTestBackend("a"), aliases: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			err := r.Add(tt.backend, tt.aliases...)
			var dup *domain.DuplicateAliasError
			if !errors.As(err, &dup) {
				t.Fatalf("Add() error = %v, want DuplicateAliasError", err)
			}
			if r.Len() != 0 {
				t.Errorf("registry mutated: %v", r.Aliases())
			}
		})
	}
}

func TestRegistry_SameBackendTwoCalls(t *testing.T) {
	r := NewRegistry()
	b := newTestBackend("")
	if err := r.Add(b, "a"); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(b, "b"); err != nil {
		t.Fatal(err)
	}

	if len(r.Backends()) != 1 {
		t.Errorf("Backends() = %d, want 1 distinct instance", len(r.Backends()))
	}
	if got := r.AliasesOf(b); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("AliasesOf() = %v", got)
	}
}

func TestRegistry_GetTrimsAndIsCaseSensitive(t *testing.T) {
	r := NewRegistry()
	b := newTestBackend("")
	if err := r.Add(b, "Svc"); err != nil {
		t.Fatal(err)
	}

	if _, ok := r.Get("  Svc\t"); !ok {
		t.Error("lookup should trim surrounding whitespace")
	}
	if _, ok := r.Get("svc"); ok {
		t.Error("lookup must be case-sensitive")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("unexpected hit for missing alias")
	}
}

// taggedBackend is a value type holding a map, so it cannot be compared.
type taggedBackend struct {
	Base
	tags map[string]string
}

func (taggedBackend) HandleRequest(ctx context.Context, req ports.BackendRequest) (domain.Response, error) {
	return nil, nil
}

func TestRegistry_RejectsUncomparableBackend(t *testing.T) {
	r := NewRegistry()
	b := taggedBackend{tags: map[string]string{"env": "dev"}}

	err := r.Add(b, "svc")
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("Add() error = %v, want configuration error", err)
	}
	if r.Len() != 0 || len(r.Backends()) != 0 {
		t.Errorf("registry changed: %v", r.Aliases())
	}
	if r.Contains(b) {
		t.Error("Contains() = true for rejected backend")
	}
	if got := r.AliasesOf(b); got != nil {
		t.Errorf("AliasesOf() = %v, want nil", got)
	}

	// A pointer to the same type is fine.
	if err := r.Add(&b, "svc"); err != nil {
		t.Fatalf("Add(&b) error = %v", err)
	}
	if !r.Contains(&b) {
		t.Error("Contains(&b) = false after registration")
	}
}
