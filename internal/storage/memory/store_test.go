package memory

import (
	"context"
	"testing"

	"github.com/tjfontaine/bare-gateway/internal/core/domain"
	"github.com/tjfontaine/bare-gateway/internal/core/ports"
)

func TestMemoryStore_AppendAndList(t *testing.T) {
	store := New()
	ctx := context.Background()

	for _, e := range []*domain.EventRecord{
		{Type: domain.EventRequest, RequestID: "r1"},
		{Type: domain.EventResponse, RequestID: "r1", Alias: "svc"},
		{Type: domain.EventRequest, RequestID: "r2"},
	} {
		if err := store.AppendEvent(ctx, e); err != nil {
			t.Fatalf("AppendEvent() error = %v", err)
		}
	}

	all, err := store.ListEvents(ctx, ports.EventListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].RequestID != "r2" || all[2].Type != domain.EventRequest {
		t.Errorf("expected newest first, got %+v", all)
	}
	if all[0].ID == "" || all[0].CreatedAt.IsZero() {
		t.Error("AppendEvent should assign ID and timestamp")
	}

	byReq, _ := store.ListEvents(ctx, ports.EventListOptions{RequestID: "r1"})
	if len(byReq) != 2 {
		t.Errorf("by request len = %d, want 2", len(byReq))
	}

	byAlias, _ := store.ListEvents(ctx, ports.EventListOptions{Alias: "svc"})
	if len(byAlias) != 1 || byAlias[0].Type != domain.EventResponse {
		t.Errorf("by alias = %+v", byAlias)
	}

	page, _ := store.ListEvents(ctx, ports.EventListOptions{Type: domain.EventRequest, Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].RequestID != "r1" {
		t.Errorf("page = %+v", page)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := New()
	ctx := context.Background()

	in := &domain.EventRecord{Type: domain.EventRequest, RequestID: "r1"}
	_ = store.AppendEvent(ctx, in)
	in.RequestID = "mutated"

	got, _ := store.ListEvents(ctx, ports.EventListOptions{})
	got[0].Alias = "changed"

	again, _ := store.ListEvents(ctx, ports.EventListOptions{})
	if again[0].RequestID != "r1" || again[0].Alias != "" {
		t.Errorf("store leaked shared state: %+v", again[0])
	}
}

func TestMemoryStore_Bounded(t *testing.T) {
	store := NewBounded(2)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_ = store.AppendEvent(ctx, &domain.EventRecord{Type: domain.EventRequest, RequestID: id})
	}

	if store.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", store.Len())
	}
	got, _ := store.ListEvents(ctx, ports.EventListOptions{})
	if got[0].RequestID != "c" || got[1].RequestID != "b" {
		t.Errorf("unexpected retention %+v", got)
	}
}
