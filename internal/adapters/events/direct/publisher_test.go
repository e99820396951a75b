package direct

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tjfontaine/bare-gateway/internal/adapters/storage/sqlite"
	"github.com/tjfontaine/bare-gateway/internal/core/domain"
	"github.com/tjfontaine/bare-gateway/internal/core/ports"
	"github.com/tjfontaine/bare-gateway/internal/events"
	"github.com/tjfontaine/bare-gateway/internal/storage/memory"
)

func TestNewPublisher_NilStorage(t *testing.T) {
	_, err := NewPublisher(nil)
	if err == nil {
		t.Fatal("Expected error for nil storage")
	}
	if err.Error() != "event store required" {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestPublish(t *testing.T) {
	store, err := sqlite.NewProvider(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	publisher, err := NewPublisher(store)
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}

	event := &domain.EventRecord{
		Type:      domain.EventRequest,
		RequestID: "test-request-123",
		CreatedAt: time.Now(),
	}
	if err := publisher.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	got, _ := store.ListEvents(context.Background(), ports.EventListOptions{RequestID: "test-request-123"})
	if len(got) != 1 {
		t.Errorf("expected stored event, got %d", len(got))
	}
	if err := publisher.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestRecorder_ThroughChannel(t *testing.T) {
	store := memory.New()
	publisher, _ := NewPublisher(store)

	ch := events.NewChannel(nil)
	ch.Subscribe(NewRecorder(publisher, nil))

	ctx := context.Background()
	req := &domain.Request{ID: "r1", Params: domain.Params{"q": "hi"}}
	ch.EmitRequest(ctx, &domain.RequestEvent{Request: req, Timestamp: time.Now()})
	ch.EmitResponse(ctx, &domain.ResponseEvent{Request: req, Alias: "svc", Response: map[string]string{"a": "b"}, Timestamp: time.Now()})
	ch.EmitError(ctx, &domain.ErrorEvent{Description: "translate", Err: errors.New("bad json")})

	got, _ := store.ListEvents(ctx, ports.EventListOptions{})
	if len(got) != 3 {
		t.Fatalf("stored %d events, want 3", len(got))
	}

	errEv, resp, reqEv := got[0], got[1], got[2]
	if reqEv.Type != domain.EventRequest || reqEv.RequestID != "r1" || reqEv.Payload != `{"q":"hi"}` {
		t.Errorf("request record = %+v", reqEv)
	}
	if resp.Type != domain.EventResponse || resp.Alias != "svc" || resp.Payload != `{"a":"b"}` {
		t.Errorf("response record = %+v", resp)
	}
	if errEv.Type != domain.EventError || errEv.RequestID != "" || errEv.Description != "bad json" {
		t.Errorf("error record = %+v", errEv)
	}
	if errEv.CreatedAt.IsZero() {
		t.Error("error record should be timestamped")
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, *domain.EventRecord) error {
	return errors.New("disk full")
}
func (failingPublisher) Close() error { return nil }

func TestRecorder_PublishFailureIsSwallowed(t *testing.T) {
	r := NewRecorder(failingPublisher{}, nil)
	// Must not panic or block.
	r.OnRequest(context.Background(), &domain.RequestEvent{Request: &domain.Request{ID: "r1"}})
}
