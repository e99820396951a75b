// Package direct provides a direct event publisher that writes to storage.
package direct

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tjfontaine/bare-gateway/internal/core/domain"
	"github.com/tjfontaine/bare-gateway/internal/core/ports"
	"github.com/tjfontaine/bare-gateway/internal/events"
)

// Publisher implements ports.EventPublisher by writing directly to storage.
// This is the default implementation for single-instance deployments.
type Publisher struct {
	store ports.EventStore
}

var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a new direct event publisher.
func NewPublisher(store ports.EventStore) (*Publisher, error) {
	if store == nil {
		return nil, fmt.Errorf("event store required")
	}
	return &Publisher{store: store}, nil
}

// Publish writes an event record directly to storage.
func (p *Publisher) Publish(ctx context.Context, event *domain.EventRecord) error {
	return p.store.AppendEvent(ctx, event)
}

// Close is a no-op; the store is owned by the caller.
func (p *Publisher) Close() error {
	return nil
}

// Recorder is an events.Listener that turns lifecycle events into records
// and hands them to a publisher. Publish failures are logged, never returned
// to the request path.
type Recorder struct {
	publisher ports.EventPublisher
	logger    *slog.Logger
}

var _ events.Listener = (*Recorder)(nil)

// NewRecorder creates a listener publishing to p.
func NewRecorder(p ports.EventPublisher, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{publisher: p, logger: logger}
}

func (r *Recorder) OnRequest(ctx context.Context, ev *domain.RequestEvent) {
	rec := &domain.EventRecord{
		Type:      domain.EventRequest,
		RequestID: requestID(ev.Request),
		Payload:   marshal(paramsOf(ev.Request)),
		CreatedAt: ev.Timestamp,
	}
	r.publish(ctx, rec)
}

func (r *Recorder) OnResponse(ctx context.Context, ev *domain.ResponseEvent) {
	rec := &domain.EventRecord{
		Type:      domain.EventResponse,
		RequestID: requestID(ev.Request),
		Alias:     ev.Alias,
		Payload:   marshal(ev.Response),
		CreatedAt: ev.Timestamp,
	}
	r.publish(ctx, rec)
}

func (r *Recorder) OnError(ctx context.Context, ev *domain.ErrorEvent) {
	desc := ev.Description
	if ev.Err != nil {
		desc = ev.Err.Error()
	}
	rec := &domain.EventRecord{
		Type:        domain.EventError,
		RequestID:   requestID(ev.Request),
		Alias:       ev.Alias,
		Description: desc,
		CreatedAt:   ev.Timestamp,
	}
	r.publish(ctx, rec)
}

func (r *Recorder) publish(ctx context.Context, rec *domain.EventRecord) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	// Recording must outlive a request context that is about to be cancelled.
	if err := r.publisher.Publish(context.WithoutCancel(ctx), rec); err != nil {
		r.logger.Error("failed to publish event",
			slog.String("type", string(rec.Type)),
			slog.String("request_id", rec.RequestID),
			slog.String("error", err.Error()),
		)
	}
}

func requestID(req *domain.Request) string {
	if req == nil {
		return ""
	}
	return req.ID
}

func paramsOf(req *domain.Request) domain.Params {
	if req == nil {
		return nil
	}
	return req.Params
}

func marshal(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
