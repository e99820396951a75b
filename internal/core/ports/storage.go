package ports

import (
	"context"

	"github.com/tjfontaine/bare-gateway/internal/core/domain"
)

// EventStore persists lifecycle event records.
// Implementations: SQLite (default), in-memory.
type EventStore interface {
	// AppendEvent stores one event record.
	AppendEvent(ctx context.Context, event *domain.EventRecord) error

	// ListEvents returns events newest first.
	ListEvents(ctx context.Context, opts EventListOptions) ([]*domain.EventRecord, error)

	// Close releases the underlying resources.
	Close() error
}

// EventListOptions filters and paginates event listings.
type EventListOptions struct {
	RequestID string
	Type      domain.EventType
	Alias     string
	Limit     int
	Offset    int
}
