package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/bare-gateway/internal/core/domain"
	"github.com/tjfontaine/bare-gateway/internal/core/ports"
)

// DefaultListLimit caps ListEvents when no limit is given.
const DefaultListLimit = 100

// Store is an in-memory implementation of ports.EventStore.
// Events are kept in append order; MaxEvents bounds retention when positive.
type Store struct {
	mu        sync.RWMutex
	events    []*domain.EventRecord
	maxEvents int
}

var _ ports.EventStore = (*Store)(nil)

// New creates a new in-memory store
func New() *Store {
	return &Store{}
}

// NewBounded creates a store that keeps only the most recent max events.
func NewBounded(max int) *Store {
	return &Store{maxEvents: max}
}

func (s *Store) AppendEvent(ctx context.Context, event *domain.EventRecord) error {
	if event == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	cp := *event

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, &cp)
	if s.maxEvents > 0 && len(s.events) > s.maxEvents {
		s.events = append([]*domain.EventRecord(nil), s.events[len(s.events)-s.maxEvents:]...)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, opts ports.EventListOptions) ([]*domain.EventRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EventRecord
	skipped := 0
	for i := len(s.events) - 1; i >= 0 && len(result) < limit; i-- {
		e := s.events[i]
		if opts.RequestID != "" && e.RequestID != opts.RequestID {
			continue
		}
		if opts.Type != "" && e.Type != opts.Type {
			continue
		}
		if opts.Alias != "" && e.Alias != opts.Alias {
			continue
		}
		if skipped < opts.Offset {
			skipped++
			continue
		}
		cp := *e
		result = append(result, &cp)
	}
	return result, nil
}

// Len returns the number of retained events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *Store) Close() error {
	return nil
}
