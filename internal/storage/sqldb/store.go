package sqldb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/bare-gateway/internal/core/domain"
	"github.com/tjfontaine/bare-gateway/internal/core/ports"
)

// DefaultListLimit caps ListEvents when no limit is given.
const DefaultListLimit = 100

// Store is a SQL implementation of ports.EventStore.
type Store struct {
	db *sqlx.DB
}

var _ ports.EventStore = (*Store)(nil)

// Config holds database connection configuration
type Config struct {
	Driver string // only "sqlite" is linked in
	DSN    string
}

// eventRow mirrors the events table. created_at is stored as unix nanoseconds
// so ordering does not depend on the driver's time formatting.
type eventRow struct {
	ID          string `db:"id"`
	Type        string `db:"type"`
	RequestID   string `db:"request_id"`
	Alias       string `db:"alias"`
	Description string `db:"description"`
	Payload     string `db:"payload"`
	CreatedAt   int64  `db:"created_at"`
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
}

// New creates a new SQL store with the specified configuration.
func New(cfg Config) (*Store, error) {
	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}
	if cfg.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and
	// serializes writers.
	db.SetMaxOpenConns(1)

	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewSQLite creates a new SQLite store at dbPath.
func NewSQLite(dbPath string) (*Store, error) {
	return New(Config{Driver: "sqlite", DSN: dbPath})
}

// DB returns the underlying sqlx.DB for advanced operations
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS events (
id TEXT PRIMARY KEY,
type TEXT NOT NULL,
request_id TEXT NOT NULL DEFAULT '',
alias TEXT NOT NULL DEFAULT '',
description TEXT NOT NULL DEFAULT '',
payload TEXT NOT NULL DEFAULT '',
created_at INTEGER NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_events_request ON events(request_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_alias ON events(alias)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(type)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// AppendEvent stores an event, assigning an ID and timestamp when missing.
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

	_, err := s.db.NamedExecContext(ctx, `INSERT INTO events (
id, type, request_id, alias, description, payload, created_at
) VALUES (:id, :type, :request_id, :alias, :description, :payload, :created_at)`, toRow(event))
	if err != nil {
		return fmt.Errorf("append event %s: %w", event.ID, err)
	}
	return nil
}

// ListEvents returns matching events newest first.
func (s *Store) ListEvents(ctx context.Context, opts ports.EventListOptions) ([]*domain.EventRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var (
		where []string
		args  []any
	)
	if opts.RequestID != "" {
		where = append(where, "request_id = ?")
		args = append(args, opts.RequestID)
	}
	if opts.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(opts.Type))
	}
	if opts.Alias != "" {
		where = append(where, "alias = ?")
		args = append(args, opts.Alias)
	}

	query := `SELECT id, type, request_id, alias, description, payload, created_at FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, limit, opts.Offset)

	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	events := make([]*domain.EventRecord, 0, len(rows))
	for _, r := range rows {
		events = append(events, fromRow(r))
	}
	return events, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func toRow(e *domain.EventRecord) eventRow {
	return eventRow{
		ID:          e.ID,
		Type:        string(e.Type),
		RequestID:   e.RequestID,
		Alias:       e.Alias,
		Description: e.Description,
		Payload:     e.Payload,
		CreatedAt:   e.CreatedAt.UnixNano(),
	}
}

func fromRow(r eventRow) *domain.EventRecord {
	return &domain.EventRecord{
		ID:          r.ID,
		Type:        domain.EventType(r.Type),
		RequestID:   r.RequestID,
		Alias:       r.Alias,
		Description: r.Description,
		Payload:     r.Payload,
		CreatedAt:   time.Unix(0, r.CreatedAt),
	}
}
