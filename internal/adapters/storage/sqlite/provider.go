// Package sqlite backs the gateway's lifecycle event log with a SQLite file.
package sqlite

import (
	"github.com/tjfontaine/bare-gateway/internal/core/ports"
	"github.com/tjfontaine/bare-gateway/internal/storage/sqldb"
)

// Provider is the event log the runtime opens for storage.type "sqlite".
// Request, response and error events are appended by the direct publisher
// and read back newest first by GET /v1/events.
type Provider struct {
	*sqldb.Store
	path string
}

var _ ports.EventStore = (*Provider)(nil)

// NewProvider opens the event log at path, creating the file and the events
// table when missing. ":memory:" keeps the log for the life of the process.
func NewProvider(path string) (*Provider, error) {
	store, err := sqldb.NewSQLite(path)
	if err != nil {
		return nil, err
	}
	return &Provider{Store: store, path: path}, nil
}

// Path returns the database location the log was opened from.
func (p *Provider) Path() string {
	return p.path
}
