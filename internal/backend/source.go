package backend

import (
	"context"
	"errors"
	"time"

	"audit-analytics/internal/audit"
)

// Source fetches every record of one hotel from an upstream system.
type Source interface {
	Fetch(ctx context.Context, hotelID string) (*audit.Snapshot, error)
}

// Config holds the connection settings of the hosted audit backend.
type Config struct {
	// BaseURL and APIKey address the PostgREST-style HTTP API.
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// DatabaseURL, when set, reads the same tables straight from Postgres.
	DatabaseURL string
}

// ErrNotConfigured is returned when neither a database nor an HTTP backend is set.
var ErrNotConfigured = errors.New("no backend configured: set DATABASE_URL or BACKEND_URL")

// NewSource picks the Postgres source when a database URL is configured and the
// REST source otherwise. The returned close function releases the connection.
func NewSource(cfg Config) (Source, func() error, error) {
	switch {
	case cfg.DatabaseURL != "":
		db, err := OpenDB(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLSource(db), db.Close, nil
	case cfg.BaseURL != "":
		return NewRESTSource(cfg), func() error { return nil }, nil
	}
	return nil, nil, ErrNotConfigured
}
