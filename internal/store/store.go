package store

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/JonMunkholm/trendload/internal/core"
)

// yearBounds returns the first and last canonical dates of year. Both ends
// are inclusive and stay within the year, so string comparison holds for
// every 4-digit year.
func yearBounds(year int) (first, last string) {
	return fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year)
}

// LoadRecord is one load_history row: a source appended by a run.
type LoadRecord struct {
	RunID    string    `json:"run_id"`
	Source   string    `json:"source"`
	Year     int       `json:"year"`
	Inserted int       `json:"inserted"` // Set by Append from the batch size
	Rejected int       `json:"rejected"`
	LoadedAt time.Time `json:"loaded_at"` // Defaults to now when zero
}

// Store is the relational home of TrendingRecords.
type Store interface {
	// EnsureSchema creates the tables if they do not exist. Idempotent.
	EnsureSchema(ctx context.Context) error

	// Append inserts batch and its history row in one transaction and
	// returns the number of records inserted. On error nothing is visible
	// and the error wraps core.ErrStoreWrite. An empty batch is a no-op.
	Append(ctx context.Context, batch []core.TrendingRecord, load LoadRecord) (int, error)

	// HasYear reports whether any record has a trending_date in year.
	HasYear(ctx context.Context, year int) (bool, error)

	// CountByDate returns the number of records per trending_date.
	CountByDate(ctx context.Context) (map[string]int64, error)

	// AllRecords yields every record ordered by record_id. Each call
	// starts a fresh scan.
	AllRecords(ctx context.Context) iter.Seq2[core.TrendingRecord, error]

	// LoadHistory returns the most recent history rows, newest first.
	// A limit of 0 or less returns all of them.
	LoadHistory(ctx context.Context, limit int) ([]LoadRecord, error)

	Close() error
}

// Options selects and configures a backend.
type Options struct {
	// Path is the SQLite database file. Used when URL is empty.
	Path string
	// URL is a PostgreSQL connection string. When set, Path is ignored.
	URL string
	// MaxConns caps the PostgreSQL pool. 0 keeps the pgx default.
	MaxConns int32
}

// Open connects to the backend named by opts. Connection failures wrap
// core.ErrStoreUnreachable.
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.URL != "" {
		return OpenPostgres(ctx, opts.URL, opts.MaxConns)
	}
	return OpenSQLite(ctx, opts.Path)
}

func unreachable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrStoreUnreachable, op, err)
}

func writeFailed(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrStoreWrite, op, err)
}
