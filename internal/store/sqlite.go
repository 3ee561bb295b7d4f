package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/JonMunkholm/trendload/internal/core"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// sqliteSchemaVersion is stamped into PRAGMA user_version by EnsureSchema.
const sqliteSchemaVersion = 1

// SQLiteStore is the file-backed Store. It uses a single connection, so
// writes are serialized.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path, creating its parent
// directory if needed.
//
// The database is configured with:
//   - WAL mode so exports can read while nothing else writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, unreachable("open sqlite", fmt.Errorf("empty store path"))
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, unreachable("create storage directory", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, unreachable("open sqlite", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, unreachable("ping sqlite", err)
	}

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, unreachable("apply pragmas", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return unreachable("apply schema", err)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return unreachable("set user_version", err)
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, batch []core.TrendingRecord, load LoadRecord) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, writeFailed("begin transaction", err)
	}
	defer tx.Rollback() // No-op if already committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trending_by_time (region, trending_date, category_title, videos_count)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, writeFailed("prepare insert", err)
	}
	defer stmt.Close()

	for i, rec := range batch {
		if i%core.ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, writeFailed("append cancelled", err)
			}
		}
		if _, err := stmt.ExecContext(ctx, rec.Region, rec.TrendingDate, rec.CategoryTitle, rec.VideosCount); err != nil {
			return 0, writeFailed(fmt.Sprintf("insert record %d", i+1), err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO load_history (run_id, source, year, inserted, rejected, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		load.RunID,
		load.Source,
		load.Year,
		len(batch),
		load.Rejected,
		loadedAt(load).Format(time.RFC3339),
	); err != nil {
		return 0, writeFailed("insert load history", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, writeFailed("commit", err)
	}

	return len(batch), nil
}

func (s *SQLiteStore) HasYear(ctx context.Context, year int) (bool, error) {
	first, last := yearBounds(year)

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM trending_by_time
			WHERE trending_date >= ? AND trending_date <= ?
		)
	`, first, last).Scan(&exists)
	if err != nil {
		return false, unreachable("query year", err)
	}
	return exists, nil
}

func (s *SQLiteStore) CountByDate(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trending_date, COUNT(*)
		FROM trending_by_time
		GROUP BY trending_date
	`)
	if err != nil {
		return nil, unreachable("count by date", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var date string
		var n int64
		if err := rows.Scan(&date, &n); err != nil {
			return nil, unreachable("scan date count", err)
		}
		counts[date] = n
	}
	if err := rows.Err(); err != nil {
		return nil, unreachable("count by date", err)
	}
	return counts, nil
}

func (s *SQLiteStore) AllRecords(ctx context.Context) iter.Seq2[core.TrendingRecord, error] {
	return func(yield func(core.TrendingRecord, error) bool) {
		rows, err := s.db.QueryContext(ctx, `
			SELECT record_id, region, trending_date, category_title, videos_count
			FROM trending_by_time
			ORDER BY record_id
		`)
		if err != nil {
			yield(core.TrendingRecord{}, unreachable("scan records", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var rec core.TrendingRecord
			if err := rows.Scan(&rec.RecordID, &rec.Region, &rec.TrendingDate, &rec.CategoryTitle, &rec.VideosCount); err != nil {
				yield(core.TrendingRecord{}, unreachable("scan record", err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(core.TrendingRecord{}, unreachable("scan records", err))
		}
	}
}

func (s *SQLiteStore) LoadHistory(ctx context.Context, limit int) ([]LoadRecord, error) {
	query := `
		SELECT run_id, source, year, inserted, rejected, loaded_at
		FROM load_history
		ORDER BY id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unreachable("query load history", err)
	}
	defer rows.Close()

	var out []LoadRecord
	for rows.Next() {
		var lr LoadRecord
		var loadedAt string
		if err := rows.Scan(&lr.RunID, &lr.Source, &lr.Year, &lr.Inserted, &lr.Rejected, &loadedAt); err != nil {
			return nil, unreachable("scan load history", err)
		}
		lr.LoadedAt, _ = time.Parse(time.RFC3339, loadedAt)
		out = append(out, lr)
	}
	if err := rows.Err(); err != nil {
		return nil, unreachable("query load history", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func loadedAt(load LoadRecord) time.Time {
	if load.LoadedAt.IsZero() {
		return time.Now().UTC()
	}
	return load.LoadedAt.UTC()
}
