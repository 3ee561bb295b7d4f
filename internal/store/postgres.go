package store

import (
	"context"
	_ "embed"
	"fmt"
	"iter"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/trendload/internal/core"
)

//go:embed schema_postgres.sql
var postgresSchema string

// PostgresStore is the PostgreSQL-backed Store. Appends use the COPY
// protocol inside a transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool to databaseURL and verifies it with a ping.
func OpenPostgres(ctx context.Context, databaseURL string, maxConns int32) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, unreachable("parse database URL", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, unreachable("connect", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, unreachable("ping", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return unreachable("apply schema", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, batch []core.TrendingRecord, load LoadRecord) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	rows := make([][]any, len(batch))
	for i, rec := range batch {
		date, err := time.Parse(core.DateLayout, rec.TrendingDate)
		if err != nil {
			return 0, writeFailed(fmt.Sprintf("record %d", i+1), err)
		}
		rows[i] = []any{rec.Region, date, rec.CategoryTitle, rec.VideosCount}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, writeFailed("begin transaction", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{core.TableName},
		[]string{core.ColRegion, core.ColTrendingDate, core.ColCategoryTitle, core.ColVideosCount},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, writeFailed("copy records", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO load_history (run_id, source, year, inserted, rejected, loaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		load.RunID,
		load.Source,
		load.Year,
		n,
		load.Rejected,
		loadedAt(load),
	); err != nil {
		return 0, writeFailed("insert load history", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, writeFailed("commit", err)
	}

	return int(n), nil
}

func (s *PostgresStore) HasYear(ctx context.Context, year int) (bool, error) {
	first, last := yearBounds(year)

	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM trending_by_time
			WHERE trending_date >= $1::date AND trending_date <= $2::date
		)
	`, first, last).Scan(&exists)
	if err != nil {
		return false, unreachable("query year", err)
	}
	return exists, nil
}

func (s *PostgresStore) CountByDate(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT to_char(trending_date, 'YYYY-MM-DD'), COUNT(*)
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

func (s *PostgresStore) AllRecords(ctx context.Context) iter.Seq2[core.TrendingRecord, error] {
	return func(yield func(core.TrendingRecord, error) bool) {
		rows, err := s.pool.Query(ctx, `
			SELECT record_id, region, to_char(trending_date, 'YYYY-MM-DD'), category_title, videos_count
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

func (s *PostgresStore) LoadHistory(ctx context.Context, limit int) ([]LoadRecord, error) {
	query := `
		SELECT run_id, source, year, inserted, rejected, loaded_at
		FROM load_history
		ORDER BY id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, unreachable("query load history", err)
	}
	defer rows.Close()

	var out []LoadRecord
	for rows.Next() {
		var lr LoadRecord
		if err := rows.Scan(&lr.RunID, &lr.Source, &lr.Year, &lr.Inserted, &lr.Rejected, &lr.LoadedAt); err != nil {
			return nil, unreachable("scan load history", err)
		}
		lr.LoadedAt = lr.LoadedAt.UTC()
		out = append(out, lr)
	}
	if err := rows.Err(); err != nil {
		return nil, unreachable("query load history", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
