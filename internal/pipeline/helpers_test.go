package pipeline

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/trendload/internal/core"
	"github.com/JonMunkholm/trendload/internal/store"
)

const sourceHeader = "region,trending_date,category_title,videos_count\n"

var errStoreDown = errors.New("connection reset")

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	ctx := context.Background()
	s, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "database", "trending_by_time.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.EnsureSchema(ctx))
	return s
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func seed(t *testing.T, s store.Store, records ...core.TrendingRecord) {
	t.Helper()
	_, err := s.Append(context.Background(), records, store.LoadRecord{RunID: "seed", Source: "seed.csv"})
	require.NoError(t, err)
}

func rec(region, date, category string, count int64) core.TrendingRecord {
	return core.TrendingRecord{Region: region, TrendingDate: date, CategoryTitle: category, VideosCount: count}
}

// brokenStore fails every read with an unreachable-store error.
type brokenStore struct{}

func (brokenStore) HasYear(context.Context, int) (bool, error) {
	return false, errors.Join(core.ErrStoreUnreachable, errStoreDown)
}

func (brokenStore) CountByDate(context.Context) (map[string]int64, error) {
	return nil, errors.Join(core.ErrStoreUnreachable, errStoreDown)
}

func (brokenStore) AllRecords(context.Context) iter.Seq2[core.TrendingRecord, error] {
	return func(yield func(core.TrendingRecord, error) bool) {
		yield(core.TrendingRecord{}, errors.Join(core.ErrStoreUnreachable, errStoreDown))
	}
}

// failingAppendStore wraps a real store and rejects every append.
type failingAppendStore struct {
	store.Store
}

func (failingAppendStore) Append(context.Context, []core.TrendingRecord, store.LoadRecord) (int, error) {
	return 0, errors.Join(core.ErrStoreWrite, errors.New("disk I/O error"))
}
