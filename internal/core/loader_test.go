package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const sourceHeader = "region,trending_date,category_title,videos_count\n"

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExtractYear(t *testing.T) {
	tests := []struct {
		locator string
		want    int
		wantErr bool
	}{
		{locator: "trending_by_time_2021.csv", want: 2021},
		{locator: "/data/in/trending_by_time_2018.csv", want: 2018},
		{locator: "TRENDING_BY_TIME_2019.CSV", want: 2019},
		{locator: "export-2020.csv", want: 2020},
		{locator: "2019_to_2020.csv", want: 2020},
		{locator: "trends_2022_v12.csv", want: 2022},
		{locator: "trending.csv", wantErr: true},
		{locator: "trending_21.csv", wantErr: true},
		{locator: "trending_202100.csv", wantErr: true},
		{locator: "/data/2021/trending.csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.locator, func(t *testing.T) {
			got, err := ExtractYear(tt.locator)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnresolvableYear)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoader_Load_WellFormed(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "trending_by_time_2021.csv", sourceHeader+
		"US,2021-01-15T00:00:00Z,Music,10\n"+
		"BR,2021-01-15T00:00:00Z,Gaming,\"1,234\"\n"+
		"US,2021-01-16T00:00:00Z,Music,3\n")

	l := NewLoader(NewNormalizer(0), unicode.UTF8)
	batch, err := l.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "trending_by_time_2021.csv", batch.Source)
	assert.Equal(t, 2021, batch.Year)
	assert.Equal(t, 3, batch.RowsRead)
	assert.Empty(t, batch.Rejected)
	assert.Zero(t, batch.OffYear)
	require.Len(t, batch.Records, 3)
	assert.Equal(t, TrendingRecord{Region: "BR", TrendingDate: "2021-01-15", CategoryTitle: "Gaming", VideosCount: 1234}, batch.Records[1])
}

func TestLoader_Load_PartialSuccess(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "trending_by_time_2021.csv", sourceHeader+
		"US,2021-01-15,Music,10\n"+
		"US,2021-01-15,Comedy,\"1,234*\"\n"+
		"\n"+
		",2021-01-15,Comedy,2\n"+
		"US,not-a-date,Comedy,2\n"+
		"US,2021-01-16,Music,4\n")

	l := NewLoader(NewNormalizer(0), unicode.UTF8)
	batch, err := l.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 5, batch.RowsRead, "blank line is not a row")
	require.Len(t, batch.Records, 2)
	require.Len(t, batch.Rejected, 3)

	assert.ErrorIs(t, batch.Rejected[0], ErrMalformedCount)
	assert.Equal(t, 3, batch.Rejected[0].Line)
	assert.ErrorIs(t, batch.Rejected[1], ErrMissingField)
	assert.Equal(t, 5, batch.Rejected[1].Line)
	assert.ErrorIs(t, batch.Rejected[2], ErrMalformedDate)
	assert.Equal(t, 6, batch.Rejected[2].Line)
}

func TestLoader_Load_HeaderOnly(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "trending_by_time_2022.csv", sourceHeader)

	batch, err := NewLoader(NewNormalizer(0), unicode.UTF8).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, batch.Records)
	assert.Zero(t, batch.RowsRead)
	assert.Equal(t, 2022, batch.Year)
}

func TestLoader_Load_ExtraColumnsAndOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "trending_by_time_2020.csv",
		"videos_count,extra,Category_Title,Region,TRENDING_DATE\n"+
			"7,ignored,News,DE,2020-08-12 00:00:00+00:00\n")

	batch, err := NewLoader(NewNormalizer(0), unicode.UTF8).Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)
	assert.Equal(t, TrendingRecord{Region: "DE", TrendingDate: "2020-08-12", CategoryTitle: "News", VideosCount: 7}, batch.Records[0])
}

func TestLoader_Load_SourceErrors(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(NewNormalizer(0), unicode.UTF8)

	t.Run("no year token", func(t *testing.T) {
		path := writeSource(t, dir, "trending.csv", sourceHeader+"US,2021-01-15,Music,1\n")
		_, err := l.Load(context.Background(), path)
		assert.ErrorIs(t, err, ErrUnresolvableYear)
	})

	t.Run("missing columns", func(t *testing.T) {
		path := writeSource(t, dir, "trending_by_time_2019.csv", "region,trending_date\nUS,2019-01-01\n")
		_, err := l.Load(context.Background(), path)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingColumns)
		assert.Contains(t, err.Error(), "category_title")
		assert.Contains(t, err.Error(), "videos_count")
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeSource(t, dir, "trending_by_time_2018.csv", "")
		_, err := l.Load(context.Background(), path)
		assert.ErrorIs(t, err, ErrMissingColumns)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := l.Load(context.Background(), filepath.Join(dir, "trending_by_time_2017.csv"))
		assert.ErrorIs(t, err, ErrUnreadableSource)
	})
}

func TestLoader_Load_OffYearRowsKept(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "trending_by_time_2021.csv", sourceHeader+
		"US,2021-12-31,Music,1\n"+
		"US,2022-01-01,Music,2\n")

	batch, err := NewLoader(NewNormalizer(0), unicode.UTF8).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, batch.Records, 2)
	assert.Equal(t, 1, batch.OffYear)
}

func TestLoader_Load_SentinelDropped(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "trending_by_time_2021.csv", sourceHeader+
		"US*,2021-01-15,Music*,1*\n"+
		"US,2021-01-15,Music,1\n")

	batch, err := NewLoader(NewNormalizer(0.5), unicode.UTF8).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Dropped)
	assert.Empty(t, batch.Rejected)
	assert.Len(t, batch.Records, 1)
}

func TestLoader_Load_Latin1(t *testing.T) {
	encoded, err := charmap.ISO8859_1.NewEncoder().String(sourceHeader + "FR,2021-01-15,Musique & Vidéo,4\n")
	require.NoError(t, err)

	dir := t.TempDir()
	path := writeSource(t, dir, "trending_by_time_2021.csv", encoded)

	batch, err := NewLoader(NewNormalizer(0), charmap.ISO8859_1).Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)
	assert.Equal(t, "Musique & Vidéo", batch.Records[0].CategoryTitle)
}

func TestLoader_Load_UTF8BOMWithLatin1Default(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "trending_by_time_2021.csv", "\xEF\xBB\xBF"+sourceHeader+"JP,2021-01-15,音楽,4\n")

	batch, err := NewLoader(NewNormalizer(0), charmap.ISO8859_1).Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)
	assert.Equal(t, "音楽", batch.Records[0].CategoryTitle)
}

func TestLoader_Load_Cancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "trending_by_time_2021.csv", sourceHeader+strings.Repeat("US,2021-01-15,Music,1\n", 10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(NewNormalizer(0), unicode.UTF8).Load(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
