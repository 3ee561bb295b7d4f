package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/JonMunkholm/trendload/internal/logging"
)

// ContextCheckInterval is how often (in rows) to check for context cancellation.
var ContextCheckInterval = 100

// progressLogInterval is how often (in rows) read progress is logged at debug.
const progressLogInterval = 10000

var (
	canonicalSourceRegex = regexp.MustCompile(`(?i)^trending_by_time_(\d{4})\.csv$`)
	digitRunRegex        = regexp.MustCompile(`\d+`)
)

// ExtractYear derives the year a source covers from its file name.
// The canonical name trending_by_time_YYYY.csv wins; otherwise the last
// standalone 4-digit run in the file stem is used.
func ExtractYear(locator string) (int, error) {
	base := filepath.Base(locator)

	if m := canonicalSourceRegex.FindStringSubmatch(base); m != nil {
		return strconv.Atoi(m[1])
	}

	stem := strings.TrimSuffix(base, filepath.Ext(base))
	runs := digitRunRegex.FindAllString(stem, -1)
	for i := len(runs) - 1; i >= 0; i-- {
		if len(runs[i]) == 4 {
			return strconv.Atoi(runs[i])
		}
	}

	return 0, fmt.Errorf("%w: no 4-digit year token in %q", ErrUnresolvableYear, base)
}

// Loader reads a yearly source file into a normalized Batch.
type Loader struct {
	normalizer Normalizer
	encoding   encoding.Encoding
	fields     []FieldSpec
}

// NewLoader creates a Loader decoding sources with enc.
func NewLoader(normalizer Normalizer, enc encoding.Encoding) *Loader {
	return &Loader{
		normalizer: normalizer,
		encoding:   enc,
		fields:     SourceFields,
	}
}

// Load reads and normalizes the source at path.
//
// Source-level problems (no year token, unreadable file, missing columns)
// return an error and no batch. Row-level problems are collected in
// Batch.Rejected and do not stop the load. A header with no data rows
// yields an empty batch.
func (l *Loader) Load(ctx context.Context, path string) (*Batch, error) {
	year, err := ExtractYear(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableSource, err)
	}
	defer f.Close()

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	return l.read(ctx, f, size, filepath.Base(path), year)
}

func (l *Loader) read(ctx context.Context, r io.Reader, size int64, source string, year int) (*Batch, error) {
	decoded, counter := WrapForStreaming(r, size, l.encoding)

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s has no header row", ErrMissingColumns, source)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrUnreadableSource, err)
	}

	idx, err := ValidateHeaders(header, l.fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	batch := &Batch{Source: source, Year: year}

	for i := 0; ; i++ {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("load %s cancelled: %w", source, err)
			}
		}
		if i > 0 && i%progressLogInterval == 0 {
			logging.FromContext(ctx).Debug("reading source", "source", source, "rows", i, "progress_pct", counter.Progress())
		}

		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadableSource, err)
		}
		line, _ := cr.FieldPos(0)

		if isEmptyRow(row) {
			continue
		}
		batch.RowsRead++

		rec, err := l.normalizer.Normalize(BuildRawRow(row, idx, l.fields))
		if errors.Is(err, ErrSentinelRow) {
			batch.Dropped++
			continue
		}
		if err != nil {
			batch.Rejected = append(batch.Rejected, RowError{Line: line, Err: err})
			continue
		}
		if rec.Year() != year {
			batch.OffYear++
		}
		batch.Records = append(batch.Records, rec)
	}

	logging.FromContext(ctx).Debug("source read",
		"source", source,
		"bytes", counter.BytesRead,
		"rows", batch.RowsRead,
		"records", len(batch.Records),
		"rejected", len(batch.Rejected),
		"dropped", batch.Dropped,
	)

	return batch, nil
}
