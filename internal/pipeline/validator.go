package pipeline

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/JonMunkholm/trendload/internal/core"
)

// PreviewDates is how many dates the text rendering of a Summary lists.
const PreviewDates = 20

// DateCounter is the store query the Validator relies on.
type DateCounter interface {
	CountByDate(ctx context.Context) (map[string]int64, error)
}

// DateCount is the number of records stored for one trending date.
type DateCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// Summary is the per-date record count of the whole store.
type Summary struct {
	Dates []DateCount `json:"dates"`
	Total int64       `json:"total"`
}

// Validator reports what the store holds. It is informational only.
type Validator struct {
	store DateCounter
}

// NewValidator creates a Validator over store.
func NewValidator(store DateCounter) *Validator {
	return &Validator{store: store}
}

// Summarize returns the record count per date, sorted by date.
func (v *Validator) Summarize(ctx context.Context) (Summary, error) {
	counts, err := v.store.CountByDate(ctx)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{Dates: make([]DateCount, 0, len(counts))}
	for date, n := range counts {
		s.Dates = append(s.Dates, DateCount{Date: date, Count: n})
		s.Total += n
	}
	sort.Slice(s.Dates, func(i, j int) bool {
		return s.Dates[i].Date < s.Dates[j].Date
	})
	return s, nil
}

// WriteText renders the summary, listing at most limit dates.
// A limit of 0 or less lists every date.
func (s Summary) WriteText(w io.Writer, limit int) error {
	if len(s.Dates) == 0 {
		_, err := fmt.Fprintf(w, "No records in %s.\n", core.TableName)
		return err
	}

	if _, err := fmt.Fprintf(w, "Records per date in %s:\n", core.TableName); err != nil {
		return err
	}

	shown := s.Dates
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for _, dc := range shown {
		if _, err := fmt.Fprintf(w, "  %s  %d\n", dc.Date, dc.Count); err != nil {
			return err
		}
	}
	if more := len(s.Dates) - len(shown); more > 0 {
		if _, err := fmt.Fprintf(w, "  ... and %d more dates\n", more); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "Total: %d records across %d dates\n", s.Total, len(s.Dates))
	return err
}
