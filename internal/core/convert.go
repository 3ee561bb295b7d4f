package core

// convert.go provides conversion functions from raw CSV cells to typed values.
//
// These functions handle the messy reality of exported trending data:
//   - ISO timestamps where only the date matters
//   - Several date layouts (ISO, US, the dataset's own yy.dd.mm)
//   - Thousands separators in counts
//   - Excel formula prefixes (="value") and stray quotes
//
// Conversions never invent values: anything that does not parse is an error
// wrapping ErrMalformedDate or ErrMalformedCount.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Count formats accepted after cleanup.
var (
	plainCountRegex    = regexp.MustCompile(`^\+?\d+$`)
	groupedCountRegex  = regexp.MustCompile(`^\+?\d{1,3}(,\d{3})+$`)
	integralCountRegex = regexp.MustCompile(`^\+?\d+\.0*$`)
)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling
var (
	// Timestamps keep their own wall-clock date; no timezone conversion.
	timestampLayouts = []string{
		time.RFC3339,
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
	// "06.02.01" is the trending dataset's yy.dd.mm layout.
	twoDigitYearLayouts = []string{
		"06.02.01",
		"1/2/06", "01/02/06", "1-2-06",
	}
)

// ToCanonicalDate parses a trending date and returns it as YYYY-MM-DD.
// Returns an error wrapping ErrMalformedDate if no layout matches.
func ToCanonicalDate(s string) (string, error) {
	s = CleanCell(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty trending_date", ErrMalformedDate)
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), nil
		}
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), nil
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() > pivotYear {
			t = t.AddDate(-100, 0, 0)
		}
		return t.Format(DateLayout), nil
	}

	return "", fmt.Errorf("%w: %q", ErrMalformedDate, s)
}

// ToCount parses a non-negative integer count.
// Accepts plain digits, comma-grouped thousands ("1,234") and integral
// decimals ("12.0"). Anything else, including annotation markers such as
// a trailing '*', is rejected with ErrMalformedCount.
func ToCount(s string) (int64, error) {
	s = CleanCell(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty videos_count", ErrMalformedCount)
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: negative value %q", ErrMalformedCount, s)
	}

	var digits string
	switch {
	case plainCountRegex.MatchString(s):
		digits = s
	case groupedCountRegex.MatchString(s):
		digits = strings.ReplaceAll(s, ",", "")
	case integralCountRegex.MatchString(s):
		digits = s[:strings.IndexByte(s, '.')]
	default:
		return 0, fmt.Errorf("%w: %q", ErrMalformedCount, s)
	}

	n, err := strconv.ParseInt(strings.TrimPrefix(digits, "+"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedCount, s, err)
	}
	return n, nil
}

// ToText trims surrounding whitespace from a text field and rejects empty
// values with ErrMissingField. Quotes and other characters are kept.
func ToText(name, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMissingField, name)
	}
	return s, nil
}

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are lowercased for case-insensitive matching.
// When a column name repeats, the first occurrence wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, dup := idx[key]; dup {
			continue
		}
		idx[key] = i
	}
	return idx
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
