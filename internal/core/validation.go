package core

// validation.go checks a source header before any row is read.
//
// A missing required column disqualifies the whole source, unlike a bad
// cell which only disqualifies its row.

import (
	"fmt"
	"strings"
)

// ValidateHeaders validates that all required columns exist in the CSV headers.
// Returns a mapping from column name to index, or an error wrapping
// ErrMissingColumns listing every missing column.
func ValidateHeaders(headers []string, specs []FieldSpec) (HeaderIndex, error) {
	idx := MakeHeaderIndex(headers)
	var missing []string

	for _, spec := range specs {
		if !spec.Required {
			continue
		}
		if _, ok := idx[strings.ToLower(spec.Name)]; !ok {
			missing = append(missing, spec.Name)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	return idx, nil
}

// BuildRawRow picks the columns named by specs out of a CSV row.
// Cells past the end of a short row read as empty.
func BuildRawRow(row []string, idx HeaderIndex, specs []FieldSpec) RawRow {
	fields := make(map[string]string, len(specs))
	for _, spec := range specs {
		key := strings.ToLower(spec.Name)
		pos, ok := idx[key]
		if !ok || pos >= len(row) {
			fields[key] = ""
			continue
		}
		fields[key] = row[pos]
	}
	return RawRow{Fields: fields, Cells: row}
}

// isEmptyRow reports whether every cell is blank.
func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
