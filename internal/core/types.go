package core

import "fmt"

// TableName is the relational table holding trending aggregates.
const TableName = "trending_by_time"

// DateLayout is the canonical textual form of a trending date.
const DateLayout = "2006-01-02"

// Column names, in table schema order.
const (
	ColRecordID      = "record_id"
	ColRegion        = "region"
	ColTrendingDate  = "trending_date"
	ColCategoryTitle = "category_title"
	ColVideosCount   = "videos_count"
)

// Columns lists the table columns in schema order.
// The export file uses the same order.
var Columns = []string{ColRecordID, ColRegion, ColTrendingDate, ColCategoryTitle, ColVideosCount}

// TrendingRecord is one aggregate: the number of trending videos for a
// (region, date, category) bucket.
type TrendingRecord struct {
	RecordID      int64  // Assigned by the store on insert; zero before that
	Region        string // Country or region code
	TrendingDate  string // YYYY-MM-DD
	CategoryTitle string
	VideosCount   int64
}

// Year returns the year component of TrendingDate, or 0 if the date is not canonical.
func (r TrendingRecord) Year() int {
	if len(r.TrendingDate) < 4 {
		return 0
	}
	y := 0
	for _, c := range r.TrendingDate[:4] {
		if c < '0' || c > '9' {
			return 0
		}
		y = y*10 + int(c-'0')
	}
	return y
}

// Row renders the record as CSV cells in Columns order.
func (r TrendingRecord) Row() []string {
	return []string{
		fmt.Sprintf("%d", r.RecordID),
		r.Region,
		r.TrendingDate,
		r.CategoryTitle,
		fmt.Sprintf("%d", r.VideosCount),
	}
}

// RawRow is a source row keyed by lowercase column name.
// Cells holds every cell of the row, used for sentinel detection.
type RawRow struct {
	Fields map[string]string
	Cells  []string
}

// Get returns the raw value of a column, or "" if absent.
func (r RawRow) Get(col string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[col]
}

// FieldSpec defines the rules for a single source column.
type FieldSpec struct {
	Name     string // Header name, matched case-insensitively
	Required bool   // Column must exist in the header
}

// SourceFields are the columns every yearly source must provide.
// Extra columns are ignored.
var SourceFields = []FieldSpec{
	{Name: ColRegion, Required: true},
	{Name: ColTrendingDate, Required: true},
	{Name: ColCategoryTitle, Required: true},
	{Name: ColVideosCount, Required: true},
}

// HeaderIndex maps column names (lowercase) to their position in the CSV row.
type HeaderIndex map[string]int

// RowError records a rejected source row.
type RowError struct {
	Line int   // 1-indexed line in the source file
	Err  error // Wraps one of the row-level sentinel errors
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// Batch is the normalized content of one yearly source.
type Batch struct {
	Source   string // Base file name
	Year     int
	Records  []TrendingRecord
	RowsRead int        // Non-empty data rows seen
	Rejected []RowError // Rows that failed normalization
	Dropped  int        // Rows dropped by the sentinel policy
	// OffYear counts records whose date is outside Year. They are kept.
	OffYear int
}

// RejectedCount returns the number of rejected rows.
func (b *Batch) RejectedCount() int {
	return len(b.Rejected)
}
