// Package core provides the domain logic for loading trending-video aggregates.
//
// This package holds everything that does not touch the database: the
// record type, the row normalizer, header validation and the source loader.
// It can be used by the pipeline, the CLI or tests without modification.
//
// # Sources
//
// A source is one CSV file per year, named so that it embeds a 4-digit year
// token (canonically trending_by_time_YYYY.csv). Its header must contain
// region, trending_date, category_title and videos_count; extra columns are
// ignored.
//
// # Normalization
//
// [Normalizer] converts a raw row into a [TrendingRecord]:
//
//   - trending_date becomes YYYY-MM-DD (see [ToCanonicalDate])
//   - videos_count becomes a non-negative integer (see [ToCount])
//   - region and category_title are trimmed and must be non-empty
//
// Values are never defaulted. A row that fails conversion is rejected and
// counted; the rest of the source still loads.
//
// # Sentinel markers
//
// Upstream exports flag suppressed values with '*'. By default marked cells
// simply fail conversion. With a sentinel threshold configured, rows where
// enough cells are marked are dropped as a group instead (see
// [SentinelPolicy]).
//
// # Error Handling
//
// Errors wrap the sentinels declared in error_messages.go and map to short
// support codes via [MapError]:
//
//   - VAL001-VAL004: row errors (date, count, empty field, marked row)
//   - SRC001-SRC003: source errors (year token, columns, unreadable)
//   - DB001-DB002: store errors (write, unreachable)
//   - EXP001: export errors
package core
