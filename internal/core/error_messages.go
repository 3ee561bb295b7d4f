// Package core provides the domain logic of the trending-aggregate loader.
//
// # Error Codes Reference
//
// Every failure the loader reports carries a short code so a run summary
// line can be matched to this table without reading logs.
//
// # Row Errors (VAL001-VAL099)
//
// A rejected row is skipped; the rest of the source still loads.
//
//	VAL001 - Malformed date: trending_date could not be parsed
//	         Action: Use YYYY-MM-DD or an ISO timestamp
//
//	VAL002 - Malformed count: videos_count is not a non-negative integer
//	         Action: Remove annotation markers such as '*' from the count
//
//	VAL003 - Missing field: region or category_title is empty
//	         Action: Fill in the empty cell
//
//	VAL004 - Marked row: row dropped by the sentinel policy
//	         Action: None; the row was flagged as incomplete upstream
//
// # Source Errors (SRC001-SRC099)
//
// A failed source is skipped; other sources in the run are unaffected.
//
//	SRC001 - Unresolvable year: file name has no 4-digit year token
//	         Action: Rename the file to trending_by_time_YYYY.csv
//
//	SRC002 - Missing columns: header lacks a required column
//	         Action: Ensure region, trending_date, category_title and videos_count are present
//
//	SRC003 - Unreadable source: the file could not be opened or parsed as CSV
//	         Action: Check file permissions and encoding
//
// # Store Errors (DB001-DB099)
//
//	DB001 - Store write failed: the batch was rolled back, nothing was added
//	        Action: Re-run; the year is still unloaded
//
//	DB002 - Store unreachable: the database could not be opened or queried
//	        Action: Check store_path / database_url and permissions
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - Export write failed: the export file could not be written
//	         Action: Check that export_path is writable
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Check the logs for the original error
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Row-level errors. Recoverable: the row is skipped.
var (
	ErrMalformedDate  = errors.New("malformed date")
	ErrMalformedCount = errors.New("malformed count")
	ErrMissingField   = errors.New("missing field")
	ErrSentinelRow    = errors.New("sentinel-marked row")
)

// Source-level errors. Recoverable: the source is skipped.
var (
	ErrUnresolvableYear = errors.New("unresolvable year")
	ErrMissingColumns   = errors.New("missing required columns")
	ErrUnreadableSource = errors.New("unreadable source")
)

// Operation-level errors.
var (
	ErrStoreWrite       = errors.New("store write failed")
	ErrExportWrite      = errors.New("export write failed")
	ErrStoreUnreachable = errors.New("store unreachable")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorKind struct {
	target error
	msg    UserMessage
}

// errorKinds is matched with errors.Is, first match wins.
// Store errors come after row and source errors so a wrapped row error
// inside a store message is still reported by its most specific kind.
var errorKinds = []errorKind{
	{ErrMalformedDate, UserMessage{"Malformed date", "Use YYYY-MM-DD or an ISO timestamp", "VAL001"}},
	{ErrMalformedCount, UserMessage{"Malformed count", "Remove annotation markers such as '*' from the count", "VAL002"}},
	{ErrMissingField, UserMessage{"Missing field", "Fill in the empty cell", "VAL003"}},
	{ErrSentinelRow, UserMessage{"Row flagged by sentinel markers", "None; the row was flagged as incomplete upstream", "VAL004"}},
	{ErrUnresolvableYear, UserMessage{"No 4-digit year in file name", "Rename the file to trending_by_time_YYYY.csv", "SRC001"}},
	{ErrMissingColumns, UserMessage{"Required column missing", "Ensure region, trending_date, category_title and videos_count are present", "SRC002"}},
	{ErrUnreadableSource, UserMessage{"Source could not be read", "Check file permissions and encoding", "SRC003"}},
	{ErrStoreWrite, UserMessage{"Store write failed; batch rolled back", "Re-run; the year is still unloaded", "DB001"}},
	{ErrStoreUnreachable, UserMessage{"Store unreachable", "Check store_path / database_url and permissions", "DB002"}},
	{ErrExportWrite, UserMessage{"Export file could not be written", "Check that export_path is writable", "EXP001"}},
	{context.Canceled, UserMessage{"Run cancelled", "Re-run when ready", "RUN001"}},
	{context.DeadlineExceeded, UserMessage{"Run timed out", "Re-run when ready", "RUN002"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for the original error",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
// Returns the zero UserMessage for nil and the ERR000 fallback for errors
// outside the taxonomy.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
	}
	return defaultMessage
}

// ErrorCode returns the support code for err, or "" for nil.
func ErrorCode(err error) string {
	return MapError(err).Code
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStoreUnreachable) ||
		errors.Is(err, ErrExportWrite) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Summarize joins distinct codes of errs as "CODE xN" pairs, in first-seen order.
func Summarize(errs []RowError) string {
	if len(errs) == 0 {
		return ""
	}
	counts := make(map[string]int)
	var order []string
	for _, e := range errs {
		code := ErrorCode(e)
		if counts[code] == 0 {
			order = append(order, code)
		}
		counts[code]++
	}
	parts := make([]string, len(order))
	for i, code := range order {
		parts[i] = fmt.Sprintf("%s x%d", code, counts[code])
	}
	return strings.Join(parts, ", ")
}
