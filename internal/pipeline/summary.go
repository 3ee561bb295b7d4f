package pipeline

import (
	"fmt"
	"io"
	"time"
)

// Outcome is what happened to one source in a run.
type Outcome string

const (
	OutcomeLoaded  Outcome = "loaded"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Exit codes derived from a run.
const (
	ExitOK      = 0 // Every source loaded (or none found) and the export succeeded
	ExitPartial = 1 // The run completed but some source was skipped or failed
	ExitFatal   = 2 // The run was aborted
)

// SourceResult is the outcome of one source.
type SourceResult struct {
	Source   string  `json:"source"`
	Year     int     `json:"year,omitempty"`
	Outcome  Outcome `json:"outcome"`
	Inserted int     `json:"inserted"`
	Rejected int     `json:"rejected"`
	Dropped  int     `json:"dropped"`
	OffYear  int     `json:"off_year,omitempty"`
	// RejectCodes summarizes rejected rows as "CODE xN" pairs.
	RejectCodes string `json:"reject_codes,omitempty"`
	Error       string `json:"error,omitempty"`
	Code        string `json:"code,omitempty"`
}

// ExportResult is the outcome of the export step.
type ExportResult struct {
	Path  string `json:"path"`
	Rows  int    `json:"rows"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// RunSummary reports a whole run.
type RunSummary struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	Duration   time.Duration  `json:"duration_ns"`
	Sources    []SourceResult `json:"sources"`
	Validation *Summary       `json:"validation,omitempty"`
	Export     *ExportResult  `json:"export,omitempty"`
	// Aborted holds the reason a run stopped early.
	Aborted string `json:"aborted,omitempty"`
}

// Count returns how many sources ended with outcome.
func (s *RunSummary) Count(outcome Outcome) int {
	n := 0
	for _, r := range s.Sources {
		if r.Outcome == outcome {
			n++
		}
	}
	return n
}

// Inserted returns the total records appended by the run.
func (s *RunSummary) Inserted() int {
	n := 0
	for _, r := range s.Sources {
		n += r.Inserted
	}
	return n
}

// ExitCode maps the run to a process exit status.
func (s *RunSummary) ExitCode() int {
	if s.Aborted != "" || (s.Export != nil && s.Export.Error != "") {
		return ExitFatal
	}
	if s.Count(OutcomeSkipped) > 0 || s.Count(OutcomeFailed) > 0 {
		return ExitPartial
	}
	return ExitOK
}

// WriteText renders the summary for a terminal.
func (s *RunSummary) WriteText(w io.Writer) error {
	p := &errWriter{w: w}

	p.printf("Run %s\n", s.RunID)
	if len(s.Sources) == 0 {
		p.printf("No sources found.\n")
	}
	for _, r := range s.Sources {
		switch r.Outcome {
		case OutcomeLoaded:
			p.printf("  %-8s %s (year %d): %d inserted, %d rejected", r.Outcome, r.Source, r.Year, r.Inserted, r.Rejected)
			if r.Dropped > 0 {
				p.printf(", %d dropped", r.Dropped)
			}
			if r.RejectCodes != "" {
				p.printf(" [%s]", r.RejectCodes)
			}
			p.printf("\n")
		case OutcomeSkipped:
			p.printf("  %-8s %s (year %d): already loaded\n", r.Outcome, r.Source, r.Year)
		default:
			p.printf("  %-8s %s: %s (Code: %s)\n", r.Outcome, r.Source, r.Error, r.Code)
		}
	}

	if s.Export != nil {
		if s.Export.Error != "" {
			p.printf("Export failed: %s (Code: %s)\n", s.Export.Error, s.Export.Code)
		} else {
			p.printf("Exported %d rows to %s\n", s.Export.Rows, s.Export.Path)
		}
	}
	if s.Aborted != "" {
		p.printf("Run aborted: %s\n", s.Aborted)
	}

	p.printf("%d loaded, %d skipped, %d failed in %s\n",
		s.Count(OutcomeLoaded), s.Count(OutcomeSkipped), s.Count(OutcomeFailed),
		s.Duration.Round(time.Millisecond))
	return p.err
}

// errWriter keeps the first write error and turns later writes into no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
