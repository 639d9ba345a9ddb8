package model

import (
	"errors"
	"fmt"
)

// The pipeline distinguishes three failure classes:
//
//   - ConfigError: the mapping/spec is structurally unsatisfiable. Fatal,
//     aborts the whole run before any record is processed.
//   - RecordError: one record could not be assembled. The record is
//     skipped, the run continues, and the error is reported at the end.
//   - RoutingWarning: a record matched no calendar. Informational only.
//
// Week-view placement drops out-of-range events silently; that is a
// design decision of the layout, not an error, and is logged at debug
// level so it stays distinguishable from RecordErrors.

// ConfigError marks a fatal configuration problem.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "config: " + e.Msg }

// Configf builds a ConfigError from a format string.
func Configf(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Sentinel causes for unassemblable records.
var (
	ErrMissingStart = errors.New("no resolvable start: need start, or date_start and time_start")
	ErrMissingEnd   = errors.New("no resolvable end: need end, or duration")
)

// RecordError reports that a single record failed to assemble.
type RecordError struct {
	Row int
	Err error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Recordf wraps an underlying cause with the source row number.
func Recordf(row int, err error) *RecordError {
	return &RecordError{Row: row, Err: err}
}

// RoutingWarning reports that an assembled event matched no calendar and
// was therefore dropped from every output.
type RoutingWarning struct {
	Row     int
	Summary string
}

func (w RoutingWarning) String() string {
	return fmt.Sprintf("row %d (%q) matched no calendar", w.Row, w.Summary)
}
