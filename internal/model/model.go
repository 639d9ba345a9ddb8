package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is one source row: column name -> raw cell value. Values are
// strings as read from the spreadsheet until a transform replaces them
// with a typed value (time.Time, time.Duration, []string, float64).
type Record map[string]any

// ResolveColumn finds the actual key for a requested column name.
// Lookup order: exact match, match after trimming whitespace, then
// case-insensitive match after trimming. Spreadsheet headers routinely
// carry stray spaces and inconsistent casing.
func (r Record) ResolveColumn(name string) (string, bool) {
	if _, ok := r[name]; ok {
		return name, true
	}
	target := strings.TrimSpace(name)
	for k := range r {
		if strings.TrimSpace(k) == target {
			return k, true
		}
	}
	folded := strings.ToLower(target)
	for k := range r {
		if strings.ToLower(strings.TrimSpace(k)) == folded {
			return k, true
		}
	}
	return "", false
}

// Lookup returns the value for a column, using tolerant name resolution.
func (r Record) Lookup(name string) (any, bool) {
	k, ok := r.ResolveColumn(name)
	if !ok {
		return nil, false
	}
	return r[k], true
}

// String returns the string representation of a column value. Empty cells
// count as absent.
func (r Record) String(name string) (string, bool) {
	v, ok := r.Lookup(name)
	if !ok || v == nil {
		return "", false
	}
	s := Stringify(v)
	if s == "" {
		return "", false
	}
	return s, true
}

// Clone returns a shallow copy of the record. Record-set transforms that
// expand rows must never alias the original map.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Stringify renders a cell value the way it would appear in the sheet.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case []string:
		return strings.Join(t, ";")
	default:
		return fmt.Sprint(v)
	}
}

// Event is one normalized calendar entry derived from a source record.
// Events are created once by the assembler and never mutated afterwards;
// routing hands out pointers, not copies.
type Event struct {
	Summary     string
	Start       time.Time
	End         time.Time
	Location    string
	Description string
	Organizer   string
	URL         string
	Attendees   []string
	Categories  []string

	// Source is the originating record; filter predicates evaluate
	// against it so that routing can match on any column, not just the
	// mapped event fields.
	Source Record
	// Row is the 1-based source row, kept for diagnostics.
	Row int
}

// Duration returns the elapsed time between start and end. The assembler
// does not enforce End > Start, so this may be negative.
func (e *Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Weekday returns the full English weekday name of the event start,
// which is what week-view day columns are keyed by.
func (e *Event) Weekday() string {
	return e.Start.Weekday().String()
}
