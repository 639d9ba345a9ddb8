package filter

import (
	"strings"

	"tabcal/internal/model"
)

// Mode selects how a predicate pattern is compared against a field value.
type Mode string

const (
	// ModeContains matches when the pattern is a case-insensitive
	// substring of the field value.
	ModeContains Mode = "contains"
	// ModeExact matches on string equality.
	ModeExact Mode = "exact"
)

// DefaultCalendar is the calendar every event routes to when no calendar
// definitions are configured.
const DefaultCalendar = "timetable"

// Predicate is one record-level condition. Patterns is an any-of set: the
// predicate matches when any pattern matches the field value. Negate
// inverts the result.
type Predicate struct {
	Field    string   `json:"field"`
	Patterns []string `json:"patterns,omitempty"`
	Mode     Mode     `json:"mode,omitempty"`
	Negate   bool     `json:"negate,omitempty"`
}

// Calendar is a named, filtered subset of events. An event is included
// iff all predicates pass (conjunctive).
type Calendar struct {
	Name       string
	Predicates PredicateList
	OutputPath string
}

// Match evaluates the predicate against one record. A missing field is a
// non-match, never an error. forceExact overrides the declared mode, the
// way the global exact flag does.
func (p Predicate) Match(rec model.Record, forceExact bool) bool {
	matched := false
	if value, ok := rec.String(p.Field); ok {
		mode := p.Mode
		if mode == "" {
			mode = ModeContains
		}
		if forceExact {
			mode = ModeExact
		}
		for _, pattern := range p.Patterns {
			if matchOne(value, pattern, mode) {
				matched = true
				break
			}
		}
	}
	if p.Negate {
		return !matched
	}
	return matched
}

func matchOne(value, pattern string, mode Mode) bool {
	switch mode {
	case ModeExact:
		return value == pattern
	default:
		return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
	}
}

// MatchAll reports whether every predicate passes for the record.
func MatchAll(rec model.Record, preds []Predicate, forceExact bool) bool {
	for _, p := range preds {
		if !p.Match(rec, forceExact) {
			return false
		}
	}
	return true
}

// FilterRecords keeps the records for which all predicates pass. Used for
// the global filter set applied before assembly.
func FilterRecords(records []model.Record, preds []Predicate, forceExact bool) []model.Record {
	if len(preds) == 0 {
		return records
	}
	out := make([]model.Record, 0, len(records))
	for _, rec := range records {
		if MatchAll(rec, preds, forceExact) {
			out = append(out, rec)
		}
	}
	return out
}

// Routing is the result of fanning events out across calendars. Events
// holds references to the same Event values across calendars; routing
// never copies.
type Routing struct {
	// Order lists calendar names in definition order.
	Order []string
	// Events maps calendar name to its routed events, in source order.
	Events map[string][]*model.Event
	// Warnings records events that matched no calendar.
	Warnings []model.RoutingWarning
}

// Route evaluates every calendar definition against every event's source
// record. Fan-out is explicit: one event may appear in several calendars.
// With no calendars configured, everything routes to DefaultCalendar and
// no warnings are produced.
func Route(events []*model.Event, calendars []Calendar, forceExact bool) Routing {
	if len(calendars) == 0 {
		return Routing{
			Order:  []string{DefaultCalendar},
			Events: map[string][]*model.Event{DefaultCalendar: events},
		}
	}

	routing := Routing{
		Order:  make([]string, 0, len(calendars)),
		Events: make(map[string][]*model.Event, len(calendars)),
	}
	for _, cal := range calendars {
		routing.Order = append(routing.Order, cal.Name)
		routing.Events[cal.Name] = nil
	}

	for _, ev := range events {
		routed := false
		for _, cal := range calendars {
			if MatchAll(ev.Source, cal.Predicates, forceExact) {
				routing.Events[cal.Name] = append(routing.Events[cal.Name], ev)
				routed = true
			}
		}
		if !routed {
			routing.Warnings = append(routing.Warnings, model.RoutingWarning{
				Row:     ev.Row,
				Summary: ev.Summary,
			})
		}
	}
	return routing
}
