package config

import (
	"encoding/json"
	"os"

	"tabcal/internal/event"
	"tabcal/internal/filter"
	"tabcal/internal/model"
	"tabcal/internal/transform"
	"tabcal/internal/weekview"
)

// Mapping is the column-mapping document: which source columns feed
// which event fields, plus the transforms to run on the way.
type Mapping struct {
	// Company overrides the configured PRODID company for this mapping.
	Company string `json:"company,omitempty"`

	// DurationUnit interprets bare numeric duration values: "minutes"
	// (default), "hours" or "seconds".
	DurationUnit string `json:"duration_unit,omitempty"`

	// Columns maps logical event fields to source column headers.
	Columns map[string]string `json:"columns"`

	// Transforms are per-field transform chains, applied to the resolved
	// column value before assembly.
	Transforms map[string][]transform.Call `json:"transforms,omitempty"`

	// RecordTransforms run against the whole record set before any
	// per-field work, in order (e.g. combine_date_time, expand_dates).
	RecordTransforms []transform.Call `json:"record_transforms,omitempty"`
}

// EventMapping converts the document into the assembler's mapping.
func (m *Mapping) EventMapping() event.Mapping {
	return event.Mapping{
		Columns:      m.Columns,
		DurationUnit: m.DurationUnit,
	}
}

// LoadMapping reads and minimally checks a mapping document. Structural
// validation (unknown fields, missing start/end paths) happens in the
// assembler.
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, model.Configf("parse mapping %s: %v", path, err)
	}
	if len(m.Columns) == 0 {
		return nil, model.Configf("mapping %s defines no columns", path)
	}
	return &m, nil
}

// CalendarSpec is one named output calendar and its routing filter.
type CalendarSpec struct {
	// Filename is the calendar name; the .ics file is named after it.
	Filename string `json:"filename"`
	// Filter is the predicate set a record must fully match to be
	// routed into this calendar.
	Filter filter.PredicateList `json:"filter,omitempty"`
}

// Filters is the routing document: global record filters plus the
// calendar fan-out definitions and output locations.
type Filters struct {
	// OutputDir overrides the configured output directory.
	OutputDir string `json:"output_dir,omitempty"`

	// WeekViewOutput is the week view destination: an .xlsx path for
	// single-workbook policies, a directory for per-calendar output.
	WeekViewOutput string `json:"week_view_output,omitempty"`

	// WeekViewTemplate points at the week view template document.
	WeekViewTemplate string `json:"week_view_template,omitempty"`

	// GlobalFilters drop records before any calendar routing.
	GlobalFilters filter.PredicateList `json:"global_filters,omitempty"`

	// Calendars are the fan-out targets, in definition order.
	Calendars []CalendarSpec `json:"calendars,omitempty"`
}

// CalendarDefs converts the document's calendar specs into router
// calendars, preserving definition order.
func (f *Filters) CalendarDefs() []filter.Calendar {
	out := make([]filter.Calendar, 0, len(f.Calendars))
	for _, c := range f.Calendars {
		out = append(out, filter.Calendar{
			Name:       c.Filename,
			Predicates: c.Filter,
		})
	}
	return out
}

// LoadFilters reads a filters document. A missing or empty document is
// legal: everything then lands in the default calendar.
func LoadFilters(path string) (*Filters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f Filters
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, model.Configf("parse filters %s: %v", path, err)
	}
	seen := make(map[string]bool, len(f.Calendars))
	for _, c := range f.Calendars {
		if c.Filename == "" {
			return nil, model.Configf("filters %s: calendar without a filename", path)
		}
		if seen[c.Filename] {
			return nil, model.Configf("filters %s: duplicate calendar %q", path, c.Filename)
		}
		seen[c.Filename] = true
	}
	return &f, nil
}

// LoadWeekView reads, normalizes and validates a week view template.
func LoadWeekView(path string) (*weekview.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t weekview.Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, model.Configf("parse week view template %s: %v", path, err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// DefaultWeekView returns the built-in template used when no template
// document is given.
func DefaultWeekView() *weekview.Template {
	t := &weekview.Template{}
	t.Normalize()
	// The defaults always validate.
	if err := t.Validate(); err != nil {
		panic(err)
	}
	return t
}
