package event

import (
	"tabcal/internal/model"
)

// Logical event fields a mapping may bind to source columns.
const (
	FieldSummary     = "summary"
	FieldStart       = "start"
	FieldEnd         = "end"
	FieldDateStart   = "date_start"
	FieldTimeStart   = "time_start"
	FieldDuration    = "duration"
	FieldLocation    = "location"
	FieldDescription = "description"
	FieldAttendees   = "attendees"
	FieldCategories  = "categories"
	FieldOrganizer   = "organizer"
	FieldURL         = "url"
)

var knownFields = map[string]struct{}{
	FieldSummary:     {},
	FieldStart:       {},
	FieldEnd:         {},
	FieldDateStart:   {},
	FieldTimeStart:   {},
	FieldDuration:    {},
	FieldLocation:    {},
	FieldDescription: {},
	FieldAttendees:   {},
	FieldCategories:  {},
	FieldOrganizer:   {},
	FieldURL:         {},
}

// Mapping binds logical event fields to source column names.
type Mapping struct {
	// Columns maps logical field name to source column name.
	Columns map[string]string
	// DurationUnit is the unit for bare numeric duration values:
	// "minutes" (default), "hours" or "seconds".
	DurationUnit string
}

// Validate checks that the mapping is structurally satisfiable: summary
// must be bound, at least one start path (start, or date_start plus
// time_start) and one end path (end, or duration) must be declared, and
// every key must be a known logical field. Violations are fatal
// configuration errors.
func (m Mapping) Validate() error {
	for field := range m.Columns {
		if _, ok := knownFields[field]; !ok {
			return model.Configf("unknown logical field %q in column mapping", field)
		}
	}

	if m.Columns[FieldSummary] == "" {
		return model.Configf("column mapping must bind %q", FieldSummary)
	}
	if m.Columns[FieldStart] == "" &&
		(m.Columns[FieldDateStart] == "" || m.Columns[FieldTimeStart] == "") {
		return model.Configf("column mapping needs %q, or both %q and %q",
			FieldStart, FieldDateStart, FieldTimeStart)
	}
	if m.Columns[FieldEnd] == "" && m.Columns[FieldDuration] == "" {
		return model.Configf("column mapping needs %q or %q", FieldEnd, FieldDuration)
	}

	switch m.DurationUnit {
	case "", "minutes", "hours", "seconds":
	default:
		return model.Configf("unknown duration unit %q", m.DurationUnit)
	}
	return nil
}
