package event

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"tabcal/internal/model"
	"tabcal/internal/transform"
)

// Assembler turns resolved, transformed source records into Events. It is
// a pure function of its inputs: the same record always assembles to the
// same event.
type Assembler struct {
	mapping    Mapping
	transforms map[string][]transform.Call
	engine     *transform.Engine
	loc        *time.Location
}

// NewAssembler validates the mapping and the declared transform names and
// returns a ready assembler. loc is the timezone attached to naive
// timestamps; timestamps that already carry zone information are left
// untouched. Validation failures are ConfigErrors.
func NewAssembler(m Mapping, transforms map[string][]transform.Call, engine *transform.Engine, loc *time.Location) (*Assembler, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if engine == nil {
		engine = transform.NewEngine(nil, nil)
	}
	if err := engine.Validate(transforms, nil); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Assembler{
		mapping:    m,
		transforms: transforms,
		engine:     engine,
		loc:        loc,
	}, nil
}

// Resolve looks up every mapped logical field in the record. Absent or
// blank columns are simply missing from the result; fallback logic (end
// vs. duration) happens during assembly.
func (a *Assembler) Resolve(rec model.Record) map[string]any {
	out := make(map[string]any, len(a.mapping.Columns))
	for field, col := range a.mapping.Columns {
		if col == "" {
			continue
		}
		v, ok := rec.Lookup(col)
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		out[field] = v
	}
	return out
}

// Assemble resolves, transforms and combines one record into an Event.
// Failures are per-record: the returned error is always a *RecordError
// and never aborts the rest of the run.
func (a *Assembler) Assemble(rec model.Record, row int) (*model.Event, error) {
	fields := a.Resolve(rec)

	// Apply declared field transforms. Iteration order over fields is
	// made deterministic even though fields are independent.
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		calls := a.transforms[name]
		if len(calls) == 0 {
			continue
		}
		v, err := a.engine.ApplyField(name, fields[name], calls)
		if err != nil {
			return nil, model.Recordf(row, err)
		}
		fields[name] = v
	}

	start, err := a.resolveStart(fields)
	if err != nil {
		return nil, model.Recordf(row, err)
	}
	end, err := a.resolveEnd(fields, start)
	if err != nil {
		return nil, model.Recordf(row, err)
	}

	summary := strings.TrimSpace(model.Stringify(fields[FieldSummary]))
	if summary == "" {
		return nil, model.Recordf(row, fmt.Errorf("empty summary"))
	}

	ev := &model.Event{
		Summary:     summary,
		Start:       start,
		End:         end,
		Location:    optString(fields, FieldLocation),
		Description: optString(fields, FieldDescription),
		Organizer:   optString(fields, FieldOrganizer),
		URL:         optString(fields, FieldURL),
		Attendees:   multiValue(fields[FieldAttendees]),
		Categories:  multiValue(fields[FieldCategories]),
		Source:      rec,
		Row:         row,
	}
	return ev, nil
}

func (a *Assembler) resolveStart(fields map[string]any) (time.Time, error) {
	if v, ok := fields[FieldStart]; ok {
		t, err := a.coerceTimestamp(v)
		if err != nil {
			return time.Time{}, fmt.Errorf("start: %w", err)
		}
		return t, nil
	}

	d, dok := fields[FieldDateStart]
	c, cok := fields[FieldTimeStart]
	if !dok || !cok {
		return time.Time{}, model.ErrMissingStart
	}
	date, err := a.coerceTimestamp(d)
	if err != nil {
		return time.Time{}, fmt.Errorf("date_start: %w", err)
	}
	clock, err := coerceClock(c)
	if err != nil {
		return time.Time{}, fmt.Errorf("time_start: %w", err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, date.Location()), nil
}

func (a *Assembler) resolveEnd(fields map[string]any, start time.Time) (time.Time, error) {
	if v, ok := fields[FieldEnd]; ok {
		t, err := a.coerceTimestamp(v)
		if err != nil {
			return time.Time{}, fmt.Errorf("end: %w", err)
		}
		return t, nil
	}
	if v, ok := fields[FieldDuration]; ok {
		d, err := a.coerceDuration(v)
		if err != nil {
			return time.Time{}, fmt.Errorf("duration: %w", err)
		}
		return start.Add(d), nil
	}
	return time.Time{}, model.ErrMissingEnd
}

// timestampLayouts are tried in order for naive timestamp strings. Naive
// values are parsed directly in the configured location, so the zone is
// attached exactly once and never overrides an explicit offset.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

func (a *Assembler) coerceTimestamp(v any) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		// Produced by a transform; trusted to carry the right zone.
		return t, nil
	}
	s := strings.TrimSpace(model.Stringify(v))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, a.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04 PM",
	"3:04PM",
}

func coerceClock(v any) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	s := strings.TrimSpace(model.Stringify(v))
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time of day %q", s)
}

// coerceDuration accepts a time.Duration (from a transform), a clock-style
// "HH:MM[:SS]" string, a Go duration string ("1h30m"), or a bare number
// interpreted in the mapping's duration unit.
func (a *Assembler) coerceDuration(v any) (time.Duration, error) {
	switch t := v.(type) {
	case time.Duration:
		return t, nil
	case float64, float32, int:
		f, _ := floatOf(t)
		return a.numericDuration(f), nil
	case string:
		s := strings.TrimSpace(t)
		if strings.Contains(s, ":") {
			return parseClockDuration(s)
		}
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return a.numericDuration(f), nil
		}
		return 0, fmt.Errorf("unsupported duration %q", s)
	default:
		return 0, fmt.Errorf("unsupported duration value %T", v)
	}
}

func (a *Assembler) numericDuration(f float64) time.Duration {
	switch a.mapping.DurationUnit {
	case "hours":
		return time.Duration(f * float64(time.Hour))
	case "seconds":
		return time.Duration(f * float64(time.Second))
	default:
		return time.Duration(f * float64(time.Minute))
	}
}

func parseClockDuration(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("unsupported duration %q", s)
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, fmt.Errorf("unsupported duration %q", s)
		}
		nums[i] = n
	}
	d := time.Duration(nums[0])*time.Hour + time.Duration(nums[1])*time.Minute
	if len(nums) == 3 {
		d += time.Duration(nums[2]) * time.Second
	}
	return d, nil
}

func floatOf(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}

func optString(fields map[string]any, name string) string {
	v, ok := fields[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(model.Stringify(v))
}

// multiValue normalizes attendee/category values: an already-split
// sequence is used verbatim, a raw scalar is wrapped as a single-element
// sequence, and an absent value yields nil.
func multiValue(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, model.Stringify(item))
		}
		return out
	default:
		s := strings.TrimSpace(model.Stringify(v))
		if s == "" {
			return nil
		}
		return []string{s}
	}
}
