package transform

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"tabcal/internal/model"
)

// Record-set transforms (the mapping document's "record_transforms").
// Unlike field transforms these see the whole record set and may change
// its cardinality.
func registerExtensions(r *Registry) {
	r.RegisterRecord("combine_date_time", extCombineDateTime)
	r.RegisterRecord("expand_dates", extExpandDates)
	r.RegisterRecord("rename_columns", extRenameColumns)
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006",
	"02/01/06",
}

var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04 PM",
	"3:04PM",
}

// extCombineDateTime merges a date column and a time column into a single
// datetime column. args: date column, time column. kwargs: datetime_col
// (default "<date>_<time>"), keep_source (default false), drop_invalid
// (default false).
func extCombineDateTime(records []model.Record, args Args, kwargs Kwargs) ([]model.Record, error) {
	dateCol, err := argString(args, 0)
	if err != nil {
		return nil, err
	}
	timeCol, err := argString(args, 1)
	if err != nil {
		return nil, err
	}
	outCol := kwString(kwargs, "datetime_col", dateCol+"_"+timeCol)
	keepSource := kwBool(kwargs, "keep_source", false)
	dropInvalid := kwBool(kwargs, "drop_invalid", false)

	out := make([]model.Record, 0, len(records))
	for i, rec := range records {
		d, dok := rec.Lookup(dateCol)
		tv, tok := rec.Lookup(timeCol)
		if !dok || !tok {
			if dropInvalid {
				continue
			}
			return nil, fmt.Errorf("combine_date_time: record %d is missing %q or %q", i+1, dateCol, timeCol)
		}

		date, derr := coerceDate(d)
		clock, cerr := coerceClock(tv)
		if derr != nil || cerr != nil {
			if dropInvalid {
				continue
			}
			if derr != nil {
				return nil, fmt.Errorf("combine_date_time: record %d: %w", i+1, derr)
			}
			return nil, fmt.Errorf("combine_date_time: record %d: %w", i+1, cerr)
		}

		clone := rec.Clone()
		clone[outCol] = time.Date(date.Year(), date.Month(), date.Day(),
			clock.Hour(), clock.Minute(), clock.Second(), 0, date.Location())
		if !keepSource {
			if k, ok := clone.ResolveColumn(dateCol); ok && k != outCol {
				delete(clone, k)
			}
			if k, ok := clone.ResolveColumn(timeCol); ok && k != outCol {
				delete(clone, k)
			}
		}
		out = append(out, clone)
	}
	return out, nil
}

// extExpandDates expands a column holding delimited date-range expressions
// like "6/3-17/4, 1/5" into one record per concrete date, stepping weekly
// through each range. args: source column. kwargs: date_col (default:
// source column), year (applied to year-less layouts), layout (Go
// reference layout; default "02/01/2006", or "02/01" when year is given),
// delim (default ",").
func extExpandDates(records []model.Record, args Args, kwargs Kwargs) ([]model.Record, error) {
	srcCol, err := argString(args, 0)
	if err != nil {
		return nil, err
	}
	dateCol := kwString(kwargs, "date_col", srcCol)
	year := kwInt(kwargs, "year", 0)
	layout := kwString(kwargs, "layout", "")
	if layout == "" {
		if year != 0 {
			layout = "02/01"
		} else {
			layout = "02/01/2006"
		}
	}
	delim := kwString(kwargs, "delim", ",")

	out := make([]model.Record, 0, len(records))
	for i, rec := range records {
		raw, ok := rec.String(srcCol)
		if !ok {
			// Nothing to expand; the record is dropped, matching the
			// empty-list behavior of range extrapolation.
			continue
		}

		dates, err := extrapolateDateRanges(raw, delim, layout, year)
		if err != nil {
			return nil, fmt.Errorf("expand_dates: record %d: %w", i+1, err)
		}
		for _, d := range dates {
			clone := rec.Clone()
			clone[dateCol] = d
			out = append(out, clone)
		}
	}
	return out, nil
}

// extrapolateDateRanges turns "6/3-17/4, 1/5" into the concrete dates
// covered by stepping each range in weekly increments, plus any single
// dates listed alongside.
func extrapolateDateRanges(expr, delim, layout string, year int) ([]time.Time, error) {
	var all []time.Time
	for _, part := range strings.Split(expr, delim) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.Contains(part, "-") {
			d, err := parseRangeDate(part, layout, year)
			if err != nil {
				return nil, err
			}
			all = append(all, d)
			continue
		}

		bounds := strings.SplitN(part, "-", 2)
		start, err := parseRangeDate(strings.TrimSpace(bounds[0]), layout, year)
		if err != nil {
			return nil, err
		}
		end, err := parseRangeDate(strings.TrimSpace(bounds[1]), layout, year)
		if err != nil {
			return nil, err
		}

		r, err := rrule.NewRRule(rrule.ROption{
			Freq:    rrule.WEEKLY,
			Dtstart: start,
			Until:   end,
		})
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", part, err)
		}
		all = append(all, r.All()...)
	}
	return all, nil
}

func parseRangeDate(s, layout string, year int) (time.Time, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q does not match layout %q", s, layout)
	}
	if year != 0 {
		t = time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
	return t, nil
}

// extRenameColumns renames columns in every record. kwargs hold the
// old -> new mapping.
func extRenameColumns(records []model.Record, _ Args, kwargs Kwargs) ([]model.Record, error) {
	if len(kwargs) == 0 {
		return records, nil
	}
	out := make([]model.Record, 0, len(records))
	for _, rec := range records {
		clone := rec.Clone()
		for from, to := range kwargs {
			k, ok := clone.ResolveColumn(from)
			if !ok {
				continue
			}
			name := model.Stringify(to)
			if name == "" || name == k {
				continue
			}
			clone[name] = clone[k]
			delete(clone, k)
		}
		out = append(out, clone)
	}
	return out, nil
}

// coerceDate accepts a time.Time or a string in one of the supported
// date layouts and returns the date component.
func coerceDate(v any) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	s := strings.TrimSpace(model.Stringify(v))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// coerceClock accepts a time.Time or a wall-clock string and returns a
// value whose hour/minute/second carry the time of day.
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
