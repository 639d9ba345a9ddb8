package pipeline

import (
	"errors"
	"time"

	"tabcal/internal/config"
	"tabcal/internal/event"
	"tabcal/internal/filter"
	"tabcal/internal/ics"
	appLog "tabcal/internal/log"
	"tabcal/internal/model"
	"tabcal/internal/transform"
	"tabcal/internal/weekview"
)

// Options configures one pipeline run. Mapping is required; everything
// else has a working zero value.
type Options struct {
	Mapping *config.Mapping
	Filters *config.Filters

	// Location is attached to naive timestamps. Nil means UTC.
	Location *time.Location

	// Company stamps the PRODID; a Company set on the mapping wins.
	Company string

	// SkipTransforms bypasses transforms by field or function name.
	SkipTransforms map[string]struct{}

	// ForceExact switches every filter predicate to exact matching.
	ForceExact bool

	// WeekView, when non-nil, enables the weekly grid output.
	WeekView *weekview.Template
	// WeekViewPolicy selects sheet/workbook assignment.
	WeekViewPolicy weekview.Policy
	// WeekViewCalendar names the calendar rendered under
	// PolicySingleSheet. Empty means the first defined calendar.
	WeekViewCalendar string
	// WeekViewTarget is the output path: an .xlsx file for
	// single-workbook policies, a directory for per-calendar output.
	WeekViewTarget string
}

// Result is everything one run produced, before anything touches disk.
type Result struct {
	// Documents maps calendar name to its serialized ICS text.
	Documents map[string]string
	// Order lists calendar names in definition order.
	Order []string
	// Workbooks are the composed week view outputs, possibly empty.
	Workbooks []weekview.Workbook

	// Filtered counts records dropped by the global filters.
	Filtered int
	// Assembled counts successfully assembled events.
	Assembled int
	// RecordErrors are the per-record assembly failures; they never
	// abort the run.
	RecordErrors []*model.RecordError
	// Warnings flag events that matched no calendar.
	Warnings []model.RoutingWarning
}

// Run executes the whole pipeline over an already-loaded record set:
// global filters, record-set transforms, per-record assembly, calendar
// routing, ICS serialization and (optionally) the week view layout.
//
// Configuration problems abort with a ConfigError before any record is
// processed. Bad records are accumulated in Result.RecordErrors and the
// run continues.
func Run(records []model.Record, opts Options) (*Result, error) {
	if opts.Mapping == nil {
		return nil, model.Configf("no column mapping given")
	}
	filters := opts.Filters
	if filters == nil {
		filters = &config.Filters{}
	}

	engine := transform.NewEngine(transform.NewRegistry(), opts.SkipTransforms)
	if err := engine.Validate(nil, opts.Mapping.RecordTransforms); err != nil {
		return nil, err
	}
	assembler, err := event.NewAssembler(
		opts.Mapping.EventMapping(), opts.Mapping.Transforms, engine, opts.Location)
	if err != nil {
		return nil, err
	}

	res := &Result{Documents: make(map[string]string)}

	kept := filter.FilterRecords(records, filters.GlobalFilters, opts.ForceExact)
	res.Filtered = len(records) - len(kept)
	if res.Filtered > 0 {
		appLog.Info("global filters applied", "dropped", res.Filtered, "kept", len(kept))
	}

	kept, err = engine.ApplyRecords(kept, opts.Mapping.RecordTransforms)
	if err != nil {
		return nil, err
	}

	events := make([]*model.Event, 0, len(kept))
	for i, rec := range kept {
		// Row 1 is the header; data rows are reported 2-based.
		ev, err := assembler.Assemble(rec, i+2)
		if err != nil {
			var recErr *model.RecordError
			if errors.As(err, &recErr) {
				res.RecordErrors = append(res.RecordErrors, recErr)
				appLog.Warn("record skipped", "row", recErr.Row, "err", recErr.Err)
				continue
			}
			return nil, err
		}
		events = append(events, ev)
	}
	res.Assembled = len(events)

	routing := filter.Route(events, filters.CalendarDefs(), opts.ForceExact)
	res.Order = routing.Order
	res.Warnings = routing.Warnings
	for _, w := range res.Warnings {
		appLog.Warn("event matched no calendar", "row", w.Row, "summary", w.Summary)
	}

	company := opts.Company
	if opts.Mapping.Company != "" {
		company = opts.Mapping.Company
	}
	emitter := ics.NewEmitter(company)
	for _, name := range routing.Order {
		res.Documents[name] = emitter.Emit(name, routing.Events[name])
	}

	if opts.WeekView != nil {
		res.Workbooks, err = composeWeekView(routing, opts)
		if err != nil {
			return nil, err
		}
	}

	appLog.Info("pipeline run complete",
		"records", len(records),
		"events", res.Assembled,
		"calendars", len(res.Order),
		"record_errors", len(res.RecordErrors),
		"unrouted", len(res.Warnings))
	return res, nil
}

func composeWeekView(routing filter.Routing, opts Options) ([]weekview.Workbook, error) {
	grids := make(map[string]*weekview.Grid, len(routing.Order))
	for _, name := range routing.Order {
		grids[name] = weekview.Build(routing.Events[name], opts.WeekView)
	}

	order := routing.Order
	if opts.WeekViewPolicy == weekview.PolicySingleSheet && opts.WeekViewCalendar != "" {
		if _, ok := grids[opts.WeekViewCalendar]; !ok {
			return nil, model.Configf("calendar not found for weekly view: %q", opts.WeekViewCalendar)
		}
		order = []string{opts.WeekViewCalendar}
	}
	return weekview.Compose(order, grids, opts.WeekViewPolicy, opts.WeekViewTarget), nil
}
