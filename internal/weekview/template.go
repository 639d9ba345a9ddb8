package weekview

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"tabcal/internal/model"
)

// DefaultDays is the day-column set used when the template omits one.
var DefaultDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// GridLayout holds the day/time geometry of the weekly grid.
type GridLayout struct {
	// Days are weekday labels, in column order.
	Days []string `json:"days"`
	// StartTime / EndTime bound the visible range, "HH:MM".
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	// IntervalMinutes is the slot granularity. It must evenly divide
	// the start..end span.
	IntervalMinutes int `json:"interval_minutes"`
}

// Formatting is styling metadata, opaque to the layout algorithm and
// consumed only by the workbook renderer.
type Formatting struct {
	HeaderFill      string   `json:"header_fill"`
	TimeFill        string   `json:"time_fill"`
	Border          string   `json:"border"`
	DayColumnWidth  float64  `json:"day_column_width"`
	TimeColumnWidth float64  `json:"time_column_width"`
	RowHeight       float64  `json:"row_height"`
	Palette         []string `json:"palette"`
}

// SummaryTransform shortens block labels, e.g. take the first "-"
// separated segment of a long unit name.
type SummaryTransform struct {
	SplitOn StringList `json:"split_on"`
	Take    int        `json:"take"`
}

// Annotation extracts extra block text from another event field with a
// regular expression, e.g. a room number out of the description.
type Annotation struct {
	Regex string `json:"regex"`
	Group int    `json:"group"`

	re *regexp.Regexp
}

// WeekPattern annotates grid blocks with the weeks a class runs, read
// from a source record column. Raw values are normalized: an existing
// prefix is deduplicated ("wk 1-5" and "1-5" both become "WK 1-5"), and
// values matching a full-term token render as the full-term label.
type WeekPattern struct {
	// Column is the source record column holding the raw pattern.
	Column string `json:"column"`
	// Prefix labels normalized patterns, default "WK".
	Prefix string `json:"prefix,omitempty"`
	// FullTermTokens are raw values meaning "runs all term".
	FullTermTokens StringList `json:"full_term_tokens,omitempty"`
	// FullTermLabel replaces a full-term token, default "Full term".
	FullTermLabel string `json:"full_term_label,omitempty"`
	// Include toggles the annotation; omitted means enabled.
	Include *bool `json:"include,omitempty"`
}

func (wp *WeekPattern) enabled() bool {
	return wp.Include == nil || *wp.Include
}

// normalize canonicalizes one raw pattern value.
func (wp *WeekPattern) normalize(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return ""
	}
	for _, tok := range wp.FullTermTokens {
		if strings.EqualFold(s, strings.TrimSpace(tok)) {
			return wp.FullTermLabel
		}
	}
	if wp.Prefix == "" {
		return s
	}
	if len(s) >= len(wp.Prefix) && strings.EqualFold(s[:len(wp.Prefix)], wp.Prefix) {
		s = strings.TrimSpace(s[len(wp.Prefix):])
	}
	if s == "" {
		return ""
	}
	return wp.Prefix + " " + s
}

// FooterLine is one plain-text note rendered under the grid.
type FooterLine struct {
	Text string `json:"text"`
}

// Footer holds the note lines rendered under the grid.
type Footer struct {
	Lines []FooterLine `json:"lines"`
}

// Template describes one weekly view: the grid geometry plus rendering
// metadata. Loaded from JSON, then Normalize + Validate before use.
type Template struct {
	Title            string            `json:"title"`
	Layout           GridLayout        `json:"layout"`
	Formatting       Formatting        `json:"formatting"`
	SummaryTransform *SummaryTransform `json:"summary_transform,omitempty"`
	Annotation       *Annotation       `json:"summary_annotation,omitempty"`
	// SummaryFormat combines summary and annotation; {summary} and
	// {annotation} are substituted. Default "{summary} ({annotation})".
	SummaryFormat string       `json:"summary_format,omitempty"`
	WeekPattern   *WeekPattern `json:"week_pattern,omitempty"`
	Footer        *Footer      `json:"footer,omitempty"`

	startMin int
	endMin   int
	dayIndex map[string]int
}

// StringList accepts a JSON scalar or array of scalars.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// Normalize fills in missing values with the defaults the original
// presets ship with.
func (t *Template) Normalize() {
	if len(t.Layout.Days) == 0 {
		t.Layout.Days = append([]string(nil), DefaultDays...)
	}
	if t.Layout.StartTime == "" {
		t.Layout.StartTime = "08:00"
	}
	if t.Layout.EndTime == "" {
		t.Layout.EndTime = "19:00"
	}
	if t.Layout.IntervalMinutes <= 0 {
		t.Layout.IntervalMinutes = 60
	}
	if t.Formatting.HeaderFill == "" {
		t.Formatting.HeaderFill = "D9D9D9"
	}
	if t.Formatting.TimeFill == "" {
		t.Formatting.TimeFill = "F2F2F2"
	}
	if t.Formatting.Border == "" {
		t.Formatting.Border = "thin"
	}
	if t.Formatting.DayColumnWidth <= 0 {
		t.Formatting.DayColumnWidth = 15
	}
	if t.Formatting.TimeColumnWidth <= 0 {
		t.Formatting.TimeColumnWidth = 10
	}
	if t.Formatting.RowHeight <= 0 {
		t.Formatting.RowHeight = 22
	}
	if t.SummaryFormat == "" {
		t.SummaryFormat = "{summary} ({annotation})"
	}
	if t.WeekPattern != nil {
		if t.WeekPattern.Prefix == "" {
			t.WeekPattern.Prefix = "WK"
		}
		if t.WeekPattern.FullTermLabel == "" {
			t.WeekPattern.FullTermLabel = "Full term"
		}
	}
}

var weekdayNames = map[string]struct{}{
	"Monday": {}, "Tuesday": {}, "Wednesday": {}, "Thursday": {},
	"Friday": {}, "Saturday": {}, "Sunday": {},
}

// Validate checks the grid geometry and precompiles derived state. All
// violations are fatal configuration errors.
func (t *Template) Validate() error {
	start, err := parseClock(t.Layout.StartTime)
	if err != nil {
		return model.Configf("week view start_time: %v", err)
	}
	end, err := parseClock(t.Layout.EndTime)
	if err != nil {
		return model.Configf("week view end_time: %v", err)
	}
	if end <= start {
		return model.Configf("week view end_time %s is not after start_time %s",
			t.Layout.EndTime, t.Layout.StartTime)
	}
	span := end - start
	if span%t.Layout.IntervalMinutes != 0 {
		return model.Configf("interval %d does not evenly divide the %d minute range",
			t.Layout.IntervalMinutes, span)
	}

	t.dayIndex = make(map[string]int, len(t.Layout.Days))
	for i, day := range t.Layout.Days {
		if _, ok := weekdayNames[day]; !ok {
			return model.Configf("unknown weekday label %q", day)
		}
		if _, dup := t.dayIndex[day]; dup {
			return model.Configf("duplicate weekday label %q", day)
		}
		t.dayIndex[day] = i
	}

	if t.WeekPattern != nil && t.WeekPattern.Column == "" {
		return model.Configf("week_pattern needs a source column")
	}

	if t.Annotation != nil && t.Annotation.Regex != "" {
		re, err := regexp.Compile(t.Annotation.Regex)
		if err != nil {
			return model.Configf("summary_annotation regex: %v", err)
		}
		t.Annotation.re = re
	}

	t.startMin = start
	t.endMin = end
	return nil
}

// RangeMinutes returns the visible range as minutes since midnight.
func (t *Template) RangeMinutes() (start, end int) {
	return t.startMin, t.endMin
}

// SlotCount is the number of grid rows.
func (t *Template) SlotCount() int {
	return (t.endMin - t.startMin) / t.Layout.IntervalMinutes
}

// SlotLabel is the row label for slot i, e.g. "09:00".
func (t *Template) SlotLabel(i int) string {
	m := t.startMin + i*t.Layout.IntervalMinutes
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// DayIndex maps a weekday label to its column, or -1 when the day is not
// part of this view.
func (t *Template) DayIndex(weekday string) int {
	if i, ok := t.dayIndex[weekday]; ok {
		return i
	}
	return -1
}

// DisplaySummary builds the block label for an event: the (optionally
// shortened) summary, plus the annotation extracted from the description
// when one is configured.
func (t *Template) DisplaySummary(ev *model.Event) string {
	summary := strings.TrimSpace(ev.Summary)
	if t.SummaryTransform != nil {
		summary = t.SummaryTransform.apply(summary)
	}

	if t.Annotation == nil || t.Annotation.re == nil {
		return summary
	}
	m := t.Annotation.re.FindStringSubmatch(ev.Description)
	if m == nil {
		return summary
	}
	group := t.Annotation.Group
	if group <= 0 || group >= len(m) {
		group = 1
	}
	if group >= len(m) {
		return summary
	}
	annotation := strings.TrimSpace(m[group])
	if annotation == "" {
		return summary
	}

	r := strings.NewReplacer("{summary}", summary, "{annotation}", annotation)
	return r.Replace(t.SummaryFormat)
}

// BlockLabel is the full text of a rendered grid block: the display
// summary, plus the normalized week pattern on its own line when one is
// configured and the source record carries a value.
func (t *Template) BlockLabel(ev *model.Event) string {
	label := t.DisplaySummary(ev)
	wp := t.WeekPattern
	if wp == nil || !wp.enabled() {
		return label
	}
	raw, ok := ev.Source.String(wp.Column)
	if !ok {
		return label
	}
	if pattern := wp.normalize(raw); pattern != "" {
		label += "\n" + pattern
	}
	return label
}

func (st *SummaryTransform) apply(summary string) string {
	for _, sep := range st.SplitOn {
		if sep == "" {
			continue
		}
		parts := strings.Split(summary, sep)
		take := st.Take
		if take < 0 || take >= len(parts) {
			take = 0
		}
		summary = strings.TrimSpace(parts[take])
	}
	return summary
}

func parseClock(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("bad clock value %q", s)
	}
	var h, m int
	if _, err := fmt.Sscanf(parts[0]+":"+parts[1], "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("bad clock value %q", s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m > 0) {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return h*60 + m, nil
}
