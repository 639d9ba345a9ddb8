package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabcal/internal/model"
)

func TestPredicateMatch(t *testing.T) {
	rec := model.Record{"Room": "Lab 101", "Unit": "CHEM1001"}

	tests := []struct {
		name       string
		pred       Predicate
		forceExact bool
		want       bool
	}{
		{name: "contains is case-insensitive",
			pred: Predicate{Field: "Room", Patterns: []string{"lab"}}, want: true},
		{name: "contains substring",
			pred: Predicate{Field: "Room", Patterns: []string{"101"}}, want: true},
		{name: "contains no match",
			pred: Predicate{Field: "Room", Patterns: []string{"Theatre"}}, want: false},
		{name: "any-of patterns",
			pred: Predicate{Field: "Room", Patterns: []string{"Theatre", "Lab"}}, want: true},
		{name: "exact mode is case-sensitive",
			pred: Predicate{Field: "Room", Patterns: []string{"lab 101"}, Mode: ModeExact}, want: false},
		{name: "exact mode full value",
			pred: Predicate{Field: "Room", Patterns: []string{"Lab 101"}, Mode: ModeExact}, want: true},
		{name: "force exact overrides contains",
			pred:       Predicate{Field: "Room", Patterns: []string{"Lab"}},
			forceExact: true, want: false},
		{name: "negate inverts",
			pred: Predicate{Field: "Room", Patterns: []string{"Lab"}, Negate: true}, want: false},
		{name: "missing field never matches",
			pred: Predicate{Field: "Ghost", Patterns: []string{"x"}}, want: false},
		{name: "missing field with negate matches",
			pred: Predicate{Field: "Ghost", Patterns: []string{"x"}, Negate: true}, want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.pred.Match(rec, tc.forceExact))
		})
	}
}

func TestFilterRecords(t *testing.T) {
	records := []model.Record{
		{"Unit": "CHEM1001", "Status": "confirmed"},
		{"Unit": "PHYS1002", "Status": "cancelled"},
		{"Unit": "CHEM1001", "Status": "Confirmed"},
	}

	kept := FilterRecords(records, []Predicate{
		{Field: "Status", Patterns: []string{"confirmed"}},
	}, false)
	require.Len(t, kept, 2)
	assert.Equal(t, "CHEM1001", kept[0]["Unit"])
	assert.Equal(t, "CHEM1001", kept[1]["Unit"])

	// No predicates keeps everything, same backing slice.
	assert.Len(t, FilterRecords(records, nil, false), 3)
}

func routedEvents() []*model.Event {
	return []*model.Event{
		{Summary: "Chem Lecture", Row: 2, Source: model.Record{"Room": "Theatre A", "Unit": "CHEM1001"}},
		{Summary: "Chem Lab", Row: 3, Source: model.Record{"Room": "Lab 101", "Unit": "CHEM1001"}},
		{Summary: "Phys Lab", Row: 4, Source: model.Record{"Room": "Lab 101", "Unit": "PHYS1002"}},
		{Summary: "Staff Meeting", Row: 5, Source: model.Record{"Room": "Office", "Unit": ""}},
	}
}

func TestRouteFanOut(t *testing.T) {
	calendars := []Calendar{
		{Name: "chemistry", Predicates: PredicateList{
			{Field: "Unit", Patterns: []string{"CHEM"}},
		}},
		{Name: "labs", Predicates: PredicateList{
			{Field: "Room", Patterns: []string{"Lab"}},
		}},
	}

	routing := Route(routedEvents(), calendars, false)

	assert.Equal(t, []string{"chemistry", "labs"}, routing.Order)

	names := func(evs []*model.Event) []string {
		out := make([]string, len(evs))
		for i, ev := range evs {
			out[i] = ev.Summary
		}
		return out
	}
	// "Chem Lab" matches both calendars: fan-out, not first-match.
	assert.Equal(t, []string{"Chem Lecture", "Chem Lab"}, names(routing.Events["chemistry"]))
	assert.Equal(t, []string{"Chem Lab", "Phys Lab"}, names(routing.Events["labs"]))

	require.Len(t, routing.Warnings, 1)
	assert.Equal(t, 5, routing.Warnings[0].Row)
	assert.Equal(t, "Staff Meeting", routing.Warnings[0].Summary)

	// Fan-out shares the event, never copies it.
	assert.Same(t, routing.Events["chemistry"][1], routing.Events["labs"][0])
}

func TestRouteDefaultCalendar(t *testing.T) {
	events := routedEvents()
	routing := Route(events, nil, false)

	assert.Equal(t, []string{DefaultCalendar}, routing.Order)
	assert.Len(t, routing.Events[DefaultCalendar], len(events))
	assert.Empty(t, routing.Warnings)
}

func TestRouteConjunctivePredicates(t *testing.T) {
	calendars := []Calendar{
		{Name: "chem-labs", Predicates: PredicateList{
			{Field: "Unit", Patterns: []string{"CHEM"}},
			{Field: "Room", Patterns: []string{"Lab"}},
		}},
	}

	routing := Route(routedEvents(), calendars, false)
	require.Len(t, routing.Events["chem-labs"], 1)
	assert.Equal(t, "Chem Lab", routing.Events["chem-labs"][0].Summary)
	assert.Len(t, routing.Warnings, 3)
}

func TestPredicateListShorthandJSON(t *testing.T) {
	var preds PredicateList
	err := json.Unmarshal([]byte(`{"Room": "Lab", "Unit": ["CHEM", "PHYS"]}`), &preds)
	require.NoError(t, err)
	require.Len(t, preds, 2)

	// Shorthand keys come out sorted for determinism.
	assert.Equal(t, "Room", preds[0].Field)
	assert.Equal(t, []string{"Lab"}, preds[0].Patterns)
	assert.Equal(t, "Unit", preds[1].Field)
	assert.Equal(t, []string{"CHEM", "PHYS"}, preds[1].Patterns)
}

func TestPredicateListExplicitJSON(t *testing.T) {
	var preds PredicateList
	err := json.Unmarshal([]byte(`[
		{"field": "Room", "patterns": ["Lab"], "mode": "exact", "negate": true},
		{"field": "Unit", "pattern": "CHEM"}
	]`), &preds)
	require.NoError(t, err)
	require.Len(t, preds, 2)

	assert.Equal(t, ModeExact, preds[0].Mode)
	assert.True(t, preds[0].Negate)
	assert.Equal(t, []string{"CHEM"}, preds[1].Patterns)
}
