package ics

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabcal/internal/model"
)

func fixedEmitter(company string) *Emitter {
	e := NewEmitter(company)
	e.now = func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return e
}

func sampleEvents() []*model.Event {
	syd, _ := time.LoadLocation("Australia/Sydney")
	return []*model.Event{
		{
			Summary:     "CHEM1001 Lecture",
			Start:       time.Date(2026, 3, 2, 9, 0, 0, 0, syd),
			End:         time.Date(2026, 3, 2, 11, 0, 0, 0, syd),
			Location:    "Science Theatre",
			Description: "Week 1",
			Organizer:   "Dr Smith",
			URL:         "https://example.edu/chem1001",
			Attendees:   []string{"alice@example.edu", "bob@example.edu"},
			Categories:  []string{"teaching", "chemistry"},
		},
		{
			Summary: "CHEM1001 Lab",
			Start:   time.Date(2026, 3, 2, 14, 0, 0, 0, syd),
			End:     time.Date(2026, 3, 2, 17, 0, 0, 0, syd),
		},
	}
}

func TestEmitRoundTrips(t *testing.T) {
	out := fixedEmitter("ACME").Emit("chemistry", sampleEvents())

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "CHEM1001 Lecture", first.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "Science Theatre", first.GetProperty(ical.ComponentPropertyLocation).Value)
	assert.Equal(t, "Week 1", first.GetProperty(ical.ComponentPropertyDescription).Value)
	assert.Equal(t, "teaching,chemistry", first.GetProperty(ical.ComponentPropertyCategories).Value)

	start, err := first.GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(sampleEvents()[0].Start))
	end, err := first.GetEndAt()
	require.NoError(t, err)
	assert.True(t, end.Equal(sampleEvents()[0].End))

	assert.Len(t, first.Attendees(), 2)

	// Optional properties stay absent on the sparse event.
	second := events[1]
	assert.Nil(t, second.GetProperty(ical.ComponentPropertyLocation))
	assert.Nil(t, second.GetProperty(ical.ComponentPropertyDescription))
}

func TestEmitProdIDAndMethod(t *testing.T) {
	out := fixedEmitter("ACME").Emit("chemistry", nil)
	assert.Contains(t, out, "PRODID:-//ACME//tabcal//EN")
	assert.Contains(t, out, "METHOD:PUBLISH")
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "END:VCALENDAR")
	assert.NotContains(t, out, "BEGIN:VEVENT")

	// Empty company falls back to the default.
	out = fixedEmitter("").Emit("chemistry", nil)
	assert.Contains(t, out, "PRODID:-//tabcal//tabcal//EN")
}

func TestEmitUniqueUIDs(t *testing.T) {
	out := fixedEmitter("ACME").Emit("chemistry", sampleEvents())

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, ev := range cal.Events() {
		uid := ev.GetProperty(ical.ComponentPropertyUniqueId)
		require.NotNil(t, uid)
		assert.NotEmpty(t, uid.Value)
		assert.False(t, seen[uid.Value], "duplicate UID %s", uid.Value)
		seen[uid.Value] = true
	}
	assert.Len(t, seen, 2)
}

func TestEmitPreservesOrderAndCount(t *testing.T) {
	events := sampleEvents()
	out := fixedEmitter("ACME").Emit("chemistry", events)

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)

	parsed := cal.Events()
	require.Len(t, parsed, len(events))
	for i, ev := range parsed {
		assert.Equal(t, events[i].Summary,
			ev.GetProperty(ical.ComponentPropertySummary).Value)
	}
}
