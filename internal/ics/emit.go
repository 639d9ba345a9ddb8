package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "tabcal/internal/log"
	"tabcal/internal/model"
)

// Emitter serializes routed events into iCalendar documents, one document
// per calendar.
type Emitter struct {
	// Company goes into the PRODID, e.g. "-//ACME//tabcal//EN".
	Company string
	// now is swappable for tests; DTSTAMP uses it.
	now func() time.Time
}

// NewEmitter returns an Emitter stamping documents for company.
func NewEmitter(company string) *Emitter {
	if company == "" {
		company = "tabcal"
	}
	return &Emitter{Company: company, now: time.Now}
}

// Emit serializes one calendar's events. Entry order follows the routing
// order; no event is omitted or merged.
func (e *Emitter) Emit(name string, events []*model.Event) string {
	cal := ical.NewCalendar()
	cal.SetProductId("-//" + e.Company + "//tabcal//EN")
	cal.SetMethod(ical.MethodPublish)

	stamp := e.now()
	for _, ev := range events {
		ve := cal.AddEvent(uuid.NewString())
		ve.SetDtStampTime(stamp)
		ve.SetSummary(ev.Summary)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)

		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Organizer != "" {
			ve.SetOrganizer(ev.Organizer)
		}
		if ev.URL != "" {
			ve.SetURL(ev.URL)
		}
		for _, attendee := range ev.Attendees {
			ve.AddAttendee(attendee)
		}
		if len(ev.Categories) > 0 {
			ve.SetProperty(ical.ComponentPropertyCategories, strings.Join(ev.Categories, ","))
		}
	}

	appLog.Debug("ics document built", "calendar", name, "event_count", len(events))
	return cal.Serialize()
}
