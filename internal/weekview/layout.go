package weekview

import (
	"sort"

	appLog "tabcal/internal/log"
	"tabcal/internal/model"
)

// PlacedEvent is one event's position on the grid: day column, row span
// and overlap lane. Ephemeral; recomputed on every layout run.
type PlacedEvent struct {
	Event *model.Event

	// Day is the index into the template's day columns.
	Day int
	// RowStart is the first occupied slot row; RowSpan >= 1.
	RowStart int
	RowSpan  int
	// Lane separates temporally overlapping events within a day.
	Lane int
}

// Grid is the laid-out weekly view for one calendar.
type Grid struct {
	Template *Template
	Placed   []PlacedEvent
	// LaneCount holds the number of lanes used per day column (at
	// least 1, even for empty days).
	LaneCount []int
}

// Build places events onto the template's grid. Events starting outside
// the visible time range or on a day without a column are dropped from
// the view only; they still exist in the ICS output. Events running past
// the end of the range are truncated, not excluded.
//
// Overlap resolution is a greedy interval coloring: per day, events are
// sorted by start, then by descending duration, and each takes the first
// lane whose previous occupant has ended. Output is deterministic for
// identical input.
func Build(events []*model.Event, tmpl *Template) *Grid {
	rangeStart, rangeEnd := tmpl.RangeMinutes()
	interval := tmpl.Layout.IntervalMinutes
	slotCount := tmpl.SlotCount()

	byDay := make([][]PlacedEvent, len(tmpl.Layout.Days))

	for _, ev := range events {
		day := tmpl.DayIndex(ev.Weekday())
		if day < 0 {
			appLog.Debug("week view: event day not on grid, dropped from view",
				"summary", ev.Summary, "weekday", ev.Weekday())
			continue
		}

		startMin := ev.Start.Hour()*60 + ev.Start.Minute()
		if startMin < rangeStart || startMin >= rangeEnd {
			appLog.Debug("week view: event start outside time range, dropped from view",
				"summary", ev.Summary, "start", ev.Start)
			continue
		}

		endMin := ev.End.Hour()*60 + ev.End.Minute()
		if !sameDate(ev) || endMin > rangeEnd {
			// Visually truncated at the bottom of the grid.
			endMin = rangeEnd
		}

		rowStart := (startMin - rangeStart) / interval
		rowEnd := ceilDiv(endMin-rangeStart, interval)
		if rowEnd > slotCount {
			rowEnd = slotCount
		}
		if rowEnd <= rowStart {
			rowEnd = rowStart + 1
		}

		byDay[day] = append(byDay[day], PlacedEvent{
			Event:    ev,
			Day:      day,
			RowStart: rowStart,
			RowSpan:  rowEnd - rowStart,
		})
	}

	grid := &Grid{
		Template:  tmpl,
		LaneCount: make([]int, len(tmpl.Layout.Days)),
	}

	for day := range byDay {
		placed := byDay[day]
		sort.SliceStable(placed, func(i, j int) bool {
			a, b := placed[i], placed[j]
			if !a.Event.Start.Equal(b.Event.Start) {
				return a.Event.Start.Before(b.Event.Start)
			}
			if a.RowSpan != b.RowSpan {
				return a.RowSpan > b.RowSpan
			}
			if a.Event.Summary != b.Event.Summary {
				return a.Event.Summary < b.Event.Summary
			}
			return a.Event.Row < b.Event.Row
		})

		// laneEnds[l] is the row after the last occupant of lane l.
		// Events arrive sorted by start row, so a lane is free exactly
		// when its occupant ends at or before the new start.
		var laneEnds []int
		for i := range placed {
			p := &placed[i]
			lane := -1
			for l, end := range laneEnds {
				if end <= p.RowStart {
					lane = l
					break
				}
			}
			if lane == -1 {
				lane = len(laneEnds)
				laneEnds = append(laneEnds, 0)
			}
			laneEnds[lane] = p.RowStart + p.RowSpan
			p.Lane = lane
		}

		grid.LaneCount[day] = len(laneEnds)
		if grid.LaneCount[day] == 0 {
			grid.LaneCount[day] = 1
		}
		grid.Placed = append(grid.Placed, placed...)
	}

	return grid
}

// sameDate reports whether the event ends on the same calendar day it
// starts; multi-day events are truncated at the grid's bottom edge.
func sameDate(ev *model.Event) bool {
	sy, sm, sd := ev.Start.Date()
	ey, em, ed := ev.End.Date()
	return sy == ey && sm == em && sd == ed
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
