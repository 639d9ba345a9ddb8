package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabcal/internal/model"
)

func TestCombineDateTime(t *testing.T) {
	records := []model.Record{
		{"Date": "2026-03-02", "Time": "09:00", "Unit": "CHEM1001"},
		{"Date": "02/03/2026", "Time": "1:30 PM", "Unit": "PHYS1002"},
	}

	e := NewEngine(NewRegistry(), nil)
	out, err := e.ApplyRecords(records, []Call{{
		Func:   "combine_date_time",
		Args:   Args{"Date", "Time"},
		Kwargs: Kwargs{"datetime_col": "Start"},
	}})
	require.NoError(t, err)
	require.Len(t, out, 2)

	start, ok := out[0]["Start"].(time.Time)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), start)

	start, ok = out[1]["Start"].(time.Time)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 2, 13, 30, 0, 0, time.UTC), start)

	// Source columns are consumed unless keep_source is set.
	_, hasDate := out[0]["Date"]
	_, hasTime := out[0]["Time"]
	assert.False(t, hasDate)
	assert.False(t, hasTime)
	assert.Equal(t, "CHEM1001", out[0]["Unit"])

	// Originals are untouched.
	assert.Equal(t, "2026-03-02", records[0]["Date"])
}

func TestCombineDateTimeKeepSource(t *testing.T) {
	records := []model.Record{{"Date": "2026-03-02", "Time": "09:00"}}

	out, err := extCombineDateTime(records, Args{"Date", "Time"},
		Kwargs{"datetime_col": "Start", "keep_source": true})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", out[0]["Date"])
	assert.Equal(t, "09:00", out[0]["Time"])
}

func TestCombineDateTimeDropInvalid(t *testing.T) {
	records := []model.Record{
		{"Date": "2026-03-02", "Time": "09:00"},
		{"Date": "garbage", "Time": "09:00"},
		{"Date": "2026-03-09", "Time": "nope"},
	}

	_, err := extCombineDateTime(records, Args{"Date", "Time"}, nil)
	assert.Error(t, err)

	out, err := extCombineDateTime(records, Args{"Date", "Time"},
		Kwargs{"drop_invalid": true})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestExpandDatesWeeklyRanges(t *testing.T) {
	records := []model.Record{
		{"Dates": "6/3-27/3, 1/5", "Unit": "CHEM1001"},
	}

	out, err := extExpandDates(records, Args{"Dates"},
		Kwargs{"year": float64(2026), "date_col": "Date"})
	require.NoError(t, err)

	// Weekly steps 6/3, 13/3, 20/3, 27/3 plus the single 1/5.
	require.Len(t, out, 5)
	want := []time.Time{
		time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 27, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	for i, rec := range out {
		got, ok := rec["Date"].(time.Time)
		require.True(t, ok)
		assert.Equal(t, want[i], got, "record %d", i)
		assert.Equal(t, "CHEM1001", rec["Unit"])
	}
}

func TestExpandDatesFullYearLayout(t *testing.T) {
	records := []model.Record{{"Dates": "06/03/2026-13/03/2026"}}

	out, err := extExpandDates(records, Args{"Dates"}, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestExpandDatesBadValue(t *testing.T) {
	records := []model.Record{{"Dates": "not-a-date"}}
	_, err := extExpandDates(records, Args{"Dates"}, Kwargs{"year": float64(2026)})
	assert.ErrorContains(t, err, "does not match layout")
}

func TestExpandDatesEmptyColumnDropsRecord(t *testing.T) {
	records := []model.Record{{"Dates": "", "Unit": "X"}}
	out, err := extExpandDates(records, Args{"Dates"}, Kwargs{"year": float64(2026)})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRenameColumns(t *testing.T) {
	records := []model.Record{{"Unit Name ": "CHEM1001", "Venue": "Lab 3"}}

	out, err := extRenameColumns(records, nil, Kwargs{"Unit Name": "Summary", "Venue": "Location"})
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, "CHEM1001", out[0]["Summary"])
	assert.Equal(t, "Lab 3", out[0]["Location"])
	_, stale := out[0]["Unit Name "]
	assert.False(t, stale)
}
