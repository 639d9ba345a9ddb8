package event

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabcal/internal/model"
	"tabcal/internal/transform"
)

var sydney = mustLoad("Australia/Sydney")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func newTestAssembler(t *testing.T, m Mapping, transforms map[string][]transform.Call) *Assembler {
	t.Helper()
	a, err := NewAssembler(m, transforms, nil, sydney)
	require.NoError(t, err)
	return a
}

func TestAssembleStartEndColumns(t *testing.T) {
	a := newTestAssembler(t, Mapping{Columns: map[string]string{
		"summary":  "Unit",
		"start":    "Start",
		"end":      "End",
		"location": "Venue",
	}}, nil)

	ev, err := a.Assemble(model.Record{
		"Unit":  "CHEM1001 Lecture",
		"Start": "2026-03-02 09:00",
		"End":   "2026-03-02 11:00",
		"Venue": "Science Theatre",
	}, 2)
	require.NoError(t, err)

	assert.Equal(t, "CHEM1001 Lecture", ev.Summary)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, sydney), ev.Start)
	assert.Equal(t, time.Date(2026, 3, 2, 11, 0, 0, 0, sydney), ev.End)
	assert.Equal(t, "Science Theatre", ev.Location)
	assert.Equal(t, 2*time.Hour, ev.Duration())
	assert.Equal(t, 2, ev.Row)
}

func TestAssembleDatePlusTime(t *testing.T) {
	a := newTestAssembler(t, Mapping{Columns: map[string]string{
		"summary":    "Unit",
		"date_start": "Date",
		"time_start": "Time",
		"duration":   "Mins",
	}}, nil)

	ev, err := a.Assemble(model.Record{
		"Unit": "Tutorial",
		"Date": "2026-03-02",
		"Time": "14:00",
		"Mins": "90",
	}, 3)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 2, 14, 0, 0, 0, sydney), ev.Start)
	assert.Equal(t, time.Date(2026, 3, 2, 15, 30, 0, 0, sydney), ev.End)
}

func TestAssembleDurationForms(t *testing.T) {
	tests := []struct {
		name  string
		unit  string
		value string
		want  time.Duration
	}{
		{name: "bare minutes", value: "120", want: 2 * time.Hour},
		{name: "bare hours", unit: "hours", value: "1.5", want: 90 * time.Minute},
		{name: "bare seconds", unit: "seconds", value: "45", want: 45 * time.Second},
		{name: "clock HH:MM", value: "01:30", want: 90 * time.Minute},
		{name: "clock HH:MM:SS", value: "01:30:30", want: 90*time.Minute + 30*time.Second},
		{name: "go duration", value: "1h30m", want: 90 * time.Minute},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := newTestAssembler(t, Mapping{
				Columns:      map[string]string{"summary": "S", "start": "Start", "duration": "D"},
				DurationUnit: tc.unit,
			}, nil)

			ev, err := a.Assemble(model.Record{
				"S": "x", "Start": "2026-03-02 09:00", "D": tc.value,
			}, 2)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ev.Duration())
		})
	}
}

func TestAssembleDivideTransformHalvesDuration(t *testing.T) {
	a := newTestAssembler(t,
		Mapping{Columns: map[string]string{"summary": "S", "start": "Start", "duration": "D"}},
		map[string][]transform.Call{
			"duration": {{Func: "divide", Args: transform.Args{float64(2)}}},
		})

	ev, err := a.Assemble(model.Record{"S": "x", "Start": "2026-03-02 09:00", "D": "120"}, 2)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ev.Duration())
}

func TestAssembleTimezoneAttachedOnce(t *testing.T) {
	a := newTestAssembler(t, Mapping{Columns: map[string]string{
		"summary": "S", "start": "Start", "end": "End",
	}}, nil)

	// A naive timestamp gets the configured zone; an explicit offset wins.
	ev, err := a.Assemble(model.Record{
		"S":     "x",
		"Start": "2026-03-02 09:00",
		"End":   "2026-03-02T01:00:00+01:00",
	}, 2)
	require.NoError(t, err)

	assert.Equal(t, sydney, ev.Start.Location())
	_, offset := ev.End.Zone()
	assert.Equal(t, 3600, offset)
}

func TestAssembleMultiValueFields(t *testing.T) {
	m := Mapping{Columns: map[string]string{
		"summary": "S", "start": "Start", "end": "End",
		"attendees":  "Who",
		"categories": "Tags",
	}}

	// Split transform yields an ordered sequence.
	a := newTestAssembler(t, m, map[string][]transform.Call{
		"attendees": {{Func: "split", Args: transform.Args{";"}}},
	})
	ev, err := a.Assemble(model.Record{
		"S": "x", "Start": "2026-03-02 09:00", "End": "2026-03-02 10:00",
		"Who":  "Alice;Bob;Carol",
		"Tags": "teaching",
	}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, ev.Attendees)
	// A raw scalar is wrapped as a single-element sequence.
	assert.Equal(t, []string{"teaching"}, ev.Categories)
}

func TestAssembleEndBeforeStartIsPreserved(t *testing.T) {
	a := newTestAssembler(t, Mapping{Columns: map[string]string{
		"summary": "S", "start": "Start", "end": "End",
	}}, nil)

	ev, err := a.Assemble(model.Record{
		"S": "x", "Start": "2026-03-02 10:00", "End": "2026-03-02 09:00",
	}, 2)
	require.NoError(t, err)
	assert.Negative(t, ev.Duration())
}

func TestAssembleRecordErrors(t *testing.T) {
	a := newTestAssembler(t, Mapping{Columns: map[string]string{
		"summary": "S", "start": "Start", "end": "End", "duration": "D",
	}}, nil)

	tests := []struct {
		name string
		rec  model.Record
		want string
	}{
		{name: "empty summary", rec: model.Record{
			"S": "  ", "Start": "2026-03-02 09:00", "End": "2026-03-02 10:00",
		}, want: "empty summary"},
		{name: "missing start", rec: model.Record{
			"S": "x", "End": "2026-03-02 10:00",
		}, want: "no resolvable start"},
		{name: "missing end and duration", rec: model.Record{
			"S": "x", "Start": "2026-03-02 09:00",
		}, want: "no resolvable end"},
		{name: "bad timestamp", rec: model.Record{
			"S": "x", "Start": "whenever", "End": "2026-03-02 10:00",
		}, want: "unparseable timestamp"},
		{name: "bad duration", rec: model.Record{
			"S": "x", "Start": "2026-03-02 09:00", "D": "a while",
		}, want: "unsupported duration"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.Assemble(tc.rec, 7)
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.want)

			var recErr *model.RecordError
			require.True(t, errors.As(err, &recErr))
			assert.Equal(t, 7, recErr.Row)
			assert.False(t, model.IsConfigError(err))
		})
	}
}

func TestAssembleTolerantColumnResolution(t *testing.T) {
	a := newTestAssembler(t, Mapping{Columns: map[string]string{
		"summary": "Unit Name", "start": "Start", "end": "End",
	}}, nil)

	// Header carries stray whitespace and different casing.
	ev, err := a.Assemble(model.Record{
		" unit name ": "CHEM1001",
		"Start":       "2026-03-02 09:00",
		"End":         "2026-03-02 10:00",
	}, 2)
	require.NoError(t, err)
	assert.Equal(t, "CHEM1001", ev.Summary)
}

func TestMappingValidation(t *testing.T) {
	tests := []struct {
		name string
		m    Mapping
		want string
	}{
		{name: "unknown field", m: Mapping{Columns: map[string]string{
			"summary": "S", "start": "A", "end": "B", "banana": "C",
		}}, want: "banana"},
		{name: "missing summary", m: Mapping{Columns: map[string]string{
			"start": "A", "end": "B",
		}}, want: "summary"},
		{name: "missing start path", m: Mapping{Columns: map[string]string{
			"summary": "S", "end": "B",
		}}, want: "start"},
		{name: "incomplete start pair", m: Mapping{Columns: map[string]string{
			"summary": "S", "date_start": "D", "end": "B",
		}}, want: "start"},
		{name: "missing end path", m: Mapping{Columns: map[string]string{
			"summary": "S", "start": "A",
		}}, want: "end"},
		{name: "bad duration unit", m: Mapping{Columns: map[string]string{
			"summary": "S", "start": "A", "duration": "D",
		}, DurationUnit: "fortnights"}, want: "duration unit"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewAssembler(tc.m, nil, nil, sydney)
			require.Error(t, err)
			assert.True(t, model.IsConfigError(err))
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestNewAssemblerRejectsUnknownTransform(t *testing.T) {
	_, err := NewAssembler(
		Mapping{Columns: map[string]string{"summary": "S", "start": "A", "end": "B"}},
		map[string][]transform.Call{"summary": {{Func: "frobnicate"}}},
		nil, sydney)
	require.Error(t, err)
	assert.True(t, model.IsConfigError(err))
}
