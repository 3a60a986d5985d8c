package floating

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holidaycal/internal/model"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		year       int
		month      time.Month
		weekday    time.Weekday
		occurrence int
		want       string
	}{
		{"mothers day 2024", 2024, time.May, time.Sunday, 2, "2024-05-12"},
		{"mothers day 2025", 2025, time.May, time.Sunday, 2, "2025-05-11"},
		{"fathers day 2024", 2024, time.June, time.Sunday, 3, "2024-06-16"},
		{"thanksgiving 2024", 2024, time.November, time.Thursday, 4, "2024-11-28"},
		{"thanksgiving 2025", 2025, time.November, time.Thursday, 4, "2025-11-27"},
		{"first monday starting on the 1st", 2024, time.January, time.Monday, 1, "2024-01-01"},
		{"last monday of may 2024", 2024, time.May, time.Monday, model.LastOccurrence, "2024-05-27"},
		{"last friday ending on the 31st", 2025, time.October, time.Friday, model.LastOccurrence, "2025-10-31"},
		{"fifth thursday of leap february", 2024, time.February, time.Thursday, 5, "2024-02-29"},
		{"fifth sunday of november 2025", 2025, time.November, time.Sunday, 5, "2025-11-30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.year, tt.month, tt.weekday, tt.occurrence)
			require.NoError(t, err)
			want, _ := model.ParseDate(tt.want)
			assert.Equal(t, want, got)
			assert.Equal(t, tt.weekday, got.Weekday())
		})
	}
}

func TestResolveInvalidOccurrence(t *testing.T) {
	tests := []struct {
		name       string
		year       int
		month      time.Month
		weekday    time.Weekday
		occurrence int
	}{
		{"no fifth friday in february 2025", 2025, time.February, time.Friday, 5},
		{"no fifth saturday in may 2024", 2024, time.May, time.Saturday, 5},
		{"zero", 2024, time.May, time.Sunday, 0},
		{"sixth", 2024, time.May, time.Sunday, 6},
		{"second from end", 2024, time.May, time.Sunday, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.year, tt.month, tt.weekday, tt.occurrence)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidOccurrence))
			var oe *OccurrenceError
			assert.True(t, errors.As(err, &oe))
		})
	}
}

func TestEvents(t *testing.T) {
	rules := []model.FloatingRule{
		{Title: "母亲节", Month: time.May, Weekday: time.Sunday, Occurrence: 2},
		{Title: "感恩节", Description: "十一月第四个星期四（美）", Month: time.November, Weekday: time.Thursday, Occurrence: 4},
	}
	events, err := Events(rules, []int{2024, 2025})
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, "母亲节", events[0].Title)
	assert.Equal(t, "2024-05-12", events[0].Date.Format(model.DateLayout))
	assert.Equal(t, "浮动节日：5月第二个星期日", events[0].Description)
	assert.Equal(t, model.CategoryFloating, events[0].Category)
	assert.Equal(t, "十一月第四个星期四（美）", events[1].Description)
	assert.Equal(t, "2025-11-27", events[3].Date.Format(model.DateLayout))
}

func TestEventsFailsWholeRun(t *testing.T) {
	rules := []model.FloatingRule{
		{Title: "母亲节", Month: time.May, Weekday: time.Sunday, Occurrence: 2},
		{Title: "二月第五个星期五", Month: time.February, Weekday: time.Friday, Occurrence: 5},
	}
	// February 2024 Fridays are the 2nd, 9th, 16th and 23rd.
	events, err := Events(rules, []int{2024})
	assert.Nil(t, events)
	assert.ErrorIs(t, err, ErrInvalidOccurrence)
}
