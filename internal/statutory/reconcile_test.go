package statutory

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holidaycal/internal/model"
)

func rec(date, name string, rest bool) model.StatutoryDayRecord {
	d, err := model.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return model.StatutoryDayRecord{Date: d, Name: name, IsRestDay: rest}
}

func TestReconcileNationalDay(t *testing.T) {
	events, _, err := Reconcile([]model.StatutoryDayRecord{rec("2024-10-01", "国庆节", true)}, Options{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "国庆节", events[0].Title)
	assert.Equal(t, model.CategoryStatutory, events[0].Category)
	assert.Equal(t, model.Day(2024, time.October, 1), events[0].Date)
}

func TestReconcileKinds(t *testing.T) {
	records := []model.StatutoryDayRecord{
		rec("2024-09-29", "国庆节", false),
		rec("2024-10-01", "国庆节", true),
		rec("2024-10-02", "", true),
		rec("2024-10-12", "", false),
	}
	events, status, err := Reconcile(records, Options{RestDayLabel: "法定节假日"})
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "【补班】国庆节", events[0].Title)
	assert.Equal(t, model.CategoryAdjustedWorkday, events[0].Category)
	assert.Equal(t, "国庆节", events[1].Title)
	assert.Equal(t, "法定节假日", events[2].Title)

	// Sunday 2024-09-29 is a make-up workday, Saturday 2024-10-12 is an
	// ordinary working day per the feed.
	assert.False(t, status.IsRestDay(model.Day(2024, time.September, 29)))
	assert.False(t, status.IsRestDay(model.Day(2024, time.October, 12)))
	assert.True(t, status.IsRestDay(model.Day(2024, time.October, 2)))
	assert.True(t, status.Overridden(model.Day(2024, time.October, 2)))
	// No record: weekend default.
	assert.True(t, status.IsRestDay(model.Day(2024, time.October, 19)))
	assert.False(t, status.IsRestDay(model.Day(2024, time.October, 21)))
	assert.False(t, status.Overridden(model.Day(2024, time.October, 21)))
}

func TestReconcileDefaultLabel(t *testing.T) {
	events, _, err := Reconcile([]model.StatutoryDayRecord{rec("2025-01-01", "  ", true)}, Options{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, DefaultRestDayLabel, events[0].Title)
}

func TestReconcileConflict(t *testing.T) {
	records := []model.StatutoryDayRecord{
		rec("2025-05-01", "劳动节", true),
		rec("2025-05-02", "劳动节", true),
		rec("2025-05-01", "劳动节", false),
	}
	events, status, err := Reconcile(records, Options{})
	assert.Nil(t, events)
	assert.Nil(t, status)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflictingRecord))

	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, model.Day(2025, time.May, 1), ce.Date)
	assert.True(t, ce.First.IsRestDay)
	assert.False(t, ce.Second.IsRestDay)
}

func TestReconcileRepeatedAgreeingRecords(t *testing.T) {
	records := []model.StatutoryDayRecord{
		rec("2025-05-01", "劳动节", true),
		rec("2025-05-01", "劳动节", true),
	}
	events, _, err := Reconcile(records, Options{})
	require.NoError(t, err)
	// Exact duplicates are left to the merger.
	assert.Len(t, events, 2)
}

func TestReconcileMissingDate(t *testing.T) {
	_, _, err := Reconcile([]model.StatutoryDayRecord{{Name: "春节", IsRestDay: true}}, Options{})
	assert.Error(t, err)
}

func TestStatusFromEvents(t *testing.T) {
	events, want, err := Reconcile([]model.StatutoryDayRecord{
		rec("2024-09-29", "国庆节", false),
		rec("2024-10-01", "国庆节", true),
		rec("2024-10-02", "", true),
	}, Options{})
	require.NoError(t, err)
	events = append(events, model.NewEvent(model.Day(2024, time.October, 5), "x", "", model.CategoryFloating))

	got, err := StatusFromEvents(events)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, got.IsRestDay(model.Day(2024, time.October, 1)))
	assert.False(t, got.IsRestDay(model.Day(2024, time.September, 29)))
	assert.False(t, got.Overridden(model.Day(2024, time.October, 5)))
}

func TestStatusFromEventsConflict(t *testing.T) {
	d := model.Day(2024, time.October, 1)
	_, err := StatusFromEvents([]model.CalendarEvent{
		model.NewEvent(d, "国庆节", "", model.CategoryStatutory),
		model.NewEvent(d, "【补班】国庆节", "", model.CategoryAdjustedWorkday),
	})
	assert.ErrorIs(t, err, ErrConflictingRecord)
}
