package generate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holidaycal/internal/ics"
	"holidaycal/internal/lunar"
	"holidaycal/internal/model"
	"holidaycal/internal/statutory"
)

type staticSource []model.StatutoryDayRecord

func (s staticSource) Records(context.Context, []int) ([]model.StatutoryDayRecord, error) {
	return s, nil
}

type failingSource struct{ err error }

func (f failingSource) Records(context.Context, []int) ([]model.StatutoryDayRecord, error) {
	return nil, f.err
}

func rec(date string, name string, rest bool) model.StatutoryDayRecord {
	d, err := model.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return model.StatutoryDayRecord{Date: d, Name: name, IsRestDay: rest}
}

func input() Input {
	return Input{
		Years: []int{2024},
		Statutory: staticSource{
			rec("2024-09-29", "国庆节", false),
			rec("2024-10-01", "国庆节", true),
			rec("2024-10-02", "国庆节", true),
		},
		Rules: Rules{
			Fixed: []model.FixedRule{
				{Title: "国庆节", Month: time.October, Day: 1},
				{Title: "圣诞节", Month: time.December, Day: 25},
			},
			Lunar: []model.LunarRule{
				{Title: "中秋节", Month: 8, Day: 15},
				{Title: "除夕", Month: 12, Day: model.LastDay},
			},
			Floating: []model.FloatingRule{
				{Title: "母亲节", Month: time.May, Weekday: time.Sunday, Occurrence: 2},
			},
		},
		Reconcile: statutory.Options{RestDayLabel: "法定节假日"},
	}
}

func TestBuild(t *testing.T) {
	res, err := Build(context.Background(), input())
	require.NoError(t, err)

	var got []string
	for _, e := range res.Events {
		got = append(got, e.Date.Format(model.DateLayout)+" "+e.Title+" "+e.Category.String())
	}
	assert.Equal(t, []string{
		"2024-02-09 除夕 traditional-lunar",
		"2024-05-12 母亲节 floating",
		"2024-09-17 中秋节 traditional-lunar",
		"2024-09-29 【补班】国庆节 adjusted-workday",
		"2024-10-01 国庆节 statutory",
		"2024-10-02 国庆节 statutory",
		"2024-12-25 圣诞节 fixed-international",
	}, got)

	assert.True(t, res.Status.IsRestDay(model.Day(2024, time.October, 1)))
	assert.False(t, res.Status.IsRestDay(model.Day(2024, time.September, 29)))
	assert.Equal(t, 7, strings.Count(string(res.Body), "BEGIN:VEVENT"))
}

func TestBuildIsIdempotent(t *testing.T) {
	a, err := Build(context.Background(), input())
	require.NoError(t, err)
	b, err := Build(context.Background(), input())
	require.NoError(t, err)
	assert.Equal(t, a.Body, b.Body)
}

func TestBuildWithoutStatutorySource(t *testing.T) {
	in := input()
	in.Statutory = nil
	res, err := Build(context.Background(), in)
	require.NoError(t, err)
	for _, e := range res.Events {
		assert.NotEqual(t, model.CategoryStatutory, e.Category)
	}
}

func TestBuildFailures(t *testing.T) {
	feedErr := errors.New("offline")
	tests := map[string]struct {
		mutate func(*Input)
		want   error
	}{
		"feed": {
			mutate: func(in *Input) { in.Statutory = failingSource{err: feedErr} },
			want:   feedErr,
		},
		"conflict": {
			mutate: func(in *Input) {
				in.Statutory = staticSource{rec("2024-10-01", "国庆节", true), rec("2024-10-01", "国庆节", false)}
			},
			want: statutory.ErrConflictingRecord,
		},
		"lunar out of range": {
			mutate: func(in *Input) { in.Years = []int{2101} },
			want:   lunar.ErrUnresolvableLunarDate,
		},
		"invalid rule": {
			mutate: func(in *Input) { in.Rules.Fixed = append(in.Rules.Fixed, model.FixedRule{Month: time.May, Day: 1}) },
			want:   model.ErrInvalidRule,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			in := input()
			tt.mutate(&in)
			res, err := Build(context.Background(), in)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := Build(context.Background(), Input{})
	assert.Error(t, err)
}

func TestRunWritesAtomically(t *testing.T) {
	out := filepath.Join(t.TempDir(), "public", "holidays.ics")

	res, err := Run(context.Background(), input(), out)
	require.NoError(t, err)
	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, res.Body, written)
	_, err = os.Stat(out + ".tmp")
	assert.ErrorIs(t, err, os.ErrNotExist)

	// A second identical run leaves byte-identical output.
	_, err = Run(context.Background(), input(), out)
	require.NoError(t, err)
	again, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, written, again)

	entries, err := ics.Parse(again)
	require.NoError(t, err)
	assert.Len(t, entries, len(res.Events))
}

func TestRunFailureKeepsPreviousFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "holidays.ics")
	require.NoError(t, os.WriteFile(out, []byte("previous"), 0o644))

	in := input()
	in.Statutory = failingSource{err: errors.New("offline")}
	_, err := Run(context.Background(), in, out)
	require.Error(t, err)

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(body))
}
