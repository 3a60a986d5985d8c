package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holidaycal/internal/model"
)

func ev(y int, m time.Month, d int, title string, c model.Category) model.CalendarEvent {
	return model.NewEvent(model.Day(y, m, d), title, "", c)
}

func TestMergeDedupAndOrder(t *testing.T) {
	statutory := []model.CalendarEvent{
		ev(2025, time.January, 1, "元旦", model.CategoryStatutory),
		ev(2025, time.January, 26, "【补班】春节", model.CategoryAdjustedWorkday),
		ev(2025, time.January, 28, "春节", model.CategoryStatutory),
	}
	lunar := []model.CalendarEvent{
		ev(2025, time.January, 29, "春节", model.CategoryTraditionalLunar),
		ev(2025, time.January, 28, "除夕", model.CategoryTraditionalLunar),
		ev(2025, time.January, 7, "腊八节", model.CategoryTraditionalLunar),
	}
	fixed := []model.CalendarEvent{
		ev(2025, time.January, 1, "元旦", model.CategoryFixedInternational),
		ev(2025, time.January, 1, "元旦", model.CategoryFixedInternational),
	}
	floating := []model.CalendarEvent{
		ev(2025, time.May, 11, "母亲节", model.CategoryFloating),
	}

	out := Merge(floating, fixed, lunar, statutory)
	require.Len(t, out, 7)

	var got []string
	for _, e := range out {
		got = append(got, e.Date.Format("01-02")+" "+e.Title)
	}
	assert.Equal(t, []string{
		"01-01 元旦",
		"01-07 腊八节",
		"01-26 【补班】春节",
		"01-28 春节",
		"01-28 除夕",
		"01-29 春节",
		"05-11 母亲节",
	}, got)

	// The statutory copy of 元旦 wins over the fixed-table copy.
	assert.Equal(t, model.CategoryStatutory, out[0].Category)
	assert.Equal(t, model.CategoryStatutory, out[3].Category)
	assert.Equal(t, model.CategoryTraditionalLunar, out[4].Category)
}

func TestMergeSameDateDifferentCategoriesCoexist(t *testing.T) {
	out := Merge(
		[]model.CalendarEvent{ev(2020, time.October, 1, "中秋节", model.CategoryTraditionalLunar)},
		[]model.CalendarEvent{ev(2020, time.October, 1, "国庆节", model.CategoryStatutory)},
		[]model.CalendarEvent{ev(2020, time.October, 1, "国庆节", model.CategoryFixedInternational)},
	)
	require.Len(t, out, 2)
	assert.Equal(t, "国庆节", out[0].Title)
	assert.Equal(t, model.CategoryStatutory, out[0].Category)
	assert.Equal(t, "中秋节", out[1].Title)
}

func TestMergeNormalizesTitles(t *testing.T) {
	// "é" composed vs decomposed, plus stray whitespace.
	out := Merge(
		[]model.CalendarEvent{{Date: model.Day(2025, time.March, 8), Title: "Caf\u00e9", Category: model.CategoryFixedInternational}},
		[]model.CalendarEvent{{Date: model.Day(2025, time.March, 8), Title: " Cafe\u0301 ", Category: model.CategoryFixedInternational}},
	)
	assert.Len(t, out, 1)
}

func TestMergeNeverRegressesDate(t *testing.T) {
	var in []model.CalendarEvent
	for i := 0; i < 60; i++ {
		d := model.Day(2024, time.January, 1).AddDate(0, 0, (i*37)%365)
		in = append(in, model.NewEvent(d, "e", "", model.Category(i%5+1)))
	}
	out := Merge(in)
	for i := 1; i < len(out); i++ {
		assert.False(t, out[i].Date.Before(out[i-1].Date), "date regression at %d", i)
		if out[i].Date.Equal(out[i-1].Date) {
			assert.LessOrEqual(t, out[i-1].Category, out[i].Category)
		}
	}
}

func TestMergeEmpty(t *testing.T) {
	assert.Empty(t, Merge())
	assert.Empty(t, Merge(nil, nil))
}
