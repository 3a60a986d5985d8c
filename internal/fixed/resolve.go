package fixed

import (
	"errors"
	"fmt"
	"time"

	"github.com/rickar/cal/v2"

	"holidaycal/internal/model"
)

// ErrInvalidDate is returned when a fixed month/day does not exist in a year,
// which only happens for February 29.
var ErrInvalidDate = errors.New("fixed date does not exist in year")

func holiday(rule model.FixedRule) *cal.Holiday {
	return &cal.Holiday{
		Name:  rule.Title,
		Month: rule.Month,
		Day:   rule.Day,
		Func:  cal.CalcDayOfMonth,
	}
}

// Resolve returns the date of rule in year.
func Resolve(rule model.FixedRule, year int) (time.Time, error) {
	if err := rule.Validate(); err != nil {
		return time.Time{}, err
	}
	actual, _ := holiday(rule).Calc(year)
	if actual.IsZero() || actual.Month() != rule.Month || actual.Day() != rule.Day {
		return time.Time{}, fmt.Errorf("%w: %q %d-%02d-%02d", ErrInvalidDate, rule.Title, year, rule.Month, rule.Day)
	}
	return model.Day(actual.Year(), actual.Month(), actual.Day()), nil
}

// Events resolves the fixed-date table for every year.
func Events(rules []model.FixedRule, years []int) ([]model.CalendarEvent, error) {
	out := make([]model.CalendarEvent, 0, len(rules)*len(years))
	for _, y := range years {
		for _, r := range rules {
			date, err := Resolve(r, y)
			if err != nil {
				return nil, fmt.Errorf("fixed rule %q for %d: %w", r.Title, y, err)
			}
			desc := r.Description
			if desc == "" {
				desc = "固定公历节日"
			}
			out = append(out, model.NewEvent(date, r.Title, desc, model.CategoryFixedInternational))
		}
	}
	return out, nil
}
