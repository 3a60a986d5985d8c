package floating

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"holidaycal/internal/model"
)

// ErrInvalidOccurrence is returned when the requested weekday occurrence does
// not exist in the month (a missing 5th) or is outside 1..5 / last.
var ErrInvalidOccurrence = errors.New("invalid weekday occurrence")

// OccurrenceError carries the rule coordinates that failed.
type OccurrenceError struct {
	Year       int
	Month      time.Month
	Weekday    time.Weekday
	Occurrence int
}

func (e *OccurrenceError) Error() string {
	return fmt.Sprintf("%s: occurrence %d of %s in %s %d",
		ErrInvalidOccurrence, e.Occurrence, e.Weekday, e.Month, e.Year)
}

func (e *OccurrenceError) Unwrap() error {
	return ErrInvalidOccurrence
}

var weekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// Resolve returns the date of the occurrence-th weekday of month in year.
// occurrence is 1..5 or model.LastOccurrence.
func Resolve(year int, month time.Month, weekday time.Weekday, occurrence int) (time.Time, error) {
	fail := &OccurrenceError{Year: year, Month: month, Weekday: weekday, Occurrence: occurrence}
	if occurrence == 0 || occurrence > 5 || occurrence < model.LastOccurrence {
		return time.Time{}, fail
	}
	wd, ok := weekdays[weekday]
	if !ok {
		return time.Time{}, fail
	}

	monthStart := model.Day(year, month, 1)
	monthEnd := model.Day(year, month, model.DaysIn(year, month))

	// BYDAY=2SU within a MONTHLY rule counts inside the month; -1SU counts
	// from its end. An absent 5th simply yields no instance.
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.MONTHLY,
		Dtstart:   monthStart,
		Until:     monthEnd,
		Bymonth:   []int{int(month)},
		Byweekday: []rrule.Weekday{wd.Nth(occurrence)},
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("floating rule %s: %w", fail, err)
	}

	dates := r.Between(monthStart, monthEnd, true)
	if len(dates) != 1 {
		return time.Time{}, fail
	}
	d := dates[0]
	return model.Day(d.Year(), d.Month(), d.Day()), nil
}

// ResolveRule resolves a FloatingRule for year.
func ResolveRule(rule model.FloatingRule, year int) (time.Time, error) {
	return Resolve(year, rule.Month, rule.Weekday, rule.Occurrence)
}

// Events resolves every rule for every year, aborting on the first error.
func Events(rules []model.FloatingRule, years []int) ([]model.CalendarEvent, error) {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	out := make([]model.CalendarEvent, 0, len(rules)*len(years))
	for _, y := range years {
		for _, r := range rules {
			date, err := ResolveRule(r, y)
			if err != nil {
				return nil, fmt.Errorf("floating rule %q for %d: %w", r.Title, y, err)
			}
			desc := r.Description
			if desc == "" {
				desc = Describe(r)
			}
			out = append(out, model.NewEvent(date, r.Title, desc, model.CategoryFloating))
		}
	}
	return out, nil
}

var (
	ordinalsZH = map[int]string{1: "第一个", 2: "第二个", 3: "第三个", 4: "第四个", 5: "第五个", model.LastOccurrence: "最后一个"}
	weekdaysZH = [...]string{"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"}
)

// Describe renders a rule as e.g. "浮动节日：5月第二个星期日".
func Describe(r model.FloatingRule) string {
	return fmt.Sprintf("浮动节日：%d月%s%s", int(r.Month), ordinalsZH[r.Occurrence], weekdaysZH[r.Weekday])
}
