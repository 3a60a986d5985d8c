package lunar

import (
	"errors"
	"fmt"
	"time"

	appLog "holidaycal/internal/log"
	"holidaycal/internal/model"
)

// ErrUnresolvableLunarDate is returned when a lunar date does not exist in the
// selected lunar year and no fallback applies.
var ErrUnresolvableLunarDate = errors.New("unresolvable lunar date")

// DateError describes which lunar date could not be resolved.
type DateError struct {
	LunarYear int
	Month     int
	Day       int
	Leap      bool
	Reason    string
}

func (e *DateError) Error() string {
	leap := ""
	if e.Leap {
		leap = "leap "
	}
	return fmt.Sprintf("%s: lunar %d %smonth %d day %d: %s",
		ErrUnresolvableLunarDate, e.LunarYear, leap, e.Month, e.Day, e.Reason)
}

func (e *DateError) Unwrap() error {
	return ErrUnresolvableLunarDate
}

// lastLunarMonth rules fall around the following Chinese New Year, so for a
// given solar year they are taken from the previous lunar year.
const lastLunarMonth = 12

// Converter maps lunar rules to solar dates using an injected Table.
type Converter struct {
	table Table
}

// NewConverter returns a Converter over table. A nil table selects DefaultTable.
func NewConverter(table Table) *Converter {
	if table == nil {
		table = DefaultTable()
	}
	return &Converter{table: table}
}

// LunarYearFor returns the lunar year whose occurrence of a rule in month is
// attributed to solarYear.
func LunarYearFor(month, solarYear int) int {
	if month == lastLunarMonth {
		return solarYear - 1
	}
	return solarYear
}

// Resolve returns the solar date of rule attributed to solarYear.
//
//   - Months 1-11 resolve in lunar year solarYear.
//   - Month 12 resolves in lunar year solarYear-1, so e.g. 腊八 (12/8) for 2025
//     is 2025-01-07 and 除夕 is always the eve of solarYear's new year.
//   - A leap rule in a year without that leap month falls back to the regular month.
func (c *Converter) Resolve(rule model.LunarRule, solarYear int) (time.Time, error) {
	return c.ToSolar(LunarYearFor(rule.Month, solarYear), rule.Month, rule.Day, rule.Leap)
}

// ToSolar converts (lunarYear, month, day, leap) to a solar date.
// day may be model.LastDay.
func (c *Converter) ToSolar(lunarYear, month, day int, leap bool) (time.Time, error) {
	fail := func(reason string) (time.Time, error) {
		return time.Time{}, &DateError{LunarYear: lunarYear, Month: month, Day: day, Leap: leap, Reason: reason}
	}

	if month < 1 || month > 12 {
		return fail("month out of range")
	}
	if first, last := c.table.Range(); lunarYear < first || lunarYear > last {
		return fail(fmt.Sprintf("year outside table range %d-%d", first, last))
	}

	newYear, err := c.table.NewYear(lunarYear)
	if err != nil {
		return fail(err.Error())
	}
	leapMonth, err := c.table.LeapMonth(lunarYear)
	if err != nil {
		return fail(err.Error())
	}

	if leap && leapMonth != month {
		appLog.Debug("lunar leap month missing, using regular month",
			"lunar_year", lunarYear, "month", month, "leap_month", leapMonth)
		leap = false
	}

	length, err := c.table.MonthDays(lunarYear, month, leap)
	if err != nil {
		return fail(err.Error())
	}
	if day == model.LastDay {
		day = length
	}
	if day < 1 || day > length {
		return fail(fmt.Sprintf("month has %d days", length))
	}

	offset := 0
	for m := 1; m < month; m++ {
		n, err := c.table.MonthDays(lunarYear, m, false)
		if err != nil {
			return fail(err.Error())
		}
		offset += n
		if m == leapMonth {
			n, err := c.table.MonthDays(lunarYear, m, true)
			if err != nil {
				return fail(err.Error())
			}
			offset += n
		}
	}
	if leap {
		// The leap month follows its regular month.
		n, err := c.table.MonthDays(lunarYear, month, false)
		if err != nil {
			return fail(err.Error())
		}
		offset += n
	}

	return newYear.AddDate(0, 0, offset+day-1), nil
}

// Events resolves every rule for every year. Rules are validated first; the
// first failure aborts with no partial result.
//
// Month-12 rules for year Y come from lunar year Y-1 and may land in late
// December of Y-1, outside the requested years (腊八 of 2023 is 2022-12-30).
func (c *Converter) Events(rules []model.LunarRule, years []int) ([]model.CalendarEvent, error) {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	out := make([]model.CalendarEvent, 0, len(rules)*len(years))
	for _, y := range years {
		for _, r := range rules {
			date, err := c.Resolve(r, y)
			if err != nil {
				return nil, fmt.Errorf("lunar rule %q for %d: %w", r.Title, y, err)
			}
			desc := r.Description
			if desc == "" {
				desc = "中国传统节日"
			}
			out = append(out, model.NewEvent(date, r.Title, desc, model.CategoryTraditionalLunar))
		}
	}
	return out, nil
}
