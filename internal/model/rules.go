package model

import (
	"fmt"
	"time"
)

// LastDay marks a lunar rule that targets the last day of its lunar month
// (29th or 30th depending on the year).
const LastDay = -1

// LastOccurrence marks a floating rule counted backward from month end.
const LastOccurrence = -1

// FixedRule is a Gregorian month/day observed every year.
type FixedRule struct {
	Title       string
	Description string
	Month       time.Month
	Day         int
}

// Validate checks the static shape of the rule. Whether the day exists in a
// given year (Feb 29) is decided at resolution time.
func (r FixedRule) Validate() error {
	if NormalizeTitle(r.Title) == "" {
		return fmt.Errorf("%w: fixed rule has empty title", ErrInvalidRule)
	}
	if r.Month < time.January || r.Month > time.December {
		return fmt.Errorf("%w: fixed rule %q month %d", ErrInvalidRule, r.Title, r.Month)
	}
	if r.Day < 1 || r.Day > DaysIn(2000, r.Month) {
		return fmt.Errorf("%w: fixed rule %q day %d", ErrInvalidRule, r.Title, r.Day)
	}
	return nil
}

// LunarRule is a date in the Chinese lunisolar calendar observed every lunar year.
type LunarRule struct {
	Title       string
	Description string
	Month       int  // 1..12
	Day         int  // 1..30, or LastDay
	Leap        bool // the leap month following Month
}

func (r LunarRule) Validate() error {
	if NormalizeTitle(r.Title) == "" {
		return fmt.Errorf("%w: lunar rule has empty title", ErrInvalidRule)
	}
	if r.Month < 1 || r.Month > 12 {
		return fmt.Errorf("%w: lunar rule %q month %d", ErrInvalidRule, r.Title, r.Month)
	}
	if r.Day != LastDay && (r.Day < 1 || r.Day > 30) {
		return fmt.Errorf("%w: lunar rule %q day %d", ErrInvalidRule, r.Title, r.Day)
	}
	return nil
}

// FloatingRule is "the Nth weekday of a month", e.g. the second Sunday of May.
type FloatingRule struct {
	Title       string
	Description string
	Month       time.Month
	Weekday     time.Weekday
	// Occurrence is 1..5, or LastOccurrence.
	Occurrence int
}

func (r FloatingRule) Validate() error {
	if NormalizeTitle(r.Title) == "" {
		return fmt.Errorf("%w: floating rule has empty title", ErrInvalidRule)
	}
	if r.Month < time.January || r.Month > time.December {
		return fmt.Errorf("%w: floating rule %q month %d", ErrInvalidRule, r.Title, r.Month)
	}
	if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
		return fmt.Errorf("%w: floating rule %q weekday %d", ErrInvalidRule, r.Title, r.Weekday)
	}
	return nil
}

// StatutoryDayRecord is one entry of the authoritative day-status feed.
type StatutoryDayRecord struct {
	Date      time.Time
	Name      string // optional
	IsRestDay bool
}
