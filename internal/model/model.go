package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// DateLayout is the ISO date layout used by the statutory feed and the CSV tables.
const DateLayout = "2006-01-02"

// ErrInvalidRule is returned when a rule table row cannot describe a date at all
// (month out of range, empty title, ...).
var ErrInvalidRule = errors.New("invalid holiday rule")

// Category classifies where an event came from. The numeric order is the
// same-date presentation precedence: lower sorts first.
type Category int

const (
	CategoryStatutory Category = iota + 1
	CategoryAdjustedWorkday
	CategoryTraditionalLunar
	CategoryFixedInternational
	CategoryFloating
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c >= CategoryStatutory && c <= CategoryFloating
}

// Label is the human readable category written into CATEGORIES.
func (c Category) Label() string {
	switch c {
	case CategoryStatutory:
		return "法定节假日"
	case CategoryAdjustedWorkday:
		return "补班"
	case CategoryTraditionalLunar:
		return "传统节日"
	case CategoryFixedInternational:
		return "国际节日"
	case CategoryFloating:
		return "浮动节日"
	default:
		return ""
	}
}

func (c Category) String() string {
	switch c {
	case CategoryStatutory:
		return "statutory"
	case CategoryAdjustedWorkday:
		return "adjusted-workday"
	case CategoryTraditionalLunar:
		return "traditional-lunar"
	case CategoryFixedInternational:
		return "fixed-international"
	case CategoryFloating:
		return "floating"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// CategoryFromLabel maps a CATEGORIES value back to its Category. Used when
// reading a previously written document.
func CategoryFromLabel(label string) (Category, bool) {
	for c := CategoryStatutory; c <= CategoryFloating; c++ {
		if c.Label() == label {
			return c, true
		}
	}
	return 0, false
}

// CalendarEvent is a single all-day entry in the generated calendar.
// Values are passed by copy and never mutated after NewEvent.
type CalendarEvent struct {
	// Date is midnight UTC of the civil date.
	Date        time.Time
	Title       string
	Description string
	Category    Category
}

// NewEvent normalizes the date to midnight UTC and the title to NFC with
// surrounding whitespace removed, so equal titles compare equal byte-wise.
func NewEvent(date time.Time, title, description string, category Category) CalendarEvent {
	return CalendarEvent{
		Date:        Day(date.Year(), date.Month(), date.Day()),
		Title:       NormalizeTitle(title),
		Description: strings.TrimSpace(description),
		Category:    category,
	}
}

// Key is the (date, title) identity used for dedup and for UID derivation.
func (e CalendarEvent) Key() string {
	return e.Date.Format(DateLayout) + "|" + e.Title
}

// NormalizeTitle trims and NFC-normalizes a title.
func NormalizeTitle(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Day returns midnight UTC of the given civil date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO date (YYYY-MM-DD) into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// DaysIn returns the number of days of month in year.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// YearSpan returns count consecutive years starting at start.
func YearSpan(start, count int) []int {
	if count <= 0 {
		return nil
	}
	years := make([]int, 0, count)
	for y := start; y < start+count; y++ {
		years = append(years, y)
	}
	return years
}
