package lunar

import (
	"fmt"
	"time"
)

// Table is a read-only lookup of lunar year structure keyed by lunar year.
type Table interface {
	// Range returns the first and last lunar year covered.
	Range() (first, last int)
	// NewYear returns the solar date (midnight UTC) of lunar 1/1 of year.
	NewYear(year int) (time.Time, error)
	// LeapMonth returns the month number followed by a leap month, or 0.
	LeapMonth(year int) (int, error)
	// MonthDays returns 29 or 30 for the given (possibly leap) month.
	MonthDays(year, month int, leap bool) (int, error)
}

const (
	packedFirstYear = 1900
	packedLastYear  = 2100
)

// packedYears encodes one lunar year per entry, 1900..2100:
//
//	bits 0-3   leap month number (0 = none)
//	bits 4-15  month 12..1 length, bit set = 30 days
//	bit  16    leap month length, bit set = 30 days
var packedYears = [...]uint32{
	0x04bd8, 0x04ae0, 0x0a570, 0x054d5, 0x0d260, 0x0d950, 0x16554, 0x056a0, 0x09ad0, 0x055d2, // 1900
	0x04ae0, 0x0a5b6, 0x0a4d0, 0x0d250, 0x1d255, 0x0b540, 0x0d6a0, 0x0ada2, 0x095b0, 0x14977, // 1910
	0x04970, 0x0a4b0, 0x0b4b5, 0x06a50, 0x06d40, 0x1ab54, 0x02b60, 0x09570, 0x052f2, 0x04970, // 1920
	0x06566, 0x0d4a0, 0x0ea50, 0x16a95, 0x05ad0, 0x02b60, 0x186e3, 0x092e0, 0x1c8d7, 0x0c950, // 1930
	0x0d4a0, 0x1d8a6, 0x0b550, 0x056a0, 0x1a5b4, 0x025d0, 0x092d0, 0x0d2b2, 0x0a950, 0x0b557, // 1940
	0x06ca0, 0x0b550, 0x15355, 0x04da0, 0x0a5b0, 0x14573, 0x052b0, 0x0a9a8, 0x0e950, 0x06aa0, // 1950
	0x0aea6, 0x0ab50, 0x04b60, 0x0aae4, 0x0a570, 0x05260, 0x0f263, 0x0d950, 0x05b57, 0x056a0, // 1960
	0x096d0, 0x04dd5, 0x04ad0, 0x0a4d0, 0x0d4d4, 0x0d250, 0x0d558, 0x0b540, 0x0b6a0, 0x195a6, // 1970
	0x095b0, 0x049b0, 0x0a974, 0x0a4b0, 0x0b27a, 0x06a50, 0x06d40, 0x0af46, 0x0ab60, 0x09570, // 1980
	0x04af5, 0x04970, 0x064b0, 0x074a3, 0x0ea50, 0x06b58, 0x05ac0, 0x0ab60, 0x096d5, 0x092e0, // 1990
	0x0c960, 0x0d954, 0x0d4a0, 0x0da50, 0x07552, 0x056a0, 0x0abb7, 0x025d0, 0x092d0, 0x0cab5, // 2000
	0x0a950, 0x0b4a0, 0x0baa4, 0x0ad50, 0x055d9, 0x04ba0, 0x0a5b0, 0x15176, 0x052b0, 0x0a930, // 2010
	0x07954, 0x06aa0, 0x0ad50, 0x05b52, 0x04b60, 0x0a6e6, 0x0a4e0, 0x0d260, 0x0ea65, 0x0d530, // 2020
	0x05aa0, 0x076a3, 0x096d0, 0x04afb, 0x04ad0, 0x0a4d0, 0x1d0b6, 0x0d250, 0x0d520, 0x0dd45, // 2030
	0x0b5a0, 0x056d0, 0x055b2, 0x049b0, 0x0a577, 0x0a4b0, 0x0aa50, 0x1b255, 0x06d20, 0x0ada0, // 2040
	0x14b63, 0x09370, 0x049f8, 0x04970, 0x064b0, 0x168a6, 0x0ea50, 0x06b20, 0x1a6c4, 0x0aae0, // 2050
	0x092e0, 0x0d2e3, 0x0c960, 0x0d557, 0x0d4a0, 0x0da50, 0x05d55, 0x056a0, 0x0a6d0, 0x055d4, // 2060
	0x052d0, 0x0a9b8, 0x0a950, 0x0b4a0, 0x0b6a6, 0x0ad50, 0x055a0, 0x0aba4, 0x0a5b0, 0x052b0, // 2070
	0x0b273, 0x06930, 0x07337, 0x06aa0, 0x0ad50, 0x14b55, 0x04b60, 0x0a570, 0x054e4, 0x0d160, // 2080
	0x0e968, 0x0d520, 0x0daa0, 0x16aa6, 0x056d0, 0x04ae0, 0x0a9d4, 0x0a2d0, 0x0d150, 0x0f252, // 2090
	0x0d520, // 2100
}

// packedEpoch is lunar 1900/1/1.
var packedEpoch = time.Date(1900, time.January, 31, 0, 0, 0, 0, time.UTC)

type packedTable struct {
	newYears []time.Time
}

var defaultTable = newPackedTable()

// DefaultTable returns the embedded table covering lunar years 1900-2100.
func DefaultTable() Table {
	return defaultTable
}

func newPackedTable() *packedTable {
	t := &packedTable{newYears: make([]time.Time, len(packedYears))}
	day := packedEpoch
	for i := range packedYears {
		t.newYears[i] = day
		day = day.AddDate(0, 0, yearDays(packedYears[i]))
	}
	return t
}

func yearDays(info uint32) int {
	days := 12 * 29
	for mask := uint32(0x8000); mask > 0x8; mask >>= 1 {
		if info&mask != 0 {
			days++
		}
	}
	return days + leapDays(info)
}

func leapDays(info uint32) int {
	if info&0xf == 0 {
		return 0
	}
	if info&0x10000 != 0 {
		return 30
	}
	return 29
}

func (t *packedTable) Range() (int, int) {
	return packedFirstYear, packedLastYear
}

func (t *packedTable) info(year int) (uint32, error) {
	if year < packedFirstYear || year > packedLastYear {
		return 0, fmt.Errorf("lunar year %d outside table range %d-%d", year, packedFirstYear, packedLastYear)
	}
	return packedYears[year-packedFirstYear], nil
}

func (t *packedTable) NewYear(year int) (time.Time, error) {
	if _, err := t.info(year); err != nil {
		return time.Time{}, err
	}
	return t.newYears[year-packedFirstYear], nil
}

func (t *packedTable) LeapMonth(year int) (int, error) {
	info, err := t.info(year)
	if err != nil {
		return 0, err
	}
	return int(info & 0xf), nil
}

func (t *packedTable) MonthDays(year, month int, leap bool) (int, error) {
	info, err := t.info(year)
	if err != nil {
		return 0, err
	}
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("lunar month %d out of range", month)
	}
	if leap {
		if int(info&0xf) != month {
			return 0, fmt.Errorf("lunar year %d has no leap month %d", year, month)
		}
		return leapDays(info), nil
	}
	if info&(0x10000>>uint(month)) != 0 {
		return 30, nil
	}
	return 29, nil
}
