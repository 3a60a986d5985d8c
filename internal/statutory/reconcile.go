package statutory

import (
	"errors"
	"fmt"
	"time"

	"holidaycal/internal/model"
)

// ErrConflictingRecord is returned when the feed marks one date both as a rest
// day and as a working day.
var ErrConflictingRecord = errors.New("conflicting statutory record")

const (
	// DefaultRestDayLabel titles rest days that carry no name.
	DefaultRestDayLabel = "Public Holiday"
	// WorkdayPrefix is prepended to the holiday name of a make-up workday.
	WorkdayPrefix = "【补班】"

	restDayDescription = "法定节假日（来源：holiday-cn）"
	workdayDescription = "调休安排的工作日（来源：holiday-cn）"
)

// ConflictError names the date and the two records that disagree.
type ConflictError struct {
	Date   time.Time
	First  model.StatutoryDayRecord
	Second model.StatutoryDayRecord
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s is rest=%t (%q) and rest=%t (%q)",
		ErrConflictingRecord, e.Date.Format(model.DateLayout),
		e.First.IsRestDay, e.First.Name, e.Second.IsRestDay, e.Second.Name)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflictingRecord
}

// Options tunes titles. The zero value uses DefaultRestDayLabel.
type Options struct {
	RestDayLabel string
}

// Status is the single authoritative state of every date mentioned by the feed.
type Status map[time.Time]bool

// IsRestDay reports whether date is a day off: the feed decides where it has a
// record, otherwise Saturday and Sunday are rest days.
func (s Status) IsRestDay(date time.Time) bool {
	d := model.Day(date.Year(), date.Month(), date.Day())
	if rest, ok := s[d]; ok {
		return rest
	}
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Overridden reports whether the feed has a record for date.
func (s Status) Overridden(date time.Time) bool {
	_, ok := s[model.Day(date.Year(), date.Month(), date.Day())]
	return ok
}

// Reconcile turns feed records into events:
//
//   - rest day: Statutory event titled with the record name, or the rest-day label
//   - working day with a name: Adjusted-Workday event "【补班】<name>"
//   - working day without a name: ordinary day, no event
//
// A date with both a rest-day and a working-day record fails the whole batch.
func Reconcile(records []model.StatutoryDayRecord, opts Options) ([]model.CalendarEvent, Status, error) {
	label := opts.RestDayLabel
	if label == "" {
		label = DefaultRestDayLabel
	}

	status := make(Status, len(records))
	first := make(map[time.Time]model.StatutoryDayRecord, len(records))
	for i, r := range records {
		if r.Date.IsZero() {
			return nil, nil, fmt.Errorf("statutory record %d (%q) has no date", i, r.Name)
		}
		d := model.Day(r.Date.Year(), r.Date.Month(), r.Date.Day())
		if prev, ok := first[d]; ok && prev.IsRestDay != r.IsRestDay {
			return nil, nil, &ConflictError{Date: d, First: prev, Second: r}
		}
		if _, ok := first[d]; !ok {
			first[d] = r
		}
		status[d] = r.IsRestDay
	}

	events := make([]model.CalendarEvent, 0, len(records))
	for _, r := range records {
		name := model.NormalizeTitle(r.Name)
		switch {
		case r.IsRestDay && name != "":
			events = append(events, model.NewEvent(r.Date, name, restDayDescription, model.CategoryStatutory))
		case r.IsRestDay:
			events = append(events, model.NewEvent(r.Date, label, restDayDescription, model.CategoryStatutory))
		case name != "":
			events = append(events, model.NewEvent(r.Date, WorkdayPrefix+name, workdayDescription, model.CategoryAdjustedWorkday))
		}
	}
	return events, status, nil
}

// StatusFromEvents rebuilds the day status from reconciled events, e.g. ones
// read back from a previously written calendar. Statutory events mark rest
// days and Adjusted-Workday events mark working days. Unnamed working-day
// records leave no event, so those dates fall back to the weekend rule.
func StatusFromEvents(events []model.CalendarEvent) (Status, error) {
	status := make(Status)
	for _, e := range events {
		var rest bool
		switch e.Category {
		case model.CategoryStatutory:
			rest = true
		case model.CategoryAdjustedWorkday:
			rest = false
		default:
			continue
		}
		d := model.Day(e.Date.Year(), e.Date.Month(), e.Date.Day())
		if prev, ok := status[d]; ok && prev != rest {
			return nil, &ConflictError{
				Date:   d,
				First:  model.StatutoryDayRecord{Date: d, IsRestDay: prev},
				Second: model.StatutoryDayRecord{Date: d, Name: e.Title, IsRestDay: rest},
			}
		}
		status[d] = rest
	}
	return status, nil
}
