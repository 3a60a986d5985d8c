package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "holidaycal/internal/log"
	"holidaycal/internal/model"
)

// Entry is one VEVENT read back from a generated document.
type Entry struct {
	UID   string
	Event model.CalendarEvent
}

// Parse reads a document written by Serialize. It is used to compare a new
// run against the file it replaces, so malformed VEVENTs are logged and skipped.
func Parse(body []byte) ([]Entry, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0)
	for _, comp := range cal.Events() {
		entry, perr := parseVEvent(comp)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "err", perr)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseVEvent(ve *ical.VEvent) (Entry, error) {
	var out Entry

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return out, errors.New("missing DTSTART")
	}
	start, err := parseDate(startProp.Value)
	if err != nil {
		return out, err
	}

	var summary, description string
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		description = p.Value
	}
	var category model.Category
	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
		category, _ = model.CategoryFromLabel(p.Value)
	}

	out.Event = model.NewEvent(start, summary, description, category)
	return out, nil
}

// parseDate accepts DATE (20250101) and DATE-TIME (20250101T000000[Z]) values
// and keeps only the civil date.
func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty date value")
	}
	if i := strings.IndexByte(v, 'T'); i >= 0 {
		v = v[:i]
	}
	return time.ParseInLocation("20060102", v, time.UTC)
}

// Diff counts entries present only in next (added) and only in prev (removed),
// matched by UID.
func Diff(prev, next []Entry) (added, removed int) {
	before := make(map[string]struct{}, len(prev))
	for _, e := range prev {
		before[e.UID] = struct{}{}
	}
	after := make(map[string]struct{}, len(next))
	for _, e := range next {
		after[e.UID] = struct{}{}
		if _, ok := before[e.UID]; !ok {
			added++
		}
	}
	for uid := range before {
		if _, ok := after[uid]; !ok {
			removed++
		}
	}
	return added, removed
}
