package ics

import (
	"errors"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"holidaycal/internal/model"
)

// ErrSerialization is returned for events that cannot be rendered. Upstream
// producers never emit such events.
var ErrSerialization = errors.New("calendar serialization error")

const (
	DefaultProductID    = "-//China Holiday Calendar//holidaycal//ZH"
	DefaultName         = "中国节假日与常用节日"
	DefaultTimezone     = "Asia/Shanghai"
	DefaultUIDDomain    = "china-calendar"
	DefaultPublishedTTL = "PT12H"
)

// uidNamespace seeds the name-based (v5) UUIDs of every entry.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://holidaycal/events"))

// Options controls the calendar header and UID domain. Zero fields use the defaults.
type Options struct {
	ProductID    string
	Name         string
	Timezone     string
	UIDDomain    string
	PublishedTTL string
}

func (o Options) withDefaults() Options {
	if o.ProductID == "" {
		o.ProductID = DefaultProductID
	}
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Timezone == "" {
		o.Timezone = DefaultTimezone
	}
	if o.UIDDomain == "" {
		o.UIDDomain = DefaultUIDDomain
	}
	if o.PublishedTTL == "" {
		o.PublishedTTL = DefaultPublishedTTL
	}
	return o
}

// UID derives the stable identifier of an entry from its (date, title).
func UID(e model.CalendarEvent, domain string) string {
	if domain == "" {
		domain = DefaultUIDDomain
	}
	return uuid.NewSHA1(uidNamespace, []byte(e.Key())).String() + "@" + domain
}

// Serialize renders events, in the given order, as one iCalendar document of
// all-day entries. The output depends only on its inputs: DTSTAMP is the
// entry date, not the wall clock.
func Serialize(events []model.CalendarEvent, opts Options) ([]byte, error) {
	opts = opts.withDefaults()

	cal := ical.NewCalendar()
	cal.SetProductId(opts.ProductID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(opts.Name)
	cal.SetXWRTimezone(opts.Timezone)
	cal.SetXPublishedTTL(opts.PublishedTTL)

	seen := make(map[string]struct{}, len(events))
	for i, e := range events {
		if err := validate(e); err != nil {
			return nil, fmt.Errorf("%w: event %d: %v", ErrSerialization, i, err)
		}
		uid := UID(e, opts.UIDDomain)
		if _, dup := seen[uid]; dup {
			return nil, fmt.Errorf("%w: event %d: duplicate entry %s", ErrSerialization, i, e.Key())
		}
		seen[uid] = struct{}{}

		start := model.Day(e.Date.Year(), e.Date.Month(), e.Date.Day())
		ve := cal.AddEvent(uid)
		ve.SetDtStampTime(start)
		ve.SetAllDayStartAt(start)
		ve.SetAllDayEndAt(start.AddDate(0, 0, 1))
		ve.SetSummary(e.Title)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		ve.SetProperty(ical.ComponentPropertyCategories, e.Category.Label())
		ve.SetProperty(ical.ComponentPropertyTransp, "TRANSPARENT")
	}

	return []byte(cal.Serialize()), nil
}

func validate(e model.CalendarEvent) error {
	switch {
	case e.Date.IsZero():
		return errors.New("missing date")
	case model.NormalizeTitle(e.Title) == "":
		return errors.New("missing title")
	case !e.Category.Valid():
		return fmt.Errorf("unknown category %d", int(e.Category))
	case e.Date.Year() < 1 || e.Date.Year() > 9999:
		return fmt.Errorf("date %s out of range", e.Date.Format(time.RFC3339))
	}
	return nil
}
