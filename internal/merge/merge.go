package merge

import (
	"cmp"
	"slices"

	"holidaycal/internal/model"
)

// Merge unions the producers' events, drops exact (date, title) duplicates and
// returns them ordered by date, then category precedence (Statutory first,
// Floating last), then first-seen order.
//
// When the same (date, title) arrives from several producers, the event of the
// highest-precedence category is kept. Different titles on one date all survive.
func Merge(sources ...[]model.CalendarEvent) []model.CalendarEvent {
	total := 0
	for _, s := range sources {
		total += len(s)
	}

	out := make([]model.CalendarEvent, 0, total)
	index := make(map[string]int, total)
	for _, s := range sources {
		for _, e := range s {
			e = model.NewEvent(e.Date, e.Title, e.Description, e.Category)
			k := e.Key()
			if i, ok := index[k]; ok {
				if e.Category < out[i].Category {
					out[i] = e
				}
				continue
			}
			index[k] = len(out)
			out = append(out, e)
		}
	}

	slices.SortStableFunc(out, compare)
	return out
}

func compare(a, b model.CalendarEvent) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	return cmp.Compare(a.Category, b.Category)
}
