package ics

import (
	"fmt"
	"sort"
	"time"

	ical "github.com/arran4/golang-ical"

	"markcal/internal/datekey"
	"markcal/internal/model"
)

// ProductID identifies markcal in exported calendars.
const ProductID = "-//markcal//Month Marks//EN"

// MarkedDay is one exported day.
type MarkedDay struct {
	Key    model.DateKey
	Mark   model.Mark
	Reason string
}

var markGlyphs = map[model.Mark]string{
	model.MarkCircle:   "○",
	model.MarkCross:    "✕",
	model.MarkTriangle: "△",
}

// Export serializes the marked days as an iCalendar document with one
// all-day VEVENT per day, ordered by date. Days with malformed keys or
// MarkNone are skipped.
func Export(days []MarkedDay, stamp time.Time) string {
	sorted := make([]MarkedDay, len(days))
	copy(sorted, days)
	sort.Slice(sorted, func(i, j int) bool { return datekey.Less(sorted[i].Key, sorted[j].Key) })

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	for _, d := range sorted {
		glyph, ok := markGlyphs[d.Mark]
		if !ok {
			continue
		}
		y, m, day, err := datekey.Decode(d.Key)
		if err != nil {
			continue
		}
		start := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)

		ev := cal.AddEvent(fmt.Sprintf("%s-%s@markcal", d.Key, d.Mark))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetAllDayStartAt(start)
		ev.SetAllDayEndAt(start.AddDate(0, 0, 1))
		ev.SetSummary(glyph)
		if d.Reason != "" {
			ev.SetDescription(d.Reason)
		}
	}

	return cal.Serialize()
}
