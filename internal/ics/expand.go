package ics

import (
	"time"

	"github.com/teambition/rrule-go"

	"markcal/internal/datekey"
	appLog "markcal/internal/log"
	"markcal/internal/model"
)

// maxDaysPerEvent caps multi-day spans so a malformed DTEND cannot flood the
// table.
const maxDaysPerEvent = 31

// HolidaysForYear expands all-day events (including RRULE/EXDATE recurrence)
// into the days of year they cover, labelled with their SUMMARY. Timed events
// are not holidays and are ignored. When two events cover the same day the
// earlier one in feed order wins.
func HolidaysForYear(events []ParsedEvent, year int) model.HolidayTable {
	out := make(model.HolidayTable)

	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)

	for _, ev := range events {
		if !ev.AllDay || ev.Summary == "" {
			continue
		}

		span := int(ev.End.Sub(ev.Start).Hours() / 24)
		if span < 1 {
			span = 1
		}
		if span > maxDaysPerEvent {
			span = maxDaysPerEvent
		}

		// Look back far enough that a span starting last year still reaches
		// into January.
		for _, start := range occurrences(ev, yearStart.AddDate(0, 0, -span), yearEnd) {
			for i := 0; i < span; i++ {
				d := start.AddDate(0, 0, i)
				if d.Before(yearStart) || !d.Before(yearEnd) {
					continue
				}
				k := datekey.FromYMD(d.Year(), d.Month(), d.Day())
				if _, exists := out[k]; !exists {
					out[k] = ev.Summary
				}
			}
		}
	}
	return out
}

// occurrences returns the start dates of ev inside [from, to).
func occurrences(ev ParsedEvent, from, to time.Time) []time.Time {
	if ev.RawRRule == "" {
		if !ev.Start.Before(from) && ev.Start.Before(to) {
			return []time.Time{ev.Start}
		}
		return nil
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Warn("ics: failed to parse RRULE", "uid", ev.UID, "rrule", ev.RawRRule, "err", err.Error())
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex)
	}

	// Between is inclusive at both ends with inc=true; the upper bound is
	// exclusive here, so step back one nanosecond.
	return set.Between(from, to.Add(-time.Nanosecond), true)
}
