package model

import (
	"fmt"
	"strings"
	"time"
)

// DateKey identifies a local calendar day as "YYYY-MM-DD". It is derived from
// the year/month/day components of a date, never from a UTC serialization.
type DateKey string

// Mark is the annotation a user cycles on a day.
type Mark int

const (
	MarkNone Mark = iota
	MarkCircle
	MarkCross
	MarkTriangle
)

var markNames = [...]string{"none", "circle", "cross", "triangle"}

func (m Mark) String() string {
	if m < MarkNone || m > MarkTriangle {
		return fmt.Sprintf("mark(%d)", int(m))
	}
	return markNames[m]
}

// Annotatable reports whether a reason can be attached to days carrying m.
func (m Mark) Annotatable() bool {
	return m == MarkCross || m == MarkTriangle
}

// MarshalText encodes the mark as its lowercase name.
func (m Mark) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts the lowercase names produced by MarshalText.
func (m *Mark) UnmarshalText(b []byte) error {
	v, err := ParseMark(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMark parses "none", "circle", "cross" or "triangle" (case-insensitive).
// The empty string parses as MarkNone.
func ParseMark(s string) (Mark, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return MarkNone, nil
	}
	for i, n := range markNames {
		if n == s {
			return Mark(i), nil
		}
	}
	return MarkNone, fmt.Errorf("model: unknown mark %q", s)
}

// WeekendKind classifies a day for the weekend colouring rules.
type WeekendKind int

const (
	WeekendNone WeekendKind = iota
	WeekendSunday
	WeekendSaturday
)

// WeekendOf returns the weekend kind of the given weekday.
func WeekendOf(wd time.Weekday) WeekendKind {
	switch wd {
	case time.Sunday:
		return WeekendSunday
	case time.Saturday:
		return WeekendSaturday
	default:
		return WeekendNone
	}
}

// DayCell is one derived cell of a month grid. It is recomputed on every
// render and never stored.
type DayCell struct {
	Date         time.Time
	Key          DateKey
	CurrentMonth bool
	Today        bool
	Weekend      WeekendKind

	// Holiday is the holiday label, empty when the day is not a holiday.
	Holiday string

	Mark Mark
}

// GridCells is the fixed number of cells in a month grid (6 rows of 7 days).
const GridCells = 42

// MonthGrid is a row-major Sunday-first 6x7 grid.
type MonthGrid []DayCell

// HolidayTable maps a day to its holiday label for one calendar year.
type HolidayTable map[DateKey]string

// Annotation is one row of a per-kind reason listing.
type Annotation struct {
	Key    DateKey
	Date   time.Time
	Reason string
}
