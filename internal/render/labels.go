package render

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Labels holds the human-readable strings placed on the document.
type Labels struct {
	Weekdays        [7]string // Sunday first
	CrossHeading    string
	TriangleHeading string
	Unfilled        string
	MonthTitle      func(year int, month time.Month) string
}

// JapaneseLabels is the default label set.
func JapaneseLabels() Labels {
	return Labels{
		Weekdays:        [7]string{"日", "月", "火", "水", "木", "金", "土"},
		CrossHeading:    "✕の理由",
		TriangleHeading: "△の理由",
		Unfilled:        "理由未記入",
		MonthTitle: func(year int, month time.Month) string {
			return fmt.Sprintf("%d年%d月", year, int(month))
		},
	}
}

// EnglishLabels only uses ASCII, which the built-in raster font can draw.
func EnglishLabels() Labels {
	return Labels{
		Weekdays:        [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
		CrossHeading:    "X reasons",
		TriangleHeading: "Triangle reasons",
		Unfilled:        "not filled in",
		MonthTitle: func(year int, month time.Month) string {
			return fmt.Sprintf("%s %d", month, year)
		},
	}
}

// LabelsFor picks a label set by locale ("ja", "en", "en-US", ...). Unknown
// locales get the Japanese set.
func LabelsFor(locale string) Labels {
	if strings.HasPrefix(strings.ToLower(locale), "en") {
		return EnglishLabels()
	}
	return JapaneseLabels()
}

// ASCII reports whether every label, including a sample title, is plain
// ASCII.
func (l Labels) ASCII() bool {
	texts := append(l.Weekdays[:], l.CrossHeading, l.TriangleHeading, l.Unfilled)
	if l.MonthTitle != nil {
		texts = append(texts, l.MonthTitle(2000, time.December))
	}
	for _, t := range texts {
		for i := 0; i < len(t); i++ {
			if t[i] >= utf8.RuneSelf {
				return false
			}
		}
	}
	return true
}
