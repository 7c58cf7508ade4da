// Package datekey converts calendar dates to and from the canonical
// "YYYY-MM-DD" key used by every day-indexed map in markcal.
package datekey

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"markcal/internal/model"
)

// ErrMalformed is returned by Decode for keys that are not YYYY-MM-DD.
var ErrMalformed = errors.New("datekey: malformed key")

// Encode returns the key of t's calendar day in t's own location.
func Encode(t time.Time) model.DateKey {
	y, m, d := t.Date()
	return FromYMD(y, m, d)
}

// FromYMD builds a key from calendar components without normalising them.
func FromYMD(year int, month time.Month, day int) model.DateKey {
	return model.DateKey(fmt.Sprintf("%04d-%02d-%02d", year, int(month), day))
}

// Decode parses a key back into its components. Years past 9999 carry more
// than four digits, as produced by Encode.
func Decode(k model.DateKey) (year int, month time.Month, day int, err error) {
	s := string(k)
	n := len(s)
	if n < 10 || s[n-6] != '-' || s[n-3] != '-' {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	y, ok1 := digits(s[:n-6])
	m, ok2 := digits(s[n-5 : n-3])
	d, ok3 := digits(s[n-2:])
	if !ok1 || !ok2 || !ok3 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	if m < 1 || m > 12 || d < 1 || d > daysIn(y, time.Month(m)) {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return y, time.Month(m), d, nil
}

// Less orders keys chronologically. Longer years sort after shorter ones.
func Less(a, b model.DateKey) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func digits(s string) (int, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(s)
	return v, err == nil
}

// Parse decodes a user-supplied key and returns it in canonical form.
func Parse(s string) (model.DateKey, error) {
	y, m, d, err := Decode(model.DateKey(s))
	if err != nil {
		return "", err
	}
	return FromYMD(y, m, d), nil
}

// Date returns noon of the key's day in loc. Noon keeps the value on the same
// calendar day across DST shifts.
func Date(k model.DateKey, loc *time.Location) (time.Time, error) {
	y, m, d, err := Decode(k)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.Local
	}
	return time.Date(y, m, d, 12, 0, 0, 0, loc), nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
