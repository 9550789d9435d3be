package listing

import (
	"errors"
	"time"
)

// Date presets understood by Preset.
const (
	PresetAll       = "all"
	PresetToday     = "today"
	PresetYesterday = "yesterday"
	PresetWeek      = "week"
	PresetMonth     = "month"
)

const dayLayout = "2006-01-02"

var (
	ErrUnknownPreset = errors.New("unknown date preset")
	ErrInvalidDate   = errors.New("invalid date, want YYYY-MM-DD")
)

// DateRange is an inclusive time interval. A zero bound is open.
type DateRange struct {
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`
}

// IsZero reports whether the range is unbounded on both sides.
func (r DateRange) IsZero() bool { return r.From.IsZero() && r.To.IsZero() }

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// DayRange builds a range from the start of day from to the end of day to,
// both given as YYYY-MM-DD in loc. Either may be empty.
func DayRange(from, to string, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	var r DateRange
	if from != "" {
		t, err := time.ParseInLocation(dayLayout, from, loc)
		if err != nil {
			return DateRange{}, ErrInvalidDate
		}
		r.From = t
	}
	if to != "" {
		t, err := time.ParseInLocation(dayLayout, to, loc)
		if err != nil {
			return DateRange{}, ErrInvalidDate
		}
		r.To = endOfDay(t)
	}
	return r, nil
}

// Preset resolves a named range relative to now, in now's location. The
// week preset covers today and the six days before it; month runs from the
// first of the current month through today.
func Preset(name string, now time.Time) (DateRange, error) {
	today := startOfDay(now)
	switch name {
	case "", PresetAll:
		return DateRange{}, nil
	case PresetToday:
		return DateRange{From: today, To: endOfDay(today)}, nil
	case PresetYesterday:
		y := today.AddDate(0, 0, -1)
		return DateRange{From: y, To: endOfDay(y)}, nil
	case PresetWeek:
		return DateRange{From: today.AddDate(0, 0, -6), To: endOfDay(today)}, nil
	case PresetMonth:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		return DateRange{From: first, To: endOfDay(today)}, nil
	}
	return DateRange{}, ErrUnknownPreset
}
