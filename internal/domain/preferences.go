package domain

import (
	"errors"
	"fmt"
)

var ErrInvalidInterval = errors.New("invalid interval")

// DefaultInterval is applied when a user sets a timezone without having an
// unavailability window yet (12 AM to 6 AM).
var DefaultInterval = Interval{Start: 0, End: 6}

// Preferences holds a user's availability settings.
// The zero value is "no DND, no timezone, no window": always reachable.
type Preferences struct {
	DND      bool      `json:"dnd"`
	Interval *Interval `json:"interval,omitempty"`
	Timezone string    `json:"tz,omitempty"`
}

// Interval is a daily unavailability window [Start, End) in local wall-clock hours.
// Start > End means the window crosses local midnight.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NewInterval validates bounds and returns an Interval.
func NewInterval(start, end int) (Interval, error) {
	if !ValidHour(start) || !ValidHour(end) {
		return Interval{}, fmt.Errorf("%w: hours must be within 0..23, got %d..%d", ErrInvalidInterval, start, end)
	}
	if start == end {
		return Interval{}, fmt.Errorf("%w: start equals end (%d)", ErrInvalidInterval, start)
	}
	return Interval{Start: start, End: end}, nil
}

// Valid reports whether both bounds are hours and differ.
func (i Interval) Valid() bool {
	return ValidHour(i.Start) && ValidHour(i.End) && i.Start != i.End
}

// Wraps reports whether the window crosses midnight (e.g. 23→6).
func (i Interval) Wraps() bool {
	return i.Start > i.End
}

func (i Interval) String() string {
	return FormatHour(i.Start) + " to " + FormatHour(i.End)
}

// HasTimezone reports whether a timezone has been configured.
func (p Preferences) HasTimezone() bool {
	return p.Timezone != ""
}

// WithTimezone sets tz and fills in DefaultInterval when no window exists.
func (p Preferences) WithTimezone(tz string) Preferences {
	p.Timezone = tz
	if p.Interval == nil {
		iv := DefaultInterval
		p.Interval = &iv
	}
	return p
}

// ClearTimezone drops both the timezone and the window, which is meaningless without it.
func (p Preferences) ClearTimezone() Preferences {
	p.Timezone = ""
	p.Interval = nil
	return p
}
