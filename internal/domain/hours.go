package domain

import "fmt"

const HoursPerDay = 24

// ValidHour reports whether h is a wall-clock hour (0..23).
func ValidHour(h int) bool {
	return h >= 0 && h < HoursPerDay
}

// FormatHour renders an hour on a 12-hour clock: 0 → "12 AM", 13 → "01 PM".
// Values outside 0..23 are normalized modulo 24.
func FormatHour(h int) string {
	h = ((h % HoursPerDay) + HoursPerDay) % HoursPerDay
	switch {
	case h == 0:
		return "12 AM"
	case h == 12:
		return "12 PM"
	case h > 12:
		return fmt.Sprintf("%02d PM", h-12)
	default:
		return fmt.Sprintf("%02d AM", h)
	}
}

// RotatedHours returns every hour of the day exactly once, starting at from
// (normalized modulo 24) and wrapping past 23 to 0, skipping exclude.
// Pass an exclude outside 0..23 to keep all 24 hours.
func RotatedHours(from, exclude int) []int {
	from = ((from % HoursPerDay) + HoursPerDay) % HoursPerDay
	out := make([]int, 0, HoursPerDay)
	for i := 0; i < HoursPerDay; i++ {
		h := (from + i) % HoursPerDay
		if h == exclude {
			continue
		}
		out = append(out, h)
	}
	return out
}
