package domain

import (
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/report-bot/internal/metrics"
)

// OffsetResolver maps a timezone identifier to its UTC offset at a given instant.
// Implementations must not cache offsets across calls: DST moves them.
type OffsetResolver interface {
	OffsetMinutes(id string, at time.Time) (int, error)
}

// Engine decides whether a user may be tagged right now.
// It holds no mutable state; equal inputs always give equal answers.
type Engine struct {
	tz  OffsetResolver
	log *zap.Logger
}

// NewEngine creates an availability engine backed by the given resolver.
func NewEngine(tz OffsetResolver, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{tz: tz, log: log}
}

// IsAvailable answers the interval question only; DND is handled by Eligible.
// Missing timezone, missing window, or an unresolvable timezone all mean "available".
func (e *Engine) IsAvailable(p Preferences, now time.Time) bool {
	if !p.HasTimezone() || p.Interval == nil {
		return true
	}
	if !p.Interval.Valid() {
		e.log.Warn("ignoring malformed interval",
			zap.Int("start", p.Interval.Start), zap.Int("end", p.Interval.End))
		return true
	}
	offset, err := e.tz.OffsetMinutes(p.Timezone, now)
	if err != nil {
		// fail open
		metrics.TimezoneFailures.Inc()
		e.log.Warn("timezone resolution failed", zap.String("tz", p.Timezone), zap.Error(err))
		return true
	}
	return !InWindow(LocalHour(now, offset), *p.Interval)
}

// Eligible reports whether the user should be mentioned in a report.
func (e *Engine) Eligible(p Preferences, now time.Time) bool {
	return !p.DND && e.IsAvailable(p, now)
}

// LocalHour returns the wall-clock hour of now shifted by offsetMinutes.
func LocalHour(now time.Time, offsetMinutes int) int {
	return now.UTC().Add(time.Duration(offsetMinutes) * time.Minute).Hour()
}

// InWindow reports whether localHour lies inside the half-open window [Start, End).
// Hours before Start are moved into the next day's frame so a wrapping window
// like 23→6 still matches 2 AM.
func InWindow(localHour int, iv Interval) bool {
	h := localHour
	if h < iv.Start {
		h += HoursPerDay
	}
	if iv.Start < iv.End {
		return h >= iv.Start && h < iv.End
	}
	return h >= iv.Start && h < iv.End+HoursPerDay
}
