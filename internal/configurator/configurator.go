// Package configurator implements the two-step inline flow that sets a
// user's daily unavailability window: pick a start hour, then an end hour.
package configurator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ykvlv/report-bot/internal/domain"
	"github.com/ykvlv/report-bot/internal/store"
)

var (
	// ErrInvalidSelection covers payloads that don't match the user's live session.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrTimezoneRequired is returned when the user has no timezone yet.
	ErrTimezoneRequired = errors.New("timezone required")
)

// Store is the subset of store.Repo the flow needs.
type Store interface {
	GetPreferences(ctx context.Context, userID int64) (domain.Preferences, error)
	PutPreferences(ctx context.Context, userID int64, p domain.Preferences) error
	GetSession(ctx context.Context, userID int64) (domain.Session, error)
	PutSession(ctx context.Context, userID int64, s domain.Session) error
	DeleteSession(ctx context.Context, userID int64) error
}

// Prompt is what the user should be asked next.
type Prompt struct {
	State domain.SessionState
	Start int   // set in StateAwaitingEnd
	Hours []int // choices, in display order
}

// Result is the outcome of handling one callback: either a next prompt or
// the configured interval.
type Result struct {
	Prompt   *Prompt
	Interval *domain.Interval
}

type Configurator struct {
	store Store
	log   *zap.Logger
}

func New(s Store, log *zap.Logger) *Configurator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Configurator{store: s, log: log}
}

// Begin (re)starts the flow, discarding any unfinished session.
func (c *Configurator) Begin(ctx context.Context, userID int64) (Prompt, error) {
	if _, err := c.preferencesWithTZ(ctx, userID); err != nil {
		return Prompt{}, err
	}
	if err := c.store.PutSession(ctx, userID, domain.Session{State: domain.StateAwaitingStart}); err != nil {
		return Prompt{}, fmt.Errorf("save session: %w", err)
	}
	return Prompt{State: domain.StateAwaitingStart, Hours: domain.RotatedHours(0, -1)}, nil
}

// ChooseStart records the start hour and offers end hours starting right after it.
func (c *Configurator) ChooseStart(ctx context.Context, userID int64, hour int) (Prompt, error) {
	if !domain.ValidHour(hour) {
		return Prompt{}, fmt.Errorf("%w: start hour %d", ErrInvalidSelection, hour)
	}
	if _, err := c.preferencesWithTZ(ctx, userID); err != nil {
		return Prompt{}, err
	}
	s, err := c.session(ctx, userID)
	if err != nil {
		return Prompt{}, err
	}
	if s.State != domain.StateAwaitingStart {
		return Prompt{}, fmt.Errorf("%w: start chosen in state %s", ErrInvalidSelection, s.State)
	}

	next := domain.Session{State: domain.StateAwaitingEnd, Start: hour}
	if err := c.store.PutSession(ctx, userID, next); err != nil {
		return Prompt{}, fmt.Errorf("save session: %w", err)
	}
	return Prompt{
		State: domain.StateAwaitingEnd,
		Start: hour,
		Hours: domain.RotatedHours(hour+1, hour),
	}, nil
}

// ChooseEnd completes the flow: the interval is validated, saved into the
// user's preferences and the session is dropped.
func (c *Configurator) ChooseEnd(ctx context.Context, userID int64, start, end int) (domain.Interval, error) {
	if !domain.ValidHour(start) || !domain.ValidHour(end) {
		return domain.Interval{}, fmt.Errorf("%w: hours %d..%d", ErrInvalidSelection, start, end)
	}
	prefs, err := c.preferencesWithTZ(ctx, userID)
	if err != nil {
		return domain.Interval{}, err
	}
	s, err := c.session(ctx, userID)
	if err != nil {
		return domain.Interval{}, err
	}
	if s.State != domain.StateAwaitingEnd || s.Start != start {
		return domain.Interval{}, fmt.Errorf("%w: end chosen in state %s (start %d, payload start %d)",
			ErrInvalidSelection, s.State, s.Start, start)
	}

	iv, err := domain.NewInterval(start, end)
	if err != nil {
		return domain.Interval{}, err
	}
	prefs.Interval = &iv
	if err := c.store.PutPreferences(ctx, userID, prefs); err != nil {
		return domain.Interval{}, fmt.Errorf("save preferences: %w", err)
	}
	if err := c.store.DeleteSession(ctx, userID); err != nil {
		// The interval is already saved; a leftover session only rejects stale buttons.
		c.log.Warn("delete session failed", zap.Int64("userID", userID), zap.Error(err))
	}
	return iv, nil
}

// Handle decodes a callback payload and applies it.
func (c *Configurator) Handle(ctx context.Context, userID int64, data string) (Result, error) {
	cb, err := ParseCallback(data)
	if err != nil {
		c.log.Info("rejected configuration payload", zap.Int64("userID", userID), zap.Error(err))
		return Result{}, err
	}

	var res Result
	switch cb.Action {
	case ActionBegin:
		p, err := c.Begin(ctx, userID)
		if err != nil {
			return c.reject(userID, err)
		}
		res.Prompt = &p
	case ActionStart:
		p, err := c.ChooseStart(ctx, userID, cb.Start)
		if err != nil {
			return c.reject(userID, err)
		}
		res.Prompt = &p
	case ActionEnd:
		iv, err := c.ChooseEnd(ctx, userID, cb.Start, cb.End)
		if err != nil {
			return c.reject(userID, err)
		}
		res.Interval = &iv
	}
	return res, nil
}

func (c *Configurator) reject(userID int64, err error) (Result, error) {
	if errors.Is(err, ErrInvalidSelection) || errors.Is(err, domain.ErrInvalidInterval) {
		c.log.Info("rejected configuration step", zap.Int64("userID", userID), zap.Error(err))
	}
	return Result{}, err
}

func (c *Configurator) preferencesWithTZ(ctx context.Context, userID int64) (domain.Preferences, error) {
	p, err := c.store.GetPreferences(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.Preferences{}, fmt.Errorf("load preferences: %w", err)
	}
	if !p.HasTimezone() {
		return domain.Preferences{}, ErrTimezoneRequired
	}
	return p, nil
}

func (c *Configurator) session(ctx context.Context, userID int64) (domain.Session, error) {
	s, err := c.store.GetSession(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Session{}, fmt.Errorf("%w: no session", ErrInvalidSelection)
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	return s, nil
}
