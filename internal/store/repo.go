package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ykvlv/report-bot/internal/domain"
)

// ErrNotFound is returned when a user has no stored record.
var ErrNotFound = errors.New("not found")

// Repo stores per-user preferences and configuration sessions.
// Each key is read and written atomically; no multi-key transactions.
type Repo interface {
	GetPreferences(ctx context.Context, userID int64) (domain.Preferences, error)
	PutPreferences(ctx context.Context, userID int64, p domain.Preferences) error

	GetSession(ctx context.Context, userID int64) (domain.Session, error)
	PutSession(ctx context.Context, userID int64, s domain.Session) error
	DeleteSession(ctx context.Context, userID int64) error

	Close() error
}

// validatePreferences keeps equal-bound or out-of-range windows out of storage.
func validatePreferences(p domain.Preferences) error {
	if p.Interval != nil && !p.Interval.Valid() {
		return fmt.Errorf("%w: %d..%d", domain.ErrInvalidInterval, p.Interval.Start, p.Interval.End)
	}
	return nil
}
