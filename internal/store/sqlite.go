package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/ykvlv/report-bot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// GetPreferences returns the stored preferences or ErrNotFound.
func (r *SQLiteRepo) GetPreferences(ctx context.Context, userID int64) (domain.Preferences, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT dnd, tz, interval_start, interval_end
		FROM preferences
		WHERE user_id = ?`,
		userID,
	)

	var (
		dndInt     int
		tz         string
		start, end sql.NullInt64
	)
	if err := row.Scan(&dndInt, &tz, &start, &end); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Preferences{}, ErrNotFound
		}
		return domain.Preferences{}, err
	}

	return domain.Preferences{
		DND:      dndInt != 0,
		Timezone: tz,
		Interval: intervalFromNull(start, end),
	}, nil
}

// PutPreferences inserts or replaces a user's preferences.
func (r *SQLiteRepo) PutPreferences(ctx context.Context, userID int64, p domain.Preferences) error {
	if err := validatePreferences(p); err != nil {
		return err
	}
	start, end := intervalToNull(p.Interval)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO preferences (user_id, dnd, tz, interval_start, interval_end, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			dnd            = excluded.dnd,
			tz             = excluded.tz,
			interval_start = excluded.interval_start,
			interval_end   = excluded.interval_end,
			updated_at     = excluded.updated_at`,
		userID, boolToInt(p.DND), p.Timezone, start, end, time.Now().UTC().Unix(),
	)
	return err
}

// GetSession returns the user's configuration session or ErrNotFound.
func (r *SQLiteRepo) GetSession(ctx context.Context, userID int64) (domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRowContext(ctx, `
		SELECT state, start_hour
		FROM config_sessions
		WHERE user_id = ?`,
		userID,
	).Scan(&s.State, &s.Start)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, ErrNotFound
	}
	return s, err
}

// PutSession inserts or replaces the user's configuration session.
func (r *SQLiteRepo) PutSession(ctx context.Context, userID int64, s domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config_sessions (user_id, state, start_hour, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			state      = excluded.state,
			start_hour = excluded.start_hour,
			updated_at = excluded.updated_at`,
		userID, int(s.State), s.Start, time.Now().UTC().Unix(),
	)
	return err
}

// DeleteSession removes the user's configuration session, if any.
func (r *SQLiteRepo) DeleteSession(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM config_sessions WHERE user_id = ?`, userID)
	return err
}

// boolToInt converts a boolean to 1/0 for SQLite.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
