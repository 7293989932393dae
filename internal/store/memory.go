package store

import (
	"context"
	"sync"

	"github.com/ykvlv/report-bot/internal/domain"
)

// MemoryRepo keeps everything in process memory. Data is lost on restart.
type MemoryRepo struct {
	mu       sync.RWMutex
	prefs    map[int64]domain.Preferences
	sessions map[int64]domain.Session
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		prefs:    make(map[int64]domain.Preferences),
		sessions: make(map[int64]domain.Session),
	}
}

func (r *MemoryRepo) GetPreferences(_ context.Context, userID int64) (domain.Preferences, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prefs[userID]
	if !ok {
		return domain.Preferences{}, ErrNotFound
	}
	// copy so callers can't mutate the stored interval
	if p.Interval != nil {
		iv := *p.Interval
		p.Interval = &iv
	}
	return p, nil
}

func (r *MemoryRepo) PutPreferences(_ context.Context, userID int64, p domain.Preferences) error {
	if err := validatePreferences(p); err != nil {
		return err
	}
	if p.Interval != nil {
		iv := *p.Interval
		p.Interval = &iv
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[userID] = p
	return nil
}

func (r *MemoryRepo) GetSession(_ context.Context, userID int64) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	if !ok {
		return domain.Session{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepo) PutSession(_ context.Context, userID int64, s domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[userID] = s
	return nil
}

func (r *MemoryRepo) DeleteSession(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
	return nil
}

func (r *MemoryRepo) Close() error { return nil }
