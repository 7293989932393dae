// Package report decides which chat admins get mentioned when a member
// reports a message.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ykvlv/report-bot/internal/domain"
	"github.com/ykvlv/report-bot/internal/store"
)

// maxLookups caps concurrent preference lookups for one report.
const maxLookups = 8

// Role of a chat member, as reported by Telegram.
type Role string

const (
	RoleCreator Role = "creator"
	RoleAdmin   Role = "administrator"
	RoleMember  Role = "member"
)

// IsAdmin reports whether the role carries admin rights.
func (r Role) IsAdmin() bool {
	return r == RoleCreator || r == RoleAdmin
}

// Admin is one entry of a chat's admin roster.
type Admin struct {
	UserID      int64
	DisplayName string
	Username    string // without "@", may be empty
	Role        Role
	IsAnonymous bool
	IsBot       bool
}

// PreferenceReader loads stored preferences; store.ErrNotFound means defaults.
type PreferenceReader interface {
	GetPreferences(ctx context.Context, userID int64) (domain.Preferences, error)
}

// EligibilityChecker is satisfied by *domain.Engine.
type EligibilityChecker interface {
	Eligible(p domain.Preferences, now time.Time) bool
}

// Selection is the result of admin selection.
type Selection struct {
	Notify   []Admin // eligible admins in roster order
	Fallback *Admin  // creator, set only when Notify is empty
}

// Targets returns whom to mention: Notify, or the fallback alone.
func (s Selection) Targets() []Admin {
	if len(s.Notify) > 0 {
		return s.Notify
	}
	if s.Fallback != nil {
		return []Admin{*s.Fallback}
	}
	return nil
}

type Selector struct {
	prefs  PreferenceReader
	engine EligibilityChecker
}

func NewSelector(prefs PreferenceReader, engine EligibilityChecker) *Selector {
	return &Selector{prefs: prefs, engine: engine}
}

// Select filters admins down to the ones that may be mentioned right now.
// Anonymous and bot admins are skipped. Lookups run concurrently but the
// result keeps the roster order. With nobody eligible, the chat creator
// (if listed) becomes the fallback.
func (s *Selector) Select(ctx context.Context, admins []Admin, now time.Time) (Selection, error) {
	eligible := make([]bool, len(admins))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxLookups)
	for i, a := range admins {
		if a.IsAnonymous || a.IsBot {
			continue
		}
		g.Go(func() error {
			p, err := s.prefs.GetPreferences(gctx, a.UserID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("preferences of %d: %w", a.UserID, err)
			}
			eligible[i] = s.engine.Eligible(p, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Selection{}, err
	}

	var sel Selection
	for i, a := range admins {
		if eligible[i] {
			sel.Notify = append(sel.Notify, a)
		}
	}
	if len(sel.Notify) == 0 {
		for _, a := range admins {
			if a.Role == RoleCreator {
				creator := a
				sel.Fallback = &creator
				break
			}
		}
	}
	return sel, nil
}
