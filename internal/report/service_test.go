package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykvlv/report-bot/internal/domain"
)

const (
	chatID int64 = -100
	botID  int64 = 999
)

type fakeRoster struct {
	roles     map[int64]Role
	admins    []Admin
	listErr   error
	listCalls int
}

func (f *fakeRoster) ListAdmins(context.Context, int64) ([]Admin, error) {
	f.listCalls++
	return f.admins, f.listErr
}

func (f *fakeRoster) MemberRole(_ context.Context, _ int64, userID int64) (Role, error) {
	if r, ok := f.roles[userID]; ok {
		return r, nil
	}
	return RoleMember, nil
}

func newService(roster *fakeRoster, prefs *fakePrefs, limiter *ChatLimiter) *Service {
	s := NewService(roster, newSelector(prefs), limiter, nil)
	s.now = func() time.Time { return noon }
	return s
}

func request(target *Member) Request {
	return Request{
		ChatID:   chatID,
		Reporter: Member{UserID: 10, DisplayName: "Reporter"},
		Target:   target,
		BotID:    botID,
	}
}

func TestReport_Preconditions(t *testing.T) {
	roster := &fakeRoster{roles: map[int64]Role{
		1:  RoleCreator,
		2:  RoleAdmin,
		10: RoleMember,
	}}
	svc := newService(roster, &fakePrefs{}, nil)
	ctx := context.Background()

	_, err := svc.Report(ctx, request(nil))
	assert.ErrorIs(t, err, ErrNoReplyTarget)

	_, err = svc.Report(ctx, request(&Member{UserID: botID, IsBot: true}))
	assert.ErrorIs(t, err, ErrSelfReport)

	_, err = svc.Report(ctx, request(&Member{UserID: 2}))
	assert.ErrorIs(t, err, ErrTargetIsAdmin)

	_, err = svc.Report(ctx, request(&Member{UserID: 1}))
	assert.ErrorIs(t, err, ErrTargetIsAdmin)

	assert.Zero(t, roster.listCalls, "admins must not be listed when a precondition fails")
}

func TestReport_IgnoresAdminReporter(t *testing.T) {
	roster := &fakeRoster{roles: map[int64]Role{10: RoleAdmin}}
	svc := newService(roster, &fakePrefs{}, nil)

	_, err := svc.Report(context.Background(), request(&Member{UserID: 20}))
	assert.ErrorIs(t, err, ErrReporterIsAdmin)
}

func TestReport_SelectsAdmins(t *testing.T) {
	roster := &fakeRoster{admins: []Admin{
		{UserID: 1, Role: RoleCreator},
		{UserID: 2, Role: RoleAdmin, IsAnonymous: true},
		{UserID: 3, Role: RoleAdmin},
	}}
	prefs := &fakePrefs{prefs: map[int64]domain.Preferences{1: {DND: true}}}
	svc := newService(roster, prefs, nil)

	out, err := svc.Report(context.Background(), request(&Member{UserID: 20, DisplayName: "Spammer"}))
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, int64(20), out.Target.UserID)
	assert.Equal(t, []int64{3}, ids(out.Notify))
	assert.Nil(t, out.Fallback)
}

func TestReport_ListAdminsError(t *testing.T) {
	boom := errors.New("telegram down")
	roster := &fakeRoster{listErr: boom}
	svc := newService(roster, &fakePrefs{}, nil)

	_, err := svc.Report(context.Background(), request(&Member{UserID: 20}))
	assert.ErrorIs(t, err, boom)
}

func TestReport_Throttled(t *testing.T) {
	roster := &fakeRoster{admins: []Admin{{UserID: 3, Role: RoleAdmin}}}
	svc := newService(roster, &fakePrefs{}, NewChatLimiter(1, 1))
	ctx := context.Background()

	_, err := svc.Report(ctx, request(&Member{UserID: 20}))
	require.NoError(t, err)
	_, err = svc.Report(ctx, request(&Member{UserID: 21}))
	assert.ErrorIs(t, err, ErrThrottled)
}

func TestChatLimiter(t *testing.T) {
	var disabled *ChatLimiter
	assert.True(t, disabled.Allow(1))
	assert.Nil(t, NewChatLimiter(0, 5))

	l := NewChatLimiter(1, 2)
	assert.True(t, l.Allow(1))
	assert.True(t, l.Allow(1))
	assert.False(t, l.Allow(1))
	assert.True(t, l.Allow(2), "buckets are per chat")
}
