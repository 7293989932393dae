package telegram

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ykvlv/report-bot/assets"
	"github.com/ykvlv/report-bot/internal/domain"
	"github.com/ykvlv/report-bot/internal/store"
	"github.com/ykvlv/report-bot/internal/tz"
)

type fakeBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	admins   []tgbotapi.ChatMember
	statuses map[int64]string
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) GetChatAdministrators(tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error) {
	return f.admins, nil
}

func (f *fakeBot) GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	status, ok := f.statuses[cfg.UserID]
	if !ok {
		status = "member"
	}
	return tgbotapi.ChatMember{Status: status}, nil
}

func (f *fakeBot) lastSent(t *testing.T) tgbotapi.Chattable {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "nothing was sent")
	return f.sent[len(f.sent)-1]
}

func (f *fakeBot) lastMessage(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	msg, ok := f.lastSent(t).(tgbotapi.MessageConfig)
	require.True(t, ok, "last sent item is not a message")
	return msg
}

func (f *fakeBot) lastEdit(t *testing.T) tgbotapi.EditMessageTextConfig {
	t.Helper()
	edit, ok := f.lastSent(t).(tgbotapi.EditMessageTextConfig)
	require.True(t, ok, "last sent item is not an edit")
	return edit
}

func (f *fakeBot) lastCallbackAnswer(t *testing.T) tgbotapi.CallbackConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	cb, ok := f.requests[len(f.requests)-1].(tgbotapi.CallbackConfig)
	require.True(t, ok, "last request is not a callback answer")
	return cb
}

var (
	me      = tgbotapi.User{ID: 999, IsBot: true, UserName: "reportbot", FirstName: "Report"}
	group   = &tgbotapi.Chat{ID: -1001, Type: "supergroup"}
	spammer = &tgbotapi.User{ID: 20, FirstName: "Spam", LastName: "Bot"}
	member  = &tgbotapi.User{ID: 30, FirstName: "Member"}
	alice   = &tgbotapi.User{ID: 1, FirstName: "Alice", UserName: "alice"}
	bob     = &tgbotapi.User{ID: 2, FirstName: "Bob"}
	owner   = &tgbotapi.User{ID: 3, FirstName: "Owner", UserName: "owner"}
)

func newTestRouter(t *testing.T) (*Router, *fakeBot, *store.MemoryRepo) {
	t.Helper()
	zones, err := tz.New(assets.ZonesCSV)
	require.NoError(t, err)

	bot := &fakeBot{
		admins: []tgbotapi.ChatMember{
			{User: owner, Status: "creator"},
			{User: alice, Status: "administrator"},
			{User: &tgbotapi.User{ID: 4, FirstName: "Anon"}, Status: "administrator", IsAnonymous: true},
			{User: &tgbotapi.User{ID: 5, FirstName: "Helper", IsBot: true}, Status: "administrator"},
			{User: bob, Status: "administrator"},
		},
		statuses: map[int64]string{1: "administrator", 2: "administrator", 3: "creator"},
	}
	repo := store.NewMemoryRepo()
	r := newRouter(bot, me, zap.NewNop(), repo, zones, nil)
	r.now = func() time.Time { return time.Date(2025, time.July, 1, 9, 15, 0, 0, time.UTC) }
	return r, bot, repo
}

func command(chat *tgbotapi.Chat, from *tgbotapi.User, text string) *tgbotapi.Message {
	cmdLen := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		cmdLen = i
	}
	return &tgbotapi.Message{
		MessageID: 7,
		From:      from,
		Chat:      chat,
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}
}

func private(u *tgbotapi.User) *tgbotapi.Chat {
	return &tgbotapi.Chat{ID: u.ID, Type: "private"}
}

func callback(u *tgbotapi.User, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    u,
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 42, Chat: private(u)},
	}}
}

func TestReport_MentionsAvailableAdmins(t *testing.T) {
	r, bot, repo := newTestRouter(t)
	ctx := context.Background()
	require.NoError(t, repo.PutPreferences(ctx, bob.ID, domain.Preferences{DND: true}))

	msg := command(group, member, "/report")
	msg.ReplyToMessage = &tgbotapi.Message{MessageID: 6, From: spammer, Chat: group}
	r.HandleUpdate(ctx, tgbotapi.Update{Message: msg})

	out := bot.lastMessage(t)
	assert.Equal(t, tgbotapi.ModeHTML, out.ParseMode)
	assert.Equal(t, 7, out.ReplyToMessageID)
	assert.Contains(t, out.Text, `Reported <a href="tg://user?id=20">Spam Bot</a> [<code>20</code>]`)
	assert.Contains(t, out.Text, "@owner")
	assert.Contains(t, out.Text, "@alice")
	assert.NotContains(t, out.Text, "Bob")
	assert.NotContains(t, out.Text, "Anon")
	assert.NotContains(t, out.Text, "Helper")
	assert.Less(t, strings.Index(out.Text, "@owner"), strings.Index(out.Text, "@alice"), "roster order")
}

func TestReport_FallsBackToCreator(t *testing.T) {
	r, bot, repo := newTestRouter(t)
	ctx := context.Background()
	for _, id := range []int64{owner.ID, alice.ID, bob.ID} {
		require.NoError(t, repo.PutPreferences(ctx, id, domain.Preferences{DND: true}))
	}

	msg := command(group, member, "/admin@reportbot")
	msg.ReplyToMessage = &tgbotapi.Message{From: spammer, Chat: group}
	r.HandleUpdate(ctx, tgbotapi.Update{Message: msg})

	out := bot.lastMessage(t)
	assert.True(t, strings.HasSuffix(out.Text, "@owner"), out.Text)
	assert.NotContains(t, out.Text, "@alice")
}

func TestReport_Preconditions(t *testing.T) {
	r, bot, _ := newTestRouter(t)
	ctx := context.Background()

	r.HandleUpdate(ctx, tgbotapi.Update{Message: command(group, member, "/report")})
	assert.Equal(t, reportNeedsReplyText, bot.lastMessage(t).Text)

	msg := command(group, member, "/report")
	msg.ReplyToMessage = &tgbotapi.Message{From: &me, Chat: group}
	r.HandleUpdate(ctx, tgbotapi.Update{Message: msg})
	assert.Contains(t, selfReportReplies, bot.lastMessage(t).Text)

	sent := len(bot.sent)
	msg = command(group, member, "/report")
	msg.ReplyToMessage = &tgbotapi.Message{From: alice, Chat: group}
	r.HandleUpdate(ctx, tgbotapi.Update{Message: msg})
	assert.Len(t, bot.sent, sent, "reporting an admin is silently ignored")

	msg = command(group, alice, "/report")
	msg.ReplyToMessage = &tgbotapi.Message{From: spammer, Chat: group}
	r.HandleUpdate(ctx, tgbotapi.Update{Message: msg})
	assert.Len(t, bot.sent, sent, "admins can't report")

	r.HandleUpdate(ctx, tgbotapi.Update{Message: command(group, member, "/report@otherbot")})
	assert.Len(t, bot.sent, sent, "command for another bot")
}

func TestReport_AdminMention(t *testing.T) {
	r, bot, _ := newTestRouter(t)
	ctx := context.Background()

	// The emoji takes two UTF-16 code units.
	text := "🚨 @admins look"
	msg := &tgbotapi.Message{
		MessageID:      8,
		From:           member,
		Chat:           group,
		Text:           text,
		Entities:       []tgbotapi.MessageEntity{{Type: "mention", Offset: 3, Length: 7}},
		ReplyToMessage: &tgbotapi.Message{From: spammer, Chat: group},
	}
	r.HandleUpdate(ctx, tgbotapi.Update{Message: msg})
	assert.Contains(t, bot.lastMessage(t).Text, "@alice")

	sent := len(bot.sent)
	msg.Text = "🚨 @someone look"
	msg.Entities = []tgbotapi.MessageEntity{{Type: "mention", Offset: 3, Length: 8}}
	r.HandleUpdate(ctx, tgbotapi.Update{Message: msg})
	assert.Len(t, bot.sent, sent)
}

func TestPrivate_ReportOnlyInGroups(t *testing.T) {
	r, bot, _ := newTestRouter(t)
	r.HandleUpdate(context.Background(), tgbotapi.Update{Message: command(private(member), member, "/report")})
	assert.Equal(t, reportOnlyGroupsText, bot.lastMessage(t).Text)
}

func TestPrivate_DNDToggle(t *testing.T) {
	r, bot, repo := newTestRouter(t)
	ctx := context.Background()

	r.HandleUpdate(ctx, tgbotapi.Update{Message: command(private(alice), alice, "/dnd")})
	assert.Equal(t, dndOnText, bot.lastMessage(t).Text)
	p, err := repo.GetPreferences(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, p.DND)

	r.HandleUpdate(ctx, tgbotapi.Update{Message: command(private(alice), alice, "/dnd")})
	assert.Equal(t, dndOffText, bot.lastMessage(t).Text)
	p, err = repo.GetPreferences(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, p.DND)
}

func TestPrivate_TimezoneExactAndSearch(t *testing.T) {
	r, bot, repo := newTestRouter(t)
	ctx := context.Background()

	r.HandleUpdate(ctx, tgbotapi.Update{Message: command(private(alice), alice, "/tz Europe/Berlin")})
	// 09:15 UTC is 11:15 in Berlin in July.
	assert.Contains(t, bot.lastMessage(t).Text, "<b>Europe/Berlin</b>. I guess the time is 11:15")
	p, err := repo.GetPreferences(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", p.Timezone)
	require.NotNil(t, p.Interval)
	assert.Equal(t, domain.DefaultInterval, *p.Interval)

	r.HandleUpdate(ctx, tgbotapi.Update{Message: command(private(bob), bob, "/tz x")})
	assert.Equal(t, tzTooShortText, bot.lastMessage(t).Text)

	r.HandleUpdate(ctx, tgbotapi.Update{Message: command(private(bob), bob, "/tz tokyo")})
	reply := bot.lastMessage(t)
	assert.Equal(t, tzDidYouMeanText, reply.Text)
	kb, ok := reply.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	first := kb.InlineKeyboard[0][0]
	require.NotNil(t, first.CallbackData)
	assert.Equal(t, tzSetPrefix+"Asia/Tokyo", *first.CallbackData)
	assert.Equal(t, "Asia/Tokyo (UTC+09:00)", first.Text)

	r.HandleUpdate(ctx, callback(bob, tzSetPrefix+"Asia/Tokyo"))
	assert.Contains(t, bot.lastEdit(t).Text, "<b>Asia/Tokyo</b>")
	p, err = repo.GetPreferences(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", p.Timezone)

	r.HandleUpdate(ctx, tgbotapi.Update{Message: command(private(bob), bob, "/clear_tz")})
	p, err = repo.GetPreferences(ctx, bob.ID)
	require.NoError(t, err)
	assert.False(t, p.HasTimezone())
	assert.Nil(t, p.Interval)
}

func TestPrivate_UnavailabilityFlow(t *testing.T) {
	r, bot, repo := newTestRouter(t)
	ctx := context.Background()

	r.HandleUpdate(ctx, tgbotapi.Update{Message: command(private(alice), alice, "/unavail")})
	assert.Equal(t, tzRequiredText, bot.lastMessage(t).Text)

	r.HandleUpdate(ctx, callback(alice, "unavail:begin"))
	assert.True(t, bot.lastCallbackAnswer(t).ShowAlert)

	require.NoError(t, repo.PutPreferences(ctx, alice.ID, domain.Preferences{}.WithTimezone("UTC")))

	r.HandleUpdate(ctx, callback(alice, "unavail:begin"))
	edit := bot.lastEdit(t)
	assert.Equal(t, unavailAskStartText, edit.Text)
	require.NotNil(t, edit.ReplyMarkup)
	assert.Len(t, edit.ReplyMarkup.InlineKeyboard, 6)

	r.HandleUpdate(ctx, callback(alice, "unavail:start:23"))
	edit = bot.lastEdit(t)
	assert.Equal(t, unavailAskEndText, edit.Text)
	firstEnd := edit.ReplyMarkup.InlineKeyboard[0][0]
	assert.Equal(t, "12 AM", firstEnd.Text)
	assert.Equal(t, "unavail:end:23:0", *firstEnd.CallbackData)

	r.HandleUpdate(ctx, callback(alice, "unavail:end:23:6"))
	assert.Contains(t, bot.lastEdit(t).Text, "from 11 PM to 06 AM")
	p, err := repo.GetPreferences(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Interval{Start: 23, End: 6}, *p.Interval)

	r.HandleUpdate(ctx, callback(alice, "unavail:end:23:6"))
	assert.Equal(t, invalidQueryText, bot.lastCallbackAnswer(t).Text)

	r.HandleUpdate(ctx, tgbotapi.Update{Message: command(private(alice), alice, "/disable_unavail")})
	assert.Equal(t, unavailDisabledText, bot.lastMessage(t).Text)
	r.HandleUpdate(ctx, tgbotapi.Update{Message: command(private(alice), alice, "/disable_unavail")})
	assert.Equal(t, unavailAlreadyOffText, bot.lastMessage(t).Text)
}

func TestAvailabilityText(t *testing.T) {
	r, _, _ := newTestRouter(t)
	// r.now is 09:15 UTC
	night := domain.Interval{Start: 22, End: 6}
	morning := domain.Interval{Start: 8, End: 12}

	assert.Equal(t, availNoTZText, r.availabilityText(domain.Preferences{}))
	assert.Equal(t, availNoIntervalText, r.availabilityText(domain.Preferences{Timezone: "UTC"}))
	assert.Equal(t, "Seems like you are available right now.",
		r.availabilityText(domain.Preferences{Timezone: "UTC", Interval: &night}))
	assert.Equal(t, "Seems like you are unavailable right now."+availAlsoDNDText,
		r.availabilityText(domain.Preferences{DND: true, Timezone: "UTC", Interval: &morning}))
	assert.Equal(t, availNoTZText+availButDNDText,
		r.availabilityText(domain.Preferences{DND: true}))
}
