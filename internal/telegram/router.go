package telegram

import (
	"context"
	"strings"
	"time"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/report-bot/internal/configurator"
	"github.com/ykvlv/report-bot/internal/domain"
	"github.com/ykvlv/report-bot/internal/metrics"
	"github.com/ykvlv/report-bot/internal/report"
	"github.com/ykvlv/report-bot/internal/store"
	"github.com/ykvlv/report-bot/internal/tz"
)

const (
	tzSetPrefix = "tz:set:"
	// Telegram caps inline keyboards; 100 results is plenty for a search.
	maxZoneResults = 100
)

// botAPI is the part of *tgbotapi.BotAPI the router talks to.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatAdministrators(config tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Router wires Telegram updates to handlers.
type Router struct {
	bot     botAPI
	self    tgbotapi.User
	log     *zap.Logger
	repo    store.Repo
	zones   *tz.Resolver
	engine  *domain.Engine
	config  *configurator.Configurator
	reports *report.Service
	now     func() time.Time
}

// NewRouter creates a new Telegram router.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, repo store.Repo, zones *tz.Resolver, limiter *report.ChatLimiter) *Router {
	return newRouter(bot, bot.Self, log, repo, zones, limiter)
}

func newRouter(bot botAPI, self tgbotapi.User, log *zap.Logger, repo store.Repo, zones *tz.Resolver, limiter *report.ChatLimiter) *Router {
	engine := domain.NewEngine(zones, log.Named("availability"))
	selector := report.NewSelector(repo, engine)
	return &Router{
		bot:     bot,
		self:    self,
		log:     log,
		repo:    repo,
		zones:   zones,
		engine:  engine,
		config:  configurator.New(repo, log.Named("configurator")),
		reports: report.NewService(roster{bot: bot}, selector, limiter, log.Named("report")),
		now:     time.Now,
	}
}

// RegisterCommands publishes the private-chat command list.
func (r *Router) RegisterCommands() error {
	cfg := tgbotapi.NewSetMyCommandsWithScope(tgbotapi.NewBotCommandScopeAllPrivateChats(), privateCommands()...)
	_, err := r.bot.Request(cfg)
	return err
}

// HandleUpdate routes a single update to appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil && upd.Message.Chat != nil:
		metrics.Updates.WithLabelValues("message").Inc()
		msg := upd.Message
		switch {
		case msg.Chat.IsPrivate():
			r.handlePrivate(ctx, msg)
		case msg.Chat.IsGroup() || msg.Chat.IsSuperGroup():
			r.handleGroup(ctx, msg)
		}

	case upd.CallbackQuery != nil:
		metrics.Updates.WithLabelValues("callback").Inc()
		cb := upd.CallbackQuery
		// Buttons are only sent in private chats.
		if cb.Message == nil || cb.Message.Chat == nil || !cb.Message.Chat.IsPrivate() || cb.From == nil {
			_ = r.answerCallback(cb.ID, "")
			return
		}
		switch {
		case strings.HasPrefix(cb.Data, tzSetPrefix):
			r.handleTZCallback(ctx, cb)
		case configurator.IsCallback(cb.Data):
			r.handleUnavailCallback(ctx, cb)
		default:
			_ = r.answerCallback(cb.ID, invalidQueryText)
		}

	default:
		metrics.Updates.WithLabelValues("other").Inc()
	}
}

func (r *Router) handleGroup(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		if !r.addressedToMe(msg) {
			return
		}
		switch msg.Command() {
		case "report", "admin":
			r.handleReport(ctx, msg)
		case "start":
			r.sendText(msg.Chat.ID, startGroupText)
		case "help":
			r.sendText(msg.Chat.ID, helpGroupText)
		}
		return
	}
	if mentionsAdmins(msg) {
		r.handleReport(ctx, msg)
	}
}

func (r *Router) handlePrivate(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() || msg.From == nil {
		return
	}
	switch msg.Command() {
	case "start":
		r.handleStart(ctx, msg)
	case "help":
		r.sendHTML(msg.Chat.ID, helpText)
	case "report", "admin":
		r.sendText(msg.Chat.ID, reportOnlyGroupsText)
	case "tz", "timezone":
		r.handleTZ(ctx, msg)
	case "clear_tz":
		r.handleClearTZ(ctx, msg)
	case "dnd":
		r.handleDND(ctx, msg)
	case "unavail":
		r.handleUnavail(ctx, msg)
	case "disable_unavail":
		r.handleDisableUnavail(ctx, msg)
	case "am_i_available":
		r.handleAmIAvailable(ctx, msg)
	}
}

// addressedToMe rejects "/report@otherbot" in groups with several bots.
func (r *Router) addressedToMe(msg *tgbotapi.Message) bool {
	cmd := msg.CommandWithAt()
	i := strings.Index(cmd, "@")
	if i < 0 {
		return true
	}
	return strings.EqualFold(cmd[i+1:], r.self.UserName)
}

// mentionsAdmins reports whether a text or caption mentions @admin or @admins.
// Entity offsets are in UTF-16 code units.
func mentionsAdmins(msg *tgbotapi.Message) bool {
	text, entities := msg.Text, msg.Entities
	if text == "" {
		text, entities = msg.Caption, msg.CaptionEntities
	}
	if len(entities) == 0 {
		return false
	}
	units := utf16.Encode([]rune(text))
	for _, e := range entities {
		if e.Type != "mention" || e.Offset < 0 || e.Offset+e.Length > len(units) {
			continue
		}
		switch strings.ToLower(string(utf16.Decode(units[e.Offset : e.Offset+e.Length]))) {
		case "@admin", "@admins":
			return true
		}
	}
	return false
}

// --- Generic helpers ---

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Warn("send failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

func (r *Router) sendHTML(chatID int64, text string) {
	r.send(newHTMLMessage(chatID, text))
}

func (r *Router) send(c tgbotapi.Chattable) {
	if _, err := r.bot.Send(c); err != nil {
		r.log.Warn("send failed", zap.Error(err))
	}
}

func newHTMLMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return msg
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}

func (r *Router) alert(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallbackWithAlert(id, text))
	return err
}

func (r *Router) editText(cb *tgbotapi.CallbackQuery, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	edit.ReplyMarkup = markup
	if _, err := r.bot.Send(edit); err != nil {
		r.log.Warn("edit failed", zap.Int64("chatID", cb.Message.Chat.ID), zap.Error(err))
	}
}
