package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/report-bot/internal/configurator"
	"github.com/ykvlv/report-bot/internal/domain"
	"github.com/ykvlv/report-bot/internal/metrics"
	"github.com/ykvlv/report-bot/internal/report"
	"github.com/ykvlv/report-bot/internal/store"
)

// preferences loads a user's settings; unknown users get defaults.
func (r *Router) preferences(ctx context.Context, userID int64) (domain.Preferences, error) {
	p, err := r.repo.GetPreferences(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.Preferences{}, err
	}
	return p, nil
}

// failed logs a handler error and tells the user something went wrong.
func (r *Router) failed(chatID int64, handler string, err error) {
	metrics.HandlerErrors.WithLabelValues(handler).Inc()
	r.log.Error(handler+" failed", zap.Int64("chatID", chatID), zap.Error(err))
	r.sendText(chatID, genericErrorText)
}

// --- Reports ---

func (r *Router) handleReport(ctx context.Context, msg *tgbotapi.Message) {
	// Anonymous admins post as the group itself.
	if msg.SenderChat != nil && msg.SenderChat.ID == msg.Chat.ID {
		return
	}
	if msg.From == nil {
		return
	}

	req := report.Request{
		ChatID:   msg.Chat.ID,
		Reporter: memberOf(msg.From),
		BotID:    r.self.ID,
	}
	if reply := msg.ReplyToMessage; reply != nil && reply.From != nil {
		target := memberOf(reply.From)
		req.Target = &target
	}

	out, err := r.reports.Report(ctx, req)
	switch {
	case err == nil:
	case errors.Is(err, report.ErrNoReplyTarget):
		r.sendText(msg.Chat.ID, reportNeedsReplyText)
		return
	case errors.Is(err, report.ErrSelfReport):
		r.sendText(msg.Chat.ID, randomSelfReportReply())
		return
	case errors.Is(err, report.ErrTargetIsAdmin), errors.Is(err, report.ErrReporterIsAdmin):
		return
	case errors.Is(err, report.ErrThrottled):
		r.sendText(msg.Chat.ID, reportThrottledText)
		return
	default:
		metrics.HandlerErrors.WithLabelValues("report").Inc()
		r.log.Error("report failed", zap.Int64("chatID", msg.Chat.ID), zap.Error(err))
		return
	}

	reply := newHTMLMessage(msg.Chat.ID, formatReport(out))
	reply.ReplyToMessageID = msg.MessageID
	r.send(reply)
}

// --- Start ---

func (r *Router) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	p, err := r.preferences(ctx, msg.From.ID)
	if err != nil {
		r.failed(msg.Chat.ID, "start", err)
		return
	}
	hint := ""
	if !p.HasTimezone() {
		hint = startNeedTZText
	}
	r.sendText(msg.Chat.ID, fmt.Sprintf(startPrivateText, hint))
}

// --- Timezone flow ---

func (r *Router) handleTZ(ctx context.Context, msg *tgbotapi.Message) {
	chatID, userID := msg.Chat.ID, msg.From.ID
	p, err := r.preferences(ctx, userID)
	if err != nil {
		r.failed(chatID, "tz", err)
		return
	}

	query := strings.TrimSpace(msg.CommandArguments())
	if query == "" {
		status := tzStatusUnsetText
		if p.HasTimezone() {
			status = fmt.Sprintf(tzStatusSetText, html.EscapeString(p.Timezone))
		}
		r.sendHTML(chatID, fmt.Sprintf(tzUsageText, status))
		return
	}
	if utf8.RuneCountInString(query) < 2 {
		r.sendText(chatID, tzTooShortText)
		return
	}

	if id, err := r.zones.Canonical(query); err == nil {
		text, err := r.setTimezone(ctx, userID, p, id)
		if err != nil {
			r.failed(chatID, "tz", err)
			return
		}
		r.sendHTML(chatID, text)
		return
	}

	results := r.zones.Search(query, r.now(), maxZoneResults)
	if len(results) == 0 {
		r.sendText(chatID, tzNotFoundText)
		return
	}
	reply := tgbotapi.NewMessage(chatID, tzDidYouMeanText)
	reply.ReplyMarkup = zonesKeyboard(results)
	r.send(reply)
}

func (r *Router) handleTZCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	id, err := r.zones.Canonical(strings.TrimPrefix(cb.Data, tzSetPrefix))
	if err != nil {
		r.log.Info("unknown timezone in callback", zap.String("data", cb.Data))
		_ = r.answerCallback(cb.ID, "Couldn't find the timezone")
		return
	}
	p, err := r.preferences(ctx, cb.From.ID)
	if err != nil {
		metrics.HandlerErrors.WithLabelValues("tz_callback").Inc()
		r.log.Error("load preferences failed", zap.Error(err))
		_ = r.answerCallback(cb.ID, genericErrorText)
		return
	}
	text, err := r.setTimezone(ctx, cb.From.ID, p, id)
	if err != nil {
		metrics.HandlerErrors.WithLabelValues("tz_callback").Inc()
		r.log.Error("save timezone failed", zap.Error(err))
		_ = r.answerCallback(cb.ID, genericErrorText)
		return
	}
	_ = r.answerCallback(cb.ID, "")
	r.editText(cb, text, nil)
}

// setTimezone stores the zone id (never its offset) and returns the confirmation text.
func (r *Router) setTimezone(ctx context.Context, userID int64, p domain.Preferences, id string) (string, error) {
	now := r.now()
	offset, err := r.zones.OffsetMinutes(id, now)
	if err != nil {
		return "", err
	}
	if err := r.repo.PutPreferences(ctx, userID, p.WithTimezone(id)); err != nil {
		return "", err
	}
	local := now.UTC().Add(time.Duration(offset) * time.Minute).Format("15:04")
	return fmt.Sprintf(tzSetText, html.EscapeString(id), local), nil
}

func (r *Router) handleClearTZ(ctx context.Context, msg *tgbotapi.Message) {
	p, err := r.preferences(ctx, msg.From.ID)
	if err != nil {
		r.failed(msg.Chat.ID, "clear_tz", err)
		return
	}
	if err := r.repo.PutPreferences(ctx, msg.From.ID, p.ClearTimezone()); err != nil {
		r.failed(msg.Chat.ID, "clear_tz", err)
		return
	}
	r.sendText(msg.Chat.ID, tzClearedText)
}

// --- Do Not Disturb ---

func (r *Router) handleDND(ctx context.Context, msg *tgbotapi.Message) {
	p, err := r.preferences(ctx, msg.From.ID)
	if err != nil {
		r.failed(msg.Chat.ID, "dnd", err)
		return
	}
	p.DND = !p.DND
	if err := r.repo.PutPreferences(ctx, msg.From.ID, p); err != nil {
		r.failed(msg.Chat.ID, "dnd", err)
		return
	}
	if p.DND {
		r.sendText(msg.Chat.ID, dndOnText)
	} else {
		r.sendText(msg.Chat.ID, dndOffText)
	}
}

// --- Unavailability window ---

func (r *Router) handleUnavail(ctx context.Context, msg *tgbotapi.Message) {
	p, err := r.preferences(ctx, msg.From.ID)
	if err != nil {
		r.failed(msg.Chat.ID, "unavail", err)
		return
	}
	if !p.HasTimezone() {
		r.sendText(msg.Chat.ID, tzRequiredText)
		return
	}

	status, button := unavailStatusUnsetText, "Enable"
	if p.Interval != nil {
		status, button = fmt.Sprintf(unavailStatusSetText, p.Interval.String()), "Change"
	}
	reply := newHTMLMessage(msg.Chat.ID, fmt.Sprintf(unavailText, status))
	reply.ReplyMarkup = singleButton(button, configurator.BeginData())
	r.send(reply)
}

func (r *Router) handleDisableUnavail(ctx context.Context, msg *tgbotapi.Message) {
	p, err := r.preferences(ctx, msg.From.ID)
	if err != nil {
		r.failed(msg.Chat.ID, "disable_unavail", err)
		return
	}
	if p.Interval == nil {
		r.sendText(msg.Chat.ID, unavailAlreadyOffText)
		return
	}
	p.Interval = nil
	if err := r.repo.PutPreferences(ctx, msg.From.ID, p); err != nil {
		r.failed(msg.Chat.ID, "disable_unavail", err)
		return
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, unavailDisabledText)
	reply.ReplyMarkup = singleButton("Enable it back", configurator.BeginData())
	r.send(reply)
}

func (r *Router) handleUnavailCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	res, err := r.config.Handle(ctx, cb.From.ID, cb.Data)
	switch {
	case err == nil:
	case errors.Is(err, configurator.ErrTimezoneRequired):
		metrics.ConfigSteps.WithLabelValues("no_timezone").Inc()
		_ = r.alert(cb.ID, tzRequiredAlert)
		return
	case errors.Is(err, configurator.ErrInvalidSelection), errors.Is(err, domain.ErrInvalidInterval):
		metrics.ConfigSteps.WithLabelValues("invalid").Inc()
		_ = r.answerCallback(cb.ID, invalidQueryText)
		return
	default:
		metrics.ConfigSteps.WithLabelValues("error").Inc()
		r.log.Error("unavailability step failed", zap.Int64("userID", cb.From.ID), zap.Error(err))
		_ = r.answerCallback(cb.ID, genericErrorText)
		return
	}

	if res.Interval != nil {
		metrics.ConfigSteps.WithLabelValues("configured").Inc()
		_ = r.answerCallback(cb.ID, "")
		r.editText(cb, fmt.Sprintf(unavailDoneText,
			domain.FormatHour(res.Interval.Start), domain.FormatHour(res.Interval.End)), nil)
		return
	}

	metrics.ConfigSteps.WithLabelValues("prompt").Inc()
	prompt := res.Prompt
	switch prompt.State {
	case domain.StateAwaitingStart:
		_ = r.answerCallback(cb.ID, "")
		kb := hoursKeyboard(prompt.Hours, configurator.StartData)
		r.editText(cb, unavailAskStartText, &kb)
	case domain.StateAwaitingEnd:
		_ = r.answerCallback(cb.ID, fmt.Sprintf(unavailFromToast, domain.FormatHour(prompt.Start)))
		kb := hoursKeyboard(prompt.Hours, func(h int) string { return configurator.EndData(prompt.Start, h) })
		r.editText(cb, unavailAskEndText, &kb)
	}
}

// --- Debug ---

func (r *Router) handleAmIAvailable(ctx context.Context, msg *tgbotapi.Message) {
	p, err := r.preferences(ctx, msg.From.ID)
	if err != nil {
		r.failed(msg.Chat.ID, "am_i_available", err)
		return
	}
	r.sendText(msg.Chat.ID, r.availabilityText(p))
}

func (r *Router) availabilityText(p domain.Preferences) string {
	now := r.now()
	available := r.engine.IsAvailable(p, now)

	var text string
	switch {
	case !p.HasTimezone():
		text = availNoTZText
	case p.Interval == nil:
		text = availNoIntervalText
	case available:
		text = fmt.Sprintf(availStateText, "")
	default:
		text = fmt.Sprintf(availStateText, "un")
	}

	if p.DND {
		if p.HasTimezone() && p.Interval != nil && !available {
			text += availAlsoDNDText
		} else {
			text += availButDNDText
		}
	}
	return text
}
