package telegram

import (
	"fmt"
	"html"
	"math/rand"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ykvlv/report-bot/internal/domain"
	"github.com/ykvlv/report-bot/internal/report"
	"github.com/ykvlv/report-bot/internal/tz"
)

// UI texts in English
const (
	startPrivateText = "Hi! I can mention admins in a group chat when someone reports something. " +
		"But, unlike other bots which do the same thing, I only tag you when you're available.\n%s\nSee /help for more information."
	startNeedTZText = "\nIn order to do that, I need your /timezone. You can simply set one by using /tz. " +
		"So I can decide whether you are available or not based on your /unavail-ability time period and timezone, before mentioning you. " +
		"I also help you to go to Do Not Disturb mode (/dnd), which makes you fully unavailable until you disable it.\n"
	startGroupText = "Hi! For /help, ping me in private."
	helpGroupText  = "Use /report to report someone to admins. Ping me in private for more help."
	helpText       = "Add me to your group so I can help your group members to /report other members (such as spammers, etc) to the admins of the group. " +
		"I'm different from other bots which do the same because I'm aware of time!\n\n" +
		"<b>How am I time-aware?</b>\n" +
		"Well, I am not actually time-aware without you setting your /timezone. " +
		"If you set one, an unavailability time period is also set (which you can customize using /unavail). " +
		"From then on, whenever someone uses the /report command in a group that you're admin, " +
		"I'll check your current time, and if you're unavailable, I won't mention you.\n\n" +
		"<b>Note</b>: No matter how busy you are, you will receive mentions if you're the chat creator and no other admins are available at the moment.\n\n" +
		"<b>Do Not Disturb mode</b>\n" +
		"You can enable or disable the <i>Do Not Disturb</i> mode using /dnd. When you have it enabled, the bot won't mention you at all."

	reportNeedsReplyText = "Reply /report to a message."
	reportOnlyGroupsText = "That works only in groups."
	reportThrottledText  = "Admins were called here just now. Give them a moment."

	tzUsageText = "Pass your timezone as an argument.\nExamples\n" +
		"- <code>/tz Europe/Berlin</code>\n- <code>/tz berlin</code>\n- <code>/tz berl</code> (Search)\n\n%s\n\n" +
		"<b>Timezone</b>\nYou can set a <a href=\"https://en.wikipedia.org/wiki/List_of_tz_database_time_zones\">timezone</a>, " +
		"and I won't tag you for reports while you're unavailable. " +
		"By default, you're considered to be unavailable if it is night time at your location. " +
		"You can customize the default unavailability period (12 AM to 6 AM) using the /unavail command."
	tzStatusSetText   = "You have set <b>%s</b> as your timezone. Use /clear_tz to remove it."
	tzStatusUnsetText = "You haven't configured a timezone yet. You can search for one by passing a city or country."
	tzTooShortText    = "What is this? Specify your timezone a little bit more. At least two characters."
	tzNotFoundText    = "Couldn't find any timezones related to that. Please enter something valid."
	tzDidYouMeanText  = "Did you mean...?"
	tzSetText         = "Timezone location has been set to <b>%s</b>. I guess the time is %s at your place."
	tzClearedText     = "Timezone has been cleared. You can set a new one using the /tz command."
	tzRequiredText    = "You need to set a timezone using /tz to use this feature."
	tzRequiredAlert   = "You need to set a timezone using the /tz command first to use this feature."

	dndOnText  = "Enabled Do Not Disturb mode. You won't receive any mentions until you disable it using /dnd again."
	dndOffText = "Disabled Do Not Disturb mode. You'll receive reports when you're available."

	unavailText = "%s\n\n" +
		"In your daily life, you're probably not available 24x7. You need sleep, and you may have work. " +
		"So while you're unavailable, it is a disturbance if the bot tags you when people /report. " +
		"With this feature you can set a time period during which you are expected to be unavailable. " +
		"If such an unavailability period is set, the bot will check if you're available or not before tagging you.\n\n" +
		"<b>Note</b>: This feature won't work if you're the chat creator and no other admins are available.\n\n" +
		"- You can disable this feature with /disable_unavail and receive mentions all the time.\n" +
		"- Run /am_i_available to check if you are available now or not."
	unavailStatusSetText   = "Your current unavailability time period is <b>from %s</b>. You can change it using the button below."
	unavailStatusUnsetText = "You have disabled this feature entirely. You can enable it using the button below."
	unavailDisabledText    = "Unavailability feature has been disabled."
	unavailAlreadyOffText  = "Already disabled."
	unavailAskStartText    = "So you're unavailable, starting from?"
	unavailAskEndText      = "When do you become available again?"
	unavailFromToast       = "From %s, to..."
	unavailDoneText        = "So you'll be unavailable from %s to %s. I'll remember that and I won't tag you at that time unless it is necessary."

	availNoTZText       = "I don't know. You haven't set any timezone yet. So, I can't really tell."
	availNoIntervalText = "Not sure about it since you disabled the /unavail-ability feature."
	availStateText      = "Seems like you are %savailable right now."
	availAlsoDNDText    = " And you also have /dnd enabled."
	availButDNDText     = " But you have /dnd enabled right now. So, I guess you're unavailable rn."

	invalidQueryText  = "Invalid query :("
	genericErrorText  = "Something went wrong. Please try again later."
	reportHeadingText = "Reported %s [<code>%d</code>] to admins.\n"
)

// Random replies when someone reports the bot itself.
var selfReportReplies = []string{
	"You can't report me.",
	"Nice try",
	"Oh, come on.",
	"what?",
	"Hmm",
	"Nope",
}

func randomSelfReportReply() string {
	return selfReportReplies[rand.Intn(len(selfReportReplies))]
}

// privateCommands are registered for private chats at startup.
func privateCommands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "tz", Description: "Set timezone"},
		{Command: "clear_tz", Description: "Clear timezone"},
		{Command: "unavail", Description: "Set unavailability time period"},
		{Command: "dnd", Description: "Toggle Do Not Disturb mode"},
		{Command: "am_i_available", Description: "Am I available?"},
		{Command: "help", Description: "Help & About"},
	}
}

// formatReport renders the group reply for a handled report.
func formatReport(out report.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, reportHeadingText, userLink(out.Target), out.Target.UserID)
	for _, a := range out.Targets() {
		b.WriteString(mention(a))
		b.WriteByte(' ')
	}
	return strings.TrimSpace(b.String())
}

func userLink(m report.Member) string {
	href := fmt.Sprintf("tg://user?id=%d", m.UserID)
	if m.IsBot && m.Username != "" {
		href = "https://telegram.me/" + m.Username
	}
	return fmt.Sprintf(`<a href="%s">%s</a>`, href, html.EscapeString(m.DisplayName))
}

func mention(a report.Admin) string {
	if a.Username != "" {
		return "@" + a.Username
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, a.UserID, html.EscapeString(a.DisplayName))
}

// hoursKeyboard lays out hour buttons four per row.
func hoursKeyboard(hours []int, data func(h int) string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, h := range hours {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(domain.FormatHour(h), data(h)))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// zonesKeyboard offers search results two per row.
func zonesKeyboard(zones []tz.Zone) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, z := range zones {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(zoneLabel(z), tzSetPrefix+z.ID))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func singleButton(text, data string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(text, data)),
	)
}

// zoneLabel renders "Europe/Berlin (UTC+02:00)".
func zoneLabel(z tz.Zone) string {
	return z.ID + " (UTC" + tz.FormatOffset(z.OffsetMinutes) + ")"
}
