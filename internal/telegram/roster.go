package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ykvlv/report-bot/internal/report"
)

// roster implements report.Roster over the Bot API.
type roster struct {
	bot botAPI
}

func (r roster) ListAdmins(_ context.Context, chatID int64) ([]report.Admin, error) {
	members, err := r.bot.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return nil, err
	}
	admins := make([]report.Admin, 0, len(members))
	for _, m := range members {
		if m.User == nil {
			continue
		}
		admins = append(admins, report.Admin{
			UserID:      m.User.ID,
			DisplayName: displayName(m.User),
			Username:    m.User.UserName,
			Role:        report.Role(m.Status),
			IsAnonymous: m.IsAnonymous,
			IsBot:       m.User.IsBot,
		})
	}
	return admins, nil
}

func (r roster) MemberRole(_ context.Context, chatID, userID int64) (report.Role, error) {
	m, err := r.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		return "", err
	}
	return report.Role(m.Status), nil
}

func displayName(u *tgbotapi.User) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func memberOf(u *tgbotapi.User) report.Member {
	return report.Member{
		UserID:      u.ID,
		DisplayName: displayName(u),
		Username:    u.UserName,
		IsBot:       u.IsBot,
	}
}
