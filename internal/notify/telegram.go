// Package notify — telegram.go отправляет анонсы в Telegram-канал.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/scrapyard/internal/common"
)

// Telegram публикует анонсы в канал через Bot API.
type Telegram struct {
	bot    *telego.Bot
	chatID int64
}

// NewTelegram создаёт нотификатор и проверяет токен.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := telego.NewBot(token, telego.WithDefaultLogger(false, true))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram-бота: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// Notify форматирует событие и отправляет его в канал в отдельной
// горутине. Ошибки отправки только логируются.
func (t *Telegram) Notify(event string, payload map[string]any) {
	text := formatEvent(event, payload)
	if text == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_, err := t.bot.SendMessage(ctx, &telego.SendMessageParams{
			ChatID: telego.ChatID{ID: t.chatID},
			Text:   text,
		})
		if err != nil {
			log.WithError(err).WithField("event", event).Error("Не удалось отправить уведомление")
		}
	}()
}

// formatEvent собирает текст анонса. Неизвестные события игнорируются.
func formatEvent(event string, payload map[string]any) string {
	switch event {
	case EventLuckWin:
		return fmt.Sprintf("🎰 Участник #%v испытал удачу и выиграл «%v»!",
			payload["user_id"], payload["item"])
	case EventPayoutCycle:
		total, _ := payload["total"].(int64)
		users, _ := payload["users"].(int)
		return fmt.Sprintf("💰 Цикл выплат №%v завершён: выплачено %s, получили %d %s",
			payload["cycle"], common.FormatScraps(total), users, common.PluralizeUsers(users))
	default:
		return ""
	}
}
