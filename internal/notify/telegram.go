package notify

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// TelegramTransport delivers notifications as Telegram messages. The
// recipient address is the numeric chat ID.
type TelegramTransport struct {
	api    *tgbotapi.BotAPI
	logger *logrus.Logger
}

// NewTelegramTransport creates a Telegram transport
func NewTelegramTransport(token string, logger *logrus.Logger) (*TelegramTransport, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Infof("Authorized on account %s", api.Self.UserName)

	return &TelegramTransport{api: api, logger: logger}, nil
}

func (t *TelegramTransport) Send(ctx context.Context, to, subject, body string) error {
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram recipient must be a chat ID, got %q: %w", to, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("*%s*\n\n%s", subject, body))
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	return nil
}
