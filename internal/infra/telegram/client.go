// internal/infra/telegram/client.go
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finance_automation/internal/domain/push"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// sender is the part of *telebot.Bot the adapter uses.
type sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelebotAdapter implements push.Client using the gopkg.in/telebot.v3 library.
// Device tokens are Telegram chat IDs.
type TelebotAdapter struct {
	bot sender
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// NewBot creates a send-only bot. The token is verified against the Bot API.
func NewBot(token string) (*telebot.Bot, error) {
	b, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Client: &http.Client{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("could not create Telegram bot: %w", err)
	}
	return b, nil
}

// SendMessage sends a text message to the specified chat.
func (tba *TelebotAdapter) SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}
	_, err := tba.bot.Send(telebot.ChatID(recipientChatID), text, options)
	return err
}

func (tba *TelebotAdapter) Send(ctx context.Context, token string, msg push.Message, mode push.Mode, _ map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(token), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", token, err)
	}
	opts := &telebot.SendOptions{DisableNotification: mode == push.ModeSilent}
	if err := tba.SendMessage(chatID, formatMessage(msg), opts); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	return nil
}

func formatMessage(msg push.Message) string {
	if msg.Title == "" {
		return msg.Body
	}
	if msg.Body == "" {
		return msg.Title
	}
	return msg.Title + "\n" + msg.Body
}

// LogClient is the push.Client used when no bot token is configured: every push is logged
// and reported as delivered.
type LogClient struct {
	logger *logrus.Entry
}

func NewLogClient(logger *logrus.Entry) *LogClient {
	return &LogClient{logger: logger}
}

func (c *LogClient) Send(_ context.Context, token string, msg push.Message, mode push.Mode, metadata map[string]string) error {
	c.logger.WithFields(logrus.Fields{
		"token":    token,
		"mode":     mode,
		"title":    msg.Title,
		"metadata": metadata,
	}).Info(msg.Body)
	return nil
}
