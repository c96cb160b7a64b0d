// Package tgmirror forwards game toasts to a Telegram chat.
package tgmirror

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

type Config struct {
	// Telegram bot token; the mirror is off when empty
	BotToken string `envconfig:"BALLOON_TG_BOT_TOKEN"`

	// Chat the toasts are posted to
	ChatID int64 `envconfig:"BALLOON_TG_CHAT_ID"`

	// Text put in front of every forwarded toast, usually the room code
	Prefix string `envconfig:"BALLOON_TG_PREFIX"`
}

func (c Config) Enabled() bool {
	return c.BotToken != "" && c.ChatID != 0
}

// Sender is the part of tgbotapi.BotAPI the mirror needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

func New(config Config) (*Mirror, error) {
	bot, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		return nil, fmt.Errorf("bot api: %w", err)
	}
	return NewWithSender(bot, config), nil
}

func NewWithSender(sender Sender, config Config) *Mirror {
	return &Mirror{sender: sender, chatID: config.ChatID, prefix: config.Prefix}
}

type Mirror struct {
	sender Sender
	chatID int64
	prefix string
}

func (m *Mirror) Forward(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.prefix != "" {
		text = m.prefix + " " + text
	}
	msg := tgbotapi.NewMessage(m.chatID, text)
	msg.DisableNotification = true
	if _, err := m.sender.Send(msg); err != nil {
		return fmt.Errorf("send to chat %d: %w", m.chatID, err)
	}
	return nil
}
