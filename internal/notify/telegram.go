// Package notify delivers reminders over Telegram and websocket.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrDisabled is returned by a sender without a bot token.
var ErrDisabled = errors.New("telegram notifications are disabled")

// TelegramSender sends HTML messages through the Bot API.
type TelegramSender struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramSender connects to the Bot API. An empty token yields a
// disabled sender.
func NewTelegramSender(token string) (*TelegramSender, error) {
	return NewTelegramSenderWithEndpoint(token, tgbotapi.APIEndpoint)
}

// NewTelegramSenderWithEndpoint is NewTelegramSender against a custom Bot
// API endpoint of the form "https://host/bot%s/%s".
func NewTelegramSenderWithEndpoint(token, endpoint string) (*TelegramSender, error) {
	if token == "" {
		slog.Warn("TELEGRAM_BOT_TOKEN is not set, Telegram notifications disabled")
		return &TelegramSender{}, nil
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	bot.Debug = false
	slog.Info("Telegram bot connected", "username", bot.Self.UserName)
	return &TelegramSender{bot: bot}, nil
}

// Enabled reports whether the sender has a bot.
func (s *TelegramSender) Enabled() bool {
	return s.bot != nil
}

// Send delivers text to a chat. The text is escaped for HTML parse mode.
func (s *TelegramSender) Send(ctx context.Context, chatID, text string) error {
	if s.bot == nil {
		slog.Debug("Telegram disabled, message dropped", "chat_id", chatID)
		return ErrDisabled
	}
	if chatID == "" {
		return errors.New("chat id is empty")
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("parse chat id %q: %w", chatID, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(id, tgbotapi.EscapeText(tgbotapi.ModeHTML, text))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	slog.Info("Telegram message sent", "chat_id", chatID)
	return nil
}
