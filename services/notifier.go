package services

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier delivers a short text message to a player. Delivery is best effort
// and never affects the ledger transaction that triggered it.
type Notifier interface {
	Notify(ctx context.Context, accountID int64, text string) error
}

// NopNotifier drops every message.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, int64, string) error { return nil }

// TelegramNotifier sends messages through the bot that signs the sessions.
// A Telegram user id doubles as the private chat id.
type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
	log *zap.Logger
}

func NewTelegramNotifier(botToken string, log *zap.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	log.Info("telegram notifier ready", zap.String("bot", bot.Self.UserName))
	return &TelegramNotifier{bot: bot, log: log}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, accountID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(accountID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.log.Warn("telegram notify failed", zap.Int64("account_id", accountID), zap.Error(err))
		return err
	}
	return nil
}
