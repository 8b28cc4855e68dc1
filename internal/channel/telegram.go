package channel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"voxbot/internal/domain"
)

const (
	telegramMaxMsgLen      = 4000
	telegramMaxSendRetries = 3
)

// TelegramMirror forwards the spoken transcript to a Telegram chat, so the
// conversation can be followed from a phone. Status events are skipped;
// only actual transcript lines are mirrored.
type TelegramMirror struct {
	token  string
	chatID int64
	bus    domain.EventBus
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

type TelegramConfig struct {
	Token  string
	ChatID int64
	Bus    domain.EventBus
	Logger *slog.Logger
}

func NewTelegramMirror(cfg TelegramConfig) *TelegramMirror {
	return &TelegramMirror{
		token:  cfg.Token,
		chatID: cfg.ChatID,
		bus:    cfg.Bus,
		logger: cfg.Logger,
	}
}

func (t *TelegramMirror) Name() string { return "telegram" }

func (t *TelegramMirror) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram mirror connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)

	events := t.bus.Subscribe("telegram")
	defer t.bus.Unsubscribe("telegram")

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			if evt.Type != domain.EventTranscript {
				continue
			}
			t.sendMessage(fmt.Sprintf("*%s*: %s", evt.Speaker, evt.Text))
		}
	}
}

func (t *TelegramMirror) sendMessage(text string) {
	if len(text) > telegramMaxMsgLen {
		text = text[:telegramMaxMsgLen] + "..."
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "Markdown"

	for attempt := 1; attempt <= telegramMaxSendRetries; attempt++ {
		if _, err := t.bot.Send(msg); err == nil {
			return
		} else if attempt == telegramMaxSendRetries {
			t.logger.Warn("cannot mirror transcript line", "error", err)
		} else {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
}
