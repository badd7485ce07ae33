package telegram

import (
	"context"

	"stock-sentinel-bot/internal/commands"
	"stock-sentinel-bot/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotConfig configuration of the bot
type BotConfig struct {
	Token          string
	Debug          bool
	UpdatesTimeout int
	// APIEndpoint overrides tgbotapi.APIEndpoint, e.g. for a local Bot API server.
	APIEndpoint string
	// ChatID is the only chat allowed to talk to the bot and the target of alerts.
	ChatID int64
}

// Handler answers the text of an authorized chat message.
type Handler interface {
	Handle(ctx context.Context, chatID int64, text string) string
}

// Bot telegram interaction client
type Bot struct {
	Bot     *tgbotapi.BotAPI
	Config  BotConfig
	handler Handler
	history commands.History
	metrics *metrics.BotMetrics
}

// Message a telegram message struct
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
}
