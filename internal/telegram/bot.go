package telegram

import (
	"bytes"
	"context"
	"net/http"
	"runtime"
	"strings"
	"time"

	"stock-sentinel-bot/internal/commands"
	"stock-sentinel-bot/internal/database"
	"stock-sentinel-bot/internal/metrics"
	"stock-sentinel-bot/lib/helpers"
	"stock-sentinel-bot/lib/translation"

	"github.com/davecgh/go-spew/spew"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	maxMessageLength = 4096
	maxCaptionLength = 1024
)

// NewBot creates new telegram bot. history and m may be nil.
func NewBot(c BotConfig, handler Handler, history commands.History, m *metrics.BotMetrics) (*Bot, error) {
	endpoint := c.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithClient(c.Token, endpoint, &http.Client{Timeout: 90 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug
	log.WithField("username", bot.Self.UserName).Info("🤖 Telegram bot authorized")

	return &Bot{
		Bot:     bot,
		Config:  c,
		handler: handler,
		history: history,
		metrics: m,
	}, nil
}

// GetUpdatesChannel starts long polling for new updates.
func (b *Bot) GetUpdatesChannel() tgbotapi.UpdatesChannel {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	return b.Bot.GetUpdatesChan(updatesConfig)
}

// StopUpdates ends long polling started by GetUpdatesChannel.
func (b *Bot) StopUpdates() {
	b.Bot.StopReceivingUpdates()
}

// SetWebhook registers url with Telegram. Updates then carry secret in the
// X-Telegram-Bot-Api-Secret-Token header.
func (b *Bot) SetWebhook(url, secret string) error {
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)

	if _, err := b.Bot.MakeRequest("setWebhook", params); err != nil {
		return errors.Wrap(err, "could not set webhook")
	}
	log.WithField("url", url).Info("🔗 Webhook registered")
	return nil
}

// DeleteWebhook switches the bot back to long polling.
func (b *Bot) DeleteWebhook() error {
	if _, err := b.Bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return errors.Wrap(err, "could not delete webhook")
	}
	return nil
}

// SendMessage sends a telegram message
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, fitMarkdown(m.Text, maxMessageLength))
	msg.ReplyToMessageID = m.MessageID
	msg.DisableWebPagePreview = true
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.Bot.Send(msg); err != nil {
		return errors.Wrapf(err, "could not send message to chat %d", m.ChatID)
	}
	return nil
}

// Notify sends MarkdownV2 text to the configured chat.
func (b *Bot) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.SendMessage(Message{ChatID: b.Config.ChatID, Text: text}); err != nil {
		return err
	}
	b.remember(b.Config.ChatID, text)
	return nil
}

// NotifyChart sends a PNG with a MarkdownV2 caption to the configured chat.
func (b *Bot) NotifyChart(ctx context.Context, png []byte, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(b.Config.ChatID, tgbotapi.FileBytes{
		Name:  "chart.png",
		Bytes: png,
	})
	photo.Caption = fitMarkdown(caption, maxCaptionLength)
	photo.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.Bot.Send(photo); err != nil {
		return errors.Wrapf(err, "could not send chart to chat %d", b.Config.ChatID)
	}
	return nil
}

// Run processes updates one at a time until ctx is done or updates is closed.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.ProcessUpdate(ctx, update)
		}
	}
}

// ProcessUpdate answers a single update. Only text messages from the
// configured chat reach the handler.
func (b *Bot) ProcessUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 4096)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("🔥 Recovered from panic: %v\nStack trace: %s", r, stackTrace)
		}
	}()

	if b.Config.Debug {
		log.Debugf("Received update:\n%s", spew.Sdump(update))
	}

	message := update.Message
	if message == nil || strings.TrimSpace(message.Text) == "" {
		log.Debug("Received non-text update")
		return
	}

	if b.metrics != nil {
		b.metrics.MessagesHandled.Inc()
	}

	chatID := message.Chat.ID
	logger := log.WithFields(log.Fields{"chat_id": chatID, "update_id": update.UpdateID})
	if message.From != nil {
		logger = logger.WithField("from", message.From.UserName)
	}

	var reply string
	if b.Config.ChatID != 0 && chatID != b.Config.ChatID {
		logger.Warn("⛔ Message from unauthorized chat")
		reply = translation.Translate("Sorry, you are not authorized to use this bot.")
	} else {
		logger.Debugf("💬 Message received: %s", message.Text)
		reply = b.handler.Handle(ctx, chatID, message.Text)
	}

	if reply == "" {
		return
	}
	err := b.SendMessage(Message{
		ChatID:    chatID,
		MessageID: message.MessageID,
		Text:      helpers.EscapeMarkdownV2(reply),
	})
	if err != nil {
		logger.Errorf("❌ Failed to send reply: %v", err)
	}
}

func (b *Bot) remember(chatID int64, text string) {
	if b.history == nil {
		return
	}
	if err := b.history.Append(chatID, database.DirectionOut, text); err != nil {
		log.WithField("chat_id", chatID).Warnf("⚠️ Could not store chat message: %v", err)
	}
}

// fitMarkdown truncates escaped text without leaving a dangling escape.
func fitMarkdown(text string, max int) string {
	cut := helpers.Truncate(text, max)
	if cut == strings.TrimSpace(text) {
		return cut
	}
	body := strings.TrimSuffix(cut, "…")
	trailing := len(body) - len(strings.TrimRight(body, "\\"))
	if trailing%2 == 1 {
		body = body[:len(body)-1]
	}
	return body + "…"
}
