// Package commands turns free-text chat messages into watch-list operations.
package commands

import (
	"context"
	"fmt"
	"strings"

	"stock-sentinel-bot/internal/database"
	"stock-sentinel-bot/internal/llm"
	"stock-sentinel-bot/internal/metrics"
	"stock-sentinel-bot/internal/price"
	"stock-sentinel-bot/internal/prompts"
	"stock-sentinel-bot/internal/store"
	"stock-sentinel-bot/lib/helpers"
	"stock-sentinel-bot/lib/translation"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// History stores the conversation used as classification context.
type History interface {
	Recent(chatID int64, limit int) ([]database.ChatMessage, error)
	Append(chatID int64, direction, text string) error
}

// DBHistory keeps chat history in the sqlite database.
type DBHistory struct{}

func (DBHistory) Recent(chatID int64, limit int) ([]database.ChatMessage, error) {
	return database.RecentChatMessages(chatID, limit)
}

func (DBHistory) Append(chatID int64, direction, text string) error {
	return database.InsertChatMessage(chatID, direction, text)
}

type Config struct {
	Model           string
	MaxTracked      int
	ValidateSymbols bool
	HistoryMessages int
}

type Dispatcher struct {
	provider  llm.Provider
	prompt    prompts.Prompt
	watchlist *store.Watchlist
	quotes    price.Quoter
	history   History
	metrics   *metrics.BotMetrics
	cfg       Config
}

// New builds a dispatcher. history and m may be nil.
func New(provider llm.Provider, prompt prompts.Prompt, watchlist *store.Watchlist, quotes price.Quoter, history History, m *metrics.BotMetrics, cfg Config) *Dispatcher {
	d := &Dispatcher{
		provider:  provider,
		prompt:    prompt,
		watchlist: watchlist,
		quotes:    quotes,
		history:   history,
		metrics:   m,
		cfg:       cfg,
	}
	d.updateTrackedGauge()
	return d
}

func HelpText() string {
	return translation.Translate("I watch stocks for you and tell you when they move more than %s from the previous close.\n\n"+
		"Try:\n"+
		"• track AAPL\n"+
		"• stop watching MSFT\n"+
		"• what am I tracking?\n"+
		"• how is NVDA doing?", "1%")
}

// Handle classifies text from chatID, applies it and returns a plain-text reply.
func (d *Dispatcher) Handle(ctx context.Context, chatID int64, text string) string {
	text = strings.TrimSpace(text)
	if text == "" || text == "/start" || text == "/help" {
		return HelpText()
	}

	recent := d.recentHistory(chatID)
	d.remember(chatID, database.DirectionIn, text)

	var reply string
	cmd, err := d.Classify(ctx, text, recent)
	switch {
	case errors.Is(err, ErrMissingSymbol):
		reply = translation.Translate("Which symbol do you mean? For example: %s AAPL", string(cmd.Intent))
	case errors.Is(err, ErrUnknownIntent):
		log.WithField("chat_id", chatID).Debugf("Unparseable intent: %v", err)
		reply = HelpText()
	case err != nil:
		log.WithField("chat_id", chatID).Errorf("❌ Intent classification failed: %v", err)
		reply = translation.Translate("Sorry, I could not process that right now. Please try again later.")
	default:
		reply = d.Execute(ctx, cmd)
		if d.metrics != nil {
			d.metrics.CommandsProcessed.WithLabelValues(string(cmd.Intent)).Inc()
		}
	}

	d.remember(chatID, database.DirectionOut, reply)
	return reply
}

// Classify asks the model for the intent of text.
func (d *Dispatcher) Classify(ctx context.Context, text string, history []database.ChatMessage) (Command, error) {
	type turn struct{ Speaker, Text string }
	turns := make([]turn, 0, len(history))
	for _, m := range history {
		speaker := "user"
		if m.Direction == database.DirectionOut {
			speaker = "bot"
		}
		turns = append(turns, turn{Speaker: speaker, Text: m.Text})
	}

	system, user, err := d.prompt.Render(map[string]interface{}{
		"Text":    text,
		"History": turns,
	})
	if err != nil {
		return Command{}, err
	}

	resp, err := d.provider.Chat(ctx, []llm.Message{
		llm.SystemMessage(system),
		llm.UserMessage(user),
	}, &llm.ChatOptions{Model: d.cfg.Model, Temperature: llm.Temperature(0), JSONMode: true})
	if err != nil {
		return Command{}, errors.Wrap(err, "classify intent")
	}

	cmd, err := ParseCommand(resp.Content)
	log.WithFields(log.Fields{"intent": cmd.Intent, "symbol": cmd.Symbol}).Debug("🧭 Intent classified")
	return cmd, err
}

// Execute applies cmd to the watch-list and describes the result.
func (d *Dispatcher) Execute(ctx context.Context, cmd Command) string {
	switch cmd.Intent {
	case IntentAdd:
		return d.add(ctx, cmd.Symbol)
	case IntentRemove:
		return d.remove(cmd.Symbol)
	case IntentList:
		return d.list()
	case IntentPrice:
		return d.price(ctx, cmd.Symbol)
	}
	return HelpText()
}

func (d *Dispatcher) add(ctx context.Context, symbol string) string {
	if !store.ValidSymbol(symbol) {
		return translation.Translate("%s does not look like a ticker symbol.", symbol)
	}
	if d.watchlist.Contains(symbol) {
		return translation.Translate("%s is already on your watch-list.", symbol)
	}
	if d.cfg.MaxTracked > 0 && d.watchlist.Len() >= d.cfg.MaxTracked {
		return translation.Translate("Your watch-list is full (%d symbols). Remove one first.", d.cfg.MaxTracked)
	}
	if d.cfg.ValidateSymbols && d.quotes != nil {
		if _, err := d.quotes.Quote(ctx, symbol); err != nil {
			log.WithField("symbol", symbol).Warnf("⚠️ Refusing to track symbol without data: %v", err)
			return translation.Translate("No data available for %s.", symbol)
		}
	}

	added, err := d.watchlist.Add(symbol)
	if err != nil {
		log.WithField("symbol", symbol).Errorf("❌ Failed to add symbol: %v", err)
		return translation.Translate("Could not save the watch-list. Please try again.")
	}
	d.updateTrackedGauge()
	if !added {
		return translation.Translate("%s is already on your watch-list.", symbol)
	}
	log.WithField("symbol", symbol).Info("➕ Symbol added to watch-list")
	return translation.Translate("✅ Now tracking %s. I will tell you when it moves more than 1%% from the previous close.", symbol)
}

func (d *Dispatcher) remove(symbol string) string {
	removed, err := d.watchlist.Remove(symbol)
	if err != nil {
		log.WithField("symbol", symbol).Errorf("❌ Failed to remove symbol: %v", err)
		return translation.Translate("Could not save the watch-list. Please try again.")
	}
	d.updateTrackedGauge()
	if !removed {
		return translation.Translate("%s is not on your watch-list.", symbol)
	}
	log.WithField("symbol", symbol).Info("➖ Symbol removed from watch-list")
	return translation.Translate("🗑️ Stopped tracking %s.", symbol)
}

func (d *Dispatcher) list() string {
	entries := d.watchlist.List()
	if len(entries) == 0 {
		return translation.Translate("Your watch-list is empty. Send \"track AAPL\" to add a symbol.")
	}

	var b strings.Builder
	b.WriteString(translation.Translate("📋 Tracking %d symbols:", len(entries)))
	for _, entry := range entries {
		b.WriteString("\n")
		b.WriteString(translation.Translate("• %s (added %s)", entry.Symbol, humanize.Time(entry.AddedAt)))
	}
	return b.String()
}

func (d *Dispatcher) price(ctx context.Context, symbol string) string {
	if !store.ValidSymbol(symbol) {
		return translation.Translate("%s does not look like a ticker symbol.", symbol)
	}
	if d.quotes == nil {
		return translation.Translate("No data available for %s.", symbol)
	}

	quote, err := d.quotes.Quote(ctx, symbol)
	if err != nil {
		log.WithField("symbol", symbol).Warnf("⚠️ Price query failed: %v", err)
		return translation.Translate("No data available for %s.", symbol)
	}

	name := quote.Symbol
	if quote.Name != "" {
		name = fmt.Sprintf("%s (%s)", quote.Symbol, quote.Name)
	}

	return translation.Translate("%s: %s %s\nPrevious close: %s\nChange: %s",
		name,
		helpers.FormatPriceUS(quote.Price, false),
		quote.Currency,
		helpers.FormatPriceUS(quote.PreviousClose, false),
		helpers.FormatPercent(quote.ChangePercent(), false),
	)
}

func (d *Dispatcher) recentHistory(chatID int64) []database.ChatMessage {
	if d.history == nil || d.cfg.HistoryMessages <= 0 {
		return nil
	}
	messages, err := d.history.Recent(chatID, d.cfg.HistoryMessages)
	if err != nil {
		log.WithField("chat_id", chatID).Warnf("⚠️ Could not load chat history: %v", err)
		return nil
	}
	return messages
}

func (d *Dispatcher) remember(chatID int64, direction, text string) {
	if d.history == nil {
		return
	}
	if err := d.history.Append(chatID, direction, text); err != nil {
		log.WithField("chat_id", chatID).Warnf("⚠️ Could not store chat message: %v", err)
	}
}

func (d *Dispatcher) updateTrackedGauge() {
	if d.metrics != nil && d.watchlist != nil {
		d.metrics.TrackedSymbols.Set(float64(d.watchlist.Len()))
	}
}
