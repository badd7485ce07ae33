package commands

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"stock-sentinel-bot/internal/database"
	"stock-sentinel-bot/internal/llm"
	"stock-sentinel-bot/internal/metrics"
	"stock-sentinel-bot/internal/price"
	"stock-sentinel-bot/internal/prompts"
	"stock-sentinel-bot/internal/store"
	"stock-sentinel-bot/internal/types"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		raw    string
		intent Intent
		symbol string
	}{
		{`{"intent":"add","symbol":"aapl"}`, IntentAdd, "AAPL"},
		{"```json\n{\"intent\": \"remove\", \"symbol\": \"MSFT\"}\n```", IntentRemove, "MSFT"},
		{`{"intent":"list","symbol":"ignored"}`, IntentList, ""},
		{`{intent: 'price', symbol: 'nvda'`, IntentPrice, "NVDA"},
		{`{"intent":"Track","symbol":"$tsla"}`, IntentAdd, "TSLA"},
	}
	for _, tc := range cases {
		cmd, err := ParseCommand(tc.raw)
		if err != nil {
			t.Fatalf("ParseCommand(%q): %v", tc.raw, err)
		}
		if cmd.Intent != tc.intent || cmd.Symbol != tc.symbol {
			t.Fatalf("ParseCommand(%q) = %+v, want %s/%s", tc.raw, cmd, tc.intent, tc.symbol)
		}
	}
}

func TestParseCommandFailures(t *testing.T) {
	for _, raw := range []string{"", "I am not sure what you mean", `{"intent":"unknown","symbol":""}`, `{"intent":"buy","symbol":"AAPL"}`, `[1,2,3]`} {
		if _, err := ParseCommand(raw); !errors.Is(err, ErrUnknownIntent) {
			t.Fatalf("ParseCommand(%q) err = %v, want ErrUnknownIntent", raw, err)
		}
	}
	if _, err := ParseCommand(`{"intent":"add","symbol":""}`); !errors.Is(err, ErrMissingSymbol) {
		t.Fatalf("missing symbol err = %v", err)
	}
}

// scriptedProvider answers with the reply registered for the last line of the user prompt.
type scriptedProvider struct {
	replies  map[string]string
	err      error
	lastUser string
}

func (p *scriptedProvider) Chat(_ context.Context, messages []llm.Message, _ *llm.ChatOptions) (*llm.Response, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.lastUser = messages[len(messages)-1].Content
	lines := strings.Split(p.lastUser, "\n")
	text := strings.TrimPrefix(lines[len(lines)-1], "Message: ")
	reply, ok := p.replies[text]
	if !ok {
		reply = `{"intent":"unknown","symbol":""}`
	}
	return &llm.Response{Content: reply}, nil
}

type memoryHistory struct {
	messages []database.ChatMessage
}

func (h *memoryHistory) Recent(chatID int64, limit int) ([]database.ChatMessage, error) {
	var out []database.ChatMessage
	for _, m := range h.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (h *memoryHistory) Append(chatID int64, direction, text string) error {
	h.messages = append(h.messages, database.ChatMessage{ChatID: chatID, Direction: direction, Text: text})
	return nil
}

type stubQuoter map[string]*types.Quote

func (s stubQuoter) Quote(_ context.Context, symbol string) (*types.Quote, error) {
	q, ok := s[symbol]
	if !ok {
		return nil, errors.Wrap(price.ErrNoData, symbol)
	}
	return q, nil
}

var intents = map[string]string{
	"track apple":             `{"intent":"add","symbol":"AAPL"}`,
	"track apple again":       `{"intent":"add","symbol":"AAPL"}`,
	"follow the unknown co":   `{"intent":"add","symbol":"ZZZZ"}`,
	"drop microsoft":          `{"intent":"remove","symbol":"MSFT"}`,
	"stop watching apple":     `{"intent":"remove","symbol":"AAPL"}`,
	"what am I tracking":      `{"intent":"list"}`,
	"how is apple doing":      "```json\n{\"intent\":\"price\",\"symbol\":\"AAPL\"}\n```",
	"add something":           `{"intent":"add","symbol":""}`,
	"tell me a joke":          `Sure! Why did the chart cross the road?`,
	"price of an unknown one": `{"intent":"price","symbol":"ZZZZ"}`,
}

func newDispatcher(t *testing.T, provider llm.Provider, cfg Config) (*Dispatcher, *store.Watchlist, *memoryHistory, *metrics.BotMetrics) {
	t.Helper()
	catalog, err := prompts.Default()
	if err != nil {
		t.Fatal(err)
	}
	watchlist := store.OpenWatchlist(filepath.Join(t.TempDir(), "watchlist.json"))
	quotes := stubQuoter{"AAPL": {
		Symbol:        "AAPL",
		Name:          "Apple Inc.",
		Price:         decimal.RequireFromString("152"),
		PreviousClose: decimal.RequireFromString("150"),
		Currency:      "USD",
	}}
	history := &memoryHistory{}
	m := metrics.NewBotMetrics(prometheus.NewRegistry())
	return New(provider, catalog.Intent, watchlist, quotes, history, m, cfg), watchlist, history, m
}

func TestDispatcherWatchlistFlow(t *testing.T) {
	d, watchlist, _, m := newDispatcher(t, &scriptedProvider{replies: intents}, Config{ValidateSymbols: true, HistoryMessages: 5})
	ctx := context.Background()

	if reply := d.Handle(ctx, 1, "track apple"); !strings.Contains(reply, "Now tracking AAPL") {
		t.Fatalf("add reply = %q", reply)
	}
	if reply := d.Handle(ctx, 1, "track apple again"); !strings.Contains(reply, "already on your watch-list") {
		t.Fatalf("duplicate add reply = %q", reply)
	}
	if watchlist.Len() != 1 {
		t.Fatalf("watch-list has %d entries, want 1", watchlist.Len())
	}

	if reply := d.Handle(ctx, 1, "follow the unknown co"); !strings.Contains(reply, "No data available for ZZZZ") {
		t.Fatalf("unknown symbol reply = %q", reply)
	}
	if watchlist.Contains("ZZZZ") {
		t.Fatal("symbol without data was added")
	}

	reply := d.Handle(ctx, 1, "what am I tracking")
	if !strings.Contains(reply, "Tracking 1 symbols") || !strings.Contains(reply, "• AAPL (added ") {
		t.Fatalf("list reply = %q", reply)
	}

	if reply := d.Handle(ctx, 1, "drop microsoft"); !strings.Contains(reply, "MSFT is not on your watch-list") {
		t.Fatalf("remove untracked reply = %q", reply)
	}
	if reply := d.Handle(ctx, 1, "stop watching apple"); !strings.Contains(reply, "Stopped tracking AAPL") {
		t.Fatalf("remove reply = %q", reply)
	}
	if reply := d.Handle(ctx, 1, "what am I tracking"); !strings.Contains(reply, "watch-list is empty") {
		t.Fatalf("empty list reply = %q", reply)
	}

	if got := metrics.GetMetricValue(m.CommandsProcessed.WithLabelValues("add")); got != 3 {
		t.Fatalf("commands_processed{add} = %v, want 3", got)
	}
	if got := metrics.GetMetricValue(m.TrackedSymbols); got != 0 {
		t.Fatalf("tracked_symbols = %v, want 0", got)
	}
}

func TestDispatcherPriceQuery(t *testing.T) {
	d, _, _, _ := newDispatcher(t, &scriptedProvider{replies: intents}, Config{})
	ctx := context.Background()

	reply := d.Handle(ctx, 1, "how is apple doing")
	for _, want := range []string{"AAPL (Apple Inc.)", "152.00 USD", "Previous close: 150.00", "+1.33%"} {
		if !strings.Contains(reply, want) {
			t.Fatalf("price reply %q missing %q", reply, want)
		}
	}

	if reply := d.Handle(ctx, 1, "price of an unknown one"); !strings.Contains(reply, "No data available for ZZZZ") {
		t.Fatalf("unknown price reply = %q", reply)
	}
}

func TestHelpTextMentionsThreshold(t *testing.T) {
	help := HelpText()
	if !strings.Contains(help, "more than 1% from the previous close") {
		t.Fatalf("help text = %q", help)
	}
	if strings.Contains(help, "%!") {
		t.Fatalf("help text has a formatting error: %q", help)
	}
}

func TestDispatcherFallbacks(t *testing.T) {
	d, _, _, _ := newDispatcher(t, &scriptedProvider{replies: intents}, Config{})
	ctx := context.Background()

	if reply := d.Handle(ctx, 1, "tell me a joke"); reply != HelpText() {
		t.Fatalf("unparseable intent reply = %q, want help text", reply)
	}
	if reply := d.Handle(ctx, 1, "add something"); !strings.Contains(reply, "Which symbol") {
		t.Fatalf("missing symbol reply = %q", reply)
	}
	if reply := d.Handle(ctx, 1, "   "); reply != HelpText() {
		t.Fatalf("empty message reply = %q", reply)
	}

	failing, _, _, _ := newDispatcher(t, &scriptedProvider{err: llm.ErrProviderDown}, Config{})
	if reply := failing.Handle(ctx, 1, "track apple"); !strings.Contains(reply, "could not process") {
		t.Fatalf("provider failure reply = %q", reply)
	}
}

func TestDispatcherLimitsWatchlist(t *testing.T) {
	replies := map[string]string{
		"add msft": `{"intent":"add","symbol":"MSFT"}`,
		"add aapl": `{"intent":"add","symbol":"AAPL"}`,
	}
	d, watchlist, _, _ := newDispatcher(t, &scriptedProvider{replies: replies}, Config{MaxTracked: 1})
	ctx := context.Background()

	d.Handle(ctx, 1, "add msft")
	if reply := d.Handle(ctx, 1, "add aapl"); !strings.Contains(reply, "watch-list is full") {
		t.Fatalf("limit reply = %q", reply)
	}
	if watchlist.Len() != 1 {
		t.Fatalf("Len = %d", watchlist.Len())
	}
}

func TestDispatcherUsesConversationHistory(t *testing.T) {
	provider := &scriptedProvider{replies: intents}
	d, _, history, _ := newDispatcher(t, provider, Config{HistoryMessages: 5})
	ctx := context.Background()

	d.Handle(ctx, 7, "track apple")
	d.Handle(ctx, 7, "what am I tracking")

	if !strings.Contains(provider.lastUser, "user: track apple") || !strings.Contains(provider.lastUser, "bot: ✅ Now tracking AAPL") {
		t.Fatalf("second prompt lacks history:\n%s", provider.lastUser)
	}
	if len(history.messages) != 4 {
		t.Fatalf("stored %d messages, want 4", len(history.messages))
	}
}
