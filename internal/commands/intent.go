package commands

import (
	"encoding/json"
	"strings"

	"stock-sentinel-bot/internal/store"

	"github.com/kaptinlin/jsonrepair"
	"github.com/pkg/errors"
)

type Intent string

const (
	IntentAdd    Intent = "add"
	IntentRemove Intent = "remove"
	IntentList   Intent = "list"
	IntentPrice  Intent = "price"
)

var (
	ErrUnknownIntent = errors.New("unknown intent")
	ErrMissingSymbol = errors.New("intent needs a symbol")
)

var intentAliases = map[string]Intent{
	"add":         IntentAdd,
	"track":       IntentAdd,
	"watch":       IntentAdd,
	"remove":      IntentRemove,
	"untrack":     IntentRemove,
	"delete":      IntentRemove,
	"list":        IntentList,
	"show":        IntentList,
	"price":       IntentPrice,
	"quote":       IntentPrice,
	"price_query": IntentPrice,
}

// Command is a classified user request.
type Command struct {
	Intent Intent `json:"intent"`
	Symbol string `json:"symbol,omitempty"`
}

// ParseCommand reads the model's JSON reply. Code fences and small syntax
// errors are tolerated; anything that is not one of the four intents is
// ErrUnknownIntent.
func ParseCommand(raw string) (Command, error) {
	cleaned := stripCodeFence(raw)
	if cleaned == "" {
		return Command{}, errors.Wrap(ErrUnknownIntent, "empty reply")
	}

	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err != nil {
		return Command{}, errors.Wrapf(ErrUnknownIntent, "unparseable reply: %v", err)
	}

	var payload struct {
		Intent string `json:"intent"`
		Symbol string `json:"symbol"`
	}
	if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
		return Command{}, errors.Wrapf(ErrUnknownIntent, "unexpected reply shape: %v", err)
	}

	intent, ok := intentAliases[strings.ToLower(strings.TrimSpace(payload.Intent))]
	if !ok {
		return Command{}, errors.Wrapf(ErrUnknownIntent, "intent %q", payload.Intent)
	}

	cmd := Command{Intent: intent, Symbol: store.NormalizeSymbol(payload.Symbol)}
	if intent != IntentList && cmd.Symbol == "" {
		return cmd, ErrMissingSymbol
	}
	if intent == IntentList {
		cmd.Symbol = ""
	}
	return cmd, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
