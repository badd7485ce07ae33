// Package research turns a price move into a short news digest.
package research

import (
	"context"
	"time"

	"stock-sentinel-bot/internal/detector"
	"stock-sentinel-bot/internal/llm"
	"stock-sentinel-bot/internal/news"
	"stock-sentinel-bot/internal/prompts"
	"stock-sentinel-bot/internal/types"
	"stock-sentinel-bot/lib/helpers"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultMaxChars  = 1000
	DefaultHeadlines = 5
)

// Config tunes the research step.
type Config struct {
	Model     string
	MaxChars  int
	Headlines int
}

// Report is the result of researching one move.
type Report struct {
	Symbol      string           `json:"symbol"`
	Quote       types.Quote      `json:"quote"`
	Headlines   []types.Headline `json:"headlines"`
	Summary     string           `json:"summary"`
	Model       string           `json:"model"`
	GeneratedAt time.Time        `json:"generated_at"`
}

type Researcher struct {
	provider llm.Provider
	news     news.Source
	prompt   prompts.Prompt
	cfg      Config
}

func New(provider llm.Provider, source news.Source, prompt prompts.Prompt, cfg Config) *Researcher {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.Headlines <= 0 {
		cfg.Headlines = DefaultHeadlines
	}
	return &Researcher{provider: provider, news: source, prompt: prompt, cfg: cfg}
}

// Research gathers headlines, asks the model for a digest and trims it to the
// configured length. Missing headlines are not an error.
func (r *Researcher) Research(ctx context.Context, quote *types.Quote) (*Report, error) {
	if quote == nil {
		return nil, errors.New("research needs a quote")
	}

	var headlines []types.Headline
	if r.news != nil {
		var err error
		headlines, err = r.news.Headlines(ctx, quote.Symbol, r.cfg.Headlines)
		if err != nil {
			log.WithField("symbol", quote.Symbol).Warnf("⚠️ Headlines unavailable: %v", err)
		}
	}

	signal := detector.Evaluate(quote.Price, quote.PreviousClose)
	system, user, err := r.prompt.Render(map[string]interface{}{
		"Symbol":        quote.Symbol,
		"Name":          quote.Name,
		"Price":         helpers.FormatPriceUS(quote.Price, false),
		"PreviousClose": helpers.FormatPriceUS(quote.PreviousClose, false),
		"Currency":      quote.Currency,
		"ChangePercent": helpers.FormatPercent(signal.Percent(), false),
		"Direction":     signal.Direction(),
		"MaxChars":      r.cfg.MaxChars,
		"Headlines":     headlines,
	})
	if err != nil {
		return nil, err
	}

	resp, err := r.provider.Chat(ctx, []llm.Message{
		llm.SystemMessage(system),
		llm.UserMessage(user),
	}, &llm.ChatOptions{Model: r.cfg.Model, Temperature: llm.Temperature(0.3)})
	if err != nil {
		return nil, errors.Wrapf(err, "research %s", quote.Symbol)
	}

	return &Report{
		Symbol:      quote.Symbol,
		Quote:       *quote,
		Headlines:   headlines,
		Summary:     helpers.Truncate(resp.Content, r.cfg.MaxChars),
		Model:       resp.Model,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
