package price

import (
	"context"
	"strings"
	"time"

	"stock-sentinel-bot/internal/types"

	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Paprika quotes SYMBOL-USD crypto pairs through CoinPaprika.
type Paprika struct {
	client *coinpaprika.Client
}

func NewPaprika(apiProKey string) *Paprika {
	if apiProKey != "" {
		return &Paprika{client: coinpaprika.NewClient(nil, coinpaprika.WithAPIKey(apiProKey))}
	}
	return &Paprika{client: coinpaprika.NewClient(nil)}
}

// Quote resolves the coin by symbol and derives the previous close from the
// 24h change, since CoinPaprika has no session close.
func (p *Paprika) Quote(ctx context.Context, symbol string) (*types.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	coin, err := p.searchCoin(strings.TrimSuffix(strings.ToUpper(symbol), "-USD"))
	if err != nil {
		return nil, errors.Wrapf(ErrNoData, "coinpaprika %s: %v", symbol, err)
	}

	ticker, err := p.client.Tickers.GetByID(*coin.ID, &coinpaprika.TickersOptions{Quotes: "USD"})
	if err != nil {
		return nil, errors.Wrapf(ErrNoData, "coinpaprika ticker %s: %v", *coin.ID, err)
	}
	return quoteFromTicker(symbol, ticker)
}

func quoteFromTicker(symbol string, ticker *coinpaprika.Ticker) (*types.Quote, error) {
	if ticker == nil || ticker.Quotes == nil {
		return nil, errors.Wrapf(ErrNoData, "coinpaprika %s: no quotes", symbol)
	}
	usd, ok := ticker.Quotes["USD"]
	if !ok || usd.Price == nil || usd.PercentChange24h == nil {
		return nil, errors.Wrapf(ErrNoData, "coinpaprika %s: no USD quote", symbol)
	}

	name := ""
	if ticker.Name != nil {
		name = *ticker.Name
	}
	return deriveQuote(symbol, name, *usd.Price, *usd.PercentChange24h)
}

func deriveQuote(symbol, name string, usdPrice, percentChange24h float64) (*types.Quote, error) {
	price := decimal.NewFromFloat(usdPrice)
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(percentChange24h).Div(decimal.NewFromInt(100)))
	if !factor.IsPositive() || !price.IsPositive() {
		return nil, errors.Wrapf(ErrNoData, "coinpaprika %s: invalid price data", symbol)
	}

	return &types.Quote{
		Symbol:        strings.ToUpper(symbol),
		Name:          name,
		Price:         price,
		PreviousClose: price.Div(factor).Round(8),
		Currency:      "USD",
		Source:        "coinpaprika",
		FetchedAt:     time.Now().UTC(),
	}, nil
}

func (p *Paprika) searchCoin(query string) (*coinpaprika.Coin, error) {
	searchOpts := &coinpaprika.SearchOptions{
		Query:      query,
		Categories: "currencies",
		Modifier:   "symbol_search",
	}
	result, err := p.client.Search.Search(searchOpts)
	if err != nil || len(result.Currencies) == 0 {
		log.Debugf("No results for symbol search, trying name search for '%s'", query)
		searchOpts = &coinpaprika.SearchOptions{Query: query, Categories: "currencies"}
		result, err = p.client.Search.Search(searchOpts)
		if err != nil || len(result.Currencies) == 0 {
			return nil, errors.Errorf("invalid coin name, ticker, or symbol: %s", query)
		}
	}

	return firstCoinWithID(query, result.Currencies)
}

func firstCoinWithID(query string, coins []*coinpaprika.Coin) (*coinpaprika.Coin, error) {
	for _, coin := range coins {
		if coin != nil && coin.ID != nil {
			return coin, nil
		}
	}
	return nil, errors.Errorf("no coin id for %s", query)
}
