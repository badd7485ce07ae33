// Package price fetches quotes (latest price and previous close) for ticker symbols.
package price

import (
	"context"
	"strings"

	"stock-sentinel-bot/internal/types"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrNoData is returned when a provider has no usable quote for a symbol.
var ErrNoData = errors.New("no data available for symbol")

// Quoter returns the latest quote for a symbol.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (*types.Quote, error)
}

// HistoryProvider returns intraday price points for charts.
type HistoryProvider interface {
	History(ctx context.Context, symbol string) ([]types.PricePoint, error)
}

// IsCrypto reports whether symbol uses the SYMBOL-USD crypto pair notation.
func IsCrypto(symbol string) bool {
	return strings.HasSuffix(strings.ToUpper(symbol), "-USD")
}

// Router sends crypto pairs to Crypto and everything else to Equity.
type Router struct {
	Equity Quoter
	Crypto Quoter
}

func (r *Router) pick(symbol string) Quoter {
	if r.Crypto != nil && IsCrypto(symbol) {
		return r.Crypto
	}
	return r.Equity
}

func (r *Router) Quote(ctx context.Context, symbol string) (*types.Quote, error) {
	q := r.pick(symbol)
	if q == nil {
		return nil, errors.Wrapf(ErrNoData, "no provider for %s", symbol)
	}

	quote, err := q.Quote(ctx, symbol)
	if err != nil {
		log.WithField("symbol", symbol).Debugf("quote failed: %v", err)
		return nil, err
	}
	return quote, nil
}

// History delegates to the selected provider when it can serve history.
func (r *Router) History(ctx context.Context, symbol string) ([]types.PricePoint, error) {
	h, ok := r.pick(symbol).(HistoryProvider)
	if !ok {
		return nil, errors.Wrapf(ErrNoData, "no history provider for %s", symbol)
	}
	return h.History(ctx, symbol)
}
