package price

import (
	"context"
	"strings"
	"time"

	"stock-sentinel-bot/internal/types"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// SnapshotClient is the part of the Alpaca market data client used here.
type SnapshotClient interface {
	GetSnapshot(symbol string, req marketdata.GetSnapshotRequest) (*marketdata.Snapshot, error)
}

// Alpaca reads quotes from Alpaca market data snapshots.
type Alpaca struct {
	client SnapshotClient
}

func NewAlpaca(apiKey, apiSecret string) *Alpaca {
	return &Alpaca{
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
	}
}

// NewAlpacaWithClient wraps an existing snapshot client.
func NewAlpacaWithClient(client SnapshotClient) *Alpaca {
	return &Alpaca{client: client}
}

// Quote takes the latest trade as price and the previous daily bar's close.
func (a *Alpaca) Quote(ctx context.Context, symbol string) (*types.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(symbol)

	snapshot, err := a.client.GetSnapshot(symbol, marketdata.GetSnapshotRequest{})
	if err != nil {
		return nil, errors.Wrapf(ErrNoData, "alpaca snapshot %s: %v", symbol, err)
	}
	if snapshot == nil || snapshot.PrevDailyBar == nil {
		return nil, errors.Wrapf(ErrNoData, "alpaca %s: no previous daily bar", symbol)
	}

	var price decimal.Decimal
	switch {
	case snapshot.LatestTrade != nil:
		price = decimal.NewFromFloat(snapshot.LatestTrade.Price)
	case snapshot.DailyBar != nil:
		price = decimal.NewFromFloat(snapshot.DailyBar.Close)
	}

	prevClose := decimal.NewFromFloat(snapshot.PrevDailyBar.Close)
	if !price.IsPositive() || !prevClose.IsPositive() {
		return nil, errors.Wrapf(ErrNoData, "alpaca %s: incomplete snapshot", symbol)
	}

	return &types.Quote{
		Symbol:        symbol,
		Price:         price,
		PreviousClose: prevClose,
		Currency:      "USD",
		Source:        "alpaca",
		FetchedAt:     time.Now().UTC(),
	}, nil
}
