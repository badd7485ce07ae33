package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrackedSymbol is a watch-list entry.
type TrackedSymbol struct {
	Symbol  string    `json:"symbol"`
	AddedAt time.Time `json:"added_at"`
}

// AlertRecord remembers the last alert sent for a symbol.
type AlertRecord struct {
	Symbol      string          `json:"symbol"`
	LastPrice   decimal.Decimal `json:"last_price"`
	LastAlertAt time.Time       `json:"last_alert_at"`
}

// PricePoint is one sample of an intraday series.
type PricePoint struct {
	Time  time.Time       `json:"time"`
	Price decimal.Decimal `json:"price"`
}

// Quote is the latest price of a symbol together with its previous close.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name,omitempty"`
	Price         decimal.Decimal `json:"price"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	Currency      string          `json:"currency"`
	Source        string          `json:"source"`
	FetchedAt     time.Time       `json:"fetched_at"`
	History       []PricePoint    `json:"history,omitempty"`
}

// ChangePercent returns (Price-PreviousClose)/PreviousClose*100, or zero when
// the previous close is not positive.
func (q Quote) ChangePercent() decimal.Decimal {
	if !q.PreviousClose.IsPositive() {
		return decimal.Zero
	}
	return q.Price.Sub(q.PreviousClose).Div(q.PreviousClose).Mul(decimal.NewFromInt(100))
}

// Headline is a news item used as research context.
type Headline struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	Link        string    `json:"link,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}
