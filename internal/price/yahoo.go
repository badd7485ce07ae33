package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stock-sentinel-bot/internal/types"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	yahooBaseURL     = "https://query1.finance.yahoo.com"
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Yahoo reads quotes from the Yahoo Finance chart API.
type Yahoo struct {
	baseURL string
	client  *http.Client
}

// YahooOption configures the Yahoo provider.
type YahooOption func(*Yahoo)

// WithYahooBaseURL points the provider at another host (used by tests).
func WithYahooBaseURL(u string) YahooOption {
	return func(y *Yahoo) { y.baseURL = strings.TrimRight(u, "/") }
}

func WithYahooHTTPClient(client *http.Client) YahooOption {
	return func(y *Yahoo) { y.client = client }
}

func NewYahoo(opts ...YahooOption) *Yahoo {
	y := &Yahoo{
		baseURL: yahooBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

type yahooChartResponse struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooChartResult struct {
	Meta struct {
		Currency           string   `json:"currency"`
		Symbol             string   `json:"symbol"`
		LongName           string   `json:"longName"`
		ShortName          string   `json:"shortName"`
		RegularMarketPrice *float64 `json:"regularMarketPrice"`
		ChartPreviousClose *float64 `json:"chartPreviousClose"`
		PreviousClose      *float64 `json:"previousClose"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (r yahooChartResult) closes() []types.PricePoint {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	raw := r.Indicators.Quote[0].Close

	points := make([]types.PricePoint, 0, len(raw))
	for i, c := range raw {
		if c == nil || i >= len(r.Timestamp) {
			continue
		}
		points = append(points, types.PricePoint{
			Time:  time.Unix(r.Timestamp[i], 0).UTC(),
			Price: decimal.NewFromFloat(*c),
		})
	}
	return points
}

// Quote uses five daily bars: the previous close is the second to last bar,
// the price is the regular market price or the last bar's close.
func (y *Yahoo) Quote(ctx context.Context, symbol string) (*types.Quote, error) {
	result, err := y.chart(ctx, symbol, "5d", "1d")
	if err != nil {
		return nil, err
	}

	daily := result.closes()

	var price, prevClose decimal.Decimal
	if result.Meta.RegularMarketPrice != nil {
		price = decimal.NewFromFloat(*result.Meta.RegularMarketPrice)
	} else if len(daily) > 0 {
		price = daily[len(daily)-1].Price
	}

	switch {
	case len(daily) >= 2:
		prevClose = daily[len(daily)-2].Price
	case result.Meta.PreviousClose != nil:
		prevClose = decimal.NewFromFloat(*result.Meta.PreviousClose)
	case result.Meta.ChartPreviousClose != nil:
		prevClose = decimal.NewFromFloat(*result.Meta.ChartPreviousClose)
	}

	if !price.IsPositive() || !prevClose.IsPositive() {
		return nil, errors.Wrapf(ErrNoData, "yahoo %s: incomplete quote", symbol)
	}

	name := result.Meta.LongName
	if name == "" {
		name = result.Meta.ShortName
	}

	return &types.Quote{
		Symbol:        strings.ToUpper(symbol),
		Name:          name,
		Price:         price,
		PreviousClose: prevClose,
		Currency:      result.Meta.Currency,
		Source:        "yahoo",
		FetchedAt:     time.Now().UTC(),
	}, nil
}

// History returns today's five minute closes.
func (y *Yahoo) History(ctx context.Context, symbol string) ([]types.PricePoint, error) {
	result, err := y.chart(ctx, symbol, "1d", "5m")
	if err != nil {
		return nil, err
	}
	points := result.closes()
	if len(points) == 0 {
		return nil, errors.Wrapf(ErrNoData, "yahoo %s: no intraday data", symbol)
	}
	return points, nil
}

func (y *Yahoo) chart(ctx context.Context, symbol, rng, interval string) (*yahooChartResult, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s",
		y.baseURL, url.PathEscape(strings.ToUpper(symbol)), rng, interval)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrNoData, "yahoo chart %s: %v", symbol, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, errors.Wrapf(ErrNoData, "yahoo chart %s: read response: %v", symbol, err)
	}

	var parsed yahooChartResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		if resp.StatusCode >= 400 {
			return nil, errors.Wrapf(ErrNoData, "yahoo chart %s: HTTP %d", symbol, resp.StatusCode)
		}
		return nil, errors.Wrapf(ErrNoData, "yahoo chart %s: parse: %v", symbol, err)
	}

	if parsed.Chart.Error != nil {
		return nil, errors.Wrapf(ErrNoData, "yahoo %s: %s", symbol, parsed.Chart.Error.Description)
	}
	if resp.StatusCode >= 400 {
		return nil, errors.Wrapf(ErrNoData, "yahoo chart %s: HTTP %d", symbol, resp.StatusCode)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, errors.Wrapf(ErrNoData, "yahoo %s: empty result", symbol)
	}
	return &parsed.Chart.Result[0], nil
}
