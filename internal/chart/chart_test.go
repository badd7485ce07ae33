package chart

import (
	"bytes"
	"testing"
	"time"

	"stock-sentinel-bot/internal/types"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

func series(prices ...string) []types.PricePoint {
	start := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	points := make([]types.PricePoint, len(prices))
	for i, p := range prices {
		points[i] = types.PricePoint{Time: start.Add(time.Duration(i) * 5 * time.Minute), Price: decimal.RequireFromString(p)}
	}
	return points
}

func TestRenderIntradayPNG(t *testing.T) {
	png, err := RenderIntraday("AAPL", series("150.1", "150.8", "151.4", "152.0"), decimal.NewFromInt(150), nil)
	if err != nil {
		t.Fatalf("RenderIntraday: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("output is not a PNG")
	}
}

func TestRenderIntradayNeedsData(t *testing.T) {
	if _, err := RenderIntraday("AAPL", series("150"), decimal.NewFromInt(150), nil); !errors.Is(err, ErrNotEnoughData) {
		t.Fatalf("single point err = %v", err)
	}
	if _, err := RenderIntraday("AAPL", series("150", "150", "150"), decimal.NewFromInt(150), nil); !errors.Is(err, ErrNotEnoughData) {
		t.Fatalf("flat series err = %v", err)
	}
}
