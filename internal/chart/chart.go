// Package chart renders intraday price charts attached to alerts.
package chart

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"stock-sentinel-bot/internal/types"
	"stock-sentinel-bot/lib/helpers"

	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNotEnoughData is returned when the series cannot produce a useful chart.
var ErrNotEnoughData = errors.New("not enough data points to render chart")

var (
	fontOnce sync.Once
	font     *truetype.Font
	fontErr  error

	upColor         = drawing.Color{R: 38, G: 166, B: 91, A: 255}
	downColor       = drawing.Color{R: 219, G: 68, B: 55, A: 255}
	backgroundColor = drawing.Color{R: 55, G: 55, B: 55, A: 255}
	textColor       = drawing.Color{R: 200, G: 200, B: 200, A: 255}
	gridColor       = drawing.Color{R: 100, G: 100, B: 100, A: 128}
)

func defaultFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		font, fontErr = chart.GetDefaultFont()
	})
	return font, fontErr
}

// RenderIntraday draws points as a line chart with the previous close as a
// dashed reference line and returns the PNG bytes.
func RenderIntraday(symbol string, points []types.PricePoint, previousClose decimal.Decimal, loc *time.Location) ([]byte, error) {
	if len(points) < 2 {
		return nil, ErrNotEnoughData
	}
	if loc == nil {
		loc = time.UTC
	}

	xs := make([]time.Time, 0, len(points))
	ys := make([]float64, 0, len(points))
	minPrice, maxPrice := points[0].Price, points[0].Price
	for _, p := range points {
		v, _ := p.Price.Float64()
		xs = append(xs, p.Time.In(loc))
		ys = append(ys, v)
		if p.Price.LessThan(minPrice) {
			minPrice = p.Price
		}
		if p.Price.GreaterThan(maxPrice) {
			maxPrice = p.Price
		}
	}
	if minPrice.Equal(maxPrice) {
		return nil, ErrNotEnoughData
	}

	f, err := defaultFont()
	if err != nil {
		return nil, errors.Wrap(err, "could not load chart font")
	}

	last := points[len(points)-1].Price
	lineColor := upColor
	if previousClose.IsPositive() && last.LessThan(previousClose) {
		lineColor = downColor
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name:    symbol,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: lineColor,
				StrokeWidth: 2,
				FillColor:   lineColor.WithAlpha(40),
			},
		},
	}

	if previousClose.IsPositive() {
		pc, _ := previousClose.Float64()
		series = append(series, chart.TimeSeries{
			Name:    "Previous close",
			XValues: []time.Time{xs[0], xs[len(xs)-1]},
			YValues: []float64{pc, pc},
			Style: chart.Style{
				StrokeColor:     textColor,
				StrokeWidth:     1,
				StrokeDashArray: []float64{5, 5},
			},
		})
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s intraday", symbol),
		Font:   f,
		Width:  1000,
		Height: 500,
		TitleStyle: chart.Style{
			FontColor: textColor,
			FontSize:  14,
		},
		Background: chart.Style{
			FillColor: backgroundColor,
			Padding:   chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		Canvas: chart.Style{FillColor: backgroundColor},
		XAxis: chart.XAxis{
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).In(loc).Format("15:04")
				}
				return ""
			},
			Style: chart.Style{FontColor: textColor, StrokeColor: gridColor},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return helpers.FormatPriceUS(decimal.NewFromFloat(f), false)
				}
				return ""
			},
			Style: chart.Style{FontColor: textColor, StrokeColor: gridColor},
			GridMajorStyle: chart.Style{
				StrokeColor: gridColor,
				StrokeWidth: 1,
			},
		},
		Series: series,
	}

	buf := bytes.NewBuffer(nil)
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, errors.Wrapf(err, "could not render chart for %s", symbol)
	}
	return buf.Bytes(), nil
}
