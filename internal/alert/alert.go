// Package alert runs the periodic tracking cycle: fetch, detect, research,
// notify and record, one symbol at a time.
package alert

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"stock-sentinel-bot/internal/chart"
	"stock-sentinel-bot/internal/detector"
	"stock-sentinel-bot/internal/metrics"
	"stock-sentinel-bot/internal/price"
	"stock-sentinel-bot/internal/research"
	"stock-sentinel-bot/internal/store"
	"stock-sentinel-bot/internal/types"
	"stock-sentinel-bot/lib/helpers"
	"stock-sentinel-bot/lib/translation"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Notifier delivers MarkdownV2 alerts to the user.
type Notifier interface {
	Notify(ctx context.Context, text string) error
	NotifyChart(ctx context.Context, png []byte, caption string) error
}

// Researcher explains a price move.
type Researcher interface {
	Research(ctx context.Context, quote *types.Quote) (*research.Report, error)
}

type Config struct {
	Interval time.Duration
	// Location decides what "the same day" means for deduplication.
	Location *time.Location
	Charts   bool
}

// Result summarizes one tracking cycle.
type Result struct {
	ID      string
	Checked int
	Alerts  int
	Skipped int
	Errors  int
}

type Tracker struct {
	watchlist  *store.Watchlist
	alerts     *store.AlertHistory
	quotes     price.Quoter
	history    price.HistoryProvider
	researcher Researcher
	notifier   Notifier
	metrics    *metrics.BotMetrics
	cfg        Config

	cycleMutex sync.Mutex
	now        func() time.Time
}

// NewTracker wires a tracker. history, researcher and m may be nil.
func NewTracker(watchlist *store.Watchlist, alerts *store.AlertHistory, quotes price.Quoter, history price.HistoryProvider,
	researcher Researcher, notifier Notifier, m *metrics.BotMetrics, cfg Config) *Tracker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Tracker{
		watchlist:  watchlist,
		alerts:     alerts,
		quotes:     quotes,
		history:    history,
		researcher: researcher,
		notifier:   notifier,
		metrics:    m,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Start runs a cycle immediately and then on every interval until ctx is done.
// A tick that arrives while a cycle is still running is dropped.
func (t *Tracker) Start(ctx context.Context) error {
	log.WithField("interval", t.cfg.Interval).Info("🚀 Tracking service started.")

	var wg sync.WaitGroup
	defer wg.Wait()

	trigger := func() {
		if !t.cycleMutex.TryLock() {
			log.Warn("⏭️ Previous tracking cycle still running, tick dropped")
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer t.cycleMutex.Unlock()
			t.runCycle(ctx)
		}()
	}

	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	trigger()
	for {
		select {
		case <-ctx.Done():
			log.Info("🛑 Tracking service stopped.")
			return nil
		case <-ticker.C:
			trigger()
		}
	}
}

func (t *Tracker) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("🔥 Panic recovered in tracking cycle: %v", r)
		}
	}()
	t.RunOnce(ctx)
}

// RunOnce processes every tracked symbol in order.
func (t *Tracker) RunOnce(ctx context.Context) Result {
	res := Result{ID: uuid.NewString()}
	logger := log.WithField("cycle", res.ID)
	logger.Info("🔄 Checking tracked symbols...")

	for _, entry := range t.watchlist.List() {
		if ctx.Err() != nil {
			logger.Warn("⚠️ Tracking cycle cancelled")
			break
		}
		res.Checked++

		sent, err := t.checkSymbol(ctx, logger.WithField("symbol", entry.Symbol), entry.Symbol)
		switch {
		case err != nil:
			res.Errors++
		case sent:
			res.Alerts++
		default:
			res.Skipped++
		}
	}

	if t.metrics != nil {
		t.metrics.TrackingCycles.Inc()
	}
	logger.WithFields(log.Fields{
		"checked": res.Checked,
		"alerts":  res.Alerts,
		"errors":  res.Errors,
	}).Info("✅ Tracking cycle completed.")
	return res
}

func (t *Tracker) checkSymbol(ctx context.Context, logger *log.Entry, symbol string) (bool, error) {
	quote, err := t.quotes.Quote(ctx, symbol)
	if err != nil {
		logger.Errorf("❌ Failed to fetch price: %v", err)
		if t.metrics != nil {
			t.metrics.PriceFetchErrors.WithLabelValues(symbol).Inc()
		}
		return false, err
	}

	signal := detector.Evaluate(quote.Price, quote.PreviousClose)
	if !signal.Valid {
		logger.Warnf("⚠️ No signal, previous close is %s", quote.PreviousClose)
		return false, nil
	}
	logger.Debugf("🔍 Price %s | Previous close %s | Change %s%%",
		quote.Price, quote.PreviousClose, signal.Percent().StringFixed(2))
	if !signal.Triggered {
		return false, nil
	}

	now := t.now()
	if t.alerts.AlertedSameDay(symbol, now, t.cfg.Location) {
		logger.Info("🔕 Already alerted today")
		return false, nil
	}

	digest := t.digest(ctx, logger, quote)
	if err := t.notifier.Notify(ctx, ComposeAlert(quote, signal, digest)); err != nil {
		logger.Errorf("❌ Failed to send alert: %v", err)
		return false, errors.Wrapf(err, "notify %s", symbol)
	}
	logger.Info("✅ Alert sent")
	if t.metrics != nil {
		t.metrics.AlertsSent.Inc()
	}

	if err := t.alerts.Record(symbol, quote.Price, now); err != nil {
		logger.Errorf("❌ Failed to record alert: %v", err)
	}

	t.sendChart(ctx, logger, quote)
	return true, nil
}

func (t *Tracker) digest(ctx context.Context, logger *log.Entry, quote *types.Quote) string {
	if t.researcher == nil {
		return ""
	}
	report, err := t.researcher.Research(ctx, quote)
	if err != nil {
		logger.Warnf("⚠️ Research failed: %v", err)
		return translation.Translate("Research unavailable right now.")
	}
	return report.Summary
}

func (t *Tracker) sendChart(ctx context.Context, logger *log.Entry, quote *types.Quote) {
	if !t.cfg.Charts || t.history == nil {
		return
	}

	points, err := t.history.History(ctx, quote.Symbol)
	if err != nil {
		logger.Debugf("No intraday history for chart: %v", err)
		return
	}
	png, err := chart.RenderIntraday(quote.Symbol, points, quote.PreviousClose, t.cfg.Location)
	if err != nil {
		logger.Debugf("Chart skipped: %v", err)
		return
	}

	caption := fmt.Sprintf("*%s* %s", helpers.EscapeMarkdownV2(quote.Symbol), helpers.EscapeMarkdownV2(translation.Translate("intraday")))
	if err := t.notifier.NotifyChart(ctx, png, caption); err != nil {
		logger.Errorf("❌ Failed to send chart: %v", err)
	}
}

// ComposeAlert renders the MarkdownV2 alert text for a triggered move.
func ComposeAlert(quote *types.Quote, signal detector.Signal, digest string) string {
	title := helpers.EscapeMarkdownV2(quote.Symbol)
	if quote.Name != "" {
		title = fmt.Sprintf("%s \\(%s\\)", title, helpers.EscapeMarkdownV2(quote.Name))
	}

	icon, verb := "📈", translation.Translate("up")
	if signal.Delta.IsNegative() {
		icon, verb = "📉", translation.Translate("down")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s* %s *%s*\n\n", icon, title, helpers.EscapeMarkdownV2(verb), helpers.FormatPercent(signal.Percent(), true))
	fmt.Fprintf(&b, "%s: *%s %s*\n",
		helpers.EscapeMarkdownV2(translation.Translate("Price")),
		helpers.FormatPriceUS(quote.Price, true),
		helpers.EscapeMarkdownV2(quote.Currency))
	fmt.Fprintf(&b, "%s: %s",
		helpers.EscapeMarkdownV2(translation.Translate("Previous close")),
		helpers.FormatPriceUS(quote.PreviousClose, true))

	if digest = strings.TrimSpace(digest); digest != "" {
		b.WriteString("\n\n")
		b.WriteString(helpers.EscapeMarkdownV2(digest))
	}
	return b.String()
}
