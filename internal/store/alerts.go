package store

import (
	"sync"
	"time"

	"stock-sentinel-bot/internal/types"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// AlertHistory holds the last alert per symbol.
type AlertHistory struct {
	path    string
	mu      sync.Mutex
	records map[string]types.AlertRecord
}

// OpenAlertHistory loads the alert history stored at path.
func OpenAlertHistory(path string) *AlertHistory {
	h := &AlertHistory{
		path:    path,
		records: make(map[string]types.AlertRecord),
	}

	stored := make(map[string]types.AlertRecord)
	if loadSnapshot(path, &stored) {
		for key, record := range stored {
			symbol := NormalizeSymbol(record.Symbol)
			if symbol == "" {
				symbol = NormalizeSymbol(key)
			}
			if symbol == "" {
				continue
			}
			record.Symbol = symbol
			h.records[symbol] = record
		}
	}

	log.WithFields(log.Fields{"path": path, "records": len(h.records)}).Debug("🗂️ Alert history loaded")
	return h
}

// Get returns the last alert for symbol.
func (h *AlertHistory) Get(symbol string) (types.AlertRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	record, ok := h.records[NormalizeSymbol(symbol)]
	return record, ok
}

// AlertedSameDay reports whether symbol already alerted on the calendar day of
// at, as seen in loc.
func (h *AlertHistory) AlertedSameDay(symbol string, at time.Time, loc *time.Location) bool {
	record, ok := h.Get(symbol)
	if !ok || record.LastAlertAt.IsZero() {
		return false
	}
	if loc == nil {
		loc = time.UTC
	}

	y1, m1, d1 := record.LastAlertAt.In(loc).Date()
	y2, m2, d2 := at.In(loc).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Record overwrites the alert record for symbol and persists the history.
func (h *AlertHistory) Record(symbol string, price decimal.Decimal, at time.Time) error {
	symbol = NormalizeSymbol(symbol)

	h.mu.Lock()
	defer h.mu.Unlock()

	previous, existed := h.records[symbol]
	h.records[symbol] = types.AlertRecord{
		Symbol:      symbol,
		LastPrice:   price,
		LastAlertAt: at.UTC(),
	}

	if err := writeSnapshot(h.path, h.records); err != nil {
		if existed {
			h.records[symbol] = previous
		} else {
			delete(h.records, symbol)
		}
		return errors.Wrapf(err, "could not persist alert history for %s", symbol)
	}
	return nil
}
