package store

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"stock-sentinel-bot/internal/types"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrInvalidSymbol is returned for text that cannot be a ticker.
var ErrInvalidSymbol = errors.New("invalid ticker symbol")

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-=^]{0,14}$`)

// NormalizeSymbol upper-cases and trims a ticker, dropping a leading '$'.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(symbol), "$"))
}

// ValidSymbol reports whether symbol, once normalized, looks like a ticker.
func ValidSymbol(symbol string) bool {
	return symbolPattern.MatchString(NormalizeSymbol(symbol))
}

// Watchlist is the persisted set of tracked symbols.
type Watchlist struct {
	path    string
	mu      sync.Mutex
	symbols map[string]types.TrackedSymbol
	now     func() time.Time
}

// OpenWatchlist loads the watch-list stored at path.
func OpenWatchlist(path string) *Watchlist {
	w := &Watchlist{
		path:    path,
		symbols: make(map[string]types.TrackedSymbol),
		now:     time.Now,
	}

	stored := make(map[string]types.TrackedSymbol)
	if loadSnapshot(path, &stored) {
		for key, entry := range stored {
			symbol := NormalizeSymbol(entry.Symbol)
			if symbol == "" {
				symbol = NormalizeSymbol(key)
			}
			if symbol == "" {
				continue
			}
			entry.Symbol = symbol
			w.symbols[symbol] = entry
		}
	}

	log.WithFields(log.Fields{"path": path, "symbols": len(w.symbols)}).Debug("📋 Watch-list loaded")
	return w
}

// Add tracks symbol. Adding a symbol that is already tracked changes nothing
// and returns false.
func (w *Watchlist) Add(symbol string) (bool, error) {
	symbol = NormalizeSymbol(symbol)
	if !symbolPattern.MatchString(symbol) {
		return false, errors.Wrap(ErrInvalidSymbol, symbol)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.symbols[symbol]; exists {
		return false, nil
	}

	w.symbols[symbol] = types.TrackedSymbol{Symbol: symbol, AddedAt: w.now().UTC()}
	if err := writeSnapshot(w.path, w.symbols); err != nil {
		delete(w.symbols, symbol)
		return false, errors.Wrapf(err, "could not persist watch-list after adding %s", symbol)
	}
	return true, nil
}

// Remove stops tracking symbol. Removing an untracked symbol is a no-op and
// returns false without error.
func (w *Watchlist) Remove(symbol string) (bool, error) {
	symbol = NormalizeSymbol(symbol)

	w.mu.Lock()
	defer w.mu.Unlock()

	entry, exists := w.symbols[symbol]
	if !exists {
		return false, nil
	}

	delete(w.symbols, symbol)
	if err := writeSnapshot(w.path, w.symbols); err != nil {
		w.symbols[symbol] = entry
		return false, errors.Wrapf(err, "could not persist watch-list after removing %s", symbol)
	}
	return true, nil
}

// Contains reports whether symbol is tracked.
func (w *Watchlist) Contains(symbol string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, exists := w.symbols[NormalizeSymbol(symbol)]
	return exists
}

// List returns the tracked symbols sorted alphabetically.
func (w *Watchlist) List() []types.TrackedSymbol {
	w.mu.Lock()
	defer w.mu.Unlock()

	list := make([]types.TrackedSymbol, 0, len(w.symbols))
	for _, entry := range w.symbols {
		list = append(list, entry)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Symbol < list[j].Symbol })
	return list
}

func (w *Watchlist) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.symbols)
}
