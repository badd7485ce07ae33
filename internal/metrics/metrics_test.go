package metrics

import (
	"path/filepath"
	"testing"

	"stock-sentinel-bot/internal/database"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsSurviveRestart(t *testing.T) {
	if err := database.InitDB(filepath.Join(t.TempDir(), "sentinel.db")); err != nil {
		t.Fatal(err)
	}
	defer database.CloseDB()

	first := NewBotMetrics(prometheus.NewRegistry())
	first.MessagesHandled.Add(4)
	first.AlertsSent.Inc()
	first.CommandsProcessed.WithLabelValues("add").Add(2)
	first.PriceFetchErrors.WithLabelValues("AAPL").Inc()
	first.TrackedSymbols.Set(3)
	first.SaveToDB()

	second := NewBotMetrics(prometheus.NewRegistry())
	second.LoadFromDB()

	if got := GetMetricValue(second.MessagesHandled); got != 4 {
		t.Fatalf("messages_handled = %v, want 4", got)
	}
	if got := GetMetricValue(second.AlertsSent); got != 1 {
		t.Fatalf("alerts_sent = %v, want 1", got)
	}
	if got := GetMetricValue(second.CommandsProcessed.WithLabelValues("add")); got != 2 {
		t.Fatalf("commands_processed{add} = %v, want 2", got)
	}
	if got := GetMetricValue(second.PriceFetchErrors.WithLabelValues("AAPL")); got != 1 {
		t.Fatalf("price_fetch_errors{AAPL} = %v, want 1", got)
	}
	if got := GetMetricValue(second.TrackedSymbols); got != 0 {
		t.Fatalf("tracked_symbols gauge should not be restored, got %v", got)
	}
}

func TestNewBotMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBotMetrics(reg)
	m.CommandsProcessed.WithLabelValues("list").Inc()
	m.PriceFetchErrors.WithLabelValues("MSFT").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"sentinel_bot_messages_handled", "sentinel_bot_commands_processed", "sentinel_bot_price_fetch_errors"} {
		if !names[want] {
			t.Fatalf("metric %s not registered; have %v", want, names)
		}
	}
}
