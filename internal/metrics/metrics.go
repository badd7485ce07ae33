// Package metrics exposes the bot's Prometheus counters and persists them in sqlite
// so totals survive restarts.
package metrics

import (
	"sync"

	"stock-sentinel-bot/internal/database"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
)

const (
	namespace = "sentinel"
	subsystem = "bot"
)

type BotMetrics struct {
	MessagesHandled   prometheus.Counter
	CommandsProcessed *prometheus.CounterVec
	AlertsSent        prometheus.Counter
	TrackingCycles    prometheus.Counter
	PriceFetchErrors  *prometheus.CounterVec
	TrackedSymbols    prometheus.Gauge
	Mutex             sync.Mutex
}

func NewBotMetrics(reg prometheus.Registerer) *BotMetrics {
	metrics := &BotMetrics{
		MessagesHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_handled",
			Help:      "The total number of handled chat messages",
		}),
		CommandsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commands_processed",
			Help:      "The total number of processed commands by intent",
		}, []string{"intent"}),
		AlertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "alerts_sent",
			Help:      "The total number of price move alerts sent",
		}),
		TrackingCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tracking_cycles",
			Help:      "The total number of completed tracking cycles",
		}),
		PriceFetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "price_fetch_errors",
			Help:      "The total number of failed price fetches per symbol",
		}, []string{"symbol"}),
		TrackedSymbols: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tracked_symbols",
			Help:      "The current number of symbols on the watch-list",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			metrics.MessagesHandled,
			metrics.CommandsProcessed,
			metrics.AlertsSent,
			metrics.TrackingCycles,
			metrics.PriceFetchErrors,
			metrics.TrackedSymbols,
		)
	}

	return metrics
}

// LoadFromDB adds the persisted totals to the in-memory counters.
func (m *BotMetrics) LoadFromDB() {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()

	messagesHandled, _ := database.GetMetric("messages_handled")
	alertsSent, _ := database.GetMetric("alerts_sent")
	trackingCycles, _ := database.GetMetric("tracking_cycles")

	m.MessagesHandled.Add(messagesHandled)
	m.AlertsSent.Add(alertsSent)
	m.TrackingCycles.Add(trackingCycles)

	loadLabeledMetrics("commands_processed", func(labelKey, labelValue string, value float64) {
		if labelKey == "intent" {
			m.CommandsProcessed.WithLabelValues(labelValue).Add(value)
		}
	})
	loadLabeledMetrics("price_fetch_errors", func(labelKey, labelValue string, value float64) {
		if labelKey == "symbol" {
			m.PriceFetchErrors.WithLabelValues(labelValue).Add(value)
		}
	})

	log.Info("📊 Metrics loaded from database.")
}

func loadLabeledMetrics(metricName string, callback func(labelKey, labelValue string, value float64)) {
	metricsWithLabels, err := database.GetMetricsWithLabels(metricName)
	if err != nil {
		log.Errorf("❌ Failed to load %s: %v", metricName, err)
		return
	}
	for labelKey, labelValues := range metricsWithLabels {
		for labelValue, value := range labelValues {
			callback(labelKey, labelValue, value)
		}
	}
}

// SaveToDB writes the current totals to the metrics table.
func (m *BotMetrics) SaveToDB() {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()

	for name, collector := range map[string]prometheus.Collector{
		"messages_handled": m.MessagesHandled,
		"alerts_sent":      m.AlertsSent,
		"tracking_cycles":  m.TrackingCycles,
	} {
		if err := database.SaveMetric(name, GetMetricValue(collector)); err != nil {
			log.Errorf("❌ Failed to save metric %s: %v", name, err)
		}
	}

	saveLabeledMetric("commands_processed", m.CommandsProcessed)
	saveLabeledMetric("price_fetch_errors", m.PriceFetchErrors)

	log.Debug("📊 Metrics saved to database.")
}

func saveLabeledMetric(metricName string, vec *prometheus.CounterVec) {
	metricChan := make(chan prometheus.Metric, 1)
	go func() {
		vec.Collect(metricChan)
		close(metricChan)
	}()

	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Errorf("❌ Failed to read %s metric: %v", metricName, err)
			continue
		}
		for _, label := range metricProto.Label {
			if err := database.SaveMetricWithLabels(metricName, label.GetName(), label.GetValue(), metricProto.Counter.GetValue()); err != nil {
				log.Errorf("❌ Failed to save metric %s: %v", metricName, err)
			}
		}
	}
}

// GetMetricValue reads the current value of a single counter or gauge.
func GetMetricValue(metric prometheus.Collector) float64 {
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	m, ok := <-metricChan
	if !ok {
		return 0
	}

	metricProto := &dto.Metric{}
	if err := m.Write(metricProto); err != nil {
		log.Errorf("❌ Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		return metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		return metricProto.Gauge.GetValue()
	}
	return 0
}
