package main

import (
	"path/filepath"
	"time"

	"stock-sentinel-bot/config"
	"stock-sentinel-bot/internal/alert"
	"stock-sentinel-bot/internal/commands"
	"stock-sentinel-bot/internal/database"
	"stock-sentinel-bot/internal/llm"
	"stock-sentinel-bot/internal/metrics"
	"stock-sentinel-bot/internal/news"
	"stock-sentinel-bot/internal/price"
	"stock-sentinel-bot/internal/prompts"
	"stock-sentinel-bot/internal/research"
	"stock-sentinel-bot/internal/store"
	"stock-sentinel-bot/internal/telegram"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

// app holds everything the commands share.
type app struct {
	registry   *prometheus.Registry
	metrics    *metrics.BotMetrics
	watchlist  *store.Watchlist
	alerts     *store.AlertHistory
	router     *price.Router
	quotes     price.Quoter
	researcher *research.Researcher
	dispatcher *commands.Dispatcher
	location   *time.Location
}

func newApp() (*app, error) {
	dataDir := config.GetString("data_dir")
	if err := database.InitDB(filepath.Join(dataDir, "sentinel.db")); err != nil {
		return nil, errors.Wrap(err, "failed to initialize database")
	}

	loc, err := time.LoadLocation(config.GetString("market_timezone"))
	if err != nil {
		database.CloseDB()
		return nil, errors.Wrapf(err, "invalid market_timezone %q", config.GetString("market_timezone"))
	}

	catalog, err := prompts.Default()
	if err != nil {
		database.CloseDB()
		return nil, err
	}

	provider, err := llm.NewOpenAIProvider(config.GetString("openai_api_key"),
		llm.WithOpenAIBaseURL(config.GetString("openai_base_url")),
		llm.WithOpenAIModel(config.GetString("openai_model")),
	)
	if err != nil {
		database.CloseDB()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewBotMetrics(registry)

	router := newRouter()
	quotes := price.NewCache(router, config.GetDuration("quote_cache_ttl"))
	watchlist := store.OpenWatchlist(filepath.Join(dataDir, "watchlist.json"))

	researcher := research.New(provider, news.NewFeed(news.DefaultFeedURL, nil), catalog.Research, research.Config{
		Model:     config.GetString("openai_research_model"),
		MaxChars:  config.GetInt("research_max_chars"),
		Headlines: config.GetInt("news_headlines"),
	})

	dispatcher := commands.New(provider, catalog.Intent, watchlist, quotes, commands.DBHistory{}, m, commands.Config{
		Model:           config.GetString("openai_model"),
		MaxTracked:      config.GetInt("max_tracked_symbols"),
		ValidateSymbols: config.GetBool("validate_symbols"),
		HistoryMessages: config.GetInt("history_context_messages"),
	})

	return &app{
		registry:   registry,
		metrics:    m,
		watchlist:  watchlist,
		alerts:     store.OpenAlertHistory(filepath.Join(dataDir, "alert_history.json")),
		router:     router,
		quotes:     quotes,
		researcher: researcher,
		dispatcher: dispatcher,
		location:   loc,
	}, nil
}

func newRouter() *price.Router {
	router := &price.Router{}
	switch provider := config.GetString("market_data_provider"); provider {
	case "alpaca":
		router.Equity = price.NewAlpaca(config.GetString("alpaca_api_key"), config.GetString("alpaca_api_secret"))
	case "yahoo", "":
		router.Equity = price.NewYahoo()
	default:
		log.Warnf("⚠️ Unknown market_data_provider %q, using yahoo", provider)
		router.Equity = price.NewYahoo()
	}
	if config.GetBool("crypto_enabled") {
		router.Crypto = price.NewPaprika(config.GetString("api_pro_key"))
	}
	return router
}

func (a *app) newBot(handler telegram.Handler) (*telegram.Bot, error) {
	return telegram.NewBot(telegram.BotConfig{
		Token:          config.GetString("telegram_bot_token"),
		Debug:          config.GetBool("debug"),
		UpdatesTimeout: 60,
		ChatID:         config.GetInt64("telegram_chat_id"),
	}, handler, commands.DBHistory{}, a.metrics)
}

func (a *app) newTracker(notifier alert.Notifier, interval time.Duration) *alert.Tracker {
	return alert.NewTracker(a.watchlist, a.alerts, a.router, a.router, a.researcher, notifier, a.metrics, alert.Config{
		Interval: interval,
		Location: a.location,
		Charts:   config.GetBool("chart_enabled"),
	})
}

func (a *app) Close() {
	if err := database.CloseDB(); err != nil {
		log.Errorf("❌ Failed to close database: %v", err)
	}
}
