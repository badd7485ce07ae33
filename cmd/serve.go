package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stock-sentinel-bot/config"
	"stock-sentinel-bot/internal/metrics"
	"stock-sentinel-bot/internal/server"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const metricsSaveInterval = 5 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot: scheduler, chat handling and HTTP endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Validate(); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp()
		if err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
		defer a.Close()

		a.metrics.LoadFromDB()
		defer a.metrics.SaveToDB()

		bot, err := a.newBot(a.dispatcher)
		if err != nil {
			return err
		}

		polling := config.GetString("telegram_webhook_url") == ""
		serverCfg := server.Config{Port: config.GetInt("http_port")}
		if !polling {
			serverCfg.WebhookPath = config.GetString("telegram_webhook_path")
			serverCfg.WebhookSecret = config.GetString("telegram_webhook_secret")
		}
		srv := server.New(serverCfg, a.registry)

		interval := time.Duration(config.GetInt("tracking_interval_minutes")) * time.Minute
		tracker := a.newTracker(bot, interval)

		var updates tgbotapi.UpdatesChannel
		if polling {
			if err := bot.DeleteWebhook(); err != nil {
				log.Warnf("⚠️ %v", err)
			}
			updates = bot.GetUpdatesChannel()
			log.Info("📡 Long polling for updates")
		} else {
			if err := bot.SetWebhook(config.GetString("telegram_webhook_url"), config.GetString("telegram_webhook_secret")); err != nil {
				return err
			}
			updates = srv.Updates()
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return srv.ListenAndServe(gctx) })
		g.Go(func() error { return tracker.Start(gctx) })
		if polling {
			g.Go(func() error {
				<-gctx.Done()
				bot.StopUpdates()
				return nil
			})
		}
		g.Go(func() error {
			bot.Run(gctx, updates)
			return nil
		})
		g.Go(func() error {
			saveMetricsPeriodically(gctx, a.metrics)
			return nil
		})

		err = g.Wait()
		log.Info("Shutting down...")
		return err
	},
}

func saveMetricsPeriodically(ctx context.Context, m *metrics.BotMetrics) {
	ticker := time.NewTicker(metricsSaveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SaveToDB()
		}
	}
}
