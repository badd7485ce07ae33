// Package server exposes the health, metrics and Telegram webhook endpoints.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	secretHeader = "X-Telegram-Bot-Api-Secret-Token"
	maxBodyBytes = 1 << 20
)

type Config struct {
	Port int
	// WebhookPath is left unrouted when empty, which is the long polling setup.
	WebhookPath   string
	WebhookSecret string
}

type Server struct {
	cfg     Config
	router  chi.Router
	updates chan tgbotapi.Update
}

// New builds the HTTP handlers. Metrics are served from gatherer.
func New(cfg Config, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		cfg:     cfg,
		router:  chi.NewRouter(),
		updates: make(chan tgbotapi.Update, 100),
	}

	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", healthCheckHandler)
	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	if cfg.WebhookPath != "" {
		if cfg.WebhookSecret == "" {
			log.Warn("⚠️ Webhook has no secret token, any caller can post updates")
		}
		s.router.Post(cfg.WebhookPath, s.webhookHandler)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Updates delivers the updates received on the webhook.
func (s *Server) Updates() tgbotapi.UpdatesChannel {
	return s.updates
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("🌐 Launching metrics, health and webhook endpoint on :%d", s.cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server stopped")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "http server shutdown")
		}
		return nil
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if s.cfg.WebhookSecret != "" &&
		subtle.ConstantTimeCompare([]byte(r.Header.Get(secretHeader)), []byte(s.cfg.WebhookSecret)) != 1 {
		log.WithField("remote", r.RemoteAddr).Warn("⛔ Webhook call with bad secret token")
		http.NotFound(w, r)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&update); err != nil {
		log.Warnf("⚠️ Could not decode webhook update: %v", err)
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}

	// A full queue answers 503 so Telegram redelivers the update later.
	select {
	case s.updates <- update:
		w.WriteHeader(http.StatusOK)
	default:
		log.WithField("update_id", update.UpdateID).Warn("⚠️ Webhook queue is full, asking Telegram to retry")
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	}
}
