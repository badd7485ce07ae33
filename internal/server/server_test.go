package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stock-sentinel-bot/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

func newTestServer(t *testing.T, secret string) (*Server, *httptest.Server) {
	t.Helper()
	return newServerWithConfig(t, Config{WebhookPath: "/webhook/telegram", WebhookSecret: secret})
}

func newServerWithConfig(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewBotMetrics(reg)
	m.AlertsSent.Inc()

	s := New(cfg, reg)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestHealth(t *testing.T) {
	_, srv := newTestServer(t, "")
	code, body := get(t, srv.URL+"/health")
	if code != http.StatusOK || body != "OK" {
		t.Fatalf("health = %d %q", code, body)
	}
}

func TestMetrics(t *testing.T) {
	_, srv := newTestServer(t, "")
	code, body := get(t, srv.URL+"/metrics")
	if code != http.StatusOK || !strings.Contains(body, "sentinel_bot_alerts_sent 1") {
		t.Fatalf("metrics = %d\n%s", code, body)
	}
}

const updateJSON = `{"update_id":5,"message":{"message_id":3,"date":0,"chat":{"id":42,"type":"private"},"text":"track AAPL"}}`

func postUpdate(t *testing.T, url, secret, body string) int {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(secretHeader, secret)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestWebhookQueuesUpdate(t *testing.T) {
	s, srv := newTestServer(t, "s3cret")

	if code := postUpdate(t, srv.URL+"/webhook/telegram", "s3cret", updateJSON); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}

	select {
	case update := <-s.Updates():
		if update.UpdateID != 5 || update.Message == nil || update.Message.Text != "track AAPL" || update.Message.Chat.ID != 42 {
			t.Fatalf("update = %+v", update)
		}
	default:
		t.Fatal("no update queued")
	}
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	s, srv := newTestServer(t, "s3cret")

	for _, secret := range []string{"", "wrong"} {
		if code := postUpdate(t, srv.URL+"/webhook/telegram", secret, updateJSON); code != http.StatusNotFound {
			t.Fatalf("secret %q status = %d, want 404", secret, code)
		}
	}
	select {
	case update := <-s.Updates():
		t.Fatalf("unexpected update %+v", update)
	default:
	}
}

func TestWebhookRejectsBadRequests(t *testing.T) {
	_, srv := newTestServer(t, "")

	if code := postUpdate(t, srv.URL+"/webhook/telegram", "", "{not json"); code != http.StatusBadRequest {
		t.Fatalf("bad body status = %d", code)
	}
	if code, _ := get(t, srv.URL+"/webhook/telegram"); code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d", code)
	}
}

func TestWebhookUnroutedWhenPolling(t *testing.T) {
	s, srv := newServerWithConfig(t, Config{})

	if code := postUpdate(t, srv.URL+"/webhook/telegram", "", updateJSON); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	select {
	case update := <-s.Updates():
		t.Fatalf("unexpected update %+v", update)
	default:
	}
}

func TestWebhookFullQueueAsksForRetry(t *testing.T) {
	s, srv := newTestServer(t, "s3cret")

	for i := 0; i < cap(s.updates); i++ {
		if code := postUpdate(t, srv.URL+"/webhook/telegram", "s3cret", updateJSON); code != http.StatusOK {
			t.Fatalf("update %d status = %d", i, code)
		}
	}

	start := time.Now()
	if code := postUpdate(t, srv.URL+"/webhook/telegram", "s3cret", updateJSON); code != http.StatusServiceUnavailable {
		t.Fatalf("status with full queue = %d, want 503", code)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("full queue blocked for %v", elapsed)
	}
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	s, srv := newTestServer(t, "")

	body := `{"update_id":1,"message":{"text":"` + strings.Repeat("x", maxBodyBytes) + `"}}`
	if code := postUpdate(t, srv.URL+"/webhook/telegram", "", body); code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
	select {
	case update := <-s.Updates():
		t.Fatalf("unexpected update %+v", update)
	default:
	}
}
