package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Yahoo! Finance: AAPL News</title>
<item>
  <title>Apple shares climb after &lt;b&gt;strong&lt;/b&gt; iPhone demand</title>
  <link>https://example.com/a</link>
  <description>&lt;p&gt;Analysts   raised targets.&lt;/p&gt;</description>
  <pubDate>Mon, 02 Mar 2026 14:00:00 +0000</pubDate>
</item>
<item>
  <title>   </title>
  <link>https://example.com/empty</link>
</item>
<item>
  <title>Supplier update</title>
  <link>https://example.com/b</link>
</item>
<item>
  <title>Third story</title>
</item>
</channel></rss>`

func TestFeedHeadlines(t *testing.T) {
	var gotSymbol string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSymbol = r.URL.Query().Get("s")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	f := NewFeed(srv.URL+"/rss?s=%s", srv.Client())
	headlines, err := f.Headlines(context.Background(), "aapl", 2)
	if err != nil {
		t.Fatalf("Headlines: %v", err)
	}

	if gotSymbol != "AAPL" {
		t.Fatalf("requested symbol %q", gotSymbol)
	}
	if len(headlines) != 2 {
		t.Fatalf("got %d headlines, want 2", len(headlines))
	}
	if headlines[0].Title != "Apple shares climb after strong iPhone demand" {
		t.Fatalf("title = %q", headlines[0].Title)
	}
	if headlines[0].Summary != "Analysts raised targets." {
		t.Fatalf("summary = %q", headlines[0].Summary)
	}
	if headlines[0].PublishedAt.IsZero() {
		t.Fatal("published date not parsed")
	}
	if headlines[1].Title != "Supplier update" {
		t.Fatalf("empty title not skipped: %+v", headlines[1])
	}
}

func TestFeedHeadlinesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFeed(srv.URL+"/rss?s=%s", srv.Client())
	if _, err := f.Headlines(context.Background(), "AAPL", 5); err == nil {
		t.Fatal("expected error")
	}
}
