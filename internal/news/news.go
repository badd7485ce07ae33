// Package news fetches recent headlines for a ticker from RSS feeds.
package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stock-sentinel-bot/internal/types"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultFeedURL is the Yahoo Finance per-symbol headline feed. %s is the
// query-escaped symbol.
const DefaultFeedURL = "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US"

// Source returns headlines for a symbol.
type Source interface {
	Headlines(ctx context.Context, symbol string, limit int) ([]types.Headline, error)
}

// Feed reads headlines from a per-symbol RSS feed.
type Feed struct {
	urlFormat string
	parser    *gofeed.Parser
}

func NewFeed(urlFormat string, client *http.Client) *Feed {
	if urlFormat == "" {
		urlFormat = DefaultFeedURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = "Mozilla/5.0 (compatible; stock-sentinel-bot)"
	return &Feed{urlFormat: urlFormat, parser: parser}
}

func (f *Feed) Headlines(ctx context.Context, symbol string, limit int) ([]types.Headline, error) {
	feedURL := fmt.Sprintf(f.urlFormat, url.QueryEscape(strings.ToUpper(symbol)))

	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch headlines for %s", symbol)
	}

	headlines := FromItems(feed.Items, limit)
	log.WithFields(log.Fields{"symbol": symbol, "headlines": len(headlines)}).Debug("📰 Headlines fetched")
	return headlines, nil
}

// FromItems converts feed items, skipping untitled ones, up to limit.
func FromItems(items []*gofeed.Item, limit int) []types.Headline {
	headlines := make([]types.Headline, 0, len(items))
	for _, item := range items {
		if limit > 0 && len(headlines) >= limit {
			break
		}
		title := strings.TrimSpace(cleanHTML(item.Title))
		if title == "" {
			continue
		}

		h := types.Headline{
			Title:   title,
			Summary: cleanHTML(item.Description),
			Link:    item.Link,
		}
		if item.PublishedParsed != nil {
			h.PublishedAt = *item.PublishedParsed
		}
		headlines = append(headlines, h)
	}
	return headlines
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
