package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"stock-sentinel-bot/internal/commands"
	"stock-sentinel-bot/internal/llm"
	"stock-sentinel-bot/internal/prompts"
	"stock-sentinel-bot/internal/store"
)

type listProvider struct{}

func (listProvider) Chat(context.Context, []llm.Message, *llm.ChatOptions) (*llm.Response, error) {
	return &llm.Response{Content: `{"intent":"list"}`}, nil
}

func TestChatLoop(t *testing.T) {
	catalog, err := prompts.Default()
	if err != nil {
		t.Fatal(err)
	}
	watchlist := store.OpenWatchlist(filepath.Join(t.TempDir(), "watchlist.json"))
	dispatcher := commands.New(listProvider{}, catalog.Intent, watchlist, nil, nil, nil, commands.Config{})

	var out bytes.Buffer
	in := strings.NewReader("what am I tracking\n\nexit\nwhat am I tracking\n")
	if err := chatLoop(context.Background(), dispatcher, 42, in, &out); err != nil {
		t.Fatalf("chatLoop: %v", err)
	}

	if n := strings.Count(out.String(), "watch-list is empty"); n != 1 {
		t.Fatalf("got %d replies, want 1:\n%s", n, out.String())
	}
}
