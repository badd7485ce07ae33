// Package llm talks to an OpenAI-compatible chat completions API.
package llm

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Common errors returned by providers.
var (
	ErrNoAPIKey     = errors.New("llm: API key not configured")
	ErrRateLimit    = errors.New("llm: rate limit exceeded")
	ErrProviderDown = errors.New("llm: provider unavailable")
	ErrEmptyReply   = errors.New("llm: empty reply")
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }
func UserMessage(content string) Message   { return Message{Role: RoleUser, Content: content} }

// ChatOptions overrides provider defaults for one request.
type ChatOptions struct {
	Model       string
	Temperature *float64
	MaxTokens   int
	// JSONMode asks the model for a JSON object reply.
	JSONMode bool
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a completed chat reply.
type Response struct {
	Content string        `json:"content"`
	Model   string        `json:"model"`
	Usage   Usage         `json:"usage"`
	Latency time.Duration `json:"latency"`
}

// Provider sends a conversation and returns the model's reply.
type Provider interface {
	Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error)
}

// Temperature returns a pointer for ChatOptions.Temperature.
func Temperature(t float64) *float64 { return &t }
