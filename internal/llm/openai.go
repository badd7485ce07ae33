package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// OpenAIProvider implements Provider for the Chat Completions API.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// OpenAIOption configures the OpenAI provider.
type OpenAIOption func(*OpenAIProvider)

// WithOpenAIBaseURL sets a custom base URL (proxies, compatible servers).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) { p.baseURL = strings.TrimRight(url, "/") }
}

func WithOpenAIModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) { p.model = model }
}

func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) { p.client = client }
}

func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	p := &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: "https://api.openai.com/v1",
		model:   "gpt-4o-mini",
		client:  &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type openAIChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openAIChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Chat sends a chat completion request.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()

	body := openAIChatRequest{Model: p.model, Messages: messages}
	if opts != nil {
		if opts.Model != "" {
			body.Model = opts.Model
		}
		body.Temperature = opts.Temperature
		body.MaxTokens = opts.MaxTokens
		if opts.JSONMode {
			body.ResponseFormat = &responseFormat{Type: "json_object"}
		}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "openai: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrProviderDown, "%v", err)
	}
	defer resp.Body.Close()

	if err := checkError(resp); err != nil {
		return nil, err
	}

	var result openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "openai: decode response")
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyReply
	}

	r := &Response{
		Content: strings.TrimSpace(result.Choices[0].Message.Content),
		Model:   result.Model,
		Usage:   result.Usage,
		Latency: time.Since(start),
	}

	log.WithFields(log.Fields{
		"model":   r.Model,
		"tokens":  r.Usage.TotalTokens,
		"latency": r.Latency.Round(time.Millisecond),
	}).Debug("🤖 Chat completion finished")
	return r, nil
}

func checkError(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	msg := strings.TrimSpace(string(body))
	var apiErr openAIErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return errors.Wrap(ErrNoAPIKey, msg)
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.Wrap(ErrRateLimit, msg)
	case resp.StatusCode >= 500:
		return errors.Wrapf(ErrProviderDown, "HTTP %d: %s", resp.StatusCode, msg)
	}
	return errors.Errorf("openai: API error (%d): %s", resp.StatusCode, msg)
}
