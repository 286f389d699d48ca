// Package openai provides an extraction backend for OpenAI-compatible chat
// completion APIs (OpenAI itself, Ollama, vLLM and the like).
//
// The model is asked to return extraction strings verbatim rather than
// offsets, because models get offsets wrong. The shared provider code
// locates the strings in the source text.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/gonkalabs/langextract-go/internal/document"
	"github.com/gonkalabs/langextract-go/internal/provider"
)

const (
	Name         = "openai"
	DefaultModel = "gpt-4"
	// DefaultTemperature applies when the request does not set one.
	DefaultTemperature = 0.5
)

// Provider calls /v1/chat/completions.
type Provider struct {
	url    string
	apiKey string
	model  string
	http   *http.Client
}

// New creates a Provider. baseURL is the server root, e.g.
// "https://api.openai.com" or "http://ollama:11434".
func New(baseURL, apiKey, model string) *Provider {
	if model == "" {
		model = DefaultModel
	}
	return &Provider{
		url:    strings.TrimRight(baseURL, "/") + "/v1/chat/completions",
		apiKey: apiKey,
		model:  model,
		http: &http.Client{
			Timeout: 125 * time.Second,
		},
	}
}

func (p *Provider) Name() string { return Name }

// Extract runs the shared extraction loop against the chat API.
func (p *Provider) Extract(ctx context.Context, req *document.Request) (*document.AnnotatedDocument, error) {
	temp := DefaultTemperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	return provider.ExtractWith(ctx, Name, req, func(ctx context.Context, pr provider.Prompt) (string, error) {
		body, err := json.Marshal(NewChatRequest(p.model, pr, temp))
		if err != nil {
			return "", errors.Wrap(err, "marshal")
		}
		return p.post(ctx, body)
	})
}

func (p *Provider) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "request")
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	slog.Debug("openai: request", "url", p.url, "model", p.model, "bytes", len(body))
	resp, err := p.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read body")
	}
	return ParseChatResponse(resp.StatusCode, raw)
}

// ChatRequest is the chat completion request body.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	// Hint to disable chain-of-thought thinking (Qwen3 and some others support this).
	// ParseItems strips think blocks from models that ignore it.
	Think bool `json:"think"`
}

// Message is a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewChatRequest builds a two-message request from a prompt.
func NewChatRequest(model string, pr provider.Prompt, temperature float64) ChatRequest {
	return ChatRequest{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: pr.System},
			{Role: "user", Content: pr.User},
		},
		Temperature: temperature,
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content          string `json:"content"`
			Reasoning        string `json:"reasoning"`         // Qwen3 via Ollama
			ReasoningContent string `json:"reasoning_content"` // Qwen3 direct API
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// ParseChatResponse returns the answer text of a chat completion response,
// or an error for a non-200 status or an empty answer.
func ParseChatResponse(status int, body []byte) (string, error) {
	switch {
	case status == http.StatusTooManyRequests:
		return "", provider.ErrRateLimited
	case status != http.StatusOK:
		msg := string(body)
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return "", &provider.StatusError{Code: status, Body: strings.TrimSpace(msg)}
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", errors.Wrapf(provider.ErrBadResponse, "decode: %v", err)
	}
	if len(cr.Choices) == 0 {
		return "", errors.Wrap(provider.ErrBadResponse, "no choices")
	}

	choice := cr.Choices[0]
	if choice.FinishReason == "length" {
		slog.Warn("openai: response truncated by token limit")
	}

	// Reasoning models may put everything in the reasoning field when they
	// run out of tokens before answering.
	msg := choice.Message
	for _, s := range []string{msg.Content, msg.Reasoning, msg.ReasoningContent} {
		if s = strings.TrimSpace(s); s != "" {
			return s, nil
		}
	}
	return "", errors.Wrap(provider.ErrBadResponse, "empty answer")
}
