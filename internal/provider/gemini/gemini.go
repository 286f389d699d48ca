// Package gemini provides an extraction backend for the Google Generative
// Language API (generateContent).
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/gonkalabs/langextract-go/internal/document"
	"github.com/gonkalabs/langextract-go/internal/provider"
)

const (
	Name         = "gemini"
	DefaultModel = "gemini-2.5-flash"
)

// Provider calls /v1beta/models/{model}:generateContent with the API key
// in the query string.
type Provider struct {
	url    string
	apiKey string
	model  string
	http   *http.Client
}

// New creates a Provider. baseURL is e.g.
// "https://generativelanguage.googleapis.com".
func New(baseURL, apiKey, model string) *Provider {
	if model == "" {
		model = DefaultModel
	}
	return &Provider{
		url:    strings.TrimRight(baseURL, "/") + "/v1beta/models/" + url.PathEscape(model) + ":generateContent",
		apiKey: apiKey,
		model:  model,
		http:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *Provider) Name() string { return Name }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	ResponseMIMEType string   `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// Extract runs the shared extraction loop against generateContent. JSON
// requests turn on the API's JSON response mode.
func (p *Provider) Extract(ctx context.Context, req *document.Request) (*document.AnnotatedDocument, error) {
	gc := &generationConfig{Temperature: req.Temperature}
	if req.Format() == document.FormatJSON {
		gc.ResponseMIMEType = "application/json"
	}
	return provider.ExtractWith(ctx, Name, req, func(ctx context.Context, pr provider.Prompt) (string, error) {
		body, err := json.Marshal(generateRequest{
			SystemInstruction: &content{Parts: []part{{Text: pr.System}}},
			Contents:          []content{{Role: "user", Parts: []part{{Text: pr.User}}}},
			GenerationConfig:  gc,
		})
		if err != nil {
			return "", errors.Wrap(err, "marshal")
		}
		return p.post(ctx, body)
	})
}

func (p *Provider) post(ctx context.Context, body []byte) (string, error) {
	u, err := url.Parse(p.url)
	if err != nil {
		return "", errors.Wrap(err, "url")
	}
	q := u.Query()
	q.Set("key", p.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	slog.Debug("gemini: request", "model", p.model, "bytes", len(body))
	resp, err := p.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", provider.ErrRateLimited
	}
	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &provider.StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(slurp))}
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", errors.Wrapf(provider.ErrBadResponse, "decode: %v", err)
	}
	if len(gr.Candidates) == 0 {
		return "", errors.Wrap(provider.ErrBadResponse, "no candidates")
	}
	var sb strings.Builder
	for _, pt := range gr.Candidates[0].Content.Parts {
		sb.WriteString(pt.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", errors.Wrapf(provider.ErrBadResponse, "empty answer (finish reason %q)", gr.Candidates[0].FinishReason)
	}
	return sb.String(), nil
}
