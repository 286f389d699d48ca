// Package ner is an extraction backend that calls a named-entity sidecar
// over HTTP. The sidecar returns labelled spans with offsets, so no prompt
// or alignment is involved: each span becomes an exact-match extraction
// whose class is the span label.
package ner

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

// Name is the provider name of the NER sidecar backend.
const Name = "ner"

// Provider calls the sidecar's /classify endpoint.
type Provider struct {
	url  string
	http *http.Client
	now  func() time.Time
}

// New creates a Provider pointing at the given base URL
// (e.g. "http://langextract-ner:8001").
func New(baseURL string) *Provider {
	return &Provider{
		url: strings.TrimRight(baseURL, "/") + "/classify",
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

func (p *Provider) Name() string { return Name }

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Spans []span `json:"spans"`
}

// span offsets are code points into the submitted text.
type span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Extract classifies the whole text in one call. Passes and chunking do not
// apply to a deterministic tagger.
func (p *Provider) Extract(ctx context.Context, req *document.Request) (*document.AnnotatedDocument, error) {
	spans, err := p.classify(ctx, req.Text)
	if err != nil {
		return nil, provider.Wrap(Name, "classify", err)
	}
	n := len([]rune(req.Text))
	exts := make([]document.Extraction, 0, len(spans))
	for _, s := range spans {
		if s.Label == "" || s.Start < 0 || s.End > n || s.Start >= s.End {
			slog.Debug("ner: dropping span", "label", s.Label, "start", s.Start, "end", s.End)
			continue
		}
		text := s.Text
		if text == "" {
			text = string([]rune(req.Text)[s.Start:s.End])
		}
		idx := len(exts)
		status := document.MatchExact
		exts = append(exts, document.Extraction{
			ExtractionClass: s.Label,
			ExtractionText:  text,
			CharInterval:    document.Interval(s.Start, s.End),
			AlignmentStatus: &status,
			ExtractionIndex: &idx,
		})
	}
	return &document.AnnotatedDocument{
		DocumentID:  provider.DocumentID(Name, p.now()),
		Text:        req.Text,
		Extractions: exts,
	}, nil
}

func (p *Provider) classify(ctx context.Context, text string) ([]span, error) {
	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return nil, errors.Wrap(err, "marshal")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &provider.StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var result classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(provider.ErrBadResponse, err.Error())
	}
	return result.Spans, nil
}
