// Package gonka is an extraction backend that runs OpenAI-style chat
// completions on the Gonka decentralized inference network. Requests are
// signed with secp256k1 wallet keys.
package gonka

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/gonkalabs/langextract-go/internal/document"
	"github.com/gonkalabs/langextract-go/internal/provider"
	"github.com/gonkalabs/langextract-go/internal/provider/openai"
)

// Name is the provider name of the Gonka network backend.
const Name = "gonka"

// Provider extracts through a shared Client.
type Provider struct {
	client *Client
	model  string

	mu           sync.Mutex
	defaultModel string
}

// New returns a Provider. An empty model means the first model the
// network lists.
func New(client *Client, model string) *Provider {
	return &Provider{client: client, model: model}
}

func (p *Provider) Name() string { return Name }

// Extract runs the shared extraction loop through the network.
func (p *Provider) Extract(ctx context.Context, req *document.Request) (*document.AnnotatedDocument, error) {
	if err := p.client.Ready(ctx); err != nil {
		return nil, provider.Wrap(Name, "discover", err)
	}
	model, err := p.resolveModel(ctx)
	if err != nil {
		return nil, provider.Wrap(Name, "models", err)
	}

	temp := openai.DefaultTemperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	return provider.ExtractWith(ctx, Name, req, func(ctx context.Context, pr provider.Prompt) (string, error) {
		body, err := json.Marshal(openai.NewChatRequest(model, pr, temp))
		if err != nil {
			return "", errors.Wrap(err, "marshal")
		}
		resp, status, err := p.client.Do(ctx, http.MethodPost, "/chat/completions", body)
		if err != nil {
			return "", err
		}
		return openai.ParseChatResponse(status, resp)
	})
}

func (p *Provider) resolveModel(ctx context.Context) (string, error) {
	if p.model != "" {
		return p.model, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.defaultModel != "" {
		return p.defaultModel, nil
	}
	ids, err := p.client.ModelIDs(ctx)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", errors.New("network lists no models")
	}
	p.defaultModel = ids[0]
	return p.defaultModel, nil
}
