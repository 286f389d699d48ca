// Package registry maps provider names to the backends that implement
// them and chooses one for an extraction request.
package registry

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/gonkalabs/langextract-go/internal/config"
	"github.com/gonkalabs/langextract-go/internal/document"
	"github.com/gonkalabs/langextract-go/internal/provider"
	"github.com/gonkalabs/langextract-go/internal/provider/gemini"
	"github.com/gonkalabs/langextract-go/internal/provider/gonka"
	"github.com/gonkalabs/langextract-go/internal/provider/mock"
	"github.com/gonkalabs/langextract-go/internal/provider/ner"
	"github.com/gonkalabs/langextract-go/internal/provider/openai"
)

// Factory builds a provider. apiKey is the resolved credential (user
// supplied or configured); modelID may be empty.
type Factory func(r *Registry, apiKey, modelID string) (provider.Provider, error)

// Factories is the explicit name → backend table.
var Factories = map[string]Factory{
	config.ProviderMock: func(r *Registry, _, _ string) (provider.Provider, error) {
		return mock.New(r.cfg.MockLatency), nil
	},
	config.ProviderOpenAI: func(r *Registry, apiKey, modelID string) (provider.Provider, error) {
		return openai.New(r.cfg.OpenAIBaseURL, apiKey, modelID), nil
	},
	config.ProviderGemini: func(r *Registry, apiKey, modelID string) (provider.Provider, error) {
		return gemini.New(r.cfg.GeminiBaseURL, apiKey, modelID), nil
	},
	config.ProviderGonka: func(r *Registry, _, modelID string) (provider.Provider, error) {
		client, err := r.gonkaClient()
		if err != nil {
			return nil, err
		}
		return gonka.New(client, modelID), nil
	},
	config.ProviderNER: func(r *Registry, _, _ string) (provider.Provider, error) {
		return ner.New(r.cfg.NERURL), nil
	},
}

// Registry builds providers from one configuration. The Gonka client is
// shared so endpoint discovery happens once per process.
type Registry struct {
	cfg *config.Cfg

	gonkaOnce sync.Once
	gonka     *gonka.Client
	gonkaErr  error
}

// New creates a registry over cfg. Backends are built on demand.
func New(cfg *config.Cfg) *Registry {
	return &Registry{cfg: cfg}
}

// Provider returns the named backend. The credential is apiKey when set,
// else the configured one; a backend without either fails with an error
// wrapping provider.ErrNoCredentials that names the variable to set.
func (r *Registry) Provider(name, apiKey, modelID string) (provider.Provider, error) {
	f, ok := Factories[name]
	if !ok {
		return nil, errors.Wrapf(provider.ErrUnknownProvider, "%q", name)
	}
	switch name {
	case config.ProviderMock:
	case config.ProviderGemini, config.ProviderOpenAI:
		if apiKey == "" {
			apiKey = r.cfg.APIKey(name)
		}
		if apiKey == "" {
			return nil, errors.Wrapf(provider.ErrNoCredentials, "%s: set %s or pass api_key", name, config.KeyEnv(name))
		}
	default:
		if !r.cfg.Usable(name) {
			return nil, errors.Wrapf(provider.ErrNoCredentials, "%s: set %s", name, config.KeyEnv(name))
		}
	}
	return f(r, apiKey, modelID)
}

// Resolve picks the backend for req. With a user key, model ids starting
// with "gpt" go to openai and anything else to gemini. Without one the
// recommended configured provider is used. A "mock" model id always
// selects the mock backend.
func (r *Registry) Resolve(req *document.Request) (provider.Provider, error) {
	model := strings.ToLower(req.ModelID)
	userKey := strings.TrimSpace(req.APIKey)

	switch {
	case strings.HasPrefix(model, config.ProviderMock):
		return r.Provider(config.ProviderMock, "", req.ModelID)
	case userKey != "" && strings.HasPrefix(model, "gpt"):
		return r.Provider(config.ProviderOpenAI, userKey, req.ModelID)
	case userKey != "":
		return r.Provider(config.ProviderGemini, userKey, req.ModelID)
	}

	ks := r.cfg.ValidateAPIKeys()
	if !ks.HasAnyKey || ks.RecommendedProvider == "" {
		return nil, errors.Wrap(provider.ErrNoCredentials,
			"provide api_key in the request or configure a provider on the server")
	}
	return r.Provider(ks.RecommendedProvider, "", modelFor(ks.RecommendedProvider, req.ModelID))
}

// modelFor drops a model id that belongs to another vendor's family, so a
// form defaulting to a Gemini model still runs on a server configured for
// OpenAI.
func modelFor(name, modelID string) string {
	m := strings.ToLower(modelID)
	switch {
	case strings.HasPrefix(m, "gemini"):
		if name != config.ProviderGemini {
			return ""
		}
	case strings.HasPrefix(m, "gpt"):
		if name != config.ProviderOpenAI {
			return ""
		}
	}
	return modelID
}

// Available lists the providers usable with server configuration alone,
// in recommendation order.
func (r *Registry) Available() []string {
	var out []string
	for _, name := range []string{config.ProviderGemini, config.ProviderOpenAI, config.ProviderGonka, config.ProviderNER, config.ProviderMock} {
		if r.cfg.Usable(name) {
			out = append(out, name)
		}
	}
	return out
}

func (r *Registry) gonkaClient() (*gonka.Client, error) {
	r.gonkaOnce.Do(func() {
		pool, err := gonka.PoolFromConfig(r.cfg.Wallets)
		if err != nil {
			r.gonkaErr = err
			return
		}
		r.gonka = gonka.NewClient(r.cfg.SourceURL, pool)
	})
	return r.gonka, r.gonkaErr
}
