package registry

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonkalabs/langextract-go/internal/config"
	"github.com/gonkalabs/langextract-go/internal/document"
	"github.com/gonkalabs/langextract-go/internal/provider"
)

const testKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestFactoriesCoverEveryProvider(t *testing.T) {
	for _, name := range []string{config.ProviderGemini, config.ProviderOpenAI, config.ProviderGonka, config.ProviderNER, config.ProviderMock} {
		assert.Contains(t, Factories, name)
	}
}

func TestProvider(t *testing.T) {
	r := New(&config.Cfg{
		DefaultProvider: config.ProviderGemini,
		OpenAIAPIKey:    "sk-server",
		Wallets:         []config.WalletCfg{{PrivateKey: testKey, Address: "gonka1me"}},
		SourceURL:       "http://node.invalid:8000",
	})

	p, err := r.Provider(config.ProviderOpenAI, "", "")
	require.NoError(t, err)
	assert.Equal(t, config.ProviderOpenAI, p.Name())

	p, err = r.Provider(config.ProviderGemini, "user-key", "")
	require.NoError(t, err)
	assert.Equal(t, config.ProviderGemini, p.Name())

	_, err = r.Provider(config.ProviderGemini, "", "")
	require.True(t, errors.Is(err, provider.ErrNoCredentials))
	assert.ErrorContains(t, err, "GEMINI_API_KEY")

	_, err = r.Provider(config.ProviderNER, "", "")
	require.True(t, errors.Is(err, provider.ErrNoCredentials))
	assert.ErrorContains(t, err, "NER_URL")

	g1, err := r.Provider(config.ProviderGonka, "", "")
	require.NoError(t, err)
	g2, err := r.Provider(config.ProviderGonka, "", "m")
	require.NoError(t, err)
	assert.NotSame(t, g1, g2)
	c1, _ := r.gonkaClient()
	c2, _ := r.gonkaClient()
	assert.Same(t, c1, c2, "gonka client is shared")

	p, err = r.Provider(config.ProviderMock, "", "")
	require.NoError(t, err)
	assert.Equal(t, config.ProviderMock, p.Name())

	_, err = r.Provider("claude", "k", "")
	assert.True(t, errors.Is(err, provider.ErrUnknownProvider))
}

func TestGonkaBadWallet(t *testing.T) {
	r := New(&config.Cfg{Wallets: []config.WalletCfg{{PrivateKey: "nothex"}}})
	_, err := r.Provider(config.ProviderGonka, "", "")
	assert.ErrorContains(t, err, "wallet 1")
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Cfg
		req     document.Request
		want    string
		wantErr error
	}{
		{
			name: "user key with gpt model",
			req:  document.Request{APIKey: "k", ModelID: "gpt-4o"},
			want: config.ProviderOpenAI,
		},
		{
			name: "user key with other model",
			req:  document.Request{APIKey: " k ", ModelID: "gemini-2.5-flash"},
			want: config.ProviderGemini,
		},
		{
			name: "mock model without keys",
			req:  document.Request{ModelID: "mock-model"},
			want: config.ProviderMock,
		},
		{
			name: "recommended configured provider",
			cfg:  config.Cfg{DefaultProvider: config.ProviderGemini, OpenAIAPIKey: "sk"},
			req:  document.Request{ModelID: "gemini-2.5-flash"},
			want: config.ProviderOpenAI,
		},
		{
			name: "default mock",
			cfg:  config.Cfg{DefaultProvider: config.ProviderMock},
			want: config.ProviderMock,
		},
		{
			name:    "blank user key and nothing configured",
			req:     document.Request{APIKey: "   "},
			wantErr: provider.ErrNoCredentials,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			p, err := New(&cfg).Resolve(&tt.req)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}

func TestModelFor(t *testing.T) {
	assert.Equal(t, "", modelFor(config.ProviderOpenAI, "gemini-2.5-flash"))
	assert.Equal(t, "gpt-4o", modelFor(config.ProviderOpenAI, "gpt-4o"))
	assert.Equal(t, "", modelFor(config.ProviderGonka, "GPT-4"))
	assert.Equal(t, "Qwen/Qwen3-32B", modelFor(config.ProviderGonka, "Qwen/Qwen3-32B"))
}

func TestAvailable(t *testing.T) {
	r := New(&config.Cfg{DefaultProvider: config.ProviderMock, GeminiAPIKey: "g", NERURL: "http://ner"})
	assert.Equal(t, []string{config.ProviderGemini, config.ProviderNER, config.ProviderMock}, r.Available())
	assert.Empty(t, New(&config.Cfg{}).Available())
}
