package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"GEMINI_API_KEY", "GEMINI_BASE_URL", "OPENAI_API_KEY", "OPENAI_BASE_URL",
	"DEFAULT_MODEL_PROVIDER", "NER_URL", "MOCK_LATENCY",
	"GONKA_WALLETS", "GONKA_PRIVATE_KEY", "GONKA_ADDRESS", "GONKA_SOURCE_URL", "GONKA_ENDPOINT",
	"APP_URL", "NEXT_PUBLIC_APP_URL", "VERCEL_URL", "APP_ENV", "NODE_ENV", "DEBUG",
	"MAX_CONCURRENT_REQUESTS", "REQUEST_TIMEOUT", "ANIMATION_INTERVAL_SECONDS", "CONTEXT_CHARS",
	"DATA_DIR", "SESSION_TTL", "SESSION_PRUNE_SCHEDULE", "PORT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.DefaultProvider)
	assert.Equal(t, "http://localhost:3000", cfg.AppURL)
	assert.Equal(t, "http://node2.gonka.ai:8000", cfg.SourceURL)
	assert.Equal(t, 10, cfg.MaxConcurrentRequests)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.AnimationInterval)
	assert.Equal(t, 150, cfg.ContextChars)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "@hourly", cfg.SessionPruneSchedule)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Empty(t, cfg.Wallets)
	assert.False(t, cfg.Verbose())

	ks := cfg.ValidateAPIKeys()
	assert.False(t, ks.HasAnyKey)
	assert.Empty(t, ks.RecommendedProvider)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("VERCEL_URL", "langextract.vercel.app")
	t.Setenv("GONKA_ENDPOINT", "http://node.example:8000/v1/")
	t.Setenv("GONKA_WALLETS", "0xaa:gonka1a, bb ,")
	t.Setenv("ANIMATION_INTERVAL_SECONDS", "0.25")
	t.Setenv("REQUEST_TIMEOUT", "500")
	t.Setenv("NODE_ENV", "development")
	t.Setenv("PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://langextract.vercel.app", cfg.AppURL)
	assert.Equal(t, "http://node.example:8000", cfg.SourceURL)
	assert.Equal(t, []WalletCfg{{PrivateKey: "0xaa", Address: "gonka1a"}, {PrivateKey: "bb"}}, cfg.Wallets)
	assert.Equal(t, 250*time.Millisecond, cfg.AnimationInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.RequestTimeout)
	assert.True(t, cfg.Verbose())
	assert.Equal(t, ":9000", cfg.ListenAddr)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"DEFAULT_MODEL_PROVIDER", "claude"},
		{"MAX_CONCURRENT_REQUESTS", "ten"},
		{"MAX_CONCURRENT_REQUESTS", "0"},
		{"REQUEST_TIMEOUT", "-1"},
		{"ANIMATION_INTERVAL_SECONDS", "0"},
		{"ANIMATION_INTERVAL_SECONDS", "fast"},
		{"CONTEXT_CHARS", "-3"},
		{"MOCK_LATENCY", "soon"},
		{"SESSION_TTL", "-1h"},
		{"GONKA_WALLETS", ":addr"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidateAPIKeys(t *testing.T) {
	tests := []struct {
		name string
		cfg  Cfg
		want string
	}{
		{name: "default usable", cfg: Cfg{DefaultProvider: ProviderOpenAI, GeminiAPIKey: "g", OpenAIAPIKey: "o"}, want: ProviderOpenAI},
		{name: "default missing falls back to gemini", cfg: Cfg{DefaultProvider: ProviderOpenAI, GeminiAPIKey: "g"}, want: ProviderGemini},
		{name: "openai only", cfg: Cfg{DefaultProvider: ProviderGemini, OpenAIAPIKey: "o"}, want: ProviderOpenAI},
		{name: "gonka wallets", cfg: Cfg{DefaultProvider: ProviderGemini, Wallets: []WalletCfg{{PrivateKey: "k"}}}, want: ProviderGonka},
		{name: "mock default", cfg: Cfg{DefaultProvider: ProviderMock}, want: ProviderMock},
		{name: "nothing", cfg: Cfg{DefaultProvider: ProviderGemini}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ks := tt.cfg.ValidateAPIKeys()
			assert.Equal(t, tt.want, ks.RecommendedProvider)
			assert.Equal(t, tt.want != "", ks.HasAnyKey)
		})
	}
}

func TestEnvironmentInfoHasNoSecrets(t *testing.T) {
	cfg := Cfg{
		DefaultProvider: ProviderGemini,
		GeminiAPIKey:    "super-secret",
		AppEnv:          "production",
		RequestTimeout:  30 * time.Second,
	}
	info := cfg.EnvironmentInfo()
	assert.Equal(t, "production", info.Environment)
	assert.True(t, info.AvailableProviders[ProviderGemini])
	assert.False(t, info.AvailableProviders[ProviderOpenAI])
	assert.Equal(t, int64(30000), info.RequestTimeout)
	assert.NotContains(t, info.AppURL, "super-secret")
	assert.Equal(t, "super-secret", cfg.APIKey(ProviderGemini))
	assert.Equal(t, "GEMINI_API_KEY", KeyEnv(ProviderGemini))
	assert.Equal(t, "GONKA_PRIVATE_KEY", KeyEnv(ProviderGonka))
}
