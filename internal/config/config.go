package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

// Provider names accepted by DEFAULT_MODEL_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderGonka  = "gonka"
	ProviderNER    = "ner"
	ProviderMock   = "mock"
)

// WalletCfg holds the credentials for a single Gonka wallet.
type WalletCfg struct {
	PrivateKey string // hex secp256k1 private key (with or without 0x)
	Address    string // bech32 requester address
}

// Cfg holds all runtime configuration loaded from environment variables.
// It is built once at startup and never mutated.
type Cfg struct {
	// Model providers
	GeminiAPIKey    string
	GeminiBaseURL   string // GEMINI_BASE_URL=https://generativelanguage.googleapis.com
	OpenAIAPIKey    string
	OpenAIBaseURL   string // OPENAI_BASE_URL=https://api.openai.com (or an Ollama server)
	DefaultProvider string // DEFAULT_MODEL_PROVIDER, gemini unless set
	NERURL          string // NER_URL=http://ner:8001, empty disables the ner provider
	MockLatency     time.Duration

	// Gonka network. Wallets come from GONKA_WALLETS (multi) or
	// GONKA_PRIVATE_KEY (single); the provider is off when neither is set.
	Wallets   []WalletCfg
	SourceURL string // e.g. http://node2.gonka.ai:8000

	// Application
	AppURL string
	AppEnv string // APP_ENV (NODE_ENV accepted)
	Debug  bool

	// Requests
	MaxConcurrentRequests int
	RequestTimeout        time.Duration // REQUEST_TIMEOUT in milliseconds

	// Visualization
	AnimationInterval time.Duration // ANIMATION_INTERVAL_SECONDS=1.5
	ContextChars      int           // CONTEXT_CHARS=150

	// Sessions
	DataDir              string // empty keeps sessions in memory
	SessionTTL           time.Duration
	SessionPruneSchedule string

	// Server
	ListenAddr string // e.g. :8080
}

// Load reads .env (if present) then environment variables and returns Cfg.
func Load() (*Cfg, error) {
	// Best-effort: load .env from current directory
	_ = godotenv.Load()

	wallets, err := loadWallets()
	if err != nil {
		return nil, err
	}

	// Source URL: prefer GONKA_SOURCE_URL, fall back to GONKA_ENDPOINT
	// (strip /v1 suffix so we have a bare node URL)
	sourceURL := env("GONKA_SOURCE_URL", env("GONKA_ENDPOINT", "http://node2.gonka.ai:8000"))
	sourceURL = strings.TrimSuffix(strings.TrimRight(sourceURL, "/"), "/v1")

	defaultProvider := strings.ToLower(env("DEFAULT_MODEL_PROVIDER", ProviderGemini))
	switch defaultProvider {
	case ProviderGemini, ProviderOpenAI, ProviderGonka, ProviderNER, ProviderMock:
	default:
		return nil, errors.Newf("config: DEFAULT_MODEL_PROVIDER %q is not one of gemini, openai, gonka, ner, mock", defaultProvider)
	}

	appURL := env("APP_URL", env("NEXT_PUBLIC_APP_URL", ""))
	if appURL == "" {
		if v := env("VERCEL_URL", ""); v != "" {
			appURL = "https://" + v
		} else {
			appURL = "http://localhost:3000"
		}
	}

	maxConc, err := intEnv("MAX_CONCURRENT_REQUESTS", 10)
	if err != nil {
		return nil, err
	}
	if maxConc < 1 {
		return nil, errors.Newf("config: MAX_CONCURRENT_REQUESTS must be at least 1, got %d", maxConc)
	}
	timeoutMS, err := intEnv("REQUEST_TIMEOUT", 30000)
	if err != nil {
		return nil, err
	}
	if timeoutMS < 1 {
		return nil, errors.Newf("config: REQUEST_TIMEOUT must be positive, got %d", timeoutMS)
	}

	interval := 1.5
	if raw := env("ANIMATION_INTERVAL_SECONDS", ""); raw != "" {
		interval, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "config: ANIMATION_INTERVAL_SECONDS")
		}
		if interval <= 0 {
			return nil, errors.Newf("config: ANIMATION_INTERVAL_SECONDS must be positive, got %v", interval)
		}
	}
	contextChars, err := intEnv("CONTEXT_CHARS", 150)
	if err != nil {
		return nil, err
	}
	if contextChars < 0 {
		return nil, errors.Newf("config: CONTEXT_CHARS must not be negative, got %d", contextChars)
	}

	mockLatency, err := durationEnv("MOCK_LATENCY", 0)
	if err != nil {
		return nil, err
	}
	ttl, err := durationEnv("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	appEnv := env("APP_ENV", env("NODE_ENV", "production"))

	return &Cfg{
		GeminiAPIKey:          env("GEMINI_API_KEY", ""),
		GeminiBaseURL:         strings.TrimRight(env("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"), "/"),
		OpenAIAPIKey:          env("OPENAI_API_KEY", ""),
		OpenAIBaseURL:         strings.TrimRight(env("OPENAI_BASE_URL", "https://api.openai.com"), "/"),
		DefaultProvider:       defaultProvider,
		NERURL:                strings.TrimRight(env("NER_URL", ""), "/"),
		MockLatency:           mockLatency,
		Wallets:               wallets,
		SourceURL:             sourceURL,
		AppURL:                appURL,
		AppEnv:                appEnv,
		Debug:                 boolEnv("DEBUG"),
		MaxConcurrentRequests: maxConc,
		RequestTimeout:        time.Duration(timeoutMS) * time.Millisecond,
		AnimationInterval:     time.Duration(interval * float64(time.Second)),
		ContextChars:          contextChars,
		DataDir:               env("DATA_DIR", ""),
		SessionTTL:            ttl,
		SessionPruneSchedule:  env("SESSION_PRUNE_SCHEDULE", "@hourly"),
		ListenAddr:            ":" + env("PORT", "8080"),
	}, nil
}

// IsDevelopment reports whether APP_ENV is development.
func (c *Cfg) IsDevelopment() bool { return c.AppEnv == "development" }

// Verbose reports whether debug logging should be on.
func (c *Cfg) Verbose() bool { return c.Debug || c.IsDevelopment() }

// KeyStatus says which providers have server-side credentials.
type KeyStatus struct {
	HasGemini           bool   `json:"hasGemini"`
	HasOpenAI           bool   `json:"hasOpenAI"`
	HasGonka            bool   `json:"hasGonka"`
	HasNER              bool   `json:"hasNER"`
	HasAnyKey           bool   `json:"hasAnyKey"`
	RecommendedProvider string `json:"recommendedProvider,omitempty"`
}

// ValidateAPIKeys reports the configured providers. The recommended
// provider is the default one when it is usable, else the first usable of
// gemini, openai, gonka, ner. The mock provider only counts when it is the
// default.
func (c *Cfg) ValidateAPIKeys() KeyStatus {
	ks := KeyStatus{
		HasGemini: c.GeminiAPIKey != "",
		HasOpenAI: c.OpenAIAPIKey != "",
		HasGonka:  len(c.Wallets) > 0,
		HasNER:    c.NERURL != "",
	}
	ks.HasAnyKey = ks.HasGemini || ks.HasOpenAI || ks.HasGonka || ks.HasNER ||
		c.DefaultProvider == ProviderMock

	if c.Usable(c.DefaultProvider) {
		ks.RecommendedProvider = c.DefaultProvider
		return ks
	}
	for _, p := range []string{ProviderGemini, ProviderOpenAI, ProviderGonka, ProviderNER} {
		if c.Usable(p) {
			ks.RecommendedProvider = p
			break
		}
	}
	return ks
}

// Usable reports whether provider can run with server-side configuration
// alone.
func (c *Cfg) Usable(provider string) bool {
	switch provider {
	case ProviderGemini:
		return c.GeminiAPIKey != ""
	case ProviderOpenAI:
		return c.OpenAIAPIKey != ""
	case ProviderGonka:
		return len(c.Wallets) > 0
	case ProviderNER:
		return c.NERURL != ""
	case ProviderMock:
		return c.DefaultProvider == ProviderMock
	}
	return false
}

// APIKey returns the configured key for provider, or "".
func (c *Cfg) APIKey(provider string) string {
	switch provider {
	case ProviderGemini:
		return c.GeminiAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	}
	return ""
}

// KeyEnv names the environment variable that holds provider's credentials.
func KeyEnv(provider string) string {
	switch provider {
	case ProviderGonka:
		return "GONKA_PRIVATE_KEY"
	case ProviderNER:
		return "NER_URL"
	}
	return strings.ToUpper(provider) + "_API_KEY"
}

// EnvironmentInfo is the non-secret configuration summary served by
// GET /api/extract.
type EnvironmentInfo struct {
	Environment           string          `json:"environment"`
	DefaultProvider       string          `json:"defaultProvider"`
	AvailableProviders    map[string]bool `json:"availableProviders"`
	RecommendedProvider   string          `json:"recommendedProvider,omitempty"`
	AppURL                string          `json:"appUrl"`
	MaxConcurrentRequests int             `json:"maxConcurrentRequests"`
	RequestTimeout        int64           `json:"requestTimeout"`
}

// EnvironmentInfo summarises the configuration without secrets.
func (c *Cfg) EnvironmentInfo() EnvironmentInfo {
	ks := c.ValidateAPIKeys()
	env := "production"
	if c.IsDevelopment() {
		env = "development"
	}
	return EnvironmentInfo{
		Environment:     env,
		DefaultProvider: c.DefaultProvider,
		AvailableProviders: map[string]bool{
			ProviderGemini: ks.HasGemini,
			ProviderOpenAI: ks.HasOpenAI,
			ProviderGonka:  ks.HasGonka,
			ProviderNER:    ks.HasNER,
		},
		RecommendedProvider:   ks.RecommendedProvider,
		AppURL:                c.AppURL,
		MaxConcurrentRequests: c.MaxConcurrentRequests,
		RequestTimeout:        c.RequestTimeout.Milliseconds(),
	}
}

// loadWallets builds the wallet list from environment variables.
//
// Multi-wallet format (GONKA_WALLETS):
//
//	GONKA_WALLETS=privkey1:addr1,privkey2:addr2,privkey3
//
// Each entry is "private_key" or "private_key:address" separated by commas.
//
// Single-wallet fallback:
//
//	GONKA_PRIVATE_KEY=... GONKA_ADDRESS=...
//
// No wallets is not an error; the gonka provider is simply unavailable.
func loadWallets() ([]WalletCfg, error) {
	if multi := env("GONKA_WALLETS", ""); multi != "" {
		return parseMultiWallets(multi)
	}
	pk := env("GONKA_PRIVATE_KEY", "")
	if pk == "" {
		return nil, nil
	}
	return []WalletCfg{{PrivateKey: pk, Address: env("GONKA_ADDRESS", "")}}, nil
}

// parseMultiWallets parses "key1:addr1,key2:addr2,key3" into WalletCfg slices.
func parseMultiWallets(raw string) ([]WalletCfg, error) {
	var wallets []WalletCfg
	for i, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		// Split on first colon only
		pk, addr, _ := strings.Cut(part, ":")
		pk, addr = strings.TrimSpace(pk), strings.TrimSpace(addr)
		if pk == "" {
			return nil, errors.Newf("config: GONKA_WALLETS entry %d has empty private key", i+1)
		}
		wallets = append(wallets, WalletCfg{PrivateKey: pk, Address: addr})
	}
	if len(wallets) == 0 {
		return nil, errors.New("config: GONKA_WALLETS is set but contains no valid entries")
	}
	return wallets, nil
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func boolEnv(key string) bool {
	v := env(key, "")
	return v == "1" || strings.EqualFold(v, "true")
}

func intEnv(key string, def int) (int, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "config: %s", key)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "config: %s", key)
	}
	if d < 0 {
		return 0, errors.Newf("config: %s must not be negative, got %s", key, d)
	}
	return d, nil
}
