package gonka

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonkalabs/langextract-go/internal/config"
	"github.com/gonkalabs/langextract-go/internal/document"
	"github.com/gonkalabs/langextract-go/internal/provider"
	"github.com/gonkalabs/langextract-go/internal/provider/openai"
)

const (
	testKey   = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	agentA    = "gonka1y2a9p56kv044327uycmqdexl7zs82fs5ryv5le"
	agentB    = "gonka1dkl4mah5erqggvhqkpc8j3qs5tyuetgdy552cp"
	requester = "gonka1requester"
)

func verify(s *Signer, payload []byte, addr string, ts int64, sig string) bool {
	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil || len(raw) != 64 {
		return false
	}
	ph := sha256.Sum256(payload)
	msg := sha256.Sum256([]byte(hex.EncodeToString(ph[:]) + strconv.FormatInt(ts, 10) + addr))
	return crypto.VerifySignature(s.PublicKey(), msg[:], raw)
}

func TestSigner(t *testing.T) {
	s, err := NewSigner(testKey)
	require.NoError(t, err)

	payload := []byte(`{"model":"m"}`)
	sig := s.SignAt(payload, agentA, 1700000000000000000)
	assert.Equal(t, sig, s.SignAt(payload, agentA, 1700000000000000000), "signatures are deterministic")
	assert.NotEqual(t, sig, s.SignAt(payload, agentB, 1700000000000000000))
	assert.True(t, verify(s, payload, agentA, 1700000000000000000, sig))
	assert.False(t, verify(s, payload, agentA, 1700000000000000001, sig))

	sig2, ts := s.Sign(payload, agentA)
	assert.True(t, verify(s, payload, agentA, ts, sig2))

	for _, bad := range []string{"zz", "0x1234", ""} {
		_, err := NewSigner(bad)
		assert.Error(t, err, bad)
	}
}

func TestPool(t *testing.T) {
	_, err := NewPool(nil)
	require.Error(t, err)

	p, err := PoolFromConfig([]config.WalletCfg{{PrivateKey: testKey, Address: "a"}, {PrivateKey: testKey, Address: "b"}})
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, "a", p.Next().Address)
	assert.Equal(t, "b", p.Next().Address)
	assert.Equal(t, "a", p.Next().Address)

	_, err = PoolFromConfig([]config.WalletCfg{{PrivateKey: "nothex"}})
	assert.ErrorContains(t, err, "wallet 1")
}

type network struct {
	srv        *httptest.Server
	chats      atomic.Int32
	lastModel  atomic.Value
	signerFail atomic.Int32
}

func newNetwork(t *testing.T, s *Signer, participants func(self string) string) *network {
	t.Helper()
	n := &network{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/epochs/current/participants", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, participants(n.srv.URL))
	})
	mux.HandleFunc("GET /v1/models", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"models":[{"id":"Qwen/Qwen3-32B"},{"id":"other"}]}`)
	})
	mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		n.chats.Add(1)
		body, _ := io.ReadAll(r.Body)
		ts, _ := strconv.ParseInt(r.Header.Get("X-Timestamp"), 10, 64)
		if r.Header.Get("X-Requester-Address") != requester || !verify(s, body, agentA, ts, r.Header.Get("Authorization")) {
			n.signerFail.Add(1)
			http.Error(w, "bad signature", http.StatusUnauthorized)
			return
		}
		var cr openai.ChatRequest
		_ = json.Unmarshal(body, &cr)
		n.lastModel.Store(cr.Model)
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"[{\"extraction_class\":\"person\",\"extraction_text\":\"Tim Cook\"}]"}}]}`)
	})
	n.srv = httptest.NewServer(mux)
	t.Cleanup(n.srv.Close)
	return n
}

func singleAgent(self string) string {
	return fmt.Sprintf(`{"active_participants":{"participants":[
		{"index":%q,"inference_url":%q},
		{"index":"gonka1notwhitelisted","inference_url":%q},
		{"index":%q,"inference_url":""}
	]}}`, agentA, self, self, agentB)
}

func TestProviderExtract(t *testing.T) {
	s, err := NewSigner(testKey)
	require.NoError(t, err)
	net := newNetwork(t, s, singleAgent)

	pool, err := NewPool([]Wallet{{Signer: s, Address: requester}})
	require.NoError(t, err)
	client := NewClient(net.srv.URL, pool)

	p := New(client, "")
	doc, err := p.Extract(context.Background(), &document.Request{
		Text:              "Apple CEO Tim Cook",
		PromptDescription: "people",
		Examples:          []document.ExampleData{{Text: "Ann", Extractions: []document.Extraction{{ExtractionClass: "person", ExtractionText: "Ann"}}}},
	})
	require.NoError(t, err)
	assert.Zero(t, net.signerFail.Load())
	assert.EqualValues(t, 1, net.chats.Load())
	assert.Equal(t, "Qwen/Qwen3-32B", net.lastModel.Load())
	require.Len(t, doc.Extractions, 1)
	s0, e0, _ := doc.Extractions[0].Span()
	assert.Equal(t, [2]int{10, 18}, [2]int{s0, e0})

	client.mu.RLock()
	assert.Equal(t, []Endpoint{{URL: net.srv.URL + "/v1", Address: agentA}}, client.endpoints)
	client.mu.RUnlock()
}

func TestClientRetriesOtherEndpoint(t *testing.T) {
	s, err := NewSigner(testKey)
	require.NoError(t, err)
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	net := newNetwork(t, s, func(self string) string {
		return fmt.Sprintf(`{"active_participants":{"participants":[
			{"index":%q,"inference_url":%q},
			{"index":%q,"inference_url":%q}
		]}}`, agentA, self, agentB, deadURL)
	})
	pool, err := NewPool([]Wallet{{Signer: s, Address: requester}})
	require.NoError(t, err)
	client := NewClient(net.srv.URL, pool)
	require.NoError(t, client.Ready(context.Background()))

	ids, err := client.ModelIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Qwen/Qwen3-32B", "other"}, ids)
}

func TestDiscoverFailures(t *testing.T) {
	s, err := NewSigner(testKey)
	require.NoError(t, err)
	pool, err := NewPool([]Wallet{{Signer: s}})
	require.NoError(t, err)

	net := newNetwork(t, s, func(string) string {
		return `{"active_participants":{"participants":[{"index":"gonka1nope","inference_url":"http://x"}]}}`
	})
	err = NewClient(net.srv.URL, pool).Ready(context.Background())
	assert.ErrorContains(t, err, "no whitelisted")

	_, _, err = NewClient(net.srv.URL, pool).Do(context.Background(), http.MethodGet, "/models", nil)
	assert.True(t, errors.Is(err, errNoEndpoints))

	p := New(NewClient(net.srv.URL, pool), "m")
	_, err = p.Extract(context.Background(), &document.Request{Text: "x"})
	var pe *provider.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "discover", pe.Op)
}
