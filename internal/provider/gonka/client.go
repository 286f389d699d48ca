package gonka

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// Endpoint is a Gonka network node with its transfer address.
type Endpoint struct {
	URL     string // e.g. http://node2.gonka.ai:8000/v1
	Address string // bech32 address of this host
}

// allowedTransferAgents is the whitelist of nodes that support the
// Transfer Agent feature. Only these endpoints take proxied inference
// requests.
var allowedTransferAgents = map[string]bool{
	"gonka1y2a9p56kv044327uycmqdexl7zs82fs5ryv5le": true,
	"gonka1dkl4mah5erqggvhqkpc8j3qs5tyuetgdy552cp": true,
	"gonka1kx9mca3xm8u8ypzfuhmxey66u0ufxhs7nm6wc5": true,
	"gonka1ddswmmmn38esxegjf6qw36mt4aqyw6etvysy5x": true,
	"gonka10fynmy2npvdvew0vj2288gz8ljfvmjs35lat8n": true,
	"gonka1v8gk5z7gcv72447yfcd2y8g78qk05yc4f3nk4w": true,
	"gonka1gndhek2h2y5849wf6tmw6gnw9qn4vysgljed0u": true,
}

var errNoEndpoints = errors.New("gonka: no endpoints available")

// Client sends signed requests to the Gonka network. Endpoints are
// discovered from the participant list of a source node; each request goes
// to a random endpoint, signed by the next wallet in the pool.
type Client struct {
	sourceURL string
	pool      *Pool

	mu        sync.RWMutex
	endpoints []Endpoint

	http *http.Client
}

// NewClient creates a Client. sourceURL is a bare node URL (e.g.
// http://node2.gonka.ai:8000).
func NewClient(sourceURL string, pool *Pool) *Client {
	return &Client{
		sourceURL: strings.TrimRight(sourceURL, "/"),
		pool:      pool,
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// DiscoverEndpoints fetches the active participant list and keeps the
// whitelisted ones.
func (c *Client) DiscoverEndpoints(ctx context.Context) error {
	url := c.sourceURL + "/v1/epochs/current/participants"
	slog.Info("gonka: discovering endpoints", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "discover")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "discover")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return errors.Newf("discover: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result struct {
		ActiveParticipants struct {
			Participants []struct {
				Index        string `json:"index"`
				InferenceURL string `json:"inference_url"`
			} `json:"participants"`
		} `json:"active_participants"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return errors.Wrap(err, "discover: decode")
	}

	var eps []Endpoint
	for _, p := range result.ActiveParticipants.Participants {
		if p.InferenceURL == "" || p.Index == "" || !allowedTransferAgents[p.Index] {
			continue
		}
		eps = append(eps, Endpoint{URL: strings.TrimRight(p.InferenceURL, "/") + "/v1", Address: p.Index})
	}
	if len(eps) == 0 {
		return errors.New("discover: no whitelisted transfer-agent endpoints found in active participants")
	}

	c.mu.Lock()
	c.endpoints = eps
	c.mu.Unlock()

	slog.Info("gonka: endpoints discovered", "count", len(eps))
	return nil
}

// Ready discovers endpoints unless some are already known.
func (c *Client) Ready(ctx context.Context) error {
	c.mu.RLock()
	n := len(c.endpoints)
	c.mu.RUnlock()
	if n > 0 {
		return nil
	}
	return c.DiscoverEndpoints(ctx)
}

// pickEndpoint returns a random endpoint not in the excluded set, or any
// endpoint once all have been excluded.
func (c *Client) pickEndpoint(exclude map[string]bool) (Endpoint, error) {
	c.mu.RLock()
	eps := c.endpoints
	c.mu.RUnlock()
	if len(eps) == 0 {
		return Endpoint{}, errNoEndpoints
	}
	var candidates []Endpoint
	for _, ep := range eps {
		if !exclude[ep.Address] {
			candidates = append(candidates, ep)
		}
	}
	if len(candidates) == 0 {
		return eps[rand.Intn(len(eps))], nil
	}
	return candidates[rand.Intn(len(candidates))], nil
}

// ModelIDs returns the ids of the models the network serves.
func (c *Client) ModelIDs(ctx context.Context) ([]string, error) {
	body, status, err := c.Do(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, errors.Wrap(err, "fetch models")
	}
	if status >= 400 {
		return nil, errors.Newf("fetch models: upstream %d: %s", status, strings.TrimSpace(string(body)))
	}

	var result struct {
		Models []struct {
			ID string `json:"id"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.Wrap(err, "decode models")
	}
	ids := make([]string, 0, len(result.Models))
	for _, m := range result.Models {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}

// Do sends a signed request and returns the response body and status. A
// transport failure is retried on up to two other endpoints.
func (c *Client) Do(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	lastErr := errNoEndpoints
	tried := map[string]bool{}
	for attempt := 0; attempt < 3; attempt++ {
		ep, err := c.pickEndpoint(tried)
		if err != nil {
			return nil, 0, err
		}
		tried[ep.Address] = true
		resp, err := c.doWith(ctx, ep, c.pool.Next(), method, path, payload)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			slog.Warn("gonka: request failed, retrying with different endpoint", "attempt", attempt+1, "err", err)
			lastErr = err
			continue
		}
		b, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		return b, resp.StatusCode, err
	}
	return nil, 0, lastErr
}

func (c *Client) doWith(ctx context.Context, ep Endpoint, w *Wallet, method, path string, payload []byte) (*http.Response, error) {
	url := ep.URL + path
	sig, ts := w.Signer.Sign(payload, ep.Address)

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", sig)
	req.Header.Set("X-Requester-Address", w.Address)
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))

	slog.Debug("gonka: request", "method", method, "url", url, "endpoint_addr", ep.Address, "wallet", w.Address)
	return c.http.Do(req)
}
