// Package api serves the extraction endpoint, stored sessions and the
// server-side visualization and playback of their documents.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/semaphore"

	"github.com/gonkalabs/langextract-go/internal/config"
	"github.com/gonkalabs/langextract-go/internal/document"
	"github.com/gonkalabs/langextract-go/internal/playback"
	"github.com/gonkalabs/langextract-go/internal/provider"
	"github.com/gonkalabs/langextract-go/internal/session"
	"github.com/gonkalabs/langextract-go/internal/viewer"
)

// Resolver chooses the provider for an extraction request.
type Resolver interface {
	Resolve(req *document.Request) (provider.Provider, error)
}

// Handler implements all HTTP endpoints.
type Handler struct {
	cfg       *config.Cfg
	providers Resolver
	store     *session.Store
	viewers   *viewer.Registry
	metrics   *Metrics
	limiter   *semaphore.Weighted
	now       func() time.Time
}

// New creates a Handler. At most cfg.MaxConcurrentRequests extractions run
// at once; further requests are turned away with 503.
func New(cfg *config.Cfg, providers Resolver, store *session.Store, viewers *viewer.Registry, metrics *Metrics) *Handler {
	limit := cfg.MaxConcurrentRequests
	if limit <= 0 {
		limit = 1
	}
	return &Handler{
		cfg:       cfg,
		providers: providers,
		store:     store,
		viewers:   viewers,
		metrics:   metrics,
		limiter:   semaphore.NewWeighted(int64(limit)),
		now:       time.Now,
	}
}

// Register mounts routes on the given mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.Handle("GET /metrics", h.metrics.Handler())

	mux.HandleFunc("POST /api/extract", h.extract)
	mux.HandleFunc("GET /api/extract", h.extractInfo)

	mux.HandleFunc("GET /api/sessions", h.listSessions)
	mux.HandleFunc("DELETE /api/sessions", h.clearSessions)
	mux.HandleFunc("GET /api/sessions/{id}", h.getSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.deleteSession)
	mux.HandleFunc("GET /api/sessions/{id}/download", h.download)

	mux.HandleFunc("GET /api/sessions/{id}/view", h.view)
	mux.HandleFunc("POST /api/sessions/{id}/playback/{action}", h.playback)
	mux.HandleFunc("GET /api/sessions/{id}/playback/events", h.events)
}

// Routes returns the full instrumented handler tree.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	return keepStreamsOpen(h.metrics.Instrument(mux))
}

// keepStreamsOpen lifts the server's write timeout for event streams, which
// stay open for as long as the client listens. It runs outside the metrics
// wrappers, which hide the connection's deadline controls.
func keepStreamsOpen(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/playback/events") {
			if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
				slog.Debug("events: clear write deadline", "err", err)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// ---------- endpoints ----------

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) extractInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"message":     "LangExtract API is running",
		"timestamp":   h.now().UTC().Format(time.RFC3339),
		"environment": h.cfg.EnvironmentInfo(),
	})
}

// ---------- helpers ----------

// errStatus maps an error to an HTTP status code.
func errStatus(err error) int {
	var pe *provider.Error
	switch {
	case errors.Is(err, provider.ErrNoCredentials),
		errors.Is(err, provider.ErrUnknownProvider),
		errors.Is(err, playback.ErrInvalidInterval):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, playback.ErrIdle),
		errors.Is(err, playback.ErrClosed),
		errors.Is(err, errNoDocument):
		return http.StatusConflict
	case errors.Is(err, playback.ErrOutOfRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, errTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &pe):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail writes err with its mapped status. Server errors are logged.
func fail(w http.ResponseWriter, err error) {
	status := errStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "err", err)
	}
	writeErr(w, status, err.Error())
}
