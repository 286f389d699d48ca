package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/gonkalabs/langextract-go/internal/document"
	"github.com/gonkalabs/langextract-go/internal/session"
)

const maxRequestBytes = 10 << 20

var (
	errBusy    = errors.New("too many concurrent extraction requests, try again later")
	errTimeout = errors.New("extraction timed out")
)

// extract runs one extraction request and records it as a session. The
// answer is always the {success, data | error} envelope; the session id is
// returned in X-Session-ID whenever a session was stored.
func (h *Handler) extract(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.extractErr(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.extractErr(w, http.StatusBadRequest, "failed to read body: "+err.Error())
		return
	}

	req, err := document.DecodeRequest(body, document.FormatFromContentType(r.Header.Get("Content-Type")))
	if err != nil {
		h.extractErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if problems := req.Validate(); len(problems) > 0 {
		h.extractErr(w, http.StatusBadRequest, strings.Join(problems, "; "))
		return
	}

	p, err := h.providers.Resolve(req)
	if err != nil {
		h.extractErr(w, errStatus(err), err.Error())
		return
	}

	if !h.limiter.TryAcquire(1) {
		h.extractErr(w, errStatus(errBusy), errBusy.Error())
		return
	}
	defer h.limiter.Release(1)
	h.metrics.inFlight.Inc()
	defer h.metrics.inFlight.Dec()

	sess := session.New(req, h.now())
	sess.Status = session.StatusProcessing
	if err := h.store.Save(r.Context(), sess); err != nil {
		fail(w, err)
		return
	}
	w.Header().Set("X-Session-ID", sess.ID)

	slog.Debug("extract: start", "session", sess.ID, "provider", p.Name(), "request", req.Redacted())
	began := h.now()
	ctx, cancel := h.extractContext(r.Context())
	doc, err := p.Extract(ctx, req)
	timedOut := ctx.Err() == context.DeadlineExceeded
	cancel()
	took := h.now().Sub(began)

	var resp document.Response
	status := http.StatusOK
	if err != nil {
		if timedOut {
			err = errors.Mark(errors.Wrapf(err, "after %s", h.cfg.RequestTimeout), errTimeout)
		}
		status = errStatus(err)
		resp = document.Response{Success: false, Error: err.Error()}
		h.metrics.observeExtract(p.Name(), "error", took, 0)
		slog.Warn("extract: failed", "session", sess.ID, "provider", p.Name(), "status", status, "err", err)
	} else {
		resp = document.Response{Success: true, Data: doc}
		h.metrics.observeExtract(p.Name(), "ok", took, len(doc.Extractions))
		slog.Info("extract: done", "session", sess.ID, "provider", p.Name(),
			"extractions", len(doc.Extractions), "took", took)
	}

	sess.Finish(resp)
	// The client may have gone away; the outcome is still recorded.
	if err := h.store.Save(context.WithoutCancel(r.Context()), sess); err != nil {
		slog.Error("extract: save session", "session", sess.ID, "err", err)
	}
	writeJSON(w, status, resp)
}

func (h *Handler) extractContext(parent context.Context) (context.Context, context.CancelFunc) {
	if h.cfg.RequestTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, h.cfg.RequestTimeout)
}

func (h *Handler) extractErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, document.Response{Success: false, Error: msg})
}
