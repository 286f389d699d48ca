package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-yaml"

	"github.com/gonkalabs/langextract-go/internal/document"
	"github.com/gonkalabs/langextract-go/internal/playback"
	"github.com/gonkalabs/langextract-go/internal/session"
	"github.com/gonkalabs/langextract-go/internal/viewer"
)

var errNoDocument = errors.New("session has no annotated document")

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": list})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		fail(w, err)
		return
	}
	h.viewers.Close(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearSessions(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Clear(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	h.viewers.CloseAll()
	slog.Info("sessions cleared", "removed", n)
	writeJSON(w, http.StatusOK, map[string]int64{"removed": n})
}

// download serves the annotated document as an attachment, JSON unless
// ?format=yaml.
func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	doc, err := h.document(r)
	if err != nil {
		fail(w, err)
		return
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		fail(w, err)
		return
	}
	ext, ct := "json", "application/json"
	if document.FormatType(r.URL.Query().Get("format")) == document.FormatYAML {
		if out, err = yaml.JSONToYAML(out); err != nil {
			fail(w, errors.Wrap(err, "encode yaml"))
			return
		}
		ext, ct = "yaml", "application/x-yaml"
	}
	name := doc.DocumentID
	if name == "" {
		name = r.PathValue("id")
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="langextract_%s.%s"`, name, ext))
	_, _ = w.Write(out)
}

func (h *Handler) document(r *http.Request) (*document.AnnotatedDocument, error) {
	sess, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	doc, ok := sess.Document()
	if !ok {
		return nil, errors.Wrapf(errNoDocument, "%s is %s", sess.ID, sess.Status)
	}
	return doc, nil
}

// openViewer returns the open visualization for the path's session,
// opening it from the store on first use. A session gone from the store
// closes its visualization.
func (h *Handler) openViewer(r *http.Request) (*viewer.Session, error) {
	id := r.PathValue("id")
	if v, ok := h.viewers.Get(id); ok {
		stored, err := h.store.Exists(r.Context(), id)
		if err != nil {
			return nil, err
		}
		if stored {
			return v, nil
		}
		h.viewers.Close(id)
		return nil, errors.Wrapf(session.ErrNotFound, "%s", id)
	}
	doc, err := h.document(r)
	if err != nil {
		return nil, err
	}
	return h.viewers.Open(id, doc), nil
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	v, err := h.openViewer(r)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v.Snapshot())
}

// playback applies one command and answers with the resulting view.
// jump takes {"index": k}; interval takes {"seconds": s} and applies from
// the next play.
func (h *Handler) playback(w http.ResponseWriter, r *http.Request) {
	v, err := h.openViewer(r)
	if err != nil {
		fail(w, err)
		return
	}
	ctrl := v.Controller()

	action := r.PathValue("action")
	switch action {
	case "play":
		err = ctrl.Play()
	case "pause":
		err = ctrl.Pause()
	case "toggle":
		err = ctrl.Toggle()
	case "next":
		err = ctrl.Next()
	case "prev":
		err = ctrl.Prev()
	case "jump":
		var body struct {
			Index *int `json:"index"`
		}
		if json.NewDecoder(r.Body).Decode(&body) != nil || body.Index == nil {
			writeErr(w, http.StatusBadRequest, `body must be {"index": <int>}`)
			return
		}
		err = ctrl.Jump(*body.Index)
	case "interval":
		var body struct {
			Seconds float64 `json:"seconds"`
		}
		if json.NewDecoder(r.Body).Decode(&body) != nil {
			writeErr(w, http.StatusBadRequest, `body must be {"seconds": <number>}`)
			return
		}
		err = ctrl.SetInterval(playback.IntervalFromSeconds(body.Seconds))
	default:
		writeErr(w, http.StatusNotFound, fmt.Sprintf("unknown playback action %q", action))
		return
	}
	h.metrics.observePlayback(action, err)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v.Snapshot())
}

// events streams a view after every playback transition as server-sent
// events, starting with the current one.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	v, err := h.openViewer(r)
	if err != nil {
		fail(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	views, cancel := v.Subscribe()
	defer cancel()

	// SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	send := func(view viewer.View) bool {
		b, err := json.Marshal(view)
		if err != nil {
			slog.Error("events: marshal view", "err", err)
			return false
		}
		if _, err := fmt.Fprintf(w, "event: view\ndata: %s\n\n", b); err != nil {
			slog.Debug("events: client write error", "err", err)
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(v.Snapshot()) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case view, ok := <-views:
			if !ok || !send(view) {
				return
			}
		}
	}
}
