// Package viewer holds the server-side state of a visualization: one
// annotated document, its rendered overlay and its playback controller.
package viewer

import (
	"fmt"
	"sync"
	"time"

	"github.com/gonkalabs/langextract-go/internal/document"
	"github.com/gonkalabs/langextract-go/internal/overlay"
	"github.com/gonkalabs/langextract-go/internal/playback"
)

// Options configures new sessions.
type Options struct {
	Interval     time.Duration
	ContextChars int
	// NewScheduler returns the scheduler for a session's controller. Nil
	// uses playback.TickerScheduler.
	NewScheduler func() playback.Scheduler
}

// Current describes the extraction under the playback cursor.
type Current struct {
	Index      int                 `json:"index"`
	Readout    string              `json:"readout"`
	Class      string              `json:"extraction_class"`
	Text       string              `json:"extraction_text"`
	Attributes document.Attributes `json:"attributes,omitempty"`
	Start      int                 `json:"start_pos"`
	End        int                 `json:"end_pos"`
	Before     string              `json:"context_before"`
	After      string              `json:"context_after"`
}

// View is everything a client needs to draw the visualization.
type View struct {
	SessionID  string                `json:"session_id"`
	DocumentID string                `json:"document_id"`
	Markup     string                `json:"markup"`
	Legend     []overlay.LegendEntry `json:"legend"`
	Stats      overlay.Stats         `json:"stats"`
	Density    int                   `json:"density"`
	Status     string                `json:"status"`
	Playback   playback.State        `json:"playback"`
	Current    *Current              `json:"current,omitempty"`
}

// Session is the visualization of one document. Playback transitions are
// fanned out to subscribers as fresh Views.
type Session struct {
	id           string
	contextChars int
	ctrl         *playback.Controller

	mu      sync.RWMutex
	doc     *document.AnnotatedDocument
	ordered []document.Extraction
	colors  overlay.ColorMap
	stats   overlay.Stats

	subMu  sync.Mutex
	subs   map[chan View]struct{}
	closed bool
}

// NewSession builds a session over doc, paused at the first extraction.
func NewSession(id string, doc *document.AnnotatedDocument, opts Options) *Session {
	s := &Session{
		id:           id,
		contextChars: opts.ContextChars,
		subs:         make(map[chan View]struct{}),
	}
	s.setDocument(doc)

	ctrlOpts := []playback.Option{
		playback.WithInterval(opts.Interval),
		playback.WithObserver(s.publish),
	}
	if opts.NewScheduler != nil {
		ctrlOpts = append(ctrlOpts, playback.WithScheduler(opts.NewScheduler()))
	}
	s.ctrl = playback.New(len(s.ordered), ctrlOpts...)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Controller exposes the session's playback controller.
func (s *Session) Controller() *playback.Controller { return s.ctrl }

// Document returns the document being visualized.
func (s *Session) Document() *document.AnnotatedDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Load replaces the document. Playback is stopped and rewound.
func (s *Session) Load(doc *document.AnnotatedDocument) error {
	s.setDocument(doc)
	s.mu.RLock()
	n := len(s.ordered)
	s.mu.RUnlock()
	return s.ctrl.Reset(n)
}

func (s *Session) setDocument(doc *document.AnnotatedDocument) {
	if doc == nil {
		doc = &document.AnnotatedDocument{}
	}
	ordered := overlay.Order(doc.Extractions)
	colors := overlay.AssignColors(ordered)
	stats := overlay.ComputeStats(ordered)

	s.mu.Lock()
	s.doc = doc
	s.ordered = ordered
	s.colors = colors
	s.stats = stats
	s.mu.Unlock()
}

// Snapshot renders the current view.
func (s *Session) Snapshot() View {
	return s.view(s.ctrl.State())
}

func (s *Session) view(st playback.State) View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	current := overlay.NoCurrent
	if st.Total > 0 && st.CurrentIndex < len(s.ordered) {
		current = st.CurrentIndex
	}
	v := View{
		SessionID:  s.id,
		DocumentID: s.doc.DocumentID,
		Markup:     overlay.Render(s.doc.Text, s.ordered, s.colors, current),
		Legend:     s.colors.Legend(),
		Stats:      s.stats,
		Density:    s.stats.Density(s.doc.Text),
		Status:     st.Status().String(),
		Playback:   st,
	}
	if current == overlay.NoCurrent {
		return v
	}

	e := &s.ordered[current]
	start, end, _ := e.Span()
	before, after := overlay.Context(s.doc.Text, e, s.contextChars)
	v.Current = &Current{
		Index:      current,
		Readout:    fmt.Sprintf("%d / %d", current+1, len(s.ordered)),
		Class:      e.ExtractionClass,
		Text:       e.ExtractionText,
		Attributes: e.Attributes,
		Start:      start,
		End:        end,
		Before:     before,
		After:      after,
	}
	return v
}

// Subscribe returns a channel that receives a View after every playback
// transition. Slow readers only see the latest View. cancel releases the
// subscription; the channel is closed when the session closes.
func (s *Session) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 1)
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

// publish runs under the controller lock and must not call into it.
func (s *Session) publish(st playback.State) {
	s.subMu.Lock()
	n := len(s.subs)
	s.subMu.Unlock()
	if n == 0 {
		return
	}

	v := s.view(st)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

// Close stops playback and closes every subscriber channel.
func (s *Session) Close() {
	s.ctrl.Close()
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subs {
		close(ch)
		delete(s.subs, ch)
	}
}
