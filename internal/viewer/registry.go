package viewer

import (
	"sync"

	"github.com/gonkalabs/langextract-go/internal/document"
)

// Registry maps stored session ids to open visualizations.
type Registry struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry whose sessions use opts.
func NewRegistry(opts Options) *Registry {
	return &Registry{opts: opts, sessions: make(map[string]*Session)}
}

// Open returns the open session for id, creating it over doc if needed.
// doc is ignored when the session is already open.
func (r *Registry) Open(id string, doc *document.AnnotatedDocument) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := NewSession(id, doc, r.opts)
	r.sessions[id] = s
	return s
}

// Get returns the open session for id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Close closes and forgets the session for id, if open.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
}

// CloseIDs closes the open sessions among ids.
func (r *Registry) CloseIDs(ids []string) {
	for _, id := range ids {
		r.Close(id)
	}
}

// CloseAll closes every open session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
