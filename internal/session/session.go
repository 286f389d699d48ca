// Package session persists extraction sessions: the request, its outcome
// and the annotated document, so results can be listed, reopened for
// visualization and downloaded later.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/gonkalabs/langextract-go/internal/document"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Session is one extraction run. Request never carries the API key.
type Session struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	CreatedAt time.Time          `json:"created_at"`
	Request   document.Request   `json:"request"`
	Response  *document.Response `json:"response,omitempty"`
	Status    Status             `json:"status"`
}

// New starts a pending session for req with the key stripped.
func New(req *document.Request, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Name:      "Extraction " + now.Format("2006-01-02 15:04:05"),
		CreatedAt: now.UTC(),
		Request:   req.Redacted(),
		Status:    StatusPending,
	}
}

// Finish records resp and moves the session to completed or error.
func (s *Session) Finish(resp document.Response) {
	s.Response = &resp
	if resp.Success {
		s.Status = StatusCompleted
	} else {
		s.Status = StatusError
	}
}

// Document returns the annotated document of a completed session.
func (s *Session) Document() (*document.AnnotatedDocument, bool) {
	if s.Status != StatusCompleted || s.Response == nil || s.Response.Data == nil {
		return nil, false
	}
	return s.Response.Data, true
}
