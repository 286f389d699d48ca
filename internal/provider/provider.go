// Package provider defines the extraction backends that turn an extraction
// request into an annotated document, and the pieces they share: prompt
// construction, parsing of model output, alignment of returned strings to
// the source text and merging of repeated passes.
package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/gonkalabs/langextract-go/internal/document"
)

// Provider extracts structured information from a request's text.
// Implementations are safe for concurrent use.
type Provider interface {
	Name() string
	Extract(ctx context.Context, req *document.Request) (*document.AnnotatedDocument, error)
}

var (
	// ErrNoCredentials means neither the request nor the server supplied
	// credentials for the chosen provider.
	ErrNoCredentials = errors.New("no credentials configured")
	// ErrUnknownProvider is returned for a provider name with no backend.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrRateLimited is returned when an upstream answers 429.
	ErrRateLimited = errors.New("rate limited by upstream")
	// ErrBadResponse means the model answered with something unusable.
	ErrBadResponse = errors.New("unusable model response")
)

// Error is a failure inside a provider. Op names the step that failed.
type Error struct {
	Provider string
	Op       string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns err as an *Error, or nil when err is nil. An err that is
// already an *Error is returned unchanged.
func Wrap(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Provider: provider, Op: op, Err: err}
}

// StatusError is a non-2xx answer from an upstream API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %d: %s", e.Code, e.Body)
}

// DocumentID builds an id of the form "<provider>_doc_<base36 millis>".
func DocumentID(provider string, now time.Time) string {
	return provider + "_doc_" + strconv.FormatInt(now.UnixMilli(), 36)
}
