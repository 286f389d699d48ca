package document

import (
	"fmt"
	"strings"
)

// FormatType is the structured format a model is asked to answer in.
type FormatType string

const (
	FormatJSON FormatType = "json"
	FormatYAML FormatType = "yaml"
)

const (
	// MaxExtractionPasses bounds extraction_passes.
	MaxExtractionPasses = 5
	// DefaultMaxWorkers is the pass concurrency when max_workers is unset.
	DefaultMaxWorkers = 5
)

// Request is an extraction request as accepted by POST /api/extract.
type Request struct {
	Text              string        `json:"text"`
	PromptDescription string        `json:"prompt_description"`
	Examples          []ExampleData `json:"examples"`
	ModelID           string        `json:"model_id,omitempty"`
	APIKey            string        `json:"api_key,omitempty"`
	FormatType        FormatType    `json:"format_type,omitempty"`
	MaxCharBuffer     int           `json:"max_char_buffer,omitempty"`
	Temperature       *float64      `json:"temperature,omitempty"`
	ExtractionPasses  int           `json:"extraction_passes,omitempty"`
	MaxWorkers        int           `json:"max_workers,omitempty"`
	AdditionalContext string        `json:"additional_context,omitempty"`
}

// Response is the envelope returned by POST /api/extract.
type Response struct {
	Success bool               `json:"success"`
	Data    *AnnotatedDocument `json:"data,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// Validate returns a human readable message for every problem found.
// An empty result means the request is acceptable. The API key is optional;
// server-side credentials are used when it is empty.
func (r *Request) Validate() []string {
	var errs []string
	if strings.TrimSpace(r.Text) == "" {
		errs = append(errs, "text must not be empty")
	}
	if strings.TrimSpace(r.PromptDescription) == "" {
		errs = append(errs, "prompt description must not be empty")
	}
	if len(r.Examples) == 0 {
		errs = append(errs, "at least one example is required")
	}
	for i, ex := range r.Examples {
		if strings.TrimSpace(ex.Text) == "" {
			errs = append(errs, fmt.Sprintf("example %d: text must not be empty", i+1))
		}
		if len(ex.Extractions) == 0 {
			errs = append(errs, fmt.Sprintf("example %d: at least one extraction is required", i+1))
		}
	}
	switch r.FormatType {
	case "", FormatJSON, FormatYAML:
	default:
		errs = append(errs, fmt.Sprintf("unsupported format_type %q", r.FormatType))
	}
	if r.ExtractionPasses < 0 || r.ExtractionPasses > MaxExtractionPasses {
		errs = append(errs, fmt.Sprintf("extraction_passes must be between 1 and %d", MaxExtractionPasses))
	}
	if r.MaxWorkers < 0 {
		errs = append(errs, "max_workers must not be negative")
	}
	return errs
}

// Passes returns the number of extraction passes, at least one.
func (r *Request) Passes() int {
	if r.ExtractionPasses < 1 {
		return 1
	}
	return r.ExtractionPasses
}

// Workers returns how many passes may run at once, DefaultMaxWorkers when
// max_workers is unset.
func (r *Request) Workers() int {
	if r.MaxWorkers < 1 {
		return DefaultMaxWorkers
	}
	return r.MaxWorkers
}

// Format returns the requested output format, JSON by default.
func (r *Request) Format() FormatType {
	if r.FormatType == FormatYAML {
		return FormatYAML
	}
	return FormatJSON
}

// Redacted returns a copy of the request without the caller's API key, for
// persistence and logging.
func (r *Request) Redacted() Request {
	cp := *r
	cp.APIKey = ""
	return cp
}
