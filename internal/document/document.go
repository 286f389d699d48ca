// Package document defines the annotated-document model exchanged between
// extraction providers, the HTTP API and the overlay/playback engine.
//
// Character offsets are Unicode code point offsets into Text, half-open
// [start, end). An extraction whose interval is missing or has a null bound
// is "unpositioned" and takes no part in rendering or playback.
package document

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

// AlignmentStatus records how an extraction's text was matched back to the
// source text.
type AlignmentStatus string

const (
	MatchExact   AlignmentStatus = "match_exact"
	MatchGreater AlignmentStatus = "match_greater"
	MatchLesser  AlignmentStatus = "match_lesser"
	MatchFuzzy   AlignmentStatus = "match_fuzzy"
)

// CharInterval is a half-open character range. Either bound may be nil,
// meaning the position is unresolved.
type CharInterval struct {
	StartPos *int `json:"start_pos"`
	EndPos   *int `json:"end_pos"`
}

// Interval returns a fully resolved interval.
func Interval(start, end int) *CharInterval {
	return &CharInterval{StartPos: &start, EndPos: &end}
}

// TokenInterval is carried through for providers that report token ranges.
type TokenInterval struct {
	StartIndex int `json:"start_index"`
	EndIndex   int `json:"end_index"`
}

// Extraction is one labeled span (or unpositioned fact) in a document.
type Extraction struct {
	ExtractionClass string           `json:"extraction_class"`
	ExtractionText  string           `json:"extraction_text"`
	CharInterval    *CharInterval    `json:"char_interval,omitempty"`
	AlignmentStatus *AlignmentStatus `json:"alignment_status,omitempty"`
	ExtractionIndex *int             `json:"extraction_index,omitempty"`
	GroupIndex      *int             `json:"group_index,omitempty"`
	Description     *string          `json:"description,omitempty"`
	Attributes      Attributes       `json:"attributes,omitempty"`
	TokenInterval   *TokenInterval   `json:"token_interval,omitempty"`
}

// Span returns the resolved bounds of the extraction. ok is false when the
// interval is absent or either bound is null.
func (e *Extraction) Span() (start, end int, ok bool) {
	ci := e.CharInterval
	if ci == nil || ci.StartPos == nil || ci.EndPos == nil {
		return 0, 0, false
	}
	return *ci.StartPos, *ci.EndPos, true
}

// Positioned reports whether the extraction has a fully resolved interval.
func (e *Extraction) Positioned() bool {
	_, _, ok := e.Span()
	return ok
}

// AnnotatedDocument is a source text plus the extractions found in it.
// Text must not be modified once the document is built.
type AnnotatedDocument struct {
	DocumentID  string       `json:"document_id"`
	Text        string       `json:"text"`
	Extractions []Extraction `json:"extractions"`
}

// Document is an input document before extraction.
type Document struct {
	Text              string  `json:"text"`
	DocumentID        string  `json:"document_id,omitempty"`
	AdditionalContext *string `json:"additional_context,omitempty"`
}

// ExampleData is a few-shot example: a text and the extractions expected
// from it.
type ExampleData struct {
	Text        string       `json:"text"`
	Extractions []Extraction `json:"extractions"`
}

// Attributes maps attribute names to a string or a list of strings.
type Attributes map[string]AttrValue

// AttrValue holds either a single string or a list of strings and
// re-encodes in the shape it was decoded from.
type AttrValue struct {
	Values []string
	List   bool
}

// Str builds a single-string attribute value.
func Str(s string) AttrValue { return AttrValue{Values: []string{s}} }

// List builds a list attribute value.
func List(values ...string) AttrValue {
	if values == nil {
		values = []string{}
	}
	return AttrValue{Values: values, List: true}
}

// String joins list values with ", ".
func (v AttrValue) String() string { return strings.Join(v.Values, ", ") }

func (v AttrValue) MarshalJSON() ([]byte, error) {
	if v.List {
		vals := v.Values
		if vals == nil {
			vals = []string{}
		}
		return json.Marshal(vals)
	}
	if len(v.Values) == 0 {
		return json.Marshal("")
	}
	return json.Marshal(v.Values[0])
}

func (v *AttrValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*v = Str(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*v = List(list...)
		return nil
	}
	return errors.Newf("document: attribute value must be a string or list of strings, got %s", b)
}
