// Package overlay turns a document's extractions into highlighted markup and
// the legend and statistics shown next to it.
//
// Every function in this package is pure: it reads its arguments, allocates
// its result and keeps no state, so callers may use it from any goroutine.
package overlay

import (
	"sort"

	"github.com/gonkalabs/langextract-go/internal/document"
)

// Filter returns the extractions that have a fully resolved character
// interval, preserving their relative order. Nothing else is validated:
// empty, inverted or out-of-range intervals pass through.
func Filter(extractions []document.Extraction) []document.Extraction {
	out := make([]document.Extraction, 0, len(extractions))
	for i := range extractions {
		if extractions[i].Positioned() {
			out = append(out, extractions[i])
		}
	}
	return out
}

// Order filters extractions and sorts them by start ascending, longer span
// first on equal starts. Equal keys keep their input order. The position of
// an extraction in the result is its index for rendering and playback.
func Order(extractions []document.Extraction) []document.Extraction {
	out := Filter(extractions)
	sort.SliceStable(out, func(i, j int) bool {
		si, ei, _ := out[i].Span()
		sj, ej, _ := out[j].Span()
		if si != sj {
			return si < sj
		}
		return ei-si > ej-sj
	})
	return out
}
