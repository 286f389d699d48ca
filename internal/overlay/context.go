package overlay

import "github.com/gonkalabs/langextract-go/internal/document"

// DefaultContextChars is the number of characters shown on each side of the
// current extraction.
const DefaultContextChars = 150

// Context returns up to contextChars characters of text immediately before
// and after the extraction's interval. Unpositioned extractions have no
// context.
func Context(text string, e *document.Extraction, contextChars int) (before, after string) {
	start, end, ok := e.Span()
	if !ok {
		return "", ""
	}
	if contextChars < 0 {
		contextChars = 0
	}
	runes := []rune(text)
	n := len(runes)
	start, end = clamp(start, 0, n), clamp(end, 0, n)

	from := clamp(start-contextChars, 0, n)
	to := clamp(end+contextChars, 0, n)
	return string(runes[from:start]), string(runes[end:to])
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
