package overlay

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/gonkalabs/langextract-go/internal/document"
)

// NoCurrent passed as the current index marks no span as current.
const NoCurrent = -1

// Markup produces the wrapper tags and escapes literal text for a renderer.
type Markup interface {
	// Open returns the opening wrapper for the extraction at idx in the
	// ordered sequence.
	Open(idx int, color string, current bool) string
	Close() string
	Escape(s string) string
}

// HTML is the markup used by Render: a styled <span> per extraction with
// its ordered index in data-idx.
var HTML Markup = htmlMarkup{}

type htmlMarkup struct{}

func (htmlMarkup) Open(idx int, color string, current bool) string {
	class := "highlight"
	if current {
		class += " current-highlight"
	}
	return fmt.Sprintf(
		`<span class="%s" data-idx="%d" style="background-color: %s; position: relative; border-radius: 3px; padding: 1px 2px;">`,
		class, idx, color)
}

func (htmlMarkup) Close() string { return "</span>" }

func (htmlMarkup) Escape(s string) string { return html.EscapeString(s) }

type boundary struct {
	pos   int
	close bool
	seq   int // index into the ordered extractions
}

// Render returns text with every positioned extraction wrapped in an HTML
// highlight span. Literal text is escaped; markup is not. current is the
// index, in Order(extractions), of the span to mark as current, or
// NoCurrent.
func Render(text string, extractions []document.Extraction, colors ColorMap, current int) string {
	return RenderWith(HTML, text, extractions, colors, current)
}

// RenderWith is Render with caller supplied markup.
//
// Wrappers are placed by a boundary sweep: an open boundary at each start
// and a close boundary at each end, sorted by position with closes before
// opens at the same offset. Spans sharing a start open longest first, so
// they nest instead of crossing. Offsets outside the text are clamped to it;
// empty and inverted intervals are emitted at their literal positions.
func RenderWith(m Markup, text string, extractions []document.Extraction, colors ColorMap, current int) string {
	ordered := Order(extractions)
	if len(ordered) == 0 {
		return m.Escape(text)
	}

	runes := []rune(text)
	n := len(runes)

	bounds := make([]boundary, 0, 2*len(ordered))
	for i := range ordered {
		start, end, _ := ordered[i].Span()
		bounds = append(bounds,
			boundary{pos: clamp(start, 0, n), seq: i},
			boundary{pos: clamp(end, 0, n), close: true, seq: i},
		)
	}
	sort.SliceStable(bounds, func(i, j int) bool {
		a, b := bounds[i], bounds[j]
		if a.pos != b.pos {
			return a.pos < b.pos
		}
		if a.close != b.close {
			return a.close
		}
		if a.close {
			// Innermost first.
			return a.seq > b.seq
		}
		return a.seq < b.seq
	})

	var sb strings.Builder
	sb.Grow(len(text) + len(ordered)*160)
	cursor := 0
	for _, b := range bounds {
		if b.pos > cursor {
			sb.WriteString(m.Escape(string(runes[cursor:b.pos])))
			cursor = b.pos
		}
		if b.close {
			sb.WriteString(m.Close())
			continue
		}
		cls := ordered[b.seq].ExtractionClass
		sb.WriteString(m.Open(b.seq, colors.Color(cls), b.seq == current))
	}
	if cursor < n {
		sb.WriteString(m.Escape(string(runes[cursor:])))
	}
	return sb.String()
}
