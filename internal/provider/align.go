package provider

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gonkalabs/langextract-go/internal/document"
)

// Align locates every item's text in source and returns extractions with
// character intervals (code point offsets). Items are searched in order,
// each starting at the end of the previous match so repeated strings map
// to successive occurrences; when that fails the whole text is searched.
// Exact matches get match_exact, case-insensitive ones match_fuzzy, and
// text that cannot be found is returned unpositioned.
func Align(source string, items []Item) []document.Extraction {
	text := []rune(source)
	lower := []rune(strings.ToLower(source))

	out := make([]document.Extraction, 0, len(items))
	cursor := 0
	for i, it := range items {
		idx := i
		e := document.Extraction{
			ExtractionClass: it.Class,
			ExtractionText:  it.Text,
			ExtractionIndex: &idx,
			Attributes:      it.Attributes,
		}

		needle := []rune(it.Text)
		status := document.MatchExact
		start := locate(text, needle, cursor)
		if start < 0 {
			status = document.MatchFuzzy
			start = locate(lower, []rune(strings.ToLower(it.Text)), cursor)
		}
		if start >= 0 {
			end := start + len(needle)
			e.CharInterval = document.Interval(start, end)
			st := status
			e.AlignmentStatus = &st
			cursor = end
		}
		out = append(out, e)
	}
	return out
}

// locate finds needle in hay, preferring an occurrence at or after from
// that does not sit inside a longer ASCII word.
func locate(hay, needle []rune, from int) int {
	if len(needle) == 0 || len(needle) > len(hay) {
		return -1
	}
	if i := scan(hay, needle, from, true); i >= 0 {
		return i
	}
	if i := scan(hay, needle, from, false); i >= 0 {
		return i
	}
	if from > 0 {
		if i := scan(hay, needle, 0, true); i >= 0 {
			return i
		}
		return scan(hay, needle, 0, false)
	}
	return -1
}

func scan(hay, needle []rune, from int, wholeWord bool) int {
	for i := from; i+len(needle) <= len(hay); i++ {
		if !equalAt(hay, needle, i) {
			continue
		}
		if wholeWord && isInsideToken(hay, i, i+len(needle)) {
			continue
		}
		return i
	}
	return -1
}

func equalAt(hay, needle []rune, at int) bool {
	for j, r := range needle {
		if hay[at+j] != r {
			return false
		}
	}
	return true
}

// isInsideToken reports whether [start,end) cuts through an ASCII word,
// like "Tim" inside "Timothy". Scripts without spaces between words never
// count as inside.
func isInsideToken(text []rune, start, end int) bool {
	if start > 0 && isWordRune(text[start-1]) && isWordRune(text[start]) {
		return true
	}
	if end < len(text) && isWordRune(text[end-1]) && isWordRune(text[end]) {
		return true
	}
	return false
}

func isWordRune(r rune) bool {
	return r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
}
