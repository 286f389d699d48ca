package provider

import "unicode"

// Chunk is a slice of a document's text. Start is its code point offset in
// the full text.
type Chunk struct {
	Start int
	Text  string
}

// Chunks splits text into pieces of at most maxChars code points, breaking
// after sentence punctuation or whitespace in the second half of a window
// when possible. maxChars <= 0 yields the whole text as one chunk.
func Chunks(text string, maxChars int) []Chunk {
	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return []Chunk{{Start: 0, Text: text}}
	}

	var out []Chunk
	for start := 0; start < len(runes); {
		end := start + maxChars
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakPoint(runes, start, end)
		}
		out = append(out, Chunk{Start: start, Text: string(runes[start:end])})
		start = end
	}
	return out
}

// breakPoint returns the best cut in (start, end]: just after the last
// sentence end, else after the last space, else end itself.
func breakPoint(runes []rune, start, end int) int {
	lo := start + (end-start)/2
	space := -1
	for i := end - 1; i >= lo; i-- {
		switch r := runes[i]; {
		case isSentenceEnd(r):
			return i + 1
		case space < 0 && unicode.IsSpace(r):
			space = i + 1
		}
	}
	if space > 0 {
		return space
	}
	return end
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '\n', '。', '！', '？', '；':
		return true
	}
	return false
}
