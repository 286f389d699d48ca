package overlay

import (
	"sort"

	"github.com/gonkalabs/langextract-go/internal/document"
)

// Palette is the ordered set of highlight colors handed out to classes.
var Palette = []string{
	"#D2E3FC", // light blue
	"#C8E6C9", // light green
	"#FEF0C3", // light yellow
	"#F9DEDC", // light red
	"#FFDDBE", // light orange
	"#EADDFF", // light purple
	"#C4E9E4", // light teal
	"#FCE4EC", // light pink
	"#E8EAED", // very light grey
	"#DDE8E8", // pale cyan
}

// DefaultColor is used for a class that has no entry in the ColorMap.
const DefaultColor = "#ffff8d"

// ColorMap maps an extraction class to its highlight color.
type ColorMap map[string]string

// LegendEntry is one row of the color legend.
type LegendEntry struct {
	Class string `json:"class"`
	Color string `json:"color"`
}

// AssignColors gives every class that has at least one positioned extraction
// a palette color. Classes are sorted by name (code point order) before
// assignment, so the result depends only on the set of classes and not on
// the order of extractions.
func AssignColors(extractions []document.Extraction) ColorMap {
	seen := make(map[string]struct{})
	var classes []string
	for _, e := range Filter(extractions) {
		if _, ok := seen[e.ExtractionClass]; ok {
			continue
		}
		seen[e.ExtractionClass] = struct{}{}
		classes = append(classes, e.ExtractionClass)
	}
	sort.Strings(classes)

	m := make(ColorMap, len(classes))
	for i, cls := range classes {
		m[cls] = Palette[i%len(Palette)]
	}
	return m
}

// Color returns the color for class, or DefaultColor.
func (m ColorMap) Color(class string) string {
	if c, ok := m[class]; ok {
		return c
	}
	return DefaultColor
}

// Legend lists the map's entries sorted by class.
func (m ColorMap) Legend() []LegendEntry {
	out := make([]LegendEntry, 0, len(m))
	for cls, color := range m {
		out = append(out, LegendEntry{Class: cls, Color: color})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Class < out[j].Class })
	return out
}
