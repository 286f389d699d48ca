package overlay

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonkalabs/langextract-go/internal/document"
)

func ext(class string, ci *document.CharInterval) document.Extraction {
	return document.Extraction{ExtractionClass: class, ExtractionText: class, CharInterval: ci}
}

func sample() []document.Extraction {
	three := 3
	return []document.Extraction{
		ext("person", document.Interval(10, 18)),
		ext("org", nil),
		ext("org", document.Interval(0, 5)),
		ext("money", &document.CharInterval{StartPos: &three}),
		ext("person", document.Interval(20, 25)),
		ext("date", document.Interval(30, 34)),
	}
}

func TestFilter(t *testing.T) {
	got := Filter(sample())
	require.Len(t, got, 4)
	assert.Equal(t, []string{"person", "org", "person", "date"}, classes(got))
	assert.Equal(t, got, Filter(got), "filter is idempotent")
	assert.Empty(t, Filter(nil))
}

func TestOrder(t *testing.T) {
	exts := []document.Extraction{
		ext("b", document.Interval(4, 6)),
		ext("short", document.Interval(0, 2)),
		ext("long", document.Interval(0, 9)),
		ext("tie1", document.Interval(4, 6)),
		ext("none", nil),
	}
	assert.Equal(t, []string{"long", "short", "b", "tie1"}, classes(Order(exts)))
}

func TestAssignColors(t *testing.T) {
	exts := sample()
	colors := AssignColors(exts)
	// "money" is never positioned and gets no color.
	assert.Equal(t, ColorMap{
		"date":   Palette[0],
		"org":    Palette[1],
		"person": Palette[2],
	}, colors)

	reversed := make([]document.Extraction, len(exts))
	for i := range exts {
		reversed[len(exts)-1-i] = exts[i]
	}
	assert.Equal(t, colors, AssignColors(reversed))

	assert.Equal(t, []LegendEntry{
		{Class: "date", Color: Palette[0]},
		{Class: "org", Color: Palette[1]},
		{Class: "person", Color: Palette[2]},
	}, colors.Legend())
	assert.Equal(t, DefaultColor, colors.Color("money"))
}

func TestAssignColorsWrapsPalette(t *testing.T) {
	var exts []document.Extraction
	for i := 0; i < len(Palette)+2; i++ {
		exts = append(exts, ext(fmt.Sprintf("c%02d", i), document.Interval(i, i+1)))
	}
	colors := AssignColors(exts)
	assert.Equal(t, Palette[0], colors["c10"])
	assert.Equal(t, Palette[1], colors["c11"])
	assert.Empty(t, AssignColors(nil))
}

func TestComputeStats(t *testing.T) {
	exts := sample()
	s := ComputeStats(exts)
	assert.Equal(t, len(Filter(exts)), s.Total)
	assert.Equal(t, 3, s.UniqueClasses)
	assert.Equal(t, []ClassCount{
		{Class: "person", Count: 2},
		{Class: "org", Count: 1},
		{Class: "date", Count: 1},
	}, s.Distribution)

	empty := ComputeStats(nil)
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.UniqueClasses)
	assert.NotNil(t, empty.Distribution)
	assert.Zero(t, empty.Density(""))
}

func TestStatsDensity(t *testing.T) {
	s := Stats{Total: 2}
	assert.Equal(t, 111, s.Density("Apple CEO Tim Cook"))
	assert.Equal(t, 500, s.Density("人物公司"))
}

func TestContext(t *testing.T) {
	text := "0123456789"
	tests := []struct {
		name          string
		ci            *document.CharInterval
		chars         int
		before, after string
	}{
		{name: "middle", ci: document.Interval(4, 6), chars: 2, before: "23", after: "67"},
		{name: "at start", ci: document.Interval(0, 2), chars: 3, before: "", after: "234"},
		{name: "clamped end", ci: document.Interval(8, 10), chars: 5, before: "34567", after: ""},
		{name: "past the end", ci: document.Interval(8, 40), chars: 1, before: "7", after: ""},
		{name: "zero chars", ci: document.Interval(4, 6), chars: 0},
		{name: "unpositioned", ci: nil, chars: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ext("x", tt.ci)
			before, after := Context(text, &e, tt.chars)
			assert.Equal(t, tt.before, before)
			assert.Equal(t, tt.after, after)
		})
	}
}

func classes(exts []document.Extraction) []string {
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = e.ExtractionClass
	}
	return out
}
