package overlay

import (
	"math"
	"sort"
	"unicode/utf8"

	"github.com/gonkalabs/langextract-go/internal/document"
)

// ClassCount is the number of positioned extractions of one class.
type ClassCount struct {
	Class string `json:"class"`
	Count int    `json:"count"`
}

// Stats summarises the positioned extractions of a document.
type Stats struct {
	Total         int          `json:"total_extractions"`
	UniqueClasses int          `json:"unique_classes"`
	Distribution  []ClassCount `json:"class_distribution"`
}

// ComputeStats counts positioned extractions per class. Unpositioned
// extractions are ignored so the numbers match what is rendered. The
// distribution is sorted by count descending; ties keep first-seen order.
func ComputeStats(extractions []document.Extraction) Stats {
	valid := Filter(extractions)
	index := make(map[string]int)
	dist := make([]ClassCount, 0)
	for _, e := range valid {
		i, ok := index[e.ExtractionClass]
		if !ok {
			i = len(dist)
			index[e.ExtractionClass] = i
			dist = append(dist, ClassCount{Class: e.ExtractionClass})
		}
		dist[i].Count++
	}
	sort.SliceStable(dist, func(i, j int) bool { return dist[i].Count > dist[j].Count })
	return Stats{
		Total:         len(valid),
		UniqueClasses: len(dist),
		Distribution:  dist,
	}
}

// Density returns positioned extractions per thousand characters of text,
// rounded to the nearest integer.
func (s Stats) Density(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(s.Total) / float64(n) * 1000))
}
