// Package mock is a rule-based extractor that needs no model. It tags
// person names, organizations, amounts and dates with simple word patterns
// and is used for demos and tests.
package mock

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gonkalabs/langextract-go/internal/document"
	"github.com/gonkalabs/langextract-go/internal/provider"
)

// Name is the provider name of the mock backend.
const Name = "mock"

var (
	nameIndicators = []string{"先生", "女士", "CEO", "CTO", "总经理", "总裁"}
	orgSuffixes    = []string{"公司", "集团", "科技", "有限公司", "Inc", "Corp", "LLC"}

	latinName = regexp.MustCompile(`^[A-Z][a-z]+$`)
	amount    = regexp.MustCompile(`\d+(\.\d+)?(万|亿|元|美元|USD|$)`)
	date      = regexp.MustCompile(`\d{4}年|\d+月|\d+日|今天|明天|昨天`)
)

// Provider is the rule-based extractor.
type Provider struct {
	latency time.Duration
	now     func() time.Time
}

// New returns a Provider that waits latency before answering.
func New(latency time.Duration) *Provider {
	return &Provider{latency: latency, now: time.Now}
}

func (p *Provider) Name() string { return Name }

// Extract tags req.Text. Every pass produces the same extractions, so
// extra passes only exercise the merge.
func (p *Provider) Extract(ctx context.Context, req *document.Request) (*document.AnnotatedDocument, error) {
	if p.latency > 0 {
		t := time.NewTimer(p.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, provider.Wrap(Name, "wait", ctx.Err())
		case <-t.C:
		}
	}

	exts, err := provider.RunPasses(ctx, req.Passes(), req.Workers(), func(ctx context.Context, _ int) ([]document.Extraction, error) {
		return Generate(req.Text), nil
	})
	if err != nil {
		return nil, provider.Wrap(Name, "extract", err)
	}
	slog.Debug("mock: extracted", "text_len", utf8.RuneCountInString(req.Text), "extractions", len(exts))
	return &document.AnnotatedDocument{
		DocumentID:  provider.DocumentID(Name, p.now()),
		Text:        req.Text,
		Extractions: exts,
	}, nil
}

type word struct {
	text       string
	start, end int // code point offsets
}

// Generate applies the word rules to text. A word may yield several
// extractions; a person name swallows the following word.
func Generate(text string) []document.Extraction {
	words := splitWords(text)
	out := []document.Extraction{}
	add := func(class, value string, start, end int, attrs document.Attributes) {
		idx := len(out)
		status := document.MatchExact
		out = append(out, document.Extraction{
			ExtractionClass: class,
			ExtractionText:  value,
			CharInterval:    document.Interval(start, end),
			AlignmentStatus: &status,
			ExtractionIndex: &idx,
			Attributes:      attrs,
		})
	}

	runes := []rune(text)
	for i := 0; i < len(words); i++ {
		w := words[i]
		var next *word
		if i+1 < len(words) {
			next = &words[i+1]
		}

		if isPersonName(w.text, next) {
			end := w.end
			if next != nil {
				end = next.end
			}
			add("人物", string(runes[w.start:end]), w.start, end, document.Attributes{"类型": document.Str("人名")})
			if next != nil {
				i++
			}
		}
		if isOrganization(w.text) {
			add("机构", w.text, w.start, w.end, document.Attributes{"类型": document.Str("公司")})
		}
		if amount.MatchString(w.text) {
			add("金额", w.text, w.start, w.end, document.Attributes{"单位": document.Str(amountUnit(w.text))})
		}
		if date.MatchString(w.text) {
			add("时间", w.text, w.start, w.end, document.Attributes{"类型": document.Str("日期")})
		}
	}
	return out
}

func splitWords(text string) []word {
	var (
		words []word
		pos   int
		start = -1
		buf   strings.Builder
	)
	flush := func() {
		if start >= 0 {
			words = append(words, word{text: buf.String(), start: start, end: pos})
			buf.Reset()
			start = -1
		}
	}
	for _, r := range text {
		if unicode.IsSpace(r) {
			flush()
		} else {
			if start < 0 {
				start = pos
			}
			buf.WriteRune(r)
		}
		pos++
	}
	flush()
	return words
}

func isPersonName(w string, next *word) bool {
	for _, ind := range nameIndicators {
		if strings.Contains(w, ind) || (next != nil && strings.Contains(next.text, ind)) {
			return true
		}
	}
	return latinName.MatchString(w)
}

func isOrganization(w string) bool {
	for _, s := range orgSuffixes {
		if strings.Contains(w, s) {
			return true
		}
	}
	return false
}

func amountUnit(w string) string {
	switch {
	case strings.Contains(w, "万"):
		return "万元"
	case strings.Contains(w, "亿"):
		return "亿元"
	case strings.Contains(w, "美元"), strings.Contains(w, "USD"):
		return "美元"
	}
	return "元"
}
