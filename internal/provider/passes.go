package provider

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gonkalabs/langextract-go/internal/document"
)

// PassFunc runs one extraction pass. pass is zero based.
type PassFunc func(ctx context.Context, pass int) ([]document.Extraction, error)

// RunPasses runs passes extraction passes, at most workers at a time
// (document.DefaultMaxWorkers when workers <= 0), and merges their results
// with MergePasses.
// The first failing pass cancels the rest and its error is returned.
func RunPasses(ctx context.Context, passes, workers int, fn PassFunc) ([]document.Extraction, error) {
	if passes < 1 {
		passes = 1
	}
	results := make([][]document.Extraction, passes)

	if workers < 1 {
		workers = document.DefaultMaxWorkers
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for p := 0; p < passes; p++ {
		g.Go(func() error {
			exts, err := fn(gctx, p)
			if err != nil {
				return err
			}
			results[p] = exts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return MergePasses(results), nil
}

// MergePasses combines the results of several passes over the same text.
// Earlier passes win: a positioned extraction that overlaps one accepted
// from an earlier pass is dropped. Extractions from the same pass never
// knock each other out. Unpositioned extractions are kept once per
// (class, text). The result is ordered by start offset, then pass, with
// unpositioned extractions last, and extraction indices are renumbered.
func MergePasses(results [][]document.Extraction) []document.Extraction {
	type span struct{ start, end int }
	type unkey struct{ class, text string }

	var (
		accepted   []span
		positioned []document.Extraction
		floating   []document.Extraction
		seen       = make(map[unkey]bool)
	)
	for _, pass := range results {
		var added []span
		for _, e := range pass {
			start, end, ok := e.Span()
			if !ok {
				k := unkey{e.ExtractionClass, e.ExtractionText}
				if !seen[k] {
					seen[k] = true
					floating = append(floating, e)
				}
				continue
			}
			overlaps := false
			for _, a := range accepted {
				if start < a.end && a.start < end {
					overlaps = true
					break
				}
			}
			if overlaps {
				continue
			}
			positioned = append(positioned, e)
			added = append(added, span{start, end})
		}
		accepted = append(accepted, added...)
	}

	sort.SliceStable(positioned, func(i, j int) bool {
		si, _, _ := positioned[i].Span()
		sj, _, _ := positioned[j].Span()
		return si < sj
	})
	out := append(positioned, floating...)
	for i := range out {
		idx := i
		out[i].ExtractionIndex = &idx
	}
	return out
}

// CompleteFunc sends a prompt to a model and returns its raw answer.
type CompleteFunc func(ctx context.Context, p Prompt) (string, error)

// ExtractWith is the extraction loop shared by the model-backed providers:
// each pass walks the request's chunks, asks complete for every chunk,
// parses and aligns the answer and shifts offsets back into the full text.
// Failures are reported as *Error for the named provider.
func ExtractWith(ctx context.Context, name string, req *document.Request, complete CompleteFunc) (*document.AnnotatedDocument, error) {
	chunks := Chunks(req.Text, req.MaxCharBuffer)
	began := time.Now()

	exts, err := RunPasses(ctx, req.Passes(), req.Workers(), func(ctx context.Context, pass int) ([]document.Extraction, error) {
		var out []document.Extraction
		for _, c := range chunks {
			answer, err := complete(ctx, BuildPrompt(req, c.Text))
			if err != nil {
				return nil, Wrap(name, "complete", err)
			}
			items, err := ParseItems(answer, req.Format())
			if err != nil {
				return nil, Wrap(name, "parse", err)
			}
			for _, e := range Align(c.Text, items) {
				shift(&e, c.Start)
				out = append(out, e)
			}
		}
		slog.Debug("provider: pass done", "provider", name, "pass", pass, "extractions", len(out))
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("provider: extracted", "provider", name, "chunks", len(chunks), "passes", req.Passes(),
		"extractions", len(exts), "took", time.Since(began))
	return &document.AnnotatedDocument{
		DocumentID:  DocumentID(name, time.Now()),
		Text:        req.Text,
		Extractions: exts,
	}, nil
}

func shift(e *document.Extraction, by int) {
	start, end, ok := e.Span()
	if !ok || by == 0 {
		return
	}
	e.CharInterval = document.Interval(start+by, end+by)
}
