package main

import (
	"html/template"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/gonkalabs/langextract-go/internal/document"
	"github.com/gonkalabs/langextract-go/internal/overlay"
)

type renderT struct {
	out     string
	format  string
	current int
	title   string
}

func newRenderCmd() *cobra.Command {
	r := &renderT{}
	cmd := &cobra.Command{
		Use:   "render <document>",
		Short: "render an annotated document as highlighted HTML",
		Long: `
Render an annotated document (JSON or YAML, "-" for stdin) as a standalone
HTML page with highlighted extractions, a class legend and statistics.
`,
		Args: cobra.ExactArgs(1),
		RunE: r.run,
	}
	cmd.Flags().StringVarP(&r.out, "out", "o", "", "write the page to this file instead of stdout")
	cmd.Flags().StringVar(&r.format, "format", "", "input format, json or yaml (default: from the file extension)")
	cmd.Flags().IntVar(&r.current, "current", overlay.NoCurrent, "index of the extraction to mark as current")
	cmd.Flags().StringVar(&r.title, "title", "LangExtract", "page title")
	return cmd
}

func (r *renderT) run(cmd *cobra.Command, args []string) error {
	src := args[0]
	var (
		data []byte
		err  error
	)
	if src == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return errors.Wrap(err, "read document")
	}

	format := document.FormatType(r.format)
	if format == "" {
		format = document.FormatFromPath(src)
	}
	doc, err := document.DecodeDocument(data, format)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if r.out != "" {
		f, err := os.Create(r.out)
		if err != nil {
			return errors.Wrap(err, "create output")
		}
		defer f.Close()
		w = f
	}
	return renderPage(w, r.title, doc, r.current)
}

type page struct {
	Title   string
	DocID   string
	Markup  template.HTML
	Legend  []overlay.LegendEntry
	Stats   overlay.Stats
	Density int
}

// renderPage writes doc as a standalone page. current is an index into the
// ordered positioned extractions, or overlay.NoCurrent.
func renderPage(w io.Writer, title string, doc *document.AnnotatedDocument, current int) error {
	ordered := overlay.Order(doc.Extractions)
	if current != overlay.NoCurrent && (current < 0 || current >= len(ordered)) {
		return errors.Newf("--current %d out of range, document has %d positioned extractions", current, len(ordered))
	}
	colors := overlay.AssignColors(ordered)
	stats := overlay.ComputeStats(ordered)
	return pageTmpl.Execute(w, page{
		Title: title,
		DocID: doc.DocumentID,
		// Render escapes the document text itself.
		Markup:  template.HTML(overlay.Render(doc.Text, ordered, colors, current)),
		Legend:  colors.Legend(),
		Stats:   stats,
		Density: stats.Density(doc.Text),
	})
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 60rem; margin: 2rem auto; color: #202124; }
.text { line-height: 1.8; white-space: pre-wrap; border: 1px solid #dadce0; border-radius: 6px; padding: 1rem; }
.current-highlight { outline: 2px solid #ff4444; font-weight: 600; }
.legend span { display: inline-block; margin: 0 .5rem .5rem 0; padding: 2px 8px; border-radius: 3px; }
table { border-collapse: collapse; margin-top: 1rem; }
td, th { padding: 2px 12px; text-align: left; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{with .DocID}}<p>Document <code>{{.}}</code></p>{{end}}
<div class="legend">{{range .Legend}}<span style="background-color: {{.Color}}">{{.Class}}</span>{{end}}</div>
<div class="text">{{.Markup}}</div>
<table>
<tr><th>Extractions</th><td>{{.Stats.Total}}</td></tr>
<tr><th>Classes</th><td>{{.Stats.UniqueClasses}}</td></tr>
<tr><th>Density</th><td>{{.Density}} per 1000 chars</td></tr>
{{range .Stats.Distribution}}<tr><td>{{.Class}}</td><td>{{.Count}}</td></tr>
{{end}}</table>
</body>
</html>
`))
