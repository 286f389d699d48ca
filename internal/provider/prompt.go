package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/gonkalabs/langextract-go/internal/document"
)

// Prompt is a two-part chat prompt.
type Prompt struct {
	System string
	User   string
}

// exampleItem is how few-shot extractions are shown to the model; it is
// also the shape ParseItems expects back.
type exampleItem struct {
	ExtractionClass string              `json:"extraction_class"`
	ExtractionText  string              `json:"extraction_text"`
	Attributes      document.Attributes `json:"attributes,omitempty"`
}

// BuildPrompt renders the instructions, examples and the text to extract
// from. text is the chunk being processed, which may be a slice of
// req.Text.
func BuildPrompt(req *document.Request, text string) Prompt {
	format := req.Format()

	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(req.PromptDescription))
	sb.WriteString("\n\n")
	if ctx := strings.TrimSpace(req.AdditionalContext); ctx != "" {
		sb.WriteString("Additional context: ")
		sb.WriteString(ctx)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Examples\n")
	for i, ex := range req.Examples {
		sb.WriteString(fmt.Sprintf("### Example %d\nText: %s\nExtractions:\n", i+1, ex.Text))
		sb.WriteString(renderExamples(ex.Extractions, format))
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Instructions\n")
	if format == document.FormatYAML {
		sb.WriteString("Respond with ONLY a YAML list of extractions in the same shape as the examples.\n")
	} else {
		sb.WriteString("Respond with ONLY a JSON array of extractions in the same shape as the examples.\n")
	}
	sb.WriteString("Rules:\n")
	sb.WriteString("- extraction_text must be copied verbatim from the text, in order of appearance.\n")
	sb.WriteString("- Do not paraphrase and do not overlap extractions.\n")
	sb.WriteString("- Return an empty list if nothing matches.\n")

	return Prompt{
		System: sb.String(),
		User:   "Text to extract from:\n" + text,
	}
}

func renderExamples(exts []document.Extraction, format document.FormatType) string {
	items := make([]exampleItem, len(exts))
	for i, e := range exts {
		items[i] = exampleItem{ExtractionClass: e.ExtractionClass, ExtractionText: e.ExtractionText, Attributes: e.Attributes}
	}
	// Marshal through JSON first so attribute values keep their shape.
	js, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "[]"
	}
	if format != document.FormatYAML {
		return string(js)
	}
	y, err := yaml.JSONToYAML(js)
	if err != nil {
		return string(js)
	}
	return strings.TrimSpace(string(y))
}
