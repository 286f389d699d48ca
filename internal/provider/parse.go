package provider

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-yaml"

	"github.com/gonkalabs/langextract-go/internal/document"
)

// Item is one extraction as returned by a model, before alignment.
type Item struct {
	Class      string
	Text       string
	Attributes document.Attributes
}

// ParseItems pulls the list of extractions out of a model answer. It
// tolerates <think> blocks, code fences and prose around the list, a
// wrapping {"extractions": [...]} object, and the keyed form
// {"<class>": "<text>", "<class>_attributes": {...}}. Items without a class
// or text are dropped.
func ParseItems(content string, format document.FormatType) ([]Item, error) {
	content = stripCodeFence(stripThinkBlock(strings.TrimSpace(content)))
	if content == "" {
		return nil, errors.Wrap(ErrBadResponse, "empty content")
	}

	data := []byte(content)
	if format == document.FormatYAML {
		// Models asked for YAML still answer in JSON often enough; JSON is
		// valid YAML so this conversion handles both.
		if js, err := yaml.YAMLToJSON(data); err == nil {
			data = js
		}
	}

	raw, err := decodeList(data)
	if err != nil {
		// Last resort: dig the first [...] out of wherever it is.
		raw, err = decodeList([]byte(extractJSONArray(content)))
		if err != nil {
			return nil, errors.Wrapf(ErrBadResponse, "parse %s: %v", format, err)
		}
	}

	items := make([]Item, 0, len(raw))
	for _, obj := range raw {
		items = append(items, normalize(obj)...)
	}
	return items, nil
}

func decodeList(data []byte) ([]map[string]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	var list []map[string]json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Extractions []map[string]json.RawMessage `json:"extractions"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Extractions == nil {
		return nil, errors.New("no extraction list found")
	}
	return wrapped.Extractions, nil
}

func normalize(obj map[string]json.RawMessage) []Item {
	if cls, ok := obj["extraction_class"]; ok {
		it := Item{
			Class:      scalarString(cls),
			Text:       scalarString(obj["extraction_text"]),
			Attributes: attributes(obj["attributes"]),
		}
		if it.Class == "" || it.Text == "" {
			return nil
		}
		return []Item{it}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		if strings.HasSuffix(k, "_attributes") || k == "extraction_index" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var items []Item
	for _, k := range keys {
		text := scalarString(obj[k])
		if text == "" {
			continue
		}
		items = append(items, Item{Class: k, Text: text, Attributes: attributes(obj[k+"_attributes"])})
	}
	return items
}

// scalarString returns a JSON string's value, or the literal text of a
// number or bool. Anything else yields "".
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	switch raw[0] {
	case '{', '[', 'n':
		return ""
	}
	return string(raw)
}

func attributes(raw json.RawMessage) document.Attributes {
	var m map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &m) != nil || len(m) == 0 {
		return nil
	}
	out := make(document.Attributes, len(m))
	for k, v := range m {
		v = bytes.TrimSpace(v)
		if len(v) > 0 && v[0] == '[' {
			var list []json.RawMessage
			if json.Unmarshal(v, &list) != nil {
				continue
			}
			vals := make([]string, 0, len(list))
			for _, e := range list {
				if s := scalarString(e); s != "" {
					vals = append(vals, s)
				}
			}
			out[k] = document.List(vals...)
			continue
		}
		if s := scalarString(v); s != "" {
			out[k] = document.Str(s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// extractJSONArray finds the first [...] substring in s.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	if start < 0 {
		return s
	}
	end := strings.LastIndex(s, "]")
	if end < start {
		return s
	}
	return s[start : end+1]
}

// stripThinkBlock removes a <think>...</think> block that reasoning models
// put before the actual answer.
func stripThinkBlock(s string) string {
	const open, close = "<think>", "</think>"
	start := strings.Index(s, open)
	if start < 0 {
		return s
	}
	end := strings.Index(s, close)
	if end < 0 {
		// Unclosed block - drop everything from <think> onwards.
		return strings.TrimSpace(s[:start])
	}
	return strings.TrimSpace(s[:start] + s[end+len(close):])
}

// stripCodeFence removes ```json ... ``` or ``` ... ``` wrappers.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
