package document

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-yaml"
)

// FormatFromContentType maps an HTTP Content-Type to a FormatType.
// Anything that is not YAML is treated as JSON.
func FormatFromContentType(ct string) FormatType {
	ct = strings.ToLower(ct)
	if strings.Contains(ct, "yaml") {
		return FormatYAML
	}
	return FormatJSON
}

// FormatFromPath picks a FormatType from a file extension.
func FormatFromPath(path string) FormatType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Decode unmarshals JSON or YAML into v. YAML is converted to JSON first so
// the json struct tags are the only schema.
func Decode(data []byte, format FormatType, v any) error {
	if format == FormatYAML {
		js, err := yaml.YAMLToJSON(data)
		if err != nil {
			return errors.Wrap(err, "document: yaml")
		}
		data = js
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "document: decode")
	}
	return nil
}

// DecodeDocument decodes an annotated document.
func DecodeDocument(data []byte, format FormatType) (*AnnotatedDocument, error) {
	var doc AnnotatedDocument
	if err := Decode(data, format, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DecodeRequest decodes an extraction request.
func DecodeRequest(data []byte, format FormatType) (*Request, error) {
	var req Request
	if err := Decode(data, format, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
