package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/report.schema.json
var schemaFS embed.FS

const schemaFile = "schema/report.schema.json"

// ErrInvalidDocument is returned for input that is not a JSON object.
var ErrInvalidDocument = errors.New("report: invalid document")

// DocumentKind names a validated document shape.
type DocumentKind string

// Document kinds.
const (
	KindMetricReport  DocumentKind = "metricReport"
	KindBatchReport   DocumentKind = "batchReport"
	KindSuggestionSet DocumentKind = "suggestionSet"
)

// FieldError is one schema violation.
type FieldError struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// ValidationResult is the outcome of a schema check.
type ValidationResult struct {
	Kind   DocumentKind `json:"kind"`
	Errors []FieldError `json:"errors,omitempty"`
}

// Valid reports whether no violation was found.
func (v *ValidationResult) Valid() bool {
	return len(v.Errors) == 0
}

// Schema returns the embedded JSON schema document.
func Schema() ([]byte, error) {
	data, err := schemaFS.ReadFile(schemaFile)
	if err != nil {
		return nil, fmt.Errorf("read embedded schema: %w", err)
	}

	return data, nil
}

// DetectKind guesses the document kind from its top-level keys.
func DetectKind(doc map[string]any) DocumentKind {
	if _, ok := doc["run_id"]; ok {
		return KindBatchReport
	}

	_, hasUnit := doc["unit_id"]
	if _, ok := doc["suggestions"]; ok && !hasUnit {
		return KindSuggestionSet
	}

	return KindMetricReport
}

// Validate checks a JSON document against the embedded schema. The kind is
// detected from the document when empty.
func Validate(data []byte, kind DocumentKind) (*ValidationResult, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc map[string]any

	err := dec.Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if doc == nil {
		return nil, fmt.Errorf("%w: not an object", ErrInvalidDocument)
	}

	if kind == "" {
		kind = DetectKind(doc)
	}

	schema, err := schemaFor(kind)
	if err != nil {
		return nil, err
	}

	result, err := gojsonschema.Validate(schema, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", kind, err)
	}

	out := &ValidationResult{Kind: kind}

	for _, verr := range result.Errors() {
		out.Errors = append(out.Errors, FieldError{Field: verr.Field(), Description: verr.Description()})
	}

	return out, nil
}

// schemaFor roots the shared schema document at one of its definitions.
func schemaFor(kind DocumentKind) (gojsonschema.JSONLoader, error) {
	data, err := Schema()
	if err != nil {
		return nil, err
	}

	var base map[string]any

	err = json.Unmarshal(data, &base)
	if err != nil {
		return nil, fmt.Errorf("parse embedded schema: %w", err)
	}

	defs, _ := base["definitions"].(map[string]any)
	if _, ok := defs[string(kind)]; !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidDocument, kind)
	}

	rooted := maps.Clone(base)
	rooted["$ref"] = "#/definitions/" + string(kind)

	return gojsonschema.NewGoLoader(rooted), nil
}
