package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is an output format.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatPlot Format = "plot"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatText, FormatJSON, FormatYAML, FormatPlot:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

// WriteYAML writes v as YAML.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("close yaml encoder: %w", err)
	}

	return nil
}

// WriteBatch renders a batch report in the given format.
func WriteBatch(w io.Writer, format Format, batch *BatchReport) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, batch)
	case FormatYAML:
		return WriteYAML(w, batch)
	case FormatPlot:
		return WritePlot(w, batch)
	case FormatText, "":
		return NewTextRenderer(TextOptions{}).RenderBatch(w, batch)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// DecodeMetricReport parses a JSON metric report.
func DecodeMetricReport(data []byte) (*MetricReport, error) {
	var r MetricReport

	err := json.Unmarshal(data, &r)
	if err != nil {
		return nil, fmt.Errorf("decode metric report: %w", err)
	}

	return &r, nil
}

// DecodeBatchReport parses a JSON batch report.
func DecodeBatchReport(data []byte) (*BatchReport, error) {
	var b BatchReport

	err := json.Unmarshal(data, &b)
	if err != nil {
		return nil, fmt.Errorf("decode batch report: %w", err)
	}

	return &b, nil
}
