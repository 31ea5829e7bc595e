// Package textutil provides byte-level text utilities shared by the model
// builder, the analyzers and the storage layer: text validation, line
// splitting and counting, and byte-slice reader adapters.
package textutil

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

// BinarySniffLength is the maximum number of bytes scanned for null-byte
// detection. Matches the heuristic used by Git and most editors.
const BinarySniffLength = 8000

// Text validation errors.
var (
	ErrBinary      = errors.New("content is binary")
	ErrInvalidUTF8 = errors.New("content is not valid UTF-8")
)

// IsBinary returns true if data contains a null byte within the first
// BinarySniffLength bytes. Empty data is not binary.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	sniff := data
	if len(sniff) > BinarySniffLength {
		sniff = sniff[:BinarySniffLength]
	}

	return bytes.IndexByte(sniff, 0) >= 0
}

// CheckText rejects content that cannot be treated as source text:
// a null byte anywhere or an invalid UTF-8 sequence.
func CheckText(data []byte) error {
	if bytes.IndexByte(data, 0) >= 0 {
		return ErrBinary
	}

	if !utf8.Valid(data) {
		return ErrInvalidUTF8
	}

	return nil
}

// CountLines returns the number of newline-delimited lines in data.
// A non-empty buffer without a trailing newline counts the last partial line.
// Returns 0 for empty data.
func CountLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}

	lines := bytes.Count(data, []byte{'\n'})

	if data[len(data)-1] != '\n' {
		lines++
	}

	return lines
}

// Lines splits text into physical lines without their terminators.
// A trailing newline does not produce an extra empty line, and a carriage
// return before the newline is dropped.
func Lines(text string) []string {
	if text == "" {
		return nil
	}

	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	return lines
}

// BytesReader wraps a byte slice as an [io.ReadCloser].
// The returned closer is a no-op.
func BytesReader(data []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(data))
}
