package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// lz4FrameMagic starts every LZ4 frame (0x184D2204, little endian).
var lz4FrameMagic = []byte{0x04, 0x22, 0x4d, 0x18}

// Codec serializes sink payloads as JSON, optionally LZ4-framed.
type Codec struct {
	Compress bool
}

// Encode marshals v and compresses it when configured.
func (c Codec) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	if !c.Compress {
		return data, nil
	}

	var buf bytes.Buffer

	zw := lz4.NewWriter(&buf)

	_, err = zw.Write(data)
	if err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}

	err = zw.Close()
	if err != nil {
		return nil, fmt.Errorf("close lz4 frame: %w", err)
	}

	return buf.Bytes(), nil
}

// Decode unmarshals data into v. Compressed payloads are detected by their
// frame magic, so a reader never needs to know how a payload was written.
func (c Codec) Decode(data []byte, v any) error {
	if bytes.HasPrefix(data, lz4FrameMagic) {
		plain, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return fmt.Errorf("decompress payload: %w", err)
		}

		data = plain
	}

	err := json.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	return nil
}
