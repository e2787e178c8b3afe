package storage

import (
	"bytes"
	"encoding/json"

	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Codec serialises snapshots as JSON, optionally zstd-compressed. Decode
// accepts both forms regardless of Compress.
type Codec struct {
	Compress bool
}

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

func (c Codec) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if !c.Compress {
		return data, nil
	}
	return encoder.EncodeAll(data, make([]byte, 0, len(data)/4)), nil
}

func (c Codec) Decode(data []byte, v any) error {
	if bytes.HasPrefix(data, zstdMagic) {
		raw, err := decoder.DecodeAll(data, nil)
		if err != nil {
			return err
		}
		data = raw
	}
	return json.Unmarshal(data, v)
}
