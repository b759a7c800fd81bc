package wire

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
)

// Compress brotli-compresses a serialized chunk-batch payload, for the
// optional `.pb.br`-style on-disk encoding named in §6.3.
func Compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(b []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(b))
	return io.ReadAll(r)
}
