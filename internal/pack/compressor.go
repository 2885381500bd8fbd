package pack

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"io"

	"github.com/deliveryhero/celery-go/internal/errs"
)

// Compressor transforms bytes to bytes and back. Identity is a pass-through.
type Compressor interface {
	Name() string
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// IdentityCompressor is a no-op Compressor.
type IdentityCompressor struct{}

func (IdentityCompressor) Name() string                           { return "identity" }
func (IdentityCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (IdentityCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }

// ZlibCompressor wraps compress/zlib.
type ZlibCompressor struct{}

func (ZlibCompressor) Name() string { return "zlib" }

func (ZlibCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, errs.NewParseError("", "zlib compress failed", err)
	}
	if err := w.Close(); err != nil {
		return nil, errs.NewParseError("", "zlib compress failed", err)
	}
	return buf.Bytes(), nil
}

func (ZlibCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errs.NewParseError("", "zlib decompress failed", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.NewParseError("", "zlib decompress failed", err)
	}
	return out, nil
}

// GzipCompressor wraps compress/gzip.
type GzipCompressor struct{}

func (GzipCompressor) Name() string { return "gzip" }

func (GzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, errs.NewParseError("", "gzip compress failed", err)
	}
	if err := w.Close(); err != nil {
		return nil, errs.NewParseError("", "gzip compress failed", err)
	}
	return buf.Bytes(), nil
}

func (GzipCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errs.NewParseError("", "gzip decompress failed", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.NewParseError("", "gzip decompress failed", err)
	}
	return out, nil
}
