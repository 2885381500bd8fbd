package pack

import (
	"encoding/base64"
	"unicode/utf8"

	"github.com/deliveryhero/celery-go/internal/errs"
)

// ByteEncoder turns compressed bytes into a transport string and back.
type ByteEncoder interface {
	Name() string
	Encode(data []byte) (string, error)
	Decode(s string) ([]byte, error)
}

// PlaintextEncoder passes bytes through as a string; it requires the bytes
// to already be valid UTF-8, which only holds when paired with the
// Identity compressor — Packer.Pack rejects any other pairing.
type PlaintextEncoder struct{}

func (PlaintextEncoder) Name() string { return "plaintext" }

func (PlaintextEncoder) Encode(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errs.NewParseError("", "plaintext encoding requires valid UTF-8 bytes", nil)
	}
	return string(data), nil
}

func (PlaintextEncoder) Decode(s string) ([]byte, error) {
	return []byte(s), nil
}

// Base64Encoder uses standard base64 (encoding/base64), always.
type Base64Encoder struct{}

func (Base64Encoder) Name() string { return "base64" }

func (Base64Encoder) Encode(data []byte) (string, error) {
	return base64.StdEncoding.EncodeToString(data), nil
}

func (Base64Encoder) Decode(s string) ([]byte, error) {
	out, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.NewParseError(s, "invalid base64", err)
	}
	return out, nil
}
