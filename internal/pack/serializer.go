// Package pack implements the Packer encoding pipeline: Serializer x
// Compressor x ByteEncoder, composed into Pack/Unpack.
package pack

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/deliveryhero/celery-go/internal/errs"
)

// Serializer turns a value into UTF-8 bytes and back.
type Serializer interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, out any) error
}

// JSONSerializer implements Serializer over encoding/json.
type JSONSerializer struct{}

func (JSONSerializer) Name() string { return "json" }

func (JSONSerializer) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errs.NewParseError("", "json marshal failed", err)
	}
	return b, nil
}

func (JSONSerializer) Unmarshal(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return errs.NewParseError(string(data), "json unmarshal failed", err)
	}
	return nil
}

// YAMLSerializer implements Serializer over gopkg.in/yaml.v3. YAML cannot
// round-trip values yaml.Marshal refuses to encode (e.g. channels, funcs);
// Marshal surfaces that as a pack-time ParseError rather than silently
// dropping the value.
type YAMLSerializer struct{}

func (YAMLSerializer) Name() string { return "yaml" }

func (YAMLSerializer) Marshal(v any) (b []byte, err error) {
	// yaml.v3 panics, rather than returning an error, on some unsupported
	// types such as channels.
	defer func() {
		if r := recover(); r != nil {
			b, err = nil, errs.NewParseError("", "yaml marshal failed", fmt.Errorf("%v", r))
		}
	}()
	b, err = yaml.Marshal(v)
	if err != nil {
		return nil, errs.NewParseError("", "yaml marshal failed", err)
	}
	return b, nil
}

func (YAMLSerializer) Unmarshal(data []byte, out any) error {
	if err := yaml.Unmarshal(data, out); err != nil {
		return errs.NewParseError(string(data), "yaml unmarshal failed", err)
	}
	return nil
}
