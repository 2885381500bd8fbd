package pack

import "github.com/deliveryhero/celery-go/internal/errs"

// Packer composes a Serializer, Compressor and ByteEncoder into one
// pack/unpack pipeline.
type Packer struct {
	Serializer  Serializer
	Compressor  Compressor
	ByteEncoder ByteEncoder
}

// NewPacker builds a Packer from its three stages.
func NewPacker(s Serializer, c Compressor, e ByteEncoder) *Packer {
	return &Packer{Serializer: s, Compressor: c, ByteEncoder: e}
}

// DefaultPacker is Json/Identity/Base64, the default configuration.
func DefaultPacker() *Packer {
	return NewPacker(JSONSerializer{}, IdentityCompressor{}, Base64Encoder{})
}

// Pack serializes, compresses and encodes v into a transport string.
func (p *Packer) Pack(v any) (string, error) {
	raw, err := p.Serializer.Marshal(v)
	if err != nil {
		return "", err
	}
	compressed, err := p.Compressor.Compress(raw)
	if err != nil {
		return "", err
	}
	if _, ok := p.ByteEncoder.(PlaintextEncoder); ok {
		if p.Compressor.Name() != (IdentityCompressor{}).Name() {
			return "", errs.NewParseError("", "plaintext encoding requires the identity compressor", nil)
		}
	}
	return p.ByteEncoder.Encode(compressed)
}

// Unpack decodes, decompresses and deserializes s into out.
func (p *Packer) Unpack(s string, out any) error {
	compressed, err := p.ByteEncoder.Decode(s)
	if err != nil {
		return err
	}
	raw, err := p.Compressor.Decompress(compressed)
	if err != nil {
		return err
	}
	return p.Serializer.Unmarshal(raw, out)
}
