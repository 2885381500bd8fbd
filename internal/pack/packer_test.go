package pack

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

type sample struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

func TestDefaultPackerRoundTrip(t *testing.T) {
	p := DefaultPacker()
	in := sample{Name: "x", Count: 3}

	s, err := p.Pack(in)
	if err != nil {
		t.Fatal(err)
	}

	var out sample
	if err := p.Unpack(s, &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestPackerZlibBase64RoundTrip(t *testing.T) {
	p := NewPacker(JSONSerializer{}, ZlibCompressor{}, Base64Encoder{})
	in := sample{Name: "zlib-case", Count: 99}

	s, err := p.Pack(in)
	if err != nil {
		t.Fatal(err)
	}
	var out sample
	if err := p.Unpack(s, &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestPackerGzipBase64RoundTrip(t *testing.T) {
	p := NewPacker(YAMLSerializer{}, GzipCompressor{}, Base64Encoder{})
	in := sample{Name: "gzip-case", Count: 7}

	s, err := p.Pack(in)
	if err != nil {
		t.Fatal(err)
	}
	var out sample
	if err := p.Unpack(s, &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestPackerPlaintextRequiresIdentityCompressor(t *testing.T) {
	p := NewPacker(JSONSerializer{}, ZlibCompressor{}, PlaintextEncoder{})
	if _, err := p.Pack(sample{Name: "x"}); err == nil {
		t.Fatal("expected error pairing plaintext encoder with zlib compressor")
	}
}

func TestPackerPlaintextIdentityRoundTrip(t *testing.T) {
	p := NewPacker(JSONSerializer{}, IdentityCompressor{}, PlaintextEncoder{})
	in := sample{Name: "plain", Count: 1}

	s, err := p.Pack(in)
	if err != nil {
		t.Fatal(err)
	}
	var out sample
	if err := p.Unpack(s, &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestYAMLSerializerRejectsUnsupportedValue(t *testing.T) {
	s := YAMLSerializer{}
	if _, err := s.Marshal(make(chan int)); err == nil {
		t.Fatal("expected error marshaling a channel via yaml")
	}
}

func TestDefaultPackerOutputMatchesBase64OfUTF8JSON(t *testing.T) {
	p := DefaultPacker()
	v := map[string]any{
		"arr": []any{0, 5, 10},
		"num": 15,
		"obj": map[string]any{"bar": 10, "foo": 5},
		"str": "foo",
	}

	got, err := p.Pack(v)
	if err != nil {
		t.Fatal(err)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	want := base64.StdEncoding.EncodeToString(raw)

	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBase64EncoderRejectsInvalidInput(t *testing.T) {
	e := Base64Encoder{}
	if _, err := e.Decode("not base64!!"); err == nil {
		t.Fatal("expected decode error for invalid base64")
	}
}
