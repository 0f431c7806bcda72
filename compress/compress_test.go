package compress

import (
	"bytes"
	"errors"
	"testing"

	"jparque/storage"
)

func TestRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 64)

	codecs := []Codec{Uncompressed, Snappy, Gzip, Zstd}
	for _, c := range codecs {
		c := c
		t.Run(c.String(), func(t *testing.T) {
			comp, err := ForCodec(c)
			if err != nil {
				t.Fatalf("ForCodec(%s): %v", c, err)
			}
			encoded, err := comp.Compress(payload)
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}
			decoded, err := comp.Decompress(encoded, len(payload))
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if !bytes.Equal(decoded, payload) {
				t.Fatalf("round trip mismatch for %s", c)
			}
		})
	}
}

func TestDecompressLengthMismatch(t *testing.T) {
	comp, err := ForCodec(Gzip)
	if err != nil {
		t.Fatal(err)
	}
	encoded, err := comp.Compress([]byte("hello world"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := comp.Decompress(encoded, 3); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestUnsupportedCodec(t *testing.T) {
	for _, c := range []Codec{LZO, Brotli, LZ4, Codec(99)} {
		if _, err := ForCodec(c); !errors.Is(err, storage.ErrUnsupported) {
			t.Fatalf("ForCodec(%v): expected ErrUnsupported, got %v", c, err)
		}
	}
}
