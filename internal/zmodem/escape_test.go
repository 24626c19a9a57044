package zmodem

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestEscapeRoundTripPlainBytes(t *testing.T) {
	data := []byte("plain ascii text with no special bytes at all")
	enc := escapeEncode(data)
	dec, err := escapeDecode(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(dec, data) {
		t.Errorf("round trip mismatch: got %q, want %q", dec, data)
	}
}

func TestEscapeRoundTripArbitraryBytes(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	data := make([]byte, 4096)
	r.Read(data)

	enc := escapeEncode(data)
	for _, b := range escapedBytes {
		_ = b
	}
	dec, err := escapeDecode(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(dec, data) {
		t.Fatalf("round trip mismatch over %d random bytes", len(data))
	}
}

func TestEscapeEncodesAllSpecialBytes(t *testing.T) {
	for b := range escapedBytes {
		enc := escapeEncode([]byte{b})
		if len(enc) != 2 || enc[0] != ZDLE || enc[1] != b^0x40 {
			t.Errorf("byte %#x not escaped correctly: %v", b, enc)
		}
	}
}

func TestEscapeDecodeTrailingZDLEFails(t *testing.T) {
	_, err := escapeDecode([]byte{'a', ZDLE})
	if err != ErrInvalidEscape {
		t.Errorf("got %v, want ErrInvalidEscape", err)
	}
}
