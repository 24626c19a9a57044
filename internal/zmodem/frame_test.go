package zmodem

import "testing"

func TestHexFrameRoundTrip(t *testing.T) {
	f := NewPositionFrame(ZRPOS, Hex, 1000)
	data := SerializeHex(f)

	// parseHexFrame expects the bytes after the ZPAD ZPAD ZDLE 'B'
	// preamble is included per its contract (it skips the first 4 bytes
	// itself), so feed the full serialized frame.
	got, err := parseHexFrame(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Type != ZRPOS || got.Position() != 1000 {
		t.Errorf("got %+v", got)
	}
}

func TestBinary16FrameRoundTrip(t *testing.T) {
	f := NewPositionFrame(ZDATA, Bin16, 42)
	data := SerializeBinary(f, false)

	got, err := parseBinaryFrame(data[3:], false)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Type != ZDATA || got.Position() != 42 {
		t.Errorf("got %+v", got)
	}
}

func TestBinary32FrameRoundTrip(t *testing.T) {
	f := NewPositionFrame(ZEOF, Bin32, 123456)
	data := SerializeBinary(f, true)

	got, err := parseBinaryFrame(data[3:], true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Type != ZEOF || got.Position() != 123456 {
		t.Errorf("got %+v", got)
	}
}

func TestSerializeParseViaParser(t *testing.T) {
	for _, f := range []Frame{
		{Type: ZRQINIT, Encoding: Hex},
		NewPositionFrame(ZRPOS, Hex, 77),
		NewPositionFrame(ZDATA, Bin16, 200),
		NewPositionFrame(ZEOF, Bin32, 9999),
	} {
		data := Serialize(f)
		p := NewParser()
		results := p.Feed(data)
		if len(results) != 1 {
			t.Fatalf("expected 1 result for %+v, got %d", f, len(results))
		}
		if results[0].Err != nil {
			t.Fatalf("parse error for %+v: %v", f, results[0].Err)
		}
		got := results[0].Frame
		if got.Type != f.Type || got.Position() != f.Position() {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, f)
		}
	}
}

func TestHexFrameCrcMismatch(t *testing.T) {
	f := NewPositionFrame(ZRPOS, Hex, 1000)
	data := SerializeHex(f)
	// Flip one header hex digit so it no longer matches its trailing CRC.
	if data[5] == '0' {
		data[5] = '1'
	} else {
		data[5] = '0'
	}
	_, err := parseHexFrame(data)
	if err == nil {
		t.Fatal("expected crc mismatch error")
	}
}
