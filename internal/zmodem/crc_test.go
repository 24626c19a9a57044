package zmodem

import "testing"

func TestCRC16StreamingMatchesOneShot(t *testing.T) {
	data := []byte("The quick brown fox jumps over the lazy dog")
	one := CRC16(data)

	streamed := CRC16Update(CRC16Update(0, data[:10]), data[10:])
	if got := CRC16Finalize(streamed); got != one {
		t.Errorf("streamed CRC16 = %#x, want %#x", got, one)
	}
}

func TestCRC32StreamingMatchesOneShot(t *testing.T) {
	data := []byte("Hello, world!\n")
	one := CRC32(data)

	streamed := CRC32Update(CRC32Update(0, data[:5]), data[5:])
	if got := CRC32Finalize(streamed); got != one {
		t.Errorf("streamed CRC32 = %#x, want %#x", got, one)
	}
}

func TestCRC16Empty(t *testing.T) {
	if CRC16(nil) != 0 {
		t.Errorf("CRC16(nil) = %#x, want 0", CRC16(nil))
	}
}
