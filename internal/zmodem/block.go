package zmodem

import "io"

// WriteDataBlock writes one ZDATA data subpacket: ZDLE-escaped payload,
// then ZDLE+marker, then the ZDLE-escaped CRC (CRC-16 big-endian or
// CRC-32 little-endian per useCRC32) computed over payload followed by
// the marker byte.
func WriteDataBlock(w io.Writer, payload []byte, marker byte, useCRC32 bool) error {
	escaped := escapeEncode(payload)
	if _, err := w.Write(escaped); err != nil {
		return err
	}
	if _, err := w.Write([]byte{ZDLE, marker}); err != nil {
		return err
	}

	var crcBytes []byte
	if useCRC32 {
		crc := CRC32Finalize(CRC32Update(CRC32Update(0, payload), []byte{marker}))
		crcBytes = []byte{byte(crc), byte(crc >> 8), byte(crc >> 16), byte(crc >> 24)}
	} else {
		crc := CRC16Finalize(CRC16Update(CRC16Update(0, payload), []byte{marker}))
		crcBytes = []byte{byte(crc >> 8), byte(crc)}
	}
	_, err := w.Write(escapeEncode(crcBytes))
	return err
}

// blockReaderState is the rolling state of the byte-at-a-time data-block
// reader, tolerating fragmentation at every boundary.
type blockReaderState int

const (
	blockReadingData blockReaderState = iota
	blockReadingCRC
)

// maxBlockBytes caps accumulated decoded data to guard against a stream
// that never produces an end marker.
const maxBlockBytes = 8192

// BlockReader incrementally decodes one ZDATA data subpacket: ZDLE-escaped
// data terminated by one of the four block markers, followed by a
// ZDLE-escaped CRC trailer.
type BlockReader struct {
	useCRC32 bool
	state    blockReaderState
	inEscape bool
	data     []byte
	marker   byte
	crcRaw   []byte // accumulated, not-yet-ZDLE-decoded CRC trailer bytes
}

// NewBlockReader returns a reader configured for the negotiated CRC
// family.
func NewBlockReader(useCRC32 bool) *BlockReader {
	return &BlockReader{useCRC32: useCRC32}
}

// BlockResult is returned once a complete, CRC-valid block has been read.
type BlockResult struct {
	Data   []byte
	Marker byte
}

// Feed processes one byte. It returns (result, nil) once a block
// completes and its CRC validates, (nil, nil) if more bytes are needed,
// or (nil, err) on a CRC mismatch or oversized block — both of which
// reset the reader so it can be reused for the next block.
func (b *BlockReader) Feed(c byte) (*BlockResult, error) {
	switch b.state {
	case blockReadingData:
		return b.feedData(c)
	case blockReadingCRC:
		return b.feedCRC(c)
	default:
		return nil, nil
	}
}

func (b *BlockReader) feedData(c byte) (*BlockResult, error) {
	if b.inEscape {
		b.inEscape = false
		switch c {
		case ZCRCE, ZCRCG, ZCRCQ, ZCRCW:
			b.marker = c
			b.state = blockReadingCRC
			return nil, nil
		default:
			b.data = append(b.data, c^0x40)
		}
	} else if c == ZDLE {
		b.inEscape = true
	} else {
		b.data = append(b.data, c)
	}
	if len(b.data) > maxBlockBytes {
		b.reset()
		return nil, errInvalidFrame("data block too large")
	}
	return nil, nil
}

func (b *BlockReader) feedCRC(c byte) (*BlockResult, error) {
	if b.inEscape {
		b.inEscape = false
		b.crcRaw = append(b.crcRaw, c^0x40)
	} else if c == ZDLE {
		b.inEscape = true
		return nil, nil
	} else {
		b.crcRaw = append(b.crcRaw, c)
	}

	want := 2
	if b.useCRC32 {
		want = 4
	}
	if len(b.crcRaw) < want {
		return nil, nil
	}

	var expected uint32
	if b.useCRC32 {
		expected = uint32(b.crcRaw[0]) | uint32(b.crcRaw[1])<<8 | uint32(b.crcRaw[2])<<16 | uint32(b.crcRaw[3])<<24
	} else {
		expected = uint32(b.crcRaw[0])<<8 | uint32(b.crcRaw[1])
	}

	var actual uint32
	if b.useCRC32 {
		actual = CRC32Finalize(CRC32Update(CRC32Update(0, b.data), []byte{b.marker}))
	} else {
		actual = uint32(CRC16Finalize(CRC16Update(CRC16Update(0, b.data), []byte{b.marker})))
	}

	result := &BlockResult{Data: b.data, Marker: b.marker}
	b.reset()
	if expected != actual {
		return nil, &CrcMismatchError{Expected: expected, Actual: actual}
	}
	return result, nil
}

func (b *BlockReader) reset() {
	b.state = blockReadingData
	b.inEscape = false
	b.data = nil
	b.marker = 0
	b.crcRaw = nil
}
