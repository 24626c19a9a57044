package zmodem

// maxFrameBytes bounds runaway accumulation when a stream never produces a
// valid terminator (e.g. a lost CR/0x8A pair, or CRC garbage that never
// yields the expected decoded length). Real Zmodem frames are well under
// this; exceeding it means the stream is not going to resynchronize on its
// own.
const maxFrameBytes = 4096

type parserState int

const (
	waitingZpad parserState = iota
	waitingZdle
	readingHexFrame
	readingBinary16
	readingBinary32
)

// ParseResult is one outcome of feeding bytes to a Parser: either a
// successfully parsed Frame, or an error frame-level event (CRC mismatch,
// bad encoding byte, oversized frame).
type ParseResult struct {
	Frame Frame
	Err   error
}

// Parser is a stateful, byte-at-a-time Zmodem frame parser. It tolerates
// arbitrary fragmentation: Feed may be called with any number of bytes,
// including zero, one at a time, or an entire TCP segment, and the parser
// accumulates state across calls so a frame split across reads is still
// recognized.
type Parser struct {
	state  parserState
	window []byte // trailing bytes observed while hunting for sync, len<=3
	frame  []byte // accumulated frame bytes once sync is recognized
}

// NewParser returns a parser ready to scan for the first frame.
func NewParser() *Parser {
	return &Parser{state: waitingZpad}
}

// Reset discards any partially-accumulated frame and returns to the
// initial synchronization state.
func (p *Parser) Reset() {
	p.state = waitingZpad
	p.window = nil
	p.frame = nil
}

// Feed processes data and returns zero or more results in the order
// encountered. Bytes preceding a recognized sync sequence are discarded
// silently, per the wire layer's synchronization rule.
func (p *Parser) Feed(data []byte) []ParseResult {
	var out []ParseResult
	for _, b := range data {
		if r := p.feedByte(b); r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func (p *Parser) feedByte(b byte) *ParseResult {
	switch p.state {
	case waitingZpad:
		return p.feedWaitingZpad(b)
	case waitingZdle:
		return p.feedWaitingZdle(b)
	case readingHexFrame:
		return p.feedReadingHex(b)
	case readingBinary16:
		return p.feedReadingBinary(b, false)
	case readingBinary32:
		return p.feedReadingBinary(b, true)
	default:
		return nil
	}
}

func (p *Parser) feedWaitingZpad(b byte) *ParseResult {
	p.window = append(p.window, b)
	if len(p.window) > 3 {
		p.window = p.window[len(p.window)-3:]
	}
	n := len(p.window)
	if n >= 3 && p.window[n-3] == ZPAD && p.window[n-2] == ZPAD && p.window[n-1] == ZDLE {
		p.frame = []byte{ZPAD, ZPAD, ZDLE}
		p.state = waitingZdle
		return nil
	}
	if n >= 2 && p.window[n-2] == ZPAD && p.window[n-1] == ZDLE {
		p.frame = []byte{ZPAD, ZDLE}
		p.state = waitingZdle
		return nil
	}
	return nil
}

func (p *Parser) feedWaitingZdle(b byte) *ParseResult {
	switch b {
	case 'B':
		p.frame = append(p.frame, b)
		p.state = readingHexFrame
	case 'A':
		p.frame = append(p.frame, b)
		p.state = readingBinary16
	case 'C':
		p.frame = append(p.frame, b)
		p.state = readingBinary32
	default:
		p.Reset()
		return &ParseResult{Err: &InvalidFrameEncodingError{Byte: b}}
	}
	return nil
}

func (p *Parser) feedReadingHex(b byte) *ParseResult {
	p.frame = append(p.frame, b)
	n := len(p.frame)
	if n >= 2 && p.frame[n-2] == '\r' && p.frame[n-1] == 0x8A {
		f, err := parseHexFrame(p.frame)
		p.Reset()
		return &ParseResult{Frame: f, Err: err}
	}
	if n > maxFrameBytes {
		p.Reset()
		return &ParseResult{Err: errInvalidFrame("hex frame exceeded maximum length")}
	}
	return nil
}

func (p *Parser) feedReadingBinary(b byte, useCRC32 bool) *ParseResult {
	p.frame = append(p.frame, b)
	// p.frame is [preamble(2) encodingByte(1) ...accumulated escaped body]
	f, err := parseBinaryFrame(p.frame[3:], useCRC32)
	if err == nil {
		p.Reset()
		return &ParseResult{Frame: f}
	}
	if _, mismatch := err.(*CrcMismatchError); mismatch {
		p.Reset()
		return &ParseResult{Err: err}
	}
	// Any other error (ErrInvalidEscape, the "too short" InvalidFrameError)
	// means the frame isn't complete yet; keep accumulating.
	if len(p.frame) > maxFrameBytes {
		p.Reset()
		return &ParseResult{Err: errInvalidFrame("binary frame exceeded maximum length")}
	}
	return nil
}
