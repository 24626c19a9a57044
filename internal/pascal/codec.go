package pascal

import (
	"bytes"
	"encoding/binary"
)

// Record is implemented by every legacy record type. Fields walks the
// record's field list in declared order against io, the same call sequence
// driving both encode and decode depending on io.Encoding().
type Record interface {
	Fields(io *IO)
}

// IO is a bidirectional field visitor. Built once per record type's field
// list, it either serializes a value into an internal buffer (encoding) or
// deserializes one out of a source buffer (decoding). A field method is a
// no-op once a prior read has failed, so a short record fails once with
// InvalidLayoutError rather than panicking partway through.
type IO struct {
	encode bool
	w      *bytes.Buffer
	r      *bytes.Reader
	err    error
}

// Encode serializes rec by walking its field list in encode mode.
func Encode(rec Record) []byte {
	io := &IO{encode: true, w: &bytes.Buffer{}}
	rec.Fields(io)
	return io.w.Bytes()
}

// Decode deserializes data into rec by walking its field list in decode
// mode. Returns InvalidLayoutError if data is too short for the field list.
func Decode(data []byte, rec Record) error {
	io := &IO{encode: false, r: bytes.NewReader(data)}
	rec.Fields(io)
	return io.err
}

// Encoding reports whether this walk is serializing (true) or
// deserializing (false). Field list implementations rarely need this; it
// exists for fields whose shape depends on a sibling field already visited
// (e.g. a length-prefixed trailer).
func (io *IO) Encoding() bool { return io.encode }

// Err returns the first decode error encountered, if any.
func (io *IO) Err() error { return io.err }

func (io *IO) fail(detail string, args ...any) {
	if io.err == nil {
		io.err = errInvalidLayout(detail, args...)
	}
}

func (io *IO) readN(n int) []byte {
	if io.err != nil {
		return nil
	}
	buf := make([]byte, n)
	if _, err := readFull(io.r, buf); err != nil {
		io.fail("short read: need %d bytes: %v", n, err)
		return nil
	}
	return buf
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	if total < len(buf) {
		return total, errInvalidLayout("unexpected eof")
	}
	return total, nil
}

// U8 visits a one-byte unsigned integer.
func (io *IO) U8(p *uint8) {
	if io.encode {
		io.w.WriteByte(*p)
		return
	}
	b := io.readN(1)
	if b != nil {
		*p = b[0]
	}
}

// Bool visits a one-byte boolean: zero is false, any nonzero is true on
// decode; encode always emits exactly 0 or 1.
func (io *IO) Bool(p *bool) {
	if io.encode {
		if *p {
			io.w.WriteByte(1)
		} else {
			io.w.WriteByte(0)
		}
		return
	}
	b := io.readN(1)
	if b != nil {
		*p = b[0] != 0
	}
}

// U16 visits a little-endian two-byte unsigned integer.
func (io *IO) U16(p *uint16) {
	if io.encode {
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], *p)
		io.w.Write(buf[:])
		return
	}
	b := io.readN(2)
	if b != nil {
		*p = binary.LittleEndian.Uint16(b)
	}
}

// I16 visits a little-endian two-byte signed integer.
func (io *IO) I16(p *int16) {
	var u uint16
	if io.encode {
		u = uint16(*p)
	}
	io.U16(&u)
	if !io.encode {
		*p = int16(u)
	}
}

// U32 visits a little-endian four-byte unsigned integer.
func (io *IO) U32(p *uint32) {
	if io.encode {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], *p)
		io.w.Write(buf[:])
		return
	}
	b := io.readN(4)
	if b != nil {
		*p = binary.LittleEndian.Uint32(b)
	}
}

// I32 visits a little-endian four-byte signed integer.
func (io *IO) I32(p *int32) {
	var u uint32
	if io.encode {
		u = uint32(*p)
	}
	io.U32(&u)
	if !io.encode {
		*p = int32(u)
	}
}

// ShortString visits a Pascal short string field occupying capacity+1
// bytes: one length byte then capacity content bytes.
func (io *IO) ShortString(p *string, capacity int) {
	if io.encode {
		io.w.Write(encodeShortString(*p, capacity))
		return
	}
	b := io.readN(capacity + 1)
	if b != nil {
		*p = decodeShortString(b, capacity)
	}
}

// DateTime visits a packed six-byte date/time field.
func (io *IO) DateTime(p *DateTime) {
	if io.encode {
		io.w.Write([]byte{p.YearOffset, p.Month, p.Day, p.Hour, p.Minute, p.Second})
		return
	}
	b := io.readN(6)
	if b != nil {
		*p = DateTime{YearOffset: b[0], Month: b[1], Day: b[2], Hour: b[3], Minute: b[4], Second: b[5]}
	}
}

// Bytes visits a raw fixed-length byte array, used for reserved/padding
// regions and fixed-size tables that are not otherwise interpreted.
func (io *IO) Bytes(p *[]byte, n int) {
	if io.encode {
		b := *p
		if len(b) < n {
			padded := make([]byte, n)
			copy(padded, b)
			b = padded
		} else if len(b) > n {
			b = b[:n]
		}
		io.w.Write(b)
		return
	}
	b := io.readN(n)
	if b != nil {
		out := make([]byte, n)
		copy(out, b)
		*p = out
	}
}

// Flags visits a fixed-length bitflag set of n bytes.
func (io *IO) Flags(p *Flags, n int) {
	if io.encode {
		f := *p
		raw := make([]byte, n)
		copy(raw, f)
		io.w.Write(raw)
		return
	}
	b := io.readN(n)
	if b != nil {
		out := make(Flags, n)
		copy(out, b)
		*p = out
	}
}
