package zmodem

import (
	"io"
	"time"
)

// SenderConfig configures a Sender. Zero-valued fields fall back to the
// defaults noted below when passed to NewSender.
type SenderConfig struct {
	BlockSize  int           // default 1024
	Timeout    time.Duration // default 10s
	MaxRetries int           // default 10
	UseCRC32   bool
}

func (c SenderConfig) withDefaults() SenderConfig {
	if c.BlockSize == 0 {
		c.BlockSize = 1024
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 10
	}
	return c
}

// TransferStats reports the outcome of one file transfer.
type TransferStats struct {
	BytesTotal int64
	BytesSent  int64
	Retries    int
}

// Sender drives the sending side of a Zmodem transfer over a byte stream.
// A Sender is owned by a single goroutine; its Machine is never shared.
type Sender struct {
	rw      io.ReadWriter
	fw      *frameWaiter
	machine *Machine
	cfg     SenderConfig
}

// NewSender returns a Sender ready to negotiate over rw.
func NewSender(rw io.ReadWriter, cfg SenderConfig) *Sender {
	return &Sender{
		rw:      rw,
		fw:      newFrameWaiter(rw),
		machine: NewMachine(),
		cfg:     cfg.withDefaults(),
	}
}

// Machine exposes the sender's state machine for inspection.
func (s *Sender) Machine() *Machine { return s.machine }

func (s *Sender) writeFrame(f Frame) error {
	_, err := s.rw.Write(Serialize(f))
	return err
}

// Negotiate performs the ZRQINIT/ZRINIT exchange and advances the state
// machine from Idle to InitReceived.
func (s *Sender) Negotiate(local Capabilities, localAllowResume bool) error {
	if err := s.writeFrame(Frame{Type: ZRQINIT, Encoding: Hex}); err != nil {
		return err
	}
	s.machine.Advance(InitSent)

	f, err := s.fw.nextFrame(s.cfg.Timeout)
	if err != nil {
		return err
	}
	if f.Type != ZRINIT {
		return errInvalidFrame("expected ZRINIT, got %s", f.Type)
	}
	remote := CapabilitiesFromZRINIT(f)
	negotiated := Negotiate(local, remote, localAllowResume, true)
	s.machine.SetNegotiated(negotiated)
	s.machine.Advance(InitReceived)
	return nil
}

// SendFileHeader emits ZFILE for info and waits for the receiver's
// response. On ZRPOS it returns the start position (possibly nonzero for
// resume) and advances to DataTransfer. On ZSKIP it returns
// ErrFileSkipped and returns to InitReceived.
func (s *Sender) SendFileHeader(info FileInfo) (int64, error) {
	s.machine.SetCurrentFile(info)
	payload := EncodeFileInfo(info)

	enc := Bin16
	if s.machine.negotiatedUseCRC32() {
		enc = Bin32
	}
	if err := s.writeFrame(Frame{Type: ZFILE, Encoding: enc}); err != nil {
		return 0, err
	}
	if err := WriteDataBlock(s.rw, payload, ZCRCW, s.machine.negotiatedUseCRC32()); err != nil {
		return 0, err
	}
	s.machine.Advance(FileHeaderSent)

	f, err := s.fw.nextFrame(s.cfg.Timeout)
	if err != nil {
		return 0, err
	}
	switch f.Type {
	case ZRPOS:
		pos := int64(f.Position())
		s.machine.SetPosition(pos)
		s.machine.Advance(DataTransfer)
		return pos, nil
	case ZSKIP:
		s.machine.ClearCurrentFile()
		s.machine.Advance(InitReceived)
		return 0, ErrFileSkipped
	default:
		return 0, errInvalidFrame("expected ZRPOS or ZSKIP, got %s", f.Type)
	}
}

// SendFileData streams file content starting at startPos, updating stats
// as it goes. file must already be positioned at startPos.
func (s *Sender) SendFileData(file io.ReadSeeker, startPos, fileSize int64, stats *TransferStats) error {
	position := startPos
	stats.BytesSent = startPos
	buf := make([]byte, s.cfg.BlockSize)
	retries := 0

	for position < fileSize {
		n, rerr := io.ReadFull(file, buf)
		if rerr == io.ErrUnexpectedEOF {
			// short final read, fine
		} else if rerr != nil && rerr != io.EOF {
			return rerr
		}
		block := buf[:n]
		if n == 0 {
			break
		}

		marker := byte(ZCRCG)
		if position+int64(n) >= fileSize {
			marker = ZCRCW
		}

		if err := s.sendDataBlock(block, position, marker); err != nil {
			if err == ErrCancelled {
				return err
			}
			if retries >= s.cfg.MaxRetries {
				return ErrMaxRetriesExceeded
			}
			retries++
			stats.Retries++
			retryFrame, werr := s.fw.nextFrame(s.cfg.Timeout)
			if werr != nil {
				return werr
			}
			if retryFrame.Type != ZRPOS {
				return errInvalidFrame("expected ZRPOS after retry, got %s", retryFrame.Type)
			}
			retryPos := int64(retryFrame.Position())
			if _, serr := file.Seek(retryPos, io.SeekStart); serr != nil {
				return serr
			}
			position = retryPos
			stats.BytesSent = retryPos
			continue
		}

		position += int64(n)
		stats.BytesSent = position
		retries = 0
	}
	return nil
}

func (s *Sender) sendDataBlock(data []byte, position int64, marker byte) error {
	enc := Bin16
	if s.machine.negotiatedUseCRC32() {
		enc = Bin32
	}
	if err := s.writeFrame(NewPositionFrame(ZDATA, enc, uint32(position))); err != nil {
		return err
	}
	if err := WriteDataBlock(s.rw, data, marker, s.machine.negotiatedUseCRC32()); err != nil {
		return err
	}
	if marker == ZCRCW || marker == ZCRCQ {
		f, err := s.fw.nextFrame(s.cfg.Timeout)
		if err != nil {
			return err
		}
		if f.Type == ZCAN || f.Type == ZABORT {
			return ErrCancelled
		}
		if f.Type != ZACK {
			return errInvalidFrame("expected ZACK, got %s", f.Type)
		}
	}
	return nil
}

// SendEOF emits ZEOF with the final file size and waits for the
// receiver's ZRINIT (ready for next file) or ZRPOS (retransmit tail).
// Returns the frame type received.
func (s *Sender) SendEOF(fileSize int64) (FrameType, error) {
	enc := Bin16
	if s.machine.negotiatedUseCRC32() {
		enc = Bin32
	}
	if err := s.writeFrame(NewPositionFrame(ZEOF, enc, uint32(fileSize))); err != nil {
		return 0, err
	}
	f, err := s.fw.nextFrame(s.cfg.Timeout)
	if err != nil {
		return 0, err
	}
	if f.Type == ZRINIT {
		s.machine.Advance(FileComplete)
		s.machine.Advance(InitReceived)
		s.machine.ClearCurrentFile()
	}
	return f.Type, nil
}

// Finish emits ZFIN and transitions to SessionComplete.
func (s *Sender) Finish() error {
	if err := s.writeFrame(Frame{Type: ZFIN, Encoding: Hex}); err != nil {
		return err
	}
	s.machine.Advance(SessionComplete)
	return nil
}

func (m *Machine) negotiatedUseCRC32() bool {
	if m.negotiated == nil {
		return false
	}
	return m.negotiated.UseCRC32
}
