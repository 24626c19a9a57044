package zmodem

import (
	"io"
	"time"
)

// ReceiverConfig configures a Receiver. Zero-valued fields fall back to
// the same defaults as SenderConfig.
type ReceiverConfig struct {
	BlockSize         int
	Timeout           time.Duration
	MaxRetries        int
	UseCRC32          bool
	AllowResume       bool
	OverwriteExisting bool
}

func (c ReceiverConfig) withDefaults() ReceiverConfig {
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

// Receiver drives the receiving side of a Zmodem transfer over a byte
// stream. A Receiver is owned by a single goroutine; its Machine is
// never shared.
type Receiver struct {
	rw      io.ReadWriter
	fw      *frameWaiter
	machine *Machine
	cfg     ReceiverConfig
}

// NewReceiver returns a Receiver ready to negotiate over rw.
func NewReceiver(rw io.ReadWriter, cfg ReceiverConfig) *Receiver {
	return &Receiver{
		rw:      rw,
		fw:      newFrameWaiter(rw),
		machine: NewMachine(),
		cfg:     cfg.withDefaults(),
	}
}

// Machine exposes the receiver's state machine for inspection.
func (r *Receiver) Machine() *Machine { return r.machine }

func (r *Receiver) writeFrame(f Frame) error {
	_, err := r.rw.Write(Serialize(f))
	return err
}

func (r *Receiver) useCRC32() bool {
	if r.machine.negotiated != nil {
		return r.machine.negotiated.UseCRC32
	}
	return r.cfg.UseCRC32
}

// Negotiate waits for the sender's ZRQINIT and replies with ZRINIT
// advertising local, advancing Idle to InitReceived.
func (r *Receiver) Negotiate(local Capabilities) error {
	f, err := r.fw.nextFrame(r.cfg.Timeout)
	if err != nil {
		return err
	}
	if f.Type != ZRQINIT {
		return errInvalidFrame("expected ZRQINIT, got %s", f.Type)
	}
	r.machine.Advance(InitReceived)

	negotiated := Negotiate(local, local, r.cfg.AllowResume, r.cfg.AllowResume)
	negotiated.UseCRC32 = local.CanCRC32 && r.cfg.UseCRC32
	r.machine.SetNegotiated(negotiated)
	return r.writeFrame(local.ToZRINIT())
}

// ReceiveFileHeader waits for ZFILE, decodes the metadata, and advances
// to FileHeaderSent. Returns (info, false, nil) for a normal file and
// (_, true, nil) for the end-of-batch sentinel.
func (r *Receiver) ReceiveFileHeader() (info FileInfo, endOfBatch bool, err error) {
	f, err := r.fw.nextFrame(r.cfg.Timeout)
	if err != nil {
		return FileInfo{}, false, err
	}
	if f.Type == ZFIN {
		return FileInfo{}, true, nil
	}
	if f.Type != ZFILE {
		return FileInfo{}, false, errInvalidFrame("expected ZFILE, got %s", f.Type)
	}
	block, err := r.fw.readDataBlock(r.useCRC32(), r.cfg.Timeout)
	if err != nil {
		return FileInfo{}, false, err
	}
	if IsEndOfBatch(block.Data) {
		return FileInfo{}, true, nil
	}
	info, err = DecodeFileInfo(block.Data)
	if err != nil {
		return FileInfo{}, false, err
	}
	r.machine.SetCurrentFile(info)
	r.machine.Advance(FileHeaderSent)
	return info, false, nil
}

// AcceptAt emits ZRPOS with the chosen start position (0 for a fresh
// transfer, or the existing partial size for a resume) and advances to
// DataTransfer.
func (r *Receiver) AcceptAt(pos int64) error {
	r.machine.SetPosition(pos)
	if err := r.writeFrame(NewPositionFrame(ZRPOS, Hex, uint32(pos))); err != nil {
		return err
	}
	r.machine.Advance(DataTransfer)
	return nil
}

// Skip emits ZSKIP and returns to InitReceived.
func (r *Receiver) Skip() error {
	r.machine.ClearCurrentFile()
	err := r.writeFrame(Frame{Type: ZSKIP, Encoding: Hex})
	r.machine.Advance(InitReceived)
	return err
}

// ReceiveFileData reads ZDATA frames and their data blocks until a ZEOF
// whose position matches the current file position is received,
// appending each valid block to w via writeAt (called with the block's
// absolute starting offset). The loop keeps reading after the last data
// block lands — position reaching fileSize does not by itself end the
// file; only the matching ZEOF does. On the matching ZEOF the machine
// advances DataTransfer->FileComplete and local's ZRINIT is sent via
// AckFileComplete, clearing the file and returning to InitReceived so
// the sender's wait-for-ZRINIT after its own ZEOF is satisfied.
func (r *Receiver) ReceiveFileData(fileSize int64, local Capabilities, stats *TransferStats, writeAt func(offset int64, data []byte) error) error {
	position := r.machine.Position()
	retries := 0

	for {
		f, err := r.fw.nextFrame(r.cfg.Timeout)
		if err == ErrTimeout {
			if retries >= r.cfg.MaxRetries {
				return ErrMaxRetriesExceeded
			}
			retries++
			if werr := r.sendPosition(position); werr != nil {
				return werr
			}
			continue
		}
		if err != nil {
			return err
		}

		switch f.Type {
		case ZCAN, ZABORT:
			return ErrCancelled
		case ZDATA:
			dataPos := int64(f.Position())
			if dataPos != position {
				retries++
				if retries >= r.cfg.MaxRetries {
					return ErrMaxRetriesExceeded
				}
				if werr := r.sendPosition(position); werr != nil {
					return werr
				}
				continue
			}
			block, err := r.fw.readDataBlock(r.useCRC32(), r.cfg.Timeout)
			if err != nil {
				if _, mismatch := err.(*CrcMismatchError); mismatch && retries < r.cfg.MaxRetries {
					retries++
					stats.Retries++
					if werr := r.sendPosition(position); werr != nil {
						return werr
					}
					continue
				}
				return err
			}
			if werr := writeAt(position, block.Data); werr != nil {
				return werr
			}
			position += int64(len(block.Data))
			r.machine.SetPosition(position)
			stats.BytesSent = position
			retries = 0
			if block.Marker == ZCRCQ || block.Marker == ZCRCW {
				if werr := r.writeFrame(NewPositionFrame(ZACK, Hex, uint32(position))); werr != nil {
					return werr
				}
			}
		case ZEOF:
			eofPos := int64(f.Position())
			if eofPos == position {
				stats.BytesTotal = position
				r.machine.Advance(FileComplete)
				return r.AckFileComplete(local)
			}
			if werr := r.sendPosition(position); werr != nil {
				return werr
			}
		default:
			return errInvalidFrame("unexpected frame %s during data transfer", f.Type)
		}
	}
}

func (r *Receiver) sendPosition(pos int64) error {
	return r.writeFrame(NewPositionFrame(ZRPOS, Hex, uint32(pos)))
}

// AckFileComplete sends ZRINIT to tell the sender it may proceed to the
// next file, and returns to InitReceived.
func (r *Receiver) AckFileComplete(local Capabilities) error {
	r.machine.ClearCurrentFile()
	r.machine.Advance(InitReceived)
	return r.writeFrame(local.ToZRINIT())
}

// Finish emits ZFIN in response to the sender's ZFIN and advances to
// SessionComplete.
func (r *Receiver) Finish() error {
	if err := r.writeFrame(Frame{Type: ZFIN, Encoding: Hex}); err != nil {
		return err
	}
	r.machine.Advance(SessionComplete)
	return nil
}
