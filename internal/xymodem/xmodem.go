package xymodem

import (
	"fmt"
	"io"
	"time"
)

// Config controls block size, timeouts, and retry limits shared by the
// Xmodem sender and receiver. Zero values fall back to the defaults
// below.
type Config struct {
	BlockSize  int // 128 or 1024; default 128 (classic Xmodem)
	Timeout    time.Duration
	MaxRetries int
}

func (c Config) withDefaults() Config {
	if c.BlockSize == 0 {
		c.BlockSize = BlockSizeShort
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 10
	}
	return c
}

// Stats reports the outcome of one Xmodem transfer.
type Stats struct {
	BytesSent int64
	Retries   int
}

// SendFile drives an Xmodem-CRC send of the full contents of file over
// rw. It waits for the receiver's initial 'C' before sending the first
// block, matching the classic Xmodem handshake.
func SendFile(rw io.ReadWriter, file io.Reader, cfg Config, stats *Stats) error {
	cfg = cfg.withDefaults()
	bw := newByteWaiter(rw)

	if err := awaitCRCRequest(bw, cfg.Timeout); err != nil {
		return err
	}

	seq := uint8(1)
	buf := make([]byte, cfg.BlockSize)
	for {
		n, rerr := io.ReadFull(file, buf)
		if rerr == io.EOF {
			break
		}
		if rerr != nil && rerr != io.ErrUnexpectedEOF {
			return rerr
		}
		block := buildBlock(seq, buf[:n], cfg.BlockSize)
		if err := sendBlockUntilAcked(rw, bw, block, cfg, stats); err != nil {
			return err
		}
		stats.BytesSent += int64(n)
		seq++
		if rerr == io.ErrUnexpectedEOF {
			break
		}
	}

	return sendEOT(rw, bw, cfg)
}

func sendBlockUntilAcked(w io.Writer, bw *byteWaiter, block []byte, cfg Config, stats *Stats) error {
	for attempt := 0; ; attempt++ {
		if _, err := w.Write(block); err != nil {
			return err
		}
		b, err := bw.readByte(cfg.Timeout)
		if err != nil {
			if attempt >= cfg.MaxRetries {
				return fmt.Errorf("xymodem: %w after %d retries", err, attempt)
			}
			stats.Retries++
			continue
		}
		switch b {
		case ACK:
			return nil
		case CAN:
			return ErrCancelled
		case NAK:
			if attempt >= cfg.MaxRetries {
				return fmt.Errorf("xymodem: too many NAKs")
			}
			stats.Retries++
		default:
			if attempt >= cfg.MaxRetries {
				return fmt.Errorf("xymodem: unexpected response byte %#x", b)
			}
			stats.Retries++
		}
	}
}

func sendEOT(w io.Writer, bw *byteWaiter, cfg Config) error {
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if _, err := w.Write([]byte{EOT}); err != nil {
			return err
		}
		b, err := bw.readByte(cfg.Timeout)
		if err != nil {
			continue
		}
		if b == ACK {
			return nil
		}
	}
	return fmt.Errorf("xymodem: EOT never acknowledged")
}

func awaitCRCRequest(bw *byteWaiter, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		b, err := bw.readByte(time.Until(deadline))
		if err != nil {
			return err
		}
		if b == CRCModeRequest {
			return nil
		}
		if b == CAN {
			return ErrCancelled
		}
	}
	return fmt.Errorf("xymodem: timed out waiting for CRC handshake")
}

// ReceiveFile drives an Xmodem-CRC receive, writing each verified
// block's payload to the caller via writeBlock in order. Duplicate
// retransmissions of the previous block are acknowledged but not
// redelivered.
func ReceiveFile(rw io.ReadWriter, cfg Config, writeBlock func(seq uint8, data []byte) error) (Stats, error) {
	cfg = cfg.withDefaults()
	bw := newByteWaiter(rw)
	if _, err := rw.Write([]byte{CRCModeRequest}); err != nil {
		return Stats{}, err
	}
	return receiveFileCore(rw, bw, cfg, writeBlock)
}

// receiveFileCore is ReceiveFile's body, factored out so a Ymodem batch
// receive can share one byteWaiter (and its single background reader
// goroutine) across the whole batch instead of spawning a fresh one per
// file.
func receiveFileCore(rw io.ReadWriter, bw *byteWaiter, cfg Config, writeBlock func(seq uint8, data []byte) error) (Stats, error) {
	var stats Stats
	expected := uint8(1)
	for {
		header, err := bw.readByte(cfg.Timeout)
		if err != nil {
			stats.Retries++
			if _, werr := rw.Write([]byte{NAK}); werr != nil {
				return stats, werr
			}
			continue
		}

		switch header {
		case EOT:
			if _, err := rw.Write([]byte{ACK}); err != nil {
				return stats, err
			}
			return stats, nil
		case CAN:
			return stats, ErrCancelled
		case SOH, STX:
			blockSize, _ := blockSizeForHeader(header)
			rest := make([]byte, 2+blockSize+2)
			if err := bw.readFull(rest, cfg.Timeout); err != nil {
				stats.Retries++
				if _, werr := rw.Write([]byte{NAK}); werr != nil {
					return stats, werr
				}
				continue
			}
			payload := rest[2 : 2+blockSize]
			crcHi, crcLo := rest[2+blockSize], rest[3+blockSize]
			pb, err := verifyBlock(rest[0], rest[1], payload, crcHi, crcLo)
			if err != nil {
				stats.Retries++
				if _, werr := rw.Write([]byte{NAK}); werr != nil {
					return stats, werr
				}
				continue
			}
			if pb.seq == expected-1 {
				if _, werr := rw.Write([]byte{ACK}); werr != nil {
					return stats, werr
				}
				continue
			}
			if pb.seq != expected {
				return stats, ErrDesync
			}
			if err := writeBlock(pb.seq, pb.payload); err != nil {
				return stats, err
			}
			stats.BytesSent += int64(len(pb.payload))
			expected++
			if _, werr := rw.Write([]byte{ACK}); werr != nil {
				return stats, werr
			}
		default:
			stats.Retries++
			if _, werr := rw.Write([]byte{NAK}); werr != nil {
				return stats, werr
			}
		}
	}
}
