package xymodem

import (
	"fmt"
	"io"
	"time"
)

// awaitGRequest waits for the receiver's streaming-mode handshake byte
// ('G' rather than 'C'), which tells the sender it may push every data
// block back-to-back without waiting for a per-block ACK.
func awaitGRequest(bw *byteWaiter, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		b, err := bw.readByte(time.Until(deadline))
		if err != nil {
			return err
		}
		if b == GModeRequest {
			return nil
		}
		if b == CAN {
			return ErrCancelled
		}
	}
	return fmt.Errorf("xymodem: timed out waiting for G handshake")
}

// SendBatchG drives a Ymodem-G batch send. Block 0 headers are still
// exchanged with a normal ACK (there is no streaming handshake for
// metadata), but each file's data blocks are written one after another
// with no per-block wait: a receiver that hits a CRC error sends CAN and
// the whole transfer aborts rather than retrying, since there is no
// buffered history to resend from once later blocks are already in
// flight.
func SendBatchG(rw io.ReadWriter, files []FileInfo, open func(FileInfo) (io.Reader, error), cfg Config, stats *Stats) error {
	cfg = cfg.withDefaults()
	bw := newByteWaiter(rw)

	if err := awaitGRequest(bw, cfg.Timeout); err != nil {
		return err
	}

	for _, info := range files {
		header := encodeBlockZero(&info, cfg.BlockSize)
		if err := sendBlockUntilAcked(rw, bw, header, cfg, stats); err != nil {
			return err
		}
		if err := awaitGRequest(bw, cfg.Timeout); err != nil {
			return err
		}

		file, err := open(info)
		if err != nil {
			return err
		}
		seq := uint8(1)
		buf := make([]byte, cfg.BlockSize)
		for {
			if b, ok := bw.tryReadByte(); ok && (b == CAN || b == NAK) {
				return ErrCancelled
			}
			n, rerr := io.ReadFull(file, buf)
			if rerr == io.EOF {
				break
			}
			if rerr != nil && rerr != io.ErrUnexpectedEOF {
				return rerr
			}
			block := buildBlock(seq, buf[:n], cfg.BlockSize)
			if _, werr := rw.Write(block); werr != nil {
				return werr
			}
			stats.BytesSent += int64(n)
			seq++
			if rerr == io.ErrUnexpectedEOF {
				break
			}
		}
		if err := sendEOT(rw, bw, cfg); err != nil {
			return err
		}
		if err := awaitGRequest(bw, cfg.Timeout); err != nil {
			return err
		}
	}

	return sendBlockUntilAcked(rw, bw, encodeBlockZero(nil, cfg.BlockSize), cfg, stats)
}

// ReceiveBatchG mirrors ReceiveBatch for the streaming Ymodem-G variant:
// it sends 'G' instead of 'C' and never ACKs an individual data block,
// only the block-0 headers and the final EOT. A CRC mismatch aborts the
// whole file immediately with CAN since there is no retry path once the
// sender has moved on.
func ReceiveBatchG(rw io.ReadWriter, cfg Config, onFile func(FileInfo) (func(data []byte) error, error)) (Stats, error) {
	cfg = cfg.withDefaults()
	var stats Stats
	bw := newByteWaiter(rw)

	for {
		if _, err := rw.Write([]byte{GModeRequest}); err != nil {
			return stats, err
		}
		header, err := receiveOneBlock(rw, bw, cfg, &stats)
		if err != nil {
			return stats, err
		}
		info, eob, err := decodeBlockZero(header)
		if err != nil {
			return stats, err
		}
		if eob {
			return stats, nil
		}

		writeFile, err := onFile(info)
		if err != nil {
			return stats, err
		}

		if _, err := rw.Write([]byte{GModeRequest}); err != nil {
			return stats, err
		}
		if err := receiveFileStreamed(rw, bw, cfg, &stats, writeFile); err != nil {
			return stats, err
		}
	}
}

func receiveFileStreamed(rw io.ReadWriter, bw *byteWaiter, cfg Config, stats *Stats, writeFile func([]byte) error) error {
	expected := uint8(1)
	for {
		header, err := bw.readByte(cfg.Timeout)
		if err != nil {
			return err
		}
		switch header {
		case EOT:
			_, err := rw.Write([]byte{ACK})
			return err
		case CAN:
			return ErrCancelled
		case SOH, STX:
			blockSize, _ := blockSizeForHeader(header)
			rest := make([]byte, 2+blockSize+2)
			if err := bw.readFull(rest, cfg.Timeout); err != nil {
				return err
			}
			payload := rest[2 : 2+blockSize]
			pb, err := verifyBlock(rest[0], rest[1], payload, rest[2+blockSize], rest[3+blockSize])
			if err != nil {
				_, _ = rw.Write([]byte{CAN, CAN})
				return err
			}
			if pb.seq != expected {
				_, _ = rw.Write([]byte{CAN, CAN})
				return ErrDesync
			}
			if err := writeFile(pb.payload); err != nil {
				return err
			}
			stats.BytesSent += int64(len(pb.payload))
			expected++
		default:
			return fmt.Errorf("xymodem: unexpected byte %#x in streamed transfer", header)
		}
	}
}
