package xymodem

import (
	"fmt"
	"io"
	"strconv"
	"time"
)

// FileInfo describes one file in a Ymodem batch, as carried in its
// block 0 header.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// encodeBlockZero builds the block-0 header: "name\0size mtime\0\0...",
// NUL-padded to blockSize. A nil info encodes the empty-filename block
// that terminates a batch.
func encodeBlockZero(info *FileInfo, blockSize int) []byte {
	if info == nil {
		return buildBlockPadded(0, nil, blockSize, 0)
	}
	payload := []byte(info.Name)
	payload = append(payload, 0)
	payload = append(payload, []byte(strconv.FormatInt(info.Size, 10))...)
	if !info.ModTime.IsZero() {
		payload = append(payload, ' ')
		payload = append(payload, []byte(strconv.FormatInt(info.ModTime.Unix(), 8))...)
	}
	return buildBlockPadded(0, payload, blockSize, 0)
}

// decodeBlockZero parses a block-0 payload. An empty name with zero
// length indicates end of batch.
func decodeBlockZero(payload []byte) (info FileInfo, endOfBatch bool, err error) {
	nul := -1
	for i, b := range payload {
		if b == 0 {
			nul = i
			break
		}
	}
	if nul <= 0 {
		return FileInfo{}, true, nil
	}
	name := string(payload[:nul])
	rest := payload[nul+1:]
	end := len(rest)
	for i, b := range rest {
		if b == 0 {
			end = i
			break
		}
	}
	fields := splitFields(string(rest[:end]))
	if len(fields) == 0 {
		return FileInfo{}, false, fmt.Errorf("xymodem: block 0 missing size field")
	}
	size, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return FileInfo{}, false, fmt.Errorf("xymodem: invalid size field %q: %w", fields[0], err)
	}
	info = FileInfo{Name: name, Size: size}
	if len(fields) > 1 {
		if sec, err := strconv.ParseInt(fields[1], 8, 64); err == nil {
			info.ModTime = time.Unix(sec, 0)
		}
	}
	return info, false, nil
}

func splitFields(s string) []string {
	var fields []string
	start := -1
	for i, c := range s {
		if c == ' ' {
			if start >= 0 {
				fields = append(fields, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, s[start:])
	}
	return fields
}

// SendBatch drives a Ymodem batch send of files, calling open to obtain
// each file's content reader in turn. Each file's block 0 header is
// followed by its data blocks exactly as in Xmodem-CRC, and the batch
// ends with an empty block 0.
func SendBatch(rw io.ReadWriter, files []FileInfo, open func(FileInfo) (io.Reader, error), cfg Config, stats *Stats) error {
	cfg = cfg.withDefaults()
	bw := newByteWaiter(rw)

	if err := awaitCRCRequest(bw, cfg.Timeout); err != nil {
		return err
	}

	for _, info := range files {
		header := encodeBlockZero(&info, cfg.BlockSize)
		if err := sendBlockUntilAcked(rw, bw, header, cfg, stats); err != nil {
			return err
		}
		// Receiver re-sends 'C' before data blocks begin for this file.
		if err := awaitCRCRequest(bw, cfg.Timeout); err != nil {
			return err
		}

		file, err := open(info)
		if err != nil {
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
		if err := sendEOT(rw, bw, cfg); err != nil {
			return err
		}
		// Receiver issues a fresh 'C' before the next file's block 0.
		if err := awaitCRCRequest(bw, cfg.Timeout); err != nil {
			return err
		}
	}

	// Empty block 0 signals end of batch.
	return sendBlockUntilAcked(rw, bw, encodeBlockZero(nil, cfg.BlockSize), cfg, stats)
}

// ReceiveBatch drives a Ymodem batch receive. onFile is called once per
// incoming file's header and must return a writer that accepts each
// data block's payload in order; returning a non-nil error from either
// aborts the whole batch.
func ReceiveBatch(rw io.ReadWriter, cfg Config, onFile func(FileInfo) (func(data []byte) error, error)) (Stats, error) {
	cfg = cfg.withDefaults()
	var stats Stats
	bw := newByteWaiter(rw)

	for {
		if _, err := rw.Write([]byte{CRCModeRequest}); err != nil {
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

		if _, err := rw.Write([]byte{CRCModeRequest}); err != nil {
			return stats, err
		}
		fileStats, err := receiveFileCore(rw, bw, cfg, func(seq uint8, data []byte) error {
			return writeFile(data)
		})
		stats.BytesSent += fileStats.BytesSent
		stats.Retries += fileStats.Retries
		if err != nil {
			return stats, err
		}
	}
}

// receiveOneBlock reads a single SOH/STX-framed block off the shared
// byteWaiter (used for block 0, which arrives outside
// receiveFileCore's running-sequence loop).
func receiveOneBlock(rw io.ReadWriter, bw *byteWaiter, cfg Config, stats *Stats) ([]byte, error) {
	for {
		header, err := bw.readByte(cfg.Timeout)
		if err != nil {
			return nil, err
		}
		if header != SOH && header != STX {
			stats.Retries++
			if _, werr := rw.Write([]byte{NAK}); werr != nil {
				return nil, werr
			}
			continue
		}
		blockSize, _ := blockSizeForHeader(header)
		rest := make([]byte, 2+blockSize+2)
		if err := bw.readFull(rest, cfg.Timeout); err != nil {
			stats.Retries++
			continue
		}
		payload := rest[2 : 2+blockSize]
		pb, err := verifyBlock(rest[0], rest[1], payload, rest[2+blockSize], rest[3+blockSize])
		if err != nil {
			stats.Retries++
			if _, werr := rw.Write([]byte{NAK}); werr != nil {
				return nil, werr
			}
			continue
		}
		if _, werr := rw.Write([]byte{ACK}); werr != nil {
			return nil, werr
		}
		return pb.payload, nil
	}
}
