package zmodem

import (
	"fmt"
	"strconv"
	"strings"
)

// EncodeFileInfo builds the ZFILE data subpacket payload: a
// null-terminated filename followed by a space-separated metadata line
// (size decimal, mtime octal, mode octal, serial, files-remaining,
// bytes-remaining), matching the classic rz/sz wire format.
func EncodeFileInfo(f FileInfo) []byte {
	meta := fmt.Sprintf("%d %o %o 0 %d %d %d",
		f.Size, f.ModTime, f.Mode, f.Serial, f.FilesRemain, f.BytesRemain)
	buf := make([]byte, 0, len(f.Name)+1+len(meta)+1)
	buf = append(buf, f.Name...)
	buf = append(buf, 0)
	buf = append(buf, meta...)
	buf = append(buf, 0)
	return buf
}

// IsEndOfBatch reports whether a ZFILE payload is the all-zero-bytes
// sentinel meaning "no more files".
func IsEndOfBatch(payload []byte) bool {
	if len(payload) == 0 {
		return true
	}
	for _, b := range payload {
		if b != 0 {
			return false
		}
	}
	return true
}

// DecodeFileInfo parses a ZFILE data subpacket payload. Missing trailing
// metadata fields default to zero, matching real-world senders that omit
// optional trailing fields.
func DecodeFileInfo(payload []byte) (FileInfo, error) {
	if IsEndOfBatch(payload) {
		return FileInfo{}, fmt.Errorf("zmodem: end-of-batch marker has no file info")
	}
	nul := indexByte(payload, 0)
	if nul < 0 {
		return FileInfo{}, errInvalidFrame("file info missing name terminator")
	}
	name := string(payload[:nul])
	rest := payload[nul+1:]
	// Trim a single trailing NUL terminator if present.
	rest = strings.TrimRight(string(rest), "\x00")
	fields := strings.Fields(rest)

	get := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return "0"
	}

	size, err := strconv.ParseInt(get(0), 10, 64)
	if err != nil {
		return FileInfo{}, errInvalidFrame("bad file size %q", get(0))
	}
	mtime, err := strconv.ParseInt(get(1), 8, 64)
	if err != nil {
		return FileInfo{}, errInvalidFrame("bad file mtime %q", get(1))
	}
	mode, err := strconv.ParseUint(get(2), 8, 32)
	if err != nil {
		return FileInfo{}, errInvalidFrame("bad file mode %q", get(2))
	}
	serial, _ := strconv.ParseUint(get(4), 10, 32)
	filesRemain, _ := strconv.ParseUint(get(5), 10, 32)
	bytesRemain, _ := strconv.ParseInt(get(6), 10, 64)

	return FileInfo{
		Name:        name,
		Size:        size,
		ModTime:     mtime,
		Mode:        uint32(mode),
		Serial:      uint32(serial),
		FilesRemain: uint32(filesRemain),
		BytesRemain: bytesRemain,
	}, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
