package zmodem

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Direction distinguishes a saved transfer's role.
type Direction uint8

const (
	DirectionSend Direction = iota
	DirectionReceive
)

// stateVersion is the current on-disk TransferState format version.
// Decoding rejects any other value.
const stateVersion = 1

// TransferState is a partial-transfer record persisted so an interrupted
// transfer can resume instead of restarting from byte zero.
type TransferState struct {
	Direction Direction
	FileName  string
	FileSize  uint64
	Position  uint64
	PartialCRC32 uint32
	Serial    uint32 // 0 = absent
	SavedAt   int64  // Unix timestamp
	LocalPath string
}

// Complete reports whether Position has reached FileSize.
func (t TransferState) Complete() bool { return t.Position == t.FileSize }

// encode serializes t: version(1) direction(1) namelen(u16) name
// size(u64) position(u64) crc32(u32) serial(u32) timestamp(u64)
// pathlen(u16) path, all integers little-endian.
func (t TransferState) encode() []byte {
	buf := make([]byte, 0, 64+len(t.FileName)+len(t.LocalPath))
	buf = append(buf, stateVersion, byte(t.Direction))
	buf = appendLPString(buf, t.FileName)
	buf = appendU64(buf, t.FileSize)
	buf = appendU64(buf, t.Position)
	buf = appendU32(buf, t.PartialCRC32)
	buf = appendU32(buf, t.Serial)
	buf = appendU64(buf, uint64(t.SavedAt))
	buf = appendLPString(buf, t.LocalPath)
	return buf
}

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendLPString(buf []byte, s string) []byte {
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, s...)
}

func decodeTransferState(data []byte) (TransferState, error) {
	if len(data) < 2 {
		return TransferState{}, errInvalidFrame("recovery record too short")
	}
	if data[0] != stateVersion {
		return TransferState{}, errInvalidFrame("unknown recovery record version %d", data[0])
	}
	t := TransferState{Direction: Direction(data[1])}
	rest := data[2:]

	name, rest, err := readLPString(rest)
	if err != nil {
		return TransferState{}, err
	}
	t.FileName = name

	fileSize, rest, err := readU64(rest)
	if err != nil {
		return TransferState{}, err
	}
	t.FileSize = fileSize

	position, rest, err := readU64(rest)
	if err != nil {
		return TransferState{}, err
	}
	t.Position = position

	crc, rest, err := readU32(rest)
	if err != nil {
		return TransferState{}, err
	}
	t.PartialCRC32 = crc

	serial, rest, err := readU32(rest)
	if err != nil {
		return TransferState{}, err
	}
	t.Serial = serial

	ts, rest, err := readU64(rest)
	if err != nil {
		return TransferState{}, err
	}
	t.SavedAt = int64(ts)

	path, _, err := readLPString(rest)
	if err != nil {
		return TransferState{}, err
	}
	t.LocalPath = path

	return t, nil
}

func readU32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, errInvalidFrame("recovery record truncated")
	}
	return binary.LittleEndian.Uint32(b[:4]), b[4:], nil
}

func readU64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, errInvalidFrame("recovery record truncated")
	}
	return binary.LittleEndian.Uint64(b[:8]), b[8:], nil
}

func readLPString(b []byte) (string, []byte, error) {
	if len(b) < 2 {
		return "", nil, errInvalidFrame("recovery record truncated")
	}
	n := int(binary.LittleEndian.Uint16(b[:2]))
	b = b[2:]
	if len(b) < n {
		return "", nil, errInvalidFrame("recovery record truncated")
	}
	return string(b[:n]), b[n:], nil
}

// sanitizeStateName maps a logical filename onto the recovery directory's
// naming rule: non-alphanumeric characters other than '.', '-', '_'
// become '_', with a ".zstate" suffix appended.
func sanitizeStateName(filename string) string {
	var sb strings.Builder
	for _, r := range filename {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String() + ".zstate"
}

// RecoveryManager persists and restores TransferState records under a
// configured directory, one file per in-progress transfer. An in-memory
// cache behind a reader-writer lock avoids a disk read on every lookup;
// disk writes are serialized per-filename by the atomic rename.
type RecoveryManager struct {
	dir     string
	maxAge  time.Duration
	mu      sync.RWMutex
	cache   map[string]TransferState // keyed by sanitized state filename
}

// NewRecoveryManager returns a manager rooted at dir. maxAge bounds how
// old a saved record may be before LoadState treats it as stale.
func NewRecoveryManager(dir string, maxAge time.Duration) *RecoveryManager {
	return &RecoveryManager{dir: dir, maxAge: maxAge, cache: make(map[string]TransferState)}
}

// SaveState writes state atomically: write to a temp file in the same
// directory, then rename over the final name.
func (m *RecoveryManager) SaveState(state TransferState) error {
	name := sanitizeStateName(state.FileName)
	final := filepath.Join(m.dir, name)
	tmp := final + ".tmp"

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("zmodem: recovery dir: %w", err)
	}
	if err := os.WriteFile(tmp, state.encode(), 0o644); err != nil {
		return fmt.Errorf("zmodem: write recovery temp file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("zmodem: rename recovery file: %w", err)
	}

	m.mu.Lock()
	m.cache[name] = state
	m.mu.Unlock()
	return nil
}

// LoadState returns the saved state for filename, or (zero, false, nil)
// if no record exists or the record is older than maxAge.
func (m *RecoveryManager) LoadState(filename string) (TransferState, bool, error) {
	name := sanitizeStateName(filename)

	m.mu.RLock()
	cached, ok := m.cache[name]
	m.mu.RUnlock()
	if ok {
		if m.isStale(cached) {
			return TransferState{}, false, nil
		}
		return cached, true, nil
	}

	data, err := os.ReadFile(filepath.Join(m.dir, name))
	if os.IsNotExist(err) {
		return TransferState{}, false, nil
	}
	if err != nil {
		return TransferState{}, false, err
	}
	state, err := decodeTransferState(data)
	if err != nil {
		return TransferState{}, false, err
	}

	m.mu.Lock()
	m.cache[name] = state
	m.mu.Unlock()

	if m.isStale(state) {
		return TransferState{}, false, nil
	}
	return state, true, nil
}

func (m *RecoveryManager) isStale(state TransferState) bool {
	if m.maxAge <= 0 {
		return false
	}
	return time.Since(time.Unix(state.SavedAt, 0)) > m.maxAge
}

// RemoveState deletes the saved record for filename. Called once a
// transfer completes successfully.
func (m *RecoveryManager) RemoveState(filename string) error {
	name := sanitizeStateName(filename)
	m.mu.Lock()
	delete(m.cache, name)
	m.mu.Unlock()

	err := os.Remove(filepath.Join(m.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// CleanupStale sweeps the recovery directory and removes every record
// older than maxAge. Returns the number removed.
func (m *RecoveryManager) CleanupStale() (int, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zstate") {
			continue
		}
		path := filepath.Join(m.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		state, err := decodeTransferState(data)
		if err != nil {
			continue
		}
		if m.isStale(state) {
			if err := os.Remove(path); err == nil {
				removed++
				m.mu.Lock()
				delete(m.cache, e.Name())
				m.mu.Unlock()
			}
		}
	}
	return removed, nil
}

// WatchDir starts an fsnotify watch on the recovery directory and returns
// a channel of sanitized state filenames whenever a .zstate record is
// created, written, or removed. Intended for an admin-facing transfer
// monitor, not for the protocol engine itself, which never needs to
// observe its own recovery directory asynchronously. The returned
// watcher must be closed by the caller when done.
func (m *RecoveryManager) WatchDir() (*fsnotify.Watcher, <-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		w.Close()
		return nil, nil, err
	}
	if err := w.Add(m.dir); err != nil {
		w.Close()
		return nil, nil, err
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		for event := range w.Events {
			if strings.HasSuffix(event.Name, ".zstate") {
				out <- filepath.Base(event.Name)
			}
		}
	}()
	return w, out, nil
}
