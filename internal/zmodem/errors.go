// Package zmodem implements the Zmodem file-transfer protocol: frame
// parsing with byte-stuffing, CRC-16/CRC-32 validation, a state machine
// for negotiation and streaming transfer with retransmission, and
// crash-recovery state for resuming an interrupted transfer.
package zmodem

import "fmt"

// CrcMismatchError reports that a data block's trailing CRC did not match
// the block's content.
type CrcMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *CrcMismatchError) Error() string {
	return fmt.Sprintf("zmodem: crc mismatch: expected %#x, got %#x", e.Expected, e.Actual)
}

// InvalidFrameError reports a structurally broken frame.
type InvalidFrameError struct {
	Detail string
}

func (e *InvalidFrameError) Error() string {
	return fmt.Sprintf("zmodem: invalid frame: %s", e.Detail)
}

func errInvalidFrame(format string, args ...any) error {
	return &InvalidFrameError{Detail: fmt.Sprintf(format, args...)}
}

// InvalidFrameEncodingError reports an unrecognized frame-encoding byte
// (the byte following ZDLE that should have been 'A', 'B', or 'C').
type InvalidFrameEncodingError struct {
	Byte byte
}

func (e *InvalidFrameEncodingError) Error() string {
	return fmt.Sprintf("zmodem: invalid frame encoding byte %#x", e.Byte)
}

// InvalidEscapeError reports a ZDLE not followed by a legal second byte.
var ErrInvalidEscape = fmt.Errorf("zmodem: invalid escape sequence")

// Transport/protocol-level sentinel errors.
var (
	ErrUnexpectedEOF      = fmt.Errorf("zmodem: unexpected end of stream")
	ErrTimeout            = fmt.Errorf("zmodem: timed out waiting for frame")
	ErrCancelled          = fmt.Errorf("zmodem: transfer cancelled")
	ErrMaxRetriesExceeded = fmt.Errorf("zmodem: max retries exceeded")
	ErrFileSkipped        = fmt.Errorf("zmodem: file skipped by receiver")
)
