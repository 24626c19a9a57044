package xymodem

import (
	"io"
	"time"

	"github.com/stlalpha/impulse7/internal/zmodem"
)

// byteWaiter reads bytes from the transport on a single background
// goroutine, the same single-reader discipline used by the Zmodem
// engine, so a timed-out read never races a later one for the same
// bytes.
type byteWaiter struct {
	bytesCh chan byte
	errCh   chan error
}

func newByteWaiter(r io.Reader) *byteWaiter {
	w := &byteWaiter{
		bytesCh: make(chan byte, 4096),
		errCh:   make(chan error, 1),
	}
	go w.pump(r)
	return w
}

func (w *byteWaiter) pump(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		for i := 0; i < n; i++ {
			w.bytesCh <- buf[i]
		}
		if err != nil {
			w.errCh <- err
			return
		}
	}
}

func (w *byteWaiter) readByte(timeout time.Duration) (byte, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case b := <-w.bytesCh:
		return b, nil
	case err := <-w.errCh:
		return 0, err
	case <-t.C:
		return 0, zmodem.ErrTimeout
	}
}

// tryReadByte returns a buffered byte without blocking, used by the
// Ymodem-G sender to notice a mid-stream CAN without pausing the
// unacknowledged block stream to wait for one.
func (w *byteWaiter) tryReadByte() (byte, bool) {
	select {
	case b := <-w.bytesCh:
		return b, true
	default:
		return 0, false
	}
}

func (w *byteWaiter) readFull(buf []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for i := range buf {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return zmodem.ErrTimeout
		}
		b, err := w.readByte(remaining)
		if err != nil {
			return err
		}
		buf[i] = b
	}
	return nil
}
