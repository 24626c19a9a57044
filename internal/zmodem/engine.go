package zmodem

import (
	"io"
	"time"
)

// frameWaiter reads bytes from a transport on a single background
// goroutine and lets callers either wait for the next parsed frame or
// pull raw bytes directly (used while reading a data subpacket, which is
// not itself framed by the sync-seeking Parser). One goroutine per
// transfer direction means there is never more than one reader blocked
// on the underlying stream, echoing the single-reader invariant the SSH
// transport layer enforces for interactive sessions.
type frameWaiter struct {
	parser  *Parser
	bytesCh chan byte
	errCh   chan error
}

func newFrameWaiter(r io.Reader) *frameWaiter {
	fw := &frameWaiter{
		parser:  NewParser(),
		bytesCh: make(chan byte, 4096),
		errCh:   make(chan error, 1),
	}
	go fw.pump(r)
	return fw
}

func (fw *frameWaiter) pump(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		for i := 0; i < n; i++ {
			fw.bytesCh <- buf[i]
		}
		if err != nil {
			fw.errCh <- err
			return
		}
	}
}

// nextFrame blocks until the parser yields a frame or error, or timeout
// elapses.
func (fw *frameWaiter) nextFrame(timeout time.Duration) (Frame, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case b := <-fw.bytesCh:
			for _, res := range fw.parser.Feed([]byte{b}) {
				if res.Err != nil {
					return Frame{}, res.Err
				}
				return res.Frame, nil
			}
		case err := <-fw.errCh:
			return Frame{}, err
		case <-deadline.C:
			return Frame{}, ErrTimeout
		}
	}
}

// readByte returns the next raw byte from the stream, bypassing the
// frame parser. Used while reading a data subpacket.
func (fw *frameWaiter) readByte(timeout time.Duration) (byte, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case b := <-fw.bytesCh:
		return b, nil
	case err := <-fw.errCh:
		return 0, err
	case <-deadline.C:
		return 0, ErrTimeout
	}
}

// readDataBlock reads one ZDATA data subpacket using fw's byte stream.
func (fw *frameWaiter) readDataBlock(useCRC32 bool, timeout time.Duration) (*BlockResult, error) {
	br := NewBlockReader(useCRC32)
	for {
		b, err := fw.readByte(timeout)
		if err != nil {
			return nil, err
		}
		res, err := br.Feed(b)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
}
