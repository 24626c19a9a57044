package zmodem

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"
)

// duplex glues a read side and a write side into one io.ReadWriter so a
// Sender and Receiver can talk over a pair of in-memory pipes.
type duplex struct {
	r io.Reader
	w io.Writer
}

func (d *duplex) Read(p []byte) (int, error)  { return d.r.Read(p) }
func (d *duplex) Write(p []byte) (int, error) { return d.w.Write(p) }

func newLoopback() (senderRW, receiverRW *duplex) {
	aR, aW := io.Pipe() // sender -> receiver
	bR, bW := io.Pipe() // receiver -> sender
	senderRW = &duplex{r: bR, w: aW}
	receiverRW = &duplex{r: aR, w: bW}
	return
}

func fullCapabilities() Capabilities {
	return Capabilities{CanFDX: true, CanCRC32: true}
}

// sliceReadSeeker adapts a byte slice to io.ReadSeeker for Sender.SendFileData.
type sliceReadSeeker struct {
	data []byte
	pos  int64
}

func (s *sliceReadSeeker) Read(p []byte) (int, error) {
	if s.pos >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.pos:])
	s.pos += int64(n)
	return n, nil
}

func (s *sliceReadSeeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		s.pos = offset
	case io.SeekCurrent:
		s.pos += offset
	case io.SeekEnd:
		s.pos = int64(len(s.data)) + offset
	}
	return s.pos, nil
}

// Scenario: Zmodem single-file happy path. 14-byte file, CRC-32, no
// retries expected.
func TestLoopbackSingleFileHappyPath(t *testing.T) {
	content := []byte("Hello, world!\n") // 14 bytes
	senderRW, receiverRW := newLoopback()

	var wg sync.WaitGroup
	wg.Add(2)

	var sendStats TransferStats
	var sendErr error
	go func() {
		defer wg.Done()
		s := NewSender(senderRW, SenderConfig{UseCRC32: true, Timeout: 2 * time.Second})
		if sendErr = s.Negotiate(fullCapabilities(), false); sendErr != nil {
			return
		}
		info := FileInfo{Name: "hello.txt", Size: int64(len(content))}
		start, err := s.SendFileHeader(info)
		if err != nil {
			sendErr = err
			return
		}
		src := &sliceReadSeeker{data: content}
		src.Seek(start, io.SeekStart)
		if sendErr = s.SendFileData(src, start, info.Size, &sendStats); sendErr != nil {
			return
		}
		if _, sendErr = s.SendEOF(info.Size); sendErr != nil {
			return
		}
		sendErr = s.Finish()
	}()

	var received bytes.Buffer
	var recvStats TransferStats
	var recvErr error
	go func() {
		defer wg.Done()
		r := NewReceiver(receiverRW, ReceiverConfig{UseCRC32: true, Timeout: 2 * time.Second, AllowResume: false})
		if recvErr = r.Negotiate(fullCapabilities()); recvErr != nil {
			return
		}
		info, eob, err := r.ReceiveFileHeader()
		if err != nil || eob {
			recvErr = err
			return
		}
		if recvErr = r.AcceptAt(0); recvErr != nil {
			return
		}
		recvErr = r.ReceiveFileData(info.Size, fullCapabilities(), &recvStats, func(offset int64, data []byte) error {
			if int64(received.Len()) != offset {
				// out-of-order write in this simple test harness
				t.Errorf("unexpected write offset %d, buffer at %d", offset, received.Len())
			}
			received.Write(data)
			return nil
		})
		if recvErr != nil {
			return
		}
		recvErr = r.Finish()
	}()

	wg.Wait()

	if sendErr != nil {
		t.Fatalf("sender: %v", sendErr)
	}
	if recvErr != nil {
		t.Fatalf("receiver: %v", recvErr)
	}
	if !bytes.Equal(received.Bytes(), content) {
		t.Errorf("received %q, want %q", received.Bytes(), content)
	}
	if sendStats.BytesSent != 14 {
		t.Errorf("BytesSent = %d, want 14", sendStats.BytesSent)
	}
	if sendStats.Retries != 0 {
		t.Errorf("Retries = %d, want 0", sendStats.Retries)
	}
}
