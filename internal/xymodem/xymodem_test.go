package xymodem

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"
)

type duplex struct {
	r io.Reader
	w io.Writer
}

func (d *duplex) Read(p []byte) (int, error)  { return d.r.Read(p) }
func (d *duplex) Write(p []byte) (int, error) { return d.w.Write(p) }

func newLoopback() (senderRW, receiverRW *duplex) {
	aR, aW := io.Pipe()
	bR, bW := io.Pipe()
	senderRW = &duplex{r: bR, w: aW}
	receiverRW = &duplex{r: aR, w: bW}
	return
}

func TestXmodemRoundTrip(t *testing.T) {
	content := bytes.Repeat([]byte("abcdefghij"), 50) // 500 bytes, spans several blocks
	senderRW, receiverRW := newLoopback()
	cfg := Config{BlockSize: BlockSizeShort, Timeout: 2 * time.Second}

	var wg sync.WaitGroup
	wg.Add(2)

	var sendErr error
	var sendStats Stats
	go func() {
		defer wg.Done()
		sendErr = SendFile(senderRW, bytes.NewReader(content), cfg, &sendStats)
	}()

	var received bytes.Buffer
	var recvErr error
	var recvStats Stats
	go func() {
		defer wg.Done()
		recvStats, recvErr = ReceiveFile(receiverRW, cfg, func(seq uint8, data []byte) error {
			received.Write(data)
			return nil
		})
	}()

	wg.Wait()
	if sendErr != nil {
		t.Fatalf("sender: %v", sendErr)
	}
	if recvErr != nil {
		t.Fatalf("receiver: %v", recvErr)
	}
	// The last block is CPMEOF-padded to BlockSizeShort; trim to len(content).
	got := received.Bytes()
	if len(got) < len(content) {
		t.Fatalf("short transfer: got %d bytes, want at least %d", len(got), len(content))
	}
	if !bytes.Equal(got[:len(content)], content) {
		t.Errorf("content mismatch")
	}
	if recvStats.Retries != 0 {
		t.Errorf("unexpected retries: %d", recvStats.Retries)
	}
}

func TestYmodemBatchRoundTrip(t *testing.T) {
	files := []FileInfo{
		{Name: "one.txt", Size: 5},
		{Name: "two.txt", Size: 3},
	}
	contents := map[string][]byte{
		"one.txt": []byte("AAAAA"),
		"two.txt": []byte("BBB"),
	}
	senderRW, receiverRW := newLoopback()
	cfg := Config{BlockSize: BlockSizeShort, Timeout: 2 * time.Second}

	var wg sync.WaitGroup
	wg.Add(2)

	var sendErr error
	var sendStats Stats
	go func() {
		defer wg.Done()
		sendErr = SendBatch(senderRW, files, func(info FileInfo) (io.Reader, error) {
			return bytes.NewReader(contents[info.Name]), nil
		}, cfg, &sendStats)
	}()

	received := map[string]*bytes.Buffer{}
	var mu sync.Mutex
	var recvErr error
	go func() {
		defer wg.Done()
		_, recvErr = ReceiveBatch(receiverRW, cfg, func(info FileInfo) (func([]byte) error, error) {
			mu.Lock()
			buf := &bytes.Buffer{}
			received[info.Name] = buf
			mu.Unlock()
			return func(data []byte) error {
				buf.Write(data)
				return nil
			}, nil
		})
	}()

	wg.Wait()
	if sendErr != nil {
		t.Fatalf("sender: %v", sendErr)
	}
	if recvErr != nil {
		t.Fatalf("receiver: %v", recvErr)
	}
	for name, want := range contents {
		buf, ok := received[name]
		if !ok {
			t.Fatalf("file %s never received", name)
		}
		got := buf.Bytes()
		if len(got) < len(want) || !bytes.Equal(got[:len(want)], want) {
			t.Errorf("file %s: got %q, want prefix %q", name, got, want)
		}
	}
}

func TestBuildBlockVerifyBlockRoundTrip(t *testing.T) {
	payload := []byte("short payload")
	block := buildBlock(7, payload, BlockSizeShort)

	if block[0] != SOH {
		t.Fatalf("expected SOH header, got %#x", block[0])
	}
	padded := block[3 : 3+BlockSizeShort]
	pb, err := verifyBlock(block[1], block[2], padded, block[3+BlockSizeShort], block[4+BlockSizeShort])
	if err != nil {
		t.Fatalf("verifyBlock: %v", err)
	}
	if pb.seq != 7 {
		t.Errorf("seq = %d, want 7", pb.seq)
	}
}

func TestVerifyBlockDetectsCrcMismatch(t *testing.T) {
	payload := []byte("short payload")
	block := buildBlock(1, payload, BlockSizeShort)
	padded := block[3 : 3+BlockSizeShort]
	padded[0] ^= 0xFF

	_, err := verifyBlock(block[1], block[2], padded, block[3+BlockSizeShort], block[4+BlockSizeShort])
	if err == nil {
		t.Fatal("expected CRC mismatch error")
	}
}

func TestEncodeDecodeBlockZero(t *testing.T) {
	info := FileInfo{Name: "report.txt", Size: 4096}
	encoded := encodeBlockZero(&info, BlockSizeShort)
	payload := encoded[3 : 3+BlockSizeShort]

	got, eob, err := decodeBlockZero(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if eob {
		t.Fatal("unexpected end-of-batch")
	}
	if got.Name != info.Name || got.Size != info.Size {
		t.Errorf("got %+v, want %+v", got, info)
	}
}

func TestDecodeBlockZeroEndOfBatch(t *testing.T) {
	encoded := encodeBlockZero(nil, BlockSizeShort)
	payload := encoded[3 : 3+BlockSizeShort]

	_, eob, err := decodeBlockZero(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !eob {
		t.Fatal("expected end-of-batch sentinel")
	}
}
