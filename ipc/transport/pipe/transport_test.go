package pipe

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/transport"
)

// newTransportPair connects two transports through in-memory pipes, like two
// processes sharing a pair of unidirectional streams.
func newTransportPair(t *testing.T, config common.TransportConfig) (a, b transport.IIPCTransport) {
	t.Helper()

	aToB := struct {
		*io.PipeReader
		*io.PipeWriter
	}{}
	aToB.PipeReader, aToB.PipeWriter = io.Pipe()
	bToA := struct {
		*io.PipeReader
		*io.PipeWriter
	}{}
	bToA.PipeReader, bToA.PipeWriter = io.Pipe()

	a = NewPipeTransport(bToA.PipeReader, aToB.PipeWriter, config)
	b = NewPipeTransport(aToB.PipeReader, bToA.PipeWriter, config)

	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

// TestSendReceiveRoundTrip tests that frames of various sizes survive the
// trip through the length-prefixed framing, including payloads larger than
// the pool's buffer size (which take the direct-allocation path).
func TestSendReceiveRoundTrip(t *testing.T) {
	config := common.TransportConfig{BufferSize: 64, PoolSize: 2}
	a, b := newTransportPair(t, config)

	payloads := [][]byte{
		[]byte("x"),
		[]byte("hello world"),
		bytes.Repeat([]byte{0x42}, 64),  // exactly the buffer size
		bytes.Repeat([]byte{0x42}, 65),  // one byte over, direct path
		bytes.Repeat([]byte{0x42}, 4096), // well past the pool
	}

	for i, payload := range payloads {
		go func(p []byte) {
			if err := a.Send(p); err != nil {
				t.Errorf("send failed: %v", err)
			}
		}(payload)

		received, err := b.Receive()
		if err != nil {
			t.Fatalf("receive %d failed: %v", i, err)
		}
		if !bytes.Equal(payload, received) {
			t.Errorf("payload %d mismatch: sent %d bytes, got %d bytes", i, len(payload), len(received))
		}
	}
}

// TestEmptyFrame tests that a zero-length payload is a valid frame.
func TestEmptyFrame(t *testing.T) {
	a, b := newTransportPair(t, common.TransportConfig{})

	go func() {
		if err := a.Send([]byte{}); err != nil {
			t.Errorf("send failed: %v", err)
		}
	}()

	received, err := b.Receive()
	if err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	if len(received) != 0 {
		t.Errorf("expected empty payload, got %d bytes", len(received))
	}
}

// TestReceiveOrdering tests that frames are delivered in send order.
func TestReceiveOrdering(t *testing.T) {
	a, b := newTransportPair(t, common.TransportConfig{})

	go func() {
		for i := 0; i < 10; i++ {
			if err := a.Send([]byte{byte(i)}); err != nil {
				t.Errorf("send %d failed: %v", i, err)
				return
			}
		}
	}()

	for i := 0; i < 10; i++ {
		received, err := b.Receive()
		if err != nil {
			t.Fatalf("receive %d failed: %v", i, err)
		}
		if len(received) != 1 || received[0] != byte(i) {
			t.Errorf("frame %d out of order: got %v", i, received)
		}
	}
}

// TestReceiveOnClosedStream tests that closing the writing side surfaces as
// ErrConnClosed on the reader.
func TestReceiveOnClosedStream(t *testing.T) {
	a, b := newTransportPair(t, common.TransportConfig{})

	if err := a.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	_, err := b.Receive()
	if !errors.Is(err, common.ErrConnClosed) {
		t.Errorf("expected ErrConnClosed, got %v", err)
	}
}

// TestTruncatedFrame tests that a stream ending mid-payload surfaces as a
// closed connection, not a short read.
func TestTruncatedFrame(t *testing.T) {
	reader, writer := io.Pipe()
	tr := NewPipeTransport(reader, nopWriteCloser{}, common.TransportConfig{BufferSize: 64})

	go func() {
		// Announce 100 bytes but deliver only 3, then close.
		writer.Write([]byte{0, 0, 0, 100})
		writer.Write([]byte("abc"))
		writer.Close()
	}()

	_, err := tr.Receive()
	if !errors.Is(err, common.ErrConnClosed) {
		t.Errorf("expected ErrConnClosed for truncated frame, got %v", err)
	}
}

// TestReceiveTimeoutWeakContract tests the timeout reclassification rules:
// a late failure becomes ErrTimeout, a slow success is returned untouched,
// and a closed connection is never reported as a timeout.
func TestReceiveTimeoutWeakContract(t *testing.T) {
	t.Run("SlowSuccessPassesThrough", func(t *testing.T) {
		a, b := newTransportPair(t, common.TransportConfig{})

		go func() {
			// Deliver well after the receiver's timeout window.
			time.Sleep(30 * time.Millisecond)
			a.Send([]byte("late"))
		}()

		received, err := b.ReceiveTimeout(5 * time.Millisecond)
		if err != nil {
			t.Fatalf("slow success must not error: %v", err)
		}
		if string(received) != "late" {
			t.Errorf("unexpected payload %q", received)
		}
	})

	t.Run("LateFailureBecomesTimeout", func(t *testing.T) {
		reader, _ := io.Pipe()
		tr := NewPipeTransport(reader, nopWriteCloser{}, common.TransportConfig{})

		go func() {
			time.Sleep(20 * time.Millisecond)
			reader.CloseWithError(errors.New("stream torn down"))
		}()

		_, err := tr.ReceiveTimeout(5 * time.Millisecond)
		if !errors.Is(err, common.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("ClosedConnNeverReclassified", func(t *testing.T) {
		reader, writer := io.Pipe()
		tr := NewPipeTransport(reader, nopWriteCloser{}, common.TransportConfig{})

		go func() {
			time.Sleep(20 * time.Millisecond)
			writer.Close()
		}()

		_, err := tr.ReceiveTimeout(5 * time.Millisecond)
		if !errors.Is(err, common.ErrConnClosed) {
			t.Errorf("expected ErrConnClosed, got %v", err)
		}
		if errors.Is(err, common.ErrTimeout) {
			t.Errorf("peer shutdown must not be reported as a timeout")
		}
	})
}

// nopWriteCloser discards writes; used for receive-only transports in tests.
type nopWriteCloser struct{}

func (nopWriteCloser) Write(p []byte) (int, error) { return len(p), nil }
func (nopWriteCloser) Close() error                { return nil }
