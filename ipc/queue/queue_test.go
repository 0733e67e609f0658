package queue

import (
	"errors"
	"io"
	"testing"

	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/serializer"
)

// newQueuePair connects two queues through in-memory pipes, sharing a codec.
func newQueuePair(t *testing.T, s serializer.IIPCSerializer) (a, b *Queue) {
	t.Helper()

	aToBReader, aToBWriter := io.Pipe()
	bToAReader, bToAWriter := io.Pipe()

	a = NewPipeQueue(bToAReader, aToBWriter, s, common.TransportConfig{})
	b = NewPipeQueue(aToBReader, bToAWriter, s, common.TransportConfig{})

	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

// TestQueueRoundTrip tests that typed values put on one end come out the
// other end as their decoded wire shape.
func TestQueueRoundTrip(t *testing.T) {
	a, b := newQueuePair(t, serializer.NewMsgpackSerializer())

	sent := common.NewCommandEnvelope("echo", map[string]interface{}{"message": "hello"}, "go-1")
	go func() {
		if err := a.Put(sent, false, 0); err != nil {
			t.Errorf("put failed: %v", err)
		}
	}()

	v, err := b.Get(false, 0)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	env, ok := common.FromValue(v)
	if !ok {
		t.Fatalf("received %T, expected a string-keyed map", v)
	}
	if command, _ := env.Command(); command != "echo" {
		t.Errorf("expected command echo, got %q", command)
	}
	if requestID, _ := env.RequestID(); requestID != "go-1" {
		t.Errorf("expected request id go-1, got %q", requestID)
	}

	data, ok := common.FromValue(env.Data())
	if !ok {
		t.Fatalf("data decoded to %T, expected a map", env.Data())
	}
	if data["message"] != "hello" {
		t.Errorf("expected message hello, got %v", data["message"])
	}
}

// TestQueuePreservesOrder tests FIFO delivery across many messages.
func TestQueuePreservesOrder(t *testing.T) {
	a, b := newQueuePair(t, serializer.NewMsgpackSerializer())

	const count = 50
	go func() {
		for i := 0; i < count; i++ {
			if err := a.Put(map[string]interface{}{"seq": i}, false, 0); err != nil {
				t.Errorf("put %d failed: %v", i, err)
				return
			}
		}
	}()

	for i := 0; i < count; i++ {
		v, err := b.Get(false, 0)
		if err != nil {
			t.Fatalf("get %d failed: %v", i, err)
		}
		env, _ := common.FromValue(v)
		seq, ok := env["seq"].(int8)
		if !ok {
			// msgpack picks the narrowest integer width; normalize
			switch n := env["seq"].(type) {
			case int64:
				seq = int8(n)
			case uint8:
				seq = int8(n)
			default:
				t.Fatalf("message %d has seq of type %T", i, env["seq"])
			}
		}
		if int(seq) != i {
			t.Errorf("message %d arrived out of order: got seq %d", i, seq)
		}
	}
}

// TestPutUnserializableValue tests that an encoding failure is reported as a
// SerializationError naming the offending type and that nothing is sent.
func TestPutUnserializableValue(t *testing.T) {
	a, _ := newQueuePair(t, serializer.NewMsgpackSerializer())

	err := a.Put(map[string]interface{}{"bad": make(chan int)}, false, 0)
	if err == nil {
		t.Fatal("expected an error for an unserializable value")
	}

	var serErr *common.SerializationError
	if !errors.As(err, &serErr) {
		t.Fatalf("expected a SerializationError, got %T: %v", err, err)
	}
}

// TestGetOnClosedQueue tests that the closed-connection sentinel propagates
// through the queue layer.
func TestGetOnClosedQueue(t *testing.T) {
	a, b := newQueuePair(t, serializer.NewMsgpackSerializer())

	if err := a.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	_, err := b.Get(false, 0)
	if !errors.Is(err, common.ErrConnClosed) {
		t.Errorf("expected ErrConnClosed, got %v", err)
	}
}

// TestQueueWithJSONCodec tests that the queue works with a different codec,
// which decodes numbers as float64.
func TestQueueWithJSONCodec(t *testing.T) {
	a, b := newQueuePair(t, serializer.NewJSONSerializer())

	go func() {
		if err := a.Put(map[string]interface{}{"n": 42}, false, 0); err != nil {
			t.Errorf("put failed: %v", err)
		}
	}()

	v, err := b.Get(false, 0)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	env, ok := common.FromValue(v)
	if !ok {
		t.Fatalf("received %T, expected a map", v)
	}
	if n, ok := env["n"].(float64); !ok || n != 42 {
		t.Errorf("expected n=42 as float64, got %T %v", env["n"], env["n"])
	}
}
