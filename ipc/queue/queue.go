package queue

import (
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/serializer"
	"github.com/ValentinKolb/dIPC/ipc/transport"
	"github.com/ValentinKolb/dIPC/ipc/transport/pipe"
)

// Queue pairs a framed transport with a serializer, turning the byte-level
// transport into a typed message queue.
//
// Thread-safety: Put and Get are safe for concurrent use; the underlying
// transport serializes writers and supports one concurrent reader.
type Queue struct {
	transport  transport.IIPCTransport
	serializer serializer.IIPCSerializer
}

// NewQueue creates a typed queue on top of an existing transport.
func NewQueue(t transport.IIPCTransport, s serializer.IIPCSerializer) *Queue {
	return &Queue{
		transport:  t,
		serializer: s,
	}
}

// NewPipeQueue creates a typed queue over a raw stream pair, constructing
// the framed pipe transport internally.
func NewPipeQueue(reader io.ReadCloser, writer io.WriteCloser, s serializer.IIPCSerializer, config common.TransportConfig) *Queue {
	return NewQueue(pipe.NewPipeTransport(reader, writer, config), s)
}

// Serializer returns the serializer this queue encodes with.
func (q *Queue) Serializer() serializer.IIPCSerializer {
	return q.serializer
}

// Put encodes v and sends it as a single frame. With block set, the timed
// transport path is used (weak timeout contract, see transport package);
// otherwise the frame is sent with a plain untimed write.
func (q *Queue) Put(v interface{}, block bool, timeout time.Duration) error {
	data, err := q.serializer.Serialize(v)
	if err != nil {
		return common.NewSerializationError(v, err)
	}

	if block {
		return q.transport.SendTimeout(data, timeout)
	}
	return q.transport.Send(data)
}

// Get receives a single frame and decodes it. With block set, the timed
// transport path is used; otherwise a plain untimed read. Decoding failures
// propagate as-is.
func (q *Queue) Get(block bool, timeout time.Duration) (interface{}, error) {
	var data []byte
	var err error

	if block {
		data, err = q.transport.ReceiveTimeout(timeout)
	} else {
		data, err = q.transport.Receive()
	}
	if err != nil {
		return nil, err
	}

	var v interface{}
	if err := q.serializer.Deserialize(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	return v, nil
}

// Close closes the underlying transport.
func (q *Queue) Close() error {
	return q.transport.Close()
}
