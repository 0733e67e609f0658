package pipe

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/pipe")

var (
	framesSentTotal     = metrics.NewCounter("dipc_frames_sent_total")
	framesReceivedTotal = metrics.NewCounter("dipc_frames_received_total")
)

// lengthPrefixSize is the fixed size of the frame length prefix in bytes.
const lengthPrefixSize = 4

// flusher is implemented by writers that buffer output (e.g. bufio.Writer).
type flusher interface {
	Flush() error
}

// pipeTransport implements the framed transport over a reader/writer pair.
type pipeTransport struct {
	reader io.ReadCloser
	writer io.WriteCloser
	pool   *BufferPool

	// writeMu serializes writers so concurrently sent frames never interleave
	writeMu sync.Mutex
}

// NewPipeTransport creates a framed transport over the given stream pair.
// The config's zero values are replaced by defaults.
func NewPipeTransport(reader io.ReadCloser, writer io.WriteCloser, config common.TransportConfig) transport.IIPCTransport {
	config = config.Normalized()
	return &pipeTransport{
		reader: reader,
		writer: writer,
		pool:   NewBufferPool(config.BufferSize, config.PoolSize),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IIPCTransport)
// --------------------------------------------------------------------------

func (t *pipeTransport) Send(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	var prefix [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(data)))

	// The prefix is written and flushed on its own so the receiver can rely
	// on reading it as a fixed 4-byte unit.
	if _, err := t.writer.Write(prefix[:]); err != nil {
		return fmt.Errorf("failed to write length prefix: %w", err)
	}
	if err := t.flush(); err != nil {
		return err
	}

	if _, err := t.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	if err := t.flush(); err != nil {
		return err
	}

	framesSentTotal.Inc()
	return nil
}

func (t *pipeTransport) SendTimeout(data []byte, timeout time.Duration) error {
	start := time.Now()
	err := t.Send(data)
	return reclassifyTimeout(err, start, timeout)
}

func (t *pipeTransport) Receive() ([]byte, error) {
	var prefix [lengthPrefixSize]byte
	if _, err := io.ReadFull(t.reader, prefix[:]); err != nil {
		// A clean EOF before any prefix byte means the peer closed the
		// stream; a partial prefix means the frame was truncated. Both
		// surface as a closed connection.
		return nil, closedErr(err)
	}

	length := binary.BigEndian.Uint32(prefix[:])

	if length <= uint32(t.pool.BufferSize()) {
		return t.receivePooled(int(length))
	}
	return t.receiveDirect(int(length))
}

func (t *pipeTransport) ReceiveTimeout(timeout time.Duration) ([]byte, error) {
	start := time.Now()
	data, err := t.Receive()
	return data, reclassifyTimeout(err, start, timeout)
}

func (t *pipeTransport) Close() error {
	rErr := t.reader.Close()
	wErr := t.writer.Close()
	if rErr != nil {
		return rErr
	}
	return wErr
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// receivePooled reads a payload of the given length through the buffer pool.
// The pool buffer is always released before returning; the result is an
// independent copy.
func (t *pipeTransport) receivePooled(length int) ([]byte, error) {
	buf := t.pool.Get()

	read := 0
	for read < length {
		// Each underlying read may return fewer bytes than requested;
		// accumulate until the full payload has arrived.
		n, err := t.reader.Read(buf[read:length])
		read += n
		if read >= length {
			break
		}
		if err == nil && n == 0 {
			err = io.ErrUnexpectedEOF
		}
		if err != nil {
			t.pool.Put(buf)
			return nil, closedErr(err)
		}
	}

	result := make([]byte, length)
	copy(result, buf[:length])
	t.pool.Put(buf)

	framesReceivedTotal.Inc()
	return result, nil
}

// receiveDirect reads a payload too large for the pool using a single
// direct allocation.
func (t *pipeTransport) receiveDirect(length int) ([]byte, error) {
	data := make([]byte, length)
	if _, err := io.ReadFull(t.reader, data); err != nil {
		return nil, closedErr(err)
	}

	framesReceivedTotal.Inc()
	return data, nil
}

// flush flushes the writer if it buffers output
func (t *pipeTransport) flush() error {
	if f, ok := t.writer.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("failed to flush: %w", err)
		}
	}
	return nil
}

// closedErr maps zero-byte and short reads onto the closed-connection
// sentinel while keeping the underlying error in the chain.
func closedErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe) {
		return fmt.Errorf("%w: %v", common.ErrConnClosed, err)
	}
	return err
}

// reclassifyTimeout implements the weak timeout contract: an error is
// reported as a timeout only when the operation both failed and had already
// exceeded its window. A slow success passes through untouched.
func reclassifyTimeout(err error, start time.Time, timeout time.Duration) error {
	if err == nil || timeout <= 0 {
		return err
	}
	if errors.Is(err, common.ErrConnClosed) {
		// Peer shutdown is not a timeout regardless of elapsed time.
		return err
	}
	if time.Since(start) >= timeout {
		Logger.Debugf("reclassifying transport error as timeout after %v: %v", time.Since(start), err)
		return fmt.Errorf("%w: %v", common.ErrTimeout, err)
	}
	return err
}
