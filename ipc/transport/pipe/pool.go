package pipe

import (
	"sync"

	"github.com/VictoriaMetrics/metrics"
)

var (
	poolGetTotal   = metrics.NewCounter("dipc_pool_get_total")
	poolMissTotal  = metrics.NewCounter("dipc_pool_miss_total")
	poolDropsTotal = metrics.NewCounter("dipc_pool_drops_total")
)

// BufferPool manages a bounded set of reusable fixed-size byte buffers.
//
// The pool is a best-effort reuse cache, not a capacity limiter: Get never
// blocks and allocates a fresh buffer on exhaustion, and Put re-admits any
// correctly sized buffer, so the idle set may grow past the initial target
// size under load. This unbounded growth is deliberate pool policy.
//
// Thread-safety: all methods are safe for concurrent use.
type BufferPool struct {
	mu      sync.Mutex
	idle    [][]byte
	bufSize int
}

// NewBufferPool creates a pool of count pre-allocated buffers of bufSize
// bytes each.
func NewBufferPool(bufSize, count int) *BufferPool {
	idle := make([][]byte, count)
	for i := range idle {
		idle[i] = make([]byte, bufSize)
	}
	return &BufferPool{
		idle:    idle,
		bufSize: bufSize,
	}
}

// BufferSize returns the fixed length of every buffer handed out by Get.
func (bp *BufferPool) BufferSize() int {
	return bp.bufSize
}

// Get returns an idle buffer, or a freshly allocated one if none are
// available. The returned buffer always has length BufferSize. Get never
// blocks and never fails.
func (bp *BufferPool) Get() []byte {
	poolGetTotal.Inc()

	bp.mu.Lock()
	if n := len(bp.idle); n > 0 {
		buf := bp.idle[n-1]
		bp.idle[n-1] = nil
		bp.idle = bp.idle[:n-1]
		bp.mu.Unlock()
		return buf
	}
	bp.mu.Unlock()

	poolMissTotal.Inc()
	return make([]byte, bp.bufSize)
}

// Put returns a buffer to the idle set. Buffers whose length does not match
// the pool's buffer size are silently discarded, never resized. Put never
// fails.
func (bp *BufferPool) Put(buf []byte) {
	if len(buf) != bp.bufSize {
		poolDropsTotal.Inc()
		return
	}

	bp.mu.Lock()
	bp.idle = append(bp.idle, buf)
	bp.mu.Unlock()
}
