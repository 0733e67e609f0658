package pipe

import (
	"sync"
	"testing"
)

// TestPoolGetNeverBlocks tests that Get keeps handing out buffers after the
// pre-allocated set is exhausted.
func TestPoolGetNeverBlocks(t *testing.T) {
	pool := NewBufferPool(64, 2)

	bufs := make([][]byte, 10)
	for i := range bufs {
		bufs[i] = pool.Get()
		if len(bufs[i]) != 64 {
			t.Fatalf("buffer %d has length %d, expected 64", i, len(bufs[i]))
		}
	}
}

// TestPoolReuse tests that a returned buffer is handed out again instead of
// allocating a new one.
func TestPoolReuse(t *testing.T) {
	pool := NewBufferPool(32, 1)

	first := pool.Get()
	first[0] = 0xAB
	pool.Put(first)

	second := pool.Get()
	if second[0] != 0xAB {
		t.Errorf("expected the returned buffer to be reused")
	}
}

// TestPoolDiscardsWrongSize tests that buffers of the wrong length are
// dropped on Put instead of being resized or re-admitted.
func TestPoolDiscardsWrongSize(t *testing.T) {
	pool := NewBufferPool(32, 0)

	pool.Put(make([]byte, 16))
	pool.Put(make([]byte, 64))

	// The pool started empty and both Puts were rejected, so this Get must
	// allocate a fresh, correctly sized buffer.
	buf := pool.Get()
	if len(buf) != 32 {
		t.Errorf("expected a 32-byte buffer, got %d bytes", len(buf))
	}
}

// TestPoolGrowsPastInitialSize tests that returning more buffers than the
// initial count is allowed (the idle set is not capped).
func TestPoolGrowsPastInitialSize(t *testing.T) {
	pool := NewBufferPool(8, 1)

	for i := 0; i < 5; i++ {
		pool.Put(make([]byte, 8))
	}

	// All six buffers (one pre-allocated, five re-admitted) must come back
	// without a fresh allocation being observable as a wrong-size buffer.
	for i := 0; i < 6; i++ {
		if len(pool.Get()) != 8 {
			t.Fatalf("buffer %d has wrong size", i)
		}
	}
}

// TestPoolConcurrentAccess exercises the pool from many goroutines; run with
// -race to verify the locking.
func TestPoolConcurrentAccess(t *testing.T) {
	pool := NewBufferPool(128, 4)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				buf := pool.Get()
				buf[0] = byte(j)
				pool.Put(buf)
			}
		}()
	}
	wg.Wait()
}
