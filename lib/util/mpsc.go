package util

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// node represents a single element in the queue
type node[T any] struct {
	value *T
	next  atomic.Pointer[node[T]]
}

// LockFreeMPSC is an unbounded lock-free multi-producer single-consumer
// queue built on a linked list with atomic appends.
//
// Guarantees:
//   - Push is safe for any number of concurrent goroutines
//   - items are delivered to a single consumer via the Recv channel
//   - items already queued at Close time are still delivered
//
// Under concurrent pushes the delivery order is determined by which
// producer completes its append first, not by which one started first.
type LockFreeMPSC[T any] struct {
	head     atomic.Pointer[node[T]]
	tail     atomic.Pointer[node[T]]
	out      chan *T
	consumer sync.WaitGroup
	closed   atomic.Bool

	// cond wakes the consumer when producers append to an empty queue
	mu   sync.Mutex
	cond *sync.Cond
}

// NewLockFreeMPSC creates the queue and starts its consumer goroutine.
func NewLockFreeMPSC[T any]() *LockFreeMPSC[T] {
	// sentinel node: head always points at the element before the first
	// unconsumed one
	sentinel := &node[T]{}

	q := &LockFreeMPSC[T]{
		out: make(chan *T),
	}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	q.consumer.Add(1)
	go q.consume()

	return q
}

// Push appends an item to the queue. It returns false if the item is nil
// or the queue has been closed.
//
// Thread-safety: safe for concurrent use by any number of producers.
func (q *LockFreeMPSC[T]) Push(value *T) bool {
	if value == nil || q.closed.Load() {
		return false
	}

	newNode := &node[T]{value: value}

	var backoff uint8 = 0
	for {
		tailNode := q.tail.Load()

		next := tailNode.next.Load()
		if next == nil {
			if tailNode.next.CompareAndSwap(nil, newNode) {
				// Appended. Updating tail may be raced by a helping
				// producer; either CAS outcome leaves tail correct.
				q.tail.CompareAndSwap(tailNode, newNode)

				// the lock orders this signal against the consumer's
				// empty-check, otherwise the wakeup could be lost
				q.mu.Lock()
				q.cond.Signal()
				q.mu.Unlock()
				return true
			}
		} else {
			// another producer appended but has not advanced tail yet; help
			q.tail.CompareAndSwap(tailNode, next)
		}

		// spin briefly under low contention, yield under high contention
		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// consume drains the linked list into the output channel and frees nodes.
func (q *LockFreeMPSC[T]) consume() {
	defer q.consumer.Done()
	defer close(q.out)

	for {
		delivered := false

		for {
			head := q.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}

			delivered = true
			value := next.value

			// advancing head unlinks the consumed node
			q.head.Store(next)
			q.out <- value
			next.value = nil
		}

		if !delivered && q.closed.Load() {
			return
		}

		if !delivered {
			q.mu.Lock()
			// re-check under the lock so a concurrent Push or Close between
			// the empty check and Wait cannot strand the consumer
			head := q.head.Load()
			if head.next.Load() == nil && !q.closed.Load() {
				q.cond.Wait()
			}
			q.mu.Unlock()
		}
	}
}

// Recv returns the receive-only channel the consumer side reads from. The
// channel is closed once the queue is closed and fully drained.
func (q *LockFreeMPSC[T]) Recv() <-chan *T {
	return q.out
}

// Close prevents further pushes. Items already queued are still delivered
// before the Recv channel is closed.
func (q *LockFreeMPSC[T]) Close() {
	q.closed.Store(true)

	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}
