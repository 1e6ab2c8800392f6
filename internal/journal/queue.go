package journal

import "sync"

// queue is a bounded FIFO ring. It starts small and doubles once 70%
// full until it reaches its limit; beyond that pushes are rejected.
type queue[T any] struct {
	mu    sync.Mutex
	buf   []T
	head  int
	count int
	limit int

	ready chan struct{} // signalled after every successful push
}

func newQueue[T any](limit int) *queue[T] {
	if limit < 1 {
		limit = 1
	}
	initial := 64
	if initial > limit {
		initial = limit
	}
	return &queue[T]{
		buf:   make([]T, initial),
		limit: limit,
		ready: make(chan struct{}, 1),
	}
}

// push appends item, or returns false when the queue is at its limit.
func (q *queue[T]) push(item T) bool {
	q.mu.Lock()
	if q.count == q.limit {
		q.mu.Unlock()
		return false
	}
	if q.count+1 >= len(q.buf)*70/100 && len(q.buf) < q.limit {
		q.growLocked()
	}
	if q.count == len(q.buf) {
		q.growLocked()
	}

	q.buf[(q.head+q.count)%len(q.buf)] = item
	q.count++
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// drain removes up to max items in FIFO order. max <= 0 drains all.
func (q *queue[T]) drain(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.count
	if max > 0 && max < n {
		n = max
	}
	if n == 0 {
		return nil
	}

	out := make([]T, n)
	var zero T
	for i := range out {
		out[i] = q.buf[q.head]
		q.buf[q.head] = zero
		q.head = (q.head + 1) % len(q.buf)
	}
	q.count -= n
	return out
}

func (q *queue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// growLocked doubles the ring, capped at the limit, and unwraps it.
func (q *queue[T]) growLocked() {
	size := len(q.buf) * 2
	if size > q.limit {
		size = q.limit
	}
	if size <= len(q.buf) {
		return
	}

	buf := make([]T, size)
	n := copy(buf, q.buf[q.head:min(q.head+q.count, len(q.buf))])
	if n < q.count {
		copy(buf[n:], q.buf[:q.count-n])
	}
	q.buf = buf
	q.head = 0
}
