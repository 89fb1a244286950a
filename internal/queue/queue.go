package queue

import (
	"sync"
)

// Queue is a thread-safe FIFO used to batch writes. A positive limit caps
// its length; pushes beyond the cap are rejected.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	limit int
}

// New creates a new empty queue. limit <= 0 means unbounded.
func New[T any](limit int) *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
		limit: limit,
	}
}

// Push appends items in order until the queue is full and returns how many were accepted.
func (q *Queue[T]) Push(items ...T) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(items)
	if q.limit > 0 {
		if free := q.limit - len(q.items); free < n {
			n = max(free, 0)
		}
	}
	q.items = append(q.items, items[:n]...)
	return n
}

// PushFront puts items back at the head of the queue, ahead of anything
// pushed since. Under a limit only the leading items that fit are kept;
// it returns how many were accepted.
func (q *Queue[T]) PushFront(items ...T) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(items)
	if q.limit > 0 {
		if free := q.limit - len(q.items); free < n {
			n = max(free, 0)
		}
	}
	merged := make([]T, 0, n+len(q.items))
	merged = append(merged, items[:n]...)
	q.items = append(merged, q.items...)
	return n
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain removes and returns up to n items from the front; n <= 0 drains everything.
func (q *Queue[T]) Drain(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n <= 0 || n >= len(q.items) {
		result := q.items
		q.items = make([]T, 0, cap(q.items))
		return result
	}
	result := make([]T, n)
	copy(result, q.items[:n])
	q.items = append(q.items[:0], q.items[n:]...)
	return result
}
