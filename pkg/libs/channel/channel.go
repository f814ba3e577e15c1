package channel

import (
	"sync"

	"go.uber.org/atomic"
)

// Channel is a bounded FIFO queue. Send blocks while the queue is full,
// Receive blocks while it is empty. After Close, Send fails and Receive
// drains the remaining values.
type Channel[T any] struct {
	cond   *sync.Cond
	values []T
	index  uint32
	// count of messages in queue
	len uint32
	// size(capacity) of queue
	size   uint32
	closed atomic.Bool
}

func NewChannel[T any](size uint32) *Channel[T] {
	if size == 0 {
		size = 1
	}
	return &Channel[T]{
		cond:   sync.NewCond(&sync.Mutex{}),
		values: make([]T, size),
		size:   size,
	}
}

func (a *Channel[T]) Send(val T) bool {
	a.cond.L.Lock()
	defer a.cond.L.Unlock()
	for {
		if a.closed.Load() {
			return false
		}
		// full of capacity
		if a.len == a.size {
			a.cond.Wait()
			continue
		}
		index := (a.index + a.len) % a.size
		a.values[index] = val
		a.len++
		break
	}
	a.cond.Broadcast()
	return true
}

// TrySend queues val without waiting. It fails when the queue is full or closed.
func (a *Channel[T]) TrySend(val T) bool {
	a.cond.L.Lock()
	defer a.cond.L.Unlock()
	if a.closed.Load() || a.len == a.size {
		return false
	}
	a.values[(a.index+a.len)%a.size] = val
	a.len++
	a.cond.Broadcast()
	return true
}

func (a *Channel[T]) Receive() (T, bool) {
	a.cond.L.Lock()
	defer a.cond.L.Unlock()
	for {
		if a.len > 0 {
			val := a.values[a.index]
			var zero T
			a.values[a.index] = zero
			a.index = (a.index + 1) % a.size
			a.len--
			a.cond.Broadcast()
			return val, true
		}
		if a.closed.Load() {
			var zero T
			return zero, false
		}
		a.cond.Wait()
	}
}

// Len returns the number of queued values.
func (a *Channel[T]) Len() int {
	a.cond.L.Lock()
	defer a.cond.L.Unlock()
	return int(a.len)
}

func (a *Channel[T]) Close() {
	a.cond.L.Lock()
	a.closed.Store(true)
	a.cond.L.Unlock()
	a.cond.Broadcast()
}
