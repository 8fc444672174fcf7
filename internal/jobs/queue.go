package jobs

import (
	"sync"

	"github.com/sevigo/ci-warden/internal/core"
)

// queue is a FIFO of pending tasks. With capacity <= 0 it is unbounded, so
// producers are never blocked or rejected for lack of space.
type queue struct {
	mu       sync.Mutex
	items    []*core.WorkerTask
	capacity int
	closed   bool

	ready chan struct{}
	done  chan struct{}
}

func newQueue(capacity int) *queue {
	return &queue{
		capacity: capacity,
		ready:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (q *queue) push(task *core.WorkerTask) (int, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0, core.ErrDispatcherStopped
	}
	if q.capacity > 0 && len(q.items) >= q.capacity {
		q.mu.Unlock()
		return 0, core.ErrQueueFull
	}
	q.items = append(q.items, task)
	depth := len(q.items)
	q.mu.Unlock()

	q.signal()
	return depth, nil
}

// pop blocks until a task is available. After close it keeps returning the
// remaining tasks and reports false once the queue is empty.
func (q *queue) pop() (*core.WorkerTask, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			task := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()
			if more {
				q.signal()
			}
			return task, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil, false
		}

		select {
		case <-q.ready:
		case <-q.done:
		}
	}
}

func (q *queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
}

// drain removes and returns every task that has not been picked up yet.
func (q *queue) drain() []*core.WorkerTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *queue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
