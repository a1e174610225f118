package auth

import (
	"log"
	"sync"
)

// Scheduler runs work after the current call has returned.
type Scheduler interface {
	Defer(fn func())
}

// TaskQueue is a Scheduler backed by one worker goroutine.  Tasks run in
// the order they were deferred.
type TaskQueue struct {
	mu      sync.Mutex
	tasks   chan func()
	pending sync.WaitGroup
	closed  bool
	done    chan struct{}
}

// NewTaskQueue starts a queue holding up to size waiting tasks.
func NewTaskQueue(size int) *TaskQueue {
	if size <= 0 {
		size = 16
	}
	q := &TaskQueue{tasks: make(chan func(), size), done: make(chan struct{})}
	go q.run()
	return q
}

func (q *TaskQueue) run() {
	defer close(q.done)
	for fn := range q.tasks {
		fn()
		q.pending.Done()
	}
}

// Defer queues fn without blocking.  When the queue is full fn runs on a
// goroutine of its own.  Tasks deferred after Close are dropped.
func (q *TaskQueue) Defer(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.pending.Add(1)
	select {
	case q.tasks <- fn:
	default:
		log.Printf("auth: task queue full, running task out of order")
		go func() {
			defer q.pending.Done()
			fn()
		}()
	}
}

// Wait blocks until every queued task has run.
func (q *TaskQueue) Wait() { q.pending.Wait() }

// Close stops accepting tasks and waits for the queued ones to finish.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()
	<-q.done
}
