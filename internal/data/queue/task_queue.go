package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"libpack/internal/shared/observability"
)

var (
	ErrClosed     = errors.New("task queue closed")
	ErrNotStarted = errors.New("task queue not started")
)

// Task is one unit of dispatched work. Tasks sharing a Key run one at a time in
// enqueue order; tasks with different keys may run concurrently.
type Task struct {
	Key string
	Run func(ctx context.Context) error
}

// TaskQueue runs tasks on a shared pool of workers. A key is held by at most
// one worker at a time; later tasks for a busy key wait behind it without
// occupying a worker.
type TaskQueue struct {
	slots   chan struct{}
	ready   chan Task
	done    chan struct{}
	mu      sync.Mutex
	ctx     context.Context
	closed  bool
	active  map[string]bool
	waiting map[string][]Task
	workers int
	pending sync.WaitGroup
	running sync.WaitGroup
	onError func(Task, error)
}

// NewTaskQueue accepts at most capacity tasks that have not started yet.
func NewTaskQueue(capacity, workers int) *TaskQueue {
	if workers <= 0 {
		workers = 1
	}
	if capacity < 1 {
		capacity = 1
	}
	return &TaskQueue{
		slots:   make(chan struct{}, capacity),
		ready:   make(chan Task, capacity),
		done:    make(chan struct{}),
		active:  make(map[string]bool),
		waiting: make(map[string][]Task),
		workers: workers,
		onError: func(task Task, err error) {
			slog.Error("task failed", "key", task.Key, "error", err)
		},
	}
}

// OnError replaces the failure hook. It must be set before Start.
func (q *TaskQueue) OnError(fn func(Task, error)) {
	if fn != nil {
		q.onError = fn
	}
}

// Start launches the workers. Once ctx is done, remaining tasks are drained
// without being run.
func (q *TaskQueue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ctx != nil || q.closed {
		return
	}
	q.ctx = ctx
	for i := 0; i < q.workers; i++ {
		q.running.Add(1)
		go q.work(ctx)
	}
}

// Enqueue accepts task, blocking while capacity tasks are already waiting.
func (q *TaskQueue) Enqueue(ctx context.Context, task Task) error {
	if task.Run == nil {
		return fmt.Errorf("task %q has no run function", task.Key)
	}
	q.mu.Lock()
	closed, started := q.closed, q.ctx
	q.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if started == nil {
		return ErrNotStarted
	}

	select {
	case q.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-started.Done():
		return started.Err()
	case <-q.done:
		return ErrClosed
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		<-q.slots
		return ErrClosed
	}
	q.pending.Add(1)
	observability.TaskQueueDepth.Inc()
	if q.active[task.Key] {
		q.waiting[task.Key] = append(q.waiting[task.Key], task)
		return nil
	}
	q.active[task.Key] = true
	// Never blocks: ready holds only tasks that own a slot.
	q.ready <- task
	return nil
}

// Wait blocks until every accepted task has finished.
func (q *TaskQueue) Wait() {
	q.pending.Wait()
}

// Close stops accepting tasks, lets the accepted ones finish and waits for the
// workers.
func (q *TaskQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	started := q.ctx != nil
	q.mu.Unlock()
	if !started {
		return nil
	}
	q.pending.Wait()
	close(q.ready)
	q.running.Wait()
	return nil
}

// Len is the number of accepted tasks that have not started.
func (q *TaskQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.slots)
}

func (q *TaskQueue) work(ctx context.Context) {
	defer q.running.Done()
	for task := range q.ready {
		<-q.slots
		observability.TaskQueueDepth.Dec()
		if ctx.Err() == nil {
			if err := q.run(ctx, task); err != nil {
				observability.TasksFailedTotal.Inc()
				q.onError(task, err)
			}
		}
		q.release(task.Key)
		q.pending.Done()
	}
}

// release hands key to its next waiting task, if any.
func (q *TaskQueue) release(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	next := q.waiting[key]
	if len(next) == 0 {
		delete(q.waiting, key)
		delete(q.active, key)
		return
	}
	q.waiting[key] = next[1:]
	q.ready <- next[0]
}

func (q *TaskQueue) run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %q panicked: %v", task.Key, r)
		}
	}()
	return task.Run(ctx)
}
