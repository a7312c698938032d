package form

import (
	"context"
	"sync"
)

// Task is one in-flight submission.  Done closes once the controller has
// finished its success or failure handling and is back in Idle.
type Task struct {
	done   chan struct{}
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

func newTask(cancel context.CancelFunc) *Task {
	return &Task{done: make(chan struct{}), cancel: cancel}
}

// Done returns a channel closed when the submission has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the delivery error, or nil on success.  Only meaningful after
// Done is closed.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Wait blocks until the task finishes or ctx ends.  It returns the delivery
// error, or ctx.Err() if ctx ended first.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel aborts delivery.  The controller then takes the failure path.
func (t *Task) Cancel() { t.cancel() }

func (t *Task) finish(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	close(t.done)
}
