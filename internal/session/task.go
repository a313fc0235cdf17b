package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Task is a running bulk dump or mode switch. It resolves exactly once.
type Task struct {
	id   uuid.UUID
	kind string

	ctx    context.Context
	cancel context.CancelFunc

	once     sync.Once
	resolved atomic.Bool
	done     chan struct{}
	err      error
	onFinish func(*Task)
}

func newTask(kind string, timeout time.Duration, onFinish func(*Task)) *Task {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t := &Task{
		id:       uuid.New(),
		kind:     kind,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		onFinish: onFinish,
	}
	go t.supervise()
	return t
}

func (t *Task) supervise() {
	<-t.ctx.Done()
	if errors.Is(t.ctx.Err(), context.DeadlineExceeded) {
		t.finish(ErrTimeout)
	}
}

// finish resolves the task; later calls are ignored. It reports whether this
// call was the one that resolved it.
func (t *Task) finish(err error) bool {
	first := false
	t.once.Do(func() {
		first = true
		t.resolved.Store(true)
		if err != nil {
			err = fmt.Errorf("%s %s: %w", t.kind, t.id, err)
		}
		t.err = err
		t.cancel()
		if t.onFinish != nil {
			t.onFinish(t)
		}
		close(t.done)
	})
	return first
}

func (t *Task) ID() string   { return t.id.String() }
func (t *Task) Kind() string { return t.kind }

// Done is closed once the task has resolved.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err is nil while the task runs and after a successful finish.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task resolves or ctx ends.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops the task before its next step; progress already reported stays.
func (t *Task) Cancel() {
	t.finish(ErrCancelled)
}

// active reports whether the task is still running. It turns false as soon
// as resolution starts, before Done is closed.
func (t *Task) active() bool {
	return !t.resolved.Load()
}
