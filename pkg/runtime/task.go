package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// TaskState is the lifecycle state of a background task.
type TaskState int32

const (
	TaskCreated   TaskState = iota // not yet running
	TaskRunning                    // work body executing
	TaskCompleted                  // work body returned nil
	TaskCancelled                  // cancelled by Cancel, Restart, or instance teardown
	TaskErrored                    // work body returned an error
)

// String returns the string representation of the TaskState.
func (s TaskState) String() string {
	switch s {
	case TaskCreated:
		return "Created"
	case TaskRunning:
		return "Running"
	case TaskCompleted:
		return "Completed"
	case TaskCancelled:
		return "Cancelled"
	case TaskErrored:
		return "Errored"
	default:
		return "Unknown"
	}
}

// UseTask spawns work on its own goroutine the first time the slot
// renders and returns the same handle on every later render. The task's
// lifetime is bound to the instance: destroying the instance cancels the
// task's context and transitions it to Cancelled.
//
// Cancellation is cooperative. The context passed to work is cancelled
// when the task is; a long-running body should select on ctx.Done() at
// its own checkpoints, but a body that never checks simply has its
// result discarded.
//
// Work bodies mutate component state through State handles only, the
// queued next-render-visible write path, so task-driven updates join
// the normal dirty/re-render cycle instead of touching committed trees.
func UseTask(cx *Cx, work func(ctx context.Context) error) *Task {
	slot := cx.inst.nextSlot(slotTask)
	if slot.value == nil {
		t := newTask(cx.inst, work)
		slot.value = t
		cx.inst.tasks = append(cx.inst.tasks, t)
		t.start()
		return t
	}
	return slot.value.(*Task)
}

// Task is a handle to one background unit of work owned by a component
// instance.
type Task struct {
	id    uint64
	inst  *Instance
	work  func(ctx context.Context) error
	state atomic.Int32

	mu     sync.Mutex
	runID  uint64
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func newTask(inst *Instance, work func(ctx context.Context) error) *Task {
	return &Task{
		id:   nextID(),
		inst: inst,
		work: work,
	}
}

// ID returns the unique identifier of this task.
func (t *Task) ID() uint64 {
	return t.id
}

// State returns the task's current lifecycle state.
func (t *Task) State() TaskState {
	return TaskState(t.state.Load())
}

// Err returns the terminal error: the work body's error for Errored,
// ErrTaskCancelled for Cancelled, nil otherwise. Failure is visible only
// through this accessor; an unobserved Errored task is a silent terminal
// state, never a process fault.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Done returns a channel closed when the current run reaches a terminal
// state.
func (t *Task) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// start transitions Created→Running and launches the work goroutine.
func (t *Task) start() {
	t.mu.Lock()
	t.runID++
	runID := t.runID
	ctx, cancel := context.WithCancel(t.inst.loop.stdContext())
	t.cancel = cancel
	done := make(chan struct{})
	t.done = done
	t.mu.Unlock()

	t.state.Store(int32(TaskRunning))

	go func() {
		err := t.run(ctx)
		t.finish(runID, err, done)
	}()
}

// run executes the body, converting panics into errors so one task's
// failure never crosses its instance boundary.
func (t *Task) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errorFromPanic(r)
			t.inst.loop.logTaskPanic(t, r)
		}
	}()
	return t.work(ctx)
}

// finish records the terminal state for the given run. A run that was
// superseded by Restart or Cancel leaves the task state alone.
func (t *Task) finish(runID uint64, err error, done chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	defer close(done)

	if t.runID != runID || t.State() != TaskRunning {
		return
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			t.err = ErrTaskCancelled
			t.state.Store(int32(TaskCancelled))
		} else {
			t.err = err
			t.state.Store(int32(TaskErrored))
		}
		return
	}
	t.state.Store(int32(TaskCompleted))
}

// Cancel transitions the task to Cancelled and signals its context. The
// work body may still be draining; its result is discarded.
func (t *Task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.State() {
	case TaskCreated, TaskRunning:
		t.state.Store(int32(TaskCancelled))
		t.err = ErrTaskCancelled
		if t.cancel != nil {
			t.cancel()
		}
	}
}

// Restart cancels any current run (best effort) and spawns the work
// body fresh from the Created state.
func (t *Task) Restart() {
	if t.inst.IsDestroyed() {
		return
	}
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.err = nil
	t.mu.Unlock()
	t.state.Store(int32(TaskCreated))
	t.start()
}

func errorFromPanic(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("fervo: recovered panic: %v", r)
}
