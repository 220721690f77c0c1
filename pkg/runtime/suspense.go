package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/fervo-ui/fervo/pkg/vdom"
)

// UseSuspense defers rendering of a subtree until compute finishes. On
// the first render it starts compute on its own goroutine and returns
// fallback's output; when compute settles, success or failure, the
// instance is marked dirty and the next render returns resolved's
// output, fed the result and error. The fallback-to-resolved switch is a
// normal diff between the two subtrees; there is no special patch type.
//
// A computation settles a given record at most once. Failure is
// delivered to resolved as a value so the component can render an error
// branch; it is never propagated as a runtime fault.
func UseSuspense[T any](
	cx *Cx,
	compute func(ctx context.Context) (T, error),
	fallback func() *vdom.VNode,
	resolved func(value T, err error) *vdom.VNode,
) *vdom.VNode {
	return useSuspense(cx, struct{}{}, func(ctx context.Context, _ struct{}) (T, error) {
		return compute(ctx)
	}, fallback, resolved)
}

// UseSuspenseKeyed is UseSuspense with a computation key: when the key
// differs from the previous render's, the pending computation is
// discarded (best-effort cancellation through its context) and a fresh
// one starts against the new key, dropping back to the fallback until it
// settles.
func UseSuspenseKeyed[K comparable, T any](
	cx *Cx,
	key K,
	compute func(ctx context.Context, key K) (T, error),
	fallback func() *vdom.VNode,
	resolved func(value T, err error) *vdom.VNode,
) *vdom.VNode {
	return useSuspense(cx, key, compute, fallback, resolved)
}

func useSuspense[K comparable, T any](
	cx *Cx,
	key K,
	compute func(ctx context.Context, key K) (T, error),
	fallback func() *vdom.VNode,
	resolved func(value T, err error) *vdom.VNode,
) *vdom.VNode {
	slot := cx.inst.nextSlot(slotSuspense)
	rec, ok := slot.value.(*suspenseRecord[K, T])
	if slot.value != nil && !ok {
		panic(fmt.Sprintf(
			"[FERVO E001] suspense slot %d of instance %d changed its key or value type between renders",
			cx.inst.slotIdx-1, cx.inst.id))
	}
	if rec == nil {
		rec = &suspenseRecord[K, T]{inst: cx.inst}
		slot.value = rec
		rec.begin(key, compute)
	} else if rec.key != key {
		rec.begin(key, compute)
	}

	rec.mu.Lock()
	settled, value, err := rec.settled, rec.value, rec.err
	rec.mu.Unlock()

	if !settled {
		return fallback()
	}
	return resolved(value, err)
}

// suspenseRecord is the hook-slot state of one suspense point.
type suspenseRecord[K comparable, T any] struct {
	inst *Instance
	key  K

	mu      sync.Mutex
	runID   uint64
	cancel  context.CancelFunc
	settled bool
	value   T
	err     error
}

// begin discards any pending computation and starts a fresh one for key.
func (r *suspenseRecord[K, T]) begin(key K, compute func(ctx context.Context, key K) (T, error)) {
	r.key = key

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.runID++
	runID := r.runID
	ctx, cancel := context.WithCancel(r.inst.loop.stdContext())
	r.cancel = cancel
	r.settled = false
	var zero T
	r.value, r.err = zero, nil
	r.mu.Unlock()

	go func() {
		value, err := r.invoke(ctx, key, compute)
		r.settle(runID, value, err)
	}()
}

// invoke runs compute, converting a panic into an error so one suspense
// point's failure never crosses its instance boundary. The panic value
// reaches the resolved renderer the same way a returned error does.
func (r *suspenseRecord[K, T]) invoke(
	ctx context.Context,
	key K,
	compute func(ctx context.Context, key K) (T, error),
) (value T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errorFromPanic(rec)
			r.inst.loop.logger.Error("suspense panic",
				"instance", r.inst.id, "panic", rec)
		}
	}()
	return compute(ctx, key)
}

// settle records the outcome and wakes the owning instance. Outcomes of
// superseded or cancelled computations are discarded: the record they
// belonged to has moved on, or its instance no longer exists.
func (r *suspenseRecord[K, T]) settle(runID uint64, value T, err error) {
	r.mu.Lock()
	if r.runID != runID || r.settled {
		r.mu.Unlock()
		return
	}
	r.settled = true
	r.value = value
	r.err = err
	r.mu.Unlock()

	r.inst.MarkDirty()
}

// cancelPending implements the teardown hook used by Instance.destroy.
func (r *suspenseRecord[K, T]) cancelPending() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	r.runID++ // orphan any in-flight settle
}
