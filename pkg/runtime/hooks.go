package runtime

// UseState returns the persistent state handle for the current hook
// slot. On the instance's first render the slot is initialized from
// init; on every later render the stored handle is returned and init is
// ignored.
//
// Reads during a render pass always see the value committed before the
// pass started. Writes are queued and become visible on the instance's
// *next* render:
//
//   - Set queues a value; multiple Sets before the next render coalesce
//     to the last one.
//   - Update applies its function to the queued value (or the committed
//     value when nothing is queued), so several Updates within one tick
//     compose: three +1 updates are observed as +3 on the next render.
//
// Both mark the instance dirty and are safe to call from any goroutine;
// task bodies use the same path, which is what keeps background work out
// of committed trees.
func UseState[T any](cx *Cx, init func() T) *State[T] {
	slot := cx.inst.nextSlot(slotState)
	if slot.value == nil {
		s := &State[T]{inst: cx.inst}
		s.committed = init()
		slot.value = s
		return s
	}
	return slot.value.(*State[T])
}

// State is a persistent value cell owned by one instance's hook slot.
type State[T any] struct {
	inst      *Instance
	committed T

	// Guarded by inst.writeMu.
	pending    T
	hasPending bool
}

// Get returns the value committed for the current render pass. It is
// stable for the whole pass even if writes are queued meanwhile.
func (s *State[T]) Get() T {
	return s.committed
}

// Set queues v to become the value on the next render. Last write wins.
func (s *State[T]) Set(v T) {
	s.inst.writeMu.Lock()
	s.pending = v
	s.hasPending = true
	s.inst.writeMu.Unlock()
	s.inst.MarkDirty()
}

// Update queues fn applied to the latest queued value, falling back to
// the committed value when nothing is queued. Same-tick updates compose.
func (s *State[T]) Update(fn func(T) T) {
	s.inst.writeMu.Lock()
	base := s.committed
	if s.hasPending {
		base = s.pending
	}
	s.pending = fn(base)
	s.hasPending = true
	s.inst.writeMu.Unlock()
	s.inst.MarkDirty()
}

// flushPending commits the queued value. Called by the loop, under
// inst.writeMu, at the start of the instance's render pass.
func (s *State[T]) flushPending() {
	if s.hasPending {
		s.committed = s.pending
		s.hasPending = false
	}
}
