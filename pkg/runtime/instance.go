package runtime

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fervo-ui/fervo/pkg/vdom"
)

// ComponentFunc is a render function. It is called once per render pass
// of its instance and returns the instance's new subtree, built through
// the Cx's factory.
//
// Returning nil means the render abstained: the instance's previously
// committed tree is retained unchanged and no patches are emitted for
// it. This is a normal, signaled outcome, not an error.
type ComponentFunc func(cx *Cx) *vdom.VNode

// slotKind discriminates what a hook slot holds.
type slotKind uint8

const (
	slotState slotKind = iota + 1
	slotTask
	slotSuspense
	slotContext
)

func (k slotKind) String() string {
	switch k {
	case slotState:
		return "State"
	case slotTask:
		return "Task"
	case slotSuspense:
		return "Suspense"
	case slotContext:
		return "Context"
	default:
		return "Unknown"
	}
}

// hookSlot is one entry of an instance's ordered hook slot list. Slot i
// must hold the same logical hook on every render of the instance.
type hookSlot struct {
	kind  slotKind
	value any
}

// pendingWriter is implemented by slot values that queue writes for the
// next render (State). The loop flushes them at the start of the owning
// instance's render pass.
type pendingWriter interface {
	flushPending()
}

// childKey identifies a child instance by declaration-site position
// within its parent's render, or by explicit key when one is given.
type childKey struct {
	pos int
	key string
}

// Instance is one mounted occurrence of a component: the pairing of a
// render function with persistent hook state, a spot in the instance
// tree, and a pair of arena generations for its subtree.
type Instance struct {
	id     uint64
	fn     ComponentFunc
	parent *Instance
	loop   *Loop
	depth  int

	// Arena pair: arenas[cur] backs the committed tree, the other arena
	// is the work-in-progress generation for the next render. They swap
	// on commit; the displaced generation is reset then.
	arenas    [2]*vdom.Arena
	factories [2]*vdom.Factory
	cur       int

	// wip is the tree built this tick, between render and commit.
	wip *vdom.VNode

	// tree is the committed subtree. placeholder is the KindComponent
	// node representing this instance inside the parent's committed
	// tree; its single child slot is repointed here on every commit so
	// the parent's retained generation never references reset memory.
	tree        *vdom.VNode
	placeholder *vdom.VNode

	// Hook slots, append-only during the first render, validated on
	// every subsequent one.
	slots       []hookSlot
	slotIdx     int
	renderCount int

	// Child instances keyed by declaration position or explicit key.
	// touched tracks which children the current render requested; the
	// rest are destroyed on commit.
	children map[childKey]*Instance
	childPos int
	touched  uint64 // loop tick stamp of the last render that requested this instance

	// Context values this instance publishes, and the epoch-validated
	// resolution caches held in slots (see context.go).
	values map[any]any

	tasks []*Task

	// writeMu guards queued state writes coming from tasks and event
	// handlers on other goroutines.
	writeMu sync.Mutex

	dirty     atomic.Bool
	destroyed atomic.Bool
	rendered  uint64 // tick stamp of the last completed render, 0 = never
}

func newInstance(fn ComponentFunc, parent *Instance, loop *Loop) *Instance {
	inst := &Instance{
		id:     nextID(),
		fn:     fn,
		parent: parent,
		loop:   loop,
		arenas: [2]*vdom.Arena{vdom.NewArena(), vdom.NewArena()},
	}
	if parent != nil {
		inst.depth = parent.depth + 1
	}
	return inst
}

// ID returns the unique identifier of this instance.
func (in *Instance) ID() uint64 {
	return in.id
}

// Parent returns the parent instance, or nil for the root.
func (in *Instance) Parent() *Instance {
	return in.parent
}

// IsDestroyed reports whether this instance has been torn down.
func (in *Instance) IsDestroyed() bool {
	return in.destroyed.Load()
}

// Tree returns the committed subtree, nil before the first successful
// render.
func (in *Instance) Tree() *vdom.VNode {
	return in.tree
}

// MarkDirty flags the instance for re-rendering on the next cycle and
// wakes the loop. Safe to call from any goroutine.
func (in *Instance) MarkDirty() {
	if in.destroyed.Load() {
		return
	}
	if in.dirty.CompareAndSwap(false, true) {
		in.loop.wakeUp()
	}
}

// wipArena returns the work-in-progress arena for the next render.
func (in *Instance) wipArena() *vdom.Arena {
	return in.arenas[1-in.cur]
}

// wipFactory returns the factory bound to the work-in-progress arena,
// creating it on first use so steady-state renders reuse it.
func (in *Instance) wipFactory() *vdom.Factory {
	idx := 1 - in.cur
	if in.factories[idx] == nil {
		in.factories[idx] = vdom.NewFactory(in.arenas[idx])
	}
	return in.factories[idx]
}

// startRender resets per-render counters. Called by the loop with the
// wip arena already reset.
func (in *Instance) startRender() {
	in.slotIdx = 0
	in.childPos = 0
}

// endRender validates that the render consumed every recorded hook slot.
func (in *Instance) endRender() {
	if in.renderCount > 0 && in.slotIdx < len(in.slots) {
		panic(fmt.Sprintf(
			"[FERVO E001] hook order changed: instance %d used %d of %d hooks this render",
			in.id, in.slotIdx, len(in.slots)))
	}
	in.renderCount++
}

// nextSlot returns the slot for the current hook call, appending it on
// the first render and validating kind and count on every later one.
func (in *Instance) nextSlot(kind slotKind) *hookSlot {
	idx := in.slotIdx
	in.slotIdx++

	if idx < len(in.slots) {
		if in.slots[idx].kind != kind {
			panic(fmt.Sprintf(
				"[FERVO E001] hook order changed at slot %d of instance %d: expected %s, got %s",
				idx, in.id, in.slots[idx].kind, kind))
		}
		return &in.slots[idx]
	}

	// Slots may only grow before the first completed render; abstained
	// attempts can leave a partial list that later renders extend.
	if in.renderCount > 0 {
		panic(fmt.Sprintf(
			"[FERVO E001] hook order changed: extra %s hook at slot %d of instance %d",
			kind, idx, in.id))
	}
	in.slots = append(in.slots, hookSlot{kind: kind})
	return &in.slots[idx]
}

// flushPendingWrites applies all queued state writes so they become
// visible to the render pass that is about to start.
func (in *Instance) flushPendingWrites() {
	in.writeMu.Lock()
	defer in.writeMu.Unlock()
	for i := range in.slots {
		if w, ok := in.slots[i].value.(pendingWriter); ok {
			w.flushPending()
		}
	}
}

// childFor returns the child instance for the given declaration slot,
// creating it on first appearance. Identity is (parent, position) or
// (parent, key) when an explicit key is supplied.
func (in *Instance) childFor(fn ComponentFunc, key string) *Instance {
	ck := childKey{key: key}
	if key == "" {
		ck.pos = in.childPos
	}
	in.childPos++

	if in.children == nil {
		in.children = make(map[childKey]*Instance)
	}
	child, ok := in.children[ck]
	if !ok {
		child = newInstance(fn, in, in.loop)
		in.children[ck] = child
		in.loop.registerInstance(child)
	}
	// Closures capture fresh parent data each render; the child keeps
	// its slots but runs the latest function.
	child.fn = fn
	child.touched = in.loop.tick
	return child
}

// reapChildren destroys children the latest render no longer requested.
// Called on commit only; an abstained render keeps its children alive
// along with the frozen tree.
func (in *Instance) reapChildren() {
	for ck, child := range in.children {
		if child.touched != in.loop.tick {
			delete(in.children, ck)
			child.destroy()
		}
	}
}

// destroy tears the instance down: children first, then owned tasks and
// suspense computations, then its registrations with the loop. After
// destruction no dirty-marking from a task bound to this instance has
// any effect.
func (in *Instance) destroy() {
	if in.destroyed.Swap(true) {
		return
	}

	for ck, child := range in.children {
		delete(in.children, ck)
		child.destroy()
	}

	for _, t := range in.tasks {
		t.Cancel()
	}
	in.tasks = nil

	for i := range in.slots {
		if c, ok := in.slots[i].value.(interface{ cancelPending() }); ok {
			c.cancelPending()
		}
	}

	in.loop.unregisterInstance(in)
	in.values = nil
	in.tree = nil
	in.placeholder = nil
}
