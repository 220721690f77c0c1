package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/fervo-ui/fervo/pkg/vdom"
)

// Loop is the top-level render driver. It owns the root instance,
// coalesces dirty-markings into render+diff cycles, hands each cycle's
// patch batch to the backend, and recycles arena generations.
//
// All rendering happens on the goroutine driving Run (or calling Tick
// directly in tests). Everything else (event handlers fired by
// backends, task bodies, suspense completions) reaches the loop through
// Dispatch and the queued state-write path.
type Loop struct {
	backend Backend
	rootFn  ComponentFunc
	root    *Instance
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	differ  vdom.Differ

	// tickMu serializes render cycles.
	tickMu  sync.Mutex
	tick    uint64
	mounted bool

	// queueMu guards the dispatch queue.
	queueMu sync.Mutex
	queue   []func()
	wake    chan struct{}

	runCtx atomic.Value // context.Context while Run is active
	closed atomic.Bool

	// Registry of live instances and of element refs with listeners.
	instances map[uint64]*Instance
	handlers  map[vdom.RefID][]vdom.EventListener
	instRefs  map[uint64][]vdom.RefID

	refCtr uint64
}

var _ EventSink = (*Loop)(nil)

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithMetrics attaches Prometheus collectors updated once per cycle.
func WithMetrics(m *Metrics) Option {
	return func(l *Loop) {
		l.metrics = m
	}
}

// NewLoop creates a loop rendering root through backend. Call Mount to
// produce the initial tree, then Run (or Tick) to process updates.
func NewLoop(root ComponentFunc, backend Backend, opts ...Option) *Loop {
	l := &Loop{
		backend:   backend,
		rootFn:    root,
		wake:      make(chan struct{}, 1),
		instances: make(map[uint64]*Instance),
		handlers:  make(map[vdom.RefID][]vdom.EventListener),
		instRefs:  make(map[uint64][]vdom.RefID),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	l.differ.Resolver = (*loopResolver)(l)
	return l
}

// Root returns the root instance, nil before Mount.
func (l *Loop) Root() *Instance {
	return l.root
}

// Mount renders the root instance for the first time and hands the full
// tree to the backend.
func (l *Loop) Mount() error {
	l.tickMu.Lock()
	defer l.tickMu.Unlock()

	if l.mounted {
		return ErrAlreadyMounted
	}
	l.tick++
	l.root = newInstance(l.rootFn, nil, l)
	l.registerInstance(l.root)

	tree := l.renderTree(l.root)
	l.assignRefs(tree)
	l.commit(l.root)
	l.mounted = true

	if err := l.backend.Mount(tree); err != nil {
		return fmt.Errorf("fervo: backend mount: %w", err)
	}
	return nil
}

// Run drives the loop until ctx ends. It processes a cycle whenever a
// dirty-marking or dispatch wakes it.
func (l *Loop) Run(ctx context.Context) error {
	if !l.mounted {
		return ErrNotMounted
	}
	l.runCtx.Store(ctx)
	defer l.Close()

	// Work queued between Mount and Run.
	if err := l.Tick(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
			if err := l.Tick(); err != nil {
				return err
			}
		}
	}
}

// Close stops the loop permanently: later dispatches are dropped and
// the root instance is destroyed, cascading cancellation to every task
// and pending suspense computation. Run calls Close on the way out, so
// callers only need it for loops driven by Mount or Tick directly.
// Safe to call more than once.
func (l *Loop) Close() {
	l.closed.Store(true)
	l.tickMu.Lock()
	defer l.tickMu.Unlock()
	if l.root != nil {
		l.root.destroy()
	}
}

// Dispatch queues fn to run on the loop goroutine before the next
// render cycle. Safe from any goroutine. Work dispatched after the
// loop's Run context ended is dropped.
func (l *Loop) Dispatch(fn func()) {
	if l.closed.Load() {
		l.logger.Debug("dispatch after loop close dropped")
		return
	}
	l.queueMu.Lock()
	l.queue = append(l.queue, fn)
	l.queueMu.Unlock()
	l.wakeUp()
}

// Emit reports a backend event against a node ref. The handlers bound
// to that node run on the loop goroutine; any state they write becomes
// visible on the following render.
func (l *Loop) Emit(ref vdom.RefID, ev vdom.Event) {
	l.Dispatch(func() {
		listeners := l.handlers[ref]
		if len(listeners) == 0 {
			// Refs race with in-flight patches over a live connection.
			l.logger.Debug("event on unknown ref dropped", "ref", ref, "event", ev.Name)
			return
		}
		for _, listener := range listeners {
			if listener.Event == ev.Name {
				l.invokeHandler(listener, ev)
			}
		}
	})
}

func (l *Loop) invokeHandler(listener vdom.EventListener, ev vdom.Event) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event handler panic",
				"event", ev.Name, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	listener.Handler(ev)
}

// Tick runs one full cycle: drain dispatched work, re-render every
// dirty instance (coalesced: one render+diff per instance no matter
// how many dirty-markings arrived), apply the patch batch, update
// telemetry. Tests drive the loop by calling Tick directly.
func (l *Loop) Tick() error {
	l.tickMu.Lock()
	defer l.tickMu.Unlock()

	if !l.mounted {
		return ErrNotMounted
	}
	l.tick++
	started := time.Now()

	span := l.startCycleSpan(l.stdContext())

	for _, fn := range l.drainQueue() {
		fn()
	}

	// Dirty instances in depth-first tree order, so sibling patches keep
	// visually consistent intermediate states.
	var dirty []*Instance
	l.collectDirty(l.root, &dirty)

	var patches []vdom.Patch
	rendered := 0
	defer func() { finishCycleSpan(span, rendered, len(patches)) }()
	for _, inst := range dirty {
		// An earlier instance's render may have re-rendered (or
		// destroyed) this one already.
		if inst.IsDestroyed() || !inst.dirty.Load() {
			continue
		}
		rendered++
		l.renderAndDiff(inst, &patches)
	}

	if len(patches) > 0 {
		if err := l.backend.Apply(patches); err != nil {
			return fmt.Errorf("fervo: backend apply: %w", err)
		}
	}

	if l.metrics != nil {
		l.metrics.observeCycle(time.Since(started), rendered, len(patches), l.arenaNodeHighWater())
	}
	return nil
}

// renderAndDiff re-renders one dirty subtree root against its retained
// generation and appends the resulting patches.
func (l *Loop) renderAndDiff(inst *Instance, patches *[]vdom.Patch) {
	prev := inst.tree
	next := l.renderTree(inst)
	if next == nil {
		// Abstained (or panicked): previous committed tree stays frozen,
		// nothing is emitted. Dirty descendants keep their flags and are
		// picked up by the caller's depth-first sweep.
		return
	}
	l.assignRefs(next)

	if prev == nil {
		// The instance had no committed tree (it abstained at mount).
		// Splice the first real tree into its placeholder slot.
		if ph := inst.placeholder; ph != nil {
			*patches = append(*patches, vdom.Patch{
				Op:        vdom.OpInsertNode,
				ParentRef: ph.Ref,
				Index:     0,
				Node:      next,
			})
		}
	} else {
		l.differ.DiffInto(prev, next, patches)
	}
	l.commit(inst)

	if prev == nil && inst == l.root {
		// The root abstained at mount; the backend never saw a tree.
		if err := l.backend.Mount(inst.tree); err != nil {
			l.logger.Error("backend remount failed", "error", err)
		}
	}
}

// renderTree builds a fresh generation for inst, expanding component
// placeholders: new and dirty children render recursively, clean
// children contribute their committed trees untouched. Returns nil when
// the render abstains or panics; panics are contained to the instance.
func (l *Loop) renderTree(inst *Instance) *vdom.VNode {
	inst.dirty.Store(false)
	inst.flushPendingWrites()

	wip := inst.wipArena()
	wip.Reset()
	cx := &Cx{inst: inst, f: inst.wipFactory()}
	inst.startRender()

	tree, ok := l.callRender(inst, cx)
	if !ok || tree == nil {
		// Abstaining early-returns out of the render function, so slot
		// count validation does not apply.
		return nil
	}
	inst.endRender()

	l.expandPlaceholders(inst, tree)
	inst.wip = tree
	return tree
}

// callRender invokes the component function, converting a panic into an
// abstained render so one instance's failure never aborts the pass of
// its siblings or ancestors.
func (l *Loop) callRender(inst *Instance, cx *Cx) (tree *vdom.VNode, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			l.logger.Error("render panic, freezing instance",
				"instance", inst.id, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	return inst.fn(cx), true
}

// expandPlaceholders fills each component placeholder's child slot with
// the child instance's subtree, rendering the child only when it is new
// or dirty. This is the lazy boundary that keeps a parent's state change
// from rebuilding clean children.
func (l *Loop) expandPlaceholders(parent *Instance, node *vdom.VNode) {
	if node == nil {
		return
	}
	if node.Kind == vdom.KindComponent {
		child := l.instances[node.Instance]
		if child == nil || child.IsDestroyed() {
			return
		}
		sub := child.tree
		if child.wip != nil {
			sub = child.wip
		} else if sub == nil || child.dirty.Load() {
			sub = l.renderTree(child)
			if sub == nil {
				sub = child.tree // frozen or never rendered
			}
		}
		if len(node.Children) == 1 {
			node.Children[0] = sub
		}
		return
	}
	for _, c := range node.Children {
		l.expandPlaceholders(parent, c)
	}
}

// commit makes inst's work-in-progress generation current: the arenas
// swap, the displaced generation is reset for reuse, children dropped by
// this render are destroyed, and the listener registry is rebuilt for
// the subtree. Recurses into children committed in the same cycle.
func (l *Loop) commit(inst *Instance) {
	if inst.wip == nil {
		return
	}
	inst.tree = inst.wip
	inst.wip = nil
	inst.cur = 1 - inst.cur
	inst.arenas[1-inst.cur].Reset()
	inst.rendered = l.tick

	// The parent's committed placeholder must track the new generation;
	// its old target now lives in the arena that was just reset.
	if ph := inst.placeholder; ph != nil && len(ph.Children) == 1 {
		ph.Children[0] = inst.tree
	}

	inst.reapChildren()
	l.reindexListeners(inst)

	// Re-link placeholders and commit children rendered this cycle.
	l.linkChildren(inst, inst.tree)
}

func (l *Loop) linkChildren(inst *Instance, node *vdom.VNode) {
	if node == nil {
		return
	}
	if node.Kind == vdom.KindComponent {
		child := l.instances[node.Instance]
		if child == nil || child.IsDestroyed() {
			return
		}
		child.placeholder = node
		l.commit(child)
		return
	}
	for _, c := range node.Children {
		l.linkChildren(inst, c)
	}
}

// reindexListeners replaces inst's event registrations with those of its
// new tree. The walk stops at component boundaries; children own their
// own registrations.
func (l *Loop) reindexListeners(inst *Instance) {
	for _, ref := range l.instRefs[inst.id] {
		delete(l.handlers, ref)
	}
	l.instRefs[inst.id] = l.instRefs[inst.id][:0]
	l.indexListeners(inst, inst.tree)
}

func (l *Loop) indexListeners(inst *Instance, node *vdom.VNode) {
	if node == nil || node.Kind == vdom.KindComponent {
		return
	}
	if node.HasListeners() {
		l.handlers[node.Ref] = node.Listeners
		l.instRefs[inst.id] = append(l.instRefs[inst.id], node.Ref)
	}
	for _, c := range node.Children {
		l.indexListeners(inst, c)
	}
}

// assignRefs gives every node that does not yet have a backend ref a
// fresh one. Nodes matched by the differ afterwards inherit the ref of
// their predecessor instead.
func (l *Loop) assignRefs(node *vdom.VNode) {
	if node == nil {
		return
	}
	if node.Ref == 0 {
		l.refCtr++
		node.Ref = vdom.RefID(l.refCtr)
	}
	for _, c := range node.Children {
		l.assignRefs(c)
	}
}

// collectDirty appends dirty instances in depth-first tree order.
func (l *Loop) collectDirty(inst *Instance, out *[]*Instance) {
	if inst == nil || inst.IsDestroyed() {
		return
	}
	if inst.dirty.Load() {
		*out = append(*out, inst)
	}
	l.walkChildInstances(inst.tree, out)
}

func (l *Loop) walkChildInstances(node *vdom.VNode, out *[]*Instance) {
	if node == nil {
		return
	}
	if node.Kind == vdom.KindComponent {
		if child := l.instances[node.Instance]; child != nil {
			l.collectDirty(child, out)
		}
		return
	}
	for _, c := range node.Children {
		l.walkChildInstances(c, out)
	}
}

func (l *Loop) drainQueue() []func() {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	q := l.queue
	l.queue = nil
	return q
}

func (l *Loop) wakeUp() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) registerInstance(inst *Instance) {
	l.instances[inst.id] = inst
	if l.metrics != nil {
		l.metrics.instanceMounted()
	}
}

func (l *Loop) unregisterInstance(inst *Instance) {
	delete(l.instances, inst.id)
	for _, ref := range l.instRefs[inst.id] {
		delete(l.handlers, ref)
	}
	delete(l.instRefs, inst.id)
	if l.metrics != nil {
		l.metrics.instanceDestroyed()
	}
}

// stdContext returns the Run context, or Background before Run starts.
func (l *Loop) stdContext() context.Context {
	if ctx, ok := l.runCtx.Load().(context.Context); ok {
		return ctx
	}
	return context.Background()
}

func (l *Loop) logTaskPanic(t *Task, r any) {
	l.logger.Error("task panic", "task", t.id, "instance", t.inst.id, "panic", r)
}

// arenaNodeHighWater sums the per-instance arena high-water marks.
func (l *Loop) arenaNodeHighWater() int {
	total := 0
	for _, inst := range l.instances {
		total += inst.arenas[0].NodeHighWater() + inst.arenas[1].NodeHighWater()
	}
	return total
}

// loopResolver lets the differ recurse across component boundaries:
// placeholders for the same instance diff that instance's generations
// in place rather than being treated as opaque.
type loopResolver Loop

func (r *loopResolver) DiffComponent(prev, next *vdom.VNode, patches *[]vdom.Patch) {
	l := (*Loop)(r)
	if len(prev.Children) != 1 || len(next.Children) != 1 {
		return
	}
	prevSub, nextSub := prev.Children[0], next.Children[0]
	if prevSub == nextSub {
		// Clean or frozen child: same generation on both sides.
		return
	}
	if prevSub == nil && nextSub != nil {
		*patches = append(*patches, vdom.Patch{
			Op:        vdom.OpInsertNode,
			ParentRef: next.Ref,
			Index:     0,
			Node:      nextSub,
		})
		return
	}
	l.differ.DiffInto(prevSub, nextSub, patches)
}
