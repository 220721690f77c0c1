package runtime

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/fervo-ui/fervo/pkg/backend/memdom"
	"github.com/fervo-ui/fervo/pkg/vdom"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mountLoop(t *testing.T, root ComponentFunc) (*Loop, *memdom.Backend) {
	t.Helper()
	mirror := memdom.New()
	loop := NewLoop(root, mirror, WithLogger(quietLogger()))
	if err := loop.Mount(); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	return loop, mirror
}

func tick(t *testing.T, l *Loop) {
	t.Helper()
	if err := l.Tick(); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
}

func TestMountRendersStaticTree(t *testing.T) {
	_, mirror := mountLoop(t, func(cx *Cx) *vdom.VNode {
		return cx.Element("div", "Hello world!")
	})

	if got := mirror.Root().TextContent(); got != "Hello world!" {
		t.Errorf("mirror text = %q, want %q", got, "Hello world!")
	}
	if mirror.Root().Find("div") == nil {
		t.Error("div element not mirrored")
	}
}

func TestDoubleMountFails(t *testing.T) {
	loop, _ := mountLoop(t, func(cx *Cx) *vdom.VNode {
		return cx.Element("div")
	})
	if err := loop.Mount(); err != ErrAlreadyMounted {
		t.Errorf("second Mount = %v, want ErrAlreadyMounted", err)
	}
}

func TestTickBeforeMountFails(t *testing.T) {
	loop := NewLoop(func(cx *Cx) *vdom.VNode { return cx.Element("div") },
		memdom.New(), WithLogger(quietLogger()))
	if err := loop.Tick(); err != ErrNotMounted {
		t.Errorf("Tick before Mount = %v, want ErrNotMounted", err)
	}
}

func TestClickUpdatesOnNextCycle(t *testing.T) {
	counter := func(cx *Cx) *vdom.VNode {
		count := UseState(cx, func() int { return 0 })
		return cx.Element("button",
			cx.Textf("count: %d", count.Get()),
			vdom.OnClick(func(vdom.Event) {
				count.Update(func(n int) int { return n + 1 })
			}),
		)
	}

	loop, mirror := mountLoop(t, counter)

	button := mirror.Root().Find("button")
	if button == nil {
		t.Fatal("no button in mirror")
	}

	loop.Emit(button.Ref, vdom.Event{Name: "click"})
	tick(t, loop)

	if got := mirror.Root().TextContent(); got != "count: 1" {
		t.Errorf("mirror text = %q, want %q", got, "count: 1")
	}
}

func TestUpdatesCoalesceAdditively(t *testing.T) {
	var state *State[int]
	loop, mirror := mountLoop(t, func(cx *Cx) *vdom.VNode {
		state = UseState(cx, func() int { return 0 })
		return cx.Element("pre", cx.Textf("%d", state.Get()))
	})

	// Three increments within one cycle must be observed as +3.
	loop.Dispatch(func() {
		state.Update(func(n int) int { return n + 1 })
		state.Update(func(n int) int { return n + 1 })
		state.Update(func(n int) int { return n + 1 })
	})
	tick(t, loop)

	if got := mirror.Root().TextContent(); got != "3" {
		t.Errorf("mirror text = %q, want 3", got)
	}
}

func TestSetIsLastWriteWins(t *testing.T) {
	var state *State[string]
	loop, mirror := mountLoop(t, func(cx *Cx) *vdom.VNode {
		state = UseState(cx, func() string { return "start" })
		return cx.Element("pre", state.Get())
	})

	loop.Dispatch(func() {
		state.Set("first")
		state.Set("second")
		state.Set("final")
	})
	tick(t, loop)

	if got := mirror.Root().TextContent(); got != "final" {
		t.Errorf("mirror text = %q, want final", got)
	}
}

func TestReadsStableWithinRender(t *testing.T) {
	var state *State[int]
	reads := make([]int, 0, 2)

	loop, _ := mountLoop(t, func(cx *Cx) *vdom.VNode {
		state = UseState(cx, func() int { return 0 })
		reads = append(reads, state.Get())
		// A write during render does not affect this render's reads.
		if state.Get() == 0 {
			state.Set(9)
		}
		reads = append(reads, state.Get())
		return cx.Element("div", cx.Textf("%d", state.Get()))
	})

	if reads[0] != 0 || reads[1] != 0 {
		t.Errorf("mount reads = %v, want [0 0]", reads[:2])
	}

	tick(t, loop) // the queued Set(9) lands here
	if len(reads) < 4 || reads[2] != 9 || reads[3] != 9 {
		t.Errorf("second render reads = %v, want [... 9 9]", reads)
	}
}

func TestRenderAbstainFreezesOutput(t *testing.T) {
	items := []string{"a", "b", "c"}
	var state *State[int]

	loop, mirror := mountLoop(t, func(cx *Cx) *vdom.VNode {
		state = UseState(cx, func() int { return 0 })
		_ = state.Get()
		if len(items) == 0 {
			return nil
		}
		return cx.Element("h1", cx.Textf("First item: %s", items[0]))
	})

	if got := mirror.Root().TextContent(); got != "First item: a" {
		t.Fatalf("mount text = %q", got)
	}
	applied := mirror.Applied()

	// Empty the input and force a re-render: the render abstains, the
	// committed output stays frozen, no patches are applied.
	items = nil
	state.Set(1)
	tick(t, loop)

	if got := mirror.Root().TextContent(); got != "First item: a" {
		t.Errorf("frozen text = %q, want %q", got, "First item: a")
	}
	if mirror.Applied() != applied {
		t.Errorf("abstained render applied %d patches", mirror.Applied()-applied)
	}

	// A later successful render resumes normal patching.
	items = []string{"z"}
	state.Set(2)
	tick(t, loop)
	if got := mirror.Root().TextContent(); got != "First item: z" {
		t.Errorf("resumed text = %q, want %q", got, "First item: z")
	}
}

func TestRenderPanicFreezesInstance(t *testing.T) {
	var state *State[bool]
	loop, mirror := mountLoop(t, func(cx *Cx) *vdom.VNode {
		state = UseState(cx, func() bool { return false })
		if state.Get() {
			panic("boom")
		}
		return cx.Element("div", "healthy")
	})

	state.Set(true)
	tick(t, loop) // panic contained, output frozen

	if got := mirror.Root().TextContent(); got != "healthy" {
		t.Errorf("after panic, mirror = %q, want healthy", got)
	}

	state.Set(false)
	tick(t, loop)
	if got := mirror.Root().TextContent(); got != "healthy" {
		t.Errorf("recovered render broke output: %q", got)
	}
}

func TestHookOrderViolationPanics(t *testing.T) {
	var state *State[bool]
	loop, _ := mountLoop(t, func(cx *Cx) *vdom.VNode {
		state = UseState(cx, func() bool { return false })
		if !state.Get() {
			UseState(cx, func() int { return 0 })
		}
		return cx.Element("div")
	})

	state.Set(true)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected hook order panic")
		}
		if !strings.Contains(r.(string), "E001") {
			t.Errorf("panic = %v, want E001 message", r)
		}
	}()
	loop.Tick()
}

func TestChildInstanceKeepsStateAcrossParentRenders(t *testing.T) {
	childRenders := 0
	child := func(cx *Cx) *vdom.VNode {
		childRenders++
		n := UseState(cx, func() int { return 7 })
		return cx.Element("span", cx.Textf("child %d", n.Get()))
	}

	var parentState *State[int]
	loop, mirror := mountLoop(t, func(cx *Cx) *vdom.VNode {
		parentState = UseState(cx, func() int { return 0 })
		return cx.Element("div",
			cx.Textf("parent %d", parentState.Get()),
			cx.Child(child),
		)
	})

	if childRenders != 1 {
		t.Fatalf("child rendered %d times at mount", childRenders)
	}
	if !strings.Contains(mirror.Root().TextContent(), "child 7") {
		t.Fatalf("mirror = %q", mirror.Root().TextContent())
	}

	// Parent-only change: the clean child must not re-render.
	parentState.Set(1)
	tick(t, loop)

	if childRenders != 1 {
		t.Errorf("clean child re-rendered: %d renders", childRenders)
	}
	got := mirror.Root().TextContent()
	if !strings.Contains(got, "parent 1") || !strings.Contains(got, "child 7") {
		t.Errorf("mirror = %q", got)
	}
}

func TestDirtyChildRendersWithoutParent(t *testing.T) {
	parentRenders := 0
	var childState *State[int]

	child := func(cx *Cx) *vdom.VNode {
		childState = UseState(cx, func() int { return 0 })
		return cx.Element("span", cx.Textf("v%d", childState.Get()))
	}
	loop, mirror := mountLoop(t, func(cx *Cx) *vdom.VNode {
		parentRenders++
		return cx.Element("div", cx.Child(child))
	})

	childState.Set(5)
	tick(t, loop)

	if parentRenders != 1 {
		t.Errorf("parent re-rendered for a child-only change: %d", parentRenders)
	}
	if got := mirror.Root().TextContent(); got != "v5" {
		t.Errorf("mirror = %q, want v5", got)
	}
}

func TestDroppedChildIsDestroyed(t *testing.T) {
	var show *State[bool]
	var childInst *Instance

	child := func(cx *Cx) *vdom.VNode {
		childInst = cx.Instance()
		return cx.Element("span", "present")
	}
	loop, mirror := mountLoop(t, func(cx *Cx) *vdom.VNode {
		show = UseState(cx, func() bool { return true })
		if show.Get() {
			return cx.Element("div", cx.Child(child))
		}
		return cx.Element("div", "empty")
	})

	if childInst == nil || childInst.IsDestroyed() {
		t.Fatal("child not mounted")
	}

	show.Set(false)
	tick(t, loop)

	if !childInst.IsDestroyed() {
		t.Error("dropped child not destroyed")
	}
	if got := mirror.Root().TextContent(); got != "empty" {
		t.Errorf("mirror = %q, want empty", got)
	}
}

func TestSteadyStateArenaStopsGrowing(t *testing.T) {
	var state *State[int]
	loop, _ := mountLoop(t, func(cx *Cx) *vdom.VNode {
		state = UseState(cx, func() int { return 0 })
		return cx.Element("div",
			cx.Element("h1", "fixed"),
			cx.Element("p", cx.Textf("count %d", state.Get())),
		)
	})

	// Warm up both generations of the pair.
	for i := 0; i < 2; i++ {
		state.Update(func(n int) int { return n + 1 })
		tick(t, loop)
	}

	for i := 0; i < 5; i++ {
		state.Update(func(n int) int { return n + 1 })
		tick(t, loop)
		if loop.root.arenas[loop.root.cur].Grew() {
			t.Fatalf("steady-state render %d grew the arena", i)
		}
	}
}

func TestListenerRebindAfterRerender(t *testing.T) {
	clicks := 0
	var state *State[int]
	loop, mirror := mountLoop(t, func(cx *Cx) *vdom.VNode {
		state = UseState(cx, func() int { return 0 })
		return cx.Element("button",
			cx.Textf("%d", state.Get()),
			vdom.OnClick(func(vdom.Event) {
				clicks++
				state.Update(func(n int) int { return n + 1 })
			}),
		)
	})

	button := mirror.Root().Find("button")
	for i := 0; i < 3; i++ {
		loop.Emit(button.Ref, vdom.Event{Name: "click"})
		tick(t, loop)
	}

	if clicks != 3 {
		t.Errorf("clicks = %d, want 3", clicks)
	}
	if got := mirror.Root().TextContent(); got != "3" {
		t.Errorf("mirror = %q, want 3", got)
	}
	// The button's ref is stable across re-renders.
	if again := mirror.Root().Find("button"); again.Ref != button.Ref {
		t.Errorf("button ref changed: %d -> %d", button.Ref, again.Ref)
	}
}

func TestEventHandlerPanicIsContained(t *testing.T) {
	loop, mirror := mountLoop(t, func(cx *Cx) *vdom.VNode {
		return cx.Element("button", "bomb",
			vdom.OnClick(func(vdom.Event) { panic("handler exploded") }),
		)
	})

	button := mirror.Root().Find("button")
	loop.Emit(button.Ref, vdom.Event{Name: "click"})
	tick(t, loop) // must not panic

	if got := mirror.Root().TextContent(); got != "bomb" {
		t.Errorf("mirror = %q", got)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	loop, _ := mountLoop(t, func(cx *Cx) *vdom.VNode {
		return cx.Element("div")
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- loop.Run(ctx) }()

	cancel()
	select {
	case err := <-errc:
		if err == nil {
			t.Error("Run returned nil after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestCloseCancelsTasks(t *testing.T) {
	var task *Task
	loop, _ := mountLoop(t, func(cx *Cx) *vdom.VNode {
		task = UseTask(cx, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
		return cx.Element("div")
	})

	loop.Close()

	select {
	case <-task.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("task still running after Close")
	}
	if task.State() != TaskCancelled {
		t.Errorf("state = %v, want Cancelled", task.State())
	}
}

func TestStoppedRunCancelsTasks(t *testing.T) {
	var task *Task
	loop, _ := mountLoop(t, func(cx *Cx) *vdom.VNode {
		task = UseTask(cx, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
		return cx.Element("div")
	})

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- loop.Run(ctx) }()
	cancel()
	<-runDone

	select {
	case <-task.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("task outlived the stopped loop")
	}
	if task.State() != TaskCancelled {
		t.Errorf("state = %v, want Cancelled", task.State())
	}
}

func TestEmitUnknownRefIsLogged(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	mirror := memdom.New()
	loop := NewLoop(func(cx *Cx) *vdom.VNode {
		return cx.Element("div")
	}, mirror, WithLogger(logger))
	if err := loop.Mount(); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	loop.Emit(vdom.RefID(424242), vdom.Event{Name: "click"})
	tick(t, loop)

	if !strings.Contains(buf.String(), "unknown ref") {
		t.Errorf("no debug log for the dropped event:\n%s", buf.String())
	}
}
