package fervotest

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/fervo-ui/fervo/pkg/backend/memdom"
	"github.com/fervo-ui/fervo/pkg/render"
	"github.com/fervo-ui/fervo/pkg/runtime"
	"github.com/fervo-ui/fervo/pkg/vdom"
)

// Harness runs one component against an in-memory mirror. Cycles only
// happen when the test calls Cycle, so every intermediate state is
// observable.
type Harness struct {
	t      *testing.T
	Loop   *runtime.Loop
	Mirror *memdom.Backend
}

// Mount creates a harness and mounts the component. Fails the test on
// mount errors.
func Mount(t *testing.T, root runtime.ComponentFunc, opts ...runtime.Option) *Harness {
	t.Helper()

	mirror := memdom.New()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]runtime.Option{runtime.WithLogger(quiet)}, opts...)
	loop := runtime.NewLoop(root, mirror, opts...)
	if err := loop.Mount(); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	t.Cleanup(loop.Close)
	return &Harness{t: t, Loop: loop, Mirror: mirror}
}

// Cycle runs exactly one render cycle.
func (h *Harness) Cycle() {
	h.t.Helper()
	if err := h.Loop.Tick(); err != nil {
		h.t.Fatalf("cycle failed: %v", err)
	}
}

// Emit queues an event against a ref and runs a cycle so its state
// writes land.
func (h *Harness) Emit(ref vdom.RefID, name, value string) {
	h.t.Helper()
	h.Loop.Emit(ref, vdom.Event{Name: name, Value: value})
	h.Cycle()
}

// Click fires a click on the first mirrored element with the given tag.
func (h *Harness) Click(tag string) {
	h.t.Helper()
	node := h.Mirror.Root().Find(tag)
	if node == nil {
		h.t.Fatalf("no <%s> element in mirror", tag)
	}
	h.Emit(node.Ref, "click", "")
}

// Input fires an input event carrying value on the first mirrored
// element with the given tag.
func (h *Harness) Input(tag, value string) {
	h.t.Helper()
	node := h.Mirror.Root().Find(tag)
	if node == nil {
		h.t.Fatalf("no <%s> element in mirror", tag)
	}
	h.Emit(node.Ref, "input", value)
}

// Text returns the mirrored tree's flattened text content.
func (h *Harness) Text() string {
	return h.Mirror.Root().TextContent()
}

// HTML serializes the loop's committed tree.
func (h *Harness) HTML() string {
	h.t.Helper()
	r := render.NewRenderer(render.RendererConfig{})
	html, err := r.RenderToString(h.Loop.Root().Tree())
	if err != nil {
		h.t.Fatalf("serialize failed: %v", err)
	}
	return html
}

// WaitFor cycles until cond passes or the deadline expires. Use it when
// a test depends on a task or suspense completion from a background
// goroutine.
func (h *Harness) WaitFor(timeout time.Duration, cond func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		h.Cycle()
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			h.t.Fatalf("condition not met within %v; mirror text: %q", timeout, h.Text())
		}
		time.Sleep(time.Millisecond)
	}
}

// ExpectText fails the test unless the mirrored text content contains
// the expected substring.
func (h *Harness) ExpectText(expected string) {
	h.t.Helper()
	if got := h.Text(); !strings.Contains(got, expected) {
		h.t.Errorf("expected mirror text to contain %q, got %q", expected, got)
	}
}

// ExpectNotText fails the test if the mirrored text content contains
// the given substring.
func (h *Harness) ExpectNotText(unexpected string) {
	h.t.Helper()
	if got := h.Text(); strings.Contains(got, unexpected) {
		h.t.Errorf("expected mirror text to NOT contain %q, got %q", unexpected, got)
	}
}

// RenderToString serializes a node tree, ignoring errors. Useful for
// quick assertions on hand-built trees.
func RenderToString(node *vdom.VNode) string {
	r := render.NewRenderer(render.RendererConfig{})
	html, err := r.RenderToString(node)
	if err != nil {
		return ""
	}
	return html
}

// ExpectContains asserts that serialized output contains a substring.
func ExpectContains(t *testing.T, node *vdom.VNode, expected string) {
	t.Helper()
	html := RenderToString(node)
	if !strings.Contains(html, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, truncate(html, 500))
	}
}

// ExpectNotContains asserts that serialized output does not contain a
// substring.
func ExpectNotContains(t *testing.T, node *vdom.VNode, unexpected string) {
	t.Helper()
	html := RenderToString(node)
	if strings.Contains(html, unexpected) {
		t.Errorf("expected output to NOT contain %q, got:\n%s", unexpected, truncate(html, 500))
	}
}

// truncate truncates a string to max length with ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
