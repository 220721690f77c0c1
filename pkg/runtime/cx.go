package runtime

import (
	"context"
	"log/slog"

	"github.com/fervo-ui/fervo/pkg/vdom"
)

// Cx is the per-render handle passed to a ComponentFunc. It exposes the
// factory for the render pass's arena generation, the hook entry points
// (via the package-level UseState, UseTask, UseSuspense and Context
// methods, which all take a Cx), and child component placement.
//
// A Cx is only valid for the duration of the render call it was created
// for. Event handlers and task bodies must not retain it; they interact
// with the runtime through State handles and Loop.Dispatch instead.
type Cx struct {
	inst *Instance
	f    *vdom.Factory
}

// Element builds an element node in the current generation.
func (cx *Cx) Element(tag string, args ...any) *vdom.VNode {
	return cx.f.Element(tag, args...)
}

// Text builds a text node.
func (cx *Cx) Text(content string) *vdom.VNode {
	return cx.f.Text(content)
}

// Textf builds a formatted text node.
func (cx *Cx) Textf(format string, args ...any) *vdom.VNode {
	return cx.f.Textf(format, args...)
}

// Fragment groups children without a wrapper element.
func (cx *Cx) Fragment(children ...any) *vdom.VNode {
	return cx.f.Fragment(children...)
}

// Factory returns the factory for this render pass, for helpers that
// build subtrees outside the Cx methods.
func (cx *Cx) Factory() *vdom.Factory {
	return cx.f
}

// Child places a nested component. The child instance is identified by
// its declaration-site position within this render (or by WithKey), is
// created on first appearance, and keeps its hook state across the
// parent's re-renders. Its subtree is built lazily by the loop, so a
// parent state change does not rebuild clean children.
func (cx *Cx) Child(fn ComponentFunc, opts ...ChildOption) *vdom.VNode {
	var cfg childConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	child := cx.inst.childFor(fn, cfg.key)
	ph := cx.f.Placeholder(child.id)
	ph.Key = cfg.key
	return ph
}

// ChildOption configures a Child placement.
type ChildOption func(*childConfig)

type childConfig struct {
	key string
}

// WithKey gives the child an explicit reconciliation key, so it keeps
// its state when its position among keyed siblings changes.
func WithKey(key string) ChildOption {
	return func(c *childConfig) {
		c.key = key
	}
}

// Dispatch queues fn to run on the render loop goroutine. This is the
// way event handlers and goroutines hand work back to the engine; fn
// runs before the next render cycle.
func (cx *Cx) Dispatch(fn func()) {
	cx.inst.loop.Dispatch(fn)
}

// StdContext returns the loop's standard context. Task bodies receive
// their own cancellable child of it; render-time callers can use this
// for tracing propagation.
func (cx *Cx) StdContext() context.Context {
	return cx.inst.loop.stdContext()
}

// Logger returns the loop's structured logger.
func (cx *Cx) Logger() *slog.Logger {
	return cx.inst.loop.logger
}

// Instance returns the instance being rendered.
func (cx *Cx) Instance() *Instance {
	return cx.inst
}
