// Package fervo provides the public API for the fervo render runtime.
//
// This is the recommended import for most applications:
//
//	import "github.com/fervo-ui/fervo"
//
// Usage:
//
//	func Counter(cx *fervo.Cx) *fervo.VNode {
//	    count := fervo.UseState(cx, func() int { return 0 })
//	    return cx.Element("button",
//	        cx.Textf("count: %d", count.Get()),
//	        fervo.OnClick(func(fervo.Event) {
//	            count.Update(func(n int) int { return n + 1 })
//	        }),
//	    )
//	}
package fervo

import (
	"context"

	"github.com/fervo-ui/fervo/pkg/runtime"
	"github.com/fervo-ui/fervo/pkg/vdom"
)

// Core types re-exported from pkg/runtime and pkg/vdom.
type (
	// Cx is the per-render context handed to component functions.
	Cx = runtime.Cx

	// ComponentFunc is a component. Returning nil freezes the previous
	// output instead of emitting patches.
	ComponentFunc = runtime.ComponentFunc

	// Loop drives rendering against a backend.
	Loop = runtime.Loop

	// Backend receives the mounted tree and subsequent patch batches.
	Backend = runtime.Backend

	// Task is a background computation bound to an instance.
	Task = runtime.Task

	// VNode is a node in the virtual tree.
	VNode = vdom.VNode

	// Event is a backend event delivered to a listener.
	Event = vdom.Event

	// Attr is a key/value element attribute.
	Attr = vdom.Attr

	// Patch is a single structural edit.
	Patch = vdom.Patch
)

// NewLoop creates a render loop for the root component.
func NewLoop(root ComponentFunc, backend Backend, opts ...runtime.Option) *Loop {
	return runtime.NewLoop(root, backend, opts...)
}

// UseState declares a state slot. The value read during a render is the
// committed one; writes land on the next cycle.
func UseState[T any](cx *Cx, init func() T) *runtime.State[T] {
	return runtime.UseState(cx, init)
}

// UseTask spawns a background task bound to the instance's lifetime.
func UseTask(cx *Cx, work func(ctx context.Context) error) *Task {
	return runtime.UseTask(cx, work)
}

// UseSuspense renders fallback until compute settles, then resolved.
func UseSuspense[T any](
	cx *Cx,
	compute func(ctx context.Context) (T, error),
	fallback func() *VNode,
	resolved func(value T, err error) *VNode,
) *VNode {
	return runtime.UseSuspense(cx, compute, fallback, resolved)
}

// UseSuspenseKeyed is UseSuspense restarted whenever key changes.
func UseSuspenseKeyed[K comparable, T any](
	cx *Cx,
	key K,
	compute func(ctx context.Context, key K) (T, error),
	fallback func() *VNode,
	resolved func(value T, err error) *VNode,
) *VNode {
	return runtime.UseSuspenseKeyed(cx, key, compute, fallback, resolved)
}

// NewContext declares a typed context with a default for when no
// ancestor provides a value.
func NewContext[T any](def T) *runtime.Context[T] {
	return runtime.NewContext(def)
}

// Element construction helpers re-exported from pkg/vdom.
var (
	AttrOf  = vdom.AttrOf
	Key     = vdom.Key
	Class   = vdom.Class
	ID      = vdom.ID
	On      = vdom.On
	OnClick = vdom.OnClick
	OnInput = vdom.OnInput
	If      = vdom.If
	When    = vdom.When
)

// Map builds a child list from a slice.
func Map[T any](items []T, fn func(T) *VNode) []*VNode {
	return vdom.Map(items, fn)
}

// WithKey gives a child component an explicit identity key.
var WithKey = runtime.WithKey
