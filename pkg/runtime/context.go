package runtime

import "sync/atomic"

// publishEpoch increments whenever any instance publishes a context key
// it had not published before. Resolution caches are validated against
// it, so a provider appearing between a consumer and its previously
// resolved ancestor can never serve a stale answer. Value updates on an
// existing publication do not move the epoch: resolution is by provider
// identity and the value is read live from the provider.
var publishEpoch atomic.Uint64

// Context provides dependency injection through the instance tree:
// publish once with Provide, consume anywhere below with Use, no prop
// threading. The nearest ancestor publication wins.
//
// Example:
//
//	var Theme = runtime.NewContext("light")
//
//	func App(cx *runtime.Cx) *vdom.VNode {
//	    Theme.Provide(cx, "dark")
//	    return cx.Element("div", cx.Child(Toolbar))
//	}
//
//	func Toolbar(cx *runtime.Cx) *vdom.VNode {
//	    return cx.Element("div", vdom.Class("bar-"+Theme.Use(cx)))
//	}
type Context[T any] struct {
	key any
	def T
}

// contextKey wraps the Context pointer into a unique map key type.
type contextKey[T any] struct {
	ctx *Context[T]
}

// NewContext creates a context with the given default value. The default
// is returned by Use when no ancestor provides a value.
func NewContext[T any](def T) *Context[T] {
	c := &Context[T]{def: def}
	c.key = contextKey[T]{ctx: c}
	return c
}

// Default returns the context's default value.
func (c *Context[T]) Default() T {
	return c.def
}

// Provide publishes value for the rendering instance and all of its
// present and future descendants. The publication lives exactly as long
// as the instance. Providing is not a hook and may be conditional;
// re-providing on a later render just updates the value.
func (c *Context[T]) Provide(cx *Cx, value T) {
	ProvideValue(cx, c.key, value)
}

// Use returns the nearest ancestor publication, or the default when none
// exists. Use is a hook: it occupies a slot (which holds the memoized
// resolution) and must be called unconditionally in a stable order.
func (c *Context[T]) Use(cx *Cx) T {
	v, ok := c.Lookup(cx)
	if !ok {
		return c.def
	}
	return v
}

// Lookup is Use without the default fallback: the second result reports
// whether any ancestor publishes the key.
func (c *Context[T]) Lookup(cx *Cx) (T, bool) {
	v, ok := LookupValue(cx, c.key)
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// ProvideValue is the untyped Provide: it publishes value for the
// rendering instance under an arbitrary comparable key.
func ProvideValue(cx *Cx, key, value any) {
	inst := cx.inst
	if inst.values == nil {
		inst.values = make(map[any]any)
	}
	if _, existed := inst.values[key]; !existed {
		publishEpoch.Add(1)
	}
	inst.values[key] = value
}

// LookupValue resolves key through the ancestor chain. Like Use it is a
// hook and occupies a slot holding the memoized resolution.
func LookupValue(cx *Cx, key any) (any, bool) {
	slot := cx.inst.nextSlot(slotContext)
	cache, _ := slot.value.(*ctxResolution)
	if cache == nil {
		cache = &ctxResolution{}
		slot.value = cache
	}

	epoch := publishEpoch.Load()
	if cache.epoch != epoch || cache.provider == nil && !cache.absent {
		cache.provider, cache.absent = resolveProvider(cx.inst, key)
		cache.epoch = epoch
	}

	if cache.absent {
		return nil, false
	}
	v, ok := cache.provider.values[key]
	if !ok {
		// Publication vanished with a re-render path change; fall back
		// to a fresh walk next time.
		cache.epoch = 0
		return nil, false
	}
	return v, true
}

// ctxResolution memoizes where a key resolved for one consumer slot.
// Lookup cost is O(depth) on the first resolution and O(1) amortized
// afterwards; no full-tree scan ever happens.
type ctxResolution struct {
	provider *Instance
	absent   bool
	epoch    uint64
}

func resolveProvider(from *Instance, key any) (provider *Instance, absent bool) {
	for in := from; in != nil; in = in.parent {
		if in.values != nil {
			if _, ok := in.values[key]; ok {
				return in, false
			}
		}
	}
	return nil, true
}
