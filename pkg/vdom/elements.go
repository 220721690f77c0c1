package vdom

import "fmt"

// Factory builds nodes for one arena generation. It is handed to render
// functions by the runtime; every node it produces is valid until the
// generation it was built in is reset.
//
// Element arguments may be, in any mix and order:
//
//	Attr / []Attr               attributes (key "key" sets the reconciliation key)
//	EventListener               event binding
//	*VNode / []*VNode           children (nil entries are skipped)
//	string                      shorthand for a text child
//	nil                         ignored, allows conditional arguments
type Factory struct {
	arena *Arena

	// scratch buffers reused between builds to keep argument collection
	// off the heap. Safe because args are fully evaluated before the
	// Element call runs, so builds never nest.
	childScratch    []*VNode
	attrScratch     []Attr
	listenerScratch []EventListener
}

// NewFactory creates a factory allocating from the given arena.
func NewFactory(arena *Arena) *Factory {
	return &Factory{arena: arena}
}

// Arena returns the arena this factory allocates from.
func (f *Factory) Arena() *Arena {
	return f.arena
}

// Element creates an element node.
func (f *Factory) Element(tag string, args ...any) *VNode {
	node := f.arena.Alloc()
	node.Kind = KindElement
	node.Tag = tag

	f.childScratch = f.childScratch[:0]
	f.attrScratch = f.attrScratch[:0]
	f.listenerScratch = f.listenerScratch[:0]

	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			continue
		case Attr:
			f.collectAttr(node, v)
		case []Attr:
			for _, a := range v {
				f.collectAttr(node, a)
			}
		case EventListener:
			f.listenerScratch = append(f.listenerScratch, v)
		case *VNode:
			if v != nil {
				f.childScratch = append(f.childScratch, v)
			}
		case []*VNode:
			for _, c := range v {
				if c != nil {
					f.childScratch = append(f.childScratch, c)
				}
			}
		case string:
			f.childScratch = append(f.childScratch, f.Text(v))
		default:
			panic(fmt.Sprintf("fervo: invalid element argument %T for <%s>", arg, tag))
		}
	}

	if len(f.attrScratch) > 0 {
		node.Attrs = f.arena.AllocAttrs(len(f.attrScratch))
		copy(node.Attrs, f.attrScratch)
	}
	if len(f.listenerScratch) > 0 {
		node.Listeners = f.arena.AllocListeners(len(f.listenerScratch))
		copy(node.Listeners, f.listenerScratch)
	}
	if len(f.childScratch) > 0 {
		node.Children = f.arena.AllocChildren(len(f.childScratch))
		copy(node.Children, f.childScratch)
	}
	return node
}

func (f *Factory) collectAttr(node *VNode, a Attr) {
	if a.Key == "" {
		return
	}
	if a.Key == "key" {
		node.Key = a.Value
		return
	}
	f.attrScratch = append(f.attrScratch, a)
}

// Text creates a text node.
func (f *Factory) Text(content string) *VNode {
	node := f.arena.Alloc()
	node.Kind = KindText
	node.Text = content
	return node
}

// Textf creates a formatted text node.
func (f *Factory) Textf(format string, args ...any) *VNode {
	return f.Text(fmt.Sprintf(format, args...))
}

// Fragment groups children without a wrapper element.
func (f *Factory) Fragment(children ...any) *VNode {
	node := f.arena.Alloc()
	node.Kind = KindFragment

	f.childScratch = f.childScratch[:0]
	for _, child := range children {
		switch v := child.(type) {
		case nil:
			continue
		case *VNode:
			if v != nil {
				f.childScratch = append(f.childScratch, v)
			}
		case []*VNode:
			for _, c := range v {
				if c != nil {
					f.childScratch = append(f.childScratch, c)
				}
			}
		case string:
			f.childScratch = append(f.childScratch, f.Text(v))
		default:
			panic(fmt.Sprintf("fervo: invalid fragment argument %T", child))
		}
	}
	if len(f.childScratch) > 0 {
		node.Children = f.arena.AllocChildren(len(f.childScratch))
		copy(node.Children, f.childScratch)
	}
	return node
}

// Placeholder creates a component placeholder for the given instance id.
// The runtime expands it with the instance's own subtree during the
// mount/diff phase; the parent's factory never builds nested subtrees.
func (f *Factory) Placeholder(instanceID uint64) *VNode {
	node := f.arena.Alloc()
	node.Kind = KindComponent
	node.Instance = instanceID
	// One child slot for the instance's rendered root, filled by the loop.
	node.Children = f.arena.AllocChildren(1)
	return node
}

// AttrOf creates an attribute.
func AttrOf(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

// Key creates a reconciliation key attribute.
func Key(value string) Attr {
	return Attr{Key: "key", Value: value}
}

// Class is shorthand for a class attribute.
func Class(value string) Attr {
	return Attr{Key: "class", Value: value}
}

// ID is shorthand for an id attribute.
func ID(value string) Attr {
	return Attr{Key: "id", Value: value}
}

// On binds a handler to an arbitrary event name.
func On(event string, handler func(Event)) EventListener {
	return EventListener{Event: event, Handler: handler}
}

// OnClick binds a click handler.
func OnClick(handler func(Event)) EventListener {
	return On("click", handler)
}

// OnInput binds an input handler.
func OnInput(handler func(Event)) EventListener {
	return On("input", handler)
}

// If returns the node if condition is true, nil otherwise.
func If(condition bool, node *VNode) *VNode {
	if condition {
		return node
	}
	return nil
}

// When is like If but with lazy evaluation. The function is only called
// if condition is true.
func When(condition bool, fn func() *VNode) *VNode {
	if condition {
		return fn()
	}
	return nil
}

// Map renders a slice through fn, for list children.
func Map[T any](items []T, fn func(T) *VNode) []*VNode {
	nodes := make([]*VNode, 0, len(items))
	for _, item := range items {
		if n := fn(item); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}
