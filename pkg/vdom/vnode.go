package vdom

// VKind is the node type discriminator.
type VKind uint8

const (
	KindText      VKind = iota // Plain text node
	KindElement                // <div>, <button>, etc.
	KindFragment               // Grouping without wrapper
	KindComponent              // Placeholder for a nested component instance
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindText:
		return "Text"
	case KindElement:
		return "Element"
	case KindFragment:
		return "Fragment"
	case KindComponent:
		return "Component"
	default:
		return "Unknown"
	}
}

// RefID identifies a node in the backend's live tree. Refs are assigned
// by the render loop when a node first becomes part of a committed
// generation, and are carried forward by the differ so patches can target
// live nodes without re-diffing.
type RefID uint64

// VNode is a virtual tree node. Nodes are allocated from an Arena and
// belong to exactly one generation: they are built once through a Factory
// and never restructured afterwards. The only field touched after
// construction is Ref, which the differ copies from the matched node of
// the previous generation.
type VNode struct {
	Kind      VKind
	Tag       string          // KindElement tag name
	Attrs     []Attr          // KindElement attributes, arena-backed
	Listeners []EventListener // KindElement event bindings, arena-backed
	Children  []*VNode        // arena-backed
	Key       string          // Reconciliation key
	Text      string          // KindText content
	Instance  uint64          // KindComponent instance id
	Ref       RefID
}

// Attr is a single element attribute.
type Attr struct {
	Key   string
	Value string
}

// Event is the payload delivered to a listener when the backend reports
// an interaction. The runtime treats it as opaque.
type Event struct {
	Name  string // "click", "input", ...
	Value string // backend-supplied detail (input value, key, ...)
}

// EventListener binds an event name to a handler on an element.
type EventListener struct {
	Event   string
	Handler func(Event)
}

// AttrByKey returns the value of the named attribute and whether it is set.
func (v *VNode) AttrByKey(key string) (string, bool) {
	for _, a := range v.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// HasListeners reports whether the node carries event bindings and
// therefore needs a backend subscription.
func (v *VNode) HasListeners() bool {
	return v != nil && v.Kind == KindElement && len(v.Listeners) > 0
}

// Walk calls fn for node and every descendant in depth-first order.
// Traversal stops early when fn returns false.
func Walk(node *VNode, fn func(*VNode) bool) bool {
	if node == nil {
		return true
	}
	if !fn(node) {
		return false
	}
	for _, child := range node.Children {
		if !Walk(child, fn) {
			return false
		}
	}
	return true
}
