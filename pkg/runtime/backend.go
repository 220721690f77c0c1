package runtime

import "github.com/fervo-ui/fervo/pkg/vdom"

// Backend is the rendering side the loop drives. Implementations own
// the live tree: Mount receives the initial full tree, Apply receives
// each cycle's patch batch and must apply it in emitted order.
//
// How a backend paints is its own business: the in-memory mirror
// backend just restructures nodes, the live backend forwards patches to
// a browser client. Backends that surface user interactions translate
// them into EventSink.Emit calls against the listener's node ref.
type Backend interface {
	Mount(root *vdom.VNode) error
	Apply(patches []vdom.Patch) error
}

// EventSink accepts backend events. *Loop implements it; backends hold
// it to report interactions without depending on the loop type.
type EventSink interface {
	Emit(ref vdom.RefID, ev vdom.Event)
}
