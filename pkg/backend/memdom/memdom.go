// Package memdom is an in-memory backend that mirrors the committed
// tree by applying patches, node by node, the way a real display target
// would. It backs the test harness and doubles as a reference for
// writing new backends: if memdom ends up out of sync with the runtime's
// committed tree, the patch stream is wrong.
package memdom

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fervo-ui/fervo/pkg/vdom"
)

// ErrUnknownRef is returned when a patch targets a ref the mirror has
// never seen.
var ErrUnknownRef = errors.New("memdom: unknown node ref")

// Node is a mirror of one mounted node. Children order reflects every
// insert, move and remove applied so far.
type Node struct {
	Kind     vdom.VKind
	Tag      string
	Text     string
	Attrs    map[string]string
	Ref      vdom.RefID
	Parent   *Node
	Children []*Node
}

// Backend mirrors the committed tree in memory.
type Backend struct {
	mu      sync.Mutex
	root    *Node
	byRef   map[vdom.RefID]*Node
	applied int
}

// New creates an empty mirror.
func New() *Backend {
	return &Backend{byRef: make(map[vdom.RefID]*Node)}
}

// Mount replaces the mirror with a copy of root.
func (b *Backend) Mount(root *vdom.VNode) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byRef = make(map[vdom.RefID]*Node)
	b.root = b.adopt(root, nil)
	return nil
}

// Apply applies a patch batch in order. The batch is all-or-nothing in
// intent only; on error the mirror may hold a prefix of the batch, which
// is itself the bug under test.
func (b *Backend) Apply(patches []vdom.Patch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range patches {
		if err := b.apply(p); err != nil {
			return fmt.Errorf("memdom: patch %d (%s): %w", i, p.Op, err)
		}
		b.applied++
	}
	return nil
}

// Root returns the mirror root, nil before Mount.
func (b *Backend) Root() *Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.root
}

// Applied returns the count of individually applied patches.
func (b *Backend) Applied() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.applied
}

// Lookup returns the mirror node for a ref.
func (b *Backend) Lookup(ref vdom.RefID) *Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.byRef[ref]
}

func (b *Backend) apply(p vdom.Patch) error {
	switch p.Op {
	case vdom.OpSetText:
		n := b.byRef[p.Ref]
		if n == nil {
			return ErrUnknownRef
		}
		n.Text = p.Value

	case vdom.OpSetAttr:
		n := b.byRef[p.Ref]
		if n == nil {
			return ErrUnknownRef
		}
		if n.Attrs == nil {
			n.Attrs = make(map[string]string)
		}
		n.Attrs[p.Key] = p.Value

	case vdom.OpRemoveAttr:
		n := b.byRef[p.Ref]
		if n == nil {
			return ErrUnknownRef
		}
		delete(n.Attrs, p.Key)

	case vdom.OpInsertNode:
		parent := b.byRef[p.ParentRef]
		if parent == nil {
			return ErrUnknownRef
		}
		child := b.adopt(p.Node, parent)
		parent.insertChild(child, p.Index)

	case vdom.OpRemoveNode:
		n := b.byRef[p.Ref]
		if n == nil {
			return ErrUnknownRef
		}
		if n.Parent != nil {
			n.Parent.removeChild(n)
		} else if n == b.root {
			b.root = nil
		}
		b.forget(n)

	case vdom.OpMoveNode:
		n := b.byRef[p.Ref]
		parent := b.byRef[p.ParentRef]
		if n == nil || parent == nil {
			return ErrUnknownRef
		}
		if n.Parent != nil {
			n.Parent.removeChild(n)
		}
		n.Parent = parent
		parent.insertChild(n, p.Index)

	case vdom.OpReplaceNode:
		old := b.byRef[p.Ref]
		if old == nil {
			return ErrUnknownRef
		}
		fresh := b.adopt(p.Node, old.Parent)
		if old.Parent != nil {
			old.Parent.replaceChild(old, fresh)
		} else if old == b.root {
			b.root = fresh
		}
		b.forget(old)

	default:
		return fmt.Errorf("unsupported op %d", p.Op)
	}
	return nil
}

// adopt copies a VNode subtree into mirror nodes. The copy is deep so
// the mirror never aliases arena memory that a later generation reset
// would recycle.
func (b *Backend) adopt(v *vdom.VNode, parent *Node) *Node {
	if v == nil {
		return nil
	}
	n := &Node{
		Kind:   v.Kind,
		Tag:    v.Tag,
		Text:   v.Text,
		Ref:    v.Ref,
		Parent: parent,
	}
	if len(v.Attrs) > 0 {
		n.Attrs = make(map[string]string, len(v.Attrs))
		for _, a := range v.Attrs {
			n.Attrs[a.Key] = a.Value
		}
	}
	for _, c := range v.Children {
		if child := b.adopt(c, n); child != nil {
			n.Children = append(n.Children, child)
		}
	}
	if n.Ref != 0 {
		b.byRef[n.Ref] = n
	}
	return n
}

// forget drops a subtree from the ref index.
func (b *Backend) forget(n *Node) {
	if n.Ref != 0 {
		delete(b.byRef, n.Ref)
	}
	for _, c := range n.Children {
		b.forget(c)
	}
}

func (n *Node) insertChild(child *Node, index int) {
	child.Parent = n
	if index < 0 || index >= len(n.Children) {
		n.Children = append(n.Children, child)
		return
	}
	n.Children = append(n.Children, nil)
	copy(n.Children[index+1:], n.Children[index:])
	n.Children[index] = child
}

func (n *Node) removeChild(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			return
		}
	}
}

func (n *Node) replaceChild(old, fresh *Node) {
	for i, c := range n.Children {
		if c == old {
			n.Children[i] = fresh
			fresh.Parent = n
			old.Parent = nil
			return
		}
	}
}

// TextContent returns the concatenated text of the subtree, the way a
// display target would flatten it.
func (n *Node) TextContent() string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	n.collectText(&sb)
	return sb.String()
}

func (n *Node) collectText(sb *strings.Builder) {
	if n.Kind == vdom.KindText {
		sb.WriteString(n.Text)
	}
	for _, c := range n.Children {
		c.collectText(sb)
	}
}

// Find returns the first element in the subtree with the given tag.
func (n *Node) Find(tag string) *Node {
	if n == nil {
		return nil
	}
	if n.Kind == vdom.KindElement && n.Tag == tag {
		return n
	}
	for _, c := range n.Children {
		if hit := c.Find(tag); hit != nil {
			return hit
		}
	}
	return nil
}

// FindAll returns every element in the subtree with the given tag.
func (n *Node) FindAll(tag string) []*Node {
	var out []*Node
	n.findAll(tag, &out)
	return out
}

func (n *Node) findAll(tag string, out *[]*Node) {
	if n == nil {
		return
	}
	if n.Kind == vdom.KindElement && n.Tag == tag {
		*out = append(*out, n)
	}
	for _, c := range n.Children {
		c.findAll(tag, out)
	}
}
