package vdom

// ComponentResolver lets the differ recurse into component placeholders
// without knowing anything about instances. When both generations contain
// a placeholder for the same instance id, the differ hands the pair to
// the resolver; the render loop implements it by diffing the instance's
// own generations. A nil resolver treats matching placeholders as opaque.
type ComponentResolver interface {
	DiffComponent(prev, next *VNode, patches *[]Patch)
}

// Differ compares two tree generations and emits the patch sequence that
// transforms the first into the second. It has no side effects of its
// own: tearing down unmounted instances and applying patches are the
// caller's concern.
type Differ struct {
	Resolver ComponentResolver
}

// Diff compares prev and next and returns the patches needed to
// transform prev into next.
func (d *Differ) Diff(prev, next *VNode) []Patch {
	var patches []Patch
	d.diff(prev, next, &patches)
	return patches
}

// DiffInto appends the patches for prev→next to an existing sequence.
// Component resolvers use it to continue a diff across an instance
// boundary without starting a new patch list.
func (d *Differ) DiffInto(prev, next *VNode, patches *[]Patch) {
	d.diff(prev, next, patches)
}

// Diff compares two trees without component resolution. Matching
// placeholders are treated as opaque boundaries.
func Diff(prev, next *VNode) []Patch {
	var d Differ
	return d.Diff(prev, next)
}

func (d *Differ) diff(prev, next *VNode, patches *[]Patch) {
	if prev == nil && next == nil {
		return
	}
	if prev == next {
		// Same generation node: an ancestor re-rendered but this subtree
		// was reused unchanged (frozen or clean instance).
		return
	}

	// Insertion is handled by the parent via InsertNode; a bare new node
	// with no predecessor has nothing to patch against.
	if prev == nil {
		return
	}
	if next == nil {
		*patches = append(*patches, Patch{Op: OpRemoveNode, Ref: prev.Ref})
		return
	}

	if prev.Kind != next.Kind {
		*patches = append(*patches, Patch{Op: OpReplaceNode, Ref: prev.Ref, Node: next})
		return
	}

	switch prev.Kind {
	case KindText:
		d.diffText(prev, next, patches)
	case KindElement:
		d.diffElement(prev, next, patches)
	case KindFragment:
		d.diffFragment(prev, next, patches)
	case KindComponent:
		d.diffComponent(prev, next, patches)
	}
}

func (d *Differ) diffText(prev, next *VNode, patches *[]Patch) {
	next.Ref = prev.Ref
	if prev.Text != next.Text {
		*patches = append(*patches, Patch{Op: OpSetText, Ref: prev.Ref, Value: next.Text})
	}
}

func (d *Differ) diffElement(prev, next *VNode, patches *[]Patch) {
	// Different tag - replace the entire node.
	if prev.Tag != next.Tag {
		*patches = append(*patches, Patch{Op: OpReplaceNode, Ref: prev.Ref, Node: next})
		return
	}

	next.Ref = prev.Ref
	d.diffAttrs(prev, next, patches)
	d.diffChildren(prev, next, patches)
}

func (d *Differ) diffFragment(prev, next *VNode, patches *[]Patch) {
	next.Ref = prev.Ref
	d.diffChildren(prev, next, patches)
}

func (d *Differ) diffComponent(prev, next *VNode, patches *[]Patch) {
	// Different instance mounted at the same position: the old instance
	// is torn down and the new one mounted wholesale.
	if prev.Instance != next.Instance {
		*patches = append(*patches, Patch{Op: OpReplaceNode, Ref: prev.Ref, Node: next})
		return
	}

	next.Ref = prev.Ref
	if d.Resolver != nil {
		d.Resolver.DiffComponent(prev, next, patches)
	}
}

func (d *Differ) diffAttrs(prev, next *VNode, patches *[]Patch) {
	for _, pa := range prev.Attrs {
		nv, ok := next.AttrByKey(pa.Key)
		if !ok {
			*patches = append(*patches, Patch{Op: OpRemoveAttr, Ref: prev.Ref, Key: pa.Key})
		} else if nv != pa.Value {
			*patches = append(*patches, Patch{Op: OpSetAttr, Ref: prev.Ref, Key: pa.Key, Value: nv})
		}
	}
	for _, na := range next.Attrs {
		if _, ok := prev.AttrByKey(na.Key); !ok {
			*patches = append(*patches, Patch{Op: OpSetAttr, Ref: prev.Ref, Key: na.Key, Value: na.Value})
		}
	}
}

func (d *Differ) diffChildren(prev, next *VNode, patches *[]Patch) {
	if hasKeys(prev.Children) || hasKeys(next.Children) {
		d.diffKeyedChildren(prev, next, patches)
		return
	}
	d.diffUnkeyedChildren(prev, next, patches)
}

// diffUnkeyedChildren matches children positionally: pairs are diffed up
// to the shorter length, then the remainder is purely inserted or purely
// removed. Inserts and removes are never interleaved for unkeyed lists,
// which keeps the pass linear.
func (d *Differ) diffUnkeyedChildren(prev, next *VNode, patches *[]Patch) {
	pc, nc := prev.Children, next.Children

	shorter := len(pc)
	if len(nc) < shorter {
		shorter = len(nc)
	}
	for i := 0; i < shorter; i++ {
		d.diff(pc[i], nc[i], patches)
	}
	for i := shorter; i < len(pc); i++ {
		*patches = append(*patches, Patch{Op: OpRemoveNode, Ref: pc[i].Ref})
	}
	for i := shorter; i < len(nc); i++ {
		*patches = append(*patches, Patch{
			Op:        OpInsertNode,
			ParentRef: prev.Ref,
			Index:     i,
			Node:      nc[i],
		})
	}
}

// diffKeyedChildren matches children by key so reordered items keep
// their identity (and nested instances their state) instead of being
// remounted.
func (d *Differ) diffKeyedChildren(prev, next *VNode, patches *[]Patch) {
	pc, nc := prev.Children, next.Children

	prevByKey := make(map[string]int, len(pc))
	for i, child := range pc {
		if child.Key != "" {
			prevByKey[child.Key] = i
		}
	}

	matched := make([]bool, len(pc))
	for nextIdx, nextChild := range nc {
		if nextChild.Key == "" {
			*patches = append(*patches, Patch{
				Op:        OpInsertNode,
				ParentRef: prev.Ref,
				Index:     nextIdx,
				Node:      nextChild,
			})
			continue
		}
		prevIdx, ok := prevByKey[nextChild.Key]
		if !ok {
			*patches = append(*patches, Patch{
				Op:        OpInsertNode,
				ParentRef: prev.Ref,
				Index:     nextIdx,
				Node:      nextChild,
			})
			continue
		}
		matched[prevIdx] = true
		prevChild := pc[prevIdx]
		if prevIdx != nextIdx {
			*patches = append(*patches, Patch{
				Op:        OpMoveNode,
				Ref:       prevChild.Ref,
				ParentRef: prev.Ref,
				Index:     nextIdx,
			})
		}
		d.diff(prevChild, nextChild, patches)
	}

	for i, prevChild := range pc {
		if !matched[i] {
			*patches = append(*patches, Patch{Op: OpRemoveNode, Ref: prevChild.Ref})
		}
	}
}

func hasKeys(children []*VNode) bool {
	for _, child := range children {
		if child.Key != "" {
			return true
		}
	}
	return false
}
