package vdom

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// numberRefs gives every node a sequential ref, the way the loop does
// before a tree's first commit.
func numberRefs(node *VNode, next *uint64) {
	if node == nil {
		return
	}
	if node.Ref == 0 {
		*next++
		node.Ref = RefID(*next)
	}
	for _, c := range node.Children {
		numberRefs(c, next)
	}
}

func refTree(node *VNode) *VNode {
	var ctr uint64
	numberRefs(node, &ctr)
	return node
}

// flatPatches strips subtree payloads so patch sequences compare by
// value.
func flatPatches(patches []Patch) []Patch {
	out := make([]Patch, len(patches))
	for i, p := range patches {
		p.Node = nil
		out[i] = p
	}
	return out
}

func TestDiffBothNil(t *testing.T) {
	if patches := Diff(nil, nil); len(patches) != 0 {
		t.Errorf("expected 0 patches, got %d", len(patches))
	}
}

func TestDiffSamePointerNoPatches(t *testing.T) {
	f := NewFactory(NewArena())
	tree := refTree(f.Element("div", "hello"))

	if patches := Diff(tree, tree); len(patches) != 0 {
		t.Errorf("expected 0 patches for identical generation, got %d", len(patches))
	}
}

func TestDiffEqualTreesNoPatches(t *testing.T) {
	f := NewFactory(NewArena())
	prev := refTree(f.Element("div", Class("box"), f.Element("span", "hi")))
	next := f.Element("div", Class("box"), f.Element("span", "hi"))

	if patches := Diff(prev, next); len(patches) != 0 {
		t.Errorf("expected 0 patches for equal trees, got %v", patches)
	}
}

func TestDiffTextChangeIsMinimal(t *testing.T) {
	f := NewFactory(NewArena())
	prev := refTree(f.Element("div",
		f.Element("h1", "Title"),
		f.Element("p", "old"),
	))
	next := f.Element("div",
		f.Element("h1", "Title"),
		f.Element("p", "new"),
	)

	patches := Diff(prev, next)

	want := []Patch{
		{Op: OpSetText, Ref: prev.Children[1].Children[0].Ref, Value: "new"},
	}
	if diff := cmp.Diff(want, flatPatches(patches)); diff != "" {
		t.Errorf("patch mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffCarriesRefsForward(t *testing.T) {
	f := NewFactory(NewArena())
	prev := refTree(f.Element("div", "x"))
	next := f.Element("div", "y")

	Diff(prev, next)

	if next.Ref != prev.Ref {
		t.Errorf("element ref not carried: prev %d, next %d", prev.Ref, next.Ref)
	}
	if next.Children[0].Ref != prev.Children[0].Ref {
		t.Errorf("text ref not carried")
	}
}

func TestDiffIdempotent(t *testing.T) {
	build := func(f *Factory, label string) *VNode {
		return f.Element("ul",
			f.Element("li", label),
			f.Element("li", "constant"),
		)
	}
	f := NewFactory(NewArena())
	prev := refTree(build(f, "a"))
	next := build(f, "b")

	first := Diff(prev, next)
	if len(first) != 1 {
		t.Fatalf("expected 1 patch, got %d", len(first))
	}

	// next now carries prev's refs; diffing it against an equal tree
	// must be empty.
	again := build(f, "b")
	if patches := Diff(next, again); len(patches) != 0 {
		t.Errorf("expected converged diff to be empty, got %v", patches)
	}
}

func TestDiffAttrs(t *testing.T) {
	f := NewFactory(NewArena())
	prev := refTree(f.Element("input", AttrOf("type", "text"), AttrOf("placeholder", "name")))
	next := f.Element("input", AttrOf("type", "password"), AttrOf("required", "true"))

	patches := Diff(prev, next)

	want := []Patch{
		{Op: OpSetAttr, Ref: prev.Ref, Key: "type", Value: "password"},
		{Op: OpRemoveAttr, Ref: prev.Ref, Key: "placeholder"},
		{Op: OpSetAttr, Ref: prev.Ref, Key: "required", Value: "true"},
	}
	opts := cmpopts.SortSlices(func(a, b Patch) bool {
		if a.Op != b.Op {
			return a.Op < b.Op
		}
		return a.Key < b.Key
	})
	if diff := cmp.Diff(want, flatPatches(patches), opts); diff != "" {
		t.Errorf("patch mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffTagChangeReplaces(t *testing.T) {
	f := NewFactory(NewArena())
	prev := refTree(f.Element("span", "x"))
	next := f.Element("div", "x")

	patches := Diff(prev, next)

	if len(patches) != 1 {
		t.Fatalf("expected 1 patch, got %d", len(patches))
	}
	if patches[0].Op != OpReplaceNode {
		t.Errorf("Op = %v, want ReplaceNode", patches[0].Op)
	}
	if patches[0].Node != next {
		t.Error("replacement payload is not the next tree")
	}
}

func TestDiffKindChangeReplaces(t *testing.T) {
	f := NewFactory(NewArena())
	prev := refTree(f.Text("plain"))
	next := f.Element("b", "bold")

	patches := Diff(prev, next)
	if len(patches) != 1 || patches[0].Op != OpReplaceNode {
		t.Fatalf("expected single ReplaceNode, got %v", patches)
	}
}

func TestDiffUnkeyedShrinkRemovesTailOnly(t *testing.T) {
	f := NewFactory(NewArena())
	items := func(n int) []*VNode {
		out := make([]*VNode, n)
		for i := range out {
			out[i] = f.Element("li", f.Textf("item %d", i))
		}
		return out
	}
	prev := refTree(f.Element("ul", items(5)))
	next := f.Element("ul", items(3))

	patches := Diff(prev, next)

	if len(patches) != 2 {
		t.Fatalf("expected exactly 2 patches, got %d: %v", len(patches), patches)
	}
	for i, p := range patches {
		if p.Op != OpRemoveNode {
			t.Errorf("patch %d: Op = %v, want RemoveNode", i, p.Op)
		}
	}
	if patches[0].Ref != prev.Children[3].Ref || patches[1].Ref != prev.Children[4].Ref {
		t.Error("removed refs are not the trailing items")
	}
}

func TestDiffUnkeyedGrowInsertsTail(t *testing.T) {
	f := NewFactory(NewArena())
	row := func(label string) *VNode { return f.Element("li", label) }

	prev := refTree(f.Element("ul", row("a"), row("b")))
	next := f.Element("ul", row("a"), row("b"), row("c"), row("d"))

	patches := Diff(prev, next)

	if len(patches) != 2 {
		t.Fatalf("expected 2 patches, got %d: %v", len(patches), patches)
	}
	for i, p := range patches {
		if p.Op != OpInsertNode {
			t.Errorf("patch %d: Op = %v, want InsertNode", i, p.Op)
		}
		if p.ParentRef != prev.Ref {
			t.Errorf("patch %d: ParentRef = %d, want %d", i, p.ParentRef, prev.Ref)
		}
	}
	if patches[0].Index != 2 || patches[1].Index != 3 {
		t.Errorf("insert indices = %d,%d, want 2,3", patches[0].Index, patches[1].Index)
	}
}

func TestDiffKeyedReorderMoves(t *testing.T) {
	f := NewFactory(NewArena())
	row := func(key string) *VNode { return f.Element("li", Key(key), f.Text(key)) }

	prev := refTree(f.Element("ul", row("a"), row("b"), row("c")))
	next := f.Element("ul", row("c"), row("a"), row("b"))

	patches := Diff(prev, next)

	for _, p := range patches {
		if p.Op == OpInsertNode || p.Op == OpRemoveNode {
			t.Fatalf("reorder produced %v; keyed items must move, not remount", p.Op)
		}
	}
	moves := 0
	for _, p := range patches {
		if p.Op == OpMoveNode {
			moves++
		}
	}
	if moves == 0 {
		t.Error("expected at least one MoveNode for the reorder")
	}
}

func TestDiffKeyedRemoval(t *testing.T) {
	f := NewFactory(NewArena())
	row := func(key string) *VNode { return f.Element("li", Key(key), f.Text(key)) }

	prev := refTree(f.Element("ul", row("a"), row("b"), row("c")))
	next := f.Element("ul", row("a"), row("c"))

	patches := Diff(prev, next)

	removed := 0
	for _, p := range patches {
		if p.Op == OpRemoveNode {
			removed++
			if p.Ref != prev.Children[1].Ref {
				t.Errorf("removed ref %d, want the 'b' row %d", p.Ref, prev.Children[1].Ref)
			}
		}
	}
	if removed != 1 {
		t.Errorf("expected 1 removal, got %d", removed)
	}
}

func TestDiffComponentBoundary(t *testing.T) {
	f := NewFactory(NewArena())

	prevPH := f.Placeholder(7)
	prevPH.Children[0] = f.Element("div", "inner")
	prev := refTree(f.Element("section", prevPH))

	nextPH := f.Placeholder(7)
	nextPH.Children[0] = prevPH.Children[0] // clean child reuses its generation
	next := f.Element("section", nextPH)

	// Without a resolver, matching placeholders are opaque.
	if patches := Diff(prev, next); len(patches) != 0 {
		t.Errorf("expected 0 patches across clean component boundary, got %v", patches)
	}
	if nextPH.Ref != prevPH.Ref {
		t.Error("placeholder ref not carried forward")
	}
}

func TestDiffComponentInstanceSwapReplaces(t *testing.T) {
	f := NewFactory(NewArena())

	prevPH := f.Placeholder(7)
	prev := refTree(f.Element("section", prevPH))
	nextPH := f.Placeholder(8)
	next := f.Element("section", nextPH)

	patches := Diff(prev, next)
	if len(patches) != 1 || patches[0].Op != OpReplaceNode {
		t.Fatalf("expected single ReplaceNode for instance swap, got %v", patches)
	}
}
