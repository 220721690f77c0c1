package vdom

import "testing"

func TestElementArgumentKinds(t *testing.T) {
	f := NewFactory(NewArena())

	clicked := false
	node := f.Element("button",
		Class("primary"),
		AttrOf("type", "submit"),
		OnClick(func(Event) { clicked = true }),
		"Press",
		nil,
		f.Element("span", "icon"),
	)

	if node.Kind != KindElement || node.Tag != "button" {
		t.Fatalf("node = %v <%s>", node.Kind, node.Tag)
	}
	if v, ok := node.AttrByKey("class"); !ok || v != "primary" {
		t.Errorf("class attr = %q, %v", v, ok)
	}
	if v, ok := node.AttrByKey("type"); !ok || v != "submit" {
		t.Errorf("type attr = %q, %v", v, ok)
	}
	if len(node.Children) != 2 {
		t.Fatalf("len(Children) = %d, want 2", len(node.Children))
	}
	if node.Children[0].Kind != KindText || node.Children[0].Text != "Press" {
		t.Errorf("string arg did not become a text child: %+v", node.Children[0])
	}
	if !node.HasListeners() {
		t.Fatal("listener not collected")
	}
	node.Listeners[0].Handler(Event{Name: "click"})
	if !clicked {
		t.Error("handler not invoked")
	}
}

func TestElementKeyAttrSetsKey(t *testing.T) {
	f := NewFactory(NewArena())
	node := f.Element("li", Key("row-3"), "three")

	if node.Key != "row-3" {
		t.Errorf("Key = %q, want row-3", node.Key)
	}
	if _, ok := node.AttrByKey("key"); ok {
		t.Error("key leaked into rendered attributes")
	}
}

func TestElementSliceArgs(t *testing.T) {
	f := NewFactory(NewArena())
	rows := Map([]string{"a", "b", "c"}, func(s string) *VNode {
		return f.Element("li", s)
	})
	node := f.Element("ul", rows, []Attr{Class("list"), AttrOf("id", "main")})

	if len(node.Children) != 3 {
		t.Errorf("len(Children) = %d, want 3", len(node.Children))
	}
	if len(node.Attrs) != 2 {
		t.Errorf("len(Attrs) = %d, want 2", len(node.Attrs))
	}
}

func TestElementRejectsUnknownArg(t *testing.T) {
	f := NewFactory(NewArena())
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unsupported argument type")
		}
	}()
	f.Element("div", 42)
}

func TestFragmentSkipsNil(t *testing.T) {
	f := NewFactory(NewArena())
	frag := f.Fragment(
		f.Text("a"),
		If(false, f.Element("b", "never")),
		When(false, func() *VNode { t.Fatal("When must be lazy"); return nil }),
		"tail",
	)

	if frag.Kind != KindFragment {
		t.Fatalf("Kind = %v, want Fragment", frag.Kind)
	}
	if len(frag.Children) != 2 {
		t.Errorf("len(Children) = %d, want 2", len(frag.Children))
	}
}

func TestPlaceholderShape(t *testing.T) {
	f := NewFactory(NewArena())
	ph := f.Placeholder(42)

	if ph.Kind != KindComponent || ph.Instance != 42 {
		t.Fatalf("placeholder = %+v", ph)
	}
	if len(ph.Children) != 1 || ph.Children[0] != nil {
		t.Errorf("placeholder must have one empty child slot, got %v", ph.Children)
	}
}

func TestFactoryReuseAfterReset(t *testing.T) {
	a := NewArena()
	f := NewFactory(a)

	build := func() *VNode {
		return f.Element("div",
			Class("card"),
			f.Element("h2", "title"),
			f.Element("p", "body"),
		)
	}

	build()
	count := a.NodeCount()

	a.Reset()
	node := build()

	if a.NodeCount() != count {
		t.Errorf("node count changed across generations: %d vs %d", a.NodeCount(), count)
	}
	if a.Grew() {
		t.Error("rebuilding an identical tree grew the arena")
	}
	if node.Children[0].Tag != "h2" {
		t.Errorf("rebuilt tree malformed: %+v", node.Children[0])
	}
}
