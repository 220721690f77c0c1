package render

import (
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"github.com/fervo-ui/fervo/pkg/vdom"
)

func build(args ...any) *vdom.VNode {
	f := vdom.NewFactory(vdom.NewArena())
	return f.Element("div", args...)
}

func TestRenderBasicElement(t *testing.T) {
	r := NewRenderer(RendererConfig{})
	html, err := r.RenderToString(build(vdom.Class("card"), "hello"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if html != `<div class="card">hello</div>` {
		t.Errorf("html = %q", html)
	}
}

func TestRenderEscapesText(t *testing.T) {
	r := NewRenderer(RendererConfig{})
	html, err := r.RenderToString(build("<script>alert('x')</script> & more"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("unescaped markup in text: %q", html)
	}
	if !strings.Contains(html, "&lt;script&gt;") || !strings.Contains(html, "&amp; more") {
		t.Errorf("html = %q", html)
	}
}

func TestRenderEscapesAttrValues(t *testing.T) {
	r := NewRenderer(RendererConfig{})
	html, err := r.RenderToString(build(vdom.AttrOf("title", `say "hi" & bye`)))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, `title="say &quot;hi&quot; &amp; bye"`) {
		t.Errorf("html = %q", html)
	}
}

func TestRenderVoidElement(t *testing.T) {
	f := vdom.NewFactory(vdom.NewArena())
	r := NewRenderer(RendererConfig{})
	html, err := r.RenderToString(f.Element("img", vdom.AttrOf("src", "/a.png")))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if html != `<img src="/a.png">` {
		t.Errorf("html = %q", html)
	}
}

func TestRenderBooleanAttr(t *testing.T) {
	f := vdom.NewFactory(vdom.NewArena())
	r := NewRenderer(RendererConfig{})

	html, _ := r.RenderToString(f.Element("input", vdom.AttrOf("disabled", "true")))
	if !strings.Contains(html, " disabled") || strings.Contains(html, `disabled="`) {
		t.Errorf("html = %q", html)
	}

	html, _ = r.RenderToString(f.Element("input", vdom.AttrOf("disabled", "false")))
	if strings.Contains(html, "disabled") {
		t.Errorf("false boolean attr rendered: %q", html)
	}
}

func TestRenderFragmentHasNoWrapper(t *testing.T) {
	f := vdom.NewFactory(vdom.NewArena())
	r := NewRenderer(RendererConfig{})
	html, err := r.RenderToString(f.Fragment(
		f.Element("li", "a"),
		f.Element("li", "b"),
	))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if html != "<li>a</li><li>b</li>" {
		t.Errorf("html = %q", html)
	}
}

func TestRenderComponentPlaceholder(t *testing.T) {
	f := vdom.NewFactory(vdom.NewArena())
	ph := f.Placeholder(1)
	ph.Children[0] = f.Element("span", "inner")

	r := NewRenderer(RendererConfig{})
	html, err := r.RenderToString(f.Element("div", ph))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if html != "<div><span>inner</span></div>" {
		t.Errorf("html = %q", html)
	}
}

func TestRenderEmitRefs(t *testing.T) {
	f := vdom.NewFactory(vdom.NewArena())
	btn := f.Element("button", "go", vdom.OnClick(func(vdom.Event) {}))
	btn.Ref = 42

	r := NewRenderer(RendererConfig{EmitRefs: true})
	html, err := r.RenderToString(btn)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, `data-ref="42"`) {
		t.Errorf("html = %q", html)
	}

	// Without the flag no ref markers appear.
	plain := NewRenderer(RendererConfig{})
	html, _ = plain.RenderToString(btn)
	if strings.Contains(html, "data-ref") {
		t.Errorf("html = %q", html)
	}
}

func TestRenderDocumentSnapshot(t *testing.T) {
	f := vdom.NewFactory(vdom.NewArena())
	page := f.Element("main",
		vdom.ID("app"),
		f.Element("h1", "Waiting for doggos:"),
		f.Element("ul",
			vdom.Class("items"),
			f.Element("li", "Fizz"),
			f.Element("li", "Buzz"),
			f.Element("li", f.Element("a", vdom.AttrOf("href", "/about"), "about")),
		),
		f.Element("input", vdom.AttrOf("type", "text"), vdom.AttrOf("required", "true")),
	)

	pretty := NewRenderer(RendererConfig{Pretty: true})
	html, err := pretty.RenderToString(page)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	snaps.MatchSnapshot(t, html)
}
