package live

// clientScript is the browser side of the wire protocol: it builds the
// DOM from the mount frame, applies patch frames against a ref map, and
// forwards listener events back over the socket. Structural ops address
// nodes by the same refs the loop assigns server-side.
const clientScript = `(() => {
  const refs = new Map();
  const app = document.getElementById("app");
  let ws;

  function send(ref, name, value) {
    ws.send(JSON.stringify({ type: "event", event: { ref: ref, name: name, value: value || "" } }));
  }

  function build(n) {
    let el;
    if (n.kind === 0) {
      el = document.createTextNode(n.text || "");
    } else if (n.kind === 1) {
      el = document.createElement(n.tag);
      for (const [k, v] of Object.entries(n.attrs || {})) el.setAttribute(k, v);
      for (const ev of n.events || []) {
        el.addEventListener(ev, (e) => send(n.ref, ev, e.target && e.target.value));
      }
    } else {
      el = document.createDocumentFragment();
    }
    for (const c of n.children || []) el.appendChild(build(c));
    if (n.ref && el.nodeType !== Node.DOCUMENT_FRAGMENT_NODE) refs.set(n.ref, el);
    return el;
  }

  function apply(p) {
    const el = refs.get(p.ref);
    switch (p.op) {
      case "SetText":
        if (el) el.textContent = p.value;
        break;
      case "SetAttr":
        if (el) el.setAttribute(p.key, p.value);
        break;
      case "RemoveAttr":
        if (el) el.removeAttribute(p.key);
        break;
      case "InsertNode": {
        const parent = refs.get(p.parent) || app;
        parent.insertBefore(build(p.node), parent.childNodes[p.index] || null);
        break;
      }
      case "RemoveNode":
        if (el) { el.remove(); refs.delete(p.ref); }
        break;
      case "MoveNode": {
        const parent = refs.get(p.parent);
        if (el && parent) parent.insertBefore(el, parent.childNodes[p.index] || null);
        break;
      }
      case "ReplaceNode":
        if (el) { refs.delete(p.ref); el.replaceWith(build(p.node)); }
        break;
      default:
        console.debug("fervo: unknown patch op", p.op);
    }
  }

  function connect() {
    const scheme = location.protocol === "https:" ? "wss://" : "ws://";
    ws = new WebSocket(scheme + location.host + "/ws");
    ws.onmessage = (msg) => {
      const f = JSON.parse(msg.data);
      if (f.type === "mount") {
        refs.clear();
        app.replaceChildren(build(f.tree));
      } else if (f.type === "patches") {
        for (const p of f.patches || []) apply(p);
      } else if (f.type === "ping") {
        ws.send(JSON.stringify({ type: "pong" }));
      }
    };
  }

  connect();
})();
`
