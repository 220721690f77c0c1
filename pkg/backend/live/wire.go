package live

import (
	"encoding/json"

	"github.com/fervo-ui/fervo/pkg/vdom"
)

// Frame types on the wire. Frames are JSON objects with a "type" field
// and a type-specific payload.
const (
	frameMount   = "mount"
	framePatches = "patches"
	frameEvent   = "event"
	framePing    = "ping"
	framePong    = "pong"
)

type frame struct {
	Type    string      `json:"type"`
	Tree    *wireNode   `json:"tree,omitempty"`
	Patches []wirePatch `json:"patches,omitempty"`
	Event   *wireEvent  `json:"event,omitempty"`
}

// wireNode is the JSON shape of a mounted subtree.
type wireNode struct {
	Kind     uint8             `json:"kind"`
	Tag      string            `json:"tag,omitempty"`
	Text     string            `json:"text,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Events   []string          `json:"events,omitempty"`
	Ref      uint64            `json:"ref,omitempty"`
	Children []*wireNode       `json:"children,omitempty"`
}

type wirePatch struct {
	Op     string    `json:"op"`
	Ref    uint64    `json:"ref,omitempty"`
	Parent uint64    `json:"parent,omitempty"`
	Index  int       `json:"index,omitempty"`
	Key    string    `json:"key,omitempty"`
	Value  string    `json:"value,omitempty"`
	Node   *wireNode `json:"node,omitempty"`
}

type wireEvent struct {
	Ref   uint64 `json:"ref"`
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

func encodeNode(v *vdom.VNode) *wireNode {
	if v == nil {
		return nil
	}
	n := &wireNode{
		Kind: uint8(v.Kind),
		Tag:  v.Tag,
		Text: v.Text,
		Ref:  uint64(v.Ref),
	}
	if len(v.Attrs) > 0 {
		n.Attrs = make(map[string]string, len(v.Attrs))
		for _, a := range v.Attrs {
			n.Attrs[a.Key] = a.Value
		}
	}
	for _, l := range v.Listeners {
		n.Events = append(n.Events, l.Event)
	}
	for _, c := range v.Children {
		if child := encodeNode(c); child != nil {
			n.Children = append(n.Children, child)
		}
	}
	return n
}

func encodePatches(patches []vdom.Patch) []wirePatch {
	out := make([]wirePatch, 0, len(patches))
	for _, p := range patches {
		out = append(out, wirePatch{
			Op:     p.Op.String(),
			Ref:    uint64(p.Ref),
			Parent: uint64(p.ParentRef),
			Index:  p.Index,
			Key:    p.Key,
			Value:  p.Value,
			Node:   encodeNode(p.Node),
		})
	}
	return out
}

func encodeFrame(f frame) ([]byte, error) {
	return json.Marshal(f)
}

func decodeFrame(data []byte) (frame, error) {
	var f frame
	err := json.Unmarshal(data, &f)
	return f, err
}
