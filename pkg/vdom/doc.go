// Package vdom implements the virtual tree layer of the Fervo runtime:
// arena-allocated nodes, the Factory used by render functions to build
// one generation of a tree, and the differ that turns two generations
// into an ordered patch sequence.
//
// Nodes live in generation-scoped arenas (Arena). A render pass builds a
// fresh tree through a Factory; once the pass and the following diff
// complete, the previous generation is reset wholesale and its memory
// reused. No node is ever freed individually.
//
// The differ (Differ) is pure: it emits patches and nothing else.
// Component placeholders are delegated to a ComponentResolver so the
// package stays independent of the instance/runtime layer above it.
package vdom
