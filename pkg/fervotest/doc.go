// Package fervotest drives a render loop deterministically in tests.
// The harness mounts a component against an in-memory mirror, fires
// events, steps cycles by hand, and asserts on the mirrored output.
package fervotest
