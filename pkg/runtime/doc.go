// Package runtime is the Fervo component engine: it tracks per-instance
// hook state across re-renders, rebuilds virtual subtrees into arena
// generations, diffs them against the retained previous generation,
// propagates shared context down the instance tree, and schedules
// background tasks and suspended subtrees without blocking the rest of
// the UI.
//
// The engine is single-threaded and cooperative: one goroutine (whoever
// drives Loop.Run or Loop.Tick) owns the render/diff/commit cycle.
// Background tasks and suspense computations run on their own goroutines
// and rejoin the cycle exclusively by queueing state writes and marking
// their instance dirty; they never touch a virtual tree or the backend.
package runtime
