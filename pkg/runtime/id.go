package runtime

import "sync/atomic"

// globalIDCounter is the source of unique ids for instances and tasks.
var globalIDCounter uint64

// nextID returns the next unique id. Ids are monotonically increasing
// and never reused.
func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}
