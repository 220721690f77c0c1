package vdom

// Arena is a generation-scoped bump allocator for virtual trees.
//
// Memory is organized as fixed-capacity slabs that are never reallocated,
// so node pointers handed out by Alloc stay valid until Reset. Reset
// rewinds every slab cursor and starts a new generation; slab memory is
// retained, which is what makes re-rendering a tree of stable shape
// allocation-free after the first warm-up render.
//
// An Arena is owned by a single render pass at a time and is not safe for
// concurrent use.
type Arena struct {
	nodes     nodeSlabs
	children  sliceSlabs[*VNode]
	attrs     sliceSlabs[Attr]
	listeners sliceSlabs[EventListener]

	generation uint64
	grew       bool
	highWater  int
}

// nodeSlabSize is the number of nodes per slab. Chosen so a typical
// component subtree fits in one slab.
const nodeSlabSize = 256

// NewArena creates an empty arena. Slabs are acquired on demand.
func NewArena() *Arena {
	return &Arena{}
}

// Alloc returns a zeroed node valid for the current generation.
func (a *Arena) Alloc() *VNode {
	n, acquired := a.nodes.alloc()
	if acquired {
		a.grew = true
	}
	if used := a.nodes.used(); used > a.highWater {
		a.highWater = used
	}
	return n
}

// AllocChildren returns a zeroed child slice of length n backed by the
// current generation.
func (a *Arena) AllocChildren(n int) []*VNode {
	s, acquired := a.children.alloc(n)
	if acquired {
		a.grew = true
	}
	return s
}

// AllocAttrs returns a zeroed attribute slice of length n backed by the
// current generation.
func (a *Arena) AllocAttrs(n int) []Attr {
	s, acquired := a.attrs.alloc(n)
	if acquired {
		a.grew = true
	}
	return s
}

// AllocListeners returns a zeroed listener slice of length n backed by
// the current generation.
func (a *Arena) AllocListeners(n int) []EventListener {
	s, acquired := a.listeners.alloc(n)
	if acquired {
		a.grew = true
	}
	return s
}

// Reset invalidates every handle from the current generation and makes
// the backing memory available for reuse. Whole-generation reset is the
// only way memory is ever reclaimed; individual nodes are never freed.
func (a *Arena) Reset() {
	a.nodes.reset()
	a.children.reset()
	a.attrs.reset()
	a.listeners.reset()
	a.generation++
	a.grew = false
}

// Generation returns the current generation counter. It increments on
// every Reset and never repeats.
func (a *Arena) Generation() uint64 {
	return a.generation
}

// Grew reports whether the current generation acquired new slab memory.
// At steady state this stays false from the second generation of a
// fixed-shape tree onwards.
func (a *Arena) Grew() bool {
	return a.grew
}

// NodeHighWater returns the maximum number of nodes live in any single
// generation so far.
func (a *Arena) NodeHighWater() int {
	return a.highWater
}

// NodeCount returns the number of nodes allocated in the current generation.
func (a *Arena) NodeCount() int {
	return a.nodes.used()
}

// nodeSlabs hands out single nodes from fixed slabs.
type nodeSlabs struct {
	slabs [][]VNode
	slab  int // current slab index
	next  int // next free index within the current slab
}

func (s *nodeSlabs) alloc() (*VNode, bool) {
	acquired := false
	for s.slab < len(s.slabs) && s.next >= len(s.slabs[s.slab]) {
		s.slab++
		s.next = 0
	}
	if s.slab >= len(s.slabs) {
		s.slabs = append(s.slabs, make([]VNode, nodeSlabSize))
		s.next = 0
		acquired = true
	}
	n := &s.slabs[s.slab][s.next]
	*n = VNode{}
	s.next++
	return n, acquired
}

func (s *nodeSlabs) used() int {
	return s.slab*nodeSlabSize + s.next
}

func (s *nodeSlabs) reset() {
	s.slab = 0
	s.next = 0
}

// sliceSlabs hands out contiguous runs from fixed slabs. Runs larger
// than a slab get a dedicated slab of exactly the requested size; such
// slabs are retained and reused like any other.
type sliceSlabs[T any] struct {
	slabs [][]T
	slab  int
	next  int
}

func (s *sliceSlabs[T]) alloc(n int) ([]T, bool) {
	if n == 0 {
		return nil, false
	}
	acquired := false
	for s.slab < len(s.slabs) && s.next+n > len(s.slabs[s.slab]) {
		s.slab++
		s.next = 0
	}
	if s.slab >= len(s.slabs) {
		size := nodeSlabSize
		if n > size {
			size = n
		}
		s.slabs = append(s.slabs, make([]T, size))
		s.next = 0
		acquired = true
	}
	run := s.slabs[s.slab][s.next : s.next+n]
	var zero T
	for i := range run {
		run[i] = zero
	}
	s.next += n
	return run, acquired
}

func (s *sliceSlabs[T]) reset() {
	s.slab = 0
	s.next = 0
}
