// Package arena implements the bump allocator tree nodes are drawn
// from during one force-kernel step. Nodes are indices into a
// contiguous slice rather than pointers: on a 64-bit target the four
// int32 child slots take 16 bytes instead of the 32 that four pointers
// would, which shrinks each node, and the builder's insertion order
// stays contiguous in memory.
//
// Lifetime: a single Arena is reset at the start of every kernel
// step, fully repopulated by the quadtree builder, read during one
// parallel force-evaluation pass, and then implicitly released at the
// next Reset. No pointer to a Node escapes the kernel; callers only
// ever see Index values.
package arena

import "github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/kernelerr"

// Index identifies a node slot within an Arena. The zero value is a
// valid index (slot 0, the root) — emptiness is tracked separately by
// callers via a sentinel like -1, not by this type.
type Index int32

// Node is one quadtree node. Children are stored as arena indices; -1
// means the slot is empty. PID is a non-negative particle index when
// the node is a leaf holding exactly one particle (or a merged
// coincident cluster), and -1 when the node is internal or still
// empty during construction.
type Node struct {
	XMin, XMax, YMin, YMax float64
	Mass                   float64
	CMX, CMY               float64
	PID                    int32
	Child                  [4]Index
}

const emptyChild Index = -1

// Empty reports whether the node has no particle and no children —
// the transient state construction must never leave in the final
// tree.
func (n *Node) Empty() bool {
	if n.PID >= 0 {
		return false
	}
	for _, c := range n.Child {
		if c != emptyChild {
			return false
		}
	}
	return true
}

// Leaf reports whether the node holds exactly one particle (or merged
// cluster) and has no children.
func (n *Node) Leaf() bool {
	if n.PID < 0 {
		return false
	}
	for _, c := range n.Child {
		if c != emptyChild {
			return false
		}
	}
	return true
}

// GrowthPolicy selects what Alloc does when the arena is full.
type GrowthPolicy int

const (
	// Abort makes Alloc return ArenaExhausted once the arena fills.
	Abort GrowthPolicy = iota
	// DoubleAndRestart makes Alloc double capacity and signal the
	// caller (via ErrNeedsRestart) that construction must restart
	// from scratch against the enlarged arena.
	DoubleAndRestart
)

// Arena is a contiguous block of pre-allocated Node slots plus a
// cursor. Reset is O(1): it does not zero memory, since every slot is
// fully initialized by the builder before it is read.
type Arena struct {
	nodes  []Node
	used   int
	policy GrowthPolicy
}

// New allocates an Arena with room for capacity nodes.
func New(capacity int, policy GrowthPolicy) *Arena {
	return &Arena{nodes: make([]Node, capacity), policy: policy}
}

// Capacity returns the number of node slots currently backing the
// arena.
func (a *Arena) Capacity() int { return len(a.nodes) }

// Used returns the number of slots allocated since the last Reset.
func (a *Arena) Used() int { return a.used }

// Reset sets the cursor back to zero without touching memory.
func (a *Arena) Reset() { a.used = 0 }

// ErrNeedsRestart is returned by Alloc under DoubleAndRestart when the
// arena just grew; the builder must discard any partially built tree
// and restart insertion from the (now larger, already-reset) arena.
var ErrNeedsRestart = kernelerr.New(kernelerr.ArenaExhausted, "arena grew, restart build")

// Alloc hands out the next free slot. Under Abort, a full arena
// returns kernelerr.ErrArenaExhausted. Under DoubleAndRestart, a full
// arena doubles capacity, resets the cursor, and returns
// ErrNeedsRestart instead of a usable index.
func (a *Arena) Alloc() (Index, error) {
	if a.used >= len(a.nodes) {
		if a.policy == Abort {
			return emptyChild, kernelerr.New(
				kernelerr.ArenaExhausted,
				"need capacity > %d (used %d of %d)",
				len(a.nodes), a.used, len(a.nodes),
			)
		}
		a.nodes = make([]Node, len(a.nodes)*2)
		a.used = 0
		return emptyChild, ErrNeedsRestart
	}
	idx := Index(a.used)
	a.nodes[idx] = Node{PID: -1, Child: [4]Index{emptyChild, emptyChild, emptyChild, emptyChild}}
	a.used++
	return idx, nil
}

// At returns a pointer to the node at idx. The pointer is only valid
// until the next Reset; callers must not retain it across a step
// boundary (no per-node destructor exists — release is implicit).
func (a *Arena) At(idx Index) *Node { return &a.nodes[idx] }

// RequiredCapacityHint estimates a safe node capacity for N particles
// using the usual rule of thumb that a balanced quadtree over N points
// needs on the order of 10N nodes.
func RequiredCapacityHint(n int) int {
	const c = 10
	if n < 1 {
		return c
	}
	return c * n
}
