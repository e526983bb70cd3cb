// Package pob implements the proof-obligation forest: the data structure
// the BackwardSearcher grows as it propagates obligations back toward an
// entry point, and the Coordinator prunes when a branch is refuted or
// discharged.
//
// The source represents this forest with raw parent/children pointers
// (ProofObligation::parent, ProofObligation::children) and propagates
// refutation by walking those pointers directly. A direct Go port of
// that shape needs nilable *Obligation fields and gets the ownership of
// "who frees a subtree" wrong in the same way the design notes warn
// about for Action/ActionResult: two goroutines holding a pointer into
// the same subtree can race a close against an add. Forest instead
// hands out opaque integer Handles (arena indices) the way gps's
// selection stack hands out indices into its own backing slice rather
// than passing live *project pointers between the solver and its
// version queues - a handle is safe to hold onto even after the node it
// named is closed, it just stops resolving.
package pob

import (
	"github.com/pkg/errors"

	"github.com/Columpio/klee/cfg"
)

// Handle names a node in a Forest. The zero Handle never names a real
// node; NoHandle makes that explicit at call sites.
type Handle int

// NoHandle is the zero value, used as "no parent" (a root) or "not
// found".
const NoHandle Handle = 0

// ErrNotFound is returned when a Handle does not name a live node in
// the Forest, either because it was never valid or because Close already
// removed it.
var ErrNotFound = errors.New("pob: handle does not name a live node")

// Obligation is one node of the forest, carrying the bookkeeping fields
// the source keeps directly on ProofObligation (Location, blocking_locs,
// answered) plus a caller-supplied Payload extension point, generic over
// T so the search package can attach whatever per-obligation data (a
// symbolic path condition, a witness) its own State representation
// needs without pob importing that type.
type Obligation[T any] struct {
	// Location is the block this obligation's witness must reach.
	Location cfg.Location

	// BlockingLocations is the set of initial-state locations
	// BackwardSearcher must not pair this obligation against - set when
	// a candidate state's path from that location has already been
	// tried and failed, mirroring blocking_locs.insert(initPCBlock) in
	// the source.
	BlockingLocations map[cfg.Location]bool

	// UnblockedStates names state IDs explicitly cleared to retry
	// against this obligation even though their location is in
	// BlockingLocations - set through Forest.UnblockState. The search
	// package never unblocks a state.
	UnblockedStates map[string]bool

	// Answered marks the obligation as discharged: per (I3) it must not
	// be offered by BackwardSearcher or fed to Initializer once true.
	Answered bool

	// Payload is opaque to pob; the search package stashes whatever
	// witness/condition data it tracks per obligation here.
	Payload T
}

// Blocks reports whether loc is currently a blocking location for ob,
// taking UnblockedStates for stateID into account.
func (ob Obligation[T]) Blocks(loc cfg.Location, stateID string) bool {
	if ob.UnblockedStates[stateID] {
		return false
	}
	return ob.BlockingLocations[loc]
}

type node[S any] struct {
	ob       Obligation[S]
	parent   Handle
	children map[Handle]bool
	live     bool
}

// Forest is a forest of Obligation nodes addressed by Handle, generic
// over the payload type S so the search package can instantiate it with
// whatever per-obligation extra data it wants to track without pob
// importing that type.
type Forest[S any] struct {
	nodes []node[S] // index 0 is an unused sentinel so the zero Handle means "none"
	roots map[Handle]bool
}

// NewForest returns an empty Forest.
func NewForest[S any]() *Forest[S] {
	return &Forest[S]{
		nodes: make([]node[S], 1), // reserve index 0
		roots: make(map[Handle]bool),
	}
}

// Add inserts ob as a child of parent (or as a new root, if parent is
// NoHandle) and returns its Handle.
func (f *Forest[S]) Add(parent Handle, ob Obligation[S]) Handle {
	h := Handle(len(f.nodes))
	f.nodes = append(f.nodes, node[S]{ob: ob, parent: parent, live: true})
	if parent == NoHandle {
		f.roots[h] = true
	} else if pn := f.at(parent); pn != nil {
		if pn.children == nil {
			pn.children = make(map[Handle]bool)
		}
		pn.children[h] = true
	}
	return h
}

func (f *Forest[S]) at(h Handle) *node[S] {
	if h <= NoHandle || int(h) >= len(f.nodes) || !f.nodes[h].live {
		return nil
	}
	return &f.nodes[h]
}

// Get returns the Obligation named by h.
func (f *Forest[S]) Get(h Handle) (Obligation[S], error) {
	n := f.at(h)
	if n == nil {
		return Obligation[S]{}, errors.Wrapf(ErrNotFound, "get %d", h)
	}
	return n.ob, nil
}

// Set replaces the Obligation stored at h in place without changing
// forest shape. The search package uses the narrower BlockLocation and
// MarkAnswered instead.
func (f *Forest[S]) Set(h Handle, ob Obligation[S]) error {
	n := f.at(h)
	if n == nil {
		return errors.Wrapf(ErrNotFound, "set %d", h)
	}
	n.ob = ob
	return nil
}

// Parent returns h's parent Handle, or NoHandle if h is a root.
func (f *Forest[S]) Parent(h Handle) Handle {
	if n := f.at(h); n != nil {
		return n.parent
	}
	return NoHandle
}

// Children returns h's direct children, in no particular order.
func (f *Forest[S]) Children(h Handle) []Handle {
	n := f.at(h)
	if n == nil {
		return nil
	}
	out := make([]Handle, 0, len(n.children))
	for c := range n.children {
		out = append(out, c)
	}
	return out
}

// Roots returns every root Handle currently live in the forest.
func (f *Forest[S]) Roots() []Handle {
	out := make([]Handle, 0, len(f.roots))
	for h := range f.roots {
		out = append(out, h)
	}
	return out
}

// Close removes h and its entire subtree from the forest, the way
// ProofObligation::detachFromParent plus a recursive delete remove a
// refuted branch. It is idempotent: closing an already-closed or
// unknown Handle is a no-op rather than an error.
func (f *Forest[S]) Close(h Handle) {
	n := f.at(h)
	if n == nil {
		return
	}
	for c := range n.children {
		f.Close(c)
	}
	if n.parent == NoHandle {
		delete(f.roots, h)
	} else if pn := f.at(n.parent); pn != nil {
		delete(pn.children, h)
	}
	n.live = false
	n.children = nil
}

// Ancestors returns h's chain of ancestors, nearest first, ending at
// (but not including) the root's non-existent parent.
func (f *Forest[S]) Ancestors(h Handle) []Handle {
	var out []Handle
	for cur := f.Parent(h); cur != NoHandle; cur = f.Parent(cur) {
		out = append(out, cur)
	}
	return out
}

// BlockLocation adds loc to h's BlockingLocations, the way
// ProofObligation::blocking_locs.insert(state.getInitPCBlock()) records
// that a state starting at loc already failed to discharge h.
func (f *Forest[S]) BlockLocation(h Handle, loc cfg.Location) error {
	n := f.at(h)
	if n == nil {
		return errors.Wrapf(ErrNotFound, "block %d", h)
	}
	if n.ob.BlockingLocations == nil {
		n.ob.BlockingLocations = make(map[cfg.Location]bool)
	}
	n.ob.BlockingLocations[loc] = true
	return nil
}

// UnblockState clears stateID to retry against h even if its location
// is in BlockingLocations.
func (f *Forest[S]) UnblockState(h Handle, stateID string) error {
	n := f.at(h)
	if n == nil {
		return errors.Wrapf(ErrNotFound, "unblock %d", h)
	}
	if n.ob.UnblockedStates == nil {
		n.ob.UnblockedStates = make(map[string]bool)
	}
	n.ob.UnblockedStates[stateID] = true
	return nil
}

// MarkAnswered sets h's Answered flag, per (I3) excluding it from
// BackwardSearcher pairing and Initializer seeding from that point on.
func (f *Forest[S]) MarkAnswered(h Handle) error {
	n := f.at(h)
	if n == nil {
		return errors.Wrapf(ErrNotFound, "mark-answered %d", h)
	}
	n.ob.Answered = true
	return nil
}

// Len reports the number of live nodes in the forest.
func (f *Forest[S]) Len() int {
	n := 0
	for i := 1; i < len(f.nodes); i++ {
		if f.nodes[i].live {
			n++
		}
	}
	return n
}
