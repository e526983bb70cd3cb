package search

import (
	"github.com/Columpio/klee/interp"
	"github.com/Columpio/klee/pob"
)

// BackwardSearcher maintains the set of open proof obligations and
// pairs each with a candidate isolated state that reached a sink,
// producing backward steps. Pairing is FIFO over the (PO, state)
// cross-product: both pobOrder and stateOrder record arrival order, and
// tried remembers which pairs this searcher has already handed out so
// the same pairing is never offered twice, mirroring the way the
// teacher's versionQueue never re-offers a version once advance() has
// passed it.
type BackwardSearcher struct {
	forest *pob.Forest[interp.State]

	pobOrder   []pob.Handle
	pobSet     map[pob.Handle]bool
	stateOrder []string
	states     map[string]interp.State
	tried      map[pairKey]bool
}

type pairKey struct {
	p pob.Handle
	s string
}

func newBackwardSearcher(forest *pob.Forest[interp.State]) *BackwardSearcher {
	return &BackwardSearcher{
		forest: forest,
		pobSet: make(map[pob.Handle]bool),
		states: make(map[string]interp.State),
		tried:  make(map[pairKey]bool),
	}
}

// AddPob registers h as an open obligation this searcher may pair
// against.
func (b *BackwardSearcher) AddPob(h pob.Handle) {
	if b.pobSet[h] {
		return
	}
	b.pobSet[h] = true
	b.pobOrder = append(b.pobOrder, h)
}

// RemovePob evicts h: per (O3), h must never appear in a subsequent
// SelectAction, and any pairing already tried against h is forgotten
// since it can no longer matter.
func (b *BackwardSearcher) RemovePob(h pob.Handle) {
	if !b.pobSet[h] {
		return
	}
	delete(b.pobSet, h)
	for i, p := range b.pobOrder {
		if p == h {
			b.pobOrder = append(b.pobOrder[:i], b.pobOrder[i+1:]...)
			break
		}
	}
	for k := range b.tried {
		if k.p == h {
			delete(b.tried, k)
		}
	}
}

// AddBranch records an isolated state whose endpoint reached a sink,
// making it a pairing candidate.
func (b *BackwardSearcher) AddBranch(state interp.State) {
	if _, exists := b.states[state.ID()]; exists {
		return
	}
	b.states[state.ID()] = state
	b.stateOrder = append(b.stateOrder, state.ID())
}

// RemoveState evicts state from pairing consideration - used once a
// pairing against it has been acted on and the interpreter destroys it.
func (b *BackwardSearcher) RemoveState(stateID string) {
	if _, ok := b.states[stateID]; !ok {
		return
	}
	delete(b.states, stateID)
	for i, sid := range b.stateOrder {
		if sid == stateID {
			b.stateOrder = append(b.stateOrder[:i], b.stateOrder[i+1:]...)
			break
		}
	}
	for k := range b.tried {
		if k.s == stateID {
			delete(b.tried, k)
		}
	}
}

func (b *BackwardSearcher) nextPair() (pob.Handle, interp.State, bool) {
	for _, p := range b.pobOrder {
		ob, err := b.forest.Get(p)
		if err != nil || ob.Answered {
			continue
		}
		for _, sid := range b.stateOrder {
			st, ok := b.states[sid]
			if !ok {
				continue
			}
			if b.tried[pairKey{p, sid}] {
				continue
			}
			if ob.Blocks(st.InitialLocation(), sid) {
				continue
			}
			return p, st, true
		}
	}
	return pob.NoHandle, nil, false
}

// Empty reports whether no untried pairing could possibly exist: either
// side of the cross-product is empty, or every combination has already
// been tried or is blocked.
func (b *BackwardSearcher) Empty() bool {
	_, _, ok := b.nextPair()
	return !ok
}

// SelectAction returns the next untried (PO, state) pairing, FIFO over
// the cross-product.
func (b *BackwardSearcher) SelectAction() (pob.Handle, interp.State, error) {
	p, st, ok := b.nextPair()
	if !ok {
		return pob.NoHandle, nil, ErrEmptySearcher
	}
	b.tried[pairKey{p, st.ID()}] = true
	return p, st, nil
}

// Update records h as a newly produced child obligation, the
// BackwardSearcher-side half of Coordinator's PO registration: it is a
// thin pass-through to AddPob kept as a distinct method name because the
// component contract in the design (§4.3) names Update(newPob)
// separately from AddPob to distinguish "new PO from scratch" (seeded
// externally, e.g. a validity core) from "new PO born from a backward
// step" - both end up registered the same way.
func (b *BackwardSearcher) Update(h pob.Handle) {
	b.AddPob(h)
}
