package search

import (
	"github.com/Columpio/klee/cfg"
	"github.com/Columpio/klee/interp"
)

// baseSearcher is the shared implementation behind ForwardSearcher and
// BranchSearcher - identical contracts over two disjoint populations of
// states (ordinary vs isolated), the same way the teacher's
// versionQueue logic is reused verbatim for both the root project and
// every dependency's queue. order holds state IDs in insertion order so
// FIFO/BFS tie-breaks are deterministic; byID is the lookup table.
type baseSearcher struct {
	policy Policy
	graph  *cfg.Graph
	order  []string
	byID   map[string]interp.State
}

func newBaseSearcher(policy Policy, graph *cfg.Graph) baseSearcher {
	return baseSearcher{policy: policy, graph: graph, byID: make(map[string]interp.State)}
}

func (b *baseSearcher) Empty() bool { return len(b.order) == 0 }

func (b *baseSearcher) add(s interp.State) {
	if _, exists := b.byID[s.ID()]; exists {
		return
	}
	b.byID[s.ID()] = s
	b.order = append(b.order, s.ID())
}

func (b *baseSearcher) remove(s interp.State) {
	b.removeID(s.ID())
}

func (b *baseSearcher) removeID(id string) {
	if _, ok := b.byID[id]; !ok {
		return
	}
	delete(b.byID, id)
	for i, oid := range b.order {
		if oid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// selectState applies the configured policy over the live state set and
// returns the chosen state without removing it - matching the teacher's
// versionQueue.current(), which peeks rather than pops.
func (b *baseSearcher) selectState() (interp.State, error) {
	if b.Empty() {
		return nil, ErrEmptySearcher
	}
	states := make([]interp.State, len(b.order))
	for i, id := range b.order {
		states[i] = b.byID[id]
	}
	idx := b.policy.pick(states, b.graph)
	return states[idx], nil
}

// update applies the (current, added, removed) triple the Coordinator
// hands to every sub-searcher after classifying a ForwardResult: removed
// states are evicted first (O2: a removed state must never be
// selectable again), then added states are inserted, then current (if
// it is still live, i.e. not itself in removed) is left as-is - it
// remains selectable for its next step exactly as before, since
// ForwardSearcher does not implicitly requeue or deprioritize a state
// just because it was the one most recently stepped.
func (b *baseSearcher) update(current interp.State, added, removed []interp.State) {
	for _, r := range removed {
		b.remove(r)
	}
	for _, a := range added {
		b.add(a)
	}
	if current != nil {
		if _, wasRemoved := indexOf(removed, current.ID()); !wasRemoved {
			b.add(current)
		}
	}
}

func indexOf(states []interp.State, id string) (int, bool) {
	for i, s := range states {
		if s.ID() == id {
			return i, true
		}
	}
	return -1, false
}

// ForwardSearcher chooses the next ordinary (non-isolated) state to
// step.
type ForwardSearcher struct {
	baseSearcher
}

func newStateSearcher(policy Policy, graph *cfg.Graph) *ForwardSearcher {
	return &ForwardSearcher{baseSearcher: newBaseSearcher(policy, graph)}
}

// SelectState returns the next ordinary state to step, per Policy.
func (f *ForwardSearcher) SelectState() (interp.State, error) { return f.selectState() }

// Update folds a step's result back into the live state set.
func (f *ForwardSearcher) Update(current interp.State, added, removed []interp.State) {
	f.update(current, added, removed)
}

// BranchSearcher chooses the next isolated state to step, and
// separately tracks which isolated states have reached a sink location
// since the last drain.
type BranchSearcher struct {
	baseSearcher
	reached map[string]interp.State
}

func newBranchSearcher(policy Policy, graph *cfg.Graph) *BranchSearcher {
	return &BranchSearcher{
		baseSearcher: newBaseSearcher(policy, graph),
		reached:      make(map[string]interp.State),
	}
}

// SelectState returns the next isolated state to step, per Policy.
func (br *BranchSearcher) SelectState() (interp.State, error) { return br.selectState() }

// Update folds a step's result back into the live state set.
func (br *BranchSearcher) Update(current interp.State, added, removed []interp.State) {
	br.update(current, added, removed)
}

// MarkReached records that state touched a sink location this step,
// for the next CollectAndClearReached to drain.
func (br *BranchSearcher) MarkReached(state interp.State) {
	br.reached[state.ID()] = state
}

// CollectAndClearReached drains and returns every isolated state marked
// reached since the last call.
func (br *BranchSearcher) CollectAndClearReached() []interp.State {
	if len(br.reached) == 0 {
		return nil
	}
	out := make([]interp.State, 0, len(br.reached))
	for _, s := range br.reached {
		out = append(out, s)
	}
	br.reached = make(map[string]interp.State)
	return out
}
