package search

import (
	"github.com/Columpio/klee/cfg"
	"github.com/Columpio/klee/interp"
)

// bfsPolicy always selects the oldest still-present state (FIFO over
// insertion order), the baseline policy both ForwardSearcher and
// BranchSearcher can run without any static-distance information.
type bfsPolicy struct{}

// NewBFSPolicy returns the plain breadth-first Policy.
func NewBFSPolicy() Policy { return bfsPolicy{} }

func (bfsPolicy) pick(states []interp.State, _ *cfg.Graph) int {
	return 0
}

// guidedPolicy prefers the state with the shortest static distance to
// any of its own targets, falling back to BFS order for states with no
// targets or when no candidate has a finite distance - the policy
// described in §4.1: "when any state has non-empty targets, prefer the
// state with shortest static distance to any target; tie-break by
// insertion order".
type guidedPolicy struct{}

// NewGuidedPolicy returns the target-distance-guided Policy.
func NewGuidedPolicy() Policy { return guidedPolicy{} }

func (guidedPolicy) pick(states []interp.State, graph *cfg.Graph) int {
	best := -1
	bestDist := -1
	for i, st := range states {
		targets := st.Targets()
		if len(targets) == 0 {
			continue
		}
		tset := make(map[cfg.Location]struct{}, len(targets))
		for _, t := range targets {
			tset[t] = struct{}{}
		}
		dist, ok := graph.StaticDistance(st.CurrentLocation(), tset)
		if !ok {
			continue
		}
		if best == -1 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if best == -1 {
		return 0
	}
	return best
}
