package search

import (
	"github.com/Columpio/klee/cfg"
)

// Initializer produces new isolated starting locations for the
// BranchSearcher to begin exploring from, using the static-distance
// enumeration (SDI) algorithm: for each open proof obligation, walk the
// intra-function backward-distance map of its location emitting the
// first not-yet-initialized block; once that frontier is exhausted,
// fall back to the inter-function (caller) backward-distance map,
// emitting entry blocks. A location is never emitted twice.
//
// Grounded directly on SDInitializer::empty()/selectAction() - the only
// behavioral addition is validity-core seeds, which the source does not
// model but the distilled design calls for: AddValidityCoreInit
// registers a location that takes priority over SDI emission the next
// time SelectAction runs.
type Initializer struct {
	graph *cfg.Graph

	pobOrder []cfg.Location
	pobSet   map[cfg.Location]bool

	initialized map[cfg.Location]bool

	seeds []cfg.Location
}

func newInitializer(graph *cfg.Graph) *Initializer {
	return &Initializer{
		graph:       graph,
		pobSet:      make(map[cfg.Location]bool),
		initialized: make(map[cfg.Location]bool),
	}
}

// AddPob registers loc - the location of an open proof obligation - as
// a source the SDI walk enumerates from.
func (in *Initializer) AddPob(loc cfg.Location) {
	if in.pobSet[loc] {
		return
	}
	in.pobSet[loc] = true
	in.pobOrder = append(in.pobOrder, loc)
}

// RemovePob stops loc from contributing to Empty()/SelectAction
// immediately, per the edge case in §4.2.
func (in *Initializer) RemovePob(loc cfg.Location) {
	if !in.pobSet[loc] {
		return
	}
	delete(in.pobSet, loc)
	for i, l := range in.pobOrder {
		if l == loc {
			in.pobOrder = append(in.pobOrder[:i], in.pobOrder[i+1:]...)
			break
		}
	}
}

// AddValidityCoreInit registers loc as an interesting seed that
// supersedes SDI enumeration for loc the next time it would otherwise
// be emitted (or immediately, if never emitted before).
func (in *Initializer) AddValidityCoreInit(loc cfg.Location) {
	if in.initialized[loc] {
		return
	}
	for _, s := range in.seeds {
		if s == loc {
			return
		}
	}
	in.seeds = append(in.seeds, loc)
}

// targets returns the locations of every currently registered PO, the
// full pobs set the source pairs with every emission.
func (in *Initializer) targets() []cfg.Location {
	out := make([]cfg.Location, len(in.pobOrder))
	copy(out, in.pobOrder)
	return out
}

// find returns the next not-yet-initialized location the SDI walk would
// emit, without marking it initialized.
func (in *Initializer) find() (cfg.Location, bool) {
	if len(in.seeds) > 0 {
		return in.seeds[0], true
	}
	for _, loc := range in.pobOrder {
		for _, dp := range in.graph.BackwardDistanceIntra(loc) {
			if !in.initialized[dp.Loc] {
				return dp.Loc, true
			}
		}
		fdist := in.graph.BackwardDistanceInter(loc.Func)
		for _, dp := range fdist {
			if !in.initialized[dp.Loc] {
				return dp.Loc, true
			}
		}
	}
	return cfg.Location{}, false
}

// Empty reports whether the SDI walk (across every open PO, seeds
// included) has nothing left to emit.
func (in *Initializer) Empty() bool {
	_, ok := in.find()
	return !ok
}

// SelectAction returns the next start location the SDI walk would emit,
// paired with the current PO-location target set.
func (in *Initializer) SelectAction() (cfg.Location, []cfg.Location, error) {
	loc, ok := in.find()
	if !ok {
		return cfg.Location{}, nil, ErrEmptySearcher
	}
	if len(in.seeds) > 0 && in.seeds[0] == loc {
		in.seeds = in.seeds[1:]
	}
	in.initialized[loc] = true
	return loc, in.targets(), nil
}
