package main

import (
	"fmt"

	"github.com/Columpio/klee/cfg"
	"github.com/Columpio/klee/distcache"
	"github.com/Columpio/klee/interp"
	"github.com/Columpio/klee/pob"
	"github.com/Columpio/klee/search"
)

// graphEngine is the thin stand-in for a concrete symbolic executor:
// concrete execution semantics of a single instruction, constraint-
// solving strategy, and memory-object modeling are all explicit
// Non-goals of the core, so this engine instead walks the loaded
// control-flow graph directly, treating "step" as "take the first
// successor edge". It exists so cmd/klee-search is a runnable driver
// rather than a stub, not as a substitute for a real interpreter.
type graphEngine struct {
	graph *cfg.Graph
	cache *distcache.Cache // optional; nil means query graph directly

	visited map[string]map[cfg.Location]bool // per-state visited-location set
	paused  map[string]bool

	nextID int
}

func newGraphEngine(graph *cfg.Graph, cache *distcache.Cache) *graphEngine {
	return &graphEngine{
		graph:   graph,
		cache:   cache,
		visited: make(map[string]map[cfg.Location]bool),
		paused:  make(map[string]bool),
	}
}

func (e *graphEngine) backwardDistanceIntra(loc cfg.Location) []cfg.DistPair {
	if e.cache != nil {
		return e.cache.BackwardDistanceIntra(e.graph, loc)
	}
	return e.graph.BackwardDistanceIntra(loc)
}

func (e *graphEngine) Graph() *cfg.Graph { return e.graph }

// CalculateTargetByTransitionHistory offers a not-yet-visited successor
// of the state's current location as a fresh target, the engine's
// stand-in for a real interpreter's transition-history analysis: it
// gives a looping state somewhere new to aim for before giving up on it.
func (e *graphEngine) CalculateTargetByTransitionHistory(state interp.State) (cfg.Location, bool) {
	seen := e.visited[state.ID()]
	for _, succ := range e.graph.Successors(state.CurrentLocation()) {
		if !seen[succ] {
			return succ, true
		}
	}
	return cfg.Location{}, false
}

func (e *graphEngine) PauseState(state interp.State) {
	e.paused[state.ID()] = true
}

func (e *graphEngine) UpdateStates(interp.State) {}

func (e *graphEngine) markVisited(s *walkState) {
	seen, ok := e.visited[s.id]
	if !ok {
		seen = make(map[cfg.Location]bool)
		e.visited[s.id] = seen
	}
	seen[s.cur] = true
}

func (e *graphEngine) freshID(prefix string) string {
	e.nextID++
	return fmt.Sprintf("%s-%d", prefix, e.nextID)
}

// stepForward advances an ordinary state one CFG edge. A state with no
// successors is removed; a state that lands on one of its own targets
// reports a validity-core seed so the Coordinator opens a proof
// obligation there.
func (e *graphEngine) stepForward(s *walkState) search.ActionResult {
	e.markVisited(s)
	succs := e.graph.Successors(s.cur)
	if len(succs) == 0 {
		return search.ForwardResult(nil, nil, []interp.State{s})
	}

	seen := e.visited[s.id]
	s.moveTo(succs[0], seen)

	result := search.ForwardResult(s, nil, nil)
	if s.hasTarget(s.cur) {
		result = result.WithValidityCoreInit(s.cur)
	}
	return result
}

// stepBranch advances an isolated state the same way, but a state with
// no successors is kept (not removed) and reported as reached, making
// it a backward-pairing candidate.
func (e *graphEngine) stepBranch(s *walkState) search.ActionResult {
	e.markVisited(s)
	succs := e.graph.Successors(s.cur)
	if len(succs) == 0 {
		return search.ForwardResult(s, nil, nil).WithReached(s)
	}

	seen := e.visited[s.id]
	s.moveTo(succs[0], seen)
	return search.ForwardResult(s, nil, nil)
}

// stepBackward attempts to walk one step further back from s's current
// location (the obligation's location under test paired with s): if an
// intra-function predecessor exists, it is proposed as a new child
// proof obligation. Otherwise the walk has bottomed out at a function
// entry with no predecessor - if that entry is exactly where s itself
// began execution, the path back to s's own start is complete and the
// obligation is discharged; any other dead end means s could not
// validate this obligation and its initial location is blocked against
// it.
func (e *graphEngine) stepBackward(s *walkState) search.ActionResult {
	pobLoc := s.CurrentLocation()
	preds := e.backwardDistanceIntra(pobLoc)
	for _, dp := range preds {
		if dp.Distance == 1 {
			return search.BackwardResultWithPob(pob.Obligation[interp.State]{Location: dp.Loc})
		}
	}
	if pobLoc == s.InitialLocation() {
		return search.BackwardResult().WithAnswered()
	}
	return search.BackwardResult().WithBlocked()
}

// stepInitialize spawns a fresh isolated state at loc aimed at targets.
func (e *graphEngine) stepInitialize(loc cfg.Location, targets []cfg.Location) (*walkState, search.ActionResult) {
	s := newWalkState(e.freshID("iso"), loc)
	s.isolated = true
	for _, t := range targets {
		s.AddTarget(t)
	}
	return s, search.InitializeResult(s)
}
