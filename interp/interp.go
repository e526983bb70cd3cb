// Package interp defines the boundary between the search coordinator and
// the symbolic interpreter that actually owns execution states: the
// State a searcher inspects and the handful of Interpreter operations a
// searcher may call to advance, pause, or retarget one.
//
// The source folds this boundary into Executor itself - ForwardSearcher
// holds a raw Executor* and calls straight into it. Doing the same in Go
// would mean the search package importing a concrete interpreter package
// and the interpreter importing search's Action/ActionResult types back,
// an import cycle the teacher's own gps/dep split avoids by having gps
// depend only on a narrow SourceManager interface and never on the dep
// command package that implements it. interp plays that SourceManager
// role here: search depends on interp's interfaces, never on a concrete
// interpreter.
package interp

import "github.com/Columpio/klee/cfg"

// State is one symbolic execution state as the searcher needs to see
// it. A concrete interpreter's execution-state type satisfies this by
// exposing read accessors; apart from AddTarget the searcher never
// mutates a State directly, it asks the Interpreter to do so.
type State interface {
	// ID returns a stable identifier for the state, used as a map key by
	// sub-searchers and in trace output.
	ID() string

	// IsIsolated reports whether this state was spawned to validate a
	// proof obligation (an "isolated" state in the source's terms) as
	// opposed to an ordinary forward-exploration state.
	IsIsolated() bool

	// CurrentLocation returns the state's current basic block.
	CurrentLocation() cfg.Location

	// InitialLocation returns the block the state began execution from -
	// the pairing key BackwardSearcher checks a proof obligation's
	// BlockingLocations against, since a state that wanders through a
	// blocked block on its way somewhere else is not what got blocked.
	InitialLocation() cfg.Location

	// PrevLocation returns the block the state was in immediately before
	// CurrentLocation, or the zero Location if this is the state's first
	// block.
	PrevLocation() cfg.Location

	// Targets returns the locations this state is currently trying to
	// reach, in the order they were added.
	Targets() []cfg.Location

	// AddTarget inserts loc into the state's target set. The only state
	// mutation the search package is allowed to perform directly -
	// everything else about a state is the interpreter's to change.
	AddTarget(loc cfg.Location)

	// TransitionLevel returns how many times CurrentLocation has recurred
	// in this state's block history, used by the coordinator to detect
	// the "stuck in a loop with no target" condition that triggers
	// transition-history retargeting.
	TransitionLevel() int
}

// Interpreter is the narrow set of operations a searcher may perform on
// states it does not own. All ExecutionState lifetime - creation,
// forking, destruction - stays with whatever implements Interpreter;
// the searcher only ever holds State values handed to it through
// Config.InitialState, ForwardResult and InitializeResult.
type Interpreter interface {
	// Graph returns the static CFG/call-graph oracle backing static-
	// distance and backward-distance queries.
	Graph() *cfg.Graph

	// CalculateTargetByTransitionHistory asks the interpreter to infer a
	// new target for state from its recorded block-transition history,
	// used when a state has looped with an empty target set.
	CalculateTargetByTransitionHistory(state State) (cfg.Location, bool)

	// PauseState removes state from active forward exploration without
	// destroying it, so the coordinator can retry the forward slot
	// without re-emitting an action this tick.
	PauseState(state State)

	// UpdateStates is called after a state's target set changes (a new
	// target inserted, a target discharged) so the interpreter can fold
	// that change back into whatever exploration-order bookkeeping it
	// keeps for state.
	UpdateStates(state State)
}
