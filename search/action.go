// Package search implements the bidirectional search coordinator: the
// round-robin scheduler over four sub-searchers, the proof-obligation
// forest they share, and the tagged Action/ActionResult protocol the
// interpreter speaks.
package search

import (
	"github.com/Columpio/klee/cfg"
	"github.com/Columpio/klee/interp"
	"github.com/Columpio/klee/pob"
)

// Kind discriminates the payload carried by an Action or ActionResult.
type Kind int

const (
	// KindForward selects Action.State as the next ordinary state to step.
	KindForward Kind = iota
	// KindBranch selects Action.State as the next isolated state to step.
	KindBranch
	// KindBackward pairs Action.State with Action.Pob for a backward step.
	KindBackward
	// KindInitialize asks the interpreter to spawn a fresh isolated state
	// at Action.Location aimed at Action.Targets.
	KindInitialize
	// KindTerminate signals every sub-searcher is exhausted.
	KindTerminate
)

func (k Kind) String() string {
	switch k {
	case KindForward:
		return "Forward"
	case KindBranch:
		return "Branch"
	case KindBackward:
		return "Backward"
	case KindInitialize:
		return "Initialize"
	case KindTerminate:
		return "Terminate"
	default:
		return "Unknown"
	}
}

// Action is a tagged variant over the five things the Coordinator can
// ask the interpreter to do. It is built only through the constructor
// functions below, never by populating a zero Action directly, which is
// what the design notes call out as the "enum plus nullable pointers"
// shape to avoid: a bare Action{Kind: KindForward} with no State set is
// not constructible through this API.
type Action struct {
	kind     Kind
	state    interp.State
	pob      pob.Handle
	location cfg.Location
	targets  []cfg.Location
}

// Kind reports which variant a is.
func (a Action) Kind() Kind { return a.kind }

// State returns the state payload. Valid for KindForward, KindBranch,
// and KindBackward; the zero value otherwise.
func (a Action) State() interp.State { return a.state }

// Pob returns the proof-obligation payload. Valid for KindBackward only.
func (a Action) Pob() pob.Handle { return a.pob }

// Location returns the start-location payload. Valid for KindInitialize
// only.
func (a Action) Location() cfg.Location { return a.location }

// Targets returns the target-set payload. Valid for KindInitialize only.
func (a Action) Targets() []cfg.Location { return a.targets }

// ForwardAction builds a KindForward Action over state.
func ForwardAction(state interp.State) Action {
	return Action{kind: KindForward, state: state}
}

// BranchAction builds a KindBranch Action over state.
func BranchAction(state interp.State) Action {
	return Action{kind: KindBranch, state: state}
}

// BackwardAction builds a KindBackward Action pairing state with p.
func BackwardAction(state interp.State, p pob.Handle) Action {
	return Action{kind: KindBackward, state: state, pob: p}
}

// InitializeAction builds a KindInitialize Action.
func InitializeAction(loc cfg.Location, targets []cfg.Location) Action {
	return Action{kind: KindInitialize, location: loc, targets: targets}
}

// TerminateAction builds the sentinel KindTerminate Action.
func TerminateAction() Action {
	return Action{kind: KindTerminate}
}

// ActionResult is a tagged variant over what the interpreter reports
// back after performing an Action, again built only through its
// constructor functions.
type ActionResult struct {
	kind Kind

	// ForwardResult payload.
	current         interp.State
	added, removed  []interp.State
	reached         []interp.State
	validityCore    cfg.Location
	hasValidityCore bool

	// BackwardResult payload.
	newPob    pob.Obligation[interp.State]
	hasNewPob bool
	answered  bool
	blocked   bool

	// InitializeResult payload.
	state interp.State
}

func (r ActionResult) Kind() Kind { return r.kind }

// Current, Added, Removed, ValidityCoreInit are valid for a
// ForwardResult, which reports both ordinary and isolated steps under
// KindForward.
func (r ActionResult) Current() interp.State   { return r.current }
func (r ActionResult) Added() []interp.State   { return r.added }
func (r ActionResult) Removed() []interp.State { return r.removed }

// Reached returns the states the interpreter reports as having touched
// a sink location this step (Scenario E in the testable properties).
func (r ActionResult) Reached() []interp.State { return r.reached }

func (r ActionResult) ValidityCoreInit() (cfg.Location, bool) {
	return r.validityCore, r.hasValidityCore
}

// NewPob is valid for a BackwardResult.
func (r ActionResult) NewPob() (pob.Obligation[interp.State], bool) {
	return r.newPob, r.hasNewPob
}

// Answered is valid for a BackwardResult: it reports that the backward
// step validated a path all the way back to the candidate state's own
// initial location, discharging the obligation under test (and, per
// (I3), the entire ancestor chain that depended on it).
func (r ActionResult) Answered() bool { return r.answered }

// Blocked is valid for a BackwardResult: it reports that the backward
// step dead-ended without reaching the candidate state's initial
// location, so that state's initial location must not be paired
// against this obligation again.
func (r ActionResult) Blocked() bool { return r.blocked }

// InitializedState is valid for an InitializeResult.
func (r ActionResult) InitializedState() interp.State { return r.state }

// ForwardResult builds the result of stepping an ordinary or isolated
// state: current is the state just stepped (nil if it was consumed/
// destroyed by the step), added are newly spawned states, removed are
// states the interpreter is about to destroy.
func ForwardResult(current interp.State, added, removed []interp.State) ActionResult {
	return ActionResult{kind: KindForward, current: current, added: added, removed: removed}
}

// WithReached attaches the set of states that touched a sink location
// this step to a ForwardResult, returning the modified copy.
func (r ActionResult) WithReached(states ...interp.State) ActionResult {
	r.reached = states
	return r
}

// WithValidityCoreInit attaches a validity-core seed location to a
// ForwardResult, returning the modified copy.
func (r ActionResult) WithValidityCoreInit(loc cfg.Location) ActionResult {
	r.validityCore = loc
	r.hasValidityCore = true
	return r
}

// BackwardResult builds the result of a backward step that discharged
// no new obligation.
func BackwardResult() ActionResult {
	return ActionResult{kind: KindBackward}
}

// BackwardResultWithPob builds the result of a backward step that
// produced a new child proof obligation.
func BackwardResultWithPob(newPob pob.Obligation[interp.State]) ActionResult {
	return ActionResult{kind: KindBackward, newPob: newPob, hasNewPob: true}
}

// WithAnswered marks a BackwardResult as having discharged the
// obligation under test, returning the modified copy.
func (r ActionResult) WithAnswered() ActionResult {
	r.answered = true
	return r
}

// WithBlocked marks a BackwardResult as having dead-ended without
// discharging the obligation under test, returning the modified copy.
func (r ActionResult) WithBlocked() ActionResult {
	r.blocked = true
	return r
}

// InitializeResult builds the result of spawning a new isolated state.
func InitializeResult(state interp.State) ActionResult {
	return ActionResult{kind: KindInitialize, state: state}
}
