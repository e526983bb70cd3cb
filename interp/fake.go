package interp

import (
	"fmt"

	"github.com/Columpio/klee/cfg"
)

// FakeState is a scripted State used by search package tests in place of
// a real execution state, the same role depspec/depspecBridge play for
// gps's solver tests: a minimal, fully inspectable stand-in driven
// entirely by table data rather than a real interpreter.
type FakeState struct {
	id       string
	isolated bool
	init     cfg.Location
	cur      cfg.Location
	prev     cfg.Location
	targets  []cfg.Location
	transLvl int
}

// NewFakeState returns a FakeState at loc with no targets and no history.
func NewFakeState(id string, loc cfg.Location) *FakeState {
	return &FakeState{id: id, init: loc, cur: loc}
}

func (s *FakeState) ID() string                    { return s.id }
func (s *FakeState) IsIsolated() bool              { return s.isolated }
func (s *FakeState) CurrentLocation() cfg.Location { return s.cur }
func (s *FakeState) InitialLocation() cfg.Location { return s.init }
func (s *FakeState) PrevLocation() cfg.Location    { return s.prev }
func (s *FakeState) Targets() []cfg.Location       { return s.targets }
func (s *FakeState) TransitionLevel() int          { return s.transLvl }

// MarkIsolated flags the state as spawned to validate a proof obligation.
func (s *FakeState) MarkIsolated() *FakeState {
	s.isolated = true
	return s
}

// MoveTo advances the state to loc, shifting CurrentLocation into
// PrevLocation the way a real interpreter step would.
func (s *FakeState) MoveTo(loc cfg.Location) *FakeState {
	s.prev = s.cur
	s.cur = loc
	if loc == s.prev {
		s.transLvl++
	}
	return s
}

// AddTarget appends t to the state's target set, mirroring
// Coordinator's "insert into targets" step. Satisfies interp.State.
func (s *FakeState) AddTarget(t cfg.Location) {
	s.targets = append(s.targets, t)
}

// WithTarget is AddTarget's builder-chain form, for fixture setup.
func (s *FakeState) WithTarget(t cfg.Location) *FakeState {
	s.AddTarget(t)
	return s
}

// RemoveTarget discharges t from the state's target set.
func (s *FakeState) RemoveTarget(t cfg.Location) *FakeState {
	out := s.targets[:0]
	for _, x := range s.targets {
		if x != t {
			out = append(out, x)
		}
	}
	s.targets = out
	return s
}

// SetTransitionLevel overrides the recurrence counter directly, used by
// tests that want to force the "stuck in a loop" condition without
// replaying MoveTo calls.
func (s *FakeState) SetTransitionLevel(n int) *FakeState {
	s.transLvl = n
	return s
}

// FakeInterpreter is a scripted Interpreter: its graph and its
// transition-history oracle are both supplied by the test table that
// constructs it, so a test can assert exactly which retargeting or
// pause decision the coordinator made in response.
type FakeInterpreter struct {
	graph *cfg.Graph

	// history maps a state ID to the target CalculateTargetByTransitionHistory
	// should report for it, scripted per test case.
	history map[string]cfg.Location

	// Paused records every state ID passed to PauseState, in call order.
	Paused []string
	// Updated records every state ID passed to UpdateStates, in call order.
	Updated []string
}

// NewFakeInterpreter returns a FakeInterpreter over g with no scripted
// transition-history answers.
func NewFakeInterpreter(g *cfg.Graph) *FakeInterpreter {
	return &FakeInterpreter{graph: g, history: make(map[string]cfg.Location)}
}

// ScriptTransitionTarget arranges for CalculateTargetByTransitionHistory
// to return loc for the state with the given ID.
func (fi *FakeInterpreter) ScriptTransitionTarget(stateID string, loc cfg.Location) *FakeInterpreter {
	fi.history[stateID] = loc
	return fi
}

func (fi *FakeInterpreter) Graph() *cfg.Graph { return fi.graph }

func (fi *FakeInterpreter) CalculateTargetByTransitionHistory(state State) (cfg.Location, bool) {
	loc, ok := fi.history[state.ID()]
	return loc, ok
}

func (fi *FakeInterpreter) PauseState(state State) {
	fi.Paused = append(fi.Paused, state.ID())
}

func (fi *FakeInterpreter) UpdateStates(state State) {
	fi.Updated = append(fi.Updated, state.ID())
}

// String renders a FakeState for failure messages and trace output.
func (s *FakeState) String() string {
	return fmt.Sprintf("state(%s)@%s isolated=%v targets=%v", s.id, s.cur, s.isolated, s.targets)
}
