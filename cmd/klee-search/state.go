package main

import (
	"fmt"

	"github.com/Columpio/klee/cfg"
)

// walkState is the runtime State the engine drives: a position in the
// loaded control-flow graph plus the mutable bookkeeping
// search.Coordinator is allowed to touch. It plays the production role
// interp.FakeState plays in tests - same shape, but owned by the driver
// rather than scripted by a test table.
type walkState struct {
	id       string
	isolated bool
	init     cfg.Location
	cur      cfg.Location
	prev     cfg.Location
	targets  []cfg.Location
	transLvl int
}

func newWalkState(id string, loc cfg.Location) *walkState {
	return &walkState{id: id, init: loc, cur: loc}
}

func (s *walkState) ID() string                    { return s.id }
func (s *walkState) IsIsolated() bool              { return s.isolated }
func (s *walkState) CurrentLocation() cfg.Location { return s.cur }
func (s *walkState) InitialLocation() cfg.Location { return s.init }
func (s *walkState) PrevLocation() cfg.Location    { return s.prev }
func (s *walkState) Targets() []cfg.Location       { return s.targets }
func (s *walkState) TransitionLevel() int          { return s.transLvl }

func (s *walkState) AddTarget(t cfg.Location) {
	for _, x := range s.targets {
		if x == t {
			return
		}
	}
	s.targets = append(s.targets, t)
}

func (s *walkState) hasTarget(t cfg.Location) bool {
	for _, x := range s.targets {
		if x == t {
			return true
		}
	}
	return false
}

// moveTo advances the state to loc, incrementing the recurrence counter
// whenever it returns to a location already present earlier in its own
// walk - the driver's stand-in for "the interpreter detected a loop".
func (s *walkState) moveTo(loc cfg.Location, visited map[cfg.Location]bool) {
	s.prev = s.cur
	s.cur = loc
	if visited[loc] {
		s.transLvl++
	}
}

func (s *walkState) String() string {
	return fmt.Sprintf("state(%s)@%s isolated=%v targets=%v", s.id, s.cur, s.isolated, s.targets)
}
