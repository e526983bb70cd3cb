package search

import (
	"testing"

	"github.com/Columpio/klee/interp"
	"github.com/Columpio/klee/pob"
)

func TestBackwardSearcher_FIFOPairingNoRepeat(t *testing.T) {
	forest := pob.NewForest[interp.State]()
	graph, locs := chainGraph("main", 1)
	_ = graph
	b := newBackwardSearcher(forest)

	p1 := forest.Add(pob.NoHandle, pob.Obligation[interp.State]{Location: locs[0]})
	p2 := forest.Add(pob.NoHandle, pob.Obligation[interp.State]{Location: locs[0]})
	b.AddPob(p1)
	b.AddPob(p2)

	s1 := interp.NewFakeState("s1", locs[0]).MarkIsolated()
	b.AddBranch(s1)

	gotP, gotS, err := b.SelectAction()
	if err != nil {
		t.Fatalf("SelectAction: %v", err)
	}
	if gotP != p1 || gotS.ID() != "s1" {
		t.Fatalf("first pairing = (%v, %v), want (%v, s1)", gotP, gotS.ID(), p1)
	}

	// p1/s1 already tried; next pairing must be p2/s1.
	gotP, gotS, err = b.SelectAction()
	if err != nil {
		t.Fatalf("SelectAction (2): %v", err)
	}
	if gotP != p2 || gotS.ID() != "s1" {
		t.Fatalf("second pairing = (%v, %v), want (%v, s1)", gotP, gotS.ID(), p2)
	}

	if !b.Empty() {
		t.Fatalf("every (pob, state) pair has been tried; Empty() should be true")
	}
}

func TestBackwardSearcher_RemovePobForgetsTriedPairs(t *testing.T) {
	forest := pob.NewForest[interp.State]()
	_, locs := chainGraph("main", 1)
	b := newBackwardSearcher(forest)

	p1 := forest.Add(pob.NoHandle, pob.Obligation[interp.State]{Location: locs[0]})
	b.AddPob(p1)
	s1 := interp.NewFakeState("s1", locs[0])
	b.AddBranch(s1)

	if _, _, err := b.SelectAction(); err != nil {
		t.Fatalf("SelectAction: %v", err)
	}
	if !b.Empty() {
		t.Fatalf("expected Empty() after the only pairing was tried")
	}

	b.RemovePob(p1)
	if b.tried[pairKey{p1, "s1"}] {
		t.Fatalf("RemovePob(p1) should forget the tried (p1, s1) pair")
	}
	// p1 is gone entirely now, so Empty() stays true (O3): it must never
	// resurface, tried or not.
	if !b.Empty() {
		t.Fatalf("Empty() should remain true once the only pob is removed")
	}
}

func TestBackwardSearcher_BlockingLocationFiltersPairing(t *testing.T) {
	forest := pob.NewForest[interp.State]()
	_, locs := chainGraph("main", 1)
	b := newBackwardSearcher(forest)

	p1 := forest.Add(pob.NoHandle, pob.Obligation[interp.State]{Location: locs[0]})
	b.AddPob(p1)
	if err := forest.BlockLocation(p1, locs[0]); err != nil {
		t.Fatalf("BlockLocation: %v", err)
	}

	s1 := interp.NewFakeState("s1", locs[0])
	b.AddBranch(s1)

	if !b.Empty() {
		t.Fatalf("the only state's location is blocked for the only pob; Empty() should be true")
	}
}

func TestBackwardSearcher_AnsweredObligationExcluded(t *testing.T) {
	forest := pob.NewForest[interp.State]()
	_, locs := chainGraph("main", 1)
	b := newBackwardSearcher(forest)

	p1 := forest.Add(pob.NoHandle, pob.Obligation[interp.State]{Location: locs[0]})
	b.AddPob(p1)
	if err := forest.MarkAnswered(p1); err != nil {
		t.Fatalf("MarkAnswered: %v", err)
	}

	s1 := interp.NewFakeState("s1", locs[0])
	b.AddBranch(s1)

	if !b.Empty() {
		t.Fatalf("an answered pob must not be offered for pairing (I3)")
	}
}
