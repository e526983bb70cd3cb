package pob

import (
	"testing"

	"github.com/Columpio/klee/cfg"
)

func TestForest_AddGetParentChildren(t *testing.T) {
	f := NewForest[int]()
	root := f.Add(NoHandle, Obligation[int]{Location: cfg.Location{Func: "f", Block: "entry"}, Payload: 1})
	child := f.Add(root, Obligation[int]{Location: cfg.Location{Func: "f", Block: "mid"}, Payload: 2})

	if f.Parent(child) != root {
		t.Fatalf("Parent(child) = %d, want root %d", f.Parent(child), root)
	}
	if got := f.Children(root); len(got) != 1 || got[0] != child {
		t.Fatalf("Children(root) = %v, want [%d]", got, child)
	}
	if got := f.Roots(); len(got) != 1 || got[0] != root {
		t.Fatalf("Roots() = %v, want [%d]", got, root)
	}

	ob, err := f.Get(child)
	if err != nil {
		t.Fatalf("Get(child) error: %v", err)
	}
	if ob.Payload != 2 {
		t.Fatalf("Get(child).Payload = %d, want 2", ob.Payload)
	}
}

func TestForest_CloseRemovesSubtree(t *testing.T) {
	f := NewForest[string]()
	root := f.Add(NoHandle, Obligation[string]{Payload: "root"})
	c1 := f.Add(root, Obligation[string]{Payload: "c1"})
	gc := f.Add(c1, Obligation[string]{Payload: "gc"})
	c2 := f.Add(root, Obligation[string]{Payload: "c2"})

	f.Close(c1)

	if _, err := f.Get(c1); err == nil {
		t.Fatalf("Get(c1) should fail after Close(c1)")
	}
	if _, err := f.Get(gc); err == nil {
		t.Fatalf("Get(gc) should fail after its ancestor was closed")
	}
	if _, err := f.Get(c2); err != nil {
		t.Fatalf("Get(c2) should still succeed, sibling subtree untouched: %v", err)
	}
	if got := f.Children(root); len(got) != 1 || got[0] != c2 {
		t.Fatalf("Children(root) after close = %v, want [%d]", got, c2)
	}

	// Idempotent: closing again (or closing an already-closed descendant) is a no-op.
	f.Close(c1)
	f.Close(gc)
}

func TestForest_CloseRoot(t *testing.T) {
	f := NewForest[string]()
	root := f.Add(NoHandle, Obligation[string]{Payload: "root"})
	child := f.Add(root, Obligation[string]{Payload: "child"})

	f.Close(root)

	if len(f.Roots()) != 0 {
		t.Fatalf("Roots() after closing the only root should be empty, got %v", f.Roots())
	}
	if _, err := f.Get(child); err == nil {
		t.Fatalf("Get(child) should fail once its root is closed")
	}
}

func TestForest_Ancestors(t *testing.T) {
	f := NewForest[int]()
	root := f.Add(NoHandle, Obligation[int]{})
	mid := f.Add(root, Obligation[int]{})
	leaf := f.Add(mid, Obligation[int]{})

	got := f.Ancestors(leaf)
	want := []Handle{mid, root}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Ancestors(leaf) = %v, want %v", got, want)
	}
}

func TestObligation_BlocksWithUnblockedStates(t *testing.T) {
	l := cfg.Location{Func: "f", Block: "start"}
	ob := Obligation[int]{BlockingLocations: map[cfg.Location]bool{l: true}}

	if !ob.Blocks(l, "s1") {
		t.Fatalf("Blocks should be true for a blocked location with no unblock entry")
	}
	ob.UnblockedStates = map[string]bool{"s1": true}
	if ob.Blocks(l, "s1") {
		t.Fatalf("Blocks should be false once the state is explicitly unblocked")
	}
	if !ob.Blocks(l, "s2") {
		t.Fatalf("unblocking s1 should not affect s2")
	}
}

func TestForest_BlockLocationAndMarkAnswered(t *testing.T) {
	f := NewForest[int]()
	l := cfg.Location{Func: "f", Block: "start"}
	h := f.Add(NoHandle, Obligation[int]{})

	if err := f.BlockLocation(h, l); err != nil {
		t.Fatalf("BlockLocation error: %v", err)
	}
	ob, _ := f.Get(h)
	if !ob.BlockingLocations[l] {
		t.Fatalf("expected %v to be blocked", l)
	}

	if err := f.MarkAnswered(h); err != nil {
		t.Fatalf("MarkAnswered error: %v", err)
	}
	ob, _ = f.Get(h)
	if !ob.Answered {
		t.Fatalf("expected Answered to be true")
	}
}

func TestForest_Len(t *testing.T) {
	f := NewForest[int]()
	if f.Len() != 0 {
		t.Fatalf("Len() on empty forest = %d, want 0", f.Len())
	}
	a := f.Add(NoHandle, Obligation[int]{})
	f.Add(a, Obligation[int]{})
	if f.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", f.Len())
	}
	f.Close(a)
	if f.Len() != 0 {
		t.Fatalf("Len() after closing root = %d, want 0", f.Len())
	}
}
