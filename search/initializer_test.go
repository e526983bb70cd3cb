package search

import (
	"testing"

	"github.com/Columpio/klee/cfg"
)

// diamondGraph builds entry -> {left, right} -> join within fn, used to
// exercise the intra-function SDI frontier with more than one predecessor
// at a given distance.
func diamondGraph(fn string) (*cfg.Graph, map[string]cfg.Location) {
	entry := cfg.Location{Func: fn, Block: "entry"}
	left := cfg.Location{Func: fn, Block: "left"}
	right := cfg.Location{Func: fn, Block: "right"}
	join := cfg.Location{Func: fn, Block: "join"}
	b := cfg.NewBuilder()
	b.AddEntry(fn, entry)
	b.AddEdge(entry, left)
	b.AddEdge(entry, right)
	b.AddEdge(left, join)
	b.AddEdge(right, join)
	return b.Build(), map[string]cfg.Location{
		"entry": entry, "left": left, "right": right, "join": join,
	}
}

func TestInitializer_EmptyWithNoObligations(t *testing.T) {
	graph, _ := diamondGraph("main")
	in := newInitializer(graph)
	if !in.Empty() {
		t.Fatalf("a fresh Initializer with no registered pobs should be Empty")
	}
}

func TestInitializer_IntraFunctionEnumerationOrder(t *testing.T) {
	graph, locs := diamondGraph("main")
	in := newInitializer(graph)
	in.AddPob(locs["join"])

	seen := map[cfg.Location]bool{}
	var order []cfg.Location
	for i := 0; i < 3; i++ {
		loc, targets, err := in.SelectAction()
		if err != nil {
			t.Fatalf("SelectAction (%d): %v", i, err)
		}
		if seen[loc] {
			t.Fatalf("location %v emitted twice", loc)
		}
		seen[loc] = true
		order = append(order, loc)
		if len(targets) != 1 || targets[0] != locs["join"] {
			t.Fatalf("targets = %v, want [join]", targets)
		}
	}
	for _, want := range []string{"left", "right", "entry"} {
		if !seen[locs[want]] {
			t.Fatalf("expected %s to have been emitted, got %v", want, seen)
		}
	}
	// BFS back from join: left and right at distance 1 (in edge
	// insertion order), then entry at distance 2.
	for i, want := range []cfg.Location{locs["left"], locs["right"], locs["entry"]} {
		if order[i] != want {
			t.Fatalf("emission %d = %v, want %v (order %v)", i, order[i], want, order)
		}
	}
	if !in.Empty() {
		t.Fatalf("every intra-function predecessor of join has been emitted; Empty() should be true")
	}
}

func TestInitializer_InterFunctionFallback(t *testing.T) {
	calleeEntry := cfg.Location{Func: "callee", Block: "entry"}
	callerEntry := cfg.Location{Func: "caller", Block: "entry"}
	callSite := cfg.Location{Func: "caller", Block: "call"}

	b := cfg.NewBuilder()
	b.AddEntry("callee", calleeEntry)
	b.AddEntry("caller", callerEntry)
	b.AddEdge(callerEntry, callSite)
	b.AddCall(callSite, "callee")
	graph := b.Build()

	in := newInitializer(graph)
	in.AddPob(calleeEntry)

	loc, _, err := in.SelectAction()
	if err != nil {
		t.Fatalf("SelectAction: %v", err)
	}
	if loc != callerEntry {
		t.Fatalf("SelectAction() = %v, want caller entry %v (inter-function fallback)", loc, callerEntry)
	}
	if !in.Empty() {
		t.Fatalf("Empty() should be true: the only caller entry has been emitted")
	}
}

func TestInitializer_NeverEmitsTwiceAcrossSharedPobs(t *testing.T) {
	graph, locs := diamondGraph("main")
	in := newInitializer(graph)
	// Two pobs sharing part of their backward frontier: join and left
	// both have entry in their backward closure (left's directly,
	// join's via left). entry must still only ever be emitted once.
	in.AddPob(locs["join"])
	in.AddPob(locs["left"])

	emitted := map[cfg.Location]int{}
	for i := 0; i < 10 && !in.Empty(); i++ {
		loc, _, err := in.SelectAction()
		if err != nil {
			t.Fatalf("SelectAction (%d): %v", i, err)
		}
		emitted[loc]++
	}
	for loc, n := range emitted {
		if n > 1 {
			t.Fatalf("location %v emitted %d times, want at most once", loc, n)
		}
	}
}

func TestInitializer_RemovePobExcludesImmediately(t *testing.T) {
	graph, locs := diamondGraph("main")
	in := newInitializer(graph)
	in.AddPob(locs["join"])
	in.RemovePob(locs["join"])
	if !in.Empty() {
		t.Fatalf("Empty() should be true once the only pob is removed")
	}
}

func TestInitializer_ValidityCoreSeedTakesPriority(t *testing.T) {
	graph, locs := diamondGraph("main")
	in := newInitializer(graph)
	in.AddPob(locs["join"])
	in.AddValidityCoreInit(locs["right"])

	loc, _, err := in.SelectAction()
	if err != nil {
		t.Fatalf("SelectAction: %v", err)
	}
	if loc != locs["right"] {
		t.Fatalf("SelectAction() = %v, want seeded location %v first", loc, locs["right"])
	}
}

func TestInitializer_ValidityCoreSeedAlreadyInitializedIsIgnored(t *testing.T) {
	graph, locs := diamondGraph("main")
	in := newInitializer(graph)
	in.AddPob(locs["join"])
	// Drain every emission so "left", "right", "entry" are all initialized.
	for !in.Empty() {
		if _, _, err := in.SelectAction(); err != nil {
			t.Fatalf("SelectAction: %v", err)
		}
	}
	in.AddValidityCoreInit(locs["left"])
	if !in.Empty() {
		t.Fatalf("a seed for an already-initialized location must not reopen the Initializer")
	}
}
