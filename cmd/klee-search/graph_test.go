package main

import (
	"strings"
	"testing"
)

const diamondGraphDoc = `{
  "functions": [
    {
      "name": "main",
      "entry": "entry",
      "edges": [
        {"from": "entry", "to": "left"},
        {"from": "entry", "to": "right"},
        {"from": "left", "to": "join"},
        {"from": "right", "to": "join"}
      ],
      "calls": [
        {"site": "entry", "callee": "helper"}
      ]
    },
    {
      "name": "helper",
      "entry": "hentry",
      "edges": []
    }
  ]
}`

func TestLoadGraph_BuildsEntriesAndEdges(t *testing.T) {
	graph, entries, err := loadGraph(strings.NewReader(diamondGraphDoc))
	if err != nil {
		t.Fatalf("loadGraph: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %v, want 2 functions", entries)
	}
	mainEntry, ok := entries["main"]
	if !ok || mainEntry.Block != "entry" {
		t.Fatalf("entries[main] = %v, ok=%v", mainEntry, ok)
	}

	succs := graph.Successors(mainEntry)
	if len(succs) != 2 {
		t.Fatalf("Successors(entry) = %v, want 2", succs)
	}

	callee, ok := graph.CalleeOf(mainEntry)
	if !ok || callee != "helper" {
		t.Fatalf("CalleeOf(entry) = %q, %v, want helper, true", callee, ok)
	}
}

func TestLoadGraph_RejectsEmptyDocument(t *testing.T) {
	if _, _, err := loadGraph(strings.NewReader(`{"functions": []}`)); err == nil {
		t.Fatalf("loadGraph(empty) should fail")
	}
}

func TestLoadGraph_RejectsMissingEntry(t *testing.T) {
	doc := `{"functions": [{"name": "f", "edges": []}]}`
	if _, _, err := loadGraph(strings.NewReader(doc)); err == nil {
		t.Fatalf("loadGraph(no entry) should fail")
	}
}
