package main

import (
	"strings"
	"testing"
)

func TestReadRunConfig_DefaultsPolicyToGuided(t *testing.T) {
	doc := `
graph = "graph.json"
entry = "main"
`
	cfg, err := readRunConfig(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("readRunConfig: %v", err)
	}
	if cfg.Policy != "guided" {
		t.Fatalf("Policy = %q, want guided", cfg.Policy)
	}
	if cfg.timeout() != 0 {
		t.Fatalf("timeout() = %v, want 0 (disabled)", cfg.timeout())
	}
}

func TestReadRunConfig_RejectsMissingGraph(t *testing.T) {
	if _, err := readRunConfig(strings.NewReader(`entry = "main"`)); err == nil {
		t.Fatalf("readRunConfig should reject a document with no graph")
	}
}

func TestReadRunConfig_RejectsMissingEntry(t *testing.T) {
	if _, err := readRunConfig(strings.NewReader(`graph = "g.json"`)); err == nil {
		t.Fatalf("readRunConfig should reject a document with no entry")
	}
}

func TestReadRunConfig_ParsesTimeoutAndTrace(t *testing.T) {
	doc := `
graph = "graph.json"
entry = "main"
trace = true
timeout_seconds = 30
policy = "bfs"
`
	cfg, err := readRunConfig(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("readRunConfig: %v", err)
	}
	if !cfg.Trace {
		t.Fatalf("Trace = false, want true")
	}
	if cfg.timeout().Seconds() != 30 {
		t.Fatalf("timeout() = %v, want 30s", cfg.timeout())
	}
	if cfg.Policy != "bfs" {
		t.Fatalf("Policy = %q, want bfs", cfg.Policy)
	}
}
