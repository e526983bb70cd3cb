package main

import (
	"path/filepath"
	"strings"

	"github.com/Columpio/klee/cfg"
)

// functionNameResolver is a coarse sarif.LocationResolver: it matches a
// finding's artifact basename (without extension) against the loaded
// graph's function names and, on a match, resolves to that function's
// entry block. Real line-accurate resolution needs the module's debug
// info, which this command never loads (no bitcode loader is in scope),
// so this is a deliberately approximate stand-in - good enough to seed
// a function-level target from a SARIF finding, not a block-level one.
type functionNameResolver struct {
	entries map[string]cfg.Location
}

func newFunctionNameResolver(entries map[string]cfg.Location) *functionNameResolver {
	return &functionNameResolver{entries: entries}
}

func (r *functionNameResolver) Resolve(artifactURI string, _ int) (cfg.Location, bool) {
	base := filepath.Base(artifactURI)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	loc, ok := r.entries[base]
	return loc, ok
}
