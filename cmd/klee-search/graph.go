package main

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/Columpio/klee/cfg"
)

// graphDoc is the on-disk description this command loads in place of an
// LLVM bitcode module: loading real bitcode and recovering a CFG from it
// is explicitly out of scope, so the command instead reads a flat JSON
// description of blocks, edges, and call sites, the minimum a driver
// needs to exercise the coordinator end to end.
type graphDoc struct {
	Functions []functionDoc `json:"functions"`
}

type functionDoc struct {
	Name  string    `json:"name"`
	Entry string    `json:"entry"`
	Edges []edgeDoc `json:"edges"`
	Calls []callDoc `json:"calls"`
}

type edgeDoc struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type callDoc struct {
	Site   string `json:"site"`
	Callee string `json:"callee"`
}

// loadGraph decodes a graphDoc and builds both the cfg.Graph and an
// index of function name to entry Location, the latter standing in for
// the debug-info lookup a real module loader would offer.
func loadGraph(r io.Reader) (*cfg.Graph, map[string]cfg.Location, error) {
	var doc graphDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, errors.Wrap(err, "klee-search: failed to parse graph description")
	}
	if len(doc.Functions) == 0 {
		return nil, nil, errors.New("klee-search: graph description declares no functions")
	}

	b := cfg.NewBuilder()
	entries := make(map[string]cfg.Location, len(doc.Functions))
	for _, fn := range doc.Functions {
		if fn.Name == "" || fn.Entry == "" {
			return nil, nil, errors.Errorf("klee-search: function missing name or entry: %+v", fn)
		}
		entry := cfg.Location{Func: fn.Name, Block: fn.Entry}
		b.AddEntry(fn.Name, entry)
		entries[fn.Name] = entry

		for _, e := range fn.Edges {
			b.AddEdge(cfg.Location{Func: fn.Name, Block: e.From}, cfg.Location{Func: fn.Name, Block: e.To})
		}
		for _, c := range fn.Calls {
			b.AddCall(cfg.Location{Func: fn.Name, Block: c.Site}, c.Callee)
		}
	}
	return b.Build(), entries, nil
}
