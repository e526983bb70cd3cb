package main

import (
	"io"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// runConfig is the run-configuration file this command reads, the same
// role the teacher's manifest.json/lock.json play for a dep run, just
// TOML-encoded the way the teacher's own Gopkg.toml reader parses its
// project list.
type runConfig struct {
	// Graph names the CFG description file to load.
	Graph string `toml:"graph"`
	// Entry is the function the initial state starts in.
	Entry string `toml:"entry"`
	// Sarif optionally names a SARIF report whose findings seed the
	// initial target set.
	Sarif string `toml:"sarif"`
	// Policy selects "bfs" or "guided" (the default) for both the
	// forward and branch searchers.
	Policy string `toml:"policy"`
	// Trace enables the coordinator's line-by-line action trace.
	Trace bool `toml:"trace"`
	// TimeoutSeconds bounds the whole run; zero means no timeout.
	TimeoutSeconds int `toml:"timeout_seconds"`
	// OutDir is where the run's lock file is created. The trace goes to
	// the logger, not to a file, and the SARIF input is not copied here.
	OutDir string `toml:"out_dir"`
}

func defaultRunConfig() runConfig {
	return runConfig{
		Policy:         "guided",
		TimeoutSeconds: 0,
		OutDir:         ".",
	}
}

// readRunConfig decodes a TOML run-configuration document, the way the
// teacher's toml.go wraps pelletier/go-toml around its own TOML
// documents, but via the simpler Unmarshal entry point since this
// format has no need for the teacher's tree-query indirection.
func readRunConfig(r io.Reader) (runConfig, error) {
	cfg := defaultRunConfig()
	b, err := io.ReadAll(r)
	if err != nil {
		return cfg, errors.Wrap(err, "klee-search: failed to read run configuration")
	}
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrap(err, "klee-search: failed to parse run configuration")
	}
	if cfg.Graph == "" {
		return cfg, errors.New("klee-search: run configuration is missing graph")
	}
	if cfg.Entry == "" {
		return cfg, errors.New("klee-search: run configuration is missing entry")
	}
	return cfg, nil
}

func (c runConfig) timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
