package search

import (
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/Columpio/klee/cfg"
	"github.com/Columpio/klee/interp"
)

// Config is the input to Prepare, equivalent in role to the teacher's
// SolveParameters: everything a run needs up front, validated once
// rather than threaded through every constructor individually.
type Config struct {
	// Interp is the interpreter the Coordinator drives. Required.
	Interp interp.Interpreter

	// InitialState is the first ordinary state the forward searcher
	// explores. Required.
	InitialState interp.State

	// Targets are inserted into InitialState's target set before the
	// forward searcher ever sees it.
	Targets []cfg.Location

	// ForwardPolicy and BranchPolicy select the exploration order for
	// ordinary and isolated states respectively. Nil selects Guided,
	// the richer of the two policies (BFS order with a shortest-static-
	// distance preference once any state carries a target).
	ForwardPolicy, BranchPolicy Policy

	// Trace, when true, writes a line to TraceLogger for every action
	// and result the Coordinator processes. TraceLogger defaults to a
	// logger on os.Stderr if Trace is true and TraceLogger is nil.
	Trace       bool
	TraceLogger *log.Logger
}

// Policy selects how a ForwardSearcher/BranchSearcher orders its
// candidate states. See NewBFSPolicy and NewGuidedPolicy.
type Policy interface {
	// pick returns the index into states to select next. states is
	// never empty when pick is called.
	pick(states []interp.State, graph *cfg.Graph) int
}

func (c Config) validate() error {
	if c.Interp == nil {
		return errors.New("search: Config.Interp is required")
	}
	if c.InitialState == nil {
		return errors.New("search: Config.InitialState is required")
	}
	return nil
}

// Prepare validates cfg and constructs a ready-to-run Coordinator,
// mirroring the shape of the teacher's gps.Prepare(SolveParameters,
// SourceManager) (*solver, error): validate inputs once, wire every
// sub-component, return a single entry point the caller drives by
// calling SelectAction/Update in a loop.
func Prepare(cfg Config) (*Coordinator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Trace && cfg.TraceLogger == nil {
		cfg.TraceLogger = log.New(os.Stderr, "", 0)
	}
	for _, t := range cfg.Targets {
		cfg.InitialState.AddTarget(t)
	}

	fwdPolicy := cfg.ForwardPolicy
	if fwdPolicy == nil {
		fwdPolicy = NewGuidedPolicy()
	}
	branchPolicy := cfg.BranchPolicy
	if branchPolicy == nil {
		branchPolicy = NewGuidedPolicy()
	}

	forest := newPobForest()
	c := &Coordinator{
		cfg:         cfg,
		interp:      cfg.Interp,
		forward:     newStateSearcher(fwdPolicy, cfg.Interp.Graph()),
		branch:      newBranchSearcher(branchPolicy, cfg.Interp.Graph()),
		backward:    newBackwardSearcher(forest),
		initializer: newInitializer(cfg.Interp.Graph()),
		pobs:        forest,
	}
	c.forward.Update(nil, []interp.State{cfg.InitialState}, nil)
	return c, nil
}
