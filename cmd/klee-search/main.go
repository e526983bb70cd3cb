// Command klee-search drives the bidirectional proof-obligation search
// coordinator over a JSON-described control-flow graph, optionally
// seeded with targets discovered from a SARIF report. It never performs
// concrete execution, constraint solving, or memory-object modeling -
// those are the interpreter's job, and this command's graph-walking
// engine stands in for one so the coordinator has something runnable to
// drive end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sdboyer/constext"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/Columpio/klee/cfg"
	"github.com/Columpio/klee/distcache"
	"github.com/Columpio/klee/sarif"
	"github.com/Columpio/klee/search"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("klee-search", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a TOML run configuration (required)")
	cacheDir := fs.String("cache", "", "directory for the backward-distance cache (disabled if empty)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *configPath == "" {
		fmt.Fprintln(stderr, "klee-search: -config is required")
		return 2
	}

	logger := log.New(stderr, "", 0)

	if err := runConfigured(*configPath, *cacheDir, logger, stdout); err != nil {
		fmt.Fprintf(stderr, "klee-search: %v\n", err)
		return 1
	}
	return 0
}

func runConfigured(configPath, cacheDir string, logger *log.Logger, stdout io.Writer) error {
	f, err := os.Open(configPath)
	if err != nil {
		return errors.Wrapf(err, "failed to open %q", configPath)
	}
	cfgFile, err := readRunConfig(f)
	f.Close()
	if err != nil {
		return err
	}

	lock, err := acquireRunLock(cfgFile.OutDir)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	ctx, cancel := runContext(cfgFile.timeout())
	defer cancel()

	graphFile, err := os.Open(cfgFile.Graph)
	if err != nil {
		return errors.Wrapf(err, "failed to open %q", cfgFile.Graph)
	}
	graph, entries, err := loadGraph(graphFile)
	graphFile.Close()
	if err != nil {
		return err
	}

	entryLoc, ok := entries[cfgFile.Entry]
	if !ok {
		return errors.Errorf("entry function %q not found in %q", cfgFile.Entry, cfgFile.Graph)
	}

	targets, err := resolveTargets(cfgFile, entries)
	if err != nil {
		return err
	}

	if cfgFile.Trace {
		logger.Printf("trace width: %d columns", terminalWidth(int(os.Stdout.Fd())))
	}

	var cache *distcache.Cache
	if cacheDir != "" {
		cache, err = distcache.Open(filepath.Join(cacheDir, "distcache.db"), logger)
		if err != nil {
			return errors.Wrap(err, "failed to open distance cache")
		}
		defer cache.Close()
	}

	engine := newGraphEngine(graph, cache)
	initial := newWalkState("init", entryLoc)

	policy := policyFromName(cfgFile.Policy)
	coordinator, err := search.Prepare(search.Config{
		Interp:        engine,
		InitialState:  initial,
		Targets:       targets,
		ForwardPolicy: policy,
		BranchPolicy:  policy,
		Trace:         cfgFile.Trace,
		TraceLogger:   logger,
	})
	if err != nil {
		return errors.Wrap(err, "failed to prepare coordinator")
	}

	return driveToCompletion(ctx, coordinator, engine, stdout)
}

// driveToCompletion runs the SelectAction/perform/Update loop until the
// coordinator reports KindTerminate or ctx is done, whichever comes
// first - the timeout/cancellation boundary the coordinator itself has
// no notion of, since SelectAction/Update are synchronous calls with no
// context parameter.
func driveToCompletion(ctx context.Context, c *search.Coordinator, e *graphEngine, stdout io.Writer) error {
	steps := 0
	for {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "run cancelled")
		default:
		}

		act, err := c.SelectAction()
		if err != nil {
			return errors.Wrap(err, "SelectAction")
		}
		if act.Kind() == search.KindTerminate {
			fmt.Fprintf(stdout, "terminated after %d steps\n", steps)
			return nil
		}

		result := perform(e, act)
		if err := c.Update(result); err != nil {
			return errors.Wrap(err, "Update")
		}
		steps++
	}
}

// perform executes a single Action against the graph-walking engine,
// the driver-side half of the Interpreter boundary that has no fixed
// method signature of its own (Action's payload shape differs per Kind).
func perform(e *graphEngine, act search.Action) search.ActionResult {
	switch act.Kind() {
	case search.KindForward:
		return e.stepForward(act.State().(*walkState))
	case search.KindBranch:
		return e.stepBranch(act.State().(*walkState))
	case search.KindBackward:
		return e.stepBackward(act.State().(*walkState))
	case search.KindInitialize:
		_, result := e.stepInitialize(act.Location(), act.Targets())
		return result
	default:
		panic(fmt.Sprintf("klee-search: unreachable action kind %v", act.Kind()))
	}
}

func resolveTargets(cfgFile runConfig, entries map[string]cfg.Location) ([]cfg.Location, error) {
	if cfgFile.Sarif == "" {
		return nil, nil
	}
	f, err := os.Open(cfgFile.Sarif)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", cfgFile.Sarif)
	}
	defer f.Close()

	report, err := sarif.Ingest(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to ingest %q", cfgFile.Sarif)
	}
	return sarif.Targets(report, newFunctionNameResolver(entries)), nil
}

func policyFromName(name string) search.Policy {
	if name == "bfs" {
		return search.NewBFSPolicy()
	}
	return search.NewGuidedPolicy()
}

// runContext merges SIGINT/SIGTERM cancellation with an optional
// timeout deadline, the same two-source cancellation shape the
// teacher's own import-path deduction wires together out of an incoming
// request context and its own internal timeout via constext.Cons.
func runContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return sigCtx, stop
	}
	timeoutCtx, cancelTimeout := context.WithTimeout(context.Background(), timeout)
	merged, cancelMerged := constext.Cons(sigCtx, timeoutCtx)
	return merged, func() {
		cancelMerged()
		cancelTimeout()
		stop()
	}
}

// terminalWidth probes the terminal width of fd (the caller passes
// stdout), falling back to 80 columns when fd isn't a terminal (e.g.
// redirected to a file). The width is only reported in one trace line;
// it does not change how trace lines are indented or formatted.
func terminalWidth(fd int) int {
	w, _, err := terminal.GetSize(fd)
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
