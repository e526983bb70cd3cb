package search

import (
	"fmt"
	"strings"

	"github.com/Columpio/klee/cfg"
	"github.com/Columpio/klee/interp"
	"github.com/Columpio/klee/pob"
)

const (
	forwardChar = "→"
	branchChar  = "⑂"
	backChar    = "←"
	initChar    = "*"
	termChar    = "■"
	closeChar   = "✗"
	answerChar  = "✓"
)

// tracePrefix prepends sep to every line of msg after the first, and
// fsep to the first line, the way the teacher's own tracePrefix does -
// so a multi-line trace message still indents consistently under the
// current depth.
func tracePrefix(msg, sep, fsep string) string {
	parts := strings.Split(strings.TrimSuffix(msg, "\n"), "\n")
	for k, str := range parts {
		if k == 0 {
			parts[k] = fsep + str
		} else {
			parts[k] = sep + str
		}
	}
	return strings.Join(parts, "\n")
}

// depthPrefix renders the number of live proof obligations in the
// forest (not the depth of any one obligation) as a "| "-repeated
// indent, mirroring the teacher's use of len(s.vqs) (the current
// backtracking stack depth) for the same purpose.
func (c *Coordinator) depthPrefix() string {
	return strings.Repeat("| ", c.pobs.Len())
}

func (c *Coordinator) trace(msg string) {
	if !c.cfg.Trace || c.cfg.TraceLogger == nil {
		return
	}
	prefix := c.depthPrefix()
	c.cfg.TraceLogger.Printf("%s\n", tracePrefix(msg, prefix, prefix))
}

// traceErr renders err as a trace line, preferring its traceString()
// when err satisfies traceError over its plain Error() string - the
// same special-case the teacher's traceInfo gives a traceError argument
// over a bare error.
func (c *Coordinator) traceErr(lead string, err error) {
	if te, ok := err.(traceError); ok {
		c.trace(fmt.Sprintf("%s %s", lead, te.traceString()))
		return
	}
	c.trace(fmt.Sprintf("%s %s", lead, err.Error()))
}

func (c *Coordinator) traceForward(state interp.State) {
	c.trace(fmt.Sprintf("%s forward: %s", forwardChar, state.CurrentLocation()))
}

func (c *Coordinator) traceBranch(state interp.State) {
	c.trace(fmt.Sprintf("%s branch: %s", branchChar, state.CurrentLocation()))
}

func (c *Coordinator) traceBackward(state interp.State, p pob.Handle) {
	c.trace(fmt.Sprintf("%s backward: state %s against pob#%d", backChar, state.ID(), p))
}

func (c *Coordinator) traceInitialize(loc cfg.Location, targets []cfg.Location) {
	c.trace(fmt.Sprintf("%s initialize: %s -> %v", initChar, loc, targets))
}

func (c *Coordinator) traceTerminate() {
	c.trace(fmt.Sprintf("%s terminate", termChar))
}

func (c *Coordinator) traceCloseObligation(h pob.Handle) {
	c.trace(fmt.Sprintf("%s close pob#%d", closeChar, h))
}

func (c *Coordinator) traceAnswered(h pob.Handle) {
	c.trace(fmt.Sprintf("%s answered: pob#%d", answerChar, h))
}

func (c *Coordinator) traceBlock(state interp.State, h pob.Handle) {
	c.trace(fmt.Sprintf("%s block: %s blocked against pob#%d", backChar, state.ID(), h))
}

func (c *Coordinator) tracePause(err *MissingTargetError) {
	c.traceErr(backChar+" pause:", err)
}

func (c *Coordinator) traceRetarget(state interp.State, loc cfg.Location) {
	c.trace(fmt.Sprintf("%s retarget: %s -> %s", forwardChar, state.ID(), loc))
}
