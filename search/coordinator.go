package search

import (
	"github.com/pkg/errors"

	"github.com/Columpio/klee/cfg"
	"github.com/Columpio/klee/interp"
	"github.com/Columpio/klee/pob"
)

// Coordinator is the round-robin scheduler over the four sub-searchers:
// it decides what to do next, classifies whatever the interpreter
// reports back into the right sub-searcher's world, and owns the
// proof-obligation forest every backward step grows. It is the single
// entry point a driver calls in a loop: SelectAction, hand the Action to
// the interpreter, call Update with whatever ActionResult came back,
// repeat until SelectAction returns a KindTerminate Action.
type Coordinator struct {
	cfg    Config
	interp interp.Interpreter

	forward     *ForwardSearcher
	branch      *BranchSearcher
	backward    *BackwardSearcher
	initializer *Initializer
	pobs        *pob.Forest[interp.State]

	choice int

	// lastBackwardPob/lastBackwardState remember the pairing most
	// recently handed out by trySelectBackward, since a BackwardResult
	// arrives with no reference back to the Action that produced it and
	// a new child PO must be attached under the PO that was under
	// discharge.
	lastBackwardPob   pob.Handle
	lastBackwardState interp.State
}

func newPobForest() *pob.Forest[interp.State] {
	return pob.NewForest[interp.State]()
}

// SelectAction advances the round-robin choice and returns the next
// Action to hand the interpreter. Weak fairness: every non-empty
// sub-searcher is consulted within four successive calls. A full empty
// rotation returns a KindTerminate Action.
func (c *Coordinator) SelectAction() (Action, error) {
	for i := 0; i < 4; i++ {
		c.choice = (c.choice + 1) % 4

		var (
			act Action
			ok  bool
			err error
		)
		switch c.choice {
		case 0:
			act, ok, err = c.trySelectForward()
		case 1:
			act, ok, err = c.trySelectBranch()
		case 2:
			act, ok, err = c.trySelectBackward()
		case 3:
			act, ok, err = c.trySelectInitialize()
		}
		if err != nil {
			return Action{}, err
		}
		if ok {
			return act, nil
		}
	}
	c.traceTerminate()
	return TerminateAction(), nil
}

// trySelectForward implements SelectState plus the forward re-targeting
// rule from §4.4: a state stuck with no target that has already
// recurred in its own history is offered a transition-history target;
// failing that it is paused (removed from active exploration without
// being destroyed) and the Forward slot is retried rather than
// immediately falling through to the next sub-searcher.
func (c *Coordinator) trySelectForward() (Action, bool, error) {
	for !c.forward.Empty() {
		st, err := c.forward.SelectState()
		if err != nil {
			return Action{}, false, err
		}
		if len(st.Targets()) == 0 && st.TransitionLevel() > 0 {
			if loc, ok := c.interp.CalculateTargetByTransitionHistory(st); ok {
				st.AddTarget(loc)
				c.interp.UpdateStates(st)
				c.traceRetarget(st, loc)
				c.traceForward(st)
				return ForwardAction(st), true, nil
			}
			c.interp.PauseState(st)
			c.forward.remove(st)
			c.tracePause(&MissingTargetError{StateID: st.ID()})
			continue
		}
		c.traceForward(st)
		return ForwardAction(st), true, nil
	}
	return Action{}, false, nil
}

func (c *Coordinator) trySelectBranch() (Action, bool, error) {
	if c.branch.Empty() {
		return Action{}, false, nil
	}
	st, err := c.branch.SelectState()
	if err != nil {
		return Action{}, false, err
	}
	c.traceBranch(st)
	return BranchAction(st), true, nil
}

func (c *Coordinator) trySelectBackward() (Action, bool, error) {
	if c.backward.Empty() {
		return Action{}, false, nil
	}
	p, st, err := c.backward.SelectAction()
	if err != nil {
		return Action{}, false, err
	}
	c.lastBackwardPob, c.lastBackwardState = p, st
	c.traceBackward(st, p)
	return BackwardAction(st, p), true, nil
}

func (c *Coordinator) trySelectInitialize() (Action, bool, error) {
	if c.initializer.Empty() {
		return Action{}, false, nil
	}
	loc, targets, err := c.initializer.SelectAction()
	if err != nil {
		return Action{}, false, err
	}
	c.traceInitialize(loc, targets)
	return InitializeAction(loc, targets), true, nil
}

// Update folds the interpreter's report of what happened back into the
// relevant sub-searchers and the proof-obligation forest.
func (c *Coordinator) Update(result ActionResult) error {
	switch result.Kind() {
	case KindForward:
		return c.updateForwardResult(result)
	case KindBackward:
		return c.updateBackwardResult(result)
	case KindInitialize:
		c.branch.Update(nil, []interp.State{result.InitializedState()}, nil)
		return nil
	default:
		return errors.Errorf("search: Update called with unexpected action-result kind %v", result.Kind())
	}
}

func partitionByIsolation(states []interp.State) (ordinary, isolated []interp.State) {
	for _, s := range states {
		if s == nil {
			continue
		}
		if s.IsIsolated() {
			isolated = append(isolated, s)
		} else {
			ordinary = append(ordinary, s)
		}
	}
	return
}

// updateForwardResult implements the dispatch ordering O1: Branch-
// classify, Branch.Update, drain-reached(branch) into
// BackwardSearcher.AddBranch, Forward.Update, then any validity-core
// seeding. ForwardSearcher carries no reached-set of its own (§4.1
// grants CollectAndClearReached to BranchSearcher only), so the
// "drain-reached(forward)" step in §5's ordering is a no-op here.
func (c *Coordinator) updateForwardResult(result ActionResult) error {
	cur := result.Current()

	var fwdCur, branchCur interp.State
	if cur != nil {
		if cur.IsIsolated() {
			if _, ok := c.branch.byID[cur.ID()]; !ok {
				return ErrUnknownState
			}
			branchCur = cur
		} else {
			if _, ok := c.forward.byID[cur.ID()]; !ok {
				return ErrUnknownState
			}
			fwdCur = cur
		}
	}

	fwdAdded, branchAdded := partitionByIsolation(result.Added())
	fwdRemoved, branchRemoved := partitionByIsolation(result.Removed())

	for _, st := range result.Reached() {
		c.branch.MarkReached(st)
	}

	c.branch.Update(branchCur, branchAdded, branchRemoved)
	for _, st := range c.branch.CollectAndClearReached() {
		c.backward.AddBranch(st)
	}
	for _, st := range branchRemoved {
		// (O2): a destroyed state must never surface again, including as
		// a BackwardSearcher pairing candidate.
		c.backward.RemoveState(st.ID())
	}

	c.forward.Update(fwdCur, fwdAdded, fwdRemoved)

	if loc, ok := result.ValidityCoreInit(); ok {
		if _, exists := c.rootPobAt(loc); !exists {
			h := c.pobs.Add(pob.NoHandle, pob.Obligation[interp.State]{Location: loc})
			c.backward.AddPob(h)
			c.initializer.AddPob(loc)
		}
		// A validity-core seed always takes priority over SDI emission at
		// loc, whether or not this tick is the one that registered its PO.
		c.initializer.AddValidityCoreInit(loc)
	}
	return nil
}

func (c *Coordinator) updateBackwardResult(result ActionResult) error {
	if result.Answered() {
		if err := c.markAnsweredChain(c.lastBackwardPob); err != nil {
			return err
		}
	}
	if result.Blocked() {
		if err := c.pobs.BlockLocation(c.lastBackwardPob, c.lastBackwardState.InitialLocation()); err != nil {
			return err
		}
		c.traceBlock(c.lastBackwardState, c.lastBackwardPob)
	}

	newOb, ok := result.NewPob()
	if !ok {
		return nil
	}
	h := c.pobs.Add(c.lastBackwardPob, newOb)
	c.backward.Update(h)
	c.initializer.AddPob(newOb.Location)
	return nil
}

// markAnsweredChain marks h and every ancestor of h as answered, the way
// ProofObligation::unblockTree propagates a validated path all the way
// up the spine it discharges: once the leaf under test is answered,
// nothing further up the chain can still be waiting on it either. Per
// (I3), an answered obligation is pulled out of Initializer's SDI
// source set immediately; it is left registered with BackwardSearcher,
// which already excludes answered obligations from pairing on its own.
func (c *Coordinator) markAnsweredChain(h pob.Handle) error {
	for cur := h; cur != pob.NoHandle; cur = c.pobs.Parent(cur) {
		ob, err := c.pobs.Get(cur)
		if err != nil {
			return err
		}
		if ob.Answered {
			continue
		}
		if err := c.pobs.MarkAnswered(cur); err != nil {
			return err
		}
		c.initializer.RemovePob(ob.Location)
		c.traceAnswered(cur)
	}
	return nil
}

func (c *Coordinator) rootPobAt(loc cfg.Location) (pob.Handle, bool) {
	for _, r := range c.pobs.Roots() {
		if ob, err := c.pobs.Get(r); err == nil && ob.Location == loc {
			return r, true
		}
	}
	return pob.NoHandle, false
}

// RemoveProofObligation climbs to the root of the subtree containing h
// and closes the entire subtree: removed from BackwardSearcher and
// Initializer, detached from its parent, every descendant destroyed.
// Idempotent and safe to call on any non-destroyed PO, including the
// root, per §5's cancellation-primitive contract.
func (c *Coordinator) RemoveProofObligation(h pob.Handle) error {
	if _, err := c.pobs.Get(h); err != nil {
		return ErrAlreadyClosed
	}
	root := h
	for parent := c.pobs.Parent(root); parent != pob.NoHandle; parent = c.pobs.Parent(root) {
		root = parent
	}
	c.closeSubtree(root)
	return nil
}

func (c *Coordinator) closeSubtree(root pob.Handle) {
	stack := []pob.Handle{root}
	var all []pob.Handle
	for len(stack) > 0 {
		n := len(stack) - 1
		cur := stack[n]
		stack = stack[:n]
		all = append(all, cur)
		stack = append(stack, c.pobs.Children(cur)...)
	}
	for _, h := range all {
		if ob, err := c.pobs.Get(h); err == nil {
			c.backward.RemovePob(h)
			c.initializer.RemovePob(ob.Location)
			c.traceCloseObligation(h)
		}
	}
	c.pobs.Close(root)
}

// Empty reports whether every sub-searcher relevant to termination is
// exhausted. BranchSearcher is deliberately excluded, matching §4.4:
// an isolated branch with nothing left to do does not by itself end the
// analysis.
func (c *Coordinator) Empty() bool {
	return c.forward.Empty() && c.backward.Empty() && c.initializer.Empty()
}
