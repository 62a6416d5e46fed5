// Package parallel transforms a serial plan into a parallel schedule
// by greedily merging each successive action into the latest step
// whenever doing so preserves the serial plan's semantics.
package parallel

import (
	"time"

	"github.com/carloacu/goalplanner/internal/action"
	"github.com/carloacu/goalplanner/internal/domain"
	"github.com/carloacu/goalplanner/internal/world"
)

// Step is one parallel step: a set of actions whose ordering within
// the step does not matter.
type Step struct {
	Actions []action.InvocationWithGoal
}

// groundedData caches the ground facts an invocation's preconditions,
// over-all condition, and effects reference — computed once per
// invocation rather than per pairwise comparison.
type groundedData struct {
	precond    []world.Fact // facts required true
	negPrecond []world.Fact // facts required false
	addEffects []world.Fact
	delEffects []world.Fact
}

func groundInvocation(inv action.InvocationWithGoal, dom *domain.Domain) groundedData {
	a, _ := dom.Action(inv.Invocation.ActionID)
	bindings := inv.Invocation.Bindings

	var gd groundedData
	if a.Precondition != nil {
		p, n := groundedFacts(a.Precondition, bindings)
		gd.precond = append(gd.precond, p...)
		gd.negPrecond = append(gd.negPrecond, n...)
	}
	if a.OverAllCondition != nil {
		p, n := groundedFacts(a.OverAllCondition, bindings)
		gd.precond = append(gd.precond, p...)
		gd.negPrecond = append(gd.negPrecond, n...)
	}

	for _, wsm := range []world.WorldStateModification{
		a.Effect.WorldStateModification,
		a.Effect.PotentialWorldStateModification,
		a.Effect.WorldStateModificationAtStart,
	} {
		if wsm == nil {
			continue
		}
		added, removed := effectFacts(wsm, bindings)
		gd.addEffects = append(gd.addEffects, added...)
		gd.delEffects = append(gd.delEffects, removed...)
	}
	return gd
}

// groundedFacts extracts ground positive/negative fact requirements
// from the atomic-conjunction shape a precondition commonly takes
// (And/Not/Fact); richer shapes (Or, Exists, Forall, numeric) do not
// contribute ground literals here and are simply not used to veto a
// merge — a documented scope boundary shared with the planner's own
// decompose (DESIGN.md "search decomposition scope").
func groundedFacts(c world.Condition, bindings map[string]world.Term) (pos, neg []world.Fact) {
	switch cond := c.(type) {
	case world.FactCondition:
		f := cond.Fact.Bind(bindings)
		if !f.IsGround() {
			return nil, nil
		}
		if cond.Negated {
			return nil, []world.Fact{f}
		}
		return []world.Fact{f}, nil
	case world.AndCondition:
		for _, sub := range cond.Conditions {
			p, n := groundedFacts(sub, bindings)
			pos = append(pos, p...)
			neg = append(neg, n...)
		}
		return pos, neg
	case world.NotCondition:
		p, n := groundedFacts(cond.Condition, bindings)
		return n, p
	default:
		return nil, nil
	}
}

func effectFacts(wsm world.WorldStateModification, bindings map[string]world.Term) (added, removed []world.Fact) {
	switch m := wsm.(type) {
	case world.AddFactMod:
		f := m.Fact.Bind(bindings)
		if f.IsGround() {
			added = append(added, f)
		}
	case world.DeleteFactMod:
		f := m.Fact.Bind(bindings)
		if f.IsGround() {
			removed = append(removed, f)
		}
	case world.WhenMod:
		a, r := effectFacts(m.Then, bindings)
		added = append(added, a...)
		removed = append(removed, r...)
	case world.AndMod:
		for _, sub := range m.Mods {
			a, r := effectFacts(sub, bindings)
			added = append(added, a...)
			removed = append(removed, r...)
		}
	}
	return added, removed
}

func factEqual(a, b world.Fact) bool {
	if a.Predicate != b.Predicate || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if a.Args[i].Value != b.Args[i].Value {
			return false
		}
	}
	return true
}

func factsConflict(a, b []world.Fact) bool {
	for _, x := range a {
		for _, y := range b {
			if factEqual(x, y) {
				return true
			}
		}
	}
	return false
}

// canRunInParallel is the pairwise test: neither invocation's effect
// may contradict the other's precondition/over-all condition, and
// neither's effect may contradict the other's effect.
func canRunInParallel(a, b groundedData) bool {
	if factsConflict(a.addEffects, b.negPrecond) || factsConflict(a.delEffects, b.precond) {
		return false
	}
	if factsConflict(b.addEffects, a.negPrecond) || factsConflict(b.delEffects, a.precond) {
		return false
	}
	if factsConflict(a.addEffects, b.delEffects) || factsConflict(a.delEffects, b.addEffects) {
		return false
	}
	return true
}

// Group transforms a serial plan into a sequence of parallel steps:
// each successive action
// is greedily merged into the latest step when (a) its precondition
// already held in the world as of the start of that step — not merely
// after the step's other members run, preserving the serial plan's
// step-by-step semantics — and (b) it conflicts with no action already
// in that step. Otherwise it opens a new step.
func Group(serial []action.InvocationWithGoal, prob *domain.Problem, dom *domain.Domain, now *time.Time) []Step {
	current := prob.Clone()

	var steps []Step
	var stepData []groundedData
	var stepStart *domain.Problem

	for _, inv := range serial {
		gd := groundInvocation(inv, dom)
		a, _ := dom.Action(inv.Invocation.ActionID)

		canJoin := len(steps) > 0
		if canJoin && a.Precondition != nil {
			holds, _ := world.EvalAny(a.Precondition, stepStart.EvalContext(), inv.Invocation.Bindings)
			canJoin = holds
		}
		if canJoin {
			for _, existing := range stepData {
				if !canRunInParallel(existing, gd) {
					canJoin = false
					break
				}
			}
		}

		if canJoin {
			last := len(steps) - 1
			steps[last].Actions = append(steps[last].Actions, inv)
			stepData = append(stepData, gd)
		} else {
			stepStart = current.Clone()
			steps = append(steps, Step{Actions: []action.InvocationWithGoal{inv}})
			stepData = []groundedData{gd}
		}

		_, _ = current.ApplyAction(inv, false, now)
	}
	return steps
}
