// Package planner implements the goal-driven action search: ordered
// search over priority tiers, parameter unification against the world,
// simulation on a cloned Problem, and candidate ranking.
package planner

import (
	"sort"

	"github.com/carloacu/goalplanner/internal/action"
	"github.com/carloacu/goalplanner/internal/domain"
	"github.com/carloacu/goalplanner/internal/goal"
	"github.com/carloacu/goalplanner/internal/ontology"
	"github.com/carloacu/goalplanner/internal/world"
)

// maxBindingFanout bounds the cross product explored when completing an
// action's unbound parameters against the problem's entities, so a
// wide-arity action over a large entity set cannot blow up a single
// search step.
const maxBindingFanout = 64

// requiredLiteral is a concrete fact target plus the truth value the
// search wants it to have.
type requiredLiteral struct {
	fact        world.Fact
	desiredTrue bool
}

// decompose extracts the concrete, directly-actionable literals an
// unsatisfied condition requires: atomic facts (optionally negated) and
// their conjunction. Conditions built from Or/Forall/Imply/Exists/
// numeric comparisons at the *goal* level are not decomposed into
// sub-targets — the search reports them unreachable rather than
// guessing which disjunct or witness to pursue, a scope boundary this
// module documents rather than hides (DESIGN.md "search decomposition
// scope").
func decompose(c world.Condition, bindings map[string]world.Term) ([]requiredLiteral, bool) {
	switch cond := c.(type) {
	case world.FactCondition:
		f := cond.Fact.Bind(bindings)
		if !f.IsGround() {
			return nil, false
		}
		return []requiredLiteral{{fact: f, desiredTrue: !cond.Negated}}, true
	case world.AndCondition:
		var out []requiredLiteral
		for _, sub := range cond.Conditions {
			lits, ok := decompose(sub, bindings)
			if !ok {
				return nil, false
			}
			out = append(out, lits...)
		}
		return out, true
	case world.NotCondition:
		inner, ok := decompose(cond.Condition, bindings)
		if !ok || len(inner) != 1 {
			return nil, false
		}
		return []requiredLiteral{{fact: inner[0].fact, desiredTrue: !inner[0].desiredTrue}}, true
	default:
		return nil, false
	}
}

// literalHolds reports whether lit's desired truth value already
// matches the current world.
func literalHolds(lit requiredLiteral, ctx *world.EvalContext) bool {
	ok, _ := world.EvalAny(world.FactCondition{Fact: lit.fact}, ctx, nil)
	return ok == lit.desiredTrue
}

// candidate is a fully-grounded action ready to be performed.
type candidate struct {
	actionID string
	bindings map[string]world.Term
}

// findAction searches for the next action to perform towards lit,
// recursing into unsatisfied preconditions as sub-targets when a
// candidate's effect could help but its precondition does not yet
// hold. Returns (nil, true) when lit is already
// satisfied and needs no action, (cand, true) when an actionable step
// was found, or (nil, false) when no candidate leads to progress within
// the search bound.
func findAction(lit requiredLiteral, prob *domain.Problem, dom *domain.Domain, maxDepth, depth int, path map[string]bool) (*candidate, bool) {
	ctx := prob.EvalContext()
	if literalHolds(lit, ctx) {
		return nil, true
	}
	if depth >= maxDepth {
		return nil, false
	}
	if !prob.WorldState.CanFactBecomeTrue(lit.fact) {
		return nil, false
	}

	actionsPreds, _ := dom.SuccessionCache().ContributorsFor(lit.fact.Predicate)
	ids := rankActions(sortedKeys(actionsPreds), dom, prob)

	for _, id := range ids {
		if path[id] {
			continue
		}
		a, ok := dom.Action(id)
		if !ok {
			continue
		}
		for _, partial := range candidateBindingsForEffect(a, lit) {
			for _, full := range completeBindings(a, partial, prob) {
				if a.Precondition == nil {
					return &candidate{actionID: id, bindings: full}, true
				}
				holds, _ := world.EvalAny(a.Precondition, ctx, full)
				if holds {
					return &candidate{actionID: id, bindings: full}, true
				}

				subLits, decomposable := decompose(a.Precondition.Bind(full), nil)
				if !decomposable {
					continue
				}
				subPath := extendPath(path, id)
				progressPossible := true
				var firstStep *candidate
				for _, sub := range subLits {
					if literalHolds(sub, ctx) {
						continue
					}
					subCand, found := findAction(sub, prob, dom, maxDepth, depth+1, subPath)
					if !found {
						progressPossible = false
						break
					}
					if subCand != nil {
						firstStep = subCand
						break
					}
				}
				if !progressPossible {
					continue
				}
				if firstStep != nil {
					return firstStep, true
				}
				// Every sub-literal already holds; the action itself is
				// performable even though EvalAny above disagreed (can
				// happen when Precondition references facts outside the
				// atomic-conjunction shape decompose understands).
				return &candidate{actionID: id, bindings: full}, true
			}
		}
	}
	return nil, false
}

func extendPath(path map[string]bool, id string) map[string]bool {
	out := make(map[string]bool, len(path)+1)
	for k := range path {
		out[k] = true
	}
	out[id] = true
	return out
}

func collectEffectFacts(wsm world.WorldStateModification, desiredTrue bool, out *[]world.Fact) {
	switch m := wsm.(type) {
	case world.AddFactMod:
		if desiredTrue {
			*out = append(*out, m.Fact)
		}
	case world.DeleteFactMod:
		if !desiredTrue {
			*out = append(*out, m.Fact)
		}
	case world.WhenMod:
		collectEffectFacts(m.Then, desiredTrue, out)
	case world.AndMod:
		for _, sub := range m.Mods {
			collectEffectFacts(sub, desiredTrue, out)
		}
	}
}

func unifyEffectFact(effectFact, target world.Fact) (map[string]world.Term, bool) {
	if effectFact.Predicate != target.Predicate || len(effectFact.Args) != len(target.Args) {
		return nil, false
	}
	bindings := map[string]world.Term{}
	for i, a := range effectFact.Args {
		if a.IsParam {
			if existing, ok := bindings[a.Value]; ok {
				if existing.Value != target.Args[i].Value {
					return nil, false
				}
				continue
			}
			bindings[a.Value] = target.Args[i]
			continue
		}
		if a.Value != ontology.AnyValue && a.Value != target.Args[i].Value {
			return nil, false
		}
	}
	return bindings, true
}

func candidateBindingsForEffect(a action.Action, lit requiredLiteral) []map[string]world.Term {
	var facts []world.Fact
	collectEffectFacts(a.Effect.WorldStateModification, lit.desiredTrue, &facts)
	collectEffectFacts(a.Effect.PotentialWorldStateModification, lit.desiredTrue, &facts)

	var out []map[string]world.Term
	for _, f := range facts {
		if b, ok := unifyEffectFact(f, lit.fact); ok {
			out = append(out, b)
		}
	}
	return out
}

func completeBindings(a action.Action, partial map[string]world.Term, prob *domain.Problem) []map[string]world.Term {
	var missing []ontology.Parameter
	for _, p := range a.Parameters {
		if _, ok := partial[p.Name]; !ok {
			missing = append(missing, p)
		}
	}

	results := []map[string]world.Term{copyTermMap(partial)}
	for _, p := range missing {
		entities := prob.Entities.OfType(prob.Domain.Ontology, p.Type)
		var next []map[string]world.Term
		for _, r := range results {
			for _, e := range entities {
				ext := copyTermMap(r)
				ext[p.Name] = world.Term{Value: e.Value, Type: e.Type}
				next = append(next, ext)
				if len(next) >= maxBindingFanout {
					break
				}
			}
		}
		results = next
		if len(results) == 0 {
			return nil
		}
	}
	return results
}

func copyTermMap(in map[string]world.Term) map[string]world.Term {
	out := make(map[string]world.Term, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// rankActions orders candidate action ids:
// (i) ShouldBeDoneAsapWithoutHistoryCheck wins outright;
// (ii) actions whose PreferInContext holds are preferred;
// (iii) actions executed fewer times in Historical are preferred;
// (iv) stable tie-break by action id.
func rankActions(ids []string, dom *domain.Domain, prob *domain.Problem) []string {
	ctx := prob.EvalContext()
	sort.SliceStable(ids, func(i, j int) bool {
		ai, _ := dom.Action(ids[i])
		aj, _ := dom.Action(ids[j])
		if ai.ShouldBeDoneAsapWithoutHistoryCheck != aj.ShouldBeDoneAsapWithoutHistoryCheck {
			return ai.ShouldBeDoneAsapWithoutHistoryCheck
		}
		pi, pj := preferHolds(ai, ctx), preferHolds(aj, ctx)
		if pi != pj {
			return pi
		}
		hi := prob.Historical.GetNbOfTimesActionAlreadyDone(ids[i])
		hj := prob.Historical.GetNbOfTimesActionAlreadyDone(ids[j])
		if hi != hj {
			return hi < hj
		}
		return ids[i] < ids[j]
	})
	return ids
}

func preferHolds(a action.Action, ctx *world.EvalContext) bool {
	if a.PreferInContext == nil {
		return false
	}
	ok, _ := world.EvalAny(a.PreferInContext, ctx, nil)
	return ok
}

// sortedPrioritiesDesc returns the GoalStack's priority tiers,
// highest first.
func sortedPrioritiesDesc(goals map[int][]goal.Goal) []int {
	out := make([]int, 0, len(goals))
	for p := range goals {
		out = append(out, p)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// currentGoal returns the first unsatisfied goal, highest tier first,
// whose imply-condition (if any) holds, after pruning any
// already-satisfied front goals.
// One-step-towards goals are passed over when allowOneStep is false.
func currentGoal(prob *domain.Problem, allowOneStep bool) (*goal.Goal, int, bool) {
	ctx := prob.EvalContext()
	prob.GoalStack.RemoveFirstGoalsThatAreAlreadySatisfied(ctx, nil)

	snapshot := prob.GoalStack.Snapshot()
	for _, p := range sortedPrioritiesDesc(snapshot) {
		for _, g := range snapshot[p] {
			if g.IsSatisfied(ctx) || !g.IsActive(ctx) {
				continue
			}
			if g.OneStepTowards && !allowOneStep {
				continue
			}
			gg := g
			return &gg, p, true
		}
	}
	return nil, 0, false
}
