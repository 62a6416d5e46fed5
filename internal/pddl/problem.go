package pddl

import (
	"fmt"

	"github.com/carloacu/goalplanner/internal/domain"
	"github.com/carloacu/goalplanner/internal/goal"
	"github.com/carloacu/goalplanner/internal/ontology"
	"github.com/carloacu/goalplanner/internal/perrors"
	"github.com/carloacu/goalplanner/internal/world"
)

// ParseProblem parses a full `(define (problem NAME) (:domain DOMNAME)
// (:objects …) (:init …) (:goal …))` file against an already-parsed
// dom, validating the `(:domain DOMNAME)` header names dom.Name.
func ParseProblem(src string, dom *domain.Domain) (*domain.Problem, error) {
	top, err := readSingleTopLevel(src)
	if err != nil {
		return nil, err
	}
	if top.Head() != "define" {
		return nil, parseError(top.Offset, "expected (define (problem NAME) ...)")
	}
	children := top.Tail()
	if len(children) == 0 || children[0].Head() != "problem" {
		return nil, parseError(top.Offset, "missing (problem NAME) header")
	}
	blocks := children[1:]

	var domainDecl SExpr
	var sawDomainDecl bool
	for _, block := range blocks {
		if block.Head() == ":domain" {
			domainDecl = block
			sawDomainDecl = true
			break
		}
	}
	if !sawDomainDecl {
		return nil, parseError(top.Offset, "problem is missing a (:domain NAME) declaration")
	}
	domainNameAtoms := domainDecl.Tail()
	if len(domainNameAtoms) != 1 || !domainNameAtoms[0].IsAtom {
		return nil, parseError(domainDecl.Offset, "expected a single domain name atom")
	}
	if domainNameAtoms[0].Atom != dom.Name {
		return nil, perrors.NewParse(
			fmt.Sprintf("problem declares domain %q but the loaded domain is %q", domainNameAtoms[0].Atom, dom.Name),
			domainNameAtoms[0].Atom, domainNameAtoms[0].Offset)
	}

	prob := domain.NewProblem(dom)

	for _, block := range blocks {
		if block.Head() == ":objects" {
			slots, err := splitByDash(block.Tail(), resolveTypeName(dom.Ontology))
			if err != nil {
				return nil, err
			}
			for _, sl := range slots {
				if err := prob.Entities.Add(ontology.Entity{Value: sl.Name, Type: sl.Type}); err != nil {
					return nil, err
				}
			}
		}
	}

	ctx := newParseCtx(dom.Ontology, prob.Entities)

	var initFacts []world.Fact
	for _, block := range blocks {
		if block.Head() == ":init" {
			for _, item := range block.Tail() {
				fact, ok, err := parseGroundFact(item, ctx)
				if err != nil {
					return nil, err
				}
				if ok {
					initFacts = append(initFacts, fact)
				}
			}
		}
	}
	if len(initFacts) > 0 {
		if _, err := prob.WorldState.Modify(andAddFacts(initFacts), prob.ModifyContext(), nil); err != nil {
			return nil, err
		}
	}

	for _, block := range blocks {
		if block.Head() == ":goal" {
			goalChildren := block.Tail()
			if len(goalChildren) != 1 {
				return nil, parseError(block.Offset, ":goal expects exactly one condition")
			}
			goals, err := parseGoalBlock(goalChildren[0], ctx)
			if err != nil {
				return nil, err
			}
			prob.GoalStack.AddGoals(map[int][]goal.Goal{goal.DefaultPriority: goals}, prob.EvalContext(), nil)
		}
	}

	return prob, nil
}

// parseGoalBlock handles the goal-annotation sentinels: an `and`
// whose head token carries the `__ORDERED` sentinel becomes one Goal per
// conjunct (priority-ordered by list position within the tier); any
// other condition becomes a single Goal. `__PERSIST` and
// `__ONE_STEP_TOWARDS`, attached to the conjunct (or the whole
// condition) they trail, set IsPersistent/OneStepTowards.
func parseGoalBlock(goalExpr SExpr, ctx *parseCtx) ([]goal.Goal, error) {
	if goalExpr.Head() == "and" && len(goalExpr.List) > 0 && goalExpr.List[0].Sentinel == "__ORDERED" {
		conjuncts := goalExpr.Tail()
		goals := make([]goal.Goal, 0, len(conjuncts))
		for _, c := range conjuncts {
			g, err := buildGoal(c, ctx, "ordered_goals")
			if err != nil {
				return nil, err
			}
			goals = append(goals, g)
		}
		return goals, nil
	}
	g, err := buildGoal(goalExpr, ctx, "")
	if err != nil {
		return nil, err
	}
	return []goal.Goal{g}, nil
}

func buildGoal(c SExpr, ctx *parseCtx, groupID string) (goal.Goal, error) {
	cond, err := parseCondition(c, ctx)
	if err != nil {
		return goal.Goal{}, err
	}
	g := goal.Goal{Objective: cond, Label: c.String(), GroupID: groupID}
	g.EnsureGroupID()
	switch c.Sentinel {
	case "__PERSIST":
		g.IsPersistent = true
	case "__ONE_STEP_TOWARDS":
		g.OneStepTowards = true
	}
	return g, nil
}
