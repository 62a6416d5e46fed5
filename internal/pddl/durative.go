package pddl

import (
	"github.com/carloacu/goalplanner/internal/action"
	"github.com/carloacu/goalplanner/internal/ontology"
	"github.com/carloacu/goalplanner/internal/world"
)

// parseDurativeActionBlock parses `(:durative-action NAME :parameters …
// :duration (= ?duration N) :condition (…) :effect (…))`.
//
// This planner applies an action's effect atomically on notification
// rather than simulating elapsed time, so there is no separate instant
// for "at end" to be checked against a changed world state: at-start and
// at-end conditions are folded into Action.Precondition (both must hold
// at the single point the action is judged applicable), over-all stays
// Action.OverAllCondition (used by the parallelizer's non-conflict
// check), at-start effects populate Effect.WorldStateModificationAtStart
// and at-end effects populate Effect.WorldStateModification. Documented
// as a deliberate simplification.
func parseDurativeActionBlock(block SExpr, ctx *parseCtx) (string, action.Action, error) {
	children := block.Tail()
	if len(children) == 0 || !children[0].IsAtom {
		return "", action.Action{}, parseError(block.Offset, "expected a durative-action name")
	}
	name := children[0].Atom

	var params []ontology.Parameter
	if paramsExpr, ok := block.Find(":parameters"); ok {
		var err error
		params, err = parseParameterList(paramsExpr, ctx.ont)
		if err != nil {
			return "", action.Action{}, err
		}
	}
	actionCtx := ctx.withParams(params)

	a := action.Action{ID: name, Parameters: params}

	if durExpr, ok := block.Find(":duration"); ok {
		if durExpr.IsAtom || len(durExpr.List) != 3 || durExpr.List[0].Atom != "=" {
			return "", action.Action{}, parseError(durExpr.Offset, "expected (= ?duration <expr>)")
		}
		expr, err := parseNumericExpr(durExpr.List[2], actionCtx)
		if err != nil {
			return "", action.Action{}, err
		}
		a.Duration = expr
	}

	if condExpr, ok := block.Find(":condition"); ok {
		start, over, end, err := splitDurativeCondition(condExpr, actionCtx)
		if err != nil {
			return "", action.Action{}, err
		}
		a.Precondition = combineConditions(start, end)
		a.OverAllCondition = over
	}

	if effExpr, ok := block.Find(":effect"); ok {
		start, end, err := splitDurativeEffect(effExpr, actionCtx)
		if err != nil {
			return "", action.Action{}, err
		}
		a.Effect.WorldStateModificationAtStart = start
		a.Effect.WorldStateModification = end
	}

	return name, a, nil
}

func combineConditions(conds ...world.Condition) world.Condition {
	var present []world.Condition
	for _, c := range conds {
		if c != nil {
			present = append(present, c)
		}
	}
	switch len(present) {
	case 0:
		return nil
	case 1:
		return present[0]
	default:
		return world.AndCondition{Conditions: present}
	}
}

func classifyDurativePhase(s SExpr) (phase string, inner SExpr, ok bool) {
	if s.IsAtom || len(s.List) != 3 || !s.List[0].IsAtom || !s.List[1].IsAtom {
		return "", SExpr{}, false
	}
	switch {
	case s.List[0].Atom == "at" && s.List[1].Atom == "start":
		return "start", s.List[2], true
	case s.List[0].Atom == "at" && s.List[1].Atom == "end":
		return "end", s.List[2], true
	case s.List[0].Atom == "over" && s.List[1].Atom == "all":
		return "all", s.List[2], true
	default:
		return "", SExpr{}, false
	}
}

func durativeClauses(s SExpr) []SExpr {
	if s.Head() == "and" {
		return s.Tail()
	}
	return []SExpr{s}
}

func splitDurativeCondition(s SExpr, ctx *parseCtx) (start, over, end world.Condition, err error) {
	var starts, overs, ends []world.Condition
	for _, clause := range durativeClauses(s) {
		phase, inner, ok := classifyDurativePhase(clause)
		if !ok {
			return nil, nil, nil, parseError(clause.Offset, "expected (at start C), (at end C) or (over all C)")
		}
		c, perr := parseCondition(inner, ctx)
		if perr != nil {
			return nil, nil, nil, perr
		}
		switch phase {
		case "start":
			starts = append(starts, c)
		case "all":
			overs = append(overs, c)
		case "end":
			ends = append(ends, c)
		}
	}
	return combineConditions(starts...), combineConditions(overs...), combineConditions(ends...), nil
}

func splitDurativeEffect(s SExpr, ctx *parseCtx) (start, end world.WorldStateModification, err error) {
	var starts, ends []world.WorldStateModification
	for _, clause := range durativeClauses(s) {
		if clause.IsAtom || len(clause.List) != 3 || !clause.List[0].IsAtom || clause.List[0].Atom != "at" || !clause.List[1].IsAtom {
			return nil, nil, parseError(clause.Offset, "expected (at start E) or (at end E)")
		}
		m, perr := parseWSM(clause.List[2], ctx)
		if perr != nil {
			return nil, nil, perr
		}
		switch clause.List[1].Atom {
		case "start":
			starts = append(starts, m)
		case "end":
			ends = append(ends, m)
		default:
			return nil, nil, parseError(clause.Offset, "durative effect phase must be 'start' or 'end'")
		}
	}
	return combineMods(starts), combineMods(ends), nil
}

func combineMods(mods []world.WorldStateModification) world.WorldStateModification {
	if len(mods) == 0 {
		return nil
	}
	if len(mods) == 1 {
		return mods[0]
	}
	return world.AndMod{Mods: mods}
}

// parseAxiomBlock parses `(:axiom :vars (…) :context <cond> :implies
// <fact>)`; the compilation into the from_axiom/from_axiom_2 event
// pair is action.Axiom.Compile.
func parseAxiomBlock(block SExpr, ctx *parseCtx) (action.Axiom, error) {
	varsExpr, ok := block.Find(":vars")
	var params []ontology.Parameter
	if ok {
		var err error
		params, err = parseParameterList(varsExpr, ctx.ont)
		if err != nil {
			return action.Axiom{}, err
		}
	}
	axiomCtx := ctx.withParams(params)

	contextExpr, ok := block.Find(":context")
	if !ok {
		return action.Axiom{}, parseError(block.Offset, "axiom missing :context")
	}
	context, err := parseCondition(contextExpr, axiomCtx)
	if err != nil {
		return action.Axiom{}, err
	}

	impliesExpr, ok := block.Find(":implies")
	if !ok {
		return action.Axiom{}, parseError(block.Offset, "axiom missing :implies")
	}
	implies, err := parseFactPattern(impliesExpr, axiomCtx)
	if err != nil {
		return action.Axiom{}, err
	}

	return action.Axiom{Vars: params, Context: context, Implies: implies}, nil
}
