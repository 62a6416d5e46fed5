package pddl

import "github.com/carloacu/goalplanner/internal/world"

// parseWSM parses the effect grammar: a bare predicate
// application asserts a fact, `(not F)` retracts one, `(and ...)`
// concatenates, `(when C E)` conditions on C, `(forall (vars) E)`
// repeats per entity, and `(= (fluent args) v)` /
// `(increase|decrease|multiply (fluent args) expr)` mutate a fluent
// equation.
func parseWSM(s SExpr, ctx *parseCtx) (world.WorldStateModification, error) {
	if s.IsAtom {
		return nil, parseError(s.Offset, "expected an effect, got atom %q", s.Atom)
	}
	if len(s.List) == 0 {
		return world.AndMod{}, nil
	}
	head := s.List[0]
	if !head.IsAtom {
		return nil, parseError(head.Offset, "expected an effect keyword or predicate name")
	}

	switch head.Atom {
	case "and":
		mods := make([]world.WorldStateModification, 0, len(s.List)-1)
		for _, c := range s.List[1:] {
			m, err := parseWSM(c, ctx)
			if err != nil {
				return nil, err
			}
			mods = append(mods, m)
		}
		return world.AndMod{Mods: mods}, nil

	case "not":
		if len(s.List) != 2 {
			return nil, parseError(s.Offset, "'not' expects exactly one argument")
		}
		fact, err := parseFactPattern(s.List[1], ctx)
		if err != nil {
			return nil, err
		}
		return world.DeleteFactMod{Fact: fact}, nil

	case "when":
		if len(s.List) != 3 {
			return nil, parseError(s.Offset, "'when' expects a condition and an effect")
		}
		cond, err := parseCondition(s.List[1], ctx)
		if err != nil {
			return nil, err
		}
		then, err := parseWSM(s.List[2], ctx)
		if err != nil {
			return nil, err
		}
		return world.WhenMod{Cond: cond, Then: then}, nil

	case "forall":
		if len(s.List) != 3 {
			return nil, parseError(s.Offset, "'forall' expects a variable list and an effect")
		}
		varList := s.List[1]
		if varList.IsAtom {
			return nil, parseError(varList.Offset, "expected a typed variable list")
		}
		params, err := parseParamItems(varList.List, ctx.ont)
		if err != nil {
			return nil, err
		}
		inner := ctx.withParams(params)
		body, err := parseWSM(s.List[2], inner)
		if err != nil {
			return nil, err
		}
		var result world.WorldStateModification = body
		for i := len(params) - 1; i >= 0; i-- {
			result = world.ForallMod{Var: params[i], Then: result}
		}
		return result, nil

	case "=":
		if len(s.List) != 3 {
			return nil, parseError(s.Offset, "'=' expects a fluent access and a value")
		}
		fluent, err := parseFluentAccessPattern(s.List[1], ctx)
		if err != nil {
			return nil, err
		}
		right := s.List[2]
		if right.IsAtom && right.Atom == world.Undefined {
			return world.AssignMod{Fluent: fluent, ToUndefined: true}, nil
		}
		expr, err := parseNumericExpr(right, ctx)
		if err != nil {
			return nil, err
		}
		return world.AssignMod{Fluent: fluent, Expr: expr}, nil

	case "increase", "decrease", "multiply":
		if len(s.List) != 3 {
			return nil, parseError(s.Offset, "%q expects a fluent access and a value", head.Atom)
		}
		fluent, err := parseFluentAccessPattern(s.List[1], ctx)
		if err != nil {
			return nil, err
		}
		expr, err := parseNumericExpr(s.List[2], ctx)
		if err != nil {
			return nil, err
		}
		return world.ArithMod{Op: world.ArithOp(head.Atom), Fluent: fluent, Expr: expr}, nil

	default:
		fact, err := parseFactPattern(s, ctx)
		if err != nil {
			return nil, err
		}
		return world.AddFactMod{Fact: fact}, nil
	}
}
