package pddl

import "github.com/carloacu/goalplanner/internal/world"

// parseGroundFact parses one `:init`/`:timeless` entry: either a bare
// predicate application (a boolean fact) or `(= (fluent args) value)`
// (a fluent equation). ok is false when value is the literal
// `undefined`, meaning "assert nothing" — a retraction is vacuous for
// a fact that was never asserted in the first place.
func parseGroundFact(s SExpr, ctx *parseCtx) (fact world.Fact, ok bool, err error) {
	if s.Head() == "=" {
		if len(s.List) != 3 {
			return world.Fact{}, false, parseError(s.Offset, "'=' expects a fluent access and a value")
		}
		leftFact, err := parseFactPattern(s.List[1], ctx)
		if err != nil {
			return world.Fact{}, false, err
		}
		pred := ctx.ont.Predicate(leftFact.Predicate)
		if !pred.IsFluent() {
			return world.Fact{}, false, parseError(s.List[1].Offset, "predicate %q is not a fluent", pred.Name)
		}
		right := s.List[2]
		if !right.IsAtom {
			return world.Fact{}, false, parseError(right.Offset, "expected a value")
		}
		if right.Atom == world.Undefined {
			return world.Fact{}, false, nil
		}
		valTerm, err := parseTerm(right, pred.Fluent, ctx)
		if err != nil {
			return world.Fact{}, false, err
		}
		if valTerm.IsParam {
			return world.Fact{}, false, parseError(right.Offset, "fluent value must be ground, got parameter %q", valTerm.Value)
		}
		leftFact.Fluent = &valTerm
		return leftFact, true, nil
	}
	fact, err = parseFactPattern(s, ctx)
	if err != nil {
		return world.Fact{}, false, err
	}
	return fact, true, nil
}

func andAddFacts(facts []world.Fact) world.WorldStateModification {
	mods := make([]world.WorldStateModification, len(facts))
	for i, f := range facts {
		mods[i] = world.AddFactMod{Fact: f}
	}
	return world.AndMod{Mods: mods}
}
