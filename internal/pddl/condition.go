package pddl

import (
	"fmt"
	"strings"

	"github.com/carloacu/goalplanner/internal/world"
)

// parseCondition parses the boolean/quantified/numeric formula grammar
// ("and", "or", "not", "imply", "exists", "forall", the six
// comparison operators, and a bare predicate application) into a
// world.Condition tree. An empty list `()` is the trivially-true
// precondition.
func parseCondition(s SExpr, ctx *parseCtx) (world.Condition, error) {
	if s.IsAtom {
		return nil, parseError(s.Offset, "expected a condition, got atom %q", s.Atom)
	}
	if len(s.List) == 0 {
		return world.AndCondition{}, nil
	}
	head := s.List[0]
	if !head.IsAtom {
		return nil, parseError(head.Offset, "expected a condition keyword or predicate name")
	}

	switch head.Atom {
	case "and":
		conds := make([]world.Condition, 0, len(s.List)-1)
		for _, c := range s.List[1:] {
			cc, err := parseCondition(c, ctx)
			if err != nil {
				return nil, err
			}
			conds = append(conds, cc)
		}
		return world.AndCondition{Conditions: conds}, nil

	case "or":
		conds := make([]world.Condition, 0, len(s.List)-1)
		for _, c := range s.List[1:] {
			cc, err := parseCondition(c, ctx)
			if err != nil {
				return nil, err
			}
			conds = append(conds, cc)
		}
		return world.OrCondition{Conditions: conds}, nil

	case "not":
		if len(s.List) != 2 {
			return nil, parseError(s.Offset, "'not' expects exactly one argument")
		}
		inner, err := parseCondition(s.List[1], ctx)
		if err != nil {
			return nil, err
		}
		if fc, ok := inner.(world.FactCondition); ok {
			return world.FactCondition{Fact: fc.Fact, Negated: !fc.Negated}, nil
		}
		return world.NotCondition{Condition: inner}, nil

	case "imply":
		if len(s.List) != 3 {
			return nil, parseError(s.Offset, "'imply' expects exactly two arguments")
		}
		a, err := parseCondition(s.List[1], ctx)
		if err != nil {
			return nil, err
		}
		b, err := parseCondition(s.List[2], ctx)
		if err != nil {
			return nil, err
		}
		return world.ImplyCondition{A: a, B: b}, nil

	case "exists", "forall":
		if len(s.List) != 3 {
			return nil, parseError(s.Offset, "%q expects a variable list and a condition", head.Atom)
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
		body, err := parseCondition(s.List[2], inner)
		if err != nil {
			return nil, err
		}
		result := body
		for i := len(params) - 1; i >= 0; i-- {
			if head.Atom == "exists" {
				result = world.ExistsCondition{Var: params[i], Condition: result}
			} else {
				result = world.ForallCondition{Var: params[i], Condition: result}
			}
		}
		return result, nil

	case "=", "!=", "<", "<=", ">", ">=":
		if len(s.List) != 3 {
			return nil, parseError(s.Offset, "%q expects exactly two arguments", head.Atom)
		}
		op := world.CompareOp(head.Atom)
		leftFact, err := parseFluentAccessPattern(s.List[1], ctx)
		if err != nil {
			return nil, err
		}
		right := s.List[2]

		if right.IsAtom && right.Atom == world.Undefined {
			if op != world.OpEq && op != world.OpNe {
				return nil, parseError(right.Offset, "%q is only meaningful with = or !=", world.Undefined)
			}
			return world.FluentEqualityCondition{Left: leftFact, RightUndefined: true, Negated: op == world.OpNe}, nil
		}

		if (op == world.OpEq || op == world.OpNe) && looksLikeFluentAccess(right, ctx) {
			rightFact, err := parseFluentAccessPattern(right, ctx)
			if err == nil {
				return world.FluentEqualityCondition{Left: leftFact, Right: rightFact, Negated: op == world.OpNe}, nil
			}
		}

		expr, err := parseNumericExpr(right, ctx)
		if err != nil {
			return nil, err
		}
		return world.NumericCompareCondition{Op: op, Fluent: leftFact, Expr: expr}, nil

	default:
		fact, err := parseFactPattern(s, ctx)
		if err != nil {
			return nil, err
		}
		return world.FactCondition{Fact: fact}, nil
	}
}

func looksLikeFluentAccess(s SExpr, ctx *parseCtx) bool {
	if s.IsAtom || len(s.List) == 0 || !s.List[0].IsAtom {
		return false
	}
	predID, ok := ctx.ont.PredicateByName(s.List[0].Atom)
	if !ok {
		return false
	}
	return ctx.ont.Predicate(predID).IsFluent()
}

// parseNumericExpr parses the arithmetic grammar used by :duration and
// the right-hand side of Assign/Increase/Decrease/Multiply: nested
// `(+ - * /)` applications over numeric literals, bound parameters, and
// fluent-access patterns. The result compiles straight to an expr-lang
// source string (github.com/expr-lang/expr, per the domain-stack
// wiring), with fluent accesses substituted through NumericExpr.FluentRefs
// at evaluation time rather than resolved here.
func parseNumericExpr(s SExpr, ctx *parseCtx) (world.NumericExpr, error) {
	b := &numericBuilder{ctx: ctx, fluentRefs: map[string]world.Fact{}}
	src, err := b.build(s)
	if err != nil {
		return world.NumericExpr{}, err
	}
	return world.NumericExpr{Source: src, FluentRefs: b.fluentRefs}, nil
}

type numericBuilder struct {
	ctx        *parseCtx
	fluentRefs map[string]world.Fact
	counter    int
}

func (b *numericBuilder) build(s SExpr) (string, error) {
	if s.IsAtom {
		text := s.Atom
		if strings.HasPrefix(text, "?") {
			if _, ok := b.ctx.params[text]; !ok {
				return "", parseError(s.Offset, "unknown parameter reference %q", text)
			}
			return world.SanitizeIdent(text), nil
		}
		if isNumericLiteral(text) {
			return text, nil
		}
		return "", parseError(s.Offset, "expected a number or bound parameter, got %q", text)
	}
	if len(s.List) == 0 {
		return "", parseError(s.Offset, "expected a numeric expression")
	}
	head := s.List[0]
	if head.IsAtom {
		switch head.Atom {
		case "+", "-", "*", "/":
			if head.Atom == "-" && len(s.List) == 2 {
				inner, err := b.build(s.List[1])
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("(-(%s))", inner), nil
			}
			if len(s.List) < 3 {
				return "", parseError(s.Offset, "%q expects at least two operands", head.Atom)
			}
			parts := make([]string, 0, len(s.List)-1)
			for _, c := range s.List[1:] {
				p, err := b.build(c)
				if err != nil {
					return "", err
				}
				parts = append(parts, "("+p+")")
			}
			return "(" + strings.Join(parts, " "+head.Atom+" ") + ")", nil
		}
	}

	fact, err := parseFluentAccessPattern(s, b.ctx)
	if err != nil {
		return "", err
	}
	ident := fmt.Sprintf("f%d", b.counter)
	b.counter++
	b.fluentRefs[ident] = fact
	return ident, nil
}
