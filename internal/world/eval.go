package world

import "github.com/carloacu/goalplanner/internal/ontology"

// EvalContext bundles the read-only state Condition evaluation needs:
// the fact store, the type ontology (for Exists/Forall ranging), and
// the problem's entities (constants and objects alike).
type EvalContext struct {
	Facts    *FactsMapping
	Ont      *ontology.Ontology
	Entities *ontology.SetOfEntities
}

// ResolveFluent implements NumericExpr's FluentResolver, satisfying a
// ground fluent-access pattern against the fact store.
func (ctx *EvalContext) ResolveFluent(pattern Fact, _ map[string]Term) (NumericValue, bool) {
	val, ok := ctx.Facts.FluentValue(pattern)
	if !ok {
		return UndefinedValue, false
	}
	return ParseNumeric(val.Value), true
}

// Eval evaluates c against the fact store under the given bindings.
// The returned slice holds every binding
// extension that satisfies condition; it is empty when truth is false.
// When condition cannot introduce new bindings (Not, Forall, numeric
// comparisons, ...) and succeeds, the single-element slice containing
// the input bindings is returned.
func Eval(c Condition, ctx *EvalContext, bindings map[string]Term) (bool, []map[string]Term) {
	switch cond := c.(type) {
	case FactCondition:
		return evalFact(cond, ctx, bindings)
	case AndCondition:
		return evalAnd(cond, ctx, bindings)
	case OrCondition:
		return evalOr(cond, ctx, bindings)
	case NotCondition:
		ok, _ := EvalAny(cond.Condition, ctx, bindings)
		if ok {
			return false, nil
		}
		return true, []map[string]Term{bindings}
	case ImplyCondition:
		aHolds, _ := EvalAny(cond.A, ctx, bindings)
		if !aHolds {
			return true, []map[string]Term{bindings}
		}
		return Eval(cond.B, ctx, bindings)
	case ExistsCondition:
		return evalExists(cond, ctx, bindings)
	case ForallCondition:
		ok := evalForall(cond, ctx, bindings)
		if !ok {
			return false, nil
		}
		return true, []map[string]Term{bindings}
	case NumericCompareCondition:
		ok := evalNumericCompare(cond, ctx, bindings)
		if !ok {
			return false, nil
		}
		return true, []map[string]Term{bindings}
	case FluentEqualityCondition:
		ok := evalFluentEquality(cond, ctx, bindings)
		if !ok {
			return false, nil
		}
		return true, []map[string]Term{bindings}
	default:
		return false, nil
	}
}

// EvalAny is Eval's boolean-only projection, used wherever a condition
// is checked without needing its bindings (Not, Imply's antecedent,
// precondition satisfaction checks).
func EvalAny(c Condition, ctx *EvalContext, bindings map[string]Term) (bool, map[string]Term) {
	ok, exts := Eval(c, ctx, bindings)
	if !ok || len(exts) == 0 {
		return ok, bindings
	}
	return true, exts[0]
}

func evalFact(cond FactCondition, ctx *EvalContext, bindings map[string]Term) (bool, []map[string]Term) {
	pattern := cond.Fact.Bind(bindings)

	if cond.Negated {
		// Succeeds only when no binding extension makes the fact hold —
		// the generic Not semantics phrased on the atomic-fact shorthand.
		any, _ := evalFact(FactCondition{Fact: pattern}, ctx, bindings)
		if any {
			return false, nil
		}
		return true, []map[string]Term{bindings}
	}

	if pattern.IsGround() {
		if ctx.Facts.Has(pattern) {
			return true, []map[string]Term{bindings}
		}
		return false, nil
	}

	var exts []map[string]Term
	for _, fact := range ctx.Facts.Find(pattern) {
		if ext, ok := unifyFact(pattern, fact, bindings); ok {
			exts = append(exts, ext)
		}
	}
	return len(exts) > 0, exts
}

func unifyFact(pattern, fact Fact, bindings map[string]Term) (map[string]Term, bool) {
	ext := copyBindings(bindings)
	for i, a := range pattern.Args {
		if i >= len(fact.Args) {
			return nil, false
		}
		if a.IsParam {
			if existing, ok := ext[a.Value]; ok {
				if existing.Value != fact.Args[i].Value {
					return nil, false
				}
			} else {
				ext[a.Value] = fact.Args[i]
			}
		} else if a.Value != ontology.AnyValue && a.Value != fact.Args[i].Value {
			return nil, false
		}
	}

	if pattern.Fluent == nil {
		return ext, true
	}
	if pattern.Fluent.IsParam {
		if fact.Fluent == nil {
			return nil, false
		}
		if existing, ok := ext[pattern.Fluent.Value]; ok {
			if existing.Value != fact.Fluent.Value {
				return nil, false
			}
		} else {
			ext[pattern.Fluent.Value] = *fact.Fluent
		}
		return ext, true
	}
	if pattern.Fluent.Value == ontology.AnyValue {
		return ext, true
	}
	matches := fact.Fluent != nil && fact.Fluent.Value == pattern.Fluent.Value
	if pattern.FluentNegated {
		matches = !matches
	}
	if !matches {
		return nil, false
	}
	return ext, true
}

func evalAnd(cond AndCondition, ctx *EvalContext, bindings map[string]Term) (bool, []map[string]Term) {
	current := []map[string]Term{bindings}
	for _, sub := range cond.Conditions {
		var next []map[string]Term
		for _, b := range current {
			ok, exts := Eval(sub, ctx, b)
			if ok {
				next = append(next, exts...)
			}
		}
		if len(next) == 0 {
			return false, nil
		}
		current = next
	}
	return true, current
}

func evalOr(cond OrCondition, ctx *EvalContext, bindings map[string]Term) (bool, []map[string]Term) {
	for _, sub := range cond.Conditions {
		if ok, exts := Eval(sub, ctx, bindings); ok {
			return true, exts
		}
	}
	return false, nil
}

func evalExists(cond ExistsCondition, ctx *EvalContext, bindings map[string]Term) (bool, []map[string]Term) {
	var exts []map[string]Term
	for _, e := range candidateEntities(cond.Var, ctx) {
		extended := copyBindings(bindings)
		extended[cond.Var.Name] = Term{Value: e.Value, Type: e.Type}
		if ok, subExts := Eval(cond.Condition, ctx, extended); ok {
			exts = append(exts, subExts...)
		}
	}
	return len(exts) > 0, exts
}

func evalForall(cond ForallCondition, ctx *EvalContext, bindings map[string]Term) bool {
	for _, e := range candidateEntities(cond.Var, ctx) {
		extended := copyBindings(bindings)
		extended[cond.Var.Name] = Term{Value: e.Value, Type: e.Type}
		if ok, _ := EvalAny(cond.Condition, ctx, extended); !ok {
			return false
		}
	}
	return true
}

func candidateEntities(v ontology.Parameter, ctx *EvalContext) []ontology.Entity {
	return ctx.Entities.OfType(ctx.Ont, v.Type)
}

func evalNumericCompare(cond NumericCompareCondition, ctx *EvalContext, bindings map[string]Term) bool {
	pattern := cond.Fluent.Bind(bindings)
	if !pattern.ArgsGround() || pattern.Fluent == nil {
		return false
	}
	left, ok := ctx.ResolveFluent(pattern, bindings)
	if !ok {
		return false
	}
	right, err := cond.Expr.Eval(bindings, ctx)
	if err != nil || !right.Defined {
		return false
	}
	return compareNumeric(cond.Op, left.AsFloat64(), right.AsFloat64())
}

func compareNumeric(op CompareOp, l, r float64) bool {
	switch op {
	case OpEq:
		return l == r
	case OpNe:
		return l != r
	case OpLt:
		return l < r
	case OpLe:
		return l <= r
	case OpGt:
		return l > r
	case OpGe:
		return l >= r
	default:
		return false
	}
}

func evalFluentEquality(cond FluentEqualityCondition, ctx *EvalContext, bindings map[string]Term) bool {
	left := cond.Left.Bind(bindings)
	if !left.ArgsGround() || left.Fluent == nil {
		return false
	}
	leftVal, leftOk := ctx.ResolveFluent(left, bindings)

	if cond.RightUndefined {
		eq := !leftOk
		if cond.Negated {
			return !eq
		}
		return eq
	}

	right := cond.Right.Bind(bindings)
	if !right.ArgsGround() || right.Fluent == nil {
		return false
	}
	rightVal, rightOk := ctx.ResolveFluent(right, bindings)

	if !leftOk || !rightOk {
		return false
	}
	eq := leftVal.AsFloat64() == rightVal.AsFloat64()
	if cond.Negated {
		return !eq
	}
	return eq
}
