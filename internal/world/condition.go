package world

import "github.com/carloacu/goalplanner/internal/ontology"

// CompareOp is a numeric comparison operator.
type CompareOp string

const (
	OpEq CompareOp = "="
	OpNe CompareOp = "!="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

// Condition is the boolean/quantified/numeric formula language.
// Implemented as an interface with one concrete struct per tagged
// variant; Go has no algebraic enum, but interfaces with exhaustive
// type switches give the same guarantee at the call site.
type Condition interface {
	condition()
	// Bind returns a copy of the condition with every free parameter
	// substituted according to bindings.
	Bind(bindings map[string]Term) Condition
}

// FactCondition is an atomic fact, optionally negated.
type FactCondition struct {
	Fact    Fact
	Negated bool
}

func (FactCondition) condition() {}
func (c FactCondition) Bind(b map[string]Term) Condition {
	return FactCondition{Fact: c.Fact.Bind(b), Negated: c.Negated}
}

// AndCondition is the conjunction of its children, evaluated with
// short-circuit and binding propagation across conjuncts.
type AndCondition struct{ Conditions []Condition }

func (AndCondition) condition() {}
func (c AndCondition) Bind(b map[string]Term) Condition {
	out := make([]Condition, len(c.Conditions))
	for i, sub := range c.Conditions {
		out[i] = sub.Bind(b)
	}
	return AndCondition{Conditions: out}
}

// OrCondition succeeds if any disjunct succeeds; bindings come from the
// first succeeding disjunct.
type OrCondition struct{ Conditions []Condition }

func (OrCondition) condition() {}
func (c OrCondition) Bind(b map[string]Term) Condition {
	out := make([]Condition, len(c.Conditions))
	for i, sub := range c.Conditions {
		out[i] = sub.Bind(b)
	}
	return OrCondition{Conditions: out}
}

// NotCondition succeeds iff no binding extension satisfies Condition;
// never augments bindings.
type NotCondition struct{ Condition Condition }

func (NotCondition) condition() {}
func (c NotCondition) Bind(b map[string]Term) Condition {
	return NotCondition{Condition: c.Condition.Bind(b)}
}

// ImplyCondition is material implication A => B.
type ImplyCondition struct{ A, B Condition }

func (ImplyCondition) condition() {}
func (c ImplyCondition) Bind(b map[string]Term) Condition {
	return ImplyCondition{A: c.A.Bind(b), B: c.B.Bind(b)}
}

// ExistsCondition succeeds if some entity of Var's type satisfies
// Condition once bound to Var.
type ExistsCondition struct {
	Var       ontology.Parameter
	Condition Condition
}

func (ExistsCondition) condition() {}
func (c ExistsCondition) Bind(b map[string]Term) Condition {
	inner := withoutKey(b, c.Var.Name)
	return ExistsCondition{Var: c.Var, Condition: c.Condition.Bind(inner)}
}

// ForallCondition succeeds iff every entity of Var's type satisfies
// Condition once bound to Var.
type ForallCondition struct {
	Var       ontology.Parameter
	Condition Condition
}

func (ForallCondition) condition() {}
func (c ForallCondition) Bind(b map[string]Term) Condition {
	inner := withoutKey(b, c.Var.Name)
	return ForallCondition{Var: c.Var, Condition: c.Condition.Bind(inner)}
}

// NumericCompareCondition compares a fluent access against an
// arithmetic expression.
type NumericCompareCondition struct {
	Op     CompareOp
	Fluent Fact // a fluent-predicate Fact pattern; Fact.Fluent is the accessed value placeholder
	Expr   NumericExpr
}

func (NumericCompareCondition) condition() {}
func (c NumericCompareCondition) Bind(b map[string]Term) Condition {
	return NumericCompareCondition{Op: c.Op, Fluent: c.Fluent.Bind(b), Expr: c.Expr}
}

// FluentEqualityCondition is equality between two fluent accesses,
// including the special value `undefined`.
type FluentEqualityCondition struct {
	Left           Fact
	Right          Fact
	RightUndefined bool
	Negated        bool
}

func (FluentEqualityCondition) condition() {}
func (c FluentEqualityCondition) Bind(b map[string]Term) Condition {
	return FluentEqualityCondition{
		Left: c.Left.Bind(b), Right: c.Right.Bind(b),
		RightUndefined: c.RightUndefined, Negated: c.Negated,
	}
}

func withoutKey(b map[string]Term, key string) map[string]Term {
	if _, ok := b[key]; !ok {
		return b
	}
	out := make(map[string]Term, len(b))
	for k, v := range b {
		if k != key {
			out[k] = v
		}
	}
	return out
}

func copyBindings(b map[string]Term) map[string]Term {
	out := make(map[string]Term, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}
