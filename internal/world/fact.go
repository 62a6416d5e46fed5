// Package world implements the fact store, the condition/effect
// language, and the world-state mutation engine: Fact, FactsMapping,
// Condition, WorldStateModification, WorldState.
package world

import (
	"fmt"
	"strings"

	"github.com/carloacu/goalplanner/internal/ontology"
)

// Term is either a ground value (a constant/entity) or a named
// placeholder awaiting unification. Conditions and effects hold Terms
// in argument/fluent position; a Fact is "ground" when every Term it
// carries is a value. Collapsing Entity and Parameter into one type
// lets a single AST node represent both a pattern (inside a
// Condition/WorldStateModification) and, once bound, a concrete Fact,
// with no separate pattern type.
type Term struct {
	IsParam bool
	Value   string // entity value when !IsParam, parameter name when IsParam
	Type    ontology.TypeID
}

// Const builds a ground Term.
func Const(value string, t ontology.TypeID) Term {
	return Term{Value: value, Type: t}
}

// Param builds a placeholder Term.
func Param(name string, t ontology.TypeID) Term {
	return Term{IsParam: true, Value: name, Type: t}
}

// Undefined is the sentinel fluent value meaning "no mapping exists".
const Undefined = "undefined"

// Fact is a ground or pattern atom: either a boolean-predicate
// membership `pred(args)`, or a fluent equation `pred(args)=v` /
// `pred(args)!=v` when Fluent is set.
type Fact struct {
	Predicate     ontology.PredicateID
	Args          []Term
	Fluent        *Term // nil for boolean predicate usage
	FluentNegated bool  // true renders as pred(args)!=v
}

// IsGround reports whether every Term in f is a concrete value (no
// parameter placeholders remain).
func (f Fact) IsGround() bool {
	return f.ArgsGround() && (f.Fluent == nil || !f.Fluent.IsParam)
}

// ArgsGround reports whether every argument Term is a concrete value,
// ignoring the Fluent slot. A fluent-access pattern used inside a
// NumericCompareCondition/FluentEqualityCondition carries an unbound
// placeholder Term in Fluent purely to name the value being looked up
// — it is never meant to be bound before the lookup happens; only the
// argument tuple identifying which equation to read needs to be
// ground.
func (f Fact) ArgsGround() bool {
	for _, a := range f.Args {
		if a.IsParam {
			return false
		}
	}
	return true
}

// IsBoolean reports whether f is a membership fact rather than a
// fluent equation.
func (f Fact) IsBoolean() bool { return f.Fluent == nil }

// key is the canonical identity of a fact within a FactsMapping: the
// predicate plus its *argument* values, deliberately excluding the
// fluent value, since at most one fluent value can be associated with
// a given argument tuple.
func (f Fact) key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", f.Predicate)
	for _, a := range f.Args {
		b.WriteByte('|')
		b.WriteString(a.Value)
	}
	return b.String()
}

// Signature is the fact's type signature as used for FactsMapping
// bucket indexing. The PredicateID already encodes name, arity, and
// fluent presence uniquely under single-inheritance declarations, so
// it serves directly, with no derived textual
// "predicate(Type1, Type2)=FluentType" form (see DESIGN.md).
func (f Fact) Signature() ontology.PredicateID { return f.Predicate }

// String renders the textual form used by plan emission:
// pred(a,b), pred(a,b)=v, pred(a,b)!=v.
func (f Fact) String(ont *ontology.Ontology) string {
	pred := ont.Predicate(f.Predicate)
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.Value
	}
	base := fmt.Sprintf("%s(%s)", pred.Name, strings.Join(args, ","))
	if f.Fluent == nil {
		return base
	}
	if f.FluentNegated {
		return base + "!=" + f.Fluent.Value
	}
	return base + "=" + f.Fluent.Value
}

// Bind substitutes every parameter Term whose name is present in
// bindings with the bound ground value, returning a new Fact.
func (f Fact) Bind(bindings map[string]Term) Fact {
	out := Fact{Predicate: f.Predicate, FluentNegated: f.FluentNegated}
	out.Args = make([]Term, len(f.Args))
	for i, a := range f.Args {
		out.Args[i] = bindTerm(a, bindings)
	}
	if f.Fluent != nil {
		bound := bindTerm(*f.Fluent, bindings)
		out.Fluent = &bound
	}
	return out
}

func bindTerm(t Term, bindings map[string]Term) Term {
	if !t.IsParam {
		return t
	}
	if bound, ok := bindings[t.Value]; ok {
		return bound
	}
	return t
}

// ParamNames returns every distinct parameter name referenced by f, in
// first-seen order — used by unification to know what it still needs
// to resolve.
func (f Fact) ParamNames() []string {
	var out []string
	seen := map[string]bool{}
	add := func(t Term) {
		if t.IsParam && !seen[t.Value] {
			seen[t.Value] = true
			out = append(out, t.Value)
		}
	}
	for _, a := range f.Args {
		add(a)
	}
	if f.Fluent != nil {
		add(*f.Fluent)
	}
	return out
}
