// Package domain implements the operator collection a problem plans
// against: Domain (actions, event sets, succession cache), Problem
// (domain + live world state + goal stack + historical), and the
// succession cache itself.
package domain

import (
	"github.com/carloacu/goalplanner/internal/ontology"
	"github.com/carloacu/goalplanner/internal/world"
)

// literal is a predicate reference with a polarity, the unit the
// succession cache reasons about. Parameters and argument values are
// deliberately erased — the cache prunes at the granularity of "could
// this operator possibly help", not "does this exact grounding help";
// it is a purely predicate-level, not argument-level, relation.
type literal struct {
	pred     ontology.PredicateID
	positive bool
}

// preconditionLiterals collects every fact reference a condition makes,
// with the polarity it requires to be true.
func preconditionLiterals(c world.Condition) []literal {
	var out []literal
	collectPreconditionLiterals(c, true, &out)
	return out
}

func collectPreconditionLiterals(c world.Condition, positive bool, out *[]literal) {
	if c == nil {
		return
	}
	switch n := c.(type) {
	case world.FactCondition:
		*out = append(*out, literal{pred: n.Fact.Predicate, positive: positive != n.Negated})
	case world.AndCondition:
		for _, sub := range n.Conditions {
			collectPreconditionLiterals(sub, positive, out)
		}
	case world.OrCondition:
		for _, sub := range n.Conditions {
			collectPreconditionLiterals(sub, positive, out)
		}
	case world.NotCondition:
		collectPreconditionLiterals(n.Condition, !positive, out)
	case world.ImplyCondition:
		collectPreconditionLiterals(n.A, !positive, out)
		collectPreconditionLiterals(n.B, positive, out)
	case world.ExistsCondition:
		collectPreconditionLiterals(n.Condition, positive, out)
	case world.ForallCondition:
		collectPreconditionLiterals(n.Condition, positive, out)
	case world.NumericCompareCondition:
		*out = append(*out, literal{pred: n.Fluent.Predicate, positive: true})
	case world.FluentEqualityCondition:
		*out = append(*out, literal{pred: n.Left.Predicate, positive: positive != n.Negated})
		if !n.RightUndefined {
			*out = append(*out, literal{pred: n.Right.Predicate, positive: positive != n.Negated})
		}
	}
}

// effectLiterals collects every fact an effect might newly add or
// remove — conditional branches included, since the cache cares about
// what *can* happen, not what is guaranteed to.
func effectLiterals(wsm world.WorldStateModification) []literal {
	var out []literal
	collectEffectLiterals(wsm, &out)
	return out
}

func collectEffectLiterals(wsm world.WorldStateModification, out *[]literal) {
	if wsm == nil {
		return
	}
	switch m := wsm.(type) {
	case world.AddFactMod:
		*out = append(*out, literal{pred: m.Fact.Predicate, positive: true})
	case world.DeleteFactMod:
		*out = append(*out, literal{pred: m.Fact.Predicate, positive: false})
	case world.AssignMod:
		*out = append(*out, literal{pred: m.Fluent.Predicate, positive: true}, literal{pred: m.Fluent.Predicate, positive: false})
	case world.ArithMod:
		*out = append(*out, literal{pred: m.Fluent.Predicate, positive: true}, literal{pred: m.Fluent.Predicate, positive: false})
	case world.WhenMod:
		collectEffectLiterals(m.Then, out)
	case world.ForallMod:
		collectEffectLiterals(m.Then, out)
	case world.AndMod:
		for _, sub := range m.Mods {
			collectEffectLiterals(sub, out)
		}
	}
}
