package world

import (
	"github.com/carloacu/goalplanner/internal/ontology"
	"github.com/carloacu/goalplanner/internal/perrors"
)

// ArithOp is the operator of an ArithMod.
type ArithOp string

const (
	ArithIncrease ArithOp = "increase"
	ArithDecrease ArithOp = "decrease"
	ArithMultiply ArithOp = "multiply"
)

// WorldStateModification is the effect language: Add/Delete a fact,
// Assign/Increase/Decrease/Multiply a fluent, When (conditional
// effect), Forall (universal effect), and concatenation And.
type WorldStateModification interface {
	modification()
	// Bind substitutes free parameters per bindings.
	Bind(bindings map[string]Term) WorldStateModification
}

// AddFactMod asserts a fact.
type AddFactMod struct{ Fact Fact }

func (AddFactMod) modification() {}
func (m AddFactMod) Bind(b map[string]Term) WorldStateModification {
	return AddFactMod{Fact: m.Fact.Bind(b)}
}

// DeleteFactMod retracts a fact.
type DeleteFactMod struct{ Fact Fact }

func (DeleteFactMod) modification() {}
func (m DeleteFactMod) Bind(b map[string]Term) WorldStateModification {
	return DeleteFactMod{Fact: m.Fact.Bind(b)}
}

// AssignMod sets a fluent to Expr's value; ToUndefined retracts the
// equation instead.
type AssignMod struct {
	Fluent      Fact
	Expr        NumericExpr
	ToUndefined bool
}

func (AssignMod) modification() {}
func (m AssignMod) Bind(b map[string]Term) WorldStateModification {
	return AssignMod{Fluent: m.Fluent.Bind(b), Expr: m.Expr, ToUndefined: m.ToUndefined}
}

// ArithMod applies Increase/Decrease/Multiply to a fluent.
type ArithMod struct {
	Op     ArithOp
	Fluent Fact
	Expr   NumericExpr
}

func (ArithMod) modification() {}
func (m ArithMod) Bind(b map[string]Term) WorldStateModification {
	return ArithMod{Op: m.Op, Fluent: m.Fluent.Bind(b), Expr: m.Expr}
}

// WhenMod applies Then only if Cond currently holds.
type WhenMod struct {
	Cond Condition
	Then WorldStateModification
}

func (WhenMod) modification() {}
func (m WhenMod) Bind(b map[string]Term) WorldStateModification {
	return WhenMod{Cond: m.Cond.Bind(b), Then: m.Then.Bind(b)}
}

// ForallMod applies Then once per entity of Var's type.
type ForallMod struct {
	Var  ontology.Parameter
	Then WorldStateModification
}

func (ForallMod) modification() {}
func (m ForallMod) Bind(b map[string]Term) WorldStateModification {
	inner := withoutKey(b, m.Var.Name)
	return ForallMod{Var: m.Var, Then: m.Then.Bind(inner)}
}

// AndMod concatenates modifications, applied in order.
type AndMod struct{ Mods []WorldStateModification }

func (AndMod) modification() {}
func (m AndMod) Bind(b map[string]Term) WorldStateModification {
	out := make([]WorldStateModification, len(m.Mods))
	for i, sub := range m.Mods {
		out[i] = sub.Bind(b)
	}
	return AndMod{Mods: out}
}

// CheckBound performs the static "no unbound parameter" validation
// run before a WorldStateModification is applied. It does not evaluate
// When's condition (that depends on world state at apply time); it
// only verifies every Fact/fluent literal a branch could reach only
// ever references names already in bound.
func CheckBound(wsm WorldStateModification, bound map[string]bool) error {
	switch m := wsm.(type) {
	case AddFactMod:
		return checkFactBound(m.Fact, bound)
	case DeleteFactMod:
		return checkFactBound(m.Fact, bound)
	case AssignMod:
		return checkArgsBound(m.Fluent, bound)
	case ArithMod:
		return checkArgsBound(m.Fluent, bound)
	case WhenMod:
		return CheckBound(m.Then, bound)
	case ForallMod:
		inner := make(map[string]bool, len(bound)+1)
		for k := range bound {
			inner[k] = true
		}
		inner[m.Var.Name] = true
		return CheckBound(m.Then, inner)
	case AndMod:
		for _, sub := range m.Mods {
			if err := CheckBound(sub, bound); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

func checkFactBound(f Fact, bound map[string]bool) error {
	for _, name := range f.ParamNames() {
		if !bound[name] {
			return perrors.NewRuntime("unbound parameter in effect", name)
		}
	}
	return nil
}

// checkArgsBound is checkFactBound restricted to the argument tuple: a
// fluent-access pattern's fluent slot holds a placeholder naming the
// equation's value, which is written, not read, so it never needs a
// binding.
func checkArgsBound(f Fact, bound map[string]bool) error {
	for _, a := range f.Args {
		if a.IsParam && !bound[a.Value] {
			return perrors.NewRuntime("unbound parameter in effect", a.Value)
		}
	}
	return nil
}
