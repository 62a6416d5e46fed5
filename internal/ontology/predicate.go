package ontology

import "github.com/carloacu/goalplanner/internal/perrors"

// PredicateID indexes into Ontology.predicates.
type PredicateID int

// Parameter is a named, typed formal — either a predicate's declared
// argument slot or a placeholder inside a Condition/WorldStateModification
// AST waiting to be bound by unification.
type Parameter struct {
	Name string
	Type TypeID
}

// Predicate is a named relation. A predicate with Fluent == NoType is
// boolean (membership); one with a declared Fluent type is functional:
// each argument tuple maps to at most one Fluent-typed entity value.
type Predicate struct {
	ID         PredicateID
	Name       string
	Parameters []Parameter
	Fluent     TypeID // NoType for boolean predicates
}

// IsFluent reports whether p is a functional (fluent-valued) predicate.
func (p Predicate) IsFluent() bool { return p.Fluent != NoType }

// Arity is the number of declared arguments (excluding the fluent).
func (p Predicate) Arity() int { return len(p.Parameters) }

// AddPredicate declares a new predicate. fluent is NoType for boolean
// predicates.
func (o *Ontology) AddPredicate(name string, params []Parameter, fluent TypeID) (PredicateID, error) {
	if _, exists := o.predByName[name]; exists {
		return 0, perrors.NewDomain("duplicate predicate declaration", name)
	}
	id := PredicateID(len(o.predicates))
	o.predicates = append(o.predicates, Predicate{
		ID: id, Name: name, Parameters: append([]Parameter(nil), params...), Fluent: fluent,
	})
	o.predByName[name] = id
	return id, nil
}

// PredicateByName resolves a declared predicate name.
func (o *Ontology) PredicateByName(name string) (PredicateID, bool) {
	id, ok := o.predByName[name]
	return id, ok
}

// Predicate returns the Predicate value for id.
func (o *Ontology) Predicate(id PredicateID) Predicate {
	return o.predicates[id]
}

// Predicates returns every declared predicate, in declaration order.
func (o *Ontology) Predicates() []Predicate {
	return o.predicates
}
