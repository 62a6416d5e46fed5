// Package ontology implements the planner's typed universe: the
// subtype DAG, typed entities and parameters, and predicate
// declarations. An Ontology is an arena owning every Type and
// Predicate; everywhere else refers to them by TypeID/PredicateID
// rather than by pointer or name, so cloning a
// Condition/WorldStateModification tree is a cheap value copy.
package ontology

import "github.com/carloacu/goalplanner/internal/perrors"

// TypeID indexes into Ontology.types. The zero value is invalid; NoType
// marks the absence of a type constraint.
type TypeID int

// NoType marks "no type constraint" (e.g. an untyped parameter).
const NoType TypeID = -1

// NumberTypeName is the built-in numeric type every Ontology declares.
const NumberTypeName = "number"

// Type is a named node in a single-inheritance type hierarchy.
type Type struct {
	ID       TypeID
	Name     string
	Parent   TypeID // NoType if this is a root type
	Subtypes []TypeID
}

// Ontology owns every Type and Predicate declared by a domain.
type Ontology struct {
	types      []Type
	typeByName map[string]TypeID
	predicates []Predicate
	predByName map[string]PredicateID
	numberType TypeID
}

// New builds an Ontology pre-seeded with the built-in "number" type.
func New() *Ontology {
	o := &Ontology{
		typeByName: make(map[string]TypeID),
		predByName: make(map[string]PredicateID),
	}
	o.numberType = o.mustAddType(NumberTypeName, NoType)
	return o
}

// NumberType returns the built-in number TypeID.
func (o *Ontology) NumberType() TypeID { return o.numberType }

// AddType declares a new type with an optional parent name ("" for a
// root type). Returns a domain error if the parent is unknown or the
// name is already declared.
func (o *Ontology) AddType(name, parentName string) (TypeID, error) {
	if _, exists := o.typeByName[name]; exists {
		return NoType, perrors.NewDomain("duplicate type declaration", name)
	}

	parent := NoType
	if parentName != "" {
		p, ok := o.typeByName[parentName]
		if !ok {
			return NoType, perrors.NewDomain("unknown parent type "+parentName, name)
		}
		parent = p
	}
	return o.mustAddType(name, parent), nil
}

func (o *Ontology) mustAddType(name string, parent TypeID) TypeID {
	id := TypeID(len(o.types))
	o.types = append(o.types, Type{ID: id, Name: name, Parent: parent})
	o.typeByName[name] = id
	if parent != NoType {
		o.types[parent].Subtypes = append(o.types[parent].Subtypes, id)
	}
	return id
}

// TypeByName resolves a declared type name.
func (o *Ontology) TypeByName(name string) (TypeID, bool) {
	id, ok := o.typeByName[name]
	return id, ok
}

// Type returns the Type value for id.
func (o *Ontology) Type(id TypeID) Type {
	return o.types[id]
}

// Types returns every declared type, in declaration order (index 0 is
// always the built-in number type). Used by the pddl package's
// emit_domain to reconstruct a `:types` block. Callers must not mutate
// the returned slice.
func (o *Ontology) Types() []Type {
	return o.types
}

// TypeName returns the declared name for id, or "" for NoType.
func (o *Ontology) TypeName(id TypeID) string {
	if id == NoType {
		return ""
	}
	return o.types[id].Name
}

// IsA reports whether t is u or a (transitive) subtype of u — the
// reflexive-transitive closure of Parent.
func (o *Ontology) IsA(t, u TypeID) bool {
	if u == NoType {
		return true // untyped accepts anything
	}
	for cur := t; cur != NoType; cur = o.types[cur].Parent {
		if cur == u {
			return true
		}
	}
	return false
}

// AllSubtypesOf returns every declared type that IsA(t, root), including
// root itself — used by Exists/Forall evaluation to range over every
// entity whose type is compatible with a quantified variable.
func (o *Ontology) AllSubtypesOf(root TypeID) []TypeID {
	var out []TypeID
	for i := range o.types {
		id := TypeID(i)
		if o.IsA(id, root) {
			out = append(out, id)
		}
	}
	return out
}
