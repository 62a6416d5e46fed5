package ontology

import "github.com/carloacu/goalplanner/internal/perrors"

// AnyValue is the sentinel entity value meaning "any".
const AnyValue = "*"

// Entity is a named, typed value: a constant, a problem object, or a
// fluent value. Numeric entities always carry the built-in number type.
type Entity struct {
	Value string
	Type  TypeID
}

// IsAny reports whether e is the "any" sentinel entity.
func (e Entity) IsAny() bool { return e.Value == AnyValue }

// NewNumberEntity builds an Entity of the built-in number type.
func (o *Ontology) NewNumberEntity(literal string) Entity {
	return Entity{Value: literal, Type: o.numberType}
}

// SetOfEntities is a value-unique collection of Entity, keyed by
// Value.
type SetOfEntities struct {
	byValue map[string]Entity
	order   []string
}

// NewSetOfEntities builds an empty set.
func NewSetOfEntities() *SetOfEntities {
	return &SetOfEntities{byValue: make(map[string]Entity)}
}

// Add inserts e, returning a DomainError if its value already exists
// with a different type.
func (s *SetOfEntities) Add(e Entity) error {
	if existing, ok := s.byValue[e.Value]; ok {
		if existing.Type != e.Type {
			return perrors.NewDomain("entity redeclared with a different type", e.Value)
		}
		return nil
	}
	s.byValue[e.Value] = e
	s.order = append(s.order, e.Value)
	return nil
}

// Get looks up an entity by value.
func (s *SetOfEntities) Get(value string) (Entity, bool) {
	e, ok := s.byValue[value]
	return e, ok
}

// All returns every entity in insertion order.
func (s *SetOfEntities) All() []Entity {
	out := make([]Entity, 0, len(s.order))
	for _, v := range s.order {
		out = append(out, s.byValue[v])
	}
	return out
}

// OfType returns every entity whose type IsA(root) under ont.
func (s *SetOfEntities) OfType(ont *Ontology, root TypeID) []Entity {
	var out []Entity
	for _, v := range s.order {
		e := s.byValue[v]
		if ont.IsA(e.Type, root) {
			out = append(out, e)
		}
	}
	return out
}

// Len reports the number of entities in the set.
func (s *SetOfEntities) Len() int { return len(s.order) }
