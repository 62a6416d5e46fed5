package world

import "github.com/carloacu/goalplanner/internal/ontology"

// FactsMapping is an indexed container of ground facts supporting fast
// retrieval by predicate signature, by argument-position constant
// value, and by fluent value, plus the reverse lookup "(value) ->
// facts".
type FactsMapping struct {
	byKey map[string]Fact

	// bySignature[predID] lists every stored fact's key for that predicate.
	bySignature map[ontology.PredicateID]map[string]bool

	// byArgValue[predID][argIndex][value] lists keys of facts whose
	// argument at argIndex equals value.
	byArgValue map[ontology.PredicateID]map[int]map[string]map[string]bool

	// byFluentValue[predID][value] lists keys of facts whose fluent
	// equals value.
	byFluentValue map[ontology.PredicateID]map[string]map[string]bool

	// byValue is the reverse index: any value (argument or fluent) to
	// the set of fact keys mentioning it anywhere.
	byValue map[string]map[string]bool
}

// NewFactsMapping builds an empty container.
func NewFactsMapping() *FactsMapping {
	return &FactsMapping{
		byKey:         make(map[string]Fact),
		bySignature:   make(map[ontology.PredicateID]map[string]bool),
		byArgValue:    make(map[ontology.PredicateID]map[int]map[string]map[string]bool),
		byFluentValue: make(map[ontology.PredicateID]map[string]map[string]bool),
		byValue:       make(map[string]map[string]bool),
	}
}

// Add inserts or replaces a ground fact. Adding `pred(a)=v` when
// `pred(a)=u` already exists replaces the equation in place rather than
// duplicating it. Returns whether the store changed (the fact is new,
// or its fluent value changed).
func (m *FactsMapping) Add(f Fact) bool {
	if !f.IsGround() {
		return false
	}
	key := f.key()

	if existing, ok := m.byKey[key]; ok {
		if sameFluent(existing, f) {
			return false
		}
		m.unindexFluent(existing, key)
		m.byKey[key] = f
		m.indexFluent(f, key)
		return true
	}

	m.byKey[key] = f
	m.index(f, key)
	return true
}

// Has reports whether f (a ground fact or fluent equation) currently
// holds.
func (m *FactsMapping) Has(f Fact) bool {
	key := f.key()
	existing, ok := m.byKey[key]
	if !ok {
		return false
	}
	if f.Fluent == nil {
		return true
	}
	eq := sameFluent(existing, f)
	if f.FluentNegated {
		return !eq
	}
	return eq
}

// Remove deletes the fact matching f's (predicate, args) key. For a
// fluent predicate this deletes the whole equation (equivalent to
// Assign(..., undefined)). Returns whether anything was removed.
func (m *FactsMapping) Remove(f Fact) bool {
	key := f.key()
	existing, ok := m.byKey[key]
	if !ok {
		return false
	}
	m.unindex(existing, key)
	delete(m.byKey, key)
	return true
}

// FluentValue returns the current fluent value bound to f's (predicate,
// args) tuple, or false if no such equation exists (Undefined).
func (m *FactsMapping) FluentValue(f Fact) (Term, bool) {
	key := f.key()
	existing, ok := m.byKey[key]
	if !ok || existing.Fluent == nil {
		return Term{}, false
	}
	return *existing.Fluent, true
}

// Find returns every stored fact whose concrete (non-parameter)
// argument and fluent positions match pattern; parameter positions act
// as wildcards. Lookup policy:
//  1. no constant args and no concrete fluent -> every fact of the
//     pattern's predicate;
//  2. otherwise intersect the per-argument-value index lists for each
//     concrete argument, and the fluent-value list if concrete;
//  3. union in facts that have a parameter (not a wildcard-only) slot
//     wherever the pattern itself leaves that slot a parameter, which
//     falls out naturally here since unconstrained positions are never
//     used to narrow the candidate set.
func (m *FactsMapping) Find(pattern Fact) []Fact {
	candidates, ok := m.candidateKeys(pattern)
	if !ok {
		return nil
	}
	out := make([]Fact, 0, len(candidates))
	for key := range candidates {
		out = append(out, m.byKey[key])
	}
	return out
}

func (m *FactsMapping) candidateKeys(pattern Fact) (map[string]bool, bool) {
	allForPred := m.bySignature[pattern.Predicate]
	if len(allForPred) == 0 {
		return nil, false
	}

	var sets []map[string]bool
	for i, a := range pattern.Args {
		if a.IsParam || a.Value == ontology.AnyValue {
			continue
		}
		byValue := m.byArgValue[pattern.Predicate][i]
		sets = append(sets, byValue[a.Value])
	}
	if pattern.Fluent != nil && !pattern.Fluent.IsParam && pattern.Fluent.Value != ontology.AnyValue {
		sets = append(sets, m.byFluentValue[pattern.Predicate][pattern.Fluent.Value])
	}

	if len(sets) == 0 {
		// Copy: caller must not mutate the index's internal set.
		out := make(map[string]bool, len(allForPred))
		for k := range allForPred {
			out[k] = true
		}
		return out, true
	}

	result := sets[0]
	for _, s := range sets[1:] {
		result = intersect(result, s)
	}
	out := make(map[string]bool, len(result))
	for k := range result {
		out[k] = true
	}
	return out, true
}

func intersect(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}

// ByValue returns every fact that mentions value in any argument or
// fluent position.
func (m *FactsMapping) ByValue(value string) []Fact {
	keys := m.byValue[value]
	out := make([]Fact, 0, len(keys))
	for k := range keys {
		out = append(out, m.byKey[k])
	}
	return out
}

// All returns every stored fact.
func (m *FactsMapping) All() []Fact {
	out := make([]Fact, 0, len(m.byKey))
	for _, f := range m.byKey {
		out = append(out, f)
	}
	return out
}

// AllForPredicate returns every stored fact of the given predicate.
func (m *FactsMapping) AllForPredicate(pred ontology.PredicateID) []Fact {
	keys := m.bySignature[pred]
	out := make([]Fact, 0, len(keys))
	for k := range keys {
		out = append(out, m.byKey[k])
	}
	return out
}

// Clone returns an independent deep copy, used by the planner to
// simulate an action's effect without touching the real store.
func (m *FactsMapping) Clone() *FactsMapping {
	out := NewFactsMapping()
	for _, f := range m.byKey {
		out.Add(f)
	}
	return out
}

func sameFluent(a, b Fact) bool {
	if (a.Fluent == nil) != (b.Fluent == nil) {
		return false
	}
	if a.Fluent == nil {
		return true
	}
	return a.Fluent.Value == b.Fluent.Value
}

func (m *FactsMapping) index(f Fact, key string) {
	if m.bySignature[f.Predicate] == nil {
		m.bySignature[f.Predicate] = make(map[string]bool)
	}
	m.bySignature[f.Predicate][key] = true

	if m.byArgValue[f.Predicate] == nil {
		m.byArgValue[f.Predicate] = make(map[int]map[string]map[string]bool)
	}
	for i, a := range f.Args {
		if m.byArgValue[f.Predicate][i] == nil {
			m.byArgValue[f.Predicate][i] = make(map[string]map[string]bool)
		}
		if m.byArgValue[f.Predicate][i][a.Value] == nil {
			m.byArgValue[f.Predicate][i][a.Value] = make(map[string]bool)
		}
		m.byArgValue[f.Predicate][i][a.Value][key] = true

		m.addByValue(a.Value, key)
	}
	m.indexFluent(f, key)
}

func (m *FactsMapping) indexFluent(f Fact, key string) {
	if f.Fluent == nil {
		return
	}
	if m.byFluentValue[f.Predicate] == nil {
		m.byFluentValue[f.Predicate] = make(map[string]map[string]bool)
	}
	if m.byFluentValue[f.Predicate][f.Fluent.Value] == nil {
		m.byFluentValue[f.Predicate][f.Fluent.Value] = make(map[string]bool)
	}
	m.byFluentValue[f.Predicate][f.Fluent.Value][key] = true
	m.addByValue(f.Fluent.Value, key)
}

func (m *FactsMapping) unindexFluent(f Fact, key string) {
	if f.Fluent == nil {
		return
	}
	if set := m.byFluentValue[f.Predicate][f.Fluent.Value]; set != nil {
		delete(set, key)
	}
	m.removeByValue(f.Fluent.Value, key)
}

func (m *FactsMapping) unindex(f Fact, key string) {
	delete(m.bySignature[f.Predicate], key)
	for i, a := range f.Args {
		if set := m.byArgValue[f.Predicate][i][a.Value]; set != nil {
			delete(set, key)
		}
		m.removeByValue(a.Value, key)
	}
	m.unindexFluent(f, key)
}

func (m *FactsMapping) addByValue(value, key string) {
	if m.byValue[value] == nil {
		m.byValue[value] = make(map[string]bool)
	}
	m.byValue[value][key] = true
}

func (m *FactsMapping) removeByValue(value, key string) {
	if set := m.byValue[value]; set != nil {
		delete(set, key)
		if len(set) == 0 {
			delete(m.byValue, value)
		}
	}
}
