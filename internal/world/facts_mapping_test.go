package world

import (
	"testing"

	"github.com/carloacu/goalplanner/internal/ontology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOntology(t *testing.T) (*ontology.Ontology, ontology.PredicateID, ontology.PredicateID) {
	t.Helper()
	ont := ontology.New()
	objType, err := ont.AddType("object", "")
	require.NoError(t, err)

	at, err := ont.AddPredicate("at", []ontology.Parameter{{Name: "?a", Type: objType}}, ontology.NoType)
	require.NoError(t, err)
	battery, err := ont.AddPredicate("battery", []ontology.Parameter{{Name: "?a", Type: objType}}, ont.NumberType())
	require.NoError(t, err)
	return ont, at, battery
}

func TestFactsMappingAddReplacesFluentInPlace(t *testing.T) {
	_, _, battery := testOntology(t)
	m := NewFactsMapping()

	robotArg := Const("robot1", ontology.NoType)
	f1 := Fact{Predicate: battery, Args: []Term{robotArg}, Fluent: ptrTerm(Const("50", ontology.NoType))}
	changed := m.Add(f1)
	assert.True(t, changed)

	f2 := Fact{Predicate: battery, Args: []Term{robotArg}, Fluent: ptrTerm(Const("70", ontology.NoType))}
	changed = m.Add(f2)
	assert.True(t, changed, "replacing the fluent value should report a change")

	all := m.AllForPredicate(battery)
	require.Len(t, all, 1, "only one fact should exist per argument tuple")
	assert.Equal(t, "70", all[0].Fluent.Value)

	// Re-adding the same value is a no-op.
	changed = m.Add(f2)
	assert.False(t, changed)
}

func TestFactsMappingFindPolicy(t *testing.T) {
	_, at, _ := testOntology(t)
	m := NewFactsMapping()

	m.Add(Fact{Predicate: at, Args: []Term{Const("robot1", ontology.NoType)}})
	m.Add(Fact{Predicate: at, Args: []Term{Const("robot2", ontology.NoType)}})

	t.Run("no constraints returns every fact for predicate", func(t *testing.T) {
		got := m.Find(Fact{Predicate: at, Args: []Term{Param("?x", ontology.NoType)}})
		assert.Len(t, got, 2)
	})

	t.Run("constant argument narrows to matching facts", func(t *testing.T) {
		got := m.Find(Fact{Predicate: at, Args: []Term{Const("robot1", ontology.NoType)}})
		require.Len(t, got, 1)
		assert.Equal(t, "robot1", got[0].Args[0].Value)
	})

	t.Run("wildcard argument behaves like a parameter", func(t *testing.T) {
		got := m.Find(Fact{Predicate: at, Args: []Term{Const(ontology.AnyValue, ontology.NoType)}})
		assert.Len(t, got, 2)
	})
}

func TestFactsMappingRemoveAndHas(t *testing.T) {
	_, at, _ := testOntology(t)
	m := NewFactsMapping()
	f := Fact{Predicate: at, Args: []Term{Const("robot1", ontology.NoType)}}

	assert.False(t, m.Has(f))
	m.Add(f)
	assert.True(t, m.Has(f))
	assert.True(t, m.Remove(f))
	assert.False(t, m.Has(f))
	assert.False(t, m.Remove(f), "removing twice reports no change")
}

func TestFactsMappingByValueReverseIndex(t *testing.T) {
	_, at, battery := testOntology(t)
	m := NewFactsMapping()
	m.Add(Fact{Predicate: at, Args: []Term{Const("robot1", ontology.NoType)}})
	m.Add(Fact{Predicate: battery, Args: []Term{Const("robot1", ontology.NoType)}, Fluent: ptrTerm(Const("50", ontology.NoType))})

	got := m.ByValue("robot1")
	assert.Len(t, got, 2, "robot1 appears in both facts")
}

func ptrTerm(t Term) *Term { return &t }
