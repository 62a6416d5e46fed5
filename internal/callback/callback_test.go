package callback

import (
	"testing"

	"github.com/carloacu/goalplanner/internal/goal"
	"github.com/carloacu/goalplanner/internal/ontology"
	"github.com/carloacu/goalplanner/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDispatchesInRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	var order []string

	r.OnFactsChanged(func(*world.WhatChanged) { order = append(order, "first") })
	r.OnFactsChanged(func(*world.WhatChanged) { order = append(order, "second") })

	r.Dispatch(&world.WhatChanged{})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestRegistryRemoveStopsDelivery(t *testing.T) {
	r := NewRegistry()
	calls := 0
	id := r.OnFactsChanged(func(*world.WhatChanged) { calls++ })

	r.Dispatch(&world.WhatChanged{})
	r.Remove(id)
	r.Dispatch(&world.WhatChanged{})

	assert.Equal(t, 1, calls)
}

// TestRegistryReceivesNetDeltaFromModify wires a Registry into a real
// WorldState.Modify call and checks the single-dispatch-per-modify
// contract.
func TestRegistryReceivesNetDeltaFromModify(t *testing.T) {
	ont := ontology.New()
	greeted, err := ont.AddPredicate("greeted", nil, ontology.NoType)
	require.NoError(t, err)

	r := NewRegistry()
	var got []*world.WhatChanged
	r.OnFactsChanged(func(d *world.WhatChanged) { got = append(got, d) })

	ws := world.NewWorldState()
	ctx := world.ModifyContext{Ont: ont, Entities: ontology.NewSetOfEntities(), Callbacks: r}

	changed, err := ws.Modify(world.AddFactMod{Fact: world.Fact{Predicate: greeted}}, ctx, nil)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, got, 1)
	assert.Len(t, got[0].AddedFacts, 1)
}

func TestRegistryObservesGoalStackMutations(t *testing.T) {
	ont := ontology.New()
	greeted, err := ont.AddPredicate("greeted", nil, ontology.NoType)
	require.NoError(t, err)
	ctx := &world.EvalContext{Facts: world.NewFactsMapping(), Ont: ont, Entities: ontology.NewSetOfEntities()}

	r := NewRegistry()
	notifications := 0
	r.OnGoalsChanged(func(map[int][]goal.Goal) { notifications++ })

	gs := goal.NewGoalStack()
	r.BindGoalStack(gs)

	gs.PushBackGoal(goal.Goal{
		Objective: world.FactCondition{Fact: world.Fact{Predicate: greeted}},
		Label:     "greeted",
	}, goal.DefaultPriority, ctx, nil)

	assert.Greater(t, notifications, 0, "stack mutations must reach goals-changed observers")
}

func TestPunctualFactsOfSortsDeterministically(t *testing.T) {
	ont := ontology.New()
	a, err := ont.AddPredicate("a", nil, ontology.NoType)
	require.NoError(t, err)
	b, err := ont.AddPredicate("b", nil, ontology.NoType)
	require.NoError(t, err)

	delta := &world.WhatChanged{PunctualFacts: []world.Fact{
		{Predicate: b}, {Predicate: a},
	}}
	got := PunctualFactsOf(delta)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].Predicate)
	assert.Equal(t, b, got[1].Predicate)
}
