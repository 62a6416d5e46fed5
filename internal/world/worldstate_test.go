package world

import (
	"testing"

	"github.com/carloacu/goalplanner/internal/ontology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvent struct {
	key     string
	precond Condition
	effect  WorldStateModification
}

func (e stubEvent) Key() string                    { return e.key }
func (e stubEvent) Precondition() Condition        { return e.precond }
func (e stubEvent) Effect() WorldStateModification { return e.effect }

type recordingSink struct{ deltas []*WhatChanged }

func (s *recordingSink) Dispatch(delta *WhatChanged) { s.deltas = append(s.deltas, delta) }

func TestWorldStateAddFactDispatchesCallback(t *testing.T) {
	ont, at, _ := testOntology(t)
	ws := NewWorldState()
	sink := &recordingSink{}
	ctx := ModifyContext{Ont: ont, Entities: ontology.NewSetOfEntities(), Callbacks: sink}

	f := Fact{Predicate: at, Args: []Term{Const("robot1", ontology.NoType)}}
	changed, err := ws.Modify(AddFactMod{Fact: f}, ctx, nil)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, ws.HasFact(f))
	require.Len(t, sink.deltas, 1)
	assert.Len(t, sink.deltas[0].AddedFacts, 1)

	// Re-adding the same fact is a no-op: nothing changed, no dispatch.
	changed, err = ws.Modify(AddFactMod{Fact: f}, ctx, nil)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, sink.deltas, 1)
}

func TestWorldStateEventPropagatesToFixedPoint(t *testing.T) {
	ont, at, battery := testOntology(t)
	robotArg := Const("robot1", ontology.NoType)

	// Asserting at(robot1) enables e1, which adds docked(robot1); that in
	// turn enables e2, which adds ready(robot1).
	dockedPred, err := ont.AddPredicate("docked", []ontology.Parameter{{Name: "?a", Type: ontology.NoType}}, ontology.NoType)
	require.NoError(t, err)
	readyPred, err := ont.AddPredicate("ready", []ontology.Parameter{{Name: "?a", Type: ontology.NoType}}, ontology.NoType)
	require.NoError(t, err)

	ev1 := stubEvent{
		key:     "e1",
		precond: FactCondition{Fact: Fact{Predicate: at, Args: []Term{robotArg}}},
		effect:  AddFactMod{Fact: Fact{Predicate: dockedPred, Args: []Term{robotArg}}},
	}
	ev2 := stubEvent{
		key:     "e2",
		precond: FactCondition{Fact: Fact{Predicate: dockedPred, Args: []Term{robotArg}}},
		effect:  AddFactMod{Fact: Fact{Predicate: readyPred, Args: []Term{robotArg}}},
	}

	ws := NewWorldState()
	ctx := ModifyContext{Ont: ont, Entities: ontology.NewSetOfEntities(), Events: []EventLike{ev1, ev2}}

	_, err = ws.Modify(AddFactMod{Fact: Fact{Predicate: at, Args: []Term{robotArg}}}, ctx, nil)
	require.NoError(t, err)

	assert.True(t, ws.HasFact(Fact{Predicate: dockedPred, Args: []Term{robotArg}}))
	assert.True(t, ws.HasFact(Fact{Predicate: readyPred, Args: []Term{robotArg}}), "ready should fire transitively through docked in the same Modify call")

	_ = battery
}

func TestWorldStateArithmeticEffects(t *testing.T) {
	ont, _, battery := testOntology(t)
	ctx := ModifyContext{Ont: ont, Entities: ontology.NewSetOfEntities()}
	ws := NewWorldState()
	robotArg := Const("robot1", ontology.NoType)

	assign := AssignMod{Fluent: Fact{Predicate: battery, Args: []Term{robotArg}}, Expr: NewConstNumericExpr("50")}
	_, err := ws.Modify(assign, ctx, nil)
	require.NoError(t, err)

	val, ok := ws.Facts().FluentValue(Fact{Predicate: battery, Args: []Term{robotArg}})
	require.True(t, ok)
	assert.Equal(t, "50", val.Value)

	inc := ArithMod{Op: ArithIncrease, Fluent: Fact{Predicate: battery, Args: []Term{robotArg}}, Expr: NewConstNumericExpr("5")}
	_, err = ws.Modify(inc, ctx, nil)
	require.NoError(t, err)
	val, _ = ws.Facts().FluentValue(Fact{Predicate: battery, Args: []Term{robotArg}})
	assert.Equal(t, "55", val.Value)

	// Increase on an undefined fluent stays undefined.
	undefinedArg := Const("robot2", ontology.NoType)
	incUndef := ArithMod{Op: ArithIncrease, Fluent: Fact{Predicate: battery, Args: []Term{undefinedArg}}, Expr: NewConstNumericExpr("5")}
	_, err = ws.Modify(incUndef, ctx, nil)
	require.NoError(t, err)
	_, ok = ws.Facts().FluentValue(Fact{Predicate: battery, Args: []Term{undefinedArg}})
	assert.False(t, ok)
}

func TestWorldStateAssignUndefinedRetractsEquation(t *testing.T) {
	ont, _, battery := testOntology(t)
	ctx := ModifyContext{Ont: ont, Entities: ontology.NewSetOfEntities()}
	ws := NewWorldState()
	robotArg := Const("robot1", ontology.NoType)

	ws.Modify(AssignMod{Fluent: Fact{Predicate: battery, Args: []Term{robotArg}}, Expr: NewConstNumericExpr("50")}, ctx, nil)
	changed, err := ws.Modify(AssignMod{Fluent: Fact{Predicate: battery, Args: []Term{robotArg}}, ToUndefined: true}, ctx, nil)
	require.NoError(t, err)
	assert.True(t, changed)
	_, ok := ws.Facts().FluentValue(Fact{Predicate: battery, Args: []Term{robotArg}})
	assert.False(t, ok)
}

func TestModifyRejectsUnboundParameter(t *testing.T) {
	ont, at, _ := testOntology(t)
	ctx := ModifyContext{Ont: ont, Entities: ontology.NewSetOfEntities()}
	ws := NewWorldState()

	mod := AddFactMod{Fact: Fact{Predicate: at, Args: []Term{Param("?unbound", ontology.NoType)}}}
	_, err := ws.Modify(mod, ctx, nil)
	assert.Error(t, err)
}

func TestForallModAppliesPerEntity(t *testing.T) {
	ont, at, _ := testOntology(t)
	robotType, _ := ont.TypeByName("object")
	entities := ontology.NewSetOfEntities()
	require.NoError(t, entities.Add(ontology.Entity{Value: "robot1", Type: robotType}))
	require.NoError(t, entities.Add(ontology.Entity{Value: "robot2", Type: robotType}))

	ctx := ModifyContext{Ont: ont, Entities: entities}
	ws := NewWorldState()

	mod := ForallMod{
		Var:  ontology.Parameter{Name: "?r", Type: robotType},
		Then: AddFactMod{Fact: Fact{Predicate: at, Args: []Term{Param("?r", ontology.NoType)}}},
	}
	_, err := ws.Modify(mod, ctx, nil)
	require.NoError(t, err)
	assert.True(t, ws.HasFact(Fact{Predicate: at, Args: []Term{Const("robot1", ontology.NoType)}}))
	assert.True(t, ws.HasFact(Fact{Predicate: at, Args: []Term{Const("robot2", ontology.NoType)}}))
}

func TestFillAccessibleFactsAndCanFactBecomeTrue(t *testing.T) {
	_, at, battery := testOntology(t)
	ws := NewWorldState()
	ws.FillAccessibleFacts([]WorldStateModification{
		AddFactMod{Fact: Fact{Predicate: at, Args: []Term{Param("?r", ontology.NoType)}}},
	})

	assert.True(t, ws.CanFactBecomeTrue(Fact{Predicate: at}))
	assert.False(t, ws.CanFactBecomeTrue(Fact{Predicate: battery}), "no effect in the domain ever sets battery")
}
