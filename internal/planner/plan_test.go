package planner

import (
	"testing"

	"github.com/carloacu/goalplanner/internal/action"
	"github.com/carloacu/goalplanner/internal/config"
	"github.com/carloacu/goalplanner/internal/domain"
	"github.com/carloacu/goalplanner/internal/goal"
	"github.com/carloacu/goalplanner/internal/ontology"
	"github.com/carloacu/goalplanner/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolFact(t *testing.T, ont *ontology.Ontology, name string) world.Fact {
	t.Helper()
	id, ok := ont.PredicateByName(name)
	if !ok {
		var err error
		id, err = ont.AddPredicate(name, nil, ontology.NoType)
		require.NoError(t, err)
	}
	return world.Fact{Predicate: id}
}

// TestGreetOnlyScenario: a single no-precondition action satisfies the
// sole goal.
func TestGreetOnlyScenario(t *testing.T) {
	ont := ontology.New()
	greeted := boolFact(t, ont, "user_is_greeted")

	dom := domain.New(ont)
	require.NoError(t, dom.AddAction("say_hi", action.Action{
		Effect: action.ProblemModification{WorldStateModification: world.AddFactMod{Fact: greeted}},
	}))

	prob := domain.NewProblem(dom)
	prob.GoalStack.SetGoals(map[int][]goal.Goal{
		goal.DefaultPriority: {{Objective: world.FactCondition{Fact: greeted}, Label: "user_is_greeted"}},
	}, prob.EvalContext(), nil)

	plan := PlanForEveryGoal(prob, dom, config.Default().Search, nil)
	require.Len(t, plan, 1)
	assert.Equal(t, "say_hi", plan[0].Invocation.ActionID)

	// After the plan is actually applied, the goal is satisfied and no
	// further action is proposed.
	_, err := prob.ApplyAction(plan[0], false, nil)
	require.NoError(t, err)
	out := LookForAnAction(prob, dom, config.Default().Search, nil)
	assert.Equal(t, StatusFinished, out.Status)
}

// TestGreetThenOfferHelpScenario: a second action chained on the
// first's effect.
func TestGreetThenOfferHelpScenario(t *testing.T) {
	ont := ontology.New()
	greeted := boolFact(t, ont, "user_is_greeted")
	offered := boolFact(t, ont, "proposed_our_help_to_user")

	dom := domain.New(ont)
	require.NoError(t, dom.AddAction("say_hi", action.Action{
		Effect: action.ProblemModification{WorldStateModification: world.AddFactMod{Fact: greeted}},
	}))
	require.NoError(t, dom.AddAction("ask_how_I_can_help", action.Action{
		Precondition: world.FactCondition{Fact: greeted},
		Effect:       action.ProblemModification{WorldStateModification: world.AddFactMod{Fact: offered}},
	}))

	prob := domain.NewProblem(dom)
	prob.GoalStack.SetGoals(map[int][]goal.Goal{
		goal.DefaultPriority: {{Objective: world.FactCondition{Fact: offered}, Label: "proposed_our_help_to_user"}},
	}, prob.EvalContext(), nil)

	plan := PlanForEveryGoal(prob, dom, config.Default().Search, nil)
	require.Len(t, plan, 2)
	assert.Equal(t, "say_hi", plan[0].Invocation.ActionID)
	assert.Equal(t, "ask_how_I_can_help", plan[1].Invocation.ActionID)
}

// TestPersistentGoalScenario: once a persistent goal's fact is knocked
// back down by another action, the planner must re-propose an action
// reinstating it.
func TestPersistentGoalScenario(t *testing.T) {
	ont := ontology.New()
	factB := boolFact(t, ont, "fact_b")

	dom := domain.New(ont)
	require.NoError(t, dom.AddAction("bring_b", action.Action{
		Effect: action.ProblemModification{WorldStateModification: world.AddFactMod{Fact: factB}},
	}))
	require.NoError(t, dom.AddAction("remove_b", action.Action{
		Precondition: world.FactCondition{Fact: factB},
		Effect:       action.ProblemModification{WorldStateModification: world.DeleteFactMod{Fact: factB}},
	}))

	prob := domain.NewProblem(dom)
	g := goal.Goal{Objective: world.FactCondition{Fact: factB}, Label: "fact_b", IsPersistent: true}
	prob.GoalStack.SetGoals(map[int][]goal.Goal{goal.DefaultPriority: {g}}, prob.EvalContext(), nil)

	cfg := config.Default().Search

	// First pass: bring_b satisfies the persistent goal.
	out := LookForAnAction(prob, dom, cfg, nil)
	require.Equal(t, StatusInProgress, out.Status)
	require.Equal(t, "bring_b", out.Action.Invocation.ActionID)
	_, err := prob.ApplyAction(*out.Action, false, nil)
	require.NoError(t, err)

	// The goal is satisfied now; nothing left to do.
	out = LookForAnAction(prob, dom, cfg, nil)
	assert.Equal(t, StatusFinished, out.Status)

	// Externally, fact_b is knocked back down.
	removeAction, _ := dom.Action("remove_b")
	_, err = prob.WorldState.Modify(removeAction.Effect.WorldStateModification, prob.ModifyContext(), nil)
	require.NoError(t, err)

	// Being persistent, the goal must have been re-stacked, so the
	// planner re-proposes bring_b.
	out = LookForAnAction(prob, dom, cfg, nil)
	require.Equal(t, StatusInProgress, out.Status)
	assert.Equal(t, "bring_b", out.Action.Invocation.ActionID)
}

// TestExistsConditionScenario: an action whose precondition is
// quantified over an object's location matching the robot's, with the
// object itself left as the action's own bound parameter.
func TestExistsConditionScenario(t *testing.T) {
	ont := ontology.New()
	entityType, err := ont.AddType("entity", "")
	require.NoError(t, err)
	locationType, err := ont.AddType("location", "")
	require.NoError(t, err)

	atID, err := ont.AddPredicate("at", []ontology.Parameter{
		{Name: "?r", Type: entityType}, {Name: "?l", Type: locationType},
	}, ontology.NoType)
	require.NoError(t, err)
	atObjectID, err := ont.AddPredicate("at_object", []ontology.Parameter{
		{Name: "?e", Type: entityType}, {Name: "?l", Type: locationType},
	}, ontology.NoType)
	require.NoError(t, err)
	touchedID, err := ont.AddPredicate("touched", []ontology.Parameter{
		{Name: "?e", Type: entityType},
	}, ontology.NoType)
	require.NoError(t, err)

	dom := domain.New(ont)
	lVar := ontology.Parameter{Name: "?loc", Type: locationType}
	pickPrecond := world.ExistsCondition{
		Var: lVar,
		Condition: world.AndCondition{Conditions: []world.Condition{
			world.FactCondition{Fact: world.Fact{Predicate: atID, Args: []world.Term{
				world.Const("r1", entityType), world.Param("?loc", locationType),
			}}},
			world.FactCondition{Fact: world.Fact{Predicate: atObjectID, Args: []world.Term{
				world.Param("?e", entityType), world.Param("?loc", locationType),
			}}},
		}},
	}
	require.NoError(t, dom.AddAction("pick", action.Action{
		Parameters:   []ontology.Parameter{{Name: "?e", Type: entityType}},
		Precondition: pickPrecond,
		Effect: action.ProblemModification{WorldStateModification: world.AddFactMod{Fact: world.Fact{
			Predicate: touchedID, Args: []world.Term{world.Param("?e", entityType)},
		}}},
	}))

	prob := domain.NewProblem(dom)
	require.NoError(t, prob.Entities.Add(ontology.Entity{Value: "r1", Type: entityType}))
	require.NoError(t, prob.Entities.Add(ontology.Entity{Value: "pen", Type: entityType}))
	require.NoError(t, prob.Entities.Add(ontology.Entity{Value: "kitchen", Type: locationType}))

	_, err = prob.WorldState.Modify(world.AndMod{Mods: []world.WorldStateModification{
		world.AddFactMod{Fact: world.Fact{Predicate: atID, Args: []world.Term{
			world.Const("r1", entityType), world.Const("kitchen", locationType),
		}}},
		world.AddFactMod{Fact: world.Fact{Predicate: atObjectID, Args: []world.Term{
			world.Const("pen", entityType), world.Const("kitchen", locationType),
		}}},
	}}, prob.ModifyContext(), nil)
	require.NoError(t, err)

	touchedPen := world.Fact{Predicate: touchedID, Args: []world.Term{world.Const("pen", entityType)}}
	prob.GoalStack.SetGoals(map[int][]goal.Goal{
		goal.DefaultPriority: {{Objective: world.FactCondition{Fact: touchedPen}, Label: "touched(pen)"}},
	}, prob.EvalContext(), nil)

	plan := PlanForEveryGoal(prob, dom, config.Default().Search, nil)
	require.Len(t, plan, 1)
	assert.Equal(t, "pick", plan[0].Invocation.ActionID)
	assert.Equal(t, "pen", plan[0].Invocation.Bindings["?e"].Value)
}

// TestOneStepTowardsGoalRemovedOnAnyAttributableAction: a goal whose
// objective only appears in an action's *potential* effect is pursued
// through that action, and notifying the action removes the goal even
// though the objective fact never became true.
func TestOneStepTowardsGoalRemovedOnAnyAttributableAction(t *testing.T) {
	ont := ontology.New()
	engaged := boolFact(t, ont, "user_engaged")

	dom := domain.New(ont)
	require.NoError(t, dom.AddAction("try_engaging", action.Action{
		Effect: action.ProblemModification{PotentialWorldStateModification: world.AddFactMod{Fact: engaged}},
	}))

	prob := domain.NewProblem(dom)
	prob.GoalStack.SetGoals(map[int][]goal.Goal{
		goal.DefaultPriority: {{Objective: world.FactCondition{Fact: engaged}, Label: "user_engaged", OneStepTowards: true}},
	}, prob.EvalContext(), nil)

	cfg := config.Default().Search

	out := LookForAnAction(prob, dom, cfg, nil)
	require.Equal(t, StatusInProgress, out.Status)
	require.Equal(t, "try_engaging", out.Action.Invocation.ActionID)

	_, err := prob.ApplyAction(*out.Action, false, nil)
	require.NoError(t, err)

	assert.False(t, prob.WorldState.HasFact(engaged), "a potential effect is never applied on notify")
	_, ok := prob.GoalStack.GetCurrentGoal()
	assert.False(t, ok, "the one-step-towards goal is gone after any attributable action")

	// With one-step-towards goals disabled in the search config, the same
	// stack yields no work at all.
	prob2 := domain.NewProblem(dom)
	prob2.GoalStack.SetGoals(map[int][]goal.Goal{
		goal.DefaultPriority: {{Objective: world.FactCondition{Fact: engaged}, Label: "user_engaged", OneStepTowards: true}},
	}, prob2.EvalContext(), nil)
	cfg.AllowOneStepTowards = false
	out = LookForAnAction(prob2, dom, cfg, nil)
	assert.Equal(t, StatusFinished, out.Status)
}

// TestPlanForMoreImportantGoalStopsAtTierBoundary: without tryToDoMore
// the plan covers only the highest-priority tier.
func TestPlanForMoreImportantGoalStopsAtTierBoundary(t *testing.T) {
	ont := ontology.New()
	urgent := boolFact(t, ont, "urgent_done")
	routine := boolFact(t, ont, "routine_done")

	dom := domain.New(ont)
	require.NoError(t, dom.AddAction("do_urgent", action.Action{
		Effect: action.ProblemModification{WorldStateModification: world.AddFactMod{Fact: urgent}},
	}))
	require.NoError(t, dom.AddAction("do_routine", action.Action{
		Effect: action.ProblemModification{WorldStateModification: world.AddFactMod{Fact: routine}},
	}))

	prob := domain.NewProblem(dom)
	prob.GoalStack.SetGoals(map[int][]goal.Goal{
		20: {{Objective: world.FactCondition{Fact: urgent}, Label: "urgent_done"}},
		10: {{Objective: world.FactCondition{Fact: routine}, Label: "routine_done"}},
	}, prob.EvalContext(), nil)

	cfg := config.Default().Search

	plan := PlanForMoreImportantGoalPossible(prob, dom, cfg, false, nil)
	require.Len(t, plan, 1)
	assert.Equal(t, "do_urgent", plan[0].Invocation.ActionID)

	full := PlanForMoreImportantGoalPossible(prob, dom, cfg, true, nil)
	require.Len(t, full, 2)
	assert.Equal(t, "do_urgent", full[0].Invocation.ActionID)
	assert.Equal(t, "do_routine", full[1].Invocation.ActionID)
}

// TestEvaluateDetectsInvalidatedPlan: Evaluate re-checks a plan against
// the problem's current state.
func TestEvaluateDetectsInvalidatedPlan(t *testing.T) {
	ont := ontology.New()
	greeted := boolFact(t, ont, "user_is_greeted")
	offered := boolFact(t, ont, "proposed_our_help_to_user")

	dom := domain.New(ont)
	require.NoError(t, dom.AddAction("ask_how_I_can_help", action.Action{
		Precondition: world.FactCondition{Fact: greeted},
		Effect:       action.ProblemModification{WorldStateModification: world.AddFactMod{Fact: offered}},
	}))

	prob := domain.NewProblem(dom)
	plan := Plan{{Invocation: action.Invocation{ActionID: "ask_how_I_can_help", Bindings: map[string]world.Term{}}}}

	assert.False(t, Evaluate(plan, prob, dom, nil), "precondition does not hold yet")

	_, err := prob.WorldState.AddFact(greeted, prob.ModifyContext())
	require.NoError(t, err)
	assert.True(t, Evaluate(plan, prob, dom, nil))
}

// TestUniversalEffectWithWhenScenario:
// enter(?l) carries an at-start effect clearing whichever location fact
// currently holds for self, then asserting the new one. Notifying the
// action's start must remove the previous location.
func TestUniversalEffectWithWhenScenario(t *testing.T) {
	ont := ontology.New()
	locType, err := ont.AddType("location", "")
	require.NoError(t, err)
	atID, err := ont.AddPredicate("at", []ontology.Parameter{{Name: "?l", Type: locType}}, ontology.NoType)
	require.NoError(t, err)

	atLoc := func(term world.Term) world.Fact {
		return world.Fact{Predicate: atID, Args: []world.Term{term}}
	}

	clearThenSet := world.AndMod{Mods: []world.WorldStateModification{
		world.ForallMod{
			Var: ontology.Parameter{Name: "?x", Type: locType},
			Then: world.WhenMod{
				Cond: world.FactCondition{Fact: atLoc(world.Param("?x", locType))},
				Then: world.DeleteFactMod{Fact: atLoc(world.Param("?x", locType))},
			},
		},
		world.AddFactMod{Fact: atLoc(world.Param("?l", locType))},
	}}

	dom := domain.New(ont)
	require.NoError(t, dom.AddAction("enter", action.Action{
		Parameters: []ontology.Parameter{{Name: "?l", Type: locType}},
		Effect:     action.ProblemModification{WorldStateModificationAtStart: clearThenSet},
	}))

	prob := domain.NewProblem(dom)
	require.NoError(t, prob.Entities.Add(ontology.Entity{Value: "kitchen", Type: locType}))
	require.NoError(t, prob.Entities.Add(ontology.Entity{Value: "garage", Type: locType}))

	_, err = prob.WorldState.AddFact(atLoc(world.Const("kitchen", locType)), prob.ModifyContext())
	require.NoError(t, err)

	inv := action.InvocationWithGoal{Invocation: action.Invocation{
		ActionID: "enter",
		Bindings: map[string]world.Term{"?l": world.Const("garage", locType)},
	}}
	_, err = prob.ApplyAction(inv, true, nil)
	require.NoError(t, err)

	assert.False(t, prob.WorldState.HasFact(atLoc(world.Const("kitchen", locType))), "the previous location fact must be cleared")
	assert.True(t, prob.WorldState.HasFact(atLoc(world.Const("garage", locType))))
}

// TestParallelIndependentActionsScenario: two non-interacting actions
// merge into one parallel step, and the action depending on both of
// their effects lands in the next step.
func TestParallelIndependentActionsScenario(t *testing.T) {
	ont := ontology.New()
	factA := boolFact(t, ont, "fact_a")
	factB := boolFact(t, ont, "fact_b")
	factC := boolFact(t, ont, "fact_c")

	dom := domain.New(ont)
	require.NoError(t, dom.AddAction("a1", action.Action{
		Effect: action.ProblemModification{WorldStateModification: world.AddFactMod{Fact: factA}},
	}))
	require.NoError(t, dom.AddAction("a2", action.Action{
		Effect: action.ProblemModification{WorldStateModification: world.AddFactMod{Fact: factB}},
	}))
	require.NoError(t, dom.AddAction("a3", action.Action{
		Precondition: world.AndCondition{Conditions: []world.Condition{
			world.FactCondition{Fact: factA}, world.FactCondition{Fact: factB},
		}},
		Effect: action.ProblemModification{WorldStateModification: world.AddFactMod{Fact: factC}},
	}))

	prob := domain.NewProblem(dom)
	prob.GoalStack.SetGoals(map[int][]goal.Goal{
		goal.DefaultPriority: {{Objective: world.FactCondition{Fact: factC}, Label: "fact_c"}},
	}, prob.EvalContext(), nil)

	steps := ParallelPlanForEveryGoal(prob, dom, config.Default().Search, nil)
	require.Len(t, steps, 2)

	step0IDs := map[string]bool{}
	for _, inv := range steps[0].Actions {
		step0IDs[inv.Invocation.ActionID] = true
	}
	assert.Equal(t, map[string]bool{"a1": true, "a2": true}, step0IDs)

	require.Len(t, steps[1].Actions, 1)
	assert.Equal(t, "a3", steps[1].Actions[0].Invocation.ActionID)
}
