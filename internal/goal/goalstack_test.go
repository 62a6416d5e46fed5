package goal

import (
	"testing"
	"time"

	"github.com/carloacu/goalplanner/internal/clock"
	"github.com/carloacu/goalplanner/internal/ontology"
	"github.com/carloacu/goalplanner/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T) (*ontology.Ontology, *world.FactsMapping, ontology.PredicateID) {
	t.Helper()
	ont := ontology.New()
	greeted, err := ont.AddPredicate("greeted", nil, ontology.NoType)
	require.NoError(t, err)
	facts := world.NewFactsMapping()
	return ont, facts, greeted
}

func evalCtx(ont *ontology.Ontology, facts *world.FactsMapping) *world.EvalContext {
	return &world.EvalContext{Facts: facts, Ont: ont, Entities: ontology.NewSetOfEntities()}
}

func factCond(pred ontology.PredicateID) world.Condition {
	return world.FactCondition{Fact: world.Fact{Predicate: pred}}
}

func TestGoalStackGetCurrentGoalPicksHighestTier(t *testing.T) {
	ont, facts, greeted := newFixture(t)
	gs := NewGoalStack()
	ctx := evalCtx(ont, facts)

	gs.SetGoals(map[int][]Goal{
		5:  {{Objective: factCond(greeted), Label: "low"}},
		10: {{Objective: factCond(greeted), Label: "high"}},
	}, ctx, nil)

	g, ok := gs.GetCurrentGoal()
	require.True(t, ok)
	assert.Equal(t, "high", g.Label)
}

func TestRemoveFirstGoalsThatAreAlreadySatisfiedStopsAtUnsatisfied(t *testing.T) {
	ont, facts, greeted := newFixture(t)
	gs := NewGoalStack()
	ctx := evalCtx(ont, facts)

	// greeted already holds, so the first goal is satisfied; the second
	// isn't (it references a predicate never asserted: helped).
	helped, err := ont.AddPredicate("helped", nil, ontology.NoType)
	require.NoError(t, err)
	facts.Add(world.Fact{Predicate: greeted})

	gs.SetGoals(map[int][]Goal{
		10: {
			{Objective: factCond(greeted), Label: "g1"},
			{Objective: factCond(helped), Label: "g2"},
		},
	}, ctx, nil)

	gs.RemoveFirstGoalsThatAreAlreadySatisfied(ctx, nil)

	tier := gs.Snapshot()[10]
	require.Len(t, tier, 1)
	assert.Equal(t, "g2", tier[0].Label)
}

func TestPersistentGoalSurvivesSatisfaction(t *testing.T) {
	ont, facts, greeted := newFixture(t)
	gs := NewGoalStack()
	ctx := evalCtx(ont, facts)
	facts.Add(world.Fact{Predicate: greeted})

	gs.SetGoals(map[int][]Goal{
		10: {{Objective: factCond(greeted), Label: "persistent", IsPersistent: true}},
	}, ctx, nil)

	gs.RemoveFirstGoalsThatAreAlreadySatisfied(ctx, nil)

	tier := gs.Snapshot()[10]
	require.Len(t, tier, 1, "a persistent goal is never dropped even once satisfied")
}

func TestNotifyActionDoneRemovesOneStepTowardsGoal(t *testing.T) {
	ont, facts, greeted := newFixture(t)
	gs := NewGoalStack()
	ctx := evalCtx(ont, facts)

	fromGoal := Goal{Objective: factCond(greeted), Label: "reactive", OneStepTowards: true}
	gs.SetGoals(map[int][]Goal{10: {fromGoal}}, ctx, nil)

	changed := gs.NotifyActionDone(&fromGoal, nil, nil, ctx, nil)
	assert.True(t, changed)
	_, ok := gs.GetCurrentGoal()
	assert.False(t, ok, "the one-step-towards goal should be gone even though its objective never became true")
}

func TestNotifyActionDoneMergesNewGoals(t *testing.T) {
	ont, facts, greeted := newFixture(t)
	gs := NewGoalStack()
	ctx := evalCtx(ont, facts)
	facts.Add(world.Fact{Predicate: greeted})

	gs.SetGoals(map[int][]Goal{10: {{Objective: factCond(greeted), Label: "g1"}}}, ctx, nil)

	helped, err := ont.AddPredicate("helped", nil, ontology.NoType)
	require.NoError(t, err)

	changed := gs.NotifyActionDone(nil, map[int][]Goal{10: {{Objective: factCond(helped), Label: "g2"}}}, nil, ctx, nil)
	assert.True(t, changed)

	g, ok := gs.GetCurrentGoal()
	require.True(t, ok)
	assert.Equal(t, "g2", g.Label)
}

func TestRemoveGoalsByGroupID(t *testing.T) {
	ont, facts, greeted := newFixture(t)
	gs := NewGoalStack()
	ctx := evalCtx(ont, facts)

	gs.SetGoals(map[int][]Goal{
		10: {
			{Objective: factCond(greeted), Label: "a", GroupID: "batch1"},
			{Objective: factCond(greeted), Label: "b", GroupID: "batch2"},
		},
	}, ctx, nil)

	changed := gs.RemoveGoals("batch1", ctx, nil)
	assert.True(t, changed)
	tier := gs.Snapshot()[10]
	require.Len(t, tier, 1)
	assert.Equal(t, "b", tier[0].Label)
}

func TestChangeGoalPriorityMovesGoal(t *testing.T) {
	ont, facts, greeted := newFixture(t)
	gs := NewGoalStack()
	ctx := evalCtx(ont, facts)

	gs.SetGoals(map[int][]Goal{10: {{Objective: factCond(greeted), Label: "g1"}}}, ctx, nil)
	gs.ChangeGoalPriority("g1", 20, true, ctx, nil)

	_, stillAtOld := findLabel(gs, 10, "g1")
	assert.False(t, stillAtOld)
	g, atNew := findLabel(gs, 20, "g1")
	require.True(t, atNew)
	assert.Equal(t, "g1", g.Label)
}

func TestInactivityTimeoutRemovesNonTopmostGoal(t *testing.T) {
	ont, facts, greeted := newFixture(t)
	helped, err := ont.AddPredicate("helped", nil, ontology.NoType)
	require.NoError(t, err)
	gs := NewGoalStack()
	ctx := evalCtx(ont, facts)

	maxInactive := time.Minute
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	past := base.Add(-2 * time.Minute)

	gs.SetGoals(map[int][]Goal{
		10: {
			{Objective: factCond(greeted), Label: "top"},
			{Objective: factCond(helped), Label: "stale", MaxInactive: &maxInactive, InactiveSince: &past},
		},
	}, ctx, &base)

	tier := gs.Snapshot()[10]
	require.Len(t, tier, 1, "the non-topmost goal inactive beyond its budget is dropped on the next stack mutation")
	assert.Equal(t, "top", tier[0].Label)
}

// TestInactivityTimeoutWithMockClock drives the same timeout through an
// injected clock: the goal survives as long as the clock stays inside
// its inactivity budget and is dropped once the clock advances past it.
func TestInactivityTimeoutWithMockClock(t *testing.T) {
	ont, facts, greeted := newFixture(t)
	helped, err := ont.AddPredicate("helped", nil, ontology.NoType)
	require.NoError(t, err)
	gs := NewGoalStack()
	ctx := evalCtx(ont, facts)

	clk := clock.NewMock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	maxInactive := time.Minute

	gs.SetGoals(map[int][]Goal{
		10: {
			{Objective: factCond(greeted), Label: "top"},
			{Objective: factCond(helped), Label: "patient", MaxInactive: &maxInactive},
		},
	}, ctx, clk.Now())
	require.Len(t, gs.Snapshot()[10], 2, "within the budget the goal stays stacked")

	clk.Advance(2 * time.Minute)
	gs.PushBackGoal(Goal{Objective: factCond(greeted), Label: "late"}, 10, ctx, clk.Now())

	_, stillThere := findLabel(gs, 10, "patient")
	assert.False(t, stillThere, "advancing past the budget drops the non-topmost goal on the next mutation")
}

func findLabel(gs *GoalStack, priority int, label string) (Goal, bool) {
	for _, g := range gs.Snapshot()[priority] {
		if g.Label == label {
			return g, true
		}
	}
	return Goal{}, false
}
