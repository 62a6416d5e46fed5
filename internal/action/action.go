// Package action implements the named operators a domain is built
// from: Action, Event, Axiom, and the ProblemModification effect
// bundle they share.
package action

import (
	"github.com/carloacu/goalplanner/internal/goal"
	"github.com/carloacu/goalplanner/internal/ontology"
	"github.com/carloacu/goalplanner/internal/world"
)

// ProblemModification bundles every way an Action or Event can change
// a Problem once its precondition holds.
type ProblemModification struct {
	// WorldStateModification is applied both during search simulation
	// and on real notification.
	WorldStateModification world.WorldStateModification
	// PotentialWorldStateModification is considered by the search
	// (counts toward "brings the goal closer") but is never applied on
	// notify — it models effects the planner should reason about without
	// committing to performing them itself (e.g. an effect a human actor
	// is expected to bring about).
	PotentialWorldStateModification world.WorldStateModification
	// WorldStateModificationAtStart is applied when an action-start
	// notification arrives, before the action's main effect (durative
	// actions' `(at start E)`).
	WorldStateModificationAtStart world.WorldStateModification
	// GoalsToAdd merges into the goal stack, promoted by priority.
	GoalsToAdd map[int][]goal.Goal
	// GoalsToAddInCurrentPriority merges into whatever tier is currently
	// active at notify time.
	GoalsToAddInCurrentPriority []goal.Goal
}

// Bind substitutes every parameter Term referenced by this
// modification's world-state effects and goal objectives.
func (pm ProblemModification) Bind(bindings map[string]world.Term) ProblemModification {
	out := ProblemModification{}
	if pm.WorldStateModification != nil {
		out.WorldStateModification = pm.WorldStateModification.Bind(bindings)
	}
	if pm.PotentialWorldStateModification != nil {
		out.PotentialWorldStateModification = pm.PotentialWorldStateModification.Bind(bindings)
	}
	if pm.WorldStateModificationAtStart != nil {
		out.WorldStateModificationAtStart = pm.WorldStateModificationAtStart.Bind(bindings)
	}
	if pm.GoalsToAdd != nil {
		out.GoalsToAdd = make(map[int][]goal.Goal, len(pm.GoalsToAdd))
		for p, goals := range pm.GoalsToAdd {
			out.GoalsToAdd[p] = bindGoals(goals, bindings)
		}
	}
	out.GoalsToAddInCurrentPriority = bindGoals(pm.GoalsToAddInCurrentPriority, bindings)
	return out
}

func bindGoals(goals []goal.Goal, bindings map[string]world.Term) []goal.Goal {
	if goals == nil {
		return nil
	}
	out := make([]goal.Goal, len(goals))
	for i, g := range goals {
		bound := g
		bound.Objective = g.Objective.Bind(bindings)
		if g.ConditionFact != nil {
			f := g.ConditionFact.Bind(bindings)
			bound.ConditionFact = &f
		}
		out[i] = bound
	}
	return out
}

// Action is a named operator the planner may choose to perform.
type Action struct {
	ID               string
	Parameters       []ontology.Parameter
	Precondition     world.Condition // nil means "always true"
	OverAllCondition world.Condition // nil means no durative over-all constraint
	PreferInContext  world.Condition // nil means no priority boost
	Effect           ProblemModification
	Duration         world.NumericExpr

	// ShouldBeDoneAsapWithoutHistoryCheck gives this action top ranking
	// within its tier regardless of historical execution counts. It only
	// affects within-tier ranking, never priority-tier order.
	ShouldBeDoneAsapWithoutHistoryCheck bool
}

// Event fires automatically once its Condition becomes true after any
// world mutation, to a fixed point. Event implements
// world.EventLike directly, letting WorldState.Modify propagate events
// without this package's richer Action/Axiom types leaking into the
// world package (avoiding an import cycle while still reusing
// WorldState's single propagation loop for both planner-fired actions'
// side effects and the domain's own events).
type Event struct {
	SetID      string
	EventID    string
	Parameters []ontology.Parameter
	Condition  world.Condition

	Modification ProblemModification
}

// Key identifies this event within a single Modify call's
// already-fired tracking.
func (e Event) Key() string { return e.SetID + "/" + e.EventID }

// Precondition implements world.EventLike.
func (e Event) Precondition() world.Condition { return e.Condition }

// Effect implements world.EventLike.
func (e Event) Effect() world.WorldStateModification { return e.Modification.WorldStateModification }

// SetOfEvents is a named group of Events addressed by compound id
// (set_id, event_id).
type SetOfEvents struct {
	SetID  string
	Events map[string]Event
}

// Axiom is a derived-predicate declaration, compiled into a pair of
// events: one adding the derived fact when the context holds, one
// removing it when the context fails.
type Axiom struct {
	Vars    []ontology.Parameter
	Context world.Condition
	Implies world.Fact
}

// Compile produces the add/remove event pair implementing the axiom
// within setID.
func (a Axiom) Compile(setID string) [2]Event {
	return [2]Event{
		{
			SetID: setID, EventID: "from_axiom",
			Parameters:   a.Vars,
			Condition:    a.Context,
			Modification: ProblemModification{WorldStateModification: world.AddFactMod{Fact: a.Implies}},
		},
		{
			SetID: setID, EventID: "from_axiom_2",
			Parameters:   a.Vars,
			Condition:    world.NotCondition{Condition: a.Context},
			Modification: ProblemModification{WorldStateModification: world.DeleteFactMod{Fact: a.Implies}},
		},
	}
}
