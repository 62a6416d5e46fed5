// Package callback implements observer dispatch for world and
// goal-stack changes. Delivery fires during a Modify call and
// observers must not mutate the Problem they observe; the fact-changed
// observer is invoked once per top-level Modify call with the net
// delta. Registry satisfies world.CallbackSink so a Problem can be
// wired to observers without the world package depending on this one.
package callback

import (
	"sort"

	"github.com/carloacu/goalplanner/internal/goal"
	"github.com/carloacu/goalplanner/internal/world"
)

// ID identifies a registered callback so it can later be removed.
type ID int

// FactsChangedFunc is invoked once per top-level WorldState.Modify call
// with the net delta.
type FactsChangedFunc func(delta *world.WhatChanged)

// GoalsChangedFunc is invoked whenever the GoalStack's contents change
// (wired as goal.GoalStack.OnChanged).
type GoalsChangedFunc func(goals map[int][]goal.Goal)

// Registry fans a single dispatch out to every registered observer, in
// registration order, and queues nothing itself — callers are
// responsible for not mutating the Problem from inside a callback;
// Registry only guarantees delivery order, not isolation.
type Registry struct {
	nextID    ID
	facts     map[ID]FactsChangedFunc
	factOrder []ID
	goals     map[ID]GoalsChangedFunc
	goalOrder []ID
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		facts: make(map[ID]FactsChangedFunc),
		goals: make(map[ID]GoalsChangedFunc),
	}
}

// OnFactsChanged registers fn to run on every Dispatch, returning an ID
// that Remove accepts.
func (r *Registry) OnFactsChanged(fn FactsChangedFunc) ID {
	id := r.nextID
	r.nextID++
	r.facts[id] = fn
	r.factOrder = append(r.factOrder, id)
	return id
}

// OnGoalsChanged registers fn to run whenever the observed GoalStack's
// contents change; wire the returned dispatcher as
// goal.GoalStack.OnChanged via BindGoalStack.
func (r *Registry) OnGoalsChanged(fn GoalsChangedFunc) ID {
	id := r.nextID
	r.nextID++
	r.goals[id] = fn
	r.goalOrder = append(r.goalOrder, id)
	return id
}

// BindGoalStack installs the Registry as gs's OnChanged observer,
// fanning every stack mutation out to the registered goals-changed
// callbacks in registration order.
func (r *Registry) BindGoalStack(gs *goal.GoalStack) {
	gs.OnChanged = func(goals map[int][]goal.Goal) {
		for _, id := range r.goalOrder {
			if fn, ok := r.goals[id]; ok {
				fn(goals)
			}
		}
	}
}

// Remove unregisters a previously-registered callback.
func (r *Registry) Remove(id ID) {
	delete(r.facts, id)
	for i, existing := range r.factOrder {
		if existing == id {
			r.factOrder = append(r.factOrder[:i], r.factOrder[i+1:]...)
			break
		}
	}
	delete(r.goals, id)
	for i, existing := range r.goalOrder {
		if existing == id {
			r.goalOrder = append(r.goalOrder[:i], r.goalOrder[i+1:]...)
			break
		}
	}
}

// Dispatch implements world.CallbackSink, invoking every registered
// facts-changed observer with delta, in registration order.
func (r *Registry) Dispatch(delta *world.WhatChanged) {
	for _, id := range r.factOrder {
		if fn, ok := r.facts[id]; ok {
			fn(delta)
		}
	}
}

var _ world.CallbackSink = (*Registry)(nil)

// PunctualFactsOf extracts delta's punctual facts — notified once,
// never retained in the world state — sorted by predicate id then
// argument values, giving observers a deterministic order to render.
func PunctualFactsOf(delta *world.WhatChanged) []world.Fact {
	out := append([]world.Fact(nil), delta.PunctualFacts...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Predicate != out[j].Predicate {
			return out[i].Predicate < out[j].Predicate
		}
		for k := 0; k < len(out[i].Args) && k < len(out[j].Args); k++ {
			if out[i].Args[k].Value != out[j].Args[k].Value {
				return out[i].Args[k].Value < out[j].Args[k].Value
			}
		}
		return len(out[i].Args) < len(out[j].Args)
	})
	return out
}
