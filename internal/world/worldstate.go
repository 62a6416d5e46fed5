package world

import (
	"sort"
	"strings"

	"github.com/carloacu/goalplanner/internal/ontology"
	"github.com/carloacu/goalplanner/internal/perrors"
)

// EventLike is the minimal shape WorldState.Modify needs from an event
// or axiom-derived event to run propagation. The richer action.Event
// type (duration, goal effects, ...) lives in the action package and
// satisfies this interface by projecting its plain world-state effect,
// which keeps this package free of an import cycle onto action/domain.
type EventLike interface {
	// Key uniquely identifies the operator, e.g. "setID/eventID" — used
	// to track (event, bound-parameter-tuple) firings within one Modify
	// call so a pathological event graph cannot loop forever.
	Key() string
	Precondition() Condition
	Effect() WorldStateModification
}

// CallbackSink receives the net delta of a top-level Modify call —
// invoked once per call, not once per intermediate event firing.
// Defined here (rather than depending on the callback package) to keep
// world free of upward imports; internal/callback.Registry implements
// it.
type CallbackSink interface {
	Dispatch(delta *WhatChanged)
}

// WhatChanged records the net effect of a Modify call: facts added,
// facts removed, punctual facts pinged, and fluent value changes.
type WhatChanged struct {
	AddedFacts    []Fact
	RemovedFacts  []Fact
	PunctualFacts []Fact
	ValueChanges  []ValueChange
}

// ValueChange records a fluent equation's old and new value.
type ValueChange struct {
	Fact      Fact // predicate+args (fluent is the new value, or nil if retracted)
	OldValue  string
	NewValue  string
	Retracted bool
}

func (w *WhatChanged) somethingChanged() bool {
	return len(w.AddedFacts) > 0 || len(w.RemovedFacts) > 0 || len(w.ValueChanges) > 0
}

func (w *WhatChanged) merge(other *WhatChanged) {
	w.AddedFacts = append(w.AddedFacts, other.AddedFacts...)
	w.RemovedFacts = append(w.RemovedFacts, other.RemovedFacts...)
	w.PunctualFacts = append(w.PunctualFacts, other.PunctualFacts...)
	w.ValueChanges = append(w.ValueChanges, other.ValueChanges...)
}

// WorldState is the facts store plus event-driven propagation.
type WorldState struct {
	facts *FactsMapping

	// accessibleFacts caches, per predicate, whether some action's
	// effect could ever add a fact of that predicate — populated by
	// FillAccessibleFacts.
	accessibleFacts map[ontology.PredicateID]bool
}

// NewWorldState builds an empty world.
func NewWorldState() *WorldState {
	return &WorldState{facts: NewFactsMapping()}
}

// Facts exposes the underlying indexed fact store (read-only use: Find,
// Has, ByValue, All).
func (ws *WorldState) Facts() *FactsMapping { return ws.facts }

// Clone returns an independent deep copy of ws, including its
// accessible-facts cache, for the planner to simulate effects on
// without mutating the real world.
func (ws *WorldState) Clone() *WorldState {
	out := &WorldState{facts: ws.facts.Clone()}
	if ws.accessibleFacts != nil {
		out.accessibleFacts = make(map[ontology.PredicateID]bool, len(ws.accessibleFacts))
		for k, v := range ws.accessibleFacts {
			out.accessibleFacts[k] = v
		}
	}
	return out
}

// HasFact reports whether a ground fact currently holds.
func (ws *WorldState) HasFact(f Fact) bool { return ws.facts.Has(f) }

// ModifyContext bundles the collaborators Modify needs beyond the
// WorldState itself.
type ModifyContext struct {
	Ont       *ontology.Ontology
	Entities  *ontology.SetOfEntities
	Events    []EventLike
	Callbacks CallbackSink
}

func (ctx ModifyContext) evalContext(ws *WorldState) *EvalContext {
	return &EvalContext{Facts: ws.facts, Ont: ctx.Ont, Entities: ctx.Entities}
}

// Modify applies wsm, then propagates events to a fixed point, then
// dispatches the net delta to Callbacks exactly once. Returns whether
// anything actually changed.
func (ws *WorldState) Modify(wsm WorldStateModification, ctx ModifyContext, bindings map[string]Term) (bool, error) {
	if err := CheckBound(wsm, boundNamesOf(bindings)); err != nil {
		return false, err
	}

	total := &WhatChanged{}
	delta, err := ws.apply(wsm, ctx, bindings)
	if err != nil {
		return false, err
	}
	total.merge(delta)

	if err := ws.propagateEvents(ctx, total); err != nil {
		return false, err
	}

	changed := total.somethingChanged()
	if changed && ctx.Callbacks != nil {
		ctx.Callbacks.Dispatch(total)
	}
	return changed, nil
}

// AddFact is sugar over Modify(AddFactMod{f}, ...).
func (ws *WorldState) AddFact(f Fact, ctx ModifyContext) (bool, error) {
	return ws.Modify(AddFactMod{Fact: f}, ctx, nil)
}

// RemoveFact is sugar over Modify(DeleteFactMod{f}, ...).
func (ws *WorldState) RemoveFact(f Fact, ctx ModifyContext) (bool, error) {
	return ws.Modify(DeleteFactMod{Fact: f}, ctx, nil)
}

// Query evaluates a condition against the current facts, returning the
// first satisfying binding extension if any.
func (ws *WorldState) Query(c Condition, ctx ModifyContext, bindings map[string]Term) (bool, map[string]Term) {
	return EvalAny(c, ctx.evalContext(ws), bindings)
}

func boundNamesOf(bindings map[string]Term) map[string]bool {
	out := make(map[string]bool, len(bindings))
	for k := range bindings {
		out[k] = true
	}
	return out
}

func (ws *WorldState) apply(wsm WorldStateModification, ctx ModifyContext, bindings map[string]Term) (*WhatChanged, error) {
	delta := &WhatChanged{}
	switch m := wsm.(type) {
	case AddFactMod:
		f := m.Fact.Bind(bindings)
		if !f.IsGround() {
			return nil, perrors.NewRuntime("unbound parameter applying add-fact effect", "")
		}
		if ws.facts.Add(f) {
			delta.AddedFacts = append(delta.AddedFacts, f)
		} else {
			delta.PunctualFacts = append(delta.PunctualFacts, f)
		}
		return delta, nil

	case DeleteFactMod:
		f := m.Fact.Bind(bindings)
		if !f.IsGround() {
			return nil, perrors.NewRuntime("unbound parameter applying delete-fact effect", "")
		}
		if ws.facts.Remove(f) {
			delta.RemovedFacts = append(delta.RemovedFacts, f)
		}
		return delta, nil

	case AssignMod:
		return ws.applyAssign(m, ctx, bindings)

	case ArithMod:
		return ws.applyArith(m, ctx, bindings)

	case WhenMod:
		ok, _ := EvalAny(m.Cond, ctx.evalContext(ws), bindings)
		if !ok {
			return delta, nil
		}
		return ws.apply(m.Then, ctx, bindings)

	case ForallMod:
		for _, e := range ctx.Entities.OfType(ctx.Ont, m.Var.Type) {
			extended := copyBindings(bindings)
			extended[m.Var.Name] = Term{Value: e.Value, Type: e.Type}
			sub, err := ws.apply(m.Then, ctx, extended)
			if err != nil {
				return nil, err
			}
			delta.merge(sub)
		}
		return delta, nil

	case AndMod:
		for _, sub := range m.Mods {
			sd, err := ws.apply(sub, ctx, bindings)
			if err != nil {
				return nil, err
			}
			delta.merge(sd)
		}
		return delta, nil

	default:
		return delta, nil
	}
}

func (ws *WorldState) applyAssign(m AssignMod, ctx ModifyContext, bindings map[string]Term) (*WhatChanged, error) {
	delta := &WhatChanged{}
	// Only the argument tuple must be ground; the pattern's fluent slot is
	// a placeholder naming the equation being written, never an input.
	pattern := m.Fluent.Bind(bindings)
	if !pattern.ArgsGround() {
		return nil, perrors.NewRuntime("unbound parameter applying assign effect", "")
	}
	key := Fact{Predicate: pattern.Predicate, Args: pattern.Args}
	old, hadOld := ws.facts.FluentValue(key)

	if m.ToUndefined {
		if ws.facts.Remove(key) {
			delta.ValueChanges = append(delta.ValueChanges, ValueChange{Fact: key, OldValue: old.Value, Retracted: true})
		}
		return delta, nil
	}

	val, err := m.Expr.Eval(bindings, ctx.evalContext(ws))
	if err != nil {
		return nil, err
	}
	if !val.Defined {
		if ws.facts.Remove(key) {
			delta.ValueChanges = append(delta.ValueChanges, ValueChange{Fact: key, OldValue: old.Value, Retracted: true})
		}
		return delta, nil
	}

	newValue := val.String()
	if hadOld && old.Value == newValue {
		return delta, nil
	}
	fluentTerm := Term{Value: newValue, Type: ctx.Ont.Predicate(pattern.Predicate).Fluent}
	newFact := Fact{Predicate: pattern.Predicate, Args: pattern.Args, Fluent: &fluentTerm}
	ws.facts.Add(newFact)
	delta.ValueChanges = append(delta.ValueChanges, ValueChange{Fact: key, OldValue: old.Value, NewValue: newValue})
	return delta, nil
}

func (ws *WorldState) applyArith(m ArithMod, ctx ModifyContext, bindings map[string]Term) (*WhatChanged, error) {
	delta := &WhatChanged{}
	pattern := m.Fluent.Bind(bindings)
	if !pattern.ArgsGround() {
		return nil, perrors.NewRuntime("unbound parameter applying arithmetic effect", "")
	}
	key := Fact{Predicate: pattern.Predicate, Args: pattern.Args}
	old, hadOld := ws.facts.FluentValue(key)
	if !hadOld {
		// undefined op x is undefined — the fluent stays unset.
		return delta, nil
	}
	cur := ParseNumeric(old.Value)

	amount, err := m.Expr.Eval(bindings, ctx.evalContext(ws))
	if err != nil {
		return nil, err
	}
	if !amount.Defined {
		return delta, nil
	}

	result := applyArithOp(m.Op, cur, amount)
	newValue := result.String()
	if newValue == old.Value {
		return delta, nil
	}
	fluentTerm := Term{Value: newValue, Type: ctx.Ont.Predicate(pattern.Predicate).Fluent}
	newFact := Fact{Predicate: pattern.Predicate, Args: pattern.Args, Fluent: &fluentTerm}
	ws.facts.Add(newFact)
	delta.ValueChanges = append(delta.ValueChanges, ValueChange{Fact: key, OldValue: old.Value, NewValue: newValue})
	return delta, nil
}

func applyArithOp(op ArithOp, cur, amount NumericValue) NumericValue {
	bothInt := cur.IsInt && amount.IsInt
	switch op {
	case ArithIncrease:
		if bothInt {
			return IntValue(cur.Int + amount.Int)
		}
		return FloatValue(cur.AsFloat64() + amount.AsFloat64())
	case ArithDecrease:
		if bothInt {
			return IntValue(cur.Int - amount.Int)
		}
		return FloatValue(cur.AsFloat64() - amount.AsFloat64())
	case ArithMultiply:
		if bothInt {
			return IntValue(cur.Int * amount.Int)
		}
		return FloatValue(cur.AsFloat64() * amount.AsFloat64())
	default:
		return cur
	}
}

// propagateEvents runs every event whose precondition could be affected
// by total to a fixed point, tracking (event key, bound-argument-tuple)
// pairs already fired this call so a pathological event graph cannot
// loop forever within one Modify. Events are scanned in
// (SetID, EventID) order, which fixes the outcome when two
// simultaneously-enabled events conflict.
func (ws *WorldState) propagateEvents(ctx ModifyContext, total *WhatChanged) error {
	if len(ctx.Events) == 0 {
		return nil
	}
	fired := make(map[string]bool)

	for {
		progressed := false
		for _, ev := range ctx.Events {
			ok, bindings := EvalAny(ev.Precondition(), ctx.evalContext(ws), nil)
			if !ok {
				continue
			}
			firingKey := ev.Key() + "/" + firingSignature(bindings)
			if fired[firingKey] {
				continue
			}
			fired[firingKey] = true

			delta, err := ws.apply(ev.Effect(), ctx, bindings)
			if err != nil {
				return err
			}
			if delta.somethingChanged() {
				total.merge(delta)
				progressed = true
			}
		}
		if !progressed {
			return nil
		}
	}
}

// firingSignature renders bindings into a canonical (sorted) key so the
// same (event, arguments) pair always produces the same string within a
// Modify call, regardless of map iteration order.
func firingSignature(bindings map[string]Term) string {
	keys := make([]string, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(bindings[k].Value)
		b.WriteByte(';')
	}
	return b.String()
}

// FillAccessibleFacts precomputes which predicate signatures are
// reachable at all through some action's effect in the domain, letting
// the planner short-circuit a branch whose goal fact can never become
// true.
func (ws *WorldState) FillAccessibleFacts(effects []WorldStateModification) {
	ws.accessibleFacts = make(map[ontology.PredicateID]bool)
	for _, eff := range effects {
		collectAddablePredicates(eff, ws.accessibleFacts)
	}
}

// CanFactBecomeTrue reports whether f's predicate is reachable
// according to the last FillAccessibleFacts call (always true before
// FillAccessibleFacts has been called, erring toward completeness).
func (ws *WorldState) CanFactBecomeTrue(f Fact) bool {
	if ws.accessibleFacts == nil {
		return true
	}
	return ws.accessibleFacts[f.Predicate]
}

func collectAddablePredicates(wsm WorldStateModification, out map[ontology.PredicateID]bool) {
	switch m := wsm.(type) {
	case AddFactMod:
		out[m.Fact.Predicate] = true
	case AssignMod:
		out[m.Fluent.Predicate] = true
	case ArithMod:
		out[m.Fluent.Predicate] = true
	case WhenMod:
		collectAddablePredicates(m.Then, out)
	case ForallMod:
		collectAddablePredicates(m.Then, out)
	case AndMod:
		for _, sub := range m.Mods {
			collectAddablePredicates(sub, out)
		}
	}
}
