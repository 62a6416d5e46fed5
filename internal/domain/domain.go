package domain

import (
	"sort"
	"time"

	"github.com/carloacu/goalplanner/internal/action"
	"github.com/carloacu/goalplanner/internal/goal"
	"github.com/carloacu/goalplanner/internal/ontology"
	"github.com/carloacu/goalplanner/internal/perrors"
	"github.com/carloacu/goalplanner/internal/world"
	"github.com/google/uuid"
)

// Domain is the operator collection a Problem plans against: actions,
// event sets, the type/constant ontology, timeless facts, and the
// succession cache derived from them. Built once, mutable via
// AddAction/RemoveAction/AddEventSet/RemoveEventSet, each of which
// invalidates and rebuilds the succession cache.
type Domain struct {
	// Name is the domain's declared name (PDDL `(domain NAME)`), used by
	// the pddl package to validate a problem's `(:domain NAME)` header
	// and to render emit_domain's output.
	Name      string
	Ontology  *ontology.Ontology
	Constants *ontology.SetOfEntities
	Timeless  []world.Fact

	actions   map[string]action.Action
	eventSets map[string]*action.SetOfEvents

	cache *SuccessionCache
}

// New builds an empty Domain over ont.
func New(ont *ontology.Ontology) *Domain {
	d := &Domain{
		Ontology:  ont,
		Constants: ontology.NewSetOfEntities(),
		actions:   make(map[string]action.Action),
		eventSets: make(map[string]*action.SetOfEvents),
	}
	d.rebuildCache()
	return d
}

// AddAction declares a new action id. Duplicate ids are rejected.
func (d *Domain) AddAction(id string, a action.Action) error {
	if _, exists := d.actions[id]; exists {
		return perrors.NewDomain("duplicate action id", id)
	}
	d.actions[id] = a
	d.rebuildCache()
	return nil
}

// RemoveAction drops an action id, rebuilding the succession cache.
func (d *Domain) RemoveAction(id string) {
	if _, exists := d.actions[id]; !exists {
		return
	}
	delete(d.actions, id)
	d.rebuildCache()
}

// Action looks up a declared action by id.
func (d *Domain) Action(id string) (action.Action, bool) {
	a, ok := d.actions[id]
	return a, ok
}

// Actions returns every declared action, keyed by id. Callers must not
// mutate the returned map.
func (d *Domain) Actions() map[string]action.Action { return d.actions }

// ActionIDs returns every declared action id, sorted, giving callers a
// stable iteration and tie-break order.
func (d *Domain) ActionIDs() []string {
	out := make([]string, 0, len(d.actions))
	for id := range d.actions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// AddEventSet declares a named group of events addressed by compound
// id (set_id, event_id).
func (d *Domain) AddEventSet(setID string, events ...action.Event) {
	set := &action.SetOfEvents{SetID: setID, Events: make(map[string]action.Event, len(events))}
	for _, e := range events {
		e.SetID = setID
		set.Events[e.EventID] = e
	}
	d.eventSets[setID] = set
	d.rebuildCache()
}

// RemoveEventSet drops a named event group.
func (d *Domain) RemoveEventSet(setID string) {
	if _, exists := d.eventSets[setID]; !exists {
		return
	}
	delete(d.eventSets, setID)
	d.rebuildCache()
}

// AddAxiom compiles axiom into its add/remove event pair and registers
// them under setID.
func (d *Domain) AddAxiom(setID string, axiom action.Axiom) {
	pair := axiom.Compile(setID)
	d.AddEventSet(setID, pair[0], pair[1])
}

// Events returns every declared event, flattened across all sets, as
// world.EventLike values ready for WorldState.Modify propagation —
// sorted by (SetID, EventID) so dispatch order is deterministic.
func (d *Domain) Events() []world.EventLike {
	var all []action.Event
	for _, set := range d.eventSets {
		for _, e := range set.Events {
			all = append(all, e)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].SetID != all[j].SetID {
			return all[i].SetID < all[j].SetID
		}
		return all[i].EventID < all[j].EventID
	})
	out := make([]world.EventLike, len(all))
	for i, e := range all {
		out[i] = e
	}
	return out
}

// EventSets returns every declared event group, keyed by set id.
func (d *Domain) EventSets() map[string]*action.SetOfEvents { return d.eventSets }

// SuccessionCache returns the current cache.
func (d *Domain) SuccessionCache() *SuccessionCache { return d.cache }

// Version returns the succession cache's version id, a fresh UUID
// minted on every rebuild, letting callers holding a stale reference
// detect the change.
func (d *Domain) Version() uuid.UUID { return d.cache.Version }

func (d *Domain) rebuildCache() {
	var nodes []operatorNode
	for id, a := range d.actions {
		nodes = append(nodes, operatorNode{
			id:         id,
			kind:       kindAction,
			precondLit: preconditionLiterals(a.Precondition),
			effectLit:  append(effectLiterals(a.Effect.WorldStateModification), effectLiterals(a.Effect.PotentialWorldStateModification)...),
		})
	}
	for _, set := range d.eventSets {
		for _, e := range set.Events {
			nodes = append(nodes, operatorNode{
				id:         e.Key(),
				kind:       kindEvent,
				precondLit: preconditionLiterals(e.Condition),
				effectLit:  effectLiterals(e.Modification.WorldStateModification),
			})
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].id < nodes[j].id })
	d.cache = buildSuccessionCache(nodes)
}

// Problem owns a live WorldState, GoalStack, Entities and Historical
// against a fixed Domain.
type Problem struct {
	Domain     *Domain
	WorldState *world.WorldState
	GoalStack  *goal.GoalStack
	Entities   *ontology.SetOfEntities
	Historical *action.Historical
	Callbacks  world.CallbackSink
}

// NewProblem builds a Problem against dom with an empty world and goal
// stack. Domain constants are seeded into Entities so Exists/Forall
// ranges over them alongside problem objects.
func NewProblem(dom *Domain) *Problem {
	entities := ontology.NewSetOfEntities()
	for _, c := range dom.Constants.All() {
		_ = entities.Add(c)
	}
	p := &Problem{
		Domain:     dom,
		WorldState: world.NewWorldState(),
		GoalStack:  goal.NewGoalStack(),
		Entities:   entities,
		Historical: action.NewHistorical(),
	}
	for _, f := range dom.Timeless {
		p.WorldState.AddFact(f, p.modifyContext())
	}
	p.RefreshAccessibleFacts()
	return p
}

// RefreshAccessibleFacts recomputes the Problem's accessible-facts
// cache from the current Domain's actions and events.
// Call after mutating the Domain (AddAction/RemoveAction/AddEventSet/
// RemoveEventSet) so the planner's CanFactBecomeTrue short-circuit stays
// in sync with what the domain can actually produce.
func (p *Problem) RefreshAccessibleFacts() {
	effects := make([]world.WorldStateModification, 0, len(p.Domain.actions))
	for _, a := range p.Domain.actions {
		effects = append(effects, a.Effect.WorldStateModification, a.Effect.PotentialWorldStateModification)
	}
	for _, evl := range p.Domain.Events() {
		effects = append(effects, evl.Effect())
	}
	p.WorldState.FillAccessibleFacts(effects)
}

func (p *Problem) modifyContext() world.ModifyContext {
	return world.ModifyContext{
		Ont:       p.Domain.Ontology,
		Entities:  p.Entities,
		Events:    p.Domain.Events(),
		Callbacks: p.Callbacks,
	}
}

// EvalContext projects the Problem's live state into an
// world.EvalContext for Condition evaluation.
func (p *Problem) EvalContext() *world.EvalContext {
	return &world.EvalContext{Facts: p.WorldState.Facts(), Ont: p.Domain.Ontology, Entities: p.Entities}
}

// ModifyContext exposes the collaborators WorldState.Modify needs,
// for callers outside this package that must seed or otherwise mutate
// WorldState directly — the pddl loader's `:init` block, in
// particular, which has no action id to route through ApplyAction.
func (p *Problem) ModifyContext() world.ModifyContext {
	return p.modifyContext()
}

// Clone returns an independent deep copy of the Problem (world state,
// goal stack, historical all cloned; Domain and Entities are shared,
// read-only collaborators), used by the planner to simulate a
// candidate action without mutating the real Problem.
func (p *Problem) Clone() *Problem {
	return &Problem{
		Domain:     p.Domain,
		WorldState: p.WorldState.Clone(),
		GoalStack:  p.GoalStack.Clone(),
		Entities:   p.Entities,
		Historical: p.Historical.Clone(),
	}
}

// ApplyAction grounds inv's action, applies its main effect (and, when
// isStart is true, its at-start effect instead) to WorldState, runs
// events to a fixed point, notifies GoalStack, and bumps Historical.
func (p *Problem) ApplyAction(inv action.InvocationWithGoal, isStart bool, now *time.Time) (bool, error) {
	a, ok := p.Domain.Action(inv.Invocation.ActionID)
	if !ok {
		return false, perrors.NewDomain("unknown action id", inv.Invocation.ActionID)
	}

	wsm := a.Effect.WorldStateModification
	if isStart {
		wsm = a.Effect.WorldStateModificationAtStart
	}

	var changed bool
	var err error
	if wsm != nil {
		changed, err = p.WorldState.Modify(wsm, p.modifyContext(), inv.Invocation.Bindings)
		if err != nil {
			return false, err
		}
	}

	bound := a.Effect.Bind(inv.Invocation.Bindings)
	stackChanged := p.GoalStack.NotifyActionDone(
		inv.FromGoal,
		bound.GoalsToAdd,
		bound.GoalsToAddInCurrentPriority,
		p.EvalContext(),
		now,
	)

	if !isStart {
		p.Historical.NotifyActionDone(inv.Invocation.ActionID)
	}

	return changed || stackChanged, nil
}
