package goal

import (
	"sort"
	"time"

	"github.com/carloacu/goalplanner/internal/world"
)

// DefaultPriority is the priority tier goals are placed in when the
// caller does not ask for a specific one.
const DefaultPriority = 10

// ManageGoalFunc decides, for the current unsatisfied goal encountered
// while scanning top-priority-first, whether the scan should halt here
// (true: this goal remains the one "in progress", leave it and
// everything after it untouched) or continue past it, subject to the
// persistence rule (false: treat this goal like any other finished
// goal — drop it unless persistent).
type ManageGoalFunc func(g *Goal, priority int) bool

// OnChanged is invoked whenever the stack's contents change.
type OnChanged func(goals map[int][]Goal)

// GoalStack is the priority-ordered goal list. There is no stored
// current-goal back-reference to invalidate on mutation; GetCurrentGoal
// recomputes the current goal from scratch on demand — cheap, since
// goal counts are small, and immune to dangling-index hazards.
type GoalStack struct {
	goals     map[int][]Goal
	OnChanged OnChanged
}

// NewGoalStack builds an empty stack.
func NewGoalStack() *GoalStack {
	return &GoalStack{goals: make(map[int][]Goal)}
}

func (gs *GoalStack) notify() {
	if gs.OnChanged != nil {
		gs.OnChanged(gs.goals)
	}
}

func (gs *GoalStack) sortedPrioritiesDesc() []int {
	out := make([]int, 0, len(gs.goals))
	for p := range gs.goals {
		out = append(out, p)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// GetCurrentGoal returns the front goal of the highest non-empty tier,
// or false if the stack is empty. It does not evaluate the goal: a goal
// that is already satisfied is returned like any other.
func (gs *GoalStack) GetCurrentGoal() (Goal, bool) {
	for _, p := range gs.sortedPrioritiesDesc() {
		tier := gs.goals[p]
		if len(tier) > 0 {
			return tier[0], true
		}
	}
	return Goal{}, false
}

// Snapshot returns the priority->goals map. Callers must not mutate it.
func (gs *GoalStack) Snapshot() map[int][]Goal { return gs.goals }

// Clone returns an independent copy of the stack, without carrying over
// OnChanged — used by the planner to simulate NotifyActionDone on a
// scratch stack without dispatching real observer callbacks.
func (gs *GoalStack) Clone() *GoalStack {
	return &GoalStack{goals: cloneGoalMap(gs.goals)}
}

// GetNotSatisfiedGoals returns every goal, per priority, that does not
// currently hold.
func (gs *GoalStack) GetNotSatisfiedGoals(ctx *world.EvalContext) map[int][]Goal {
	res := make(map[int][]Goal)
	for p, tier := range gs.goals {
		for _, g := range tier {
			if !g.IsSatisfied(ctx) {
				res[p] = append(res[p], g)
			}
		}
	}
	return res
}

// SetGoals replaces the entire stack.
func (gs *GoalStack) SetGoals(goals map[int][]Goal, ctx *world.EvalContext, now *time.Time) {
	gs.goals = cloneGoalMap(goals)
	gs.notify()
	if gs.removeNonStackable(ctx, now) {
		gs.notify()
	}
}

// AddGoals prepends each priority's new goals ahead of any existing
// goals already at that priority.
func (gs *GoalStack) AddGoals(goals map[int][]Goal, ctx *world.EvalContext, now *time.Time) bool {
	if len(goals) == 0 {
		return false
	}
	for p, add := range goals {
		gs.goals[p] = append(append([]Goal{}, add...), gs.goals[p]...)
	}
	gs.notify()
	changed := gs.removeNonStackable(ctx, now)
	if changed {
		gs.notify()
	}
	return true
}

// PushFrontGoal inserts g at the front of priority's tier.
func (gs *GoalStack) PushFrontGoal(g Goal, priority int, ctx *world.EvalContext, now *time.Time) {
	gs.goals[priority] = append([]Goal{g}, gs.goals[priority]...)
	gs.notify()
	if gs.removeNonStackable(ctx, now) {
		gs.notify()
	}
}

// PushBackGoal appends g to the back of priority's tier.
func (gs *GoalStack) PushBackGoal(g Goal, priority int, ctx *world.EvalContext, now *time.Time) {
	gs.goals[priority] = append(gs.goals[priority], g)
	gs.notify()
	if gs.removeNonStackable(ctx, now) {
		gs.notify()
	}
}

// ChangeGoalPriority moves the goal identified by label to a new
// priority tier, optionally keeping it at the front in case of
// conflict with other goals already there.
func (gs *GoalStack) ChangeGoalPriority(label string, newPriority int, pushFront bool, ctx *world.EvalContext, now *time.Time) {
	var moved *Goal
	changed := false
	for p, tier := range gs.goals {
		for i, g := range tier {
			if g.Label == label {
				moved = &g
				gs.goals[p] = append(tier[:i], tier[i+1:]...)
				changed = true
				break
			}
		}
		if moved != nil {
			break
		}
	}
	for p, tier := range gs.goals {
		if len(tier) == 0 {
			delete(gs.goals, p)
		}
	}
	if moved != nil {
		if pushFront {
			gs.goals[newPriority] = append([]Goal{*moved}, gs.goals[newPriority]...)
		} else {
			gs.goals[newPriority] = append(gs.goals[newPriority], *moved)
		}
	}
	changed = gs.removeNonStackable(ctx, now) || changed
	if changed {
		gs.notify()
	}
}

// ClearGoals empties the stack.
func (gs *GoalStack) ClearGoals(ctx *world.EvalContext, now *time.Time) {
	if len(gs.goals) == 0 {
		return
	}
	gs.goals = make(map[int][]Goal)
	gs.removeNonStackable(ctx, now)
	gs.notify()
}

// RemoveGoals drops every goal belonging to groupID.
func (gs *GoalStack) RemoveGoals(groupID string, ctx *world.EvalContext, now *time.Time) bool {
	changed := false
	for p, tier := range gs.goals {
		kept := tier[:0:0]
		for _, g := range tier {
			if g.GroupID == groupID {
				changed = true
				continue
			}
			kept = append(kept, g)
		}
		if len(kept) == 0 {
			delete(gs.goals, p)
		} else {
			gs.goals[p] = kept
		}
	}
	if changed {
		gs.removeNonStackable(ctx, now)
		gs.notify()
		return true
	}
	return false
}

// RemoveFirstGoalsThatAreAlreadySatisfied pops satisfied non-persistent
// goals off the front of the top tier, stopping at the first
// unsatisfied goal.
func (gs *GoalStack) RemoveFirstGoalsThatAreAlreadySatisfied(ctx *world.EvalContext, now *time.Time) {
	if gs.iterateAndRemoveNonPersistent(func(*Goal, int) bool { return true }, ctx, now) {
		gs.notify()
	}
}

// IterateAndRemoveNonPersistent exposes the scan-and-prune loop for
// callers that need custom halt logic.
func (gs *GoalStack) IterateAndRemoveNonPersistent(manage ManageGoalFunc, ctx *world.EvalContext, now *time.Time) {
	if gs.iterateAndRemoveNonPersistent(manage, ctx, now) {
		gs.notify()
	}
}

// NotifyActionDone processes an action completion: remove the
// one-step-towards goal that motivated the action (if any), otherwise
// pop satisfied non-persistent goals from the front; then merge in
// newly added goals; returns whether anything changed.
func (gs *GoalStack) NotifyActionDone(
	fromGoal *Goal,
	goalsToAdd map[int][]Goal,
	goalsToAddInCurrentPriority []Goal,
	ctx *world.EvalContext,
	now *time.Time,
) bool {
	currentPriority := gs.currentPriority(ctx)

	var changed bool
	if fromGoal != nil && fromGoal.OneStepTowards {
		changed = gs.iterateAndRemoveNonPersistent(func(g *Goal, _ int) bool {
			return !g.Equal(*fromGoal)
		}, ctx, now)
	} else {
		changed = gs.iterateAndRemoveNonPersistent(func(*Goal, int) bool { return true }, ctx, now)
	}

	if len(goalsToAdd) > 0 {
		if gs.AddGoals(goalsToAdd, ctx, now) {
			changed = true
		}
	}
	if len(goalsToAddInCurrentPriority) > 0 {
		if gs.AddGoals(map[int][]Goal{currentPriority: goalsToAddInCurrentPriority}, ctx, now) {
			changed = true
		}
	}

	if changed {
		gs.notify()
		return true
	}
	return false
}

func (gs *GoalStack) currentPriority(ctx *world.EvalContext) int {
	for _, p := range gs.sortedPrioritiesDesc() {
		for _, g := range gs.goals[p] {
			if !g.IsPersistent || !g.IsSatisfied(ctx) {
				return p
			}
		}
	}
	return 0
}

// iterateAndRemoveNonPersistent scans tiers highest-priority first,
// front to back. The very first goal visited in the call counts as the
// currently-pursued goal (everything is recomputed fresh per call
// rather than held in a cross-call pointer); every later goal is
// treated as not "currently active" for the inactivity-timeout rule.
func (gs *GoalStack) iterateAndRemoveNonPersistent(manage ManageGoalFunc, ctx *world.EvalContext, now *time.Time) bool {
	changed := false
	first := true

	for _, p := range gs.sortedPrioritiesDesc() {
		tier := gs.goals[p]
		kept := tier[:0:0]
		halted := false

		for i := 0; i < len(tier); i++ {
			g := tier[i]

			if !first && g.IsInactiveForTooLong(now) {
				changed = true
				continue
			}

			if !g.IsSatisfied(ctx) {
				if manage(&g, p) {
					kept = append(kept, g)
					kept = append(kept, tier[i+1:]...)
					halted = true
					first = false
					break
				}
			}

			if g.IsPersistent {
				g.SetInactiveSinceIfNotAlreadySet(now)
				kept = append(kept, g)
			} else {
				changed = true
			}
			first = false
		}

		if len(kept) == 0 {
			delete(gs.goals, p)
		} else {
			gs.goals[p] = kept
		}
		if halted {
			break
		}
	}
	return changed
}

// removeNonStackable drops every unsatisfied goal that is not the
// topmost unsatisfied one once it has been inactive for too long, and
// starts the inactivity clock of the others. Satisfied goals are kept;
// persistence is not consulted here.
func (gs *GoalStack) removeNonStackable(ctx *world.EvalContext, now *time.Time) bool {
	changed := false
	first := true

	for _, p := range gs.sortedPrioritiesDesc() {
		tier := gs.goals[p]
		kept := tier[:0:0]
		for _, g := range tier {
			if g.IsSatisfied(ctx) {
				kept = append(kept, g)
				continue
			}
			if first {
				first = false
				kept = append(kept, g)
				continue
			}
			if !g.IsInactiveForTooLong(now) {
				g.SetInactiveSinceIfNotAlreadySet(now)
				kept = append(kept, g)
				continue
			}
			changed = true
		}
		if len(kept) == 0 {
			delete(gs.goals, p)
		} else {
			gs.goals[p] = kept
		}
	}
	return changed
}

func cloneGoalMap(in map[int][]Goal) map[int][]Goal {
	out := make(map[int][]Goal, len(in))
	for p, tier := range in {
		out[p] = append([]Goal(nil), tier...)
	}
	return out
}
