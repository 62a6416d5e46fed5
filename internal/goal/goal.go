// Package goal implements the prioritized goal stack: persistence,
// one-step-towards semantics, inactivity timeouts and group ids.
package goal

import (
	"time"

	"github.com/carloacu/goalplanner/internal/world"
	"github.com/google/uuid"
)

// Goal is a single objective in a GoalStack.
//
// Label identifies the goal across mutating calls (priority changes,
// one-step-towards removal); callers building a Goal from PDDL should
// set it to the textual form of Objective. This sidesteps adding a
// full Condition stringifier to this package (that lives in the pddl
// package) while keeping goal identity meaningful.
type Goal struct {
	Objective      world.Condition
	IsPersistent   bool
	OneStepTowards bool
	ConditionFact  *world.Fact
	MaxInactive    *time.Duration
	InactiveSince  *time.Time
	GroupID        string
	Label          string
}

// EnsureGroupID assigns a fresh unique GroupID when the caller did not
// supply one, so RemoveGoals(group_id) can always address this goal
// individually.
func (g *Goal) EnsureGroupID() {
	if g.GroupID == "" {
		g.GroupID = uuid.NewString()
	}
}

// Equal compares two goals by identity (Label + GroupID), used to
// recognize "the goal that just advanced one step" during
// NotifyActionDone.
func (g Goal) Equal(other Goal) bool {
	return g.Label == other.Label && g.GroupID == other.GroupID
}

// IsSatisfied reports whether Objective currently holds.
func (g Goal) IsSatisfied(ctx *world.EvalContext) bool {
	ok, _ := world.EvalAny(g.Objective, ctx, nil)
	return ok
}

// IsActive reports whether the goal's imply-condition (if any) holds;
// an inactive goal is skipped by the search even while unsatisfied.
func (g Goal) IsActive(ctx *world.EvalContext) bool {
	if g.ConditionFact == nil {
		return true
	}
	return ctx.Facts.Has(*g.ConditionFact)
}

// SetInactiveSinceIfNotAlreadySet starts the inactivity clock the first
// time this goal is observed inactive; later calls are no-ops until
// NotifyActivity resets it.
func (g *Goal) SetInactiveSinceIfNotAlreadySet(now *time.Time) {
	if g.InactiveSince == nil {
		g.InactiveSince = now
	}
}

// NotifyActivity clears the inactivity clock.
func (g *Goal) NotifyActivity() {
	g.InactiveSince = nil
}

// IsInactiveForTooLong reports whether MaxInactive has elapsed since
// InactiveSince, as of now.
func (g Goal) IsInactiveForTooLong(now *time.Time) bool {
	if g.MaxInactive == nil || g.InactiveSince == nil || now == nil {
		return false
	}
	return now.Sub(*g.InactiveSince) > *g.MaxInactive
}
