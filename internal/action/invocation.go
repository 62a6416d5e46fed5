package action

import (
	"strings"

	"github.com/carloacu/goalplanner/internal/goal"
	"github.com/carloacu/goalplanner/internal/world"
)

// Invocation names an Action together with the parameter bindings that
// ground it. Bindings hold a single Term per parameter name — the
// search always settles on one concrete binding per parameter before
// returning a step, so no per-parameter alternative sets are needed.
type Invocation struct {
	ActionID string
	Bindings map[string]world.Term
}

// String renders "actionID(p1,p2)" in declared-parameter order.
func (inv Invocation) String(order []string) string {
	args := make([]string, 0, len(order))
	for _, name := range order {
		if t, ok := inv.Bindings[name]; ok {
			args = append(args, t.Value)
		}
	}
	return inv.ActionID + "(" + strings.Join(args, ",") + ")"
}

// InvocationWithGoal is one planned step: the action to perform plus
// the goal (and its priority) that motivated it — used for
// NotifyActionDone's one-step-towards check and for plan-output
// provenance.
type InvocationWithGoal struct {
	Invocation       Invocation
	FromGoal         *goal.Goal
	FromGoalPriority int
}
