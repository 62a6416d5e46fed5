package planner

import (
	"time"

	"github.com/carloacu/goalplanner/internal/action"
	"github.com/carloacu/goalplanner/internal/config"
	"github.com/carloacu/goalplanner/internal/domain"
	"github.com/carloacu/goalplanner/internal/logging"
	"github.com/carloacu/goalplanner/internal/parallel"
	"github.com/carloacu/goalplanner/internal/world"
	"go.uber.org/zap"
)

// Status classifies a single search step's outcome. An unreachable
// goal is not an error; it is reported through this value.
type Status int

const (
	// StatusFinished means every active goal is currently satisfied.
	StatusFinished Status = iota
	// StatusInProgress means an action was found to perform next.
	StatusInProgress
	// StatusUnreachable means the current goal cannot be progressed
	// within the search bound.
	StatusUnreachable
)

func (s Status) String() string {
	switch s {
	case StatusFinished:
		return "FINISHED"
	case StatusInProgress:
		return "IN_PROGRESS"
	default:
		return "FINISHED_ON_FAILURE"
	}
}

// Plan is a sequence of grounded action invocations, each with the goal
// that motivated it.
type Plan []action.InvocationWithGoal

// Outcome is one LookForAnAction result.
type Outcome struct {
	Action *action.InvocationWithGoal
	Status Status
}

// LookForAnAction finds the current goal, then the next action that
// brings it closer, recursing through unsatisfied preconditions.
func LookForAnAction(prob *domain.Problem, dom *domain.Domain, cfg config.SearchConfig, now *time.Time) Outcome {
	g, priority, ok := currentGoal(prob, cfg.AllowOneStepTowards)
	if !ok {
		return Outcome{Status: StatusFinished}
	}

	lits, decomposable := decompose(g.Objective, nil)
	if !decomposable {
		logging.L().Warn("goal objective outside search decomposition scope", zap.String("goal", g.Label))
		return Outcome{Status: StatusUnreachable}
	}

	ctx := prob.EvalContext()
	for _, lit := range lits {
		if literalHolds(lit, ctx) {
			continue
		}
		cand, found := findAction(lit, prob, dom, cfg.MaxPlanLength, 0, map[string]bool{})
		if !found {
			return Outcome{Status: StatusUnreachable}
		}
		if cand == nil {
			continue
		}
		gg := *g
		inv := action.InvocationWithGoal{
			Invocation:       action.Invocation{ActionID: cand.actionID, Bindings: cand.bindings},
			FromGoal:         &gg,
			FromGoalPriority: priority,
		}
		return Outcome{Action: &inv, Status: StatusInProgress}
	}
	return Outcome{Status: StatusFinished}
}

// PlanForEveryGoal repeatedly finds the next action on a working copy
// of problem, applies it (effect + events + goal-stack notification),
// and appends it to the plan, until no more actions are found or the
// search bound is reached.
func PlanForEveryGoal(prob *domain.Problem, dom *domain.Domain, cfg config.SearchConfig, now *time.Time) Plan {
	working := prob.Clone()
	var plan Plan

	for i := 0; i < cfg.MaxPlanLength; i++ {
		out := LookForAnAction(working, dom, cfg, now)
		if out.Status != StatusInProgress || out.Action == nil {
			break
		}
		plan = append(plan, *out.Action)
		if _, err := working.ApplyAction(*out.Action, false, now); err != nil {
			logging.L().Error("plan simulation failed applying action", zap.String("action", out.Action.Invocation.ActionID), zap.Error(err))
			break
		}
	}
	return plan
}

// PlanForMoreImportantGoalPossible builds a plan for the current
// highest-priority goal only, unless tryToDoMore asks the search to
// keep going into lower tiers once that goal is satisfied.
func PlanForMoreImportantGoalPossible(prob *domain.Problem, dom *domain.Domain, cfg config.SearchConfig, tryToDoMore bool, now *time.Time) Plan {
	working := prob.Clone()
	_, topPriority, ok := currentGoal(working, cfg.AllowOneStepTowards)
	if !ok {
		return nil
	}

	var plan Plan
	for i := 0; i < cfg.MaxPlanLength; i++ {
		out := LookForAnAction(working, dom, cfg, now)
		if out.Status != StatusInProgress || out.Action == nil {
			break
		}
		if !tryToDoMore && out.Action.FromGoalPriority != topPriority {
			break
		}
		plan = append(plan, *out.Action)
		if _, err := working.ApplyAction(*out.Action, false, now); err != nil {
			break
		}
		if !tryToDoMore {
			_, newTop, stillOk := currentGoal(working, cfg.AllowOneStepTowards)
			if !stillOk || newTop != topPriority {
				break
			}
		}
	}
	return plan
}

// ActionsToDoInParallelNow returns the first parallel step of the plan
// the search currently proposes.
func ActionsToDoInParallelNow(prob *domain.Problem, dom *domain.Domain, cfg config.SearchConfig, now *time.Time) parallel.Step {
	steps := ParallelPlanForEveryGoal(prob, dom, cfg, now)
	if len(steps) == 0 {
		return parallel.Step{}
	}
	return steps[0]
}

// ParallelPlanForEveryGoal generates the serial plan, then groups it
// into parallel steps.
func ParallelPlanForEveryGoal(prob *domain.Problem, dom *domain.Domain, cfg config.SearchConfig, now *time.Time) []parallel.Step {
	serial := PlanForEveryGoal(prob, dom, cfg, now)
	return parallel.Group(serial, prob, dom, now)
}

// Evaluate re-checks a previously computed plan's validity against
// problem's current state: every action's precondition must hold at
// the point it is reached.
func Evaluate(plan Plan, prob *domain.Problem, dom *domain.Domain, now *time.Time) bool {
	working := prob.Clone()
	for _, inv := range plan {
		a, ok := dom.Action(inv.Invocation.ActionID)
		if !ok {
			return false
		}
		if a.Precondition != nil {
			holds, _ := world.EvalAny(a.Precondition, working.EvalContext(), inv.Invocation.Bindings)
			if !holds {
				return false
			}
		}
		if _, err := working.ApplyAction(inv, false, now); err != nil {
			return false
		}
	}
	return true
}
