// Package main implements the goalplanner CLI: a thin shell over the
// library packages, with no planning logic of its own. One cobra root
// command built in init(), flags bound via cmd.Flags().
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carloacu/goalplanner/internal/callback"
	"github.com/carloacu/goalplanner/internal/clock"
	"github.com/carloacu/goalplanner/internal/config"
	"github.com/carloacu/goalplanner/internal/goal"
	"github.com/carloacu/goalplanner/internal/logging"
	"github.com/carloacu/goalplanner/internal/pddl"
	"github.com/carloacu/goalplanner/internal/planner"
	"github.com/carloacu/goalplanner/internal/world"
)

var (
	printSuccessions bool
	configPath       string
)

// rootCmd: `goalplanner <domain.pddl> <problem.pddl> [--print_successions]`.
var rootCmd = &cobra.Command{
	Use:           "goalplanner DOMAIN.pddl PROBLEM.pddl",
	Short:         "PDDL-compatible planner for agents with prioritized goals",
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPlan,
}

func init() {
	rootCmd.Flags().BoolVar(&printSuccessions, "print_successions", false, "print the domain's succession cache instead of planning")
	rootCmd.Flags().StringVar(&configPath, "config", "", "optional YAML config file (search/logging settings)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.Logging.Level, cfg.Logging.JSON); err != nil {
		return err
	}
	defer logging.Sync()

	domainPath, problemPath := args[0], args[1]

	domainSrc, err := os.ReadFile(domainPath)
	if err != nil {
		return fmt.Errorf("read domain file %s: %w", domainPath, err)
	}
	dom, err := pddl.ParseDomain(string(domainSrc))
	if err != nil {
		return err
	}

	if printSuccessions {
		fmt.Fprint(cmd.OutOrStdout(), dom.SuccessionCache().String(dom.Ontology))
		return nil
	}

	problemSrc, err := os.ReadFile(problemPath)
	if err != nil {
		return fmt.Errorf("read problem file %s: %w", problemPath, err)
	}
	prob, err := pddl.ParseProblem(string(problemSrc), dom)
	if err != nil {
		return err
	}

	registry := callback.NewRegistry()
	registry.OnFactsChanged(func(delta *world.WhatChanged) {
		logging.L().Debug("world changed",
			zap.Int("added", len(delta.AddedFacts)),
			zap.Int("removed", len(delta.RemovedFacts)),
			zap.Int("value_changes", len(delta.ValueChanges)),
			zap.Int("punctual", len(callback.PunctualFactsOf(delta))),
		)
	})
	registry.OnGoalsChanged(func(goals map[int][]goal.Goal) {
		logging.L().Debug("goal stack changed", zap.Int("tiers", len(goals)))
	})
	registry.BindGoalStack(prob.GoalStack)
	prob.Callbacks = registry

	logging.L().Info("planning",
		zap.String("domain", dom.Name),
		zap.Int("actions", len(dom.ActionIDs())),
	)

	steps := planner.ParallelPlanForEveryGoal(prob, dom, cfg.Search, clock.System{}.Now())
	fmt.Fprint(cmd.OutOrStdout(), pddl.EmitPlan(steps, dom, prob.EvalContext()))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
