package pddl

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/carloacu/goalplanner/internal/action"
	"github.com/carloacu/goalplanner/internal/domain"
	"github.com/carloacu/goalplanner/internal/goal"
	"github.com/carloacu/goalplanner/internal/ontology"
	"github.com/carloacu/goalplanner/internal/parallel"
	"github.com/carloacu/goalplanner/internal/perrors"
	"github.com/carloacu/goalplanner/internal/world"
)

// emitCtx carries the ontology and the currently in-scope parameters an
// emission needs to turn a Condition/WorldStateModification/NumericExpr
// back into PDDL text.
type emitCtx struct {
	ont    *ontology.Ontology
	params []ontology.Parameter
}

func (c emitCtx) identReplacements(refs map[string]world.Fact) map[string]string {
	out := make(map[string]string, len(refs)+len(c.params))
	for ident, f := range refs {
		out[ident] = factPatternString(f, c.ont)
	}
	for _, p := range c.params {
		out[world.SanitizeIdent(p.Name)] = p.Name
	}
	return out
}

func factPatternString(f world.Fact, ont *ontology.Ontology) string {
	pred := ont.Predicate(f.Predicate)
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.Value
	}
	if len(args) == 0 {
		return fmt.Sprintf("(%s)", pred.Name)
	}
	return fmt.Sprintf("(%s %s)", pred.Name, strings.Join(args, " "))
}

// groundFactString renders a stored ground fact the way :init/:timeless
// declares it: `(pred args)` for a boolean fact, `(= (pred args) v)` for
// a fluent equation — the inverse of parseGroundFact.
func groundFactString(f world.Fact, ont *ontology.Ontology) string {
	base := factPatternString(f, ont)
	if f.Fluent == nil {
		return base
	}
	return fmt.Sprintf("(= %s %s)", base, f.Fluent.Value)
}

var identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

func substituteIdents(src string, replacements map[string]string) string {
	return identRe.ReplaceAllStringFunc(src, func(tok string) string {
		if r, ok := replacements[tok]; ok {
			return r
		}
		return tok
	})
}

// emitNumericExpr reconstructs PDDL prefix arithmetic from a NumericExpr
// compiled by parseNumericExpr. This is a best-effort inverse of that
// one builder (fully-parenthesized infix with a single repeated
// operator per nesting level, plus the "(-(x))" unary-minus encoding) —
// it is not a general expr-lang-to-PDDL transpiler, documented in
// DESIGN.md as a deliberately modest round trip.
func emitNumericExpr(e world.NumericExpr, ctx emitCtx) (string, error) {
	substituted := substituteIdents(e.Source, ctx.identReplacements(e.FluentRefs))
	return toPrefix(substituted)
}

func toPrefix(frag string) (string, error) {
	frag = strings.TrimSpace(frag)
	if frag == "" {
		return "", perrors.NewParse("empty numeric expression fragment", "", -1)
	}
	if strings.HasPrefix(frag, "-(") && strings.HasSuffix(frag, ")") {
		inner, err := toPrefix(frag[2 : len(frag)-1])
		if err != nil {
			return "", err
		}
		return "(- " + inner + ")", nil
	}
	if strings.HasPrefix(frag, "(") && strings.HasSuffix(frag, ")") {
		inner := frag[1 : len(frag)-1]
		op, operands, ok := splitTopLevelOperator(inner)
		if !ok {
			return toPrefix(inner)
		}
		parts := make([]string, len(operands))
		for i, o := range operands {
			p, err := toPrefix(o)
			if err != nil {
				return "", err
			}
			parts[i] = p
		}
		return "(" + op + " " + strings.Join(parts, " ") + ")", nil
	}
	return frag, nil
}

func splitTopLevelOperator(inner string) (op string, operands []string, ok bool) {
	depth := 0
	lastSplit := 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '+', '-', '*', '/':
			if depth == 0 && i > 0 && inner[i-1] == ' ' && i+1 < len(inner) && inner[i+1] == ' ' {
				if op == "" {
					op = string(inner[i])
				}
				operands = append(operands, inner[lastSplit:i-1])
				lastSplit = i + 2
			}
		}
	}
	operands = append(operands, inner[lastSplit:])
	if len(operands) < 2 {
		return "", nil, false
	}
	return op, operands, true
}

func typedVarString(p ontology.Parameter, ont *ontology.Ontology) string {
	if p.Type == ontology.NoType {
		return p.Name
	}
	return fmt.Sprintf("%s - %s", p.Name, ont.TypeName(p.Type))
}

// conditionString renders a Condition back into PDDL text.
func conditionString(c world.Condition, ctx emitCtx) (string, error) {
	switch cc := c.(type) {
	case world.AndCondition:
		if len(cc.Conditions) == 0 {
			return "()", nil
		}
		parts, err := conditionStrings(cc.Conditions, ctx)
		if err != nil {
			return "", err
		}
		return "(and " + strings.Join(parts, " ") + ")", nil
	case world.OrCondition:
		parts, err := conditionStrings(cc.Conditions, ctx)
		if err != nil {
			return "", err
		}
		return "(or " + strings.Join(parts, " ") + ")", nil
	case world.NotCondition:
		inner, err := conditionString(cc.Condition, ctx)
		if err != nil {
			return "", err
		}
		return "(not " + inner + ")", nil
	case world.ImplyCondition:
		a, err := conditionString(cc.A, ctx)
		if err != nil {
			return "", err
		}
		b, err := conditionString(cc.B, ctx)
		if err != nil {
			return "", err
		}
		return "(imply " + a + " " + b + ")", nil
	case world.ExistsCondition:
		inner, err := conditionString(cc.Condition, ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(exists (%s) %s)", typedVarString(cc.Var, ctx.ont), inner), nil
	case world.ForallCondition:
		inner, err := conditionString(cc.Condition, ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(forall (%s) %s)", typedVarString(cc.Var, ctx.ont), inner), nil
	case world.NumericCompareCondition:
		expr, err := emitNumericExpr(cc.Expr, ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", cc.Op, factPatternString(cc.Fluent, ctx.ont), expr), nil
	case world.FluentEqualityCondition:
		op := "="
		if cc.Negated {
			op = "!="
		}
		if cc.RightUndefined {
			return fmt.Sprintf("(%s %s %s)", op, factPatternString(cc.Left, ctx.ont), world.Undefined), nil
		}
		return fmt.Sprintf("(%s %s %s)", op, factPatternString(cc.Left, ctx.ont), factPatternString(cc.Right, ctx.ont)), nil
	case world.FactCondition:
		s := factPatternString(cc.Fact, ctx.ont)
		if cc.Negated {
			return "(not " + s + ")", nil
		}
		return s, nil
	default:
		return "", perrors.NewParse(fmt.Sprintf("unknown condition variant %T", c), "", -1)
	}
}

func conditionStrings(conds []world.Condition, ctx emitCtx) ([]string, error) {
	out := make([]string, len(conds))
	for i, c := range conds {
		s, err := conditionString(c, ctx)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// wsmString renders a WorldStateModification back into PDDL text.
func wsmString(m world.WorldStateModification, ctx emitCtx) (string, error) {
	switch mm := m.(type) {
	case world.AndMod:
		if len(mm.Mods) == 0 {
			return "()", nil
		}
		parts := make([]string, len(mm.Mods))
		for i, sub := range mm.Mods {
			s, err := wsmString(sub, ctx)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "(and " + strings.Join(parts, " ") + ")", nil
	case world.AddFactMod:
		return factPatternString(mm.Fact, ctx.ont), nil
	case world.DeleteFactMod:
		return "(not " + factPatternString(mm.Fact, ctx.ont) + ")", nil
	case world.AssignMod:
		if mm.ToUndefined {
			return fmt.Sprintf("(= %s %s)", factPatternString(mm.Fluent, ctx.ont), world.Undefined), nil
		}
		expr, err := emitNumericExpr(mm.Expr, ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(= %s %s)", factPatternString(mm.Fluent, ctx.ont), expr), nil
	case world.ArithMod:
		expr, err := emitNumericExpr(mm.Expr, ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", mm.Op, factPatternString(mm.Fluent, ctx.ont), expr), nil
	case world.WhenMod:
		cond, err := conditionString(mm.Cond, ctx)
		if err != nil {
			return "", err
		}
		then, err := wsmString(mm.Then, ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(when %s %s)", cond, then), nil
	case world.ForallMod:
		then, err := wsmString(mm.Then, ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(forall (%s) %s)", typedVarString(mm.Var, ctx.ont), then), nil
	default:
		return "", perrors.NewParse(fmt.Sprintf("unknown effect variant %T", m), "", -1)
	}
}

// EmitDomain renders dom back into PDDL text that parses to an
// equivalent Domain. Axioms are not re-emitted: Domain.AddAxiom
// immediately compiles an Axiom into its from_axiom/from_axiom_2 event
// pair and the source Axiom value is not retained, so there is nothing
// left to print a `:axiom` block from — documented in DESIGN.md.
// Durative actions re-expand Precondition identically into both
// `(at start …)` and `(at end …)`, since ParseDomain folds both phases
// into that single field; this is a named, deliberate fidelity loss
// for a non-temporal planner.
func EmitDomain(dom *domain.Domain) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "(define (domain %s)\n", dom.Name)
	b.WriteString("  (:requirements :strips :typing :negative-preconditions :disjunctive-preconditions\n")
	b.WriteString("    :equality :existential-preconditions :universal-preconditions :quantified-preconditions\n")
	b.WriteString("    :conditional-effects :fluents :numeric-fluents :durative-actions :derived-predicates\n")
	b.WriteString("    :constants :timeless)\n")

	if types := emitTypesBlock(dom.Ontology); types != "" {
		fmt.Fprintf(&b, "  (:types %s)\n", types)
	}
	if consts := emitEntities(dom.Constants, dom.Ontology); consts != "" {
		fmt.Fprintf(&b, "  (:constants %s)\n", consts)
	}

	var predLines, funcLines []string
	for _, p := range dom.Ontology.Predicates() {
		args := make([]string, len(p.Parameters))
		for i, a := range p.Parameters {
			args[i] = typedVarString(a, dom.Ontology)
		}
		decl := fmt.Sprintf("(%s %s)", p.Name, strings.Join(args, " "))
		if p.IsFluent() {
			funcLines = append(funcLines, fmt.Sprintf("%s - %s", decl, dom.Ontology.TypeName(p.Fluent)))
		} else {
			predLines = append(predLines, decl)
		}
	}
	if len(predLines) > 0 {
		fmt.Fprintf(&b, "  (:predicates\n    %s)\n", strings.Join(predLines, "\n    "))
	}
	if len(funcLines) > 0 {
		fmt.Fprintf(&b, "  (:functions\n    %s)\n", strings.Join(funcLines, "\n    "))
	}

	if len(dom.Timeless) > 0 {
		facts := make([]string, len(dom.Timeless))
		for i, f := range dom.Timeless {
			facts[i] = groundFactString(f, dom.Ontology)
		}
		fmt.Fprintf(&b, "  (:timeless %s)\n", strings.Join(facts, " "))
	}

	for _, id := range dom.ActionIDs() {
		a, _ := dom.Action(id)
		s, err := emitActionBlock(id, a, dom.Ontology)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}

	b.WriteString(")\n")
	return b.String(), nil
}

func emitTypesBlock(ont *ontology.Ontology) string {
	byParent := map[ontology.TypeID][]string{}
	var roots []string
	for i := 1; i < len(ont.Types()); i++ { // skip the built-in number type at index 0
		t := ont.Types()[i]
		if t.Parent == ontology.NoType {
			roots = append(roots, t.Name)
		} else {
			byParent[t.Parent] = append(byParent[t.Parent], t.Name)
		}
	}
	var parts []string
	for parent, names := range byParent {
		parts = append(parts, fmt.Sprintf("%s - %s", strings.Join(names, " "), ont.TypeName(parent)))
	}
	if len(roots) > 0 {
		parts = append(parts, strings.Join(roots, " "))
	}
	return strings.Join(parts, " ")
}

func emitEntities(set *ontology.SetOfEntities, ont *ontology.Ontology) string {
	byType := map[ontology.TypeID][]string{}
	var order []ontology.TypeID
	for _, e := range set.All() {
		if _, ok := byType[e.Type]; !ok {
			order = append(order, e.Type)
		}
		byType[e.Type] = append(byType[e.Type], e.Value)
	}
	var parts []string
	for _, t := range order {
		if t == ontology.NoType {
			parts = append(parts, strings.Join(byType[t], " "))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s - %s", strings.Join(byType[t], " "), ont.TypeName(t)))
	}
	return strings.Join(parts, " ")
}

func emitActionBlock(id string, a action.Action, ont *ontology.Ontology) (string, error) {
	params := make([]string, len(a.Parameters))
	for i, p := range a.Parameters {
		params[i] = typedVarString(p, ont)
	}
	ctx := emitCtx{ont: ont, params: a.Parameters}

	durative := a.Duration.Source != "" || a.OverAllCondition != nil || a.Effect.WorldStateModificationAtStart != nil
	if !durative {
		pre := "()"
		if a.Precondition != nil {
			s, err := conditionString(a.Precondition, ctx)
			if err != nil {
				return "", err
			}
			pre = s
		}
		eff := "()"
		if a.Effect.WorldStateModification != nil {
			s, err := wsmString(a.Effect.WorldStateModification, ctx)
			if err != nil {
				return "", err
			}
			eff = s
		}
		return fmt.Sprintf("  (:action %s :parameters (%s) :precondition %s :effect %s)\n",
			id, strings.Join(params, " "), pre, eff), nil
	}

	phase := "()"
	if a.Precondition != nil {
		s, err := conditionString(a.Precondition, ctx)
		if err != nil {
			return "", err
		}
		phase = s
	}
	overAll := "()"
	if a.OverAllCondition != nil {
		s, err := conditionString(a.OverAllCondition, ctx)
		if err != nil {
			return "", err
		}
		overAll = s
	}
	startEff := "()"
	if a.Effect.WorldStateModificationAtStart != nil {
		s, err := wsmString(a.Effect.WorldStateModificationAtStart, ctx)
		if err != nil {
			return "", err
		}
		startEff = s
	}
	endEff := "()"
	if a.Effect.WorldStateModification != nil {
		s, err := wsmString(a.Effect.WorldStateModification, ctx)
		if err != nil {
			return "", err
		}
		endEff = s
	}
	durStr := "0"
	if a.Duration.Source != "" {
		s, err := emitNumericExpr(a.Duration, ctx)
		if err != nil {
			return "", err
		}
		durStr = s
	}
	return fmt.Sprintf("  (:durative-action %s :parameters (%s) :duration (= ?duration %s)\n"+
		"    :condition (and (at start %s) (over all %s) (at end %s))\n"+
		"    :effect (and (at start %s) (at end %s)))\n",
		id, strings.Join(params, " "), durStr, phase, overAll, phase, startEff, endEff), nil
}

// EmitProblem renders prob back into PDDL text. Goal-group
// reconstruction is best-effort: a goal stack holding more than one
// goal, every one tagged with the "ordered_goals" group id (set by
// parseGoalBlock for an `__ORDERED` and-goal), re-emits as an
// `__ORDERED and`; everything else re-emits as a flat conjunction.
func EmitProblem(prob *domain.Problem, dom *domain.Domain) (string, error) {
	var b strings.Builder
	b.WriteString("(define (problem generated)\n")
	fmt.Fprintf(&b, "  (:domain %s)\n", dom.Name)

	if objects := emitEntities(prob.Entities, dom.Ontology); objects != "" {
		fmt.Fprintf(&b, "  (:objects %s)\n", objects)
	}

	var initFacts []string
	for _, f := range prob.WorldState.Facts().All() {
		initFacts = append(initFacts, groundFactString(f, dom.Ontology))
	}
	sort.Strings(initFacts)
	if len(initFacts) > 0 {
		fmt.Fprintf(&b, "  (:init %s)\n", strings.Join(initFacts, " "))
	}

	goalStr, err := emitGoalBlock(prob.GoalStack, emitCtx{ont: dom.Ontology})
	if err != nil {
		return "", err
	}
	if goalStr != "" {
		fmt.Fprintf(&b, "  (:goal %s)\n", goalStr)
	}

	b.WriteString(")\n")
	return b.String(), nil
}

func emitGoalBlock(gs *goal.GoalStack, ctx emitCtx) (string, error) {
	var allGoals []goal.Goal
	for _, tier := range gs.Snapshot() {
		allGoals = append(allGoals, tier...)
	}
	if len(allGoals) == 0 {
		return "", nil
	}

	parts := make([]string, len(allGoals))
	ordered := len(allGoals) > 1
	for i, g := range allGoals {
		s, err := conditionString(g.Objective, ctx)
		if err != nil {
			return "", err
		}
		if g.IsPersistent {
			s += " ;; __PERSIST"
		}
		if g.OneStepTowards {
			s += " ;; __ONE_STEP_TOWARDS"
		}
		parts[i] = s
		if g.GroupID != "ordered_goals" {
			ordered = false
		}
	}
	if len(allGoals) == 1 {
		return parts[0], nil
	}
	sentinel := ""
	if ordered {
		sentinel = " ;; __ORDERED"
	}
	return fmt.Sprintf("(and%s\n    %s)", sentinel, strings.Join(parts, "\n    ")), nil
}

// EmitPlan renders a parallel plan: one line per
// grounded action, sharing a step index and printed duration (resolved
// against evalCtx when possible, falling back to the unevaluated
// expression text) when the action is durative.
func EmitPlan(steps []parallel.Step, dom *domain.Domain, evalCtx *world.EvalContext) string {
	var b strings.Builder
	for idx, step := range steps {
		for _, inv := range step.Actions {
			a, _ := dom.Action(inv.Invocation.ActionID)
			args := make([]string, len(a.Parameters))
			for i, p := range a.Parameters {
				if t, ok := inv.Invocation.Bindings[p.Name]; ok {
					args[i] = t.Value
				} else {
					args[i] = p.Name
				}
			}
			argsStr := ""
			if len(args) > 0 {
				argsStr = " " + strings.Join(args, " ")
			}
			durStr := ""
			if a.Duration.Source != "" {
				if evalCtx != nil {
					if v, err := a.Duration.Eval(inv.Invocation.Bindings, evalCtx); err == nil && v.Defined {
						durStr = fmt.Sprintf(" [%s]", v.String())
					}
				}
				if durStr == "" {
					durStr = fmt.Sprintf(" [%s]", a.Duration.Source)
				}
			}
			fmt.Fprintf(&b, "%02d: (%s%s)%s\n", idx, inv.Invocation.ActionID, argsStr, durStr)
		}
	}
	return b.String()
}
