package pddl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/carloacu/goalplanner/internal/ontology"
	"github.com/carloacu/goalplanner/internal/perrors"
	"github.com/carloacu/goalplanner/internal/world"
)

// parseCtx bundles the ontology and entity pool a term/fact/condition
// parse needs, plus whatever parameters are currently in scope (an
// action's declared parameters, extended by nested exists/forall/action
// parameter lists). It is threaded by value-ish copies (withParams
// returns a new ctx) so a quantifier's inner scope never leaks its bound
// variable back out to a sibling branch.
type parseCtx struct {
	ont      *ontology.Ontology
	entities *ontology.SetOfEntities
	params   map[string]ontology.Parameter
}

func newParseCtx(ont *ontology.Ontology, entities *ontology.SetOfEntities) *parseCtx {
	return &parseCtx{ont: ont, entities: entities, params: map[string]ontology.Parameter{}}
}

func (c *parseCtx) withParams(ps []ontology.Parameter) *parseCtx {
	merged := make(map[string]ontology.Parameter, len(c.params)+len(ps))
	for k, v := range c.params {
		merged[k] = v
	}
	for _, p := range ps {
		merged[p.Name] = p
	}
	return &parseCtx{ont: c.ont, entities: c.entities, params: merged}
}

func parseError(offset int, format string, args ...interface{}) error {
	return perrors.NewParse(fmt.Sprintf(format, args...), "", offset)
}

// splitByDash parses the PDDL typed-list grammar shared by parameter
// lists, :constants and :objects: a flat run of names, broken into
// groups by trailing `- TypeName`, e.g. `?a ?b - block ?c - table`.
// An untyped trailing run (no `- Type` at all) gets ontology.NoType for
// every name.
func splitByDash(items []SExpr, resolveType func(name string) (ontology.TypeID, error)) ([]namedSlot, error) {
	var out []namedSlot
	var pending []SExpr
	i := 0
	for i < len(items) {
		item := items[i]
		if item.IsAtom && item.Atom == "-" {
			if i+1 >= len(items) {
				return nil, parseError(item.Offset, "dangling '-' in typed list")
			}
			typeName := items[i+1]
			if !typeName.IsAtom {
				return nil, parseError(typeName.Offset, "expected type name after '-'")
			}
			tid, err := resolveType(typeName.Atom)
			if err != nil {
				return nil, err
			}
			for _, p := range pending {
				out = append(out, namedSlot{Name: p.Atom, Type: tid, Offset: p.Offset})
			}
			pending = nil
			i += 2
			continue
		}
		if !item.IsAtom {
			return nil, parseError(item.Offset, "expected a name in typed list")
		}
		pending = append(pending, item)
		i++
	}
	for _, p := range pending {
		out = append(out, namedSlot{Name: p.Atom, Type: ontology.NoType, Offset: p.Offset})
	}
	return out, nil
}

type namedSlot struct {
	Name   string
	Type   ontology.TypeID
	Offset int
}

func resolveTypeName(ont *ontology.Ontology) func(string) (ontology.TypeID, error) {
	return func(name string) (ontology.TypeID, error) {
		tid, ok := ont.TypeByName(name)
		if !ok {
			return ontology.NoType, perrors.NewParse("unknown type", name, -1)
		}
		return tid, nil
	}
}

// parseParameterList parses a `:parameters (?a ?b - block …)` list into
// ontology.Parameter values.
func parseParameterList(s SExpr, ont *ontology.Ontology) ([]ontology.Parameter, error) {
	return parseParamItems(s.List, ont)
}

func parseParamItems(items []SExpr, ont *ontology.Ontology) ([]ontology.Parameter, error) {
	slots, err := splitByDash(items, resolveTypeName(ont))
	if err != nil {
		return nil, err
	}
	out := make([]ontology.Parameter, len(slots))
	for i, sl := range slots {
		if !strings.HasPrefix(sl.Name, "?") {
			return nil, parseError(sl.Offset, "expected a parameter name starting with '?', got %q", sl.Name)
		}
		out[i] = ontology.Parameter{Name: sl.Name, Type: sl.Type}
	}
	return out, nil
}

// rawTypeGroup is an unresolved :types grouping: Names each declare
// ParentName as their direct parent ("" for a root type). Resolution is
// deferred so :types blocks can declare a parent after its children, or
// vice versa (splitByDashRaw below).
type rawTypeGroup struct {
	Names      []string
	ParentName string
}

func splitByDashRaw(items []SExpr) ([]rawTypeGroup, error) {
	var out []rawTypeGroup
	var pending []string
	i := 0
	for i < len(items) {
		item := items[i]
		if item.IsAtom && item.Atom == "-" {
			if i+1 >= len(items) || !items[i+1].IsAtom {
				return nil, parseError(item.Offset, "dangling '-' in type list")
			}
			out = append(out, rawTypeGroup{Names: pending, ParentName: items[i+1].Atom})
			pending = nil
			i += 2
			continue
		}
		if !item.IsAtom {
			return nil, parseError(item.Offset, "expected a type name")
		}
		pending = append(pending, item.Atom)
		i++
	}
	if len(pending) > 0 {
		out = append(out, rawTypeGroup{Names: pending})
	}
	return out, nil
}

func isNumericLiteral(atom string) bool {
	_, err := strconv.ParseFloat(atom, 64)
	return err == nil
}

// parseTerm resolves atom (a bare token, not a list) into a Term: a
// parameter reference, a numeric literal, or a declared
// constant/object. expected is NoType when the caller has no argument
// type to check against.
func parseTerm(atom SExpr, expected ontology.TypeID, ctx *parseCtx) (world.Term, error) {
	if !atom.IsAtom {
		return world.Term{}, parseError(atom.Offset, "expected a term, got a list")
	}
	text := atom.Atom

	if strings.HasPrefix(text, "?") {
		p, ok := ctx.params[text]
		if !ok {
			return world.Term{}, parseError(atom.Offset, "unknown parameter reference %q", text)
		}
		if expected != ontology.NoType && !ctx.ont.IsA(p.Type, expected) {
			return world.Term{}, parseError(atom.Offset, "type mismatch: parameter %q is not a %q", text, ctx.ont.TypeName(expected))
		}
		return world.Param(text, p.Type), nil
	}

	if isNumericLiteral(text) {
		return world.Const(text, ctx.ont.NumberType()), nil
	}

	if ctx.entities != nil {
		if e, ok := ctx.entities.Get(text); ok {
			if expected != ontology.NoType && !ctx.ont.IsA(e.Type, expected) {
				return world.Term{}, parseError(atom.Offset, "type mismatch: constant %q is not a %q", text, ctx.ont.TypeName(expected))
			}
			return world.Const(e.Value, e.Type), nil
		}
	}

	return world.Term{}, parseError(atom.Offset, "unknown constant %q", text)
}

// parseFactPattern parses a flat predicate application `(pred a b)`
// (no `not`/quantifiers — those are handled one level up by
// parseCondition/parseWSM) against its declared arity and argument
// types.
func parseFactPattern(s SExpr, ctx *parseCtx) (world.Fact, error) {
	if s.IsAtom || len(s.List) == 0 {
		return world.Fact{}, parseError(s.Offset, "expected a predicate application")
	}
	name := s.List[0]
	if !name.IsAtom {
		return world.Fact{}, parseError(name.Offset, "expected a predicate name")
	}
	predID, ok := ctx.ont.PredicateByName(name.Atom)
	if !ok {
		return world.Fact{}, parseError(name.Offset, "unknown predicate %q", name.Atom)
	}
	pred := ctx.ont.Predicate(predID)
	args := s.List[1:]
	if len(args) != pred.Arity() {
		return world.Fact{}, parseError(s.Offset, "predicate %q expects %d argument(s), got %d", name.Atom, pred.Arity(), len(args))
	}
	terms := make([]world.Term, len(args))
	for i, a := range args {
		t, err := parseTerm(a, pred.Parameters[i].Type, ctx)
		if err != nil {
			return world.Fact{}, err
		}
		terms[i] = t
	}
	return world.Fact{Predicate: predID, Args: terms}, nil
}

// parseFluentAccessPattern parses a fact pattern that names a
// functional predicate's argument tuple for a NumericCompareCondition,
// FluentEqualityCondition or AssignMod/ArithMod's left-hand side. The
// returned Fact carries a placeholder Fluent term purely to mark "this
// pattern accesses the fluent slot" — its value is never read (Fact's
// Predicate+Args alone identify the equation, per FactsMapping.FluentValue).
func parseFluentAccessPattern(s SExpr, ctx *parseCtx) (world.Fact, error) {
	fact, err := parseFactPattern(s, ctx)
	if err != nil {
		return world.Fact{}, err
	}
	pred := ctx.ont.Predicate(fact.Predicate)
	if !pred.IsFluent() {
		return world.Fact{}, parseError(s.Offset, "predicate %q is not a fluent", pred.Name)
	}
	placeholder := world.Param("?__value", pred.Fluent)
	fact.Fluent = &placeholder
	return fact, nil
}
