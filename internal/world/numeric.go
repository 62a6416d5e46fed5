package world

import (
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// SanitizeIdent turns a parameter name such as "?x" into a valid
// expr-lang identifier ("x"), since expr-lang identifiers cannot start
// with "?". The pddl package uses the same transform when compiling a
// NumericExpr.Source that references bound parameters, so the two
// sides agree on the generated identifier.
func SanitizeIdent(name string) string {
	trimmed := strings.TrimPrefix(name, "?")
	if trimmed == "" {
		return "v"
	}
	if trimmed[0] >= '0' && trimmed[0] <= '9' {
		return "v_" + trimmed
	}
	return trimmed
}

// ParseNumeric converts a fact's textual fluent value back into a
// NumericValue, preserving int-vs-float as the literal was written.
func ParseNumeric(literal string) NumericValue {
	if i, err := strconv.ParseInt(literal, 10, 64); err == nil {
		return IntValue(i)
	}
	if f, err := strconv.ParseFloat(literal, 64); err == nil {
		return FloatValue(f)
	}
	return UndefinedValue
}

// NumericValue is a fluent's int-or-float value, or the absence of one
// — undefined is a first-class absent value. Arithmetic preserves the
// int-vs-float distinction of the input literal.
type NumericValue struct {
	Defined bool
	IsInt   bool
	Int     int64
	Float   float64
}

// UndefinedValue is the canonical "no mapping exists" NumericValue.
var UndefinedValue = NumericValue{Defined: false}

// IntValue builds a defined integer value.
func IntValue(i int64) NumericValue { return NumericValue{Defined: true, IsInt: true, Int: i} }

// FloatValue builds a defined floating-point value.
func FloatValue(f float64) NumericValue { return NumericValue{Defined: true, Float: f} }

// String renders v back into the textual fluent-value form stored in a
// Fact/Term, preserving the int-vs-float distinction.
func (v NumericValue) String() string {
	if !v.Defined {
		return Undefined
	}
	if v.IsInt {
		return strconv.FormatInt(v.Int, 10)
	}
	return strconv.FormatFloat(v.Float, 'g', -1, 64)
}

// AsFloat64 returns v's value as a float64 regardless of IsInt.
func (v NumericValue) AsFloat64() float64 {
	if v.IsInt {
		return float64(v.Int)
	}
	return v.Float
}

func (v NumericValue) toInterface() interface{} {
	if !v.Defined {
		return nil
	}
	if v.IsInt {
		return v.Int
	}
	return v.Float
}

func numericFromInterface(v interface{}) NumericValue {
	switch n := v.(type) {
	case int:
		return IntValue(int64(n))
	case int64:
		return IntValue(n)
	case float64:
		return FloatValue(n)
	case float32:
		return FloatValue(float64(n))
	default:
		return UndefinedValue
	}
}

// NumericExpr is an arithmetic expression over bound parameters and
// fluent accesses — action durations, and the right-hand side of
// Assign/Increase/Decrease/Multiply. Expressions are compiled and
// evaluated through github.com/expr-lang/expr rather than a hand-rolled
// evaluator: our job is only to resolve fluent accesses (which
// expr-lang cannot see into the world state for) into the evaluation
// environment before handing arithmetic off to it.
type NumericExpr struct {
	// Source is an expr-lang expression, e.g. "2*x + 1" or just "3".
	Source string
	// FluentRefs maps a free identifier used in Source to the fact
	// pattern whose fluent value should be substituted for it.
	FluentRefs map[string]Fact

	program *vm.Program
}

// NewConstNumericExpr builds a NumericExpr for a bare literal.
func NewConstNumericExpr(literal string) NumericExpr {
	return NumericExpr{Source: literal}
}

func (e *NumericExpr) compile() (*vm.Program, error) {
	if e.program != nil {
		return e.program, nil
	}
	p, err := expr.Compile(e.Source, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	e.program = p
	return p, nil
}

// FluentResolver looks up a fact pattern's current fluent value,
// returning !ok when undefined — satisfied by WorldState.
type FluentResolver interface {
	ResolveFluent(pattern Fact, bindings map[string]Term) (NumericValue, bool)
}

// Eval resolves every fluent reference and bound parameter, then
// evaluates Source via expr-lang. Undefined propagates: undefined op x
// is undefined.
func (e *NumericExpr) Eval(bindings map[string]Term, resolver FluentResolver) (NumericValue, error) {
	env := make(map[string]interface{})

	for name, t := range bindings {
		if t.IsParam {
			continue
		}
		// A numeric binding must enter the environment as a number, not
		// its textual form, or expr-lang arithmetic over it fails.
		if v := ParseNumeric(t.Value); v.Defined {
			env[SanitizeIdent(name)] = v.toInterface()
		} else {
			env[SanitizeIdent(name)] = t.Value
		}
	}

	for ident, pattern := range e.FluentRefs {
		bound := pattern.Bind(bindings)
		val, ok := resolver.ResolveFluent(bound, bindings)
		if !ok {
			return UndefinedValue, nil
		}
		env[ident] = val.toInterface()
	}

	program, err := e.compile()
	if err != nil {
		return UndefinedValue, err
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return UndefinedValue, err
	}
	return numericFromInterface(out), nil
}
