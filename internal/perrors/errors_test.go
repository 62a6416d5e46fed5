package perrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageIncludesFragmentAndOffset(t *testing.T) {
	err := NewParse("unknown predicate", "foo", 42)
	assert.Contains(t, err.Error(), "parse_error")
	assert.Contains(t, err.Error(), "foo")
	assert.Contains(t, err.Error(), "42")

	noOffset := NewDomain("duplicate action id", "move")
	assert.Contains(t, noOffset.Error(), "domain_error")
	assert.Contains(t, noOffset.Error(), "move")
}

func TestErrorsIsMatchesByKind(t *testing.T) {
	parseErr := NewParse("bad token", "", 3)
	assert.True(t, errors.Is(parseErr, Parse))
	assert.False(t, errors.Is(parseErr, Domain))

	runtimeErr := NewRuntime("unbound parameter", "?x")
	assert.True(t, errors.Is(runtimeErr, Runtime))
	assert.False(t, errors.Is(runtimeErr, Parse))
}
