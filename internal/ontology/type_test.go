package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddTypeBuildsForestAndIsATransitiveClosure(t *testing.T) {
	ont := New()

	entity, err := ont.AddType("entity", "")
	require.NoError(t, err)
	robot, err := ont.AddType("robot", "entity")
	require.NoError(t, err)
	drone, err := ont.AddType("drone", "robot")
	require.NoError(t, err)
	location, err := ont.AddType("location", "")
	require.NoError(t, err)

	assert.True(t, ont.IsA(drone, drone), "reflexive")
	assert.True(t, ont.IsA(drone, robot), "direct parent")
	assert.True(t, ont.IsA(drone, entity), "transitive grandparent")
	assert.False(t, ont.IsA(drone, location), "unrelated branch")
	assert.True(t, ont.IsA(drone, NoType), "NoType accepts anything")
}

func TestAddTypeRejectsUnknownParentAndDuplicate(t *testing.T) {
	ont := New()

	_, err := ont.AddType("robot", "unknown_parent")
	require.Error(t, err)

	_, err = ont.AddType("entity", "")
	require.NoError(t, err)
	_, err = ont.AddType("entity", "")
	assert.Error(t, err, "duplicate type declaration must be rejected")
}

func TestAllSubtypesOfIncludesRoot(t *testing.T) {
	ont := New()
	entity, _ := ont.AddType("entity", "")
	robot, _ := ont.AddType("robot", "entity")
	_, _ = ont.AddType("location", "")

	subs := ont.AllSubtypesOf(entity)
	names := make(map[string]bool, len(subs))
	for _, id := range subs {
		names[ont.TypeName(id)] = true
	}
	assert.True(t, names["entity"])
	assert.True(t, names["robot"])
	assert.False(t, names["location"])
	assert.Contains(t, subs, robot)
}

func TestNumberTypeIsPreseeded(t *testing.T) {
	ont := New()
	id, ok := ont.TypeByName(NumberTypeName)
	require.True(t, ok)
	assert.Equal(t, ont.NumberType(), id)
}
