package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOfEntitiesEnforcesValueUniqueness(t *testing.T) {
	ont := New()
	location, _ := ont.AddType("location", "")
	robot, _ := ont.AddType("robot", "")

	s := NewSetOfEntities()
	require.NoError(t, s.Add(Entity{Value: "kitchen", Type: location}))
	require.NoError(t, s.Add(Entity{Value: "kitchen", Type: location}), "re-adding the same value+type is idempotent")
	assert.Error(t, s.Add(Entity{Value: "kitchen", Type: robot}), "same value, different type must be rejected")

	assert.Equal(t, 1, s.Len())
	e, ok := s.Get("kitchen")
	require.True(t, ok)
	assert.Equal(t, location, e.Type)
}

func TestSetOfEntitiesOfTypeFiltersBySubtype(t *testing.T) {
	ont := New()
	entity, _ := ont.AddType("entity", "")
	robot, _ := ont.AddType("robot", "entity")
	location, _ := ont.AddType("location", "")

	s := NewSetOfEntities()
	require.NoError(t, s.Add(Entity{Value: "r1", Type: robot}))
	require.NoError(t, s.Add(Entity{Value: "kitchen", Type: location}))

	ofEntity := s.OfType(ont, entity)
	require.Len(t, ofEntity, 1)
	assert.Equal(t, "r1", ofEntity[0].Value)
}

func TestIsAnySentinel(t *testing.T) {
	assert.True(t, Entity{Value: AnyValue}.IsAny())
	assert.False(t, Entity{Value: "robot1"}.IsAny())
}
