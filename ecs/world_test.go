package ecs_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/plus3/tick2d/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntityExists(t *testing.T) {
	world := newTestWorld()

	id, err := world.NewEntity()
	require.NoError(t, err)
	assert.Equal(t, ecs.EntityStart, id)
	assert.True(t, world.EntityExists(id))

	assert.True(t, world.DeleteEntity(id))
	assert.False(t, world.EntityExists(id))
	assert.False(t, world.DeleteEntity(id))
}

func TestEntityGeneratedNames(t *testing.T) {
	world := newTestWorld()

	first := mustEntity(world, "")
	name, ok := world.Name(first)
	require.True(t, ok)
	assert.Equal(t, fmt.Sprintf("Entity%d", first), name)

	// Claim the name the next entity would get.
	squatter := mustEntity(world, "")
	require.True(t, world.SetName(squatter, fmt.Sprintf("Entity%d", squatter+1)))

	next := mustEntity(world, "")
	name, _ = world.Name(next)
	assert.Equal(t, fmt.Sprintf("Entity%d_1", next), name)
}

func TestSetNameAndLookup(t *testing.T) {
	world := newTestWorld()

	player := mustEntity(world, "player")
	enemy := mustEntity(world, "enemy")

	id, ok := world.ID("player")
	assert.True(t, ok)
	assert.Equal(t, player, id)

	assert.False(t, world.SetName(enemy, "player"), "name collision")
	assert.True(t, world.SetName(player, "player"), "renaming to own name")
	assert.False(t, world.SetName(ecs.EntityId(999), "ghost"))

	assert.True(t, world.SetName(player, "hero"))
	_, ok = world.ID("player")
	assert.False(t, ok)
	id, ok = world.ID("hero")
	assert.True(t, ok)
	assert.Equal(t, player, id)

	id, ok = world.ID("nobody")
	assert.False(t, ok)
	assert.Equal(t, ecs.InvalidEntity, id)
}

func TestDeletedNameIsReusable(t *testing.T) {
	world := newTestWorld()

	a := mustEntity(world, "crate")
	require.True(t, world.DeleteEntity(a))

	b := mustEntity(world, "crate")
	id, ok := world.ID("crate")
	assert.True(t, ok)
	assert.Equal(t, b, id)
}

func TestIdWraparoundReusesFreedIds(t *testing.T) {
	world := newTestWorld(ecs.WithIdRange(1, 4))

	ids := make([]ecs.EntityId, 0, 3)
	for i := 0; i < 3; i++ {
		id, err := world.NewEntity()
		require.NoError(t, err)
		ids = append(ids, id)
	}
	assert.Equal(t, []ecs.EntityId{1, 2, 3}, ids)

	_, err := world.NewEntity()
	assert.ErrorIs(t, err, ecs.ErrNoFreeEntityId)

	require.True(t, world.DeleteEntity(2))
	id, err := world.NewEntity()
	require.NoError(t, err)
	assert.Equal(t, ecs.EntityId(2), id)

	id, err = world.NewEntity()
	assert.ErrorIs(t, err, ecs.ErrNoFreeEntityId)
	assert.Equal(t, ecs.InvalidEntity, id)
}

func TestEntitiesSorted(t *testing.T) {
	world := newTestWorld()
	for i := 0; i < 5; i++ {
		mustEntity(world, "")
	}
	world.DeleteEntity(3)

	assert.Equal(t, []ecs.EntityId{1, 2, 4, 5}, world.Entities())
	assert.Equal(t, 4, world.Len())
}

func TestDeleteEntityCascadesComponents(t *testing.T) {
	world := newTestWorld()

	id := mustEntity(world, "")
	require.True(t, ecs.AddComponent(world, id, Position{X: 1, Y: 1}))
	require.True(t, ecs.AddComponent(world, id, Health{Current: 100, Max: 100}))

	other := mustEntity(world, "")
	require.True(t, ecs.AddComponent(world, other, Position{X: 2, Y: 2}))

	require.True(t, world.DeleteEntity(id))

	positions := ecs.GetComponents[Position](world)
	assert.Len(t, positions, 1)
	assert.Contains(t, positions, other)
	assert.Empty(t, ecs.GetComponents[Health](world))

	stats := world.CollectStats()
	assert.Equal(t, 1, stats.EntityCount)
	assert.Equal(t, 1, stats.ComponentCount)
}

func TestConcurrentReadersDuringWrites(t *testing.T) {
	world := newTestWorld()
	for i := 0; i < 50; i++ {
		id := mustEntity(world, "")
		ecs.AddComponent(world, id, Position{X: float32(i)})
	}

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				snapshot := ecs.GetComponents[Position](world)
				assert.NotEmpty(t, snapshot)
			}
		}()
	}

	for i := 0; i < 100; i++ {
		id := mustEntity(world, "")
		ecs.AddComponent(world, id, Position{})
		world.DeleteEntity(id)
	}
	wg.Wait()
}
