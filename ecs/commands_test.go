package ecs_test

import (
	"reflect"
	"testing"

	"github.com/plus3/tick2d/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands(t *testing.T) {
	t.Run("deferred structural changes", func(t *testing.T) {
		world, _, scheduler, _ := newTestKernel()
		a := mustEntity(world, "a")
		b := mustEntity(world, "b")
		ecs.AddComponent(world, b, Velocity{})

		var queued int
		scheduler.Add(ecs.NewSystem("writer", func(frame *ecs.Frame) {
			frame.Commands.AddComponent(a, Position{X: 1})
			frame.Commands.AddComponent(b, &Health{Current: 3})
			frame.Commands.RemoveComponent(b, reflect.TypeFor[Velocity]())
			queued = frame.Commands.Len()
		}))
		scheduler.Run()

		assert.Equal(t, 3, queued)
		assert.True(t, ecs.HasComponent[Position](world, a))
		health, err := ecs.GetComponent[Health](world, b)
		require.NoError(t, err)
		assert.Equal(t, 3, health.Current)
		assert.False(t, ecs.HasComponent[Velocity](world, b))
	})

	t.Run("operations on deleted entities are dropped", func(t *testing.T) {
		world, _, scheduler, _ := newTestKernel()
		doomed := mustEntity(world, "doomed")

		scheduler.Add(ecs.NewSystem("writer", func(frame *ecs.Frame) {
			frame.Commands.AddComponent(doomed, Position{})
			frame.Commands.Delete(doomed)
		}))
		scheduler.Run()

		assert.False(t, world.EntityExists(doomed))
		assert.Empty(t, ecs.GetComponents[Position](world))
	})

	t.Run("defer runs last and buffer resets", func(t *testing.T) {
		world, _, scheduler, _ := newTestKernel()

		var order []string
		runs := 0
		scheduler.Add(ecs.NewSystem("writer", func(frame *ecs.Frame) {
			runs++
			if runs > 1 {
				assert.Zero(t, frame.Commands.Len())
				return
			}
			frame.Commands.Defer(func() {
				_, ok := world.ID("spawned")
				order = append(order, "defer")
				assert.True(t, ok)
			})
			frame.Commands.Create("spawned", Position{}, &Velocity{DX: 1})
		}))
		scheduler.Run()
		scheduler.Run()

		assert.Equal(t, []string{"defer"}, order)
		id, _ := world.ID("spawned")
		vel, err := ecs.GetComponent[Velocity](world, id)
		require.NoError(t, err)
		assert.Equal(t, float32(1), vel.DX)
	})

	t.Run("create keeps generated name on collision", func(t *testing.T) {
		world, _, scheduler, _ := newTestKernel()
		mustEntity(world, "taken")

		scheduler.Add(ecs.NewSystem("writer", func(frame *ecs.Frame) {
			frame.Commands.Create("taken")
		}))
		scheduler.Run()

		assert.Equal(t, 2, world.Len())
	})

	t.Run("commands queued by defer are applied", func(t *testing.T) {
		world, _, scheduler, _ := newTestKernel()

		scheduler.Add(ecs.NewSystem("writer", func(frame *ecs.Frame) {
			if _, ok := world.ID("early"); ok {
				return
			}
			frame.Commands.Create("early")
			frame.Commands.Defer(func() {
				frame.Commands.Create("late", Position{X: 2})
			})
		}))
		scheduler.Run()

		id, ok := world.ID("late")
		require.True(t, ok)
		pos, err := ecs.GetComponent[Position](world, id)
		require.NoError(t, err)
		assert.Equal(t, float32(2), pos.X)
		assert.Equal(t, 2, world.Len())
	})
}
