package ecs_test

import (
	"testing"

	"github.com/plus3/tick2d/ecs"
	"github.com/plus3/tick2d/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MovementSystem struct {
	Entities ecs.Query[struct {
		*Position
		*Velocity
	}]
	trace *[]string
}

func (s *MovementSystem) Name() string { return "movement" }

func (s *MovementSystem) Run(frame *ecs.Frame) {
	*s.trace = append(*s.trace, "movement")
	for item := range s.Entities.Values() {
		item.Position.X += item.Velocity.DX
		item.Position.Y += item.Velocity.DY
	}
}

type CollisionSystem struct {
	Entities ecs.Query[struct{ *Position }]
	trace    *[]string
	Seen     int
}

func (s *CollisionSystem) Name() string { return "collision" }
func (s *CollisionSystem) Timed() bool  { return true }

func (s *CollisionSystem) Run(frame *ecs.Frame) {
	*s.trace = append(*s.trace, "collision")
	s.Seen = s.Entities.Len()
}

type LogicSystem struct {
	Entities ecs.Query[struct{ *Health }]
	Level    ecs.Singleton[Score]
	trace    *[]string
}

func (s *LogicSystem) Name() string { return "logic" }

func (s *LogicSystem) Run(frame *ecs.Frame) {
	*s.trace = append(*s.trace, "logic")
	*s.Level.Get() += Score(s.Entities.Len())
}

func TestSchedulerRunsInInsertionOrder(t *testing.T) {
	world, _, scheduler, _ := newTestKernel()
	ecs.NewSingleton(world, Score(0))

	id := mustEntity(world, "mover")
	ecs.AddComponent(world, id, Position{})
	ecs.AddComponent(world, id, Velocity{DX: 1, DY: 2})
	ecs.AddComponent(world, id, Health{Current: 1})

	var trace []string
	require.True(t, scheduler.Add(&MovementSystem{trace: &trace}))
	require.True(t, scheduler.Add(&CollisionSystem{trace: &trace}))
	require.True(t, scheduler.Add(&LogicSystem{trace: &trace}))
	scheduler.Finalize()

	for i := 0; i < 100; i++ {
		scheduler.Run()
	}

	require.Len(t, trace, 300)
	for i := 0; i < 100; i++ {
		assert.Equal(t, []string{"movement", "collision", "logic"}, trace[i*3:i*3+3])
	}

	pos, _ := ecs.GetComponent[Position](world, id)
	assert.Equal(t, Position{X: 100, Y: 200}, pos)
	assert.Equal(t, Score(100), *ecs.NewSingleton[Score](world).Get())
	assert.Equal(t, []string{"movement", "collision", "logic"}, scheduler.Order())
}

func TestSchedulerAdd(t *testing.T) {
	_, _, scheduler, _ := newTestKernel()
	noop := func(*ecs.Frame) {}

	assert.True(t, scheduler.Add(ecs.NewSystem("a", noop)))
	assert.False(t, scheduler.Add(ecs.NewSystem("a", noop)), "duplicate name")
	assert.False(t, scheduler.Finalized())

	scheduler.Finalize()
	assert.True(t, scheduler.Finalized())
	assert.False(t, scheduler.Add(ecs.NewSystem("b", noop)), "added after finalize")
	assert.Equal(t, []string{"a"}, scheduler.Order())
}

func TestSchedulerRefreshesQueriesBetweenSystems(t *testing.T) {
	world, _, scheduler, _ := newTestKernel()

	var trace []string
	collision := &CollisionSystem{trace: &trace}

	scheduler.Add(ecs.NewSystem("spawn", func(frame *ecs.Frame) {
		id, err := frame.World.NewEntity()
		require.NoError(t, err)
		ecs.AddComponent(frame.World, id, Position{})
	}))
	scheduler.Add(collision)

	scheduler.Run()
	assert.Equal(t, 1, collision.Seen, "sees entity created earlier in the tick")
	scheduler.Run()
	assert.Equal(t, 2, collision.Seen)
	assert.Equal(t, 2, world.Len())
}

func TestSchedulerFlushesCommandsAfterTick(t *testing.T) {
	world, _, scheduler, _ := newTestKernel()
	victim := mustEntity(world, "victim")

	var during bool
	scheduler.Add(ecs.NewSystem("reaper", func(frame *ecs.Frame) {
		frame.Commands.Delete(victim)
		frame.Commands.Create("fresh", Position{X: 1})
	}))
	scheduler.Add(ecs.NewSystem("observer", func(frame *ecs.Frame) {
		during = frame.World.EntityExists(victim)
	}))

	scheduler.Run()

	assert.True(t, during, "commands apply after every system ran")
	assert.False(t, world.EntityExists(victim))
	id, ok := world.ID("fresh")
	require.True(t, ok)
	assert.True(t, ecs.HasComponent[Position](world, id))
}

func TestSchedulerStats(t *testing.T) {
	_, queue, scheduler, clock := newTestKernel()

	var trace []string
	scheduler.Add(ecs.NewSystem("plain", func(*ecs.Frame) {}))
	scheduler.Add(&CollisionSystem{trace: &trace})
	scheduler.Add(ecs.NewSystem("tick", func(frame *ecs.Frame) {
		assert.Equal(t, clock.Now(), frame.Tick)
	}).WithTiming())

	for i := 0; i < 3; i++ {
		scheduler.Run()
		clock.Advance()
	}
	queue.Add(message.New(ecs.EntitiesSystem, "nobody", "", "ping"))
	scheduler.Dispatch()

	stats := scheduler.Stats()
	assert.Equal(t, 3, stats.SystemCount)
	assert.Equal(t, int64(3), stats.Ticks)
	assert.Equal(t, int64(9), stats.TotalExecutions)
	assert.Equal(t, int64(0), stats.Delivered)
	assert.Equal(t, int64(1), stats.Dropped)

	plain := stats.Systems[0]
	assert.Equal(t, "plain", plain.Name)
	assert.False(t, plain.Timed)
	assert.Equal(t, int64(3), plain.ExecutionCount)
	assert.Zero(t, plain.TotalDuration)

	timed := stats.Systems[1]
	assert.Equal(t, "collision", timed.Name)
	assert.Equal(t, 1, timed.Position)
	assert.True(t, timed.Timed)
	assert.LessOrEqual(t, timed.MinDuration, timed.MaxDuration)
	assert.Equal(t, timed.TotalDuration/3, timed.AvgDuration)

	assert.True(t, stats.Systems[2].Timed)
}
