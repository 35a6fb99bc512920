package ecs_test

import (
	"github.com/plus3/tick2d/ecs"
	"github.com/plus3/tick2d/message"
)

// Common test component types
type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Health struct {
	Current int
	Max     int
}

// Shield also absorbs damage, so it satisfies Damageable alongside Health.
type Shield struct {
	Points int
}

type PlayerController struct{}

// Custom primitive types for testing non-struct components
type Score int32
type Tag string

type Inventory struct {
	Items []string
}

// Damageable is implemented through pointer receivers.
type Damageable interface {
	Damage(n int)
}

func (h *Health) Damage(n int) { h.Current -= n }
func (s *Shield) Damage(n int) { s.Points -= n }

// Labeled is implemented through a value receiver.
type Labeled interface {
	Label() string
}

func (t Tag) Label() string { return string(t) }

func newTestRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[Shield](registry)
	ecs.RegisterComponent[PlayerController](registry)
	ecs.RegisterComponent[Score](registry)
	ecs.RegisterComponent[Tag](registry)
	ecs.RegisterComponent[Inventory](registry)
	return registry
}

func newTestWorld(opts ...ecs.WorldOption) *ecs.World {
	return ecs.NewWorld(newTestRegistry(), opts...)
}

// newTestKernel wires a world, queue and scheduler sharing one clock.
func newTestKernel(opts ...ecs.SchedulerOption) (*ecs.World, *message.Queue, *ecs.Scheduler, *message.TickClock) {
	clock := message.NewTickClock(0)
	world := newTestWorld()
	queue := message.NewQueue(clock)
	return world, queue, ecs.NewScheduler(world, queue, opts...), clock
}

// mustEntity creates a named entity or panics.
func mustEntity(w *ecs.World, name string) ecs.EntityId {
	id, err := w.NewEntity()
	if err != nil {
		panic(err)
	}
	if name != "" && !w.SetName(id, name) {
		panic("name taken: " + name)
	}
	return id
}
