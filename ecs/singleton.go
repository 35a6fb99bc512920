package ecs

import (
	"reflect"
)

// Singleton provides access to a single value that is not associated with any
// entity. Use this for global game state such as scores or level settings.
type Singleton[T any] struct {
	world *World
	ptr   *T
}

// NewSingleton returns an accessor for the world's T singleton. If the world
// has none yet it is created from initializer, or the zero value.
func NewSingleton[T any](world *World, initializer ...T) *Singleton[T] {
	var value T
	if len(initializer) > 0 {
		value = initializer[0]
	}
	AddSingleton(world, value)

	s := &Singleton[T]{}
	s.Init(world)
	return s
}

// AddSingleton stores value as the world's T singleton unless one exists. It
// reports whether the value was stored.
func AddSingleton[T any](world *World, value T) bool {
	t := reflect.TypeFor[T]()

	world.componentMu.Lock()
	defer world.componentMu.Unlock()

	if _, ok := world.singletons[t]; ok {
		return false
	}
	ptr := new(T)
	*ptr = value
	world.singletons[t] = ptr
	return true
}

// Init binds the Singleton to a world.
// This is called automatically by the Scheduler during system registration.
func (s *Singleton[T]) Init(world *World) {
	s.world = world
	s.updateCache()
}

// Get returns a pointer to the singleton value.
// Returns nil if the singleton has not been added to the world.
func (s *Singleton[T]) Get() *T {
	if s.ptr == nil {
		s.updateCache()
	}
	return s.ptr
}

// Exists returns true if the singleton has been added to the world.
func (s *Singleton[T]) Exists() bool {
	return s.Get() != nil
}

func (s *Singleton[T]) updateCache() {
	if s.world == nil {
		return
	}

	s.world.componentMu.RLock()
	defer s.world.componentMu.RUnlock()

	if v, ok := s.world.singletons[reflect.TypeFor[T]()]; ok {
		s.ptr = v.(*T)
	} else {
		s.ptr = nil
	}
}
