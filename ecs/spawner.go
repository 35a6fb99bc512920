package ecs

import (
	"go.uber.org/zap"
)

// SpawnerSystem is the routing key of spawner messages.
const SpawnerSystem = "spawner"

// Spawner commands.
const (
	SpawnCmd  = "new"
	DeleteCmd = "delete"
)

// FactoryFunc builds a freshly created entity from positional arguments.
// Returning an error deletes the entity again.
type FactoryFunc func(w *World, id EntityId, args []string) error

type factory struct {
	arity int
	build FactoryFunc
}

// Spawner creates and destroys entities on request. It consumes messages
// routed to "spawner":
//
//	new    [factory, arg1 .. argN]  N must equal the factory's arity
//	delete [entity name]
//
// Requests that do not fit are ignored.
type Spawner struct {
	factories map[string]factory
	spawned   int64
	deleted   int64
}

// NewSpawner creates a spawner with no factories.
func NewSpawner() *Spawner {
	return &Spawner{
		factories: make(map[string]factory),
	}
}

// Register adds a factory taking exactly arity arguments. Names are unique.
func (s *Spawner) Register(name string, arity int, build FactoryFunc) bool {
	if _, dup := s.factories[name]; dup || build == nil || arity < 0 {
		return false
	}
	s.factories[name] = factory{arity: arity, build: build}
	return true
}

// Name implements System.
func (s *Spawner) Name() string {
	return SpawnerSystem
}

// Run implements System by processing every due spawner message.
func (s *Spawner) Run(frame *Frame) {
	for _, msg := range frame.Messages.Get(SpawnerSystem) {
		switch msg.Cmd {
		case SpawnCmd:
			s.spawn(frame, msg.Args)
		case DeleteCmd:
			s.remove(frame, msg.Arg(0))
		default:
			frame.Log.Debug("unknown spawner command", zap.Stringer("message", msg))
		}
	}
}

// Counts returns how many entities the spawner created and deleted.
func (s *Spawner) Counts() (spawned, deleted int64) {
	return s.spawned, s.deleted
}

func (s *Spawner) spawn(frame *Frame, args []string) {
	if len(args) == 0 {
		frame.Log.Debug("spawn request without factory")
		return
	}

	name, params := args[0], args[1:]
	f, ok := s.factories[name]
	if !ok {
		frame.Log.Debug("unknown factory", zap.String("factory", name))
		return
	}
	if len(params) != f.arity {
		frame.Log.Debug("spawn arity mismatch",
			zap.String("factory", name),
			zap.Int("want", f.arity),
			zap.Int("got", len(params)),
		)
		return
	}

	id, err := frame.World.NewEntity()
	if err != nil {
		frame.Log.Error("spawn failed", zap.String("factory", name), zap.Error(err))
		return
	}
	if err := f.build(frame.World, id, params); err != nil {
		frame.World.DeleteEntity(id)
		frame.Log.Error("factory failed", zap.String("factory", name), zap.Error(err))
		return
	}
	s.spawned++
}

func (s *Spawner) remove(frame *Frame, name string) {
	id, ok := frame.World.ID(name)
	if !ok {
		return
	}
	if frame.World.DeleteEntity(id) {
		s.deleted++
	}
}
