// Package arena is a small top-down brawler built on the engine: a player
// and waves of enemies moving on a bounded grid, trading damage on contact.
package arena

import (
	"github.com/plus3/tick2d/ecs"
)

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

// Alive reports whether the entity still has hit points.
func (h Health) Alive() bool { return h.Current > 0 }

type Team uint8

const (
	TeamPlayer Team = iota + 1
	TeamEnemy
)

func (t Team) String() string {
	switch t {
	case TeamPlayer:
		return "player"
	case TeamEnemy:
		return "enemy"
	}
	return "neutral"
}

// Sprite is the animation state a renderer would read.
type Sprite struct {
	Frame  int
	Frames int
}

// Arena is the singleton holding match-wide state.
type Arena struct {
	Width, Height float32
	Kills         int
	Losses        int
}

// Register adds the arena component types to registry.
func Register(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[Team](registry)
	ecs.RegisterComponent[Sprite](registry)
}
