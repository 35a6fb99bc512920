package arena

import (
	"strconv"

	"github.com/plus3/tick2d/ecs"
	"github.com/plus3/tick2d/message"
	"go.uber.org/zap"
)

const (
	// ContactDamage is dealt to each side of a same-cell contact.
	ContactDamage = 10
	// DamageDelay is how many ticks a hit takes to land.
	DamageDelay = 2
)

// MovementSystem integrates velocities and bounces entities off the arena
// walls.
type MovementSystem struct {
	Entities ecs.Query[struct {
		*Position
		*Velocity
	}]
	Arena ecs.Singleton[Arena]
}

func (s *MovementSystem) Name() string { return "movement" }

func (s *MovementSystem) Run(frame *ecs.Frame) {
	bounds := s.Arena.Get()
	for item := range s.Entities.Values() {
		pos, vel := item.Position, item.Velocity
		pos.X, vel.DX = bounce(pos.X+vel.DX, vel.DX, bounds.Width)
		pos.Y, vel.DY = bounce(pos.Y+vel.DY, vel.DY, bounds.Height)
	}
}

func bounce(p, v, limit float32) (float32, float32) {
	switch {
	case p < 0:
		return -p, -v
	case p > limit:
		return 2*limit - p, -v
	}
	return p, v
}

type cell struct{ x, y int }

type combatant struct {
	name string
	team Team
}

// CollisionSystem finds opposing entities sharing a grid cell and sends each
// a delayed damage message from the other.
type CollisionSystem struct {
	Entities ecs.Query[struct {
		ecs.EntityId
		*Position
		*Team
	}]
}

func (s *CollisionSystem) Name() string { return "collision" }
func (s *CollisionSystem) Timed() bool  { return true }

func (s *CollisionSystem) Run(frame *ecs.Frame) {
	cells := make(map[cell][]combatant)
	for item := range s.Entities.Values() {
		name, ok := frame.World.Name(item.EntityId)
		if !ok {
			continue
		}
		c := cell{int(item.Position.X), int(item.Position.Y)}
		cells[c] = append(cells[c], combatant{name: name, team: *item.Team})
	}

	for _, occupants := range cells {
		for i, a := range occupants {
			for _, b := range occupants[i+1:] {
				if a.team == b.team {
					continue
				}
				hit(frame, a.name, b.name)
				hit(frame, b.name, a.name)
			}
		}
	}
}

func hit(frame *ecs.Frame, target, attacker string) {
	frame.SendAfter(DamageDelay, message.New(ecs.EntitiesSystem, target, attacker,
		CmdDamage, strconv.Itoa(ContactDamage)))
}

const defeated = -1

// LogicSystem removes defeated entities through the spawner and keeps the
// score.
type LogicSystem struct {
	Entities ecs.Query[struct {
		ecs.EntityId
		*Health
		*Team
	}]
	Arena ecs.Singleton[Arena]
}

func (s *LogicSystem) Name() string { return "logic" }

func (s *LogicSystem) Run(frame *ecs.Frame) {
	arena := s.Arena.Get()
	for item := range s.Entities.Values() {
		if item.Health.Alive() || item.Health.Current == defeated {
			continue
		}
		name, _ := frame.World.Name(item.EntityId)
		frame.Log.Info("defeated", zap.String("entity", name), zap.Stringer("team", *item.Team))
		frame.Send(message.New(ecs.SpawnerSystem, "", "", ecs.DeleteCmd, name))

		// The spawner removes the entity after dispatch; until then it is
		// marked so it is only counted once.
		item.Health.Current = defeated
		if *item.Team == TeamEnemy {
			arena.Kills++
		} else {
			arena.Losses++
		}
	}
}

// AnimationSystem advances sprite frames.
type AnimationSystem struct {
	Sprites ecs.Query[struct{ *Sprite }]
}

func (s *AnimationSystem) Name() string { return "animation" }

func (s *AnimationSystem) Run(frame *ecs.Frame) {
	for item := range s.Sprites.Values() {
		if item.Sprite.Frames > 0 {
			item.Sprite.Frame = (item.Sprite.Frame + 1) % item.Sprite.Frames
		}
	}
}
