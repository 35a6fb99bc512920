package arena

import (
	"fmt"
	"strconv"

	"github.com/plus3/tick2d/ecs"
	"github.com/plus3/tick2d/engine"
	"github.com/plus3/tick2d/message"
)

// Default arena size in grid cells.
const (
	DefaultWidth  = 32
	DefaultHeight = 32
)

// Install adds the arena singleton, factories and systems to e. Systems run
// in the order movement, collision, logic, animation.
func Install(e *engine.Engine, width, height float32) error {
	ecs.AddSingleton(e.World(), Arena{Width: width, Height: height})

	spawner := e.Spawner()
	if !spawner.Register("player", 2, Player) || !spawner.Register("enemy", 3, Enemy) {
		return fmt.Errorf("arena factories already registered")
	}

	for _, system := range []ecs.System{
		&MovementSystem{},
		&CollisionSystem{},
		&LogicSystem{},
		&AnimationSystem{},
	} {
		if !e.AddSystem(system) {
			return fmt.Errorf("cannot add system %q", system.Name())
		}
	}
	return nil
}

// Seed queues spawn requests for the player in the middle of the arena and
// enemies hp strong spread along the top edge.
func Seed(e *engine.Engine, enemies, hp int) {
	arena := ecs.NewSingleton[Arena](e.World()).Get()
	cx, cy := arena.Width/2, arena.Height/2

	e.Send(SpawnPlayer(cx, cy))
	for i := 0; i < enemies; i++ {
		x := arena.Width * float32(i+1) / float32(enemies+1)
		e.Send(SpawnEnemy(x, 0, hp))
	}
}

// SpawnPlayer is the spawner request for a player at (x, y).
func SpawnPlayer(x, y float32) message.Message {
	return message.New(ecs.SpawnerSystem, "", "", ecs.SpawnCmd, "player", formatFloat(x), formatFloat(y))
}

// SpawnEnemy is the spawner request for an enemy at (x, y).
func SpawnEnemy(x, y float32, hp int) message.Message {
	return message.New(ecs.SpawnerSystem, "", "", ecs.SpawnCmd, "enemy",
		formatFloat(x), formatFloat(y), strconv.Itoa(hp))
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

// Summary reports the match state.
type Summary struct {
	Players int
	Enemies int
	Kills   int
	Losses  int
}

// Summarize counts live combatants per team.
func Summarize(w *ecs.World) Summary {
	var s Summary
	for _, team := range ecs.GetComponents[Team](w) {
		switch team {
		case TeamPlayer:
			s.Players++
		case TeamEnemy:
			s.Enemies++
		}
	}
	var state ecs.Singleton[Arena]
	state.Init(w)
	if arena := state.Get(); arena != nil {
		s.Kills = arena.Kills
		s.Losses = arena.Losses
	}
	return s
}
