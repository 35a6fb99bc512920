package arena

import (
	"fmt"
	"strconv"

	"github.com/plus3/tick2d/ecs"
	"github.com/plus3/tick2d/message"
)

// Entity commands understood by arena dispatchers.
const (
	CmdDamage = "damage"
	CmdHeal   = "heal"
)

// PlayerName is the name the player entity is spawned under.
const PlayerName = "player"

const (
	playerHealth = 100
	enemySpeed   = 0.5
	spriteFrames = 4
)

// Player builds the player at (x, y). Only one player may exist.
func Player(w *ecs.World, id ecs.EntityId, args []string) error {
	x, y, err := parsePoint(args)
	if err != nil {
		return err
	}
	if !w.SetName(id, PlayerName) {
		return fmt.Errorf("player: name %q already taken", PlayerName)
	}

	ecs.AddComponent(w, id, Position{X: x, Y: y})
	ecs.AddComponent(w, id, Health{Current: playerHealth, Max: playerHealth})
	ecs.AddComponent(w, id, TeamPlayer)
	ecs.AddComponent(w, id, Sprite{Frames: spriteFrames})
	ecs.AttachDispatcher(w, id, Combatant(w))
	return nil
}

// Enemy builds an enemy at (x, y) with hp hit points, drifting diagonally.
func Enemy(w *ecs.World, id ecs.EntityId, args []string) error {
	x, y, err := parsePoint(args[:2])
	if err != nil {
		return err
	}
	hp, err := strconv.Atoi(args[2])
	if err != nil || hp <= 0 {
		return fmt.Errorf("enemy: invalid hp %q", args[2])
	}

	ecs.AddComponent(w, id, Position{X: x, Y: y})
	ecs.AddComponent(w, id, Velocity{DX: enemySpeed, DY: enemySpeed})
	ecs.AddComponent(w, id, Health{Current: hp, Max: hp})
	ecs.AddComponent(w, id, TeamEnemy)
	ecs.AddComponent(w, id, Sprite{Frames: spriteFrames})
	ecs.AttachDispatcher(w, id, Combatant(w))
	return nil
}

// Combatant returns the message handler shared by players and enemies:
// "damage N" removes hit points, "heal N" restores them up to the maximum.
// Defeated entities ignore both.
func Combatant(w *ecs.World) ecs.HandlerFunc {
	return func(owner ecs.EntityId, msg message.Message) {
		health, err := ecs.SetComponent[Health](w, owner)
		if err != nil || !health.Alive() {
			return
		}
		n, err := strconv.Atoi(msg.Arg(0))
		if err != nil {
			n = 1
		}

		switch msg.Cmd {
		case CmdDamage:
			health.Current = max(health.Current-n, 0)
		case CmdHeal:
			health.Current = min(health.Current+n, health.Max)
		}
	}
}

func parsePoint(args []string) (float32, float32, error) {
	x, err := strconv.ParseFloat(args[0], 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x %q: %w", args[0], err)
	}
	y, err := strconv.ParseFloat(args[1], 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y %q: %w", args[1], err)
	}
	return float32(x), float32(y), nil
}
