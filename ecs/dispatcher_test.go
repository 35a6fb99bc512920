package ecs_test

import (
	"strconv"
	"testing"

	"github.com/plus3/tick2d/ecs"
	"github.com/plus3/tick2d/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchRoutesByName(t *testing.T) {
	world, queue, scheduler, _ := newTestKernel()

	player := mustEntity(world, "player")
	enemy := mustEntity(world, "enemy")
	ecs.AddComponent(world, player, Health{Current: 100, Max: 100})

	var playerCalls, enemyCalls int
	require.True(t, ecs.AttachDispatcher(world, player, func(owner ecs.EntityId, msg message.Message) {
		playerCalls++
		assert.Equal(t, player, owner)
		assert.Equal(t, "enemy", msg.From)
		n, err := strconv.Atoi(msg.Arg(0))
		require.NoError(t, err)
		ecs.MustComponent[Health](world, owner).Current -= n
	}))
	require.True(t, ecs.AttachDispatcher(world, enemy, func(ecs.EntityId, message.Message) {
		enemyCalls++
	}))

	queue.Add(message.New(ecs.EntitiesSystem, "player", "enemy", "damage", "10"))

	assert.Equal(t, 1, scheduler.Dispatch())
	assert.Equal(t, 1, playerCalls)
	assert.Equal(t, 0, enemyCalls)

	health, _ := ecs.GetComponent[Health](world, player)
	assert.Equal(t, 90, health.Current)
	assert.Equal(t, 0, queue.Len(), "delivered messages leave the queue")
}

func TestDispatchWithNothingPending(t *testing.T) {
	_, queue, scheduler, _ := newTestKernel()
	queue.Add(message.New("audio", "", "", "play", "boom"))

	assert.Equal(t, 0, scheduler.Dispatch())
	assert.Equal(t, 1, queue.Len(), "other systems' messages are untouched")
}

func TestDispatchDropsUnroutable(t *testing.T) {
	world, queue, scheduler, _ := newTestKernel()
	mustEntity(world, "mute")

	queue.Add(message.New(ecs.EntitiesSystem, "ghost", "", "ping"))
	queue.Add(message.New(ecs.EntitiesSystem, "mute", "", "ping"))

	assert.Equal(t, 0, scheduler.Dispatch())
	assert.Equal(t, int64(2), scheduler.Stats().Dropped)
	assert.Equal(t, 0, queue.Len())
}

func TestDispatchFollowsReplyChains(t *testing.T) {
	world, queue, scheduler, _ := newTestKernel()

	ping := mustEntity(world, "ping")
	pong := mustEntity(world, "pong")

	var log []string
	ecs.AttachDispatcher(world, ping, func(_ ecs.EntityId, msg message.Message) {
		log = append(log, "ping:"+msg.Cmd)
		if msg.Cmd == "start" {
			queue.Add(message.New(ecs.EntitiesSystem, "pong", "ping", "request"))
		}
	})
	ecs.AttachDispatcher(world, pong, func(_ ecs.EntityId, msg message.Message) {
		log = append(log, "pong:"+msg.Cmd)
		queue.Add(message.New(ecs.EntitiesSystem, msg.From, "pong", "response"))
	})

	queue.Add(message.New(ecs.EntitiesSystem, "ping", "", "start"))

	assert.Equal(t, 3, scheduler.Dispatch())
	assert.Equal(t, []string{"ping:start", "pong:request", "ping:response"}, log)
}

func TestDispatchHoldsTimedMessages(t *testing.T) {
	world, queue, scheduler, clock := newTestKernel()
	target := mustEntity(world, "target")

	calls := 0
	ecs.AttachDispatcher(world, target, func(ecs.EntityId, message.Message) { calls++ })
	queue.Add(message.New(ecs.EntitiesSystem, "target", "", "later").At(2))

	for clock.Now() < 2 {
		assert.Equal(t, 0, scheduler.Dispatch())
		clock.Advance()
	}
	assert.Equal(t, 1, scheduler.Dispatch())
	assert.Equal(t, 1, calls)
}

func TestDispatchRoundLimit(t *testing.T) {
	world, queue, scheduler, _ := newTestKernel(ecs.WithDispatchLimit(5))
	echo := mustEntity(world, "echo")

	calls := 0
	ecs.AttachDispatcher(world, echo, func(ecs.EntityId, message.Message) {
		calls++
		queue.Add(message.New(ecs.EntitiesSystem, "echo", "echo", "again"))
	})
	queue.Add(message.New(ecs.EntitiesSystem, "echo", "", "again"))

	assert.Equal(t, 5, scheduler.Dispatch())
	assert.Equal(t, 5, calls)
	assert.Equal(t, 1, queue.Len(), "the last reply stays queued")
}

func TestAttachDispatcherOnlyOnce(t *testing.T) {
	world := newTestWorld()
	id := mustEntity(world, "")

	handler := func(ecs.EntityId, message.Message) {}
	assert.True(t, ecs.AttachDispatcher(world, id, handler))
	assert.False(t, ecs.AttachDispatcher(world, id, handler))
	assert.False(t, ecs.AttachDispatcher(world, ecs.EntityId(500), handler))
}
