package ecs

import (
	"github.com/plus3/tick2d/message"
	"go.uber.org/zap"
)

// EntitiesSystem is the routing key of messages addressed to entities.
const EntitiesSystem = "entities"

// HandlerFunc handles a message delivered to the entity owning the handler.
type HandlerFunc func(owner EntityId, msg message.Message)

// Dispatcher is the component through which an entity receives messages.
// Game logic never calls the handler directly; Scheduler.Dispatch does.
type Dispatcher struct {
	Handler HandlerFunc
}

// AttachDispatcher gives the entity a Dispatcher running handler. It fails
// if the entity already has one.
func AttachDispatcher(w *World, id EntityId, handler HandlerFunc) bool {
	return AddComponent(w, id, Dispatcher{Handler: handler})
}

// Dispatch delivers pending entity messages until the queue has none left
// for this tick. Each message goes to the Dispatcher of the entity named in
// its To field; messages without a live recipient are dropped. Handlers may
// send further immediate messages, which are delivered within the same
// call. It returns the number of delivered messages.
func (s *Scheduler) Dispatch() int {
	delivered := 0
	for rounds := 0; ; rounds++ {
		if s.dispatchLimit > 0 && rounds >= s.dispatchLimit {
			s.log.Error("dispatch round limit reached",
				zap.Int("rounds", rounds),
				zap.Int("pending", s.messages.Len()),
			)
			break
		}

		batch := s.messages.Get(EntitiesSystem)
		if len(batch) == 0 {
			break
		}

		for _, msg := range batch {
			if s.deliver(msg) {
				delivered++
			}
		}
	}

	s.delivered += int64(delivered)
	return delivered
}

func (s *Scheduler) deliver(msg message.Message) bool {
	id, ok := s.world.ID(msg.To)
	if !ok {
		s.drop(msg, "no such entity")
		return false
	}

	dispatcher, err := GetComponent[Dispatcher](s.world, id)
	if err != nil || dispatcher.Handler == nil {
		s.drop(msg, "entity has no dispatcher")
		return false
	}

	dispatcher.Handler(id, msg)
	return true
}

func (s *Scheduler) drop(msg message.Message, reason string) {
	s.dropped++
	s.log.Debug("dropped entity message",
		zap.String("reason", reason),
		zap.Stringer("message", msg),
	)
}
