package ecs

import (
	"github.com/plus3/tick2d/message"
	"go.uber.org/zap"
)

// Frame is what a system sees during one tick.
type Frame struct {
	Tick     int64
	World    *World
	Messages *message.Queue
	Commands *Commands
	Log      *zap.Logger
}

// Send enqueues msg on the frame's queue.
func (f *Frame) Send(msg message.Message) {
	f.Messages.Add(msg)
}

// SendAfter enqueues msg for delivery delay ticks from now. A delay of zero
// or less sends it immediately.
func (f *Frame) SendAfter(delay int64, msg message.Message) {
	if delay <= 0 {
		msg.Timer = message.Immediate
	} else {
		msg.Timer = f.Tick + delay
	}
	f.Messages.Add(msg)
}
