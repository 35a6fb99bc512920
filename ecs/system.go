package ecs

// System is a unit of per-tick logic. Systems run in the order they were
// added to the Scheduler. A system struct may declare Query and Singleton
// fields; the Scheduler initializes them when the system is added.
type System interface {
	Name() string
	Run(frame *Frame)
}

// TimedSystem is implemented by systems whose execution time should be
// measured in scheduler statistics.
type TimedSystem interface {
	System
	Timed() bool
}

// FuncSystem adapts a function to the System interface.
type FuncSystem struct {
	name  string
	fn    func(frame *Frame)
	timed bool
}

// NewSystem wraps fn as a system called name.
func NewSystem(name string, fn func(frame *Frame)) *FuncSystem {
	return &FuncSystem{name: name, fn: fn}
}

// WithTiming marks the system as timed.
func (s *FuncSystem) WithTiming() *FuncSystem {
	s.timed = true
	return s
}

func (s *FuncSystem) Name() string     { return s.name }
func (s *FuncSystem) Run(frame *Frame) { s.fn(frame) }
func (s *FuncSystem) Timed() bool      { return s.timed }
