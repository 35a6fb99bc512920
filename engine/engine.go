// Package engine ties the entity registry, message queue and system scheduler
// into a tick loop.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/plus3/tick2d/ecs"
	"github.com/plus3/tick2d/internal/config"
	"github.com/plus3/tick2d/message"
	"go.uber.org/zap"
)

// Engine owns one simulation: its world, queue, scheduler, clock and the
// subsystems that pull their own messages after dispatch. Engines share no
// state, so several can run side by side in one process.
type Engine struct {
	id  uuid.UUID
	cfg config.Engine
	log *zap.Logger

	clock      *message.TickClock
	world      *ecs.World
	messages   *message.Queue
	scheduler  *ecs.Scheduler
	spawner    *ecs.Spawner
	subsystems []subsystem
	names      map[string]bool

	record io.Closer
	pruned int64
}

type subsystem struct {
	system  ecs.System
	refresh func()
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Every package the engine creates logs
// through it, tagged with the engine's run id.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithStartTick starts the clock at tick instead of zero.
func WithStartTick(tick int64) Option {
	return func(e *Engine) {
		e.clock.Set(tick)
	}
}

// New creates an engine storing the component types known to registry. The
// spawner is installed as the first subsystem.
func New(cfg config.Engine, registry *ecs.ComponentRegistry, opts ...Option) *Engine {
	e := &Engine{
		id:    uuid.New(),
		cfg:   cfg,
		log:   zap.NewNop(),
		clock: message.NewTickClock(0),
		names: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(zap.String("run", e.id.String()))

	start, end := ecs.EntityId(cfg.EntityIdStart), ecs.EntityId(cfg.EntityIdMax)
	if end == ecs.InvalidEntity {
		end = ecs.EntityMax
	}

	e.world = ecs.NewWorld(registry,
		ecs.WithIdRange(start, end),
		ecs.WithWorldLogger(e.log.Named("world")),
	)
	e.messages = message.NewQueue(e.clock, message.WithLogger(e.log.Named("queue")))
	e.scheduler = ecs.NewScheduler(e.world, e.messages,
		ecs.WithSchedulerLogger(e.log.Named("systems")),
		ecs.WithDispatchLimit(cfg.DispatchLimit),
	)

	e.spawner = ecs.NewSpawner()
	e.AddSubsystem(e.spawner)
	return e
}

// ID returns the run id the engine tags its log lines with.
func (e *Engine) ID() uuid.UUID { return e.id }

// Log returns the engine logger.
func (e *Engine) Log() *zap.Logger { return e.log }

// World returns the entity registry.
func (e *Engine) World() *ecs.World { return e.world }

// Messages returns the message queue.
func (e *Engine) Messages() *message.Queue { return e.messages }

// Scheduler returns the system scheduler.
func (e *Engine) Scheduler() *ecs.Scheduler { return e.scheduler }

// Spawner returns the spawner subsystem.
func (e *Engine) Spawner() *ecs.Spawner { return e.spawner }

// Now returns the current tick.
func (e *Engine) Now() int64 { return e.clock.Now() }

// Send enqueues a message.
func (e *Engine) Send(msg message.Message) { e.messages.Add(msg) }

// AddSystem registers a per-tick system. Systems run in the order they were
// added; adding fails after the first tick or on a duplicate name.
func (e *Engine) AddSystem(system ecs.System) bool {
	if e.names[system.Name()] {
		e.log.Warn("system name in use", zap.String("system", system.Name()))
		return false
	}
	if !e.scheduler.Add(system) {
		return false
	}
	e.names[system.Name()] = true
	return true
}

// AddSubsystem registers a collaborator that runs after dispatch each tick.
// Subsystems typically pull their own batch with Messages().Get(name). Their
// Query and Singleton fields are bound like those of systems.
func (e *Engine) AddSubsystem(system ecs.System) bool {
	if e.scheduler.Finalized() {
		e.log.Warn("subsystem added after start", zap.String("system", system.Name()))
		return false
	}
	if e.names[system.Name()] {
		e.log.Warn("system name in use", zap.String("system", system.Name()))
		return false
	}
	e.names[system.Name()] = true
	e.subsystems = append(e.subsystems, subsystem{
		system:  system,
		refresh: e.scheduler.Bind(system),
	})
	return true
}

// LoadScript schedules the records of a binary script relative to the
// current tick.
func (e *Engine) LoadScript(path string) error {
	return e.messages.LoadScript(path)
}

// Record writes every message sent from now on to w in script format.
func (e *Engine) Record(w io.Writer) {
	e.messages.Record(w)
}

// RecordFile is Record to a new file at path. The file is closed by Close.
func (e *Engine) RecordFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create message log: %w", err)
	}
	e.closeRecord()
	e.record = f
	e.messages.Record(f)
	e.log.Info("recording messages", zap.String("path", path))
	return nil
}

// Tick advances the simulation by one tick: systems run in order, entity
// messages are dispatched, subsystems pull their batches, whatever is still
// due is pruned and the clock moves on. The first Tick freezes the system
// list.
func (e *Engine) Tick() {
	if !e.scheduler.Finalized() {
		e.scheduler.Finalize()
		e.log.Info("engine started",
			zap.Strings("systems", e.scheduler.Order()),
			zap.Int("subsystems", len(e.subsystems)),
		)
	}

	e.scheduler.Run()
	e.scheduler.Dispatch()

	frame := e.scheduler.Frame()
	for _, sub := range e.subsystems {
		sub.refresh()
		sub.system.Run(frame)
	}
	frame.Commands.Flush(e.world, e.log)

	if n := e.messages.Prune(); n > 0 {
		e.pruned += int64(n)
		e.log.Debug("pruned messages", zap.Int64("tick", frame.Tick), zap.Int("count", n))
	}
	e.clock.Advance()
}

// Step runs n ticks back to back.
func (e *Engine) Step(n int) {
	for i := 0; i < n; i++ {
		e.Tick()
	}
}

// Run ticks at the configured rate until ctx is done or the configured
// number of ticks has run. Reaching max_ticks returns nil; cancellation
// returns the context's error.
func (e *Engine) Run(ctx context.Context) error {
	rate := e.cfg.TickRate
	if rate <= 0 {
		rate = config.Default().Engine.TickRate
	}
	rate = min(rate, config.MaxTickRate)
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	var ticks int64
	for {
		if e.cfg.MaxTicks > 0 && ticks >= e.cfg.MaxTicks {
			e.log.Info("tick limit reached", zap.Int64("ticks", ticks))
			return nil
		}

		select {
		case <-ctx.Done():
			e.log.Info("engine stopped", zap.Int64("ticks", ticks), zap.Error(ctx.Err()))
			return ctx.Err()
		case <-ticker.C:
			e.Tick()
			ticks++
		}
	}
}

// Close stops recording and closes the message log file, if any.
func (e *Engine) Close() error {
	e.messages.Record(nil)
	return e.closeRecord()
}

func (e *Engine) closeRecord() error {
	if e.record == nil {
		return nil
	}
	err := e.record.Close()
	e.record = nil
	return err
}

// Stats summarizes an engine's state.
type Stats struct {
	Tick      int64
	Pending   int
	Pruned    int64
	Spawned   int64
	Deleted   int64
	World     ecs.WorldStats
	Scheduler *ecs.SchedulerStats
}

// Stats returns a snapshot of engine statistics.
func (e *Engine) Stats() Stats {
	spawned, deleted := e.spawner.Counts()
	return Stats{
		Tick:      e.clock.Now(),
		Pending:   e.messages.Len(),
		Pruned:    e.pruned,
		Spawned:   spawned,
		Deleted:   deleted,
		World:     e.world.CollectStats(),
		Scheduler: e.scheduler.Stats(),
	}
}
