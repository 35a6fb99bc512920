package ecs

import (
	"reflect"
	"strings"
	"time"

	"github.com/plus3/tick2d/message"
	"go.uber.org/zap"
)

// SchedulerStats provides statistics about scheduler execution.
type SchedulerStats struct {
	SystemCount     int
	Ticks           int64
	TotalExecutions int64
	Delivered       int64
	Dropped         int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system. Durations
// are only collected for timed systems.
type SystemStats struct {
	Name           string
	Position       int
	Timed          bool
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemStatsInternal struct {
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

type scheduledSystem struct {
	system   System
	name     string
	position int
	timed    bool
	queries  []reflect.Value
	stats    systemStatsInternal
}

// Scheduler runs systems in insertion order and routes entity messages to
// Dispatcher components.
type Scheduler struct {
	world    *World
	messages *message.Queue
	log      *zap.Logger
	commands *Commands

	systems   []*scheduledSystem
	names     map[string]int
	finalized bool

	dispatchLimit int
	ticks         int64
	delivered     int64
	dropped       int64
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets the logger handed to systems through their Frame.
func WithSchedulerLogger(log *zap.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// WithDispatchLimit caps the number of Get rounds a single Dispatch performs.
// Zero means no limit.
func WithDispatchLimit(rounds int) SchedulerOption {
	return func(s *Scheduler) {
		s.dispatchLimit = rounds
	}
}

// NewScheduler creates a new scheduler over world and messages.
func NewScheduler(world *World, messages *message.Queue, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		world:    world,
		messages: messages,
		log:      zap.NewNop(),
		commands: newCommands(),
		names:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends a system and initializes its Query and Singleton fields. It
// fails once the scheduler is finalized or if a system with the same name
// was already added.
func (s *Scheduler) Add(system System) bool {
	if s.finalized {
		s.log.Warn("system added after finalize", zap.String("system", system.Name()))
		return false
	}

	name := system.Name()
	if _, dup := s.names[name]; dup {
		s.log.Warn("duplicate system", zap.String("system", name))
		return false
	}

	entry := &scheduledSystem{
		system:   system,
		name:     name,
		position: len(s.systems),
		queries:  s.initializeQueries(system),
		stats: systemStatsInternal{
			minDuration: time.Duration(1<<63 - 1),
		},
	}
	if timed, ok := system.(TimedSystem); ok {
		entry.timed = timed.Timed()
	}

	s.names[name] = entry.position
	s.systems = append(s.systems, entry)
	return true
}

// initializeQueries binds Query and Singleton fields to the world and
// returns the Query fields so they can be refreshed before each run.
func (s *Scheduler) initializeQueries(system System) []reflect.Value {
	systemValue := reflect.ValueOf(system)
	if systemValue.Kind() == reflect.Ptr {
		systemValue = systemValue.Elem()
	}

	if systemValue.Kind() != reflect.Struct {
		return nil
	}

	systemType := systemValue.Type()
	worldValue := reflect.ValueOf(s.world)

	var queries []reflect.Value
	for i := 0; i < systemValue.NumField(); i++ {
		field := systemValue.Field(i)
		fieldType := systemType.Field(i)

		if !field.CanSet() || field.Kind() != reflect.Struct {
			continue
		}

		typeName := field.Type().Name()
		isQuery := strings.HasPrefix(typeName, "Query[")
		if !isQuery && !strings.HasPrefix(typeName, "Singleton[") {
			continue
		}

		initMethod := field.Addr().MethodByName("Init")
		if !initMethod.IsValid() {
			panic("Init method not found on field: " + fieldType.Name)
		}
		initMethod.Call([]reflect.Value{worldValue})

		if isQuery {
			queries = append(queries, field.Addr().MethodByName("Execute"))
		}
	}
	return queries
}

// Bind initializes the Query and Singleton fields of a system the scheduler
// does not run itself. The returned function re-executes its Query fields
// and is meant to be called right before the system runs.
func (s *Scheduler) Bind(system System) func() {
	queries := s.initializeQueries(system)
	return func() {
		for _, execute := range queries {
			execute.Call(nil)
		}
	}
}

// Finalize freezes the system list. Further Add calls fail.
func (s *Scheduler) Finalize() {
	s.finalized = true
}

// Finalized reports whether Finalize was called.
func (s *Scheduler) Finalized() bool {
	return s.finalized
}

// Order returns system names in execution order.
func (s *Scheduler) Order() []string {
	names := make([]string, len(s.systems))
	for i, entry := range s.systems {
		names[i] = entry.name
	}
	return names
}

// Frame builds the frame systems see on the current tick.
func (s *Scheduler) Frame() *Frame {
	return &Frame{
		Tick:     s.messages.Now(),
		World:    s.world,
		Messages: s.messages,
		Commands: s.commands,
		Log:      s.log,
	}
}

// Run executes every system once, in insertion order, then applies the
// commands they queued.
func (s *Scheduler) Run() {
	frame := s.Frame()

	for _, entry := range s.systems {
		for _, execute := range entry.queries {
			execute.Call(nil)
		}

		stats := &entry.stats
		stats.executionCount++

		if !entry.timed {
			entry.system.Run(frame)
			continue
		}

		start := time.Now()
		entry.system.Run(frame)
		duration := time.Since(start)

		stats.lastDuration = duration
		stats.totalDuration += duration
		if duration < stats.minDuration {
			stats.minDuration = duration
		}
		if duration > stats.maxDuration {
			stats.maxDuration = duration
		}
	}

	s.commands.Flush(s.world, s.log)
	s.ticks++
}

// Stats returns statistics about system execution and message routing.
func (s *Scheduler) Stats() *SchedulerStats {
	stats := &SchedulerStats{
		SystemCount: len(s.systems),
		Ticks:       s.ticks,
		Delivered:   s.delivered,
		Dropped:     s.dropped,
		Systems:     make([]SystemStats, len(s.systems)),
	}

	var totalExecs int64
	for i, entry := range s.systems {
		internal := entry.stats
		st := SystemStats{
			Name:           entry.name,
			Position:       entry.position,
			Timed:          entry.timed,
			ExecutionCount: internal.executionCount,
		}
		if entry.timed && internal.executionCount > 0 {
			st.MinDuration = internal.minDuration
			st.MaxDuration = internal.maxDuration
			st.AvgDuration = internal.totalDuration / time.Duration(internal.executionCount)
			st.LastDuration = internal.lastDuration
			st.TotalDuration = internal.totalDuration
		}
		stats.Systems[i] = st
		totalExecs += internal.executionCount
	}

	stats.TotalExecutions = totalExecs
	return stats
}
