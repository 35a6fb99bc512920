package cli

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/plus3/tick2d/ecs"
	"github.com/plus3/tick2d/engine"
	"github.com/plus3/tick2d/internal/arena"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StressOptions holds flags for the stress command.
type StressOptions struct {
	*RootOptions
	Engines        int
	Ticks          int
	Enemies        int
	HP             int
	GCPauseMetrics bool
}

// NewStressCommand creates the stress command.
func NewStressCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StressOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run isolated arena engines in parallel and report tick times",
		Long: `Run several independent engines side by side, each ticking as fast as it
can for a fixed number of ticks, then print a timing and memory report.

Examples:
  tick2d stress --engines 8 --ticks 2000 --enemies 500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := runStress(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return report.Generate(cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.Engines, "engines", runtime.GOMAXPROCS(0), "number of engines to run in parallel")
	cmd.Flags().IntVar(&opts.Ticks, "ticks", 1000, "ticks per engine")
	cmd.Flags().IntVar(&opts.Enemies, "enemies", 1000, "enemies seeded into each engine")
	cmd.Flags().IntVar(&opts.HP, "hp", 50, "hit points of seeded enemies")
	cmd.Flags().BoolVar(&opts.GCPauseMetrics, "gc-pause-metrics", false, "include GC pause metrics in the report")

	return cmd
}

func runStress(ctx context.Context, opts *StressOptions) (*Report, error) {
	if opts.Engines <= 0 || opts.Ticks <= 0 {
		return nil, fmt.Errorf("engines and ticks must be positive")
	}

	log, err := opts.logger()
	if err != nil {
		return nil, err
	}
	defer func() { _ = log.Sync() }()

	report := &Report{
		Engines:        opts.Engines,
		Ticks:          opts.Ticks,
		Enemies:        opts.Enemies,
		GCPauseMetrics: opts.GCPauseMetrics,
		Runs:           make([]EngineRun, opts.Engines),
	}
	runtime.ReadMemStats(&report.MemStatsStart)
	log.Info("starting stress run",
		zap.Int("engines", opts.Engines),
		zap.Int("ticks", opts.Ticks),
		zap.Int("enemies", opts.Enemies),
	)

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for i := range report.Runs {
		g.Go(func() error {
			run, err := stressEngine(ctx, opts)
			if err != nil {
				return fmt.Errorf("engine %d: %w", i, err)
			}
			report.Runs[i] = run
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	report.TotalTime = time.Since(start)
	runtime.ReadMemStats(&report.MemStatsEnd)

	for _, run := range report.Runs {
		report.TickTime.Samples = append(report.TickTime.Samples, run.TickTime.Samples...)
	}
	report.TickTime.Finalize()

	log.Info("stress run finished", zap.Duration("elapsed", report.TotalTime))
	return report, nil
}

func stressEngine(ctx context.Context, opts *StressOptions) (EngineRun, error) {
	registry := ecs.NewComponentRegistry()
	arena.Register(registry)

	e := engine.New(opts.Config.Engine, registry)
	if err := arena.Install(e, arena.DefaultWidth, arena.DefaultHeight); err != nil {
		return EngineRun{}, err
	}
	arena.Seed(e, opts.Enemies, opts.HP)

	run := EngineRun{
		ID:       e.ID().String(),
		TickTime: Stats{Samples: make([]time.Duration, 0, opts.Ticks)},
	}
	for i := 0; i < opts.Ticks; i++ {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		tickStart := time.Now()
		e.Tick()
		run.TickTime.Samples = append(run.TickTime.Samples, time.Since(tickStart))
	}
	run.TickTime.Finalize()

	stats := e.Stats()
	summary := arena.Summarize(e.World())
	run.Entities = stats.World.EntityCount
	run.Kills = summary.Kills
	run.Delivered = stats.Scheduler.Delivered
	run.Systems = stats.Scheduler.Systems
	return run, nil
}
