// Package cli implements the tick2d command line.
package cli

import (
	"fmt"

	"github.com/plus3/tick2d/internal/config"
	"github.com/plus3/tick2d/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string

	// Config is loaded before any subcommand runs.
	Config config.Config
}

// NewRootCommand creates the root command for the tick2d CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tick2d",
		Short: "tick2d - a tick-driven 2D game engine kernel",
		Long:  "Run the headless arena demo, stress the engine and work with message scripts.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log.level (debug|info|warn|error)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewStressCommand(opts))
	cmd.AddCommand(NewScriptCommand(opts))

	return cmd
}

func (o *RootOptions) load() error {
	cfg := config.Default()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
	}
	o.Config = cfg
	return nil
}

// logger builds the process logger from the loaded config.
func (o *RootOptions) logger() (*zap.Logger, error) {
	return logging.New(o.Config.Log)
}
