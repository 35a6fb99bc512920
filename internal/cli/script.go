package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/plus3/tick2d/message"
	"github.com/spf13/cobra"
)

// NewScriptCommand creates the script command group.
func NewScriptCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Inspect and build binary message scripts",
	}

	cmd.AddCommand(newScriptDumpCommand())
	cmd.AddCommand(newScriptBuildCommand())
	return cmd
}

func newScriptDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <script.bin>",
		Short: "Print the records of a binary script or message log",
		Long: `Print one line per record in the form

  @<timer> <system> <from>-><to> <cmd>(<args>)

Immediate records print as @now. Malformed records are counted, not printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open script: %w", err)
			}
			defer f.Close()
			return dumpScript(cmd.OutOrStdout(), f)
		},
	}
}

func dumpScript(w io.Writer, r io.Reader) error {
	dec := message.NewDecoder(r)
	count := 0
	for {
		msg, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(w, msg)
		count++
	}
	fmt.Fprintf(w, "%d records, %d skipped\n", count, dec.Skipped())
	return nil
}

func newScriptBuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "build <source.yaml> <script.bin>",
		Short: "Compile a YAML script source to the binary script format",
		Long: `Compile a YAML script source to the binary script format.

The source is a list of messages:

  messages:
    - timer: 50
      system: entities
      to: player
      from: enemy
      cmd: damage
      args: ["10"]

Timers are relative to the tick the script is loaded on; -1 is immediate.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := buildScript(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", n, args[1])
			return nil
		},
	}
}

func buildScript(src, dst string) (int, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	msgs, err := message.DecodeYAML(in)
	if err != nil {
		return 0, err
	}

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create script: %w", err)
	}
	if err := message.EncodeAll(out, msgs); err != nil {
		out.Close()
		return 0, err
	}
	return len(msgs), out.Close()
}
