// Package cli implements the cutlog command line: a pipe that persists stdin through a
// writer factory, and a one-shot retention pass over log directories.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/hyp3rd/cutlog"
	"github.com/hyp3rd/cutlog/pkg/configloader"
)

// NewRootCommand constructs the root command and registers every subcommand.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "cutlog",
		Short:         "Buffered, rotating log files",
		Long:          "cutlog persists log lines into per-level files that rotate on period boundaries and expire after a retention window.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newPipeCommand())
	root.AddCommand(newCleanCommand())

	return root
}

func loadConfig(path string) (*cutlog.Config, error) {
	if path == "" {
		return configloader.FromEnv("")
	}

	return configloader.FromFile(path)
}
