package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hyp3rd/ewrap"
	"github.com/spf13/cobra"

	"github.com/hyp3rd/cutlog/internal/audit"
	"github.com/hyp3rd/cutlog/internal/constants"
	"github.com/hyp3rd/cutlog/internal/retention"
)

func newCleanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete expired dated log files once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dirs, _ := cmd.Flags().GetStringSlice("dir")
			prefixes, _ := cmd.Flags().GetStringSlice("prefix")
			keepDays, _ := cmd.Flags().GetInt("keep-days")
			auditPath, _ := cmd.Flags().GetString("audit")

			if len(dirs) == 0 {
				return ewrap.New("at least one --dir is required")
			}

			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()

			var auditLog *audit.Log

			if auditPath != "" {
				var err error

				auditLog, err = audit.Open(auditPath, func(err error) {
					fmt.Fprintf(errOut, "cutlog: %v\n", err)
				})
				if err != nil {
					return err
				}

				defer func() { _ = auditLog.Close() }()
			}

			cleaner := retention.New(retention.Config{
				KeepDays: keepDays,
				Prefixes: prefixes,
				Audit:    auditLog,
				OnScan: func(dir string, err error) {
					if err != nil {
						fmt.Fprintf(errOut, "scan %s: %v\n", dir, err)

						return
					}

					fmt.Fprintf(out, "scanned %s\n", dir)
				},
			})

			for _, dir := range dirs {
				cleaner.Track(dir)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return cleaner.Run(ctx)
		},
	}

	cmd.Flags().StringSlice("dir", nil, "Directory to scan (repeatable)")
	cmd.Flags().StringSlice("prefix", nil, "Additional file name prefix to match (repeatable)")
	cmd.Flags().Int("keep-days", constants.DefaultKeepDays, "Retention window in days")
	cmd.Flags().String("audit", "", "Append deletions to this audit log")

	return cmd
}
