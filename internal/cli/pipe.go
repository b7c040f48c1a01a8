package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyp3rd/ewrap"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hyp3rd/cutlog"
	"github.com/hyp3rd/cutlog/pkg/writer"
)

const (
	maxLineSize       = 1 << 20
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func newPipeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipe",
		Short: "Write stdin lines to the log files of one level",
		Long:  "pipe reads stdin line by line and writes every line through a writer factory until EOF or a termination signal.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			levelName, _ := cmd.Flags().GetString("level")
			component, _ := cmd.Flags().GetString("component")
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

			level, err := cutlog.ParseLevel(levelName)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			if cfg.ErrorHandler == nil {
				errOut := cmd.ErrOrStderr()
				cfg.ErrorHandler = func(err error) {
					fmt.Fprintf(errOut, "cutlog: %v\n", err)
				}
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			factory, err := writer.NewFactory(*cfg)
			if err != nil {
				return ewrap.Wrap(err, "creating writer factory")
			}

			if metricsAddr != "" {
				stop := serveMetrics(metricsAddr, factory, cfg.ErrorHandler)
				defer stop()
			}

			err = pipe(ctx, cmd, factory, level, component)

			closeErr := factory.Close()
			if err == nil {
				err = closeErr
			}

			return err
		},
	}

	cmd.Flags().String("config", os.Getenv("CUTLOG_CONFIG"), "YAML configuration file (environment variables when empty)")
	cmd.Flags().String("level", "info", "Level of every piped line: trace|debug|info|warn|error|fatal")
	cmd.Flags().String("component", "", "Component of every piped line (application when empty)")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}

func pipe(ctx context.Context, cmd *cobra.Command, factory *writer.Factory, level cutlog.Level, component string) error {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineSize)

	done := make(chan error, 1)

	go func() {
		for scanner.Scan() {
			err := factory.Write(level, component, scanner.Text())
			if err != nil {
				done <- err

				return
			}
		}

		done <- scanner.Err()
	}()

	select {
	case err := <-done:
		if err != nil {
			return ewrap.Wrap(err, "piping stdin")
		}

		return nil
	case <-ctx.Done():
		return nil
	}
}

func serveMetrics(addr string, factory *writer.Factory, onError func(error)) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(factory.Gatherer(), promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			onError(ewrap.Wrap(err, "serving metrics").WithMetadata("addr", addr))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		_ = server.Shutdown(ctx)
	}
}
