package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"libwatch/internal/daemon"
	"libwatch/internal/logging"
	"libwatch/internal/runlog"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var runOnStart bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the watchers on their schedules until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			runs, err := runlog.Open(cfg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warn: run history unavailable: %v\n", err)
				runs = nil
			} else {
				defer runs.Close()
			}

			jobs, err := buildJobs(cfg, logger, runs)
			if err != nil {
				return err
			}

			d, err := daemon.New(cfg, logger, jobs)
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}
			if err := d.Start(signalCtx); err != nil {
				return err
			}
			defer d.Stop()

			if runOnStart {
				d.RunNow()
			}

			<-signalCtx.Done()
			logger.Info("daemon shutting down")
			return nil
		},
	}

	cmd.Flags().BoolVar(&runOnStart, "now", false, "Run every watcher once at startup before scheduling")
	return cmd
}
