package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"libwatch/internal/config"
	"libwatch/internal/daemon"
	"libwatch/internal/logging"
	"libwatch/internal/runlog"
	"libwatch/internal/sizes"
	"libwatch/internal/status"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "run [sizes|status|all]",
		Short:     "Run a watcher pass immediately",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{sizes.Domain, status.Domain, "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			target := "all"
			if len(args) == 1 {
				target = args[0]
			}
			var domains []string
			switch target {
			case "all":
				if cfg.Sizes.Enabled {
					domains = append(domains, sizes.Domain)
				}
				if cfg.Status.Enabled {
					domains = append(domains, status.Domain)
				}
				if len(domains) == 0 {
					return fmt.Errorf("no watchers enabled in configuration")
				}
			case sizes.Domain, status.Domain:
				domains = []string{target}
			default:
				return fmt.Errorf("unknown watcher %q (expected sizes, status, or all)", target)
			}

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

			for _, domain := range domains {
				if err := runDomain(cmd, cfg, logger, runs, domain); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func runDomain(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, runs *runlog.Store, domain string) error {
	lock, acquired, err := daemon.LockDomain(cfg, domain)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("a %s run is already in progress", domain)
	}
	defer func() { _ = lock.Unlock() }()

	run, err := newRunFunc(domain, cfg, logger, runs)
	if err != nil {
		return err
	}
	entry, err := run(cmd.Context())
	if err != nil {
		return fmt.Errorf("%s run: %w", domain, err)
	}

	printRunSummary(cmd.OutOrStdout(), domain, entry)
	return nil
}

func printRunSummary(out io.Writer, domain string, entry runlog.Entry) {
	colorize := shouldColorize(out)
	fmt.Fprintf(out, "%s run complete\n", domain)

	itemsKind := statusInfo
	if entry.FirstRun {
		fmt.Fprintln(out, renderStatusLine("baseline", statusOK, "first run, snapshot recorded", colorize))
	}
	fmt.Fprintln(out, renderStatusLine("items", itemsKind, fmt.Sprintf("%d", entry.Items), colorize))

	changesKind := statusInfo
	if entry.Changes() > 0 {
		changesKind = statusOK
	}
	fmt.Fprintln(out, renderStatusLine("changes", changesKind, fmt.Sprintf("%d", entry.Changes()), colorize))
	fmt.Fprintln(out, renderStatusLine("batches sent", statusInfo, fmt.Sprintf("%d", entry.BatchesSent), colorize))
	if entry.Truncated {
		fmt.Fprintln(out, renderStatusLine("truncated", statusWarn, "report hit the batch cap", colorize))
	}
}
