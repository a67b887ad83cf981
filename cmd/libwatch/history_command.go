package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"libwatch/internal/runlog"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var domainFlag string
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent watcher runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			runs, err := runlog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer runs.Close()

			entries, err := runs.Recent(cmd.Context(), domainFlag, limitFlag)
			if err != nil {
				return fmt.Errorf("load run history: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}

			headers := []string{"Started", "Domain", "Items", "Changes", "Batches", "Delivered", "Notes"}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.StartedAt.Local().Format("2006-01-02 15:04:05"),
					entry.Domain,
					strconv.Itoa(entry.Items),
					strconv.Itoa(entry.Changes()),
					strconv.Itoa(entry.BatchesSent),
					yesNo(entry.Delivered),
					entryNotes(entry),
				})
			}
			aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft}
			fmt.Fprintln(out, renderTable(headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().StringVar(&domainFlag, "domain", "", "Only show runs for one watcher (sizes or status)")
	cmd.Flags().IntVar(&limitFlag, "limit", 20, "Maximum number of runs to show")
	return cmd
}

func entryNotes(entry runlog.Entry) string {
	switch {
	case entry.FirstRun:
		return "first run"
	case entry.Truncated:
		return "truncated"
	default:
		return ""
	}
}
