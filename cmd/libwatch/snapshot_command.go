package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"libwatch/internal/sizes"
	"libwatch/internal/snapshot"
	"libwatch/internal/status"
)

func newSnapshotCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "snapshot <sizes|status>",
		Short:     "Show the last recorded snapshot for a watcher",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{sizes.Domain, status.Domain},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			domain := args[0]
			if domain != sizes.Domain && domain != status.Domain {
				return fmt.Errorf("unknown watcher %q (expected sizes or status)", domain)
			}

			store := snapshot.NewStore(cfg.SnapshotPath(domain), nil)
			snap, found := store.Load()
			out := cmd.OutOrStdout()
			if !found {
				fmt.Fprintf(out, "No snapshot recorded for %s\n", domain)
				return nil
			}

			ids := make([]string, 0, len(snap))
			for id := range snap {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			headers := []string{"Item", "Value", "Count"}
			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				state := snap[id]
				rows = append(rows, []string{
					id,
					strconv.FormatFloat(state.Value, 'f', 2, 64),
					strconv.Itoa(state.Count),
				})
			}
			aligns := []columnAlignment{alignLeft, alignRight, alignRight}
			fmt.Fprintln(out, renderTable(headers, rows, aligns))
			fmt.Fprintf(out, "%d items in %s\n", len(ids), store.Path())
			return nil
		},
	}
}
