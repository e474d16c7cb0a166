package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cabewaldrop/docdb/internal/storage"
)

func newStatsCmd(flags *rootFlags) *cobra.Command {
	var pageID uint64
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print database-wide or per-page occupancy statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			pageCount := e.PageCount()
			fmt.Fprintf(out, "pages:        %s (%s on disk)\n",
				humanize.Comma(int64(pageCount)),
				humanize.Bytes(pageCount*storage.PageSize))

			pool := e.PoolStats()
			fmt.Fprintf(out, "buffer pool:  %d/%d resident, %d dirty, %d pinned (%.1f%% utilized)\n",
				pool.Resident, pool.Capacity, pool.Dirty, pool.Pinned, pool.Utilized*100)

			if cmd.Flags().Changed("page") {
				count, utilization, err := e.PageStats(pageID)
				if err != nil {
					return fmt.Errorf("stats for page %d: %w", pageID, err)
				}
				fmt.Fprintf(out, "page %d:       %d live documents, %.1f%% utilized\n", pageID, count, utilization)
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&pageID, "page", 0, "also report detailed stats for this page id")
	return cmd
}
