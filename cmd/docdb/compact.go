package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCompactCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "compact <pageID>",
		Short: "Reclaim fragmented space on a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pageID, err := parsePageIDArg(args[0])
			if err != nil {
				return err
			}

			e, err := flags.openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.Compact(pageID); err != nil {
				return fmt.Errorf("compact page %d: %w", pageID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "compacted page %d\n", pageID)
			return nil
		},
	}
}
