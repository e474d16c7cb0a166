package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cabewaldrop/docdb/internal/exampledata"
)

func newSeedCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the built-in set of example documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			for _, doc := range exampledata.All() {
				id, err := e.Insert(doc)
				if err != nil {
					return fmt.Errorf("seed: %w", err)
				}
				fmt.Fprintf(out, "%s\n", id)
			}
			return nil
		},
	}
}
