package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <page>:<slot>",
		Short: "Tombstone a document's slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDocumentID(args[0])
			if err != nil {
				return err
			}

			e, err := flags.openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.Delete(id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			return nil
		},
	}
}
