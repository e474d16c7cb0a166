package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cabewaldrop/docdb/internal/document"
)

func newUpdateCmd(flags *rootFlags) *cobra.Command {
	var fromStdin bool
	cmd := &cobra.Command{
		Use:   "update <page>:<slot> [json]",
		Short: "Replace a document's contents",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDocumentID(args[0])
			if err != nil {
				return err
			}
			raw, err := readDocumentJSON(args[1:], fromStdin)
			if err != nil {
				return err
			}
			doc, err := document.FromJSON(raw)
			if err != nil {
				return usageErrorf("parse document JSON: %w", err)
			}

			e, err := flags.openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			newID, err := e.Update(id, doc)
			if err != nil {
				return fmt.Errorf("update %s: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", newID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read the document JSON from stdin")
	return cmd
}
