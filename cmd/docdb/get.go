package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <page>:<slot>",
		Short: "Fetch a document by id and print it as JSON",
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

			doc, err := e.Get(id)
			if err != nil {
				return fmt.Errorf("get %s: %w", id, err)
			}
			out, err := doc.ToJSON()
			if err != nil {
				return fmt.Errorf("render document as JSON: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", out)
			return nil
		},
	}
}
