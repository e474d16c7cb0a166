package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cabewaldrop/docdb/internal/document"
)

func newInsertCmd(flags *rootFlags) *cobra.Command {
	var fromStdin bool
	cmd := &cobra.Command{
		Use:   "insert [json]",
		Short: "Insert a document from a JSON argument or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readDocumentJSON(args, fromStdin)
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

			id, err := e.Insert(doc)
			if err != nil {
				return fmt.Errorf("insert: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read the document JSON from stdin")
	return cmd
}

func readDocumentJSON(args []string, fromStdin bool) ([]byte, error) {
	if fromStdin {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, usageErrorf("read document JSON from stdin: %w", err)
		}
		return data, nil
	}
	if len(args) == 0 {
		return nil, usageErrorf("provide a JSON document argument or pass --stdin")
	}
	return []byte(args[0]), nil
}
