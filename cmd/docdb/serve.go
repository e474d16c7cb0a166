package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cabewaldrop/docdb/internal/web"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP document explorer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			srv := web.NewServer(port, e)
			if err := srv.Run(); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on")
	return cmd
}
