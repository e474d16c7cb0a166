// Command docdb is the CLI shell over the storage engine: a tree of
// cobra subcommands for document CRUD plus an interactive REPL and HTTP
// explorer.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}
