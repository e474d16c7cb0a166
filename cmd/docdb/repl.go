package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cabewaldrop/docdb/internal/document"
	"github.com/cabewaldrop/docdb/internal/engine"
)

var replCommands = map[string]string{
	".help":    "show this help",
	".stats":   "print buffer pool and page occupancy",
	".quit":    "flush and exit",
	".exit":    "flush and exit",
	"insert":   "insert <json>           insert a document",
	"get":      "get <page>:<slot>       fetch a document",
	"update":   "update <page>:<slot> <json>   replace a document",
	"delete":   "delete <page>:<slot>    tombstone a document",
	"compact":  "compact <pageID>        reclaim fragmented space",
}

func newReplCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive docdb session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.openEngine()
			if err != nil {
				return err
			}
			defer e.Close()
			runRepl(e, cmd.OutOrStdout())
			return nil
		},
	}
}

// runRepl implements the interactive read-eval-print loop: a dot-command
// dispatch for session control plus the CRUD verbs as bare statements.
func runRepl(e *engine.Engine, out io.Writer) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Fprintln(out, "docdb interactive session. Type .help for commands, .quit to exit.")

	for {
		fmt.Fprint(out, "docdb> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintln(out, "\ngoodbye")
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case line == ".help":
			printReplHelp(out)
		case line == ".quit" || line == ".exit":
			fmt.Fprintln(out, "goodbye")
			return
		case line == ".stats":
			printReplStats(e, out)
		default:
			if err := dispatchReplLine(e, line, out); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
	}
}

func printReplHelp(out io.Writer) {
	fmt.Fprintln(out, "\nAvailable commands:")
	for _, cmd := range []string{".help", ".stats", ".quit", ".exit", "insert", "get", "update", "delete", "compact"} {
		fmt.Fprintf(out, "  %-8s %s\n", cmd, replCommands[cmd])
	}
	fmt.Fprintln(out)
}

func printReplStats(e *engine.Engine, out io.Writer) {
	pool := e.PoolStats()
	fmt.Fprintf(out, "pages: %d, buffer pool: %d/%d resident, %d dirty, %d pinned\n",
		e.PageCount(), pool.Resident, pool.Capacity, pool.Dirty, pool.Pinned)
}

func dispatchReplLine(e *engine.Engine, line string, out io.Writer) error {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch verb {
	case "insert":
		doc, err := document.FromJSON([]byte(rest))
		if err != nil {
			return fmt.Errorf("parse document JSON: %w", err)
		}
		id, err := e.Insert(doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", id)

	case "get":
		id, err := parseDocumentID(rest)
		if err != nil {
			return err
		}
		doc, err := e.Get(id)
		if err != nil {
			return err
		}
		raw, err := doc.ToJSON()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", raw)

	case "update":
		idStr, body, found := strings.Cut(rest, " ")
		if !found {
			return usageErrorf("usage: update <page>:<slot> <json>")
		}
		id, err := parseDocumentID(idStr)
		if err != nil {
			return err
		}
		doc, err := document.FromJSON([]byte(body))
		if err != nil {
			return fmt.Errorf("parse document JSON: %w", err)
		}
		newID, err := e.Update(id, doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", newID)

	case "delete":
		id, err := parseDocumentID(rest)
		if err != nil {
			return err
		}
		if err := e.Delete(id); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %s\n", id)

	case "compact":
		pageID, err := parsePageIDArg(rest)
		if err != nil {
			return err
		}
		if err := e.Compact(pageID); err != nil {
			return err
		}
		fmt.Fprintf(out, "compacted page %d\n", pageID)

	default:
		return usageErrorf("unknown command %q, type .help for a list", verb)
	}
	return nil
}
