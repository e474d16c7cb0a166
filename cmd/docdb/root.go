package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cabewaldrop/docdb/internal/engine"
)

const version = "0.1.0"

// rootFlags holds the persistent flags shared by every subcommand.
type rootFlags struct {
	dbPath         string
	bufferCapacity int
	configPath     string
	compression    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "docdb",
		Short:         "A page-based document storage engine CLI",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.PersistentFlags().StringVar(&flags.dbPath, "db", "docdb.db", "path to the database file")
	root.PersistentFlags().IntVar(&flags.bufferCapacity, "buffer-capacity", engine.DefaultBufferCapacity, "buffer pool page capacity")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "optional YAML config file overriding engine settings")
	root.PersistentFlags().BoolVar(&flags.compression, "compression", false, "enable the optional zstd compaction-archive hook")

	root.AddCommand(
		newInsertCmd(flags),
		newGetCmd(flags),
		newUpdateCmd(flags),
		newDeleteCmd(flags),
		newCompactCmd(flags),
		newStatsCmd(flags),
		newSeedCmd(flags),
		newServeCmd(flags),
		newReplCmd(flags),
	)
	return root
}

// openEngine constructs an Engine from the shared flags.
func (f *rootFlags) openEngine() (*engine.Engine, error) {
	opts := []engine.Option{engine.WithBufferCapacity(f.bufferCapacity)}
	if f.configPath != "" {
		opts = append(opts, engine.WithConfigFile(f.configPath))
	}
	if f.compression {
		opts = append(opts, engine.WithCompression(true))
	}
	e, err := engine.Open(f.dbPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", f.dbPath, err)
	}
	return e, nil
}

// parseDocumentID parses a DocumentID in the "page:slot" format produced
// by DocumentID.String(). A surrounding "(" ")" pair or a "," separator
// is also tolerated, so a value copied from "(page, slot)" tuple notation
// still parses.
func parseDocumentID(s string) (engine.DocumentID, error) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "("), ")")
	trimmed = strings.Replace(trimmed, ":", ",", 1)
	pageStr, slotStr, found := strings.Cut(trimmed, ",")
	if !found {
		return engine.DocumentID{}, usageErrorf("invalid document id %q, expected format page:slot", s)
	}
	pageID, err := strconv.ParseUint(strings.TrimSpace(pageStr), 10, 64)
	if err != nil {
		return engine.DocumentID{}, usageErrorf("invalid page id in %q: %w", s, err)
	}
	slotID, err := strconv.ParseUint(strings.TrimSpace(slotStr), 10, 16)
	if err != nil {
		return engine.DocumentID{}, usageErrorf("invalid slot id in %q: %w", s, err)
	}
	return engine.DocumentID{PageID: pageID, SlotID: uint16(slotID)}, nil
}

// parsePageIDArg parses a bare page id, used by the compact subcommand and
// the REPL's "compact" verb.
func parsePageIDArg(s string) (uint64, error) {
	pageID, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, usageErrorf("invalid page id %q: %w", s, err)
	}
	return pageID, nil
}
