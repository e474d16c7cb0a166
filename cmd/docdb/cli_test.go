package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInsertThenGetRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	insertOut, err := runCLI(t, "--db", dbPath, "insert", `{"name":"grace"}`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	id := strings.TrimSpace(insertOut)
	if id == "" {
		t.Fatal("insert produced no id")
	}

	getOut, err := runCLI(t, "--db", dbPath, "get", id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.Contains(getOut, "grace") {
		t.Errorf("expected get output to contain 'grace', got %q", getOut)
	}
}

func TestGetUnknownDocumentIsInternalError(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	_, err := runCLI(t, "--db", dbPath, "get", "0:0")
	if err == nil {
		t.Fatal("expected an error fetching a document from an empty database")
	}
	if code := exitCodeFor(err); code != 2 {
		t.Errorf("expected exit code 2 (internal error), got %d", code)
	}
}

func TestParseDocumentIDRejectsMalformedInput(t *testing.T) {
	cases := []string{"", "5", "5:", ":5", "a:b", "5:b"}
	for _, c := range cases {
		if _, err := parseDocumentID(c); err == nil {
			t.Errorf("parseDocumentID(%q) = nil error, want an error", c)
		}
	}
}

func TestSeedThenStatsReportsPages(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	if _, err := runCLI(t, "--db", dbPath, "seed"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	statsOut, err := runCLI(t, "--db", dbPath, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(statsOut, "pages:") {
		t.Errorf("expected stats output to contain 'pages:', got %q", statsOut)
	}
}
