package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/cabewaldrop/docdb/internal/engine"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "explorer.db")
	eng, err := engine.Open(path)
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return NewServer(0, eng)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestInsertThenGetDocumentRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	insertResp, err := http.Post(ts.URL+"/api/documents", "application/json", bytes.NewBufferString(`{"name":"ada"}`))
	if err != nil {
		t.Fatalf("POST /api/documents: %v", err)
	}
	defer insertResp.Body.Close()
	if insertResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", insertResp.StatusCode)
	}

	var inserted APIResponse
	if err := json.NewDecoder(insertResp.Body).Decode(&inserted); err != nil {
		t.Fatalf("decode insert response: %v", err)
	}
	if !inserted.Success {
		t.Fatalf("insert failed: %s", inserted.Error)
	}
	data, ok := inserted.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected insert data shape: %#v", inserted.Data)
	}
	id := data["id"].(string)

	var pageID, slotID int
	if _, err := fmt.Sscanf(id, "%d:%d", &pageID, &slotID); err != nil {
		t.Fatalf("parse returned id %q: %v", id, err)
	}

	getResp, err := http.Get(fmt.Sprintf("%s/api/documents/%d/%d", ts.URL, pageID, slotID))
	if err != nil {
		t.Fatalf("GET document: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", getResp.StatusCode)
	}

	var doc map[string]interface{}
	if err := json.NewDecoder(getResp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if doc["name"] != "ada" {
		t.Errorf("expected name 'ada', got %v", doc["name"])
	}
}

func TestStatsEndpointReportsPageCount(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("GET /api/stats: %v", err)
	}
	defer resp.Body.Close()

	var out APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if !out.Success {
		t.Fatalf("stats failed: %s", out.Error)
	}
	data, ok := out.Data.(map[string]interface{})
	if !ok || data["page_count"] != float64(0) {
		t.Errorf("expected page_count 0 for a fresh database, got %#v", out.Data)
	}
}
