package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cabewaldrop/docdb/internal/document"
	"github.com/cabewaldrop/docdb/internal/engine"
)

// APIResponse wraps every JSON API response with success/error info.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, APIResponse{Success: false, Error: message})
}

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>docdb explorer</title></head>
<body>
<h1>docdb explorer</h1>
<p>JSON API: GET /api/stats, POST /api/documents, GET/PUT/DELETE /api/documents/{pageID}/{slotID}, GET /api/pages/{pageID}, POST /api/pages/{pageID}/compact</p>
</body>
</html>`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("OK"))
}

// handleAPIStats returns database-wide page count and buffer pool occupancy.
// GET /api/stats
func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, struct {
		PageCount uint64 `json:"page_count"`
		Pool      any    `json:"pool"`
	}{
		PageCount: s.engine.PageCount(),
		Pool:      s.engine.PoolStats(),
	})
}

// handleAPIPageStats returns a single page's live document count and
// utilization. GET /api/pages/{pageID}
func (s *Server) handleAPIPageStats(w http.ResponseWriter, r *http.Request) {
	pageID, err := parsePageID(chi.URLParam(r, "pageID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	count, utilization, err := s.engine.PageStats(pageID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeSuccess(w, struct {
		PageID             uint64  `json:"page_id"`
		DocumentCount      int     `json:"document_count"`
		UtilizationPercent float64 `json:"utilization_percent"`
	}{pageID, count, utilization})
}

// handleAPIGetDocument fetches a document by id and returns it as JSON.
// GET /api/documents/{pageID}/{slotID}
func (s *Server) handleAPIGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := parseDocumentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := s.engine.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	raw, err := doc.ToJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

// handleAPIInsertDocument inserts a JSON request body as a new document.
// POST /api/documents
func (s *Server) handleAPIInsertDocument(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := document.FromJSON(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.engine.Insert(doc)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeSuccess(w, struct {
		ID string `json:"id"`
	}{id.String()})
}

// handleAPIUpdateDocument replaces a document's contents.
// PUT /api/documents/{pageID}/{slotID}
func (s *Server) handleAPIUpdateDocument(w http.ResponseWriter, r *http.Request) {
	id, err := parseDocumentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := document.FromJSON(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	newID, err := s.engine.Update(id, doc)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeSuccess(w, struct {
		ID string `json:"id"`
	}{newID.String()})
}

// handleAPIDeleteDocument tombstones a document's slot.
// DELETE /api/documents/{pageID}/{slotID}
func (s *Server) handleAPIDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := parseDocumentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.Delete(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeSuccess(w, struct {
		Deleted string `json:"deleted"`
	}{id.String()})
}

// handleAPICompactPage reclaims fragmented space on a page.
// POST /api/pages/{pageID}/compact
func (s *Server) handleAPICompactPage(w http.ResponseWriter, r *http.Request) {
	pageID, err := parsePageID(chi.URLParam(r, "pageID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.Compact(pageID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeSuccess(w, struct {
		Compacted uint64 `json:"compacted_page"`
	}{pageID})
}

func parsePageID(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

func parseDocumentIDParam(r *http.Request) (engine.DocumentID, error) {
	pageID, err := parsePageID(chi.URLParam(r, "pageID"))
	if err != nil {
		return engine.DocumentID{}, err
	}
	slotID, err := strconv.ParseUint(chi.URLParam(r, "slotID"), 10, 16)
	if err != nil {
		return engine.DocumentID{}, err
	}
	return engine.DocumentID{PageID: pageID, SlotID: uint16(slotID)}, nil
}
