package api

import (
	"encoding/json"
	"net/http"

	"github.com/finsight/finsight/internal/errs"
)

type ingestRequest struct {
	Table string `json:"table"`
}

// handleListTables returns the tables available for database ingestion.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		writeError(w, errs.New(errs.ErrKindUnavailable, "database ingestion is not configured"))
		return
	}
	tables, err := s.source.ListTables(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if tables == nil {
		tables = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

// handleIngest loads a database table and opens a session for it, the
// same way handleUpload does for a CSV file.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		writeError(w, errs.New(errs.ErrKindUnavailable, "database ingestion is not configured"))
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.Wrap(errs.ErrKindInvalidInput, "invalid request body", err))
		return
	}
	if req.Table == "" {
		writeError(w, errs.New(errs.ErrKindInvalidInput, "table name is required"))
		return
	}

	t, err := s.source.FetchTable(r.Context(), req.Table)
	if err != nil {
		writeError(w, err)
		return
	}

	analysis := s.analyzer.AnalyzeTable(t)

	sess, err := s.sessions.Create(r.Context(), req.Table, t, analysis)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:   true,
		Message:   "Table ingested successfully",
		SessionID: sess.ID,
		TableType: analysis.TableType,
		RowCount:  analysis.RowCount,
	})
}
