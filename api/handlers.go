package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/finsight/finsight/internal/errs"
	"github.com/finsight/finsight/internal/executor"
	"github.com/finsight/finsight/internal/planner"
	"github.com/finsight/finsight/internal/session"
	"github.com/finsight/finsight/internal/table"
)

const guardMessage = "Sorry, I couldn't understand your question. Please ask a specific question about your SAP data (e.g., 'Show vendor payments for Q1', 'Analyze overdue invoices', etc.)."

// throwaway inputs that are not worth a planning pass
var blockedQuestions = map[string]bool{
	"dog": true, "cat": true, "hello": true, "hi": true, "test": true,
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

type uploadResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	TableType string `json:"table_type,omitempty"`
	RowCount  int    `json:"row_count,omitempty"`
}

// handleUpload accepts a multipart CSV, analyzes it, and opens a session.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, uploadResponse{Message: "No file provided"})
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "" || name == "." {
		writeJSON(w, http.StatusBadRequest, uploadResponse{Message: "No file selected"})
		return
	}
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		writeJSON(w, http.StatusBadRequest, uploadResponse{Message: "Invalid file type"})
		return
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(file); err != nil {
		writeJSON(w, http.StatusBadRequest, uploadResponse{Message: "Error reading file: " + err.Error()})
		return
	}

	t, err := table.ReadCSV(bytes.NewReader(buf.Bytes()))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, uploadResponse{Message: "Error parsing file: " + err.Error()})
		return
	}

	analysis := s.analyzer.AnalyzeTable(t)
	analysis.SizeBytes = int64(buf.Len())

	sess, err := s.sessions.Create(r.Context(), name, t, analysis)
	if err != nil {
		writeError(w, err)
		return
	}

	if s.archive != nil {
		key := fmt.Sprintf("uploads/%s/%s", sess.ID, name)
		if _, err := s.archive.Put(r.Context(), key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "text/csv"); err != nil {
			// archiving is best-effort; the session is already usable
			s.log.With().Err(err).Str("key", key).Logger().Warn("upload archive failed")
		}
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:   true,
		Message:   "File uploaded successfully",
		SessionID: sess.ID,
		TableType: analysis.TableType,
		RowCount:  analysis.RowCount,
	})
}

type askRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

type askResponse struct {
	Status         string   `json:"status"`
	Message        string   `json:"message,omitempty"`
	Clarifications []string `json:"clarification_questions,omitempty"`

	Data          [][]any  `json:"data"`
	Columns       []string `json:"columns"`
	RowCount      int      `json:"row_count"`
	ExecutionTime float64  `json:"execution_time"`
	QueryType     string   `json:"query_type"`
	Insights      []string `json:"insights"`

	AIResponse              string `json:"ai_response,omitempty"`
	NaturalLanguageResponse string `json:"natural_language_response,omitempty"`
}

// handleAsk runs the full pipeline: guard, plan, execute, insight.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.Wrap(errs.ErrKindInvalidInput, "invalid request body", err))
		return
	}

	question := strings.TrimSpace(req.Question)
	if len(question) < 3 || blockedQuestions[strings.ToLower(question)] {
		writeJSON(w, http.StatusOK, askResponse{
			Status:    "error",
			Message:   guardMessage,
			QueryType: "error",
			Data:      [][]any{},
			Columns:   []string{},
			Insights:  []string{},
		})
		return
	}

	sess, err := s.sessions.Get(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := s.processQuestion(r.Context(), sess, question)

	entry := session.ChatEntry{
		Question: question,
		Answer:   chatAnswer(resp),
		Status:   resp.Status,
		AskedAt:  time.Now(),
	}
	if err := s.sessions.AppendHistory(r.Context(), sess.ID, entry); err != nil {
		s.log.With().Err(err).Str("session_id", sess.ID).Logger().Warn("history append failed")
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) processQuestion(ctx context.Context, sess *session.Session, question string) askResponse {
	start := time.Now()

	pl := planner.New(sess.Analysis, s.plannerCfg, s.log)
	planRes := pl.PlanQuery(question)

	switch planRes.Status {
	case planner.StatusAmbiguous:
		return askResponse{
			Status:         "ambiguous",
			Message:        planRes.Message,
			Clarifications: planRes.Clarifications,
			QueryType:      "ambiguous",
			ExecutionTime:  time.Since(start).Seconds(),
			Data:           [][]any{},
			Columns:        []string{},
			Insights:       []string{},
		}
	case planner.StatusError:
		return askResponse{
			Status:        "error",
			Message:       planRes.Message,
			QueryType:     "error",
			ExecutionTime: time.Since(start).Seconds(),
			Data:          [][]any{},
			Columns:       []string{},
			Insights:      []string{},
		}
	}

	exec := executor.New(sess.Table, sess.Analysis, s.log)
	result := exec.Execute(planRes.Plan)

	if result.Status == "error" {
		return askResponse{
			Status:        "error",
			Message:       result.Message,
			QueryType:     "error",
			ExecutionTime: time.Since(start).Seconds(),
			Data:          [][]any{},
			Columns:       []string{},
			Insights:      []string{},
		}
	}

	resp := askResponse{
		Status:                  "success",
		Clarifications:          planRes.Clarifications,
		Data:                    result.Data,
		Columns:                 result.Columns,
		RowCount:                result.RowCount,
		ExecutionTime:           result.ExecutionTime,
		QueryType:               string(planRes.Plan.Action),
		Insights:                result.Insights,
		NaturalLanguageResponse: result.NLResponse,
	}

	if s.insights != nil {
		summary := fmt.Sprintf("Rows returned: %d. Insights: %s", result.RowCount, strings.Join(result.Insights, "; "))
		if text, err := s.insights.Generate(ctx, question, summary); err == nil {
			resp.AIResponse = text
		}
	}

	return resp
}

func chatAnswer(resp askResponse) string {
	if resp.NaturalLanguageResponse != "" {
		return resp.NaturalLanguageResponse
	}
	if resp.Message != "" {
		return resp.Message
	}
	return fmt.Sprintf("Returned %d rows", resp.RowCount)
}

// handleSchema returns the stored analysis for a session.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Analysis)
}

// handleHistory returns the session's question/answer log.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	history := sess.History
	if history == nil {
		history = []session.ChatEntry{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
