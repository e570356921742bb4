package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/finsight/internal/analyzer"
	"github.com/finsight/finsight/internal/session"
)

const bkpfCSV = `BUKRS,BELNR,GJAHR,BLART,BUDAT,WAERS,DMBTR,LIFNR
1000,4900000001,2024,KR,2024-01-15,USD,1250.50,V001
1000,4900000002,2024,KR,2024-02-20,USD,300.00,V002
2000,4900000003,2024,DR,2024-03-05,EUR,99.99,V001
1000,4900000004,2024,KR,2024-04-18,USD,500.00,V003
`

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	store := session.NewMemory(session.Config{TTL: time.Minute}, nil)
	t.Cleanup(func() { _ = store.Close() })

	srv := NewServer(analyzer.New(analyzer.DefaultConfig(), nil), store, Options{}, nil)
	return srv, srv.Router()
}

func uploadCSV(t *testing.T, h http.Handler, name, content string) uploadResponse {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp uploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func ask(t *testing.T, h http.Handler, sessionID, question string) (int, askResponse) {
	t.Helper()

	payload, err := json.Marshal(askRequest{SessionID: sessionID, Question: question})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp askResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func TestUploadAndAsk(t *testing.T) {
	_, h := newTestServer(t)

	up := uploadCSV(t, h, "bkpf.csv", bkpfCSV)
	require.True(t, up.Success)
	assert.Equal(t, "BKPF", up.TableType)
	assert.Equal(t, 4, up.RowCount)
	require.NotEmpty(t, up.SessionID)

	code, resp := ask(t, h, up.SessionID, "How many documents are there?")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "count", resp.QueryType)
	assert.Equal(t, 1, resp.RowCount)
}

func TestUploadRejectsNonCSV(t *testing.T) {
	_, h := newTestServer(t)

	up := uploadCSV(t, h, "notes.txt", "hello")
	assert.False(t, up.Success)
	assert.Equal(t, "Invalid file type", up.Message)
}

func TestAskQuestionGuard(t *testing.T) {
	_, h := newTestServer(t)
	up := uploadCSV(t, h, "bkpf.csv", bkpfCSV)

	for _, q := range []string{"hi", "dog", "ab", "  "} {
		code, resp := ask(t, h, up.SessionID, q)
		require.Equal(t, http.StatusOK, code, q)
		assert.Equal(t, "error", resp.Status, q)
		assert.Contains(t, resp.Message, "couldn't understand", q)
	}
}

func TestAskUnknownSession(t *testing.T) {
	_, h := newTestServer(t)

	payload := `{"session_id":"nope","question":"How many documents?"}`
	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAskAmbiguous(t *testing.T) {
	_, h := newTestServer(t)
	up := uploadCSV(t, h, "lfa1.csv", "LIFNR,NAME1\nV001,Acme Corp\nV002,Globex\n")

	code, resp := ask(t, h, up.SessionID, "show entries with amount greater than $500 please")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ambiguous", resp.Status)
	assert.NotEmpty(t, resp.Clarifications)
}

func TestAskRecordsHistory(t *testing.T) {
	_, h := newTestServer(t)
	up := uploadCSV(t, h, "bkpf.csv", bkpfCSV)

	_, _ = ask(t, h, up.SessionID, "How many documents are there?")

	req := httptest.NewRequest(http.MethodGet, "/api/history/"+up.SessionID, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var history []session.ChatEntry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	require.Len(t, history, 1)
	assert.Equal(t, "How many documents are there?", history[0].Question)
	assert.Equal(t, "success", history[0].Status)
}

func TestSchemaEndpoint(t *testing.T) {
	_, h := newTestServer(t)
	up := uploadCSV(t, h, "bkpf.csv", bkpfCSV)

	req := httptest.NewRequest(http.MethodGet, "/api/schema/"+up.SessionID, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var analysis analyzer.Analysis
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&analysis))
	assert.Equal(t, "BKPF", analysis.TableType)
	assert.Equal(t, 8, analysis.ColumnCount)
}

func TestSchemaUnknownSession(t *testing.T) {
	_, h := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/schema/nope", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSession(t *testing.T) {
	_, h := newTestServer(t)
	up := uploadCSV(t, h, "bkpf.csv", bkpfCSV)

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/"+up.SessionID, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	code, _ := ask(t, h, up.SessionID, "How many documents are there?")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealthz(t *testing.T) {
	_, h := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
