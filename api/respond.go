package api

import (
	"encoding/json"
	"net/http"

	"github.com/finsight/finsight/internal/errs"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError maps an error kind to an HTTP status and a JSON body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errs.IsNotFound(err):
		status = http.StatusNotFound
	case errs.IsInvalidInput(err):
		status = http.StatusBadRequest
	case errs.IsAmbiguous(err):
		status = http.StatusUnprocessableEntity
	case errs.IsUnavailable(err):
		status = http.StatusServiceUnavailable
	case errs.IsTimeout(err):
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, errorBody{Error: http.StatusText(status), Message: err.Error()})
}
