package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/broady/restcat"
)

// response wraps a successful result: {"result": ...}.
type response struct {
	Result any `json:"result"`
}

// errorResponse wraps a failure: {"error": {...}}.
type errorResponse struct {
	Error *restcat.Error `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, logger *slog.Logger, result any) {
	if err := writeJSON(w, http.StatusOK, response{Result: result}); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps err through the server's error transformer. Internal and
// integrity failures are logged; everything else is the caller's problem.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var e *restcat.Error
	if s.errors != nil {
		e = s.errors(err)
	}
	if e == nil {
		e = restcat.DefaultErrorTransformer(err)
	}
	status := e.Code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "code", e.Code, "error", err)
	}
	if err := writeJSON(w, status, errorResponse{Error: e}); err != nil {
		s.logger.Error("failed to encode error response", "error", err)
	}
}
