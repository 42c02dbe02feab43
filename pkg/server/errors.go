package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"mercator-hq/auditor/pkg/checks"
	"mercator-hq/auditor/pkg/checks/engine"
	"mercator-hq/auditor/pkg/report/history"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps an error to its HTTP status and error code.
func statusFor(err error) (int, string) {
	var invariant *checks.InvariantError
	switch {
	case errors.Is(err, engine.ErrUnknownCheck):
		return http.StatusNotFound, "unknown_check"
	case errors.Is(err, history.ErrRunNotFound):
		return http.StatusNotFound, "run_not_found"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled"
	case errors.As(err, &invariant):
		return http.StatusInternalServerError, "invariant_violation"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

var errBadRequest = errors.New("bad request")

// respondError logs err and writes it as a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)

	log := s.logger.WarnContext
	if status >= http.StatusInternalServerError {
		log = s.logger.ErrorContext
	}
	log(r.Context(), "request error",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"code", code,
		"error", err,
		"request_id", middleware.GetReqID(r.Context()),
	)

	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
