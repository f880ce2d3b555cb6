package web

// errors.go maps failures to HTTP statuses and JSON error bodies.
//
// The technical error is logged with the request ID; the client gets the
// same message plus a short machine-readable code.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/argius/stew5/internal/delim"
	"github.com/argius/stew5/internal/load"
	"github.com/argius/stew5/internal/logging"
)

var errBadParam = errors.New("invalid query parameter")

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Line  int    `json:"line,omitempty"`

	// Reason is set for database failures with a known cause.
	Reason *load.Reason `json:"reason,omitempty"`
}

// classify returns the status and code for err.
func classify(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	var parseErr *delim.ParseError
	var srcErr *delim.SourceError

	switch {
	case errors.Is(err, load.ErrTooManyLoads):
		return http.StatusTooManyRequests, "too_many_loads"
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "body_too_large"
	case errors.As(err, &parseErr):
		return http.StatusUnprocessableEntity, "parse_error"
	case errors.Is(err, delim.ErrInvalidSeparator):
		return http.StatusBadRequest, "invalid_separator"
	case errors.Is(err, errBadParam),
		errors.Is(err, load.ErrNoColumns),
		errors.Is(err, load.ErrNoTable),
		errors.Is(err, load.ErrEmptySource),
		errors.Is(err, load.ErrInvalidMode):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return 499, "cancelled"
	case errors.As(err, &srcErr):
		return http.StatusBadRequest, "read_error"
	case load.IsSchemaError(err):
		return http.StatusBadRequest, "schema_error"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// respondError logs err and writes it as JSON with a mapped status.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", code,
		"error", err.Error(),
	)

	resp := ErrorResponse{Error: err.Error(), Code: code}
	var parseErr *delim.ParseError
	if errors.As(err, &parseErr) {
		resp.Line = parseErr.Line
	}
	if load.IsKnown(err) {
		reason := load.Describe(err)
		resp.Reason = &reason
	}
	writeJSON(w, r, status, resp)
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
