package web

// errors.go turns handler errors into responses.
//
// Every error is logged with its technical detail and request id, then
// mapped through core.MapError so clients only see the user message,
// suggested action and code. API routes answer with JSON; pages get an
// HTML alert.

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/distance/internal/core"
	"github.com/JonMunkholm/distance/internal/distance"
	"github.com/JonMunkholm/distance/internal/logging"
	"github.com/JonMunkholm/distance/internal/stitch"
	"github.com/JonMunkholm/distance/internal/store"
	"github.com/JonMunkholm/distance/internal/web/templates"
)

// errBadParam marks a query or form value that could not be parsed.
var errBadParam = errors.New("invalid query parameter")

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// clientErrors are caused by the request and answered with 400.
var clientErrors = []error{
	errBadParam,
	stitch.ErrRowLengthMismatch,
	stitch.ErrEmptyInput,
	stitch.ErrNoInputs,
	stitch.ErrZeroStep,
	stitch.ErrMalformedSlice,
	stitch.ErrUnevenInputs,
	distance.ErrInvalidMetric,
	distance.ErrInvalidPower,
	distance.ErrNoPowers,
	distance.ErrTooManyPowers,
	distance.ErrTooManyBins,
	distance.ErrTooManyDimensions,
	core.ErrTooManySamples,
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var (
		maxBytes *http.MaxBytesError
		parseErr *csv.ParseError
	)
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &parseErr):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrRunNotFound), errors.Is(err, core.ErrHistoryDisabled):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyJobs):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the mapped user message.
// A zero statusCode is resolved with statusFor.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	if statusCode == 0 {
		statusCode = statusFor(err)
	}
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	log := logger.Warn
	if statusCode >= http.StatusInternalServerError {
		log = logger.Error
	}
	log("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if wantsJSON(r) {
		respondErrorJSON(w, r, userMsg, statusCode)
		return
	}
	respondErrorHTML(w, r, userMsg, statusCode)
}

func respondErrorJSON(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, r, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

func respondErrorHTML(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render error alert", "error", err)
	}
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
