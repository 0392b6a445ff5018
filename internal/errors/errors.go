// Package errors renders failures as the JSON error envelope returned by the
// API and maps them onto HTTP status codes.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/loader"
)

type ErrorCode string

const (
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeValidation     ErrorCode = "VALIDATION_ERROR"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeBadRequest     ErrorCode = "BAD_REQUEST"
	CodeRateLimit      ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
	CodeDataLoad       ErrorCode = "DATA_LOAD_FAILED"
)

var statusByCode = map[ErrorCode]int{
	CodeValidation:     http.StatusBadRequest,
	CodeBadRequest:     http.StatusBadRequest,
	CodeNotFound:       http.StatusNotFound,
	CodeRateLimit:      http.StatusTooManyRequests,
	CodeServiceUnavail: http.StatusServiceUnavailable,
	// The previous table keeps being served after a failed reload, so this is
	// a failed dependency rather than a server fault.
	CodeDataLoad:       http.StatusFailedDependency,
}

// Status returns the HTTP status for code.
func (c ErrorCode) Status() int {
	if s, ok := statusByCode[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

type AppError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Cause     error     `json:"-"`
}

func (e *AppError) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Cause: err}
}

// InvalidParam reports a query parameter that could not be used.
func InvalidParam(name, value, reason string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: fmt.Sprintf("invalid %s parameter", name),
		Details: fmt.Sprintf("%q %s", value, reason),
	}
}

// FromLoadError describes a failed data load.
func FromLoadError(le *loader.LoadError) *AppError {
	return &AppError{
		Code:    CodeDataLoad,
		Message: "failed to load sales data",
		Details: fmt.Sprintf("%s: %s", le.Kind, le.Msg),
		Cause:   le,
	}
}

func classify(err error) *AppError {
	var appErr *AppError
	var loadErr *loader.LoadError
	switch {
	case stderrors.As(err, &appErr):
		// Copy so the shared error value is not stamped per request.
		c := *appErr
		return &c
	case stderrors.As(err, &loadErr):
		return FromLoadError(loadErr)
	case stderrors.Is(err, context.DeadlineExceeded):
		return Wrap(err, CodeServiceUnavail, "request timed out")
	default:
		return Wrap(err, CodeInternal, "An unexpected error occurred")
	}
}

type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *AppError `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

// WriteError writes err as a JSON error envelope and logs it, at warn level
// for client errors and error level otherwise.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error, requestID string) {
	appErr := classify(err)
	appErr.RequestID = requestID
	appErr.Timestamp = time.Now().UTC()
	status := appErr.Code.Status()

	if encodeErr := writeJSON(w, status, envelope{Error: appErr}); encodeErr != nil {
		logger.Error("failed to encode error response",
			"encode_error", encodeErr,
			"original_error", err,
			"request_id", requestID,
		)
		return
	}

	level := slog.LevelError
	if status < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "request failed",
		"error_code", appErr.Code,
		"status_code", status,
		"details", appErr.Details,
		"request_id", requestID,
		"cause", appErr.Cause,
	)
}

func WriteSuccess(w http.ResponseWriter, data any) {
	_ = writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func WriteSuccessWithHeaders(w http.ResponseWriter, data any, headers map[string]string) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	WriteSuccess(w, data)
}
