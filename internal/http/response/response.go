// Package response writes the JSON envelope used by every API response,
// for handlers that sit outside the typed operation layer.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	domainerrors "github.com/listenupapp/bulkmeta/internal/errors"
	"github.com/listenupapp/bulkmeta/internal/store"
)

// Version is the envelope format version, sent as "v".
const Version = 1

// Envelope is the outer shape of every JSON response. Successful responses
// carry Data; failures carry Error and, when known, Code and Details.
type Envelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Wrap builds the success envelope for data.
func Wrap(data any) Envelope {
	return Envelope{Version: Version, Success: true, Data: data}
}

// Failure builds the error envelope.
func Failure(code, message string, details any) Envelope {
	return Envelope{
		Version: Version,
		Success: false,
		Error:   message,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// JSON writes data in a success envelope, or as a failure when status is
// 400 or above.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	env := Wrap(data)
	if status >= http.StatusBadRequest {
		env.Success = false
	}
	write(w, status, env, logger)
}

// Success writes a 200 response.
func Success(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusOK, data, logger)
}

// Created writes a 201 response.
func Created(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusCreated, data, logger)
}

// Error writes a failure envelope.
func Error(w http.ResponseWriter, status int, code domainerrors.Code, message string, logger *slog.Logger) {
	write(w, status, Failure(string(code), message, nil), logger)
}

// HandleError maps err to a status and failure envelope. Domain errors keep
// their code and details; store sentinels map to their HTTP code; anything
// else is logged and reported as an internal error.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		if domainErr.Code == domainerrors.CodeRateLimited {
			w.Header().Set("Retry-After", retryAfter(domainErr.Details))
		}
		write(w, domainErr.HTTPStatus(), Failure(string(domainErr.Code), domainErr.Message, domainErr.Details), logger)
		return
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		write(w, storeErr.HTTPCode(), Failure(string(CodeForStatus(storeErr.HTTPCode())), storeErr.Message, nil), logger)
		return
	}

	if logger != nil {
		logger.Error("unhandled error", "error", err)
	}
	Error(w, http.StatusInternalServerError, domainerrors.CodeInternal, "internal server error", logger)
}

func write(w http.ResponseWriter, status int, env Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil && logger != nil {
		logger.Error("encode response", "error", err)
	}
}

// CodeForStatus maps an HTTP status to the closest error code.
func CodeForStatus(status int) domainerrors.Code {
	switch status {
	case http.StatusNotFound:
		return domainerrors.CodeNotFound
	case http.StatusConflict:
		return domainerrors.CodeAlreadyExists
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domainerrors.CodeValidation
	case http.StatusUnauthorized:
		return domainerrors.CodeUnauthorized
	case http.StatusForbidden:
		return domainerrors.CodeForbidden
	case http.StatusRequestEntityTooLarge:
		return domainerrors.CodeTooLarge
	case http.StatusTooManyRequests:
		return domainerrors.CodeRateLimited
	}
	return domainerrors.CodeInternal
}

func retryAfter(details any) string {
	if m, ok := details.(map[string]int); ok {
		if s, ok := m["retry_after_seconds"]; ok && s > 0 {
			return strconv.Itoa(s)
		}
	}
	return "60"
}
