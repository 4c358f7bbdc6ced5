// Package http serves the REST API and the server-rendered dashboard.
//
// This file implements a small fluent builder for JSON responses and the
// mapping from service errors to HTTP status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"rekrutacje/internal/core"
	applog "rekrutacje/internal/log"
	"rekrutacje/internal/records"
	"rekrutacje/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Attachment marks the response as a file download.
func (b *JSONResponseBuilder) Attachment(filename string) *JSONResponseBuilder {
	return b.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
}

// Payload sets the value encoded as the body.
func (b *JSONResponseBuilder) Payload(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response. A nil payload writes no body.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	body, err := json.Marshal(b.payload)
	if err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(body, '\n'))
}

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Payload(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// errorStatus maps a service error to its status code and error type.
func errorStatus(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, records.ErrNotFound):
		return http.StatusNotFound, applog.ErrorTypeNotFound
	case errors.Is(err, records.ErrDuplicateReference):
		return http.StatusBadRequest, applog.ErrorTypeConflict
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, applog.ErrorTypeValidation
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, applog.ErrorTypeValidation
	case errors.Is(err, services.ErrInvalidRecord), isRecordValidationError(err):
		return http.StatusUnprocessableEntity, applog.ErrorTypeValidation
	default:
		return http.StatusInternalServerError, applog.ErrorTypeInternal
	}
}

func isRecordValidationError(err error) bool {
	for _, target := range []error{
		core.ErrEmptyReferenceID, core.ErrEmptyDepartment, core.ErrEmptyDivision,
		core.ErrEmptyPosition, core.ErrEmptyLocation, core.ErrEmptyHiringManager,
		core.ErrEmptyReason, core.ErrEmptyCollarType, core.ErrMissingOpenedDate,
		core.ErrNegativeCounter,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeError logs err and writes the mapped JSON error. Server errors hide
// the underlying message.
func writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, errType := errorStatus(err)
	logger := applog.FromContext(r.Context())

	msg := err.Error()
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err,
			applog.FieldErrorType, errType,
			applog.FieldOperation, operation)
		msg = "internal server error"
	} else {
		logger.WarnContext(r.Context(), "Request rejected",
			applog.FieldError, err,
			applog.FieldErrorType, errType,
			applog.FieldOperation, operation,
			applog.FieldStatusCode, status)
	}
	ErrorResponse(status, msg).Write(w)
}
