// Package http serves the budget JSON API.
//
// This file builds the response envelope every endpoint uses:
// {"code", "status", "message", "data", "errors"}.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"anggaran/internal/auth"
	"anggaran/internal/core"
	"anggaran/internal/log"
)

type envelope struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// JSONResponseBuilder is a fluent builder for API responses.
type JSONResponseBuilder struct {
	statusCode int
	message    string
	data       any
	errors     any
	headers    map[string]string
}

func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{statusCode: http.StatusOK, headers: map[string]string{}}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	b.message = msg
	return b
}

func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

// Errors attaches per-field or per-row details.
func (b *JSONResponseBuilder) Errors(v any) *JSONResponseBuilder {
	b.errors = v
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)

	status := "success"
	if b.statusCode >= 400 {
		status = "error"
	}
	_ = json.NewEncoder(w).Encode(envelope{
		Code:    b.statusCode,
		Status:  status,
		Message: b.message,
		Data:    b.data,
		Errors:  b.errors,
	})
}

func OK(data any) *JSONResponseBuilder {
	return NewJSONResponse().Data(data)
}

func Created(data any) *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusCreated).Data(data)
}

func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Message(message)
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message).Header("WWW-Authenticate", `Bearer realm="anggaran"`)
}

// ValidationError lists the failing request fields with their rule.
func ValidationError(err error) *JSONResponseBuilder {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return BadRequestError("Invalid input")
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fe.Tag()
	}
	return BadRequestError("Validation failed").Errors(fields)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrImportFormat):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrImportRow):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// FromError turns a service error into a response. Internal errors are
// logged and hidden from the caller.
func FromError(r *http.Request, err error) *JSONResponseBuilder {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method, log.FieldPath, r.URL.Path, log.FieldError, err)
		return ErrorResponse(code, "internal error")
	}
	b := ErrorResponse(code, err.Error())
	var fe *core.ImportFormatError
	if errors.As(err, &fe) && len(fe.Missing) > 0 {
		b.Errors(map[string]any{"missing": fe.Missing})
	}
	if code == http.StatusUnauthorized {
		b.Header("WWW-Authenticate", `Bearer realm="anggaran"`)
	}
	return b
}
