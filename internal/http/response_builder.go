// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for JSON responses. Every body
// uses the same envelope: a numeric status, a message, and named payload
// fields next to them.

package http

import (
	"encoding/json"
	"net/http"
)

// ResponseBuilder provides a fluent API for building enveloped JSON
// responses.
type ResponseBuilder struct {
	statusCode int
	message    string
	fields     map[string]any
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		message:    "success",
		fields:     make(map[string]any),
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Message(msg string) *ResponseBuilder {
	b.message = msg
	return b
}

// With adds a payload field. The envelope keys status and message cannot be
// overwritten.
func (b *ResponseBuilder) With(name string, value any) *ResponseBuilder {
	if name == "status" || name == "message" {
		return b
	}
	b.fields[name] = value
	return b
}

// Page adds the paging fields shared by every paged listing.
func (b *ResponseBuilder) Page(totalElements, totalPages int) *ResponseBuilder {
	b.fields["totalElements"] = totalElements
	b.fields["totalPages"] = totalPages
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Body returns the envelope as it will be encoded.
func (b *ResponseBuilder) Body() map[string]any {
	body := make(map[string]any, len(b.fields)+2)
	for k, v := range b.fields {
		body[k] = v
	}
	body["status"] = b.statusCode
	body["message"] = b.message
	return body
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.Body())
}

// ErrorResponse creates a standard error envelope.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).Message(message)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError() *ResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed")
}
