// Package httpkit provides shared HTTP infrastructure: response envelopes,
// middleware, and identity extraction. This is part of the platform layer.
package httpkit

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"crm_assistant_backend/platform/apperr"
)

// Response is the standard API response envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError is the error payload inside a Response.
type APIError struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// OK writes a 200 response with the given data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// Created writes a 201 response with the given data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// NoContent writes a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Fail writes an error response with the given status and message.
func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Success: false, Error: &APIError{Message: message}})
}

// Error writes an error response carrying extra details, typically a
// validation failure description.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, Response{Success: false, Error: &APIError{Message: message, Details: details}})
}

// HandleError maps a domain error to an HTTP response and reports whether an
// error was written. Typed apperr errors carry their own status; anything
// else becomes a 500 with a generic message.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus(), Response{
			Success: false,
			Error:   &APIError{Message: appErr.Message, Details: appErr.Details},
		})
		return true
	}

	c.JSON(http.StatusInternalServerError, Response{
		Success: false,
		Error:   &APIError{Message: "internal server error"},
	})
	return true
}
