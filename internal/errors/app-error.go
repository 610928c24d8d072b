package app_error

import (
	"encoding/json"
	"net/http"
)

type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e AppError) Error() string {
	return e.Message
}

func (e AppError) JSON(w http.ResponseWriter) error {
	return json.NewEncoder(w).Encode(e)
}

func NewAppError(code int, msg, field string) *AppError {
	return &AppError{
		Code:    code,
		Message: msg,
		Field:   field,
	}
}

// Taxonomy helpers. The code decides whether the error is a fault worth
// logging (5xx) or an expected rejection reported back to the caller.

func Validation(msg string) *AppError {
	return NewAppError(http.StatusBadRequest, msg, "validation")
}

func Forbidden(msg string) *AppError {
	return NewAppError(http.StatusForbidden, msg, "authorization")
}

func NotFound(msg string) *AppError {
	return NewAppError(http.StatusNotFound, msg, "not-found")
}

func Conflict(msg string) *AppError {
	return NewAppError(http.StatusConflict, msg, "conflict")
}

func Protocol(msg string) *AppError {
	return NewAppError(http.StatusUnprocessableEntity, msg, "protocol")
}

func Internal(msg, field string) *AppError {
	return NewAppError(http.StatusInternalServerError, msg, field)
}

func (e *AppError) IsFault() bool {
	return e != nil && e.Code >= http.StatusInternalServerError
}

func (e *AppError) IsNotFound() bool {
	return e != nil && e.Code == http.StatusNotFound
}

func (e *AppError) IsConflict() bool {
	return e != nil && e.Code == http.StatusConflict
}
