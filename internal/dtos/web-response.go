package dtos

import app_error "github.com/xenn00/classroom-chat/internal/errors"

// Response is the envelope of every REST reply.
type Response[T any] struct {
	Message   string         `json:"message"`
	Data      T              `json:"data"`
	RequestID string         `json:"request_id,omitempty"`
	Errors    *ErrorResponse `json:"errors,omitempty"`
}

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func Success[T any](message string, data T, requestID string) Response[T] {
	return Response[T]{Message: message, Data: data, RequestID: requestID}
}

// Failure wraps a rejected or failed request. Data is always null.
func Failure(err *app_error.AppError, requestID string) Response[any] {
	return Response[any]{
		Message:   "request failed",
		RequestID: requestID,
		Errors: &ErrorResponse{
			Code:    err.Code,
			Message: err.Message,
			Field:   err.Field,
		},
	}
}
