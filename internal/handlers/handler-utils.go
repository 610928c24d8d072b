package handlers

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/xenn00/classroom-chat/internal/dtos"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	"github.com/xenn00/classroom-chat/internal/middleware"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

type HandlerFunc func(w http.ResponseWriter, r *http.Request) *app_error.AppError

// WrapHandler turns a returned AppError into the error envelope. Faults are
// logged at error level, rejections at debug.
func WrapHandler(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		logger := zerolog.Ctx(r.Context())
		if err.IsFault() {
			logger.Error().Err(err).Str("field", err.Field).Msg("request failed")
		} else {
			logger.Debug().Err(err).Int("code", err.Code).Msg("request rejected")
		}
		writeJSON(w, err.Code, dtos.Failure(err, RequestID(r)))
	}
}

// WriteResponse writes a 200 envelope carrying data.
func WriteResponse[T any](w http.ResponseWriter, r *http.Request, message string, data T) {
	writeJSON(w, http.StatusOK, dtos.Success(message, data, RequestID(r)))
}

// DecodeBody reads a JSON request body into dst.
func DecodeBody(r *http.Request, dst any) *app_error.AppError {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return app_error.NewAppError(http.StatusBadRequest, "Invalid JSON", "body")
	}
	return nil
}

func RequestID(r *http.Request) string {
	return middleware.RequestID(r.Context())
}
