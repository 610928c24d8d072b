package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type requestIdKey string

const RequestIdKey requestIdKey = "requestId"

// WithRequestId tags the request with a caller-supplied or generated id and
// attaches a logger carrying it, retrievable with zerolog.Ctx.
func WithRequestId(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqId := r.Header.Get("X-Request-ID")
		if reqId == "" || len(reqId) > 64 {
			reqId = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", reqId)

		logger := log.With().Str("requestID", reqId).Str("path", r.URL.Path).Logger()
		ctx := context.WithValue(r.Context(), RequestIdKey, reqId)
		ctx = logger.WithContext(ctx)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the id set by WithRequestId, or "unknown".
func RequestID(ctx context.Context) string {
	if reqId, ok := ctx.Value(RequestIdKey).(string); ok {
		return reqId
	}
	return "unknown"
}
