package middleware

import (
	"context"
	"crypto/rsa"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	"github.com/xenn00/classroom-chat/internal/utils"
)

type claimsKey string

const UserClaimsKey claimsKey = "userClaims"

// JWTAuth verifies the bearer token and, when rdb is set, that the login
// session of the device fingerprint has not been revoked. The claims are
// stored in the request context under UserClaimsKey.
func JWTAuth(publicKey *rsa.PublicKey, rdb *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAppError(w, app_error.NewAppError(http.StatusUnauthorized, "Missing Authorization header", "auth"))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				writeAppError(w, app_error.NewAppError(http.StatusUnauthorized, "Invalid Authorization header format", "auth"))
				return
			}

			claims, err := utils.ParseAndVerifySign(parts[1], publicKey)
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					writeAppError(w, app_error.NewAppError(http.StatusUnauthorized, "Token expired", "auth"))
					return
				}
				log.Error().Err(err).Msg("jwt verify failed")
				writeAppError(w, app_error.NewAppError(http.StatusUnauthorized, "Invalid or expired token", "auth"))
				return
			}

			if rdb != nil {
				exists, err := utils.SessionExists(r.Context(), rdb, claims.Subject, Fingerprint(r.Context()))
				if err != nil {
					log.Error().Err(err).Str("userID", claims.Subject).Msg("session lookup failed")
					writeAppError(w, app_error.NewAppError(http.StatusInternalServerError, "Failed to verify session", "redis"))
					return
				}
				if !exists {
					writeAppError(w, app_error.NewAppError(http.StatusUnauthorized, "Session not found or revoked", "auth"))
					return
				}
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims stored by JWTAuth.
func ClaimsFromContext(ctx context.Context) (*utils.Claims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*utils.Claims)
	return claims, ok && claims != nil
}

func writeAppError(w http.ResponseWriter, appErr *app_error.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Code)
	_ = appErr.JSON(w)
}
