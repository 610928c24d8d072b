package websocket

import (
	"context"
	"crypto/rsa"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/classroom-chat/internal/middleware"
	"github.com/xenn00/classroom-chat/internal/utils"
)

// JWTWebSocketAuth accepts a connection when its token verifies and the
// login session for the device fingerprint still exists in Redis.
func JWTWebSocketAuth(publicKey *rsa.PublicKey, rdb *redis.Client) AuthenticatorFunc {
	return func(r *http.Request) (Identity, error) {
		fp := middleware.Fingerprint(r.Context())
		if fp == "" {
			return Identity{}, &AuthError{Message: "missing device fingerprint"}
		}

		token := getTokenFromRequest(r)
		if token == "" {
			return Identity{}, &AuthError{Message: "missing token"}
		}

		claims, err := utils.ParseAndVerifySign(token, publicKey)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return Identity{}, &AuthError{Message: "token expired, please login again"}
			}
			return Identity{}, &AuthError{Message: "invalid token"}
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		exists, err := utils.SessionExists(ctx, rdb, claims.Subject, fp)
		if err != nil {
			log.Error().Err(err).Str("userID", claims.Subject).Msg("ws: session lookup failed")
			return Identity{}, &AuthError{Message: "session check failed"}
		}
		if !exists {
			return Identity{}, &AuthError{Message: "session not found or revoked"}
		}

		return Identity{UserID: claims.Subject, Username: claims.Username}, nil
	}
}

func getTokenFromRequest(r *http.Request) string {
	// Option 1: Authorization header
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	// Option 2: Query parameter
	token := r.URL.Query().Get("token")
	if token != "" {
		return token
	}

	// Option 3: Cookie
	cookie, err := r.Cookie("access_token")
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return ""
}
