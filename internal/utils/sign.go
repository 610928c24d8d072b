package utils

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// IssueAccessToken signs an RS256 token for the user valid for ttl.
func IssueAccessToken(userId, username string, ttl time.Duration, privateKey *rsa.PrivateKey) (string, time.Time, error) {
	issueAt := time.Now()
	expireAt := issueAt.Add(ttl)

	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userId,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(issueAt),
			ExpiresAt: jwt.NewNumericDate(expireAt),
		},
	}

	token, err := GenerateSign(claims, privateKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expireAt, nil
}

func GenerateSign(claims *Claims, privateKey *rsa.PrivateKey) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(privateKey)
}

// ParseAndVerifySign returns jwt.ErrTokenExpired (wrapped) for expired tokens.
func ParseAndVerifySign(token string, pubKey *rsa.PublicKey) (*Claims, error) {
	parsedToken, err := jwt.ParseWithClaims(token, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return pubKey, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := parsedToken.Claims.(*Claims)
	if !ok || !parsedToken.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
