package state

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const ephemeralKeyBits = 2048

// InitSecret loads the RS256 key pair used for access tokens. With no private
// key path configured it generates a pair for this process only, so tokens
// stop verifying after a restart.
func InitSecret(privatePath, publicPath string) (*JwtSecret, error) {
	if privatePath == "" {
		privKey, err := rsa.GenerateKey(rand.Reader, ephemeralKeyBits)
		if err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		log.Warn().Msg("no signing key configured, using an ephemeral key pair")
		return &JwtSecret{Private: privKey, Public: &privKey.PublicKey}, nil
	}

	privKeyBytes, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	if publicPath == "" {
		log.Info().Msg("JWT secret initialized from private key")
		return &JwtSecret{Private: privKey, Public: &privKey.PublicKey}, nil
	}

	pubKeyBytes, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	if !privKey.PublicKey.Equal(pubKey) {
		return nil, fmt.Errorf("public key does not match private key")
	}

	log.Info().Msg("JWT secret initialized successfully")
	return &JwtSecret{Private: privKey, Public: pubKey}, nil
}
