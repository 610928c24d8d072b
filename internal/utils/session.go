package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	"github.com/xenn00/classroom-chat/internal/utils/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SessionKey is session:<userID>:<fingerprint>. One user holds a session per
// device.
func SessionKey(userID, fingerprint string) string {
	return fmt.Sprintf("session:%s:%s", userID, fingerprint)
}

// SaveSession stores the session until the access token it backs expires.
func SaveSession(ctx context.Context, rdb *redis.Client, session *types.LoginSession) error {
	ttl := time.Until(time.Unix(session.ExpireAt, 0))
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	bytes, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return rdb.Set(ctx, SessionKey(session.UserId, session.Fingerprint), bytes, ttl).Err()
}

// GetSession returns nil without an error when no session is stored.
func GetSession(ctx context.Context, rdb *redis.Client, userID, fingerprint string) (*types.LoginSession, *app_error.AppError) {
	val, err := rdb.Get(ctx, SessionKey(userID, fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, app_error.Internal("failed to read session", "redis")
	}

	var session types.LoginSession
	if err := json.Unmarshal(val, &session); err != nil {
		return nil, app_error.Internal("failed to decode session", "json")
	}
	return &session, nil
}

func SessionExists(ctx context.Context, rdb *redis.Client, userID, fingerprint string) (bool, error) {
	n, err := rdb.Exists(ctx, SessionKey(userID, fingerprint)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func RevokeSession(ctx context.Context, rdb *redis.Client, userID, fingerprint string) error {
	return rdb.Del(ctx, SessionKey(userID, fingerprint)).Err()
}
