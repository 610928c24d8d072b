package user_service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xenn00/classroom-chat/internal/dtos/user_dto"
	memory_repo "github.com/xenn00/classroom-chat/internal/repo/memory"
	"github.com/xenn00/classroom-chat/internal/utils"
)

func newUserService(t *testing.T) (*UserService, *miniredis.Miniredis, *rsa.PrivateKey) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	svc := NewUserService(memory_repo.NewStore(), rdb, key, time.Hour).(*UserService)
	return svc, mr, key
}

func TestLogin_IssuesTokenAndSession(t *testing.T) {
	svc, mr, key := newUserService(t)
	ctx := context.Background()

	resp, err := svc.Login(ctx, user_dto.LoginRequest{Username: "  alice  "}, "fp-laptop")
	require.Nil(t, err)
	assert.Equal(t, "alice", resp.User.Username)
	assert.NotEmpty(t, resp.User.ID)

	claims, verifyErr := utils.ParseAndVerifySign(resp.AccessToken, &key.PublicKey)
	require.NoError(t, verifyErr)
	assert.Equal(t, resp.User.ID, claims.Subject)
	assert.Equal(t, "alice", claims.Username)

	assert.True(t, mr.Exists(utils.SessionKey(resp.User.ID, "fp-laptop")))
}

func TestLogin_SameNameSameUser(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	first, err := svc.Login(ctx, user_dto.LoginRequest{Username: "bob"}, "fp-phone")
	require.Nil(t, err)
	second, err := svc.Login(ctx, user_dto.LoginRequest{Username: "bob"}, "fp-laptop")
	require.Nil(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
}

func TestLogin_RejectsBadNames(t *testing.T) {
	svc, _, _ := newUserService(t)

	_, err := svc.Login(context.Background(), user_dto.LoginRequest{Username: "   "}, "fp")
	require.NotNil(t, err)
	assert.Equal(t, "username required", err.Message)

	_, err = svc.Login(context.Background(), user_dto.LoginRequest{Username: strings.Repeat("x", MaxUsernameLength+1)}, "fp")
	require.NotNil(t, err)
	assert.Equal(t, "username too long", err.Message)
}

func TestMeAndLogout(t *testing.T) {
	svc, mr, _ := newUserService(t)
	ctx := context.Background()

	resp, err := svc.Login(ctx, user_dto.LoginRequest{Username: "carol"}, "fp")
	require.Nil(t, err)

	me, err := svc.Me(ctx, resp.User.ID, "fp")
	require.Nil(t, err)
	assert.Equal(t, "carol", me.Username)
	require.NotNil(t, me.Session)
	assert.Equal(t, "fp", me.Session.Fingerprint)
	assert.Equal(t, resp.ExpiresAt.Unix(), me.Session.ExpiresAt.Unix())

	other, err := svc.Me(ctx, resp.User.ID, "fp-other")
	require.Nil(t, err)
	assert.Nil(t, other.Session)

	_, err = svc.Me(ctx, "missing", "fp")
	require.NotNil(t, err)
	assert.True(t, err.IsNotFound())

	require.Nil(t, svc.Logout(ctx, resp.User.ID, "fp"))
	assert.False(t, mr.Exists(utils.SessionKey(resp.User.ID, "fp")))
}

func TestLogin_RedisDown(t *testing.T) {
	svc, mr, _ := newUserService(t)
	mr.Close()

	_, err := svc.Login(context.Background(), user_dto.LoginRequest{Username: "dave"}, "fp")
	require.NotNil(t, err)
	assert.True(t, err.IsFault())
}
