package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xenn00/classroom-chat/internal/utils"
	"github.com/xenn00/classroom-chat/internal/utils/types"
)

type authFixture struct {
	key     *rsa.PrivateKey
	rdb     *redis.Client
	handler http.Handler
	seen    *utils.Claims
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	f := &authFixture{key: key, rdb: rdb}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	f.handler = GetDeviceFingerprint(JWTAuth(&key.PublicKey, rdb)(next))
	return f
}

func (f *authFixture) login(t *testing.T, userID, fingerprint string, ttl time.Duration) string {
	t.Helper()

	token, expiresAt, err := utils.IssueAccessToken(userID, "alice", ttl, f.key)
	require.NoError(t, err)
	if ttl > 0 {
		require.NoError(t, utils.SaveSession(context.Background(), f.rdb, &types.LoginSession{
			UserId:      userID,
			Fingerprint: fingerprint,
			ExpireAt:    expiresAt.Unix(),
		}))
	}
	return token
}

func (f *authFixture) do(token, fingerprint string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if fingerprint != "" {
		req.Header.Set("X-Device-Fingerprint", fingerprint)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth_Accepts(t *testing.T) {
	f := newAuthFixture(t)
	token := f.login(t, "user-1", "fp", time.Hour)

	rec := f.do(token, "fp")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, f.seen)
	assert.Equal(t, "user-1", f.seen.Subject)
}

func TestJWTAuth_Rejects(t *testing.T) {
	f := newAuthFixture(t)
	token := f.login(t, "user-1", "fp", time.Hour)
	expired := f.login(t, "user-1", "fp", -time.Minute)

	tests := []struct {
		name        string
		token       string
		fingerprint string
		code        int
		body        string
	}{
		{"missing fingerprint", token, "", http.StatusBadRequest, "Missing device fingerprint"},
		{"missing header", "", "fp", http.StatusUnauthorized, "Missing Authorization header"},
		{"expired", expired, "fp", http.StatusUnauthorized, "Token expired"},
		{"garbage", "not-a-jwt", "fp", http.StatusUnauthorized, "Invalid or expired token"},
		{"other device", token, "fp-2", http.StatusUnauthorized, "Session not found or revoked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.token, tt.fingerprint)
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestJWTAuth_RevokedSession(t *testing.T) {
	f := newAuthFixture(t)
	token := f.login(t, "user-1", "fp", time.Hour)
	require.NoError(t, utils.RevokeSession(context.Background(), f.rdb, "user-1", "fp"))

	rec := f.do(token, "fp")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetDeviceFingerprint_QueryParam(t *testing.T) {
	var got string
	h := GetDeviceFingerprint(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = r.Context().Value(FingerprintKey).(string)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ws?fp=browser-1", nil))
	assert.Equal(t, "browser-1", got)
}

func TestWithRequestId(t *testing.T) {
	var got string
	h := WithRequestId(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = r.Context().Value(RequestIdKey).(string)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, got)
	assert.Equal(t, got, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", got)
}
