package user_service

import (
	"context"
	"crypto/rsa"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/classroom-chat/internal/dtos/user_dto"
	"github.com/xenn00/classroom-chat/internal/entity"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	user_repo "github.com/xenn00/classroom-chat/internal/repo/user"
	"github.com/xenn00/classroom-chat/internal/utils"
	"github.com/xenn00/classroom-chat/internal/utils/types"
)

const MaxUsernameLength = 40

type UserService struct {
	UserRepo   user_repo.UserRepoContract
	Redis      *redis.Client
	PrivateKey *rsa.PrivateKey
	TokenTTL   time.Duration
}

func NewUserService(userRepo user_repo.UserRepoContract, rdb *redis.Client, privateKey *rsa.PrivateKey, tokenTTL time.Duration) UserServiceContract {
	return &UserService{
		UserRepo:   userRepo,
		Redis:      rdb,
		PrivateKey: privateKey,
		TokenTTL:   tokenTTL,
	}
}

// Login finds or creates the user by display name, issues an access token
// and records the session of the device fingerprint.
func (u *UserService) Login(ctx context.Context, req user_dto.LoginRequest, fingerprint string) (*user_dto.AuthResponse, *app_error.AppError) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, app_error.Validation("username required")
	}
	if len([]rune(username)) > MaxUsernameLength {
		return nil, app_error.Validation("username too long")
	}

	user, err := u.UserRepo.FindOrCreateByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	token, expiresAt, signErr := utils.IssueAccessToken(user.ID, user.Username, u.TokenTTL, u.PrivateKey)
	if signErr != nil {
		log.Error().Err(signErr).Str("userID", user.ID).Msg("failed to sign access token")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "failed to sign access token", "jwt")
	}

	session := &types.LoginSession{
		UserId:      user.ID,
		Username:    user.Username,
		Fingerprint: fingerprint,
		IssueAt:     time.Now().Unix(),
		ExpireAt:    expiresAt.Unix(),
	}
	if err := utils.SaveSession(ctx, u.Redis, session); err != nil {
		log.Error().Err(err).Str("userID", user.ID).Msg("failed to save login session")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "failed to save session", "redis")
	}

	log.Info().Str("userID", user.ID).Str("username", user.Username).Msg("user logged in")

	return &user_dto.AuthResponse{
		User:        toResponse(user),
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}

// Me returns the user together with the login session of the calling device.
func (u *UserService) Me(ctx context.Context, userID, fingerprint string) (*user_dto.UserResponse, *app_error.AppError) {
	user, err := u.UserRepo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	session, err := utils.GetSession(ctx, u.Redis, userID, fingerprint)
	if err != nil {
		return nil, err
	}

	resp := toResponse(user)
	if session != nil {
		resp.Session = &user_dto.SessionInfo{
			Fingerprint: session.Fingerprint,
			IssuedAt:    time.Unix(session.IssueAt, 0).UTC(),
			ExpiresAt:   time.Unix(session.ExpireAt, 0).UTC(),
		}
	}
	return &resp, nil
}

func (u *UserService) Logout(ctx context.Context, userID, fingerprint string) *app_error.AppError {
	if err := utils.RevokeSession(ctx, u.Redis, userID, fingerprint); err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("failed to revoke session")
		return app_error.NewAppError(http.StatusInternalServerError, "failed to revoke session", "redis")
	}
	return nil
}

func toResponse(user *entity.User) user_dto.UserResponse {
	return user_dto.UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	}
}
