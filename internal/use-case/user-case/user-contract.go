package user_service

import (
	"context"

	"github.com/xenn00/classroom-chat/internal/dtos/user_dto"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
)

type UserServiceContract interface {
	Login(ctx context.Context, req user_dto.LoginRequest, fingerprint string) (*user_dto.AuthResponse, *app_error.AppError)
	Me(ctx context.Context, userID, fingerprint string) (*user_dto.UserResponse, *app_error.AppError)
	Logout(ctx context.Context, userID, fingerprint string) *app_error.AppError
}
