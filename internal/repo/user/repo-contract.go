package user_repo

import (
	"context"

	"github.com/xenn00/classroom-chat/internal/entity"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
)

type UserRepoContract interface {
	FindOrCreateByUsername(ctx context.Context, username string) (*entity.User, *app_error.AppError)
	FindUserByID(ctx context.Context, userID string) (*entity.User, *app_error.AppError)
	FindUsersByIDs(ctx context.Context, userIDs []string) ([]*entity.User, *app_error.AppError)
}
