package user_repo

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/classroom-chat/internal/entity"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	"github.com/xenn00/classroom-chat/state"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepo struct {
	AppState *state.AppState
}

func NewUserRepo(appState *state.AppState) UserRepoContract {
	return &UserRepo{
		AppState: appState,
	}
}

// FindOrCreateByUsername is safe under concurrent logins with the same name:
// the insert ignores the unique conflict and the row is read back.
func (r *UserRepo) FindOrCreateByUsername(ctx context.Context, username string) (*entity.User, *app_error.AppError) {
	db := r.AppState.DB.WithContext(ctx)

	user := entity.User{ID: uuid.New().String(), Username: username}
	if err := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "username"}}, DoNothing: true}).Create(&user).Error; err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to create user")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "failed to create user", "db-create")
	}

	var found entity.User
	if err := db.Where("username = ?", username).First(&found).Error; err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to fetch user")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "failed to fetch user", "db-error")
	}

	return &found, nil
}

func (r *UserRepo) FindUserByID(ctx context.Context, userID string) (*entity.User, *app_error.AppError) {
	var user entity.User

	if err := r.AppState.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NewAppError(http.StatusNotFound, "user not found", "user-id")
		}
		log.Error().Err(err).Str("userID", userID).Msg("failed to fetch user")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "unexpected error occur when fetch user", "db-error")
	}

	return &user, nil
}

func (r *UserRepo) FindUsersByIDs(ctx context.Context, userIDs []string) ([]*entity.User, *app_error.AppError) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var users []*entity.User
	if err := r.AppState.DB.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		log.Error().Err(err).Msg("failed to fetch users")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "failed to fetch users", "db-error")
	}

	return users, nil
}
