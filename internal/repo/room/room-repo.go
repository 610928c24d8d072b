package room_repo

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xenn00/classroom-chat/internal/entity"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	"github.com/xenn00/classroom-chat/state"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoomRepo struct {
	AppState *state.AppState
}

func NewRoomRepo(appState *state.AppState) RoomRepoContract {
	return &RoomRepo{
		AppState: appState,
	}
}

func (r *RoomRepo) CreateRoom(ctx context.Context, room *entity.Room, admin *entity.RoomMember) *app_error.AppError {
	err := r.AppState.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		admin.RoomID = room.ID
		return tx.Create(admin).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return app_error.Conflict("room code already in use")
		}
		log.Error().Err(err).Str("code", room.Code).Msg("failed to create room")
		return app_error.Internal("failed to create room", "db-create")
	}
	return nil
}

func (r *RoomRepo) FindRoomByCode(ctx context.Context, code string) (*entity.Room, *app_error.AppError) {
	var room entity.Room
	if err := r.AppState.DB.WithContext(ctx).Where("code = ?", code).First(&room).Error; err != nil {
		return nil, notFoundOr(err, "room not found", "failed to fetch room")
	}
	return &room, nil
}

func (r *RoomRepo) FindRoomByID(ctx context.Context, roomID string) (*entity.Room, *app_error.AppError) {
	var room entity.Room
	if err := r.AppState.DB.WithContext(ctx).Where("id = ?", roomID).First(&room).Error; err != nil {
		return nil, notFoundOr(err, "room not found", "failed to fetch room")
	}
	return &room, nil
}

func (r *RoomRepo) FindRoomsByIDs(ctx context.Context, roomIDs []string) ([]*entity.Room, *app_error.AppError) {
	if len(roomIDs) == 0 {
		return nil, nil
	}

	var rooms []*entity.Room
	if err := r.AppState.DB.WithContext(ctx).Where("id IN ?", roomIDs).Order("expires_at").Find(&rooms).Error; err != nil {
		log.Error().Err(err).Msg("failed to fetch rooms")
		return nil, app_error.Internal("failed to fetch rooms", "db-error")
	}
	return rooms, nil
}

func (r *RoomRepo) UpdateSettings(ctx context.Context, roomID string, settings entity.RoomSettings) *app_error.AppError {
	res := r.AppState.DB.WithContext(ctx).Model(&entity.Room{}).Where("id = ?", roomID).
		Update("settings", datatypes.NewJSONType(settings))
	return rowsOrNotFound(res, roomID, "room not found", "failed to update room settings")
}

func (r *RoomRepo) UpdateExpiry(ctx context.Context, roomID string, expiresAt time.Time, settings entity.RoomSettings) *app_error.AppError {
	res := r.AppState.DB.WithContext(ctx).Model(&entity.Room{}).Where("id = ?", roomID).
		Updates(map[string]any{
			"expires_at": expiresAt,
			"settings":   datatypes.NewJSONType(settings),
		})
	return rowsOrNotFound(res, roomID, "room not found", "failed to extend room")
}

// SoftDeleteRoom sets deleted_at. Memberships are removed with the room.
func (r *RoomRepo) SoftDeleteRoom(ctx context.Context, roomID string) *app_error.AppError {
	err := r.AppState.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", roomID).Delete(&entity.Room{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("room_id = ?", roomID).Delete(&entity.RoomMember{}).Error
	})
	if err != nil {
		return notFoundOr(err, "room not found", "failed to delete room")
	}
	return nil
}

func (r *RoomRepo) FindExpiredRooms(ctx context.Context, now time.Time) ([]*entity.Room, *app_error.AppError) {
	var rooms []*entity.Room
	if err := r.AppState.DB.WithContext(ctx).Where("expires_at <= ?", now).Order("expires_at").Find(&rooms).Error; err != nil {
		log.Error().Err(err).Msg("failed to fetch expired rooms")
		return nil, app_error.Internal("failed to fetch expired rooms", "db-error")
	}
	return rooms, nil
}

// EnsureMembership is safe when two connections of the same user join at
// once: the insert ignores the unique pair conflict and the row is read back.
func (r *RoomRepo) EnsureMembership(ctx context.Context, roomID, userID, role string) (*entity.RoomMember, *app_error.AppError) {
	member := entity.RoomMember{RoomID: roomID, UserID: userID, Role: role}

	res := r.AppState.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "room_id"}, {Name: "user_id"}}, DoNothing: true}).
		Create(&member)
	if res.Error != nil {
		log.Error().Err(res.Error).Str("roomID", roomID).Str("userID", userID).Msg("failed to create membership")
		return nil, app_error.Internal("failed to join room", "db-create")
	}
	if res.RowsAffected == 1 {
		return &member, nil
	}
	return r.FindMembership(ctx, roomID, userID)
}

func (r *RoomRepo) FindMembership(ctx context.Context, roomID, userID string) (*entity.RoomMember, *app_error.AppError) {
	var member entity.RoomMember
	if err := r.AppState.DB.WithContext(ctx).Where("room_id = ? AND user_id = ?", roomID, userID).First(&member).Error; err != nil {
		return nil, notFoundOr(err, "user not in room", "failed to fetch membership")
	}
	return &member, nil
}

func (r *RoomRepo) ListMemberships(ctx context.Context, roomID string) ([]*entity.RoomMember, *app_error.AppError) {
	var members []*entity.RoomMember
	if err := r.AppState.DB.WithContext(ctx).Where("room_id = ?", roomID).Order("joined_at").Find(&members).Error; err != nil {
		log.Error().Err(err).Str("roomID", roomID).Msg("failed to fetch room members")
		return nil, app_error.Internal("failed to fetch room members", "db-error")
	}
	return members, nil
}

func (r *RoomRepo) ListMembershipsForUser(ctx context.Context, userID string) ([]*entity.RoomMember, *app_error.AppError) {
	var members []*entity.RoomMember
	if err := r.AppState.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&members).Error; err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("failed to fetch user memberships")
		return nil, app_error.Internal("failed to fetch memberships", "db-error")
	}
	return members, nil
}

func (r *RoomRepo) SetMuted(ctx context.Context, roomID, userID string, muted bool) *app_error.AppError {
	res := r.AppState.DB.WithContext(ctx).Model(&entity.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("muted", muted)
	return rowsOrNotFound(res, roomID, "user not in room", "failed to update membership")
}

func (r *RoomRepo) DeleteMembership(ctx context.Context, roomID, userID string) (bool, *app_error.AppError) {
	res := r.AppState.DB.WithContext(ctx).Where("room_id = ? AND user_id = ?", roomID, userID).Delete(&entity.RoomMember{})
	if res.Error != nil {
		log.Error().Err(res.Error).Str("roomID", roomID).Str("userID", userID).Msg("failed to delete membership")
		return false, app_error.Internal("failed to remove member", "db-delete")
	}
	return res.RowsAffected > 0, nil
}

func notFoundOr(err error, notFoundMsg, faultMsg string) *app_error.AppError {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return app_error.NotFound(notFoundMsg)
	}
	log.Error().Err(err).Msg(faultMsg)
	return app_error.Internal(faultMsg, "db-error")
}

func rowsOrNotFound(res *gorm.DB, roomID, notFoundMsg, faultMsg string) *app_error.AppError {
	if res.Error != nil {
		log.Error().Err(res.Error).Str("roomID", roomID).Msg(faultMsg)
		return app_error.Internal(faultMsg, "db-update")
	}
	if res.RowsAffected == 0 {
		return app_error.NotFound(notFoundMsg)
	}
	return nil
}
