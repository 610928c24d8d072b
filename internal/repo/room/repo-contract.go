package room_repo

import (
	"context"
	"time"

	"github.com/xenn00/classroom-chat/internal/entity"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
)

type RoomRepoContract interface {
	// CreateRoom inserts the room together with the creator's admin
	// membership. A code collision is reported as a 409.
	CreateRoom(ctx context.Context, room *entity.Room, admin *entity.RoomMember) *app_error.AppError
	FindRoomByCode(ctx context.Context, code string) (*entity.Room, *app_error.AppError)
	FindRoomByID(ctx context.Context, roomID string) (*entity.Room, *app_error.AppError)
	FindRoomsByIDs(ctx context.Context, roomIDs []string) ([]*entity.Room, *app_error.AppError)
	UpdateSettings(ctx context.Context, roomID string, settings entity.RoomSettings) *app_error.AppError
	UpdateExpiry(ctx context.Context, roomID string, expiresAt time.Time, settings entity.RoomSettings) *app_error.AppError
	SoftDeleteRoom(ctx context.Context, roomID string) *app_error.AppError
	FindExpiredRooms(ctx context.Context, now time.Time) ([]*entity.Room, *app_error.AppError)

	// EnsureMembership returns the existing membership or creates one with role.
	EnsureMembership(ctx context.Context, roomID, userID, role string) (*entity.RoomMember, *app_error.AppError)
	FindMembership(ctx context.Context, roomID, userID string) (*entity.RoomMember, *app_error.AppError)
	ListMemberships(ctx context.Context, roomID string) ([]*entity.RoomMember, *app_error.AppError)
	ListMembershipsForUser(ctx context.Context, userID string) ([]*entity.RoomMember, *app_error.AppError)
	SetMuted(ctx context.Context, roomID, userID string, muted bool) *app_error.AppError
	DeleteMembership(ctx context.Context, roomID, userID string) (bool, *app_error.AppError)
}
