package room_service

import (
	"context"

	"github.com/xenn00/classroom-chat/internal/dtos/chat_dto"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	"github.com/xenn00/classroom-chat/internal/websocket"
)

type RoomServiceContract interface {
	CreateRoom(ctx context.Context, connID string, req chat_dto.CreateRoomRequest) (*chat_dto.RoomSnapshot, *app_error.AppError)
	JoinRoom(ctx context.Context, connID string, req chat_dto.JoinRoomRequest) (*chat_dto.RoomSnapshot, *app_error.AppError)
	LeaveRoom(ctx context.Context, connID string) *app_error.AppError
	Disconnected(ctx context.Context, sess websocket.Session)
	ToggleAnonymous(ctx context.Context, connID string, req chat_dto.ToggleAnonymousRequest) *app_error.AppError
	Typing(ctx context.Context, connID string, req chat_dto.TypingRequest) *app_error.AppError
	ListRooms(ctx context.Context, userID string) ([]chat_dto.RoomSummary, *app_error.AppError)
}
