package chat_service

import (
	"context"

	"github.com/xenn00/classroom-chat/internal/dtos/chat_dto"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
)

type ChatServiceContract interface {
	SendPublicMessage(ctx context.Context, connID string, req chat_dto.SendPublicMessageRequest) *app_error.AppError
	SendPrivateMessage(ctx context.Context, connID string, req chat_dto.SendPrivateMessageRequest) *app_error.AppError
	MarkSeen(ctx context.Context, connID string, req chat_dto.MessageSeenRequest) *app_error.AppError
	React(ctx context.Context, connID string, req chat_dto.ReactMessageRequest) *app_error.AppError

	PublicHistory(ctx context.Context, userID, roomID string) (*chat_dto.MessagesResponse, *app_error.AppError)
	PrivateHistory(ctx context.Context, userID, roomID, otherUserID string) (*chat_dto.MessagesResponse, *app_error.AppError)
}
