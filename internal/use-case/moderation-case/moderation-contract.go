package moderation_service

import (
	"context"

	"github.com/xenn00/classroom-chat/internal/dtos/chat_dto"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
)

type ModerationServiceContract interface {
	Apply(ctx context.Context, connID string, req chat_dto.AdminActionRequest) *app_error.AppError
}
