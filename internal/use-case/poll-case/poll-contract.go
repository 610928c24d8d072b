package poll_service

import (
	"context"

	"github.com/xenn00/classroom-chat/internal/dtos/chat_dto"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
)

type PollServiceContract interface {
	CreatePoll(ctx context.Context, connID string, req chat_dto.CreatePollRequest) *app_error.AppError
	Vote(ctx context.Context, connID string, req chat_dto.VotePollRequest) *app_error.AppError
}
