package chat_repo

import (
	"context"

	"github.com/xenn00/classroom-chat/internal/entity"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
)

type ChatRepoContract interface {
	InsertMessage(ctx context.Context, msg *entity.Message) *app_error.AppError
	FindMessageByID(ctx context.Context, messageID string) (*entity.Message, *app_error.AppError)
	// ListPublicMessages returns the latest limit public messages, oldest first.
	ListPublicMessages(ctx context.Context, roomID string, limit int) ([]*entity.Message, *app_error.AppError)
	ListPrivateMessages(ctx context.Context, roomID, userA, userB string, limit int) ([]*entity.Message, *app_error.AppError)
	// LatestMessage returns nil without error when the room has no public message.
	LatestMessage(ctx context.Context, roomID string) (*entity.Message, *app_error.AppError)

	// MarkSeen adds userID to seenBy and reports whether it was added.
	MarkSeen(ctx context.Context, messageID, userID string) ([]string, bool, *app_error.AppError)
	// ToggleReaction flips userID in the emoji's reactor set and returns the set.
	ToggleReaction(ctx context.Context, messageID, emoji, userID string) ([]string, *app_error.AppError)

	InsertPoll(ctx context.Context, poll *entity.Poll) *app_error.AppError
	FindPollByID(ctx context.Context, pollID string) (*entity.Poll, *app_error.AppError)
	ListPolls(ctx context.Context, roomID string) ([]*entity.Poll, *app_error.AppError)
	// SetVote overwrites the user's choice and returns the whole vote map.
	SetVote(ctx context.Context, pollID, userID string, optionIndex int) (map[string]int, *app_error.AppError)

	// PurgeRoom deletes every message and poll of the room.
	PurgeRoom(ctx context.Context, roomID string) *app_error.AppError
}
