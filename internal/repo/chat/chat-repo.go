package chat_repo

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/xenn00/classroom-chat/internal/entity"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	"github.com/xenn00/classroom-chat/state"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ChatRepo keeps messages and polls in MongoDB. Aggregate fields are changed
// with field-level operators so concurrent updates never overwrite the
// whole document.
type ChatRepo struct {
	AppState *state.AppState
}

func NewChatRepo(appState *state.AppState) ChatRepoContract {
	return &ChatRepo{
		AppState: appState,
	}
}

func (r *ChatRepo) messages() *mongo.Collection {
	return r.AppState.MongoDB.Collection(state.MessagesCollection)
}

func (r *ChatRepo) polls() *mongo.Collection {
	return r.AppState.MongoDB.Collection(state.PollsCollection)
}

func (r *ChatRepo) InsertMessage(ctx context.Context, msg *entity.Message) *app_error.AppError {
	if _, err := r.messages().InsertOne(ctx, msg); err != nil {
		log.Error().Err(err).Str("roomID", msg.RoomID).Msg("failed to create message")
		return app_error.Internal("failed to create message", "mongo")
	}
	return nil
}

func (r *ChatRepo) FindMessageByID(ctx context.Context, messageID string) (*entity.Message, *app_error.AppError) {
	var message entity.Message
	err := r.messages().FindOne(ctx, bson.M{"_id": messageID, "deletedAt": bson.M{"$exists": false}}).Decode(&message)
	if err != nil {
		return nil, notFoundOr(err, "message not found", "failed to fetch message")
	}
	return &message, nil
}

func (r *ChatRepo) ListPublicMessages(ctx context.Context, roomID string, limit int) ([]*entity.Message, *app_error.AppError) {
	filter := bson.M{
		"roomId":     roomID,
		"receiverId": bson.M{"$exists": false},
		"deletedAt":  bson.M{"$exists": false},
	}
	return r.latest(ctx, filter, limit)
}

func (r *ChatRepo) ListPrivateMessages(ctx context.Context, roomID, userA, userB string, limit int) ([]*entity.Message, *app_error.AppError) {
	filter := bson.M{
		"roomId":    roomID,
		"deletedAt": bson.M{"$exists": false},
		"$or": bson.A{
			bson.M{"senderId": userA, "receiverId": userB},
			bson.M{"senderId": userB, "receiverId": userA},
		},
	}
	return r.latest(ctx, filter, limit)
}

func (r *ChatRepo) LatestMessage(ctx context.Context, roomID string) (*entity.Message, *app_error.AppError) {
	messages, err := r.ListPublicMessages(ctx, roomID, 1)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return messages[0], nil
}

// latest fetches newest first and reverses, so callers get ascending order.
func (r *ChatRepo) latest(ctx context.Context, filter bson.M, limit int) ([]*entity.Message, *app_error.AppError) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(limit))

	cur, err := r.messages().Find(ctx, filter, opts)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch messages")
		return nil, app_error.Internal("failed to fetch messages", "mongo")
	}
	defer cur.Close(ctx)

	var messages []*entity.Message
	if err := cur.All(ctx, &messages); err != nil {
		log.Error().Err(err).Msg("failed to decode messages")
		return nil, app_error.Internal("failed to decode messages", "mongo")
	}

	// reverse messages to be in ascending order (oldest to newest)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *ChatRepo) MarkSeen(ctx context.Context, messageID, userID string) ([]string, bool, *app_error.AppError) {
	filter := bson.M{
		"_id":       messageID,
		"deletedAt": bson.M{"$exists": false},
		"seenBy":    bson.M{"$ne": userID},
	}
	update := bson.M{"$addToSet": bson.M{"seenBy": userID}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated entity.Message
	err := r.messages().FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return updated.SeenBy, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		log.Error().Err(err).Str("messageID", messageID).Msg("failed to mark message seen")
		return nil, false, app_error.Internal("failed to mark message seen", "mongo")
	}

	// either already seen or gone
	current, appErr := r.FindMessageByID(ctx, messageID)
	if appErr != nil {
		return nil, false, appErr
	}
	return current.SeenBy, false, nil
}

func (r *ChatRepo) ToggleReaction(ctx context.Context, messageID, emoji, userID string) ([]string, *app_error.AppError) {
	field := "reactions." + emoji
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated entity.Message
	err := r.messages().FindOneAndUpdate(ctx,
		bson.M{"_id": messageID, "deletedAt": bson.M{"$exists": false}, field: userID},
		bson.M{"$pull": bson.M{field: userID}},
		opts,
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		err = r.messages().FindOneAndUpdate(ctx,
			bson.M{"_id": messageID, "deletedAt": bson.M{"$exists": false}},
			bson.M{"$addToSet": bson.M{field: userID}},
			opts,
		).Decode(&updated)
	}
	if err != nil {
		return nil, notFoundOr(err, "message not found", "failed to update reactions")
	}

	reactors := updated.Reactions[emoji]
	if reactors == nil {
		reactors = []string{}
	}
	return reactors, nil
}

func (r *ChatRepo) InsertPoll(ctx context.Context, poll *entity.Poll) *app_error.AppError {
	if _, err := r.polls().InsertOne(ctx, poll); err != nil {
		log.Error().Err(err).Str("roomID", poll.RoomID).Msg("failed to create poll")
		return app_error.Internal("failed to create poll", "mongo")
	}
	return nil
}

func (r *ChatRepo) FindPollByID(ctx context.Context, pollID string) (*entity.Poll, *app_error.AppError) {
	var poll entity.Poll
	if err := r.polls().FindOne(ctx, bson.M{"_id": pollID}).Decode(&poll); err != nil {
		return nil, notFoundOr(err, "poll not found", "failed to fetch poll")
	}
	return &poll, nil
}

func (r *ChatRepo) ListPolls(ctx context.Context, roomID string) ([]*entity.Poll, *app_error.AppError) {
	cur, err := r.polls().Find(ctx, bson.M{"roomId": roomID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		log.Error().Err(err).Str("roomID", roomID).Msg("failed to fetch polls")
		return nil, app_error.Internal("failed to fetch polls", "mongo")
	}
	defer cur.Close(ctx)

	var polls []*entity.Poll
	if err := cur.All(ctx, &polls); err != nil {
		log.Error().Err(err).Str("roomID", roomID).Msg("failed to decode polls")
		return nil, app_error.Internal("failed to decode polls", "mongo")
	}
	return polls, nil
}

func (r *ChatRepo) SetVote(ctx context.Context, pollID, userID string, optionIndex int) (map[string]int, *app_error.AppError) {
	var updated entity.Poll
	err := r.polls().FindOneAndUpdate(ctx,
		bson.M{"_id": pollID},
		bson.M{"$set": bson.M{"votes." + userID: optionIndex}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return nil, notFoundOr(err, "poll not found", "failed to vote")
	}
	return updated.Votes, nil
}

func (r *ChatRepo) PurgeRoom(ctx context.Context, roomID string) *app_error.AppError {
	if _, err := r.messages().DeleteMany(ctx, bson.M{"roomId": roomID}); err != nil {
		log.Error().Err(err).Str("roomID", roomID).Msg("failed to purge messages")
		return app_error.Internal("failed to purge messages", "mongo")
	}
	if _, err := r.polls().DeleteMany(ctx, bson.M{"roomId": roomID}); err != nil {
		log.Error().Err(err).Str("roomID", roomID).Msg("failed to purge polls")
		return app_error.Internal("failed to purge polls", "mongo")
	}
	return nil
}

func notFoundOr(err error, notFoundMsg, faultMsg string) *app_error.AppError {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return app_error.NotFound(notFoundMsg)
	}
	log.Error().Err(err).Msg(faultMsg)
	return app_error.Internal(faultMsg, "mongo")
}
