package chat_service

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/xenn00/classroom-chat/internal/dtos/chat_dto"
	"github.com/xenn00/classroom-chat/internal/entity"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	"github.com/xenn00/classroom-chat/internal/use-case/core"
	"github.com/xenn00/classroom-chat/internal/utils"
	"github.com/xenn00/classroom-chat/internal/websocket"
)

const (
	errEmptyMessage   = "empty message"
	errMuted          = "muted"
	errPrivateOff     = "private chat disabled"
	errBadRecipient   = "invalid recipient"
	errUserNotInRoom  = "user not in room"
	errSendFailed     = "send failed"
	errNotParticipant = "not a participant"
	errWrongRoom      = "message not in this room"
)

// ChatService sends messages and applies seen and reaction updates. Updates
// to the same message are serialized in process on top of the store's
// field-level writes.
type ChatService struct {
	*core.Deps
	locks *utils.KeyMutex
}

func NewChatService(deps *core.Deps, locks *utils.KeyMutex) ChatServiceContract {
	if locks == nil {
		locks = utils.NewKeyMutex()
	}
	return &ChatService{Deps: deps, locks: locks}
}

func (c *ChatService) SendPublicMessage(ctx context.Context, connID string, req chat_dto.SendPublicMessageRequest) *app_error.AppError {
	sess, err := c.Session(connID)
	if err != nil {
		return err
	}

	text := core.Clip(req.Text, core.MaxTextLength)
	if text == "" {
		return app_error.Validation(errEmptyMessage)
	}

	storeCtx, cancel := c.StoreCtx(ctx)
	defer cancel()

	if err := c.requireUnmuted(storeCtx, sess); err != nil {
		return err
	}

	msg := &entity.Message{
		ID:               uuid.New().String(),
		RoomID:           sess.RoomID,
		SenderID:         sess.UserID,
		Text:             text,
		Anonymous:        sess.Anonymous,
		MentionedUserIDs: core.Mentions(text, c.presentUsernames(sess.RoomID)),
		SeenBy:           []string{sess.UserID},
		Reactions:        map[string][]string{},
		CreatedAt:        c.Clock(),
	}
	if err := c.Chats.InsertMessage(storeCtx, msg); err != nil {
		return core.Fault("insert_message", err, errSendFailed)
	}

	c.Hub.ToRoom(sess.RoomID, websocket.EventPublicMessage, chat_dto.NewMessagePayload(msg, sess.DisplayName()))
	return nil
}

// SendPrivateMessage echoes to the sending connection and delivers to every
// live connection of the recipient.
func (c *ChatService) SendPrivateMessage(ctx context.Context, connID string, req chat_dto.SendPrivateMessageRequest) *app_error.AppError {
	sess, err := c.Session(connID)
	if err != nil {
		return err
	}

	text := core.Clip(req.Text, core.MaxTextLength)
	if text == "" {
		return app_error.Validation(errEmptyMessage)
	}

	storeCtx, cancel := c.StoreCtx(ctx)
	defer cancel()

	room, err := c.Rooms.FindRoomByID(storeCtx, sess.RoomID)
	if err != nil {
		return core.Fault("find_room", err, errSendFailed)
	}
	if !room.Settings.Data().PrivateChatEnabled {
		return app_error.Forbidden(errPrivateOff)
	}

	if err := c.requireUnmuted(storeCtx, sess); err != nil {
		return err
	}

	receiverID := c.ResolveUser(req.ReceiverUserID, req.ToID)
	if receiverID == "" || receiverID == sess.UserID {
		return app_error.Validation(errBadRecipient)
	}
	if _, err := c.Rooms.FindMembership(storeCtx, sess.RoomID, receiverID); err != nil {
		if err.IsNotFound() {
			return app_error.Forbidden(errUserNotInRoom)
		}
		return core.Fault("find_membership", err, errSendFailed)
	}

	msg := &entity.Message{
		ID:               uuid.New().String(),
		RoomID:           sess.RoomID,
		SenderID:         sess.UserID,
		ReceiverID:       receiverID,
		Text:             text,
		Anonymous:        sess.Anonymous,
		MentionedUserIDs: []string{},
		SeenBy:           []string{sess.UserID},
		Reactions:        map[string][]string{},
		CreatedAt:        c.Clock(),
	}
	if err := c.Chats.InsertMessage(storeCtx, msg); err != nil {
		return core.Fault("insert_message", err, errSendFailed)
	}

	payload := chat_dto.NewMessagePayload(msg, sess.DisplayName())
	c.Hub.ToConnection(connID, websocket.EventPrivateMessage, payload)
	c.Hub.ToUser(receiverID, websocket.EventPrivateMessage, payload, connID)
	return nil
}

func (c *ChatService) requireUnmuted(ctx context.Context, sess websocket.Session) *app_error.AppError {
	membership, err := c.Rooms.FindMembership(ctx, sess.RoomID, sess.UserID)
	if err != nil {
		if err.IsNotFound() {
			return app_error.Forbidden(errUserNotInRoom)
		}
		return core.Fault("find_membership", err, errSendFailed)
	}
	if membership.Muted {
		return app_error.Forbidden(errMuted)
	}
	return nil
}

func (c *ChatService) presentUsernames(roomID string) map[string]string {
	names := make(map[string]string)
	for _, connID := range c.Hub.Presence.Connections(roomID) {
		if s, ok := c.Hub.Registry.Lookup(connID); ok {
			names[s.UserID] = s.Username
		}
	}
	return names
}

// MarkSeen is a no-op when the caller already saw the message. For a public
// message the seen state is shared by the whole room.
func (c *ChatService) MarkSeen(ctx context.Context, connID string, req chat_dto.MessageSeenRequest) *app_error.AppError {
	sess, err := c.Session(connID)
	if err != nil {
		return err
	}

	storeCtx, cancel := c.StoreCtx(ctx)
	defer cancel()

	msg, err := c.visibleMessage(storeCtx, sess, req.MessageID)
	if err != nil {
		return err
	}
	if slices.Contains(msg.SeenBy, sess.UserID) {
		return nil
	}

	unlock := c.locks.Lock("message:" + msg.ID)
	defer unlock()

	seenBy, changed, err := c.Chats.MarkSeen(storeCtx, msg.ID, sess.UserID)
	if err != nil {
		return core.Fault("mark_seen", err, core.ErrServer)
	}
	if !changed {
		return nil
	}

	c.route(sess.RoomID, msg, websocket.EventMessageSeenUpdate, chat_dto.SeenUpdatePayload{
		MessageID: msg.ID,
		Type:      messageType(msg),
		SeenBy:    seenBy,
	})
	return nil
}

// React toggles the caller in the emoji's reactor set and broadcasts that set.
func (c *ChatService) React(ctx context.Context, connID string, req chat_dto.ReactMessageRequest) *app_error.AppError {
	if !slices.Contains(chat_dto.ReactionEmojis, req.Emoji) {
		return app_error.Validation("unsupported emoji")
	}

	sess, err := c.Session(connID)
	if err != nil {
		return err
	}

	storeCtx, cancel := c.StoreCtx(ctx)
	defer cancel()

	msg, err := c.visibleMessage(storeCtx, sess, req.MessageID)
	if err != nil {
		return err
	}

	unlock := c.locks.Lock("message:" + msg.ID)
	defer unlock()

	reactors, err := c.Chats.ToggleReaction(storeCtx, msg.ID, req.Emoji, sess.UserID)
	if err != nil {
		return core.Fault("toggle_reaction", err, core.ErrServer)
	}

	c.route(sess.RoomID, msg, websocket.EventReactionUpdate, chat_dto.ReactionUpdatePayload{
		MessageID: msg.ID,
		Type:      messageType(msg),
		Emoji:     req.Emoji,
		Reactors:  reactors,
	})
	return nil
}

// visibleMessage loads a message the session may act on: it must belong to
// the session's room and, when private, involve the caller.
func (c *ChatService) visibleMessage(ctx context.Context, sess websocket.Session, messageID string) (*entity.Message, *app_error.AppError) {
	msg, err := c.Chats.FindMessageByID(ctx, messageID)
	if err != nil {
		return nil, core.Fault("find_message", err, core.ErrServer)
	}
	if msg.RoomID != sess.RoomID {
		return nil, app_error.Forbidden(errWrongRoom)
	}
	if msg.IsPrivate() && !msg.Participant(sess.UserID) {
		return nil, app_error.Forbidden(errNotParticipant)
	}
	return msg, nil
}

// route sends a public message update to the room and a private one to every
// connection of both participants.
func (c *ChatService) route(roomID string, msg *entity.Message, event string, payload any) {
	if !msg.IsPrivate() {
		c.Hub.ToRoom(roomID, event, payload)
		return
	}
	c.Hub.ToUser(msg.SenderID, event, payload)
	c.Hub.ToUser(msg.ReceiverID, event, payload)
}

func messageType(msg *entity.Message) string {
	if msg.IsPrivate() {
		return chat_dto.ScopePrivate
	}
	return chat_dto.ScopePublic
}

func (c *ChatService) PublicHistory(ctx context.Context, userID, roomID string) (*chat_dto.MessagesResponse, *app_error.AppError) {
	storeCtx, cancel := c.StoreCtx(ctx)
	defer cancel()

	if err := c.requireMember(storeCtx, roomID, userID); err != nil {
		return nil, err
	}

	limit := c.HistoryLimit
	if limit <= 0 {
		limit = core.PublicHistoryLimit
	}
	messages, err := c.Chats.ListPublicMessages(storeCtx, roomID, limit)
	if err != nil {
		return nil, core.Fault("list_messages", err, core.ErrServer)
	}
	return c.toResponse(ctx, roomID, messages)
}

func (c *ChatService) PrivateHistory(ctx context.Context, userID, roomID, otherUserID string) (*chat_dto.MessagesResponse, *app_error.AppError) {
	storeCtx, cancel := c.StoreCtx(ctx)
	defer cancel()

	if err := c.requireMember(storeCtx, roomID, userID); err != nil {
		return nil, err
	}

	messages, err := c.Chats.ListPrivateMessages(storeCtx, roomID, userID, otherUserID, core.PrivateHistoryLimit)
	if err != nil {
		return nil, core.Fault("list_messages", err, core.ErrServer)
	}
	return c.toResponse(ctx, roomID, messages)
}

func (c *ChatService) requireMember(ctx context.Context, roomID, userID string) *app_error.AppError {
	if _, err := c.Rooms.FindRoomByID(ctx, roomID); err != nil {
		return core.Fault("find_room", err, core.ErrServer)
	}
	if _, err := c.Rooms.FindMembership(ctx, roomID, userID); err != nil {
		if err.IsNotFound() {
			return app_error.Forbidden(errUserNotInRoom)
		}
		return core.Fault("find_membership", err, core.ErrServer)
	}
	return nil
}

func (c *ChatService) toResponse(ctx context.Context, roomID string, messages []*entity.Message) (*chat_dto.MessagesResponse, *app_error.AppError) {
	senders := make([]string, 0, len(messages))
	for _, m := range messages {
		senders = append(senders, m.SenderID)
	}
	names, err := c.Usernames(ctx, senders)
	if err != nil {
		return nil, err
	}

	payloads := make([]chat_dto.MessagePayload, 0, len(messages))
	for _, m := range messages {
		payloads = append(payloads, chat_dto.NewMessagePayload(m, core.SenderName(m, names)))
	}
	return &chat_dto.MessagesResponse{RoomID: roomID, Messages: payloads}, nil
}
