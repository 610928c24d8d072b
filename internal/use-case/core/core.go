// Package core holds what every room-scoped coordinator shares: the record
// store contracts, the hub, store deadlines and the member list broadcast.
package core

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xenn00/classroom-chat/internal/dtos/chat_dto"
	"github.com/xenn00/classroom-chat/internal/entity"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	"github.com/xenn00/classroom-chat/internal/metrics"
	chat_repo "github.com/xenn00/classroom-chat/internal/repo/chat"
	room_repo "github.com/xenn00/classroom-chat/internal/repo/room"
	user_repo "github.com/xenn00/classroom-chat/internal/repo/user"
	"github.com/xenn00/classroom-chat/internal/websocket"
)

const (
	MaxTextLength     = 2000
	MaxQuestionLength = 200
	MaxOptionLength   = 80
	MaxOptions        = 10
	MaxRoomNameLength = 80

	DefaultRoomName       = "Classroom Room"
	DefaultDuration       = 30
	DefaultExtendDuration = 15
	MinDuration           = 5
	MaxDuration           = 480

	PublicHistoryLimit  = 50
	PrivateHistoryLimit = 100
)

// Error strings sent back in acks.
const (
	ErrNotInRoom = "not in a room"
	ErrServer    = "server error"
)

type Deps struct {
	Users user_repo.UserRepoContract
	Rooms room_repo.RoomRepoContract
	Chats chat_repo.ChatRepoContract
	Hub   *websocket.Hub

	StoreTimeout time.Duration
	HistoryLimit int
	Now          func() time.Time
}

// Clock returns the current time as the coordinators see it.
func (d *Deps) Clock() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// StoreCtx detaches from the caller's cancellation, so an action that has
// started runs to completion, and bounds it by the store timeout.
func (d *Deps) StoreCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if d.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.StoreTimeout)
}

// Session returns the connection's session, requiring it to be in a room.
func (d *Deps) Session(connID string) (websocket.Session, *app_error.AppError) {
	sess, ok := d.Hub.Registry.Lookup(connID)
	if !ok || !sess.InRoom() {
		return websocket.Session{}, app_error.Protocol(ErrNotInRoom)
	}
	return sess, nil
}

// ResolveUser maps a user id or, failing that, a connection id to a user id.
func (d *Deps) ResolveUser(userID, connID string) string {
	if userID != "" {
		return userID
	}
	if connID == "" {
		return ""
	}
	if sess, ok := d.Hub.Registry.Lookup(connID); ok {
		return sess.UserID
	}
	return ""
}

// MembersOf reads memberships now and joins them with presence.
func (d *Deps) MembersOf(ctx context.Context, roomID string) ([]websocket.MemberView, *app_error.AppError) {
	ctx, cancel := d.StoreCtx(ctx)
	defer cancel()

	memberships, err := d.Rooms.ListMemberships(ctx, roomID)
	if err != nil {
		return nil, Fault("list_memberships", err, ErrServer)
	}
	return d.Hub.Presence.MembersOf(d.Hub.Registry, roomID, memberships), nil
}

// BroadcastMembers pushes members_update to the room. A store failure is
// logged and the update skipped.
func (d *Deps) BroadcastMembers(ctx context.Context, roomID string) []websocket.MemberView {
	members, err := d.MembersOf(ctx, roomID)
	if err != nil {
		log.Error().Str("roomID", roomID).Str("error", err.Message).Msg("failed to build member list")
		return nil
	}
	d.Hub.ToRoom(roomID, websocket.EventMembersUpdate, members)
	return members
}

// CloseRoom purges the room's messages and polls, soft-deletes it and tells
// everyone present why it closed.
func (d *Deps) CloseRoom(ctx context.Context, roomID, reason string) *app_error.AppError {
	storeCtx, cancel := d.StoreCtx(ctx)
	defer cancel()

	if err := d.Chats.PurgeRoom(storeCtx, roomID); err != nil {
		return Fault("purge_room", err, ErrServer)
	}
	if err := d.Rooms.SoftDeleteRoom(storeCtx, roomID); err != nil {
		if err.IsNotFound() {
			return err
		}
		return Fault("delete_room", err, ErrServer)
	}

	d.Hub.CloseRoom(roomID, websocket.EventRoomClosed, chat_dto.RoomClosedPayload{Reason: reason})
	return nil
}

// SenderName is the name shown for a stored message.
func SenderName(msg *entity.Message, names map[string]string) string {
	if msg.Anonymous {
		return websocket.AnonymousName
	}
	if name, ok := names[msg.SenderID]; ok {
		return name
	}
	return "User"
}

// Usernames resolves display names for a set of user ids.
func (d *Deps) Usernames(ctx context.Context, userIDs []string) (map[string]string, *app_error.AppError) {
	ctx, cancel := d.StoreCtx(ctx)
	defer cancel()

	users, err := d.Users.FindUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, Fault("find_users", err, ErrServer)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	return names, nil
}

// Fault passes expected rejections through and replaces store failures with
// the operation's generic ack text.
func Fault(op string, err *app_error.AppError, msg string) *app_error.AppError {
	if err == nil {
		return nil
	}
	if !err.IsFault() {
		return err
	}
	metrics.StoreFailures.WithLabelValues(op).Inc()
	return app_error.Internal(msg, op)
}

// Clamp bounds minutes to [MinDuration, MaxDuration].
func Clamp(minutes int) int {
	return max(MinDuration, min(minutes, MaxDuration))
}
