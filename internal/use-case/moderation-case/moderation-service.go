package moderation_service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xenn00/classroom-chat/internal/dtos/chat_dto"
	"github.com/xenn00/classroom-chat/internal/entity"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	"github.com/xenn00/classroom-chat/internal/use-case/core"
	"github.com/xenn00/classroom-chat/internal/utils"
	"github.com/xenn00/classroom-chat/internal/websocket"
)

const (
	ActionLock           = "lock"
	ActionUnlock         = "unlock"
	ActionEnablePrivate  = "enable_private"
	ActionDisablePrivate = "disable_private"
	ActionMute           = "mute"
	ActionUnmute         = "unmute"
	ActionKick           = "kick"
	ActionExtend         = "extend_duration"
	ActionDelete         = "delete_room"
)

var aliases = map[string]string{
	"remove_user": ActionKick,
	"extend":      ActionExtend,
	"delete":      ActionDelete,
}

const (
	errNotAuthorized  = "not authorized"
	errTargetRequired = "target user required"
	errTargetSelf     = "cannot target yourself"
	errUserNotInRoom  = "user not in room"
	errUnknownAction  = "unknown action"
	errRoomNotFound   = "room not found"
)

type action func(ctx context.Context, sess websocket.Session, req chat_dto.AdminActionRequest) *app_error.AppError

type ModerationService struct {
	*core.Deps
	locks   *utils.KeyMutex
	actions map[string]action
}

func NewModerationService(deps *core.Deps, locks *utils.KeyMutex) ModerationServiceContract {
	if locks == nil {
		locks = utils.NewKeyMutex()
	}
	m := &ModerationService{Deps: deps, locks: locks}
	m.actions = map[string]action{
		ActionLock:           m.setting(func(s *entity.RoomSettings) { s.Locked = true }),
		ActionUnlock:         m.setting(func(s *entity.RoomSettings) { s.Locked = false }),
		ActionEnablePrivate:  m.setting(func(s *entity.RoomSettings) { s.PrivateChatEnabled = true }),
		ActionDisablePrivate: m.setting(func(s *entity.RoomSettings) { s.PrivateChatEnabled = false }),
		ActionMute:           m.mute(true),
		ActionUnmute:         m.mute(false),
		ActionKick:           m.kick,
		ActionExtend:         m.extend,
		ActionDelete:         m.delete,
	}
	return m
}

// Apply re-reads the caller's membership on every call, so a role or room
// change takes effect immediately.
func (m *ModerationService) Apply(ctx context.Context, connID string, req chat_dto.AdminActionRequest) *app_error.AppError {
	sess, err := m.Session(connID)
	if err != nil {
		return err
	}

	name := req.Action
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	fn, ok := m.actions[name]
	if !ok {
		return app_error.Validation(errUnknownAction)
	}

	storeCtx, cancel := m.StoreCtx(ctx)
	membership, err := m.Rooms.FindMembership(storeCtx, sess.RoomID, sess.UserID)
	cancel()
	if err != nil {
		if err.IsNotFound() {
			return app_error.Forbidden(errNotAuthorized)
		}
		return core.Fault("find_membership", err, core.ErrServer)
	}
	if !membership.IsAdmin() {
		return app_error.Forbidden(errNotAuthorized)
	}

	if err := fn(ctx, sess, req); err != nil {
		return err
	}

	log.Info().Str("roomID", sess.RoomID).Str("userID", sess.UserID).Str("action", name).Msg("admin action applied")
	return nil
}

// setting applies change to the room's settings under the room lock and
// pushes the result to the room.
func (m *ModerationService) setting(change func(*entity.RoomSettings)) action {
	return func(ctx context.Context, sess websocket.Session, _ chat_dto.AdminActionRequest) *app_error.AppError {
		storeCtx, cancel := m.StoreCtx(ctx)
		defer cancel()

		unlock := m.locks.Lock("room:" + sess.RoomID)
		defer unlock()

		room, err := m.Rooms.FindRoomByID(storeCtx, sess.RoomID)
		if err != nil {
			return notFoundOrFault("find_room", err)
		}
		settings := room.Settings.Data()
		change(&settings)

		if err := m.Rooms.UpdateSettings(storeCtx, room.ID, settings); err != nil {
			return notFoundOrFault("update_settings", err)
		}

		m.Hub.ToRoom(room.ID, websocket.EventRoomSettings, settings)
		return nil
	}
}

func (m *ModerationService) target(req chat_dto.AdminActionRequest) (string, *app_error.AppError) {
	targetID := m.ResolveUser(req.TargetUserID, req.TargetID)
	if targetID == "" {
		return "", app_error.Validation(errTargetRequired)
	}
	return targetID, nil
}

func (m *ModerationService) mute(muted bool) action {
	return func(ctx context.Context, sess websocket.Session, req chat_dto.AdminActionRequest) *app_error.AppError {
		targetID, err := m.target(req)
		if err != nil {
			return err
		}

		storeCtx, cancel := m.StoreCtx(ctx)
		defer cancel()

		if err := m.Rooms.SetMuted(storeCtx, sess.RoomID, targetID, muted); err != nil {
			if err.IsNotFound() {
				return app_error.NotFound(errUserNotInRoom)
			}
			return core.Fault("set_muted", err, core.ErrServer)
		}

		m.BroadcastMembers(ctx, sess.RoomID)
		return nil
	}
}

// kick deletes the target's membership and evicts every one of their
// connections that is present in the room.
func (m *ModerationService) kick(ctx context.Context, sess websocket.Session, req chat_dto.AdminActionRequest) *app_error.AppError {
	targetID, err := m.target(req)
	if err != nil {
		return err
	}
	if targetID == sess.UserID {
		return app_error.Validation(errTargetSelf)
	}

	storeCtx, cancel := m.StoreCtx(ctx)
	defer cancel()

	deleted, err := m.Rooms.DeleteMembership(storeCtx, sess.RoomID, targetID)
	if err != nil {
		return core.Fault("delete_membership", err, core.ErrServer)
	}
	if !deleted {
		return app_error.NotFound(errUserNotInRoom)
	}

	evicted := m.Hub.EvictUser(sess.RoomID, targetID, websocket.EventKicked, chat_dto.KickedPayload{RoomID: sess.RoomID})
	m.BroadcastMembers(ctx, sess.RoomID)
	for _, connID := range evicted {
		m.Hub.ToRoom(sess.RoomID, websocket.EventMemberLeft, chat_dto.MemberLeftPayload{ID: connID})
	}

	log.Info().Str("roomID", sess.RoomID).Str("targetID", targetID).Int("connections", len(evicted)).Msg("user kicked")
	return nil
}

// extend anchors on the later of now and the current expiry, so an already
// expired room is never extended into the past.
func (m *ModerationService) extend(ctx context.Context, sess websocket.Session, req chat_dto.AdminActionRequest) *app_error.AppError {
	minutes := core.DefaultExtendDuration
	if req.DurationMinutes != nil {
		minutes = *req.DurationMinutes
	}
	minutes = core.Clamp(minutes)

	storeCtx, cancel := m.StoreCtx(ctx)
	defer cancel()

	unlock := m.locks.Lock("room:" + sess.RoomID)
	defer unlock()

	room, err := m.Rooms.FindRoomByID(storeCtx, sess.RoomID)
	if err != nil {
		return notFoundOrFault("find_room", err)
	}

	anchor := m.Clock()
	if room.ExpiresAt.After(anchor) {
		anchor = room.ExpiresAt
	}
	expiresAt := anchor.Add(time.Duration(minutes) * time.Minute)

	settings := room.Settings.Data()
	settings.DurationMinutes += minutes

	if err := m.Rooms.UpdateExpiry(storeCtx, room.ID, expiresAt, settings); err != nil {
		return notFoundOrFault("update_expiry", err)
	}

	m.Hub.ToRoom(room.ID, websocket.EventRoomUpdated, chat_dto.RoomUpdatedPayload{RoomID: room.ID, ExpiresAt: expiresAt})
	return nil
}

func (m *ModerationService) delete(ctx context.Context, sess websocket.Session, _ chat_dto.AdminActionRequest) *app_error.AppError {
	err := m.CloseRoom(ctx, sess.RoomID, chat_dto.CloseReasonDeleted)
	if err != nil && err.IsNotFound() {
		return app_error.NotFound(errRoomNotFound)
	}
	return err
}

func notFoundOrFault(op string, err *app_error.AppError) *app_error.AppError {
	if err.IsNotFound() {
		return app_error.NotFound(errRoomNotFound)
	}
	return core.Fault(op, err, core.ErrServer)
}
