package room_service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/classroom-chat/internal/dtos/chat_dto"
	"github.com/xenn00/classroom-chat/internal/entity"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	"github.com/xenn00/classroom-chat/internal/use-case/core"
	"github.com/xenn00/classroom-chat/internal/websocket"
	"gorm.io/datatypes"
)

const (
	errRoomCodeRequired = "room code required"
	errRoomNotFound     = "room not found"
	errRoomLocked       = "room is locked"
	errRoomExpired      = "room has expired"
	errJoinFailed       = "failed to join room"
	errCreateFailed     = "failed to create room"
	errNotConnected     = "not authenticated"
)

type RoomService struct {
	*core.Deps
	DefaultDuration int
}

func NewRoomService(deps *core.Deps, defaultDuration int) RoomServiceContract {
	if defaultDuration <= 0 {
		defaultDuration = core.DefaultDuration
	}
	return &RoomService{Deps: deps, DefaultDuration: defaultDuration}
}

func (s *RoomService) CreateRoom(ctx context.Context, connID string, req chat_dto.CreateRoomRequest) (*chat_dto.RoomSnapshot, *app_error.AppError) {
	sess, ok := s.Hub.Registry.Lookup(connID)
	if !ok {
		return nil, app_error.Protocol(errNotConnected)
	}

	name := core.Clip(req.Name, core.MaxRoomNameLength)
	if name == "" {
		name = core.DefaultRoomName
	}
	duration := s.DefaultDuration
	if req.DurationMinutes > 0 {
		duration = core.Clamp(req.DurationMinutes)
	}

	storeCtx, cancel := s.StoreCtx(ctx)
	defer cancel()

	var room *entity.Room
	for attempt := 0; attempt < codeAttempts; attempt++ {
		candidate := &entity.Room{
			ID:        uuid.New().String(),
			Name:      name,
			Code:      GenerateRoomCode(),
			CreatorID: sess.UserID,
			Settings: datatypes.NewJSONType(entity.RoomSettings{
				Locked:             false,
				PrivateChatEnabled: true,
				DurationMinutes:    duration,
			}),
			ExpiresAt: s.Clock().Add(time.Duration(duration) * time.Minute),
		}
		admin := &entity.RoomMember{UserID: sess.UserID, Role: entity.RoleAdmin}

		err := s.Rooms.CreateRoom(storeCtx, candidate, admin)
		if err == nil {
			room = candidate
			break
		}
		if !err.IsConflict() {
			return nil, core.Fault("create_room", err, errCreateFailed)
		}
		log.Warn().Str("code", candidate.Code).Int("attempt", attempt+1).Msg("room code collision, regenerating")
	}
	if room == nil {
		return nil, app_error.Internal(errCreateFailed, "room-code")
	}

	s.enter(ctx, connID, room.ID)
	members := s.BroadcastMembers(ctx, room.ID)

	log.Info().Str("roomID", room.ID).Str("code", room.Code).Str("userID", sess.UserID).Msg("room created")

	return &chat_dto.RoomSnapshot{
		OK:             true,
		UserID:         sess.UserID,
		Username:       sess.Username,
		RoomID:         room.ID,
		RoomCode:       room.Code,
		RoomName:       room.Name,
		ExpiresAt:      room.ExpiresAt,
		Settings:       room.Settings.Data(),
		IsAdmin:        true,
		Members:        nonNilMembers(members),
		PublicMessages: []chat_dto.MessagePayload{},
		Polls:          []chat_dto.PollPayload{},
	}, nil
}

// JoinRoom rejects a locked room before any membership or presence change.
func (s *RoomService) JoinRoom(ctx context.Context, connID string, req chat_dto.JoinRoomRequest) (*chat_dto.RoomSnapshot, *app_error.AppError) {
	sess, ok := s.Hub.Registry.Lookup(connID)
	if !ok {
		return nil, app_error.Protocol(errNotConnected)
	}

	code := strings.ToUpper(strings.TrimSpace(req.RoomCode))
	if code == "" {
		return nil, app_error.Validation(errRoomCodeRequired)
	}

	storeCtx, cancel := s.StoreCtx(ctx)
	defer cancel()

	room, err := s.Rooms.FindRoomByCode(storeCtx, code)
	if err != nil {
		if err.IsNotFound() {
			return nil, app_error.NotFound(errRoomNotFound)
		}
		return nil, core.Fault("find_room", err, errJoinFailed)
	}
	if room.Expired(s.Clock()) {
		return nil, app_error.Forbidden(errRoomExpired)
	}

	settings := room.Settings.Data()
	if settings.Locked {
		return nil, app_error.Forbidden(errRoomLocked)
	}

	membership, err := s.Rooms.EnsureMembership(storeCtx, room.ID, sess.UserID, entity.RoleMember)
	if err != nil {
		return nil, core.Fault("ensure_membership", err, errJoinFailed)
	}

	s.enter(ctx, connID, room.ID)

	messages, polls, err := s.history(storeCtx, room.ID)
	if err != nil {
		s.Hub.LeaveRoom(connID)
		s.announceLeft(ctx, room.ID, connID)
		return nil, core.Fault("room_history", err, errJoinFailed)
	}

	members := s.BroadcastMembers(ctx, room.ID)

	log.Info().Str("roomID", room.ID).Str("userID", sess.UserID).Str("clientID", connID).Msg("room joined")

	return &chat_dto.RoomSnapshot{
		OK:             true,
		UserID:         sess.UserID,
		Username:       sess.Username,
		RoomID:         room.ID,
		RoomCode:       room.Code,
		RoomName:       room.Name,
		ExpiresAt:      room.ExpiresAt,
		Settings:       settings,
		IsAdmin:        membership.IsAdmin(),
		Members:        nonNilMembers(members),
		PublicMessages: messages,
		Polls:          polls,
	}, nil
}

// enter moves the connection into roomID and updates the room it left.
func (s *RoomService) enter(ctx context.Context, connID, roomID string) {
	prev, _ := s.Hub.JoinRoom(connID, roomID, false)
	if prev != "" && prev != roomID {
		s.announceLeft(ctx, prev, connID)
	}
}

func (s *RoomService) history(ctx context.Context, roomID string) ([]chat_dto.MessagePayload, []chat_dto.PollPayload, *app_error.AppError) {
	limit := s.HistoryLimit
	if limit <= 0 {
		limit = core.PublicHistoryLimit
	}

	messages, err := s.Chats.ListPublicMessages(ctx, roomID, limit)
	if err != nil {
		return nil, nil, err
	}
	polls, err := s.Chats.ListPolls(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}

	senders := make([]string, 0, len(messages))
	for _, m := range messages {
		senders = append(senders, m.SenderID)
	}
	names, err := s.Usernames(ctx, senders)
	if err != nil {
		return nil, nil, err
	}

	msgPayloads := make([]chat_dto.MessagePayload, 0, len(messages))
	for _, m := range messages {
		msgPayloads = append(msgPayloads, chat_dto.NewMessagePayload(m, core.SenderName(m, names)))
	}
	pollPayloads := make([]chat_dto.PollPayload, 0, len(polls))
	for _, p := range polls {
		pollPayloads = append(pollPayloads, chat_dto.NewPollPayload(p))
	}
	return msgPayloads, pollPayloads, nil
}

func (s *RoomService) LeaveRoom(ctx context.Context, connID string) *app_error.AppError {
	roomID, ok := s.Hub.LeaveRoom(connID)
	if !ok {
		return app_error.Protocol(core.ErrNotInRoom)
	}
	s.announceLeft(ctx, roomID, connID)
	return nil
}

func (s *RoomService) Disconnected(ctx context.Context, sess websocket.Session) {
	if !sess.InRoom() {
		return
	}
	s.announceLeft(ctx, sess.RoomID, sess.ConnectionID)
}

func (s *RoomService) announceLeft(ctx context.Context, roomID, connID string) {
	s.BroadcastMembers(ctx, roomID)
	s.Hub.ToRoom(roomID, websocket.EventMemberLeft, chat_dto.MemberLeftPayload{ID: connID})
}

func (s *RoomService) ToggleAnonymous(ctx context.Context, connID string, req chat_dto.ToggleAnonymousRequest) *app_error.AppError {
	sess, err := s.Session(connID)
	if err != nil {
		return err
	}
	if sess.Anonymous == req.Anonymous {
		return nil
	}

	s.Hub.Registry.SetAnonymous(connID, req.Anonymous)
	s.BroadcastMembers(ctx, sess.RoomID)
	return nil
}

// Typing is relayed without touching the store. A private target may be a
// connection id or a user id; only connections in the same room receive it.
func (s *RoomService) Typing(ctx context.Context, connID string, req chat_dto.TypingRequest) *app_error.AppError {
	sess, err := s.Session(connID)
	if err != nil {
		return err
	}

	if req.Scope == chat_dto.ScopePrivate && req.TargetID != "" {
		payload := chat_dto.TypingPayload{FromName: sess.DisplayName(), IsTyping: req.IsTyping, Scope: chat_dto.ScopePrivate}

		targets := []string{req.TargetID}
		if _, ok := s.Hub.Registry.Lookup(req.TargetID); !ok {
			targets = s.Hub.Registry.ConnectionsForUser(req.TargetID)
		}
		for _, target := range targets {
			if target == connID {
				continue
			}
			if other, ok := s.Hub.Registry.Lookup(target); ok && other.RoomID == sess.RoomID {
				s.Hub.ToConnection(target, websocket.EventTyping, payload)
			}
		}
		return nil
	}

	payload := chat_dto.TypingPayload{FromName: sess.DisplayName(), IsTyping: req.IsTyping, Scope: chat_dto.ScopePublic}
	s.Hub.ToRoomExcept(sess.RoomID, connID, websocket.EventTyping, payload)
	return nil
}

// ListRooms returns the caller's live rooms, soonest expiry first.
func (s *RoomService) ListRooms(ctx context.Context, userID string) ([]chat_dto.RoomSummary, *app_error.AppError) {
	storeCtx, cancel := s.StoreCtx(ctx)
	defer cancel()

	memberships, err := s.Rooms.ListMembershipsForUser(storeCtx, userID)
	if err != nil {
		return nil, core.Fault("list_memberships", err, core.ErrServer)
	}
	if len(memberships) == 0 {
		return []chat_dto.RoomSummary{}, nil
	}

	byRoom := make(map[string]*entity.RoomMember, len(memberships))
	roomIDs := make([]string, 0, len(memberships))
	for _, m := range memberships {
		byRoom[m.RoomID] = m
		roomIDs = append(roomIDs, m.RoomID)
	}

	rooms, err := s.Rooms.FindRoomsByIDs(storeCtx, roomIDs)
	if err != nil {
		return nil, core.Fault("find_rooms", err, core.ErrServer)
	}

	now := s.Clock()
	summaries := make([]chat_dto.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		if room.Expired(now) {
			continue
		}
		m := byRoom[room.ID]
		summary := chat_dto.RoomSummary{
			RoomID:    room.ID,
			Name:      room.Name,
			Code:      room.Code,
			Role:      m.Role,
			Muted:     m.Muted,
			Settings:  room.Settings.Data(),
			ExpiresAt: room.ExpiresAt,
			Online:    s.Hub.GetRoomStats(room.ID).ActiveConnections,
		}

		last, err := s.Chats.LatestMessage(storeCtx, room.ID)
		if err != nil {
			return nil, core.Fault("latest_message", err, core.ErrServer)
		}
		if last != nil {
			names, err := s.Usernames(ctx, []string{last.SenderID})
			if err != nil {
				return nil, err
			}
			payload := chat_dto.NewMessagePayload(last, core.SenderName(last, names))
			summary.LastMessage = &payload
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func nonNilMembers(members []websocket.MemberView) []websocket.MemberView {
	if members == nil {
		return []websocket.MemberView{}
	}
	return members
}
