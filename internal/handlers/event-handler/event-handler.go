package event_handler

import (
	"context"
	"runtime/debug"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/classroom-chat/internal/dtos/chat_dto"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	"github.com/xenn00/classroom-chat/internal/metrics"
	chat_service "github.com/xenn00/classroom-chat/internal/use-case/chat-case"
	"github.com/xenn00/classroom-chat/internal/use-case/core"
	moderation_service "github.com/xenn00/classroom-chat/internal/use-case/moderation-case"
	poll_service "github.com/xenn00/classroom-chat/internal/use-case/poll-case"
	room_service "github.com/xenn00/classroom-chat/internal/use-case/room-case"
	"github.com/xenn00/classroom-chat/internal/websocket"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	errInvalidPayload = "invalid payload"
	errUnknownEvent   = "unknown event"
)

// EventHandler routes websocket events to the coordinators. It implements
// websocket.Dispatcher.
type EventHandler struct {
	Rooms      room_service.RoomServiceContract
	Chats      chat_service.ChatServiceContract
	Polls      poll_service.PollServiceContract
	Moderation moderation_service.ModerationServiceContract
	Validate   *validator.Validate
}

func NewEventHandler(
	rooms room_service.RoomServiceContract,
	chats chat_service.ChatServiceContract,
	polls poll_service.PollServiceContract,
	moderation moderation_service.ModerationServiceContract,
) *EventHandler {
	validate := validator.New()
	validate.RegisterValidation("emoji", chat_dto.EmojiValidator)
	return &EventHandler{
		Rooms:      rooms,
		Chats:      chats,
		Polls:      polls,
		Moderation: moderation,
		Validate:   validate,
	}
}

var _ websocket.Dispatcher = (*EventHandler)(nil)

// Dispatch never lets a panic escape into the connection's read loop.
func (h *EventHandler) Dispatch(ctx context.Context, c *websocket.Client, msg *websocket.IncomingMessage) (ack any) {
	label := msg.Type
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("event", msg.Type).Str("clientID", c.ID).Bytes("stack", debug.Stack()).Msg("ws: event handler panicked")
			metrics.EventsHandled.WithLabelValues(label, metrics.OutcomeFault).Inc()
			ack = websocket.Reject(core.ErrServer)
		}
	}()

	result, err := h.route(ctx, c.ID, msg)
	if err != nil && err.Message == errUnknownEvent {
		label = "unknown"
	}

	switch {
	case err.IsFault():
		metrics.EventsHandled.WithLabelValues(label, metrics.OutcomeFault).Inc()
		log.Error().Str("event", msg.Type).Str("clientID", c.ID).Str("error", err.Message).Str("op", err.Field).Msg("ws: event failed")
	case err != nil:
		metrics.EventsHandled.WithLabelValues(label, metrics.OutcomeRejected).Inc()
		log.Debug().Str("event", msg.Type).Str("clientID", c.ID).Str("error", err.Message).Msg("ws: event rejected")
	default:
		metrics.EventsHandled.WithLabelValues(label, metrics.OutcomeOK).Inc()
	}

	if !expectsAck(msg.Type) {
		return nil
	}
	if err != nil {
		return websocket.Reject(err.Message)
	}
	return result
}

func (h *EventHandler) Disconnected(ctx context.Context, sess websocket.Session) {
	h.Rooms.Disconnected(ctx, sess)
}

// expectsAck reports whether the event is request/response. The rest are
// fire-and-forget.
func expectsAck(event string) bool {
	switch event {
	case chat_dto.EventToggleAnonymous, chat_dto.EventTyping, chat_dto.EventMessageSeen, chat_dto.EventReactMessage:
		return false
	}
	return true
}

func (h *EventHandler) route(ctx context.Context, connID string, msg *websocket.IncomingMessage) (any, *app_error.AppError) {
	switch msg.Type {
	case chat_dto.EventCreateRoom:
		req, err := decode[chat_dto.CreateRoomRequest](h.Validate, msg.Data, errInvalidPayload)
		if err != nil {
			return nil, err
		}
		snapshot, err := h.Rooms.CreateRoom(ctx, connID, req)
		return snapshotAck(snapshot, err)

	case chat_dto.EventJoinRoom:
		req, err := decode[chat_dto.JoinRoomRequest](h.Validate, msg.Data, "room code required")
		if err != nil {
			return nil, err
		}
		snapshot, err := h.Rooms.JoinRoom(ctx, connID, req)
		return snapshotAck(snapshot, err)

	case chat_dto.EventLeaveRoom:
		return ok(h.Rooms.LeaveRoom(ctx, connID))

	case chat_dto.EventSendPublicMessage:
		req, err := decode[chat_dto.SendPublicMessageRequest](h.Validate, msg.Data, errInvalidPayload)
		if err != nil {
			return nil, err
		}
		return ok(h.Chats.SendPublicMessage(ctx, connID, req))

	case chat_dto.EventSendPrivateMessage:
		req, err := decode[chat_dto.SendPrivateMessageRequest](h.Validate, msg.Data, errInvalidPayload)
		if err != nil {
			return nil, err
		}
		return ok(h.Chats.SendPrivateMessage(ctx, connID, req))

	case chat_dto.EventCreatePoll:
		req, err := decode[chat_dto.CreatePollRequest](h.Validate, msg.Data, "invalid poll data")
		if err != nil {
			return nil, err
		}
		return ok(h.Polls.CreatePoll(ctx, connID, req))

	case chat_dto.EventVotePoll:
		req, err := decode[chat_dto.VotePollRequest](h.Validate, msg.Data, "invalid option")
		if err != nil {
			return nil, err
		}
		return ok(h.Polls.Vote(ctx, connID, req))

	case chat_dto.EventAdminAction:
		req, err := decode[chat_dto.AdminActionRequest](h.Validate, msg.Data, "unknown action")
		if err != nil {
			return nil, err
		}
		return ok(h.Moderation.Apply(ctx, connID, req))

	case chat_dto.EventToggleAnonymous:
		req, err := decode[chat_dto.ToggleAnonymousRequest](h.Validate, msg.Data, errInvalidPayload)
		if err != nil {
			return nil, err
		}
		return ok(h.Rooms.ToggleAnonymous(ctx, connID, req))

	case chat_dto.EventTyping:
		req, err := decode[chat_dto.TypingRequest](h.Validate, msg.Data, errInvalidPayload)
		if err != nil {
			return nil, err
		}
		return ok(h.Rooms.Typing(ctx, connID, req))

	case chat_dto.EventMessageSeen:
		req, err := decode[chat_dto.MessageSeenRequest](h.Validate, msg.Data, errInvalidPayload)
		if err != nil {
			return nil, err
		}
		return ok(h.Chats.MarkSeen(ctx, connID, req))

	case chat_dto.EventReactMessage:
		req, err := decode[chat_dto.ReactMessageRequest](h.Validate, msg.Data, errInvalidPayload)
		if err != nil {
			return nil, err
		}
		return ok(h.Chats.React(ctx, connID, req))

	default:
		return nil, app_error.Validation(errUnknownEvent)
	}
}

// decode reads an event payload. A missing payload decodes to the zero value
// and is then validated like any other.
func decode[T any](validate *validator.Validate, raw jsoniter.RawMessage, invalid string) (T, *app_error.AppError) {
	var req T
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &req); err != nil {
			return req, app_error.Validation(invalid)
		}
	}
	if err := validate.Struct(req); err != nil {
		return req, app_error.Validation(invalid)
	}
	return req, nil
}

func ok(err *app_error.AppError) (any, *app_error.AppError) {
	if err != nil {
		return nil, err
	}
	return chat_dto.OK, nil
}

func snapshotAck(snapshot *chat_dto.RoomSnapshot, err *app_error.AppError) (any, *app_error.AppError) {
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}
