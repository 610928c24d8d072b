package chat_dto

import (
	"slices"

	"github.com/go-playground/validator/v10"
)

// Inbound websocket event names.
const (
	EventCreateRoom         = "create_room"
	EventJoinRoom           = "join_room"
	EventLeaveRoom          = "leave_room"
	EventSendPublicMessage  = "send_public_message"
	EventSendPrivateMessage = "send_private_message"
	EventCreatePoll         = "create_poll"
	EventVotePoll           = "vote_poll"
	EventAdminAction        = "admin_action"
	EventToggleAnonymous    = "toggle_anonymous"
	EventTyping             = "typing"
	EventMessageSeen        = "message_seen"
	EventReactMessage       = "react_message"
)

const (
	ScopePublic  = "public"
	ScopePrivate = "private"
)

type CreateRoomRequest struct {
	Name            string `json:"name" validate:"omitempty,max=200"`
	DurationMinutes int    `json:"durationMinutes" validate:"omitempty,min=0"`
}

type JoinRoomRequest struct {
	RoomCode string `json:"roomCode" validate:"required,max=16"`
}

type SendPublicMessageRequest struct {
	Text string `json:"text"`
}

// SendPrivateMessageRequest addresses the recipient by user id or, failing
// that, by one of their connection ids.
type SendPrivateMessageRequest struct {
	ReceiverUserID string `json:"receiverUserId"`
	ToID           string `json:"toId"`
	Text           string `json:"text"`
}

type CreatePollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options" validate:"required,min=2"`
}

type VotePollRequest struct {
	PollID      string `json:"pollId" validate:"required"`
	OptionIndex *int   `json:"optionIndex" validate:"required"`
}

type AdminActionRequest struct {
	Action          string `json:"action" validate:"required"`
	TargetUserID    string `json:"targetUserId"`
	TargetID        string `json:"targetId"`
	DurationMinutes *int   `json:"durationMinutes"`
}

type ToggleAnonymousRequest struct {
	Anonymous bool `json:"anonymous"`
}

type TypingRequest struct {
	Scope    string `json:"scope" validate:"omitempty,oneof=public private"`
	TargetID string `json:"targetId"`
	IsTyping bool   `json:"isTyping"`
}

type MessageSeenRequest struct {
	MessageID   string `json:"messageId" validate:"required"`
	Type        string `json:"type" validate:"omitempty,oneof=public private"`
	OtherUserID string `json:"otherUserId"`
	OtherID     string `json:"otherId"`
}

type ReactMessageRequest struct {
	MessageID   string `json:"messageId" validate:"required"`
	Type        string `json:"type" validate:"omitempty,oneof=public private"`
	Emoji       string `json:"emoji" validate:"required,emoji"`
	OtherUserID string `json:"otherUserId"`
	OtherID     string `json:"otherId"`
}

// ReactionEmojis is the reaction allow-list.
var ReactionEmojis = []string{"👍", "😂", "❤️", "😮"}

func EmojiValidator(fl validator.FieldLevel) bool {
	return slices.Contains(ReactionEmojis, fl.Field().String())
}
