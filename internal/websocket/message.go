package websocket

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// IncomingMessage is a single client frame. ID correlates the ack; events
// that expect no ack may omit it.
type IncomingMessage struct {
	Type string              `json:"type"`
	ID   string              `json:"id,omitempty"`
	Data jsoniter.RawMessage `json:"data,omitempty"`
}

// OutgoingMessage is a server push.
type OutgoingMessage struct {
	Type      string `json:"type"`
	RoomID    string `json:"roomId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// AckMessage answers an IncomingMessage carrying the same ID.
type AckMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Data any    `json:"data"`
}

const AckType = "ack"

// Push event names.
const (
	EventPublicMessage     = "public_message"
	EventPrivateMessage    = "private_message"
	EventTyping            = "typing"
	EventMessageSeenUpdate = "message_seen_update"
	EventReactionUpdate    = "reaction_update"
	EventMembersUpdate     = "members_update"
	EventMemberLeft        = "member_left"
	EventRoomSettings      = "room_settings"
	EventRoomUpdated       = "room_updated"
	EventPollCreated       = "poll_created"
	EventPollUpdated       = "poll_updated"
	EventKicked            = "kicked"
	EventRoomClosed        = "room_closed"
	EventError             = "error"
)

// Rejection is the ack body of a refused request.
type Rejection struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func Reject(msg string) Rejection {
	return Rejection{OK: false, Error: msg}
}
