package chat_dto

import (
	"time"

	"github.com/xenn00/classroom-chat/internal/entity"
	"github.com/xenn00/classroom-chat/internal/websocket"
)

type AckResponse struct {
	OK bool `json:"ok"`
}

var OK = AckResponse{OK: true}

// RoomSnapshot answers create_room and join_room.
type RoomSnapshot struct {
	OK             bool                   `json:"ok"`
	UserID         string                 `json:"userId"`
	Username       string                 `json:"username"`
	RoomID         string                 `json:"roomId"`
	RoomCode       string                 `json:"roomCode"`
	RoomName       string                 `json:"roomName"`
	ExpiresAt      time.Time              `json:"expiresAt"`
	Settings       entity.RoomSettings    `json:"settings"`
	IsAdmin        bool                   `json:"isAdmin"`
	Members        []websocket.MemberView `json:"members"`
	PublicMessages []MessagePayload       `json:"publicMessages"`
	Polls          []PollPayload          `json:"polls"`
}

// RoomSummary is one entry of the caller's room list.
type RoomSummary struct {
	RoomID      string              `json:"roomId"`
	Name        string              `json:"name"`
	Code        string              `json:"code"`
	Role        string              `json:"role"`
	Muted       bool                `json:"muted"`
	Settings    entity.RoomSettings `json:"settings"`
	ExpiresAt   time.Time           `json:"expiresAt"`
	Online      int                 `json:"online"`
	LastMessage *MessagePayload     `json:"lastMessage,omitempty"`
}

type MessagesResponse struct {
	RoomID   string           `json:"roomId"`
	Messages []MessagePayload `json:"messages"`
}
