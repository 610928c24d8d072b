package chat_dto

import (
	"time"

	"github.com/xenn00/classroom-chat/internal/entity"
)

type MessagePayload struct {
	ID               string              `json:"id"`
	RoomID           string              `json:"roomId"`
	SenderID         string              `json:"senderId"`
	ReceiverID       string              `json:"receiverId,omitempty"`
	SenderName       string              `json:"senderName"`
	Text             string              `json:"text"`
	Anonymous        bool                `json:"anonymous"`
	MentionedUserIDs []string            `json:"mentionedUserIds"`
	CreatedAt        time.Time           `json:"createdAt"`
	SeenBy           []string            `json:"seenBy"`
	Reactions        map[string][]string `json:"reactions"`
}

func NewMessagePayload(msg *entity.Message, senderName string) MessagePayload {
	payload := MessagePayload{
		ID:               msg.ID,
		RoomID:           msg.RoomID,
		SenderID:         msg.SenderID,
		ReceiverID:       msg.ReceiverID,
		SenderName:       senderName,
		Text:             msg.Text,
		Anonymous:        msg.Anonymous,
		MentionedUserIDs: msg.MentionedUserIDs,
		CreatedAt:        msg.CreatedAt,
		SeenBy:           msg.SeenBy,
		Reactions:        msg.Reactions,
	}
	if payload.MentionedUserIDs == nil {
		payload.MentionedUserIDs = []string{}
	}
	if payload.SeenBy == nil {
		payload.SeenBy = []string{}
	}
	if payload.Reactions == nil {
		payload.Reactions = map[string][]string{}
	}
	return payload
}

type PollPayload struct {
	ID        string         `json:"id"`
	CreatorID string         `json:"creatorId"`
	Question  string         `json:"question"`
	Options   []string       `json:"options"`
	Votes     map[string]int `json:"votes"`
	CreatedAt time.Time      `json:"createdAt"`
}

func NewPollPayload(p *entity.Poll) PollPayload {
	votes := p.Votes
	if votes == nil {
		votes = map[string]int{}
	}
	return PollPayload{
		ID:        p.ID,
		CreatorID: p.CreatorID,
		Question:  p.Question,
		Options:   p.Options,
		Votes:     votes,
		CreatedAt: p.CreatedAt,
	}
}

type PollUpdatedPayload struct {
	ID    string         `json:"id"`
	Votes map[string]int `json:"votes"`
}

type SeenUpdatePayload struct {
	MessageID string   `json:"messageId"`
	Type      string   `json:"type"`
	SeenBy    []string `json:"seenBy"`
}

type ReactionUpdatePayload struct {
	MessageID string   `json:"messageId"`
	Type      string   `json:"type"`
	Emoji     string   `json:"emoji"`
	Reactors  []string `json:"reactors"`
}

type TypingPayload struct {
	FromName string `json:"fromName"`
	IsTyping bool   `json:"isTyping"`
	Scope    string `json:"scope"`
}

type MemberLeftPayload struct {
	ID string `json:"id"`
}

type RoomUpdatedPayload struct {
	RoomID    string    `json:"roomId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

const (
	CloseReasonExpired = "expired"
	CloseReasonDeleted = "deleted"
)

type RoomClosedPayload struct {
	Reason string `json:"reason"`
}

type KickedPayload struct {
	RoomID string `json:"roomId"`
}
