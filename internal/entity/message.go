package entity

import (
	"time"
)

// Message is stored in the messages collection. ReceiverID is empty for
// public messages.
type Message struct {
	ID               string              `bson:"_id" json:"id"`
	RoomID           string              `bson:"roomId" json:"roomId"`
	SenderID         string              `bson:"senderId" json:"senderId"`
	ReceiverID       string              `bson:"receiverId,omitempty" json:"receiverId,omitempty"`
	Text             string              `bson:"text" json:"text"`
	Anonymous        bool                `bson:"anonymous" json:"anonymous"`
	MentionedUserIDs []string            `bson:"mentionedUserIds" json:"mentionedUserIds"`
	SeenBy           []string            `bson:"seenBy" json:"seenBy"`
	Reactions        map[string][]string `bson:"reactions" json:"reactions"`
	DeletedAt        *time.Time          `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt        time.Time           `bson:"createdAt" json:"createdAt"`
}

func (m *Message) IsPrivate() bool {
	return m.ReceiverID != ""
}

// Participant reports whether userID may see a private message.
func (m *Message) Participant(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

type Poll struct {
	ID        string         `bson:"_id" json:"id"`
	RoomID    string         `bson:"roomId" json:"roomId"`
	CreatorID string         `bson:"creatorId" json:"creatorId"`
	Question  string         `bson:"question" json:"question"`
	Options   []string       `bson:"options" json:"options"`
	Votes     map[string]int `bson:"votes" json:"votes"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
}
