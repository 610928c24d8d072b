package entity

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type RoomSettings struct {
	Locked             bool `json:"locked"`
	PrivateChatEnabled bool `json:"privateChatEnabled"`
	DurationMinutes    int  `json:"durationMinutes"`
}

// Room codes are unique among rooms that are not soft-deleted, enforced by a
// partial unique index.
type Room struct {
	ID        string                           `gorm:"primaryKey;type:uuid"`
	Name      string                           `gorm:"size:80;not null"`
	Code      string                           `gorm:"size:6;not null;uniqueIndex:idx_rooms_code_live,where:deleted_at IS NULL"`
	CreatorID string                           `gorm:"type:uuid;not null"`
	Settings  datatypes.JSONType[RoomSettings] `gorm:"type:jsonb;not null"`
	ExpiresAt time.Time                        `gorm:"not null;index"`
	CreatedAt time.Time                        `gorm:"autoCreateTime"`
	UpdatedAt time.Time                        `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt                   `gorm:"index"`
}

func (r *Room) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

type RoomMember struct {
	ID         int64     `gorm:"primaryKey"`
	RoomID     string    `gorm:"type:uuid;not null;uniqueIndex:idx_room_member"`
	UserID     string    `gorm:"type:uuid;not null;uniqueIndex:idx_room_member;index"`
	Role       string    `gorm:"size:16;not null"`
	Muted      bool      `gorm:"not null;default:false"`
	JoinedAt   time.Time `gorm:"autoCreateTime"`
	LastSeenAt *time.Time
}

func (m *RoomMember) IsAdmin() bool {
	return m != nil && m.Role == RoleAdmin
}
