package user_dto

import "time"

type UserResponse struct {
	ID        string       `json:"id"`
	Username  string       `json:"username"`
	CreatedAt time.Time    `json:"created_at"`
	Session   *SessionInfo `json:"session,omitempty"`
}

// SessionInfo describes the login session of the requesting device.
type SessionInfo struct {
	Fingerprint string    `json:"fingerprint"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type AuthResponse struct {
	User        UserResponse `json:"user"`
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
}
