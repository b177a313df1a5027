package models

import "time"

// RefreshToken is the persisted record of a user's live refresh token.
// TokenHash is the hex sha256 of the raw token; the raw value is never stored.
type RefreshToken struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	TokenHash  string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}
