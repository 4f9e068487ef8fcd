package model

import (
	"time"
)

// Token is a personal access token for non-browser clients (CLI, scripts).
// The secret is stored as a bcrypt hash; the plaintext is shown once at creation.
type Token struct {
	ID         string     `db:"id" json:"id"`
	UserID     string     `db:"user_id" json:"-"`
	Name       string     `db:"name" json:"name"`
	TokenHash  string     `db:"token_hash" json:"-"`
	LastUsedAt *time.Time `db:"last_used_at" json:"lastUsedAt,omitempty"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expiresAt"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
}

func (t *Token) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
