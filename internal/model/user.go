package model

import (
	"time"
)

const (
	ProviderGitHub = "github"
	ProviderGitLab = "gitlab"
	ProviderGoogle = "google"
)

type User struct {
	ID         string    `db:"id" json:"id"`
	Email      string    `db:"email" json:"email"`
	Name       string    `db:"name" json:"name"`
	AvatarURL  string    `db:"avatar_url" json:"avatarUrl"`
	Provider   string    `db:"provider" json:"provider"`
	ProviderID string    `db:"provider_id" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
