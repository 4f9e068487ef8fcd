package model

import (
	"time"
)

// File is the durable record for one successfully stored object.
// Rows are immutable after creation except for the soft-delete timestamp.
type File struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"userId"`
	Name        string     `db:"name" json:"name"`
	Type        string     `db:"type" json:"type"`
	ContentType string     `db:"content_type" json:"contentType"`
	URL         string     `db:"url" json:"url"`
	Path        string     `db:"path" json:"path"`
	DeleteAt    *time.Time `db:"delete_at" json:"deleteAt,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}
