package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the public identity record stored in PostgreSQL.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`
}
