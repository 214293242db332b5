package storage

import (
	"time"
)

// Credentials is the persisted login for the current user.
type Credentials struct {
	Username string    `json:"username"`
	Token    string    `json:"token"`
	SavedAt  time.Time `json:"saved_at"`
}
