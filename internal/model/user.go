package model

import (
	"time"

	"github.com/letterbox/letterbox/internal/secret"
)

// User is a newsletter operator allowed to publish broadcasts.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never serialize
	CreatedAt    time.Time `json:"created_at"`
}

// Credentials are the username/password pair presented by a caller.
type Credentials struct {
	Username string
	Password secret.String
}
