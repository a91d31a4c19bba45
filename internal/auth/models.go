package auth

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity consumed by the rest of the application. Only
// ID and Email matter to the commerce workflows; the remaining fields
// describe account state.
type User struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Confirmed bool       `json:"confirmed"`
	InvitedAt *time.Time `json:"invited_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Session is returned on successful login.
type Session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        *User     `json:"user"`
}
