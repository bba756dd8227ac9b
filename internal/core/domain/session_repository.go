package domain

import (
	"context"
	"time"
)

// SessionRow represents one session record. Sessions are append-only: a
// token refresh creates a new row rather than mutating an existing one.
type SessionRow struct {
	ID           int
	SessionToken string
	AccessToken  string
	// ExpiresAt is the access-token expiry as a unix epoch, as reported by
	// the identity provider.
	ExpiresAt    int64
	RefreshToken string
	UserID       int
	CreatedAt    time.Time
}

// SessionRepository defines the data-access contract for session operations.
type SessionRepository interface {
	// Create inserts a refresh-token row and a session row referencing it,
	// returning the stored session.
	Create(ctx context.Context, userID int, sessionToken, accessToken, refreshToken string, expiresAt int64) (*SessionRow, error)

	// GetByToken looks up a session by its opaque client-visible token.
	// Returns (nil, nil) when the token does not match any session.
	GetByToken(ctx context.Context, sessionToken string) (*SessionRow, error)

	// GetUserByToken joins through the session to its owning user.
	// Returns (nil, nil) when the token does not match any session.
	GetUserByToken(ctx context.Context, sessionToken string) (*UserRow, error)
}
