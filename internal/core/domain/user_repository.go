package domain

import "context"

// UserRow represents a user record returned from the database. A user is
// created at most once per Strava athlete id (upsert-on-first-sight).
type UserRow struct {
	ID            int
	AthleteID     int64
	Firstname     string
	Lastname      string
	Sex           string
	City          string
	Country       string
	ProfileMedium string
}

// UserRepository defines the data-access contract for user operations.
// Implementations live in internal/core/repository (Core layer).
// The Logic layer depends on this interface only — never on SQL or pgx directly.
type UserRepository interface {
	// GetByAthleteID returns the user matching the given Strava athlete id.
	// Returns (nil, nil) when no user is found.
	GetByAthleteID(ctx context.Context, athleteID int64) (*UserRow, error)

	// Create inserts a new user and returns the generated user ID.
	Create(ctx context.Context, user UserRow) (int, error)
}
