package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/therunninggame/backend/internal/core/domain"
)

// PgxUserRepository implements domain.UserRepository using pgxpool.
type PgxUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PgxUserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PgxUserRepository {
	return &PgxUserRepository{pool: pool}
}

// GetByAthleteID returns the user matching the given Strava athlete id.
// Returns (nil, nil) when no user is found.
func (r *PgxUserRepository) GetByAthleteID(ctx context.Context, athleteID int64) (*domain.UserRow, error) {
	query := `
		SELECT id, athlete_id, firstname, lastname, sex, city, country, profile_medium
		FROM users
		WHERE athlete_id = $1
	`

	var row domain.UserRow
	err := r.pool.QueryRow(ctx, query, athleteID).Scan(
		&row.ID, &row.AthleteID, &row.Firstname, &row.Lastname,
		&row.Sex, &row.City, &row.Country, &row.ProfileMedium,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &row, nil
}

// Create inserts a new user and returns the generated user ID.
func (r *PgxUserRepository) Create(ctx context.Context, user domain.UserRow) (int, error) {
	query := `
		INSERT INTO users (athlete_id, firstname, lastname, sex, city, country, profile_medium)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var userID int
	err := r.pool.QueryRow(ctx, query,
		user.AthleteID, user.Firstname, user.Lastname,
		user.Sex, user.City, user.Country, user.ProfileMedium,
	).Scan(&userID)
	if err != nil {
		return 0, err
	}

	return userID, nil
}
