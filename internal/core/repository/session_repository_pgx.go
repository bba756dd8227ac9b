package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/therunninggame/backend/internal/core/domain"
)

// PgxSessionRepository implements domain.SessionRepository using pgxpool.
type PgxSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PgxSessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PgxSessionRepository {
	return &PgxSessionRepository{pool: pool}
}

// Create inserts a refresh-token row and a session row referencing it in one
// transaction. Sessions are append-only; refresh never updates an old row.
func (r *PgxSessionRepository) Create(ctx context.Context, userID int, sessionToken, accessToken, refreshToken string, expiresAt int64) (*domain.SessionRow, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var refreshTokenID int
	err = tx.QueryRow(ctx,
		`INSERT INTO refresh_tokens (token) VALUES ($1) RETURNING id`,
		refreshToken,
	).Scan(&refreshTokenID)
	if err != nil {
		return nil, err
	}

	row := domain.SessionRow{
		SessionToken: sessionToken,
		AccessToken:  accessToken,
		ExpiresAt:    expiresAt,
		RefreshToken: refreshToken,
		UserID:       userID,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO sessions (session_token, access_token, expires_at, refresh_token_id, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, sessionToken, accessToken, expiresAt, refreshTokenID, userID).Scan(&row.ID, &row.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &row, nil
}

// GetByToken looks up a session by its opaque token.
// Returns (nil, nil) when the token does not match any session.
func (r *PgxSessionRepository) GetByToken(ctx context.Context, sessionToken string) (*domain.SessionRow, error) {
	query := `
		SELECT s.id, s.session_token, s.access_token, s.expires_at, rt.token, s.user_id, s.created_at
		FROM sessions s
		JOIN refresh_tokens rt ON s.refresh_token_id = rt.id
		WHERE s.session_token = $1
	`

	var row domain.SessionRow
	err := r.pool.QueryRow(ctx, query, sessionToken).Scan(
		&row.ID, &row.SessionToken, &row.AccessToken, &row.ExpiresAt,
		&row.RefreshToken, &row.UserID, &row.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &row, nil
}

// GetUserByToken joins through the session to its owning user.
// Returns (nil, nil) when the token does not match any session.
func (r *PgxSessionRepository) GetUserByToken(ctx context.Context, sessionToken string) (*domain.UserRow, error) {
	query := `
		SELECT u.id, u.athlete_id, u.firstname, u.lastname, u.sex, u.city, u.country, u.profile_medium
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.session_token = $1
	`

	var row domain.UserRow
	err := r.pool.QueryRow(ctx, query, sessionToken).Scan(
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
