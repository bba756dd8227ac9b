package v1

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/therunninggame/backend/internal/core/domain"
	"github.com/therunninggame/backend/internal/logger"
	"github.com/therunninggame/backend/middleware"
)

// SessionService owns the identity records: it exchanges and refreshes
// tokens against the remote provider, upserts users and appends sessions.
// It depends on repository interfaces and the remote facade only.
type SessionService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	client   RemoteClient
}

// NewSessionService creates a SessionService with the given dependencies.
func NewSessionService(users domain.UserRepository, sessions domain.SessionRepository, client RemoteClient) *SessionService {
	return &SessionService{
		users:    users,
		sessions: sessions,
		client:   client,
	}
}

// AuthorizationURL returns the provider consent-screen URL.
func (s *SessionService) AuthorizationURL() string {
	return s.client.AuthorizationURL()
}

// Exchange trades an authorization code for a token bundle, upserts the
// athlete's user record and appends a new session.
func (s *SessionService) Exchange(ctx context.Context, code string) (*domain.SessionRow, error) {
	ctx, span := middleware.StartSpan(ctx, "session.exchange", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	bundle, err := s.client.ExchangeCode(ctx, code)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("exchange authorization code: %w: %v", ErrRemoteAuth, err)
	}

	return s.createSession(ctx, bundle.AccessToken, bundle.RefreshToken, bundle.ExpiresAt)
}

// Refresh resolves the session behind the given token, refreshes its
// credentials upstream and appends a new session. The old session row is
// kept untouched; sessions are append-only history.
func (s *SessionService) Refresh(ctx context.Context, sessionToken string) (*domain.SessionRow, error) {
	ctx, span := middleware.StartSpan(ctx, "session.refresh", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	current, err := s.Resolve(ctx, sessionToken)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if current.RefreshToken == "" {
		return nil, fmt.Errorf("refresh session: %w", ErrNoValidCredential)
	}

	bundle, err := s.client.RefreshToken(ctx, current.RefreshToken)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("refresh token: %w: %v", ErrRemoteAuth, err)
	}
	// The provider may omit the refresh token when it has not rotated.
	if bundle.RefreshToken == "" {
		bundle.RefreshToken = current.RefreshToken
	}

	return s.createSession(ctx, bundle.AccessToken, bundle.RefreshToken, bundle.ExpiresAt)
}

func (s *SessionService) createSession(ctx context.Context, accessToken, refreshToken string, expiresAt int64) (*domain.SessionRow, error) {
	athlete, err := s.client.GetAthlete(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch athlete profile: %w: %v", ErrRemoteAuth, err)
	}

	user, err := s.users.GetByAthleteID(ctx, athlete.ID)
	if err != nil {
		return nil, fmt.Errorf("query user by athlete id %d: %w: %v", athlete.ID, ErrStoreUnavailable, err)
	}
	if user == nil {
		userID, err := s.users.Create(ctx, domain.UserRow{
			AthleteID:     athlete.ID,
			Firstname:     athlete.Firstname,
			Lastname:      athlete.Lastname,
			Sex:           athlete.Sex,
			City:          athlete.City,
			Country:       athlete.Country,
			ProfileMedium: athlete.ProfileMedium,
		})
		if err != nil {
			return nil, fmt.Errorf("create user for athlete %d: %w: %v", athlete.ID, ErrStoreUnavailable, err)
		}
		user = &domain.UserRow{ID: userID, AthleteID: athlete.ID}
		logger.FromContext(ctx).Info().Int("user_id", userID).Int64("athlete_id", athlete.ID).Msg("User created")
	}

	sessionToken := uuid.NewString()
	session, err := s.sessions.Create(ctx, user.ID, sessionToken, accessToken, refreshToken, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("create session: %w: %v", ErrStoreUnavailable, err)
	}

	logger.FromContext(ctx).Info().Int("user_id", user.ID).Msg("Session created")
	return session, nil
}

// Resolve looks up a session by its opaque token and checks it carries a
// usable access token.
func (s *SessionService) Resolve(ctx context.Context, sessionToken string) (*domain.SessionRow, error) {
	session, err := s.sessions.GetByToken(ctx, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("query session: %w: %v", ErrStoreUnavailable, err)
	}
	if session == nil {
		return nil, fmt.Errorf("resolve session: %w", ErrSessionNotFound)
	}
	if session.AccessToken == "" {
		return nil, fmt.Errorf("resolve session: %w", ErrNoValidCredential)
	}
	return session, nil
}

// GetUser joins through the session to its owning user. A missing session
// and a missing user are distinct failures.
func (s *SessionService) GetUser(ctx context.Context, sessionToken string) (*domain.UserRow, error) {
	if _, err := s.Resolve(ctx, sessionToken); err != nil {
		return nil, err
	}
	user, err := s.sessions.GetUserByToken(ctx, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("query user for session: %w: %v", ErrStoreUnavailable, err)
	}
	if user == nil {
		return nil, fmt.Errorf("lookup user for session: %w", ErrUserNotFound)
	}
	return user, nil
}
