package v1

import (
	"context"
	"time"

	"github.com/therunninggame/backend/internal/strava"
)

// RemoteClient is the identity-provider facade the logic layer depends on.
// internal/strava provides the production implementation; tests install an
// in-memory fake.
type RemoteClient interface {
	AuthorizationURL() string
	ExchangeCode(ctx context.Context, code string) (*strava.TokenBundle, error)
	RefreshToken(ctx context.Context, refreshToken string) (*strava.TokenBundle, error)
	GetAthlete(ctx context.Context, accessToken string) (*strava.Athlete, error)
	GetActivities(ctx context.Context, accessToken string, after, before time.Time, limit int) ([]strava.Activity, error)
	GetActivityStreams(ctx context.Context, accessToken string, activityID int64) (strava.StreamSet, error)
}
