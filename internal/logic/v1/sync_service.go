package v1

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/therunninggame/backend/internal/core/domain"
	"github.com/therunninggame/backend/internal/logger"
	"github.com/therunninggame/backend/internal/observability"
	"github.com/therunninggame/backend/internal/strava"
	"github.com/therunninggame/backend/middleware"
)

// SyncService reconciles a requested activity window against the locally
// cached range and fills any gaps from the remote API before answering the
// query from storage.
//
// The cached range is a single [earliest, latest] envelope derived from the
// stored activity start dates, never a set of disjoint intervals. EnsureRange
// is serialized per user with an in-process mutex, and the activity insert is
// idempotent on (user_id, activity_id), so a concurrent double-ingest of an
// overlapping window is harmless either way.
type SyncService struct {
	sessions   domain.SessionRepository
	activities domain.ActivityRepository
	client     RemoteClient
	pageLimit  int

	mu        sync.Mutex
	userLocks map[int]*sync.Mutex
}

// NewSyncService creates a SyncService. pageLimit caps how many activities a
// single remote list call may return.
func NewSyncService(sessions domain.SessionRepository, activities domain.ActivityRepository, client RemoteClient, pageLimit int) *SyncService {
	return &SyncService{
		sessions:   sessions,
		activities: activities,
		client:     client,
		pageLimit:  pageLimit,
		userLocks:  map[int]*sync.Mutex{},
	}
}

func (s *SyncService) userLock(userID int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	return lock
}

// GetActivities resolves the session, makes sure the requested window is
// locally cached and answers the query from storage. Streams are included
// only when detailed is set.
func (s *SyncService) GetActivities(ctx context.Context, sessionToken string, after, before time.Time, detailed bool) ([]domain.ActivityRow, error) {
	ctx, span := middleware.StartSpan(ctx, "sync.get_activities", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Bool("detailed", detailed),
	))
	defer span.End()

	session, err := s.resolveSession(ctx, sessionToken)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	user, err := s.sessions.GetUserByToken(ctx, sessionToken)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query user for session: %w: %v", ErrStoreUnavailable, err)
	}
	if user == nil {
		return nil, fmt.Errorf("lookup user for session: %w", ErrUserNotFound)
	}

	if err := s.EnsureRange(ctx, session.AccessToken, user.ID, after, before); err != nil {
		span.RecordError(err)
		return nil, err
	}

	rows, err := s.activities.ListInRange(ctx, user.ID, after.UTC(), before.UTC(), detailed)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query activities: %w: %v", ErrStoreUnavailable, err)
	}

	span.SetAttributes(attribute.Int("activities.count", len(rows)))
	return rows, nil
}

func (s *SyncService) resolveSession(ctx context.Context, sessionToken string) (*domain.SessionRow, error) {
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

// EnsureRange computes the gaps between the requested [after, before) window
// and the cached envelope and ingests each gap from the remote API. The left
// gap is fully resolved before the right gap begins; a failure aborts the
// remaining work and surfaces, re-invocation is safe through the idempotent
// insert.
func (s *SyncService) EnsureRange(ctx context.Context, accessToken string, userID int, after, before time.Time) error {
	ctx, span := middleware.StartSpan(ctx, "sync.ensure_range", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int("user.id", userID),
	))
	defer span.End()

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	after = after.UTC()
	before = before.UTC()

	earliest, latest, err := s.activities.Timerange(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("query cached timerange: %w: %v", ErrStoreUnavailable, err)
	}

	log := logger.FromContext(ctx)
	if earliest == nil || latest == nil {
		log.Info().Time("after", after).Time("before", before).Msg("No cached activity data, ingesting whole window")
		return s.ingestRange(ctx, accessToken, userID, after, before, "cold")
	}

	log.Info().Time("earliest", *earliest).Time("latest", *latest).Msg("Found cached activity envelope")

	if after.Before(*earliest) {
		if err := s.ingestRange(ctx, accessToken, userID, after, *earliest, "left"); err != nil {
			span.RecordError(err)
			return err
		}
	}
	if latest.Before(before) {
		if err := s.ingestRange(ctx, accessToken, userID, *latest, before, "right"); err != nil {
			span.RecordError(err)
			return err
		}
	}
	return nil
}

// ingestRange lists remote activities in one gap, fetches each activity's
// streams and persists everything in two phases: activities first, then
// streams referencing the freshly assigned local ids. Streams of activities
// skipped as duplicates are not re-inserted.
func (s *SyncService) ingestRange(ctx context.Context, accessToken string, userID int, gapAfter, gapBefore time.Time, side string) error {
	log := logger.FromContext(ctx)
	log.Info().Time("after", gapAfter).Time("before", gapBefore).Str("side", side).Msg("Ingesting activity gap from remote")
	observability.RecordGapFetch(side)

	remote, err := s.client.GetActivities(ctx, accessToken, gapAfter, gapBefore, s.pageLimit)
	if err != nil {
		return fmt.Errorf("list remote activities [%s, %s): %w: %v", gapAfter, gapBefore, ErrRemoteFetch, err)
	}

	// Per-activity stream fetches mirror the upstream API shape: bulk list,
	// per-item detail.
	streamSets := make([]strava.StreamSet, len(remote))
	for i, act := range remote {
		streams, err := s.client.GetActivityStreams(ctx, accessToken, act.ID)
		if err != nil {
			return fmt.Errorf("fetch streams for activity %d: %w: %v", act.ID, ErrRemoteFetch, err)
		}
		streamSets[i] = streams
	}

	rows := make([]domain.ActivityRow, len(remote))
	for i, act := range remote {
		rows[i] = domain.ActivityRow{
			ActivityID:         act.ID,
			UserID:             userID,
			Name:               act.Name,
			Distance:           act.Distance,
			MovingTime:         time.Duration(act.MovingTime) * time.Second,
			TotalElevationGain: act.TotalElevationGain,
			StartDate:          act.StartDate.UTC(),
			StartLatLng:        latLngFromPair(act.StartLatLng),
			EndLatLng:          latLngFromPair(act.EndLatLng),
			HasHeartrate:       act.HasHeartrate,
			Description:        act.Description,
			LocationCity:       act.LocationCity,
		}
	}

	ids, err := s.activities.InsertActivities(ctx, rows)
	if err != nil {
		return fmt.Errorf("persist activities: %w: %v", ErrSyncWrite, err)
	}

	inserted := 0
	var timeStreams []domain.TimeStreamRow
	var latlngStreams []domain.LatLngStreamRow
	for i, localID := range ids {
		if localID == 0 {
			// Duplicate of an already ingested activity; its streams are
			// already stored.
			continue
		}
		inserted++
		for key, stream := range streamSets[i] {
			switch key {
			case strava.StreamKeyTime:
				data, err := stream.TimeSeries()
				if err != nil {
					return fmt.Errorf("activity %d: %w: %v", remote[i].ID, ErrRemoteFetch, err)
				}
				timeStreams = append(timeStreams, domain.TimeStreamRow{
					ActivityID:   localID,
					OriginalSize: stream.OriginalSize,
					SeriesType:   stream.SeriesType,
					Data:         data,
				})
			case strava.StreamKeyLatLng:
				pairs, err := stream.LatLngSeries()
				if err != nil {
					return fmt.Errorf("activity %d: %w: %v", remote[i].ID, ErrRemoteFetch, err)
				}
				data := make([]domain.LatLng, len(pairs))
				for j, p := range pairs {
					data[j] = domain.LatLng{Lat: p[0], Lng: p[1]}
				}
				latlngStreams = append(latlngStreams, domain.LatLngStreamRow{
					ActivityID:   localID,
					OriginalSize: stream.OriginalSize,
					SeriesType:   stream.SeriesType,
					Data:         data,
				})
			default:
				log.Warn().Str("key", key).Int64("activity_id", remote[i].ID).Msg("Unrecognized stream key, skipping stream")
				observability.RecordStreamSkipped(key)
			}
		}
	}
	observability.RecordActivitiesIngested(inserted)

	// Second phase on purpose: the stream foreign keys need the generated
	// activity ids. A failure here leaves activities stored without streams;
	// that partial state is accepted and documented.
	if err := s.activities.InsertTimeStreams(ctx, timeStreams); err != nil {
		return fmt.Errorf("persist time streams: %w: %v", ErrSyncWrite, err)
	}
	if err := s.activities.InsertLatLngStreams(ctx, latlngStreams); err != nil {
		return fmt.Errorf("persist latlng streams: %w: %v", ErrSyncWrite, err)
	}

	log.Info().Int("listed", len(remote)).Int("inserted", inserted).Str("side", side).Msg("Gap ingest complete")
	return nil
}

func latLngFromPair(pair []float64) *domain.LatLng {
	if len(pair) != 2 {
		return nil
	}
	return &domain.LatLng{Lat: pair[0], Lng: pair[1]}
}
