package v1

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/therunninggame/backend/internal/core/domain"
	"github.com/therunninggame/backend/internal/strava"
)

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[int64]*domain.UserRow
	nextID  int
	created int

	getErr    error
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*domain.UserRow{}, nextID: 1}
}

func (r *fakeUserRepo) GetByAthleteID(_ context.Context, athleteID int64) (*domain.UserRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	user, ok := r.users[athleteID]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user domain.UserRow) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return 0, r.createErr
	}
	user.ID = r.nextID
	r.nextID++
	r.created++
	r.users[user.AthleteID] = &user
	return user.ID, nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.SessionRow
	owners   map[string]*domain.UserRow
	nextID   int

	createErr error
	getErr    error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions: map[string]*domain.SessionRow{},
		owners:   map[string]*domain.UserRow{},
		nextID:   1,
	}
}

func (r *fakeSessionRepo) Create(_ context.Context, userID int, sessionToken, accessToken, refreshToken string, expiresAt int64) (*domain.SessionRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	session := &domain.SessionRow{
		ID:           r.nextID,
		SessionToken: sessionToken,
		AccessToken:  accessToken,
		ExpiresAt:    expiresAt,
		RefreshToken: refreshToken,
		UserID:       userID,
		CreatedAt:    time.Now().UTC(),
	}
	r.nextID++
	r.sessions[sessionToken] = session
	copied := *session
	return &copied, nil
}

func (r *fakeSessionRepo) GetByToken(_ context.Context, sessionToken string) (*domain.SessionRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	session, ok := r.sessions[sessionToken]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (r *fakeSessionRepo) GetUserByToken(_ context.Context, sessionToken string) (*domain.UserRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	user, ok := r.owners[sessionToken]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

// seed installs a ready-made session and its owning user.
func (r *fakeSessionRepo) seed(session domain.SessionRow, owner *domain.UserRow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.SessionToken] = &session
	if owner != nil {
		r.owners[session.SessionToken] = owner
	}
}

type fakeActivityRepo struct {
	mu     sync.Mutex
	rows   []domain.ActivityRow
	nextID int64

	timeStreams   []domain.TimeStreamRow
	latlngStreams []domain.LatLngStreamRow

	timerangeErr    error
	insertErr       error
	insertStreamErr error
	listErr         error
}

func newFakeActivityRepo() *fakeActivityRepo {
	return &fakeActivityRepo{nextID: 1}
}

func (r *fakeActivityRepo) Timerange(_ context.Context, userID int) (*time.Time, *time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timerangeErr != nil {
		return nil, nil, r.timerangeErr
	}
	var earliest, latest *time.Time
	for i := range r.rows {
		if r.rows[i].UserID != userID {
			continue
		}
		start := r.rows[i].StartDate
		if earliest == nil || start.Before(*earliest) {
			t := start
			earliest = &t
		}
		if latest == nil || start.After(*latest) {
			t := start
			latest = &t
		}
	}
	return earliest, latest, nil
}

func (r *fakeActivityRepo) InsertActivities(_ context.Context, activities []domain.ActivityRow) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	ids := make([]int64, len(activities))
	for i, activity := range activities {
		if r.lookupLocked(activity.UserID, activity.ActivityID) != nil {
			continue
		}
		activity.ID = r.nextID
		r.nextID++
		r.rows = append(r.rows, activity)
		ids[i] = activity.ID
	}
	return ids, nil
}

func (r *fakeActivityRepo) lookupLocked(userID int, activityID int64) *domain.ActivityRow {
	for i := range r.rows {
		if r.rows[i].UserID == userID && r.rows[i].ActivityID == activityID {
			return &r.rows[i]
		}
	}
	return nil
}

func (r *fakeActivityRepo) InsertTimeStreams(_ context.Context, streams []domain.TimeStreamRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertStreamErr != nil {
		return r.insertStreamErr
	}
	r.timeStreams = append(r.timeStreams, streams...)
	return nil
}

func (r *fakeActivityRepo) InsertLatLngStreams(_ context.Context, streams []domain.LatLngStreamRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertStreamErr != nil {
		return r.insertStreamErr
	}
	r.latlngStreams = append(r.latlngStreams, streams...)
	return nil
}

func (r *fakeActivityRepo) ListInRange(_ context.Context, userID int, after, before time.Time, detailed bool) ([]domain.ActivityRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.ActivityRow
	for i := range r.rows {
		row := r.rows[i]
		if row.UserID != userID || !row.StartDate.After(after) || !row.StartDate.Before(before) {
			continue
		}
		if detailed {
			for j := range r.timeStreams {
				if r.timeStreams[j].ActivityID == row.ID {
					stream := r.timeStreams[j]
					row.TimeStream = &stream
				}
			}
			for j := range r.latlngStreams {
				if r.latlngStreams[j].ActivityID == row.ID {
					stream := r.latlngStreams[j]
					row.LatLngStream = &stream
				}
			}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

type fetchWindow struct {
	after  time.Time
	before time.Time
}

type fakeRemote struct {
	mu sync.Mutex

	authURL    string
	exchanged  *strava.TokenBundle
	refreshed  *strava.TokenBundle
	athlete    *strava.Athlete
	activities []strava.Activity
	streams    map[int64]strava.StreamSet

	windows []fetchWindow

	exchangeErr error
	refreshErr  error
	athleteErr  error
	listErr     error
	streamsErr  error
}

func (f *fakeRemote) AuthorizationURL() string { return f.authURL }

func (f *fakeRemote) ExchangeCode(_ context.Context, _ string) (*strava.TokenBundle, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.exchanged, nil
}

func (f *fakeRemote) RefreshToken(_ context.Context, _ string) (*strava.TokenBundle, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshed, nil
}

func (f *fakeRemote) GetAthlete(_ context.Context, _ string) (*strava.Athlete, error) {
	if f.athleteErr != nil {
		return nil, f.athleteErr
	}
	return f.athlete, nil
}

func (f *fakeRemote) GetActivities(_ context.Context, _ string, after, before time.Time, _ int) ([]strava.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.windows = append(f.windows, fetchWindow{after: after, before: before})
	var out []strava.Activity
	for _, act := range f.activities {
		if act.StartDate.Before(after) || !act.StartDate.Before(before) {
			continue
		}
		out = append(out, act)
	}
	return out, nil
}

func (f *fakeRemote) GetActivityStreams(_ context.Context, _ string, activityID int64) (strava.StreamSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.streamsErr != nil {
		return nil, f.streamsErr
	}
	return f.streams[activityID], nil
}

func (f *fakeRemote) fetchWindows() []fetchWindow {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetchWindow(nil), f.windows...)
}

var errBoom = errors.New("boom")

func rawJSON(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
