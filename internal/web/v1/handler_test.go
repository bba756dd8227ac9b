package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therunninggame/backend/internal/core/domain"
	logicv1 "github.com/therunninggame/backend/internal/logic/v1"
	"github.com/therunninggame/backend/internal/strava"
)

const (
	testCookieName  = "test_sessionid"
	testFrontendURL = "https://frontend.example"
)

type stubUserRepo struct {
	byAthleteID map[int64]*domain.UserRow
}

func (r *stubUserRepo) GetByAthleteID(_ context.Context, athleteID int64) (*domain.UserRow, error) {
	return r.byAthleteID[athleteID], nil
}

func (r *stubUserRepo) Create(_ context.Context, user domain.UserRow) (int, error) {
	user.ID = 1
	r.byAthleteID[user.AthleteID] = &user
	return 1, nil
}

type stubSessionRepo struct {
	sessions map[string]*domain.SessionRow
	owners   map[string]*domain.UserRow
	nextID   int
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{
		sessions: map[string]*domain.SessionRow{},
		owners:   map[string]*domain.UserRow{},
		nextID:   1,
	}
}

func (r *stubSessionRepo) Create(_ context.Context, userID int, sessionToken, accessToken, refreshToken string, expiresAt int64) (*domain.SessionRow, error) {
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
	return session, nil
}

func (r *stubSessionRepo) GetByToken(_ context.Context, sessionToken string) (*domain.SessionRow, error) {
	return r.sessions[sessionToken], nil
}

func (r *stubSessionRepo) GetUserByToken(_ context.Context, sessionToken string) (*domain.UserRow, error) {
	return r.owners[sessionToken], nil
}

type stubActivityRepo struct {
	rows        []domain.ActivityRow
	timeStreams map[int64]*domain.TimeStreamRow
	latlng      map[int64]*domain.LatLngStreamRow
}

func (r *stubActivityRepo) Timerange(_ context.Context, userID int) (*time.Time, *time.Time, error) {
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

func (r *stubActivityRepo) InsertActivities(_ context.Context, activities []domain.ActivityRow) ([]int64, error) {
	ids := make([]int64, len(activities))
	for i := range activities {
		activities[i].ID = int64(len(r.rows) + 1)
		r.rows = append(r.rows, activities[i])
		ids[i] = activities[i].ID
	}
	return ids, nil
}

func (r *stubActivityRepo) InsertTimeStreams(_ context.Context, streams []domain.TimeStreamRow) error {
	for i := range streams {
		stream := streams[i]
		r.timeStreams[stream.ActivityID] = &stream
	}
	return nil
}

func (r *stubActivityRepo) InsertLatLngStreams(_ context.Context, streams []domain.LatLngStreamRow) error {
	for i := range streams {
		stream := streams[i]
		r.latlng[stream.ActivityID] = &stream
	}
	return nil
}

func (r *stubActivityRepo) ListInRange(_ context.Context, userID int, after, before time.Time, detailed bool) ([]domain.ActivityRow, error) {
	var out []domain.ActivityRow
	for i := range r.rows {
		row := r.rows[i]
		if row.UserID != userID || !row.StartDate.After(after) || !row.StartDate.Before(before) {
			continue
		}
		if detailed {
			row.TimeStream = r.timeStreams[row.ID]
			row.LatLngStream = r.latlng[row.ID]
		}
		out = append(out, row)
	}
	return out, nil
}

type stubRemote struct {
	authURL     string
	bundle      *strava.TokenBundle
	athlete     *strava.Athlete
	exchangeErr error
	listErr     error
}

func (f *stubRemote) AuthorizationURL() string { return f.authURL }

func (f *stubRemote) ExchangeCode(_ context.Context, _ string) (*strava.TokenBundle, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.bundle, nil
}

func (f *stubRemote) RefreshToken(_ context.Context, _ string) (*strava.TokenBundle, error) {
	return f.bundle, nil
}

func (f *stubRemote) GetAthlete(_ context.Context, _ string) (*strava.Athlete, error) {
	return f.athlete, nil
}

func (f *stubRemote) GetActivities(_ context.Context, _ string, _, _ time.Time, _ int) ([]strava.Activity, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return nil, nil
}

func (f *stubRemote) GetActivityStreams(_ context.Context, _ string, _ int64) (strava.StreamSet, error) {
	return nil, nil
}

type fixture struct {
	router     *gin.Engine
	users      *stubUserRepo
	sessions   *stubSessionRepo
	activities *stubActivityRepo
	remote     *stubRemote
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)

	users := &stubUserRepo{byAthleteID: map[int64]*domain.UserRow{}}
	sessions := newStubSessionRepo()
	activities := &stubActivityRepo{
		timeStreams: map[int64]*domain.TimeStreamRow{},
		latlng:      map[int64]*domain.LatLngStreamRow{},
	}
	remote := &stubRemote{
		authURL: "https://provider.example/oauth/authorize?client_id=42",
		bundle:  &strava.TokenBundle{AccessToken: "access-1", RefreshToken: "refresh-1", ExpiresAt: 1900000000},
		athlete: &strava.Athlete{ID: 1234, Firstname: "Ada", Lastname: "Lovelace", Sex: "F", City: "London", Country: "UK", ProfileMedium: "https://img.example/ada.jpg"},
	}

	sessionSvc := logicv1.NewSessionService(users, sessions, remote)
	syncSvc := logicv1.NewSyncService(sessions, activities, remote, 200)
	handler := NewHandler(sessionSvc, syncSvc, testCookieName, testFrontendURL)

	router := gin.New()
	handler.RegisterRoutes(router.Group(""))

	return &fixture{router: router, users: users, sessions: sessions, activities: activities, remote: remote}
}

func (f *fixture) seedSession() {
	owner := &domain.UserRow{ID: 7, AthleteID: 1234, Firstname: "Ada", Lastname: "Lovelace", Sex: "F", City: "London", Country: "UK", ProfileMedium: "https://img.example/ada.jpg"}
	f.sessions.sessions["token-1"] = &domain.SessionRow{
		ID:           1,
		SessionToken: "token-1",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    1900000000,
		UserID:       7,
	}
	f.sessions.owners["token-1"] = owner
	f.users.byAthleteID[1234] = owner
}

func (f *fixture) seedActivities() {
	mk := func(id, activityID int64, day string) domain.ActivityRow {
		start, _ := time.Parse("2006-01-02", day)
		return domain.ActivityRow{
			ID:                 id,
			ActivityID:         activityID,
			UserID:             7,
			Name:               "Morning Run",
			Distance:           5000,
			MovingTime:         30 * time.Minute,
			TotalElevationGain: 42,
			StartDate:          start.UTC(),
			StartLatLng:        &domain.LatLng{Lat: 48.1, Lng: 11.5},
			EndLatLng:          &domain.LatLng{Lat: 48.2, Lng: 11.6},
			HasHeartrate:       true,
		}
	}
	// Envelope pinned to the query window edges so no remote calls happen.
	f.activities.rows = []domain.ActivityRow{
		mk(1, 100, "2024-01-01"),
		mk(2, 101, "2024-01-15"),
		mk(3, 102, "2024-02-01"),
	}
	f.activities.timeStreams[2] = &domain.TimeStreamRow{ID: 1, ActivityID: 2, OriginalSize: 4, SeriesType: "distance", Data: []float64{0, 10, 20, 30}}
	f.activities.latlng[2] = &domain.LatLngStreamRow{ID: 1, ActivityID: 2, OriginalSize: 2, SeriesType: "distance", Data: []domain.LatLng{{Lat: 48.1, Lng: 11.5}, {Lat: 48.2, Lng: 11.6}}}
}

func (f *fixture) request(method, target string, withCookie bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if withCookie {
		req.AddCookie(&http.Cookie{Name: testCookieName, Value: "token-1"})
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestLoginReturnsAuthorizationURL(t *testing.T) {
	f := newFixture()

	rec := f.request(http.MethodGet, "/login", false)
	require.Equal(t, http.StatusOK, rec.Code)

	var body LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, f.remote.authURL, body.AuthorizationURL)
}

func TestOAuthCallbackSetsCookieAndRedirects(t *testing.T) {
	f := newFixture()

	rec := f.request(http.MethodGet, "/oauth/auth?code=abc", false)
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, testFrontendURL, rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, testCookieName, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestOAuthCallbackConsentDenied(t *testing.T) {
	f := newFixture()

	rec := f.request(http.MethodGet, "/oauth/auth?error=access_denied", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOAuthCallbackMissingCode(t *testing.T) {
	f := newFixture()

	rec := f.request(http.MethodGet, "/oauth/auth", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOAuthCallbackExchangeFailure(t *testing.T) {
	f := newFixture()
	f.remote.exchangeErr = errors.New("provider down")

	rec := f.request(http.MethodGet, "/oauth/auth?code=abc", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshReturnsNewExpiration(t *testing.T) {
	f := newFixture()
	f.seedSession()

	rec := f.request(http.MethodPost, "/oauth/refresh", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var body RefreshResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, time.Unix(1900000000, 0).UTC(), body.ExpirationDate)
}

func TestRefreshWithoutCookie(t *testing.T) {
	f := newFixture()

	rec := f.request(http.MethodPost, "/oauth/refresh", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetAthleteReturnsProfile(t *testing.T) {
	f := newFixture()
	f.seedSession()

	rec := f.request(http.MethodGet, "/athlete", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1234), body["id"])
	assert.Equal(t, "Ada", body["firstname"])
	assert.Equal(t, "Lovelace", body["lastname"])
	assert.Equal(t, "https://img.example/ada.jpg", body["profile_medium"])
}

func TestGetAthleteUnknownSession(t *testing.T) {
	f := newFixture()

	rec := f.request(http.MethodGet, "/athlete", true)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetActivitiesRejectsFutureBefore(t *testing.T) {
	f := newFixture()
	f.seedSession()

	future := time.Now().UTC().Add(48 * time.Hour).Format("2006-01-02")
	rec := f.request(http.MethodGet, "/activities?before="+future, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetActivitiesRejectsInvertedWindow(t *testing.T) {
	f := newFixture()
	f.seedSession()

	rec := f.request(http.MethodGet, "/activities?after=2024-02-01&before=2024-01-01", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetActivitiesRejectsMalformedTime(t *testing.T) {
	f := newFixture()
	f.seedSession()

	rec := f.request(http.MethodGet, "/activities?after=notadate", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetActivitiesReturnsStoredWindow(t *testing.T) {
	f := newFixture()
	f.seedSession()
	f.seedActivities()

	rec := f.request(http.MethodGet, "/activities?after=2024-01-01&before=2024-02-01", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	// Window endpoints are excluded, only the middle activity matches.
	require.Len(t, body, 1)
	assert.Equal(t, float64(101), body[0]["id"])
	assert.Equal(t, float64(1800), body[0]["moving_time"])
	assert.Equal(t, []interface{}{48.1, 11.5}, body[0]["start_latlng"])
	_, hasStream := body[0]["time_stream"]
	assert.False(t, hasStream)
}

func TestGetActivitiesDetailedIncludesStreams(t *testing.T) {
	f := newFixture()
	f.seedSession()
	f.seedActivities()

	rec := f.request(http.MethodGet, "/activities?after=2024-01-01&before=2024-02-01&detailed=true", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var body []ActivityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	require.NotNil(t, body[0].TimeStream)
	require.NotNil(t, body[0].LatLngStream)
	assert.Equal(t, int64(4), body[0].TimeStream.OriginalSize)
}

func TestGetActivitiesAppliesProcessor(t *testing.T) {
	f := newFixture()
	f.seedSession()
	f.seedActivities()

	rec := f.request(http.MethodGet, "/activities?after=2024-01-01&before=2024-02-01&detailed=true&process=decimate", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	stream := body[0]["time_stream"].(map[string]interface{})
	assert.Equal(t, []interface{}{float64(0), float64(20)}, stream["data"])
}

func TestGetActivitiesUnknownProcessor(t *testing.T) {
	f := newFixture()
	f.seedSession()
	f.seedActivities()

	rec := f.request(http.MethodGet, "/activities?after=2024-01-01&before=2024-02-01&detailed=true&process=nope", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetActivitiesRemoteFailure(t *testing.T) {
	f := newFixture()
	f.seedSession()
	f.remote.listErr = errors.New("upstream down")

	rec := f.request(http.MethodGet, "/activities?after=2024-01-01&before=2024-02-01", true)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
