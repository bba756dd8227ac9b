package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/therunninggame/backend/internal/logger"
	logicv1 "github.com/therunninggame/backend/internal/logic/v1"
	"github.com/therunninggame/backend/middleware"
)

const defaultQueryWindow = 4 * 7 * 24 * time.Hour

// Handler groups the HTTP handlers of API v1.
// Dependencies are injected via the constructor — no global state.
type Handler struct {
	sessions *logicv1.SessionService
	sync     *logicv1.SyncService

	cookieName  string
	frontendURL string
}

// NewHandler creates a new Handler.
func NewHandler(sessions *logicv1.SessionService, sync *logicv1.SyncService, cookieName, frontendURL string) *Handler {
	return &Handler{
		sessions:    sessions,
		sync:        sync,
		cookieName:  cookieName,
		frontendURL: frontendURL,
	}
}

// RegisterRoutes registers all API routes on the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/login", h.Login)
	rg.GET("/oauth/auth", h.OAuthCallback)
	rg.POST("/oauth/refresh", h.Refresh)
	rg.GET("/athlete", h.GetAthlete)
	rg.GET("/activities", h.GetActivities)
}

// Login returns the provider consent-screen URL.
func (h *Handler) Login(c *gin.Context) {
	c.JSON(http.StatusOK, LoginResponse{AuthorizationURL: h.sessions.AuthorizationURL()})
}

// OAuthCallback handles the provider redirect: it exchanges the
// authorization code, creates a session, sets the session cookie and sends
// the user back to the frontend.
func (h *Handler) OAuthCallback(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.oauth_callback", trace.WithAttributes(
		attribute.String("layer", "web"),
	))
	defer span.End()

	log := logger.FromContext(ctx)

	if errParam := c.Query("error"); errParam != "" {
		log.Warn().Str("error", errParam).Msg("Consent screen returned an error")
		c.JSON(http.StatusUnauthorized, errorBody("authorization denied: "+errParam))
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, errorBody("missing authorization code"))
		return
	}

	session, err := h.sessions.Exchange(ctx, code)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Msg("Code exchange failed")
		h.writeError(c, err)
		return
	}

	h.setSessionCookie(c, session.SessionToken)
	c.Redirect(http.StatusTemporaryRedirect, h.frontendURL)
}

// Refresh exchanges the session's refresh token for fresh credentials and
// issues a new session cookie.
func (h *Handler) Refresh(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.refresh", trace.WithAttributes(
		attribute.String("layer", "web"),
	))
	defer span.End()

	token, ok := h.sessionToken(c)
	if !ok {
		return
	}

	session, err := h.sessions.Refresh(ctx, token)
	if err != nil {
		span.RecordError(err)
		logger.FromContext(ctx).Error().Err(err).Msg("Session refresh failed")
		h.writeError(c, err)
		return
	}

	h.setSessionCookie(c, session.SessionToken)
	c.JSON(http.StatusOK, RefreshResponse{
		Success:        true,
		ExpirationDate: time.Unix(session.ExpiresAt, 0).UTC(),
	})
}

// GetAthlete returns the profile of the session's user.
func (h *Handler) GetAthlete(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.get_athlete", trace.WithAttributes(
		attribute.String("layer", "web"),
	))
	defer span.End()

	token, ok := h.sessionToken(c)
	if !ok {
		return
	}

	user, err := h.sessions.GetUser(ctx, token)
	if err != nil {
		span.RecordError(err)
		logger.FromContext(ctx).Error().Err(err).Msg("Athlete lookup failed")
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, athleteResponseFromUser(user))
}

// GetActivities ensures the requested window is cached locally and returns
// it from storage. Defaults: after = now - 4 weeks, before = now.
func (h *Handler) GetActivities(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.get_activities", trace.WithAttributes(
		attribute.String("layer", "web"),
	))
	defer span.End()

	token, ok := h.sessionToken(c)
	if !ok {
		return
	}

	now := time.Now().UTC()
	after, err := parseTimeParam(c.Query("after"), now.Add(-defaultQueryWindow))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("malformed after parameter: "+err.Error()))
		return
	}
	before, err := parseTimeParam(c.Query("before"), now)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("malformed before parameter: "+err.Error()))
		return
	}
	if before.After(now) {
		c.JSON(http.StatusBadRequest, errorBody("before must be earlier than current time"))
		return
	}
	if !after.Before(before) {
		c.JSON(http.StatusBadRequest, errorBody("after must be earlier than before"))
		return
	}
	detailed := c.Query("detailed") == "true"

	rows, err := h.sync.GetActivities(ctx, token, after, before, detailed)
	if err != nil {
		span.RecordError(err)
		logger.FromContext(ctx).Error().Err(err).Msg("Activity query failed")
		h.writeError(c, err)
		return
	}

	resp, err := activitiesResponse(rows, detailed, c.Query("process"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	span.SetAttributes(attribute.Int("activities.count", len(resp)))
	c.JSON(http.StatusOK, resp)
}

// sessionToken reads the session cookie; a missing cookie ends the request
// with 401.
func (h *Handler) sessionToken(c *gin.Context) (string, bool) {
	token, err := c.Cookie(h.cookieName)
	if err != nil || token == "" {
		c.JSON(http.StatusUnauthorized, errorBody("missing session cookie"))
		return "", false
	}
	return token, true
}

func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	c.SetCookie(h.cookieName, token, 0, "/", "", false, false)
}

// writeError maps the logic-layer error taxonomy to HTTP statuses.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, logicv1.ErrRemoteAuth):
		c.JSON(http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, logicv1.ErrNoValidCredential),
		errors.Is(err, logicv1.ErrSessionNotFound):
		c.JSON(http.StatusUnauthorized, errorBody(err.Error()))
	case errors.Is(err, logicv1.ErrUserNotFound):
		c.JSON(http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, logicv1.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, errorBody(err.Error()))
	case errors.Is(err, logicv1.ErrRemoteFetch):
		c.JSON(http.StatusBadGateway, errorBody(err.Error()))
	case errors.Is(err, logicv1.ErrSyncWrite):
		c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, errorBody("internal server error"))
	}
}

func parseTimeParam(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("expected RFC3339 or YYYY-MM-DD")
}

func errorBody(detail string) gin.H {
	return gin.H{"detail": detail}
}
