// Package v1 provides the session and sync business logic for API version 1.
//
// Error Handling:
// This package defines sentinel errors that represent the failure taxonomy of
// the service. They are wrapped with context using fmt.Errorf("%w") when
// returned from business logic methods, and the web layer switches on
// errors.Is to pick the HTTP status.
//
// Example Usage:
//
//	if session == nil {
//	    return nil, fmt.Errorf("resolve session: %w", ErrSessionNotFound)
//	}
//
// Error Checking (in handlers):
//
//	switch {
//	case errors.Is(err, logicv1.ErrRemoteAuth):
//	    c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
//	case errors.Is(err, logicv1.ErrNoValidCredential):
//	    c.JSON(http.StatusUnauthorized, gin.H{"detail": err.Error()})
//	default:
//	    c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
//	}
package v1

import "errors"

// Sentinel errors for session and sync operations.
var (
	// ErrRemoteAuth indicates the token exchange or refresh failed upstream.
	// HTTP Status: 400 Bad Request
	ErrRemoteAuth = errors.New("remote authorization failed")

	// ErrRemoteFetch indicates a remote activity or athlete data call failed.
	// HTTP Status: 502 Bad Gateway
	ErrRemoteFetch = errors.New("remote fetch failed")

	// ErrNoValidCredential indicates the session carries no usable access token.
	// HTTP Status: 401 Unauthorized
	ErrNoValidCredential = errors.New("no valid credential")

	// ErrSessionNotFound indicates the session token does not exist.
	// HTTP Status: 401 Unauthorized
	ErrSessionNotFound = errors.New("session not found")

	// ErrUserNotFound indicates no user exists for the session.
	// HTTP Status: 404 Not Found
	ErrUserNotFound = errors.New("user not found")

	// ErrStoreUnavailable indicates the persistent store failed on a read path.
	// HTTP Status: 503 Service Unavailable
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrSyncWrite indicates a persistence failure on the sync write path.
	// HTTP Status: 500 Internal Server Error
	ErrSyncWrite = errors.New("sync write failed")
)
