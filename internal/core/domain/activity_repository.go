package domain

import (
	"context"
	"time"
)

// LatLng is a geographic coordinate pair.
type LatLng struct {
	Lat float64
	Lng float64
}

// ActivityRow is one ingested activity. Rows are immutable after insert;
// re-ingest of the same (UserID, ActivityID) pair must not duplicate.
type ActivityRow struct {
	ID         int64
	ActivityID int64
	UserID     int

	Name               string
	Distance           float64
	MovingTime         time.Duration
	TotalElevationGain float64
	StartDate          time.Time
	StartLatLng        *LatLng
	EndLatLng          *LatLng
	HasHeartrate       bool
	Description        string
	LocationCity       string

	// Populated only on detailed range queries.
	TimeStream   *TimeStreamRow
	LatLngStream *LatLngStreamRow
}

// TimeStreamRow is the per-sample time series of an activity.
type TimeStreamRow struct {
	ID           int64
	ActivityID   int64
	OriginalSize int64
	SeriesType   string
	Data         []float64
}

// LatLngStreamRow is the per-sample coordinate series of an activity.
type LatLngStreamRow struct {
	ID           int64
	ActivityID   int64
	OriginalSize int64
	SeriesType   string
	Data         []LatLng
}

// ActivityRepository defines the data-access contract for activities and
// their streams. Stream inserts deliberately come after activity inserts:
// the stream foreign keys need the generated activity ids.
type ActivityRepository interface {
	// Timerange returns the earliest and latest activity start dates stored
	// for the user, both nil when the user has no activities yet. Both are
	// normalized to UTC.
	Timerange(ctx context.Context, userID int) (earliest, latest *time.Time, err error)

	// InsertActivities batch-inserts activities in one transaction and
	// returns the generated local ids aligned with the input slice. An id
	// of zero marks a row skipped because (user_id, activity_id) already
	// existed.
	InsertActivities(ctx context.Context, activities []ActivityRow) ([]int64, error)

	// InsertTimeStreams batch-inserts time streams in one transaction.
	// Each row must reference a valid local activity id.
	InsertTimeStreams(ctx context.Context, streams []TimeStreamRow) error

	// InsertLatLngStreams batch-inserts coordinate streams in one transaction.
	InsertLatLngStreams(ctx context.Context, streams []LatLngStreamRow) error

	// ListInRange returns the user's activities with after < start_date <
	// before, endpoints excluded. Streams are joined in only when detailed
	// is set.
	ListInRange(ctx context.Context, userID int, after, before time.Time, detailed bool) ([]ActivityRow, error)
}
