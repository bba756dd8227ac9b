package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/therunninggame/backend/internal/core/domain"
)

// PgxActivityRepository implements domain.ActivityRepository using pgxpool.
type PgxActivityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository creates a new PgxActivityRepository.
func NewActivityRepository(pool *pgxpool.Pool) *PgxActivityRepository {
	return &PgxActivityRepository{pool: pool}
}

// Timerange returns the earliest and latest start dates of the user's stored
// activities, both nil when the user has none. The sync layer treats this
// pair as the cached envelope.
func (r *PgxActivityRepository) Timerange(ctx context.Context, userID int) (*time.Time, *time.Time, error) {
	query := `SELECT min(start_date), max(start_date) FROM activities WHERE user_id = $1`

	var earliest, latest *time.Time
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&earliest, &latest); err != nil {
		return nil, nil, err
	}

	if earliest != nil {
		utc := earliest.UTC()
		earliest = &utc
	}
	if latest != nil {
		utc := latest.UTC()
		latest = &utc
	}
	return earliest, latest, nil
}

// InsertActivities batch-inserts activities inside one transaction. Rows
// whose (user_id, activity_id) pair already exists are skipped via ON
// CONFLICT DO NOTHING and reported with a zero id, which makes re-ingest of
// an overlapping window idempotent.
func (r *PgxActivityRepository) InsertActivities(ctx context.Context, activities []domain.ActivityRow) ([]int64, error) {
	if len(activities) == 0 {
		return nil, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO activities (activity_id, user_id, name, distance, moving_time_s,
			total_elevation_gain, start_date, start_latlng, end_latlng,
			has_heartrate, description, location_city)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, activity_id) DO NOTHING
		RETURNING id
	`

	ids := make([]int64, len(activities))
	for i, act := range activities {
		err := tx.QueryRow(ctx, query,
			act.ActivityID, act.UserID, act.Name, act.Distance,
			int64(act.MovingTime/time.Second), act.TotalElevationGain,
			act.StartDate.UTC(), encodeLatLng(act.StartLatLng), encodeLatLng(act.EndLatLng),
			act.HasHeartrate, act.Description, act.LocationCity,
		).Scan(&ids[i])
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				ids[i] = 0
				continue
			}
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// InsertTimeStreams batch-inserts time streams inside one transaction.
func (r *PgxActivityRepository) InsertTimeStreams(ctx context.Context, streams []domain.TimeStreamRow) error {
	if len(streams) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO time_streams (activity_id, original_size, series_type, data)
		VALUES ($1, $2, $3, $4)
	`
	for _, s := range streams {
		if _, err := tx.Exec(ctx, query, s.ActivityID, s.OriginalSize, s.SeriesType, encodeFloatSeries(s.Data)); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// InsertLatLngStreams batch-inserts coordinate streams inside one transaction.
func (r *PgxActivityRepository) InsertLatLngStreams(ctx context.Context, streams []domain.LatLngStreamRow) error {
	if len(streams) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO latlng_streams (activity_id, original_size, series_type, data)
		VALUES ($1, $2, $3, $4)
	`
	for _, s := range streams {
		if _, err := tx.Exec(ctx, query, s.ActivityID, s.OriginalSize, s.SeriesType, encodeLatLngSeries(s.Data)); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ListInRange returns activities with after < start_date < before, endpoints
// excluded. Streams are attached only when detailed is set; list views never
// pay for stream loading.
func (r *PgxActivityRepository) ListInRange(ctx context.Context, userID int, after, before time.Time, detailed bool) ([]domain.ActivityRow, error) {
	query := `
		SELECT id, activity_id, user_id, name, distance, moving_time_s,
			total_elevation_gain, start_date, start_latlng, end_latlng,
			has_heartrate, description, location_city
		FROM activities
		WHERE user_id = $1 AND start_date > $2 AND start_date < $3
		ORDER BY start_date
	`

	rows, err := r.pool.Query(ctx, query, userID, after.UTC(), before.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []domain.ActivityRow
	for rows.Next() {
		var (
			act                  domain.ActivityRow
			movingSeconds        int64
			startLatLng, endLatLng *string
		)
		if err := rows.Scan(
			&act.ID, &act.ActivityID, &act.UserID, &act.Name, &act.Distance,
			&movingSeconds, &act.TotalElevationGain, &act.StartDate,
			&startLatLng, &endLatLng, &act.HasHeartrate, &act.Description,
			&act.LocationCity,
		); err != nil {
			return nil, err
		}
		act.MovingTime = time.Duration(movingSeconds) * time.Second
		act.StartDate = act.StartDate.UTC()
		if act.StartLatLng, err = decodeLatLng(startLatLng); err != nil {
			return nil, err
		}
		if act.EndLatLng, err = decodeLatLng(endLatLng); err != nil {
			return nil, err
		}
		activities = append(activities, act)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !detailed || len(activities) == 0 {
		return activities, nil
	}
	if err := r.attachStreams(ctx, activities); err != nil {
		return nil, err
	}
	return activities, nil
}

func (r *PgxActivityRepository) attachStreams(ctx context.Context, activities []domain.ActivityRow) error {
	byID := make(map[int64]*domain.ActivityRow, len(activities))
	ids := make([]int64, len(activities))
	for i := range activities {
		byID[activities[i].ID] = &activities[i]
		ids[i] = activities[i].ID
	}

	timeQuery := `
		SELECT id, activity_id, original_size, series_type, data
		FROM time_streams
		WHERE activity_id = ANY($1)
	`
	rows, err := r.pool.Query(ctx, timeQuery, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			stream domain.TimeStreamRow
			data   string
		)
		if err := rows.Scan(&stream.ID, &stream.ActivityID, &stream.OriginalSize, &stream.SeriesType, &data); err != nil {
			return err
		}
		if stream.Data, err = decodeFloatSeries(data); err != nil {
			return err
		}
		if act, ok := byID[stream.ActivityID]; ok {
			s := stream
			act.TimeStream = &s
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	latlngQuery := `
		SELECT id, activity_id, original_size, series_type, data
		FROM latlng_streams
		WHERE activity_id = ANY($1)
	`
	rows, err = r.pool.Query(ctx, latlngQuery, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			stream domain.LatLngStreamRow
			data   string
		)
		if err := rows.Scan(&stream.ID, &stream.ActivityID, &stream.OriginalSize, &stream.SeriesType, &data); err != nil {
			return err
		}
		if stream.Data, err = decodeLatLngSeries(data); err != nil {
			return err
		}
		if act, ok := byID[stream.ActivityID]; ok {
			s := stream
			act.LatLngStream = &s
		}
	}
	return rows.Err()
}
