package strava

import (
	"encoding/json"
	"fmt"
	"time"
)

// Stream keys the client knows how to persist.
const (
	StreamKeyTime   = "time"
	StreamKeyLatLng = "latlng"
)

// TokenBundle is the credential set returned by a code exchange or refresh.
type TokenBundle struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	// ExpiresAt is a unix epoch, Strava convention.
	ExpiresAt int64 `json:"expires_at"`
}

// Athlete is the authenticated athlete's profile.
type Athlete struct {
	ID            int64  `json:"id"`
	Firstname     string `json:"firstname"`
	Lastname      string `json:"lastname"`
	Sex           string `json:"sex"`
	City          string `json:"city"`
	Country       string `json:"country"`
	ProfileMedium string `json:"profile_medium"`
}

// Activity is one activity summary as listed by the remote API.
type Activity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Distance           float64   `json:"distance"`
	MovingTime         int64     `json:"moving_time"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	StartDate          time.Time `json:"start_date"`
	StartLatLng        []float64 `json:"start_latlng"`
	EndLatLng          []float64 `json:"end_latlng"`
	HasHeartrate       bool      `json:"has_heartrate"`
	Description        string    `json:"description"`
	LocationCity       string    `json:"location_city"`
}

// Stream is one keyed data stream of an activity. Data stays raw because its
// element shape depends on the stream key.
type Stream struct {
	OriginalSize int64           `json:"original_size"`
	SeriesType   string          `json:"series_type"`
	Data         json.RawMessage `json:"data"`
}

// StreamSet is the key_by_type=true response shape: stream key -> stream.
type StreamSet map[string]Stream

// TimeSeries decodes the stream data as a numeric series.
func (s Stream) TimeSeries() ([]float64, error) {
	var data []float64
	if err := json.Unmarshal(s.Data, &data); err != nil {
		return nil, fmt.Errorf("decode time series: %w", err)
	}
	return data, nil
}

// LatLngSeries decodes the stream data as [lat, lng] pairs.
func (s Stream) LatLngSeries() ([][2]float64, error) {
	var data [][2]float64
	if err := json.Unmarshal(s.Data, &data); err != nil {
		return nil, fmt.Errorf("decode latlng series: %w", err)
	}
	return data, nil
}
