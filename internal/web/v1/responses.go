package v1

import (
	"fmt"
	"time"

	"github.com/therunninggame/backend/internal/core/domain"
	"github.com/therunninggame/backend/internal/processors"
)

// LoginResponse carries the consent-screen URL.
type LoginResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// RefreshResponse reports the outcome of a session refresh.
type RefreshResponse struct {
	Success        bool      `json:"success"`
	ExpirationDate time.Time `json:"expiration_date"`
}

// AthleteResponse is the profile shape the frontend consumes.
type AthleteResponse struct {
	ID            int64  `json:"id"`
	Firstname     string `json:"firstname"`
	Lastname      string `json:"lastname"`
	Sex           string `json:"sex"`
	City          string `json:"city"`
	Country       string `json:"country"`
	ProfileMedium string `json:"profile_medium"`
}

// ActivityResponse mirrors the stravalib-derived field names the frontend
// was written against; durations are seconds, coordinates [lat, lng] pairs.
type ActivityResponse struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	Distance           float64         `json:"distance"`
	MovingTime         int64           `json:"moving_time"`
	TotalElevationGain float64         `json:"total_elevation_gain"`
	StartDate          time.Time       `json:"start_date"`
	StartLatLng        []float64       `json:"start_latlng,omitempty"`
	EndLatLng          []float64       `json:"end_latlng,omitempty"`
	HasHeartrate       bool            `json:"has_heartrate"`
	Description        string          `json:"description"`
	LocationCity       string          `json:"location_city"`
	TimeStream         *StreamResponse `json:"time_stream,omitempty"`
	LatLngStream       *StreamResponse `json:"latlng_stream,omitempty"`
}

// StreamResponse is one data stream of a detailed activity.
type StreamResponse struct {
	OriginalSize int64       `json:"original_size"`
	SeriesType   string      `json:"series_type"`
	Data         interface{} `json:"data"`
}

func athleteResponseFromUser(user *domain.UserRow) AthleteResponse {
	return AthleteResponse{
		ID:            user.AthleteID,
		Firstname:     user.Firstname,
		Lastname:      user.Lastname,
		Sex:           user.Sex,
		City:          user.City,
		Country:       user.Country,
		ProfileMedium: user.ProfileMedium,
	}
}

// activitiesResponse maps stored rows to the wire shape. When process names
// a registered capability, the time-stream series of detailed responses is
// run through that processor; stored data stays untouched.
func activitiesResponse(rows []domain.ActivityRow, detailed bool, process string) ([]ActivityResponse, error) {
	var proc processors.Processor
	if detailed && process != "" {
		p, err := processors.New(processors.Capability(process))
		if err != nil {
			return nil, fmt.Errorf("invalid process parameter: %w", err)
		}
		proc = p
	}

	resp := make([]ActivityResponse, len(rows))
	for i, row := range rows {
		resp[i] = ActivityResponse{
			ID:                 row.ActivityID,
			Name:               row.Name,
			Distance:           row.Distance,
			MovingTime:         int64(row.MovingTime / time.Second),
			TotalElevationGain: row.TotalElevationGain,
			StartDate:          row.StartDate,
			StartLatLng:        latLngToPair(row.StartLatLng),
			EndLatLng:          latLngToPair(row.EndLatLng),
			HasHeartrate:       row.HasHeartrate,
			Description:        row.Description,
			LocationCity:       row.LocationCity,
		}
		if !detailed {
			continue
		}
		if ts := row.TimeStream; ts != nil {
			data := ts.Data
			if proc != nil {
				data = proc.Process(data)
			}
			resp[i].TimeStream = &StreamResponse{
				OriginalSize: ts.OriginalSize,
				SeriesType:   ts.SeriesType,
				Data:         data,
			}
		}
		if ls := row.LatLngStream; ls != nil {
			pairs := make([][]float64, len(ls.Data))
			for j, p := range ls.Data {
				pairs[j] = []float64{p.Lat, p.Lng}
			}
			resp[i].LatLngStream = &StreamResponse{
				OriginalSize: ls.OriginalSize,
				SeriesType:   ls.SeriesType,
				Data:         pairs,
			}
		}
	}
	return resp, nil
}

func latLngToPair(p *domain.LatLng) []float64 {
	if p == nil {
		return nil
	}
	return []float64{p.Lat, p.Lng}
}
