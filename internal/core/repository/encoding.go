package repository

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/therunninggame/backend/internal/core/domain"
)

// Wire encodings for stream columns. Coordinates serialize as "lat,lng",
// numeric series as comma-joined floats, coordinate series as
// semicolon-joined pairs. Decode(Encode(x)) must reproduce x exactly.

func encodeLatLng(p *domain.LatLng) *string {
	if p == nil {
		return nil
	}
	s := strconv.FormatFloat(p.Lat, 'g', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'g', -1, 64)
	return &s
}

func decodeLatLng(s *string) (*domain.LatLng, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	lat, lng, ok := strings.Cut(*s, ",")
	if !ok {
		return nil, fmt.Errorf("malformed latlng value %q", *s)
	}
	latF, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed latitude in %q: %w", *s, err)
	}
	lngF, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed longitude in %q: %w", *s, err)
	}
	return &domain.LatLng{Lat: latF, Lng: lngF}, nil
}

func encodeFloatSeries(data []float64) string {
	parts := make([]string, len(data))
	for i, v := range data {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func decodeFloatSeries(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	data := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed series element %q: %w", part, err)
		}
		data[i] = v
	}
	return data, nil
}

func encodeLatLngSeries(data []domain.LatLng) string {
	parts := make([]string, len(data))
	for i, p := range data {
		parts[i] = strconv.FormatFloat(p.Lat, 'g', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'g', -1, 64)
	}
	return strings.Join(parts, ";")
}

func decodeLatLngSeries(s string) ([]domain.LatLng, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ";")
	data := make([]domain.LatLng, len(parts))
	for i, part := range parts {
		p, err := decodeLatLng(&part)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("empty latlng element at index %d", i)
		}
		data[i] = *p
	}
	return data, nil
}
