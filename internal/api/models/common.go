// Package models holds the JSON request and response bodies of the EcoSphere
// API and the validation that guards them.
package models

import (
	"encoding/json"
	"time"
)

// Location is a coordinate with an optional human-readable address.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   *string `json:"address,omitempty"`
}

// LocationRequest is a location as clients send it. Pointers keep a missing
// coordinate apart from 0, which is a valid latitude.
type LocationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
	Address   *string  `json:"address,omitempty" validate:"omitempty,max=300"`
}

// Timestamp serializes as a second-precision RFC 3339 string in UTC.
type Timestamp time.Time

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// ReverseGeocodeResponse is the body of GET /api/geocode/reverse.
type ReverseGeocodeResponse struct {
	Address string `json:"address"`
}
