package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// SampleTime is a sample timestamp as microphone clients send it: an RFC 3339
// string or Unix milliseconds.
type SampleTime time.Time

func (t *SampleTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var ts Timestamp
		if err := ts.UnmarshalJSON(data); err != nil {
			return err
		}
		*t = SampleTime(ts)
		return nil
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return err
	}
	*t = SampleTime(time.UnixMilli(ms).UTC())
	return nil
}

// NoiseSampleRequest is the body of POST /api/noise.
type NoiseSampleRequest struct {
	Timestamp *SampleTime `json:"ts" validate:"required"`
	DBSPL     *float64    `json:"dbspl" validate:"required,gte=0,lte=194"`
	Location  string      `json:"location" validate:"max=120"`
}

// NoiseSampleAccepted acknowledges a stored sample.
type NoiseSampleAccepted struct {
	TotalSamples int `json:"totalSamples"`
}

// NoiseStats is the body of GET /api/noise/stats.
type NoiseStats struct {
	Location string  `json:"location"`
	Samples  int     `json:"samples"`
	Leq      float64 `json:"leq"`
	Lmax     float64 `json:"lmax"`
	Lmin     float64 `json:"lmin"`
	L10      float64 `json:"l10"`
	L90      float64 `json:"l90"`
}

// NoiseAssessment is the body of GET /api/noise/ai and /api/noise/trends.
type NoiseAssessment struct {
	Location string     `json:"location"`
	Stats    NoiseStats `json:"stats"`
	Advice   string     `json:"advice"`
}

// CurrentNoise is the body of GET /api/noise/current.
type CurrentNoise struct {
	Location     string    `json:"location"`
	CurrentNoise float64   `json:"currentNoise"`
	Timestamp    Timestamp `json:"timestamp"`
	Advice       string    `json:"advice"`
}
