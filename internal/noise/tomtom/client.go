// Package tomtom reads road speeds from the TomTom Traffic Flow Segment API.
// Noise estimation uses the congestion those speeds imply.
package tomtom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ecosphere/ecosphere/internal/noise"
	"github.com/ecosphere/ecosphere/internal/provider/resilience"
)

const (
	ProviderName   = "tomtom"
	DefaultBaseURL = "https://api.tomtom.com"

	flowPath = "/traffic/services/4/flowSegmentData/relative0/10/json"
)

// ErrNoFlowData is returned when the response carries no flow segment.
var ErrNoFlowData = errors.New("no traffic flow data for location")

// HTTPDoer is satisfied by *http.Client and *resilience.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type ClientConfig struct {
	APIKey  string
	BaseURL string

	// HTTPClient defaults to a resilient client named ProviderName.
	HTTPClient HTTPDoer
}

// Client implements noise.Provider.
type Client struct {
	cfg ClientConfig
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}
	return &Client{cfg: cfg}
}

func (c *Client) Name() string {
	return ProviderName
}

// FlowSegment returns the speeds on the road segment nearest lat, lon at
// zoom 10.
func (c *Client) FlowSegment(ctx context.Context, lat, lon float64) (*noise.Flow, error) {
	q := url.Values{
		"point": {strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)},
		"key":   {c.cfg.APIKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+flowPath+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("tomtom request: %w", err)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tomtom: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tomtom: status %d", resp.StatusCode)
	}

	var body struct {
		Segment *struct {
			CurrentSpeed  float64 `json:"currentSpeed"`
			FreeFlowSpeed float64 `json:"freeFlowSpeed"`
		} `json:"flowSegmentData"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("tomtom decode: %w", err)
	}
	if body.Segment == nil {
		return nil, ErrNoFlowData
	}
	return &noise.Flow{CurrentSpeed: body.Segment.CurrentSpeed, FreeFlowSpeed: body.Segment.FreeFlowSpeed}, nil
}
