// Package waqi provides a client for the World Air Quality Index geo feed.
package waqi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ecosphere/ecosphere/internal/airquality"
	"github.com/ecosphere/ecosphere/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the WAQI API base URL.
	DefaultBaseURL = "https://api.waqi.info"

	// ProviderName identifies this provider.
	ProviderName = "waqi"

	// DemoToken is WAQI's shared demo token.
	DemoToken = "demo"
)

// ErrFeedUnavailable is returned when the feed answers with a non-ok status.
var ErrFeedUnavailable = errors.New("waqi feed unavailable")

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the WAQI client.
type ClientConfig struct {
	Token   string
	BaseURL string

	// HTTPClient defaults to a resilient client named ProviderName.
	HTTPClient HTTPDoer
}

// Client is a WAQI geo-feed client.
type Client struct {
	token      string
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new WAQI client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	token := cfg.Token
	if token == "" {
		token = DemoToken
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		token:      token,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

type feedResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type feedData struct {
	AQI  json.RawMessage      `json:"aqi"`
	IAQI map[string]iaqiValue `json:"iaqi"`
}

type iaqiValue struct {
	V *float64 `json:"v"`
}

// CurrentReading fetches the nearest station reading for a coordinate.
func (c *Client) CurrentReading(ctx context.Context, lat, lon float64) (*airquality.Reading, error) {
	endpoint := fmt.Sprintf("%s/feed/geo:%s;%s/?token=%s",
		c.baseURL,
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lon, 'f', -1, 64),
		url.QueryEscape(c.token),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if feed.Status != "ok" {
		return nil, fmt.Errorf("%w: status %q", ErrFeedUnavailable, feed.Status)
	}

	var data feedData
	if err := json.Unmarshal(feed.Data, &data); err != nil {
		return nil, fmt.Errorf("decoding feed data: %w", err)
	}

	aqi, err := parseAQI(data.AQI)
	if err != nil {
		return nil, err
	}

	reading := airquality.NewReading(aqi, data.pollutants())
	return &reading, nil
}

// parseAQI accepts a JSON number or a numeric string. Stations without a
// current value report "-", which is rejected.
func parseAQI(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("%w: aqi missing", airquality.ErrInvalidReading)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("%w: aqi %s", airquality.ErrInvalidReading, string(raw))
		}
		n = json.Number(strings.TrimSpace(s))
	}

	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: aqi %q is not numeric", airquality.ErrInvalidReading, n.String())
	}
	if f < 0 || f > airquality.MaxAQI {
		return 0, fmt.Errorf("%w: aqi %v out of range", airquality.ErrInvalidReading, f)
	}
	return int(f + 0.5), nil
}

func (d feedData) pollutants() airquality.Pollutants {
	p := airquality.DefaultPollutants
	set := func(key string, dst *float64) {
		if v, ok := d.IAQI[key]; ok && v.V != nil {
			*dst = *v.V
		}
	}
	set("pm25", &p.PM25)
	set("pm10", &p.PM10)
	set("o3", &p.O3)
	set("no2", &p.NO2)
	set("so2", &p.SO2)
	set("co", &p.CO)
	return p
}
