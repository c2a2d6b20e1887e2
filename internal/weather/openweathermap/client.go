// Package openweathermap reads current conditions from the OpenWeatherMap
// 2.5 API in metric units.
package openweathermap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ecosphere/ecosphere/internal/provider/resilience"
	"github.com/ecosphere/ecosphere/internal/weather"
)

const (
	ProviderName   = "openweathermap"
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	// maxVisibilityKm is what OpenWeatherMap reports for clear air. The
	// field is omitted in that case.
	maxVisibilityKm = 10.0
)

var ErrMissingAPIKey = errors.New("openweathermap api key not configured")

// HTTPDoer is satisfied by *http.Client and *resilience.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type ClientConfig struct {
	APIKey  string
	BaseURL string

	// HTTPClient defaults to a resilient client named ProviderName.
	HTTPClient HTTPDoer

	Logger zerolog.Logger
}

// Client implements weather.Provider.
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

// CurrentWeather returns the conditions at the station nearest lat, lon.
func (c *Client) CurrentWeather(ctx context.Context, lat, lon float64) (*weather.Reading, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(lat, lon), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("openweathermap request: %w", err)
	}
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openweathermap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openweathermap: status %d", resp.StatusCode)
	}

	var body currentConditions
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("openweathermap decode: %w", err)
	}

	c.cfg.Logger.Debug().
		Str("station", body.Name).
		Float64("temp_c", body.Main.Temp).
		Msg("fetched current weather")

	return body.reading(), nil
}

func (c *Client) endpoint(lat, lon float64) string {
	q := url.Values{
		"lat":   {strconv.FormatFloat(lat, 'f', 6, 64)},
		"lon":   {strconv.FormatFloat(lon, 'f', 6, 64)},
		"appid": {c.cfg.APIKey},
		"units": {"metric"},
	}
	return c.cfg.BaseURL + "/weather?" + q.Encode()
}

type currentConditions struct {
	Name string `json:"name"`
	Main struct {
		Temp     float64 `json:"temp"`
		Pressure float64 `json:"pressure"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Visibility *int `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Rain hourly `json:"rain"`
	Snow hourly `json:"snow"`
}

type hourly struct {
	OneHour float64 `json:"1h"`
}

// reading converts wind from m/s to km/h and visibility from m to km.
// Precipitation adds rain and snow water equivalent.
func (cc *currentConditions) reading() *weather.Reading {
	visibility := maxVisibilityKm
	if cc.Visibility != nil {
		visibility = oneDecimal(float64(*cc.Visibility) / 1000)
	}
	return &weather.Reading{
		Temperature:   oneDecimal(cc.Main.Temp),
		Humidity:      int(math.Round(cc.Main.Humidity)),
		WindSpeed:     oneDecimal(cc.Wind.Speed * 3.6),
		WindDirection: compass(cc.Wind.Deg),
		Pressure:      cc.Main.Pressure,
		Visibility:    visibility,
		Precipitation: oneDecimal(cc.Rain.OneHour + cc.Snow.OneHour),
	}
}

// compass folds a bearing into [0, 360).
func compass(deg float64) int {
	d := int(math.Round(deg)) % 360
	if d < 0 {
		d += 360
	}
	return d
}

func oneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
