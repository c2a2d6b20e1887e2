package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// DefaultUserAgent identifies EcoSphere to upstream data providers. Nominatim
// rejects requests without one.
const DefaultUserAgent = "EcoSphere/1.0 (+https://ecosphere.dev)"

// ErrCircuitOpen is returned when the breaker rejects a call without trying it.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ServerError is a 5xx answer from an upstream.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("upstream returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ClientConfig configures a Client. Zero durations take the defaults of
// DefaultClientConfig.
type ClientConfig struct {
	// Name identifies the upstream in logs, breaker state and the registry.
	Name string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// MaxRetries counts extra attempts after a 5xx or transport error.
	MaxRetries uint64

	InitialInterval time.Duration
	MaxInterval     time.Duration

	CircuitBreaker *CircuitBreakerConfig

	// Registry, when set, gets the client on construction and the outcome of
	// every call.
	Registry *Registry

	// UserAgent is set on requests that do not carry one.
	UserAgent string

	// Logger receives one debug line per retried attempt.
	Logger *zerolog.Logger
}

// DefaultClientConfig is a single five second attempt behind the default breaker.
func DefaultClientConfig(name string) ClientConfig {
	cb := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         5 * time.Second,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		CircuitBreaker:  &cb,
		UserAgent:       DefaultUserAgent,
	}
}

// Client is an HTTP client for one upstream. Every attempt passes through
// the upstream's circuit breaker, and transient failures are retried with
// exponential backoff.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	log     zerolog.Logger
}

// NewClient builds a Client and registers it when cfg.Registry is set.
func NewClient(cfg ClientConfig) *Client {
	defaults := DefaultClientConfig(cfg.Name)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = defaults.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = defaults.MaxInterval
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.CircuitBreaker == nil {
		cfg.CircuitBreaker = defaults.CircuitBreaker
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: NewCircuitBreaker[*http.Response](*cfg.CircuitBreaker), //nolint:bodyclose // type parameter
		log:     zerolog.Nop(),
	}
	if cfg.Logger != nil {
		c.log = cfg.Logger.With().Str("upstream", cfg.Name).Logger()
	}
	if cfg.Registry != nil {
		cfg.Registry.Register(cfg.Name, c)
	}
	return c
}

func (c *Client) Name() string {
	return c.cfg.Name
}

// Do sends req. A 5xx answer counts against the breaker and is retried, but
// the last such response is still returned with a nil error once attempts
// run out so callers can report the status they saw.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	var last *http.Response

	operation := func() error {
		if last != nil {
			last.Body.Close()
			last = nil
		}
		resp, err := c.attempt(ctx, req)
		last = resp
		if errors.Is(err, ErrCircuitOpen) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.log.Debug().Err(err).Dur("retry_in", wait).Msg("upstream attempt failed")
	}

	err := backoff.RetryNotify(operation, c.retryPolicy(ctx), notify)
	c.record(err)

	switch {
	case err == nil:
		return last, nil
	case last != nil:
		return last, nil
	default:
		return nil, err
	}
}

func (c *Client) retryPolicy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.InitialInterval
	exp.MaxInterval = c.cfg.MaxInterval
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, c.cfg.MaxRetries), ctx)
}

// attempt makes one breaker-guarded call with a fresh copy of req.
func (c *Client) attempt(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // returned to caller
		out := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			out.Body = body
		}
		if out.Header.Get("User-Agent") == "" {
			out.Header.Set("User-Agent", c.cfg.UserAgent)
		}

		r, err := c.http.Do(out)
		if err != nil {
			return nil, err
		}
		if r.StatusCode >= http.StatusInternalServerError {
			return r, &ServerError{StatusCode: r.StatusCode}
		}
		return r, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	return resp, err
}

func (c *Client) record(err error) {
	if c.cfg.Registry == nil {
		return
	}
	if err != nil {
		c.cfg.Registry.RecordFailure(c.cfg.Name, err)
		return
	}
	c.cfg.Registry.RecordSuccess(c.cfg.Name)
}

func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.breaker.State()
}

func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.breaker.Counts()
}
