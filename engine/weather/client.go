// Package weather fetches current conditions from an Open-Meteo compatible
// forecast endpoint.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/WessleyAI/citycast/engine/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// Client calls the weather endpoint. Safe for concurrent use.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit overrides the default outbound rate (5 req/s, burst 5).
func WithRateLimit(every time.Duration, burst int) Option {
	return func(c *Client) { c.rateLimiter = rate.NewLimiter(rate.Every(every), burst) }
}

// WithLogger sets the logger used for skipped responses.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for the given endpoint, e.g.
// https://api.open-meteo.com/v1/forecast. Query parameters already on the
// endpoint (an API key, say) are kept on every request.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("weather: parse %q: %w", baseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("weather: %q is not an absolute http(s) URL", baseURL)
	}
	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		rateLimiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// forecastResponse is the subset of the forecast body we read. Pointers
// distinguish missing fields from zero readings.
type forecastResponse struct {
	CurrentWeather *struct {
		Temperature *float64 `json:"temperature"`
		WindSpeed   *float64 `json:"windspeed"`
	} `json:"current_weather"`
}

// Current returns the current temperature and wind speed at the given
// coordinates. A non-200 response, or a body without both readings, yields
// (nil, nil): the caller skips the location. Transport and decode failures
// are returned as errors.
func (c *Client) Current(ctx context.Context, at domain.Coordinates) (*domain.Weather, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("weather: rate limit: %w", err)
	}

	u := *c.baseURL
	params := u.Query()
	params.Set("latitude", strconv.FormatFloat(at.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(at.Longitude, 'f', -1, 64))
	params.Set("current_weather", "true")
	u.RawQuery = params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("weather: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather: get %s: %w", c.baseURL.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("weather: unavailable", "status", resp.StatusCode,
			"latitude", at.Latitude, "longitude", at.Longitude)
		return nil, nil
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("weather: decode: %w", err)
	}
	cw := body.CurrentWeather
	if cw == nil || cw.Temperature == nil || cw.WindSpeed == nil {
		c.logger.Warn("weather: incomplete current_weather",
			"latitude", at.Latitude, "longitude", at.Longitude)
		return nil, nil
	}
	return &domain.Weather{Temperature: *cw.Temperature, WindSpeed: *cw.WindSpeed}, nil
}
