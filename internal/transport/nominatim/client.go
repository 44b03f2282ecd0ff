// Package nominatim is a geocoding client for the OpenStreetMap Nominatim search API.
package nominatim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/slotdex/internal/domain"
	"github.com/kailas-cloud/slotdex/internal/metrics"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Config holds the geocoder settings.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Retries   int
	// RatePerSec caps outgoing requests; the public instance allows one per second.
	RatePerSec float64
	// BreakerFailures is the number of consecutive failures that opens the circuit.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	Backoff         time.Duration
	HTTPClient      *http.Client
	Logger          *zap.Logger
}

// Client implements domain.Geocoder.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
	timeout   time.Duration
	retries   int
	backoff   time.Duration
	limiter   *rate.Limiter
	cb        *gobreaker.CircuitBreaker[domain.Point]
	logger    *zap.Logger
}

// errRetryable marks failures worth another attempt (network errors, 429, 5xx).
var errRetryable = errors.New("retryable")

// New creates a Nominatim client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = time.Minute
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 250 * time.Millisecond
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	c := &Client{
		http:      cfg.HTTPClient,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		retries:   max(cfg.Retries, 0),
		backoff:   cfg.Backoff,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		logger:    cfg.Logger,
	}
	failures := cfg.BreakerFailures
	c.cb = gobreaker.NewCircuitBreaker[domain.Point](gobreaker.Settings{
		Name:        "nominatim",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrGeocodeNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Info("Circuit breaker state transition",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return c
}

// Geocode resolves name to the first matching place.
func (c *Client) Geocode(ctx context.Context, name string) (domain.Point, error) {
	start := time.Now()
	p, err := c.cb.Execute(func() (domain.Point, error) {
		return c.lookupWithRetry(ctx, name)
	})
	metrics.GeocodeRequestDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.GeocodeRequestsTotal.WithLabelValues("success").Inc()
		return p, nil
	case errors.Is(err, domain.ErrGeocodeNotFound):
		metrics.GeocodeRequestsTotal.WithLabelValues("not_found").Inc()
		return domain.Point{}, err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.GeocodeRequestsTotal.WithLabelValues("rejected").Inc()
		return domain.Point{}, fmt.Errorf("%w: %w", domain.ErrGeocoderUnavailable, err)
	default:
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return domain.Point{}, err
	}
}

// HealthCheck reports the provider unavailable while the circuit is open.
func (c *Client) HealthCheck(_ context.Context) error {
	if c.cb.State() == gobreaker.StateOpen {
		return fmt.Errorf("%w: circuit open", domain.ErrGeocoderUnavailable)
	}
	return nil
}

func (c *Client) lookupWithRetry(ctx context.Context, name string) (domain.Point, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return domain.Point{}, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}
		p, err := c.lookup(ctx, name)
		if err == nil || !errors.Is(err, errRetryable) {
			return p, err
		}
		lastErr = err
		c.logger.Debug("Geocoding attempt failed", zap.String("location", name), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return domain.Point{}, fmt.Errorf("%w: %w", domain.ErrGeocoderUnavailable, lastErr)
}

// place is one Nominatim search hit. Coordinates come back as strings.
type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (c *Client) lookup(ctx context.Context, name string) (domain.Point, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Point{}, fmt.Errorf("rate limit wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("q", name)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return domain.Point{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Point{}, fmt.Errorf("geocode request: %w: %w", errRetryable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Point{}, fmt.Errorf("read response: %w: %w", errRetryable, err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return domain.Point{}, fmt.Errorf("geocode status %d: %w", resp.StatusCode, errRetryable)
	case resp.StatusCode != http.StatusOK:
		return domain.Point{}, fmt.Errorf("%w: geocode status %d", domain.ErrGeocoderUnavailable, resp.StatusCode)
	}

	var places []place
	if err := json.Unmarshal(body, &places); err != nil {
		return domain.Point{}, fmt.Errorf("%w: decode response: %w", domain.ErrGeocoderUnavailable, err)
	}
	if len(places) == 0 {
		return domain.Point{}, fmt.Errorf("%w: %s", domain.ErrGeocodeNotFound, name)
	}
	lat, errLat := strconv.ParseFloat(places[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(places[0].Lon, 64)
	if errLat != nil || errLon != nil {
		return domain.Point{}, fmt.Errorf("%w: bad coordinates %q,%q", domain.ErrGeocoderUnavailable, places[0].Lat, places[0].Lon)
	}
	return domain.Point{Lat: lat, Lon: lon}, nil
}
