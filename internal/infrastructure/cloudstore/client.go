package cloudstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/nerrad567/entryguard/internal/infrastructure/config"
)

// Default timeouts for cloud store operations.
const (
	defaultPingTimeout = 5 * time.Second

	// defaultBreakerInterval clears the breaker's failure counts while closed.
	defaultBreakerInterval = 60 * time.Second
)

// Client writes documents to a Firebase Realtime Database over its REST API.
//
// Every write goes through a circuit breaker so a dead backend costs one
// fast failure per call instead of a full timeout.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	token      string
	cfg        config.CloudStoreConfig
	breaker    *gobreaker.CircuitBreaker

	connected bool
	mu        sync.RWMutex
}

// New builds a client without touching the network.
//
// The client is open for writes straight away; an unreachable store shows up
// as failed writes and, after enough of them, an open breaker.
//
// Returns:
//   - *Client: Open for writes
//   - error: ErrDisabled or ErrInvalidURL
func New(cfg config.CloudStoreConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	base, err := url.Parse(strings.TrimRight(cfg.DatabaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, cfg.DatabaseURL)
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}

	fails := cfg.Breaker.ConsecutiveFailures
	if fails < 1 {
		fails = 1
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		token:      cfg.AuthToken,
		cfg:        cfg,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     "cloudstore",
			Interval: defaultBreakerInterval,
			Timeout:  time.Duration(cfg.Breaker.OpenSeconds) * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(fails)
			},
		}),
		connected: true,
	}, nil
}

// Connect builds a client and probes the database until it answers.
//
// The probe uses exponential backoff bounded by cfg.Connect. An HTTP 401 or
// 403 is permanent and ends the retries immediately.
//
// Parameters:
//   - ctx: Bounds the whole probe
//   - cfg: Cloud store configuration from config.yaml
//
// Returns:
//   - *Client: Ready for writes
//   - error: ErrDisabled, ErrInvalidURL, or ErrConnectionFailed wrapping the
//     last probe error (ErrAuthRejected when the token was refused)
func Connect(ctx context.Context, cfg config.CloudStoreConfig) (*Client, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Probe(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Probe reads the notification path with backoff until the store answers.
//
// Returns:
//   - error: ErrConnectionFailed wrapping the last probe error
func (c *Client) Probe(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = time.Duration(c.cfg.Connect.MaxElapsedSec) * time.Second
	maxRetries := c.cfg.Connect.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	err := backoff.Retry(func() error {
		return c.ping(ctx)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(maxRetries-1)), ctx))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return nil
}

// ping performs a shallow read of the notification path.
func (c *Client) ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	endpoint, err := c.endpoint(c.cfg.NotificationPath)
	if err != nil {
		return backoff.Permanent(err)
	}
	q := endpoint.Query()
	q.Set("shallow", "true")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(pingCtx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return backoff.Permanent(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return redact(err, c.token)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return backoff.Permanent(fmt.Errorf("%w: %s", ErrAuthRejected, resp.Status))
	case resp.StatusCode >= 300:
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return nil
}

// Close marks the client closed. Further writes fail with ErrNotConnected.
func (c *Client) Close() error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	c.httpClient.CloseIdleConnections()
	return nil
}

// HealthCheck verifies the store is reachable.
//
// An open breaker is reported as unhealthy without touching the network.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if c.breaker.State() == gobreaker.StateOpen {
		return ErrUnavailable
	}
	if err := c.ping(ctx); err != nil {
		return fmt.Errorf("cloudstore health check failed: %w", err)
	}
	return nil
}

// IsConnected reports whether the client is open for writes. It turns false
// only on Close; reachability is tracked by the breaker.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// BreakerState returns the circuit breaker state name ("closed", "half-open", "open").
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// Paths returns the configured notification and sensor document paths.
func (c *Client) Paths() (notification, sensors string) {
	return c.cfg.NotificationPath, c.cfg.SensorPath
}

// redact strips the auth token from transport errors, which embed the URL.
func redact(err error, token string) error {
	if token == "" {
		return err
	}
	msg := strings.ReplaceAll(err.Error(), url.QueryEscape(token), "REDACTED")
	return errors.New(strings.ReplaceAll(msg, token, "REDACTED"))
}
