package cloudstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"
)

// maxErrorBody bounds how much of an error response is kept for the message.
const maxErrorBody = 512

// Set overwrites the document at path with value.
//
// A nil value is written as JSON null, which the store treats as "no value"
// and which readers should treat as unknown.
//
// Parameters:
//   - ctx: Bounds the request
//   - path: Slash-separated document path, e.g. "/notifications"
//   - value: Any JSON-encodable value
//
// Returns:
//   - error: ErrNotConnected, ErrInvalidPath, ErrUnavailable (breaker open)
//     or ErrWriteFailed
//
// Example:
//
//	err := client.Set(ctx, "/notifications", "Door opened successfully!")
func (c *Client) Set(ctx context.Context, path string, value any) error {
	return c.write(ctx, http.MethodPut, path, value)
}

// Update overwrites each named child of path in a single request, leaving
// other children untouched. A nil field value clears that child.
//
// Example:
//
//	err := client.Update(ctx, "/sensors", map[string]any{"temperature": 21.5, "gas": false})
func (c *Client) Update(ctx context.Context, path string, fields map[string]any) error {
	for key := range fields {
		if err := validateKey(key); err != nil {
			return err
		}
	}
	return c.write(ctx, http.MethodPatch, path, fields)
}

func (c *Client) write(ctx context.Context, method, path string, value any) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	endpoint, err := c.endpoint(path)
	if err != nil {
		return err
	}

	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encoding value: %w", ErrWriteFailed, err)
	}

	_, err = c.breaker.Execute(func() (any, error) {
		return nil, c.do(ctx, method, endpoint.String(), body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, redact(err, c.token))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s: %s", ErrWriteFailed, resp.Status, strings.TrimSpace(string(detail)))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// endpoint builds <base>/<path>.json?auth=<token>.
func (c *Client) endpoint(path string) (*url.URL, error) {
	clean := strings.Trim(path, "/")
	if clean == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	for _, segment := range strings.Split(clean, "/") {
		if err := validateKey(segment); err != nil {
			return nil, err
		}
	}

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + clean + ".json"
	if c.token != "" {
		q := u.Query()
		q.Set("auth", c.token)
		u.RawQuery = q.Encode()
	}
	return &u, nil
}

// validateKey rejects keys containing characters the database forbids.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidPath)
	}
	if strings.ContainsAny(key, ".$#[]/") {
		return fmt.Errorf("%w: key %q contains a reserved character", ErrInvalidPath, key)
	}
	return nil
}
