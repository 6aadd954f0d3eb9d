// Package notifications pushes sync failure alerts to an ntfy topic.
package notifications

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"order_sheets_sync/internal/failure"
	"order_sheets_sync/internal/retry"
)

const (
	circuitThreshold = 5
	circuitCooldown  = 30 * time.Second
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	topic      string
	enabled    bool
	priority   string
	retry      retry.Config

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	circuitOpen bool
	totalSent   int64
	totalFailed int64

	pending sync.WaitGroup
}

type NotificationError struct {
	Type       string
	StatusCode int
	Underlying error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed [%s]: %v", e.Type, e.Underlying)
}

func (e *NotificationError) Unwrap() error { return e.Underlying }

func (e *NotificationError) IsRetryable() bool {
	switch e.Type {
	case "network", "server", "rate_limit":
		return true
	default:
		return false
	}
}

func NewClient(baseURL, topic string, enabled bool, priority string, retryConfig retry.Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		topic:      topic,
		enabled:    enabled,
		priority:   priority,
		retry:      retryConfig,
	}
}

// Send posts one message, retrying transient failures.
func (c *Client) Send(ctx context.Context, title, message string) error {
	if !c.enabled {
		log.Debug().Msg("Notifications disabled, skipping")
		return nil
	}
	if c.isCircuitOpen() {
		log.Warn().Msg("Circuit breaker open, skipping notification")
		return &NotificationError{Type: "circuit_open", Underlying: fmt.Errorf("circuit breaker is open")}
	}

	_, err := retry.WithRetry(ctx, c.retry, func(ctx context.Context) (struct{}, error) {
		err := c.post(ctx, title, message)
		if ne, ok := err.(*NotificationError); ok && !ne.IsRetryable() {
			return struct{}{}, retry.Permanent(err)
		}
		return struct{}{}, err
	})
	if err != nil {
		c.recordFailure()
		return err
	}
	c.recordSuccess()
	return nil
}

func (c *Client) post(ctx context.Context, title, message string) error {
	url := c.baseURL + "/" + c.topic
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(message))
	if err != nil {
		return &NotificationError{Type: "client", Underlying: err}
	}
	req.Header.Set("Content-Type", "text/plain")
	if title != "" {
		req.Header.Set("Title", title)
	}
	if c.priority != "" {
		req.Header.Set("Priority", c.priority)
	}
	req.Header.Set("Tags", "warning")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NotificationError{Type: "network", Underlying: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &NotificationError{
			Type:       categorizeHTTPError(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Underlying: fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
		}
	}
	log.Debug().Str("topic", c.topic).Int("status_code", resp.StatusCode).Msg("Notification sent")
	return nil
}

// NotifySyncFailure reports a failed pass in the background. The caller's
// cancellation does not stop the send.
func (c *Client) NotifySyncFailure(ctx context.Context, key string, err error) {
	if !c.enabled {
		return
	}
	ctx = context.WithoutCancel(ctx)
	title := fmt.Sprintf("Order %s failed to sync", key)
	message := fmt.Sprintf("%s\n%v", failure.KindOf(err), err)

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		if err := c.Send(ctx, title, message); err != nil {
			log.Warn().Err(err).Str("order_id", key).Msg("Failure notification not delivered")
		}
	}()
}

// Wait blocks until background notifications have finished.
func (c *Client) Wait() {
	c.pending.Wait()
}

// Metrics returns delivered and failed notification counts.
func (c *Client) Metrics() (sent, failed int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalSent, c.totalFailed
}

func (c *Client) isCircuitOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.circuitOpen && time.Since(c.lastFailure) > circuitCooldown {
		c.circuitOpen = false
		c.failures = 0
		log.Info().Msg("Circuit breaker moving to half-open state")
	}
	return c.circuitOpen
}

func (c *Client) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalSent++
	c.failures = 0
	c.circuitOpen = false
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalFailed++
	c.failures++
	c.lastFailure = time.Now()
	if c.failures >= circuitThreshold && !c.circuitOpen {
		c.circuitOpen = true
		log.Warn().Int("failures", c.failures).Msg("Circuit breaker opened due to consecutive failures")
	}
}

func categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return "auth"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limit"
	case statusCode >= 500:
		return "server"
	default:
		return "client"
	}
}
