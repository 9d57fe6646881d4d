// Package notify posts job completion events to a configured webhook.
// Delivery is best effort: server and network errors are retried a few
// times, client errors are dropped immediately.
package notify

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// WebhookError represents a non-2xx response from the webhook endpoint.
type WebhookError struct {
	StatusCode int
	Body       string
}

func (e *WebhookError) Error() string {
	return fmt.Sprintf("webhook delivery failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx). Client errors (4xx)
// are considered permanent.
func (e *WebhookError) IsRetryable() bool {
	return e.StatusCode >= 500
}

type SegmentFailure struct {
	Index      int    `json:"index"`
	ExitCode   int    `json:"exit_code"`
	StderrTail string `json:"stderr_tail,omitempty"`
}

type JobEvent struct {
	JobID      string           `json:"job_id"`
	InstanceID string           `json:"instance_id,omitempty"`
	Status     string           `json:"status"`
	Succeeded  int              `json:"succeeded"`
	Failed     int              `json:"failed"`
	TotalBytes int64            `json:"total_bytes"`
	Outputs    []string         `json:"outputs,omitempty"`
	Failures   []SegmentFailure `json:"failures,omitempty"`
	FinishedAt time.Time        `json:"finished_at"`
}

type Notifier struct {
	url         string
	token       string
	instanceID  string
	httpClient  *http.Client
	logger      *slog.Logger
	maxAttempts int
	backoff     time.Duration
}

func New(url, token, instanceID string, logger *slog.Logger) *Notifier {
	return &Notifier{
		url:        url,
		token:      token,
		instanceID: instanceID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:      logger,
		maxAttempts: 3,
		backoff:     time.Second,
	}
}

// JobFinished delivers one event. Failures after the final attempt are
// logged and dropped.
func (n *Notifier) JobFinished(ctx context.Context, ev JobEvent) {
	if n == nil || n.url == "" {
		return
	}

	ev.InstanceID = n.instanceID
	if ev.FinishedAt.IsZero() {
		ev.FinishedAt = time.Now().UTC()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		n.logger.Error("failed to marshal webhook payload", "job_id", ev.JobID, "error", err)
		return
	}

	var lastErr error
	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		lastErr = n.post(ctx, body)
		if lastErr == nil {
			if attempt > 1 {
				n.logger.Info("webhook delivered after retry", "job_id", ev.JobID, "attempt", attempt)
			}
			return
		}

		var werr *WebhookError
		if errors.As(lastErr, &werr) && !werr.IsRetryable() {
			n.logger.Warn("webhook rejected, not retrying",
				"job_id", ev.JobID,
				"status", werr.StatusCode,
			)
			return
		}

		if attempt < n.maxAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(n.backoff * time.Duration(attempt)):
			}
		}
	}

	n.logger.Warn("webhook delivery failed", "job_id", ev.JobID, "error", lastErr)
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Vidsplit-Request-Id", requestID())
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &WebhookError{StatusCode: resp.StatusCode, Body: string(respBody)}
}

func requestID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
