// Package line talks to the LINE Messaging API: webhook signature validation
// on the way in, reply delivery with bounded retry on the way out.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/chiayulin/mindcoach/backend/internal/config"
)

const replyPath = "/v2/bot/message/reply"

// StatusError captures a non-2xx response from the reply endpoint so the
// retry policy can classify it without string matching.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("line: reply endpoint returned %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the status is worth retrying. Rate limiting and
// server-side errors are; everything else (auth failure, bad request, expired
// or already-consumed reply token) fails immediately.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client posts reply messages addressed by single-use reply tokens.
type Client struct {
	baseURL      string
	channelToken string
	httpClient   *http.Client
	maxRetries   int
	backoff      time.Duration
}

// NewClient builds a reply client from the immutable channel configuration.
func NewClient(cfg config.LineConfig) *Client {
	return &Client{
		baseURL:      cfg.APIBaseURL,
		channelToken: cfg.ChannelToken,
		httpClient:   &http.Client{Timeout: cfg.ReplyTimeout},
		maxRetries:   cfg.MaxRetries,
		backoff:      cfg.RetryBackoff,
	}
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []textMessage `json:"messages"`
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Reply delivers one text message for the given reply token. Transient
// failures are retried up to the configured limit with linearly increasing
// backoff; non-transient failures return immediately. The reply token is
// single-use by platform contract, so a consumed token comes back as a 4xx
// and is never retried.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	attempts := c.maxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.postReply(ctx, replyToken, text)
		if err == nil {
			if attempt > 1 {
				log.Printf("[line] reply delivered on attempt %d", attempt)
			}
			return nil
		}

		if !isTransient(err) {
			return fmt.Errorf("line: reply delivery failed: %w", err)
		}

		lastErr = err
		if attempt < attempts {
			delay := c.backoff * time.Duration(attempt)
			log.Printf("[line] transient reply failure (attempt %d/%d), retrying in %s: %v", attempt, attempts, delay, err)
			select {
			case <-ctx.Done():
				return fmt.Errorf("line: reply aborted while waiting to retry: %w", ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("line: reply retries exhausted after %d attempts: %w", attempts, lastErr)
}

func (c *Client) postReply(ctx context.Context, replyToken, text string) error {
	body, err := json.Marshal(replyRequest{
		ReplyToken: replyToken,
		Messages:   []textMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return fmt.Errorf("marshal reply request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+replyPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.channelToken)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post reply: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &StatusError{StatusCode: res.StatusCode, Body: string(buf)}
	}

	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}

// isTransient classifies delivery errors in one place: status-coded responses
// decide by status class, transport-level failures (timeouts, resets) count
// as transient, a cancelled context does not.
func isTransient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
