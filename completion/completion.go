// Package completion sends rendered prompts to an OpenAI-compatible chat
// completions endpoint.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"whisperflow/session"
	"whisperflow/transcriber"
)

const (
	DefaultAttempts = 3
	DefaultBackoff  = time.Second
)

var ErrEmptyReply = errors.New("completion returned no choices")

type Config struct {
	BaseURL  string
	APIKey   string
	Attempts int
	// Backoff is the wait before the second attempt; it doubles after
	// every further failure.
	Backoff time.Duration
	Client  *transcriber.TracedClient
	Logger  *zerolog.Logger
}

type Client struct {
	url      string
	apiKey   string
	attempts int
	backoff  time.Duration
	http     *transcriber.TracedClient
	log      zerolog.Logger
}

func New(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = transcriber.DefaultBaseURL
	}
	c := &Client{
		url:      base + "/chat/completions",
		apiKey:   cfg.APIKey,
		attempts: cfg.Attempts,
		backoff:  cfg.Backoff,
		http:     cfg.Client,
		log:      zerolog.Nop(),
	}
	if c.attempts <= 0 {
		c.attempts = DefaultAttempts
	}
	if c.backoff <= 0 {
		c.backoff = DefaultBackoff
	}
	if c.http == nil {
		c.http = transcriber.NewTracedClient(cfg.Logger)
	}
	if cfg.Logger != nil {
		c.log = cfg.Logger.With().Str("component", "completion").Logger()
	}
	return c
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Complete satisfies session.Completer. Transient failures are retried
// with exponential backoff for as long as ctx allows.
func (c *Client) Complete(ctx context.Context, prompt string, req session.Request) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    []message{{Role: "user", Content: prompt}},
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", err
	}

	wait := c.backoff
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		text, err := c.once(ctx, payload, req.RequestID)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable(err) || attempt == c.attempts || ctx.Err() != nil {
			break
		}
		c.log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", wait).
			Str("request_id", req.RequestID).Msg("completion failed, retrying")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		wait *= 2
	}
	return "", lastErr
}

func (c *Client) once(ctx context.Context, payload []byte, requestID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		req.Header.Set(transcriber.RequestIDHeader, requestID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &transcriber.APIError{Status: resp.StatusCode, Body: string(resp.Body)}
	}
	var parsed chatResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return "", fmt.Errorf("completion response parse error: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyReply
	}
	c.log.Debug().Str("request_id", requestID).Dur("total", resp.Metrics.Total).
		Str("rate_limit", transcriber.RateLimit(resp.Header)).Msg("completed")
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *transcriber.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	// Network failures and malformed replies are worth another try.
	return true
}
