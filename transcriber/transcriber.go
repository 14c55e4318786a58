package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"whisperflow/audio"
	"whisperflow/encoder"
	"whisperflow/session"
)

const DefaultBaseURL = "https://api.openai.com/v1"

type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

// RateLimit formats the provider's remaining/limit request headers.
func RateLimit(h http.Header) string {
	return firstNonEmpty(h, "x-ratelimit-remaining-requests") + "/" + firstNonEmpty(h, "x-ratelimit-limit-requests")
}

// APIError is a non-2xx reply from the provider.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("api error %d: %s", e.Status, body)
}

// Retryable reports whether a request that failed this way may succeed
// if sent again.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

type Options struct {
	Model       string
	Language    string
	Temperature float64
	RequestID   string
}

type Result struct {
	Text      string
	Metrics   *NetworkMetrics
	RateLimit string
	Upload    int
	Encode    time.Duration
}

type Config struct {
	BaseURL string
	APIKey  string
	Format  encoder.Format
	Client  *TracedClient
	Logger  *zerolog.Logger
}

// Client talks to an OpenAI-compatible /audio/transcriptions endpoint.
type Client struct {
	url    string
	apiKey string
	format encoder.Format
	http   *TracedClient
	log    zerolog.Logger
}

func New(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	c := &Client{
		url:    base + "/audio/transcriptions",
		apiKey: cfg.APIKey,
		format: cfg.Format,
		http:   cfg.Client,
		log:    zerolog.Nop(),
	}
	if c.http == nil {
		c.http = NewTracedClient(cfg.Logger)
	}
	if cfg.Logger != nil {
		c.log = cfg.Logger.With().Str("component", "transcriber").Logger()
	}
	return c
}

func (c *Client) URL() string { return c.url }

// Warm pre-opens the provider connection.
func (c *Client) Warm() time.Duration { return c.http.Warm(c.url) }

func (c *Client) Do(ctx context.Context, buf *audio.Buffer, opts Options) (*Result, error) {
	up, err := encoder.Encode(buf, c.format)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", up.Filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(up.Data); err != nil {
		return nil, err
	}
	w.WriteField("model", opts.Model)
	w.WriteField("response_format", "json")
	w.WriteField("temperature", strconv.FormatFloat(opts.Temperature, 'f', -1, 64))
	if opts.Language != "" {
		w.WriteField("language", opts.Language)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if opts.RequestID != "" {
		req.Header.Set(RequestIDHeader, opts.RequestID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(resp.Body)}
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, fmt.Errorf("transcription response parse error: %w", err)
	}

	res := &Result{
		Text:      parsed.Text,
		Metrics:   resp.Metrics,
		RateLimit: RateLimit(resp.Header),
		Upload:    len(up.Data),
		Encode:    up.EncodeTime,
	}
	c.log.Debug().
		Str("request_id", opts.RequestID).
		Str("model", opts.Model).
		Dur("audio", buf.Duration()).
		Int("upload_bytes", res.Upload).
		Dur("encode", res.Encode).
		Dur("ttfb", res.Metrics.TTFB).
		Dur("total", res.Metrics.Total).
		Bool("conn_reused", res.Metrics.ConnReused).
		Str("rate_limit", res.RateLimit).
		Msg("transcribed")
	return res, nil
}

// Transcribe satisfies session.Transcriber.
func (c *Client) Transcribe(ctx context.Context, buf *audio.Buffer, req session.Request) (string, error) {
	res, err := c.Do(ctx, buf, Options{
		Model:       req.Model,
		Language:    req.Language,
		Temperature: req.Temperature,
		RequestID:   req.RequestID,
	})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
