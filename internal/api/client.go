package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"attendance-portal/internal/events"
	"attendance-portal/internal/metrics"
)

const maxResponseBytes = 4 << 20

// Client calls the attendance backend REST API.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	events    events.Publisher
	log       *zap.Logger
	sessionID string
	token     string
}

// Option configures a Client.
type Option func(*Client)

// WithEvents sets the publisher notified when the backend rejects a token.
func WithEvents(p events.Publisher) Option {
	return func(c *Client) { c.events = p }
}

// WithLogger sets the client logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a client with the given request timeout.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithSession returns a copy of the client that sends token as a bearer credential.
// A 401 on any call made through the copy publishes an AuthExpired event for sessionID.
func (c *Client) WithSession(sessionID, token string) *Client {
	cp := *c
	cp.sessionID = sessionID
	cp.token = token
	return &cp
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	return c.do(ctx, endpoint, http.MethodGet, path, query, nil, out)
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, query url.Values, body, out any) error {
	start := time.Now()
	status := "network"
	defer func() {
		metrics.UpstreamRequests.WithLabelValues(endpoint, status).Inc()
		metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			status = "cancelled"
			return ctx.Err()
		}
		return &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}
	var env envelope
	var decodeErr error
	if len(bytes.TrimSpace(raw)) > 0 {
		decodeErr = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode >= 300 {
		code := resp.StatusCode
		if env.StatusCode != 0 {
			code = env.StatusCode
		}
		apiErr := newStatusError(code, env.Message)
		if apiErr.Kind == KindUnauthorized && c.token != "" {
			c.expire(ctx)
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, decodeErr)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s data: %w", endpoint, err)
		}
	}
	return nil
}

// expire tells subscribers the session's token is no longer accepted.
func (c *Client) expire(ctx context.Context) {
	if c.events == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	err := c.events.Publish(pubCtx, events.Event{Type: events.AuthExpired, SessionID: c.sessionID, Token: c.token})
	if err != nil {
		c.log.Warn("publish auth expired failed", zap.String("session", c.sessionID), zap.Error(err))
	}
}

func listQuery(p ListParams) url.Values {
	q := url.Values{}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Department != "" {
		q.Set("department", p.Department)
	}
	if p.Year > 0 {
		q.Set("year", strconv.Itoa(p.Year))
	}
	if p.Section != "" {
		q.Set("section", p.Section)
	}
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	q.Set("limit", strconv.Itoa(limit))
	if p.Skip > 0 {
		q.Set("skip", strconv.Itoa(p.Skip))
	}
	return q
}
