package irisfast

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-social/internal/obslog"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// Client talks to the Iris HTTP API. Only idempotent calls are retried;
// a reply is sent at most once so a room never sees it twice.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	timeout  time.Duration
	attempts int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

// WithRetry sets the attempt budget for idempotent calls.
func WithRetry(attempts int) Option {
	return func(c *Client) { c.attempts = attempts }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 32},
		timeout:  10 * time.Second,
		attempts: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.attempts < 1 {
		c.attempts = 1
	}
	return c
}

// APIError is a non-2xx answer from Iris.
type APIError struct {
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("iris %s: status=%d body=%s", e.Path, e.Status, e.Body)
}

// Temporary reports whether the status is worth retrying.
func (e *APIError) Temporary() bool {
	switch e.Status {
	case fasthttp.StatusInternalServerError, fasthttp.StatusBadGateway,
		fasthttp.StatusServiceUnavailable, fasthttp.StatusGatewayTimeout:
		return true
	}
	return false
}

// call describes one request. idempotent calls may be repeated.
type call struct {
	method     string
	path       string
	in         any
	out        any
	idempotent bool
}

func (c *Client) GetConfig(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := c.do(ctx, call{method: fasthttp.MethodGet, path: "/config", out: &cfg, idempotent: true}); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SendMessage posts a text reply to room.
func (c *Client) SendMessage(ctx context.Context, room, message string) error {
	return c.do(ctx, call{method: fasthttp.MethodPost, path: "/reply", in: ReplyRequest{Type: "text", Room: room, Data: message}})
}

func (c *Client) do(ctx context.Context, cl call) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(cl.method)
	req.SetRequestURI(c.baseURL + cl.path)
	req.Header.SetContentType("application/json")
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if cl.in != nil {
		payload, err := json.Marshal(cl.in)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", cl.path, err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if cl.idempotent {
		attempts = c.attempts
	}
	for attempt := 1; ; attempt++ {
		err := c.once(ctx, cl, req, resp)
		if err == nil || attempt >= attempts || !retryable(err) {
			return err
		}
		obslog.L().Warn("iris_http_retry", zap.String("path", cl.path), zap.Int("attempt", attempt), zap.Error(err))
		if werr := wait(ctx, backoffDuration(attempt)); werr != nil {
			return err
		}
		resp.Reset()
	}
}

func (c *Client) once(ctx context.Context, cl call, req *fasthttp.Request, resp *fasthttp.Response) error {
	if err := c.http.DoDeadline(req, resp, c.deadline(ctx)); err != nil {
		return fmt.Errorf("iris %s: %w", cl.path, err)
	}
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return &APIError{Path: cl.path, Status: status, Body: truncate(string(resp.Body()), 512)}
	}
	if cl.out != nil {
		if err := json.Unmarshal(resp.Body(), cl.out); err != nil {
			return fmt.Errorf("decode %s: %w", cl.path, err)
		}
	}
	return nil
}

// retryable treats transport failures and 5xx gateway answers as transient.
func retryable(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Temporary()
	}
	return true
}

// deadline is the earlier of ctx's deadline and the client timeout.
func (c *Client) deadline(ctx context.Context) time.Time {
	dl := time.Now().Add(c.timeout)
	if ctxDL, ok := ctx.Deadline(); ok && ctxDL.Before(dl) {
		return ctxDL
	}
	return dl
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoffDuration doubles from 100ms and stops growing after six attempts.
func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
