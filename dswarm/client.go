// Package dswarm is the client for the d:swarm engine REST API: resources,
// data models, projects and task execution. Every method is one logical
// engine operation; non-success statuses surface as *RemoteCallError and are
// never retried.
package dswarm

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/tpu/errors"
	"github.com/teranos/tpu/internal/httpclient"
	"github.com/teranos/tpu/logger"
)

// Config holds engine client configuration
type Config struct {
	// BaseURL of the engine API, e.g. http://localhost:8087/dmp/
	BaseURL string
	// HTTPClient performs the round trips (nil = httpclient.New with defaults)
	HTTPClient *httpclient.Client
	// Logger for request tracing (nil = nop logger)
	Logger *zap.SugaredLogger
	// CallTimeout bounds every round trip, 0 = only the caller's context applies
	CallTimeout time.Duration
	// MaxRequestsPerMinute paces all calls made through this client, 0 = unlimited
	MaxRequestsPerMinute int
	// ProjectName appears in task names and descriptions
	ProjectName string
	// PersistInDMP asks the engine to persist task results (tasks?persist=true)
	PersistInDMP bool
	// NewTaskID generates job UUIDs (nil = uuid.NewString)
	NewTaskID func() string
}

// Client is the d:swarm engine client. It is safe for concurrent use; all
// workers of a batch share one Client so the rate limit applies batch-wide.
type Client struct {
	baseURL      string
	httpClient   *httpclient.Client
	logger       *zap.SugaredLogger
	callTimeout  time.Duration
	limiter      *rate.Limiter
	projectName  string
	persistInDMP bool
	newTaskID    func() string
}

// NewClient creates an engine client
func NewClient(cfg Config) (*Client, error) {
	base := cfg.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "invalid engine URL %q: %s", cfg.BaseURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "engine URL %q must be absolute", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = httpclient.New(httpclient.Options{})
	}

	c := &Client{
		baseURL:      u.String(),
		httpClient:   httpClient,
		logger:       logger.OrNop(cfg.Logger),
		callTimeout:  cfg.CallTimeout,
		projectName:  cfg.ProjectName,
		persistInDMP: cfg.PersistInDMP,
		newTaskID:    cfg.NewTaskID,
	}
	if cfg.MaxRequestsPerMinute > 0 {
		// Burst of 1 spreads calls evenly instead of front-loading a minute's budget
		c.limiter = rate.NewLimiter(rate.Limit(float64(cfg.MaxRequestsPerMinute)/60.0), 1)
	}
	if c.newTaskID == nil {
		c.newTaskID = newUUID
	}
	return c, nil
}

// endpoint builds a URL below the base URL. Identifiers are path-escaped.
func (c *Client) endpoint(query string, segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u := c.baseURL + strings.Join(escaped, "/")
	if query != "" {
		u += "?" + query
	}
	return u
}

// request describes one engine round trip
type request struct {
	operation   string
	method      string
	url         string
	body        []byte
	contentType string
	want        int
	// task marks failures as task execution failures
	task bool
}

// do executes one round trip and returns the response body when the status
// matches req.want. The response body is always drained and closed.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.contextError(ctx, req, err)
		}
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "%s: failed to create request: %s", req.operation, err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	c.logger.Debugw("Engine request",
		logger.FieldOperation, req.operation,
		"method", req.method,
		logger.FieldURL, req.url)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.contextError(ctx, req, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.contextError(ctx, req, errors.Wrap(err, "failed to read response"))
	}

	if resp.StatusCode != req.want {
		remoteErr := &RemoteCallError{
			Operation:  req.operation,
			StatusCode: resp.StatusCode,
			Reason:     reasonPhrase(resp),
			Body:       truncate(string(respBody), maxErrorBody),
			task:       req.task,
		}
		c.logger.Errorw("Engine call failed",
			logger.FieldOperation, req.operation,
			logger.FieldStatusCode, resp.StatusCode,
			"reason", remoteErr.Reason,
			logger.FieldURL, req.url)
		return nil, remoteErr
	}

	c.logger.Debugw("Engine response",
		logger.FieldOperation, req.operation,
		logger.FieldStatusCode, resp.StatusCode,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
		"bytes", len(respBody))
	return respBody, nil
}

// contextError classifies transport failures: an expired deadline becomes
// ErrTimeout, cancellation keeps context.Canceled in the chain.
func (c *Client) contextError(ctx context.Context, req request, err error) error {
	if ctxErr := ctx.Err(); ctxErr == context.DeadlineExceeded {
		c.logger.Warnw("Engine call timed out", logger.FieldOperation, req.operation, logger.FieldURL, req.url)
		return errors.Wrapf(errors.Mark(err, errors.ErrTimeout), "%s timed out", req.operation)
	}
	return errors.Wrapf(err, "%s failed", req.operation)
}

// reasonPhrase extracts "Internal Server Error" from "500 Internal Server Error"
func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}

const maxErrorBody = 512

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
