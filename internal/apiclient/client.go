// Package apiclient is the request layer between the client and the SNMVM
// REST backend. Every call carries the session credential given at
// construction and fails uniformly with a *models.AppError.
package apiclient

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"snmvm/internal/cache"
	"snmvm/internal/models"
	"snmvm/internal/observability"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultTimeout bounds every backend call when Options.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Options configures a Client.
type Options struct {
	BaseURL string
	// Token is the bearer credential of the session. Empty means requests are
	// sent unauthenticated.
	Token     string
	Timeout   time.Duration
	UserAgent string
	// Cache, when enabled, serves comment lists read-through.
	Cache *cache.Cache
	// CacheScope keys cached entries to one viewer of one backend. Empty
	// derives it from BaseURL and Token.
	CacheScope string
}

// Client is a typed client for the backend resources consumed by the engine.
type Client struct {
	http  *resty.Client
	cache *cache.Cache
	scope string
}

// New builds a Client from opts.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "snmvm-client"
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", ua)
	if opts.Token != "" {
		rc.SetAuthToken(opts.Token)
	}

	scope := opts.CacheScope
	if scope == "" {
		scope = cache.Scope(rc.BaseURL, "token:"+opts.Token)
	}
	return &Client{http: rc, cache: opts.Cache, scope: scope}
}

// CacheScope is the scope of the entries this client reads and writes.
func (c *Client) CacheScope() string {
	return c.scope
}

// execute runs req against route (a path template such as "/comments/{id}"),
// tracing and timing it, and maps every failure to an AppError.
func (c *Client) execute(ctx context.Context, method, route, operation string, req *resty.Request) (*resty.Response, error) {
	ctx = observability.EnsureCorrelationID(ctx)
	span, ctx := observability.NewClientSpan(ctx, method, route)
	defer span.End()
	done := observability.TrackRequest(method, route)

	var errBody models.ErrorResponse
	req.SetContext(ctx).
		SetError(&errBody).
		SetHeader("X-Correlation-ID", observability.ExtractCorrelationID(ctx))
	observability.InjectHeaders(ctx, func(k, v string) { req.SetHeader(k, v) })

	resp, err := req.Execute(method, route)
	if err != nil {
		done(0)
		appErr := models.NewTransportError(operation, 0, err)
		if errors.Is(err, context.DeadlineExceeded) {
			appErr.Message = operation + " timed out"
		}
		span.SetError(appErr)
		return nil, appErr
	}

	status := resp.StatusCode()
	done(status)
	span.AddAttributes(attribute.Int("http.response.status_code", status))

	if resp.IsError() || status < 200 || status > 299 {
		appErr := statusError(operation, status, errBody)
		span.SetError(appErr)
		return resp, appErr
	}
	return resp, nil
}

func statusError(operation string, status int, body models.ErrorResponse) *models.AppError {
	var cause error
	if body.Error != "" {
		cause = errors.New(body.Error)
	}
	appErr := models.NewTransportError(operation, status, cause)
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		appErr.Code = models.CodeUnauthorized
	case http.StatusNotFound:
		appErr.Code = models.CodeNotFound
	}
	return appErr
}

// decodeFailure reports a 2xx response whose body the client cannot use.
func decodeFailure(operation string, status int, err error) error {
	return models.NewTransportError(operation+" (invalid response)", status, err)
}
