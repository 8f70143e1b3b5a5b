package legacyclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options configures the legacy admin panel client
type Options struct {
	BaseURL           string
	LoginPath         string
	APIPath           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	RetryCount        int
	MaxPages          int
	Resources         Resources
}

// Resources names the API resources scraped for each record type
type Resources struct {
	Users   string
	Events  string
	Signups string
}

// Client talks to the legacy admin panel. It holds no session state of its own:
// every authenticated call takes an explicit *Session.
type Client struct {
	http    *resty.Client
	baseURL *url.URL
	opts    Options
	logger  *zap.Logger
}

// NewClient creates a client for the legacy admin panel
func NewClient(opts Options, logger *zap.Logger) (*Client, error) {
	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse legacy base URL: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("legacy base URL must be absolute: %q", opts.BaseURL)
	}

	if opts.LoginPath == "" {
		opts.LoginPath = "/nova/login"
	}
	if opts.APIPath == "" {
		opts.APIPath = "/nova-api"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1000
	}
	if opts.Resources.Users == "" {
		opts.Resources.Users = "users"
	}
	if opts.Resources.Events == "" {
		opts.Resources.Events = "events"
	}
	if opts.Resources.Signups == "" {
		opts.Resources.Signups = "signups"
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	httpClient.SetTimeout(opts.Timeout)
	// Cookies only travel through the explicit Session
	httpClient.SetCookieJar(nil)
	httpClient.SetRedirectPolicy(resty.RedirectPolicyFunc(
		func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	))
	if opts.UserAgent != "" {
		httpClient.SetHeader("User-Agent", opts.UserAgent)
	}

	if opts.RetryCount > 0 {
		httpClient.SetRetryCount(opts.RetryCount)
		httpClient.SetRetryWaitTime(500 * time.Millisecond)
		httpClient.SetRetryMaxWaitTime(5 * time.Second)
		httpClient.AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && r.StatusCode() >= http.StatusInternalServerError
		})
	}

	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	instrument(httpClient, logger)

	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		opts:    opts,
		logger:  logger,
	}, nil
}

// BaseURL returns the parsed legacy base URL
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Resources returns the configured resource names
func (c *Client) Resources() Resources {
	return c.opts.Resources
}

// request starts an authenticated request carrying the session's cookies and tokens
func (c *Client) request(ctx context.Context, session *Session) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if session != nil {
		session.apply(req)
	}
	return req
}

// instrument logs every request. Bodies, cookies and headers are never logged.
func instrument(client *resty.Client, logger *zap.Logger) {
	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("Legacy request",
			zap.String("method", resp.Request.Method),
			zap.String("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("duration", resp.Time()))
		return nil
	})
	client.OnError(func(req *resty.Request, err error) {
		logger.Error("Legacy request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL),
			zap.Error(err))
	})
}

func isRedirect(status int) bool {
	return status >= 300 && status < 400
}

func truncate(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit])
}
