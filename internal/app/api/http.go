package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"chatsdk/internal/app/identity"
	"chatsdk/internal/pkg/logx"
	"chatsdk/internal/pkg/resp"
	"chatsdk/pkg/call"
	"chatsdk/pkg/errs"
)

const (
	// ClientHeader identifies the SDK to the backend.
	ClientHeader = "X-Stream-Client"

	// AuthTypeHeader tells the backend how to read the Authorization header.
	AuthTypeHeader = "Stream-Auth-Type"

	// DefaultTimeout bounds a single HTTP exchange.
	DefaultTimeout = 30 * time.Second

	userAgent = "chatsdk-go"
)

// SessionInfo exposes the session properties sent with every request.
type SessionInfo interface {
	// ConnectionID returns the id of the live realtime connection, or "".
	ConnectionID() string

	// Anonymous reports whether the current user is the anonymous user.
	Anonymous() bool
}

// Config configures an HTTPClient.
type Config struct {
	// BaseURL is the REST endpoint, e.g. https://chat.example.com.
	BaseURL string

	// APIKey identifies the application to the backend.
	APIKey string

	// HTTPClient defaults to a client with DefaultTimeout whose transport logs every request.
	HTTPClient *http.Client

	// RequestRate limits outbound requests per second; zero disables throttling.
	RequestRate rate.Limit

	// RequestBurst is the burst size of the throttle.
	RequestBurst int

	// Executor runs the enqueued calls.
	Executor *call.Executor
}

// HTTPClient is the REST implementation of API.
type HTTPClient struct {
	cfg     Config
	http    *http.Client
	tokens  *identity.TokenManager
	session SessionInfo
	limiter *rate.Limiter
	logger  zerolog.Logger
}

var _ API = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient authenticating with tokens.
func NewHTTPClient(cfg Config, tokens *identity.TokenManager, session SessionInfo) *HTTPClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   DefaultTimeout,
			Transport: logx.RoundTripper(http.DefaultTransport),
		}
	}

	limit := rate.Inf
	if cfg.RequestRate > 0 {
		limit = cfg.RequestRate
	}
	burst := cfg.RequestBurst
	if burst <= 0 {
		burst = 1
	}

	return &HTTPClient{
		cfg:     cfg,
		http:    httpClient,
		tokens:  tokens,
		session: session,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logx.Component("API"),
	}
}

// endpoint describes one REST exchange.
type endpoint struct {
	method string
	path   string
	query  url.Values
	body   any

	// public endpoints are sent without a user token.
	public bool
}

// send builds a Call that performs ep and extracts T from the decoded response R.
func send[R, T any](c *HTTPClient, ep endpoint, pick func(*R) T) call.Call[T] {
	return call.New(func(ctx context.Context) call.Result[T] {
		var out R
		if err := c.do(ctx, ep, &out); err != nil {
			return call.Failure[T](err)
		}
		return call.Success(pick(&out))
	}, call.WithExecutor(c.cfg.Executor))
}

// empty discards a response body.
func empty(*json.RawMessage) struct{} { return struct{}{} }

// do performs ep, retrying once with a reloaded token when the token expired.
func (c *HTTPClient) do(ctx context.Context, ep endpoint, out any) error {
	err := c.attempt(ctx, ep, out)
	if errs.CodeOf(err) != errs.ErrTokenExpired || ep.public || !c.tokens.HasProvider() {
		return err
	}

	c.logger.Info().Str("path", ep.path).Msg("Token expired, reloading and retrying once")
	c.tokens.Expire()

	return c.attempt(ctx, ep, out)
}

func (c *HTTPClient) attempt(ctx context.Context, ep endpoint, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return contextError(ctx)
		}
		return errs.NewError(errs.ErrRateLimit)
	}

	req, err := c.newRequest(ctx, ep)
	if err != nil {
		return err
	}

	res, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return contextError(ctx)
		}
		return errs.NewError(errs.ErrNetworkFailed, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, res.Body)
		res.Body.Close()
	}()

	return resp.Decode(res.StatusCode, res.Body, out)
}

func (c *HTTPClient) newRequest(ctx context.Context, ep endpoint) (*http.Request, error) {
	u, err := url.Parse(strings.TrimRight(c.cfg.BaseURL, "/") + ep.path)
	if err != nil {
		return nil, errs.NewError(errs.ErrNetworkFailed, err)
	}

	q := u.Query()
	for key, values := range ep.query {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	q.Set("api_key", c.cfg.APIKey)
	if c.session != nil {
		if connectionID := c.session.ConnectionID(); connectionID != "" {
			q.Set("connection_id", connectionID)
		}
	}
	u.RawQuery = q.Encode()

	var body io.Reader
	if ep.body != nil {
		raw, err := json.Marshal(ep.body)
		if err != nil {
			return nil, errs.NewError(errs.ErrInputError)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, ep.method, u.String(), body)
	if err != nil {
		return nil, errs.NewError(errs.ErrNetworkFailed, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(ClientHeader, userAgent)
	if ep.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if ep.public {
		return req, nil
	}

	authType := "jwt"
	if c.session != nil && c.session.Anonymous() {
		authType = "anonymous"
	}
	req.Header.Set(AuthTypeHeader, authType)

	if authType == "jwt" {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", token)
	}

	return req, nil
}

func contextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errs.Timeout("Request timed out")
	}
	return errs.ErrCancelled
}
