/*
Package chat is the public facade of the chat client.

A Client owns one session: it resolves the identity of the user being connected, drives the
connection state machine, routes every backend operation through the plugin pipeline and
delivers realtime events to subscribers. Every operation returns a one-shot call.Call that
does nothing until it is launched with Execute, Await or Enqueue.
*/
package chat

import (
	"context"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"chatsdk/internal/app/api"
	"chatsdk/internal/app/identity"
	"chatsdk/internal/app/session"
	"chatsdk/internal/app/socket"
	"chatsdk/internal/pkg/logx"
	"chatsdk/pkg/call"
	"chatsdk/pkg/errs"
	"chatsdk/pkg/events"
	"chatsdk/pkg/models"
	"chatsdk/pkg/plugin"
)

// Client is a chat session.
type Client struct {
	apiKey string
	opts   options

	registry  *events.Registry
	tokens    *identity.TokenManager
	resolver  *identity.Resolver
	transport Transport
	api       API
	pipeline  *plugin.Pipeline
	machine   *session.Machine
	executor  *call.Executor
	typing    *typing

	// refreshable is set while the current user has a token provider able to issue new tokens.
	refreshable atomic.Bool

	logger zerolog.Logger
}

// New creates a Client for the application identified by apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errs.Validation("API key must not be empty")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.wsURL == "" {
		o.wsURL = wsURLFor(o.baseURL)
	}
	if o.executor == nil {
		o.executor = call.DefaultExecutor()
	}

	c := &Client{
		apiKey:   apiKey,
		opts:     o,
		registry: events.NewRegistry(),
		tokens:   identity.NewTokenManager(),
		resolver: identity.NewResolver(nil),
		executor: o.executor,
		typing:   newTyping(o.typingThrottle),
		logger:   logx.Component("ChatClient"),
	}

	if o.transport != nil {
		c.transport = o.transport(c.registry)
	} else {
		c.transport = socket.NewTransport(socket.Config{
			URL:          o.wsURL,
			APIKey:       apiKey,
			RefreshToken: c.refreshToken,
			NewBackOff:   o.newBackOff,
		}, c.registry)
	}

	if o.api != nil {
		c.api = o.api
	} else {
		c.api = api.NewHTTPClient(api.Config{
			BaseURL:      o.baseURL,
			APIKey:       apiKey,
			HTTPClient:   o.httpClient,
			RequestRate:  o.requestRate,
			RequestBurst: o.requestBurst,
			Executor:     o.executor,
		}, c.tokens, sessionInfo{c})
	}

	c.pipeline = plugin.NewPipeline(o.executor, o.plugins...)

	// The machine subscribes first and observes connection events before any listener.
	c.machine = session.NewMachine(c.transport, o.store, c.registry, session.Hooks{
		OnUserSet:          c.onUserSet,
		OnUserDisconnected: c.onUserDisconnected,
	})

	c.logger.Debug().Str("base_url", o.baseURL).Str("ws_url", o.wsURL).Msg("Chat client created")

	return c, nil
}

// Close releases the resources of the client. The session must be disconnected first.
func (c *Client) Close() {
	c.machine.Close()
	c.typing.close()
	c.registry.DisposeAll()
}

// sessionInfo exposes the session to the REST collaborator.
type sessionInfo struct{ c *Client }

func (s sessionInfo) ConnectionID() string { return s.c.machine.Snapshot().ConnectionID() }
func (s sessionInfo) Anonymous() bool      { return s.c.machine.Snapshot().Anonymous }

func (c *Client) onUserSet(id identity.Identity) {
	var provider identity.TokenProvider = identity.ConstantTokenProvider(id.Token)
	if id.Provider != nil {
		provider = &seededProvider{token: id.Token, next: id.Provider}
	}
	c.refreshable.Store(id.Provider != nil)
	c.tokens.SetProvider(provider)

	plugins := slices.Clone(c.opts.plugins)
	for _, f := range c.opts.factories {
		if p := f.Get(id.User); p != nil {
			plugins = append(plugins, p)
		}
	}
	c.pipeline.Set(plugins)
	c.pipeline.NotifyUserSet(id.User)
}

func (c *Client) onUserDisconnected() {
	c.pipeline.NotifyUserDisconnected()
	c.pipeline.Set(c.opts.plugins)
	c.tokens.Clear()
	c.refreshable.Store(false)
	c.typing.reset()
}

// refreshToken reloads the token of the current user for the websocket transport.
func (c *Client) refreshToken(ctx context.Context) (string, error) {
	if !c.refreshable.Load() {
		return "", errs.NewError(errs.ErrTokenExpired)
	}

	c.tokens.Expire()
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}
	c.machine.SetToken(ctx, token)

	c.logger.Info().Msg("Token refreshed")
	return token, nil
}

// seededProvider returns the token the user connected with before delegating to next.
type seededProvider struct {
	token string
	used  atomic.Bool
	next  identity.TokenProvider
}

func (p *seededProvider) LoadToken(ctx context.Context) (string, error) {
	if p.token != "" && p.used.CompareAndSwap(false, true) {
		return p.token, nil
	}
	return p.next.LoadToken(ctx)
}

// callOpts makes local calls run on the executor of the client.
func (c *Client) callOpts() call.Option {
	return call.WithExecutor(c.executor)
}

// currentUser returns the pending or set user of the session, or nil.
func (c *Client) currentUser() *models.User {
	return c.machine.Snapshot().CurrentUser()
}

// GetCurrentUser returns a copy of the current user, or nil when no user is set.
func (c *Client) GetCurrentUser() *models.User {
	return c.currentUser().Clone()
}

// GetCurrentToken returns the token of the current user, or "".
func (c *Client) GetCurrentToken() string {
	if token := c.tokens.CurrentToken(); token != "" {
		return token
	}
	return c.machine.Snapshot().Token
}

// GetConnectionID returns the id of the live realtime connection, or "".
func (c *Client) GetConnectionID() string {
	return c.machine.Snapshot().ConnectionID()
}

// ConnectionState returns the state of the realtime connection.
func (c *Client) ConnectionState() ConnectionState {
	return c.machine.Snapshot().State
}

// InitializationState reports whether plugins and credentials are ready for the current user.
func (c *Client) InitializationState() InitializationState {
	return c.machine.Snapshot().Initialization
}

// IsSocketConnected reports whether the realtime connection is established.
func (c *Client) IsSocketConnected() bool {
	return c.ConnectionState() == session.StateConnected
}

// WaitForState blocks until the connection reaches state or ctx is done.
func (c *Client) WaitForState(ctx context.Context, state ConnectionState) error {
	return c.machine.WaitForState(ctx, state)
}

// ContainsStoredCredentials reports whether valid credentials are persisted.
func (c *Client) ContainsStoredCredentials(ctx context.Context) bool {
	cfg, err := c.machine.StoredCredentials(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to read stored credentials")
		return false
	}
	return cfg.IsValid()
}

// ClearPersistence removes the persisted credentials.
func (c *Client) ClearPersistence() call.Call[struct{}] {
	return call.New(func(ctx context.Context) call.Result[struct{}] {
		if err := c.machine.ClearPersistence(ctx); err != nil {
			return call.Failure[struct{}](err)
		}
		return call.Success(struct{}{})
	}, c.callOpts())
}
