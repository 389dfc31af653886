package chat

import (
	"context"
	"errors"
	"time"

	"chatsdk/internal/app/identity"
	"chatsdk/internal/app/session"
	"chatsdk/pkg/call"
	"chatsdk/pkg/errs"
	"chatsdk/pkg/models"
)

// ConnectUser connects user with a static token issued for it. A positive timeout bounds the
// wait for the realtime connection; zero waits until the connection succeeds or fails.
func (c *Client) ConnectUser(user *models.User, token string, timeout time.Duration) call.Call[ConnectionData] {
	return c.connect(func(context.Context) (identity.Identity, error) {
		return c.resolver.ResolveAndValidate(token, user, identity.KindRegular)
	}, timeout)
}

// ConnectUserWithProvider connects user with tokens loaded from provider. The provider is
// asked again whenever the backend reports an expired token.
func (c *Client) ConnectUserWithProvider(user *models.User, provider identity.TokenProvider, timeout time.Duration) call.Call[ConnectionData] {
	return c.connect(func(ctx context.Context) (identity.Identity, error) {
		if provider == nil {
			return identity.Identity{}, errs.NewError(errs.ErrUndefinedToken)
		}

		token, err := provider.LoadToken(ctx)
		if err != nil {
			return identity.Identity{}, err
		}

		id, err := c.resolver.ResolveAndValidate(token, user, identity.KindRegular)
		if err != nil {
			return identity.Identity{}, err
		}
		id.Provider = provider
		return id, nil
	}, timeout)
}

// ConnectGuestUser asks the backend for a guest user and connects it.
func (c *Client) ConnectGuestUser(userID, name string, timeout time.Duration) call.Call[ConnectionData] {
	return c.connect(func(ctx context.Context) (identity.Identity, error) {
		guest, err := c.api.GetGuestUser(userID, name).Await(ctx).Get()
		if err != nil {
			return identity.Identity{}, err
		}
		return c.resolver.Guest(guest)
	}, timeout)
}

// ConnectAnonymousUser connects the anonymous user.
func (c *Client) ConnectAnonymousUser(timeout time.Duration) call.Call[ConnectionData] {
	return c.connect(func(context.Context) (identity.Identity, error) {
		return c.resolver.Anonymous()
	}, timeout)
}

func (c *Client) connect(resolve func(ctx context.Context) (identity.Identity, error), timeout time.Duration) call.Call[ConnectionData] {
	return call.New(func(ctx context.Context) call.Result[ConnectionData] {
		id, err := resolve(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to resolve user identity")
			return call.Failure[ConnectionData](err)
		}

		data, err := c.machine.Connect(ctx, id, timeout)
		if err != nil {
			return call.Failure[ConnectionData](err)
		}
		return call.Success(data)
	}, c.callOpts())
}

// SwitchUser disconnects the current user, if any, flushing its credentials, and connects
// user. onDisconnected runs between the two steps.
func (c *Client) SwitchUser(user *models.User, token string, timeout time.Duration, onDisconnected func()) call.Call[ConnectionData] {
	return call.New(func(ctx context.Context) call.Result[ConnectionData] {
		if err := c.machine.Disconnect(ctx, true); err != nil && !isNotConnected(err) {
			return call.Failure[ConnectionData](err)
		}
		if onDisconnected != nil {
			onDisconnected()
		}

		return c.ConnectUser(user, token, timeout).Await(ctx)
	}, c.callOpts())
}

// Disconnect releases the current user. With flushPersistence the stored credentials are
// removed as well.
func (c *Client) Disconnect(flushPersistence bool) call.Call[struct{}] {
	return call.New(func(ctx context.Context) call.Result[struct{}] {
		if err := c.machine.Disconnect(ctx, flushPersistence); err != nil {
			return call.Failure[struct{}](err)
		}
		return call.Success(struct{}{})
	}, c.callOpts())
}

// DisconnectSocket closes the realtime connection and keeps the user.
func (c *Client) DisconnectSocket() call.Call[struct{}] {
	return call.New(func(context.Context) call.Result[struct{}] {
		if err := c.machine.DisconnectSocket(); err != nil {
			return call.Failure[struct{}](err)
		}
		return call.Success(struct{}{})
	}, c.callOpts())
}

// ReconnectSocket reopens the realtime connection of the current user.
func (c *Client) ReconnectSocket() call.Call[struct{}] {
	return call.New(func(ctx context.Context) call.Result[struct{}] {
		if err := c.machine.ReconnectSocket(ctx); err != nil {
			return call.Failure[struct{}](err)
		}
		return call.Success(struct{}{})
	}, c.callOpts())
}

func isNotConnected(err error) bool {
	var chatErr *errs.Error
	return errors.As(err, &chatErr) && chatErr.Message == session.MsgNotConnected
}
