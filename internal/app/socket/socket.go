/*
Package socket implements the realtime transport of the chat client over a websocket.

A Transport dials the backend with the user's token, runs a read pump that decodes frames into
events and a write pump that keeps the connection alive with pings. The first health check of
a connection is reported as a ConnectedEvent; later drops are reported as DisconnectedEvent and
followed by reconnect attempts with exponential backoff until the client disconnects.
*/
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatsdk/internal/app/session"
	"chatsdk/internal/pkg/logx"
	"chatsdk/internal/pkg/resp"
	"chatsdk/pkg/errs"
	"chatsdk/pkg/events"
	"chatsdk/pkg/models"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// default maximum time allowed between two frames (or pongs) from the backend.
	defaultPongWait = 60 * time.Second

	// maximum allowed size (in bytes) of a frame sent by the backend.
	maxMessageSize = 1 << 20
)

// Config configures a Transport.
type Config struct {
	// URL is the websocket endpoint, e.g. wss://chat.example.com/connect.
	URL string

	// APIKey identifies the application to the backend.
	APIKey string

	// RefreshToken returns a fresh token when the backend reports an expired one. Without it,
	// an expired token ends the session.
	RefreshToken func(ctx context.Context) (string, error)

	// NewBackOff builds the reconnect policy. Defaults to an exponential backoff without deadline.
	NewBackOff func() backoff.BackOff

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// PongWait is the read deadline of the connection, extended by every frame and pong.
	PongWait time.Duration
}

// Transport is a websocket session.Transport.
type Transport struct {
	cfg      Config
	registry *events.Registry
	logger   zerolog.Logger

	// mu guards link, target and the lifetime of the current session.
	mu     sync.Mutex
	link   *link
	target session.ConnectConfig
	life   context.Context
	stop   context.CancelFunc
}

// link is one websocket connection.
type link struct {
	conn *websocket.Conn

	// done is closed when the link is released; the write pump then closes the connection.
	done      chan struct{}
	closeOnce sync.Once

	// connected is set by the first health check.
	connected atomic.Bool

	// released is set when the client closed the link on purpose.
	released atomic.Bool

	// tokenExpired is set when the backend rejected the token of a live connection.
	tokenExpired atomic.Bool
}

func (l *link) close() {
	l.closeOnce.Do(func() { close(l.done) })
}

// NewTransport creates a Transport that emits into registry.
func NewTransport(cfg Config, registry *events.Registry) *Transport {
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaultPongWait
	}
	if cfg.NewBackOff == nil {
		cfg.NewBackOff = DefaultBackOff
	}

	return &Transport{
		cfg:      cfg,
		registry: registry,
		logger:   logx.Component("Socket"),
	}
}

// DefaultBackOff retries forever with exponential delays between 250ms and 10s.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Connect dials the backend for cfg. It returns once the websocket is open; the connection is
// established when the ConnectedEvent is emitted.
func (t *Transport) Connect(ctx context.Context, cfg session.ConnectConfig) error {
	return t.open(ctx, cfg)
}

// Reconnect drops the current connection, if any, and dials again.
func (t *Transport) Reconnect(ctx context.Context, cfg session.ConnectConfig) error {
	return t.open(ctx, cfg)
}

func (t *Transport) open(ctx context.Context, cfg session.ConnectConfig) error {
	t.mu.Lock()
	if ctx.Err() != nil {
		t.mu.Unlock()
		return errs.ErrCancelled
	}
	previous := t.link
	t.link = nil
	if t.stop != nil {
		t.stop()
	}
	t.target = cfg
	t.life, t.stop = context.WithCancel(context.Background())
	life := t.life
	t.mu.Unlock()

	if previous != nil {
		previous.released.Store(true)
		previous.close()
	}

	// The dial ends with the caller's context or with the session, whichever comes first.
	dialCtx, cancel := context.WithCancel(life)
	defer cancel()
	defer context.AfterFunc(ctx, cancel)()

	l, err := t.dial(dialCtx, cfg)
	if err != nil {
		return err
	}

	if !t.install(ctx, life, l) {
		return errs.ErrCancelled
	}
	return nil
}

// install makes l the current link and starts its pumps, unless ctx or life has ended.
func (t *Transport) install(ctx, life context.Context, l *link) bool {
	t.mu.Lock()
	if ctx.Err() != nil || life.Err() != nil || t.life != life {
		t.mu.Unlock()
		l.released.Store(true)
		l.close()
		go t.writePump(l)
		return false
	}
	t.link = l
	t.mu.Unlock()

	go t.writePump(l)
	go t.readPump(life, l)
	return true
}

// Disconnect releases the current connection. It does not wait for the pumps to exit.
func (t *Transport) Disconnect() error {
	t.mu.Lock()
	l := t.link
	t.link = nil
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
	t.mu.Unlock()

	if l == nil {
		return nil
	}

	l.released.Store(true)
	l.close()

	if l.connected.Load() {
		t.registry.Emit(&events.DisconnectedEvent{
			Base:  events.NewBase(events.TypeConnectionDisconnected),
			Cause: events.DisconnectCause{Reason: events.ReasonConnectionReleased},
		})
	}
	return nil
}

// connectPayload is the json query parameter of the connect request.
type connectPayload struct {
	UserID      string       `json:"user_id"`
	UserDetails *models.User `json:"user_details"`
}

func (t *Transport) endpoint(cfg session.ConnectConfig) (string, error) {
	u, err := url.Parse(t.cfg.URL)
	if err != nil {
		return "", errs.NewError(errs.ErrSocketFailure, err)
	}

	payload, err := json.Marshal(connectPayload{UserID: cfg.User.ID, UserDetails: cfg.User})
	if err != nil {
		return "", errs.NewError(errs.ErrSocketFailure, err)
	}

	authType := "jwt"
	if cfg.Anonymous {
		authType = "anonymous"
	}

	q := u.Query()
	q.Set("api_key", t.cfg.APIKey)
	q.Set("authorization", cfg.Token)
	q.Set("stream-auth-type", authType)
	q.Set("json", string(payload))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (t *Transport) dial(ctx context.Context, cfg session.ConnectConfig) (*link, error) {
	if cfg.User == nil {
		return nil, errs.NewError(errs.ErrUndefinedToken)
	}

	endpoint, err := t.endpoint(cfg)
	if err != nil {
		return nil, err
	}

	t.logger.Debug().Str("user_id", cfg.User.ID).Msg("Dialing websocket")

	dialer, abort := cancellableDialer(ctx, t.cfg.Dialer)
	conn, res, err := dialer.DialContext(ctx, endpoint, http.Header{})
	if !abort() && err == nil {
		conn.Close()
		return nil, errs.ErrCancelled
	}
	if err != nil {
		if res != nil {
			defer res.Body.Close()
			if decoded := resp.Decode(res.StatusCode, res.Body, nil); decoded != nil {
				return nil, decoded
			}
		}
		if ctx.Err() != nil {
			return nil, errs.ErrCancelled
		}
		return nil, errs.NewError(errs.ErrSocketFailure, err)
	}

	conn.SetReadLimit(maxMessageSize)

	return &link{conn: conn, done: make(chan struct{})}, nil
}

// cancellableDialer copies base so that the cancellation of ctx closes the underlying network
// connection. The websocket handshake itself only honours deadlines. The returned stop reports
// false when ctx ended during the dial.
func cancellableDialer(ctx context.Context, base *websocket.Dialer) (*websocket.Dialer, func() bool) {
	var (
		mu  sync.Mutex
		raw net.Conn
	)

	dialer := *base
	netDial := dialer.NetDialContext
	if netDial == nil {
		netDial = (&net.Dialer{}).DialContext
	}
	dialer.NetDialContext = func(dialCtx context.Context, network, addr string) (net.Conn, error) {
		c, err := netDial(dialCtx, network, addr)
		if err != nil {
			return nil, err
		}

		mu.Lock()
		raw = c
		cancelled := ctx.Err() != nil
		mu.Unlock()

		if cancelled {
			c.Close()
			return nil, ctx.Err()
		}
		return c, nil
	}

	stop := context.AfterFunc(ctx, func() {
		mu.Lock()
		defer mu.Unlock()
		if raw != nil {
			raw.Close()
		}
	})
	return &dialer, stop
}

// readPump handles reading frames from the connection until it fails or is released.
func (t *Transport) readPump(life context.Context, l *link) {
	var cause error
	defer func() { t.onLinkClosed(life, l, cause) }()

	extend := func() error {
		return l.conn.SetReadDeadline(time.Now().Add(t.cfg.PongWait))
	}

	if err := extend(); err != nil {
		cause = err
		return
	}

	l.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			cause = err
			return
		}

		if err := extend(); err != nil {
			cause = err
			return
		}

		t.handleFrame(l, data)
	}
}

func (t *Transport) handleFrame(l *link, data []byte) {
	event, err := events.Parse(data)
	if err != nil {
		t.logger.Warn().Err(err).Bytes("frame", data).Msg("Dropping undecodable frame")
		return
	}

	switch e := event.(type) {
	case *events.HealthEvent:
		if !l.connected.Swap(true) {
			t.logger.Info().Str("connection_id", e.ConnectionID).Msg("Websocket connected")
			t.registry.Emit(&events.ConnectedEvent{
				Base:         events.NewBase(events.TypeConnectionConnected),
				Me:           e.Me,
				ConnectionID: e.ConnectionID,
			})
			return
		}
		t.registry.Emit(e)

	case *events.ErrorEvent:
		if !l.connected.Load() {
			// the backend refused the connection; the machine decides what to do next
			l.released.Store(true)
			t.registry.Emit(e)
			l.close()
			return
		}

		t.registry.Emit(e)
		if isTokenError(e.Err) {
			l.tokenExpired.Store(true)
			l.close()
		}

	default:
		t.registry.Emit(event)
	}
}

// writePump keeps the connection alive with pings and closes it when the link is released.
func (t *Transport) writePump(l *link) {
	ticker := time.NewTicker((t.cfg.PongWait * 9) / 10)

	defer func() {
		ticker.Stop()

		if err := l.conn.Close(); err != nil {
			t.logger.Debug().Err(err).Msg("Connection close error in write pump")
		}
	}()

	for {
		select {
		case <-l.done:
			if err := l.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := l.conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
				t.logger.Debug().Err(err).Msg("Error writing close message")
			}
			return

		case <-ticker.C:
			if err := l.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				t.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}
			if err := l.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.logger.Warn().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}

// onLinkClosed runs when the read pump of l exits.
func (t *Transport) onLinkClosed(life context.Context, l *link, cause error) {
	l.close()

	t.mu.Lock()
	current := t.link == l
	if current {
		t.link = nil
	}
	t.mu.Unlock()

	if !current || l.released.Load() || life.Err() != nil {
		return
	}

	if !l.connected.Load() {
		// dropped before the first health check
		t.registry.Emit(&events.DisconnectedEvent{
			Base:  events.NewBase(events.TypeConnectionDisconnected),
			Cause: events.DisconnectCause{Reason: events.ReasonError, Err: errs.NewError(errs.ErrSocketClosed)},
		})
		return
	}

	if l.tokenExpired.Load() && t.cfg.RefreshToken == nil {
		t.registry.Emit(&events.DisconnectedEvent{
			Base: events.NewBase(events.TypeConnectionDisconnected),
			Cause: events.DisconnectCause{
				Reason: events.ReasonUnrecoverableError,
				Err:    errs.NewError(errs.ErrTokenExpired),
			},
		})
		return
	}

	reason := events.ReasonError
	if websocket.IsCloseError(cause, websocket.CloseGoingAway) {
		reason = events.ReasonNetworkNotAvailable
	}

	t.logger.Warn().Err(cause).Str("reason", reason.String()).Msg("Websocket dropped, reconnecting")
	t.registry.Emit(&events.DisconnectedEvent{
		Base:  events.NewBase(events.TypeConnectionDisconnected),
		Cause: events.DisconnectCause{Reason: reason, Err: errs.NewError(errs.ErrSocketFailure, cause)},
	})

	go t.reconnect(life, l.tokenExpired.Load())
}

// reconnect dials with backoff until a link is installed, life ends, or the backend rejects
// the credentials.
func (t *Transport) reconnect(life context.Context, refresh bool) {
	t.registry.Emit(&events.ConnectingEvent{Base: events.NewBase(events.TypeConnectionConnecting)})

	operation := func() error {
		if refresh && t.cfg.RefreshToken != nil {
			token, err := t.cfg.RefreshToken(life)
			if err != nil {
				if isCredentialError(err) {
					return backoff.Permanent(err)
				}
				return err
			}
			t.mu.Lock()
			t.target.Token = token
			t.mu.Unlock()
			refresh = false
		}

		t.mu.Lock()
		target := t.target
		t.mu.Unlock()

		l, err := t.dial(life, target)
		if err != nil {
			if errors.Is(err, errs.ErrCancelled) {
				return backoff.Permanent(err)
			}
			if errs.CodeOf(err) == errs.ErrTokenExpired && t.cfg.RefreshToken != nil {
				refresh = true
				return err
			}
			if isCredentialError(err) {
				return backoff.Permanent(err)
			}
			return err
		}

		if !t.install(life, life, l) {
			return backoff.Permanent(errs.ErrCancelled)
		}
		return nil
	}

	notify := func(err error, next time.Duration) {
		t.logger.Debug().Err(err).Dur("retry_in", next).Msg("Reconnect attempt failed")
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(t.cfg.NewBackOff(), life), notify)
	if err == nil || life.Err() != nil || errs.IsCancellation(err) {
		return
	}

	t.logger.Error().Err(err).Msg("Reconnect abandoned")
	t.registry.Emit(&events.DisconnectedEvent{
		Base:  events.NewBase(events.TypeConnectionDisconnected),
		Cause: events.DisconnectCause{Reason: events.ReasonUnrecoverableError, Err: err},
	})
}

func isTokenError(err error) bool {
	return errs.CodeOf(err) == errs.ErrTokenExpired
}

// isCredentialError reports whether retrying with the same credentials cannot succeed.
func isCredentialError(err error) bool {
	switch errs.CodeOf(err) {
	case errs.ErrAuthenticationFailed, errs.ErrTokenExpired, errs.ErrTokenNotValid,
		errs.ErrTokenDateIncorrect, errs.ErrTokenSignatureIncorrect, errs.ErrNotAllowed:
		return true
	default:
		return false
	}
}
