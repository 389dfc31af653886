package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"chatsdk/internal/app/identity"
	"chatsdk/internal/pkg/logx"
	"chatsdk/pkg/credentials"
	"chatsdk/pkg/errs"
	"chatsdk/pkg/events"
	"chatsdk/pkg/models"
)

// Contract messages of connect and disconnect failures.
const (
	MsgUserAlreadySet  = "User cannot be set until the previous one is disconnected."
	MsgFailedToConnect = "Failed to connect user. Please check you haven't connected a user already."
	MsgNotConnected    = "ChatClient can't be disconnected because user wasn't connected previously"
)

// ConnectConfig tells the transport whom to connect.
type ConnectConfig struct {
	User      *models.User
	Token     string
	Anonymous bool
}

// Transport is the realtime connection. It reports progress by emitting ConnectedEvent,
// ConnectingEvent, DisconnectedEvent and ErrorEvent into the events registry.
type Transport interface {
	Connect(ctx context.Context, cfg ConnectConfig) error
	Disconnect() error
	Reconnect(ctx context.Context, cfg ConnectConfig) error
}

// Hooks are invoked by the Machine outside its lock.
type Hooks struct {
	// OnUserSet runs when a user is claimed, before the transport connects.
	OnUserSet func(id identity.Identity)

	// OnConnected runs after a connection is established and credentials are persisted.
	OnConnected func(data ConnectionData)

	// OnUserDisconnected runs when the user is released by a disconnect or a failed connect.
	OnUserDisconnected func()
}

// attempt is an in-flight connect. resolved and the result fields are guarded by Machine.mu;
// done is closed once the result is final.
type attempt struct {
	userID   string
	resolved bool
	data     ConnectionData
	err      error
	done     chan struct{}

	// cancelDial stops the transport dial of the attempt once it is resolved.
	cancelDial context.CancelFunc
}

// Machine is the connection state machine of one session.
type Machine struct {
	transport Transport
	store     credentials.Store
	hooks     Hooks
	logger    zerolog.Logger

	// mu serializes every state write.
	mu       sync.Mutex
	state    State
	user     UserState
	conn     *ConnectionData
	init     InitializationState
	identity identity.Identity
	deadline time.Time
	attempt  *attempt

	// changed is closed and replaced on every publish.
	changed chan struct{}

	snapshot     atomic.Pointer[Snapshot]
	subscription events.Disposable
}

// NewMachine creates a Machine driven by the events of registry. The machine subscribes
// before anyone else should, so that it observes connection events first.
func NewMachine(transport Transport, store credentials.Store, registry *events.Registry, hooks Hooks) *Machine {
	if store == nil {
		store = credentials.NewMemoryStore()
	}

	m := &Machine{
		transport: transport,
		store:     store,
		hooks:     hooks,
		logger:    logx.Component("Session"),
		state:     StateIdle,
		changed:   make(chan struct{}),
	}
	m.publishLocked()
	m.subscription = registry.Subscribe(m.handleEvent)

	return m
}

// Close stops the machine from observing events.
func (m *Machine) Close() {
	m.subscription.Dispose()
}

// Snapshot returns the current state of the session.
func (m *Machine) Snapshot() Snapshot {
	return *m.snapshot.Load()
}

// publishLocked stores a fresh snapshot and wakes WaitForState callers. m.mu must be held.
func (m *Machine) publishLocked() {
	snap := &Snapshot{
		State:          m.state,
		User:           UserState{Kind: m.user.Kind, User: m.user.User.Clone()},
		Initialization: m.init,
		Deadline:       m.deadline,
		Token:          m.identity.Token,
		Anonymous:      m.identity.IsAnonymous(),
	}
	if m.conn != nil {
		snap.Connection = &ConnectionData{User: m.conn.User.Clone(), ConnectionID: m.conn.ConnectionID}
	}

	m.snapshot.Store(snap)
	close(m.changed)
	m.changed = make(chan struct{})
}

// Connect establishes the session for id, which must have been validated by the identity
// resolver. It waits for the first of: the connected event, an error event, the timeout
// (when positive), or the cancellation of ctx.
func (m *Machine) Connect(ctx context.Context, id identity.Identity, timeout time.Duration) (ConnectionData, error) {
	if id.User == nil {
		return ConnectionData{}, errs.Validation(identity.MsgTokenUserMismatch)
	}

	m.mu.Lock()
	if m.user.IsSet() {
		defer m.mu.Unlock()

		if m.user.User.ID != id.User.ID {
			m.logger.Warn().
				Str("current_user", m.user.User.ID).
				Str("requested_user", id.User.ID).
				Msg("Connect rejected, another user is set")
			return ConnectionData{}, errs.Generic(MsgUserAlreadySet)
		}

		if m.state == StateConnected && m.conn != nil {
			m.logger.Debug().Str("user_id", id.User.ID).Msg("User already connected, reusing connection")
			return ConnectionData{User: m.conn.User.Clone(), ConnectionID: m.conn.ConnectionID}, nil
		}

		return ConnectionData{}, errs.Generic(MsgFailedToConnect)
	}

	dialCtx, cancelDial := context.WithCancel(ctx)
	a := &attempt{userID: id.User.ID, done: make(chan struct{}), cancelDial: cancelDial}
	m.attempt = a
	m.identity = id
	m.user = UserState{Kind: UserPending, User: id.User.Clone()}
	m.state = StateConnecting
	m.init = InitInitializing
	m.deadline = time.Time{}
	if timeout > 0 {
		m.deadline = time.Now().Add(timeout)
	}
	m.publishLocked()
	m.mu.Unlock()

	m.logger.Info().
		Str("user_id", id.User.ID).
		Str("kind", id.Kind.String()).
		Dur("timeout", timeout).
		Msg("Connecting user")

	if m.hooks.OnUserSet != nil {
		claimed := id
		claimed.User = id.User.Clone()
		m.hooks.OnUserSet(claimed)
	}

	// The timeout covers the dial as well as the wait for the connected event.
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	cfg := ConnectConfig{User: id.User.Clone(), Token: id.Token, Anonymous: id.IsAnonymous()}
	dialed := make(chan error, 1)
	go func() { dialed <- m.transport.Connect(dialCtx, cfg) }()

	// Connect returns only once the transport call has returned.
	defer func() {
		cancelDial()
		if dialed != nil {
			<-dialed
		}
	}()

	for {
		select {
		case err := <-dialed:
			dialed = nil
			if err != nil {
				var chatErr *errs.Error
				if !errors.Is(err, errs.ErrCancelled) && !errors.As(err, &chatErr) {
					err = errs.NewError(errs.ErrSocketFailure, err)
				}
				return m.abort(a, err)
			}
		case <-a.done:
			return a.data, a.err
		case <-timer:
			m.logger.Warn().Str("user_id", id.User.ID).Dur("timeout", timeout).Msg("Connection timed out")
			return m.abort(a, errs.Timeout(fmt.Sprintf("Connection wasn't established in %dms", timeout.Milliseconds())))
		case <-ctx.Done():
			return m.abort(a, errs.ErrCancelled)
		}
	}
}

// abort fails a with err and rolls the session back, unless the attempt was already
// resolved, in which case the resolved outcome is returned.
func (m *Machine) abort(a *attempt, err error) (ConnectionData, error) {
	m.mu.Lock()
	if a.resolved {
		m.mu.Unlock()
		<-a.done
		return a.data, a.err
	}

	a.resolved = true
	a.err = err
	a.cancelDial()
	m.rollbackLocked(a)
	m.mu.Unlock()

	m.release()
	close(a.done)

	return ConnectionData{}, err
}

// rollbackLocked resets the session after a failed attempt. m.mu must be held.
func (m *Machine) rollbackLocked(a *attempt) {
	if m.attempt == a {
		m.attempt = nil
	}
	m.user = UserState{}
	m.conn = nil
	m.identity = identity.Identity{}
	m.init = InitNotInitialized
	m.deadline = time.Time{}
	m.state = StateDisconnected
	m.publishLocked()
}

// release closes the transport and notifies the hooks that the user is gone.
func (m *Machine) release() {
	if err := m.transport.Disconnect(); err != nil {
		m.logger.Warn().Err(err).Msg("Transport disconnect failed")
	}
	if m.hooks.OnUserDisconnected != nil {
		m.hooks.OnUserDisconnected()
	}
}

// Disconnect releases the current user. With flushPersistence the stored credentials are
// cleared as well. A pending connect fails with a cancellation.
func (m *Machine) Disconnect(ctx context.Context, flushPersistence bool) error {
	m.mu.Lock()
	if !m.user.IsSet() {
		m.mu.Unlock()
		return errs.Generic(MsgNotConnected)
	}

	userID := m.user.User.ID
	var pending *attempt
	if a := m.attempt; a != nil && !a.resolved {
		a.resolved = true
		a.err = errs.ErrCancelled
		a.cancelDial()
		pending = a
	}
	m.attempt = nil
	m.state = StateDisconnecting
	m.publishLocked()
	m.mu.Unlock()

	m.logger.Info().Str("user_id", userID).Bool("flush", flushPersistence).Msg("Disconnecting user")

	m.release()

	m.mu.Lock()
	m.user = UserState{}
	m.conn = nil
	m.identity = identity.Identity{}
	m.init = InitNotInitialized
	m.deadline = time.Time{}
	m.state = StateDisconnected
	m.publishLocked()
	m.mu.Unlock()

	if pending != nil {
		close(pending.done)
	}

	if flushPersistence {
		if err := m.store.Clear(ctx); err != nil {
			m.logger.Error().Err(err).Msg("Failed to clear stored credentials")
			return err
		}
	}

	return nil
}

// DisconnectSocket closes the realtime connection but keeps the user.
func (m *Machine) DisconnectSocket() error {
	if err := m.transport.Disconnect(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.attempt == nil && m.state != StateIdle {
		m.conn = nil
		m.state = StateDisconnected
		m.publishLocked()
	}
	return nil
}

// ReconnectSocket reopens the realtime connection of the current user. The machine moves to
// Connected when the transport reports the new connection.
func (m *Machine) ReconnectSocket(ctx context.Context) error {
	m.mu.Lock()
	if m.user.Kind != UserSet {
		state := m.user.String()
		m.mu.Unlock()
		return errs.Genericf("Invalid user state %s without user being set!", state)
	}

	if m.state == StateConnected || m.state == StateConnecting {
		m.mu.Unlock()
		return nil
	}

	cfg := ConnectConfig{User: m.user.User.Clone(), Token: m.identity.Token, Anonymous: m.identity.IsAnonymous()}
	m.state = StateConnecting
	m.publishLocked()
	m.mu.Unlock()

	if err := m.transport.Reconnect(ctx, cfg); err != nil {
		m.mu.Lock()
		if m.state == StateConnecting {
			m.state = StateDisconnected
			m.publishLocked()
		}
		m.mu.Unlock()
		return err
	}
	return nil
}

// WaitForState blocks until the machine reaches want or ctx is done.
func (m *Machine) WaitForState(ctx context.Context, want State) error {
	for {
		m.mu.Lock()
		current := m.state
		changed := m.changed
		m.mu.Unlock()

		if current == want {
			return nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SetToken replaces the token of the current user, e.g. after a refresh, and persists it.
func (m *Machine) SetToken(ctx context.Context, token string) {
	m.mu.Lock()
	if !m.user.IsSet() || token == "" || token == m.identity.Token {
		m.mu.Unlock()
		return
	}
	m.identity.Token = token
	m.publishLocked()
	persist := m.user.Kind == UserSet
	cfg := m.credentialsLocked()
	m.mu.Unlock()

	if persist {
		m.persist(ctx, cfg)
	}
}

// StoredCredentials returns the persisted credentials, or nil.
func (m *Machine) StoredCredentials(ctx context.Context) (*credentials.Config, error) {
	return m.store.Get(ctx)
}

// ClearPersistence removes the persisted credentials.
func (m *Machine) ClearPersistence(ctx context.Context) error {
	return m.store.Clear(ctx)
}

func (m *Machine) credentialsLocked() credentials.Config {
	return credentials.Config{
		UserID:      m.user.User.ID,
		UserToken:   m.identity.Token,
		UserName:    m.user.User.Name,
		IsAnonymous: m.identity.IsAnonymous(),
	}
}

func (m *Machine) persist(ctx context.Context, cfg credentials.Config) {
	if err := m.store.Put(ctx, cfg); err != nil {
		m.logger.Error().Err(err).Str("user_id", cfg.UserID).Msg("Failed to persist credentials")
	}
}

func (m *Machine) handleEvent(event events.ChatEvent) {
	switch e := event.(type) {
	case *events.ConnectedEvent:
		m.onConnected(e)
	case *events.ConnectingEvent:
		m.onConnecting()
	case *events.DisconnectedEvent:
		m.onDisconnected(e)
	case *events.ErrorEvent:
		m.onError(e)
	case *events.UserUpdatedEvent:
		m.onOwnUser(e.User)
	case events.HasOwnUser:
		m.onOwnUser(e.OwnUser())
	}
}

func (m *Machine) onConnected(e *events.ConnectedEvent) {
	m.mu.Lock()
	if !m.user.IsSet() {
		m.mu.Unlock()
		m.logger.Debug().Str("connection_id", e.ConnectionID).Msg("Ignoring connected event without user")
		return
	}

	a := m.attempt
	if a != nil && a.resolved {
		m.mu.Unlock()
		return
	}

	user := m.user.User.Clone()
	if e.Me != nil && e.Me.ID == user.ID {
		user.MergePartially(e.Me)
	}

	data := ConnectionData{User: user, ConnectionID: e.ConnectionID}
	m.user = UserState{Kind: UserSet, User: user}
	m.conn = &ConnectionData{User: user.Clone(), ConnectionID: e.ConnectionID}
	m.state = StateConnected
	m.init = InitComplete
	m.deadline = time.Time{}
	if a != nil {
		a.resolved = true
		a.data = data
		m.attempt = nil
	}
	m.publishLocked()
	cfg := m.credentialsLocked()
	m.mu.Unlock()

	m.logger.Info().Str("user_id", user.ID).Str("connection_id", e.ConnectionID).Msg("User connected")

	m.persist(context.Background(), cfg)

	if m.hooks.OnConnected != nil {
		m.hooks.OnConnected(data)
	}

	if a != nil {
		close(a.done)
	}
}

func (m *Machine) onConnecting() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user.Kind == UserSet && m.state != StateConnecting {
		m.state = StateConnecting
		m.conn = nil
		m.publishLocked()
	}
}

func (m *Machine) onDisconnected(e *events.DisconnectedEvent) {
	m.mu.Lock()
	if m.state == StateDisconnecting || !m.user.IsSet() {
		m.mu.Unlock()
		return
	}

	if a := m.attempt; a != nil && !a.resolved {
		err := e.Cause.Err
		if err == nil {
			err = errs.NewError(errs.ErrSocketClosed)
		}
		m.mu.Unlock()
		m.abort(a, err)
		return
	}

	if e.Cause.Unrecoverable() {
		m.logger.Warn().Err(e.Cause.Err).Msg("Unrecoverable disconnect, releasing user")
		m.user = UserState{}
		m.identity = identity.Identity{}
		m.init = InitNotInitialized
	}
	m.conn = nil
	m.state = StateDisconnected
	m.publishLocked()
	m.mu.Unlock()

	if e.Cause.Unrecoverable() && m.hooks.OnUserDisconnected != nil {
		m.hooks.OnUserDisconnected()
	}
}

func (m *Machine) onError(e *events.ErrorEvent) {
	m.mu.Lock()
	a := m.attempt
	if a == nil || a.resolved {
		m.mu.Unlock()
		m.logger.Debug().Err(e.Err).Msg("Connection error outside of a connect attempt")
		return
	}
	m.mu.Unlock()

	err := e.Err
	if err == nil {
		err = errs.NewError(errs.ErrSocketFailure, "unknown error")
	}
	m.logger.Warn().Err(err).Str("user_id", a.userID).Msg("Connect attempt failed")
	m.abort(a, err)
}

func (m *Machine) onOwnUser(user *models.User) {
	if user == nil {
		return
	}

	m.mu.Lock()
	if m.user.Kind != UserSet || m.user.User.ID != user.ID {
		m.mu.Unlock()
		return
	}

	merged := m.user.User.Clone()
	merged.MergePartially(user)
	m.user = UserState{Kind: UserSet, User: merged}
	if m.conn != nil {
		m.conn = &ConnectionData{User: merged.Clone(), ConnectionID: m.conn.ConnectionID}
	}
	m.publishLocked()
	cfg := m.credentialsLocked()
	m.mu.Unlock()

	m.persist(context.Background(), cfg)
}

// UpdateUser merges a fresh copy of the current user, e.g. fetched from the backend, into the
// session and persists it. Updates for any other user are ignored.
func (m *Machine) UpdateUser(user *models.User) {
	m.onOwnUser(user)
}
