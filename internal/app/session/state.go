/*
Package session implements the connection state machine of the chat client.

The Machine owns the user state, the connection data and the initialization state of a
session. It is the single writer of that state: connect and disconnect requests from the
client and connection events from the realtime transport are serialized by the machine,
and readers observe an immutable Snapshot published atomically after every change.
*/
package session

import (
	"fmt"
	"time"

	"chatsdk/pkg/models"
)

// State is the connection state of the session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateDisconnecting:
		return "Disconnecting"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// UserStateKind tags a UserState.
type UserStateKind int

const (
	UserNotSet UserStateKind = iota
	UserPending
	UserSet
)

// UserState is the user of the session: not set, pending while its first connection is being
// established, or set.
type UserState struct {
	Kind UserStateKind
	User *models.User
}

// IsSet reports whether a user is pending or set.
func (u UserState) IsSet() bool {
	return u.Kind != UserNotSet && u.User != nil
}

func (u UserState) String() string {
	switch u.Kind {
	case UserPending:
		return fmt.Sprintf("Pending(%s)", u.User.ID)
	case UserSet:
		return fmt.Sprintf("UserSet(%s)", u.User.ID)
	default:
		return "NotSet"
	}
}

// InitializationState tracks whether plugins and credentials are ready for the current user.
type InitializationState int

const (
	InitNotInitialized InitializationState = iota
	InitInitializing
	InitComplete
)

func (s InitializationState) String() string {
	switch s {
	case InitNotInitialized:
		return "NotInitialized"
	case InitInitializing:
		return "Initializing"
	case InitComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// ConnectionData is the result of a successful connect. It is valid until the next disconnect.
type ConnectionData struct {
	User         *models.User
	ConnectionID string
}

// Snapshot is an immutable view of the session.
type Snapshot struct {
	State          State
	User           UserState
	Connection     *ConnectionData
	Initialization InitializationState

	// Deadline is the connect deadline while connecting with a timeout.
	Deadline time.Time

	// Token is the token of the current user.
	Token string

	// Anonymous reports whether the current user is the anonymous user.
	Anonymous bool
}

// CurrentUser returns the pending or set user, or nil.
func (s Snapshot) CurrentUser() *models.User {
	if !s.User.IsSet() {
		return nil
	}
	return s.User.User
}

// ConnectionID returns the id of the live connection, or "".
func (s Snapshot) ConnectionID() string {
	if s.Connection == nil {
		return ""
	}
	return s.Connection.ConnectionID
}
