/*
Package events defines the realtime event catalog of the chat client and the registry that
delivers events to subscribers.

Every event implements ChatEvent. Connection lifecycle events (connected, connecting,
disconnected, error) are produced locally by the transport; the rest are decoded from
backend frames with Parse.
*/
package events

import (
	"time"

	"chatsdk/pkg/models"
)

// Event types.
const (
	TypeHealthCheck            = "health.check"
	TypeConnectionConnected    = "connection.connected"
	TypeConnectionConnecting   = "connection.connecting"
	TypeConnectionDisconnected = "connection.disconnected"
	TypeConnectionError        = "connection.error"

	TypeMessageNew     = "message.new"
	TypeMessageUpdated = "message.updated"
	TypeMessageDeleted = "message.deleted"
	TypeMessageRead    = "message.read"

	TypeReactionNew     = "reaction.new"
	TypeReactionUpdated = "reaction.updated"
	TypeReactionDeleted = "reaction.deleted"

	TypeTypingStart = "typing.start"
	TypeTypingStop  = "typing.stop"

	TypeChannelCreated   = "channel.created"
	TypeChannelUpdated   = "channel.updated"
	TypeChannelDeleted   = "channel.deleted"
	TypeChannelHidden    = "channel.hidden"
	TypeChannelVisible   = "channel.visible"
	TypeChannelTruncated = "channel.truncated"

	TypeMemberAdded   = "member.added"
	TypeMemberUpdated = "member.updated"
	TypeMemberRemoved = "member.removed"

	TypeUserUpdated         = "user.updated"
	TypeUserPresenceChanged = "user.presence.changed"
	TypeUserWatchingStart   = "user.watching.start"
	TypeUserWatchingStop    = "user.watching.stop"

	TypeNotificationMessageNew          = "notification.message_new"
	TypeNotificationMarkRead            = "notification.mark_read"
	TypeNotificationAddedToChannel      = "notification.added_to_channel"
	TypeNotificationMutesUpdated        = "notification.mutes_updated"
	TypeNotificationChannelMutesUpdated = "notification.channel_mutes_updated"
)

// ChatEvent is implemented by every event of the catalog.
type ChatEvent interface {
	// Type returns the wire type of the event, e.g. "message.new".
	Type() string

	// CreatedAt returns the time the event was created by the backend or the transport.
	CreatedAt() time.Time
}

// HasOwnUser is implemented by events carrying an updated version of the current user.
type HasOwnUser interface {
	ChatEvent
	OwnUser() *models.User
}

// HasChannel is implemented by events scoped to a channel.
type HasChannel interface {
	ChatEvent
	ChannelCID() string
}

// Base holds the fields shared by every event.
type Base struct {
	EventType string    `json:"type"`
	Timestamp time.Time `json:"created_at"`
}

// NewBase returns a Base of the given type stamped with the current time.
func NewBase(eventType string) Base {
	return Base{EventType: eventType, Timestamp: time.Now()}
}

func (b Base) Type() string         { return b.EventType }
func (b Base) CreatedAt() time.Time { return b.Timestamp }

// ChannelBase holds the channel coordinates of channel-scoped events.
type ChannelBase struct {
	CID         string `json:"cid"`
	ChannelType string `json:"channel_type,omitempty"`
	ChannelID   string `json:"channel_id,omitempty"`
}

func (c ChannelBase) ChannelCID() string { return c.CID }

// Connection lifecycle

// ConnectedEvent is emitted once the realtime connection is established and authenticated.
type ConnectedEvent struct {
	Base
	Me           *models.User `json:"me"`
	ConnectionID string       `json:"connection_id"`
}

func (e *ConnectedEvent) OwnUser() *models.User { return e.Me }

// ConnectingEvent is emitted when the transport starts (re)opening the connection.
type ConnectingEvent struct {
	Base
}

// DisconnectedEvent is emitted when the realtime connection is closed.
type DisconnectedEvent struct {
	Base
	Cause DisconnectCause `json:"-"`
}

// ErrorEvent is emitted when the realtime connection reports an error.
type ErrorEvent struct {
	Base
	Err error `json:"-"`
}

// HealthEvent is the periodic health check of the backend. The first one carries the
// connection id and the current user.
type HealthEvent struct {
	Base
	ConnectionID string       `json:"connection_id"`
	Me           *models.User `json:"me,omitempty"`
}

// DisconnectReason classifies a DisconnectCause.
type DisconnectReason int

const (
	// ReasonConnectionReleased is a disconnect requested by the client.
	ReasonConnectionReleased DisconnectReason = iota

	// ReasonNetworkNotAvailable is a disconnect caused by lost connectivity.
	ReasonNetworkNotAvailable

	// ReasonError is a recoverable transport failure; the transport reconnects.
	ReasonError

	// ReasonUnrecoverableError is a failure after which the session cannot continue,
	// e.g. an invalid token.
	ReasonUnrecoverableError
)

func (r DisconnectReason) String() string {
	switch r {
	case ReasonConnectionReleased:
		return "connection_released"
	case ReasonNetworkNotAvailable:
		return "network_not_available"
	case ReasonError:
		return "error"
	case ReasonUnrecoverableError:
		return "unrecoverable_error"
	default:
		return "unknown"
	}
}

// DisconnectCause explains a DisconnectedEvent.
type DisconnectCause struct {
	Reason DisconnectReason
	Err    error
}

// Unrecoverable reports whether the session must be torn down.
func (c DisconnectCause) Unrecoverable() bool {
	return c.Reason == ReasonUnrecoverableError
}

// Messages

// NewMessageEvent is emitted when a message is sent to a watched channel.
type NewMessageEvent struct {
	Base
	ChannelBase
	Message          *models.Message `json:"message"`
	User             *models.User    `json:"user,omitempty"`
	WatcherCount     int             `json:"watcher_count,omitempty"`
	TotalUnreadCount int             `json:"total_unread_count,omitempty"`
	UnreadChannels   int             `json:"unread_channels,omitempty"`
}

// MessageUpdatedEvent is emitted when a message is edited.
type MessageUpdatedEvent struct {
	Base
	ChannelBase
	Message *models.Message `json:"message"`
	User    *models.User    `json:"user,omitempty"`
}

// MessageDeletedEvent is emitted when a message is deleted.
type MessageDeletedEvent struct {
	Base
	ChannelBase
	Message    *models.Message `json:"message"`
	User       *models.User    `json:"user,omitempty"`
	HardDelete bool            `json:"hard_delete,omitempty"`
}

// MessageReadEvent is emitted when a member marks a channel read.
type MessageReadEvent struct {
	Base
	ChannelBase
	User *models.User `json:"user"`
}

// Reactions

// ReactionEvent is emitted for new, updated and deleted reactions. Type tells them apart.
type ReactionEvent struct {
	Base
	ChannelBase
	Message  *models.Message  `json:"message"`
	Reaction *models.Reaction `json:"reaction"`
	User     *models.User     `json:"user,omitempty"`
}

// Typing

// TypingEvent is emitted for typing.start and typing.stop.
type TypingEvent struct {
	Base
	ChannelBase
	User     *models.User `json:"user"`
	ParentID string       `json:"parent_id,omitempty"`
}

// Channels

// ChannelEvent is emitted for channel lifecycle changes (created, updated, deleted, hidden,
// visible, truncated).
type ChannelEvent struct {
	Base
	ChannelBase
	Channel      *models.Channel `json:"channel,omitempty"`
	User         *models.User    `json:"user,omitempty"`
	ClearHistory bool            `json:"clear_history,omitempty"`
}

// MemberEvent is emitted when a member is added, updated or removed.
type MemberEvent struct {
	Base
	ChannelBase
	Member *models.Member `json:"member,omitempty"`
	User   *models.User   `json:"user,omitempty"`
}

// Users

// UserUpdatedEvent is emitted when a user is updated. For the current user it carries the
// authoritative version to merge.
type UserUpdatedEvent struct {
	Base
	User *models.User `json:"user"`
}

// UserPresenceEvent is emitted for presence changes and watching start/stop.
type UserPresenceEvent struct {
	Base
	ChannelBase
	User *models.User `json:"user"`
}

// Notifications

// NotificationEvent is emitted for notification.* events. Me is set for events that carry
// the updated current user (mutes, channel mutes, mark read).
type NotificationEvent struct {
	Base
	ChannelBase
	Me               *models.User    `json:"me,omitempty"`
	Channel          *models.Channel `json:"channel,omitempty"`
	Message          *models.Message `json:"message,omitempty"`
	Member           *models.Member  `json:"member,omitempty"`
	TotalUnreadCount int             `json:"total_unread_count,omitempty"`
	UnreadChannels   int             `json:"unread_channels,omitempty"`
}

func (e *NotificationEvent) OwnUser() *models.User { return e.Me }

// UnknownEvent holds a frame whose type is not part of the catalog.
type UnknownEvent struct {
	Base
	Raw map[string]any `json:"-"`
}
