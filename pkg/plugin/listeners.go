/*
Package plugin provides the plugin-mediated request pipeline of the chat client.

A plugin is any value implementing one or more of the listener interfaces below. Each
interface covers one operation family with up to three hooks: a precondition that may veto
the operation, a request hook that fires before the network call, and a result hook that
receives the final Result. Plugins that only care about a few hooks embed Base.
*/
package plugin

import (
	"context"
	"reflect"
	"time"

	"chatsdk/pkg/call"
	"chatsdk/pkg/events"
	"chatsdk/pkg/models"
)

// Plugin is a capability set. The pipeline detects the listener interfaces it implements.
type Plugin any

// Factory builds the plugin for a user. Factories are invoked on every successful user set.
type Factory interface {
	Get(user *models.User) Plugin
}

// FactoryFunc adapts a function to a Factory.
type FactoryFunc func(user *models.User) Plugin

func (f FactoryFunc) Get(user *models.User) Plugin { return f(user) }

// DependencyResolver is implemented by plugins exposing internal components to the client.
type DependencyResolver interface {
	// ResolveDependency returns the component of type t, if the plugin provides one.
	ResolveDependency(t reflect.Type) (any, bool)
}

// UserLifecycleListener is notified when a user is set and when it is disconnected.
type UserLifecycleListener interface {
	OnUserSet(user *models.User)
	OnUserDisconnected()
}

// QueryChannelListener observes single channel queries.
type QueryChannelListener interface {
	OnQueryChannelPrecondition(ctx context.Context, channelType, channelID string, req models.QueryChannelRequest) error
	OnQueryChannelRequest(ctx context.Context, channelType, channelID string, req models.QueryChannelRequest)
	OnQueryChannelResult(ctx context.Context, res call.Result[*models.Channel], channelType, channelID string, req models.QueryChannelRequest)
}

// QueryChannelsListener observes channel list queries.
type QueryChannelsListener interface {
	OnQueryChannelsPrecondition(ctx context.Context, req models.QueryChannelsRequest) error
	OnQueryChannelsRequest(ctx context.Context, req models.QueryChannelsRequest)
	OnQueryChannelsResult(ctx context.Context, res call.Result[[]*models.Channel], req models.QueryChannelsRequest)
}

// CreateChannelListener observes channel creation.
type CreateChannelListener interface {
	OnCreateChannelPrecondition(ctx context.Context, currentUser *models.User, channelType, channelID string, memberIDs []string) error
	OnCreateChannelRequest(ctx context.Context, currentUser *models.User, channelType, channelID string, memberIDs []string, extraData map[string]any)
	OnCreateChannelResult(ctx context.Context, res call.Result[*models.Channel], channelType, channelID string, memberIDs []string)
}

// DeleteChannelListener observes channel deletion.
type DeleteChannelListener interface {
	OnDeleteChannelPrecondition(ctx context.Context, currentUser *models.User, channelType, channelID string) error
	OnDeleteChannelRequest(ctx context.Context, currentUser *models.User, channelType, channelID string)
	OnDeleteChannelResult(ctx context.Context, res call.Result[*models.Channel], channelType, channelID string)
}

// HideChannelListener observes hiding of channels.
type HideChannelListener interface {
	OnHideChannelPrecondition(ctx context.Context, channelType, channelID string, clearHistory bool) error
	OnHideChannelRequest(ctx context.Context, channelType, channelID string, clearHistory bool)
	OnHideChannelResult(ctx context.Context, res call.Result[struct{}], channelType, channelID string, clearHistory bool)
}

// MarkReadListener may veto marking a channel read.
type MarkReadListener interface {
	OnChannelMarkReadPrecondition(ctx context.Context, channelType, channelID string) error
}

// MarkAllReadListener observes marking every channel read.
type MarkAllReadListener interface {
	OnMarkAllReadRequest(ctx context.Context)
}

// SendMessageListener observes sent messages.
type SendMessageListener interface {
	OnMessageSendPrecondition(ctx context.Context, channelType, channelID string, message *models.Message) error
	OnMessageSendRequest(ctx context.Context, channelType, channelID string, message *models.Message)
	OnMessageSendResult(ctx context.Context, res call.Result[*models.Message], channelType, channelID string, message *models.Message)
}

// EditMessageListener observes message edits.
type EditMessageListener interface {
	OnMessageEditRequest(ctx context.Context, message *models.Message)
	OnMessageEditResult(ctx context.Context, res call.Result[*models.Message], message *models.Message)
}

// DeleteMessageListener observes message deletion.
type DeleteMessageListener interface {
	OnMessageDeletePrecondition(ctx context.Context, messageID string) error
	OnMessageDeleteRequest(ctx context.Context, messageID string)
	OnMessageDeleteResult(ctx context.Context, res call.Result[*models.Message], messageID string)
}

// GetMessageListener observes single message fetches.
type GetMessageListener interface {
	OnGetMessageResult(ctx context.Context, res call.Result[*models.Message], messageID string)
}

// QueryRepliesListener observes thread reply queries.
type QueryRepliesListener interface {
	OnGetRepliesPrecondition(ctx context.Context, messageID string, limit int) error
	OnGetRepliesRequest(ctx context.Context, messageID string, limit int)
	OnGetRepliesResult(ctx context.Context, res call.Result[[]*models.Message], messageID string, limit int)
}

// SendReactionListener observes sent reactions.
type SendReactionListener interface {
	OnSendReactionPrecondition(ctx context.Context, currentUser *models.User, reaction *models.Reaction) error
	OnSendReactionRequest(ctx context.Context, cid string, reaction *models.Reaction, enforceUnique bool, currentUser *models.User)
	OnSendReactionResult(ctx context.Context, res call.Result[*models.Reaction], cid string, reaction *models.Reaction, enforceUnique bool, currentUser *models.User)
}

// DeleteReactionListener observes deleted reactions.
type DeleteReactionListener interface {
	OnDeleteReactionPrecondition(ctx context.Context, currentUser *models.User) error
	OnDeleteReactionRequest(ctx context.Context, cid, messageID, reactionType string, currentUser *models.User)
	OnDeleteReactionResult(ctx context.Context, res call.Result[*models.Message], cid, messageID, reactionType string, currentUser *models.User)
}

// QueryMembersListener observes member queries.
type QueryMembersListener interface {
	OnQueryMembersResult(ctx context.Context, res call.Result[[]models.Member], req models.QueryMembersRequest)
}

// TypingEventListener observes typing.start and typing.stop events sent by the current user.
type TypingEventListener interface {
	OnTypingEventPrecondition(ctx context.Context, eventType, channelType, channelID string, extraData map[string]any, at time.Time) error
	OnTypingEventRequest(ctx context.Context, eventType, channelType, channelID string, extraData map[string]any, at time.Time)
	OnTypingEventResult(ctx context.Context, res call.Result[events.ChatEvent], eventType, channelType, channelID string, extraData map[string]any, at time.Time)
}

// UserPushPreferenceListener observes push preference changes of the current user.
type UserPushPreferenceListener interface {
	OnUserPushPreferenceResult(ctx context.Context, res call.Result[models.PushPreference], preference models.PushPreference)
}

// ChannelPushPreferenceListener observes push preference changes of a channel.
type ChannelPushPreferenceListener interface {
	OnChannelPushPreferenceResult(ctx context.Context, res call.Result[models.PushPreference], cid string, preference models.PushPreference)
}

// LiveLocationListener observes live location updates.
type LiveLocationListener interface {
	OnUpdateLiveLocationResult(ctx context.Context, res call.Result[*models.Location], location *models.Location)
}

// FetchCurrentUserListener observes fetches of the current user.
type FetchCurrentUserListener interface {
	OnFetchCurrentUserResult(ctx context.Context, res call.Result[*models.User])
}
