package plugin

import (
	"context"
	"time"

	"chatsdk/pkg/call"
	"chatsdk/pkg/events"
	"chatsdk/pkg/models"
)

// QueryChannelOp gates a single channel query.
func QueryChannelOp(channelType, channelID string, req models.QueryChannelRequest, network func() call.Call[*models.Channel]) Operation[*models.Channel] {
	return Operation[*models.Channel]{
		Name: "query_channel",
		Precondition: func(ctx context.Context, p Plugin) error {
			return check(p, func(l QueryChannelListener) error {
				return l.OnQueryChannelPrecondition(ctx, channelType, channelID, req)
			})
		},
		Request: func(ctx context.Context, p Plugin) {
			hook(p, func(l QueryChannelListener) { l.OnQueryChannelRequest(ctx, channelType, channelID, req) })
		},
		Result: func(ctx context.Context, p Plugin, res call.Result[*models.Channel]) {
			hook(p, func(l QueryChannelListener) { l.OnQueryChannelResult(ctx, res, channelType, channelID, req) })
		},
		Network: network,
	}
}

// QueryChannelsOp gates a channel list query.
func QueryChannelsOp(req models.QueryChannelsRequest, network func() call.Call[[]*models.Channel]) Operation[[]*models.Channel] {
	return Operation[[]*models.Channel]{
		Name: "query_channels",
		Precondition: func(ctx context.Context, p Plugin) error {
			return check(p, func(l QueryChannelsListener) error { return l.OnQueryChannelsPrecondition(ctx, req) })
		},
		Request: func(ctx context.Context, p Plugin) {
			hook(p, func(l QueryChannelsListener) { l.OnQueryChannelsRequest(ctx, req) })
		},
		Result: func(ctx context.Context, p Plugin, res call.Result[[]*models.Channel]) {
			hook(p, func(l QueryChannelsListener) { l.OnQueryChannelsResult(ctx, res, req) })
		},
		Network: network,
	}
}

// CreateChannelOp gates channel creation.
func CreateChannelOp(currentUser *models.User, channelType, channelID string, memberIDs []string, extraData map[string]any, network func() call.Call[*models.Channel]) Operation[*models.Channel] {
	return Operation[*models.Channel]{
		Name: "create_channel",
		Precondition: func(ctx context.Context, p Plugin) error {
			return check(p, func(l CreateChannelListener) error {
				return l.OnCreateChannelPrecondition(ctx, currentUser, channelType, channelID, memberIDs)
			})
		},
		Request: func(ctx context.Context, p Plugin) {
			hook(p, func(l CreateChannelListener) {
				l.OnCreateChannelRequest(ctx, currentUser, channelType, channelID, memberIDs, extraData)
			})
		},
		Result: func(ctx context.Context, p Plugin, res call.Result[*models.Channel]) {
			hook(p, func(l CreateChannelListener) { l.OnCreateChannelResult(ctx, res, channelType, channelID, memberIDs) })
		},
		Network: network,
	}
}

// DeleteChannelOp gates channel deletion.
func DeleteChannelOp(currentUser *models.User, channelType, channelID string, network func() call.Call[*models.Channel]) Operation[*models.Channel] {
	return Operation[*models.Channel]{
		Name: "delete_channel",
		Precondition: func(ctx context.Context, p Plugin) error {
			return check(p, func(l DeleteChannelListener) error {
				return l.OnDeleteChannelPrecondition(ctx, currentUser, channelType, channelID)
			})
		},
		Request: func(ctx context.Context, p Plugin) {
			hook(p, func(l DeleteChannelListener) { l.OnDeleteChannelRequest(ctx, currentUser, channelType, channelID) })
		},
		Result: func(ctx context.Context, p Plugin, res call.Result[*models.Channel]) {
			hook(p, func(l DeleteChannelListener) { l.OnDeleteChannelResult(ctx, res, channelType, channelID) })
		},
		Network: network,
	}
}

// HideChannelOp gates hiding a channel.
func HideChannelOp(channelType, channelID string, clearHistory bool, network func() call.Call[struct{}]) Operation[struct{}] {
	return Operation[struct{}]{
		Name: "hide_channel",
		Precondition: func(ctx context.Context, p Plugin) error {
			return check(p, func(l HideChannelListener) error {
				return l.OnHideChannelPrecondition(ctx, channelType, channelID, clearHistory)
			})
		},
		Request: func(ctx context.Context, p Plugin) {
			hook(p, func(l HideChannelListener) { l.OnHideChannelRequest(ctx, channelType, channelID, clearHistory) })
		},
		Result: func(ctx context.Context, p Plugin, res call.Result[struct{}]) {
			hook(p, func(l HideChannelListener) { l.OnHideChannelResult(ctx, res, channelType, channelID, clearHistory) })
		},
		Network: network,
	}
}

// MarkReadOp gates marking a channel read.
func MarkReadOp(channelType, channelID string, network func() call.Call[struct{}]) Operation[struct{}] {
	return Operation[struct{}]{
		Name: "mark_read",
		Precondition: func(ctx context.Context, p Plugin) error {
			return check(p, func(l MarkReadListener) error {
				return l.OnChannelMarkReadPrecondition(ctx, channelType, channelID)
			})
		},
		Network: network,
	}
}

// MarkAllReadOp gates marking every channel read.
func MarkAllReadOp(network func() call.Call[struct{}]) Operation[struct{}] {
	return Operation[struct{}]{
		Name: "mark_all_read",
		Request: func(ctx context.Context, p Plugin) {
			hook(p, func(l MarkAllReadListener) { l.OnMarkAllReadRequest(ctx) })
		},
		Network: network,
	}
}

// SendMessageOp gates sending a message. With skipRequest the request hooks are not run,
// e.g. when a plugin already prepared the message for an offline retry.
func SendMessageOp(channelType, channelID string, message *models.Message, skipRequest bool, network func() call.Call[*models.Message]) Operation[*models.Message] {
	return Operation[*models.Message]{
		Name: "send_message",
		Precondition: func(ctx context.Context, p Plugin) error {
			return check(p, func(l SendMessageListener) error {
				return l.OnMessageSendPrecondition(ctx, channelType, channelID, message)
			})
		},
		Request: func(ctx context.Context, p Plugin) {
			hook(p, func(l SendMessageListener) { l.OnMessageSendRequest(ctx, channelType, channelID, message) })
		},
		Result: func(ctx context.Context, p Plugin, res call.Result[*models.Message]) {
			hook(p, func(l SendMessageListener) { l.OnMessageSendResult(ctx, res, channelType, channelID, message) })
		},
		Network:     network,
		SkipRequest: skipRequest,
	}
}

// EditMessageOp gates editing a message.
func EditMessageOp(message *models.Message, network func() call.Call[*models.Message]) Operation[*models.Message] {
	return Operation[*models.Message]{
		Name: "update_message",
		Request: func(ctx context.Context, p Plugin) {
			hook(p, func(l EditMessageListener) { l.OnMessageEditRequest(ctx, message) })
		},
		Result: func(ctx context.Context, p Plugin, res call.Result[*models.Message]) {
			hook(p, func(l EditMessageListener) { l.OnMessageEditResult(ctx, res, message) })
		},
		Network: network,
	}
}

// DeleteMessageOp gates deleting a message.
func DeleteMessageOp(messageID string, network func() call.Call[*models.Message]) Operation[*models.Message] {
	return Operation[*models.Message]{
		Name: "delete_message",
		Precondition: func(ctx context.Context, p Plugin) error {
			return check(p, func(l DeleteMessageListener) error { return l.OnMessageDeletePrecondition(ctx, messageID) })
		},
		Request: func(ctx context.Context, p Plugin) {
			hook(p, func(l DeleteMessageListener) { l.OnMessageDeleteRequest(ctx, messageID) })
		},
		Result: func(ctx context.Context, p Plugin, res call.Result[*models.Message]) {
			hook(p, func(l DeleteMessageListener) { l.OnMessageDeleteResult(ctx, res, messageID) })
		},
		Network: network,
	}
}

// GetMessageOp gates fetching a single message.
func GetMessageOp(messageID string, network func() call.Call[*models.Message]) Operation[*models.Message] {
	return Operation[*models.Message]{
		Name: "get_message",
		Result: func(ctx context.Context, p Plugin, res call.Result[*models.Message]) {
			hook(p, func(l GetMessageListener) { l.OnGetMessageResult(ctx, res, messageID) })
		},
		Network: network,
	}
}

// GetRepliesOp gates a thread reply query.
func GetRepliesOp(messageID string, limit int, network func() call.Call[[]*models.Message]) Operation[[]*models.Message] {
	return Operation[[]*models.Message]{
		Name: "get_replies",
		Precondition: func(ctx context.Context, p Plugin) error {
			return check(p, func(l QueryRepliesListener) error { return l.OnGetRepliesPrecondition(ctx, messageID, limit) })
		},
		Request: func(ctx context.Context, p Plugin) {
			hook(p, func(l QueryRepliesListener) { l.OnGetRepliesRequest(ctx, messageID, limit) })
		},
		Result: func(ctx context.Context, p Plugin, res call.Result[[]*models.Message]) {
			hook(p, func(l QueryRepliesListener) { l.OnGetRepliesResult(ctx, res, messageID, limit) })
		},
		Network: network,
	}
}

// SendReactionOp gates sending a reaction.
func SendReactionOp(currentUser *models.User, cid string, reaction *models.Reaction, enforceUnique bool, network func() call.Call[*models.Reaction]) Operation[*models.Reaction] {
	return Operation[*models.Reaction]{
		Name: "send_reaction",
		Precondition: func(ctx context.Context, p Plugin) error {
			return check(p, func(l SendReactionListener) error {
				return l.OnSendReactionPrecondition(ctx, currentUser, reaction)
			})
		},
		Request: func(ctx context.Context, p Plugin) {
			hook(p, func(l SendReactionListener) {
				l.OnSendReactionRequest(ctx, cid, reaction, enforceUnique, currentUser)
			})
		},
		Result: func(ctx context.Context, p Plugin, res call.Result[*models.Reaction]) {
			hook(p, func(l SendReactionListener) {
				l.OnSendReactionResult(ctx, res, cid, reaction, enforceUnique, currentUser)
			})
		},
		Network: network,
	}
}

// DeleteReactionOp gates deleting a reaction.
func DeleteReactionOp(currentUser *models.User, cid, messageID, reactionType string, network func() call.Call[*models.Message]) Operation[*models.Message] {
	return Operation[*models.Message]{
		Name: "delete_reaction",
		Precondition: func(ctx context.Context, p Plugin) error {
			return check(p, func(l DeleteReactionListener) error { return l.OnDeleteReactionPrecondition(ctx, currentUser) })
		},
		Request: func(ctx context.Context, p Plugin) {
			hook(p, func(l DeleteReactionListener) {
				l.OnDeleteReactionRequest(ctx, cid, messageID, reactionType, currentUser)
			})
		},
		Result: func(ctx context.Context, p Plugin, res call.Result[*models.Message]) {
			hook(p, func(l DeleteReactionListener) {
				l.OnDeleteReactionResult(ctx, res, cid, messageID, reactionType, currentUser)
			})
		},
		Network: network,
	}
}

// QueryMembersOp gates a member query.
func QueryMembersOp(req models.QueryMembersRequest, network func() call.Call[[]models.Member]) Operation[[]models.Member] {
	return Operation[[]models.Member]{
		Name: "query_members",
		Result: func(ctx context.Context, p Plugin, res call.Result[[]models.Member]) {
			hook(p, func(l QueryMembersListener) { l.OnQueryMembersResult(ctx, res, req) })
		},
		Network: network,
	}
}

// TypingEventOp gates sending a typing event.
func TypingEventOp(eventType, channelType, channelID string, extraData map[string]any, at time.Time, network func() call.Call[events.ChatEvent]) Operation[events.ChatEvent] {
	return Operation[events.ChatEvent]{
		Name: "typing_event",
		Precondition: func(ctx context.Context, p Plugin) error {
			return check(p, func(l TypingEventListener) error {
				return l.OnTypingEventPrecondition(ctx, eventType, channelType, channelID, extraData, at)
			})
		},
		Request: func(ctx context.Context, p Plugin) {
			hook(p, func(l TypingEventListener) {
				l.OnTypingEventRequest(ctx, eventType, channelType, channelID, extraData, at)
			})
		},
		Result: func(ctx context.Context, p Plugin, res call.Result[events.ChatEvent]) {
			hook(p, func(l TypingEventListener) {
				l.OnTypingEventResult(ctx, res, eventType, channelType, channelID, extraData, at)
			})
		},
		Network: network,
	}
}

// UserPushPreferenceOp gates changing the push preference of the current user.
func UserPushPreferenceOp(preference models.PushPreference, network func() call.Call[models.PushPreference]) Operation[models.PushPreference] {
	return Operation[models.PushPreference]{
		Name: "user_push_preference",
		Result: func(ctx context.Context, p Plugin, res call.Result[models.PushPreference]) {
			hook(p, func(l UserPushPreferenceListener) { l.OnUserPushPreferenceResult(ctx, res, preference) })
		},
		Network: network,
	}
}

// ChannelPushPreferenceOp gates changing the push preference of a channel.
func ChannelPushPreferenceOp(cid string, preference models.PushPreference, network func() call.Call[models.PushPreference]) Operation[models.PushPreference] {
	return Operation[models.PushPreference]{
		Name: "channel_push_preference",
		Result: func(ctx context.Context, p Plugin, res call.Result[models.PushPreference]) {
			hook(p, func(l ChannelPushPreferenceListener) { l.OnChannelPushPreferenceResult(ctx, res, cid, preference) })
		},
		Network: network,
	}
}

// UpdateLiveLocationOp gates live location updates.
func UpdateLiveLocationOp(location *models.Location, network func() call.Call[*models.Location]) Operation[*models.Location] {
	return Operation[*models.Location]{
		Name: "update_live_location",
		Result: func(ctx context.Context, p Plugin, res call.Result[*models.Location]) {
			hook(p, func(l LiveLocationListener) { l.OnUpdateLiveLocationResult(ctx, res, location) })
		},
		Network: network,
	}
}

// FetchCurrentUserOp gates fetching the current user.
func FetchCurrentUserOp(network func() call.Call[*models.User]) Operation[*models.User] {
	return Operation[*models.User]{
		Name: "fetch_current_user",
		Result: func(ctx context.Context, p Plugin, res call.Result[*models.User]) {
			hook(p, func(l FetchCurrentUserListener) { l.OnFetchCurrentUserResult(ctx, res) })
		},
		Network: network,
	}
}
