package chat

import (
	"context"
	"time"

	"chatsdk/internal/app/session"
	"chatsdk/pkg/call"
	"chatsdk/pkg/errs"
	"chatsdk/pkg/events"
	"chatsdk/pkg/models"
	"chatsdk/pkg/plugin"
)

// Contract messages of the user operations.
const (
	MsgFetchUserNotSet        = "User is not set, can't fetch current user"
	MsgFetchUserConnected     = "Socket is connected, can't fetch current user"
	MsgPartialUpdateOtherUser = "The client-side partial update allows you to update only the current user. Make sure the user is set before updating it."
)

// Users

// FetchCurrentUser loads the current user from the backend. It is meant for sessions whose
// socket is not connected, since the connected event already carries the user.
func (c *Client) FetchCurrentUser() call.Call[*models.User] {
	snap := c.machine.Snapshot()
	if !snap.User.IsSet() {
		return call.Error[*models.User](errs.Generic(MsgFetchUserNotSet), c.callOpts())
	}
	if snap.State == session.StateConnected {
		return call.Error[*models.User](errs.Generic(MsgFetchUserConnected), c.callOpts())
	}

	fetched := plugin.Dispatch(c.pipeline, plugin.FetchCurrentUserOp(c.api.FetchCurrentUser))
	return call.DoOnResult(fetched, c.mergeOwnUser)
}

// QueryUsers searches users.
func (c *Client) QueryUsers(req models.QueryUsersRequest) call.Call[[]*models.User] {
	return c.api.QueryUsers(req)
}

// UpdateUser replaces a user.
func (c *Client) UpdateUser(user *models.User) call.Call[*models.User] {
	return call.Map(c.api.UpdateUsers([]*models.User{user}), func(users []*models.User) *models.User {
		for _, u := range users {
			if u != nil && u.ID == user.ID {
				c.machine.UpdateUser(u)
				return u
			}
		}
		return nil
	})
}

// UpdateUsers replaces users.
func (c *Client) UpdateUsers(users []*models.User) call.Call[[]*models.User] {
	return call.DoOnResult(c.api.UpdateUsers(users), func(_ context.Context, res call.Result[[]*models.User]) {
		for _, u := range res.Value() {
			c.machine.UpdateUser(u)
		}
	})
}

// PartialUpdateUser sets and unsets fields of the current user.
func (c *Client) PartialUpdateUser(update models.PartialUpdate) call.Call[*models.User] {
	current := c.currentUser()
	if current == nil || current.ID != update.ID {
		return call.Error[*models.User](errs.Generic(MsgPartialUpdateOtherUser), c.callOpts())
	}

	return call.DoOnResult(c.api.PartialUpdateUser(update), c.mergeOwnUser)
}

func (c *Client) mergeOwnUser(_ context.Context, res call.Result[*models.User]) {
	if user, err := res.Get(); err == nil {
		c.machine.UpdateUser(user)
	}
}

// Channels

// QueryChannel loads a channel, optionally watching it.
func (c *Client) QueryChannel(channelType, channelID string, req models.QueryChannelRequest) call.Call[*models.Channel] {
	return plugin.Dispatch(c.pipeline, plugin.QueryChannelOp(channelType, channelID, req, func() call.Call[*models.Channel] {
		return c.api.QueryChannel(channelType, channelID, req)
	}))
}

// QueryChannels searches the channels of the current user.
func (c *Client) QueryChannels(req models.QueryChannelsRequest) call.Call[[]*models.Channel] {
	return plugin.Dispatch(c.pipeline, plugin.QueryChannelsOp(req, func() call.Call[[]*models.Channel] {
		return c.api.QueryChannels(req)
	}))
}

// CreateChannel creates a channel with the given members. An empty channelID lets the
// backend derive one from the members.
func (c *Client) CreateChannel(channelType, channelID string, memberIDs []string, extraData map[string]any) call.Call[*models.Channel] {
	current := c.currentUser()
	return plugin.Dispatch(c.pipeline, plugin.CreateChannelOp(current, channelType, channelID, memberIDs, extraData, func() call.Call[*models.Channel] {
		return c.api.CreateChannel(channelType, channelID, memberIDs, extraData)
	}))
}

// UpdateChannel replaces the data of a channel.
func (c *Client) UpdateChannel(channelType, channelID string, update models.ChannelUpdate) call.Call[*models.Channel] {
	return c.api.UpdateChannel(channelType, channelID, update)
}

// UpdateChannelPartial sets and unsets fields of a channel.
func (c *Client) UpdateChannelPartial(channelType, channelID string, update models.PartialUpdate) call.Call[*models.Channel] {
	return c.api.UpdateChannelPartial(channelType, channelID, update)
}

// DeleteChannel deletes a channel.
func (c *Client) DeleteChannel(channelType, channelID string) call.Call[*models.Channel] {
	current := c.currentUser()
	return plugin.Dispatch(c.pipeline, plugin.DeleteChannelOp(current, channelType, channelID, func() call.Call[*models.Channel] {
		return c.api.DeleteChannel(channelType, channelID)
	}))
}

// TruncateChannel removes every message of a channel, optionally leaving a system message.
func (c *Client) TruncateChannel(channelType, channelID string, systemMessage *models.Message) call.Call[*models.Channel] {
	return c.api.TruncateChannel(channelType, channelID, systemMessage)
}

// HideChannel hides a channel from the channel list of the current user until a new message
// arrives. With clearHistory the messages sent so far stay hidden.
func (c *Client) HideChannel(channelType, channelID string, clearHistory bool) call.Call[struct{}] {
	return plugin.Dispatch(c.pipeline, plugin.HideChannelOp(channelType, channelID, clearHistory, func() call.Call[struct{}] {
		return c.api.HideChannel(channelType, channelID, clearHistory)
	}))
}

// ShowChannel reverts HideChannel.
func (c *Client) ShowChannel(channelType, channelID string) call.Call[struct{}] {
	return c.api.ShowChannel(channelType, channelID)
}

// StopWatching stops the delivery of the events of a channel.
func (c *Client) StopWatching(channelType, channelID string) call.Call[struct{}] {
	return c.api.StopWatching(channelType, channelID)
}

// MarkRead marks a channel as read.
func (c *Client) MarkRead(channelType, channelID string) call.Call[struct{}] {
	return plugin.Dispatch(c.pipeline, plugin.MarkReadOp(channelType, channelID, func() call.Call[struct{}] {
		return c.api.MarkRead(channelType, channelID)
	}))
}

// MarkAllRead marks every channel of the current user as read.
func (c *Client) MarkAllRead() call.Call[struct{}] {
	return plugin.Dispatch(c.pipeline, plugin.MarkAllReadOp(c.api.MarkAllRead))
}

// Members

// QueryMembers searches the members of a channel.
func (c *Client) QueryMembers(req models.QueryMembersRequest) call.Call[[]models.Member] {
	return plugin.Dispatch(c.pipeline, plugin.QueryMembersOp(req, func() call.Call[[]models.Member] {
		return c.api.QueryMembers(req)
	}))
}

func (c *Client) AddMembers(channelType, channelID string, memberIDs []string) call.Call[*models.Channel] {
	return c.api.AddMembers(channelType, channelID, memberIDs)
}

func (c *Client) RemoveMembers(channelType, channelID string, memberIDs []string) call.Call[*models.Channel] {
	return c.api.RemoveMembers(channelType, channelID, memberIDs)
}

func (c *Client) InviteMembers(channelType, channelID string, memberIDs []string) call.Call[*models.Channel] {
	return c.api.InviteMembers(channelType, channelID, memberIDs)
}

func (c *Client) AcceptInvite(channelType, channelID string) call.Call[*models.Channel] {
	return c.api.AcceptInvite(channelType, channelID)
}

func (c *Client) RejectInvite(channelType, channelID string) call.Call[*models.Channel] {
	return c.api.RejectInvite(channelType, channelID)
}

// Messages

// SendMessage sends message to a channel.
func (c *Client) SendMessage(channelType, channelID string, message *models.Message) call.Call[*models.Message] {
	return c.sendMessage(channelType, channelID, message, false)
}

// ResendMessage sends a message again after a failed attempt. Request hooks are skipped
// since they already ran for the first attempt.
func (c *Client) ResendMessage(channelType, channelID string, message *models.Message) call.Call[*models.Message] {
	return c.sendMessage(channelType, channelID, message, true)
}

func (c *Client) sendMessage(channelType, channelID string, message *models.Message, retrying bool) call.Call[*models.Message] {
	return plugin.Dispatch(c.pipeline, plugin.SendMessageOp(channelType, channelID, message, retrying, func() call.Call[*models.Message] {
		return c.api.SendMessage(channelType, channelID, message)
	}))
}

// UpdateMessage replaces the content of a message.
func (c *Client) UpdateMessage(message *models.Message) call.Call[*models.Message] {
	return plugin.Dispatch(c.pipeline, plugin.EditMessageOp(message, func() call.Call[*models.Message] {
		return c.api.UpdateMessage(message)
	}))
}

// DeleteMessage deletes a message. A hard delete removes it for good.
func (c *Client) DeleteMessage(messageID string, hard bool) call.Call[*models.Message] {
	return plugin.Dispatch(c.pipeline, plugin.DeleteMessageOp(messageID, func() call.Call[*models.Message] {
		return c.api.DeleteMessage(messageID, hard)
	}))
}

// GetMessage loads a message.
func (c *Client) GetMessage(messageID string) call.Call[*models.Message] {
	return plugin.Dispatch(c.pipeline, plugin.GetMessageOp(messageID, func() call.Call[*models.Message] {
		return c.api.GetMessage(messageID)
	}))
}

// GetReplies loads the first limit replies of a thread.
func (c *Client) GetReplies(messageID string, limit int) call.Call[[]*models.Message] {
	return plugin.Dispatch(c.pipeline, plugin.GetRepliesOp(messageID, limit, func() call.Call[[]*models.Message] {
		return c.api.GetReplies(messageID, limit)
	}))
}

// GetPinnedMessages loads the pinned messages of a channel.
func (c *Client) GetPinnedMessages(channelType, channelID string, page models.MessagePage) call.Call[[]*models.Message] {
	return c.api.GetPinnedMessages(channelType, channelID, page)
}

// SendReaction adds a reaction to a message of channel cid. With enforceUnique the reaction
// replaces every previous reaction of the current user on that message.
func (c *Client) SendReaction(reaction *models.Reaction, enforceUnique bool, cid string) call.Call[*models.Reaction] {
	current := c.currentUser()
	return plugin.Dispatch(c.pipeline, plugin.SendReactionOp(current, cid, reaction, enforceUnique, func() call.Call[*models.Reaction] {
		return c.api.SendReaction(reaction, enforceUnique)
	}))
}

// DeleteReaction removes a reaction of the current user from a message of channel cid.
func (c *Client) DeleteReaction(messageID, reactionType, cid string) call.Call[*models.Message] {
	current := c.currentUser()
	return plugin.Dispatch(c.pipeline, plugin.DeleteReactionOp(current, cid, messageID, reactionType, func() call.Call[*models.Message] {
		return c.api.DeleteReaction(messageID, reactionType)
	}))
}

// SendEvent sends a custom event to the members of a channel.
func (c *Client) SendEvent(eventType, channelType, channelID string, extraData map[string]any) call.Call[events.ChatEvent] {
	return c.api.SendEvent(eventType, channelType, channelID, "", extraData)
}

// Moderation

// BanUser bans a user from a channel.
func (c *Client) BanUser(targetID, channelType, channelID, reason string, timeout time.Duration) call.Call[struct{}] {
	return c.api.BanUser(targetID, channelType, channelID, BanOptions{Reason: reason, Timeout: timeout})
}

// UnbanUser lifts a ban.
func (c *Client) UnbanUser(targetID, channelType, channelID string) call.Call[struct{}] {
	return c.api.UnbanUser(targetID, channelType, channelID, false)
}

// ShadowBanUser hides the messages of a user from everyone else in a channel.
func (c *Client) ShadowBanUser(targetID, channelType, channelID, reason string, timeout time.Duration) call.Call[struct{}] {
	return c.api.BanUser(targetID, channelType, channelID, BanOptions{Reason: reason, Timeout: timeout, Shadow: true})
}

// RemoveShadowBan lifts a shadow ban.
func (c *Client) RemoveShadowBan(targetID, channelType, channelID string) call.Call[struct{}] {
	return c.api.UnbanUser(targetID, channelType, channelID, true)
}

func (c *Client) MuteUser(targetID string, timeout time.Duration) call.Call[*models.Mute] {
	return c.api.MuteUser(targetID, timeout)
}

func (c *Client) UnmuteUser(targetID string) call.Call[struct{}] {
	return c.api.UnmuteUser(targetID)
}

func (c *Client) MuteChannel(channelType, channelID string, timeout time.Duration) call.Call[struct{}] {
	return c.api.MuteChannel(channelType, channelID, timeout)
}

func (c *Client) UnmuteChannel(channelType, channelID string) call.Call[struct{}] {
	return c.api.UnmuteChannel(channelType, channelID)
}

func (c *Client) FlagMessage(messageID, reason string) call.Call[*models.Flag] {
	return c.api.FlagMessage(messageID, reason)
}

func (c *Client) FlagUser(userID, reason string) call.Call[*models.Flag] {
	return c.api.FlagUser(userID, reason)
}

func (c *Client) BlockUser(userID string) call.Call[*models.UserBlock] {
	return c.api.BlockUser(userID)
}

func (c *Client) UnblockUser(userID string) call.Call[struct{}] {
	return c.api.UnblockUser(userID)
}

// Preferences and settings

// SetUserPushPreference changes the push preference of the current user.
func (c *Client) SetUserPushPreference(preference models.PushPreference) call.Call[models.PushPreference] {
	return plugin.Dispatch(c.pipeline, plugin.UserPushPreferenceOp(preference, func() call.Call[models.PushPreference] {
		return c.api.SetUserPushPreference(preference)
	}))
}

// SetChannelPushPreference changes the push preference of the current user for channel cid.
func (c *Client) SetChannelPushPreference(cid string, preference models.PushPreference) call.Call[models.PushPreference] {
	return plugin.Dispatch(c.pipeline, plugin.ChannelPushPreferenceOp(cid, preference, func() call.Call[models.PushPreference] {
		return c.api.SetChannelPushPreference(cid, preference)
	}))
}

// UpdateLiveLocation reports a new position of a live location share.
func (c *Client) UpdateLiveLocation(location *models.Location) call.Call[*models.Location] {
	return plugin.Dispatch(c.pipeline, plugin.UpdateLiveLocationOp(location, func() call.Call[*models.Location] {
		return c.api.UpdateLiveLocation(location)
	}))
}

// AppSettings loads the application configuration.
func (c *Client) AppSettings() call.Call[*models.AppSettings] {
	return c.api.AppSettings()
}
