/*
Package api is the network call factory of the chat client.

Every backend operation is exposed as a method returning a one-shot call.Call; nothing is sent
until the call is launched. The HTTP implementation authenticates requests with the token of
the connected user, attaches the realtime connection id, throttles outbound requests and
retries once with a refreshed token when the backend reports an expired one.
*/
package api

import (
	"time"

	"chatsdk/pkg/call"
	"chatsdk/pkg/events"
	"chatsdk/pkg/models"
)

// BanOptions refine a ban.
type BanOptions struct {
	// Reason is stored with the ban and shown to moderators.
	Reason string

	// Timeout lifts the ban automatically; zero bans permanently.
	Timeout time.Duration

	// Shadow hides the messages of the banned user from everyone else without telling them.
	Shadow bool
}

// API produces the network calls of every backend operation.
type API interface {
	// Users
	GetGuestUser(userID, name string) call.Call[models.GuestUser]
	FetchCurrentUser() call.Call[*models.User]
	QueryUsers(req models.QueryUsersRequest) call.Call[[]*models.User]
	UpdateUsers(users []*models.User) call.Call[[]*models.User]
	PartialUpdateUser(update models.PartialUpdate) call.Call[*models.User]

	// Channels
	QueryChannel(channelType, channelID string, req models.QueryChannelRequest) call.Call[*models.Channel]
	QueryChannels(req models.QueryChannelsRequest) call.Call[[]*models.Channel]
	CreateChannel(channelType, channelID string, memberIDs []string, extraData map[string]any) call.Call[*models.Channel]
	UpdateChannel(channelType, channelID string, update models.ChannelUpdate) call.Call[*models.Channel]
	UpdateChannelPartial(channelType, channelID string, update models.PartialUpdate) call.Call[*models.Channel]
	DeleteChannel(channelType, channelID string) call.Call[*models.Channel]
	TruncateChannel(channelType, channelID string, systemMessage *models.Message) call.Call[*models.Channel]
	HideChannel(channelType, channelID string, clearHistory bool) call.Call[struct{}]
	ShowChannel(channelType, channelID string) call.Call[struct{}]
	StopWatching(channelType, channelID string) call.Call[struct{}]
	MarkRead(channelType, channelID string) call.Call[struct{}]
	MarkAllRead() call.Call[struct{}]

	// Members
	QueryMembers(req models.QueryMembersRequest) call.Call[[]models.Member]
	AddMembers(channelType, channelID string, memberIDs []string) call.Call[*models.Channel]
	RemoveMembers(channelType, channelID string, memberIDs []string) call.Call[*models.Channel]
	InviteMembers(channelType, channelID string, memberIDs []string) call.Call[*models.Channel]
	AcceptInvite(channelType, channelID string) call.Call[*models.Channel]
	RejectInvite(channelType, channelID string) call.Call[*models.Channel]

	// Messages
	SendMessage(channelType, channelID string, message *models.Message) call.Call[*models.Message]
	UpdateMessage(message *models.Message) call.Call[*models.Message]
	DeleteMessage(messageID string, hard bool) call.Call[*models.Message]
	GetMessage(messageID string) call.Call[*models.Message]
	GetReplies(messageID string, limit int) call.Call[[]*models.Message]
	GetPinnedMessages(channelType, channelID string, page models.MessagePage) call.Call[[]*models.Message]
	SendReaction(reaction *models.Reaction, enforceUnique bool) call.Call[*models.Reaction]
	DeleteReaction(messageID, reactionType string) call.Call[*models.Message]
	SendEvent(eventType, channelType, channelID, parentID string, extraData map[string]any) call.Call[events.ChatEvent]

	// Moderation
	BanUser(targetID, channelType, channelID string, opts BanOptions) call.Call[struct{}]
	UnbanUser(targetID, channelType, channelID string, shadow bool) call.Call[struct{}]
	MuteUser(targetID string, timeout time.Duration) call.Call[*models.Mute]
	UnmuteUser(targetID string) call.Call[struct{}]
	MuteChannel(channelType, channelID string, timeout time.Duration) call.Call[struct{}]
	UnmuteChannel(channelType, channelID string) call.Call[struct{}]
	FlagMessage(messageID, reason string) call.Call[*models.Flag]
	FlagUser(userID, reason string) call.Call[*models.Flag]
	BlockUser(userID string) call.Call[*models.UserBlock]
	UnblockUser(userID string) call.Call[struct{}]

	// Preferences and settings
	SetUserPushPreference(preference models.PushPreference) call.Call[models.PushPreference]
	SetChannelPushPreference(cid string, preference models.PushPreference) call.Call[models.PushPreference]
	UpdateLiveLocation(location *models.Location) call.Call[*models.Location]
	AppSettings() call.Call[*models.AppSettings]
}
