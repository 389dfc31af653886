package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"chatsdk/pkg/call"
	"chatsdk/pkg/events"
	"chatsdk/pkg/models"
)

func channelPath(channelType, channelID string, suffix ...string) string {
	p := "/channels/" + url.PathEscape(channelType)
	if channelID != "" {
		p += "/" + url.PathEscape(channelID)
	}
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

func messagePath(messageID string, suffix ...string) string {
	p := "/messages/" + url.PathEscape(messageID)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

// payloadQuery encodes a query request the way GET endpoints expect it.
func payloadQuery(v any) url.Values {
	raw, _ := json.Marshal(v)
	return url.Values{"payload": {string(raw)}}
}

type channelResponse struct {
	Channel *models.Channel `json:"channel"`
	Members []models.Member `json:"members,omitempty"`
}

func pickChannel(r *channelResponse) *models.Channel {
	if r.Channel != nil && r.Channel.Members == nil {
		r.Channel.Members = r.Members
	}
	return r.Channel
}

type messageResponse struct {
	Message *models.Message `json:"message"`
}

func pickMessage(r *messageResponse) *models.Message { return r.Message }

type messagesResponse struct {
	Messages []*models.Message `json:"messages"`
}

func pickMessages(r *messagesResponse) []*models.Message { return r.Messages }

type userResponse struct {
	User *models.User `json:"user"`
}

type usersResponse struct {
	Users []*models.User `json:"users"`
}

// Users

func (c *HTTPClient) GetGuestUser(userID, name string) call.Call[models.GuestUser] {
	body := map[string]any{"user": map[string]any{"id": userID, "name": name}}
	return send(c, endpoint{method: http.MethodPost, path: "/guest", body: body, public: true},
		func(r *models.GuestUser) models.GuestUser { return *r })
}

func (c *HTTPClient) FetchCurrentUser() call.Call[*models.User] {
	return send(c, endpoint{method: http.MethodGet, path: "/users/me"},
		func(r *userResponse) *models.User { return r.User })
}

func (c *HTTPClient) QueryUsers(req models.QueryUsersRequest) call.Call[[]*models.User] {
	return send(c, endpoint{method: http.MethodGet, path: "/users", query: payloadQuery(req)},
		func(r *usersResponse) []*models.User { return r.Users })
}

func (c *HTTPClient) UpdateUsers(users []*models.User) call.Call[[]*models.User] {
	byID := make(map[string]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	return send(c, endpoint{method: http.MethodPost, path: "/users", body: map[string]any{"users": byID}},
		func(r *usersResponse) []*models.User { return r.Users })
}

func (c *HTTPClient) PartialUpdateUser(update models.PartialUpdate) call.Call[*models.User] {
	body := map[string]any{"users": []models.PartialUpdate{update}}
	return send(c, endpoint{method: http.MethodPatch, path: "/users", body: body},
		func(r *usersResponse) *models.User {
			for _, u := range r.Users {
				if u.ID == update.ID {
					return u
				}
			}
			return nil
		})
}

// Channels

func (c *HTTPClient) QueryChannel(channelType, channelID string, req models.QueryChannelRequest) call.Call[*models.Channel] {
	return send(c, endpoint{method: http.MethodPost, path: channelPath(channelType, channelID, "query"), body: req}, pickChannel)
}

func (c *HTTPClient) QueryChannels(req models.QueryChannelsRequest) call.Call[[]*models.Channel] {
	type channelsResponse struct {
		Channels []channelResponse `json:"channels"`
	}

	return send(c, endpoint{method: http.MethodPost, path: "/channels", body: req},
		func(r *channelsResponse) []*models.Channel {
			channels := make([]*models.Channel, 0, len(r.Channels))
			for i := range r.Channels {
				if ch := pickChannel(&r.Channels[i]); ch != nil {
					channels = append(channels, ch)
				}
			}
			return channels
		})
}

func (c *HTTPClient) CreateChannel(channelType, channelID string, memberIDs []string, extraData map[string]any) call.Call[*models.Channel] {
	data := make(map[string]any, len(extraData)+1)
	for k, v := range extraData {
		data[k] = v
	}
	data["members"] = memberIDs

	req := models.QueryChannelRequest{Watch: true, State: true, Data: data}
	return send(c, endpoint{method: http.MethodPost, path: channelPath(channelType, channelID, "query"), body: req}, pickChannel)
}

func (c *HTTPClient) UpdateChannel(channelType, channelID string, update models.ChannelUpdate) call.Call[*models.Channel] {
	return send(c, endpoint{method: http.MethodPost, path: channelPath(channelType, channelID), body: update}, pickChannel)
}

func (c *HTTPClient) UpdateChannelPartial(channelType, channelID string, update models.PartialUpdate) call.Call[*models.Channel] {
	body := map[string]any{"set": update.Set, "unset": update.Unset}
	return send(c, endpoint{method: http.MethodPatch, path: channelPath(channelType, channelID), body: body}, pickChannel)
}

func (c *HTTPClient) DeleteChannel(channelType, channelID string) call.Call[*models.Channel] {
	return send(c, endpoint{method: http.MethodDelete, path: channelPath(channelType, channelID)}, pickChannel)
}

func (c *HTTPClient) TruncateChannel(channelType, channelID string, systemMessage *models.Message) call.Call[*models.Channel] {
	body := map[string]any{}
	if systemMessage != nil {
		body["message"] = systemMessage
	}
	return send(c, endpoint{method: http.MethodPost, path: channelPath(channelType, channelID, "truncate"), body: body}, pickChannel)
}

func (c *HTTPClient) HideChannel(channelType, channelID string, clearHistory bool) call.Call[struct{}] {
	body := map[string]any{"clear_history": clearHistory}
	return send(c, endpoint{method: http.MethodPost, path: channelPath(channelType, channelID, "hide"), body: body}, empty)
}

func (c *HTTPClient) ShowChannel(channelType, channelID string) call.Call[struct{}] {
	return send(c, endpoint{method: http.MethodPost, path: channelPath(channelType, channelID, "show"), body: struct{}{}}, empty)
}

func (c *HTTPClient) StopWatching(channelType, channelID string) call.Call[struct{}] {
	return send(c, endpoint{method: http.MethodPost, path: channelPath(channelType, channelID, "stop-watching"), body: struct{}{}}, empty)
}

func (c *HTTPClient) MarkRead(channelType, channelID string) call.Call[struct{}] {
	return send(c, endpoint{method: http.MethodPost, path: channelPath(channelType, channelID, "read"), body: struct{}{}}, empty)
}

func (c *HTTPClient) MarkAllRead() call.Call[struct{}] {
	return send(c, endpoint{method: http.MethodPost, path: "/channels/read", body: struct{}{}}, empty)
}

// Members

func (c *HTTPClient) QueryMembers(req models.QueryMembersRequest) call.Call[[]models.Member] {
	type membersResponse struct {
		Members []models.Member `json:"members"`
	}

	return send(c, endpoint{method: http.MethodGet, path: "/members", query: payloadQuery(req)},
		func(r *membersResponse) []models.Member { return r.Members })
}

func (c *HTTPClient) updateMembers(channelType, channelID string, body map[string]any) call.Call[*models.Channel] {
	return send(c, endpoint{method: http.MethodPost, path: channelPath(channelType, channelID), body: body}, pickChannel)
}

func (c *HTTPClient) AddMembers(channelType, channelID string, memberIDs []string) call.Call[*models.Channel] {
	return c.updateMembers(channelType, channelID, map[string]any{"add_members": memberIDs})
}

func (c *HTTPClient) RemoveMembers(channelType, channelID string, memberIDs []string) call.Call[*models.Channel] {
	return c.updateMembers(channelType, channelID, map[string]any{"remove_members": memberIDs})
}

func (c *HTTPClient) InviteMembers(channelType, channelID string, memberIDs []string) call.Call[*models.Channel] {
	return c.updateMembers(channelType, channelID, map[string]any{"invites": memberIDs})
}

func (c *HTTPClient) AcceptInvite(channelType, channelID string) call.Call[*models.Channel] {
	return c.updateMembers(channelType, channelID, map[string]any{"accept_invite": true})
}

func (c *HTTPClient) RejectInvite(channelType, channelID string) call.Call[*models.Channel] {
	return c.updateMembers(channelType, channelID, map[string]any{"reject_invite": true})
}

// Messages

func (c *HTTPClient) SendMessage(channelType, channelID string, message *models.Message) call.Call[*models.Message] {
	body := map[string]any{"message": message}
	return send(c, endpoint{method: http.MethodPost, path: channelPath(channelType, channelID, "message"), body: body}, pickMessage)
}

func (c *HTTPClient) UpdateMessage(message *models.Message) call.Call[*models.Message] {
	body := map[string]any{"message": message}
	return send(c, endpoint{method: http.MethodPost, path: messagePath(message.ID), body: body}, pickMessage)
}

func (c *HTTPClient) DeleteMessage(messageID string, hard bool) call.Call[*models.Message] {
	var query url.Values
	if hard {
		query = url.Values{"hard": {"true"}}
	}
	return send(c, endpoint{method: http.MethodDelete, path: messagePath(messageID), query: query}, pickMessage)
}

func (c *HTTPClient) GetMessage(messageID string) call.Call[*models.Message] {
	return send(c, endpoint{method: http.MethodGet, path: messagePath(messageID)}, pickMessage)
}

func (c *HTTPClient) GetReplies(messageID string, limit int) call.Call[[]*models.Message] {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	return send(c, endpoint{method: http.MethodGet, path: messagePath(messageID, "replies"), query: query}, pickMessages)
}

func (c *HTTPClient) GetPinnedMessages(channelType, channelID string, page models.MessagePage) call.Call[[]*models.Message] {
	return send(c, endpoint{
		method: http.MethodGet,
		path:   channelPath(channelType, channelID, "pinned_messages"),
		query:  payloadQuery(page),
	}, pickMessages)
}

func (c *HTTPClient) SendReaction(reaction *models.Reaction, enforceUnique bool) call.Call[*models.Reaction] {
	type reactionResponse struct {
		Reaction *models.Reaction `json:"reaction"`
	}

	body := map[string]any{"reaction": reaction, "enforce_unique": enforceUnique}
	return send(c, endpoint{method: http.MethodPost, path: messagePath(reaction.MessageID, "reaction"), body: body},
		func(r *reactionResponse) *models.Reaction { return r.Reaction })
}

func (c *HTTPClient) DeleteReaction(messageID, reactionType string) call.Call[*models.Message] {
	return send(c, endpoint{
		method: http.MethodDelete,
		path:   messagePath(messageID, "reaction", url.PathEscape(reactionType)),
	}, pickMessage)
}

func (c *HTTPClient) SendEvent(eventType, channelType, channelID, parentID string, extraData map[string]any) call.Call[events.ChatEvent] {
	event := map[string]any{"type": eventType}
	for k, v := range extraData {
		event[k] = v
	}
	if parentID != "" {
		event["parent_id"] = parentID
	}

	return send(c, endpoint{
		method: http.MethodPost,
		path:   channelPath(channelType, channelID, "event"),
		body:   map[string]any{"event": event},
	}, func(r *struct {
		Event json.RawMessage `json:"event"`
	}) events.ChatEvent {
		parsed, err := events.Parse(r.Event)
		if err != nil {
			return &events.UnknownEvent{Base: events.NewBase(eventType)}
		}
		return parsed
	})
}

// Moderation

func (c *HTTPClient) BanUser(targetID, channelType, channelID string, opts BanOptions) call.Call[struct{}] {
	body := map[string]any{
		"target_user_id": targetID,
		"type":           channelType,
		"id":             channelID,
		"shadow":         opts.Shadow,
	}
	if opts.Reason != "" {
		body["reason"] = opts.Reason
	}
	if opts.Timeout > 0 {
		body["timeout"] = int(opts.Timeout / time.Minute)
	}
	return send(c, endpoint{method: http.MethodPost, path: "/moderation/ban", body: body}, empty)
}

func (c *HTTPClient) UnbanUser(targetID, channelType, channelID string, shadow bool) call.Call[struct{}] {
	query := url.Values{"target_user_id": {targetID}, "type": {channelType}, "id": {channelID}}
	if shadow {
		query.Set("shadow", "true")
	}
	return send(c, endpoint{method: http.MethodDelete, path: "/moderation/ban", query: query}, empty)
}

func (c *HTTPClient) MuteUser(targetID string, timeout time.Duration) call.Call[*models.Mute] {
	type muteResponse struct {
		Mute *models.Mute `json:"mute"`
	}

	body := map[string]any{"target_id": targetID}
	if timeout > 0 {
		body["timeout"] = int(timeout / time.Minute)
	}
	return send(c, endpoint{method: http.MethodPost, path: "/moderation/mute", body: body},
		func(r *muteResponse) *models.Mute { return r.Mute })
}

func (c *HTTPClient) UnmuteUser(targetID string) call.Call[struct{}] {
	return send(c, endpoint{method: http.MethodPost, path: "/moderation/unmute", body: map[string]any{"target_id": targetID}}, empty)
}

func (c *HTTPClient) MuteChannel(channelType, channelID string, timeout time.Duration) call.Call[struct{}] {
	body := map[string]any{"channel_cid": models.CID(channelType, channelID)}
	if timeout > 0 {
		body["expiration"] = timeout.Milliseconds()
	}
	return send(c, endpoint{method: http.MethodPost, path: "/moderation/mute/channel", body: body}, empty)
}

func (c *HTTPClient) UnmuteChannel(channelType, channelID string) call.Call[struct{}] {
	body := map[string]any{"channel_cid": models.CID(channelType, channelID)}
	return send(c, endpoint{method: http.MethodPost, path: "/moderation/unmute/channel", body: body}, empty)
}

type flagResponse struct {
	Flag *models.Flag `json:"flag"`
}

func pickFlag(r *flagResponse) *models.Flag { return r.Flag }

func (c *HTTPClient) FlagMessage(messageID, reason string) call.Call[*models.Flag] {
	body := map[string]any{"target_message_id": messageID, "reason": reason}
	return send(c, endpoint{method: http.MethodPost, path: "/moderation/flag", body: body}, pickFlag)
}

func (c *HTTPClient) FlagUser(userID, reason string) call.Call[*models.Flag] {
	body := map[string]any{"target_user_id": userID, "reason": reason}
	return send(c, endpoint{method: http.MethodPost, path: "/moderation/flag", body: body}, pickFlag)
}

func (c *HTTPClient) BlockUser(userID string) call.Call[*models.UserBlock] {
	return send(c, endpoint{method: http.MethodPost, path: "/users/block", body: map[string]any{"blocked_user_id": userID}},
		func(r *models.UserBlock) *models.UserBlock { return r })
}

func (c *HTTPClient) UnblockUser(userID string) call.Call[struct{}] {
	return send(c, endpoint{method: http.MethodPost, path: "/users/unblock", body: map[string]any{"blocked_user_id": userID}}, empty)
}

// Preferences and settings

type pushPreferenceResponse struct {
	UserPreferences    map[string]models.PushPreference `json:"user_preferences"`
	ChannelPreferences map[string]models.PushPreference `json:"channel_preferences"`
}

func (c *HTTPClient) SetUserPushPreference(preference models.PushPreference) call.Call[models.PushPreference] {
	body := map[string]any{"preferences": []models.PushPreference{preference}}
	return send(c, endpoint{method: http.MethodPost, path: "/push_preferences", body: body},
		func(r *pushPreferenceResponse) models.PushPreference {
			for _, p := range r.UserPreferences {
				return p
			}
			return preference
		})
}

func (c *HTTPClient) SetChannelPushPreference(cid string, preference models.PushPreference) call.Call[models.PushPreference] {
	entry := map[string]any{"channel_cid": cid, "chat_level": preference.Level}
	if preference.DisabledUntil != nil {
		entry["disabled_until"] = preference.DisabledUntil
	}
	body := map[string]any{"preferences": []map[string]any{entry}}

	return send(c, endpoint{method: http.MethodPost, path: "/push_preferences", body: body},
		func(r *pushPreferenceResponse) models.PushPreference {
			if p, ok := r.ChannelPreferences[cid]; ok {
				return p
			}
			return preference
		})
}

func (c *HTTPClient) UpdateLiveLocation(location *models.Location) call.Call[*models.Location] {
	return send(c, endpoint{method: http.MethodPut, path: "/users/live_locations", body: location},
		func(r *models.Location) *models.Location { return r })
}

func (c *HTTPClient) AppSettings() call.Call[*models.AppSettings] {
	type appResponse struct {
		App *models.AppSettings `json:"app"`
	}

	return send(c, endpoint{method: http.MethodGet, path: "/app"},
		func(r *appResponse) *models.AppSettings { return r.App })
}
