package fakebackend

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"chatsdk/internal/pkg/randx"
	"chatsdk/internal/pkg/req"
	"chatsdk/internal/pkg/resp"
	"chatsdk/pkg/errs"
	"chatsdk/pkg/events"
	"chatsdk/pkg/models"
)

func (s *Server) handleOK(w http.ResponseWriter, r *http.Request) {
	resp.RespondSuccess(w, r, map[string]any{"duration": "0.01ms"})
}

func (s *Server) handleAppSettings(w http.ResponseWriter, r *http.Request) {
	resp.RespondSuccess(w, r, map[string]any{"app": models.AppSettings{
		Name: "chatsdk-fake",
		FileUploadConfig: models.UploadConfig{
			SizeLimit: models.MaxFileSize,
		},
		ImageUploadConfig: models.UploadConfig{
			AllowedMIMETypes: []string{"image/jpeg", "image/png", "image/webp", "image/gif", "image/heic"},
			SizeLimit:        models.MaxImageSize,
		},
	}})
}

func channelCID(r *http.Request) (string, string, string) {
	channelType := chi.URLParam(r, "type")
	channelID := chi.URLParam(r, "id")
	return models.CID(channelType, channelID), channelType, channelID
}

// Users

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	resp.RespondSuccess(w, r, map[string]any{"user": currentUser(r)})
}

func (s *Server) handleQueryUsers(w http.ResponseWriter, r *http.Request) {
	var query models.QueryUsersRequest
	if err := req.QueryJSON(r, "payload", &query); err != nil {
		resp.RespondError(w, r, err)
		return
	}

	users := s.store.allUsers()
	if ids, ok := filterIDs(query.Filter, "id"); ok {
		filtered := users[:0]
		for _, u := range users {
			if _, ok := ids[u.ID]; ok {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	users = paginate(users, query.Offset, query.Limit)

	resp.RespondSuccess(w, r, map[string]any{"users": users})
}

func (s *Server) handleUpdateUsers(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Users map[string]*models.User `json:"users"`
	}
	if chatErr := req.BindJSON(w, r, &body); chatErr != nil {
		resp.RespondError(w, r, chatErr)
		return
	}

	users := make([]*models.User, 0, len(body.Users))
	for _, u := range body.Users {
		users = append(users, s.store.putUser(u))
	}

	s.emitUserUpdates(users)
	resp.RespondSuccess(w, r, map[string]any{"users": users})
}

func (s *Server) handlePartialUpdateUsers(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Users []models.PartialUpdate `json:"users"`
	}
	if chatErr := req.BindJSON(w, r, &body); chatErr != nil {
		resp.RespondError(w, r, chatErr)
		return
	}

	users := make([]*models.User, 0, len(body.Users))
	for _, update := range body.Users {
		u, ok := s.store.partialUpdateUser(update)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrNotFound))
			return
		}
		users = append(users, u)
	}

	s.emitUserUpdates(users)
	resp.RespondSuccess(w, r, map[string]any{"users": users})
}

func (s *Server) emitUserUpdates(users []*models.User) {
	for _, u := range users {
		s.emitTo(map[string]struct{}{u.ID: {}}, &events.UserUpdatedEvent{
			Base: events.NewBase(events.TypeUserUpdated),
			User: u,
		})
	}
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BlockedUserID string `json:"blocked_user_id"`
	}
	if chatErr := req.BindJSON(w, r, &body); chatErr != nil {
		resp.RespondError(w, r, chatErr)
		return
	}

	user := currentUser(r)
	s.store.block(user.ID, body.BlockedUserID)

	resp.RespondSuccess(w, r, models.UserBlock{
		BlockedByUserID: user.ID,
		BlockedUserID:   body.BlockedUserID,
		CreatedAt:       time.Now(),
	})
}

func (s *Server) handleLiveLocation(w http.ResponseWriter, r *http.Request) {
	var location models.Location
	if chatErr := req.BindJSON(w, r, &location); chatErr != nil {
		resp.RespondError(w, r, chatErr)
		return
	}
	resp.RespondSuccess(w, r, location)
}

func (s *Server) handlePushPreferences(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Preferences []struct {
			models.PushPreference
			ChannelCID string `json:"channel_cid,omitempty"`
		} `json:"preferences"`
	}
	if chatErr := req.BindJSON(w, r, &body); chatErr != nil {
		resp.RespondError(w, r, chatErr)
		return
	}

	user := currentUser(r)
	userPrefs := map[string]models.PushPreference{}
	channelPrefs := map[string]models.PushPreference{}
	for _, p := range body.Preferences {
		if p.ChannelCID != "" {
			channelPrefs[p.ChannelCID] = p.PushPreference
		} else {
			userPrefs[user.ID] = p.PushPreference
		}
	}

	resp.RespondSuccess(w, r, map[string]any{
		"user_preferences":    userPrefs,
		"channel_preferences": channelPrefs,
	})
}

// Channels

func (s *Server) handleQueryChannel(w http.ResponseWriter, r *http.Request) {
	var query models.QueryChannelRequest
	if chatErr := req.BindJSON(w, r, &query); chatErr != nil {
		resp.RespondError(w, r, chatErr)
		return
	}

	_, channelType, channelID := channelCID(r)
	if channelID == "" || channelID == "!" {
		channelID = "!members-" + randx.MessageID()
	}

	var memberIDs []string
	if raw, ok := query.Data["members"].([]any); ok {
		for _, v := range raw {
			if id, ok := v.(string); ok {
				memberIDs = append(memberIDs, id)
			}
		}
	}

	user := currentUser(r)
	ch, created := s.store.getOrCreateChannel(channelType, channelID, user, memberIDs, query.Data)
	if created {
		s.emitTo(s.store.memberIDs(ch.CID), &events.NotificationEvent{
			Base:        events.NewBase(events.TypeNotificationAddedToChannel),
			ChannelBase: events.ChannelBase{CID: ch.CID, ChannelType: ch.Type, ChannelID: ch.ID},
			Channel:     ch,
		})
	}

	resp.RespondSuccess(w, r, map[string]any{"channel": ch, "members": ch.Members})
}

func (s *Server) handleQueryChannels(w http.ResponseWriter, r *http.Request) {
	var query models.QueryChannelsRequest
	if chatErr := req.BindJSON(w, r, &query); chatErr != nil {
		resp.RespondError(w, r, chatErr)
		return
	}

	channels := paginate(s.store.channelsOf(currentUser(r).ID), query.Offset, query.Limit)

	entries := make([]map[string]any, 0, len(channels))
	for _, ch := range channels {
		entries = append(entries, map[string]any{"channel": ch, "members": ch.Members})
	}
	resp.RespondSuccess(w, r, map[string]any{"channels": entries})
}

func (s *Server) handleUpdateChannel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Data          map[string]any  `json:"data,omitempty"`
		Message       *models.Message `json:"message,omitempty"`
		Set           map[string]any  `json:"set,omitempty"`
		Unset         []string        `json:"unset,omitempty"`
		AddMembers    []string        `json:"add_members,omitempty"`
		RemoveMembers []string        `json:"remove_members,omitempty"`
		Invites       []string        `json:"invites,omitempty"`
		AcceptInvite  bool            `json:"accept_invite,omitempty"`
		RejectInvite  bool            `json:"reject_invite,omitempty"`
	}
	if chatErr := req.BindJSON(w, r, &body); chatErr != nil {
		resp.RespondError(w, r, chatErr)
		return
	}

	data := body.Data
	if body.Set != nil {
		data = body.Set
	}

	cid, _, _ := channelCID(r)
	ch, ok := s.store.updateMembers(cid, currentUser(r), body.AddMembers, body.RemoveMembers, body.Invites,
		body.AcceptInvite, body.RejectInvite, data)
	if !ok {
		resp.RespondError(w, r, errs.NewError(errs.ErrNotFound))
		return
	}

	s.emitTo(s.store.memberIDs(cid), &events.ChannelEvent{
		Base:        events.NewBase(events.TypeChannelUpdated),
		ChannelBase: events.ChannelBase{CID: ch.CID, ChannelType: ch.Type, ChannelID: ch.ID},
		Channel:     ch,
		User:        currentUser(r),
	})
	resp.RespondSuccess(w, r, map[string]any{"channel": ch, "members": ch.Members})
}

func (s *Server) handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	cid, _, _ := channelCID(r)
	members := s.store.memberIDs(cid)

	ch, ok := s.store.deleteChannel(cid)
	if !ok {
		resp.RespondError(w, r, errs.NewError(errs.ErrNotFound))
		return
	}

	s.emitTo(members, &events.ChannelEvent{
		Base:        events.NewBase(events.TypeChannelDeleted),
		ChannelBase: events.ChannelBase{CID: ch.CID, ChannelType: ch.Type, ChannelID: ch.ID},
		Channel:     ch,
	})
	resp.RespondSuccess(w, r, map[string]any{"channel": ch})
}

func (s *Server) handleTruncate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message *models.Message `json:"message,omitempty"`
	}
	if chatErr := req.BindJSON(w, r, &body); chatErr != nil {
		resp.RespondError(w, r, chatErr)
		return
	}

	cid, _, _ := channelCID(r)
	ch, ok := s.store.truncate(cid, body.Message)
	if !ok {
		resp.RespondError(w, r, errs.NewError(errs.ErrNotFound))
		return
	}

	s.emitTo(s.store.memberIDs(cid), &events.ChannelEvent{
		Base:        events.NewBase(events.TypeChannelTruncated),
		ChannelBase: events.ChannelBase{CID: ch.CID, ChannelType: ch.Type, ChannelID: ch.ID},
		Channel:     ch,
	})
	resp.RespondSuccess(w, r, map[string]any{"channel": ch})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	cid, channelType, channelID := channelCID(r)
	if !s.store.isMember(cid, currentUser(r).ID) {
		resp.RespondError(w, r, errs.NewError(errs.ErrNotAllowed))
		return
	}

	s.emitTo(s.store.memberIDs(cid), &events.MessageReadEvent{
		Base:        events.NewBase(events.TypeMessageRead),
		ChannelBase: events.ChannelBase{CID: cid, ChannelType: channelType, ChannelID: channelID},
		User:        currentUser(r),
	})
	s.handleOK(w, r)
}

func (s *Server) handlePinned(w http.ResponseWriter, r *http.Request) {
	cid, _, _ := channelCID(r)
	ch, ok := s.store.channel(cid)
	if !ok {
		resp.RespondError(w, r, errs.NewError(errs.ErrNotFound))
		return
	}

	messages := make([]*models.Message, 0, len(ch.Pinned))
	for i := range ch.Pinned {
		messages = append(messages, &ch.Pinned[i])
	}
	resp.RespondSuccess(w, r, map[string]any{"messages": messages})
}

func (s *Server) handleQueryMembers(w http.ResponseWriter, r *http.Request) {
	var query models.QueryMembersRequest
	if err := req.QueryJSON(r, "payload", &query); err != nil {
		resp.RespondError(w, r, err)
		return
	}

	ch, ok := s.store.channel(models.CID(query.ChannelType, query.ChannelID))
	if !ok {
		resp.RespondError(w, r, errs.NewError(errs.ErrNotFound))
		return
	}

	members := ch.Members
	if ids, ok := filterIDs(query.Filter, "id"); ok {
		filtered := make([]models.Member, 0, len(members))
		for _, m := range members {
			if _, ok := ids[m.UserID]; ok {
				filtered = append(filtered, m)
			}
		}
		members = filtered
	}

	resp.RespondSuccess(w, r, map[string]any{"members": paginate(members, query.Offset, query.Limit)})
}

// Messages

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message *models.Message `json:"message"`
	}
	if chatErr := req.BindJSON(w, r, &body); chatErr != nil || body.Message == nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrInputError))
		return
	}

	cid, channelType, channelID := channelCID(r)
	user := currentUser(r)
	if !s.store.isMember(cid, user.ID) {
		resp.RespondError(w, r, errs.NewError(errs.ErrNotAllowed))
		return
	}

	if body.Message.ID == "" {
		body.Message.ID = randx.MessageIDFor(user.ID)
	}
	body.Message.User = user
	message := s.store.addMessage(cid, body.Message)

	s.emitTo(s.store.memberIDs(cid), &events.NewMessageEvent{
		Base:        events.NewBase(events.TypeMessageNew),
		ChannelBase: events.ChannelBase{CID: cid, ChannelType: channelType, ChannelID: channelID},
		Message:     message,
		User:        user,
	})
	resp.RespondSuccess(w, r, map[string]any{"message": message})
}

func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	message, ok := s.store.message(chi.URLParam(r, "id"))
	if !ok {
		resp.RespondError(w, r, errs.NewError(errs.ErrNotFound))
		return
	}
	resp.RespondSuccess(w, r, map[string]any{"message": message})
}

func (s *Server) handleUpdateMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message *models.Message `json:"message"`
	}
	if chatErr := req.BindJSON(w, r, &body); chatErr != nil || body.Message == nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrInputError))
		return
	}
	body.Message.ID = chi.URLParam(r, "id")

	message, ok := s.store.updateMessage(body.Message)
	if !ok {
		resp.RespondError(w, r, errs.NewError(errs.ErrNotFound))
		return
	}

	s.emitMessageEvent(&events.MessageUpdatedEvent{Message: message, User: currentUser(r)}, events.TypeMessageUpdated, message)
	resp.RespondSuccess(w, r, map[string]any{"message": message})
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	hard := r.URL.Query().Get("hard") == "true"

	message, ok := s.store.deleteMessage(chi.URLParam(r, "id"), hard)
	if !ok {
		resp.RespondError(w, r, errs.NewError(errs.ErrNotFound))
		return
	}

	s.emitMessageEvent(&events.MessageDeletedEvent{Message: message, User: currentUser(r), HardDelete: hard}, events.TypeMessageDeleted, message)
	resp.RespondSuccess(w, r, map[string]any{"message": message})
}

// emitMessageEvent stamps and sends a message-scoped event to the members of its channel.
func (s *Server) emitMessageEvent(event events.ChatEvent, eventType string, message *models.Message) {
	base := events.NewBase(eventType)
	channelType, channelID, _ := models.SplitCID(message.CID)
	channel := events.ChannelBase{CID: message.CID, ChannelType: channelType, ChannelID: channelID}

	switch e := event.(type) {
	case *events.MessageUpdatedEvent:
		e.Base, e.ChannelBase = base, channel
	case *events.MessageDeletedEvent:
		e.Base, e.ChannelBase = base, channel
	case *events.ReactionEvent:
		e.Base, e.ChannelBase = base, channel
	}
	s.emitTo(s.store.memberIDs(message.CID), event)
}

func (s *Server) handleReplies(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	resp.RespondSuccess(w, r, map[string]any{"messages": s.store.replies(chi.URLParam(r, "id"), limit)})
}

func (s *Server) handleSendReaction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reaction      *models.Reaction `json:"reaction"`
		EnforceUnique bool             `json:"enforce_unique"`
	}
	if chatErr := req.BindJSON(w, r, &body); chatErr != nil || body.Reaction == nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrInputError))
		return
	}

	user := currentUser(r)
	body.Reaction.MessageID = chi.URLParam(r, "id")
	body.Reaction.UserID = user.ID
	body.Reaction.User = user
	body.Reaction.CreatedAt = time.Now()

	message, ok := s.store.react(body.Reaction, body.EnforceUnique)
	if !ok {
		resp.RespondError(w, r, errs.NewError(errs.ErrNotFound))
		return
	}

	s.emitMessageEvent(&events.ReactionEvent{Message: message, Reaction: body.Reaction, User: user}, events.TypeReactionNew, message)
	resp.RespondSuccess(w, r, map[string]any{"reaction": body.Reaction, "message": message})
}

func (s *Server) handleDeleteReaction(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	reaction := &models.Reaction{
		MessageID: chi.URLParam(r, "id"),
		Type:      chi.URLParam(r, "reaction"),
		UserID:    user.ID,
		User:      user,
	}

	message, ok := s.store.unreact(reaction.MessageID, reaction.Type)
	if !ok {
		resp.RespondError(w, r, errs.NewError(errs.ErrNotFound))
		return
	}

	s.emitMessageEvent(&events.ReactionEvent{Message: message, Reaction: reaction, User: user}, events.TypeReactionDeleted, message)
	resp.RespondSuccess(w, r, map[string]any{"message": message})
}

// handleSendEvent relays a custom or typing event to the members of the channel.
func (s *Server) handleSendEvent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Event map[string]any `json:"event"`
	}
	if chatErr := req.BindJSON(w, r, &body); chatErr != nil || body.Event == nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrInputError))
		return
	}

	eventType, _ := body.Event["type"].(string)
	if eventType == "" {
		resp.RespondError(w, r, errs.NewError(errs.ErrInputError))
		return
	}

	cid, channelType, channelID := channelCID(r)
	event := body.Event
	event["cid"] = cid
	event["channel_type"] = channelType
	event["channel_id"] = channelID
	event["user"] = currentUser(r)
	event["created_at"] = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrInputError))
		return
	}
	s.hub.send(frame{data: data, userIDs: s.store.memberIDs(cid)})

	resp.RespondSuccess(w, r, map[string]any{"event": event})
}

// Moderation

func (s *Server) handleMute(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TargetID string `json:"target_id"`
		Timeout  int    `json:"timeout,omitempty"`
	}
	if chatErr := req.BindJSON(w, r, &body); chatErr != nil {
		resp.RespondError(w, r, chatErr)
		return
	}

	target, ok := s.store.user(body.TargetID)
	if !ok {
		resp.RespondError(w, r, errs.NewError(errs.ErrNotFound))
		return
	}

	mute := models.Mute{User: *currentUser(r), Target: *target, CreatedAt: time.Now()}
	if body.Timeout > 0 {
		expires := mute.CreatedAt.Add(time.Duration(body.Timeout) * time.Minute)
		mute.Expires = &expires
	}
	resp.RespondSuccess(w, r, map[string]any{"mute": mute})
}

func (s *Server) handleFlag(w http.ResponseWriter, r *http.Request) {
	var flag models.Flag
	if chatErr := req.BindJSON(w, r, &flag); chatErr != nil {
		resp.RespondError(w, r, chatErr)
		return
	}
	flag.CreatedAt = time.Now()
	resp.RespondSuccess(w, r, map[string]any{"flag": flag})
}

// filterIDs extracts the ids of an {"field": {"$in": [...]}} or {"field": {"$eq": ...}} filter.
func filterIDs(filter models.Filter, field string) (map[string]struct{}, bool) {
	cond, ok := filter[field].(map[string]any)
	if !ok {
		return nil, false
	}

	ids := map[string]struct{}{}
	if in, ok := cond["$in"].([]any); ok {
		for _, v := range in {
			if id, ok := v.(string); ok {
				ids[id] = struct{}{}
			}
		}
		return ids, true
	}
	if id, ok := cond["$eq"].(string); ok {
		ids[id] = struct{}{}
		return ids, true
	}
	return nil, false
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
