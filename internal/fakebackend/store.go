package fakebackend

import (
	"maps"
	"sort"
	"sync"
	"time"

	"chatsdk/pkg/models"
)

// store is the in-memory state of the backend. Values are cloned in and out.
type store struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	channels map[string]*models.Channel
	messages map[string]*models.Message

	// order keeps message ids per channel in insertion order.
	order map[string][]string
}

func newStore() *store {
	return &store{
		users:    make(map[string]*models.User),
		channels: make(map[string]*models.Channel),
		messages: make(map[string]*models.Message),
		order:    make(map[string][]string),
	}
}

func (s *store) user(id string) (*models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	return u.Clone(), ok
}

// ensureUser returns the stored user, creating a plain user for unknown ids.
func (s *store) ensureUser(id string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		return u.Clone()
	}

	now := time.Now()
	u := &models.User{ID: id, Role: models.RoleUser, CreatedAt: now, UpdatedAt: now}
	s.users[id] = u
	return u.Clone()
}

// putUser replaces the stored user.
func (s *store) putUser(u *models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := u.Clone()
	if existing, ok := s.users[u.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = time.Now()
	}
	if stored.Role == "" {
		stored.Role = models.RoleUser
	}
	stored.UpdatedAt = time.Now()
	s.users[u.ID] = stored
	return stored.Clone()
}

// mergeUser merges a partial user into the stored one.
func (s *store) mergeUser(u *models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok {
		existing = &models.User{ID: u.ID, Role: models.RoleUser, CreatedAt: time.Now()}
		s.users[u.ID] = existing
	}
	existing.MergePartially(u)
	existing.UpdatedAt = time.Now()
	return existing.Clone()
}

// partialUpdateUser applies set and unset to the name, image and extra data of a user.
func (s *store) partialUpdateUser(update models.PartialUpdate) (*models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[update.ID]
	if !ok {
		return nil, false
	}

	for k, v := range update.Set {
		switch k {
		case "name":
			u.Name, _ = v.(string)
		case "image":
			u.Image, _ = v.(string)
		case "invisible":
			u.Invisible, _ = v.(bool)
		default:
			if u.ExtraData == nil {
				u.ExtraData = map[string]any{}
			}
			u.ExtraData[k] = v
		}
	}
	for _, k := range update.Unset {
		switch k {
		case "name":
			u.Name = ""
		case "image":
			u.Image = ""
		default:
			delete(u.ExtraData, k)
		}
	}
	u.UpdatedAt = time.Now()
	return u.Clone(), true
}

func (s *store) allUsers() []*models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u.Clone())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func (s *store) block(blocker, blocked string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[blocker]; ok {
		u.BlockedUserIDs = append(u.BlockedUserIDs, blocked)
	}
}

// getOrCreateChannel returns the channel, creating it with creator and memberIDs as members.
func (s *store) getOrCreateChannel(channelType, channelID string, creator *models.User, memberIDs []string, data map[string]any) (*models.Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cid := models.CID(channelType, channelID)
	ch, ok := s.channels[cid]
	created := false
	if !ok {
		now := time.Now()
		ch = &models.Channel{
			ID:        channelID,
			Type:      channelType,
			CID:       cid,
			CreatedBy: creator.Clone(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.channels[cid] = ch
		created = true
		memberIDs = append([]string{creator.ID}, memberIDs...)
	}

	for k, v := range data {
		switch k {
		case "members":
		case "name":
			ch.Name, _ = v.(string)
		case "image":
			ch.Image, _ = v.(string)
		default:
			if ch.ExtraData == nil {
				ch.ExtraData = map[string]any{}
			}
			ch.ExtraData[k] = v
		}
	}

	s.addMembersLocked(ch, memberIDs, false)
	return s.channelLocked(ch), created
}

func (s *store) addMembersLocked(ch *models.Channel, memberIDs []string, invited bool) {
	for _, id := range memberIDs {
		if memberIndex(ch, id) >= 0 {
			continue
		}

		u, ok := s.users[id]
		if !ok {
			u = &models.User{ID: id, Role: models.RoleUser, CreatedAt: time.Now()}
			s.users[id] = u
		}
		ch.Members = append(ch.Members, models.Member{
			User:      *u.Clone(),
			UserID:    id,
			Role:      "member",
			Invited:   invited,
			CreatedAt: time.Now(),
		})
	}
	ch.MemberCount = len(ch.Members)
}

func memberIndex(ch *models.Channel, userID string) int {
	for i, m := range ch.Members {
		if m.UserID == userID {
			return i
		}
	}
	return -1
}

// channelLocked returns a copy of ch with its latest messages.
func (s *store) channelLocked(ch *models.Channel) *models.Channel {
	c := *ch
	c.Members = append([]models.Member(nil), ch.Members...)
	c.Messages = nil
	c.Pinned = nil
	for _, id := range s.order[ch.CID] {
		m := s.messages[id]
		if m.ParentID != "" && !m.ShowInChannel {
			continue
		}
		c.Messages = append(c.Messages, *snapshotMessage(m))
		if m.Pinned {
			c.Pinned = append(c.Pinned, *snapshotMessage(m))
		}
	}
	return &c
}

func (s *store) channel(cid string) (*models.Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.channels[cid]
	if !ok {
		return nil, false
	}
	return s.channelLocked(ch), true
}

// channelsOf returns the channels userID is a member of, most recently updated first.
func (s *store) channelsOf(userID string) []*models.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var channels []*models.Channel
	for _, ch := range s.channels {
		if memberIndex(ch, userID) >= 0 {
			channels = append(channels, s.channelLocked(ch))
		}
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].UpdatedAt.After(channels[j].UpdatedAt) })
	return channels
}

// updateMembers applies membership changes of a channel update request.
func (s *store) updateMembers(cid string, user *models.User, add, remove, invite []string, accept, reject bool, data map[string]any) (*models.Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.channels[cid]
	if !ok {
		return nil, false
	}

	s.addMembersLocked(ch, add, false)
	s.addMembersLocked(ch, invite, true)

	for _, id := range remove {
		if i := memberIndex(ch, id); i >= 0 {
			ch.Members = append(ch.Members[:i], ch.Members[i+1:]...)
		}
	}

	if i := memberIndex(ch, user.ID); i >= 0 {
		now := time.Now()
		if accept {
			ch.Members[i].Invited = false
			ch.Members[i].InviteAcceptedAt = &now
		}
		if reject {
			ch.Members[i].InviteRejectedAt = &now
		}
	}

	for k, v := range data {
		switch k {
		case "name":
			ch.Name, _ = v.(string)
		case "image":
			ch.Image, _ = v.(string)
		case "frozen":
			ch.Frozen, _ = v.(bool)
		default:
			if ch.ExtraData == nil {
				ch.ExtraData = map[string]any{}
			}
			ch.ExtraData[k] = v
		}
	}

	ch.MemberCount = len(ch.Members)
	ch.UpdatedAt = time.Now()
	return s.channelLocked(ch), true
}

func (s *store) deleteChannel(cid string) (*models.Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.channels[cid]
	if !ok {
		return nil, false
	}

	for _, id := range s.order[cid] {
		delete(s.messages, id)
	}
	delete(s.order, cid)
	delete(s.channels, cid)
	return s.channelLocked(ch), true
}

func (s *store) truncate(cid string, systemMessage *models.Message) (*models.Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.channels[cid]
	if !ok {
		return nil, false
	}

	for _, id := range s.order[cid] {
		delete(s.messages, id)
	}
	s.order[cid] = nil

	if systemMessage != nil {
		m := *systemMessage
		m.CID = cid
		m.Type = "system"
		m.CreatedAt = time.Now()
		s.messages[m.ID] = &m
		s.order[cid] = append(s.order[cid], m.ID)
	}

	ch.UpdatedAt = time.Now()
	return s.channelLocked(ch), true
}

func (s *store) isMember(cid, userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.channels[cid]
	return ok && memberIndex(ch, userID) >= 0
}

// memberIDs returns the user ids of the members of cid.
func (s *store) memberIDs(cid string) map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[string]struct{})
	if ch, ok := s.channels[cid]; ok {
		for _, m := range ch.Members {
			ids[m.UserID] = struct{}{}
		}
	}
	return ids
}

// addMessage stores a new message of cid.
func (s *store) addMessage(cid string, m *models.Message) *models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *m
	stored.CID = cid
	if stored.Type == "" {
		stored.Type = "regular"
	}
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	s.messages[stored.ID] = &stored
	s.order[cid] = append(s.order[cid], stored.ID)

	if stored.ParentID != "" {
		if parent, ok := s.messages[stored.ParentID]; ok {
			parent.ReplyCount++
		}
	}
	if ch, ok := s.channels[cid]; ok {
		ch.UpdatedAt = stored.CreatedAt
	}

	return snapshotMessage(&stored)
}

func (s *store) message(id string) (*models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return nil, false
	}
	return snapshotMessage(m), true
}

// updateMessage replaces the text, attachments and extra data of a message.
func (s *store) updateMessage(m *models.Message) (*models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.messages[m.ID]
	if !ok {
		return nil, false
	}
	stored.Text = m.Text
	stored.Attachments = m.Attachments
	stored.ExtraData = m.ExtraData
	stored.Pinned = m.Pinned
	stored.UpdatedAt = time.Now()

	return snapshotMessage(stored), true
}

// deleteMessage soft deletes a message, or removes it when hard is set.
func (s *store) deleteMessage(id string, hard bool) (*models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.messages[id]
	if !ok {
		return nil, false
	}

	now := time.Now()
	stored.DeletedAt = &now
	stored.Type = "deleted"
	c := snapshotMessage(stored)

	if hard {
		delete(s.messages, id)
		ids := s.order[stored.CID]
		for i, mid := range ids {
			if mid == id {
				s.order[stored.CID] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	}
	return c, true
}

// replies returns up to limit replies of parentID, oldest first.
func (s *store) replies(parentID string, limit int) []*models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parent, ok := s.messages[parentID]
	if !ok {
		return nil
	}

	var out []*models.Message
	for _, id := range s.order[parent.CID] {
		m := s.messages[id]
		if m.ParentID == parentID {
			out = append(out, snapshotMessage(m))
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// react adds a reaction to its message. enforceUnique replaces every earlier reaction of the user.
func (s *store) react(r *models.Reaction, enforceUnique bool) (*models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[r.MessageID]
	if !ok {
		return nil, false
	}
	if m.ReactionCounts == nil {
		m.ReactionCounts = map[string]int{}
	}
	if enforceUnique {
		for k := range m.ReactionCounts {
			delete(m.ReactionCounts, k)
		}
	}
	m.ReactionCounts[r.Type]++

	return snapshotMessage(m), true
}

func (s *store) unreact(messageID, reactionType string) (*models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[messageID]
	if !ok {
		return nil, false
	}
	if m.ReactionCounts[reactionType] > 1 {
		m.ReactionCounts[reactionType]--
	} else {
		delete(m.ReactionCounts, reactionType)
	}

	return snapshotMessage(m), true
}

func snapshotMessage(m *models.Message) *models.Message {
	c := *m
	c.ReactionCounts = maps.Clone(m.ReactionCounts)
	return &c
}
