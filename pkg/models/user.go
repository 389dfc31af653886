/*
Package models contains the data structures exchanged with the chat backend.

It defines users, channels, messages and their request envelopes. Fields use JSON tags
matching the backend wire format, so the same types are decoded from REST responses and
realtime events.
*/
package models

import (
	"maps"
	"time"
)

// AnonymousUserID is the sentinel id of the anonymous user.
const AnonymousUserID = "!anon"

// Roles assigned by the backend.
const (
	RoleUser      = "user"
	RoleGuest     = "guest"
	RoleAnonymous = "anonymous"
	RoleAdmin     = "admin"
)

// User represents a chat participant. One live instance exists per session for the current user.
type User struct {
	// ID is the unique identifier of the user within the application.
	ID string `json:"id"`

	// Name is the display name of the user.
	Name string `json:"name,omitempty"`

	// Image is the URL of the user avatar.
	Image string `json:"image,omitempty"`

	// Role is the application role (user, guest, admin, ...).
	Role string `json:"role,omitempty"`

	Banned    bool `json:"banned,omitempty"`
	Online    bool `json:"online,omitempty"`
	Invisible bool `json:"invisible,omitempty"`

	// Mutes lists the users muted by this user. Only populated for the current user.
	Mutes []Mute `json:"mutes,omitempty"`

	// ChannelMutes lists the channels muted by this user. Only populated for the current user.
	ChannelMutes []ChannelMute `json:"channel_mutes,omitempty"`

	// BlockedUserIDs lists the users blocked by this user.
	BlockedUserIDs []string `json:"blocked_user_ids,omitempty"`

	// TotalUnreadCount and UnreadChannels are reported with the connection event.
	TotalUnreadCount int `json:"total_unread_count,omitempty"`
	UnreadChannels   int `json:"unread_channels,omitempty"`

	// ExtraData carries custom fields set by the application.
	ExtraData map[string]any `json:"extra_data,omitempty"`

	CreatedAt  time.Time `json:"created_at,omitzero"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
	LastActive time.Time `json:"last_active,omitzero"`
}

// IsAnonymous reports whether u is the anonymous sentinel user.
func (u *User) IsAnonymous() bool {
	return u != nil && u.ID == AnonymousUserID
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}

	c := *u
	c.Mutes = append([]Mute(nil), u.Mutes...)
	c.ChannelMutes = append([]ChannelMute(nil), u.ChannelMutes...)
	c.BlockedUserIDs = append([]string(nil), u.BlockedUserIDs...)
	if u.ExtraData != nil {
		c.ExtraData = maps.Clone(u.ExtraData)
	}
	return &c
}

// MergePartially merges the fields set on other into u. Presence flags are always taken from
// other; strings, lists and timestamps only when set. ExtraData is merged key by key.
func (u *User) MergePartially(other *User) {
	if other == nil || other.ID != u.ID {
		return
	}

	if other.Name != "" {
		u.Name = other.Name
	}
	if other.Image != "" {
		u.Image = other.Image
	}
	if other.Role != "" {
		u.Role = other.Role
	}

	u.Banned = other.Banned
	u.Online = other.Online
	u.Invisible = other.Invisible

	if other.Mutes != nil {
		u.Mutes = append([]Mute(nil), other.Mutes...)
	}
	if other.ChannelMutes != nil {
		u.ChannelMutes = append([]ChannelMute(nil), other.ChannelMutes...)
	}
	if other.BlockedUserIDs != nil {
		u.BlockedUserIDs = append([]string(nil), other.BlockedUserIDs...)
	}

	if len(other.ExtraData) > 0 {
		if u.ExtraData == nil {
			u.ExtraData = make(map[string]any, len(other.ExtraData))
		}
		maps.Copy(u.ExtraData, other.ExtraData)
	}

	if !other.CreatedAt.IsZero() {
		u.CreatedAt = other.CreatedAt
	}
	if !other.UpdatedAt.IsZero() {
		u.UpdatedAt = other.UpdatedAt
	}
	if !other.LastActive.IsZero() {
		u.LastActive = other.LastActive
	}
}

// GuestUser is the backend response to a guest user request: a user with its issued token.
type GuestUser struct {
	User        User   `json:"user"`
	AccessToken string `json:"access_token"`
}

// Mute records a user muted by the current user.
type Mute struct {
	User      User       `json:"user"`
	Target    User       `json:"target"`
	CreatedAt time.Time  `json:"created_at,omitzero"`
	Expires   *time.Time `json:"expires,omitempty"`
}

// ChannelMute records a channel muted by the current user.
type ChannelMute struct {
	User      User       `json:"user"`
	Channel   *Channel   `json:"channel,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitzero"`
	Expires   *time.Time `json:"expires,omitempty"`
}

// UserBlock records a user blocked by the current user.
type UserBlock struct {
	BlockedByUserID string    `json:"blocked_by_user_id"`
	BlockedUserID   string    `json:"blocked_user_id"`
	CreatedAt       time.Time `json:"created_at,omitzero"`
}

// PartialUpdate describes a partial update of a user or channel.
type PartialUpdate struct {
	ID    string         `json:"id"`
	Set   map[string]any `json:"set,omitempty"`
	Unset []string       `json:"unset,omitempty"`
}
