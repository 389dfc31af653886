package models

import (
	"strings"
	"time"
)

// Channel is a conversation between members.
type Channel struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	// CID is the "type:id" composite identifier.
	CID string `json:"cid"`

	Name        string         `json:"name,omitempty"`
	Image       string         `json:"image,omitempty"`
	CreatedBy   *User          `json:"created_by,omitempty"`
	MemberCount int            `json:"member_count,omitempty"`
	Members     []Member       `json:"members,omitempty"`
	Messages    []Message      `json:"messages,omitempty"`
	Pinned      []Message      `json:"pinned_messages,omitempty"`
	Frozen      bool           `json:"frozen,omitempty"`
	Hidden      bool           `json:"hidden,omitempty"`
	Cooldown    int            `json:"cooldown,omitempty"`
	ExtraData   map[string]any `json:"extra_data,omitempty"`
	CreatedAt   time.Time      `json:"created_at,omitzero"`
	UpdatedAt   time.Time      `json:"updated_at,omitzero"`
}

// Member is a user's membership in a channel.
type Member struct {
	User             User       `json:"user"`
	UserID           string     `json:"user_id,omitempty"`
	Role             string     `json:"channel_role,omitempty"`
	Invited          bool       `json:"invited,omitempty"`
	InviteAcceptedAt *time.Time `json:"invite_accepted_at,omitempty"`
	InviteRejectedAt *time.Time `json:"invite_rejected_at,omitempty"`
	Banned           bool       `json:"banned,omitempty"`
	ShadowBanned     bool       `json:"shadow_banned,omitempty"`
	CreatedAt        time.Time  `json:"created_at,omitzero"`
	UpdatedAt        time.Time  `json:"updated_at,omitzero"`
}

// CID builds the composite channel identifier.
func CID(channelType, channelID string) string {
	return channelType + ":" + channelID
}

// SplitCID splits a composite channel identifier into its type and id.
func SplitCID(cid string) (channelType, channelID string, ok bool) {
	channelType, channelID, ok = strings.Cut(cid, ":")
	if !ok || channelType == "" || channelID == "" {
		return "", "", false
	}
	return channelType, channelID, true
}

// Filter is a backend query filter expression, e.g. {"members": {"$in": ["u1"]}}.
type Filter map[string]any

// Eq matches documents whose field equals value.
func Eq(field string, value any) Filter {
	return Filter{field: Filter{"$eq": value}}
}

// In matches documents whose field is one of values.
func In(field string, values ...any) Filter {
	return Filter{field: Filter{"$in": values}}
}

// And matches documents satisfying every filter.
func And(filters ...Filter) Filter {
	return Filter{"$and": filters}
}

// SortField orders query results. Direction is 1 for ascending, -1 for descending.
type SortField struct {
	Field     string `json:"field"`
	Direction int    `json:"direction"`
}

// Pagination limits a query result.
type Pagination struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// QueryChannelRequest describes a single channel query (get or create, watch, state).
type QueryChannelRequest struct {
	Watch    bool           `json:"watch,omitempty"`
	State    bool           `json:"state,omitempty"`
	Presence bool           `json:"presence,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Messages *Pagination    `json:"messages,omitempty"`
	Members  *Pagination    `json:"members,omitempty"`
}

// QueryChannelsRequest describes a channel list query.
type QueryChannelsRequest struct {
	Filter       Filter      `json:"filter_conditions"`
	Sort         []SortField `json:"sort,omitempty"`
	Limit        int         `json:"limit,omitempty"`
	Offset       int         `json:"offset,omitempty"`
	MessageLimit int         `json:"message_limit,omitempty"`
	MemberLimit  int         `json:"member_limit,omitempty"`
	Watch        bool        `json:"watch,omitempty"`
	State        bool        `json:"state,omitempty"`
	Presence     bool        `json:"presence,omitempty"`
}

// QueryMembersRequest describes a member query of a channel.
type QueryMembersRequest struct {
	ChannelType string      `json:"type"`
	ChannelID   string      `json:"id"`
	Filter      Filter      `json:"filter_conditions"`
	Sort        []SortField `json:"sort,omitempty"`
	Limit       int         `json:"limit,omitempty"`
	Offset      int         `json:"offset,omitempty"`
}

// QueryUsersRequest describes a user query.
type QueryUsersRequest struct {
	Filter   Filter      `json:"filter_conditions"`
	Sort     []SortField `json:"sort,omitempty"`
	Limit    int         `json:"limit,omitempty"`
	Offset   int         `json:"offset,omitempty"`
	Presence bool        `json:"presence,omitempty"`
}

// ChannelUpdate carries the fields to change with UpdateChannel.
type ChannelUpdate struct {
	Data    map[string]any `json:"data,omitempty"`
	Message *Message       `json:"message,omitempty"`
}

// PushPreference configures push delivery for the current user or a channel.
type PushPreference struct {
	// Level is one of "all", "mentions", "none" or "default".
	Level string `json:"chat_level"`

	// DisabledUntil suspends push delivery until the given time.
	DisabledUntil *time.Time `json:"disabled_until,omitempty"`
}

// AppSettings holds the application-wide configuration reported by the backend.
type AppSettings struct {
	Name              string         `json:"name"`
	FileUploadConfig  UploadConfig   `json:"file_upload_config"`
	ImageUploadConfig UploadConfig   `json:"image_upload_config"`
	AutoTranslation   bool           `json:"auto_translation_enabled,omitempty"`
	AsyncURLEnrich    bool           `json:"async_url_enrich_enabled,omitempty"`
	ChannelConfigs    map[string]any `json:"channel_configs,omitempty"`
	ExtraData         map[string]any `json:"extra_data,omitempty"`
}

// UploadConfig restricts what may be uploaded as an attachment.
type UploadConfig struct {
	AllowedMIMETypes []string `json:"allowed_mime_types,omitempty"`
	SizeLimit        int64    `json:"size_limit,omitempty"`
}
