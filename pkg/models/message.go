package models

import "time"

// Message is a chat message in a channel.
type Message struct {
	ID             string         `json:"id"`
	CID            string         `json:"cid,omitempty"`
	Text           string         `json:"text"`
	Type           string         `json:"type,omitempty"`
	User           *User          `json:"user,omitempty"`
	ParentID       string         `json:"parent_id,omitempty"`
	ShowInChannel  bool           `json:"show_in_channel,omitempty"`
	Attachments    []Attachment   `json:"attachments,omitempty"`
	MentionedUsers []User         `json:"mentioned_users,omitempty"`
	ReactionCounts map[string]int `json:"reaction_counts,omitempty"`
	LatestReplies  []Message      `json:"latest_replies,omitempty"`
	ReplyCount     int            `json:"reply_count,omitempty"`
	Pinned         bool           `json:"pinned,omitempty"`
	Silent         bool           `json:"silent,omitempty"`
	Shadowed       bool           `json:"shadowed,omitempty"`
	ExtraData      map[string]any `json:"extra_data,omitempty"`
	CreatedAt      time.Time      `json:"created_at,omitzero"`
	UpdatedAt      time.Time      `json:"updated_at,omitzero"`
	DeletedAt      *time.Time     `json:"deleted_at,omitempty"`
}

// Reaction is a user's reaction to a message.
type Reaction struct {
	MessageID string         `json:"message_id"`
	Type      string         `json:"type"`
	Score     int            `json:"score,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	User      *User          `json:"user,omitempty"`
	ExtraData map[string]any `json:"extra_data,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitzero"`
}

// Flag is a moderation report on a message or user.
type Flag struct {
	TargetMessageID string    `json:"target_message_id,omitempty"`
	TargetUserID    string    `json:"target_user_id,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitzero"`
}

// Location is a live location shared in a channel.
type Location struct {
	MessageID string    `json:"message_id"`
	CID       string    `json:"cid"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	DeviceID  string    `json:"created_by_device_id,omitempty"`
	EndAt     time.Time `json:"end_at,omitzero"`
}

// MessagePage paginates message lists such as replies and pinned messages.
type MessagePage struct {
	Limit      int        `json:"limit,omitempty"`
	IDLessThan string     `json:"id_lt,omitempty"`
	IDAround   string     `json:"id_around,omitempty"`
	CreatedLT  *time.Time `json:"created_at_before,omitempty"`
}
