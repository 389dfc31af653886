package events

import (
	"encoding/json"
	"time"

	"chatsdk/pkg/errs"
)

// catalog maps wire types to a constructor of the concrete event they decode into.
var catalog = map[string]func() ChatEvent{
	TypeHealthCheck: func() ChatEvent { return &HealthEvent{} },

	TypeMessageNew:     func() ChatEvent { return &NewMessageEvent{} },
	TypeMessageUpdated: func() ChatEvent { return &MessageUpdatedEvent{} },
	TypeMessageDeleted: func() ChatEvent { return &MessageDeletedEvent{} },
	TypeMessageRead:    func() ChatEvent { return &MessageReadEvent{} },

	TypeReactionNew:     func() ChatEvent { return &ReactionEvent{} },
	TypeReactionUpdated: func() ChatEvent { return &ReactionEvent{} },
	TypeReactionDeleted: func() ChatEvent { return &ReactionEvent{} },

	TypeTypingStart: func() ChatEvent { return &TypingEvent{} },
	TypeTypingStop:  func() ChatEvent { return &TypingEvent{} },

	TypeChannelCreated:   func() ChatEvent { return &ChannelEvent{} },
	TypeChannelUpdated:   func() ChatEvent { return &ChannelEvent{} },
	TypeChannelDeleted:   func() ChatEvent { return &ChannelEvent{} },
	TypeChannelHidden:    func() ChatEvent { return &ChannelEvent{} },
	TypeChannelVisible:   func() ChatEvent { return &ChannelEvent{} },
	TypeChannelTruncated: func() ChatEvent { return &ChannelEvent{} },

	TypeMemberAdded:   func() ChatEvent { return &MemberEvent{} },
	TypeMemberUpdated: func() ChatEvent { return &MemberEvent{} },
	TypeMemberRemoved: func() ChatEvent { return &MemberEvent{} },

	TypeUserUpdated:         func() ChatEvent { return &UserUpdatedEvent{} },
	TypeUserPresenceChanged: func() ChatEvent { return &UserPresenceEvent{} },
	TypeUserWatchingStart:   func() ChatEvent { return &UserPresenceEvent{} },
	TypeUserWatchingStop:    func() ChatEvent { return &UserPresenceEvent{} },

	TypeNotificationMessageNew:          func() ChatEvent { return &NotificationEvent{} },
	TypeNotificationMarkRead:            func() ChatEvent { return &NotificationEvent{} },
	TypeNotificationAddedToChannel:      func() ChatEvent { return &NotificationEvent{} },
	TypeNotificationMutesUpdated:        func() ChatEvent { return &NotificationEvent{} },
	TypeNotificationChannelMutesUpdated: func() ChatEvent { return &NotificationEvent{} },
}

// ErrorBody is the error payload of failed REST responses and socket error frames.
type ErrorBody struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"StatusCode"`
	Duration   string `json:"duration,omitempty"`
}

// AsError converts the body into a network error.
func (b ErrorBody) AsError() *errs.Error {
	return errs.Network(b.Code, b.StatusCode, b.Message, nil)
}

// Parse decodes a backend frame into the matching event of the catalog.
// Frames with an "error" body decode into an ErrorEvent; unknown types into an UnknownEvent.
func Parse(data []byte) (ChatEvent, error) {
	var envelope struct {
		Type      string     `json:"type"`
		CreatedAt time.Time  `json:"created_at"`
		Error     *ErrorBody `json:"error,omitempty"`
	}

	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, errs.NewError(errs.ErrCantParseEvent, err.Error())
	}

	if envelope.Error != nil {
		return &ErrorEvent{
			Base: Base{EventType: TypeConnectionError, Timestamp: stamp(envelope.CreatedAt)},
			Err:  envelope.Error.AsError(),
		}, nil
	}

	if envelope.Type == "" {
		return nil, errs.NewError(errs.ErrCantParseEvent, "missing event type")
	}

	newEvent, ok := catalog[envelope.Type]
	if !ok {
		raw := map[string]any{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errs.NewError(errs.ErrCantParseEvent, err.Error())
		}
		return &UnknownEvent{
			Base: Base{EventType: envelope.Type, Timestamp: stamp(envelope.CreatedAt)},
			Raw:  raw,
		}, nil
	}

	event := newEvent()
	if err := json.Unmarshal(data, event); err != nil {
		return nil, errs.NewError(errs.ErrCantParseEvent, envelope.Type+": "+err.Error())
	}

	return event, nil
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
