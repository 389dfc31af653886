package plugin

import (
	"context"
	"time"

	"chatsdk/pkg/call"
	"chatsdk/pkg/events"
	"chatsdk/pkg/models"
)

// Base implements every listener interface with no-op hooks. Embed it and override the hooks
// of interest; preconditions of Base always pass.
type Base struct{}

func (Base) OnUserSet(*models.User) {}
func (Base) OnUserDisconnected()    {}

func (Base) OnQueryChannelPrecondition(context.Context, string, string, models.QueryChannelRequest) error {
	return nil
}
func (Base) OnQueryChannelRequest(context.Context, string, string, models.QueryChannelRequest) {}
func (Base) OnQueryChannelResult(context.Context, call.Result[*models.Channel], string, string, models.QueryChannelRequest) {
}

func (Base) OnQueryChannelsPrecondition(context.Context, models.QueryChannelsRequest) error {
	return nil
}
func (Base) OnQueryChannelsRequest(context.Context, models.QueryChannelsRequest) {}
func (Base) OnQueryChannelsResult(context.Context, call.Result[[]*models.Channel], models.QueryChannelsRequest) {
}

func (Base) OnCreateChannelPrecondition(context.Context, *models.User, string, string, []string) error {
	return nil
}
func (Base) OnCreateChannelRequest(context.Context, *models.User, string, string, []string, map[string]any) {
}
func (Base) OnCreateChannelResult(context.Context, call.Result[*models.Channel], string, string, []string) {
}

func (Base) OnDeleteChannelPrecondition(context.Context, *models.User, string, string) error {
	return nil
}
func (Base) OnDeleteChannelRequest(context.Context, *models.User, string, string) {}
func (Base) OnDeleteChannelResult(context.Context, call.Result[*models.Channel], string, string) {
}

func (Base) OnHideChannelPrecondition(context.Context, string, string, bool) error { return nil }
func (Base) OnHideChannelRequest(context.Context, string, string, bool)            {}
func (Base) OnHideChannelResult(context.Context, call.Result[struct{}], string, string, bool) {
}

func (Base) OnChannelMarkReadPrecondition(context.Context, string, string) error { return nil }
func (Base) OnMarkAllReadRequest(context.Context)                                {}

func (Base) OnMessageSendPrecondition(context.Context, string, string, *models.Message) error {
	return nil
}
func (Base) OnMessageSendRequest(context.Context, string, string, *models.Message) {}
func (Base) OnMessageSendResult(context.Context, call.Result[*models.Message], string, string, *models.Message) {
}

func (Base) OnMessageEditRequest(context.Context, *models.Message) {}
func (Base) OnMessageEditResult(context.Context, call.Result[*models.Message], *models.Message) {
}

func (Base) OnMessageDeletePrecondition(context.Context, string) error { return nil }
func (Base) OnMessageDeleteRequest(context.Context, string)            {}
func (Base) OnMessageDeleteResult(context.Context, call.Result[*models.Message], string) {
}

func (Base) OnGetMessageResult(context.Context, call.Result[*models.Message], string) {}

func (Base) OnGetRepliesPrecondition(context.Context, string, int) error { return nil }
func (Base) OnGetRepliesRequest(context.Context, string, int)            {}
func (Base) OnGetRepliesResult(context.Context, call.Result[[]*models.Message], string, int) {
}

func (Base) OnSendReactionPrecondition(context.Context, *models.User, *models.Reaction) error {
	return nil
}
func (Base) OnSendReactionRequest(context.Context, string, *models.Reaction, bool, *models.User) {
}
func (Base) OnSendReactionResult(context.Context, call.Result[*models.Reaction], string, *models.Reaction, bool, *models.User) {
}

func (Base) OnDeleteReactionPrecondition(context.Context, *models.User) error { return nil }
func (Base) OnDeleteReactionRequest(context.Context, string, string, string, *models.User) {
}
func (Base) OnDeleteReactionResult(context.Context, call.Result[*models.Message], string, string, string, *models.User) {
}

func (Base) OnQueryMembersResult(context.Context, call.Result[[]models.Member], models.QueryMembersRequest) {
}

func (Base) OnTypingEventPrecondition(context.Context, string, string, string, map[string]any, time.Time) error {
	return nil
}
func (Base) OnTypingEventRequest(context.Context, string, string, string, map[string]any, time.Time) {
}
func (Base) OnTypingEventResult(context.Context, call.Result[events.ChatEvent], string, string, string, map[string]any, time.Time) {
}

func (Base) OnUserPushPreferenceResult(context.Context, call.Result[models.PushPreference], models.PushPreference) {
}
func (Base) OnChannelPushPreferenceResult(context.Context, call.Result[models.PushPreference], string, models.PushPreference) {
}

func (Base) OnUpdateLiveLocationResult(context.Context, call.Result[*models.Location], *models.Location) {
}

func (Base) OnFetchCurrentUserResult(context.Context, call.Result[*models.User]) {}

// Compile-time checks that Base satisfies every listener.
var (
	_ UserLifecycleListener         = Base{}
	_ QueryChannelListener          = Base{}
	_ QueryChannelsListener         = Base{}
	_ CreateChannelListener         = Base{}
	_ DeleteChannelListener         = Base{}
	_ HideChannelListener           = Base{}
	_ MarkReadListener              = Base{}
	_ MarkAllReadListener           = Base{}
	_ SendMessageListener           = Base{}
	_ EditMessageListener           = Base{}
	_ DeleteMessageListener         = Base{}
	_ GetMessageListener            = Base{}
	_ QueryRepliesListener          = Base{}
	_ SendReactionListener          = Base{}
	_ DeleteReactionListener        = Base{}
	_ QueryMembersListener          = Base{}
	_ TypingEventListener           = Base{}
	_ UserPushPreferenceListener    = Base{}
	_ ChannelPushPreferenceListener = Base{}
	_ LiveLocationListener          = Base{}
	_ FetchCurrentUserListener      = Base{}
)
