package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsdk/internal/app/identity"
	"chatsdk/internal/app/session"
	"chatsdk/pkg/call"
	"chatsdk/pkg/chat"
	"chatsdk/pkg/errs"
	"chatsdk/pkg/events"
	"chatsdk/pkg/models"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := chat.New("  ")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}

func TestConnectUser(t *testing.T) {
	h := newHarness(t)

	data := h.connect(t, "u1")

	assert.Equal(t, "u1", data.User.ID)
	assert.True(t, data.User.Online, "user is merged with the connected event")
	assert.Equal(t, "conn-u1", data.ConnectionID)
	assert.Equal(t, session.StateConnected, h.client.ConnectionState())
	assert.Equal(t, session.InitComplete, h.client.InitializationState())
	assert.Equal(t, "conn-u1", h.client.GetConnectionID())
	assert.Equal(t, token(t, "u1"), h.client.GetCurrentToken())
	assert.True(t, h.client.ContainsStoredCredentials(context.Background()))

	stored, err := h.store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", stored.UserID)
}

func TestConnectUserTokenMismatch(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.ConnectUser(&models.User{ID: "u1"}, token(t, "u2"), 0).Execute().Get()

	require.Error(t, err)
	assert.Equal(t, identity.MsgTokenUserMismatch, err.Error())
	assert.True(t, errs.IsKind(err, errs.KindValidation))
	assert.Empty(t, h.journal.list(), "transport is never touched")
	assert.Nil(t, h.client.GetCurrentUser())
}

func TestConnectTimeout(t *testing.T) {
	h := newHarness(t)
	h.transport.setRespond(nil)

	_, err := h.client.ConnectUser(&models.User{ID: "u1"}, token(t, "u1"), time.Millisecond).Execute().Get()

	require.Error(t, err)
	assert.Equal(t, "Connection wasn't established in 1ms", err.Error())
	assert.True(t, errs.IsKind(err, errs.KindTimeout))
	assert.Nil(t, h.client.GetCurrentUser())
	assert.Equal(t, 1, h.journal.count("disconnect"))
}

func TestConnectErrorEvent(t *testing.T) {
	h := newHarness(t)
	rejected := errs.NewError(errs.ErrTokenNotValid)
	h.transport.setRespond(func(chat.ConnectConfig) events.ChatEvent {
		return &events.ErrorEvent{Base: events.NewBase(events.TypeConnectionError), Err: rejected}
	})

	_, err := h.client.ConnectUser(&models.User{ID: "u1"}, token(t, "u1"), time.Second).Execute().Get()

	require.ErrorIs(t, err, rejected)
	assert.Equal(t, session.StateDisconnected, h.client.ConnectionState())
	assert.Nil(t, h.client.GetCurrentUser())
	assert.False(t, h.client.ContainsStoredCredentials(context.Background()))
}

func TestConnectCancelledByCaller(t *testing.T) {
	h := newHarness(t)
	h.transport.setRespond(nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	res := h.client.ConnectUser(&models.User{ID: "u1"}, token(t, "u1"), 0).Await(ctx)

	assert.True(t, res.IsCancelled())
	require.Eventually(t, func() bool { return h.client.GetCurrentUser() == nil }, time.Second, 5*time.Millisecond)
}

func TestConnectSameUserReusesConnection(t *testing.T) {
	h := newHarness(t)
	first := h.connect(t, "u1")

	second := h.connect(t, "u1")

	assert.Equal(t, first.ConnectionID, second.ConnectionID)
	assert.Equal(t, 1, h.journal.count("connect:u1"))
}

func TestConnectSameUserWhilePending(t *testing.T) {
	h := newHarness(t)
	h.transport.setRespond(nil)

	done := make(chan call.Result[chat.ConnectionData], 1)
	h.client.ConnectUser(&models.User{ID: "u1"}, token(t, "u1"), 0).Enqueue(func(res call.Result[chat.ConnectionData]) {
		done <- res
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.client.WaitForState(ctx, session.StateConnecting))

	_, err := h.client.ConnectUser(&models.User{ID: "u1"}, token(t, "u1"), 0).Execute().Get()
	require.Error(t, err)
	assert.Equal(t, session.MsgFailedToConnect, err.Error())

	require.NoError(t, h.client.Disconnect(false).Execute().Err())
	assert.True(t, (<-done).IsCancelled())
}

func TestConnectDifferentUserRejected(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "u1")

	_, err := h.client.ConnectUser(&models.User{ID: "u2"}, token(t, "u2"), 0).Execute().Get()

	require.Error(t, err)
	assert.Equal(t, session.MsgUserAlreadySet, err.Error())
	assert.Equal(t, "u1", h.client.GetCurrentUser().ID)
	assert.Zero(t, h.journal.count("connect:u2"))
}

func TestConnectAnonymousUser(t *testing.T) {
	h := newHarness(t)

	data, err := h.client.ConnectAnonymousUser(0).Execute().Get()

	require.NoError(t, err)
	assert.Equal(t, models.AnonymousUserID, data.User.ID)
	assert.True(t, h.client.GetCurrentUser().IsAnonymous())
}

func TestConnectGuestUser(t *testing.T) {
	h := newHarness(t)
	h.api.guest = models.GuestUser{User: models.User{ID: "guest-1", Name: "Guest"}, AccessToken: token(t, "guest-1")}

	data, err := h.client.ConnectGuestUser("guest-1", "Guest", 0).Execute().Get()

	require.NoError(t, err)
	assert.Equal(t, "guest-1", data.User.ID)
	assert.Equal(t, []string{"network:guest", "connect:guest-1"}, h.journal.list())
}

func TestConnectUserWithProvider(t *testing.T) {
	h := newHarness(t)
	loads := 0
	provider := identity.TokenProviderFunc(func(context.Context) (string, error) {
		loads++
		return token(t, "u1"), nil
	})

	data, err := h.client.ConnectUserWithProvider(&models.User{ID: "u1"}, provider, 0).Execute().Get()

	require.NoError(t, err)
	assert.Equal(t, "u1", data.User.ID)
	assert.Equal(t, 1, loads)
	assert.Equal(t, token(t, "u1"), h.client.GetCurrentToken())
}

func TestDisconnectWithoutUser(t *testing.T) {
	h := newHarness(t)

	err := h.client.Disconnect(true).Execute().Err()

	require.Error(t, err)
	assert.Equal(t, session.MsgNotConnected, err.Error())
}

func TestDisconnectKeepsOrFlushesCredentials(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.connect(t, "u1")
	require.NoError(t, h.client.Disconnect(false).Execute().Err())
	assert.True(t, h.client.ContainsStoredCredentials(ctx))
	assert.Nil(t, h.client.GetCurrentUser())
	assert.Empty(t, h.client.GetCurrentToken())

	h.connect(t, "u1")
	require.NoError(t, h.client.Disconnect(true).Execute().Err())
	assert.False(t, h.client.ContainsStoredCredentials(ctx))
}

func TestClearPersistence(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "u1")

	require.NoError(t, h.client.ClearPersistence().Execute().Err())

	assert.False(t, h.client.ContainsStoredCredentials(context.Background()))
	assert.Equal(t, "u1", h.client.GetCurrentUser().ID)
}

func TestSwitchUser(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "u1")
	switched := false

	data, err := h.client.SwitchUser(&models.User{ID: "u2"}, token(t, "u2"), 0, func() { switched = true }).Execute().Get()

	require.NoError(t, err)
	assert.True(t, switched)
	assert.Equal(t, "u2", data.User.ID)
	stored, err := h.store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u2", stored.UserID)
}

func TestSwitchUserWithoutPreviousUser(t *testing.T) {
	h := newHarness(t)

	data, err := h.client.SwitchUser(&models.User{ID: "u2"}, token(t, "u2"), 0, nil).Execute().Get()

	require.NoError(t, err)
	assert.Equal(t, "u2", data.User.ID)
}

func TestDisconnectAndReconnectSocket(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "u1")

	require.NoError(t, h.client.DisconnectSocket().Execute().Err())
	assert.Equal(t, session.StateDisconnected, h.client.ConnectionState())
	assert.Equal(t, "u1", h.client.GetCurrentUser().ID)
	assert.Empty(t, h.client.GetConnectionID())

	require.NoError(t, h.client.ReconnectSocket().Execute().Err())
	assert.Equal(t, session.StateConnected, h.client.ConnectionState())
	assert.Equal(t, 1, h.journal.count("reconnect:u1"))
}

func TestReconnectSocketWithoutUser(t *testing.T) {
	h := newHarness(t)

	err := h.client.ReconnectSocket().Execute().Err()

	require.Error(t, err)
	assert.Equal(t, "Invalid user state NotSet without user being set!", err.Error())
}

func TestFetchCurrentUserGuards(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.FetchCurrentUser().Execute().Get()
	require.Error(t, err)
	assert.Equal(t, chat.MsgFetchUserNotSet, err.Error())

	h.connect(t, "u1")
	_, err = h.client.FetchCurrentUser().Execute().Get()
	require.Error(t, err)
	assert.Equal(t, chat.MsgFetchUserConnected, err.Error())
	assert.Zero(t, h.journal.count("network:fetch_user"))
}

func TestFetchCurrentUserMergesIntoSession(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "u1")
	require.NoError(t, h.client.DisconnectSocket().Execute().Err())
	h.api.currentUser = &models.User{ID: "u1", Name: "Fetched"}

	user, err := h.client.FetchCurrentUser().Execute().Get()

	require.NoError(t, err)
	assert.Equal(t, "Fetched", user.Name)
	assert.Equal(t, "Fetched", h.client.GetCurrentUser().Name)
	stored, err := h.store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Fetched", stored.UserName)
}

func TestPartialUpdateUserOnlyForCurrentUser(t *testing.T) {
	h := newHarness(t)
	update := models.PartialUpdate{ID: "u1", Set: map[string]any{"name": "New name"}}

	_, err := h.client.PartialUpdateUser(update).Execute().Get()
	require.Error(t, err)
	assert.Equal(t, chat.MsgPartialUpdateOtherUser, err.Error())

	h.connect(t, "u1")
	_, err = h.client.PartialUpdateUser(models.PartialUpdate{ID: "u2"}).Execute().Get()
	require.Error(t, err)
	assert.Equal(t, chat.MsgPartialUpdateOtherUser, err.Error())

	user, err := h.client.PartialUpdateUser(update).Execute().Get()
	require.NoError(t, err)
	assert.Equal(t, "New name", user.Name)
	assert.Equal(t, "New name", h.client.GetCurrentUser().Name)
}

func TestSubscribeForDeliversOnlyRequestedTypes(t *testing.T) {
	h := newHarness(t)
	var got []string
	h.client.SubscribeFor(func(e events.ChatEvent) { got = append(got, e.Type()) }, "d", "f")

	for _, eventType := range []string{"d", "e", "f", "e", "d"} {
		h.transport.registry.Emit(events.NewBase(eventType))
	}

	assert.Equal(t, []string{"d", "f", "d"}, got)
}

func TestSubscribeForSingleKindFiresOnce(t *testing.T) {
	h := newHarness(t)
	calls := 0
	chat.SubscribeForSingleKind(h.client, func(*events.ConnectedEvent) { calls++ })

	h.connect(t, "u1")
	require.NoError(t, h.client.DisconnectSocket().Execute().Err())
	require.NoError(t, h.client.ReconnectSocket().Execute().Err())

	assert.Equal(t, 1, calls)
}

func TestUploadsRequireUploader(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "u1")

	_, err := h.client.SendFile("messaging", "general", chat.File{Name: "a.txt"}).Execute().Get()

	require.Error(t, err)
	assert.Equal(t, chat.MsgUploadsDisabled, err.Error())
}

type fakeUploader struct {
	chat.Uploader
	userID  string
	deleted string
}

func (f *fakeUploader) SendImage(_ context.Context, channelType, channelID, userID string, file chat.File) (models.UploadedFile, error) {
	f.userID = userID
	return models.UploadedFile{URL: "https://cdn.example.com/" + file.Name, Key: channelType + "/" + channelID + "/" + file.Name}, nil
}

func (f *fakeUploader) DeleteImage(_ context.Context, _, _, key string) error {
	f.deleted = key
	return nil
}

func TestUploadsUseUploader(t *testing.T) {
	uploader := &fakeUploader{}
	h := newHarness(t, chat.WithUploader(uploader))
	h.connect(t, "u1")

	uploaded, err := h.client.SendImage("messaging", "general", chat.File{Name: "cat.png", MimeType: "image/png"}).Execute().Get()
	require.NoError(t, err)
	assert.Equal(t, "u1", uploader.userID)
	assert.Equal(t, "https://cdn.example.com/cat.png", uploaded.URL)

	require.NoError(t, h.client.DeleteImage("messaging", "general", uploaded.Key).Execute().Err())
	assert.Equal(t, uploaded.Key, uploader.deleted)
}
