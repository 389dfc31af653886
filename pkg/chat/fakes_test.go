package chat_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"chatsdk/internal/pkg/auth/jwt"
	"chatsdk/pkg/call"
	"chatsdk/pkg/chat"
	"chatsdk/pkg/credentials"
	"chatsdk/pkg/events"
	"chatsdk/pkg/models"
)

const testAPIKey = "test-key"

type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func (j *journal) count(entry string) int {
	n := 0
	for _, e := range j.list() {
		if e == entry {
			n++
		}
	}
	return n
}

// fakeTransport reports connections synchronously through the registry.
type fakeTransport struct {
	registry *events.Registry
	journal  *journal

	mu sync.Mutex
	// respond produces the event emitted by Connect and Reconnect. Nil emits nothing.
	respond func(cfg chat.ConnectConfig) events.ChatEvent
}

func (f *fakeTransport) Connect(_ context.Context, cfg chat.ConnectConfig) error {
	f.journal.add("connect:" + cfg.User.ID)
	f.emit(cfg)
	return nil
}

func (f *fakeTransport) Reconnect(_ context.Context, cfg chat.ConnectConfig) error {
	f.journal.add("reconnect:" + cfg.User.ID)
	f.emit(cfg)
	return nil
}

func (f *fakeTransport) Disconnect() error {
	f.journal.add("disconnect")
	return nil
}

func (f *fakeTransport) setRespond(respond func(cfg chat.ConnectConfig) events.ChatEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.respond = respond
}

func (f *fakeTransport) emit(cfg chat.ConnectConfig) {
	f.mu.Lock()
	respond := f.respond
	f.mu.Unlock()

	if respond == nil {
		return
	}
	if event := respond(cfg); event != nil {
		f.registry.Emit(event)
	}
}

func connected(cfg chat.ConnectConfig) events.ChatEvent {
	return &events.ConnectedEvent{
		Base:         events.NewBase(events.TypeConnectionConnected),
		Me:           &models.User{ID: cfg.User.ID, Online: true},
		ConnectionID: "conn-" + cfg.User.ID,
	}
}

// fakeAPI implements the operations exercised by the tests; any other one panics.
type fakeAPI struct {
	chat.API
	journal *journal

	mu          sync.Mutex
	guest       models.GuestUser
	currentUser *models.User
	sendErr     error
}

func (f *fakeAPI) record(name string) {
	f.journal.add("network:" + name)
}

func (f *fakeAPI) GetGuestUser(userID, name string) call.Call[models.GuestUser] {
	return call.New(func(context.Context) call.Result[models.GuestUser] {
		f.record("guest")
		f.mu.Lock()
		defer f.mu.Unlock()
		return call.Success(f.guest)
	})
}

func (f *fakeAPI) FetchCurrentUser() call.Call[*models.User] {
	return call.New(func(context.Context) call.Result[*models.User] {
		f.record("fetch_user")
		f.mu.Lock()
		defer f.mu.Unlock()
		return call.Success(f.currentUser.Clone())
	})
}

func (f *fakeAPI) PartialUpdateUser(update models.PartialUpdate) call.Call[*models.User] {
	return call.New(func(context.Context) call.Result[*models.User] {
		f.record("partial_update_user")
		user := &models.User{ID: update.ID}
		if name, ok := update.Set["name"].(string); ok {
			user.Name = name
		}
		return call.Success(user)
	})
}

func (f *fakeAPI) SendMessage(channelType, channelID string, message *models.Message) call.Call[*models.Message] {
	return call.New(func(context.Context) call.Result[*models.Message] {
		f.record("send_message")
		f.mu.Lock()
		err := f.sendErr
		f.mu.Unlock()
		if err != nil {
			return call.Failure[*models.Message](err)
		}
		sent := *message
		sent.CID = models.CID(channelType, channelID)
		return call.Success(&sent)
	})
}

func (f *fakeAPI) SendEvent(eventType, channelType, channelID, parentID string, _ map[string]any) call.Call[events.ChatEvent] {
	return call.New(func(context.Context) call.Result[events.ChatEvent] {
		f.record("event:" + eventType)
		return call.Success[events.ChatEvent](&events.TypingEvent{
			Base:        events.NewBase(eventType),
			ChannelBase: events.ChannelBase{CID: models.CID(channelType, channelID), ChannelType: channelType, ChannelID: channelID},
			ParentID:    parentID,
		})
	})
}

type harness struct {
	client    *chat.Client
	transport *fakeTransport
	api       *fakeAPI
	store     *credentials.MemoryStore
	journal   *journal
}

func newHarness(t *testing.T, opts ...chat.Option) *harness {
	t.Helper()
	return newJournalHarness(t, &journal{}, opts...)
}

// newJournalHarness shares j with plugins created by the test.
func newJournalHarness(t *testing.T, j *journal, opts ...chat.Option) *harness {
	t.Helper()

	h := &harness{journal: j, store: credentials.NewMemoryStore()}
	h.api = &fakeAPI{journal: h.journal}

	opts = append([]chat.Option{
		chat.WithCredentialStore(h.store),
		chat.WithAPI(h.api),
		chat.WithTransport(func(registry *events.Registry) chat.Transport {
			h.transport = &fakeTransport{registry: registry, journal: h.journal, respond: connected}
			return h.transport
		}),
	}, opts...)

	client, err := chat.New(testAPIKey, opts...)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	h.client = client

	return h
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := jwt.DevToken(userID)
	require.NoError(t, err)
	return tok
}

func (h *harness) connect(t *testing.T, userID string) chat.ConnectionData {
	t.Helper()
	data, err := h.client.ConnectUser(&models.User{ID: userID}, token(t, userID), 0).Execute().Get()
	require.NoError(t, err)
	return data
}
