package chat_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsdk/pkg/call"
	"chatsdk/pkg/chat"
	"chatsdk/pkg/errs"
	"chatsdk/pkg/models"
	"chatsdk/pkg/plugin"
)

type messagePlugin struct {
	plugin.Base
	name    string
	journal *journal
	veto    error
}

func (p *messagePlugin) OnMessageSendPrecondition(context.Context, string, string, *models.Message) error {
	p.journal.add(p.name + ".pre")
	return p.veto
}

func (p *messagePlugin) OnMessageSendRequest(context.Context, string, string, *models.Message) {
	p.journal.add(p.name + ".req")
}

func (p *messagePlugin) OnMessageSendResult(_ context.Context, res call.Result[*models.Message], _, _ string, _ *models.Message) {
	status := "ok"
	if res.IsFailure() {
		status = "failed"
	}
	p.journal.add(p.name + ".res:" + status)
}

func (p *messagePlugin) OnUserSet(user *models.User) {
	p.journal.add(p.name + ".user_set:" + user.ID)
}

func (p *messagePlugin) OnUserDisconnected() {
	p.journal.add(p.name + ".user_disconnected")
}

// since returns the entries recorded after the first n.
func since(j *journal, n int) []string {
	return j.list()[n:]
}

func TestSendMessageRunsPluginsInOrder(t *testing.T) {
	j := &journal{}
	h := newJournalHarness(t, j, chat.WithPlugins(
		&messagePlugin{name: "p1", journal: j},
		&messagePlugin{name: "p2", journal: j},
	))
	h.connect(t, "u1")
	mark := len(j.list())

	sent, err := h.client.SendMessage("messaging", "general", &models.Message{ID: "m1", Text: "hi"}).Execute().Get()

	require.NoError(t, err)
	assert.Equal(t, "messaging:general", sent.CID)
	assert.Equal(t, []string{
		"p1.pre", "p2.pre",
		"p1.req", "p2.req",
		"network:send_message",
		"p1.res:ok", "p2.res:ok",
	}, since(j, mark))
}

func TestSendMessageVetoSkipsNetwork(t *testing.T) {
	j := &journal{}
	veto := errs.Generic("messages are disabled")
	h := newJournalHarness(t, j, chat.WithPlugins(
		&messagePlugin{name: "p1", journal: j, veto: veto},
		&messagePlugin{name: "p2", journal: j},
	))
	h.connect(t, "u1")
	mark := len(j.list())

	_, err := h.client.SendMessage("messaging", "general", &models.Message{Text: "hi"}).Execute().Get()

	require.ErrorIs(t, err, veto)
	assert.Equal(t, "messages are disabled", err.Error())
	assert.Equal(t, []string{"p1.pre"}, since(j, mark))
}

func TestSendMessageNetworkErrorReachesResultHooks(t *testing.T) {
	j := &journal{}
	h := newJournalHarness(t, j, chat.WithPlugins(&messagePlugin{name: "p1", journal: j}))
	h.connect(t, "u1")
	failure := errs.Network(errs.ErrInputError, 400, "bad message", nil)
	h.api.sendErr = failure
	mark := len(j.list())

	_, err := h.client.SendMessage("messaging", "general", &models.Message{Text: "hi"}).Execute().Get()

	require.ErrorIs(t, err, failure)
	assert.Equal(t, []string{"p1.pre", "p1.req", "network:send_message", "p1.res:failed"}, since(j, mark))
}

func TestResendMessageSkipsRequestHooks(t *testing.T) {
	j := &journal{}
	h := newJournalHarness(t, j, chat.WithPlugins(&messagePlugin{name: "p1", journal: j}))
	h.connect(t, "u1")
	mark := len(j.list())

	_, err := h.client.ResendMessage("messaging", "general", &models.Message{ID: "m1"}).Execute().Get()

	require.NoError(t, err)
	assert.Equal(t, []string{"p1.pre", "network:send_message", "p1.res:ok"}, since(j, mark))
}

func TestPluginFactoriesAreRebuiltPerUser(t *testing.T) {
	j := &journal{}
	var built []string
	factory := plugin.FactoryFunc(func(user *models.User) plugin.Plugin {
		built = append(built, user.ID)
		return &messagePlugin{name: "f-" + user.ID, journal: j}
	})
	h := newJournalHarness(t, j, chat.WithPluginFactories(factory))

	h.connect(t, "u1")
	require.NoError(t, h.client.Disconnect(false).Execute().Err())
	h.connect(t, "u2")

	assert.Equal(t, []string{"u1", "u2"}, built)
	assert.Equal(t, 1, j.count("f-u1.user_set:u1"))
	assert.Equal(t, 1, j.count("f-u1.user_disconnected"))
	assert.Equal(t, 1, j.count("f-u2.user_set:u2"))

	mark := len(j.list())
	_, err := h.client.SendMessage("messaging", "general", &models.Message{Text: "hi"}).Execute().Get()
	require.NoError(t, err)
	assert.Equal(t, []string{"f-u2.pre", "f-u2.req", "network:send_message", "f-u2.res:ok"}, since(j, mark))
}

type cache struct{ name string }

type unknownDependency struct{}

type cachePlugin struct {
	plugin.Base
	cache *cache
}

func (p *cachePlugin) ResolveDependency(t reflect.Type) (any, bool) {
	if t == reflect.TypeFor[*cache]() {
		return p.cache, true
	}
	return nil, false
}

type missingPlugin struct{ plugin.Base }

func TestResolveDependency(t *testing.T) {
	h := newHarness(t, chat.WithPluginFactories(plugin.FactoryFunc(func(user *models.User) plugin.Plugin {
		return &cachePlugin{cache: &cache{name: "cache-" + user.ID}}
	})))

	_, err := chat.ResolveDependency[*cachePlugin, *cache](h.client)
	require.Error(t, err)
	assert.Equal(t, chat.MsgResolveBeforeConnect, err.Error())

	h.connect(t, "u1")

	dep, err := chat.ResolveDependency[*cachePlugin, *cache](h.client)
	require.NoError(t, err)
	assert.Equal(t, "cache-u1", dep.name)

	_, err = chat.ResolveDependency[*missingPlugin, *cache](h.client)
	require.Error(t, err)
	assert.Equal(t, "Plugin '*chat_test.missingPlugin' was not found. Did you init it within ChatClient?", err.Error())

	_, err = chat.ResolveDependency[*cachePlugin, *unknownDependency](h.client)
	require.Error(t, err)
	assert.Equal(t, "Dependency '*chat_test.unknownDependency' was not resolved from plugin '*chat_test.cachePlugin'", err.Error())
}

func TestKeystrokeIsThrottledPerChannel(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "u1")

	require.NoError(t, h.client.Keystroke("messaging", "general", "").Execute().Err())
	err := h.client.Keystroke("messaging", "general", "").Execute().Err()
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindGeneric))
	assert.Equal(t, 1, h.journal.count("network:event:typing.start"))

	require.NoError(t, h.client.Keystroke("messaging", "general", "thread-1").Execute().Err())
	require.NoError(t, h.client.Keystroke("messaging", "random", "").Execute().Err())
	assert.Equal(t, 3, h.journal.count("network:event:typing.start"))
}

func TestStopTypingRequiresStart(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "u1")

	require.Error(t, h.client.StopTyping("messaging", "general", "").Execute().Err())
	assert.Zero(t, h.journal.count("network:event:typing.stop"))

	require.NoError(t, h.client.Keystroke("messaging", "general", "").Execute().Err())
	require.NoError(t, h.client.StopTyping("messaging", "general", "").Execute().Err())
	assert.Equal(t, 1, h.journal.count("network:event:typing.stop"))

	require.Error(t, h.client.StopTyping("messaging", "general", "").Execute().Err())

	// A stop resets the throttle of the channel.
	require.NoError(t, h.client.Keystroke("messaging", "general", "").Execute().Err())
	assert.Equal(t, 2, h.journal.count("network:event:typing.start"))
}
