package plugin

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsdk/pkg/call"
	"chatsdk/pkg/errs"
	"chatsdk/pkg/models"
)

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

type recordingPlugin struct {
	Base
	name    string
	journal *journal
	veto    error
	panicAt string
}

func (p *recordingPlugin) OnQueryChannelPrecondition(context.Context, string, string, models.QueryChannelRequest) error {
	p.journal.add(p.name + ".pre")
	if p.panicAt == "pre" {
		panic(p.name + " precondition exploded")
	}
	return p.veto
}

func (p *recordingPlugin) OnQueryChannelRequest(context.Context, string, string, models.QueryChannelRequest) {
	p.journal.add(p.name + ".req")
	if p.panicAt == "req" {
		panic(p.name + " request exploded")
	}
}

func (p *recordingPlugin) OnQueryChannelResult(_ context.Context, res call.Result[*models.Channel], _, _ string, _ models.QueryChannelRequest) {
	status := "ok"
	if res.IsFailure() {
		status = "failed"
	}
	p.journal.add(p.name + ".res:" + status)
	if p.panicAt == "res" {
		panic(p.name + " result exploded")
	}
}

func queryChannel(j *journal, err error) Operation[*models.Channel] {
	return QueryChannelOp("messaging", "general", models.QueryChannelRequest{}, func() call.Call[*models.Channel] {
		j.add("network")
		if err != nil {
			return call.Error[*models.Channel](err)
		}
		return call.Just(&models.Channel{ID: "general", Type: "messaging"})
	})
}

func TestDispatchRunsPhasesInOrder(t *testing.T) {
	j := &journal{}
	p := NewPipeline(nil,
		&recordingPlugin{name: "P1", journal: j},
		&recordingPlugin{name: "P2", journal: j},
	)

	res := Dispatch(p, queryChannel(j, nil)).Execute()

	require.True(t, res.IsSuccess())
	assert.Equal(t, "general", res.Value().ID)
	assert.Equal(t, []string{"P1.pre", "P2.pre", "P1.req", "P2.req", "network", "P1.res:ok", "P2.res:ok"}, j.list())
}

func TestDispatchVetoShortCircuits(t *testing.T) {
	j := &journal{}
	veto := errs.Generic("channel is frozen")
	p := NewPipeline(nil,
		&recordingPlugin{name: "P1", journal: j, veto: veto},
		&recordingPlugin{name: "P2", journal: j},
	)

	res := Dispatch(p, queryChannel(j, nil)).Execute()

	require.True(t, res.IsFailure())
	assert.Same(t, veto, res.Err())
	assert.Equal(t, []string{"P1.pre"}, j.list())
}

func TestDispatchPassesNetworkFailureToResultHooks(t *testing.T) {
	j := &journal{}
	netErr := errs.Network(errs.ErrNotFound, 404, "channel not found", nil)
	p := NewPipeline(nil, &recordingPlugin{name: "P1", journal: j})

	res := Dispatch(p, queryChannel(j, netErr)).Execute()

	assert.Same(t, netErr, res.Err())
	assert.Equal(t, []string{"P1.pre", "P1.req", "network", "P1.res:failed"}, j.list())
}

func TestDispatchSkipRequest(t *testing.T) {
	j := &journal{}
	p := NewPipeline(nil, &recordingPlugin{name: "P1", journal: j})

	op := queryChannel(j, nil)
	op.SkipRequest = true
	require.True(t, Dispatch(p, op).Execute().IsSuccess())

	assert.Equal(t, []string{"P1.pre", "network", "P1.res:ok"}, j.list())
}

func TestDispatchRecoversHookPanics(t *testing.T) {
	t.Run("precondition", func(t *testing.T) {
		j := &journal{}
		p := NewPipeline(nil, &recordingPlugin{name: "P1", journal: j, panicAt: "pre"})

		res := Dispatch(p, queryChannel(j, nil)).Execute()

		require.True(t, errs.IsKind(res.Err(), errs.KindGeneric))
		assert.EqualError(t, res.Err(), "P1 precondition exploded")
		assert.NotContains(t, j.list(), "network")
	})

	t.Run("request", func(t *testing.T) {
		j := &journal{}
		p := NewPipeline(nil, &recordingPlugin{name: "P1", journal: j, panicAt: "req"})

		res := Dispatch(p, queryChannel(j, nil)).Execute()

		assert.EqualError(t, res.Err(), "P1 request exploded")
		assert.NotContains(t, j.list(), "network")
	})

	t.Run("result", func(t *testing.T) {
		j := &journal{}
		p := NewPipeline(nil,
			&recordingPlugin{name: "P1", journal: j, panicAt: "res"},
			&recordingPlugin{name: "P2", journal: j},
		)

		res := Dispatch(p, queryChannel(j, nil)).Execute()

		assert.EqualError(t, res.Err(), "P1 result exploded")
		assert.Contains(t, j.list(), "P2.res:ok")
	})
}

func TestDispatchUsesPluginsSetAtDispatch(t *testing.T) {
	j := &journal{}
	p := NewPipeline(nil, &recordingPlugin{name: "P1", journal: j})

	c := Dispatch(p, queryChannel(j, nil))
	p.Set([]Plugin{&recordingPlugin{name: "P2", journal: j}})
	require.True(t, c.Execute().IsSuccess())

	assert.Equal(t, []string{"P1.pre", "P1.req", "network", "P1.res:ok"}, j.list())
}

func TestDispatchIgnoresPluginsWithoutCapability(t *testing.T) {
	j := &journal{}
	p := NewPipeline(nil, struct{}{}, &recordingPlugin{name: "P1", journal: j})

	require.True(t, Dispatch(p, queryChannel(j, nil)).Execute().IsSuccess())
	assert.Equal(t, []string{"P1.pre", "P1.req", "network", "P1.res:ok"}, j.list())
}

type lifecyclePlugin struct {
	Base
	users        []string
	disconnected int
}

func (p *lifecyclePlugin) OnUserSet(user *models.User) { p.users = append(p.users, user.ID) }
func (p *lifecyclePlugin) OnUserDisconnected()         { p.disconnected++ }

type panickingLifecycle struct{ Base }

func (panickingLifecycle) OnUserSet(*models.User) { panic("lifecycle exploded") }

func TestLifecycleNotifications(t *testing.T) {
	lp := &lifecyclePlugin{}
	p := NewPipeline(nil, panickingLifecycle{}, lp)

	require.NotPanics(t, func() { p.NotifyUserSet(&models.User{ID: "jc"}) })
	p.NotifyUserDisconnected()

	assert.Equal(t, []string{"jc"}, lp.users)
	assert.Equal(t, 1, lp.disconnected)
}
