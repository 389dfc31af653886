package events

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typed(t string) ChatEvent {
	return &UnknownEvent{Base: NewBase(t)}
}

func TestSubscribeForDeliversOnlyMatchingTypes(t *testing.T) {
	r := NewRegistry()

	var got []string
	r.SubscribeFor([]string{"d", "f"}, func(e ChatEvent) {
		got = append(got, e.Type())
	})

	for _, typ := range []string{"d", "e", "f", "e", "d"} {
		r.Emit(typed(typ))
	}

	assert.Equal(t, []string{"d", "f", "d"}, got)
}

func TestDeliveryFollowsSubscriptionOrder(t *testing.T) {
	r := NewRegistry()

	var order []int
	for i := range 3 {
		r.Subscribe(func(ChatEvent) { order = append(order, i) })
	}

	r.Emit(typed("x"))

	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestLateSubscriberMissesDeliveredEvents(t *testing.T) {
	r := NewRegistry()
	r.Emit(typed("early"))

	var got []string
	r.Subscribe(func(e ChatEvent) { got = append(got, e.Type()) })
	r.Emit(typed("late"))

	assert.Equal(t, []string{"late"}, got)
}

func TestDisposeStopsDelivery(t *testing.T) {
	r := NewRegistry()

	var count int
	d := r.Subscribe(func(ChatEvent) { count++ })
	r.Emit(typed("a"))

	d.Dispose()
	d.Dispose()
	r.Emit(typed("b"))

	assert.Equal(t, 1, count)
	assert.True(t, d.IsDisposed())
	assert.Equal(t, 0, r.Len())
}

func TestDisposeDuringEmitSkipsLaterListener(t *testing.T) {
	r := NewRegistry()

	var second Disposable
	var secondCalls int
	r.Subscribe(func(ChatEvent) { second.Dispose() })
	second = r.Subscribe(func(ChatEvent) { secondCalls++ })

	r.Emit(typed("a"))

	assert.Equal(t, 0, secondCalls)
}

func TestPanickingListenerDoesNotStopDelivery(t *testing.T) {
	r := NewRegistry()

	var delivered bool
	r.Subscribe(func(ChatEvent) { panic("listener failure") })
	r.Subscribe(func(ChatEvent) { delivered = true })

	require.NotPanics(t, func() { r.Emit(typed("a")) })
	assert.True(t, delivered)
}

func TestSubscribeForSingleFiresOnce(t *testing.T) {
	r := NewRegistry()

	var count int
	d := r.SubscribeForSingle("a", func(ChatEvent) { count++ })

	r.Emit(typed("b"))
	r.Emit(typed("a"))
	r.Emit(typed("a"))

	assert.Equal(t, 1, count)
	assert.True(t, d.IsDisposed())
}

func TestSubscribeForSingleUnderConcurrentEmit(t *testing.T) {
	r := NewRegistry()

	var count atomic.Int32
	r.SubscribeForSingle("a", func(ChatEvent) { count.Add(1) })

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Emit(typed("a"))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), count.Load())
}

func TestSubscribeForKind(t *testing.T) {
	r := NewRegistry()

	var connected []*ConnectedEvent
	SubscribeForKind(r, func(e *ConnectedEvent) { connected = append(connected, e) })

	var firstError *ErrorEvent
	SubscribeForSingleKind(r, func(e *ErrorEvent) { firstError = e })

	r.Emit(&ConnectedEvent{Base: NewBase(TypeConnectionConnected), ConnectionID: "c1"})
	r.Emit(&ErrorEvent{Base: NewBase(TypeConnectionError)})
	r.Emit(typed("other"))

	require.Len(t, connected, 1)
	assert.Equal(t, "c1", connected[0].ConnectionID)
	assert.NotNil(t, firstError)
}

func TestDisposeAll(t *testing.T) {
	r := NewRegistry()
	a := r.Subscribe(func(ChatEvent) {})
	b := r.SubscribeForSingle("x", func(ChatEvent) {})

	r.DisposeAll()

	assert.True(t, a.IsDisposed())
	assert.True(t, b.IsDisposed())
	assert.Equal(t, 0, r.Len())
}
