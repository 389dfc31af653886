package events

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"chatsdk/internal/pkg/logx"
)

// Listener receives events from the Registry.
type Listener func(event ChatEvent)

// Disposable is the handle of a subscription.
type Disposable interface {
	// Dispose stops delivery to the listener. It is idempotent.
	Dispose()

	// IsDisposed reports whether the subscription no longer receives events.
	IsDisposed() bool
}

type subscription struct {
	filter   func(ChatEvent) bool
	listener Listener
	oneShot  bool
	disposed atomic.Bool
	registry *Registry
}

func (s *subscription) Dispose() {
	if s.disposed.Swap(true) {
		return
	}
	s.registry.remove(s)
}

func (s *subscription) IsDisposed() bool {
	return s.disposed.Load()
}

// Registry fans events out to subscribers. Delivery is synchronous on the emitting goroutine,
// in subscription order, over the subscriber list as it was when Emit started.
type Registry struct {
	// mu serializes writers of subs.
	mu sync.Mutex

	// subs is the current subscriber list. It is replaced, never mutated in place.
	subs atomic.Pointer[[]*subscription]

	logger zerolog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{logger: logx.Component("Events")}
	r.subs.Store(&[]*subscription{})
	return r
}

// Subscribe delivers every event to listener.
func (r *Registry) Subscribe(listener Listener) Disposable {
	return r.add(func(ChatEvent) bool { return true }, listener, false)
}

// SubscribeFor delivers events whose type is one of types.
func (r *Registry) SubscribeFor(types []string, listener Listener) Disposable {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}

	return r.add(func(e ChatEvent) bool {
		_, ok := set[e.Type()]
		return ok
	}, listener, false)
}

// SubscribeForFilter delivers events accepted by filter.
func (r *Registry) SubscribeForFilter(filter func(ChatEvent) bool, listener Listener) Disposable {
	return r.add(filter, listener, false)
}

// SubscribeForSingle delivers the first event of the given type, then disposes itself.
func (r *Registry) SubscribeForSingle(eventType string, listener Listener) Disposable {
	return r.add(func(e ChatEvent) bool { return e.Type() == eventType }, listener, true)
}

// SubscribeForKind delivers events of the concrete type T, e.g. *NewMessageEvent.
func SubscribeForKind[T ChatEvent](r *Registry, listener func(T)) Disposable {
	return r.add(isKind[T], func(e ChatEvent) { listener(e.(T)) }, false)
}

// SubscribeForSingleKind delivers the first event of the concrete type T, then disposes itself.
func SubscribeForSingleKind[T ChatEvent](r *Registry, listener func(T)) Disposable {
	return r.add(isKind[T], func(e ChatEvent) { listener(e.(T)) }, true)
}

func isKind[T ChatEvent](e ChatEvent) bool {
	_, ok := e.(T)
	return ok
}

func (r *Registry) add(filter func(ChatEvent) bool, listener Listener, oneShot bool) Disposable {
	s := &subscription{
		filter:   filter,
		listener: listener,
		oneShot:  oneShot,
		registry: r,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.subs.Load()
	next := make([]*subscription, len(current), len(current)+1)
	copy(next, current)
	next = append(next, s)
	r.subs.Store(&next)

	return s
}

func (r *Registry) remove(s *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.subs.Load()
	idx := slices.Index(current, s)
	if idx < 0 {
		return
	}

	next := slices.Delete(slices.Clone(current), idx, idx+1)
	r.subs.Store(&next)
}

// Emit delivers event to every matching subscriber. A panicking listener is recovered and
// logged; delivery continues with the next one.
func (r *Registry) Emit(event ChatEvent) {
	if event == nil {
		return
	}

	for _, s := range *r.subs.Load() {
		if s.disposed.Load() {
			continue
		}

		if !r.matches(s, event) {
			continue
		}

		if s.oneShot {
			if !s.disposed.CompareAndSwap(false, true) {
				continue
			}
			r.remove(s)
		}

		r.deliver(s, event)
	}
}

func (r *Registry) matches(s *subscription, event ChatEvent) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Err(fmt.Errorf("%v", rec)).
				Str("event_type", event.Type()).
				Msg("Recovered panic in event filter")
			ok = false
		}
	}()

	return s.filter(event)
}

func (r *Registry) deliver(s *subscription, event ChatEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Err(fmt.Errorf("%v", rec)).
				Str("event_type", event.Type()).
				Msg("Recovered panic in event listener")
		}
	}()

	s.listener(event)
}

// Len returns the number of active subscriptions.
func (r *Registry) Len() int {
	return len(*r.subs.Load())
}

// DisposeAll disposes every subscription.
func (r *Registry) DisposeAll() {
	r.mu.Lock()
	current := *r.subs.Load()
	r.subs.Store(&[]*subscription{})
	r.mu.Unlock()

	for _, s := range current {
		s.disposed.Store(true)
	}
}
