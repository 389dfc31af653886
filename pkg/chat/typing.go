package chat

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"chatsdk/internal/pkg/limiter"
	"chatsdk/pkg/call"
	"chatsdk/pkg/errs"
	"chatsdk/pkg/events"
	"chatsdk/pkg/models"
	"chatsdk/pkg/plugin"
)

// typing throttles typing.start events per channel thread and remembers which threads have a
// start without a matching stop.
type typing struct {
	limiter *limiter.KeyedLimiter

	mu      sync.Mutex
	started map[string]struct{}
}

func newTyping(throttle time.Duration) *typing {
	if throttle <= 0 {
		throttle = DefaultTypingThrottle
	}
	return &typing{
		limiter: limiter.NewKeyedLimiter(rate.Every(throttle), 1),
		started: make(map[string]struct{}),
	}
}

func typingKey(channelType, channelID, parentID string) string {
	key := models.CID(channelType, channelID)
	if parentID != "" {
		key += "/" + parentID
	}
	return key
}

func (t *typing) isStarted(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.started[key]
	return ok
}

func (t *typing) markStarted(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started[key] = struct{}{}
}

func (t *typing) markStopped(key string) {
	t.mu.Lock()
	delete(t.started, key)
	t.mu.Unlock()

	t.limiter.Forget(key)
}

// reset forgets every thread.
func (t *typing) reset() {
	t.mu.Lock()
	keys := make([]string, 0, len(t.started))
	for key := range t.started {
		keys = append(keys, key)
	}
	clear(t.started)
	t.mu.Unlock()

	for _, key := range keys {
		t.limiter.Forget(key)
	}
}

func (t *typing) close() {
	t.limiter.Close()
}

// Keystroke reports that the current user is typing in a channel, or in the thread of
// parentID when set. At most one typing.start is sent per thread and throttle period; a
// throttled keystroke fails without reaching the plugins or the backend.
func (c *Client) Keystroke(channelType, channelID, parentID string) call.Call[events.ChatEvent] {
	key := typingKey(channelType, channelID, parentID)

	sent := c.typingEvent(events.TypeTypingStart, channelType, channelID, parentID)
	sent = call.DoOnResult(sent, func(_ context.Context, res call.Result[events.ChatEvent]) {
		if res.IsSuccess() {
			c.typing.markStarted(key)
		} else {
			c.typing.limiter.Forget(key)
		}
	})

	return call.WithPrecondition(sent, func(context.Context) error {
		if !c.typing.limiter.Allow(key) {
			return errs.Genericf("Keystroke ignored, typing.start was already sent for %s", key)
		}
		return nil
	})
}

// StopTyping reports that the current user stopped typing. It fails when no typing.start was
// sent for the thread.
func (c *Client) StopTyping(channelType, channelID, parentID string) call.Call[events.ChatEvent] {
	key := typingKey(channelType, channelID, parentID)

	sent := c.typingEvent(events.TypeTypingStop, channelType, channelID, parentID)
	sent = call.DoOnResult(sent, func(_ context.Context, res call.Result[events.ChatEvent]) {
		if res.IsSuccess() {
			c.typing.markStopped(key)
		}
	})

	return call.WithPrecondition(sent, func(context.Context) error {
		if !c.typing.isStarted(key) {
			return errs.Genericf("Stop typing ignored, no typing.start was sent for %s", key)
		}
		return nil
	})
}

func (c *Client) typingEvent(eventType, channelType, channelID, parentID string) call.Call[events.ChatEvent] {
	extraData := map[string]any{}
	if parentID != "" {
		extraData["parent_id"] = parentID
	}

	return plugin.Dispatch(c.pipeline, plugin.TypingEventOp(eventType, channelType, channelID, extraData, time.Now(), func() call.Call[events.ChatEvent] {
		return c.api.SendEvent(eventType, channelType, channelID, parentID, nil)
	}))
}
