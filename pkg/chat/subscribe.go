package chat

import "chatsdk/pkg/events"

// Subscribe delivers every event to listener until the returned handle is disposed.
func (c *Client) Subscribe(listener events.Listener) events.Disposable {
	return c.registry.Subscribe(listener)
}

// SubscribeFor delivers the events of the given types.
func (c *Client) SubscribeFor(listener events.Listener, eventTypes ...string) events.Disposable {
	return c.registry.SubscribeFor(eventTypes, listener)
}

// SubscribeForFilter delivers the events accepted by filter.
func (c *Client) SubscribeForFilter(filter func(events.ChatEvent) bool, listener events.Listener) events.Disposable {
	return c.registry.SubscribeForFilter(filter, listener)
}

// SubscribeForSingle delivers the next event of eventType only.
func (c *Client) SubscribeForSingle(eventType string, listener events.Listener) events.Disposable {
	return c.registry.SubscribeForSingle(eventType, listener)
}

// SubscribeForKind delivers the events of type T.
func SubscribeForKind[T events.ChatEvent](c *Client, listener func(T)) events.Disposable {
	return events.SubscribeForKind(c.registry, listener)
}

// SubscribeForSingleKind delivers the next event of type T only.
func SubscribeForSingleKind[T events.ChatEvent](c *Client, listener func(T)) events.Disposable {
	return events.SubscribeForSingleKind(c.registry, listener)
}
