package chat

import (
	"reflect"

	"chatsdk/internal/app/session"
	"chatsdk/pkg/errs"
	"chatsdk/pkg/plugin"
)

// MsgResolveBeforeConnect is returned by ResolveDependency before the first connect completes.
const MsgResolveBeforeConnect = "ChatClient::connectUser() must be called before resolving any dependency"

// ResolveDependency returns the component of type D exposed by the active plugin of type P.
// The plugin must implement plugin.DependencyResolver.
func ResolveDependency[P, D any](c *Client) (D, error) {
	var zero D

	if c.machine.Snapshot().Initialization != session.InitComplete {
		return zero, errs.Generic(MsgResolveBeforeConnect)
	}

	pluginType := reflect.TypeFor[P]()
	depType := reflect.TypeFor[D]()

	var found plugin.Plugin
	for _, p := range c.pipeline.Plugins() {
		if _, ok := p.(P); ok {
			found = p
			break
		}
	}
	if found == nil {
		return zero, errs.Genericf("Plugin '%s' was not found. Did you init it within ChatClient?", pluginType)
	}

	if resolver, ok := found.(plugin.DependencyResolver); ok {
		if v, ok := resolver.ResolveDependency(depType); ok {
			if dep, ok := v.(D); ok {
				return dep, nil
			}
		}
	}

	return zero, errs.Genericf("Dependency '%s' was not resolved from plugin '%s'", depType, pluginType)
}
