package chat

import (
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"chatsdk/internal/app/api"
	"chatsdk/internal/app/session"
	"chatsdk/internal/app/storage"
	"chatsdk/pkg/call"
	"chatsdk/pkg/credentials"
	"chatsdk/pkg/events"
	"chatsdk/pkg/plugin"
)

const (
	// DefaultBaseURL is the REST endpoint used when none is configured.
	DefaultBaseURL = "http://localhost:8080"

	// DefaultTypingThrottle is the minimum delay between two typing.start events of a channel.
	DefaultTypingThrottle = 3 * time.Second
)

// Aliases of the collaborator types, so that applications can configure and test the client
// without importing its internals.
type (
	Transport           = session.Transport
	ConnectConfig       = session.ConnectConfig
	ConnectionData      = session.ConnectionData
	ConnectionState     = session.State
	InitializationState = session.InitializationState
	API                 = api.API
	BanOptions          = api.BanOptions
	Uploader            = storage.FileUploader
	File                = storage.File
)

// TransportFactory builds the realtime transport. The transport must emit its lifecycle
// events into registry.
type TransportFactory func(registry *events.Registry) Transport

// Option configures a Client.
type Option func(*options)

type options struct {
	baseURL        string
	wsURL          string
	store          credentials.Store
	plugins        []plugin.Plugin
	factories      []plugin.Factory
	executor       *call.Executor
	uploader       Uploader
	transport      TransportFactory
	api            API
	httpClient     *http.Client
	requestRate    rate.Limit
	requestBurst   int
	newBackOff     func() backoff.BackOff
	typingThrottle time.Duration
}

func defaultOptions() options {
	return options{
		baseURL:        DefaultBaseURL,
		typingThrottle: DefaultTypingThrottle,
	}
}

// WithBaseURL sets the REST endpoint. The websocket endpoint is derived from it unless set
// with WithWSURL.
func WithBaseURL(baseURL string) Option {
	return func(o *options) { o.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithWSURL sets the websocket endpoint.
func WithWSURL(wsURL string) Option {
	return func(o *options) { o.wsURL = wsURL }
}

// WithCredentialStore sets where the credentials of the connected user are persisted.
// Defaults to an in-memory store.
func WithCredentialStore(store credentials.Store) Option {
	return func(o *options) { o.store = store }
}

// WithPlugins adds plugins that are active for every user, in order.
func WithPlugins(plugins ...plugin.Plugin) Option {
	return func(o *options) { o.plugins = append(o.plugins, plugins...) }
}

// WithPluginFactories adds factories invoked every time a user is set. Their plugins run
// after the static ones.
func WithPluginFactories(factories ...plugin.Factory) Option {
	return func(o *options) { o.factories = append(o.factories, factories...) }
}

// WithExecutor sets the worker pool that runs enqueued calls.
func WithExecutor(executor *call.Executor) Option {
	return func(o *options) { o.executor = executor }
}

// WithUploader enables attachment uploads.
func WithUploader(uploader Uploader) Option {
	return func(o *options) { o.uploader = uploader }
}

// WithTransport replaces the websocket transport.
func WithTransport(factory TransportFactory) Option {
	return func(o *options) { o.transport = factory }
}

// WithAPI replaces the HTTP network call factory.
func WithAPI(a API) Option {
	return func(o *options) { o.api = a }
}

// WithHTTPClient sets the HTTP client of the REST collaborator.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithRequestRate throttles REST requests to r per second with the given burst.
func WithRequestRate(r rate.Limit, burst int) Option {
	return func(o *options) {
		o.requestRate = r
		o.requestBurst = burst
	}
}

// WithBackOff sets the reconnect policy of the websocket transport.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(o *options) { o.newBackOff = newBackOff }
}

// WithTypingThrottle sets the minimum delay between two typing.start events of a channel.
func WithTypingThrottle(d time.Duration) Option {
	return func(o *options) { o.typingThrottle = d }
}

// wsURLFor derives the websocket endpoint from the REST endpoint.
func wsURLFor(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://") + "/connect"
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://") + "/connect"
	default:
		return baseURL + "/connect"
	}
}
