/*
Package fakebackend is an in-process chat backend for end-to-end tests and local development.

It speaks the wire protocol of the client: REST endpoints wrapped in the JSON envelope of the
resp package, authenticated with the api_key query parameter and user tokens, and a websocket
endpoint that reports a health check with the connection id and relays channel events. State is
kept in memory and lost when the server stops.
*/
package fakebackend

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"chatsdk/internal/pkg/auth/jwt"
	"chatsdk/internal/pkg/limiter"
	"chatsdk/internal/pkg/logx"
	"chatsdk/pkg/errs"
	"chatsdk/pkg/events"
	"chatsdk/pkg/models"
)

const (
	DefaultConnectRate  = 5
	DefaultConnectBurst = 10
)

// Config configures a Server.
type Config struct {
	// APIKey must be sent by every request.
	APIKey string

	// Secret signs the tokens issued by the backend.
	Secret string

	// AllowDevTokens accepts unsigned development tokens.
	AllowDevTokens bool

	// TokenTTL is the lifetime of issued tokens; zero issues tokens without expiry.
	TokenTTL time.Duration

	// HealthInterval sends periodic health checks; zero only sends the first one.
	HealthInterval time.Duration

	// ConnectRate and ConnectBurst limit websocket connects per client IP.
	ConnectRate  rate.Limit
	ConnectBurst int

	// AllowedOrigins restricts browser clients. Empty allows every origin.
	AllowedOrigins []string
}

// Server is the fake backend.
type Server struct {
	cfg     Config
	store   *store
	hub     *hub
	limiter *limiter.KeyedLimiter
	router  http.Handler
	logger  zerolog.Logger
}

// New creates a Server and starts its websocket hub.
func New(cfg Config) *Server {
	if cfg.ConnectRate == 0 {
		cfg.ConnectRate = DefaultConnectRate
	}
	if cfg.ConnectBurst == 0 {
		cfg.ConnectBurst = DefaultConnectBurst
	}

	s := &Server{
		cfg:     cfg,
		store:   newStore(),
		hub:     newHub(),
		limiter: limiter.NewKeyedLimiter(cfg.ConnectRate, cfg.ConnectBurst),
		logger:  logx.Component("FakeBackend"),
	}
	s.router = s.routes()

	go s.hub.Run()

	return s
}

// Handler returns the HTTP handler of the backend, to be served by an httptest.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops the hub and closes every websocket.
func (s *Server) Close() {
	s.hub.Stop()
	s.limiter.Close()
}

// IssueToken signs a token for userID.
func (s *Server) IssueToken(userID string) (string, error) {
	return jwt.GenerateToken(userID, s.cfg.Secret, s.cfg.TokenTTL)
}

// Connections returns the number of live websocket connections.
func (s *Server) Connections() int {
	return len(s.hub.snapshot())
}

// Emit sends event to every live connection.
func (s *Server) Emit(event events.ChatEvent) {
	s.emitTo(nil, event)
}

// SendError sends an error frame to the connections of userID.
func (s *Server) SendError(userID string, chatErr *errs.Error) {
	data, err := errorFrame(chatErr)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode error frame")
		return
	}
	s.hub.send(frame{data: data, userIDs: map[string]struct{}{userID: {}}})
}

// DropConnections closes every websocket as an abnormal server failure, which clients recover from.
func (s *Server) DropConnections() {
	for _, p := range s.hub.snapshot() {
		p.kick(websocket.CloseInternalServerErr)
	}
}

// User returns the stored version of a user.
func (s *Server) User(userID string) (*models.User, bool) {
	return s.store.user(userID)
}

func (s *Server) emitTo(userIDs map[string]struct{}, event events.ChatEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Err(err).Str("type", event.Type()).Msg("Failed to encode event")
		return
	}
	s.hub.send(frame{data: data, userIDs: userIDs})
}

func errorFrame(chatErr *errs.Error) ([]byte, error) {
	return json.Marshal(map[string]any{
		"type":       events.TypeConnectionError,
		"created_at": time.Now(),
		"error": events.ErrorBody{
			Code:       chatErr.Code,
			Message:    chatErr.Message,
			StatusCode: chatErr.StatusCode,
		},
	})
}

// routes sets up the routing table, applying CORS, request ids, logging and recovery before
// delegating to the REST and websocket handlers.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range s.cfg.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if len(allowedOrigins) == 0 || origin == "" {
				return true
			}
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{"*"}
	if len(s.cfg.AllowedOrigins) > 0 {
		corsAllowedOrigins = s.cfg.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Stream-Auth-Type", "X-Stream-Client"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)
	r.Use(s.requireAPIKey)
	r.Use(jwt.IdentityExtractorMiddleware(s.cfg.Secret, s.cfg.AllowDevTokens))

	r.Get("/connect", s.handleConnect(upgrader))
	r.Post("/guest", s.handleGuest)
	r.Get("/app", s.handleAppSettings)

	r.Group(func(auth chi.Router) {
		auth.Use(s.requireUser)

		auth.Get("/users/me", s.handleCurrentUser)
		auth.Get("/users", s.handleQueryUsers)
		auth.Post("/users", s.handleUpdateUsers)
		auth.Patch("/users", s.handlePartialUpdateUsers)
		auth.Post("/users/block", s.handleBlock)
		auth.Post("/users/unblock", s.handleOK)
		auth.Put("/users/live_locations", s.handleLiveLocation)

		auth.Post("/channels", s.handleQueryChannels)
		auth.Post("/channels/read", s.handleOK)
		auth.Route("/channels/{type}/{id}", func(ch chi.Router) {
			ch.Post("/", s.handleUpdateChannel)
			ch.Patch("/", s.handleUpdateChannel)
			ch.Delete("/", s.handleDeleteChannel)
			ch.Post("/query", s.handleQueryChannel)
			ch.Post("/message", s.handleSendMessage)
			ch.Post("/event", s.handleSendEvent)
			ch.Post("/read", s.handleMarkRead)
			ch.Post("/truncate", s.handleTruncate)
			ch.Post("/hide", s.handleOK)
			ch.Post("/show", s.handleOK)
			ch.Post("/stop-watching", s.handleOK)
			ch.Get("/pinned_messages", s.handlePinned)
		})
		auth.Get("/members", s.handleQueryMembers)

		auth.Route("/messages/{id}", func(msg chi.Router) {
			msg.Get("/", s.handleGetMessage)
			msg.Post("/", s.handleUpdateMessage)
			msg.Delete("/", s.handleDeleteMessage)
			msg.Get("/replies", s.handleReplies)
			msg.Post("/reaction", s.handleSendReaction)
			msg.Delete("/reaction/{reaction}", s.handleDeleteReaction)
		})

		auth.Post("/moderation/ban", s.handleOK)
		auth.Delete("/moderation/ban", s.handleOK)
		auth.Post("/moderation/mute", s.handleMute)
		auth.Post("/moderation/unmute", s.handleOK)
		auth.Post("/moderation/mute/channel", s.handleOK)
		auth.Post("/moderation/unmute/channel", s.handleOK)
		auth.Post("/moderation/flag", s.handleFlag)
		auth.Post("/push_preferences", s.handlePushPreferences)
	})

	return r
}
