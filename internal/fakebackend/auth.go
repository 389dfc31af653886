package fakebackend

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chatsdk/internal/pkg/auth/jwt"
	"chatsdk/internal/pkg/logx"
	"chatsdk/internal/pkg/randx"
	"chatsdk/internal/pkg/req"
	"chatsdk/internal/pkg/resp"
	"chatsdk/pkg/errs"
	"chatsdk/pkg/models"
)

type userContextKey struct{}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if r.URL.Query().Get("api_key") != s.cfg.APIKey {
			logx.Warn("Request rejected: invalid api key", "path", r.URL.Path)
			resp.RespondError(w, r, errs.NewError(errs.ErrAuthenticationFailed))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the user of a request from its token, or the anonymous user.
func (s *Server) authenticate(r *http.Request) (*models.User, *errs.Error) {
	authType := r.Header.Get("Stream-Auth-Type")
	if authType == "" {
		authType = r.URL.Query().Get("stream-auth-type")
	}
	if authType == "anonymous" {
		return &models.User{ID: models.AnonymousUserID, Role: models.RoleAnonymous}, nil
	}

	if err := jwt.GetAuthErrorFromContext(r); err != nil {
		if jwt.IsExpired(err) {
			return nil, errs.NewError(errs.ErrTokenExpired)
		}
		return nil, errs.NewError(errs.ErrTokenNotValid)
	}

	payload := jwt.GetPayloadFromContext(r)
	if payload == nil {
		return nil, errs.NewError(errs.ErrAuthenticationFailed)
	}

	return s.store.ensureUser(payload.UserID), nil
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, chatErr := s.authenticate(r)
		if chatErr != nil {
			resp.RespondError(w, r, chatErr)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(userContextKey{}).(*models.User)
	return user
}

// handleGuest creates a guest user and issues its token.
func (s *Server) handleGuest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		User models.User `json:"user"`
	}
	if chatErr := req.BindJSON(w, r, &body); chatErr != nil {
		resp.RespondError(w, r, chatErr)
		return
	}

	if body.User.ID == "" {
		id, err := randx.GuestID()
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		body.User.ID = id
	}
	if body.User.Name == "" {
		if name, err := randx.UserNickname(); err == nil {
			body.User.Name = name
		}
	}
	body.User.Role = models.RoleGuest

	guest := s.store.putUser(&body.User)

	token, err := s.IssueToken(guest.ID)
	if err != nil {
		logx.Error(err, "Failed to issue guest token", "user_id", guest.ID)
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
		return
	}

	resp.RespondSuccess(w, r, models.GuestUser{User: *guest, AccessToken: token})
}

// handleConnect upgrades a websocket connection and registers it with the hub. Requests
// failing the rate limit are rejected before the upgrade; invalid tokens are reported with
// an error frame on the upgraded connection, as the production backend does.
func (s *Server) handleConnect(upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !s.limiter.Allow(ip) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimit))
			return
		}

		var payload struct {
			UserID      string       `json:"user_id"`
			UserDetails *models.User `json:"user_details"`
		}
		if err := json.Unmarshal([]byte(r.URL.Query().Get("json")), &payload); err != nil || payload.UserID == "" {
			logx.Warn("WebSocket request rejected: missing connect payload")
			resp.RespondError(w, r, errs.NewError(errs.ErrInputError))
			return
		}

		user, chatErr := s.authenticate(r)
		if chatErr == nil && user.ID != payload.UserID {
			chatErr = errs.NewError(errs.ErrTokenSignatureIncorrect)
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		if chatErr != nil {
			s.rejectConn(conn, chatErr)
			return
		}

		if payload.UserDetails != nil && !user.IsAnonymous() {
			user = s.store.mergeUser(payload.UserDetails)
		}

		p := newPeer(s.hub, conn, user, uuid.NewString())
		go p.writePump(s.cfg.HealthInterval)

		if !s.hub.join(p) {
			conn.Close()
			return
		}

		p.readPump()
	}
}

func (s *Server) rejectConn(conn *websocket.Conn, chatErr *errs.Error) {
	defer conn.Close()

	logx.Info("WebSocket connection rejected", "code", chatErr.Code, "message", chatErr.Message)

	data, err := errorFrame(chatErr)
	if err != nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, chatErr.Message))
}
