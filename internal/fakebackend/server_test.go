package fakebackend

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsdk/internal/pkg/auth/jwt"
	"chatsdk/internal/pkg/resp"
	"chatsdk/pkg/errs"
	"chatsdk/pkg/events"
	"chatsdk/pkg/models"
)

const (
	testAPIKey = "test-key"
	testSecret = "test-secret"
)

type fixture struct {
	backend *Server
	http    *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	backend := New(Config{APIKey: testAPIKey, Secret: testSecret, AllowDevTokens: true})
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(func() {
		backend.Close()
		srv.Close()
	})

	return &fixture{backend: backend, http: srv}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any, dst any) error {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	req, err := http.NewRequest(method, f.http.URL+path+sep+"api_key="+testAPIKey, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	return resp.Decode(res.StatusCode, res.Body, dst)
}

func (f *fixture) dial(t *testing.T, userID, token string) *websocket.Conn {
	t.Helper()

	payload, err := json.Marshal(map[string]any{"user_id": userID, "user_details": map[string]any{"id": userID, "name": "Name " + userID}})
	require.NoError(t, err)

	q := url.Values{}
	q.Set("api_key", testAPIKey)
	q.Set("authorization", token)
	q.Set("stream-auth-type", "jwt")
	q.Set("json", string(payload))

	wsURL := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/connect?" + q.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) events.ChatEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	event, err := events.Parse(data)
	require.NoError(t, err)
	return event
}

func TestRejectsWrongAPIKey(t *testing.T) {
	f := newFixture(t)

	res, err := http.Get(f.http.URL + "/app?api_key=nope")
	require.NoError(t, err)
	defer res.Body.Close()

	err = resp.Decode(res.StatusCode, res.Body, nil)
	assert.Equal(t, errs.ErrAuthenticationFailed, errs.CodeOf(err))
}

func TestGuestUserCanFetchItself(t *testing.T) {
	f := newFixture(t)

	var guest models.GuestUser
	require.NoError(t, f.do(t, http.MethodPost, "/guest", "", map[string]any{"user": map[string]any{"id": "visitor"}}, &guest))
	assert.Equal(t, "visitor", guest.User.ID)
	assert.Equal(t, models.RoleGuest, guest.User.Role)

	userID, err := jwt.UserID(guest.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "visitor", userID)

	var me struct {
		User *models.User `json:"user"`
	}
	require.NoError(t, f.do(t, http.MethodGet, "/users/me", guest.AccessToken, nil, &me))
	assert.Equal(t, "visitor", me.User.ID)
}

func TestExpiredTokenIsReported(t *testing.T) {
	f := newFixture(t)

	payload := &jwt.Payload{
		StandardClaims: jwtlib.StandardClaims{ExpiresAt: time.Now().Add(-time.Minute).Unix()},
		UserID:         "jc",
	}
	expired, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, payload).SignedString([]byte(testSecret))
	require.NoError(t, err)

	err = f.do(t, http.MethodGet, "/users/me", expired, nil, nil)
	assert.Equal(t, errs.ErrTokenExpired, errs.CodeOf(err))

	err = f.do(t, http.MethodGet, "/users/me", "", nil, nil)
	assert.Equal(t, errs.ErrAuthenticationFailed, errs.CodeOf(err))
}

func TestConnectSendsHealthCheck(t *testing.T) {
	f := newFixture(t)

	token, err := f.backend.IssueToken("jc")
	require.NoError(t, err)

	conn := f.dial(t, "jc", token)

	health, ok := readEvent(t, conn).(*events.HealthEvent)
	require.True(t, ok)
	assert.NotEmpty(t, health.ConnectionID)
	require.NotNil(t, health.Me)
	assert.Equal(t, "jc", health.Me.ID)
	assert.Equal(t, "Name jc", health.Me.Name)

	assert.Eventually(t, func() bool { return f.backend.Connections() == 1 }, time.Second, 5*time.Millisecond)
}

func TestConnectWithForeignTokenGetsErrorFrame(t *testing.T) {
	f := newFixture(t)

	token, err := f.backend.IssueToken("someone-else")
	require.NoError(t, err)

	conn := f.dial(t, "jc", token)

	errEvent, ok := readEvent(t, conn).(*events.ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, errs.ErrTokenSignatureIncorrect, errs.CodeOf(errEvent.Err))
}

func TestMessagesAreRelayedToMembers(t *testing.T) {
	f := newFixture(t)

	jcToken, err := f.backend.IssueToken("jc")
	require.NoError(t, err)
	tsToken, err := f.backend.IssueToken("ts")
	require.NoError(t, err)

	tsConn := f.dial(t, "ts", tsToken)
	readEvent(t, tsConn)

	var created struct {
		Channel *models.Channel `json:"channel"`
	}
	query := models.QueryChannelRequest{Watch: true, Data: map[string]any{"members": []string{"ts"}, "name": "general"}}
	require.NoError(t, f.do(t, http.MethodPost, "/channels/messaging/general/query", jcToken, query, &created))
	assert.Equal(t, "messaging:general", created.Channel.CID)
	assert.Equal(t, 2, created.Channel.MemberCount)

	added, ok := readEvent(t, tsConn).(*events.NotificationEvent)
	require.True(t, ok)
	assert.Equal(t, events.TypeNotificationAddedToChannel, added.Type())

	var sent struct {
		Message *models.Message `json:"message"`
	}
	body := map[string]any{"message": models.Message{ID: "jc-1", Text: "hello"}}
	require.NoError(t, f.do(t, http.MethodPost, "/channels/messaging/general/message", jcToken, body, &sent))
	assert.Equal(t, "jc-1", sent.Message.ID)
	assert.Equal(t, "jc", sent.Message.User.ID)

	newMessage, ok := readEvent(t, tsConn).(*events.NewMessageEvent)
	require.True(t, ok)
	assert.Equal(t, "hello", newMessage.Message.Text)
	assert.Equal(t, "messaging:general", newMessage.CID)
}

func TestSendMessageRequiresMembership(t *testing.T) {
	f := newFixture(t)

	jcToken, err := f.backend.IssueToken("jc")
	require.NoError(t, err)
	outsider, err := f.backend.IssueToken("outsider")
	require.NoError(t, err)

	require.NoError(t, f.do(t, http.MethodPost, "/channels/messaging/private/query", jcToken, models.QueryChannelRequest{}, nil))

	err = f.do(t, http.MethodPost, "/channels/messaging/private/message", outsider, map[string]any{"message": models.Message{Text: "hi"}}, nil)
	assert.Equal(t, errs.ErrNotAllowed, errs.CodeOf(err))
}

func TestDropConnectionsClosesSockets(t *testing.T) {
	f := newFixture(t)

	token, err := f.backend.IssueToken("jc")
	require.NoError(t, err)

	conn := f.dial(t, "jc", token)
	readEvent(t, conn)
	require.Eventually(t, func() bool { return f.backend.Connections() == 1 }, time.Second, 5*time.Millisecond)

	f.backend.DropConnections()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseInternalServerErr))
}
