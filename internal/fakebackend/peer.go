package fakebackend

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatsdk/internal/pkg/logx"
	"chatsdk/pkg/events"
	"chatsdk/pkg/models"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the backend to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the backend sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a message sent by the client.
	maxMessageSize = 8192
)

// peer is an accepted websocket connection of one user.
type peer struct {
	hub  *hub
	conn *websocket.Conn
	user *models.User

	// connectionID is reported with every health check.
	connectionID string

	// a buffered channel of frames waiting to be written.
	send chan []byte

	// closeCode is written in the close frame once send is closed.
	closeCode atomic.Int32

	logger zerolog.Logger
}

func newPeer(h *hub, conn *websocket.Conn, user *models.User, connectionID string) *peer {
	p := &peer{
		hub:          h,
		conn:         conn,
		user:         user,
		connectionID: connectionID,
		send:         make(chan []byte, 256),
		logger: logx.Logger().With().
			Str("component", "FakeBackendPeer").
			Str("user_id", user.ID).
			Str("connection_id", connectionID).
			Logger(),
	}
	p.closeCode.Store(websocket.CloseNormalClosure)
	return p
}

func (p *peer) healthCheck() []byte {
	data, _ := json.Marshal(&events.HealthEvent{
		Base:         events.NewBase(events.TypeHealthCheck),
		ConnectionID: p.connectionID,
		Me:           p.user,
	})
	return data
}

// queue appends data to the send channel without blocking.
func (p *peer) queue(data []byte) bool {
	select {
	case p.send <- data:
		return true
	default:
		return false
	}
}

// kick closes the connection with code after the queued frames are written.
func (p *peer) kick(code int) {
	p.closeCode.Store(int32(code))
	p.hub.leave(p)
}

// readPump discards client frames and keeps the read deadline fresh until the connection fails.
func (p *peer) readPump() {
	defer func() {
		p.hub.leave(p)
		p.conn.Close()
	}()

	p.conn.SetReadLimit(maxMessageSize)

	if err := p.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		p.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := p.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.logger.Info().Err(err).Msg("Error reading message (client close/going away)")
			}
			return
		}
	}
}

// writePump writes queued frames and periodic pings and health checks.
func (p *peer) writePump(healthInterval time.Duration) {
	ticker := time.NewTicker(pingPeriod)

	var health <-chan time.Time
	if healthInterval > 0 {
		t := time.NewTicker(healthInterval)
		defer t.Stop()
		health = t.C
	}

	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case data, ok := <-p.send:
			if !p.write(data, ok) {
				return
			}

		case <-health:
			if !p.write(p.healthCheck(), true) {
				return
			}

		case <-ticker.C:
			if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				p.logger.Error().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}

// write sends one frame, or the close frame once the send channel is closed.
// Returns false when the pump should terminate.
func (p *peer) write(data []byte, ok bool) bool {
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		p.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		msg := websocket.FormatCloseMessage(int(p.closeCode.Load()), "")
		if err := p.conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
			p.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		p.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}
