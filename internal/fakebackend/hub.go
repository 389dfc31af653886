package fakebackend

import (
	"sync"

	"github.com/rs/zerolog"

	"chatsdk/internal/pkg/logx"
)

const broadcastChannelBuffer = 1024

// frame is a serialized event addressed to the peers of some users, or to every peer when
// userIDs is nil.
type frame struct {
	data    []byte
	userIDs map[string]struct{}
}

// hub owns the live websocket peers of the backend.
type hub struct {
	// a map of currently connected peers, keyed by their connection id.
	peers map[string]*peer

	// a buffered channel for frames to be sent to peers.
	broadcast chan frame

	// a channel for peers that completed the handshake.
	register chan *peer

	// a channel for peers to drop. The hub is the only closer of peer.send.
	unregister chan *peer

	// used to signal the hub to stop its Run loop immediately.
	stopChan chan struct{}
	stopOnce sync.Once

	// mu protects access to the peers map.
	mu sync.RWMutex

	logger zerolog.Logger
}

func newHub() *hub {
	return &hub{
		peers:      make(map[string]*peer),
		broadcast:  make(chan frame, broadcastChannelBuffer),
		register:   make(chan *peer),
		unregister: make(chan *peer),
		stopChan:   make(chan struct{}),
		logger:     logx.Component("FakeBackendHub"),
	}
}

// Stop terminates the Run loop. Every peer is closed.
func (h *hub) Stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })
}

// Run starts the main event loop of the hub.
func (h *hub) Run() {
	defer func() {
		h.mu.Lock()
		for id, p := range h.peers {
			close(p.send)
			delete(h.peers, id)
		}
		h.mu.Unlock()

		h.logger.Info().Msg("Hub Run loop finished.")
	}()

	for {
		select {
		case p := <-h.register:
			h.mu.Lock()
			h.peers[p.connectionID] = p
			total := len(h.peers)
			h.mu.Unlock()

			h.logger.Info().
				Str("user_id", p.user.ID).
				Str("connection_id", p.connectionID).
				Int("total_peers", total).
				Msg("Peer connected.")

			if !p.queue(p.healthCheck()) {
				h.drop(p)
			}

		case p := <-h.unregister:
			h.drop(p)

		case f := <-h.broadcast:
			h.mu.RLock()
			var stale []*peer
			for _, p := range h.peers {
				if f.userIDs != nil {
					if _, ok := f.userIDs[p.user.ID]; !ok {
						continue
					}
				}
				if !p.queue(f.data) {
					stale = append(stale, p)
				}
			}
			h.mu.RUnlock()

			for _, p := range stale {
				h.logger.Warn().Str("connection_id", p.connectionID).Msg("Peer send channel full, dropping.")
				h.drop(p)
			}

		case <-h.stopChan:
			return
		}
	}
}

// drop removes p and closes its send channel. Stale peers are ignored.
func (h *hub) drop(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, ok := h.peers[p.connectionID]
	if !ok || current != p {
		return
	}

	delete(h.peers, p.connectionID)
	close(p.send)

	h.logger.Info().
		Str("user_id", p.user.ID).
		Str("connection_id", p.connectionID).
		Int("total_peers", len(h.peers)).
		Msg("Peer left.")
}

func (h *hub) join(p *peer) bool {
	select {
	case h.register <- p:
		return true
	case <-h.stopChan:
		return false
	}
}

func (h *hub) leave(p *peer) {
	select {
	case h.unregister <- p:
	case <-h.stopChan:
	}
}

func (h *hub) send(f frame) {
	select {
	case h.broadcast <- f:
	case <-h.stopChan:
	}
}

// snapshot returns the live peers.
func (h *hub) snapshot() []*peer {
	h.mu.RLock()
	defer h.mu.RUnlock()

	peers := make([]*peer, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, p)
	}
	return peers
}
