package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message is pushed to a client's WebSocket connections.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type subscription struct {
	clientID string
	conn     *websocket.Conn
}

type envelope struct {
	clientID string
	payload  []byte
}

const (
	peerBuffer   = 32
	writeTimeout = 5 * time.Second
)

// peer is one connection with its own writer goroutine, so a stalled
// socket only delays its own messages.
type peer struct {
	conn *websocket.Conn
	out  chan []byte
}

// Hub fans messages out to the WebSocket connections of each client.
// Registration, removal and fan-out happen on the Run goroutine; writes
// happen on each peer's writer.
type Hub struct {
	conns      map[string]map[*websocket.Conn]*peer
	register   chan subscription
	unregister chan subscription
	drop       chan string
	send       chan envelope
	done       chan struct{}
	mutex      sync.RWMutex
}

// NewHub returns a Hub; call Run to start it.
func NewHub() *Hub {
	return &Hub{
		conns:      make(map[string]map[*websocket.Conn]*peer),
		register:   make(chan subscription),
		unregister: make(chan subscription),
		drop:       make(chan string, 16),
		send:       make(chan envelope, 256),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for id, set := range h.conns {
				for conn := range set {
					h.remove(id, conn)
				}
			}
			h.mutex.Unlock()
			return

		case s := <-h.register:
			p := &peer{conn: s.conn, out: make(chan []byte, peerBuffer)}
			h.mutex.Lock()
			set, ok := h.conns[s.clientID]
			if !ok {
				set = make(map[*websocket.Conn]*peer)
				h.conns[s.clientID] = set
			}
			set[s.conn] = p
			h.mutex.Unlock()
			go h.writePump(s.clientID, p)

		case s := <-h.unregister:
			h.mutex.Lock()
			h.remove(s.clientID, s.conn)
			h.mutex.Unlock()

		case id := <-h.drop:
			h.mutex.Lock()
			for conn := range h.conns[id] {
				h.remove(id, conn)
			}
			h.mutex.Unlock()

		case env := <-h.send:
			h.mutex.Lock()
			for conn, p := range h.conns[env.clientID] {
				select {
				case p.out <- env.payload:
				default:
					log.Printf("hub: client %s is not keeping up, closing connection", env.clientID)
					h.remove(env.clientID, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// writePump writes queued payloads to p until its queue is closed or a
// write fails.
func (h *Hub) writePump(clientID string, p *peer) {
	for payload := range p.out {
		_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := p.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Printf("hub: write to client %s failed: %v", clientID, err)
			}
			h.Unregister(clientID, p.conn)
			for range p.out {
			}
			return
		}
	}
}

// remove must be called with h.mutex held.  Closing the connection also
// unblocks a writer stuck on it.
func (h *Hub) remove(clientID string, conn *websocket.Conn) {
	set, ok := h.conns[clientID]
	if !ok {
		return
	}
	p, ok := set[conn]
	if !ok {
		return
	}
	delete(set, conn)
	close(p.out)
	_ = conn.Close()
	if len(set) == 0 {
		delete(h.conns, clientID)
	}
}

// Register attaches conn to clientID.
func (h *Hub) Register(clientID string, conn *websocket.Conn) {
	select {
	case h.register <- subscription{clientID: clientID, conn: conn}:
	case <-h.done:
		_ = conn.Close()
	}
}

// Unregister detaches and closes conn.
func (h *Hub) Unregister(clientID string, conn *websocket.Conn) {
	select {
	case h.unregister <- subscription{clientID: clientID, conn: conn}:
	case <-h.done:
	}
}

// Drop closes every connection of clientID.
func (h *Hub) Drop(clientID string) {
	select {
	case h.drop <- clientID:
	default:
		log.Printf("hub: drop queue full, client %s left connected", clientID)
	}
}

// Send queues msg for clientID.  Messages are dropped when the queue is full.
func (h *Hub) Send(clientID string, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("hub: marshal %s message: %v", msg.Type, err)
		return
	}
	select {
	case h.send <- envelope{clientID: clientID, payload: payload}:
	default:
		log.Println("hub: send queue is full, dropping message")
	}
}

// Count returns the number of connections of clientID.
func (h *Hub) Count(clientID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.conns[clientID])
}
