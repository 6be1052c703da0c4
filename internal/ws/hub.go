package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/ballsim/backend/internal/sim"
	"github.com/vmihailenco/msgpack/v5"
)

// Format selects the wire encoding of one connection.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat maps the ?format= query value; empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatMsgpack:
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

func encode(f Format, v interface{}) ([]byte, error) {
	if f == FormatMsgpack {
		return msgpack.Marshal(v)
	}
	return json.Marshal(v)
}

// Outbound message types besides sim.FrameMessage ("frame").
const (
	TypeFrame  = "frame"
	TypeNotice = "notice"
	TypeError  = "error"
)

// NoticeMessage wraps a lifecycle notice for viewers.
type NoticeMessage struct {
	Type   string     `json:"type" msgpack:"type"`
	Notice sim.Notice `json:"notice" msgpack:"notice"`
}

// ErrorMessage reports a rejected control message.
type ErrorMessage struct {
	Type    string `json:"type" msgpack:"type"`
	Message string `json:"message" msgpack:"message"`
}

// Hub maintains the viewers of every simulation
type Hub struct {
	rooms      map[string]map[*Client]struct{} // simID -> clients
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations until ctx is done, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			room, exists := h.rooms[client.simID]
			if !exists {
				room = make(map[*Client]struct{})
				h.rooms[client.simID] = room
			}
			room[client] = struct{}{}
			size := len(room)
			h.mu.Unlock()
			close(client.registered)
			log.Printf("[WS] Viewer connected to %s (format=%s control=%t room_size=%d)", client.simID, client.format, client.canControl, size)

		case client := <-h.unregister:
			h.mu.Lock()
			if h.removeLocked(client) {
				log.Printf("[WS] Viewer disconnected from %s", client.simID)
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for simID := range h.rooms {
				h.closeRoomLocked(simID)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
	case <-h.done:
		return false
	}
	<-client.registered
	return true
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// removeLocked drops a client and closes its send channel exactly once.
func (h *Hub) removeLocked(client *Client) bool {
	room, exists := h.rooms[client.simID]
	if !exists {
		return false
	}
	if _, ok := room[client]; !ok {
		return false
	}
	delete(room, client)
	close(client.send)
	if len(room) == 0 {
		delete(h.rooms, client.simID)
	}
	return true
}

func (h *Hub) closeRoomLocked(simID string) {
	for client := range h.rooms[simID] {
		close(client.send)
	}
	delete(h.rooms, simID)
}

// CloseRoom disconnects every viewer of a stopped simulation.
func (h *Hub) CloseRoom(simID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, exists := h.rooms[simID]; exists {
		log.Printf("[WS] Closing room %s (room_size=%d)", simID, len(room))
		h.closeRoomLocked(simID)
	}
}

// Viewers returns the number of connections watching simID.
func (h *Hub) Viewers(simID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[simID])
}

// BroadcastFrame sends a frame to every viewer of msg.SimID.
func (h *Hub) BroadcastFrame(msg *sim.FrameMessage) {
	h.broadcast(msg.SimID, msg)
}

// BroadcastNotice forwards a notice to the room; sim_stopped also closes it.
func (h *Hub) BroadcastNotice(n sim.Notice) {
	h.broadcast(n.SimID, &NoticeMessage{Type: TypeNotice, Notice: n})
	if n.Type == sim.NoticeStopped {
		h.CloseRoom(n.SimID)
	}
}

// Notify lets the hub act as the notifier when no Redis bus is configured.
func (h *Hub) Notify(_ context.Context, n sim.Notice) error {
	h.BroadcastNotice(n)
	return nil
}

// broadcast encodes v at most once per format and never blocks on a slow client.
func (h *Hub) broadcast(simID string, v interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, exists := h.rooms[simID]
	if !exists {
		return
	}
	encoded := make(map[Format][]byte, 2)
	for client := range room {
		data, ok := encoded[client.format]
		if !ok {
			var err error
			data, err = encode(client.format, v)
			if err != nil {
				log.Printf("[WS] Error encoding %s message for %s: %v", client.format, simID, err)
				return
			}
			encoded[client.format] = data
		}
		select {
		case client.send <- data:
		default:
			// Client's buffer is full
			log.Printf("[WS] Send buffer full for viewer of %s, dropping message", simID)
		}
	}
}
