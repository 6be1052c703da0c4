package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/ballsim/backend/internal/sim"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 65536
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are checked by middleware.WebSocketCORSCheck
	},
}

var errHubStopped = errors.New("websocket hub stopped")

// Controller is the part of a session a viewer can drive.
type Controller interface {
	Spawn(ctx context.Context, x, y float64) int
	Delete(ctx context.Context) int
	Reset(ctx context.Context) int
	TogglePause(ctx context.Context) sim.Mode
	Snapshot() sim.Snapshot
}

// Control message types accepted from viewers.
const (
	ControlSpawn       = "spawn"
	ControlDelete      = "delete"
	ControlReset       = "reset"
	ControlTogglePause = "toggle_pause"
	ControlGetState    = "get_state"
)

// ControlMessage is an inbound command.
type ControlMessage struct {
	Type string  `json:"type" msgpack:"type"`
	X    float64 `json:"x" msgpack:"x"`
	Y    float64 `json:"y" msgpack:"y"`
}

// Client represents a connected viewer
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	simID      string
	format     Format
	canControl bool
	session    Controller
	send       chan []byte
	registered chan struct{}
}

// ServeOptions describes the connection being upgraded.
type ServeOptions struct {
	SimID      string
	Format     Format
	CanControl bool
	Session    Controller
}

// Serve upgrades the request and attaches the connection to the sim's room.
func Serve(h *Hub, w http.ResponseWriter, r *http.Request, opts ServeOptions) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return err
	}

	client := &Client{
		hub:        h,
		conn:       conn,
		simID:      opts.SimID,
		format:     opts.Format,
		canControl: opts.CanControl,
		session:    opts.Session,
		send:       make(chan []byte, sendBuffer),
		registered: make(chan struct{}),
	}
	if !h.add(client) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return errHubStopped
	}

	go client.writePump()
	go client.readPump()

	client.sendState()
	return nil
}

// sendTo delivers to one client unless it has already been removed.
func (h *Hub) sendTo(client *Client, v interface{}) {
	data, err := encode(client.format, v)
	if err != nil {
		log.Printf("[WS] Error encoding message for %s: %v", client.simID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.rooms[client.simID][client]; !ok {
		return
	}
	select {
	case client.send <- data:
	default:
		log.Printf("[WS] Send buffer full for viewer of %s, dropping direct message", client.simID)
	}
}

func (c *Client) sendState() {
	c.hub.sendTo(c, &sim.FrameMessage{
		Type:   TypeFrame,
		SimID:  c.simID,
		State:  c.session.Snapshot(),
		Events: []sim.CollisionEvent{},
	})
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.hub.sendTo(c, &ErrorMessage{Type: TypeError, Message: message})
}

func (c *Client) decode(messageType int, data []byte) (ControlMessage, error) {
	var msg ControlMessage
	var err error
	if messageType == websocket.BinaryMessage {
		err = msgpack.Unmarshal(data, &msg)
	} else {
		err = json.Unmarshal(data, &msg)
	}
	return msg, err
}

// handleControl applies one command. Commands that mutate the simulation need a
// connection opened with a control token.
func (c *Client) handleControl(ctx context.Context, msg ControlMessage) {
	if msg.Type == ControlGetState {
		c.sendState()
		return
	}
	switch msg.Type {
	case ControlSpawn, ControlDelete, ControlReset, ControlTogglePause:
	default:
		c.sendError("unknown message type: " + msg.Type)
		return
	}
	if !c.canControl {
		c.sendError("control token required")
		return
	}

	switch msg.Type {
	case ControlSpawn:
		c.session.Spawn(ctx, msg.X, msg.Y)
	case ControlDelete:
		c.session.Delete(ctx)
	case ControlReset:
		c.session.Reset(ctx)
	case ControlTogglePause:
		c.session.TogglePause(ctx)
	}
}

// readPump reads control messages until the connection drops
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Read error for viewer of %s: %v", c.simID, err)
			}
			return
		}

		msg, err := c.decode(messageType, data)
		if err != nil {
			c.sendError("invalid message format")
			continue
		}
		c.handleControl(context.Background(), msg)
	}
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	frameType := websocket.TextMessage
	if c.format == FormatMsgpack {
		frameType = websocket.BinaryMessage
	}

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Room closed; best-effort close frame.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(frameType, message); err != nil {
				log.Printf("[WS] Write error for viewer of %s: %v", c.simID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] Ping error for viewer of %s: %v", c.simID, err)
				return
			}
		}
	}
}
