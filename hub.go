package main

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// IntentMessage is the only kind of message clients send over the websocket.
// The server validates and applies it; clients never write state directly.
type IntentMessage struct {
	Type   string `json:"type"`              // "submit_name", "start_game", "choose_secret", "answer", "eliminate"
	Text   string `json:"text,omitempty"`    // submit_name
	NameID string `json:"name_id,omitempty"` // choose_secret / eliminate
	Answer Answer `json:"answer,omitempty"`  // answer
}

// SnapshotMessage carries the authoritative room state to a subscriber.
type SnapshotMessage struct {
	Type string       `json:"type"` // "snapshot"
	Room RoomSnapshot `json:"room"`
}

// ErrorMessage is sent only to the client whose intent failed a lookup.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type intentRequest struct {
	client *Client
	msg    IntentMessage
}

// Hub fans room snapshots out to every subscriber of one room. All intents
// funnel through the run loop, so mutations commit and broadcast in the same
// order; snapshots are re-read at send time and versioned, so a coalesced
// broadcast can never show older state after newer.
type Hub struct {
	room *Room

	mu      sync.Mutex
	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	intents  chan intentRequest
	syncs    chan struct{}
}

func newHub(room *Room) *Hub {
	return &Hub{
		room:     room,
		clients:  make(map[*Client]bool),
		register: make(chan *Client),
		unreg:    make(chan *Client),
		intents:  make(chan intentRequest),
		syncs:    make(chan struct{}, 16),
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

			// The fresh subscriber gets the current state immediately.
			c.send <- SnapshotMessage{
				Type: "snapshot",
				Room: h.room.Snapshot(c.playerID),
			}

		case c := <-h.unreg:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case ir := <-h.intents:
			h.handleIntent(cfg, ir)

		case <-h.syncs:
			h.broadcastSnapshot()
		}
	}
}

// notifySync asks the run loop to rebroadcast after an out-of-band mutation
// (an HTTP join). Pending requests coalesce; the snapshot is read fresh at
// broadcast time.
func (h *Hub) notifySync() {
	select {
	case h.syncs <- struct{}{}:
	default:
	}
}

func (h *Hub) handleIntent(cfg *Config, ir intentRequest) {
	room := h.room
	msg := ir.msg

	var err error
	switch msg.Type {
	case "submit_name":
		_, err = room.SubmitName(ir.client.playerID, msg.Text)
	case "start_game":
		err = room.StartGame(ir.client.playerID)
	case "choose_secret":
		err = room.ChooseSecret(ir.client.playerID, msg.NameID)
	case "answer":
		err = room.AnswerQuestion(ir.client.playerID, msg.Answer)
	case "eliminate":
		err = room.Eliminate(ir.client.playerID, msg.NameID)
	default:
		return
	}

	switch {
	case err == nil:
		h.broadcastSnapshot()

	case errors.Is(err, ErrNameNotFound):
		// Lookup failures are surfaced, to the offending client only.
		h.sendTo(ir.client, ErrorMessage{
			Type:    "error",
			Code:    errorCode(err),
			Message: err.Error(),
		})

	default:
		// Forbidden, wrong-phase and precondition failures are silent
		// no-ops: the client UI never offers those actions, so anyone
		// hitting them is racing a broadcast or poking at the wire.
		logf(cfg, "ROOMS: Ignored %q from %s in %s: %v", msg.Type, ir.client.playerID, room.Code(), err)
	}
}

// broadcastSnapshot sends each subscriber its own view of the room. Views
// differ because the secret is scoped to the MJ until the round ends.
func (h *Hub) broadcastSnapshot() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- SnapshotMessage{
			Type: "snapshot",
			Room: h.room.Snapshot(client.playerID),
		}:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

func (h *Hub) sendTo(c *Client, msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

// closeAll disconnects all clients of this hub (used by the reaper).
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveWS subscribes a client to a room's snapshot stream. The player ID
// comes from the query string; an unknown or empty ID still gets snapshots
// (a read-only viewer) but its intents fail the role guards.
func serveWS(cfg *Config, rooms *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		hub, err := rooms.Get(ps.ByName("code"))
		if err != nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ROOMS: Upgrade error: %v", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			playerID: r.URL.Query().Get("player"),
		}

		hub.register <- client

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unreg <- c
		_ = c.conn.Close()
	}()

	for {
		var msg IntentMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		h.intents <- intentRequest{
			client: c,
			msg:    msg,
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
