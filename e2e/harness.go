package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"support-chat/domain"
	"support-chat/transport"
)

// Collaborator is an in-process stand-in for the storefront backend: the
// room HTTP API plus the WebSocket endpoint. Every accepted sendMessage is
// assigned a server id and broadcast to all connections as a newMessage,
// including the sender's own (the echo the reconciliation engine handles).
type Collaborator struct {
	server   *httptest.Server
	upgrader websocket.Upgrader
	debug    bool

	mu       sync.Mutex
	nextRoom domain.RoomID
	nextMsg  int
	rooms    map[int]domain.Room
	history  map[domain.RoomID][]domain.Message
	conns    []*websocket.Conn
}

func NewCollaborator(debug bool) *Collaborator {
	c := &Collaborator{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		debug:    debug,
		nextRoom: 41,
		nextMsg:  500,
		rooms:    make(map[int]domain.Room),
		history:  make(map[domain.RoomID][]domain.Message),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /rooms", c.handleCreateRoom)
	mux.HandleFunc("GET /rooms", c.handleListRooms)
	mux.HandleFunc("GET /rooms/{room}/messages", func(w http.ResponseWriter, r *http.Request) {
		c.writeHistory(w, r.PathValue("room"))
	})
	mux.HandleFunc("GET /customers/{customer}/rooms/{room}/messages", func(w http.ResponseWriter, r *http.Request) {
		c.writeHistory(w, r.PathValue("room"))
	})
	mux.HandleFunc("/ws", c.handleWS)

	c.server = httptest.NewServer(mux)
	return c
}

func (c *Collaborator) Close()          { c.server.Close() }
func (c *Collaborator) APIBaseURL() string { return c.server.URL }
func (c *Collaborator) WebsocketURL() string {
	return "ws" + strings.TrimPrefix(c.server.URL, "http") + "/ws"
}

func (c *Collaborator) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID int `json:"customerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c.mu.Lock()
	room, ok := c.rooms[body.CustomerID]
	if !ok {
		c.nextRoom++
		room = domain.Room{ID: c.nextRoom, CustomerID: body.CustomerID,
			CustomerName: fmt.Sprintf("customer-%d", body.CustomerID)}
		c.rooms[body.CustomerID] = room
	}
	c.mu.Unlock()

	_ = json.NewEncoder(w).Encode(map[string]domain.RoomID{"roomId": room.ID})
}

func (c *Collaborator) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	c.mu.Lock()
	rooms := make([]domain.Room, 0, len(c.rooms))
	for _, room := range c.rooms {
		rooms = append(rooms, room)
	}
	c.mu.Unlock()
	_ = json.NewEncoder(w).Encode(rooms)
}

func (c *Collaborator) writeHistory(w http.ResponseWriter, roomPath string) {
	var roomID domain.RoomID
	_, _ = fmt.Sscanf(roomPath, "%d", &roomID)

	c.mu.Lock()
	history := make([]domain.Message, len(c.history[roomID]))
	copy(history, c.history[roomID])
	c.mu.Unlock()

	_ = json.NewEncoder(w).Encode(history)
}

func (c *Collaborator) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c.mu.Lock()
	c.conns = append(c.conns, conn)
	c.mu.Unlock()

	for {
		var frame transport.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			c.drop(conn)
			return
		}
		if c.debug {
			fmt.Printf("<< %s %+v\n", frame.Event, frame.Send)
		}
		if frame.Event != transport.EventSendMessage || frame.Send == nil {
			continue
		}
		c.accept(frame.Send)
	}
}

// accept confirms a send and broadcasts it to every connection.
func (c *Collaborator) accept(send *transport.SendPayload) {
	c.mu.Lock()
	c.nextMsg++
	role := domain.RoleUser
	if send.AsAdmin {
		role = domain.RoleAdmin
	}
	confirmed := domain.Message{
		ID:        c.nextMsg,
		RoomID:    send.RoomID,
		Content:   send.Content,
		Role:      role,
		Sender:    send.Sender,
		ClientKey: send.ClientKey,
		SentAt:    time.Now().UTC(),
	}
	c.history[confirmed.RoomID] = append(c.history[confirmed.RoomID], confirmed)

	// Broadcast under the lock so concurrent accepts never interleave
	// writes on the same connection.
	frame := transport.Frame{Event: transport.EventNewMessage, Message: &confirmed}
	if c.debug {
		fmt.Printf(">> %s id=%d room=%d\n", frame.Event, confirmed.ID, confirmed.RoomID)
	}
	for _, conn := range c.conns {
		_ = conn.WriteJSON(frame)
	}
	c.mu.Unlock()
}

func (c *Collaborator) drop(conn *websocket.Conn) {
	_ = conn.Close()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, known := range c.conns {
		if known == conn {
			c.conns = append(c.conns[:i], c.conns[i+1:]...)
			return
		}
	}
}
