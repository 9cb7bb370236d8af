package ws_room

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/reelroom/core/internal/model"
)

const (
	EventMemberJoined   = "MEMBER_JOINED"
	EventMatchFound     = "MATCH_FOUND"
	EventQueueExhausted = "QUEUE_EXHAUSTED"
)

type Event struct {
	Type    string         `json:"type"`
	RoomID  string         `json:"room_id"`
	Payload map[string]any `json:"payload,omitempty"`
}

type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	roomID model.RoomID
}

// Hub fans room events out to connected members. The engine itself
// returns results synchronously; this is purely the delivery-side push.
type Hub struct {
	mu sync.RWMutex

	rooms map[model.RoomID]map[*Client]bool

	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:  make(map[model.RoomID]map[*Client]bool),
		logger: logger,
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[client.roomID]; !ok {
		h.rooms[client.roomID] = make(map[*Client]bool)
	}
	h.rooms[client.roomID][client] = true

	h.logger.Info("ws client registered", "room_id", client.roomID.String())
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[client.roomID]; ok {
		if _, member := room[client]; member {
			delete(room, client)
			close(client.send)
			if len(room) == 0 {
				delete(h.rooms, client.roomID)
			}
		}
	}
	h.logger.Info("ws client unregistered", "room_id", client.roomID.String())
}

func (h *Hub) BroadcastToRoom(roomID model.RoomID, event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	event.RoomID = roomID.String()
	messageBytes, _ := json.Marshal(event)

	if clients, ok := h.rooms[roomID]; ok {
		for client := range clients {
			select {
			case client.send <- messageBytes:
			default:
				close(client.send)
				delete(clients, client)
			}
		}
	}
}

func (h *Hub) startClientReading(client *Client) {
	defer func() {
		h.unregister(client)
		client.conn.Close()
	}()

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) startClientWriting(client *Client) {
	defer client.conn.Close()

	for message := range client.send {
		if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
}
