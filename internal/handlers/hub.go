package handlers

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Client is one connected player's outbound channel plus identity. The
// write pump drains Out; everything else only ever sends.
type Client struct {
	PlayerID uuid.UUID
	Out      chan ServerMessage

	// roomCode is owned by the connection's read loop; the hub keeps its
	// own membership index and never reads this field.
	roomCode string
}

// NewClient builds a client with a buffered outbox.
func NewClient(playerID uuid.UUID) *Client {
	return &Client{
		PlayerID: playerID,
		Out:      make(chan ServerMessage, 16),
	}
}

// Hub indexes live connections by room code so broadcasts can fan out
// without touching registry or engine state.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string]map[uuid.UUID]*Client
	logger *logrus.Logger
}

// NewHub returns an empty connection hub.
func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.New()
	}
	return &Hub{
		rooms:  make(map[string]map[uuid.UUID]*Client),
		logger: logger,
	}
}

// Join registers a client under a room code.
func (h *Hub) Join(code string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[code] == nil {
		h.rooms[code] = make(map[uuid.UUID]*Client)
	}
	h.rooms[code][c.PlayerID] = c
}

// Leave removes a client from a room's fan-out set, dropping the set when
// it empties.
func (h *Hub) Leave(code string, playerID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[code]; ok {
		delete(conns, playerID)
		if len(conns) == 0 {
			delete(h.rooms, code)
		}
	}
}

// BroadcastRoom sends a message to every connection in the room. Sends are
// non-blocking: a full outbox means the connection is too slow to keep up
// and the message is dropped for that client.
func (h *Hub) BroadcastRoom(code string, msg ServerMessage) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.rooms[code]))
	for _, c := range h.rooms[code] {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		select {
		case c.Out <- msg:
		default:
			h.logger.WithFields(logrus.Fields{
				"room":   code,
				"player": c.PlayerID,
				"event":  msg.Type,
			}).Warn("slow connection, dropping broadcast")
		}
	}
}

// Send delivers a message to a single client, non-blocking.
func (h *Hub) Send(c *Client, msg ServerMessage) {
	select {
	case c.Out <- msg:
	default:
		h.logger.WithFields(logrus.Fields{
			"player": c.PlayerID,
			"event":  msg.Type,
		}).Warn("slow connection, dropping message")
	}
}
