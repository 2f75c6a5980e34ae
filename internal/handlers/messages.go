package handlers

import (
	"github.com/bugmatch/bugmatch/internal/models"
	"github.com/bugmatch/bugmatch/internal/room"
)

// Inbound event types (client -> server). Each maps 1:1 to a registry or
// engine operation.
const (
	MsgRoomCreate  = "room:create"
	MsgRoomJoin    = "room:join"
	MsgRoomLeave   = "room:leave"
	MsgRoomReady   = "room:ready"
	MsgGameFlip    = "game:flipCard"
	MsgGameForfeit = "game:forfeit"
)

// Outbound event types (server -> room unless noted).
const (
	MsgSession     = "session"      // connection-scoped: tells the client its player id
	MsgRoomCreated = "room:created" // creator only
	MsgRoomUpdated = "room:updated"
	MsgRoomFull    = "room:full"
	MsgRoomError   = "room:error" // acting connection only
	MsgGameError   = "game:error" // acting connection only
)

// ClientMessage represents the structure for incoming WebSocket messages.
// Fields are a union over all inbound event payloads.
type ClientMessage struct {
	Type     string         `json:"type"`
	Nickname string         `json:"nickname,omitempty"`
	RoomCode string         `json:"roomCode,omitempty"`
	IsReady  bool           `json:"isReady,omitempty"`
	GameID   string         `json:"gameId,omitempty"`
	CardID   string         `json:"cardId,omitempty"`
	Settings *room.Settings `json:"settings,omitempty"`
}

// ServerMessage is the envelope for every outbound event. Room and Game
// snapshots are authoritative replacement state, never diffs.
type ServerMessage struct {
	Type     string                   `json:"type"`
	PlayerID string                   `json:"playerId,omitempty"`
	Room     *room.Snapshot           `json:"room,omitempty"`
	Game     *models.GameSnapshot     `json:"game,omitempty"`
	Card     *models.Card             `json:"card,omitempty"`
	Player   *models.PlayerGameState  `json:"player,omitempty"`
	Winners  []models.PlayerGameState `json:"winners,omitempty"`
	IsTie    bool                     `json:"isTie,omitempty"`
	Error    string                   `json:"error,omitempty"`
}
