package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/bugmatch/bugmatch/internal/content"
	"github.com/bugmatch/bugmatch/internal/game"
	"github.com/bugmatch/bugmatch/internal/room"
)

// GameServer wires the registry, session store, content source, and
// connection hub together. It is the protocol adapter: every inbound event
// lands in HandleMessage, which invokes exactly one registry or engine
// operation and broadcasts the resulting snapshots.
type GameServer struct {
	Rooms   *room.Registry
	Games   *game.Store
	Content *content.Source
	Hub     *Hub
	Clock   clockwork.Clock
	Logger  *logrus.Logger

	// NoMatchDelay overrides the engine's default mismatch visibility
	// delay when positive.
	NoMatchDelay time.Duration
}

// NewGameServer builds a server around the given content source. A nil
// clock means the real clock.
func NewGameServer(src *content.Source, clock clockwork.Clock, logger *logrus.Logger) *GameServer {
	if logger == nil {
		logger = logrus.New()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &GameServer{
		Rooms:   room.NewRegistry(logger),
		Games:   game.NewStore(),
		Content: src,
		Hub:     NewHub(logger),
		Clock:   clock,
		Logger:  logger,
	}
}

// HandleMessage routes one inbound event. Called from the connection's
// read loop, so per-connection handling is naturally serialized.
func (s *GameServer) HandleMessage(c *Client, msg ClientMessage) {
	switch msg.Type {
	case MsgRoomCreate:
		s.handleRoomCreate(c, msg)
	case MsgRoomJoin:
		s.handleRoomJoin(c, msg)
	case MsgRoomLeave:
		s.handleRoomLeave(c)
	case MsgRoomReady:
		s.handleRoomReady(c, msg)
	case MsgGameFlip:
		s.handleGameFlip(c, msg)
	case MsgGameForfeit:
		s.handleGameForfeit(c, msg)
	default:
		s.Hub.Send(c, ServerMessage{Type: MsgRoomError, Error: "unknown event type"})
	}
}

// Disconnect routes a dropped connection through the same leave path as an
// explicit room:leave.
func (s *GameServer) Disconnect(c *Client) {
	if c.roomCode != "" {
		s.leaveCurrentRoom(c)
	}
}

func (s *GameServer) handleRoomCreate(c *Client, msg ClientMessage) {
	if c.roomCode != "" {
		s.Hub.Send(c, ServerMessage{Type: MsgRoomError, Error: "already in a room"})
		return
	}
	if msg.Nickname == "" {
		s.Hub.Send(c, ServerMessage{Type: MsgRoomError, Error: "nickname required"})
		return
	}

	settings := room.DefaultSettings()
	if msg.Settings != nil {
		settings = *msg.Settings
	}

	snap, err := s.Rooms.CreateRoom(c.PlayerID, msg.Nickname, settings)
	if err != nil {
		s.Hub.Send(c, ServerMessage{Type: MsgRoomError, Error: err.Error()})
		return
	}

	c.roomCode = snap.Code
	s.Hub.Join(snap.Code, c)
	s.Hub.Send(c, ServerMessage{Type: MsgRoomCreated, Room: &snap})
}

func (s *GameServer) handleRoomJoin(c *Client, msg ClientMessage) {
	if c.roomCode != "" {
		s.Hub.Send(c, ServerMessage{Type: MsgRoomError, Error: "already in a room"})
		return
	}
	if msg.Nickname == "" {
		s.Hub.Send(c, ServerMessage{Type: MsgRoomError, Error: "nickname required"})
		return
	}

	snap, err := s.Rooms.JoinRoom(msg.RoomCode, c.PlayerID, msg.Nickname)
	if err != nil {
		s.Hub.Send(c, ServerMessage{Type: MsgRoomError, Error: err.Error()})
		return
	}

	c.roomCode = snap.Code
	s.Hub.Join(snap.Code, c)
	s.Hub.BroadcastRoom(snap.Code, ServerMessage{Type: MsgRoomUpdated, Room: &snap})
	if snap.IsFull() {
		s.Hub.BroadcastRoom(snap.Code, ServerMessage{Type: MsgRoomFull, Room: &snap})
	}
}

func (s *GameServer) handleRoomLeave(c *Client) {
	if c.roomCode == "" {
		s.Hub.Send(c, ServerMessage{Type: MsgRoomError, Error: "not in a room"})
		return
	}
	s.leaveCurrentRoom(c)
}

func (s *GameServer) leaveCurrentRoom(c *Client) {
	code := c.roomCode
	c.roomCode = ""
	s.Hub.Leave(code, c.PlayerID)

	snap, deleted, err := s.Rooms.LeaveRoom(code, c.PlayerID)
	if err != nil {
		return
	}
	if deleted {
		// The room took any live session down with it.
		if g := s.Games.GetByRoomCode(code); g != nil {
			s.Games.Delete(g.ID)
		}
		return
	}
	s.Hub.BroadcastRoom(code, ServerMessage{Type: MsgRoomUpdated, Room: &snap})
}

func (s *GameServer) handleRoomReady(c *Client, msg ClientMessage) {
	if c.roomCode == "" {
		s.Hub.Send(c, ServerMessage{Type: MsgRoomError, Error: "not in a room"})
		return
	}

	snap, err := s.Rooms.SetReady(c.roomCode, c.PlayerID, msg.IsReady)
	if err != nil {
		s.Hub.Send(c, ServerMessage{Type: MsgRoomError, Error: err.Error()})
		return
	}

	s.Hub.BroadcastRoom(snap.Code, ServerMessage{Type: MsgRoomUpdated, Room: &snap})

	// The registry never starts games; the adapter owns the trigger.
	if snap.Status == room.StatusWaiting && snap.IsFull() && snap.AllReady() {
		s.startGame(snap)
	}
}

// startGame spins a session out of a full, all-ready room: wins the
// waiting → playing transition, sources the pairs (bounded, with local
// fallback), seats the host first, and registers the broadcast fan-out.
func (s *GameServer) startGame(snap room.Snapshot) {
	// Ready events arrive on independent connection goroutines, so two of
	// them can both observe a full, all-ready waiting room. The registry's
	// compare-and-set decides the winner; the loser builds nothing.
	roomSnap, started, err := s.Rooms.StartPlaying(snap.Code)
	if err != nil || !started {
		return
	}

	cfg := snap.Settings.GameConfig()
	pairs := s.Content.Pairs(context.Background(), cfg.NumberOfPairs, cfg.DifficultyDistribution)

	seats := make([]game.Seat, 0, len(snap.Players))
	for _, p := range snap.Players {
		if p.IsHost {
			seats = append([]game.Seat{{ID: p.ID, Nickname: p.Nickname}}, seats...)
		} else {
			seats = append(seats, game.Seat{ID: p.ID, Nickname: p.Nickname})
		}
	}

	g := game.NewMatchGame(snap.Code, seats, cfg, pairs, s.Clock, s.Logger)
	if s.NoMatchDelay > 0 {
		g.NoMatchDelay = s.NoMatchDelay
	}
	g.BroadcastFn = s.gameBroadcastFunc(snap.Code)
	g.OnGameEnd = func(code string, result game.WinnersResult) {
		if roomSnap, err := s.Rooms.SetStatus(code, room.StatusFinished); err == nil {
			s.Hub.BroadcastRoom(code, ServerMessage{Type: MsgRoomUpdated, Room: &roomSnap})
		}
	}

	s.Games.Add(g)
	s.Hub.BroadcastRoom(snap.Code, ServerMessage{Type: MsgRoomUpdated, Room: &roomSnap})
	g.Start()
}

// gameBroadcastFunc adapts engine events into room-wide server messages.
// The engine calls it with the session lock held; the hub only touches its
// own state, so there is no path back into the engine.
func (s *GameServer) gameBroadcastFunc(code string) func(ev game.GameEvent) {
	return func(ev game.GameEvent) {
		s.Hub.BroadcastRoom(code, ServerMessage{
			Type:    string(ev.Type),
			Game:    ev.Game,
			Card:    ev.Card,
			Player:  ev.Player,
			Winners: ev.Winners,
			IsTie:   ev.IsTie,
		})
	}
}

func (s *GameServer) handleGameFlip(c *Client, msg ClientMessage) {
	g, ok := s.lookupGame(c, msg.GameID)
	if !ok {
		return
	}
	cardID, err := uuid.Parse(msg.CardID)
	if err != nil {
		s.Hub.Send(c, ServerMessage{Type: MsgGameError, Error: "invalid card id"})
		return
	}

	if _, err := g.FlipCard(c.PlayerID, cardID); err != nil {
		// Validation failures go to the acting connection only; the
		// session continues untouched.
		s.Hub.Send(c, ServerMessage{Type: MsgGameError, Error: err.Error()})
	}
	// Success broadcasts flow through the engine's BroadcastFn.
}

func (s *GameServer) handleGameForfeit(c *Client, msg ClientMessage) {
	g, ok := s.lookupGame(c, msg.GameID)
	if !ok {
		return
	}
	if err := g.Forfeit(c.PlayerID); err != nil {
		if errors.Is(err, game.ErrUnsupported) {
			s.Hub.Send(c, ServerMessage{Type: MsgGameError, Error: "forfeit is not supported yet"})
			return
		}
		s.Hub.Send(c, ServerMessage{Type: MsgGameError, Error: err.Error()})
	}
}

func (s *GameServer) lookupGame(c *Client, gameID string) (*game.MatchGame, bool) {
	id, err := uuid.Parse(gameID)
	if err != nil {
		s.Hub.Send(c, ServerMessage{Type: MsgGameError, Error: "invalid game id"})
		return nil, false
	}
	g, ok := s.Games.Get(id)
	if !ok {
		s.Hub.Send(c, ServerMessage{Type: MsgGameError, Error: game.ErrGameNotFound.Error()})
		return nil, false
	}
	return g, true
}
