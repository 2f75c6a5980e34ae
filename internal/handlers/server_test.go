package handlers

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugmatch/bugmatch/internal/content"
	"github.com/bugmatch/bugmatch/internal/game"
	"github.com/bugmatch/bugmatch/internal/models"
	"github.com/bugmatch/bugmatch/internal/room"
)

// sink drains a client's outbox into a slice so broadcasts are never
// dropped while a test is asserting.
type sink struct {
	mu   sync.Mutex
	msgs []ServerMessage
}

func drain(c *Client) *sink {
	s := &sink{}
	go func() {
		for msg := range c.Out {
			s.mu.Lock()
			s.msgs = append(s.msgs, msg)
			s.mu.Unlock()
		}
	}()
	return s
}

func (s *sink) byType(tp string) []ServerMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ServerMessage
	for _, m := range s.msgs {
		if m.Type == tp {
			out = append(out, m)
		}
	}
	return out
}

// waitFor blocks until at least one message of the given type arrived and
// returns the most recent one.
func (s *sink) waitFor(t *testing.T, tp string) ServerMessage {
	t.Helper()
	var out ServerMessage
	require.Eventually(t, func() bool {
		ms := s.byType(tp)
		if len(ms) == 0 {
			return false
		}
		out = ms[len(ms)-1]
		return true
	}, time.Second, 5*time.Millisecond, "waiting for %s", tp)
	return out
}

func newTestServer(clock clockwork.Clock) *GameServer {
	return NewGameServer(content.NewSource(nil, nil), clock, nil)
}

// setupRoom creates a room for alice and joins bob, returning both clients,
// their sinks, and the room code.
func setupRoom(t *testing.T, srv *GameServer, settings *room.Settings) (*Client, *sink, *Client, *sink, string) {
	t.Helper()

	alice := NewClient(uuid.New())
	as := drain(alice)
	srv.HandleMessage(alice, ClientMessage{Type: MsgRoomCreate, Nickname: "alice", Settings: settings})
	created := as.waitFor(t, MsgRoomCreated)
	require.NotNil(t, created.Room)
	code := created.Room.Code

	bob := NewClient(uuid.New())
	bs := drain(bob)
	srv.HandleMessage(bob, ClientMessage{Type: MsgRoomJoin, RoomCode: code, Nickname: "bob"})
	full := bs.waitFor(t, MsgRoomFull)
	require.True(t, full.Room.IsFull())

	return alice, as, bob, bs, code
}

func TestFullMatchFlow(t *testing.T) {
	fc := clockwork.NewFakeClock()
	srv := newTestServer(fc)
	settings := &room.Settings{NumberOfPairs: 2, TurnTimerSec: 30}
	alice, as, bob, bs, code := setupRoom(t, srv, settings)

	srv.HandleMessage(alice, ClientMessage{Type: MsgRoomReady, IsReady: true})
	srv.HandleMessage(bob, ClientMessage{Type: MsgRoomReady, IsReady: true})

	// Both ready in a full room auto-starts the session for everyone.
	started := as.waitFor(t, string(game.EventGameStarted))
	bs.waitFor(t, string(game.EventGameStarted))
	require.NotNil(t, started.Game)
	assert.Len(t, started.Game.Cards, 4)
	assert.Equal(t, "alice", started.Game.Players[0].Nickname, "host goes first")
	assert.Equal(t, alice.PlayerID, started.Game.CurrentTurn)
	for _, c := range started.Game.Cards {
		assert.Empty(t, c.Content, "board starts fully face down")
	}

	g := srv.Games.GetByRoomCode(code)
	require.NotNil(t, g)
	gameID := g.ID.String()

	// Out-of-turn flips bounce back to the acting connection only.
	srv.HandleMessage(bob, ClientMessage{Type: MsgGameFlip, GameID: gameID, CardID: g.Cards[0].ID.String()})
	errMsg := bs.waitFor(t, MsgGameError)
	assert.Equal(t, game.ErrNotYourTurn.Error(), errMsg.Error)
	assert.Empty(t, as.byType(MsgGameError))

	// Alice clears the board, retaining the turn on every match.
	for i := 0; i < settings.NumberOfPairs; i++ {
		var bugID, solID uuid.UUID
		for _, c := range g.Cards {
			if c.Type == models.CardBug && !c.IsMatched {
				bugID, solID = c.ID, c.MatchingCardID
				break
			}
		}
		srv.HandleMessage(alice, ClientMessage{Type: MsgGameFlip, GameID: gameID, CardID: bugID.String()})
		srv.HandleMessage(alice, ClientMessage{Type: MsgGameFlip, GameID: gameID, CardID: solID.String()})
		require.Eventually(t, func() bool {
			return len(as.byType(string(game.EventMatch))) == i+1
		}, time.Second, 5*time.Millisecond)
	}

	over := bs.waitFor(t, string(game.EventGameOver))
	require.Len(t, over.Winners, 1)
	assert.Equal(t, alice.PlayerID, over.Winners[0].ID)
	assert.False(t, over.IsTie)
	// Two pairs spread easy+medium.
	assert.Equal(t, 10+20, over.Winners[0].Score)
	require.NotNil(t, over.Game.EndedAt)

	// The room follows the session into finished.
	require.Eventually(t, func() bool {
		for _, m := range as.byType(MsgRoomUpdated) {
			if m.Room != nil && m.Room.Status == room.StatusFinished {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	// The finished session rejects further play.
	srv.HandleMessage(alice, ClientMessage{Type: MsgGameFlip, GameID: gameID, CardID: g.Cards[0].ID.String()})
	errMsg = as.waitFor(t, MsgGameError)
	assert.Equal(t, game.ErrGameFinished.Error(), errMsg.Error)
}

func TestTurnTimeoutBroadcasts(t *testing.T) {
	fc := clockwork.NewFakeClock()
	srv := newTestServer(fc)
	alice, as, bob, _, _ := setupRoom(t, srv, &room.Settings{NumberOfPairs: 2, TurnTimerSec: 10})

	srv.HandleMessage(alice, ClientMessage{Type: MsgRoomReady, IsReady: true})
	srv.HandleMessage(bob, ClientMessage{Type: MsgRoomReady, IsReady: true})
	as.waitFor(t, string(game.EventGameStarted))

	fc.Advance(10 * time.Second)
	timeUp := as.waitFor(t, string(game.EventTimeUp))
	assert.Equal(t, bob.PlayerID, timeUp.Game.CurrentTurn, "deadline hands the turn over")
	assert.Equal(t, 1, timeUp.Game.TurnNumber)
}

func TestConcurrentReadyStartsOneSession(t *testing.T) {
	// A redundant re-ready from one player racing the other player's ready
	// means two goroutines can both observe a full, all-ready waiting
	// room. The registry's waiting → playing compare-and-set must let
	// exactly one of them build the session.
	for i := 0; i < 50; i++ {
		srv := newTestServer(clockwork.NewFakeClock())
		alice, as, bob, _, code := setupRoom(t, srv, &room.Settings{NumberOfPairs: 2, TurnTimerSec: 30})
		srv.HandleMessage(alice, ClientMessage{Type: MsgRoomReady, IsReady: true})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			srv.HandleMessage(bob, ClientMessage{Type: MsgRoomReady, IsReady: true})
		}()
		go func() {
			defer wg.Done()
			srv.HandleMessage(alice, ClientMessage{Type: MsgRoomReady, IsReady: true})
		}()
		wg.Wait()

		// Start is synchronous within the ready handler, so the store is
		// settled once both calls return.
		require.Equal(t, 1, srv.Games.CountByRoomCode(code), "iteration %d minted extra sessions", i)
		as.waitFor(t, string(game.EventGameStarted))

		r, ok := srv.Rooms.Get(code)
		require.True(t, ok)
		assert.Equal(t, room.StatusPlaying, r.Snapshot().Status)
	}
}

func TestJoinRejections(t *testing.T) {
	srv := newTestServer(clockwork.NewFakeClock())
	_, _, _, _, code := setupRoom(t, srv, nil)

	// Duplicate nickname.
	carol := NewClient(uuid.New())
	cs := drain(carol)
	srv.HandleMessage(carol, ClientMessage{Type: MsgRoomJoin, RoomCode: code, Nickname: "alice"})
	errMsg := cs.waitFor(t, MsgRoomError)
	assert.Equal(t, room.ErrRoomFull.Error(), errMsg.Error, "capacity checked before nickname")

	// Unknown room.
	dave := NewClient(uuid.New())
	ds := drain(dave)
	srv.HandleMessage(dave, ClientMessage{Type: MsgRoomJoin, RoomCode: "NOSUCH", Nickname: "dave"})
	errMsg = ds.waitFor(t, MsgRoomError)
	assert.Equal(t, room.ErrRoomNotFound.Error(), errMsg.Error)

	// Rejected joiners are not members.
	r, ok := srv.Rooms.Get(code)
	require.True(t, ok)
	assert.Len(t, r.Snapshot().Players, 2)
}

func TestLeaveAndDisconnect(t *testing.T) {
	fc := clockwork.NewFakeClock()
	srv := newTestServer(fc)
	alice, as, bob, _, code := setupRoom(t, srv, &room.Settings{NumberOfPairs: 2, TurnTimerSec: 30})

	srv.HandleMessage(alice, ClientMessage{Type: MsgRoomReady, IsReady: true})
	srv.HandleMessage(bob, ClientMessage{Type: MsgRoomReady, IsReady: true})
	as.waitFor(t, string(game.EventGameStarted))

	// A dropped connection runs the same leave path as an explicit leave.
	srv.Disconnect(bob)
	require.Eventually(t, func() bool {
		for _, m := range as.byType(MsgRoomUpdated) {
			if m.Room != nil && len(m.Room.Players) == 1 {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	// Last player out destroys the room and its session.
	srv.HandleMessage(alice, ClientMessage{Type: MsgRoomLeave})
	_, ok := srv.Rooms.Get(code)
	assert.False(t, ok)
	assert.Nil(t, srv.Games.GetByRoomCode(code))

	// The connection is free to open a fresh room afterwards.
	srv.HandleMessage(alice, ClientMessage{Type: MsgRoomCreate, Nickname: "alice"})
	created := as.waitFor(t, MsgRoomCreated)
	assert.NotEqual(t, code, created.Room.Code)
}

func TestCreateWhileInRoomRejected(t *testing.T) {
	srv := newTestServer(clockwork.NewFakeClock())
	alice, as, _, _, _ := setupRoom(t, srv, nil)

	srv.HandleMessage(alice, ClientMessage{Type: MsgRoomCreate, Nickname: "alice"})
	errMsg := as.waitFor(t, MsgRoomError)
	assert.Equal(t, "already in a room", errMsg.Error)
}

func TestFlipValidation(t *testing.T) {
	fc := clockwork.NewFakeClock()
	srv := newTestServer(fc)
	alice, as, bob, _, code := setupRoom(t, srv, &room.Settings{NumberOfPairs: 2, TurnTimerSec: 30})

	srv.HandleMessage(alice, ClientMessage{Type: MsgRoomReady, IsReady: true})
	srv.HandleMessage(bob, ClientMessage{Type: MsgRoomReady, IsReady: true})
	as.waitFor(t, string(game.EventGameStarted))
	g := srv.Games.GetByRoomCode(code)
	require.NotNil(t, g)

	srv.HandleMessage(alice, ClientMessage{Type: MsgGameFlip, GameID: "garbage", CardID: g.Cards[0].ID.String()})
	assert.Equal(t, "invalid game id", as.waitFor(t, MsgGameError).Error)

	srv.HandleMessage(alice, ClientMessage{Type: MsgGameFlip, GameID: uuid.NewString(), CardID: g.Cards[0].ID.String()})
	assert.Equal(t, game.ErrGameNotFound.Error(), as.waitFor(t, MsgGameError).Error)

	srv.HandleMessage(alice, ClientMessage{Type: MsgGameFlip, GameID: g.ID.String(), CardID: "garbage"})
	assert.Equal(t, "invalid card id", as.waitFor(t, MsgGameError).Error)

	srv.HandleMessage(alice, ClientMessage{Type: MsgGameFlip, GameID: g.ID.String(), CardID: uuid.NewString()})
	assert.Equal(t, game.ErrUnknownCard.Error(), as.waitFor(t, MsgGameError).Error)
}

func TestForfeitUnsupported(t *testing.T) {
	fc := clockwork.NewFakeClock()
	srv := newTestServer(fc)
	alice, as, bob, _, code := setupRoom(t, srv, &room.Settings{NumberOfPairs: 2, TurnTimerSec: 30})

	srv.HandleMessage(alice, ClientMessage{Type: MsgRoomReady, IsReady: true})
	srv.HandleMessage(bob, ClientMessage{Type: MsgRoomReady, IsReady: true})
	as.waitFor(t, string(game.EventGameStarted))
	g := srv.Games.GetByRoomCode(code)
	require.NotNil(t, g)

	srv.HandleMessage(alice, ClientMessage{Type: MsgGameForfeit, GameID: g.ID.String()})
	assert.Equal(t, "forfeit is not supported yet", as.waitFor(t, MsgGameError).Error)
}

func TestUnknownEventType(t *testing.T) {
	srv := newTestServer(clockwork.NewFakeClock())
	c := NewClient(uuid.New())
	s := drain(c)

	srv.HandleMessage(c, ClientMessage{Type: "nonsense"})
	assert.Equal(t, "unknown event type", s.waitFor(t, MsgRoomError).Error)
}
