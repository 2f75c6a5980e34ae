// Package game owns the authoritative state of one session: the card
// board, turn order, flip/match resolution, scoring, and termination. All
// mutation for one session is serialized through the session's mutex; timer
// and delayed-resolution callbacks re-enter through the same lock and are
// generation-guarded so a stale callback can never act on state it no
// longer describes.
package game

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/bugmatch/bugmatch/internal/content"
	"github.com/bugmatch/bugmatch/internal/models"
)

var (
	ErrGameNotFound       = errors.New("game not found")
	ErrGameFinished       = errors.New("game already finished")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrUnknownCard        = errors.New("unknown card")
	ErrCardAlreadyFlipped = errors.New("card already flipped")
	ErrCardAlreadyMatched = errors.New("card already matched")
	ErrFlipsPending       = errors.New("previous flips not yet resolved")
	ErrUnsupported        = errors.New("unsupported operation")
)

// FlipOutcome classifies a successful FlipCard call.
type FlipOutcome string

const (
	OutcomeFlip    FlipOutcome = "flip"    // first card of the turn revealed
	OutcomeMatch   FlipOutcome = "match"   // second card revealed, pair matched
	OutcomeNoMatch FlipOutcome = "noMatch" // second card revealed, no match
)

// DefaultNoMatchDelay is how long a mismatched pair stays visible before
// the scheduled resolution flips it back and switches turns.
const DefaultNoMatchDelay = 1500 * time.Millisecond

// Seat identifies one player entering a session, in turn order.
type Seat struct {
	ID       uuid.UUID
	Nickname string
}

// WinnersResult is the outcome of GetWinners.
type WinnersResult struct {
	Winners []models.PlayerGameState `json:"winners"`
	IsTie   bool                     `json:"isTie"`
}

// MatchGame holds the entire state for a single session in memory.
type MatchGame struct {
	ID       uuid.UUID
	RoomCode string

	Status  models.GameStatus
	Cards   []*models.Card
	Players []*models.PlayerGameState // fixed round-robin order, host first

	CurrentPlayerIndex   int
	TurnNumber           int
	FirstFlipped         uuid.UUID // uuid.Nil when no pending first flip
	SecondFlipped        uuid.UUID // set only while a no-match resolution is pending
	StartedAt            time.Time
	EndedAt              time.Time // zero until finished
	TurnTimeLimit        time.Duration
	CurrentTurnStartedAt time.Time
	NoMatchDelay         time.Duration

	Mu sync.Mutex

	clock clockwork.Clock

	// seq increments on every mutating call. Timer callbacks capture the
	// value current when they were armed and no-op if it has moved on.
	seq          uint64
	turnTimer    clockwork.Timer
	resolveTimer clockwork.Timer

	// BroadcastFn is used to send events to the session's room. If nil, no
	// broadcast is done. Called with the session lock held; implementations
	// must not call back into the engine.
	BroadcastFn func(ev GameEvent)

	// OnGameEnd is invoked once when the session finishes.
	OnGameEnd func(roomCode string, result WinnersResult)

	logger *logrus.Logger
}

// NewMatchGame mints cards for the given pairs, shuffles the board, and
// seats the players with the first-listed seat holding the turn. The
// session is not live until Start.
func NewMatchGame(roomCode string, seats []Seat, cfg models.GameConfig, pairs []content.Pair, clock clockwork.Clock, logger *logrus.Logger) *MatchGame {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logrus.New()
	}

	id, _ := uuid.NewV7()
	g := &MatchGame{
		ID:            id,
		RoomCode:      roomCode,
		Status:        models.GamePlaying,
		TurnTimeLimit: cfg.TurnTimeLimit,
		NoMatchDelay:  DefaultNoMatchDelay,
		clock:         clock,
		logger:        logger,
	}

	g.Cards = buildBoard(pairs)

	for i, seat := range seats {
		g.Players = append(g.Players, &models.PlayerGameState{
			ID:            seat.ID,
			Nickname:      seat.Nickname,
			IsCurrentTurn: i == 0,
		})
	}

	return g
}

// buildBoard mints two back-referenced cards per pair, assigns dense
// positions, and applies a Fisher–Yates shuffle.
func buildBoard(pairs []content.Pair) []*models.Card {
	cards := make([]*models.Card, 0, len(pairs)*2)
	for _, pr := range pairs {
		bugID := uuid.New()
		solID := uuid.New()
		cards = append(cards,
			&models.Card{
				ID:             bugID,
				Type:           models.CardBug,
				Content:        pr.Bug,
				Difficulty:     pr.Difficulty,
				MatchingCardID: solID,
			},
			&models.Card{
				ID:             solID,
				Type:           models.CardSolution,
				Content:        pr.Solution,
				Difficulty:     pr.Difficulty,
				MatchingCardID: bugID,
			},
		)
	}

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	r.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	for i, c := range cards {
		c.Position = i
	}
	return cards
}

// Start makes the session live: stamps the clocks, arms the first turn
// timer, and broadcasts game:started.
func (g *MatchGame) Start() {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	now := g.clock.Now()
	g.StartedAt = now
	g.CurrentTurnStartedAt = now
	g.armTurnTimerLocked()

	g.logger.WithFields(logrus.Fields{
		"game": g.ID,
		"room": g.RoomCode,
	}).Info("game started")

	g.fireEvent(GameEvent{Type: EventGameStarted, Game: g.snapshotLocked()})
}

// FlipCard validates and applies one flip for playerID. Rejections return a
// sentinel error and mutate nothing.
func (g *MatchGame) FlipCard(playerID, cardID uuid.UUID) (FlipOutcome, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.Status == models.GameFinished {
		return "", ErrGameFinished
	}
	if g.currentPlayerLocked().ID != playerID {
		return "", ErrNotYourTurn
	}
	if g.SecondFlipped != uuid.Nil {
		// A no-match pair is still on display awaiting resolution.
		return "", ErrFlipsPending
	}

	card := g.findCardLocked(cardID)
	if card == nil {
		return "", ErrUnknownCard
	}
	if card.IsMatched {
		return "", ErrCardAlreadyMatched
	}
	if card.IsFlipped {
		return "", ErrCardAlreadyFlipped
	}

	// Validation passed: commit.
	g.seq++
	card.IsFlipped = true
	actor := g.currentPlayerLocked()

	if g.FirstFlipped == uuid.Nil {
		g.FirstFlipped = card.ID
		// Same turn deadline still applies; re-arm against the new
		// generation so the previous callback goes stale.
		g.armTurnTimerLocked()
		g.fireEvent(GameEvent{
			Type:   EventCardFlipped,
			Game:   g.snapshotLocked(),
			Card:   revealedCopy(card),
			Player: copyPlayer(actor),
		})
		return OutcomeFlip, nil
	}

	first := g.findCardLocked(g.FirstFlipped)

	if first.MatchingCardID == card.ID {
		first.IsMatched = true
		card.IsMatched = true
		actor.Score += models.ScoreForDifficulty[card.Difficulty]
		actor.MatchesFound++
		g.FirstFlipped = uuid.Nil

		if g.allMatchedLocked() {
			g.fireEvent(GameEvent{
				Type:   EventMatch,
				Game:   g.snapshotLocked(),
				Card:   revealedCopy(card),
				Player: copyPlayer(actor),
			})
			g.finishLocked()
			return OutcomeMatch, nil
		}

		// Turn retained on match; only the turn clock resets.
		g.CurrentTurnStartedAt = g.clock.Now()
		g.armTurnTimerLocked()
		g.fireEvent(GameEvent{
			Type:   EventMatch,
			Game:   g.snapshotLocked(),
			Card:   revealedCopy(card),
			Player: copyPlayer(actor),
		})
		return OutcomeMatch, nil
	}

	// No match: leave both cards face up and hand resolution to the
	// scheduled callback. The turn timer is cancelled; the deferred
	// resolution now owns the turn transition.
	g.SecondFlipped = card.ID
	g.stopTurnTimerLocked()
	g.scheduleResolveLocked()
	g.fireEvent(GameEvent{
		Type:   EventNoMatch,
		Game:   g.snapshotLocked(),
		Card:   revealedCopy(card),
		Player: copyPlayer(actor),
	})
	return OutcomeNoMatch, nil
}

// ResolveNoMatch flips a pending mismatched pair back and switches turns.
// Safe to call when nothing is pending; that is a no-op. The scheduled
// visibility-delay callback lands here, but the call is also valid directly.
func (g *MatchGame) ResolveNoMatch() bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.resolveNoMatchLocked()
}

func (g *MatchGame) resolveNoMatchLocked() bool {
	if g.Status == models.GameFinished {
		return false
	}
	if g.FirstFlipped == uuid.Nil || g.SecondFlipped == uuid.Nil {
		return false
	}

	g.seq++
	g.stopResolveTimerLocked()

	for _, id := range []uuid.UUID{g.FirstFlipped, g.SecondFlipped} {
		if c := g.findCardLocked(id); c != nil {
			c.IsFlipped = false
		}
	}
	g.FirstFlipped = uuid.Nil
	g.SecondFlipped = uuid.Nil

	g.switchTurnLocked()
	g.fireEvent(GameEvent{Type: EventTurnChanged, Game: g.snapshotLocked()})
	return true
}

// GetWinners returns all players tied for the maximum score.
func (g *MatchGame) GetWinners() WinnersResult {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.winnersLocked()
}

func (g *MatchGame) winnersLocked() WinnersResult {
	max := 0
	for _, p := range g.Players {
		if p.Score > max {
			max = p.Score
		}
	}
	var res WinnersResult
	for _, p := range g.Players {
		if p.Score == max {
			res.Winners = append(res.Winners, *p)
		}
	}
	res.IsTie = len(res.Winners) > 1
	return res
}

// Forfeit is reserved for early termination; not part of core play yet.
func (g *MatchGame) Forfeit(playerID uuid.UUID) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.Status == models.GameFinished {
		return ErrGameFinished
	}
	if g.findPlayerLocked(playerID) == nil {
		return ErrNotYourTurn
	}
	g.logger.WithFields(logrus.Fields{
		"game":   g.ID,
		"player": playerID,
	}).Info("forfeit requested, not supported")
	return ErrUnsupported
}

// Snapshot returns a consistent copy of the session with face-down card
// content blanked.
func (g *MatchGame) Snapshot() *models.GameSnapshot {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.snapshotLocked()
}

// Seq exposes the mutation generation counter for tests.
func (g *MatchGame) Seq() uint64 {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.seq
}

// --- internal helpers; session lock held ---

func (g *MatchGame) currentPlayerLocked() *models.PlayerGameState {
	return g.Players[g.CurrentPlayerIndex]
}

func (g *MatchGame) findCardLocked(id uuid.UUID) *models.Card {
	for _, c := range g.Cards {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (g *MatchGame) findPlayerLocked(id uuid.UUID) *models.PlayerGameState {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *MatchGame) allMatchedLocked() bool {
	for _, c := range g.Cards {
		if !c.IsMatched {
			return false
		}
	}
	return true
}

// switchTurnLocked advances the round-robin, resets the turn clock, and
// re-arms the turn timer.
func (g *MatchGame) switchTurnLocked() {
	g.CurrentPlayerIndex = (g.CurrentPlayerIndex + 1) % len(g.Players)
	g.TurnNumber++
	g.CurrentTurnStartedAt = g.clock.Now()
	for i, p := range g.Players {
		p.IsCurrentTurn = i == g.CurrentPlayerIndex
	}
	g.armTurnTimerLocked()
}

// finishLocked seals the session. Terminal: stops every timer, stamps
// EndedAt, and notifies the room.
func (g *MatchGame) finishLocked() {
	g.seq++
	g.Status = models.GameFinished
	g.EndedAt = g.clock.Now()
	g.stopTurnTimerLocked()
	g.stopResolveTimerLocked()

	result := g.winnersLocked()

	g.logger.WithFields(logrus.Fields{
		"game": g.ID,
		"room": g.RoomCode,
	}).Info("game over")

	g.fireEvent(GameEvent{
		Type:    EventGameOver,
		Game:    g.snapshotLocked(),
		Winners: result.Winners,
		IsTie:   result.IsTie,
	})

	if g.OnGameEnd != nil {
		g.OnGameEnd(g.RoomCode, result)
	}
}

func (g *MatchGame) fireEvent(ev GameEvent) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	}
}

func (g *MatchGame) snapshotLocked() *models.GameSnapshot {
	snap := &models.GameSnapshot{
		GameID:               g.ID,
		RoomCode:             g.RoomCode,
		Status:               g.Status,
		CurrentTurn:          g.currentPlayerLocked().ID,
		TurnNumber:           g.TurnNumber,
		StartedAt:            g.StartedAt,
		TurnTimeLimitSec:     int(g.TurnTimeLimit / time.Second),
		CurrentTurnStartedAt: g.CurrentTurnStartedAt,
	}
	if !g.EndedAt.IsZero() {
		ended := g.EndedAt
		snap.EndedAt = &ended
	}
	snap.Cards = make([]models.Card, len(g.Cards))
	for i, c := range g.Cards {
		cc := *c
		if !cc.IsFlipped && !cc.IsMatched {
			cc.Content = ""
		}
		// Pairing is only revealed once a pair has been claimed, otherwise
		// the client could solve the board without flipping anything.
		if !cc.IsMatched {
			cc.MatchingCardID = uuid.Nil
		}
		snap.Cards[i] = cc
	}
	snap.Players = make([]models.PlayerGameState, len(g.Players))
	for i, p := range g.Players {
		snap.Players[i] = *p
	}
	return snap
}

func revealedCopy(c *models.Card) *models.Card {
	cc := *c
	if !cc.IsMatched {
		cc.MatchingCardID = uuid.Nil
	}
	return &cc
}

func copyPlayer(p *models.PlayerGameState) *models.PlayerGameState {
	pp := *p
	return &pp
}
