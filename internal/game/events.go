package game

import "github.com/bugmatch/bugmatch/internal/models"

// GameEventType is an enum-like type for broadcasting game actions.
type GameEventType string

const (
	EventGameStarted GameEventType = "game:started"
	EventCardFlipped GameEventType = "game:cardFlipped"
	EventMatch       GameEventType = "game:match"
	EventNoMatch     GameEventType = "game:noMatch"
	EventTurnChanged GameEventType = "game:turnChanged"
	EventTimeUp      GameEventType = "game:timeUp"
	EventGameOver    GameEventType = "game:over"
)

// GameEvent holds data about an event broadcast to the session's room.
// Every event carries the full session snapshot; the extra fields call out
// what changed so clients can animate without diffing.
type GameEvent struct {
	Type GameEventType        `json:"type"`
	Game *models.GameSnapshot `json:"game"`

	// Card is the card acted on, revealed, for cardFlipped and match events.
	Card *models.Card `json:"card,omitempty"`

	// Player is the acting player's state after the event.
	Player *models.PlayerGameState `json:"player,omitempty"`

	Winners []models.PlayerGameState `json:"winners,omitempty"`
	IsTie   bool                     `json:"isTie,omitempty"`
}
