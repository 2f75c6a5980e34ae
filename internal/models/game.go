package models

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus is the lifecycle state of a session. A finished session is
// terminal; no further mutation is permitted.
type GameStatus string

const (
	GamePlaying  GameStatus = "playing"
	GameFinished GameStatus = "finished"
)

// PlayerGameState is the session-scoped view of one player. Exactly one
// player has IsCurrentTurn=true while the session is playing.
type PlayerGameState struct {
	ID            uuid.UUID `json:"id"`
	Nickname      string    `json:"nickname"`
	Score         int       `json:"score"`
	MatchesFound  int       `json:"matchesFound"`
	IsCurrentTurn bool      `json:"isCurrentTurn"`
}

// GameConfig carries the knobs a session is created with.
type GameConfig struct {
	NumberOfPairs int
	TurnTimeLimit time.Duration

	// DifficultyDistribution maps each tier to how many pairs of that tier
	// the board should hold. Counts are normalized against NumberOfPairs at
	// creation time.
	DifficultyDistribution map[Difficulty]int
}

// DefaultGameConfig returns the standard two-player board: six pairs split
// evenly across tiers, 30 seconds per turn.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		NumberOfPairs: 6,
		TurnTimeLimit: 30 * time.Second,
		DifficultyDistribution: map[Difficulty]int{
			DifficultyEasy:   2,
			DifficultyMedium: 2,
			DifficultyHard:   2,
		},
	}
}

// GameSnapshot is the full authoritative session state included in every
// game-scoped broadcast. Consumers treat it as replacement state, never as
// an incremental patch. Content of face-down cards is blanked before the
// snapshot leaves the engine.
type GameSnapshot struct {
	GameID               uuid.UUID         `json:"gameId"`
	RoomCode             string            `json:"roomCode"`
	Status               GameStatus        `json:"status"`
	Cards                []Card            `json:"cards"`
	Players              []PlayerGameState `json:"players"`
	CurrentTurn          uuid.UUID         `json:"currentTurn"`
	TurnNumber           int               `json:"turnNumber"`
	StartedAt            time.Time         `json:"startedAt"`
	EndedAt              *time.Time        `json:"endedAt,omitempty"`
	TurnTimeLimitSec     int               `json:"turnTimeLimitSec"`
	CurrentTurnStartedAt time.Time         `json:"currentTurnStartedAt"`
}
