package models

import "github.com/google/uuid"

// CardType distinguishes the two halves of a pair. Every bug card has
// exactly one solution card pointing back at it and vice versa.
type CardType string

const (
	CardBug      CardType = "bug"
	CardSolution CardType = "solution"
)

// Difficulty is the tier assigned to a pair. Both cards of a pair always
// share the same tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ScoreForDifficulty is the flat score credited for matching a pair of the
// given tier.
var ScoreForDifficulty = map[Difficulty]int{
	DifficultyEasy:   10,
	DifficultyMedium: 20,
	DifficultyHard:   30,
}

// Card is one face of a bug/solution pair on the board. Position is the
// card's slot on the board after shuffling; positions form a dense
// permutation of [0, N).
type Card struct {
	ID             uuid.UUID  `json:"id"`
	Type           CardType   `json:"type"`
	Content        string     `json:"content,omitempty"`
	Difficulty     Difficulty `json:"difficulty"`
	IsFlipped      bool       `json:"isFlipped"`
	IsMatched      bool       `json:"isMatched"`
	MatchingCardID uuid.UUID  `json:"matchingCardId"`
	Position       int        `json:"position"`
}
