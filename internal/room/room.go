// Package room owns the lobby side of the server: room records, membership,
// ready state, and host reassignment. Rooms are ephemeral and in-memory
// only; the registry is the sole owner of Room and Player records and all
// cross-component lookups go through a room code.
package room

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bugmatch/bugmatch/internal/models"
)

// Status is the lifecycle state of a room.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// MaxPlayers is fixed: bugmatch is strictly head-to-head.
const MaxPlayers = 2

// Settings are the host-chosen knobs carried into game creation.
type Settings struct {
	NumberOfPairs int `json:"numberOfPairs"`
	TurnTimerSec  int `json:"turnTimerSec"`
}

// DefaultSettings mirrors models.DefaultGameConfig.
func DefaultSettings() Settings {
	return Settings{NumberOfPairs: 6, TurnTimerSec: 30}
}

// Normalize clamps nonsense values back to defaults.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if s.NumberOfPairs <= 0 {
		s.NumberOfPairs = def.NumberOfPairs
	}
	if s.TurnTimerSec <= 0 {
		s.TurnTimerSec = def.TurnTimerSec
	}
	return s
}

// GameConfig converts the room settings into an engine config.
func (s Settings) GameConfig() models.GameConfig {
	cfg := models.DefaultGameConfig()
	cfg.NumberOfPairs = s.NumberOfPairs
	cfg.TurnTimeLimit = time.Duration(s.TurnTimerSec) * time.Second

	// Spread pairs evenly across tiers, remainder to the easier tiers.
	per := s.NumberOfPairs / 3
	rem := s.NumberOfPairs % 3
	cfg.DifficultyDistribution = map[models.Difficulty]int{
		models.DifficultyEasy:   per,
		models.DifficultyMedium: per,
		models.DifficultyHard:   per,
	}
	if rem > 0 {
		cfg.DifficultyDistribution[models.DifficultyEasy]++
	}
	if rem > 1 {
		cfg.DifficultyDistribution[models.DifficultyMedium]++
	}
	return cfg
}

// Player is the room-scoped record for one connected player.
type Player struct {
	ID       uuid.UUID `json:"id"`
	Nickname string    `json:"nickname"`
	IsReady  bool      `json:"isReady"`
	IsHost   bool      `json:"isHost"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Room is a lobby pairing up to two connections before a session starts.
// Mu serializes all membership mutation for this room; the registry only
// holds its own lock for code-map bookkeeping.
type Room struct {
	Code       string
	HostID     uuid.UUID
	Players    map[uuid.UUID]*Player
	Status     Status
	MaxPlayers int
	Settings   Settings

	Mu sync.Mutex

	// closed marks a room that emptied out and is being removed from the
	// registry; joins racing the removal treat it as not found.
	closed bool
}

// Snapshot is the full authoritative room state included in every
// room-scoped broadcast. Players are ordered by join time so clients never
// depend on map iteration order.
type Snapshot struct {
	Code       string    `json:"code"`
	HostID     uuid.UUID `json:"hostId"`
	Players    []Player  `json:"players"`
	Status     Status    `json:"status"`
	MaxPlayers int       `json:"maxPlayers"`
	Settings   Settings  `json:"settings"`
}

// snapshotLocked copies the room into a Snapshot. Mu must be held.
func (r *Room) snapshotLocked() Snapshot {
	players := make([]Player, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, *p)
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].ID.String() < players[j].ID.String()
		}
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})
	return Snapshot{
		Code:       r.Code,
		HostID:     r.HostID,
		Players:    players,
		Status:     r.Status,
		MaxPlayers: r.MaxPlayers,
		Settings:   r.Settings,
	}
}

// Snapshot returns a consistent copy of the room.
func (r *Room) Snapshot() Snapshot {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.snapshotLocked()
}

// IsFull reports whether the room is at capacity.
func (s Snapshot) IsFull() bool {
	return len(s.Players) >= s.MaxPlayers
}

// AllReady reports whether every current member has readied up.
func (s Snapshot) AllReady() bool {
	if len(s.Players) == 0 {
		return false
	}
	for _, p := range s.Players {
		if !p.IsReady {
			return false
		}
	}
	return true
}
