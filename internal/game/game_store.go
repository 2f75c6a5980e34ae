package game

import (
	"sync"

	"github.com/google/uuid"
)

// Store manages live sessions in memory, keyed by game id. Sessions carry
// their own locks; the store's mutex only guards the map.
type Store struct {
	mu    sync.Mutex
	games map[uuid.UUID]*MatchGame
}

// NewStore returns an in-memory session store.
func NewStore() *Store {
	return &Store{
		games: make(map[uuid.UUID]*MatchGame),
	}
}

// Add registers a session.
func (s *Store) Add(g *MatchGame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = g
}

// Get retrieves a session if it exists.
func (s *Store) Get(id uuid.UUID) (*MatchGame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	return g, ok
}

// Delete removes a session from memory.
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
}

// CountByRoomCode reports how many live sessions claim the given room.
func (s *Store) CountByRoomCode(code string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, g := range s.games {
		if g.RoomCode == code {
			n++
		}
	}
	return n
}

// GetByRoomCode returns the session spawned from the given room, or nil.
func (s *Store) GetByRoomCode(code string) *MatchGame {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.games {
		if g.RoomCode == code {
			return g
		}
	}
	return nil
}
