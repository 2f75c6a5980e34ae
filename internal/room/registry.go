package room

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrNicknameTaken      = errors.New("nickname already taken in this room")
	ErrCodeSpaceExhausted = errors.New("room code space exhausted")
)

// Registry owns the live room set, keyed by code. Its own mutex guards only
// the code map; each room's mutex serializes that room's membership, so
// rooms mutate independently of each other.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	logger *logrus.Logger
	now    func() time.Time
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	return &Registry{
		rooms:  make(map[string]*Room),
		logger: logger,
		now:    time.Now,
	}
}

// CreateRoom allocates a collision-free code and inserts the host as the
// room's first, unready member.
func (reg *Registry) CreateRoom(hostID uuid.UUID, nickname string, settings Settings) (Snapshot, error) {
	settings = settings.Normalize()

	reg.mu.Lock()
	defer reg.mu.Unlock()

	code := ""
	for i := 0; i < maxCodeAttempts; i++ {
		candidate := randomCode()
		if _, taken := reg.rooms[candidate]; !taken {
			code = candidate
			break
		}
	}
	if code == "" {
		return Snapshot{}, ErrCodeSpaceExhausted
	}

	r := &Room{
		Code:       code,
		HostID:     hostID,
		Players:    make(map[uuid.UUID]*Player),
		Status:     StatusWaiting,
		MaxPlayers: MaxPlayers,
		Settings:   settings,
	}
	r.Players[hostID] = &Player{
		ID:       hostID,
		Nickname: nickname,
		IsHost:   true,
		JoinedAt: reg.now(),
	}
	reg.rooms[code] = r

	reg.logger.WithFields(logrus.Fields{
		"code": code,
		"host": hostID,
	}).Info("room created")

	return r.snapshotLocked(), nil
}

// Get returns a live room by code.
func (reg *Registry) Get(code string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[code]
	return r, ok
}

// JoinRoom adds a non-host player. Rejections leave the room untouched.
func (reg *Registry) JoinRoom(code string, playerID uuid.UUID, nickname string) (Snapshot, error) {
	r, ok := reg.Get(code)
	if !ok {
		return Snapshot{}, ErrRoomNotFound
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.closed {
		return Snapshot{}, ErrRoomNotFound
	}
	if len(r.Players) >= r.MaxPlayers {
		return Snapshot{}, ErrRoomFull
	}
	for _, p := range r.Players {
		if p.Nickname == nickname {
			return Snapshot{}, ErrNicknameTaken
		}
	}

	r.Players[playerID] = &Player{
		ID:       playerID,
		Nickname: nickname,
		JoinedAt: reg.now(),
	}

	reg.logger.WithFields(logrus.Fields{
		"code":   code,
		"player": playerID,
	}).Info("player joined room")

	return r.snapshotLocked(), nil
}

// LeaveRoom removes the player. The last player out deletes the room; a
// departing host hands the room to the longest-seated remaining player.
// deleted reports whether the room was destroyed.
func (reg *Registry) LeaveRoom(code string, playerID uuid.UUID) (Snapshot, bool, error) {
	r, ok := reg.Get(code)
	if !ok {
		return Snapshot{}, false, ErrRoomNotFound
	}

	r.Mu.Lock()
	leaving, present := r.Players[playerID]
	if !present {
		snap := r.snapshotLocked()
		r.Mu.Unlock()
		return snap, false, nil
	}
	delete(r.Players, playerID)

	if len(r.Players) == 0 {
		r.closed = true
		snap := r.snapshotLocked()
		r.Mu.Unlock()

		reg.mu.Lock()
		delete(reg.rooms, code)
		reg.mu.Unlock()

		reg.logger.WithField("code", code).Info("room deleted, last player left")
		return snap, true, nil
	}

	if leaving.IsHost {
		next := oldestPlayerLocked(r)
		next.IsHost = true
		r.HostID = next.ID
		reg.logger.WithFields(logrus.Fields{
			"code":     code,
			"new_host": next.ID,
		}).Info("host reassigned")
	}

	snap := r.snapshotLocked()
	r.Mu.Unlock()

	reg.logger.WithFields(logrus.Fields{
		"code":   code,
		"player": playerID,
	}).Info("player left room")

	return snap, false, nil
}

// SetReady flips one player's ready state. The registry never starts games;
// the protocol adapter watches snapshots for the full-and-all-ready
// condition.
func (reg *Registry) SetReady(code string, playerID uuid.UUID, ready bool) (Snapshot, error) {
	r, ok := reg.Get(code)
	if !ok {
		return Snapshot{}, ErrRoomNotFound
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.closed {
		return Snapshot{}, ErrRoomNotFound
	}
	p, present := r.Players[playerID]
	if !present {
		return Snapshot{}, ErrRoomNotFound
	}
	p.IsReady = ready
	return r.snapshotLocked(), nil
}

// StartPlaying is the compare-and-set waiting → playing transition. Under
// the room lock at most one caller wins it; started reports whether this
// call was the winner. Concurrent start triggers resolve here, not in the
// adapter.
func (reg *Registry) StartPlaying(code string) (Snapshot, bool, error) {
	r, ok := reg.Get(code)
	if !ok {
		return Snapshot{}, false, ErrRoomNotFound
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.closed {
		return Snapshot{}, false, ErrRoomNotFound
	}
	if r.Status != StatusWaiting {
		return r.snapshotLocked(), false, nil
	}
	r.Status = StatusPlaying

	reg.logger.WithField("code", code).Info("room playing")
	return r.snapshotLocked(), true, nil
}

// SetStatus transitions the room's coarse lifecycle state (waiting →
// playing → finished) as sessions start and end.
func (reg *Registry) SetStatus(code string, status Status) (Snapshot, error) {
	r, ok := reg.Get(code)
	if !ok {
		return Snapshot{}, ErrRoomNotFound
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.Status = status
	if status == StatusWaiting {
		for _, p := range r.Players {
			p.IsReady = false
		}
	}
	return r.snapshotLocked(), nil
}

// oldestPlayerLocked picks the deterministic host successor: lowest join
// time, ties broken by id. Room lock must be held and the room non-empty.
func oldestPlayerLocked(r *Room) *Player {
	var oldest *Player
	for _, p := range r.Players {
		if oldest == nil {
			oldest = p
			continue
		}
		if p.JoinedAt.Before(oldest.JoinedAt) ||
			(p.JoinedAt.Equal(oldest.JoinedAt) && p.ID.String() < oldest.ID.String()) {
			oldest = p
		}
	}
	return oldest
}
