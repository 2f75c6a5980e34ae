package game

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bugmatch/bugmatch/internal/models"
)

// Turn timers and the no-match visibility delay are both one-shot
// cancellable callbacks on the session's injected clock. Every mutating
// call bumps g.seq and replaces the armed timer, so at most one deferred
// action is ever live per session and a callback that lost the race
// re-acquires the lock, sees a newer generation, and does nothing.

// armTurnTimerLocked arms (or re-arms) the forced turn-switch deadline at
// CurrentTurnStartedAt + TurnTimeLimit. Session lock must be held.
func (g *MatchGame) armTurnTimerLocked() {
	if g.TurnTimeLimit <= 0 {
		return
	}
	g.stopTurnTimerLocked()

	deadline := g.CurrentTurnStartedAt.Add(g.TurnTimeLimit)
	d := deadline.Sub(g.clock.Now())
	if d < 0 {
		d = 0
	}

	armed := g.seq
	g.turnTimer = g.clock.AfterFunc(d, func() {
		g.handleTurnTimeout(armed)
	})
}

func (g *MatchGame) stopTurnTimerLocked() {
	if g.turnTimer != nil {
		g.turnTimer.Stop()
		g.turnTimer = nil
	}
}

func (g *MatchGame) stopResolveTimerLocked() {
	if g.resolveTimer != nil {
		g.resolveTimer.Stop()
		g.resolveTimer = nil
	}
}

// scheduleResolveLocked queues the no-match resolution after the visibility
// delay. Session lock must be held.
func (g *MatchGame) scheduleResolveLocked() {
	g.stopResolveTimerLocked()
	armed := g.seq
	g.resolveTimer = g.clock.AfterFunc(g.NoMatchDelay, func() {
		g.handleResolveDelay(armed)
	})
}

// handleResolveDelay runs when the visibility delay elapses. Stale
// generations (a manual resolution or a finished session got there first)
// are a guaranteed no-op.
func (g *MatchGame) handleResolveDelay(armed uint64) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.seq != armed || g.Status != models.GamePlaying {
		g.logger.WithFields(logrus.Fields{
			"game":  g.ID,
			"armed": armed,
			"seq":   g.seq,
		}).Debug("stale no-match resolution ignored")
		return
	}
	g.resolveNoMatchLocked()
}

// handleTurnTimeout forces a turn switch when the active player ran out of
// time. Equivalent in effect to a no-match resolution, attributable to
// elapsed time. Stale generations are a guaranteed no-op.
func (g *MatchGame) handleTurnTimeout(armed uint64) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.seq != armed || g.Status != models.GamePlaying {
		g.logger.WithFields(logrus.Fields{
			"game":  g.ID,
			"armed": armed,
			"seq":   g.seq,
		}).Debug("stale turn timer ignored")
		return
	}

	g.seq++
	timedOut := g.currentPlayerLocked().ID

	// A lone flipped card goes back face down before the turn moves on.
	if g.FirstFlipped != uuid.Nil {
		if c := g.findCardLocked(g.FirstFlipped); c != nil {
			c.IsFlipped = false
		}
		g.FirstFlipped = uuid.Nil
	}

	g.logger.WithFields(logrus.Fields{
		"game":   g.ID,
		"player": timedOut,
		"turn":   g.TurnNumber,
	}).Info("turn timed out, forcing switch")

	g.switchTurnLocked()
	g.fireEvent(GameEvent{Type: EventTimeUp, Game: g.snapshotLocked()})
}
