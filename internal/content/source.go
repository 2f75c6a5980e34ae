package content

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bugmatch/bugmatch/internal/models"
)

// DefaultTimeout bounds the provider call during game creation. Sourcing is
// the only potentially slow external call on the game-start path.
const DefaultTimeout = 3 * time.Second

// Source wraps a Provider with the fallback contract: Pairs always returns
// exactly the requested number of pairs, tiered per the requested
// distribution, regardless of provider behavior.
type Source struct {
	Provider Provider
	Timeout  time.Duration
	Logger   *logrus.Logger
}

// NewSource builds a Source. A nil provider means fallback-only operation.
func NewSource(p Provider, logger *logrus.Logger) *Source {
	if logger == nil {
		logger = logrus.New()
	}
	return &Source{Provider: p, Timeout: DefaultTimeout, Logger: logger}
}

// Pairs returns exactly count pairs with difficulties stamped per dist.
// Provider errors are recovered locally and never propagate to the caller.
func (s *Source) Pairs(ctx context.Context, count int, dist map[models.Difficulty]int) []Pair {
	pairs := s.fetch(ctx, count)
	stampDifficulties(pairs, count, dist)
	return pairs
}

func (s *Source) fetch(ctx context.Context, count int) []Pair {
	if s.Provider == nil {
		return FallbackPairs(count)
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pairs, err := s.Provider.GeneratePairs(ctx, count)
	if err != nil {
		s.Logger.WithError(err).Warn("content provider failed, using built-in pair set")
		return FallbackPairs(count)
	}
	return pairs
}

// stampDifficulties overwrites pair tiers so the board matches the
// requested distribution. Tiers beyond the distribution's total fill with
// easy; a distribution totaling more than count is truncated in
// easy/medium/hard order.
func stampDifficulties(pairs []Pair, count int, dist map[models.Difficulty]int) {
	if dist == nil {
		return
	}
	tiers := make([]models.Difficulty, 0, count)
	for _, d := range []models.Difficulty{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard} {
		for i := 0; i < dist[d] && len(tiers) < count; i++ {
			tiers = append(tiers, d)
		}
	}
	for len(tiers) < count {
		tiers = append(tiers, models.DifficultyEasy)
	}
	for i := range pairs {
		pairs[i].Difficulty = tiers[i]
	}
}
