package content

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugmatch/bugmatch/internal/models"
)

func TestFallbackPairsExactCount(t *testing.T) {
	for _, count := range []int{1, 6, len(builtinPairs), len(builtinPairs) + 5} {
		pairs := FallbackPairs(count)
		require.Len(t, pairs, count, "count %d", count)
		for _, p := range pairs {
			assert.NotEmpty(t, p.Bug)
			assert.NotEmpty(t, p.Solution)
		}
	}
}

type failingProvider struct{}

func (failingProvider) GeneratePairs(ctx context.Context, count int) ([]Pair, error) {
	return nil, errors.New("upstream down")
}

func TestSourceFallsBackOnProviderError(t *testing.T) {
	src := NewSource(failingProvider{}, nil)
	dist := map[models.Difficulty]int{
		models.DifficultyEasy:   2,
		models.DifficultyMedium: 2,
		models.DifficultyHard:   2,
	}

	pairs := src.Pairs(context.Background(), 6, dist)
	require.Len(t, pairs, 6)

	got := map[models.Difficulty]int{}
	for _, p := range pairs {
		got[p.Difficulty]++
	}
	assert.Equal(t, dist, got, "fallback pairs carry the requested tiers")
}

func TestSourceNilProviderUsesBuiltins(t *testing.T) {
	src := NewSource(nil, nil)
	pairs := src.Pairs(context.Background(), 4, nil)
	require.Len(t, pairs, 4)
}

func TestStampDifficultiesPadsAndTruncates(t *testing.T) {
	pairs := FallbackPairs(5)
	// Distribution covers only 3 of 5 pairs; the rest fill with easy.
	stampDifficulties(pairs, 5, map[models.Difficulty]int{
		models.DifficultyHard:   2,
		models.DifficultyMedium: 1,
	})
	got := map[models.Difficulty]int{}
	for _, p := range pairs {
		got[p.Difficulty]++
	}
	assert.Equal(t, 2, got[models.DifficultyEasy])
	assert.Equal(t, 1, got[models.DifficultyMedium])
	assert.Equal(t, 2, got[models.DifficultyHard])

	// Distribution totaling more than count truncates in tier order.
	pairs = FallbackPairs(2)
	stampDifficulties(pairs, 2, map[models.Difficulty]int{
		models.DifficultyEasy:   2,
		models.DifficultyMedium: 2,
	})
	for _, p := range pairs {
		assert.Equal(t, models.DifficultyEasy, p.Difficulty)
	}
}

func TestHTTPProviderSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pairs":[
			{"bug":"b1","solution":"s1","difficulty":"easy"},
			{"bug":"b2","solution":"s2","difficulty":"hard"}
		]}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL)
	pairs, err := p.GeneratePairs(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "b1", pairs[0].Bug)
	assert.Equal(t, models.DifficultyHard, pairs[1].Difficulty)
}

func TestHTTPProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"pairs": not json`))
			},
		},
		{
			name: "too few pairs",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"pairs":[{"bug":"b","solution":"s","difficulty":"easy"}]}`))
			},
		},
		{
			name: "empty pair text",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"pairs":[
					{"bug":"b","solution":"s","difficulty":"easy"},
					{"bug":"","solution":"s","difficulty":"easy"}
				]}`))
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			p := NewHTTPProvider(srv.URL)
			_, err := p.GeneratePairs(context.Background(), 2)
			assert.Error(t, err)
		})
	}
}
