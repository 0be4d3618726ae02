package selection

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

func score(ticker string, composite float64) contracts.MomentumScore {
	return contracts.MomentumScore{Ticker: ticker, Composite: composite}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name   string
		scores []contracts.MomentumScore
		topN   int
		want   []string
	}{
		{
			name:   "descending top 2",
			scores: []contracts.MomentumScore{score("A", 0.1), score("B", 0.3), score("C", 0.2)},
			topN:   2,
			want:   []string{"B", "C"},
		},
		{
			name:   "ties keep input order",
			scores: []contracts.MomentumScore{score("X", 0.5), score("Y", 0.7), score("Z", 0.5), score("W", 0.5)},
			topN:   4,
			want:   []string{"Y", "X", "Z", "W"},
		},
		{
			name:   "topN larger than available",
			scores: []contracts.MomentumScore{score("A", 0.1), score("B", 0.2)},
			topN:   10,
			want:   []string{"B", "A"},
		},
		{
			name:   "non-finite skipped",
			scores: []contracts.MomentumScore{score("A", math.NaN()), score("B", 0.2), score("C", math.Inf(1))},
			topN:   3,
			want:   []string{"B"},
		},
		{
			name:   "negative scores",
			scores: []contracts.MomentumScore{score("A", -0.5), score("B", -0.1)},
			topN:   1,
			want:   []string{"B"},
		},
	}

	s := NewSelector(logger.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := s.Select(tt.scores, tt.topN)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sel.Tickers())
			for i, e := range sel {
				assert.Equal(t, i+1, e.Rank)
			}
		})
	}
}

func TestSelectEmpty(t *testing.T) {
	s := NewSelector(logger.Nop())

	_, err := s.Select(nil, 3)
	assert.True(t, errors.Is(err, contracts.ErrNoScores))

	_, err = s.Select([]contracts.MomentumScore{score("A", math.NaN())}, 3)
	assert.True(t, errors.Is(err, contracts.ErrNoScores))
}

func TestSelectIsSortedAndStable(t *testing.T) {
	s := NewSelector(logger.Nop())
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		n := 1 + rng.Intn(30)
		scores := make([]contracts.MomentumScore, n)
		position := map[string]int{}
		for i := range scores {
			ticker := string(rune('A'+i%26)) + string(rune('a'+i/26))
			// few distinct values to force ties
			scores[i] = score(ticker, float64(rng.Intn(4))/10)
			position[ticker] = i
		}

		sel, err := s.Select(scores, n)
		require.NoError(t, err)
		require.Len(t, sel, n)

		for i := 1; i < len(sel); i++ {
			require.GreaterOrEqual(t, sel[i-1].Score, sel[i].Score)
			if sel[i-1].Score == sel[i].Score {
				require.Less(t, position[sel[i-1].Ticker], position[sel[i].Ticker])
			}
		}
	}
}
