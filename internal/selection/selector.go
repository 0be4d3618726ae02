package selection

import (
	"fmt"
	"math"
	"sort"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// Selector ranks momentum scores and keeps the top N
// ⭐ SSOT: 랭킹/상위 N 선정 로직은 여기서만
type Selector struct {
	logger *logger.Logger
}

// NewSelector creates a new selector
func NewSelector(log *logger.Logger) *Selector {
	return &Selector{
		logger: log.WithModule("selector"),
	}
}

// Select sorts scores by composite (descending) and returns up to topN entries.
// Input order is the tiebreak. Non-finite composites are skipped.
// No usable score is ErrNoScores; topN beyond the available count returns all.
func (s *Selector) Select(scores []contracts.MomentumScore, topN int) (contracts.RankedSelection, error) {
	ranked := make([]contracts.MomentumScore, 0, len(scores))
	for _, score := range scores {
		if math.IsNaN(score.Composite) || math.IsInf(score.Composite, 0) {
			s.logger.WithField("ticker", score.Ticker).Warn("Skipping non-finite composite score")
			continue
		}
		ranked = append(ranked, score)
	}

	if len(ranked) == 0 {
		return nil, contracts.NewError(contracts.KindNoScores, contracts.StageSelect,
			fmt.Sprintf("no scores to rank (%d inputs)", len(scores)), nil)
	}

	// Sort by composite score (descending), stable for ties
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Composite > ranked[j].Composite
	})

	if topN < 1 || topN > len(ranked) {
		topN = len(ranked)
	}

	selection := make(contracts.RankedSelection, topN)
	for i := 0; i < topN; i++ {
		selection[i] = contracts.RankedEntry{
			Rank:   i + 1,
			Ticker: ranked[i].Ticker,
			Score:  ranked[i].Composite,
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"candidates": len(ranked),
		"selected":   topN,
		"top_ticker": selection[0].Ticker,
		"top_score":  selection[0].Score,
	}).Debug("Ranking completed")

	return selection, nil
}
