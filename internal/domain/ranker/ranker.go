// Package ranker implements spec §4.G: the weighted composite score and
// greedy non-overlap top-K selection. Grounded on
// original_source/backend/app/services/rank_text.py's HybridRanker
// .score_window/rank_windows for the weighted-sum-then-sort shape, and
// on the teacher's openrouter.go isDistinct/isDistinctCandidate overlap
// rejection helpers for the non-overlap test.
package ranker

import (
	"math"
	"sort"
	"time"

	"github.com/forPelevin/clipcut/internal/config"
	"github.com/forPelevin/clipcut/internal/types"
)

// Score computes the pre-clamp, then clamped-to-[0,1] final score for a
// single window's features and grade, per spec §4.G's formula.
func Score(features types.TextFeatures, grade types.LLMGrade, weights config.RankWeights) float64 {
	quoteBonus := math.Min(1.0, float64(len(grade.Quotes))/3.0)
	cogencyNorm := float64(grade.Cogency) / 5.0

	raw := weights.Coverage*features.CoverageScore +
		weights.Density*features.DensityScore +
		weights.Cogency*cogencyNorm +
		weights.QuoteBonus*quoteBonus -
		weights.SceneCutPenalty*features.SceneCutPenalty -
		weights.FillerPenalty*features.FillerRatio

	return clamp01(raw)
}

// Rank scores every window (excluding sentinel grades), then greedily
// selects up to k non-overlapping clips in descending score order, with
// tie-breaks on cogency, coverage, and start time (spec §4.G).
func Rank(windows []types.Window, features []types.TextFeatures, grades []types.LLMGrade, weights config.RankWeights, k int) []types.RankedClip {
	n := len(windows)
	candidates := make([]types.RankedClip, 0, n)
	for i := 0; i < n; i++ {
		if grades[i].Sentinel() {
			continue
		}
		candidates = append(candidates, types.RankedClip{
			Window:     windows[i],
			Features:   features[i],
			Grade:      grades[i],
			FinalScore: Score(features[i], grades[i], weights),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.FinalScore != b.FinalScore {
			return a.FinalScore > b.FinalScore
		}
		if a.Grade.Cogency != b.Grade.Cogency {
			return a.Grade.Cogency > b.Grade.Cogency
		}
		if a.Features.CoverageScore != b.Features.CoverageScore {
			return a.Features.CoverageScore > b.Features.CoverageScore
		}
		return a.Window.Start < b.Window.Start
	})

	if k <= 0 {
		return nil
	}

	selected := make([]types.RankedClip, 0, k)
	for _, c := range candidates {
		if len(selected) >= k {
			break
		}
		if overlapsTooMuch(c.Window, selected) {
			continue
		}
		selected = append(selected, c)
	}
	return selected
}

// overlapsTooMuch reports whether w overlaps any already-selected clip
// by more than 10% of the shorter interval's length (spec §4.G/§8
// invariant 2).
func overlapsTooMuch(w types.Window, selected []types.RankedClip) bool {
	for _, s := range selected {
		overlap := intervalOverlap(w.Start, w.End, s.Window.Start, s.Window.End)
		if overlap <= 0 {
			continue
		}
		shorter := w.Duration()
		if s.Window.Duration() < shorter {
			shorter = s.Window.Duration()
		}
		if shorter <= 0 {
			continue
		}
		if overlap.Seconds()/shorter.Seconds() > 0.10 {
			return true
		}
	}
	return false
}

func intervalOverlap(aStart, aEnd, bStart, bEnd time.Duration) time.Duration {
	lo := aStart
	if bStart > lo {
		lo = bStart
	}
	hi := aEnd
	if bEnd < hi {
		hi = bEnd
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
