package ranker

import (
	"testing"
	"time"

	"github.com/forPelevin/clipcut/internal/config"
	"github.com/forPelevin/clipcut/internal/types"
)

func weights() config.RankWeights { return config.Default().RankWeights }

func win(id string, start, end time.Duration) types.Window {
	return types.Window{ID: id, Start: start, End: end}
}

func TestScore_ClampedToUnitInterval(t *testing.T) {
	features := types.TextFeatures{CoverageScore: 1, DensityScore: 1, FillerRatio: 1, SceneCutPenalty: 1}
	grade := types.LLMGrade{Cogency: 5, Quotes: []string{"a", "b", "c"}}
	got := Score(features, grade, weights())
	if got < 0 || got > 1 {
		t.Fatalf("score out of [0,1]: %v", got)
	}

	allZero := types.TextFeatures{SceneCutPenalty: 1, FillerRatio: 1}
	gotZero := Score(allZero, types.LLMGrade{Cogency: 1}, weights())
	if gotZero < 0 {
		t.Fatalf("score should clamp negative pre-score to 0, got %v", gotZero)
	}
}

func TestRank_ExcludesSentinelGrades(t *testing.T) {
	windows := []types.Window{win("w1", 0, 90*time.Second), win("w2", 200*time.Second, 290*time.Second)}
	features := []types.TextFeatures{{CoverageScore: 0.8}, {CoverageScore: 0.9}}
	grades := []types.LLMGrade{{Cogency: 4}, {Cogency: 0}}

	got := Rank(windows, features, grades, weights(), 5)
	if len(got) != 1 {
		t.Fatalf("expected 1 ranked clip (sentinel excluded), got %d", len(got))
	}
	if got[0].Window.ID != "w1" {
		t.Fatalf("expected w1 selected, got %s", got[0].Window.ID)
	}
}

func TestRank_EnforcesNonOverlap(t *testing.T) {
	windows := []types.Window{
		win("best", 0, 90*time.Second),
		win("overlap", 10*time.Second, 100*time.Second),
		win("distinct", 200*time.Second, 290*time.Second),
	}
	features := []types.TextFeatures{{CoverageScore: 1}, {CoverageScore: 0.9}, {CoverageScore: 0.5}}
	grades := []types.LLMGrade{{Cogency: 5}, {Cogency: 5}, {Cogency: 3}}

	got := Rank(windows, features, grades, weights(), 3)
	if len(got) != 2 {
		t.Fatalf("expected 2 clips (overlap rejected), got %d: %+v", len(got), got)
	}
	if got[0].Window.ID != "best" || got[1].Window.ID != "distinct" {
		t.Fatalf("unexpected selection order: %+v", got)
	}
}

func TestRank_ReturnsFewerThanKWhenPoolExhausted(t *testing.T) {
	windows := []types.Window{win("only", 0, 90*time.Second)}
	features := []types.TextFeatures{{CoverageScore: 1}}
	grades := []types.LLMGrade{{Cogency: 5}}

	got := Rank(windows, features, grades, weights(), 5)
	if len(got) != 1 {
		t.Fatalf("expected 1 clip, got %d", len(got))
	}
}
