package textfeatures

import (
	"testing"

	"github.com/forPelevin/clipcut/internal/types"
)

func TestCompute_EmptyTextYieldsZeroFeatures(t *testing.T) {
	got := Compute("", 0, Corpus{})
	if got.DensityScore != 0 || got.CoverageScore != 0 || len(got.KeyPhrases) != 0 {
		t.Fatalf("expected zero features for empty text, got %+v", got)
	}
}

func TestCompute_SceneCutPenaltyCapsAtOne(t *testing.T) {
	got := Compute("some words here", 10, Corpus{})
	if got.SceneCutPenalty != 1.0 {
		t.Fatalf("expected scene cut penalty capped at 1.0, got %v", got.SceneCutPenalty)
	}
}

func TestCompute_FillerRatioDetectsPhrases(t *testing.T) {
	text := "um so like you know this is basically just a test"
	got := Compute(text, 0, Corpus{})
	if got.FillerRatio <= 0 {
		t.Fatalf("expected nonzero filler ratio for filler-heavy text, got %v", got.FillerRatio)
	}
}

func TestCompute_DensityScoreWithinRange(t *testing.T) {
	text := "the breakthrough came when researchers discovered that neural networks could learn complex patterns this revolutionized machine learning completely"
	got := Compute(text, 0, Corpus{})
	if got.DensityScore < 0 || got.DensityScore > 1 {
		t.Fatalf("density score out of [0,1]: %v", got.DensityScore)
	}
	if len(got.KeyPhrases) == 0 {
		t.Fatalf("expected some keyphrases extracted")
	}
}

func TestFitCorpus_TopVocabularyDrivesCoverage(t *testing.T) {
	texts := []string{
		"artificial intelligence transforms society",
		"neural networks learn complex patterns",
		"the cat sat on the mat",
	}
	corpus := FitCorpus(texts)
	got := Compute(texts[0], 0, corpus)
	if got.CoverageScore < 0 {
		t.Fatalf("raw coverage sum must not be negative: %v", got.CoverageScore)
	}
}

func TestNormalizeCoverage_RescalesAcrossJobToUnitRange(t *testing.T) {
	texts := []string{
		"artificial intelligence transforms society completely",
		"neural networks learn complex patterns well",
		"the cat sat on the mat today",
	}
	corpus := FitCorpus(texts)

	features := make([]types.TextFeatures, len(texts))
	raw := make([]float64, len(texts))
	for i, text := range texts {
		features[i] = Compute(text, 0, corpus)
		raw[i] = features[i].CoverageScore
	}

	NormalizeCoverage(features)

	lo, hi := raw[0], raw[0]
	for _, v := range raw[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	for i, f := range features {
		if f.CoverageScore < 0 || f.CoverageScore > 1 {
			t.Fatalf("normalized coverage out of [0,1]: %v", f.CoverageScore)
		}
		if hi > lo {
			want := (raw[i] - lo) / (hi - lo)
			if diff := f.CoverageScore - want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("window %d: expected normalized %v, got %v", i, want, f.CoverageScore)
			}
		}
	}
}

func TestNormalizeCoverage_EqualRawScoresNormalizeToZero(t *testing.T) {
	features := []types.TextFeatures{{CoverageScore: 0.5}, {CoverageScore: 0.5}}
	NormalizeCoverage(features)
	for _, f := range features {
		if f.CoverageScore != 0 {
			t.Fatalf("expected equal raw scores to normalize to 0, got %v", f.CoverageScore)
		}
	}
}
