// Package types holds the value-semantic data model shared across the
// pipeline stages. Entities here are immutable once constructed; no
// component retains a reference into another's storage after a call
// returns.
package types

import "time"

// MediaAsset is the local, playable copy of a job's source media.
type MediaAsset struct {
	ID             string
	LocalPath      string
	DurationSec    float64
	SampleRateHint int
}

// Token is a single word-level transcript unit with timing.
type Token struct {
	Text         string
	Start        time.Duration
	End          time.Duration
	Confidence   float64 // 0 means "unknown", valid range (0,1]
	SpeakerLabel string
}

// Transcript is an ordered, immutable sequence of Tokens.
type Transcript struct {
	Tokens []Token
}

// Duration returns the span covered by the transcript, or zero if empty.
func (t Transcript) Duration() time.Duration {
	if len(t.Tokens) == 0 {
		return 0
	}
	return t.Tokens[len(t.Tokens)-1].End
}

// SceneCut is a single detected visual discontinuity.
type SceneCut struct {
	Time time.Duration
}

// Window is a candidate clip interval over the transcript.
type Window struct {
	ID                string
	Start             time.Duration
	End               time.Duration
	TokenStart        int // inclusive index into the owning Transcript
	TokenEnd          int // inclusive index into the owning Transcript
	Text              string
	ContainsSceneCuts int
}

// Duration returns End-Start.
func (w Window) Duration() time.Duration { return w.End - w.Start }

// KeyPhrase is a scored candidate phrase extracted from a Window's text.
type KeyPhrase struct {
	Phrase string
	Weight float64 // normalized to [0,1]
}

// TextFeatures carries the pure, deterministic per-Window text signals.
type TextFeatures struct {
	KeyPhrases      []KeyPhrase
	CoverageScore   float64
	DensityScore    float64
	FillerRatio     float64
	SceneCutPenalty float64
}

// LLMGrade is the per-Window cogency judgment from the grader endpoint.
// A sentinel grade has Cogency == 0 and empty Quotes/SalientTerms, and
// marks a window whose grading failed or never completed.
type LLMGrade struct {
	Cogency      int
	Quotes       []string
	SalientTerms []string
}

// Sentinel reports whether g is the disqualifying sentinel grade.
func (g LLMGrade) Sentinel() bool { return g.Cogency <= 0 }

// RankedClip is a Window enriched with its features, grade, and final
// composite score.
type RankedClip struct {
	Window     Window
	Features   TextFeatures
	Grade      LLMGrade
	FinalScore float64
}

// SubtitleEvent is one caption line within a clip's local timeline.
type SubtitleEvent struct {
	Start        time.Duration // clip-local offset
	End          time.Duration
	Text         string
	SpeakerLabel string
}

// CropStrategy selects how a clip is reframed to vertical video.
type CropStrategy string

const (
	CropCenter        CropStrategy = "center"
	CropFaceTrackStub CropStrategy = "face_track_stub"
)

// EncoderProfile selects which encoder path a RenderPlan should use.
type EncoderProfile string

const (
	EncoderHWNVENC EncoderProfile = "hw_h264_nvenc"
	EncoderCPUH264 EncoderProfile = "cpu_h264"
)

// RenderPlan is the fully-resolved, typed description of one clip render.
type RenderPlan struct {
	SourcePath     string
	OutputPath     string
	CutStart       time.Duration
	CutEnd         time.Duration
	CropStrategy   CropStrategy
	SubtitleEvents []SubtitleEvent
	EncoderProfile EncoderProfile
	TargetWidth    int
	TargetHeight   int
	TargetFPS      float64
	// TargetAudioSampleRate is the output AAC sample rate: the source
	// rate preserved if it is already >= 44.1kHz, else upsampled to
	// 48kHz (spec §4.I).
	TargetAudioSampleRate int
}

// JobLogRow is one row of the per-job CSV log (spec §6).
type JobLogRow struct {
	VideoID        string
	Rank           int
	WindowID       string
	StartTime      float64
	EndTime        float64
	KeyphraseScore float64
	DensityScore   float64
	CogencyScore   float64
	FinalScore     float64
	Quotes         []string
	SalientTerms   []string
	Keyphrases     []string
	SceneCuts      int
	FilePath       string
	TextPreview    string
}
