// Package ports defines the interfaces the orchestrator drives, one per
// external collaborator named in spec §4. Adapters under
// internal/ports/adapters implement these.
package ports

import (
	"context"

	"github.com/forPelevin/clipcut/internal/types"
)

// MediaIngester fetches source media to a local file (spec §4.A).
type MediaIngester interface {
	Fetch(ctx context.Context, sourceURL, scratchDir string) (types.MediaAsset, error)
}

// ASRClient submits audio for word-timestamped transcription (spec §4.B).
type ASRClient interface {
	Transcribe(ctx context.Context, audioPath string) (types.Transcript, error)
}

// SceneDetector produces scene-cut timestamps from the media file (spec §4.C).
type SceneDetector interface {
	Detect(ctx context.Context, media types.MediaAsset) ([]types.SceneCut, error)
}

// LLMGrader grades a batch of windows' text for cogency (spec §4.F).
// Results are aligned positionally with the input texts.
type LLMGrader interface {
	Grade(ctx context.Context, windowTexts []string) ([]types.LLMGrade, error)
}

// Encoder probes hardware encoder availability once and renders clips
// (spec §4.I), and provides the ffprobe-backed facts the orchestrator
// checks on the fetched source right after ingest.
type Encoder interface {
	ProbeHardware(ctx context.Context) bool
	ExtractAudio(ctx context.Context, inPath, outWAVPath string) error
	ProbeDuration(ctx context.Context, inPath string) (float64, error)
	ProbeHasAudioStream(ctx context.Context, inPath string) (bool, error)
	ProbeAudioSampleRate(ctx context.Context, inPath string) (int, error)
	Render(ctx context.Context, plan types.RenderPlan, useHardware bool) error
}

// HealthChecker probes a model server's /health endpoint (spec §6).
type HealthChecker interface {
	Healthy(ctx context.Context, baseURL string) bool
}
