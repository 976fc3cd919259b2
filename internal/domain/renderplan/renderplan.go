// Package renderplan turns a RankedClip into a fully-resolved
// RenderPlan value (spec §4.H): cut padding, caption packing, output
// path naming. Pure and side-effect-free; the Renderer (package
// ffmpegtool) executes the plan. Grounded on the teacher's
// subtitles.RenderTikTokASS call site inside cli/run.go for the
// windower→subtitles→render wiring shape, and on
// original_source/backend/app/services/cut_render.py's crop-to-shorts
// path for the 1080x1920 center-crop default.
package renderplan

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/forPelevin/clipcut/internal/domain/subtitles"
	"github.com/forPelevin/clipcut/internal/types"
)

const (
	cutPad       = 100 * time.Millisecond
	targetWidth  = 1080
	targetHeight = 1920
)

// Build constructs the RenderPlan for rank (1-based) of clip within
// media, given the job's full transcript (for caption packing) and
// output directory. sourceDuration bounds cut_end; sourceFPS caps
// target_fps at the source rate per spec §3 (default 30).
func Build(clip types.RankedClip, rank int, media types.MediaAsset, transcript types.Transcript, outputDir string, sourceFPS float64, hasHardwareEncoder bool) types.RenderPlan {
	cutStart := clip.Window.Start - cutPad
	if cutStart < 0 {
		cutStart = 0
	}
	cutEnd := clip.Window.End + cutPad
	maxEnd := time.Duration(media.DurationSec * float64(time.Second))
	if maxEnd > 0 && cutEnd > maxEnd {
		cutEnd = maxEnd
	}

	fps := sourceFPS
	if fps <= 0 || fps > 30 {
		fps = 30
	}

	events := subtitles.PackEvents(transcript, clip.Window.Start, clip.Window.End)
	shiftedEvents := shiftEvents(events, clip.Window.Start-cutStart)

	profile := types.EncoderCPUH264
	if hasHardwareEncoder {
		profile = types.EncoderHWNVENC
	}

	return types.RenderPlan{
		SourcePath:            media.LocalPath,
		OutputPath:            outputPath(outputDir, media.ID, rank),
		CutStart:              cutStart,
		CutEnd:                cutEnd,
		CropStrategy:          types.CropCenter,
		SubtitleEvents:        shiftedEvents,
		EncoderProfile:        profile,
		TargetWidth:           targetWidth,
		TargetHeight:          targetHeight,
		TargetFPS:             fps,
		TargetAudioSampleRate: targetAudioSampleRate(media.SampleRateHint),
	}
}

// targetAudioSampleRate preserves the source rate when it is already at
// least 44.1kHz, and otherwise upsamples to 48kHz (spec §4.I). A zero
// hint (probe failed or was skipped) also upsamples to 48kHz.
func targetAudioSampleRate(sourceRate int) int {
	if sourceRate >= 44100 {
		return sourceRate
	}
	return 48000
}

// shiftEvents re-bases caption event times from window-local offsets
// to cut-local offsets, since cutStart pads slightly before the
// window's own start.
func shiftEvents(events []types.SubtitleEvent, shift time.Duration) []types.SubtitleEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]types.SubtitleEvent, len(events))
	for i, e := range events {
		out[i] = types.SubtitleEvent{
			Start:        e.Start + shift,
			End:          e.End + shift,
			Text:         e.Text,
			SpeakerLabel: e.SpeakerLabel,
		}
	}
	return out
}

// outputPath follows spec §4.H's naming rule exactly.
func outputPath(outputDir, mediaID string, rank int) string {
	return filepath.Join(outputDir, fmt.Sprintf("%s_clip_%02d.mp4", mediaID, rank))
}

// SubtitlePath returns the sibling .ass path for a plan's output file,
// the same convention the ffmpegtool Renderer assumes when building its
// subtitles= filter argument.
func SubtitlePath(plan types.RenderPlan) string {
	if filepath.Ext(plan.OutputPath) == ".mp4" {
		return plan.OutputPath[:len(plan.OutputPath)-len(".mp4")] + ".ass"
	}
	return plan.OutputPath + ".ass"
}
