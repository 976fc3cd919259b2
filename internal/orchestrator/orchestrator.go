// Package orchestrator drives the job state machine of spec §4.J:
// INIT -> INGESTING -> (TRANSCRIBING || SCENE_DETECTING) -> WINDOWING ->
// (FEATURIZING || GRADING) -> RANKING -> PLANNING -> RENDERING -> DONE,
// with FAILED/CANCELLED reachable from any state. Grounded on the
// teacher's usecase.Usecase.Run for the straight-line stage-calling
// idiom, generalized to the explicit state graph and fan-out stages
// using golang.org/x/sync/errgroup.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/clipcut/internal/config"
	"github.com/forPelevin/clipcut/internal/domain/ranker"
	"github.com/forPelevin/clipcut/internal/domain/renderplan"
	"github.com/forPelevin/clipcut/internal/domain/subtitles"
	"github.com/forPelevin/clipcut/internal/domain/textfeatures"
	"github.com/forPelevin/clipcut/internal/domain/windowing"
	"github.com/forPelevin/clipcut/internal/joblog"
	"github.com/forPelevin/clipcut/internal/pipelineerr"
	"github.com/forPelevin/clipcut/internal/ports"
	"github.com/forPelevin/clipcut/internal/types"
)

// Stage names the current state of the job, for logging and for
// pipelineerr.CancelledError.Stage.
type Stage string

const (
	StageInit            Stage = "INIT"
	StageIngesting       Stage = "INGESTING"
	StageTranscribing    Stage = "TRANSCRIBING"
	StageSceneDetecting  Stage = "SCENE_DETECTING"
	StageWindowing       Stage = "WINDOWING"
	StageFeaturizing     Stage = "FEATURIZING"
	StageGrading         Stage = "GRADING"
	StageRanking         Stage = "RANKING"
	StagePlanning        Stage = "PLANNING"
	StageRendering       Stage = "RENDERING"
	StageDone            Stage = "DONE"
)

// Deps bundles every port the orchestrator drives.
type Deps struct {
	Ingester      ports.MediaIngester
	ASR           ports.ASRClient
	SceneDetector ports.SceneDetector
	Grader        ports.LLMGrader
	Encoder       ports.Encoder
}

// Orchestrator runs one job end to end.
type Orchestrator struct {
	d   Deps
	cfg config.Config
	log *slog.Logger
}

func New(d Deps, cfg config.Config, log *slog.Logger) *Orchestrator {
	return &Orchestrator{d: d, cfg: cfg, log: log}
}

// Result is the outcome of a completed job.
type Result struct {
	Clips []types.RankedClip
	Rows  []types.JobLogRow
}

// Run executes the full state machine for sourceURL, writing rendered
// clips and the CSV job log under cfg.OutputDir, and returns once the
// job reaches DONE, FAILED, or CANCELLED.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	o.log.Info("stage", "stage", StageInit)

	if err := ctx.Err(); err != nil {
		return Result{}, &pipelineerr.CancelledError{Stage: string(StageInit)}
	}

	if err := os.MkdirAll(o.cfg.OutputDir, 0o755); err != nil {
		return Result{}, &pipelineerr.ConfigError{Field: "output_dir", Cause: err}
	}
	if err := os.MkdirAll(o.cfg.ScratchDir, 0o755); err != nil {
		return Result{}, &pipelineerr.ConfigError{Field: "scratch_dir", Cause: err}
	}

	o.log.Info("stage", "stage", StageIngesting)
	media, err := o.d.Ingester.Fetch(ctx, o.cfg.SourceURL, o.cfg.ScratchDir)
	if err != nil {
		return Result{}, err
	}
	if err := o.checkScratchQuota(media.LocalPath); err != nil {
		return Result{}, err
	}
	if media.DurationSec <= 0 {
		if d, derr := o.d.Encoder.ProbeDuration(ctx, media.LocalPath); derr == nil {
			media.DurationSec = d
		}
	}

	hasAudio, err := o.d.Encoder.ProbeHasAudioStream(ctx, media.LocalPath)
	if err != nil {
		return Result{}, &pipelineerr.IngestError{SourceURL: o.cfg.SourceURL, Cause: err}
	}
	if !hasAudio {
		return Result{}, &pipelineerr.IngestError{
			SourceURL: o.cfg.SourceURL,
			Cause:     fmt.Errorf("source media has no audio stream"),
		}
	}
	if rate, rerr := o.d.Encoder.ProbeAudioSampleRate(ctx, media.LocalPath); rerr == nil {
		media.SampleRateHint = rate
	}

	if err := ctx.Err(); err != nil {
		return Result{}, &pipelineerr.CancelledError{Stage: string(StageIngesting)}
	}

	var transcript types.Transcript
	var cuts []types.SceneCut

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o.log.Info("stage", "stage", StageTranscribing)
		wav := filepath.Join(o.cfg.ScratchDir, media.ID+".wav")
		if err := o.d.Encoder.ExtractAudio(gctx, media.LocalPath, wav); err != nil {
			return &pipelineerr.AsrError{Cause: err}
		}
		tr, err := o.d.ASR.Transcribe(gctx, wav)
		if err != nil {
			return &pipelineerr.AsrError{Cause: err}
		}
		transcript = tr
		return nil
	})
	g.Go(func() error {
		o.log.Info("stage", "stage", StageSceneDetecting)
		c, err := o.d.SceneDetector.Detect(gctx, media)
		if err != nil {
			// Non-fatal per spec §7: degrade to zero scene cuts.
			o.log.Warn("scene detect failed, degrading to zero scene cuts", "error", err)
			cuts = nil
			return nil
		}
		cuts = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	if err := ctx.Err(); err != nil {
		return Result{}, &pipelineerr.CancelledError{Stage: string(StageTranscribing)}
	}

	o.log.Info("stage", "stage", StageWindowing)
	windows := windowing.Generate(transcript, cuts, windowing.Params{
		Target: secDur(o.cfg.WindowDuration),
		Stride: secDur(o.cfg.WindowStride),
		Min:    secDur(o.cfg.WindowMin),
		Max:    secDur(o.cfg.WindowMax),
	})
	if len(windows) == 0 {
		if err := joblog.Write(o.cfg.OutputDir, media.ID, nil); err != nil {
			return Result{}, &pipelineerr.RenderError{WindowID: "", Cause: err}
		}
		o.log.Info("stage", "stage", StageDone, "clips", 0)
		return Result{}, nil
	}

	if err := ctx.Err(); err != nil {
		return Result{}, &pipelineerr.CancelledError{Stage: string(StageWindowing)}
	}

	texts := make([]string, len(windows))
	for i, w := range windows {
		texts[i] = w.Text
	}
	corpus := textfeatures.FitCorpus(texts)

	features := make([]types.TextFeatures, len(windows))
	grades := make([]types.LLMGrade, len(windows))

	fg, fgctx := errgroup.WithContext(ctx)
	fg.Go(func() error {
		o.log.Info("stage", "stage", StageFeaturizing)
		for i, w := range windows {
			if err := fgctx.Err(); err != nil {
				return err
			}
			features[i] = textfeatures.Compute(w.Text, w.ContainsSceneCuts, corpus)
		}
		return nil
	})
	fg.Go(func() error {
		o.log.Info("stage", "stage", StageGrading)
		graded, err := o.gradeWithConcurrency(fgctx, texts)
		if err != nil {
			return err
		}
		grades = graded
		return nil
	})
	if err := fg.Wait(); err != nil {
		return Result{}, err
	}
	textfeatures.NormalizeCoverage(features)

	if err := ctx.Err(); err != nil {
		return Result{}, &pipelineerr.CancelledError{Stage: string(StageFeaturizing)}
	}

	o.log.Info("stage", "stage", StageRanking)
	ranked := ranker.Rank(windows, features, grades, o.cfg.RankWeights, o.cfg.TopK)

	if err := ctx.Err(); err != nil {
		return Result{}, &pipelineerr.CancelledError{Stage: string(StageRanking)}
	}

	o.log.Info("stage", "stage", StagePlanning)
	hasHW := o.d.Encoder.ProbeHardware(ctx)
	plans := make([]types.RenderPlan, len(ranked))
	for i, clip := range ranked {
		plans[i] = renderplan.Build(clip, i+1, media, transcript, o.cfg.OutputDir, 30, hasHW)
	}

	o.log.Info("stage", "stage", StageRendering)
	rows, err := o.renderAll(ctx, media, ranked, plans, hasHW)
	if err != nil {
		return Result{}, err
	}

	if err := joblog.Write(o.cfg.OutputDir, media.ID, rows); err != nil {
		return Result{}, &pipelineerr.RenderError{WindowID: "", Cause: err}
	}

	o.log.Info("stage", "stage", StageDone, "clips", len(ranked))
	return Result{Clips: ranked, Rows: rows}, nil
}

// gradeWithConcurrency grades each window text with its own Grader.Grade
// call, at most cfg.GraderConcurrency calls in flight (spec §4.F
// "default 4 concurrent"), preserving output order.
func (o *Orchestrator) gradeWithConcurrency(ctx context.Context, texts []string) ([]types.LLMGrade, error) {
	limit := o.cfg.GraderConcurrency
	if limit <= 0 {
		limit = 1
	}
	out := make([]types.LLMGrade, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			grades, err := o.d.Grader.Grade(gctx, []string{text})
			if err != nil || len(grades) == 0 {
				out[i] = types.LLMGrade{}
				return nil
			}
			out[i] = grades[0]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// renderAll renders every ranked clip bounded by cfg.RenderConcurrency
// (spec §4.I "default 2"), retrying a failed clip once on the CPU
// encoder before skipping it, and writing its sibling .ass subtitle
// file first.
func (o *Orchestrator) renderAll(ctx context.Context, media types.MediaAsset, clips []types.RankedClip, plans []types.RenderPlan, hasHW bool) ([]types.JobLogRow, error) {
	limit := o.cfg.RenderConcurrency
	if limit <= 0 {
		limit = 1
	}
	rows := make([]types.JobLogRow, len(clips))
	ok := make([]bool, len(clips))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range clips {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			row, err := o.renderOne(gctx, media, clips[i], plans[i], i+1, hasHW)
			if err != nil {
				if o.cfg.CancelOnFirstFailure {
					return err
				}
				o.log.Warn("render failed, skipping clip", "rank", i+1, "error", err)
				return nil
			}
			rows[i] = row
			ok[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]types.JobLogRow, 0, len(rows))
	for i, v := range ok {
		if v {
			out = append(out, rows[i])
		}
	}
	return out, nil
}

func (o *Orchestrator) renderOne(ctx context.Context, media types.MediaAsset, clip types.RankedClip, plan types.RenderPlan, rank int, hasHW bool) (types.JobLogRow, error) {
	assPath := renderplan.SubtitlePath(plan)
	if err := os.WriteFile(assPath, []byte(subtitles.RenderASS(plan.SubtitleEvents)), 0o644); err != nil {
		return types.JobLogRow{}, &pipelineerr.RenderError{WindowID: clip.Window.ID, Cause: err}
	}

	useHW := hasHW && plan.EncoderProfile == types.EncoderHWNVENC
	err := o.d.Encoder.Render(ctx, plan, useHW)
	if err != nil && useHW {
		o.log.Warn("hardware render failed, retrying on CPU encoder", "window", clip.Window.ID, "error", err)
		err = o.d.Encoder.Render(ctx, plan, false)
	}
	if err != nil {
		return types.JobLogRow{}, &pipelineerr.RenderError{WindowID: clip.Window.ID, Cause: err}
	}

	return types.JobLogRow{
		VideoID:        media.ID,
		Rank:           rank,
		WindowID:       clip.Window.ID,
		StartTime:      clip.Window.Start.Seconds(),
		EndTime:        clip.Window.End.Seconds(),
		KeyphraseScore: clip.Features.CoverageScore,
		DensityScore:   clip.Features.DensityScore,
		CogencyScore:   float64(clip.Grade.Cogency),
		FinalScore:     clip.FinalScore,
		Quotes:         clip.Grade.Quotes,
		SalientTerms:   clip.Grade.SalientTerms,
		Keyphrases:     keyphraseStrings(clip.Features.KeyPhrases),
		SceneCuts:      clip.Window.ContainsSceneCuts,
		FilePath:       plan.OutputPath,
		TextPreview:    clip.Window.Text,
	}, nil
}

func keyphraseStrings(kp []types.KeyPhrase) []string {
	out := make([]string, len(kp))
	for i, p := range kp {
		out[i] = p.Phrase
	}
	return out
}

// checkScratchQuota fails with an IngestError when the file at path alone
// is larger than cfg.ScratchQuotaBytes (20GB by default). It does not
// measure the rest of the scratch directory.
func (o *Orchestrator) checkScratchQuota(path string) error {
	if o.cfg.ScratchQuotaBytes <= 0 {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if info.Size() > o.cfg.ScratchQuotaBytes {
		return &pipelineerr.IngestError{
			SourceURL: path,
			Cause:     fmt.Errorf("source media %d bytes exceeds scratch quota %d bytes", info.Size(), o.cfg.ScratchQuotaBytes),
		}
	}
	return nil
}

func secDur(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
