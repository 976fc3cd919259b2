package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipcut/internal/config"
	"github.com/forPelevin/clipcut/internal/health"
	"github.com/forPelevin/clipcut/internal/logging"
	"github.com/forPelevin/clipcut/internal/orchestrator"
	"github.com/forPelevin/clipcut/internal/pipelineerr"
	"github.com/forPelevin/clipcut/internal/ports/adapters/ffmpegtool"
	"github.com/forPelevin/clipcut/internal/ports/adapters/httpasr"
	"github.com/forPelevin/clipcut/internal/ports/adapters/httpllm"
	"github.com/forPelevin/clipcut/internal/ports/adapters/ingesthttp"
)

// run builds the job config from flags, executes the job (or the
// health check), and returns the process exit code per spec §6.
func run(cmd *cobra.Command) (int, error) {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return exitMisuse, err
	}

	log := logging.New(logging.Options{Verbose: cfg.Verbose}, os.Stderr)

	ffmpeg := ffmpegtool.New("ffmpeg", "ffprobe", cfg.SceneCutThreshold, cfg.RenderQuality)
	healthChecker := health.New()

	healthCheckOnly, _ := cmd.Flags().GetBool("health-check")
	if healthCheckOnly {
		return runHealthCheck(cmd.Context(), cfg, healthChecker)
	}

	if err := cfg.Validate(); err != nil {
		return exitMisuse, err
	}

	whisperHealthy := healthChecker.Healthy(cmd.Context(), cfg.WhisperServerURL)
	chatHealthy := healthChecker.Healthy(cmd.Context(), cfg.ChatServerURL)
	if !whisperHealthy || !chatHealthy {
		return exitEndpointsUnhealthy, &pipelineerr.HealthError{
			Endpoint: unhealthyEndpoint(cfg, whisperHealthy, chatHealthy),
			Cause:    fmt.Errorf("model server did not respond 2xx to /health"),
		}
	}

	o := orchestrator.New(orchestrator.Deps{
		Ingester:      ingesthttp.New(),
		ASR:           httpasr.New(cfg.WhisperServerURL),
		SceneDetector: ffmpeg,
		Grader:        httpllm.New(cfg.ChatServerURL, cfg.ChatAPIKey, cfg.ChatModel),
		Encoder:       ffmpeg,
	}, cfg, log)

	ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Hour)
	defer cancel()

	result, err := o.Run(ctx)
	if err != nil {
		return exitCodeForJobError(err), err
	}

	switch {
	case len(result.Clips) == 0:
		return exitSuccess, nil // no candidate windows; empty log is not a failure
	case len(result.Rows) == 0:
		return exitJobFailure, fmt.Errorf("all %d ranked clips failed to render", len(result.Clips))
	case len(result.Rows) < len(result.Clips):
		return exitPartialSuccess, nil
	default:
		return exitSuccess, nil
	}
}

func runHealthCheck(ctx context.Context, cfg config.Config, checker *health.Checker) (int, error) {
	whisperHealthy := checker.Healthy(ctx, cfg.WhisperServerURL)
	chatHealthy := checker.Healthy(ctx, cfg.ChatServerURL)
	if !whisperHealthy || !chatHealthy {
		return exitEndpointsUnhealthy, &pipelineerr.HealthError{
			Endpoint: unhealthyEndpoint(cfg, whisperHealthy, chatHealthy),
			Cause:    fmt.Errorf("model server did not respond 2xx to /health"),
		}
	}
	fmt.Println("ok: both model servers healthy")
	return exitSuccess, nil
}

func unhealthyEndpoint(cfg config.Config, whisperHealthy, chatHealthy bool) string {
	switch {
	case !whisperHealthy && !chatHealthy:
		return cfg.WhisperServerURL + ", " + cfg.ChatServerURL
	case !whisperHealthy:
		return cfg.WhisperServerURL
	default:
		return cfg.ChatServerURL
	}
}

func exitCodeForJobError(err error) int {
	switch err.(type) {
	case *pipelineerr.ConfigError:
		return exitMisuse
	case *pipelineerr.HealthError:
		return exitEndpointsUnhealthy
	default:
		return exitJobFailure
	}
}

// buildConfig overlays an optional JSON config file and CLI flags onto
// config.Default(), in that order, then normalizes the result.
func buildConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := config.LoadFile(path, &cfg); err != nil {
			return config.Config{}, err
		}
	}

	sourceURL, _ := cmd.Flags().GetString("url")
	k, _ := cmd.Flags().GetInt("k")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	verbose, _ := cmd.Flags().GetBool("verbose")
	windowDuration, _ := cmd.Flags().GetFloat64("window-duration")
	windowStride, _ := cmd.Flags().GetFloat64("window-stride")
	windowMin, _ := cmd.Flags().GetFloat64("window-min")
	windowMax, _ := cmd.Flags().GetFloat64("window-max")
	graderConcurrency, _ := cmd.Flags().GetInt("grader-concurrency")
	renderConcurrency, _ := cmd.Flags().GetInt("render-concurrency")
	renderQuality, _ := cmd.Flags().GetString("render-quality")
	cancelOnFirstFailure, _ := cmd.Flags().GetBool("cancel-on-first-failure")

	cfg.SourceURL = sourceURL
	cfg.TopK = k
	cfg.Verbose = verbose

	if cmd.Flags().Changed("output-dir") {
		cfg.OutputDir = outputDir
	}
	if cmd.Flags().Changed("window-duration") {
		cfg.WindowDuration = windowDuration
	}
	if cmd.Flags().Changed("window-stride") {
		cfg.WindowStride = windowStride
	}
	if cmd.Flags().Changed("window-min") {
		cfg.WindowMin = windowMin
	}
	if cmd.Flags().Changed("window-max") {
		cfg.WindowMax = windowMax
	}
	if cmd.Flags().Changed("grader-concurrency") {
		cfg.GraderConcurrency = graderConcurrency
	}
	if cmd.Flags().Changed("render-concurrency") {
		cfg.RenderConcurrency = renderConcurrency
	}
	if cmd.Flags().Changed("render-quality") {
		cfg.RenderQuality = renderQuality
	}
	if cmd.Flags().Changed("cancel-on-first-failure") {
		cfg.CancelOnFirstFailure = cancelOnFirstFailure
	}

	cfg.ConfigPath, _ = cmd.Flags().GetString("config")
	cfg.ChatAPIKey = os.Getenv("CHAT_API_KEY")

	absOut, err := filepath.Abs(cfg.OutputDir)
	if err == nil {
		cfg.OutputDir = absOut
	}
	cfg.ScratchDir = filepath.Join(os.TempDir(), "clipcut-scratch")

	return cfg.Normalize(), nil
}
