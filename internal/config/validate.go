package config

import (
	"fmt"

	"github.com/forPelevin/clipcut/internal/pipelineerr"
	"github.com/forPelevin/clipcut/internal/urlsafety"
)

// Validate checks invariants that must hold before the orchestrator
// starts a job. It does not touch the network or filesystem beyond
// simple string checks.
func (c Config) Validate() error {
	if c.SourceURL == "" {
		return &pipelineerr.ConfigError{Field: "url", Cause: fmt.Errorf("required")}
	}
	if c.TopK < 1 {
		return &pipelineerr.ConfigError{Field: "k", Cause: fmt.Errorf("must be >= 1, got %d", c.TopK)}
	}
	if c.OutputDir == "" {
		return &pipelineerr.ConfigError{Field: "output_dir", Cause: fmt.Errorf("required")}
	}
	if c.WindowMin <= 0 || c.WindowMax <= 0 || c.WindowMin > c.WindowMax {
		return &pipelineerr.ConfigError{Field: "window_min/window_max", Cause: fmt.Errorf("window_min must be > 0 and <= window_max")}
	}
	if c.WindowDuration < c.WindowMin || c.WindowDuration > c.WindowMax {
		return &pipelineerr.ConfigError{Field: "window_duration", Cause: fmt.Errorf("must be within [window_min, window_max]")}
	}
	if c.WindowStride <= 0 {
		return &pipelineerr.ConfigError{Field: "window_stride", Cause: fmt.Errorf("must be > 0")}
	}
	if c.GraderConcurrency < 1 {
		return &pipelineerr.ConfigError{Field: "grader_concurrency", Cause: fmt.Errorf("must be >= 1")}
	}
	if c.RenderConcurrency < 1 {
		return &pipelineerr.ConfigError{Field: "render_concurrency", Cause: fmt.Errorf("must be >= 1")}
	}
	switch c.RenderQuality {
	case "low", "medium", "high":
	default:
		return &pipelineerr.ConfigError{Field: "render_quality", Cause: fmt.Errorf("must be one of low|medium|high, got %q", c.RenderQuality)}
	}
	if err := urlsafety.ValidateServerURL("whisper_server_url", c.WhisperServerURL); err != nil {
		return &pipelineerr.ConfigError{Field: "whisper_server_url", Cause: err}
	}
	if err := urlsafety.ValidateServerURL("chat_server_url", c.ChatServerURL); err != nil {
		return &pipelineerr.ConfigError{Field: "chat_server_url", Cause: err}
	}
	return nil
}
