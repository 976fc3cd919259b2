// Package config holds the immutable, explicitly-constructed job
// configuration threaded through the orchestrator and each stage (spec
// §9: "no process-wide singleton"). It is loaded from CLI flags and an
// optional JSON config file (spec §6) that rejects unknown keys.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/forPelevin/clipcut/internal/pipelineerr"
)

// RankWeights are the blending weights for the ranker's composite score
// (spec §4.G). Surfaced as configurable; the zero value is meaningless,
// always populate via Default().
type RankWeights struct {
	Coverage        float64 `json:"coverage"`
	Density         float64 `json:"density"`
	Cogency         float64 `json:"cogency"`
	QuoteBonus      float64 `json:"quote_bonus"`
	SceneCutPenalty float64 `json:"scene_cut_penalty"`
	FillerPenalty   float64 `json:"filler_penalty"`
}

// Config is the complete, validated job configuration. Construct via
// Default (optionally overlaid by LoadFile); the zero value is not meaningful.
type Config struct {
	WhisperServerURL    string      `json:"whisper_server_url"`
	ChatServerURL       string      `json:"chat_server_url"`
	WindowDuration      float64     `json:"window_duration"`
	WindowStride        float64     `json:"window_stride"`
	WindowMin           float64     `json:"window_min"`
	WindowMax           float64     `json:"window_max"`
	GraderConcurrency   int         `json:"grader_concurrency"`
	RenderConcurrency   int         `json:"render_concurrency"`
	RenderQuality       string      `json:"render_quality"` // low|medium|high
	OutputDir           string      `json:"output_dir"`
	CancelOnFirstFailure bool       `json:"cancel_on_first_failure"`

	// Not part of the JSON config surface; set from CLI flags / env.
	SourceURL         string
	TopK              int
	ConfigPath        string
	Verbose           bool
	ScratchQuotaBytes int64
	ScratchDir        string
	RankWeights       RankWeights
	SceneCutThreshold float64
	ChatModel         string
	ChatAPIKey        string
}

// knownKeys lists every JSON field name the config file may set. Anything
// else is rejected per spec §6 ("Unknown keys are rejected with a config
// error").
var knownKeys = map[string]struct{}{
	"whisper_server_url":    {},
	"chat_server_url":       {},
	"window_duration":       {},
	"window_stride":         {},
	"window_min":            {},
	"window_max":            {},
	"grader_concurrency":    {},
	"render_concurrency":    {},
	"render_quality":        {},
	"output_dir":            {},
	"cancel_on_first_failure": {},
}

// LoadFile parses a JSON config file into cfg, rejecting unknown top-level
// keys. cfg should already hold defaults; only keys present in the file
// are overwritten.
func LoadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return &pipelineerr.ConfigError{Field: "config_file", Cause: err}
	}

	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return &pipelineerr.ConfigError{Field: "config_file", Cause: err}
	}
	var unknown []string
	for k := range generic {
		if _, ok := knownKeys[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		return &pipelineerr.ConfigError{
			Field: "config_file",
			Cause: fmt.Errorf("unknown keys: %s", strings.Join(unknown, ", ")),
		}
	}

	if err := json.Unmarshal(raw, cfg); err != nil {
		return &pipelineerr.ConfigError{Field: "config_file", Cause: err}
	}
	return nil
}
