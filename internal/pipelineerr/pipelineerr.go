// Package pipelineerr defines the distinct error kinds of the pipeline
// (spec §7). Each kind is a typed struct so callers can branch on it with
// errors.As instead of string-matching; job-level kinds wrap their cause.
package pipelineerr

import "fmt"

// ConfigError marks invalid CLI args or config file content. Fatal, exit 3.
type ConfigError struct {
	Field string
	Cause error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config: %s: %v", e.Field, e.Cause)
	}
	return fmt.Sprintf("config: %s", e.Field)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// HealthError marks an unreachable or unhealthy model endpoint. Fatal, exit 4.
type HealthError struct {
	Endpoint string
	Cause    error
}

func (e *HealthError) Error() string {
	return fmt.Sprintf("health: %s unhealthy: %v", e.Endpoint, e.Cause)
}

func (e *HealthError) Unwrap() error { return e.Cause }

// IngestError marks a source that could not be fetched or is unsupported.
// Fatal for the job.
type IngestError struct {
	SourceURL string
	Cause     error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %q: %v", e.SourceURL, e.Cause)
}

func (e *IngestError) Unwrap() error { return e.Cause }

// AsrError marks a transcription failure after retries. Fatal for the job.
type AsrError struct {
	Cause error
}

func (e *AsrError) Error() string { return fmt.Sprintf("asr: %v", e.Cause) }
func (e *AsrError) Unwrap() error { return e.Cause }

// SceneDetectError is non-fatal; callers degrade to zero scene cuts and
// log a warning, never propagate this upward as a job failure.
type SceneDetectError struct {
	Cause error
}

func (e *SceneDetectError) Error() string { return fmt.Sprintf("scene detect: %v", e.Cause) }
func (e *SceneDetectError) Unwrap() error { return e.Cause }

// GradeError marks a single window's grading failure; the window is
// degraded to a sentinel grade and excluded from top-K, never fatal.
type GradeError struct {
	WindowID string
	Cause    error
}

func (e *GradeError) Error() string {
	return fmt.Sprintf("grade window %s: %v", e.WindowID, e.Cause)
}

func (e *GradeError) Unwrap() error { return e.Cause }

// RenderError marks a single clip's render failure. The orchestrator
// retries once on the CPU encoder before skipping the clip.
type RenderError struct {
	WindowID string
	Cause    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render clip %s: %v", e.WindowID, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }

// CancelledError propagates a user/external cancellation; it is never
// logged as a failure.
type CancelledError struct {
	Stage string
}

func (e *CancelledError) Error() string { return fmt.Sprintf("cancelled during %s", e.Stage) }
