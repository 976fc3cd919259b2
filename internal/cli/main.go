package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Exit codes per spec §6.
const (
	exitSuccess            = 0
	exitPartialSuccess     = 1
	exitJobFailure         = 2
	exitMisuse             = 3
	exitEndpointsUnhealthy = 4
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	exitCode := exitSuccess
	root := &cobra.Command{
		Use:          "clipcut",
		Short:        "Cut top-K short-form vertical clips from a long-form video",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := run(cmd)
			exitCode = code
			return err
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.Flags().String("url", "", "Source media URL or local path (required)")
	root.Flags().Int("k", 5, "Number of top clips to produce")
	root.Flags().String("output-dir", "./rendered_clips", "Output directory")
	root.Flags().String("config", "", "Path to an optional JSON config file")
	root.Flags().Bool("health-check", false, "Check model server health and exit")
	root.Flags().Bool("verbose", false, "Enable verbose structured logging")

	// Hidden tuning flags (internal; not part of spec §6's user-facing surface).
	root.Flags().Float64("window-duration", 90, "Nominal window length in seconds")
	root.Flags().Float64("window-stride", 15, "Window anchor stride in seconds")
	root.Flags().Float64("window-min", 45, "Minimum window length in seconds")
	root.Flags().Float64("window-max", 120, "Maximum window length in seconds")
	root.Flags().Int("grader-concurrency", 4, "Max concurrent grader requests")
	root.Flags().Int("render-concurrency", 2, "Max concurrent render jobs")
	root.Flags().String("render-quality", "medium", "Render quality: low|medium|high")
	root.Flags().Bool("cancel-on-first-failure", false, "Abort the job on the first render failure")
	for _, f := range []string{
		"window-duration", "window-stride", "window-min", "window-max",
		"grader-concurrency", "render-concurrency", "render-quality",
		"cancel-on-first-failure",
	} {
		_ = root.Flags().MarkHidden(f)
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitCode == exitSuccess {
			exitCode = exitMisuse
		}
	}
	os.Exit(exitCode)
}
