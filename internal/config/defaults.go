package config

// Default returns the baseline configuration values named throughout
// spec §4 and §6. Callers overlay CLI flags and an optional config file
// on top of this.
func Default() Config {
	return Config{
		WhisperServerURL:     "http://localhost:8000",
		ChatServerURL:        "http://localhost:8001",
		WindowDuration:       90,
		WindowStride:         15,
		WindowMin:            45,
		WindowMax:            120,
		GraderConcurrency:    4,
		RenderConcurrency:    2,
		RenderQuality:        "medium",
		OutputDir:            "./rendered_clips",
		CancelOnFirstFailure: false,
		TopK:                 5,
		ScratchQuotaBytes:    20 * 1024 * 1024 * 1024, // 20 GB, spec §5
		SceneCutThreshold:    0.35,
		ChatModel:            "meta-llama/Llama-3.1-8B-Instruct",
		RankWeights: RankWeights{
			Coverage:        0.35,
			Density:         0.20,
			Cogency:         0.25,
			QuoteBonus:      0.10,
			SceneCutPenalty: 0.05,
			FillerPenalty:   0.05,
		},
	}
}
