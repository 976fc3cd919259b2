// Package joblog emits the per-job CSV log (spec §6): one row per
// produced clip, written to {output_dir}/{media.id}_clips_log.csv.
// Grounded on other_examples/harrisonwang-media-ingest's
// writePrepMarkers for the stdlib encoding/csv invocation shape; no CSV
// library appears anywhere in the retrieved pack, so this is the one
// domain-facing concern grounded on stdlib by necessity.
package joblog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/forPelevin/clipcut/internal/types"
)

var header = []string{
	"video_id", "rank", "window_id", "start_time", "end_time",
	"keyphrase_score", "density_score", "cogency_score", "final_score",
	"quotes", "salient_terms", "keyphrases", "scene_cuts", "file_path", "text_preview",
}

// Path returns the CSV log path for a media id under outputDir.
func Path(outputDir, mediaID string) string {
	return filepath.Join(outputDir, mediaID+"_clips_log.csv")
}

// Write emits rows to Path(outputDir, mediaID), always including the
// header even when rows is empty (spec §8 scenario 1: "0 clips, CSV
// with header only, exit 0").
func Write(outputDir, mediaID string, rows []types.JobLogRow) error {
	path := Path(outputDir, mediaID)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create job log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write job log header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(rowToRecord(r)); err != nil {
			return fmt.Errorf("write job log row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func rowToRecord(r types.JobLogRow) []string {
	return []string{
		r.VideoID,
		strconv.Itoa(r.Rank),
		r.WindowID,
		strconv.FormatFloat(r.StartTime, 'f', 3, 64),
		strconv.FormatFloat(r.EndTime, 'f', 3, 64),
		strconv.FormatFloat(r.KeyphraseScore, 'f', 4, 64),
		strconv.FormatFloat(r.DensityScore, 'f', 4, 64),
		strconv.FormatFloat(r.CogencyScore, 'f', 4, 64),
		strconv.FormatFloat(r.FinalScore, 'f', 4, 64),
		strings.Join(r.Quotes, "|"),
		strings.Join(r.SalientTerms, "|"),
		strings.Join(r.Keyphrases, "|"),
		strconv.Itoa(r.SceneCuts),
		r.FilePath,
		textPreview(r.TextPreview),
	}
}

// textPreview collapses newlines and truncates to 160 chars, per spec §6.
func textPreview(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	r := []rune(strings.TrimSpace(s))
	if len(r) > 160 {
		r = r[:160]
	}
	return string(r)
}
