//go:build integration

package itest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

// cutPad mirrors renderplan.cutPad (spec §4.H): the padding added on each
// side of a selected window before it is clamped to the source duration.
const cutPad = 100 * time.Millisecond

// durationTolerance is spec §8 invariant 5's allowed rendered-duration drift.
const durationTolerance = 0.15

// TestE2E_ProducesRankedClips builds a real speech+video fixture, stands
// up fake ASR/chat servers implementing the contracts of spec §6, and
// drives the CLI end to end, asserting a non-empty job log and at least
// one rendered clip file (spec §8 scenario 3: multiple non-overlapping
// windows selected to the CSV log and MP4 outputs).
func TestE2E_ProducesRankedClips(t *testing.T) {
	repoRoot := mustRepoRoot(t)
	in := buildSpeechFixture(t)

	asr := httptest.NewServer(http.HandlerFunc(fakeASRHandler))
	defer asr.Close()
	chat := httptest.NewServer(http.HandlerFunc(fakeChatHandler))
	defer chat.Close()

	outDir := filepath.Join(t.TempDir(), "out")
	cfgPath := writeConfigFixture(t, fmt.Sprintf(
		`{"whisper_server_url":%q,"chat_server_url":%q,"window_min":5,"window_max":20,"window_duration":10,"window_stride":5}`,
		asr.URL, chat.URL,
	))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/clipcut",
		"--url", in,
		"--k", "2",
		"--output-dir", outDir,
		"--config", cfgPath,
	)
	cmd.Dir = repoRoot
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("clipcut run failed: %v\n%s", err, string(out))
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	var sawClip, sawLog bool
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".mp4") {
			sawClip = true
		}
		if strings.HasSuffix(e.Name(), "_clips_log.csv") {
			sawLog = true
		}
	}
	if !sawClip {
		t.Fatalf("expected at least one rendered clip in %s, got %v", outDir, entries)
	}
	if !sawLog {
		t.Fatalf("expected a job log CSV in %s, got %v", outDir, entries)
	}

	assertInvariant5(t, outDir, in)
}

// assertInvariant5 parses the job log's CSV rows and checks, for every
// rendered clip, that its duration is within ±0.15s of its padded and
// source-clamped window (spec §8 invariant 5) and that its resolution is
// exactly 1080x1920.
func assertInvariant5(t *testing.T, outDir, sourcePath string) {
	t.Helper()

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	var logPath string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "_clips_log.csv") {
			logPath = filepath.Join(outDir, e.Name())
			break
		}
	}
	if logPath == "" {
		t.Fatalf("no job log found in %s", outDir)
	}

	sourceDuration, err := probeDurationSeconds(sourcePath)
	if err != nil {
		t.Fatalf("probe source duration: %v", err)
	}

	f, err := os.Open(logPath)
	if err != nil {
		t.Fatalf("open job log: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read job log csv: %v", err)
	}
	if len(records) < 2 {
		t.Fatalf("expected header plus at least one clip row, got %d records", len(records))
	}

	const colStart, colEnd, colFilePath = 3, 4, 13
	for _, row := range records[1:] {
		startTime, err := strconv.ParseFloat(row[colStart], 64)
		if err != nil {
			t.Fatalf("parse start_time %q: %v", row[colStart], err)
		}
		endTime, err := strconv.ParseFloat(row[colEnd], 64)
		if err != nil {
			t.Fatalf("parse end_time %q: %v", row[colEnd], err)
		}
		clipPath := row[colFilePath]

		cutStart := startTime - cutPad.Seconds()
		if cutStart < 0 {
			cutStart = 0
		}
		cutEnd := endTime + cutPad.Seconds()
		if sourceDuration > 0 && cutEnd > sourceDuration {
			cutEnd = sourceDuration
		}
		expectedDuration := cutEnd - cutStart

		actualDuration, err := probeDurationSeconds(clipPath)
		if err != nil {
			t.Fatalf("probe rendered clip duration %s: %v", clipPath, err)
		}
		if math.Abs(actualDuration-expectedDuration) > durationTolerance {
			t.Fatalf("clip %s: expected duration %.3fs, got %.3fs (tolerance %.2fs)",
				clipPath, expectedDuration, actualDuration, durationTolerance)
		}

		width, height, err := probeResolution(clipPath)
		if err != nil {
			t.Fatalf("probe rendered clip resolution %s: %v", clipPath, err)
		}
		if width != 1080 || height != 1920 {
			t.Fatalf("clip %s: expected 1080x1920, got %dx%d", clipPath, width, height)
		}
	}
}

func buildSpeechFixture(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	in := filepath.Join(tmp, "input.mp4")

	wav := filepath.Join(tmp, "speech.wav")
	text := "Here is the key idea. Step one, do this. Step two, measure results. This is important. Here is another important point worth remembering."
	if b, err := exec.Command("espeak-ng", "-w", wav, text).CombinedOutput(); err != nil {
		t.Fatalf("espeak-ng failed: %v\n%s", err, string(b))
	}

	ff := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", "color=c=black:s=1280x720:d=60",
		"-i", wav,
		"-shortest",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		in,
	)
	if b, err := ff.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}
	return in
}

// fakeASRHandler implements the /v1/audio/transcriptions contract with a
// fixed word-timestamped transcript: 23 words, one every 0.4s (about 9s).
func fakeASRHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/health" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.URL.Path != "/v1/audio/transcriptions" {
		http.NotFound(w, r)
		return
	}
	type word struct {
		Word        string  `json:"word"`
		Start       float64 `json:"start"`
		End         float64 `json:"end"`
		Probability float64 `json:"probability"`
	}
	words := []word{}
	text := "here is the key idea step one do this step two measure results this is important here is another important point worth remembering"
	tok := strings.Fields(text)
	t0 := 0.0
	for i, word0 := range tok {
		start := t0 + float64(i)*0.4
		words = append(words, word{Word: word0, Start: start, End: start + 0.35, Probability: 0.95})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"words": words})
}

// fakeChatHandler implements the OpenAI-compatible chat/completions
// contract with a fixed, valid grading payload.
func fakeChatHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/health" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.URL.Path != "/v1/chat/completions" {
		http.NotFound(w, r)
		return
	}
	content := `{"cogency": 4, "quotes": ["this is important"], "salient_terms": ["key idea", "results"]}`
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
}
