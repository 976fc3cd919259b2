// Package httpasr adapts a local, GPU-resident ASR model server to the
// ports.ASRClient interface. It replaces the teacher's whispercpp
// subprocess adapter (internal/ports/adapters/whispercpp) with an HTTP
// client, since spec §1/§6 run the ASR model as a long-lived server
// rather than a one-shot CLI invocation; the request/response and retry
// shape is grounded on the teacher's openrouter.Adapter.
package httpasr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/forPelevin/clipcut/internal/types"
)

const (
	requestTimeout = 10 * time.Minute
	// maxRetries is passed to backoff.WithMaxTries, which counts the first
	// call, so 4 tries total is the first attempt plus 3 retries.
	maxRetries = 4
)

// Adapter submits audio to a whisper-compatible /v1/audio/transcriptions
// endpoint and parses word-level timestamps from the verbose_json
// response, matching spec §6's ASR endpoint contract.
type Adapter struct {
	baseURL string
	client  *http.Client
}

// New constructs an Adapter against baseURL (e.g. http://127.0.0.1:8000).
func New(baseURL string) *Adapter {
	return &Adapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: requestTimeout},
	}
}

type verboseJSONResponse struct {
	Words []struct {
		Word    string  `json:"word"`
		Start   float64 `json:"start"`
		End     float64 `json:"end"`
		Prob    float64 `json:"probability"`
		Speaker string  `json:"speaker"`
	} `json:"words"`
}

// Transcribe uploads the WAV at audioPath and returns a word-timestamped
// Transcript. Transient HTTP/network failures are retried with
// exponential backoff (spec §4.B, §9: "no model server should be
// retried forever — cap attempts").
func (a *Adapter) Transcribe(ctx context.Context, audioPath string) (types.Transcript, error) {
	op := func() (types.Transcript, error) {
		tr, retryable, err := a.doTranscribe(ctx, audioPath)
		if err != nil && retryable {
			return types.Transcript{}, err
		}
		if err != nil {
			return types.Transcript{}, backoff.Permanent(err)
		}
		return tr, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxRetries),
	)
}

func (a *Adapter) doTranscribe(ctx context.Context, audioPath string) (types.Transcript, bool, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return types.Transcript{}, false, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return types.Transcript{}, false, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return types.Transcript{}, false, err
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return types.Transcript{}, false, err
	}
	if err := mw.WriteField("timestamp_granularities[]", "word"); err != nil {
		return types.Transcript{}, false, err
	}
	if err := mw.Close(); err != nil {
		return types.Transcript{}, false, err
	}

	url := a.baseURL + "/v1/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return types.Transcript{}, false, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := a.client.Do(req)
	if err != nil {
		return types.Transcript{}, true, fmt.Errorf("asr request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		rb, _ := io.ReadAll(resp.Body)
		return types.Transcript{}, true, fmt.Errorf("asr status %d: %s", resp.StatusCode, truncate(string(rb), 300))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(resp.Body)
		return types.Transcript{}, false, fmt.Errorf("asr status %d: %s", resp.StatusCode, truncate(string(rb), 300))
	}

	var raw verboseJSONResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return types.Transcript{}, false, fmt.Errorf("decode asr response: %w", err)
	}

	tokens := make([]types.Token, 0, len(raw.Words))
	for _, w := range raw.Words {
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		tokens = append(tokens, types.Token{
			Text:         text,
			Start:        secToDur(w.Start),
			End:          secToDur(w.End),
			Confidence:   w.Prob,
			SpeakerLabel: w.Speaker,
		})
	}
	return types.Transcript{Tokens: tokens}, false, nil
}

func secToDur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
