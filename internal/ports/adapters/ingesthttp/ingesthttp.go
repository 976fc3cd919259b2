// Package ingesthttp implements the MediaIngester port (spec §4.A). It
// accepts either a local filesystem path or an http(s) URL, copying or
// downloading the source into the job's scratch directory under a
// random UUID name, following the local-path-first resolution
// shape of other_examples/harrisonwang-media-ingest's resolvePrepAsset.
package ingesthttp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/forPelevin/clipcut/internal/pipelineerr"
	"github.com/forPelevin/clipcut/internal/types"
)

const (
	downloadTimeout = 30 * time.Minute
	// maxFetchRetries is the first attempt plus 3 retries (1s, 4s, 16s),
	// per spec §4.A. backoff.v5's WithMaxTries counts the first call, so
	// 3 retries means 4 tries total.
	maxFetchRetries = 4
)

// Adapter fetches source media by local path or HTTP(S) URL.
type Adapter struct {
	client *http.Client
}

// New constructs an Adapter.
func New() *Adapter {
	return &Adapter{client: &http.Client{Timeout: downloadTimeout}}
}

// Fetch resolves sourceURL to a local file under scratchDir and returns
// the resulting MediaAsset (with DurationSec left zero; the caller
// probes duration via the Encoder port once the file is in place).
func (a *Adapter) Fetch(ctx context.Context, sourceURL, scratchDir string) (types.MediaAsset, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return types.MediaAsset{}, &pipelineerr.IngestError{SourceURL: sourceURL, Cause: fmt.Errorf("empty source")}
	}

	if isLocalPath(sourceURL) {
		return a.fetchLocal(sourceURL, scratchDir)
	}
	return a.fetchRemote(ctx, sourceURL, scratchDir)
}

func isLocalPath(ref string) bool {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return false
	}
	_, err := os.Stat(ref)
	return err == nil
}

func (a *Adapter) fetchLocal(path, scratchDir string) (types.MediaAsset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return types.MediaAsset{}, &pipelineerr.IngestError{SourceURL: path, Cause: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return types.MediaAsset{}, &pipelineerr.IngestError{SourceURL: path, Cause: err}
	}
	if info.IsDir() {
		return types.MediaAsset{}, &pipelineerr.IngestError{SourceURL: path, Cause: fmt.Errorf("source is a directory")}
	}

	id := uuid.NewString()
	dst := filepath.Join(scratchDir, id+filepath.Ext(abs))
	if err := copyFile(abs, dst); err != nil {
		return types.MediaAsset{}, &pipelineerr.IngestError{SourceURL: path, Cause: err}
	}
	return types.MediaAsset{ID: id, LocalPath: dst}, nil
}

// fetchRemote downloads rawURL with exponential backoff (1s/4s/16s, the
// first attempt plus up to 3 retries) per spec §4.A. Non-retryable status codes (anything 4xx except
// 408 and 429) fail on the first attempt.
func (a *Adapter) fetchRemote(ctx context.Context, rawURL, scratchDir string) (types.MediaAsset, error) {
	op := func() (types.MediaAsset, error) {
		asset, retryable, err := a.doFetchRemote(ctx, rawURL, scratchDir)
		if err != nil && retryable {
			return types.MediaAsset{}, err
		}
		if err != nil {
			return types.MediaAsset{}, backoff.Permanent(err)
		}
		return asset, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 4
	b.MaxInterval = 16 * time.Second

	asset, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxFetchRetries),
	)
	if err != nil {
		return types.MediaAsset{}, &pipelineerr.IngestError{SourceURL: rawURL, Cause: err}
	}
	return asset, nil
}

func (a *Adapter) doFetchRemote(ctx context.Context, rawURL, scratchDir string) (types.MediaAsset, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return types.MediaAsset{}, false, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return types.MediaAsset{}, true, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests
		return types.MediaAsset{}, retryable, fmt.Errorf("download status %d", resp.StatusCode)
	}

	id := uuid.NewString()
	ext := extFromURLOrContentType(rawURL, resp.Header.Get("Content-Type"))
	dst := filepath.Join(scratchDir, id+ext)

	f, err := os.Create(dst)
	if err != nil {
		return types.MediaAsset{}, false, err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return types.MediaAsset{}, true, err
	}

	return types.MediaAsset{ID: id, LocalPath: dst}, false, nil
}

func extFromURLOrContentType(rawURL, contentType string) string {
	if ext := filepath.Ext(rawURL); ext != "" && len(ext) <= 5 {
		return ext
	}
	switch {
	case strings.Contains(contentType, "mp4"):
		return ".mp4"
	case strings.Contains(contentType, "webm"):
		return ".webm"
	case strings.Contains(contentType, "quicktime"):
		return ".mov"
	default:
		return ".bin"
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
