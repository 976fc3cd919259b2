package ingesthttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestFetch_CopiesLocalFile(t *testing.T) {
	scratch := t.TempDir()
	src := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(src, []byte("fake-mp4-bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	a := New()
	asset, err := a.Fetch(context.Background(), src, scratch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asset.ID == "" || asset.LocalPath == "" {
		t.Fatalf("expected populated asset, got %+v", asset)
	}
	if filepath.Dir(asset.LocalPath) != scratch {
		t.Fatalf("expected asset under scratch dir %s, got %s", scratch, asset.LocalPath)
	}
	got, err := os.ReadFile(asset.LocalPath)
	if err != nil {
		t.Fatalf("read copied file: %v", err)
	}
	if string(got) != "fake-mp4-bytes" {
		t.Fatalf("unexpected copied contents: %q", got)
	}
}

func TestFetch_RejectsEmptySource(t *testing.T) {
	a := New()
	if _, err := a.Fetch(context.Background(), "", t.TempDir()); err == nil {
		t.Fatalf("expected error for empty source")
	}
}

func TestFetch_DownloadsRemoteURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("remote-bytes"))
	}))
	defer srv.Close()

	a := New()
	asset, err := a.Fetch(context.Background(), srv.URL+"/video.mp4", t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Ext(asset.LocalPath) != ".mp4" {
		t.Fatalf("expected .mp4 extension, got %s", asset.LocalPath)
	}
}

func TestFetch_RetriesOn5xxThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	a := New()
	if _, err := a.Fetch(context.Background(), srv.URL+"/video.mp4", t.TempDir()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts.Load() < 2 {
		t.Fatalf("expected at least 2 attempts, got %d", attempts.Load())
	}
}

func TestFetch_DoesNotRetryOn404(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a := New()
	if _, err := a.Fetch(context.Background(), srv.URL+"/missing.mp4", t.TempDir()); err == nil {
		t.Fatalf("expected error")
	}
	if attempts.Load() != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", attempts.Load())
	}
}
