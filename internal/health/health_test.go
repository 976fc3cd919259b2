package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthy_TrueOn2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New()
	if !c.Healthy(context.Background(), srv.URL) {
		t.Fatalf("expected healthy")
	}
}

func TestHealthy_FalseOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New()
	if c.Healthy(context.Background(), srv.URL) {
		t.Fatalf("expected unhealthy")
	}
}

func TestHealthy_FalseOnUnreachable(t *testing.T) {
	c := New()
	if c.Healthy(context.Background(), "http://127.0.0.1:1") {
		t.Fatalf("expected unhealthy for unreachable endpoint")
	}
}
