package httpllm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantSub string
		wantErr bool
	}{
		{"raw", `{"cogency":4,"quotes":[],"salient_terms":[]}`, `"cogency"`, false},
		{"fenced", "```json\n{\"cogency\":3,\"quotes\":[],\"salient_terms\":[]}\n```", `"cogency"`, false},
		{"preface", "sure, here you go: {\"cogency\":2,\"quotes\":[],\"salient_terms\":[]} done", `"cogency"`, false},
		{"empty", "   ", "", true},
		{"nojson", "no braces here", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSONObject(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(got, tt.wantSub) {
				t.Fatalf("expected %q to contain %q", got, tt.wantSub)
			}
		})
	}
}

func TestParseGrade_RejectsOutOfRangeCogency(t *testing.T) {
	if _, err := parseGrade(`{"cogency":9,"quotes":[],"salient_terms":[]}`); err == nil {
		t.Fatalf("expected out-of-range cogency to be rejected")
	}
}

func TestParseGrade_CapsQuotesAndSalientTerms(t *testing.T) {
	longQuote := strings.Repeat("q", 300)
	got, err := parseGrade(fmt.Sprintf(
		`{"cogency":4,"quotes":["%s","two","three","four"],"salient_terms":["a","b","c","d","e","f","g","h","i","j"]}`,
		longQuote,
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Quotes) != 3 {
		t.Fatalf("expected quotes capped at 3, got %d", len(got.Quotes))
	}
	if len(got.Quotes[0]) != 240 {
		t.Fatalf("expected first quote truncated to 240 chars, got %d", len(got.Quotes[0]))
	}
	if len(got.SalientTerms) != 8 {
		t.Fatalf("expected salient terms capped at 8, got %d", len(got.SalientTerms))
	}
}

func TestGrade_DegradesFailedWindowToSentinelWithoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	a := New(srv.URL, "", "local-model")
	grades, err := a.Grade(context.Background(), []string{"some window text"})
	if err != nil {
		t.Fatalf("Grade must never fail the batch: %v", err)
	}
	if len(grades) != 1 {
		t.Fatalf("expected 1 grade, got %d", len(grades))
	}
	if grades[0].Cogency != 0 {
		t.Fatalf("expected sentinel grade, got %+v", grades[0])
	}
}

func TestGrade_ParsesCogencyFromChatResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"cogency\":5,\"quotes\":[\"a quote\"],\"salient_terms\":[\"term\"]}"}}]}`)
	}))
	defer srv.Close()

	a := New(srv.URL, "", "local-model")
	grades, err := a.Grade(context.Background(), []string{"window one", "window two"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grades) != 2 {
		t.Fatalf("expected 2 grades, got %d", len(grades))
	}
	for _, g := range grades {
		if g.Cogency != 5 {
			t.Fatalf("expected cogency 5, got %d", g.Cogency)
		}
		if len(g.Quotes) != 1 || g.Quotes[0] != "a quote" {
			t.Fatalf("unexpected quotes: %v", g.Quotes)
		}
	}
}
