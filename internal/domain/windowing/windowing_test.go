package windowing

import (
	"testing"
	"time"

	"github.com/forPelevin/clipcut/internal/types"
)

func tok(text string, start, end time.Duration) types.Token {
	return types.Token{Text: text, Start: start, End: end}
}

func TestGenerate_EmptyTranscript(t *testing.T) {
	got := Generate(types.Transcript{}, nil, defaultParams())
	if got != nil {
		t.Fatalf("expected nil windows for empty transcript, got %d", len(got))
	}
}

func TestGenerate_ShortMediaProducesSingleWindow(t *testing.T) {
	tr := synthTranscript(30 * time.Second)
	got := Generate(tr, nil, defaultParams())
	if len(got) != 1 {
		t.Fatalf("expected 1 window for short media, got %d", len(got))
	}
	if got[0].Start != tr.Tokens[0].Start || got[0].End != tr.Tokens[len(tr.Tokens)-1].End {
		t.Fatalf("expected full-span window, got %+v", got[0])
	}
}

func TestGenerate_InvariantsHold(t *testing.T) {
	tr := synthTranscript(10 * time.Minute)
	got := Generate(tr, nil, defaultParams())
	if len(got) == 0 {
		t.Fatalf("expected some windows for a 10 minute transcript")
	}
	for _, w := range got {
		if w.Start >= w.End {
			t.Fatalf("window start >= end: %+v", w)
		}
		d := w.Duration()
		if d < defaultParams().Min || d > defaultParams().Max {
			t.Fatalf("window duration %v out of [min,max]: %+v", d, w)
		}
	}
}

func TestGenerate_AscendingStartOrder(t *testing.T) {
	tr := synthTranscript(6 * time.Minute)
	got := Generate(tr, nil, defaultParams())
	for i := 1; i < len(got); i++ {
		if got[i].Start < got[i-1].Start {
			t.Fatalf("windows not sorted ascending by start: %+v", got)
		}
	}
}

func TestGenerate_SceneCutPreferredWithinTolerance(t *testing.T) {
	tr := synthTranscript(4 * time.Minute)
	cut := 90 * time.Second
	cuts := []types.SceneCut{{Time: cut}}
	// With the cut preferred, the 90s anchor snaps to the token start
	// nearest the cut (earliest on a tie) rather than to the nearby pause
	// boundary.
	want := time.Duration(-1)
	for _, tk := range tr.Tokens {
		if want < 0 || absDur(tk.Start-cut) < absDur(want-cut) {
			want = tk.Start
		}
	}
	got := Generate(tr, cuts, defaultParams())
	foundNearCut := false
	for _, w := range got {
		if w.Start == want {
			foundNearCut = true
		}
	}
	if !foundNearCut {
		t.Fatalf("expected a window starting at %v, the token start nearest the scene cut; got %+v", want, got)
	}
}

func defaultParams() Params {
	return Params{
		Target: 90 * time.Second,
		Stride: 15 * time.Second,
		Min:    45 * time.Second,
		Max:    120 * time.Second,
	}
}

// synthTranscript builds a dense, evenly spaced word stream (one word
// every 300ms, with an occasional longer pause to give the snapper
// pause boundaries to choose from) spanning roughly dur.
func synthTranscript(dur time.Duration) types.Transcript {
	var tokens []types.Token
	cur := time.Duration(0)
	i := 0
	for cur < dur {
		wordDur := 250 * time.Millisecond
		gap := 50 * time.Millisecond
		if i%20 == 0 {
			gap = 400 * time.Millisecond
		}
		tokens = append(tokens, tok("word", cur, cur+wordDur))
		cur += wordDur + gap
		i++
	}
	return types.Transcript{Tokens: tokens}
}
