// Package windowing implements the anchor/stride/snap algorithm of
// spec §4.D: it turns a word-timestamped Transcript plus a list of
// SceneCuts into an ordered, non-duplicate list of candidate clip
// Windows. The anchor loop and bounds checks follow the shape of the
// teacher's highlights.BuildCandidates/buildFromWords; the sentence/
// pause boundary scoring is adapted from the teacher's openrouter.go
// chooseNaturalEnd/bestSentenceEnd, reused here for the snap step that
// spec §4.D calls for ("prefer speech-pause boundaries").
package windowing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/forPelevin/clipcut/internal/types"
)

// Params configures the window generator (spec §4.D / config keys
// window_duration/window_stride/window_min/window_max).
type Params struct {
	Target time.Duration // nominal window length L
	Stride time.Duration // S
	Min    time.Duration // L_min
	Max    time.Duration // L_max
}

const (
	snapTolerance      = 750 * time.Millisecond
	pauseThreshold     = 150 * time.Millisecond
	sceneCutPreference = 1500 * time.Millisecond
	mergeOverlapRatio  = 0.85
)

// Generate produces the ordered, deduplicated Window list for transcript
// given cuts. Empty transcripts yield nil (spec §4.D edge case); a
// transcript shorter than Params.Min yields a single window spanning the
// full span.
func Generate(transcript types.Transcript, cuts []types.SceneCut, p Params) []types.Window {
	if len(transcript.Tokens) == 0 {
		return nil
	}

	duration := transcript.Duration()
	if duration <= p.Min {
		return []types.Window{fullSpanWindow(transcript, cuts)}
	}

	var anchors []time.Duration
	for a := time.Duration(0); a <= duration-p.Min; a += p.Stride {
		anchors = append(anchors, a)
	}

	var out []types.Window
	for _, a := range anchors {
		w, ok := buildWindow(transcript, cuts, a, p)
		if !ok {
			continue
		}
		out = append(out, w)
	}

	out = dedupe(out, cuts)
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func fullSpanWindow(transcript types.Transcript, cuts []types.SceneCut) types.Window {
	start := transcript.Tokens[0].Start
	end := transcript.Tokens[len(transcript.Tokens)-1].End
	return types.Window{
		ID:                windowID(start, end),
		Start:             start,
		End:               end,
		TokenStart:        0,
		TokenEnd:          len(transcript.Tokens) - 1,
		Text:              joinTokens(transcript.Tokens, 0, len(transcript.Tokens)-1),
		ContainsSceneCuts: countInteriorCuts(cuts, start, end),
	}
}

// buildWindow resolves one anchor into a snapped Window, or reports
// !ok if no acceptable boundary exists within tolerance.
func buildWindow(transcript types.Transcript, cuts []types.SceneCut, anchor time.Duration, p Params) (types.Window, bool) {
	nominalEnd := anchor + p.Target
	startSnap, startIdx, ok := snapBoundary(transcript.Tokens, cuts, anchor, true)
	if !ok {
		return types.Window{}, false
	}
	endSnap, endIdx, ok := snapBoundary(transcript.Tokens, cuts, nominalEnd, false)
	if !ok {
		return types.Window{}, false
	}
	if endIdx <= startIdx {
		return types.Window{}, false
	}

	length := endSnap - startSnap
	if length < p.Min || length > p.Max {
		return types.Window{}, false
	}

	return types.Window{
		ID:                windowID(startSnap, endSnap),
		Start:             startSnap,
		End:               endSnap,
		TokenStart:        startIdx,
		TokenEnd:          endIdx,
		Text:              joinTokens(transcript.Tokens, startIdx, endIdx),
		ContainsSceneCuts: countInteriorCuts(cuts, startSnap, endSnap),
	}, true
}

// snapBoundary resolves a nominal boundary time to an actual token
// boundary within ±snapTolerance, preferring a scene cut within
// sceneCutPreference of the nominal point, else the nearest token
// boundary preceded by a pause of at least pauseThreshold, else the
// single nearest token boundary. isStart selects whether we snap to a
// token Start (true) or End (false).
func snapBoundary(tokens []types.Token, cuts []types.SceneCut, nominal time.Duration, isStart bool) (time.Duration, int, bool) {
	lo, hi := nominal-snapTolerance, nominal+snapTolerance

	if cut, ok := nearestSceneCut(cuts, nominal, sceneCutPreference); ok {
		if idx, snapped, ok := nearestTokenBoundary(tokens, cut, lo, hi, isStart); ok {
			return snapped, idx, true
		}
	}

	if idx, snapped, ok := bestPauseBoundary(tokens, nominal, lo, hi, isStart); ok {
		return snapped, idx, true
	}

	if idx, snapped, ok := nearestTokenBoundary(tokens, nominal, lo, hi, isStart); ok {
		return snapped, idx, true
	}

	return 0, 0, false
}

func nearestSceneCut(cuts []types.SceneCut, nominal time.Duration, within time.Duration) (time.Duration, bool) {
	best := within + 1
	var bestTime time.Duration
	found := false
	for _, c := range cuts {
		d := absDur(c.Time - nominal)
		if d <= within && d < best {
			best = d
			bestTime = c.Time
			found = true
		}
	}
	return bestTime, found
}

// bestPauseBoundary finds the token boundary within [lo,hi] whose
// preceding token ends at least pauseThreshold before the following
// token starts, closest to nominal.
func bestPauseBoundary(tokens []types.Token, nominal, lo, hi time.Duration, isStart bool) (int, time.Duration, bool) {
	bestIdx := -1
	bestDist := hi - lo + 1
	var bestTime time.Duration
	for i, t := range tokens {
		var boundary time.Duration
		if isStart {
			boundary = t.Start
		} else {
			boundary = t.End
		}
		if boundary < lo || boundary > hi {
			continue
		}
		if !hasPauseBefore(tokens, i, isStart) {
			continue
		}
		d := absDur(boundary - nominal)
		if d < bestDist {
			bestDist = d
			bestIdx = i
			bestTime = boundary
		}
	}
	if bestIdx < 0 {
		return 0, 0, false
	}
	return bestIdx, bestTime, true
}

func hasPauseBefore(tokens []types.Token, idx int, isStart bool) bool {
	if isStart {
		if idx == 0 {
			return true
		}
		return tokens[idx].Start-tokens[idx-1].End >= pauseThreshold
	}
	if idx+1 >= len(tokens) {
		return true
	}
	return tokens[idx+1].Start-tokens[idx].End >= pauseThreshold
}

func nearestTokenBoundary(tokens []types.Token, nominal, lo, hi time.Duration, isStart bool) (int, time.Duration, bool) {
	bestIdx := -1
	bestDist := hi - lo + 1
	var bestTime time.Duration
	for i, t := range tokens {
		var boundary time.Duration
		if isStart {
			boundary = t.Start
		} else {
			boundary = t.End
		}
		if boundary < lo || boundary > hi {
			continue
		}
		d := absDur(boundary - nominal)
		if d < bestDist {
			bestDist = d
			bestIdx = i
			bestTime = boundary
		}
	}
	if bestIdx < 0 {
		return 0, 0, false
	}
	return bestIdx, bestTime, true
}

// dedupe merges near-duplicate windows: if two windows have ≥85% token
// span overlap, keep the one closer to a scene cut boundary, else the
// earlier one (spec §4.D). Windows are expected in anchor order, so the
// incumbent is the earlier one; output is deduplicated but not yet sorted.
func dedupe(windows []types.Window, cuts []types.SceneCut) []types.Window {
	kept := make([]types.Window, 0, len(windows))
	for _, w := range windows {
		dup := -1
		for i, k := range kept {
			if tokenSpanOverlap(w, k) >= mergeOverlapRatio {
				dup = i
				break
			}
		}
		if dup < 0 {
			kept = append(kept, w)
			continue
		}
		if preferOver(w, kept[dup], cuts) {
			kept[dup] = w
		}
	}
	return kept
}

func tokenSpanOverlap(a, b types.Window) float64 {
	lo := max(a.TokenStart, b.TokenStart)
	hi := min(a.TokenEnd, b.TokenEnd)
	if hi < lo {
		return 0
	}
	overlap := float64(hi - lo + 1)
	aLen := float64(a.TokenEnd - a.TokenStart + 1)
	bLen := float64(b.TokenEnd - b.TokenStart + 1)
	shorter := aLen
	if bLen < shorter {
		shorter = bLen
	}
	if shorter <= 0 {
		return 0
	}
	return overlap / shorter
}

// preferOver reports whether candidate should replace incumbent: the
// window whose boundaries are closer to a scene cut wins; ties (and the
// no-cut case) keep the earlier (incumbent, since anchors are generated
// in ascending order).
func preferOver(candidate, incumbent types.Window, cuts []types.SceneCut) bool {
	nearest := func(w types.Window) time.Duration {
		best := time.Duration(1<<63 - 1)
		for _, c := range cuts {
			if d := absDur(c.Time - w.Start); d < best {
				best = d
			}
			if d := absDur(c.Time - w.End); d < best {
				best = d
			}
		}
		return best
	}
	return nearest(candidate) < nearest(incumbent)
}

func countInteriorCuts(cuts []types.SceneCut, start, end time.Duration) int {
	n := 0
	for _, c := range cuts {
		if c.Time > start && c.Time < end {
			n++
		}
	}
	return n
}

func joinTokens(tokens []types.Token, start, end int) string {
	parts := make([]string, 0, end-start+1)
	for i := start; i <= end && i < len(tokens); i++ {
		parts = append(parts, tokens[i].Text)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func windowID(start, end time.Duration) string {
	return fmt.Sprintf("w_%d_%d", start.Milliseconds(), end.Milliseconds())
}

func absDur(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
